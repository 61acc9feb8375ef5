package models

import (
	"time"

	"gorm.io/datatypes"
)

type PaymentGateway string

const (
	PaymentGatewaySimulated PaymentGateway = "simulated"
	PaymentGatewayMidtrans  PaymentGateway = "midtrans"
)

// WebhookResult is the outcome recorded for a received notification
type WebhookResult string

const (
	WebhookResultApplied  WebhookResult = "applied"
	WebhookResultIgnored  WebhookResult = "ignored"
	WebhookResultRejected WebhookResult = "rejected"
	WebhookResultNotFound WebhookResult = "not_found"
)

// WebhookLog is an append-only record of a gateway notification
type WebhookLog struct {
	ID        uint      `gorm:"primaryKey" json:"id"`
	CreatedAt time.Time `gorm:"index" json:"createdAt"`

	PaymentID      *string        `gorm:"type:varchar(36);index" json:"paymentId"`
	PaymentGateway PaymentGateway `gorm:"type:varchar(50);not null" json:"provider"`
	EventStatus    string         `gorm:"type:varchar(50)" json:"eventStatus"`
	Result         WebhookResult  `gorm:"type:varchar(20)" json:"result"`
	Message        string         `gorm:"type:text" json:"message"`
	Payload        datatypes.JSON `json:"payload"`
}
