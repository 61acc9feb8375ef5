package models

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

// PaymentMethod is the rail a payer chose for a purchase
type PaymentMethod string

const (
	PaymentMethodPix          PaymentMethod = "PIX"
	PaymentMethodCreditCard   PaymentMethod = "CREDIT_CARD"
	PaymentMethodDebitCard    PaymentMethod = "DEBIT_CARD"
	PaymentMethodBoleto       PaymentMethod = "BOLETO"
	PaymentMethodBankTransfer PaymentMethod = "BANK_TRANSFER"
)

// PaymentMethods lists every accepted method in display order.
var PaymentMethods = []PaymentMethod{
	PaymentMethodPix,
	PaymentMethodCreditCard,
	PaymentMethodDebitCard,
	PaymentMethodBoleto,
	PaymentMethodBankTransfer,
}

// Valid reports whether m is one of the five supported methods.
func (m PaymentMethod) Valid() bool {
	for _, known := range PaymentMethods {
		if m == known {
			return true
		}
	}
	return false
}

// IsCard reports whether the method is settled through a card acquirer.
func (m PaymentMethod) IsCard() bool {
	return m == PaymentMethodCreditCard || m == PaymentMethodDebitCard
}

// PaymentStatus is the lifecycle state of a payment
type PaymentStatus string

const (
	PaymentStatusPending    PaymentStatus = "PENDING"
	PaymentStatusProcessing PaymentStatus = "PROCESSING"
	PaymentStatusCompleted  PaymentStatus = "COMPLETED"
	PaymentStatusFailed     PaymentStatus = "FAILED"
	PaymentStatusExpired    PaymentStatus = "EXPIRED"
	PaymentStatusCancelled  PaymentStatus = "CANCELLED"
	PaymentStatusRefunded   PaymentStatus = "REFUNDED"
	PaymentStatusChargeback PaymentStatus = "CHARGEBACK"
)

var paymentStatuses = []PaymentStatus{
	PaymentStatusPending,
	PaymentStatusProcessing,
	PaymentStatusCompleted,
	PaymentStatusFailed,
	PaymentStatusExpired,
	PaymentStatusCancelled,
	PaymentStatusRefunded,
	PaymentStatusChargeback,
}

// Valid reports whether s is a known status.
func (s PaymentStatus) Valid() bool {
	for _, known := range paymentStatuses {
		if s == known {
			return true
		}
	}
	return false
}

// IsOpen reports whether the payment still awaits an outcome from the gateway.
func (s PaymentStatus) IsOpen() bool {
	return s == PaymentStatusPending || s == PaymentStatusProcessing
}

// IsTerminal reports whether no further automatic transition is possible.
func (s PaymentStatus) IsTerminal() bool {
	return s.Valid() && !s.IsOpen()
}

// forward transitions reachable by reconciliation and webhooks
var lifecycleTransitions = map[PaymentStatus][]PaymentStatus{
	PaymentStatusPending:    {PaymentStatusProcessing, PaymentStatusCompleted, PaymentStatusFailed, PaymentStatusExpired},
	PaymentStatusProcessing: {PaymentStatusCompleted, PaymentStatusFailed},
}

// operator corrections; a superset of the lifecycle that still never moves backwards
var adminTransitions = map[PaymentStatus][]PaymentStatus{
	PaymentStatusPending:    {PaymentStatusProcessing, PaymentStatusCompleted, PaymentStatusFailed, PaymentStatusExpired, PaymentStatusCancelled},
	PaymentStatusProcessing: {PaymentStatusCompleted, PaymentStatusFailed, PaymentStatusCancelled},
	PaymentStatusFailed:     {PaymentStatusCompleted, PaymentStatusCancelled},
	PaymentStatusExpired:    {PaymentStatusCompleted, PaymentStatusCancelled},
	PaymentStatusCompleted:  {PaymentStatusRefunded, PaymentStatusChargeback},
}

func allowed(table map[PaymentStatus][]PaymentStatus, from, to PaymentStatus) bool {
	for _, next := range table[from] {
		if next == to {
			return true
		}
	}
	return false
}

// CanTransitionTo reports whether the payment lifecycle allows moving from s to target.
//
//	PENDING    -> PROCESSING, COMPLETED, FAILED, EXPIRED
//	PROCESSING -> COMPLETED, FAILED
//
// Every other state is terminal for the lifecycle.
func (s PaymentStatus) CanTransitionTo(target PaymentStatus) bool {
	return allowed(lifecycleTransitions, s, target)
}

// CanAdminTransitionTo reports whether an operator may correct a payment from s to target.
func (s PaymentStatus) CanAdminTransitionTo(target PaymentStatus) bool {
	return allowed(adminTransitions, s, target)
}

// Payment represents one purchase attempt
type Payment struct {
	ID        string    `gorm:"type:varchar(36);primaryKey" json:"id"`
	CreatedAt time.Time `json:"createdAt"`
	UpdatedAt time.Time `json:"updatedAt"`

	Amount        decimal.Decimal `gorm:"type:decimal(12,2);not null" json:"amount"`
	GrossAmount   decimal.Decimal `gorm:"type:decimal(12,2);not null" json:"grossAmount"`
	FeeAmount     decimal.Decimal `gorm:"type:decimal(12,2);not null" json:"feeAmount"`
	NetAmount     decimal.Decimal `gorm:"type:decimal(12,2);not null" json:"netAmount"`
	PaymentMethod PaymentMethod   `gorm:"type:varchar(20);not null;index" json:"paymentMethod"`
	Status        PaymentStatus   `gorm:"type:varchar(20);not null;default:'PENDING';index" json:"status"`
	Description   string          `gorm:"type:text" json:"description"`

	PayerName     string  `gorm:"type:varchar(255)" json:"payerName"`
	PayerEmail    string  `gorm:"type:varchar(255)" json:"payerEmail"`
	PayerDocument string  `gorm:"type:varchar(32)" json:"payerDocument"`
	PayerPhone    *string `gorm:"type:varchar(32)" json:"payerPhone"`

	ExternalID      *string `gorm:"type:varchar(100);index" json:"externalId"`
	PixKey          *string `gorm:"type:varchar(100)" json:"pixKey"`
	PixQrCode       *string `gorm:"type:text" json:"pixQrCode"`
	PixQrCodeBase64 *string `gorm:"type:text" json:"pixQrCodeBase64"`
	BoletoBarcode   *string `gorm:"type:varchar(64)" json:"boletoBarcode"`
	BoletoURL       *string `gorm:"type:text" json:"boletoUrl"`

	DueDate   *time.Time `json:"dueDate"`
	ExpiresAt *time.Time `gorm:"index" json:"expiresAt"`
	PaidAt    *time.Time `json:"paidAt"`

	UserID     string `gorm:"type:varchar(36);not null;index" json:"userId"`
	TemplateID string `gorm:"type:varchar(36);not null;index" json:"templateId"`

	// Relationships
	User         *User         `gorm:"foreignKey:UserID" json:"user,omitempty"`
	Template     *Template     `gorm:"foreignKey:TemplateID" json:"template,omitempty"`
	Transactions []Transaction `gorm:"foreignKey:PaymentID" json:"transactions,omitempty"`
	WebhookLogs  []WebhookLog  `gorm:"foreignKey:PaymentID" json:"webhookLogs,omitempty"`
}

func (p *Payment) BeforeCreate(tx *gorm.DB) error {
	if p.ID == "" {
		p.ID = uuid.NewString()
	}
	return nil
}

// Expired reports whether a pending payment has passed its expiration instant.
func (p Payment) Expired(now time.Time) bool {
	return p.Status == PaymentStatusPending && p.ExpiresAt != nil && now.After(*p.ExpiresAt)
}
