package models

import (
	"time"

	"gorm.io/datatypes"
)

const ActivityTypePaymentUpdated = "PAYMENT_UPDATED"

// ActivityLog records operator-visible actions for audit
type ActivityLog struct {
	ID        uint      `gorm:"primaryKey" json:"id"`
	CreatedAt time.Time `json:"createdAt"`

	Type        string            `gorm:"type:varchar(50);not null;index" json:"type"`
	Description string            `gorm:"type:text" json:"description"`
	UserID      string            `gorm:"type:varchar(36);index" json:"userId"`
	Metadata    datatypes.JSONMap `json:"metadata"`
	IPAddress   string            `gorm:"type:varchar(64)" json:"ipAddress"`
	UserAgent   string            `gorm:"type:text" json:"userAgent"`
}
