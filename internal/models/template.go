package models

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

// Template is a motion-graphics product sold in the storefront
type Template struct {
	ID        string         `gorm:"type:varchar(36);primaryKey" json:"id"`
	CreatedAt time.Time      `json:"createdAt"`
	UpdatedAt time.Time      `json:"updatedAt"`
	DeletedAt gorm.DeletedAt `gorm:"index" json:"-"`

	Title        string          `gorm:"type:varchar(255);not null" json:"title"`
	ThumbnailURL string          `gorm:"type:text" json:"thumbnailUrl"`
	Price        decimal.Decimal `gorm:"type:decimal(12,2)" json:"price"`
	IsActive     bool            `gorm:"default:true" json:"isActive"`
}

func (t *Template) BeforeCreate(tx *gorm.DB) error {
	if t.ID == "" {
		t.ID = uuid.NewString()
	}
	return nil
}
