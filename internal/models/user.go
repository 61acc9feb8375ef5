package models

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// UserType represents the type of user
type UserType string

const (
	UserTypeAdmin    UserType = "ADMIN"
	UserTypeCustomer UserType = "CUSTOMER"
)

// User represents a buyer or operator of the storefront
type User struct {
	ID        string         `gorm:"type:varchar(36);primaryKey" json:"id"`
	CreatedAt time.Time      `json:"createdAt"`
	UpdatedAt time.Time      `json:"updatedAt"`
	DeletedAt gorm.DeletedAt `gorm:"index" json:"-"`

	FirebaseUID *string  `gorm:"type:varchar(128);uniqueIndex" json:"-"`
	Name        string   `gorm:"type:varchar(255)" json:"name"`
	Email       string   `gorm:"type:varchar(255);uniqueIndex" json:"email"`
	UserType    UserType `gorm:"type:varchar(20);default:'CUSTOMER'" json:"userType"`

	// Relationships
	Payments []Payment `gorm:"foreignKey:UserID" json:"payments,omitempty"`
}

// BeforeCreate assigns a UUID when none was provided.
func (u *User) BeforeCreate(tx *gorm.DB) error {
	if u.ID == "" {
		u.ID = uuid.NewString()
	}
	return nil
}

// IsAdmin reports whether the user may operate on other users' payments.
func (u User) IsAdmin() bool {
	return u.UserType == UserTypeAdmin
}
