package testutil

import (
	"fmt"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	"broadcastmotion_payments/internal/models"
)

// NewDB opens a private in-memory SQLite database with every model migrated.
// A single connection is used, so code under test must run nested queries on its transaction handle.
func NewDB(t *testing.T) *gorm.DB {
	t.Helper()

	dsn := fmt.Sprintf("file:%s?mode=memory&cache=shared", uuid.NewString())
	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{
		Logger:  logger.Default.LogMode(logger.Silent),
		NowFunc: func() time.Time { return time.Now().UTC() },
	})
	require.NoError(t, err)

	sqlDB, err := db.DB()
	require.NoError(t, err)
	sqlDB.SetMaxOpenConns(1)
	t.Cleanup(func() { _ = sqlDB.Close() })

	require.NoError(t, db.AutoMigrate(models.All()...))
	return db
}

// CreateUser inserts a user of the given type.
func CreateUser(t *testing.T, db *gorm.DB, userType models.UserType) models.User {
	t.Helper()

	uid := "uid-" + uuid.NewString()
	user := models.User{
		FirebaseUID: &uid,
		Name:        "Test User",
		Email:       uuid.NewString() + "@example.com",
		UserType:    userType,
	}
	require.NoError(t, db.Create(&user).Error)
	return user
}

// CreateTemplate inserts an active template priced at price.
func CreateTemplate(t *testing.T, db *gorm.DB, title, price string) models.Template {
	t.Helper()

	template := models.Template{
		Title:        title,
		ThumbnailURL: "https://cdn.example.com/" + uuid.NewString() + ".jpg",
		Price:        decimal.RequireFromString(price),
		IsActive:     true,
	}
	require.NoError(t, db.Create(&template).Error)
	return template
}

// CreatePayment inserts a payment owned by user for template; mutate adjusts fields before insert.
func CreatePayment(t *testing.T, db *gorm.DB, user models.User, template models.Template, mutate func(p *models.Payment)) models.Payment {
	t.Helper()

	now := time.Now().UTC()
	expiresAt := now.Add(24 * time.Hour)
	amount := decimal.NewFromInt(100)
	payment := models.Payment{
		CreatedAt:     now,
		Amount:        amount,
		GrossAmount:   amount,
		FeeAmount:     decimal.Zero,
		NetAmount:     amount,
		PaymentMethod: models.PaymentMethodPix,
		Status:        models.PaymentStatusPending,
		Description:   "Template purchase: " + template.Title,
		PayerName:     "Maria Souza",
		PayerEmail:    "maria@example.com",
		PayerDocument: "12345678901",
		ExpiresAt:     &expiresAt,
		UserID:        user.ID,
		TemplateID:    template.ID,
	}
	if mutate != nil {
		mutate(&payment)
	}
	require.NoError(t, db.Create(&payment).Error)
	return payment
}
