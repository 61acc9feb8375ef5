package services

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"reflect"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"

	"broadcastmotion_payments/internal/metrics"
	"broadcastmotion_payments/internal/models"
	"broadcastmotion_payments/internal/payments"
)

var (
	minPaymentAmount = decimal.NewFromInt(10)
	maxPaymentAmount = decimal.NewFromInt(10000)
)

// CreatePaymentRequest is the payer's purchase request
type CreatePaymentRequest struct {
	TemplateID    string               `json:"templateId" validate:"required"`
	PaymentMethod models.PaymentMethod `json:"paymentMethod" validate:"required,oneof=PIX CREDIT_CARD DEBIT_CARD BOLETO BANK_TRANSFER"`
	Amount        decimal.Decimal      `json:"amount"`
	PayerName     string               `json:"payerName" validate:"required,min=2"`
	PayerEmail    string               `json:"payerEmail" validate:"required,email"`
	PayerDocument string               `json:"payerDocument" validate:"required,min=11"`
	PayerPhone    *string              `json:"payerPhone,omitempty"`
}

// UnmarshalJSON accepts amount only as a JSON number.
func (r *CreatePaymentRequest) UnmarshalJSON(data []byte) error {
	type plain CreatePaymentRequest
	aux := struct {
		*plain
		Amount json.RawMessage `json:"amount"`
	}{plain: (*plain)(r)}
	if err := json.Unmarshal(data, &aux); err != nil {
		return err
	}
	if len(aux.Amount) == 0 || string(aux.Amount) == "null" {
		return nil
	}
	if aux.Amount[0] == '"' {
		return &json.UnmarshalTypeError{Value: "string", Type: reflect.TypeOf(float64(0)), Field: "amount"}
	}
	return r.Amount.UnmarshalJSON(aux.Amount)
}

func (r CreatePaymentRequest) check() *ValidationError {
	verr := validateStruct(r)
	if r.Amount.LessThan(minPaymentAmount) || r.Amount.GreaterThan(maxPaymentAmount) {
		if verr == nil {
			verr = &ValidationError{}
		}
		verr.Details = append(verr.Details, FieldError{
			Field:   "amount",
			Message: fmt.Sprintf("must be between %s and %s", minPaymentAmount, maxPaymentAmount),
		})
	}
	return verr
}

// CreatePaymentResult is the created payment plus the method-specific payer instructions
type CreatePaymentResult struct {
	Payment  models.Payment
	Response map[string]interface{}
}

// PaymentService creates payment intents
type PaymentService struct {
	db         *gorm.DB
	cache      *RedisCache
	dispatcher *payments.Dispatcher
	logger     *slog.Logger
	now        func() time.Time
}

func NewPaymentService(db *gorm.DB, cache *RedisCache, dispatcher *payments.Dispatcher, logger *slog.Logger) *PaymentService {
	return &PaymentService{
		db:         db,
		cache:      cache,
		dispatcher: dispatcher,
		logger:     logger,
		now:        time.Now,
	}
}

// CreatePayment persists a PENDING payment, runs the method processor on it and records the ledger entry.
// Requests are not deduplicated: a retried request creates a second payment.
func (s *PaymentService) CreatePayment(ctx context.Context, actor Actor, req CreatePaymentRequest) (*CreatePaymentResult, error) {
	if !actor.authenticated() {
		return nil, ErrUnauthorized
	}
	if verr := req.check(); verr != nil {
		return nil, verr
	}

	var template models.Template
	err := s.db.WithContext(ctx).First(&template, "id = ?", req.TemplateID).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, ErrTemplateNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to load template: %w", err)
	}

	amount := req.Amount.Round(2)
	fees, err := payments.ComputeFees(amount, req.PaymentMethod)
	if err != nil {
		return nil, NewValidationError("paymentMethod", err.Error())
	}

	now := s.now()
	expiresAt := payments.ComputeExpiration(req.PaymentMethod, now)

	payment := models.Payment{
		ID:            uuid.NewString(),
		CreatedAt:     now,
		UpdatedAt:     now,
		Amount:        amount,
		GrossAmount:   amount,
		FeeAmount:     fees.FeeAmount,
		NetAmount:     fees.NetAmount,
		PaymentMethod: req.PaymentMethod,
		Status:        models.PaymentStatusPending,
		Description:   fmt.Sprintf("Template purchase: %s", template.Title),
		PayerName:     req.PayerName,
		PayerEmail:    req.PayerEmail,
		PayerDocument: req.PayerDocument,
		PayerPhone:    req.PayerPhone,
		ExpiresAt:     &expiresAt,
		UserID:        actor.UserID,
		TemplateID:    template.ID,
	}

	if err := s.db.WithContext(ctx).Create(&payment).Error; err != nil {
		return nil, fmt.Errorf("failed to create payment: %w", err)
	}

	result, err := s.dispatcher.Process(ctx, payment)
	if err != nil {
		s.markFailed(ctx, payment)
		return nil, fmt.Errorf("failed to process %s payment %s: %w", payment.PaymentMethod, payment.ID, err)
	}
	result.Apply(&payment)

	err = s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		err := tx.Model(&payment).
			Select("status", "external_id", "pix_key", "pix_qr_code", "pix_qr_code_base64", "boleto_barcode", "boleto_url", "due_date").
			Updates(&payment).Error
		if err != nil {
			return err
		}

		return tx.Create(&models.Transaction{
			PaymentID:   payment.ID,
			UserID:      payment.UserID,
			Type:        models.TransactionTypePurchase,
			Amount:      amount,
			Description: fmt.Sprintf("Payment created - %s", payment.PaymentMethod),
		}).Error
	})
	if err != nil {
		return nil, fmt.Errorf("failed to store processor result for payment %s: %w", payment.ID, err)
	}

	metrics.PaymentCreated(string(payment.PaymentMethod))
	invalidateUserPayments(ctx, s.cache, s.logger, payment.UserID)
	s.logger.InfoContext(ctx, "Payment created",
		"payment_id", payment.ID,
		"method", payment.PaymentMethod,
		"status", payment.Status,
		"amount", amount.StringFixed(2),
	)

	return &CreatePaymentResult{Payment: payment, Response: result.Response}, nil
}

// markFailed closes a payment whose processor never produced artifacts.
func (s *PaymentService) markFailed(ctx context.Context, payment models.Payment) {
	err := s.db.WithContext(ctx).Model(&models.Payment{}).
		Where("id = ? AND status = ?", payment.ID, models.PaymentStatusPending).
		Updates(map[string]interface{}{"status": models.PaymentStatusFailed, "updated_at": s.now()}).Error
	if err != nil {
		s.logger.ErrorContext(ctx, "Failed to mark payment as failed", "payment_id", payment.ID, "error", err)
	}
	invalidateUserPayments(ctx, s.cache, s.logger, payment.UserID)
}
