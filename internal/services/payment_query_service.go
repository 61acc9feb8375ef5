package services

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"gorm.io/gorm"

	"broadcastmotion_payments/internal/models"
)

const (
	defaultPageSize      = 10
	maxPageSize          = 100
	recentWebhookLogs    = 10
	paymentListCacheTTL  = 5 * time.Minute
	manualUpdateFallback = "Manual update"
)

// ListPaymentsQuery filters and pages a user's payments
type ListPaymentsQuery struct {
	Page   int
	Limit  int
	Status models.PaymentStatus
	Method models.PaymentMethod
}

func (q *ListPaymentsQuery) normalize() *ValidationError {
	if q.Page < 1 {
		q.Page = 1
	}
	if q.Limit < 1 {
		q.Limit = defaultPageSize
	}
	if q.Limit > maxPageSize {
		q.Limit = maxPageSize
	}
	if q.Status != "" && !q.Status.Valid() {
		return NewValidationError("status", "unknown payment status")
	}
	if q.Method != "" && !q.Method.Valid() {
		return NewValidationError("method", "unknown payment method")
	}
	return nil
}

type Pagination struct {
	Page  int   `json:"page"`
	Limit int   `json:"limit"`
	Total int64 `json:"total"`
	Pages int64 `json:"pages"`
}

// PaymentPage is one page of a user's payments, newest first
type PaymentPage struct {
	Payments   []models.Payment `json:"payments"`
	Pagination Pagination       `json:"pagination"`
}

// UpdateStatusRequest is an operator's status correction
type UpdateStatusRequest struct {
	Status models.PaymentStatus `json:"status" validate:"required"`
	Notes  string               `json:"notes,omitempty"`
}

// PaymentQueryService serves payment reads and operator corrections
type PaymentQueryService struct {
	db           *gorm.DB
	cache        *RedisCache
	transitioner *Transitioner
	logger       *slog.Logger
}

func NewPaymentQueryService(db *gorm.DB, cache *RedisCache, transitioner *Transitioner, logger *slog.Logger) *PaymentQueryService {
	return &PaymentQueryService{db: db, cache: cache, transitioner: transitioner, logger: logger}
}

// GetByID loads a payment with its template summary, ledger and recent webhook logs.
func (s *PaymentQueryService) GetByID(ctx context.Context, actor Actor, paymentID string) (*models.Payment, error) {
	if !actor.authenticated() {
		return nil, ErrUnauthorized
	}

	var payment models.Payment
	err := s.db.WithContext(ctx).
		Preload("Template", func(db *gorm.DB) *gorm.DB {
			return db.Select("id", "title", "thumbnail_url", "price")
		}).
		Preload("Transactions", func(db *gorm.DB) *gorm.DB {
			return db.Order("created_at DESC").Order("id DESC")
		}).
		Preload("WebhookLogs", func(db *gorm.DB) *gorm.DB {
			return db.Order("created_at DESC").Order("id DESC").Limit(recentWebhookLogs)
		}).
		First(&payment, "id = ?", paymentID).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, ErrPaymentNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to load payment: %w", err)
	}

	if !actor.CanView(payment.UserID) {
		return nil, ErrForbidden
	}
	return &payment, nil
}

// ListForUser returns the actor's own payments. Pages are cached per user until the next write.
func (s *PaymentQueryService) ListForUser(ctx context.Context, actor Actor, query ListPaymentsQuery) (*PaymentPage, error) {
	if !actor.authenticated() {
		return nil, ErrUnauthorized
	}
	if verr := query.normalize(); verr != nil {
		return nil, verr
	}

	if s.cache == nil {
		return s.listFromDB(ctx, actor.UserID, query)
	}

	version, err := s.cache.Version(ctx, userPaymentsVersionKey(actor.UserID))
	if err != nil {
		s.logger.WarnContext(ctx, "Payment list cache unavailable", "user_id", actor.UserID, "error", err)
		return s.listFromDB(ctx, actor.UserID, query)
	}

	key := fmt.Sprintf("payments:user:%s:v%d:page=%d:limit=%d:status=%s:method=%s",
		actor.UserID, version, query.Page, query.Limit, query.Status, query.Method)
	page, err := GetOrSet(s.cache, ctx, key, paymentListCacheTTL, func() (*PaymentPage, error) {
		return s.listFromDB(ctx, actor.UserID, query)
	})
	if err != nil {
		return nil, err
	}
	return page, nil
}

func (s *PaymentQueryService) listFromDB(ctx context.Context, userID string, query ListPaymentsQuery) (*PaymentPage, error) {
	scope := s.db.WithContext(ctx).Model(&models.Payment{}).Where("user_id = ?", userID)
	if query.Status != "" {
		scope = scope.Where("status = ?", query.Status)
	}
	if query.Method != "" {
		scope = scope.Where("payment_method = ?", query.Method)
	}

	var total int64
	if err := scope.Session(&gorm.Session{}).Count(&total).Error; err != nil {
		return nil, fmt.Errorf("failed to count payments: %w", err)
	}

	list := make([]models.Payment, 0, query.Limit)
	err := scope.Session(&gorm.Session{}).
		Preload("Template", func(db *gorm.DB) *gorm.DB {
			return db.Select("id", "title", "thumbnail_url")
		}).
		Order("created_at DESC").
		Order("id DESC").
		Offset((query.Page - 1) * query.Limit).
		Limit(query.Limit).
		Find(&list).Error
	if err != nil {
		return nil, fmt.Errorf("failed to list payments: %w", err)
	}

	limit := int64(query.Limit)
	return &PaymentPage{
		Payments: list,
		Pagination: Pagination{
			Page:  query.Page,
			Limit: query.Limit,
			Total: total,
			Pages: (total + limit - 1) / limit,
		},
	}, nil
}

// UpdateStatus lets an operator correct a payment's status. Backward moves are rejected with ErrInvalidTransition.
func (s *PaymentQueryService) UpdateStatus(ctx context.Context, actor Actor, paymentID string, req UpdateStatusRequest) (*models.Payment, error) {
	if !actor.authenticated() || !actor.Admin {
		return nil, ErrUnauthorized
	}
	if verr := validateStruct(req); verr != nil {
		return nil, verr
	}
	if !req.Status.Valid() {
		return nil, NewValidationError("status", "unknown payment status")
	}

	result, err := s.transitioner.Apply(ctx, TransitionRequest{
		PaymentID: paymentID,
		To:        req.Status,
		Source:    SourceAdmin,
		Allowed:   models.PaymentStatus.CanAdminTransitionTo,
		Within: func(tx *gorm.DB, from models.PaymentStatus, payment *models.Payment) error {
			return recordAdminUpdate(tx, actor, from, payment, req.Notes)
		},
	})
	if err != nil {
		return nil, err
	}
	return &result.Payment, nil
}

func recordAdminUpdate(tx *gorm.DB, actor Actor, from models.PaymentStatus, payment *models.Payment, notes string) error {
	txType := models.TransactionTypeRefund
	if payment.Status == models.PaymentStatusCompleted {
		txType = models.TransactionTypePurchase
	}

	reason := notes
	if reason == "" {
		reason = manualUpdateFallback
	}

	err := tx.Create(&models.Transaction{
		PaymentID:   payment.ID,
		UserID:      payment.UserID,
		Type:        txType,
		Amount:      payment.Amount,
		Description: fmt.Sprintf("Status updated to %s - %s", payment.Status, reason),
	}).Error
	if err != nil {
		return err
	}

	return tx.Create(&models.ActivityLog{
		Type:        models.ActivityTypePaymentUpdated,
		Description: fmt.Sprintf("Payment %s updated to %s", payment.ID, payment.Status),
		UserID:      actor.UserID,
		Metadata: map[string]interface{}{
			"paymentId": payment.ID,
			"oldStatus": string(from),
			"newStatus": string(payment.Status),
			"notes":     notes,
		},
		IPAddress: actor.IPAddress,
		UserAgent: actor.UserAgent,
	}).Error
}
