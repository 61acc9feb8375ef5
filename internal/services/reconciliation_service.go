package services

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"broadcastmotion_payments/internal/metrics"
	"broadcastmotion_payments/internal/models"
	"broadcastmotion_payments/internal/payments"
)

const reconcileLockTTL = 10 * time.Second

// StatusView is the polling response for a payment
type StatusView struct {
	ID        string               `json:"id"`
	Status    models.PaymentStatus `json:"status"`
	PaidAt    *time.Time           `json:"paidAt"`
	ExpiresAt *time.Time           `json:"expiresAt"`
}

// ReconcileSummary counts the outcome of a sweep over open payments
type ReconcileSummary struct {
	Checked int `json:"checked"`
	Changed int `json:"changed"`
	Failed  int `json:"failed"`
}

// ReconciliationService brings local payment status in line with the gateways
type ReconciliationService struct {
	db           *gorm.DB
	cache        *RedisCache
	checker      payments.StatusChecker
	transitioner *Transitioner
	logger       *slog.Logger
	now          func() time.Time
}

func NewReconciliationService(db *gorm.DB, cache *RedisCache, checker payments.StatusChecker, transitioner *Transitioner, logger *slog.Logger) *ReconciliationService {
	return &ReconciliationService{
		db:           db,
		cache:        cache,
		checker:      checker,
		transitioner: transitioner,
		logger:       logger,
		now:          time.Now,
	}
}

// Reconcile expires stale PENDING payments, then asks the gateway about any payment still open.
// A failing gateway check leaves the payment untouched and still reports its current status.
func (s *ReconciliationService) Reconcile(ctx context.Context, paymentID string) (*StatusView, error) {
	payment, err := s.load(ctx, paymentID)
	if err != nil {
		return nil, err
	}

	if payment.Expired(s.now()) {
		payment, err = s.transition(ctx, payment, models.PaymentStatusExpired, SourceExpiry)
		if err != nil {
			return nil, err
		}
	}

	if payment.Status.IsOpen() {
		payment, err = s.checkExternal(ctx, payment)
		if err != nil {
			return nil, err
		}
	}

	return &StatusView{
		ID:        payment.ID,
		Status:    payment.Status,
		PaidAt:    payment.PaidAt,
		ExpiresAt: payment.ExpiresAt,
	}, nil
}

// ReconcileOpen reconciles up to limit open payments, oldest first.
func (s *ReconciliationService) ReconcileOpen(ctx context.Context, limit int) (ReconcileSummary, error) {
	var summary ReconcileSummary

	var open []models.Payment
	err := s.db.WithContext(ctx).
		Select("id", "status").
		Where("status IN ?", []models.PaymentStatus{models.PaymentStatusPending, models.PaymentStatusProcessing}).
		Order("created_at ASC").
		Limit(limit).
		Find(&open).Error
	if err != nil {
		return summary, fmt.Errorf("failed to list open payments: %w", err)
	}

	for _, p := range open {
		if ctx.Err() != nil {
			return summary, ctx.Err()
		}

		summary.Checked++
		view, err := s.Reconcile(ctx, p.ID)
		if err != nil {
			summary.Failed++
			s.logger.ErrorContext(ctx, "Failed to reconcile payment", "payment_id", p.ID, "error", err)
			continue
		}
		if view.Status != p.Status {
			summary.Changed++
		}
	}

	return summary, nil
}

func (s *ReconciliationService) load(ctx context.Context, paymentID string) (models.Payment, error) {
	var payment models.Payment
	err := s.db.WithContext(ctx).First(&payment, "id = ?", paymentID).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return payment, ErrPaymentNotFound
	}
	if err != nil {
		return payment, fmt.Errorf("failed to load payment: %w", err)
	}
	return payment, nil
}

func (s *ReconciliationService) checkExternal(ctx context.Context, payment models.Payment) (models.Payment, error) {
	if s.cache != nil {
		lockKey := "lock:payment:" + payment.ID
		token := uuid.NewString()
		acquired, err := s.cache.SetNX(ctx, lockKey, token, reconcileLockTTL)
		switch {
		case err != nil:
			s.logger.WarnContext(ctx, "Reconcile lock unavailable, checking without it", "payment_id", payment.ID, "error", err)
		case !acquired:
			return payment, nil
		default:
			defer func() {
				if _, err := s.cache.Release(context.WithoutCancel(ctx), lockKey, token); err != nil {
					s.logger.WarnContext(ctx, "Failed to release reconcile lock", "payment_id", payment.ID, "error", err)
				}
			}()
		}
	}

	status, err := s.checker.CheckStatus(ctx, payment)
	if err != nil {
		metrics.ReconcileError()
		s.logger.WarnContext(ctx, "External status check failed", "payment_id", payment.ID, "error", err)
		return payment, nil
	}
	if status == payment.Status {
		return payment, nil
	}

	return s.transition(ctx, payment, status, SourceReconcile)
}

// transition applies a lifecycle move; a rejected move returns the freshly committed payment instead.
func (s *ReconciliationService) transition(ctx context.Context, payment models.Payment, to models.PaymentStatus, source TransitionSource) (models.Payment, error) {
	result, err := s.transitioner.Apply(ctx, TransitionRequest{
		PaymentID: payment.ID,
		To:        to,
		Source:    source,
		Within:    recordConfirmation,
	})
	if errors.Is(err, ErrInvalidTransition) {
		s.logger.DebugContext(ctx, "Status transition skipped", "payment_id", payment.ID, "to", to, "reason", err)
		return s.load(ctx, payment.ID)
	}
	if err != nil {
		return payment, fmt.Errorf("failed to move payment %s to %s: %w", payment.ID, to, err)
	}
	return result.Payment, nil
}

// recordConfirmation appends the ledger entry for a gateway-confirmed payment.
func recordConfirmation(tx *gorm.DB, from models.PaymentStatus, payment *models.Payment) error {
	if payment.Status != models.PaymentStatusCompleted {
		return nil
	}
	return tx.Create(&models.Transaction{
		PaymentID:   payment.ID,
		UserID:      payment.UserID,
		Type:        models.TransactionTypePurchase,
		Amount:      payment.Amount,
		Description: "Payment confirmed",
	}).Error
}
