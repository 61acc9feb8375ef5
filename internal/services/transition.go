package services

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"broadcastmotion_payments/internal/metrics"
	"broadcastmotion_payments/internal/models"
)

// TransitionSource names what triggered a status change
type TransitionSource string

const (
	SourceExpiry    TransitionSource = "expiry"
	SourceReconcile TransitionSource = "reconcile"
	SourceWebhook   TransitionSource = "webhook"
	SourceAdmin     TransitionSource = "admin"
)

// TransitionRequest asks for one payment to move to a new status
type TransitionRequest struct {
	PaymentID string
	To        models.PaymentStatus
	Source    TransitionSource
	// Allowed overrides the lifecycle rule, e.g. for operator corrections.
	Allowed func(from, to models.PaymentStatus) bool
	// Within runs inside the same database transaction after the status write.
	Within func(tx *gorm.DB, from models.PaymentStatus, payment *models.Payment) error
}

// TransitionResult reports the committed state of the payment
type TransitionResult struct {
	Payment models.Payment
	From    models.PaymentStatus
}

// Transitioner serializes status changes per payment and fans out their side effects
type Transitioner struct {
	db     *gorm.DB
	cache  *RedisCache
	events EventPublisher
	logger *slog.Logger
	now    func() time.Time
}

func NewTransitioner(db *gorm.DB, cache *RedisCache, events EventPublisher, logger *slog.Logger) *Transitioner {
	if events == nil {
		events = NoopPublisher{}
	}
	return &Transitioner{db: db, cache: cache, events: events, logger: logger, now: time.Now}
}

// Apply locks the payment row, checks the transition, writes it and runs req.Within.
// ErrInvalidTransition is returned when the rule rejects the move, including a move to the current status.
// Lifecycle transitions of a PENDING payment past its expiration may only go to EXPIRED.
func (t *Transitioner) Apply(ctx context.Context, req TransitionRequest) (TransitionResult, error) {
	var result TransitionResult
	now := t.now()

	allowed := req.Allowed
	lifecycle := allowed == nil
	if lifecycle {
		allowed = models.PaymentStatus.CanTransitionTo
	}

	err := t.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var payment models.Payment
		err := tx.Clauses(clause.Locking{Strength: "UPDATE"}).First(&payment, "id = ?", req.PaymentID).Error
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return ErrPaymentNotFound
		}
		if err != nil {
			return err
		}

		result.From = payment.Status
		result.Payment = payment

		if !allowed(payment.Status, req.To) {
			return fmt.Errorf("%w: %s -> %s", ErrInvalidTransition, payment.Status, req.To)
		}
		if lifecycle && req.To != models.PaymentStatusExpired && payment.Expired(now) {
			return fmt.Errorf("%w: payment expired at %s", ErrInvalidTransition, payment.ExpiresAt.Format(time.RFC3339))
		}

		updates := map[string]interface{}{
			"status":     req.To,
			"updated_at": now,
		}
		if req.To == models.PaymentStatusCompleted && payment.PaidAt == nil {
			updates["paid_at"] = now
			payment.PaidAt = &now
		}

		res := tx.Model(&models.Payment{}).
			Where("id = ? AND status = ?", payment.ID, payment.Status).
			Updates(updates)
		if res.Error != nil {
			return res.Error
		}
		if res.RowsAffected == 0 {
			return fmt.Errorf("%w: payment changed concurrently", ErrInvalidTransition)
		}

		payment.Status = req.To
		payment.UpdatedAt = now

		if req.Within != nil {
			if err := req.Within(tx, result.From, &payment); err != nil {
				return err
			}
		}

		result.Payment = payment
		return nil
	})
	if err != nil {
		return result, err
	}

	t.afterCommit(ctx, result, req.Source)
	return result, nil
}

func (t *Transitioner) afterCommit(ctx context.Context, result TransitionResult, source TransitionSource) {
	p := result.Payment

	metrics.Transition(string(result.From), string(p.Status), string(source))
	t.logger.InfoContext(ctx, "Payment status changed",
		"payment_id", p.ID,
		"from", result.From,
		"to", p.Status,
		"source", source,
	)

	event := StatusChangedEvent{
		Type:          EventPaymentStatusChanged,
		PaymentID:     p.ID,
		UserID:        p.UserID,
		PaymentMethod: p.PaymentMethod,
		From:          result.From,
		To:            p.Status,
		Source:        source,
		PaidAt:        p.PaidAt,
		OccurredAt:    p.UpdatedAt,
	}
	if err := t.events.PublishStatusChanged(ctx, event); err != nil {
		t.logger.ErrorContext(ctx, "Failed to publish status change", "payment_id", p.ID, "error", err)
	}

	invalidateUserPayments(ctx, t.cache, t.logger, p.UserID)
}

// userPaymentsVersionKey counts writes to a user's payments; list cache keys embed it.
func userPaymentsVersionKey(userID string) string {
	return "payments:user:" + userID + ":version"
}

func invalidateUserPayments(ctx context.Context, cache *RedisCache, logger *slog.Logger, userID string) {
	if cache == nil {
		return
	}
	if _, err := cache.Increment(ctx, userPaymentsVersionKey(userID)); err != nil {
		logger.WarnContext(ctx, "Failed to invalidate payment list cache", "user_id", userID, "error", err)
	}
}
