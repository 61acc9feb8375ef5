package services

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/http"

	"gorm.io/gorm"

	"broadcastmotion_payments/internal/metrics"
	"broadcastmotion_payments/internal/models"
	"broadcastmotion_payments/internal/payments"
)

var ErrUnknownProvider = errors.New("unknown payment provider")

// WebhookOutcome is what happened to a received notification
type WebhookOutcome struct {
	Result    models.WebhookResult `json:"result"`
	PaymentID string               `json:"paymentId,omitempty"`
	Status    models.PaymentStatus `json:"status,omitempty"`
}

// WebhookService applies gateway notifications through the same transition rules as reconciliation
type WebhookService struct {
	db           *gorm.DB
	parsers      map[string]payments.WebhookParser
	transitioner *Transitioner
	logger       *slog.Logger
}

func NewWebhookService(db *gorm.DB, transitioner *Transitioner, logger *slog.Logger, parsers ...payments.WebhookParser) *WebhookService {
	byProvider := make(map[string]payments.WebhookParser, len(parsers))
	for _, p := range parsers {
		byProvider[string(p.Provider())] = p
	}
	return &WebhookService{db: db, parsers: byProvider, transitioner: transitioner, logger: logger}
}

// Handle authenticates, records and applies one notification.
// Replays and backward moves are acknowledged as ignored.
func (s *WebhookService) Handle(ctx context.Context, provider string, header http.Header, body []byte) (*WebhookOutcome, error) {
	parser, ok := s.parsers[provider]
	if !ok {
		return nil, ErrUnknownProvider
	}
	gateway := parser.Provider()

	notification, err := parser.Parse(header, body)
	if err != nil {
		s.record(ctx, gateway, nil, "", models.WebhookResultRejected, err.Error(), body)
		return nil, err
	}

	payment, err := s.resolve(ctx, notification)
	if errors.Is(err, ErrPaymentNotFound) {
		s.record(ctx, gateway, nil, notification.RawStatus, models.WebhookResultNotFound, "no payment matches notification", body)
		return nil, err
	}
	if err != nil {
		return nil, err
	}

	outcome := &WebhookOutcome{PaymentID: payment.ID, Status: payment.Status, Result: models.WebhookResultIgnored}
	message := "status unchanged"

	if notification.Status != payment.Status {
		result, err := s.transitioner.Apply(ctx, TransitionRequest{
			PaymentID: payment.ID,
			To:        notification.Status,
			Source:    SourceWebhook,
			Within:    recordConfirmation,
		})
		switch {
		case errors.Is(err, ErrInvalidTransition):
			message = err.Error()
			outcome.Status = result.Payment.Status
		case err != nil:
			return nil, fmt.Errorf("failed to apply webhook for payment %s: %w", payment.ID, err)
		default:
			message = fmt.Sprintf("%s -> %s", result.From, result.Payment.Status)
			outcome.Result = models.WebhookResultApplied
			outcome.Status = result.Payment.Status
		}
	}

	s.record(ctx, gateway, &payment.ID, notification.RawStatus, outcome.Result, message, body)
	return outcome, nil
}

func (s *WebhookService) resolve(ctx context.Context, n payments.Notification) (models.Payment, error) {
	var payment models.Payment
	db := s.db.WithContext(ctx)

	if n.PaymentRef != "" {
		err := db.First(&payment, "id = ?", n.PaymentRef).Error
		if err == nil {
			return payment, nil
		}
		if !errors.Is(err, gorm.ErrRecordNotFound) {
			return payment, err
		}
	}
	if n.ExternalID != "" {
		err := db.First(&payment, "external_id = ?", n.ExternalID).Error
		if err == nil {
			return payment, nil
		}
		if !errors.Is(err, gorm.ErrRecordNotFound) {
			return payment, err
		}
	}
	return payment, ErrPaymentNotFound
}

func (s *WebhookService) record(ctx context.Context, gateway models.PaymentGateway, paymentID *string, eventStatus string, result models.WebhookResult, message string, body []byte) {
	metrics.Webhook(string(gateway), string(result))

	entry := models.WebhookLog{
		PaymentID:      paymentID,
		PaymentGateway: gateway,
		EventStatus:    eventStatus,
		Result:         result,
		Message:        message,
		Payload:        payloadJSON(body),
	}
	if err := s.db.WithContext(ctx).Create(&entry).Error; err != nil {
		s.logger.ErrorContext(ctx, "Failed to store webhook log", "provider", gateway, "error", err)
	}

	id := ""
	if paymentID != nil {
		id = *paymentID
	}
	s.logger.InfoContext(ctx, "Webhook received",
		"provider", gateway,
		"payment_id", id,
		"result", result,
		"message", message,
	)
}

// payloadJSON keeps valid JSON bodies as-is and stores anything else as a JSON string.
func payloadJSON(body []byte) []byte {
	if json.Valid(body) {
		return body
	}
	quoted, _ := json.Marshal(string(body))
	return quoted
}
