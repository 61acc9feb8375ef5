package services

import (
	"context"
	"errors"
	"log/slog"
	"net/http"

	"github.com/segmentio/kafka-go"

	"broadcastmotion_payments/internal/payments"
)

// ProviderHeader names the gateway that produced a relayed notification.
const ProviderHeader = "provider"

// MessageReader is the subset of *kafka.Reader used for consuming
type MessageReader interface {
	FetchMessage(ctx context.Context) (kafka.Message, error)
	CommitMessages(ctx context.Context, msgs ...kafka.Message) error
}

// NotificationConsumer feeds gateway notifications relayed through Kafka into the WebhookService
type NotificationConsumer struct {
	reader   MessageReader
	webhooks *WebhookService
	logger   *slog.Logger
}

func NewNotificationConsumer(reader MessageReader, webhooks *WebhookService, logger *slog.Logger) *NotificationConsumer {
	return &NotificationConsumer{reader: reader, webhooks: webhooks, logger: logger}
}

// Run consumes until ctx is cancelled or the reader fails.
func (c *NotificationConsumer) Run(ctx context.Context) error {
	for {
		msg, err := c.reader.FetchMessage(ctx)
		if err != nil {
			if ctx.Err() != nil {
				return nil
			}
			return err
		}

		if err := c.handle(ctx, msg); err != nil {
			// left uncommitted so the message is redelivered
			c.logger.ErrorContext(ctx, "Failed to apply gateway notification",
				"topic", msg.Topic,
				"partition", msg.Partition,
				"offset", msg.Offset,
				"error", err,
			)
			continue
		}

		if err := c.reader.CommitMessages(ctx, msg); err != nil {
			c.logger.ErrorContext(ctx, "Failed to commit notification offset", "offset", msg.Offset, "error", err)
		}
	}
}

// handle returns an error only for failures worth redelivering.
func (c *NotificationConsumer) handle(ctx context.Context, msg kafka.Message) error {
	header := http.Header{}
	provider := ""
	for _, h := range msg.Headers {
		if h.Key == ProviderHeader {
			provider = string(h.Value)
			continue
		}
		header.Add(h.Key, string(h.Value))
	}

	outcome, err := c.webhooks.Handle(ctx, provider, header, msg.Value)
	switch {
	case err == nil:
		c.logger.DebugContext(ctx, "Gateway notification consumed", "payment_id", outcome.PaymentID, "result", outcome.Result)
		return nil
	case errors.Is(err, ErrUnknownProvider),
		errors.Is(err, ErrPaymentNotFound),
		errors.Is(err, payments.ErrInvalidSignature),
		errors.Is(err, payments.ErrMalformedNotification):
		c.logger.WarnContext(ctx, "Dropping gateway notification", "provider", provider, "offset", msg.Offset, "error", err)
		return nil
	default:
		return err
	}
}
