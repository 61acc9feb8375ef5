package services

import (
	"context"
	"encoding/json"
	"strings"
	"time"

	"github.com/segmentio/kafka-go"

	"broadcastmotion_payments/internal/models"
)

const EventPaymentStatusChanged = "payment.status_changed"

// StatusChangedEvent is published after a payment status change commits
type StatusChangedEvent struct {
	Type          string               `json:"type"`
	PaymentID     string               `json:"paymentId"`
	UserID        string               `json:"userId"`
	PaymentMethod models.PaymentMethod `json:"paymentMethod"`
	From          models.PaymentStatus `json:"from"`
	To            models.PaymentStatus `json:"to"`
	Source        TransitionSource     `json:"source"`
	PaidAt        *time.Time           `json:"paidAt,omitempty"`
	OccurredAt    time.Time            `json:"occurredAt"`
}

// EventPublisher delivers payment events to downstream consumers
type EventPublisher interface {
	PublishStatusChanged(ctx context.Context, event StatusChangedEvent) error
}

// MessageWriter is the subset of *kafka.Writer used for publishing
type MessageWriter interface {
	WriteMessages(ctx context.Context, msgs ...kafka.Message) error
}

// KafkaPublisher writes events keyed by payment id so one payment's events stay ordered
type KafkaPublisher struct {
	writer MessageWriter
}

func NewKafkaPublisher(writer MessageWriter) *KafkaPublisher {
	return &KafkaPublisher{writer: writer}
}

// NewKafkaWriter builds a synchronous writer for topic.
func NewKafkaWriter(brokers, topic string) *kafka.Writer {
	return &kafka.Writer{
		Addr:                   kafka.TCP(strings.Split(brokers, ",")...),
		Topic:                  topic,
		Balancer:               &kafka.ReferenceHash{},
		RequiredAcks:           kafka.RequireAll,
		BatchTimeout:           10 * time.Millisecond,
		Async:                  false,
		AllowAutoTopicCreation: false,
	}
}

// NewKafkaReader builds a consumer-group reader for topic.
func NewKafkaReader(brokers, topic, groupID string) *kafka.Reader {
	return kafka.NewReader(kafka.ReaderConfig{
		Brokers: strings.Split(brokers, ","),
		GroupID: groupID,
		Topic:   topic,
	})
}

func (p *KafkaPublisher) PublishStatusChanged(ctx context.Context, event StatusChangedEvent) error {
	value, err := json.Marshal(event)
	if err != nil {
		return err
	}
	return p.writer.WriteMessages(ctx, kafka.Message{
		Key:   []byte(event.PaymentID),
		Value: value,
		Headers: []kafka.Header{
			{Key: "type", Value: []byte(event.Type)},
		},
	})
}

// NoopPublisher drops events; used when no broker is configured
type NoopPublisher struct{}

func (NoopPublisher) PublishStatusChanged(ctx context.Context, event StatusChangedEvent) error {
	return nil
}
