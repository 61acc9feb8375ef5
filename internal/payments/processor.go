package payments

import (
	"context"
	"errors"
	"fmt"
	"math/rand"
	"time"

	"broadcastmotion_payments/internal/models"
)

// ErrUnsupportedMethod is returned for a payment method outside the supported set
var ErrUnsupportedMethod = errors.New("unsupported payment method")

// Result is what a processor produced for a freshly created payment.
// Pointer fields left nil keep the payment's current value.
type Result struct {
	Status          models.PaymentStatus
	ExternalID      *string
	PixKey          *string
	PixQrCode       *string
	PixQrCodeBase64 *string
	BoletoBarcode   *string
	BoletoURL       *string
	DueDate         *time.Time

	// Response holds the method-specific fields returned to the payer next to the payment.
	Response map[string]interface{}
}

// Apply merges the result into the payment.
func (r Result) Apply(p *models.Payment) {
	if r.Status != "" {
		p.Status = r.Status
	}
	if r.ExternalID != nil {
		p.ExternalID = r.ExternalID
	}
	if r.PixKey != nil {
		p.PixKey = r.PixKey
	}
	if r.PixQrCode != nil {
		p.PixQrCode = r.PixQrCode
	}
	if r.PixQrCodeBase64 != nil {
		p.PixQrCodeBase64 = r.PixQrCodeBase64
	}
	if r.BoletoBarcode != nil {
		p.BoletoBarcode = r.BoletoBarcode
	}
	if r.BoletoURL != nil {
		p.BoletoURL = r.BoletoURL
	}
	if r.DueDate != nil {
		p.DueDate = r.DueDate
	}
}

// Processor turns a persisted payment into method-specific artifacts
type Processor interface {
	Process(ctx context.Context, payment models.Payment) (Result, error)
}

// Dispatcher selects the processor registered for a payment's method
type Dispatcher struct {
	processors map[models.PaymentMethod]Processor
}

// NewDispatcher wires the standard processors for every supported method.
func NewDispatcher(cfg MerchantConfig, acquirer CardAcquirer) *Dispatcher {
	card := NewCardProcessor(acquirer)
	return &Dispatcher{
		processors: map[models.PaymentMethod]Processor{
			models.PaymentMethodPix:          NewPixProcessor(cfg),
			models.PaymentMethodCreditCard:   card,
			models.PaymentMethodDebitCard:    card,
			models.PaymentMethodBoleto:       NewBoletoProcessor(cfg),
			models.PaymentMethodBankTransfer: NewBankTransferProcessor(cfg),
		},
	}
}

// Register replaces the processor used for method.
func (d *Dispatcher) Register(method models.PaymentMethod, p Processor) {
	d.processors[method] = p
}

// Process runs the processor for payment.PaymentMethod.
func (d *Dispatcher) Process(ctx context.Context, payment models.Payment) (Result, error) {
	p, ok := d.processors[payment.PaymentMethod]
	if !ok {
		return Result{}, fmt.Errorf("%w: %s", ErrUnsupportedMethod, payment.PaymentMethod)
	}
	return p.Process(ctx, payment)
}

const referenceAlphabet = "0123456789abcdefghijklmnopqrstuvwxyz"

// gatewayReference builds a gateway-style id: PREFIX_{unixMillis}_{9 base36 chars}.
func gatewayReference(prefix string, now time.Time) string {
	suffix := make([]byte, 9)
	for i := range suffix {
		suffix[i] = referenceAlphabet[rand.Intn(len(referenceAlphabet))]
	}
	return fmt.Sprintf("%s_%d_%s", prefix, now.UnixMilli(), suffix)
}

func ptr[T any](v T) *T {
	return &v
}
