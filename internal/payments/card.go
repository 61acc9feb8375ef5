package payments

import (
	"context"
	"fmt"
	"time"

	"broadcastmotion_payments/internal/models"
)

// CardCheckout is a hosted checkout session opened at a card acquirer
type CardCheckout struct {
	ExternalID  string
	RedirectURL string
	// Extra is merged into the payer response.
	Extra map[string]interface{}
}

// CardAcquirer opens hosted checkout sessions for card payments
type CardAcquirer interface {
	CreateCheckout(ctx context.Context, payment models.Payment) (CardCheckout, error)
}

// CardProcessor hands card payments to an acquirer and waits for the payer in PROCESSING
type CardProcessor struct {
	acquirer CardAcquirer
}

func NewCardProcessor(acquirer CardAcquirer) *CardProcessor {
	return &CardProcessor{acquirer: acquirer}
}

func (p *CardProcessor) Process(ctx context.Context, payment models.Payment) (Result, error) {
	checkout, err := p.acquirer.CreateCheckout(ctx, payment)
	if err != nil {
		return Result{}, fmt.Errorf("failed to open card checkout: %w", err)
	}

	response := map[string]interface{}{
		"redirectUrl": checkout.RedirectURL,
	}
	for k, v := range checkout.Extra {
		response[k] = v
	}

	return Result{
		Status:     models.PaymentStatusProcessing,
		ExternalID: ptr(checkout.ExternalID),
		Response:   response,
	}, nil
}

// SimulatedAcquirer fabricates Mercado Pago style checkout references without a network call
type SimulatedAcquirer struct {
	checkoutURL string
	now         func() time.Time
}

func NewSimulatedAcquirer(cfg MerchantConfig) *SimulatedAcquirer {
	return &SimulatedAcquirer{checkoutURL: cfg.CardCheckoutURL, now: time.Now}
}

func (a *SimulatedAcquirer) CreateCheckout(ctx context.Context, payment models.Payment) (CardCheckout, error) {
	id := gatewayReference("MP", a.now())
	return CardCheckout{
		ExternalID:  id,
		RedirectURL: a.checkoutURL + id,
		Extra: map[string]interface{}{
			"mercadoPagoId": id,
		},
	}, nil
}
