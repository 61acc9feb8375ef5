package payments

import (
	"context"
	"fmt"
	"time"

	"github.com/shopspring/decimal"

	"broadcastmotion_payments/internal/models"
)

var hundred = decimal.NewFromInt(100)

// BoletoBarcode derives the slip barcode from the amount and due date:
// 00190000090 + amount in cents padded to 10 digits + due date in unix seconds.
func BoletoBarcode(amount decimal.Decimal, dueDate time.Time) string {
	cents := amount.Mul(hundred).Round(0).IntPart()
	return fmt.Sprintf("00190000090%010d%d", cents, dueDate.Unix())
}

// BoletoProcessor issues bank slips due when the payment expires
type BoletoProcessor struct {
	cfg MerchantConfig
	now func() time.Time
}

func NewBoletoProcessor(cfg MerchantConfig) *BoletoProcessor {
	return &BoletoProcessor{cfg: cfg, now: time.Now}
}

func (p *BoletoProcessor) Process(ctx context.Context, payment models.Payment) (Result, error) {
	dueDate := payment.CreatedAt.Add(BoletoExpiration)
	if payment.ExpiresAt != nil {
		dueDate = *payment.ExpiresAt
	}

	boletoID := gatewayReference("BB", p.now())
	barcode := BoletoBarcode(payment.Amount, dueDate)
	url := p.cfg.BoletoDocumentURL + boletoID + ".pdf"

	return Result{
		Status:        models.PaymentStatusPending,
		ExternalID:    ptr(boletoID),
		BoletoBarcode: ptr(barcode),
		BoletoURL:     ptr(url),
		DueDate:       ptr(dueDate),
		Response: map[string]interface{}{
			"boletoUrl":     url,
			"boletoBarcode": barcode,
			"dueDate":       dueDate,
		},
	}, nil
}
