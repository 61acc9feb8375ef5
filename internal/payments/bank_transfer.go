package payments

import (
	"context"

	"broadcastmotion_payments/internal/models"
)

// BankTransferProcessor hands out the merchant's receiving account
type BankTransferProcessor struct {
	bank BankAccount
}

func NewBankTransferProcessor(cfg MerchantConfig) *BankTransferProcessor {
	return &BankTransferProcessor{bank: cfg.Bank}
}

func (p *BankTransferProcessor) Process(ctx context.Context, payment models.Payment) (Result, error) {
	return Result{
		Status: models.PaymentStatusPending,
		Response: map[string]interface{}{
			"bankData": p.bank,
		},
	}, nil
}
