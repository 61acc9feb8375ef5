package payments

import (
	"github.com/shopspring/decimal"

	"broadcastmotion_payments/internal/models"
)

var (
	cardFeeRate  = decimal.RequireFromString("0.0399")
	cardFeeFixed = decimal.RequireFromString("0.39")
	boletoFee    = decimal.RequireFromString("2.99")
)

// Fees is the split of a payment amount between processor and seller
type Fees struct {
	FeeAmount decimal.Decimal
	NetAmount decimal.Decimal
}

// ComputeFees returns the processing fee and the seller's net amount, both at cent precision.
// The net is derived from the rounded fee so that FeeAmount + NetAmount always equals the rounded amount.
func ComputeFees(amount decimal.Decimal, method models.PaymentMethod) (Fees, error) {
	var fee decimal.Decimal
	switch method {
	case models.PaymentMethodCreditCard, models.PaymentMethodDebitCard:
		fee = amount.Mul(cardFeeRate).Add(cardFeeFixed)
	case models.PaymentMethodBoleto:
		fee = boletoFee
	case models.PaymentMethodPix, models.PaymentMethodBankTransfer:
		fee = decimal.Zero
	default:
		return Fees{}, ErrUnsupportedMethod
	}

	fee = fee.Round(2)
	return Fees{
		FeeAmount: fee,
		NetAmount: amount.Round(2).Sub(fee),
	}, nil
}
