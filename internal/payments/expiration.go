package payments

import (
	"time"

	"broadcastmotion_payments/internal/models"
)

const (
	PixExpiration     = 30 * time.Minute
	BoletoExpiration  = 3 * 24 * time.Hour
	DefaultExpiration = 24 * time.Hour
)

// ExpirationFor returns how long a payment of the given method stays payable.
func ExpirationFor(method models.PaymentMethod) time.Duration {
	switch method {
	case models.PaymentMethodPix:
		return PixExpiration
	case models.PaymentMethodBoleto:
		return BoletoExpiration
	default:
		return DefaultExpiration
	}
}

// ComputeExpiration returns the instant after which an unpaid payment expires.
func ComputeExpiration(method models.PaymentMethod, now time.Time) time.Time {
	return now.Add(ExpirationFor(method))
}
