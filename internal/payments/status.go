package payments

import (
	"context"
	"math/rand"

	"broadcastmotion_payments/internal/models"
)

// StatusChecker queries the authoritative gateway status of an open payment.
// Returning the payment's current status means nothing changed.
type StatusChecker interface {
	CheckStatus(ctx context.Context, payment models.Payment) (models.PaymentStatus, error)
}

// StatusCheckerFunc adapts a function to StatusChecker
type StatusCheckerFunc func(ctx context.Context, payment models.Payment) (models.PaymentStatus, error)

func (f StatusCheckerFunc) CheckStatus(ctx context.Context, payment models.Payment) (models.PaymentStatus, error) {
	return f(ctx, payment)
}

const (
	simulatedCompletedOdds = 0.10
	simulatedFailedOdds    = 0.05
)

// SimulatedStatusChecker stands in for a gateway query with a weighted random outcome:
// about 10% COMPLETED, 5% FAILED, otherwise unchanged.
type SimulatedStatusChecker struct {
	roll func() float64
}

func NewSimulatedStatusChecker() *SimulatedStatusChecker {
	return &SimulatedStatusChecker{roll: rand.Float64}
}

// NewSimulatedStatusCheckerWithRoll uses roll, which must return values in [0, 1).
func NewSimulatedStatusCheckerWithRoll(roll func() float64) *SimulatedStatusChecker {
	return &SimulatedStatusChecker{roll: roll}
}

func (c *SimulatedStatusChecker) CheckStatus(ctx context.Context, payment models.Payment) (models.PaymentStatus, error) {
	r := c.roll()
	switch {
	case r < simulatedCompletedOdds:
		return models.PaymentStatusCompleted, nil
	case r < simulatedCompletedOdds+simulatedFailedOdds:
		return models.PaymentStatusFailed, nil
	default:
		return payment.Status, nil
	}
}

// MethodStatusRouter sends each payment to the checker registered for its method
type MethodStatusRouter struct {
	fallback StatusChecker
	byMethod map[models.PaymentMethod]StatusChecker
}

func NewMethodStatusRouter(fallback StatusChecker) *MethodStatusRouter {
	return &MethodStatusRouter{
		fallback: fallback,
		byMethod: make(map[models.PaymentMethod]StatusChecker),
	}
}

// Route registers checker for the given methods and returns the router for chaining.
func (r *MethodStatusRouter) Route(checker StatusChecker, methods ...models.PaymentMethod) *MethodStatusRouter {
	for _, m := range methods {
		r.byMethod[m] = checker
	}
	return r
}

func (r *MethodStatusRouter) CheckStatus(ctx context.Context, payment models.Payment) (models.PaymentStatus, error) {
	if checker, ok := r.byMethod[payment.PaymentMethod]; ok {
		return checker.CheckStatus(ctx, payment)
	}
	return r.fallback.CheckStatus(ctx, payment)
}
