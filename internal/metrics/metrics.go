package metrics

import (
	"fmt"
	"log/slog"

	"github.com/VictoriaMetrics/metrics"
	"github.com/labstack/echo/v4"

	"broadcastmotion_payments/internal/config"
)

// Setup starts pushing metrics when a push URL is configured.
func Setup(cfg config.Metrics, logger *slog.Logger) {
	if cfg.URL == "" {
		return
	}

	if err := metrics.InitPush(cfg.URL, cfg.Interval, cfg.CommonLabels, true); err != nil {
		logger.Error("Error initializing metrics push", "error", err)
	}
}

// Handler exposes all registered metrics in Prometheus text format.
func Handler(c echo.Context) error {
	c.Response().Header().Set(echo.HeaderContentType, "text/plain; version=0.0.4")
	metrics.WritePrometheus(c.Response(), true)
	return nil
}

var reconcileErrors = metrics.NewCounter(`payments_reconcile_errors_total`)

// PaymentCreated counts a created payment for method.
func PaymentCreated(method string) {
	metrics.GetOrCreateCounter(fmt.Sprintf(`payments_created_total{method=%q}`, method)).Inc()
}

// Transition counts a committed status change; source is reconcile, webhook, admin or expiry.
func Transition(from, to, source string) {
	metrics.GetOrCreateCounter(fmt.Sprintf(`payments_transitions_total{from=%q,to=%q,source=%q}`, from, to, source)).Inc()
}

// ReconcileError counts a failed external status check.
func ReconcileError() {
	reconcileErrors.Inc()
}

// Webhook counts a received gateway notification by outcome.
func Webhook(provider, result string) {
	metrics.GetOrCreateCounter(fmt.Sprintf(`payments_webhooks_total{provider=%q,result=%q}`, provider, result)).Inc()
}
