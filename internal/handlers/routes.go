package handlers

import (
	"log/slog"

	"github.com/labstack/echo/v4"
	"gorm.io/gorm"

	"broadcastmotion_payments/internal/metrics"
	"broadcastmotion_payments/internal/middleware"
	"broadcastmotion_payments/internal/services"
)

// Dependencies bundles everything the HTTP surface needs
type Dependencies struct {
	DB             *gorm.DB
	Verifier       services.TokenVerifier
	Sessions       SessionIssuer
	Logger         *slog.Logger
	Payments       *services.PaymentService
	Queries        *services.PaymentQueryService
	Reconciliation *services.ReconciliationService
	Webhooks       *services.WebhookService
}

// RegisterRoutes mounts the payment API, webhooks, health and metrics on e.
func RegisterRoutes(e *echo.Echo, deps Dependencies) {
	paymentHandler := NewPaymentHandler(deps.Payments, deps.Queries, deps.Reconciliation)
	webhookHandler := NewWebhookHandler(deps.Webhooks)
	healthHandler := NewHealthHandler(deps.DB)
	authHandler := NewAuthHandler(deps.Sessions)

	// Public routes
	e.GET("/healthz", healthHandler.Healthz)
	e.GET("/metrics", metrics.Handler)
	e.POST("/webhooks/:provider", webhookHandler.Receive)
	e.GET("/payments/:id/status", paymentHandler.CheckStatus)
	e.POST("/auth/login", authHandler.HandleLogin)
	e.POST("/auth/logout", authHandler.HandleLogout)

	// Protected routes
	protected := e.Group("/payments")
	protected.Use(middleware.RequireAuth(deps.Verifier, deps.DB, deps.Logger))

	protected.POST("", paymentHandler.CreatePayment)
	protected.GET("", paymentHandler.ListPayments)
	protected.GET("/:id", paymentHandler.GetPayment)
	protected.PATCH("/:id", paymentHandler.UpdatePaymentStatus)
}
