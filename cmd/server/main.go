package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"

	"broadcastmotion_payments/internal/app"
	"broadcastmotion_payments/internal/config"
	"broadcastmotion_payments/internal/handlers"
	"broadcastmotion_payments/internal/logging"
	"broadcastmotion_payments/internal/metrics"
	appMiddleware "broadcastmotion_payments/internal/middleware"
	"broadcastmotion_payments/internal/services"
)

func main() {
	cfg := config.MustLoad(".")

	logger, flush := logging.GetLogger(cfg.Logs)
	defer flush()

	metrics.Setup(cfg.Metrics, logger)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	a, err := app.New(cfg, logger)
	if err != nil {
		logger.Error("Failed to initialize application", "error", err)
		os.Exit(1)
	}
	defer a.Close()

	// Run auto-migration
	if err := services.AutoMigrate(a.DB, logger); err != nil {
		logger.Error("Failed to run database migrations", "error", err)
		os.Exit(1)
	}

	// Create Echo instance
	e := echo.New()
	e.HideBanner = true
	e.HTTPErrorHandler = appMiddleware.ErrorHandler(logger)

	// Middleware
	e.Use(middleware.RequestID())
	e.Use(middleware.Recover())
	e.Use(appMiddleware.RequestLogger(logger))

	verifier, firebase := a.Identity(ctx)
	deps := handlers.Dependencies{
		DB:             a.DB,
		Verifier:       verifier,
		Logger:         logger,
		Payments:       a.Payments,
		Queries:        a.Queries,
		Reconciliation: a.Reconciliation,
		Webhooks:       a.Webhooks,
	}
	if firebase != nil {
		deps.Sessions = firebase
	}
	handlers.RegisterRoutes(e, deps)

	go func() {
		logger.Info("Server starting", "port", cfg.Server.Port)
		if err := e.Start(":" + cfg.Server.Port); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Error("Server stopped", "error", err)
			stop()
		}
	}()

	<-ctx.Done()
	logger.Info("Shutting down server...")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := e.Shutdown(shutdownCtx); err != nil {
		logger.Error("Graceful shutdown failed", "error", err)
	}
}
