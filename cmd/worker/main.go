package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"
	"time"

	"broadcastmotion_payments/internal/app"
	"broadcastmotion_payments/internal/config"
	"broadcastmotion_payments/internal/logging"
	"broadcastmotion_payments/internal/metrics"
	"broadcastmotion_payments/internal/services"
	"broadcastmotion_payments/internal/tasks"
)

func main() {
	cfg := config.MustLoad(".")

	logger, flush := logging.GetLogger(cfg.Logs)
	defer flush()
	logger = logger.With("component", "worker")

	metrics.Setup(cfg.Metrics, logger)

	// Create context that cancels on interrupt
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	a, err := app.New(cfg, logger)
	if err != nil {
		logger.Error("Failed to initialize application", "error", err)
		os.Exit(1)
	}
	defer a.Close()

	if err := services.AutoMigrate(a.DB, logger); err != nil {
		logger.Error("Failed to run database migrations", "error", err)
		os.Exit(1)
	}

	// Initialize Task Registry
	registry := tasks.NewRegistry()
	registry.RegisterTask(tasks.NewReconcileOpenPaymentsTask(a.Reconciliation))
	runner := tasks.NewRunner(a.DB, registry, logger)

	if _, err := tasks.EnsureReconcileSweep(ctx, a.DB, tasks.DefaultReconcileRule, 100, time.Now()); err != nil {
		logger.Error("Failed to schedule reconcile sweep", "error", err)
	}

	if cfg.Kafka.Brokers != "" {
		reader := services.NewKafkaReader(cfg.Kafka.Brokers, cfg.Kafka.NotificationTopic, cfg.Kafka.GroupID)
		defer reader.Close()

		consumer := services.NewNotificationConsumer(reader, a.Webhooks, logger)
		go func() {
			logger.Info("Consuming gateway notifications", "topic", cfg.Kafka.NotificationTopic)
			if err := consumer.Run(ctx); err != nil {
				logger.Error("Notification consumer stopped", "error", err)
			}
		}()
	}

	interval := cfg.Worker.Interval
	if interval <= 0 {
		interval = 5 * time.Minute
	}
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	logger.Info("Worker started", "interval", interval)

	runOnce := func() {
		ran, err := runner.RunDue(ctx)
		if err != nil {
			logger.Error("Error running scheduled tasks", "error", err)
			return
		}
		logger.Debug("Scheduled tasks processed", "count", ran)
	}

	runOnce()
	for {
		select {
		case <-ticker.C:
			runOnce()
		case <-ctx.Done():
			logger.Info("Shutting down worker...")
			return
		}
	}
}
