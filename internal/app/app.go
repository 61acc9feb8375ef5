package app

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"

	"gorm.io/gorm"

	"broadcastmotion_payments/internal/config"
	"broadcastmotion_payments/internal/models"
	"broadcastmotion_payments/internal/payments"
	"broadcastmotion_payments/internal/services"
)

// App holds the services shared by the server and the worker
type App struct {
	Config *config.Config
	Logger *slog.Logger
	DB     *gorm.DB
	Cache  *services.RedisCache
	Events services.EventPublisher

	Transitioner   *services.Transitioner
	Payments       *services.PaymentService
	Queries        *services.PaymentQueryService
	Reconciliation *services.ReconciliationService
	Webhooks       *services.WebhookService

	closers []io.Closer
}

// New connects the database, cache and event stream described by cfg and builds the services on top.
// Redis and Kafka are optional; without them caching and event publishing are disabled.
func New(cfg *config.Config, logger *slog.Logger) (*App, error) {
	if cfg.Database.URL == "" {
		return nil, errors.New("DATABASE_URL not set")
	}

	db, err := services.InitDB(cfg.Database.URL, logger)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to database: %w", err)
	}
	return NewWithDB(cfg, logger, db), nil
}

// NewWithDB builds the services on an already opened database.
func NewWithDB(cfg *config.Config, logger *slog.Logger, db *gorm.DB) *App {
	a := &App{Config: cfg, Logger: logger, DB: db}

	if cfg.Redis.URL != "" {
		cache, err := services.NewRedisCache(cfg.Redis.URL)
		if err != nil {
			logger.Warn("Redis unavailable, caching and reconcile locks disabled", "error", err)
		} else {
			a.Cache = cache
			a.closers = append(a.closers, closerFunc(cache.Close))
		}
	}

	a.Events = services.NoopPublisher{}
	if cfg.Kafka.Brokers != "" {
		writer := services.NewKafkaWriter(cfg.Kafka.Brokers, cfg.Kafka.StatusTopic)
		a.Events = services.NewKafkaPublisher(writer)
		a.closers = append(a.closers, writer)
	}

	merchant := cfg.MerchantConfig()
	acquirer, checker := a.cardGateway(merchant)

	a.Transitioner = services.NewTransitioner(db, a.Cache, a.Events, logger)
	a.Payments = services.NewPaymentService(db, a.Cache, payments.NewDispatcher(merchant, acquirer), logger)
	a.Queries = services.NewPaymentQueryService(db, a.Cache, a.Transitioner, logger)
	a.Reconciliation = services.NewReconciliationService(db, a.Cache, checker, a.Transitioner, logger)
	a.Webhooks = services.NewWebhookService(db, a.Transitioner, logger, a.webhookParsers()...)

	return a
}

// cardGateway picks the card acquirer; non-card methods always use the simulated status check.
func (a *App) cardGateway(merchant payments.MerchantConfig) (payments.CardAcquirer, payments.StatusChecker) {
	simulated := payments.NewSimulatedStatusChecker()
	gw := a.Config.Gateway

	if gw.Card != config.CardGatewayMidtrans {
		return payments.NewSimulatedAcquirer(merchant), simulated
	}
	if gw.MidtransServerKey == "" {
		a.Logger.Warn("CARD_GATEWAY=midtrans without MIDTRANS_SERVER_KEY, using simulated card gateway")
		return payments.NewSimulatedAcquirer(merchant), simulated
	}

	midtrans := services.NewMidtransService(gw.MidtransServerKey, gw.MidtransClientKey, gw.MidtransProduction)
	router := payments.NewMethodStatusRouter(simulated).
		Route(midtrans, models.PaymentMethodCreditCard, models.PaymentMethodDebitCard)
	return midtrans, router
}

func (a *App) webhookParsers() []payments.WebhookParser {
	parsers := []payments.WebhookParser{payments.NewSimulatedWebhookParser(a.Config.Gateway.WebhookSecret)}
	if key := a.Config.Gateway.MidtransServerKey; key != "" {
		parsers = append(parsers, payments.NewMidtransWebhookParser(key))
	}
	return parsers
}

// Identity builds the token verifier chain: Firebase first when credentials are configured, then HS256 tokens.
// firebase is nil unless Firebase initialized.
func (a *App) Identity(ctx context.Context) (chain services.ChainVerifier, firebase *services.FirebaseVerifier) {

	if path := a.Config.Auth.FirebaseCredentialsPath; path != "" {
		client, err := services.InitFirebase(ctx, path)
		if err != nil {
			a.Logger.Warn("Firebase initialization failed, ID tokens will be rejected", "error", err)
		} else {
			firebase = services.NewFirebaseVerifier(client)
			chain = append(chain, firebase)
		}
	}
	if secret := a.Config.Auth.JWTSecret; secret != "" {
		chain = append(chain, services.NewJWTVerifier(secret))
	}
	if len(chain) == 0 {
		a.Logger.Warn("No identity provider configured, authenticated routes will return 401")
	}
	return chain, firebase
}

// Close releases the cache, event writer and database pool.
func (a *App) Close() {
	for i := len(a.closers) - 1; i >= 0; i-- {
		if err := a.closers[i].Close(); err != nil {
			a.Logger.Error("Failed to close resource", "error", err)
		}
	}
	if sqlDB, err := a.DB.DB(); err == nil {
		_ = sqlDB.Close()
	}
}

type closerFunc func() error

func (f closerFunc) Close() error { return f() }
