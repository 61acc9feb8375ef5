//go:build integration

package services

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"sync"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/stretchr/testify/suite"
	"github.com/testcontainers/testcontainers-go"
	"github.com/testcontainers/testcontainers-go/modules/postgres"
	"github.com/testcontainers/testcontainers-go/wait"
	"gorm.io/gorm"

	"broadcastmotion_payments/internal/models"
	"broadcastmotion_payments/internal/testutil"
)

type PostgresTestSuite struct {
	suite.Suite
	ctx       context.Context
	container *postgres.PostgresContainer
	db        *gorm.DB
	logger    *slog.Logger
}

func (s *PostgresTestSuite) SetupSuite() {
	time.Local = time.UTC
	s.ctx = context.Background()
	s.logger = slog.New(slog.NewTextHandler(io.Discard, nil))

	container, err := postgres.Run(s.ctx, "postgres:16-alpine",
		postgres.WithDatabase("payments"),
		postgres.WithUsername("postgres"),
		postgres.WithPassword("postgres"),
		testcontainers.WithWaitStrategy(
			wait.ForLog("database system is ready to accept connections").
				WithOccurrence(2).
				WithStartupTimeout(60*time.Second),
		),
	)
	s.Require().NoError(err)
	s.container = container

	dsn, err := container.ConnectionString(s.ctx, "sslmode=disable")
	s.Require().NoError(err)

	s.db, err = InitDB(dsn, s.logger)
	s.Require().NoError(err)
	s.Require().NoError(AutoMigrate(s.db, s.logger))
	s.Require().NoError(PingDB(s.ctx, s.db))
}

func (s *PostgresTestSuite) TearDownSuite() {
	if s.container != nil {
		if err := s.container.Terminate(s.ctx); err != nil {
			s.T().Logf("error terminating postgres container: %s", err)
		}
	}
}

func (s *PostgresTestSuite) SetupTest() {
	for _, table := range []string{"webhook_logs", "transactions", "activity_logs", "payments", "templates", "users"} {
		s.Require().NoError(s.db.Exec("DELETE FROM " + table).Error)
	}
}

func (s *PostgresTestSuite) transitioner() (*Transitioner, *recordingPublisher) {
	t := s.T()
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = client.Close() })

	events := &recordingPublisher{}
	return NewTransitioner(s.db, NewRedisCacheFromClient(client), events, s.logger), events
}

func (s *PostgresTestSuite) TestConcurrentTransitionsApplyOnce() {
	t := s.T()
	user := testutil.CreateUser(t, s.db, models.UserTypeCustomer)
	template := testutil.CreateTemplate(t, s.db, "Lower Thirds", "49.90")
	payment := testutil.CreatePayment(t, s.db, user, template, nil)
	transitioner, events := s.transitioner()

	targets := []models.PaymentStatus{
		models.PaymentStatusCompleted,
		models.PaymentStatusFailed,
		models.PaymentStatusCompleted,
		models.PaymentStatusExpired,
	}

	var wg sync.WaitGroup
	errs := make([]error, len(targets))
	for i, to := range targets {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, errs[i] = transitioner.Apply(s.ctx, TransitionRequest{
				PaymentID: payment.ID,
				To:        to,
				Source:    SourceWebhook,
				Within:    recordConfirmation,
			})
		}()
	}
	wg.Wait()

	applied := 0
	for _, err := range errs {
		if err == nil {
			applied++
			continue
		}
		assert.True(t, errors.Is(err, ErrInvalidTransition), "unexpected error: %v", err)
	}
	assert.Equal(t, 1, applied)
	assert.Len(t, events.all(), 1)

	var stored models.Payment
	require.NoError(t, s.db.First(&stored, "id = ?", payment.ID).Error)
	assert.NotEqual(t, models.PaymentStatusPending, stored.Status)
	assert.Equal(t, stored.Status == models.PaymentStatusCompleted, stored.PaidAt != nil)
}

func (s *PostgresTestSuite) TestDecimalColumnsRoundTrip() {
	t := s.T()
	user := testutil.CreateUser(t, s.db, models.UserTypeCustomer)
	template := testutil.CreateTemplate(t, s.db, "Logo Reveal", "129.99")

	env := &testEnv{db: s.db, clock: &fakeClock{now: time.Now().UTC()}, logger: s.logger}
	env.transitioner, env.events = s.transitioner()
	env.cache = env.transitioner.cache
	result, err := env.paymentService().CreatePayment(s.ctx, ownerOf(user), CreatePaymentRequest{
		TemplateID:    template.ID,
		PaymentMethod: models.PaymentMethodCreditCard,
		Amount:        decimal.RequireFromString("129.99"),
		PayerName:     "Maria Souza",
		PayerEmail:    "maria@example.com",
		PayerDocument: "12345678901",
	})
	require.NoError(t, err)

	var stored models.Payment
	require.NoError(t, s.db.First(&stored, "id = ?", result.Payment.ID).Error)
	assert.Equal(t, "129.99", stored.Amount.StringFixed(2))
	assert.Equal(t, "5.58", stored.FeeAmount.StringFixed(2))
	assert.Equal(t, "124.41", stored.NetAmount.StringFixed(2))
}

func TestPostgresTestSuite(t *testing.T) {
	suite.Run(t, new(PostgresTestSuite))
}
