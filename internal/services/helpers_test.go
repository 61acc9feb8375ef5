package services

import (
	"context"
	"io"
	"log/slog"
	"sync"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"gorm.io/gorm"

	"broadcastmotion_payments/internal/models"
	"broadcastmotion_payments/internal/payments"
	"broadcastmotion_payments/internal/testutil"
)

type recordingPublisher struct {
	mu     sync.Mutex
	events []StatusChangedEvent
}

func (p *recordingPublisher) PublishStatusChanged(ctx context.Context, event StatusChangedEvent) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.events = append(p.events, event)
	return nil
}

func (p *recordingPublisher) all() []StatusChangedEvent {
	p.mu.Lock()
	defer p.mu.Unlock()
	return append([]StatusChangedEvent(nil), p.events...)
}

type fakeClock struct {
	mu  sync.Mutex
	now time.Time
}

func (c *fakeClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *fakeClock) Advance(d time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.now = c.now.Add(d)
}

type testEnv struct {
	db           *gorm.DB
	redis        *miniredis.Miniredis
	cache        *RedisCache
	clock        *fakeClock
	events       *recordingPublisher
	transitioner *Transitioner
	logger       *slog.Logger
}

func newTestEnv(t *testing.T) *testEnv {
	t.Helper()

	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = client.Close() })

	env := &testEnv{
		db:     testutil.NewDB(t),
		redis:  mr,
		cache:  NewRedisCacheFromClient(client),
		clock:  &fakeClock{now: time.Now().UTC().Truncate(time.Second)},
		events: &recordingPublisher{},
		logger: slog.New(slog.NewTextHandler(io.Discard, nil)),
	}
	env.transitioner = NewTransitioner(env.db, env.cache, env.events, env.logger)
	env.transitioner.now = env.clock.Now
	return env
}

func (e *testEnv) paymentService() *PaymentService {
	cfg := payments.DefaultMerchantConfig()
	svc := NewPaymentService(e.db, e.cache, payments.NewDispatcher(cfg, payments.NewSimulatedAcquirer(cfg)), e.logger)
	svc.now = e.clock.Now
	return svc
}

func (e *testEnv) reconciliationService(checker payments.StatusChecker) *ReconciliationService {
	svc := NewReconciliationService(e.db, e.cache, checker, e.transitioner, e.logger)
	svc.now = e.clock.Now
	return svc
}

func (e *testEnv) queryService() *PaymentQueryService {
	return NewPaymentQueryService(e.db, e.cache, e.transitioner, e.logger)
}

func (e *testEnv) reload(t *testing.T, id string) models.Payment {
	t.Helper()
	var p models.Payment
	if err := e.db.First(&p, "id = ?", id).Error; err != nil {
		t.Fatalf("reload payment %s: %v", id, err)
	}
	return p
}

func fixedChecker(status models.PaymentStatus, err error) payments.StatusChecker {
	return payments.StatusCheckerFunc(func(ctx context.Context, p models.Payment) (models.PaymentStatus, error) {
		if err != nil {
			return p.Status, err
		}
		return status, nil
	})
}

func ownerOf(user models.User) Actor {
	return Actor{UserID: user.ID, Admin: user.IsAdmin()}
}
