package tasks

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"broadcastmotion_payments/internal/models"
	"broadcastmotion_payments/internal/payments"
	"broadcastmotion_payments/internal/services"
	"broadcastmotion_payments/internal/testutil"
)

func TestReconcileOpenPaymentsTask(t *testing.T) {
	db := testutil.NewDB(t)
	user := testutil.CreateUser(t, db, models.UserTypeCustomer)
	template := testutil.CreateTemplate(t, db, "Lower Thirds", "60.00")

	past := time.Now().UTC().Add(-time.Hour)
	expired := testutil.CreatePayment(t, db, user, template, func(p *models.Payment) { p.ExpiresAt = &past })
	open := testutil.CreatePayment(t, db, user, template, nil)
	done := testutil.CreatePayment(t, db, user, template, func(p *models.Payment) { p.Status = models.PaymentStatusCompleted })

	transitioner := services.NewTransitioner(db, nil, nil, discard)
	checker := payments.NewSimulatedStatusCheckerWithRoll(func() float64 { return 0.99 })
	task := NewReconcileOpenPaymentsTask(services.NewReconciliationService(db, nil, checker, transitioner, discard))
	assert.Equal(t, ReconcileOpenPaymentsTaskID, task.TaskID())

	result, err := task.HandleExecution(context.Background(), models.ScheduledTask{Arguments: map[string]interface{}{"batch": float64(10)}})
	require.NoError(t, err)
	assert.Equal(t, map[string]interface{}{"checked": 2, "changed": 1, "failed": 0}, result)

	statusOf := func(id string) models.PaymentStatus {
		var p models.Payment
		require.NoError(t, db.First(&p, "id = ?", id).Error)
		return p.Status
	}
	assert.Equal(t, models.PaymentStatusExpired, statusOf(expired.ID))
	assert.Equal(t, models.PaymentStatusPending, statusOf(open.ID))
	assert.Equal(t, models.PaymentStatusCompleted, statusOf(done.ID))

	_, err = task.HandleExecution(context.Background(), models.ScheduledTask{Arguments: map[string]interface{}{"batch": "ten"}})
	assert.Error(t, err)
	_, err = task.HandleExecution(context.Background(), models.ScheduledTask{Arguments: map[string]interface{}{"batch": float64(0)}})
	assert.Error(t, err)
}

func TestEnsureReconcileSweep(t *testing.T) {
	db := testutil.NewDB(t)
	now := time.Date(2024, 5, 13, 12, 0, 0, 0, time.UTC)

	first, err := EnsureReconcileSweep(context.Background(), db, DefaultReconcileRule, 50, now)
	require.NoError(t, err)
	assert.Equal(t, models.ScheduledTaskTypeRecurring, first.TaskType)
	assert.Equal(t, float64(50), first.Arguments["batch"])

	second, err := EnsureReconcileSweep(context.Background(), db, DefaultReconcileRule, 50, now)
	require.NoError(t, err)
	assert.Equal(t, first.ID, second.ID)

	var count int64
	require.NoError(t, db.Model(&models.ScheduledTask{}).Count(&count).Error)
	assert.Equal(t, int64(1), count)
}
