package tasks

import (
	"context"
	"errors"
	"fmt"
	"time"

	"gorm.io/gorm"

	"broadcastmotion_payments/internal/models"
	"broadcastmotion_payments/internal/services"
)

const (
	ReconcileOpenPaymentsTaskID = "reconcile_open_payments"
	defaultReconcileBatch       = 100
	// DefaultReconcileRule runs the sweep every five minutes.
	DefaultReconcileRule = "FREQ=MINUTELY;INTERVAL=5"
)

// ReconcileOpenPaymentsTaskDef sweeps PENDING and PROCESSING payments through reconciliation
type ReconcileOpenPaymentsTaskDef struct {
	reconciler *services.ReconciliationService
}

func NewReconcileOpenPaymentsTask(reconciler *services.ReconciliationService) *ReconcileOpenPaymentsTaskDef {
	return &ReconcileOpenPaymentsTaskDef{reconciler: reconciler}
}

// TaskID returns the unique identifier for this task
func (t *ReconcileOpenPaymentsTaskDef) TaskID() string {
	return ReconcileOpenPaymentsTaskID
}

// HandleExecution reconciles up to "batch" open payments, oldest first
func (t *ReconcileOpenPaymentsTaskDef) HandleExecution(ctx context.Context, task models.ScheduledTask) (map[string]interface{}, error) {
	batch, err := intArg(task.Arguments, "batch", defaultReconcileBatch)
	if err != nil {
		return nil, err
	}
	if batch < 1 {
		return nil, fmt.Errorf("batch must be positive, got %d", batch)
	}

	summary, err := t.reconciler.ReconcileOpen(ctx, batch)
	if err != nil {
		return nil, err
	}

	return map[string]interface{}{
		"checked": summary.Checked,
		"changed": summary.Changed,
		"failed":  summary.Failed,
	}, nil
}

// EnsureReconcileSweep schedules the recurring sweep unless an active one already exists.
func EnsureReconcileSweep(ctx context.Context, db *gorm.DB, rule string, batch int, now time.Time) (*models.ScheduledTask, error) {
	var existing models.ScheduledTask
	err := db.WithContext(ctx).
		Where("task_name = ? AND status = ?", ReconcileOpenPaymentsTaskID, models.ScheduledTaskStatusActive).
		First(&existing).Error
	if err == nil {
		return &existing, nil
	}
	if !errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, err
	}

	task, err := BuildScheduledTask(ReconcileOpenPaymentsTaskID, map[string]int{"batch": batch}, now, &rule, models.ScheduledTaskTypeRecurring, 1)
	if err != nil {
		return nil, err
	}
	if err := db.WithContext(ctx).Create(task).Error; err != nil {
		return nil, fmt.Errorf("failed to schedule reconcile sweep: %w", err)
	}
	return task, nil
}
