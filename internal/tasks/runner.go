package tasks

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"gorm.io/gorm"

	"broadcastmotion_payments/internal/models"
)

const (
	historySuccess         = "success"
	historyFailure         = "failure"
	historyHandlerNotFound = "handler_not_found"
)

// Runner executes due scheduled tasks and records every attempt
type Runner struct {
	db       *gorm.DB
	registry *Registry
	logger   *slog.Logger
	now      func() time.Time
}

func NewRunner(db *gorm.DB, registry *Registry, logger *slog.Logger) *Runner {
	return &Runner{db: db, registry: registry, logger: logger, now: time.Now}
}

// RunDue executes every active task whose due time has passed and returns how many ran.
func (r *Runner) RunDue(ctx context.Context) (int, error) {
	r.logger.DebugContext(ctx, "Checking for pending tasks")

	var pendingTasks []models.ScheduledTask
	err := r.db.WithContext(ctx).
		Where("status = ? AND due <= ?", models.ScheduledTaskStatusActive, r.now()).
		Order("due ASC").
		Find(&pendingTasks).Error
	if err != nil {
		return 0, fmt.Errorf("failed to fetch pending tasks: %w", err)
	}

	ran := 0
	for _, task := range pendingTasks {
		if ctx.Err() != nil {
			return ran, ctx.Err()
		}
		r.execute(ctx, task)
		ran++
	}
	return ran, nil
}

func (r *Runner) execute(ctx context.Context, task models.ScheduledTask) {
	logger := r.logger.With("task", task.TaskName, "task_id", task.ID)
	logger.InfoContext(ctx, "Processing task")

	handler, found := r.registry.Get(task.TaskName)
	if !found {
		logger.ErrorContext(ctx, "Task handler not found, marking as failure")
		now := r.now()
		r.record(ctx, task, now, 0, historyHandlerNotFound, 1, map[string]interface{}{"error": "Handler not found"})
		r.update(ctx, task, map[string]interface{}{
			"status":   models.ScheduledTaskStatusFailure,
			"last_run": now,
		})
		return
	}

	maxAttempt := task.MaxAttempt
	if maxAttempt < 1 {
		maxAttempt = 1
	}

	var (
		runAt  time.Time
		runErr error
	)
	for attempt := 1; attempt <= maxAttempt; attempt++ {
		runAt = r.now()
		started := time.Now()
		result, err := handler(ctx, task)
		elapsed := time.Since(started)

		runErr = err
		if err != nil {
			logger.WarnContext(ctx, "Task attempt failed", "attempt", attempt, "max_attempt", maxAttempt, "error", err)
			r.record(ctx, task, runAt, elapsed, historyFailure, attempt, map[string]interface{}{"error": err.Error()})
			if ctx.Err() != nil {
				break
			}
			continue
		}

		logger.InfoContext(ctx, "Task completed", "attempt", attempt, "runtime_ms", elapsed.Milliseconds())
		r.record(ctx, task, runAt, elapsed, historySuccess, attempt, result)
		break
	}

	updates := map[string]interface{}{"last_run": runAt}
	switch {
	case task.TaskType == models.ScheduledTaskTypeRecurring:
		// a failed run still moves to the next occurrence; only reschedule
		// into the future so the task cannot spin
		if next := task.NextDue(r.now()); next.After(r.now()) {
			updates["status"] = models.ScheduledTaskStatusActive
			updates["due"] = next
		} else if runErr != nil {
			updates["status"] = models.ScheduledTaskStatusFailure
		} else {
			updates["status"] = models.ScheduledTaskStatusDone
		}
	case runErr != nil:
		updates["status"] = models.ScheduledTaskStatusFailure
	default:
		updates["status"] = models.ScheduledTaskStatusDone
	}
	r.update(ctx, task, updates)
}

func (r *Runner) record(ctx context.Context, task models.ScheduledTask, runAt time.Time, runtime time.Duration, status string, attempt int, result map[string]interface{}) {
	history := models.ScheduledTaskHistory{
		ScheduledTaskID: task.ID,
		TaskName:        task.TaskName,
		RunAt:           runAt,
		RuntimeMillis:   runtime.Milliseconds(),
		Status:          status,
		AttemptNumber:   attempt,
		Arguments:       task.Arguments,
		Result:          result,
	}
	if err := r.db.WithContext(ctx).Create(&history).Error; err != nil {
		r.logger.ErrorContext(ctx, "Failed to store task history", "task_id", task.ID, "error", err)
	}
}

func (r *Runner) update(ctx context.Context, task models.ScheduledTask, updates map[string]interface{}) {
	if err := r.db.WithContext(context.WithoutCancel(ctx)).Model(&task).Updates(updates).Error; err != nil {
		r.logger.ErrorContext(ctx, "Failed to update task", "task_id", task.ID, "error", err)
	}
}
