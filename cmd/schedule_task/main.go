package main

import (
	"encoding/json"
	"fmt"
	"os"
	"time"

	"github.com/spf13/cobra"
	"github.com/teambition/rrule-go"

	"broadcastmotion_payments/internal/models"
	"broadcastmotion_payments/internal/tasks"
)

type scheduleOptions struct {
	taskName   string
	arguments  string
	due        string
	taskType   string
	recurring  string
	maxAttempt int
}

func main() {
	if err := newRootCommand().Execute(); err != nil {
		os.Exit(1)
	}
}

func newRootCommand() *cobra.Command {
	opts := &scheduleOptions{}

	root := &cobra.Command{
		Use:          "schedule_task",
		Short:        "Insert a scheduled task for the worker",
		SilenceUsage: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			task, err := opts.build()
			if err != nil {
				return err
			}
			return insert(cmd, task)
		},
	}

	flags := root.Flags()
	flags.StringVar(&opts.taskName, "task_name", "", "Name of the task (mandatory)")
	flags.StringVar(&opts.arguments, "arguments", "{}", "JSON arguments for the task")
	flags.StringVar(&opts.due, "due", "", "Due date (mandatory, RFC3339 or 2006-01-02 15:04 local time)")
	flags.StringVar(&opts.taskType, "tasktype", string(models.ScheduledTaskTypeOneTime), "Task type: onetime or recurring")
	flags.StringVar(&opts.recurring, "recurring", "", "RRULE recurrence, e.g. FREQ=MINUTELY;INTERVAL=5")
	flags.IntVar(&opts.maxAttempt, "max_attempt", 3, "Max attempts")
	_ = root.MarkFlagRequired("task_name")
	_ = root.MarkFlagRequired("due")

	var batch int
	sweep := &cobra.Command{
		Use:   "reconcile-sweep",
		Short: "Schedule the recurring open-payment reconciliation unless one is active",
		RunE: func(cmd *cobra.Command, args []string) error {
			db, closeDB, err := openDB()
			if err != nil {
				return err
			}
			defer closeDB()
			task, err := tasks.EnsureReconcileSweep(cmd.Context(), db, tasks.DefaultReconcileRule, batch, time.Now())
			if err != nil {
				return err
			}
			cmd.Printf("Reconcile sweep task ID: %d (next due %s)\n", task.ID, task.Due.Format(time.RFC3339))
			return nil
		},
	}
	sweep.Flags().IntVar(&batch, "batch", 100, "Payments reconciled per run")
	root.AddCommand(sweep)

	return root
}

func (o *scheduleOptions) build() (*models.ScheduledTask, error) {
	var args map[string]interface{}
	if err := json.Unmarshal([]byte(o.arguments), &args); err != nil {
		return nil, fmt.Errorf("invalid JSON arguments: %w", err)
	}

	due, err := parseDue(o.due)
	if err != nil {
		return nil, err
	}

	taskType := models.ScheduledTaskType(o.taskType)
	var recurring *string
	switch taskType {
	case models.ScheduledTaskTypeOneTime:
	case models.ScheduledTaskTypeRecurring:
		if _, err := rrule.StrToRRule(o.recurring); err != nil {
			return nil, fmt.Errorf("invalid recurring rule %q: %w", o.recurring, err)
		}
		recurring = &o.recurring
	default:
		return nil, fmt.Errorf("unknown task type %q", o.taskType)
	}

	return tasks.BuildScheduledTask(o.taskName, args, due, recurring, taskType, o.maxAttempt)
}

func parseDue(value string) (time.Time, error) {
	due, err := time.Parse(time.RFC3339, value)
	if err == nil {
		return due, nil
	}
	due, err = time.ParseInLocation("2006-01-02 15:04", value, time.Local)
	if err != nil {
		return time.Time{}, fmt.Errorf("invalid due date format, use '2006-01-02 15:04' (local) or RFC3339: %w", err)
	}
	return due, nil
}

func insert(cmd *cobra.Command, task *models.ScheduledTask) error {
	db, closeDB, err := openDB()
	if err != nil {
		return err
	}
	defer closeDB()
	if err := db.WithContext(cmd.Context()).Create(task).Error; err != nil {
		return fmt.Errorf("failed to create task: %w", err)
	}

	cmd.Printf("Successfully created task ID: %d\n", task.ID)
	cmd.Printf("Task: %s\nDue: %s\nType: %s\n", task.TaskName, task.Due, task.TaskType)
	return nil
}
