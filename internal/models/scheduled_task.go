package models

import (
	"time"

	"github.com/teambition/rrule-go"
	"gorm.io/datatypes"
	"gorm.io/gorm"
)

// ScheduledTaskStatus represents the status of a scheduled task
type ScheduledTaskStatus string

const (
	ScheduledTaskStatusActive   ScheduledTaskStatus = "active"
	ScheduledTaskStatusDone     ScheduledTaskStatus = "done"
	ScheduledTaskStatusFailure  ScheduledTaskStatus = "failure"
	ScheduledTaskStatusDisabled ScheduledTaskStatus = "disabled"
)

// ScheduledTaskType represents the type of scheduled task
type ScheduledTaskType string

const (
	ScheduledTaskTypeOneTime   ScheduledTaskType = "onetime"
	ScheduledTaskTypeRecurring ScheduledTaskType = "recurring"
)

// ScheduledTask is a unit of background work picked up by the worker once Due has passed
type ScheduledTask struct {
	ID        uint           `gorm:"primarykey" json:"id"`
	CreatedAt time.Time      `json:"createdAt"`
	UpdatedAt time.Time      `json:"updatedAt"`
	DeletedAt gorm.DeletedAt `gorm:"index" json:"-"`

	TaskName          string              `gorm:"type:varchar(255);not null" json:"taskName"`
	Arguments         datatypes.JSONMap   `json:"arguments"`
	LastRun           *time.Time          `json:"lastRun"`
	Due               time.Time           `gorm:"index:idx_scheduled_tasks_status_due,priority:2" json:"due"`
	RecurringInterval *string             `gorm:"type:text" json:"recurringInterval"`
	Status            ScheduledTaskStatus `gorm:"type:varchar(20);index:idx_scheduled_tasks_status_due,priority:1" json:"status"`
	TaskType          ScheduledTaskType   `gorm:"type:varchar(20);default:'onetime'" json:"taskType"`
	MaxAttempt        int                 `gorm:"default:1" json:"maxAttempt"`
}

// NextDue returns the first occurrence of the recurrence rule strictly after now.
// One-time tasks and unparsable rules keep their current Due.
func (t ScheduledTask) NextDue(now time.Time) time.Time {
	if t.TaskType != ScheduledTaskTypeRecurring || t.RecurringInterval == nil || *t.RecurringInterval == "" {
		return t.Due
	}

	rule, err := rrule.StrToRRule(*t.RecurringInterval)
	if err != nil {
		return t.Due
	}
	rule.DTStart(t.Due)
	if next := rule.After(now, false); !next.IsZero() {
		return next
	}
	return t.Due
}

// ScheduledTaskHistory records one execution attempt of a scheduled task
type ScheduledTaskHistory struct {
	ID              uint      `gorm:"primarykey" json:"id"`
	CreatedAt       time.Time `json:"createdAt"`
	ScheduledTaskID uint      `gorm:"index" json:"scheduledTaskId"`

	TaskName      string            `gorm:"type:varchar(255)" json:"taskName"`
	RunAt         time.Time         `json:"runAt"`
	RuntimeMillis int64             `json:"runtimeMillis"`
	Status        string            `gorm:"type:varchar(50)" json:"status"`
	AttemptNumber int               `json:"attemptNumber"`
	Arguments     datatypes.JSONMap `json:"arguments"`
	Result        datatypes.JSONMap `json:"result"`
}
