package models

import "time"

// ReminderTitle is the heading every reminder notification carries.
const ReminderTitle = "Task Reminder"

// Notification is a one-shot pending reminder keyed by the task it belongs
// to. At most one notification exists per task.
type Notification struct {
	TaskID   string    `yaml:"task_id" json:"task_id"`
	Title    string    `yaml:"title" json:"title"`
	Body     string    `yaml:"body" json:"body"`
	Priority Priority  `yaml:"priority,omitempty" json:"priority,omitempty"`
	FireAt   time.Time `yaml:"fire_at" json:"fire_at"`
}

// NotificationFor builds the pending notification for a task. The fire time
// is the due date truncated to the minute.
func NotificationFor(t Task) Notification {
	return Notification{
		TaskID:   t.ID,
		Title:    ReminderTitle,
		Body:     t.Title,
		Priority: t.Priority,
		FireAt:   t.ReminderAt(),
	}
}

// ChangeKind identifies the mutation that produced a ChangeEvent.
type ChangeKind string

const (
	ChangeCreated   ChangeKind = "created"
	ChangeUpdated   ChangeKind = "updated"
	ChangeCompleted ChangeKind = "completed"
	ChangeReopened  ChangeKind = "reopened"
	ChangeDeleted   ChangeKind = "deleted"
)

// ChangeEvent describes a committed task mutation.
type ChangeEvent struct {
	Kind ChangeKind
	Task Task
	At   time.Time
}
