package core

import (
	"context"
	"time"

	"github.com/valter-silva-au/reminderwave/pkg/models"
)

// TaskStore is the persistence contract the task service depends on. Every
// method must appear atomic to the caller.
type TaskStore interface {
	// List returns every task sorted ascending by due date, undated tasks
	// last.
	List(ctx context.Context) ([]models.Task, error)
	// Create persists a new task. Blank titles fail with a ValidationError.
	Create(ctx context.Context, task models.Task) error
	// Update overwrites the record with task.ID and stamps LastModified with
	// the time of the write. A missing record fails with a NotFoundError.
	Update(ctx context.Context, task models.Task) error
	// Delete removes the record with task.ID. A missing record fails with a
	// NotFoundError.
	Delete(ctx context.Context, task models.Task) error
}

// ReminderScheduler is the contract over the notification subsystem.
type ReminderScheduler interface {
	// RequestPermission blocks until the user grants or denies reminders.
	RequestPermission(ctx context.Context) (bool, error)
	// PermissionGranted reports an answer already on record (configuration
	// or an earlier decision) without asking.
	PermissionGranted() bool
	// Schedule registers the single pending notification for task,
	// replacing any earlier one with the same ID.
	Schedule(ctx context.Context, task models.Task) error
	// Cancel removes the pending notification for taskID. It is a no-op
	// when none is pending.
	Cancel(ctx context.Context, taskID string) error
}

// NotificationQueue holds pending reminder notifications keyed by task ID.
// The scheduler writes to it and the dispatcher drains it.
type NotificationQueue interface {
	// Put stores n, replacing any pending notification for n.TaskID.
	Put(ctx context.Context, n models.Notification) error
	// Remove drops the pending notification for taskID, if any.
	Remove(ctx context.Context, taskID string) error
	// Ack drops n after delivery, but only while it is still the task's
	// registration. A reminder rescheduled since n was read survives.
	Ack(ctx context.Context, n models.Notification) error
	// Due returns the notifications whose fire time is at or before now,
	// oldest first.
	Due(ctx context.Context, now time.Time) ([]models.Notification, error)
	// Pending returns every queued notification, oldest first.
	Pending(ctx context.Context) ([]models.Notification, error)
}
