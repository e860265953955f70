package core

// Event types written by the task service.
const (
	EventTaskCreated        = "task.created"
	EventTaskUpdated        = "task.updated"
	EventTaskCompleted      = "task.completed"
	EventTaskReopened       = "task.reopened"
	EventTaskDeleted        = "task.deleted"
	EventReminderScheduled  = "reminder.scheduled"
	EventReminderCancelled  = "reminder.cancelled"
	EventReminderFailed     = "reminder.failed"
	EventReminderDelivered  = "reminder.delivered"
	EventPermissionResolved = "reminder.permission"
)

// EventLogger is the subset of the observability event log that core
// services need. Defining it here avoids importing the observability package.
type EventLogger interface {
	LogEvent(eventType string, data map[string]any) error
}
