package observability

import (
	"fmt"
	"time"
)

// Metrics holds counts derived from the event log.
type Metrics struct {
	TasksCreated       int            `json:"tasks_created"`
	TasksUpdated       int            `json:"tasks_updated"`
	TasksCompleted     int            `json:"tasks_completed"`
	TasksReopened      int            `json:"tasks_reopened"`
	TasksDeleted       int            `json:"tasks_deleted"`
	TasksByPriority    map[string]int `json:"tasks_by_priority"`
	RemindersScheduled int            `json:"reminders_scheduled"`
	RemindersCancelled int            `json:"reminders_cancelled"`
	RemindersDelivered int            `json:"reminders_delivered"`
	RemindersFailed    int            `json:"reminders_failed"`
	EventCount         int            `json:"event_count"`
	OldestEvent        *time.Time     `json:"oldest_event,omitempty"`
	NewestEvent        *time.Time     `json:"newest_event,omitempty"`
}

// CompletionRate is completed over created, or zero before any task exists.
func (m *Metrics) CompletionRate() float64 {
	if m.TasksCreated == 0 {
		return 0
	}
	return float64(m.TasksCompleted) / float64(m.TasksCreated)
}

// MetricsCalculator derives metrics from the event log.
type MetricsCalculator interface {
	Calculate(since time.Time) (*Metrics, error)
}

type metricsCalculator struct {
	eventLog EventLog
}

// NewMetricsCalculator creates a MetricsCalculator reading from eventLog.
func NewMetricsCalculator(eventLog EventLog) MetricsCalculator {
	return &metricsCalculator{eventLog: eventLog}
}

// Calculate aggregates every event at or after since.
func (mc *metricsCalculator) Calculate(since time.Time) (*Metrics, error) {
	events, err := mc.eventLog.Read(EventFilter{Since: &since})
	if err != nil {
		return nil, fmt.Errorf("reading events for metrics: %w", err)
	}

	m := &Metrics{TasksByPriority: make(map[string]int)}
	m.EventCount = len(events)

	for i, event := range events {
		t := event.Time
		if i == 0 {
			m.OldestEvent = &t
		}
		m.NewestEvent = &t

		switch event.Type {
		case "task.created":
			m.TasksCreated++
			if p, ok := event.Data["priority"].(string); ok && p != "" {
				m.TasksByPriority[p]++
			}
		case "task.updated":
			m.TasksUpdated++
		case "task.completed":
			m.TasksCompleted++
		case "task.reopened":
			m.TasksReopened++
		case "task.deleted":
			m.TasksDeleted++
		case "reminder.scheduled":
			m.RemindersScheduled++
		case "reminder.cancelled":
			m.RemindersCancelled++
		case "reminder.delivered":
			m.RemindersDelivered++
		case "reminder.failed":
			m.RemindersFailed++
		}
	}

	return m, nil
}
