package observability

import (
	"context"
	"fmt"
	"sort"
	"time"

	"github.com/valter-silva-au/reminderwave/pkg/models"
)

// AlertSeverity represents the urgency of an alert.
type AlertSeverity string

const (
	SeverityHigh   AlertSeverity = "high"
	SeverityMedium AlertSeverity = "medium"
	SeverityLow    AlertSeverity = "low"
)

func (s AlertSeverity) rank() int {
	switch s {
	case SeverityHigh:
		return 0
	case SeverityMedium:
		return 1
	default:
		return 2
	}
}

// Alert represents a triggered alert condition.
type Alert struct {
	ID          string        `json:"id"`
	Condition   string        `json:"condition"`
	Severity    AlertSeverity `json:"severity"`
	Message     string        `json:"message"`
	TaskID      string        `json:"task_id,omitempty"`
	TriggeredAt time.Time     `json:"triggered_at"`
}

// AlertThresholds configures when alerts should fire.
type AlertThresholds struct {
	MaxOpenTasks int `yaml:"max_open_tasks" json:"max_open_tasks"`
	// FailureWindowHours bounds how far back failed reminder deliveries are
	// reported.
	FailureWindowHours int `yaml:"failure_window_hours" json:"failure_window_hours"`
}

// DefaultAlertThresholds returns the default alert thresholds.
func DefaultAlertThresholds() AlertThresholds {
	return AlertThresholds{
		MaxOpenTasks:       25,
		FailureWindowHours: 24,
	}
}

// TaskSource supplies the current task list.
type TaskSource interface {
	List(ctx context.Context) ([]models.Task, error)
}

// AlertEngine evaluates alert conditions.
type AlertEngine interface {
	Evaluate(ctx context.Context) ([]Alert, error)
}

type alertEngine struct {
	tasks      TaskSource
	eventLog   EventLog
	thresholds AlertThresholds
	now        func() time.Time
}

// NewAlertEngine creates an AlertEngine over the given task source. eventLog
// may be nil, in which case delivery failures are not reported.
func NewAlertEngine(tasks TaskSource, eventLog EventLog, thresholds AlertThresholds) AlertEngine {
	return &alertEngine{
		tasks:      tasks,
		eventLog:   eventLog,
		thresholds: thresholds,
		now:        time.Now,
	}
}

// Evaluate returns every triggered alert, most severe first.
func (ae *alertEngine) Evaluate(ctx context.Context) ([]Alert, error) {
	now := ae.now()
	tasks, err := ae.tasks.List(ctx)
	if err != nil {
		return nil, fmt.Errorf("listing tasks for alerts: %w", err)
	}

	alerts := ae.checkDueTasks(tasks, now)
	alerts = append(alerts, ae.checkOpenTasks(tasks, now)...)

	failures, err := ae.checkDeliveryFailures(now)
	if err != nil {
		return nil, fmt.Errorf("checking reminder failures: %w", err)
	}
	alerts = append(alerts, failures...)

	sort.SliceStable(alerts, func(i, j int) bool {
		return alerts[i].Severity.rank() < alerts[j].Severity.rank()
	})
	return alerts, nil
}

// checkDueTasks raises one alert per overdue task and per task due today.
func (ae *alertEngine) checkDueTasks(tasks []models.Task, now time.Time) []Alert {
	var alerts []Alert
	for _, t := range tasks {
		switch {
		case t.IsOverdue(now):
			alerts = append(alerts, Alert{
				ID:          "overdue-" + t.ID,
				Condition:   "task_overdue",
				Severity:    SeverityHigh,
				Message:     fmt.Sprintf("%q is overdue (due %s)", t.Title, formatDue(t)),
				TaskID:      t.ID,
				TriggeredAt: now,
			})
		case t.IsDueToday(now):
			alerts = append(alerts, Alert{
				ID:          "today-" + t.ID,
				Condition:   "task_due_today",
				Severity:    SeverityMedium,
				Message:     fmt.Sprintf("%q is due today (%s)", t.Title, formatDue(t)),
				TaskID:      t.ID,
				TriggeredAt: now,
			})
		}
	}
	return alerts
}

func (ae *alertEngine) checkOpenTasks(tasks []models.Task, now time.Time) []Alert {
	open := 0
	for _, t := range tasks {
		if !t.IsCompleted {
			open++
		}
	}
	if ae.thresholds.MaxOpenTasks <= 0 || open <= ae.thresholds.MaxOpenTasks {
		return nil
	}
	return []Alert{{
		ID:          "open-tasks",
		Condition:   "too_many_open_tasks",
		Severity:    SeverityLow,
		Message:     fmt.Sprintf("%d open tasks, exceeding the maximum of %d", open, ae.thresholds.MaxOpenTasks),
		TriggeredAt: now,
	}}
}

func (ae *alertEngine) checkDeliveryFailures(now time.Time) ([]Alert, error) {
	if ae.eventLog == nil || ae.thresholds.FailureWindowHours <= 0 {
		return nil, nil
	}
	since := now.Add(-time.Duration(ae.thresholds.FailureWindowHours) * time.Hour)
	events, err := ae.eventLog.Read(EventFilter{Type: "reminder.failed", Since: &since})
	if err != nil {
		return nil, err
	}
	if len(events) == 0 {
		return nil, nil
	}
	return []Alert{{
		ID:          "reminder-failures",
		Condition:   "reminder_failures",
		Severity:    SeverityMedium,
		Message:     fmt.Sprintf("%d reminder operations failed in the last %d hours", len(events), ae.thresholds.FailureWindowHours),
		TriggeredAt: now,
	}}, nil
}

func formatDue(t models.Task) string {
	if t.HasTime {
		return t.DueDate.Local().Format("Mon Jan 2 15:04")
	}
	return t.DueDate.Local().Format("Mon Jan 2")
}
