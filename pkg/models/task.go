package models

import (
	"sort"
	"time"
)

// Priority represents the urgency level of a task.
type Priority string

const (
	PriorityLow    Priority = "low"
	PriorityMedium Priority = "medium"
	PriorityHigh   Priority = "high"
)

// Valid reports whether p is one of the known priorities.
func (p Priority) Valid() bool {
	switch p {
	case PriorityLow, PriorityMedium, PriorityHigh:
		return true
	}
	return false
}

// Rank orders priorities from high (0) to low (2).
func (p Priority) Rank() int {
	switch p {
	case PriorityHigh:
		return 0
	case PriorityMedium:
		return 1
	case PriorityLow:
		return 2
	default:
		return 3
	}
}

// FilterMode selects which tasks a list view shows.
type FilterMode string

const (
	FilterAll       FilterMode = "all"
	FilterActive    FilterMode = "active"
	FilterCompleted FilterMode = "completed"
)

// Valid reports whether m is one of the known filter modes.
func (m FilterMode) Valid() bool {
	switch m {
	case FilterAll, FilterActive, FilterCompleted:
		return true
	}
	return false
}

// Matches reports whether the task belongs in a view filtered by m.
func (m FilterMode) Matches(t Task) bool {
	switch m {
	case FilterActive:
		return !t.IsCompleted
	case FilterCompleted:
		return t.IsCompleted
	default:
		return true
	}
}

// DefaultUpcomingWindowDays is the forward window used for upcoming tasks.
const DefaultUpcomingWindowDays = 3

// Task is a single to-do record with optional scheduling metadata.
//
// DueDate is only meaningful when HasDueDate is set. When HasTime is false
// only the calendar date of DueDate is significant. HasReminder implies both
// HasDueDate and HasTime.
type Task struct {
	ID           string    `yaml:"id" json:"id"`
	Title        string    `yaml:"title" json:"title"`
	Notes        string    `yaml:"notes,omitempty" json:"notes"`
	IsCompleted  bool      `yaml:"completed" json:"is_completed"`
	HasDueDate   bool      `yaml:"has_due_date" json:"has_due_date"`
	DueDate      time.Time `yaml:"due_date,omitempty" json:"due_date"`
	HasTime      bool      `yaml:"has_time" json:"has_time"`
	HasReminder  bool      `yaml:"has_reminder" json:"has_reminder"`
	Priority     Priority  `yaml:"priority" json:"priority"`
	CreatedAt    time.Time `yaml:"created_at" json:"created_at"`
	LastModified time.Time `yaml:"last_modified" json:"last_modified"`
}

// ReminderConsistent reports whether the reminder invariant holds.
func (t Task) ReminderConsistent() bool {
	return !t.HasReminder || (t.HasDueDate && t.HasTime)
}

// ReminderAt returns the instant a reminder for t fires: the due date with
// seconds and below truncated.
func (t Task) ReminderAt() time.Time {
	return t.DueDate.Truncate(time.Minute)
}

// IsOverdue reports whether an open task's due date lies strictly before now.
// Date-only tasks become overdue the day after their due date.
func (t Task) IsOverdue(now time.Time) bool {
	if !t.HasDueDate || t.IsCompleted {
		return false
	}
	if t.HasTime {
		return t.DueDate.Before(now)
	}
	return StartOfDay(t.DueDate, now.Location()).Before(StartOfDay(now, now.Location()))
}

// IsDueToday reports whether an open task is due on now's calendar day.
func (t Task) IsDueToday(now time.Time) bool {
	if !t.HasDueDate || t.IsCompleted {
		return false
	}
	return SameDay(t.DueDate, now)
}

// IsUpcoming reports whether an open task falls due between now and the end
// of the day windowDays days from today, inclusive.
func (t Task) IsUpcoming(now time.Time, windowDays int) bool {
	if !t.HasDueDate || t.IsCompleted || windowDays < 0 {
		return false
	}
	loc := now.Location()
	today := StartOfDay(now, loc)
	due := t.DueDate.In(loc)

	if t.HasTime {
		if due.Before(now) {
			return false
		}
	} else if StartOfDay(due, loc).Before(today) {
		return false
	}
	return StartOfDay(due, loc).Before(today.AddDate(0, 0, windowDays+1))
}

// DaysUntilDue returns the number of calendar days from now to the due date.
// Negative values mean the task is past due; the result is zero when the task
// has no due date.
func (t Task) DaysUntilDue(now time.Time) int {
	if !t.HasDueDate {
		return 0
	}
	loc := now.Location()
	from := StartOfDay(now, loc)
	to := StartOfDay(t.DueDate, loc)
	// Round to absorb DST shifts.
	return int(to.Sub(from).Round(24*time.Hour) / (24 * time.Hour))
}

// StartOfDay returns midnight of t's calendar day in loc.
func StartOfDay(t time.Time, loc *time.Location) time.Time {
	t = t.In(loc)
	return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, loc)
}

// SameDay reports whether a falls on b's calendar day, in b's location.
func SameDay(a, b time.Time) bool {
	a = a.In(b.Location())
	return a.Year() == b.Year() && a.YearDay() == b.YearDay()
}

// dueLess orders tasks ascending by due date with undated tasks last.
// Ties fall back to creation time and then ID so the order is stable.
func dueLess(a, b Task) bool {
	if a.HasDueDate != b.HasDueDate {
		return a.HasDueDate
	}
	if a.HasDueDate && !a.DueDate.Equal(b.DueDate) {
		return a.DueDate.Before(b.DueDate)
	}
	if !a.CreatedAt.Equal(b.CreatedAt) {
		return a.CreatedAt.Before(b.CreatedAt)
	}
	return a.ID < b.ID
}

// SortByDueDate sorts tasks in place ascending by due date; tasks without a
// due date go last.
func SortByDueDate(tasks []Task) {
	sort.SliceStable(tasks, func(i, j int) bool {
		return dueLess(tasks[i], tasks[j])
	})
}

// FilterTasks returns the tasks for which keep returns true, preserving order.
func FilterTasks(tasks []Task, keep func(Task) bool) []Task {
	result := make([]Task, 0, len(tasks))
	for _, t := range tasks {
		if keep(t) {
			result = append(result, t)
		}
	}
	return result
}
