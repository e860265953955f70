package cli

import (
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/charmbracelet/lipgloss"

	"github.com/valter-silva-au/reminderwave/internal/core"
	"github.com/valter-silva-au/reminderwave/pkg/models"
)

// Due-date colours by urgency.
var (
	dueOverdue = lipgloss.NewStyle().Foreground(lipgloss.Color("196")).Bold(true)
	dueToday   = lipgloss.NewStyle().Foreground(lipgloss.Color("208"))
	dueSoon    = lipgloss.NewStyle().Foreground(lipgloss.Color("226"))
	dueLater   = lipgloss.NewStyle().Foreground(lipgloss.Color("69"))

	completedStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("241")).Strikethrough(true)
	idStyle        = lipgloss.NewStyle().Foreground(lipgloss.Color("241"))

	priorityHigh   = lipgloss.NewStyle().Foreground(lipgloss.Color("196"))
	priorityMedium = lipgloss.NewStyle().Foreground(lipgloss.Color("226"))
	priorityLow    = lipgloss.NewStyle().Foreground(lipgloss.Color("46"))
)

// dueUrgency classifies an open task for colouring: overdue, due today,
// due within two days, or later.
type dueUrgency int

const (
	urgencyNone dueUrgency = iota
	urgencyOverdue
	urgencyToday
	urgencySoon
	urgencyLater
)

func urgencyOf(t models.Task, now time.Time) dueUrgency {
	switch {
	case !t.HasDueDate || t.IsCompleted:
		return urgencyNone
	case t.IsOverdue(now):
		return urgencyOverdue
	case t.IsDueToday(now):
		return urgencyToday
	case t.DaysUntilDue(now) <= 2:
		return urgencySoon
	default:
		return urgencyLater
	}
}

func styleForUrgency(u dueUrgency) lipgloss.Style {
	switch u {
	case urgencyOverdue:
		return dueOverdue
	case urgencyToday:
		return dueToday
	case urgencySoon:
		return dueSoon
	case urgencyLater:
		return dueLater
	default:
		return lipgloss.NewStyle()
	}
}

func styleForPriority(p models.Priority) lipgloss.Style {
	switch p {
	case models.PriorityHigh:
		return priorityHigh
	case models.PriorityLow:
		return priorityLow
	default:
		return priorityMedium
	}
}

func dateFormats() (string, string) {
	dateFmt, timeFmt := "Mon Jan 2", "15:04"
	if Config != nil {
		if Config.Display.DateFormat != "" {
			dateFmt = Config.Display.DateFormat
		}
		if Config.Display.TimeFormat != "" {
			timeFmt = Config.Display.TimeFormat
		}
	}
	return dateFmt, timeFmt
}

// formatDue renders a due date using the configured display formats.
func formatDue(t models.Task) string {
	if !t.HasDueDate {
		return "-"
	}
	dateFmt, timeFmt := dateFormats()
	due := t.DueDate.Local()
	if t.HasTime {
		return due.Format(dateFmt + " " + timeFmt)
	}
	return due.Format(dateFmt)
}

// printTasks writes tasks as a table. Column widths are computed on the plain
// text so ANSI styling does not break alignment.
func printTasks(w io.Writer, tasks []models.Task, now time.Time) {
	dueWidth := len("DUE")
	for _, t := range tasks {
		if n := len(formatDue(t)); n > dueWidth {
			dueWidth = n
		}
	}

	fmt.Fprintf(w, "  %-8s %-3s %-6s %-*s %s\n", "ID", "", "PRI", dueWidth, "DUE", "TITLE")
	for _, t := range tasks {
		check := "[ ]"
		if t.IsCompleted {
			check = "[x]"
		}
		pri := fmt.Sprintf("%-6s", t.Priority)
		due := fmt.Sprintf("%-*s", dueWidth, formatDue(t))
		title := t.Title
		if t.HasReminder {
			title += " *"
		}
		if t.IsCompleted {
			title = completedStyle.Render(title)
		}
		fmt.Fprintf(w, "  %s %s %s %s %s\n",
			idStyle.Render(fmt.Sprintf("%-8s", core.ShortID(t.ID))),
			check,
			styleForPriority(t.Priority).Render(pri),
			styleForUrgency(urgencyOf(t, now)).Render(due),
			title,
		)
	}
}

// describeTask renders a one-line summary used after mutations.
func describeTask(t models.Task) string {
	var b strings.Builder
	b.WriteString(core.ShortID(t.ID))
	b.WriteString("  ")
	b.WriteString(t.Title)
	if t.HasDueDate {
		b.WriteString("  (due ")
		b.WriteString(formatDue(t))
		b.WriteString(")")
	}
	if t.HasReminder {
		b.WriteString("  [reminder]")
	}
	return b.String()
}
