package cli

import (
	"strings"
	"testing"
	"time"

	"github.com/valter-silva-au/reminderwave/internal/core"
)

func seedDueTasks(t *testing.T, env *testEnv) {
	t.Helper()
	env.add(t, core.TaskDraft{Title: "Yesterday's invoice", DueDate: dueAt(testNow.AddDate(0, 0, -1))})
	env.add(t, core.TaskDraft{Title: "Early call", DueDate: dueAt(testNow.Add(-time.Hour)), HasTime: true})
	env.add(t, core.TaskDraft{Title: "Lunch booking", DueDate: dueAt(testNow.Add(3 * time.Hour)), HasTime: true})
	env.add(t, core.TaskDraft{Title: "Friday review", DueDate: dueAt(testNow.AddDate(0, 0, 3))})
	env.add(t, core.TaskDraft{Title: "Next month", DueDate: dueAt(testNow.AddDate(0, 1, 0))})
	env.add(t, core.TaskDraft{Title: "No date"})
}

func TestOverdueCmd(t *testing.T) {
	env := setupTasks(t, true)
	seedDueTasks(t, env)

	out, err := runCommand(t, "overdue")
	if err != nil {
		t.Fatalf("overdue failed: %v", err)
	}
	for _, title := range []string{"Yesterday's invoice", "Early call"} {
		if !strings.Contains(out, title) {
			t.Errorf("overdue output missing %q:\n%s", title, out)
		}
	}
	for _, title := range []string{"Lunch booking", "Friday review", "No date"} {
		if strings.Contains(out, title) {
			t.Errorf("overdue output should not contain %q:\n%s", title, out)
		}
	}
}

func TestTodayCmd(t *testing.T) {
	env := setupTasks(t, true)
	seedDueTasks(t, env)

	out, err := runCommand(t, "today")
	if err != nil {
		t.Fatalf("today failed: %v", err)
	}
	if !strings.Contains(out, "Lunch booking") {
		t.Errorf("today output missing the lunch booking:\n%s", out)
	}
	if strings.Contains(out, "Yesterday's invoice") || strings.Contains(out, "Friday review") {
		t.Errorf("today output has tasks from other days:\n%s", out)
	}
}

func TestUpcomingCmd(t *testing.T) {
	env := setupTasks(t, true)
	seedDueTasks(t, env)

	out, err := runCommand(t, "upcoming")
	if err != nil {
		t.Fatalf("upcoming failed: %v", err)
	}
	for _, title := range []string{"Lunch booking", "Friday review"} {
		if !strings.Contains(out, title) {
			t.Errorf("upcoming output missing %q:\n%s", title, out)
		}
	}
	for _, title := range []string{"Early call", "Next month", "No date"} {
		if strings.Contains(out, title) {
			t.Errorf("upcoming output should not contain %q:\n%s", title, out)
		}
	}

	out, err = runCommand(t, "upcoming", "--days", "0")
	if err != nil {
		t.Fatalf("upcoming --days 0 failed: %v", err)
	}
	if strings.Contains(out, "Friday review") {
		t.Errorf("--days 0 should stop at the end of today:\n%s", out)
	}
}

func TestUpcomingCmd_NegativeDays(t *testing.T) {
	setupTasks(t, true)

	if _, err := runCommand(t, "upcoming", "--days", "-1"); err == nil {
		t.Error("expected error for negative --days")
	}
}

func TestDueCommands_Empty(t *testing.T) {
	setupTasks(t, true)

	tests := map[string]string{
		"overdue":  "Nothing overdue.",
		"today":    "Nothing due today.",
		"upcoming": "Nothing due in the next 3 day(s).",
	}
	for cmd, want := range tests {
		out, err := runCommand(t, cmd)
		if err != nil {
			t.Fatalf("%s failed: %v", cmd, err)
		}
		if !strings.Contains(out, want) {
			t.Errorf("%s output = %q, want %q", cmd, out, want)
		}
	}
}
