package cli

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	tea "github.com/charmbracelet/bubbletea"

	"github.com/valter-silva-au/reminderwave/internal/core"
	"github.com/valter-silva-au/reminderwave/internal/observability"
	"github.com/valter-silva-au/reminderwave/pkg/models"
)

func TestDashboardModel_Init(t *testing.T) {
	m := newDashboardModel(context.Background())

	if m.activePanel != panelTasks {
		t.Errorf("expected activePanel = %d, got %d", panelTasks, m.activePanel)
	}
	if !m.loading {
		t.Error("expected loading = true on init")
	}
	if cmd := m.Init(); cmd == nil {
		t.Error("expected Init to return a non-nil command")
	}
}

func TestDashboardModel_KeyQ(t *testing.T) {
	m := newDashboardModel(context.Background())
	m.loading = false

	updated, cmd := m.Update(tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune{'q'}})
	if cmd == nil {
		t.Fatal("expected tea.Quit command from q key")
	}
	if _, ok := cmd().(tea.QuitMsg); !ok {
		t.Error("expected tea.QuitMsg")
	}
	if dm := updated.(dashboardModel); dm.activePanel != panelTasks {
		t.Errorf("expected activePanel unchanged, got %d", dm.activePanel)
	}
}

func TestDashboardModel_KeyTab(t *testing.T) {
	m := newDashboardModel(context.Background())

	updated, cmd := m.Update(tea.KeyMsg{Type: tea.KeyTab})
	if cmd != nil {
		t.Error("expected no command from tab key")
	}
	dm := updated.(dashboardModel)
	if dm.activePanel != panelMetrics {
		t.Errorf("expected panel %d after first tab, got %d", panelMetrics, dm.activePanel)
	}

	updated, _ = dm.Update(tea.KeyMsg{Type: tea.KeyTab})
	dm = updated.(dashboardModel)
	updated, _ = dm.Update(tea.KeyMsg{Type: tea.KeyTab})
	dm = updated.(dashboardModel)
	if dm.activePanel != panelTasks {
		t.Errorf("expected panel %d after wrap, got %d", panelTasks, dm.activePanel)
	}
}

func TestDashboardModel_KeyShiftTab(t *testing.T) {
	m := newDashboardModel(context.Background())

	updated, _ := m.Update(tea.KeyMsg{Type: tea.KeyShiftTab})
	if dm := updated.(dashboardModel); dm.activePanel != panelAlerts {
		t.Errorf("expected panel %d after shift+tab from 0, got %d", panelAlerts, dm.activePanel)
	}
}

func TestDashboardModel_KeyR(t *testing.T) {
	m := newDashboardModel(context.Background())
	m.loading = false

	updated, cmd := m.Update(tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune{'r'}})
	if !updated.(dashboardModel).loading {
		t.Error("expected loading = true after pressing r")
	}
	if cmd == nil {
		t.Error("expected a reload command from r key")
	}
}

func TestDashboardModel_DataLoadedView(t *testing.T) {
	origClock := clock
	defer func() { clock = origClock }()
	clock = func() time.Time { return testNow }

	m := newDashboardModel(context.Background())
	sized, _ := m.Update(tea.WindowSizeMsg{Width: 160, Height: 50})

	overdue := models.Task{ID: "a", Title: "Pay rent", HasDueDate: true, DueDate: testNow.AddDate(0, 0, -2)}
	msg := dataLoadedMsg{
		tasks: &taskSnapshot{
			active:    4,
			completed: 1,
			overdue:   []models.Task{overdue},
			window:    3,
		},
		metrics: &metricsSnapshot{tasksCreated: 5, tasksCompleted: 1, remindersDelivered: 2, eventCount: 9},
		alerts: []alertSnapshot{
			{severity: "high", message: "Pay rent is overdue", time: "2026-03-10 09:00 UTC"},
		},
	}
	updated, cmd := sized.Update(msg)
	if cmd != nil {
		t.Error("expected no command after dataLoadedMsg")
	}
	dm := updated.(dashboardModel)
	if dm.loading {
		t.Error("expected loading = false after data loaded")
	}

	view := dm.View()
	for _, want := range []string{"ReminderWave", "Overdue (1)", "Pay rent", "Reminded", "[HIGH]"} {
		if !strings.Contains(view, want) {
			t.Errorf("view missing %q:\n%s", want, view)
		}
	}
}

func TestDashboardModel_ErrorView(t *testing.T) {
	m := newDashboardModel(context.Background())
	sized, _ := m.Update(tea.WindowSizeMsg{Width: 80, Height: 24})

	updated, _ := sized.Update(dataLoadedMsg{err: errors.New("store offline")})
	view := updated.(dashboardModel).View()
	if !strings.Contains(view, "store offline") {
		t.Errorf("view should show the error:\n%s", view)
	}
}

func TestDashboardModel_ViewBeforeResize(t *testing.T) {
	m := newDashboardModel(context.Background())
	if got := m.View(); got != "Loading..." {
		t.Errorf("View() = %q, want Loading...", got)
	}
}

func TestLoadData_FromService(t *testing.T) {
	env := setupTasks(t, true)
	env.add(t, core.TaskDraft{Title: "Late", DueDate: dueAt(testNow.AddDate(0, 0, -1))})
	env.add(t, core.TaskDraft{Title: "Soon", DueDate: dueAt(testNow.AddDate(0, 0, 2))})

	origMetrics, origAlerts := MetricsCalc, AlertEngine
	defer func() { MetricsCalc, AlertEngine = origMetrics, origAlerts }()
	MetricsCalc = &metricsMock{metrics: &observability.Metrics{TasksCreated: 2, EventCount: 2}}
	AlertEngine = observability.NewAlertEngine(env.store, nil, observability.DefaultAlertThresholds())

	msg := loadData(context.Background())
	if msg.err != nil {
		t.Fatalf("loadData error = %v", msg.err)
	}
	if msg.tasks == nil || msg.tasks.active != 2 {
		t.Fatalf("tasks = %+v, want 2 active", msg.tasks)
	}
	if len(msg.tasks.overdue) != 1 || msg.tasks.overdue[0].Title != "Late" {
		t.Errorf("overdue = %+v", msg.tasks.overdue)
	}
	if len(msg.tasks.upcoming) != 1 || msg.tasks.upcoming[0].Title != "Soon" {
		t.Errorf("upcoming = %+v", msg.tasks.upcoming)
	}
	if msg.metrics == nil || msg.metrics.tasksCreated != 2 {
		t.Errorf("metrics = %+v", msg.metrics)
	}
	if len(msg.alerts) == 0 {
		t.Error("expected an overdue alert")
	}
}

func TestLoadData_MetricsError(t *testing.T) {
	setupTasks(t, true)

	origMetrics, origAlerts := MetricsCalc, AlertEngine
	defer func() { MetricsCalc, AlertEngine = origMetrics, origAlerts }()
	MetricsCalc = &metricsMock{err: errors.New("unreadable")}
	AlertEngine = nil

	msg := loadData(context.Background())
	if msg.err == nil || !strings.Contains(msg.err.Error(), "loading metrics") {
		t.Errorf("err = %v, want a metrics error", msg.err)
	}
}
