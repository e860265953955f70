package observability

import (
	"path/filepath"
	"testing"
	"time"
)

func TestMetricsCalculator_Calculate(t *testing.T) {
	path := filepath.Join(t.TempDir(), "events.jsonl")
	log, err := NewJSONLEventLog(path)
	if err != nil {
		t.Fatalf("creating event log: %v", err)
	}
	defer log.Close()

	base := time.Date(2025, 1, 15, 10, 0, 0, 0, time.UTC)
	events := []Event{
		{Time: base, Level: "INFO", Type: "task.created", Data: map[string]any{"task_id": "a", "priority": "high"}},
		{Time: base.Add(time.Hour), Level: "INFO", Type: "task.created", Data: map[string]any{"task_id": "b", "priority": "low"}},
		{Time: base.Add(2 * time.Hour), Level: "INFO", Type: "reminder.scheduled", Data: map[string]any{"task_id": "a"}},
		{Time: base.Add(3 * time.Hour), Level: "INFO", Type: "task.updated", Data: map[string]any{"task_id": "a"}},
		{Time: base.Add(4 * time.Hour), Level: "INFO", Type: "reminder.delivered", Data: map[string]any{"task_id": "a"}},
		{Time: base.Add(5 * time.Hour), Level: "INFO", Type: "task.completed", Data: map[string]any{"task_id": "a"}},
		{Time: base.Add(6 * time.Hour), Level: "INFO", Type: "task.reopened", Data: map[string]any{"task_id": "a"}},
		{Time: base.Add(7 * time.Hour), Level: "WARN", Type: "reminder.failed", Data: map[string]any{"task_id": "b"}},
		{Time: base.Add(8 * time.Hour), Level: "INFO", Type: "reminder.cancelled", Data: map[string]any{"task_id": "b"}},
		{Time: base.Add(9 * time.Hour), Level: "INFO", Type: "task.deleted", Data: map[string]any{"task_id": "b"}},
		{Time: base.Add(10 * time.Hour), Level: "INFO", Type: "reminder.permission", Data: map[string]any{"granted": true}},
	}

	for _, e := range events {
		if err := log.Write(e); err != nil {
			t.Fatalf("writing event: %v", err)
		}
	}

	calc := NewMetricsCalculator(log)
	m, err := calc.Calculate(base.Add(-time.Hour))
	if err != nil {
		t.Fatalf("calculating metrics: %v", err)
	}

	checks := []struct {
		name      string
		got, want int
	}{
		{"created", m.TasksCreated, 2},
		{"updated", m.TasksUpdated, 1},
		{"completed", m.TasksCompleted, 1},
		{"reopened", m.TasksReopened, 1},
		{"deleted", m.TasksDeleted, 1},
		{"scheduled", m.RemindersScheduled, 1},
		{"cancelled", m.RemindersCancelled, 1},
		{"delivered", m.RemindersDelivered, 1},
		{"failed", m.RemindersFailed, 1},
		{"events", m.EventCount, 11},
		{"high", m.TasksByPriority["high"], 1},
		{"low", m.TasksByPriority["low"], 1},
	}
	for _, c := range checks {
		if c.got != c.want {
			t.Errorf("%s: expected %d, got %d", c.name, c.want, c.got)
		}
	}

	if rate := m.CompletionRate(); rate != 0.5 {
		t.Errorf("expected completion rate 0.5, got %v", rate)
	}
	if m.OldestEvent == nil || !m.OldestEvent.Equal(base) {
		t.Errorf("expected oldest event at %v, got %v", base, m.OldestEvent)
	}
	expectedNewest := base.Add(10 * time.Hour)
	if m.NewestEvent == nil || !m.NewestEvent.Equal(expectedNewest) {
		t.Errorf("expected newest event at %v, got %v", expectedNewest, m.NewestEvent)
	}
}

func TestMetricsCalculator_EmptyLog(t *testing.T) {
	path := filepath.Join(t.TempDir(), "events.jsonl")
	log, err := NewJSONLEventLog(path)
	if err != nil {
		t.Fatalf("creating event log: %v", err)
	}
	defer log.Close()

	calc := NewMetricsCalculator(log)
	m, err := calc.Calculate(time.Now().UTC().Add(-time.Hour))
	if err != nil {
		t.Fatalf("calculating metrics: %v", err)
	}

	if m.TasksCreated != 0 {
		t.Errorf("expected 0 tasks created, got %d", m.TasksCreated)
	}
	if m.EventCount != 0 {
		t.Errorf("expected 0 events, got %d", m.EventCount)
	}
	if m.OldestEvent != nil {
		t.Errorf("expected nil oldest event, got %v", m.OldestEvent)
	}
	if m.CompletionRate() != 0 {
		t.Errorf("expected zero completion rate, got %v", m.CompletionRate())
	}
}

func TestMetricsCalculator_FiltersBySince(t *testing.T) {
	path := filepath.Join(t.TempDir(), "events.jsonl")
	log, err := NewJSONLEventLog(path)
	if err != nil {
		t.Fatalf("creating event log: %v", err)
	}
	defer log.Close()

	base := time.Date(2025, 1, 15, 10, 0, 0, 0, time.UTC)
	for i := 0; i < 4; i++ {
		e := Event{Time: base.Add(time.Duration(i) * 24 * time.Hour), Level: "INFO", Type: "task.created"}
		if err := log.Write(e); err != nil {
			t.Fatalf("writing event: %v", err)
		}
	}

	m, err := NewMetricsCalculator(log).Calculate(base.Add(36 * time.Hour))
	if err != nil {
		t.Fatalf("calculating metrics: %v", err)
	}
	if m.TasksCreated != 2 {
		t.Errorf("expected 2 tasks created since cutoff, got %d", m.TasksCreated)
	}
}
