package observability

import (
	"os"
	"path/filepath"
	"sync"
	"testing"
	"time"
)

func TestEventLog_WriteAndRead(t *testing.T) {
	path := filepath.Join(t.TempDir(), "events.jsonl")
	log, err := NewJSONLEventLog(path)
	if err != nil {
		t.Fatalf("creating event log: %v", err)
	}
	defer log.Close()

	now := time.Now().UTC().Truncate(time.Millisecond)
	events := []Event{
		{
			Time:    now,
			Level:   "INFO",
			Type:    "task.created",
			Message: "task created",
			Data:    map[string]any{"task_id": "7d1c2a4e"},
		},
		{
			Time:    now.Add(time.Second),
			Level:   "WARN",
			Type:    "reminder.failed",
			Message: "reminder failed",
			Data:    map[string]any{"task_id": "7d1c2a4e", "op": "deliver"},
		},
	}

	for _, e := range events {
		if err := log.Write(e); err != nil {
			t.Fatalf("writing event: %v", err)
		}
	}

	result, err := log.Read(EventFilter{})
	if err != nil {
		t.Fatalf("reading events: %v", err)
	}

	if len(result) != 2 {
		t.Fatalf("expected 2 events, got %d", len(result))
	}

	if result[0].Type != "task.created" {
		t.Errorf("expected type task.created, got %s", result[0].Type)
	}
	if result[0].Message != "task created" {
		t.Errorf("expected message 'task created', got %s", result[0].Message)
	}
	if result[1].Level != "WARN" {
		t.Errorf("expected level WARN, got %s", result[1].Level)
	}
}

func TestEventLog_FilterByType(t *testing.T) {
	path := filepath.Join(t.TempDir(), "events.jsonl")
	log, err := NewJSONLEventLog(path)
	if err != nil {
		t.Fatalf("creating event log: %v", err)
	}
	defer log.Close()

	now := time.Now().UTC()
	events := []Event{
		{Time: now, Level: "INFO", Type: "task.created", Message: "created"},
		{Time: now.Add(time.Second), Level: "INFO", Type: "task.completed", Message: "completed"},
		{Time: now.Add(2 * time.Second), Level: "INFO", Type: "task.created", Message: "another created"},
	}

	for _, e := range events {
		if err := log.Write(e); err != nil {
			t.Fatalf("writing event: %v", err)
		}
	}

	result, err := log.Read(EventFilter{Type: "task.created"})
	if err != nil {
		t.Fatalf("reading events: %v", err)
	}

	if len(result) != 2 {
		t.Fatalf("expected 2 events of type task.created, got %d", len(result))
	}

	for _, e := range result {
		if e.Type != "task.created" {
			t.Errorf("expected type task.created, got %s", e.Type)
		}
	}
}

func TestEventLog_FilterByTimeRange(t *testing.T) {
	path := filepath.Join(t.TempDir(), "events.jsonl")
	log, err := NewJSONLEventLog(path)
	if err != nil {
		t.Fatalf("creating event log: %v", err)
	}
	defer log.Close()

	base := time.Date(2025, 1, 15, 10, 0, 0, 0, time.UTC)
	events := []Event{
		{Time: base, Level: "INFO", Type: "task.created", Message: "first"},
		{Time: base.Add(time.Hour), Level: "INFO", Type: "task.created", Message: "second"},
		{Time: base.Add(2 * time.Hour), Level: "INFO", Type: "task.created", Message: "third"},
		{Time: base.Add(3 * time.Hour), Level: "INFO", Type: "task.created", Message: "fourth"},
	}

	for _, e := range events {
		if err := log.Write(e); err != nil {
			t.Fatalf("writing event: %v", err)
		}
	}

	since := base.Add(30 * time.Minute)
	until := base.Add(2*time.Hour + 30*time.Minute)
	result, err := log.Read(EventFilter{Since: &since, Until: &until})
	if err != nil {
		t.Fatalf("reading events: %v", err)
	}

	if len(result) != 2 {
		t.Fatalf("expected 2 events in time range, got %d", len(result))
	}

	if result[0].Message != "second" {
		t.Errorf("expected 'second', got %s", result[0].Message)
	}
	if result[1].Message != "third" {
		t.Errorf("expected 'third', got %s", result[1].Message)
	}
}

func TestEventLog_FilterByLevel(t *testing.T) {
	path := filepath.Join(t.TempDir(), "events.jsonl")
	log, err := NewJSONLEventLog(path)
	if err != nil {
		t.Fatalf("creating event log: %v", err)
	}
	defer log.Close()

	now := time.Now().UTC()
	events := []Event{
		{Time: now, Level: "INFO", Type: "task.created", Message: "info event"},
		{Time: now.Add(time.Second), Level: "WARN", Type: "reminder.failed", Message: "warn event"},
		{Time: now.Add(2 * time.Second), Level: "ERROR", Type: "task.deleted", Message: "error event"},
		{Time: now.Add(3 * time.Second), Level: "WARN", Type: "reminder.failed", Message: "another warn"},
	}

	for _, e := range events {
		if err := log.Write(e); err != nil {
			t.Fatalf("writing event: %v", err)
		}
	}

	result, err := log.Read(EventFilter{Level: "WARN"})
	if err != nil {
		t.Fatalf("reading events: %v", err)
	}

	if len(result) != 2 {
		t.Fatalf("expected 2 WARN events, got %d", len(result))
	}

	for _, e := range result {
		if e.Level != "WARN" {
			t.Errorf("expected level WARN, got %s", e.Level)
		}
	}
}

func TestEventLog_EmptyLog(t *testing.T) {
	path := filepath.Join(t.TempDir(), "events.jsonl")
	log, err := NewJSONLEventLog(path)
	if err != nil {
		t.Fatalf("creating event log: %v", err)
	}
	defer log.Close()

	result, err := log.Read(EventFilter{})
	if err != nil {
		t.Fatalf("reading empty log: %v", err)
	}

	if len(result) != 0 {
		t.Errorf("expected 0 events from empty log, got %d", len(result))
	}
}

func TestEventLog_ConcurrentWrites(t *testing.T) {
	path := filepath.Join(t.TempDir(), "events.jsonl")
	log, err := NewJSONLEventLog(path)
	if err != nil {
		t.Fatalf("creating event log: %v", err)
	}
	defer log.Close()

	const goroutines = 10
	const eventsPerGoroutine = 20

	var wg sync.WaitGroup
	wg.Add(goroutines)

	for g := 0; g < goroutines; g++ {
		go func(id int) {
			defer wg.Done()
			for i := 0; i < eventsPerGoroutine; i++ {
				event := Event{
					Time:    time.Now().UTC(),
					Level:   "INFO",
					Type:    "task.created",
					Message: "concurrent event",
					Data:    map[string]any{"goroutine": id, "index": i},
				}
				if err := log.Write(event); err != nil {
					t.Errorf("concurrent write error: %v", err)
				}
			}
		}(g)
	}

	wg.Wait()

	result, err := log.Read(EventFilter{})
	if err != nil {
		t.Fatalf("reading events after concurrent writes: %v", err)
	}

	expected := goroutines * eventsPerGoroutine
	if len(result) != expected {
		t.Errorf("expected %d events, got %d", expected, len(result))
	}
}

func TestEventLog_FilterByPrefix(t *testing.T) {
	path := filepath.Join(t.TempDir(), "events.jsonl")
	log, err := NewJSONLEventLog(path)
	if err != nil {
		t.Fatalf("creating event log: %v", err)
	}
	defer log.Close()

	for _, typ := range []string{"task.created", "reminder.scheduled", "task.completed", "reminder.delivered"} {
		if err := log.Write(NewEvent(typ, nil)); err != nil {
			t.Fatalf("writing event: %v", err)
		}
	}

	result, err := log.Read(EventFilter{Prefix: "reminder."})
	if err != nil {
		t.Fatalf("reading events: %v", err)
	}
	if len(result) != 2 {
		t.Fatalf("expected 2 reminder events, got %d", len(result))
	}
	if result[0].Type != "reminder.scheduled" || result[1].Type != "reminder.delivered" {
		t.Errorf("unexpected order: %s, %s", result[0].Type, result[1].Type)
	}
}

func TestEventLog_SkipsMalformedLines(t *testing.T) {
	path := filepath.Join(t.TempDir(), "events.jsonl")
	log, err := NewJSONLEventLog(path)
	if err != nil {
		t.Fatalf("creating event log: %v", err)
	}
	defer log.Close()

	if err := log.Write(NewEvent("task.created", nil)); err != nil {
		t.Fatalf("writing event: %v", err)
	}
	f, err := os.OpenFile(path, os.O_APPEND|os.O_WRONLY, 0o600)
	if err != nil {
		t.Fatalf("opening log: %v", err)
	}
	_, _ = f.WriteString("{not json\n\n")
	_ = f.Close()
	if err := log.Write(NewEvent("task.deleted", nil)); err != nil {
		t.Fatalf("writing event: %v", err)
	}

	result, err := log.Read(EventFilter{})
	if err != nil {
		t.Fatalf("reading events: %v", err)
	}
	if len(result) != 2 {
		t.Errorf("expected 2 events, got %d", len(result))
	}
}

func TestNewEvent_Level(t *testing.T) {
	tests := []struct {
		eventType string
		level     string
		message   string
	}{
		{"task.created", "INFO", "task created"},
		{"reminder.delivered", "INFO", "reminder delivered"},
		{"reminder.failed", "WARN", "reminder failed"},
	}
	for _, tt := range tests {
		t.Run(tt.eventType, func(t *testing.T) {
			e := NewEvent(tt.eventType, map[string]any{"task_id": "x"})
			if e.Level != tt.level {
				t.Errorf("level = %s, want %s", e.Level, tt.level)
			}
			if e.Message != tt.message {
				t.Errorf("message = %q, want %q", e.Message, tt.message)
			}
			if e.Time.IsZero() || e.Time.Location() != time.UTC {
				t.Errorf("expected UTC timestamp, got %v", e.Time)
			}
		})
	}
}

func TestEventLog_TaskHistoryNewestLimit(t *testing.T) {
	path := filepath.Join(t.TempDir(), "events.jsonl")
	log, err := NewJSONLEventLog(path)
	if err != nil {
		t.Fatalf("creating event log: %v", err)
	}
	defer log.Close()

	writes := []struct {
		typ  string
		task string
	}{
		{"task.created", "a"},
		{"task.created", "b"},
		{"reminder.scheduled", "a"},
		{"reminder.permission", ""},
		{"reminder.delivered", "a"},
		{"task.completed", "a"},
	}
	for _, w := range writes {
		data := map[string]any{}
		if w.task != "" {
			data["task_id"] = w.task
		}
		if err := log.Write(NewEvent(w.typ, data)); err != nil {
			t.Fatalf("writing event: %v", err)
		}
	}

	all, err := log.Read(EventFilter{TaskID: "a"})
	if err != nil {
		t.Fatalf("reading events: %v", err)
	}
	if len(all) != 4 {
		t.Fatalf("expected 4 events for task a, got %d", len(all))
	}
	for _, e := range all {
		if e.TaskID() != "a" {
			t.Errorf("event %s belongs to %q", e.Type, e.TaskID())
		}
	}

	newest, err := log.Read(EventFilter{TaskID: "a", Limit: 2})
	if err != nil {
		t.Fatalf("reading events: %v", err)
	}
	if len(newest) != 2 || newest[0].Type != "reminder.delivered" || newest[1].Type != "task.completed" {
		t.Errorf("newest = %+v, want [reminder.delivered task.completed]", newest)
	}
}
