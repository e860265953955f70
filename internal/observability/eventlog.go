package observability

import (
	"bufio"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"
)

// Event is one entry in the task and reminder history: a task was created,
// completed or deleted, a reminder was scheduled, delivered or failed.
type Event struct {
	Time    time.Time      `json:"time"`
	Level   string         `json:"level"` // INFO or WARN
	Type    string         `json:"type"`  // e.g. "task.created", "reminder.delivered"
	Message string         `json:"msg"`
	Data    map[string]any `json:"data,omitempty"`
}

// TaskID returns the task the event concerns, or "" for events such as a
// permission decision that belong to no task.
func (e Event) TaskID() string {
	id, _ := e.Data["task_id"].(string)
	return id
}

// EventFilter selects events from the history. Zero fields match everything.
type EventFilter struct {
	Since *time.Time
	Until *time.Time
	// Type matches one event type exactly; Prefix matches a family such as
	// "reminder.".
	Type   string
	Prefix string
	Level  string
	// TaskID keeps only the events of one task.
	TaskID string
	// Limit keeps the newest Limit matches when positive.
	Limit int
}

func (f EventFilter) matches(e Event) bool {
	switch {
	case f.Since != nil && e.Time.Before(*f.Since):
		return false
	case f.Until != nil && e.Time.After(*f.Until):
		return false
	case f.Type != "" && e.Type != f.Type:
		return false
	case f.Prefix != "" && !strings.HasPrefix(e.Type, f.Prefix):
		return false
	case f.Level != "" && e.Level != f.Level:
		return false
	case f.TaskID != "" && e.TaskID() != f.TaskID:
		return false
	}
	return true
}

// EventLog records the history that metrics, alerts and `rwave history` are
// derived from.
type EventLog interface {
	Write(event Event) error
	Read(filter EventFilter) ([]Event, error)
	Close() error
}

// jsonlEventLog appends one JSON object per line. The CLI and the daemon may
// share the file; each event goes out in a single write on an O_APPEND
// descriptor so lines never interleave.
type jsonlEventLog struct {
	path string
	file *os.File
	mu   sync.Mutex
}

// NewJSONLEventLog opens (creating if needed) the history file at path.
func NewJSONLEventLog(path string) (EventLog, error) {
	if err := os.MkdirAll(filepath.Dir(path), 0o750); err != nil {
		return nil, fmt.Errorf("creating event log directory: %w", err)
	}
	f, err := os.OpenFile(path, os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0o600)
	if err != nil {
		return nil, fmt.Errorf("opening event log: %w", err)
	}
	return &jsonlEventLog{path: path, file: f}, nil
}

func (l *jsonlEventLog) Write(event Event) error {
	line, err := json.Marshal(event)
	if err != nil {
		return fmt.Errorf("marshalling %s event: %w", event.Type, err)
	}
	line = append(line, '\n')

	l.mu.Lock()
	defer l.mu.Unlock()
	if _, err := l.file.Write(line); err != nil {
		return fmt.Errorf("writing %s event: %w", event.Type, err)
	}
	return nil
}

// Read returns the matching events oldest first. A line another process is
// still writing, or any other line that does not decode, is skipped.
func (l *jsonlEventLog) Read(filter EventFilter) ([]Event, error) {
	f, err := os.Open(l.path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, fmt.Errorf("opening event log for reading: %w", err)
	}
	defer func() { _ = f.Close() }()

	var events []Event
	scanner := bufio.NewScanner(f)
	// Titles are unbounded, so allow lines past the default 64KiB.
	scanner.Buffer(make([]byte, 0, 64*1024), 1024*1024)
	for scanner.Scan() {
		var event Event
		if err := json.Unmarshal(scanner.Bytes(), &event); err != nil {
			continue
		}
		if filter.matches(event) {
			events = append(events, event)
		}
	}
	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("scanning event log: %w", err)
	}

	if filter.Limit > 0 && len(events) > filter.Limit {
		events = events[len(events)-filter.Limit:]
	}
	return events, nil
}

func (l *jsonlEventLog) Close() error {
	l.mu.Lock()
	defer l.mu.Unlock()
	if err := l.file.Close(); err != nil {
		return fmt.Errorf("closing event log: %w", err)
	}
	return nil
}

// NewEvent stamps a task or reminder event with the current UTC time.
// Failures are recorded at WARN, everything else at INFO.
func NewEvent(eventType string, data map[string]any) Event {
	level := "INFO"
	if strings.HasSuffix(eventType, ".failed") {
		level = "WARN"
	}
	return Event{
		Time:    time.Now().UTC(),
		Level:   level,
		Type:    eventType,
		Message: strings.ReplaceAll(eventType, ".", " "),
		Data:    data,
	}
}
