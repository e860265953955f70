package observability

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/valter-silva-au/reminderwave/pkg/models"
)

func TestSlackNotifier_NoAlerts(t *testing.T) {
	called := false
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		called = true
		w.WriteHeader(http.StatusOK)
	}))
	defer srv.Close()

	n := NewSlackNotifier(srv.URL)
	if err := n.Notify(context.Background(), nil); err != nil {
		t.Fatalf("expected no error, got %v", err)
	}
	if err := n.Notify(context.Background(), []Alert{}); err != nil {
		t.Fatalf("expected no error, got %v", err)
	}
	if called {
		t.Fatal("expected no HTTP request for empty alerts")
	}
}

func TestSlackNotifier_SendsAlerts(t *testing.T) {
	var receivedBody []byte
	var receivedContentType string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		receivedContentType = r.Header.Get("Content-Type")
		receivedBody, _ = io.ReadAll(r.Body)
		w.WriteHeader(http.StatusOK)
	}))
	defer srv.Close()

	n := NewSlackNotifier(srv.URL)
	alerts := []Alert{
		{
			ID:          "overdue-7d1c",
			Condition:   "task_overdue",
			Severity:    SeverityHigh,
			Message:     `"Pay rent" is overdue (due Mon Mar 10)`,
			TriggeredAt: time.Date(2025, 1, 15, 10, 30, 0, 0, time.UTC),
		},
		{
			ID:          "today-9a2b",
			Condition:   "task_due_today",
			Severity:    SeverityMedium,
			Message:     `"Call dentist" is due today (Mon Mar 10 15:00)`,
			TriggeredAt: time.Date(2025, 1, 15, 10, 30, 0, 0, time.UTC),
		},
	}

	if err := n.Notify(context.Background(), alerts); err != nil {
		t.Fatalf("expected no error, got %v", err)
	}

	if receivedContentType != "application/json" {
		t.Errorf("expected Content-Type application/json, got %s", receivedContentType)
	}

	var msg slackMessage
	if err := json.Unmarshal(receivedBody, &msg); err != nil {
		t.Fatalf("unmarshaling request body: %v", err)
	}

	// header + section + divider + section
	if len(msg.Blocks) != 4 {
		t.Fatalf("expected 4 blocks, got %d", len(msg.Blocks))
	}
	if msg.Blocks[0].Type != "header" {
		t.Errorf("expected first block type header, got %s", msg.Blocks[0].Type)
	}
	if msg.Blocks[0].Text == nil || msg.Blocks[0].Text.Text != "ReminderWave Alert Summary" {
		t.Errorf("expected header text 'ReminderWave Alert Summary', got %v", msg.Blocks[0].Text)
	}
	if msg.Blocks[2].Type != "divider" {
		t.Errorf("expected third block type divider, got %s", msg.Blocks[2].Type)
	}

	body := string(receivedBody)
	for _, want := range []string{"Pay rent", "Call dentist", "2025-01-15 10:30 UTC", "[HIGH]"} {
		if !strings.Contains(body, want) {
			t.Errorf("expected body to contain %q", want)
		}
	}
}

func TestSlackNotifier_ServerError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
	}))
	defer srv.Close()

	n := NewSlackNotifier(srv.URL)
	err := n.Notify(context.Background(), []Alert{{ID: "x", Severity: SeverityHigh, Message: "m", TriggeredAt: time.Now().UTC()}})
	if err == nil {
		t.Fatal("expected error for 500 response, got nil")
	}
	if !strings.Contains(err.Error(), "500") {
		t.Errorf("expected error to contain status code 500, got: %s", err.Error())
	}
}

func TestSlackNotifier_SeverityEmojis(t *testing.T) {
	tests := []struct {
		severity AlertSeverity
		emoji    string
	}{
		{SeverityHigh, "\U0001f534"},
		{SeverityMedium, "\U0001f7e1"},
		{SeverityLow, "\U0001f535"},
	}

	for _, tt := range tests {
		t.Run(string(tt.severity), func(t *testing.T) {
			msg := buildAlertMessage([]Alert{{Severity: tt.severity, Message: "m", TriggeredAt: time.Now()}})
			if !strings.Contains(msg.Blocks[1].Text.Text, tt.emoji) {
				t.Errorf("expected emoji %s for severity %s", tt.emoji, tt.severity)
			}
		})
	}
}

func TestSlackReminderDeliverer_Deliver(t *testing.T) {
	var msg slackMessage
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_ = json.NewDecoder(r.Body).Decode(&msg)
		w.WriteHeader(http.StatusOK)
	}))
	defer srv.Close()

	d := NewSlackReminderDeliverer(srv.URL)
	if d.Name() != "slack" {
		t.Errorf("expected name slack, got %s", d.Name())
	}

	n := models.Notification{
		TaskID:   "7d1c",
		Title:    models.ReminderTitle,
		Body:     "Buy milk",
		Priority: models.PriorityHigh,
		FireAt:   time.Date(2025, 3, 10, 17, 0, 0, 0, time.Local),
	}
	if err := d.Deliver(context.Background(), n); err != nil {
		t.Fatalf("delivering reminder: %v", err)
	}

	if len(msg.Blocks) != 2 {
		t.Fatalf("expected 2 blocks, got %d", len(msg.Blocks))
	}
	if msg.Blocks[0].Text.Text != models.ReminderTitle {
		t.Errorf("expected header %q, got %q", models.ReminderTitle, msg.Blocks[0].Text.Text)
	}
	section := msg.Blocks[1].Text.Text
	if !strings.Contains(section, "Buy milk") || !strings.Contains(section, "Mon Mar 10 17:00") {
		t.Errorf("unexpected section text %q", section)
	}
	if !strings.Contains(section, "\U0001f534") {
		t.Errorf("expected high priority marker in %q", section)
	}
}

func TestSlackReminderDeliverer_Failure(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusForbidden)
	}))
	defer srv.Close()

	d := NewSlackReminderDeliverer(srv.URL)
	if err := d.Deliver(context.Background(), models.Notification{TaskID: "x", Body: "b"}); err == nil {
		t.Fatal("expected error for 403 response")
	}
}
