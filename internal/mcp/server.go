// Package mcp provides an MCP (Model Context Protocol) server that exposes
// ReminderWave tasks as MCP tools for AI assistants.
package mcp

import (
	"context"
	"fmt"
	"strings"
	"time"

	gomcp "github.com/modelcontextprotocol/go-sdk/mcp"

	"github.com/valter-silva-au/reminderwave/internal/core"
	"github.com/valter-silva-au/reminderwave/internal/observability"
	"github.com/valter-silva-au/reminderwave/pkg/models"
)

// Server wraps the task service and exposes it as MCP tools.
type Server struct {
	server      *gomcp.Server
	tasks       core.TaskService
	metricsCalc observability.MetricsCalculator
	alertEngine observability.AlertEngine
	now         func() time.Time
}

// NewServer creates a new MCP server over the given task service.
// metricsCalc and alertEngine may be nil if observability is disabled.
func NewServer(tasks core.TaskService, metricsCalc observability.MetricsCalculator, alertEngine observability.AlertEngine, version string) *Server {
	if version == "" {
		version = "dev"
	}

	s := &Server{
		tasks:       tasks,
		metricsCalc: metricsCalc,
		alertEngine: alertEngine,
		now:         time.Now,
	}

	s.server = gomcp.NewServer(
		&gomcp.Implementation{Name: "rwave", Version: version},
		nil,
	)

	s.registerTools()

	return s
}

// Run starts the MCP server on stdio, blocking until the client disconnects
// or the context is cancelled.
func (s *Server) Run(ctx context.Context) error {
	return s.server.Run(ctx, &gomcp.StdioTransport{})
}

// MCPServer returns the underlying mcp.Server for testing purposes.
func (s *Server) MCPServer() *gomcp.Server {
	return s.server
}

// --- Tool input/output types ---

type taskRefInput struct {
	TaskID string `json:"task_id" jsonschema:"the task ID or a unique prefix of it"`
}

type taskOutput struct {
	ID           string `json:"id"`
	Title        string `json:"title"`
	Notes        string `json:"notes,omitempty"`
	Completed    bool   `json:"completed"`
	Priority     string `json:"priority"`
	Due          string `json:"due,omitempty"`
	HasTime      bool   `json:"has_time"`
	HasReminder  bool   `json:"has_reminder"`
	Overdue      bool   `json:"overdue"`
	Created      string `json:"created"`
	LastModified string `json:"last_modified"`
}

type listTasksInput struct {
	Filter string `json:"filter,omitempty" jsonschema:"which tasks to list: all, active or completed. Defaults to all."`
}

type listTasksOutput struct {
	Tasks []taskOutput `json:"tasks"`
	Count int          `json:"count"`
}

type addTaskInput struct {
	Title    string `json:"title" jsonschema:"the task title"`
	Notes    string `json:"notes,omitempty" jsonschema:"free-form notes"`
	Due      string `json:"due,omitempty" jsonschema:"due date: 2006-01-02, 2006-01-02 15:04, today, tomorrow or +Nd, optionally followed by HH:MM"`
	Priority string `json:"priority,omitempty" jsonschema:"low, medium or high"`
	Reminder bool   `json:"reminder,omitempty" jsonschema:"schedule a reminder at the due time (requires a due time)"`
}

type upcomingInput struct {
	Days int `json:"days,omitempty" jsonschema:"number of days ahead to include. Defaults to the configured window."`
}

type messageOutput struct {
	Message string `json:"message"`
}

type getMetricsInput struct {
	Since string `json:"since,omitempty" jsonschema:"time window for metrics (e.g. 7d, 30d, 24h). Defaults to 7d."`
}

type metricsOutput struct {
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
	CompletionRate     float64        `json:"completion_rate"`
	EventCount         int            `json:"event_count"`
	OldestEvent        string         `json:"oldest_event,omitempty"`
	NewestEvent        string         `json:"newest_event,omitempty"`
}

type emptyInput struct{}

type alertOutput struct {
	ID          string `json:"id"`
	Condition   string `json:"condition"`
	Severity    string `json:"severity"`
	Message     string `json:"message"`
	TaskID      string `json:"task_id,omitempty"`
	TriggeredAt string `json:"triggered_at"`
}

type getAlertsOutput struct {
	Alerts []alertOutput `json:"alerts"`
	Count  int           `json:"count"`
}

// --- Tool registration ---

func (s *Server) registerTools() {
	gomcp.AddTool(s.server, &gomcp.Tool{
		Name:        "list_tasks",
		Description: "List tasks ordered by due date, optionally filtered to active or completed ones.",
	}, s.handleListTasks)

	gomcp.AddTool(s.server, &gomcp.Tool{
		Name:        "get_task",
		Description: "Get a task by ID or unique ID prefix.",
	}, s.handleGetTask)

	gomcp.AddTool(s.server, &gomcp.Tool{
		Name:        "add_task",
		Description: "Create a task with an optional due date, priority and reminder.",
	}, s.handleAddTask)

	gomcp.AddTool(s.server, &gomcp.Tool{
		Name:        "toggle_task",
		Description: "Mark a task completed, or reopen it if it is already completed.",
	}, s.handleToggleTask)

	gomcp.AddTool(s.server, &gomcp.Tool{
		Name:        "delete_task",
		Description: "Delete a task and cancel its reminder.",
	}, s.handleDeleteTask)

	gomcp.AddTool(s.server, &gomcp.Tool{
		Name:        "overdue_tasks",
		Description: "List open tasks whose due date has passed.",
	}, s.handleOverdueTasks)

	gomcp.AddTool(s.server, &gomcp.Tool{
		Name:        "upcoming_tasks",
		Description: "List open tasks due from now through the next few days.",
	}, s.handleUpcomingTasks)

	gomcp.AddTool(s.server, &gomcp.Tool{
		Name:        "get_metrics",
		Description: "Get aggregated metrics from the event log: tasks created, completed and deleted, and reminder outcomes.",
	}, s.handleGetMetrics)

	gomcp.AddTool(s.server, &gomcp.Tool{
		Name:        "get_alerts",
		Description: "Evaluate and return active alerts (overdue tasks, tasks due today, too many open tasks, failed reminders).",
	}, s.handleGetAlerts)
}

// --- Tool handlers ---

func (s *Server) handleListTasks(ctx context.Context, _ *gomcp.CallToolRequest, input listTasksInput) (*gomcp.CallToolResult, listTasksOutput, error) {
	mode := models.FilterAll
	if input.Filter != "" {
		mode = models.FilterMode(strings.ToLower(input.Filter))
	}
	if !mode.Valid() {
		return errorResult(fmt.Sprintf("invalid filter %q: must be one of all, active, completed", input.Filter)), listTasksOutput{}, nil
	}
	if err := s.tasks.LoadTasks(ctx); err != nil {
		return errorResult(core.UserMessage(err)), listTasksOutput{}, nil
	}
	return nil, s.listOutput(models.FilterTasks(s.tasks.Tasks(), mode.Matches)), nil
}

func (s *Server) handleGetTask(ctx context.Context, _ *gomcp.CallToolRequest, input taskRefInput) (*gomcp.CallToolResult, taskOutput, error) {
	task, res := s.resolve(ctx, input.TaskID)
	if res != nil {
		return res, taskOutput{}, nil
	}
	return nil, s.taskToOutput(task), nil
}

func (s *Server) handleAddTask(ctx context.Context, _ *gomcp.CallToolRequest, input addTaskInput) (*gomcp.CallToolResult, taskOutput, error) {
	draft := core.TaskDraft{
		Title:        input.Title,
		Notes:        input.Notes,
		WantReminder: input.Reminder,
		Priority:     models.Priority(strings.ToLower(input.Priority)),
	}
	if input.Due != "" {
		due, hasTime, err := core.ParseDue(input.Due, s.now())
		if err != nil {
			return errorResult(core.UserMessage(err)), taskOutput{}, nil
		}
		draft.DueDate = &due
		draft.HasTime = hasTime
	}

	task, err := s.tasks.AddTask(ctx, draft)
	if err != nil {
		return errorResult(core.UserMessage(err)), taskOutput{}, nil
	}
	return nil, s.taskToOutput(task), nil
}

func (s *Server) handleToggleTask(ctx context.Context, _ *gomcp.CallToolRequest, input taskRefInput) (*gomcp.CallToolResult, taskOutput, error) {
	task, res := s.resolve(ctx, input.TaskID)
	if res != nil {
		return res, taskOutput{}, nil
	}
	updated, err := s.tasks.ToggleCompletion(ctx, task)
	if err != nil {
		return errorResult(core.UserMessage(err)), taskOutput{}, nil
	}
	return nil, s.taskToOutput(updated), nil
}

func (s *Server) handleDeleteTask(ctx context.Context, _ *gomcp.CallToolRequest, input taskRefInput) (*gomcp.CallToolResult, messageOutput, error) {
	task, res := s.resolve(ctx, input.TaskID)
	if res != nil {
		return res, messageOutput{}, nil
	}
	if err := s.tasks.DeleteTask(ctx, task); err != nil {
		return errorResult(core.UserMessage(err)), messageOutput{}, nil
	}
	return nil, messageOutput{Message: fmt.Sprintf("task %s deleted", core.ShortID(task.ID))}, nil
}

func (s *Server) handleOverdueTasks(ctx context.Context, _ *gomcp.CallToolRequest, _ emptyInput) (*gomcp.CallToolResult, listTasksOutput, error) {
	if err := s.tasks.LoadTasks(ctx); err != nil {
		return errorResult(core.UserMessage(err)), listTasksOutput{}, nil
	}
	return nil, s.listOutput(s.tasks.OverdueTasks()), nil
}

func (s *Server) handleUpcomingTasks(ctx context.Context, _ *gomcp.CallToolRequest, input upcomingInput) (*gomcp.CallToolResult, listTasksOutput, error) {
	if input.Days < 0 {
		return errorResult("days must not be negative"), listTasksOutput{}, nil
	}
	days := input.Days
	if days == 0 {
		days = s.tasks.UpcomingWindow()
	}
	if err := s.tasks.LoadTasks(ctx); err != nil {
		return errorResult(core.UserMessage(err)), listTasksOutput{}, nil
	}
	return nil, s.listOutput(s.tasks.UpcomingTasks(days)), nil
}

func (s *Server) handleGetMetrics(_ context.Context, _ *gomcp.CallToolRequest, input getMetricsInput) (*gomcp.CallToolResult, metricsOutput, error) {
	if s.metricsCalc == nil {
		return errorResult("metrics calculator not available (observability may be disabled)"), emptyMetricsOutput(), nil
	}

	sinceStr := input.Since
	if sinceStr == "" {
		sinceStr = "7d"
	}

	sinceTime, err := ParseSince(sinceStr, s.now())
	if err != nil {
		return errorResult(fmt.Sprintf("parsing since duration: %s", err)), emptyMetricsOutput(), nil
	}

	metrics, err := s.metricsCalc.Calculate(sinceTime)
	if err != nil {
		return errorResult(fmt.Sprintf("calculating metrics: %s", err)), emptyMetricsOutput(), nil
	}

	out := metricsOutput{
		TasksCreated:       metrics.TasksCreated,
		TasksUpdated:       metrics.TasksUpdated,
		TasksCompleted:     metrics.TasksCompleted,
		TasksReopened:      metrics.TasksReopened,
		TasksDeleted:       metrics.TasksDeleted,
		TasksByPriority:    metrics.TasksByPriority,
		RemindersScheduled: metrics.RemindersScheduled,
		RemindersCancelled: metrics.RemindersCancelled,
		RemindersDelivered: metrics.RemindersDelivered,
		RemindersFailed:    metrics.RemindersFailed,
		CompletionRate:     metrics.CompletionRate(),
		EventCount:         metrics.EventCount,
	}
	if metrics.OldestEvent != nil {
		out.OldestEvent = metrics.OldestEvent.Format(time.RFC3339)
	}
	if metrics.NewestEvent != nil {
		out.NewestEvent = metrics.NewestEvent.Format(time.RFC3339)
	}

	return nil, out, nil
}

func (s *Server) handleGetAlerts(ctx context.Context, _ *gomcp.CallToolRequest, _ emptyInput) (*gomcp.CallToolResult, getAlertsOutput, error) {
	if s.alertEngine == nil {
		return errorResult("alert engine not available (observability may be disabled)"), getAlertsOutput{}, nil
	}

	alerts, err := s.alertEngine.Evaluate(ctx)
	if err != nil {
		return errorResult(fmt.Sprintf("evaluating alerts: %s", err)), getAlertsOutput{}, nil
	}

	out := getAlertsOutput{
		Alerts: make([]alertOutput, len(alerts)),
		Count:  len(alerts),
	}
	for i, a := range alerts {
		out.Alerts[i] = alertOutput{
			ID:          a.ID,
			Condition:   a.Condition,
			Severity:    string(a.Severity),
			Message:     a.Message,
			TaskID:      a.TaskID,
			TriggeredAt: a.TriggeredAt.Format(time.RFC3339),
		}
	}

	return nil, out, nil
}

// --- Helpers ---

// resolve reloads the task list and looks up ref. On failure it returns the
// error result to hand back to the client.
func (s *Server) resolve(ctx context.Context, ref string) (models.Task, *gomcp.CallToolResult) {
	if strings.TrimSpace(ref) == "" {
		return models.Task{}, errorResult("task_id is required")
	}
	if err := s.tasks.LoadTasks(ctx); err != nil {
		return models.Task{}, errorResult(core.UserMessage(err))
	}
	task, err := core.ResolveTaskRef(s.tasks.Tasks(), ref)
	if err != nil {
		return models.Task{}, errorResult(err.Error())
	}
	return task, nil
}

func (s *Server) listOutput(tasks []models.Task) listTasksOutput {
	out := listTasksOutput{
		Tasks: make([]taskOutput, len(tasks)),
		Count: len(tasks),
	}
	for i, t := range tasks {
		out.Tasks[i] = s.taskToOutput(t)
	}
	return out
}

func (s *Server) taskToOutput(t models.Task) taskOutput {
	out := taskOutput{
		ID:           t.ID,
		Title:        t.Title,
		Notes:        t.Notes,
		Completed:    t.IsCompleted,
		Priority:     string(t.Priority),
		HasTime:      t.HasTime,
		HasReminder:  t.HasReminder,
		Overdue:      t.IsOverdue(s.now()),
		Created:      t.CreatedAt.Format(time.RFC3339),
		LastModified: t.LastModified.Format(time.RFC3339),
	}
	if t.HasDueDate {
		if t.HasTime {
			out.Due = t.DueDate.Format("2006-01-02 15:04")
		} else {
			out.Due = t.DueDate.Format("2006-01-02")
		}
	}
	return out
}

func emptyMetricsOutput() metricsOutput {
	return metricsOutput{
		TasksByPriority: make(map[string]int),
	}
}

func errorResult(msg string) *gomcp.CallToolResult {
	return &gomcp.CallToolResult{
		Content: []gomcp.Content{&gomcp.TextContent{Text: msg}},
		IsError: true,
	}
}

// ParseSince parses a human-friendly duration string like "7d", "30d", or
// "24h" into the corresponding time before now.
func ParseSince(s string, now time.Time) (time.Time, error) {
	if len(s) < 2 {
		return time.Time{}, fmt.Errorf("invalid duration %q", s)
	}

	suffix := s[len(s)-1]
	numStr := s[:len(s)-1]
	var num int
	if _, err := fmt.Sscanf(numStr, "%d", &num); err != nil {
		return time.Time{}, fmt.Errorf("invalid duration %q: %w", s, err)
	}

	switch suffix {
	case 'd':
		return now.AddDate(0, 0, -num), nil
	case 'h':
		return now.Add(-time.Duration(num) * time.Hour), nil
	default:
		return time.Time{}, fmt.Errorf("unsupported duration suffix %q (use d or h)", string(suffix))
	}
}
