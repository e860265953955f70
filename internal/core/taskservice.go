package core

import (
	"context"
	"errors"
	"log/slog"
	"slices"
	"strings"
	"sync"
	"time"

	"github.com/valter-silva-au/reminderwave/pkg/models"
)

// ViewState is the state of the service's in-memory task view.
type ViewState int

const (
	// StateLoaded means the cached lists reflect the last successful load.
	StateLoaded ViewState = iota
	// StateError means the last operation failed. The previous lists are
	// retained and Err reports the failure.
	StateError
)

func (s ViewState) String() string {
	if s == StateError {
		return "error"
	}
	return "loaded"
}

// TaskDraft carries the fields a user submits when creating a task.
type TaskDraft struct {
	Title        string
	Notes        string
	DueDate      *time.Time
	HasTime      bool
	WantReminder bool
	Priority     models.Priority
}

// TaskCounts holds the sizes of the three filter views.
type TaskCounts struct {
	All       int `json:"all"`
	Active    int `json:"active"`
	Completed int `json:"completed"`
}

// TaskService coordinates the task store and reminder scheduler and exposes
// the filtered and derived views presentation layers render.
type TaskService interface {
	LoadTasks(ctx context.Context) error
	AddTask(ctx context.Context, draft TaskDraft) (models.Task, error)
	UpdateTask(ctx context.Context, task models.Task) (models.Task, error)
	ToggleCompletion(ctx context.Context, task models.Task) (models.Task, error)
	DeleteTask(ctx context.Context, task models.Task) error
	SetFilter(mode models.FilterMode) error

	Filter() models.FilterMode
	Tasks() []models.Task
	FilteredTasks() []models.Task
	Task(id string) (models.Task, bool)
	Counts() TaskCounts
	OverdueTasks() []models.Task
	UpcomingTasks(windowDays int) []models.Task
	DueTodayTasks() []models.Task
	UpcomingWindow() int
	State() ViewState
	Err() error

	RequestReminderPermission(ctx context.Context) <-chan bool
	ReminderPermitted() bool
	Subscribe(fn func(models.ChangeEvent)) (unsubscribe func())
}

// ServiceOption customizes a TaskService.
type ServiceOption func(*taskService)

// WithClock overrides the time source used for timestamps and due-date
// classification.
func WithClock(now func() time.Time) ServiceOption {
	return func(s *taskService) { s.now = now }
}

// WithLogger sets the structured logger.
func WithLogger(l *slog.Logger) ServiceOption {
	return func(s *taskService) { s.log = l }
}

// WithEventLogger records lifecycle events to the given logger.
func WithEventLogger(l EventLogger) ServiceOption {
	return func(s *taskService) { s.events = l }
}

// WithIDGenerator overrides how new task IDs are produced.
func WithIDGenerator(g TaskIDGenerator) ServiceOption {
	return func(s *taskService) { s.ids = g }
}

// WithDefaultPriority sets the priority given to drafts that leave it empty.
func WithDefaultPriority(p models.Priority) ServiceOption {
	return func(s *taskService) {
		if p.Valid() {
			s.defaultPriority = p
		}
	}
}

// WithUpcomingWindow sets the default forward window, in days, for upcoming
// tasks.
func WithUpcomingWindow(days int) ServiceOption {
	return func(s *taskService) {
		if days >= 0 {
			s.upcomingDays = days
		}
	}
}

type taskService struct {
	store     TaskStore
	scheduler ReminderScheduler
	events    EventLogger
	ids       TaskIDGenerator
	log       *slog.Logger
	now       func() time.Time

	defaultPriority models.Priority
	upcomingDays    int

	mu        sync.RWMutex
	tasks     []models.Task
	filtered  []models.Task
	filter    models.FilterMode
	state     ViewState
	lastErr   error
	permitted bool
	// resolved is set once RequestReminderPermission has answered.
	resolved bool

	subMu   sync.Mutex
	subs    map[int]func(models.ChangeEvent)
	nextSub int
}

// NewTaskService creates a TaskService over the given store and scheduler.
// scheduler may be nil, in which case no reminder is ever scheduled.
func NewTaskService(store TaskStore, scheduler ReminderScheduler, opts ...ServiceOption) TaskService {
	s := &taskService{
		store:           store,
		scheduler:       scheduler,
		ids:             NewTaskIDGenerator(),
		log:             slog.New(slog.DiscardHandler),
		now:             time.Now,
		defaultPriority: models.PriorityMedium,
		upcomingDays:    models.DefaultUpcomingWindowDays,
		filter:          models.FilterAll,
		subs:            make(map[int]func(models.ChangeEvent)),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// LoadTasks fetches every task from the store and recomputes the filtered
// view. On failure the service enters StateError and keeps its previous lists.
func (s *taskService) LoadTasks(ctx context.Context) error {
	tasks, err := s.store.List(ctx)
	if err != nil {
		err = NewStorageError("listing tasks", err)
		s.fail(err)
		return err
	}
	tasks = slices.Clone(tasks)
	models.SortByDueDate(tasks)

	s.mu.Lock()
	s.tasks = tasks
	s.filtered = models.FilterTasks(tasks, s.filter.Matches)
	s.state = StateLoaded
	s.lastErr = nil
	s.mu.Unlock()
	return nil
}

// AddTask validates the draft, persists the new task and, if the task ends up
// with a reminder, schedules it. A task that fails to persist is never
// scheduled; a task whose reminder fails to schedule is still kept.
func (s *taskService) AddTask(ctx context.Context, draft TaskDraft) (models.Task, error) {
	task, err := s.buildTask(draft)
	if err != nil {
		return models.Task{}, err
	}

	if err := s.store.Create(ctx, task); err != nil {
		err = NewStorageError("creating task", err)
		if errors.Is(err, ErrStorage) {
			s.fail(err)
		}
		return models.Task{}, err
	}
	s.logEvent(EventTaskCreated, taskEventData(task))

	if task.HasReminder {
		s.scheduleReminder(ctx, task)
	}

	s.reload(ctx)
	s.publish(models.ChangeCreated, task)
	return task, nil
}

// UpdateTask persists an edited task and brings its reminder in line: a task
// that keeps a reminder is rescheduled (replacing the old registration), a
// task that lost it has its reminder cancelled.
func (s *taskService) UpdateTask(ctx context.Context, task models.Task) (models.Task, error) {
	task.Title = strings.TrimSpace(task.Title)
	if err := validateTask(task); err != nil {
		return models.Task{}, err
	}

	previous, known := s.Task(task.ID)
	if task.HasReminder && !previous.HasReminder && !s.ReminderPermitted() {
		s.log.Info("reminder not permitted, saving task without it", "task_id", task.ID)
		task.HasReminder = false
	}
	task.DueDate = normalizeDue(task)
	task.LastModified = s.now()

	if err := s.store.Update(ctx, task); err != nil {
		return models.Task{}, s.mutationFailed(ctx, "updating task", err)
	}
	s.logEvent(EventTaskUpdated, taskEventData(task))

	switch {
	case task.HasReminder:
		s.scheduleReminder(ctx, task)
	case previous.HasReminder || !known:
		s.cancelReminder(ctx, task.ID)
	}

	s.reload(ctx)
	s.publish(models.ChangeUpdated, task)
	return task, nil
}

// ToggleCompletion flips the task's completion state and persists it. The
// reminder is left untouched either way.
func (s *taskService) ToggleCompletion(ctx context.Context, task models.Task) (models.Task, error) {
	task.IsCompleted = !task.IsCompleted
	task.LastModified = s.now()

	if err := s.store.Update(ctx, task); err != nil {
		return models.Task{}, s.mutationFailed(ctx, "updating task", err)
	}

	kind, eventType := models.ChangeCompleted, EventTaskCompleted
	if !task.IsCompleted {
		kind, eventType = models.ChangeReopened, EventTaskReopened
	}
	s.logEvent(eventType, taskEventData(task))

	s.reload(ctx)
	s.publish(kind, task)
	return task, nil
}

// DeleteTask cancels the task's reminder, removes the task and reloads. The
// cancellation is best effort and happens regardless of the store outcome.
// Deleting a task that is already gone resynchronizes and succeeds.
func (s *taskService) DeleteTask(ctx context.Context, task models.Task) error {
	if cached, ok := s.Task(task.ID); ok && cached.HasReminder {
		task.HasReminder = true
	}
	if task.HasReminder {
		s.cancelReminder(ctx, task.ID)
	}

	if err := s.store.Delete(ctx, task); err != nil {
		err = NewStorageError("deleting task", err)
		if !errors.Is(err, ErrNotFound) {
			s.fail(err)
			return err
		}
		s.log.Info("task already deleted, resynchronizing", "task_id", task.ID)
	} else {
		s.logEvent(EventTaskDeleted, taskEventData(task))
	}

	s.reload(ctx)
	s.publish(models.ChangeDeleted, task)
	return nil
}

// SetFilter switches the filtered view without fetching from the store.
func (s *taskService) SetFilter(mode models.FilterMode) error {
	if !mode.Valid() {
		return &ValidationError{Field: "filter", Reason: "must be one of all, active, completed"}
	}
	s.mu.Lock()
	s.filter = mode
	s.filtered = models.FilterTasks(s.tasks, mode.Matches)
	s.mu.Unlock()
	return nil
}

func (s *taskService) Filter() models.FilterMode {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.filter
}

// Tasks returns a copy of the raw loaded list.
func (s *taskService) Tasks() []models.Task {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return slices.Clone(s.tasks)
}

// FilteredTasks returns a copy of the current filtered view.
func (s *taskService) FilteredTasks() []models.Task {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return slices.Clone(s.filtered)
}

// Task looks up a loaded task by ID.
func (s *taskService) Task(id string) (models.Task, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	for _, t := range s.tasks {
		if t.ID == id {
			return t, true
		}
	}
	return models.Task{}, false
}

func (s *taskService) Counts() TaskCounts {
	s.mu.RLock()
	defer s.mu.RUnlock()
	c := TaskCounts{All: len(s.tasks)}
	for _, t := range s.tasks {
		if t.IsCompleted {
			c.Completed++
		} else {
			c.Active++
		}
	}
	return c
}

// OverdueTasks returns open tasks due strictly before now.
func (s *taskService) OverdueTasks() []models.Task {
	now := s.now()
	return s.query(func(t models.Task) bool { return t.IsOverdue(now) })
}

// UpcomingTasks returns open tasks due between now and windowDays days ahead.
func (s *taskService) UpcomingTasks(windowDays int) []models.Task {
	now := s.now()
	return s.query(func(t models.Task) bool { return t.IsUpcoming(now, windowDays) })
}

// DueTodayTasks returns open tasks due on the current calendar day.
func (s *taskService) DueTodayTasks() []models.Task {
	now := s.now()
	return s.query(func(t models.Task) bool { return t.IsDueToday(now) })
}

func (s *taskService) UpcomingWindow() int {
	return s.upcomingDays
}

func (s *taskService) query(keep func(models.Task) bool) []models.Task {
	s.mu.RLock()
	result := models.FilterTasks(s.tasks, keep)
	s.mu.RUnlock()
	models.SortByDueDate(result)
	return result
}

func (s *taskService) State() ViewState {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.state
}

func (s *taskService) Err() error {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.lastErr
}

// RequestReminderPermission asks the scheduler for permission on a separate
// goroutine and returns a channel that receives the answer once. Other
// operations never wait on it; until it resolves ReminderPermitted stays at
// its previous value.
func (s *taskService) RequestReminderPermission(ctx context.Context) <-chan bool {
	result := make(chan bool, 1)
	if s.scheduler == nil {
		result <- false
		close(result)
		return result
	}

	go func() {
		defer close(result)
		granted, err := s.scheduler.RequestPermission(ctx)
		if err != nil {
			s.log.Warn("reminder permission request failed", "error", err)
			granted = false
		}
		s.mu.Lock()
		s.permitted, s.resolved = granted, true
		s.mu.Unlock()
		s.logEvent(EventPermissionResolved, map[string]any{"granted": granted})
		result <- granted
	}()
	return result
}

// ReminderPermitted reports the answer of the last permission request or,
// before any request has resolved, the answer the scheduler already has on
// record. Long-running surfaces such as the API and MCP servers never prompt
// and rely on the latter.
func (s *taskService) ReminderPermitted() bool {
	s.mu.RLock()
	permitted, resolved := s.permitted, s.resolved
	s.mu.RUnlock()
	if resolved {
		return permitted
	}
	return s.scheduler != nil && s.scheduler.PermissionGranted()
}

// Subscribe registers fn to receive change events. Events are delivered
// synchronously after the store commits and the views are reloaded, before
// the mutating call returns.
func (s *taskService) Subscribe(fn func(models.ChangeEvent)) func() {
	s.subMu.Lock()
	id := s.nextSub
	s.nextSub++
	s.subs[id] = fn
	s.subMu.Unlock()

	return func() {
		s.subMu.Lock()
		delete(s.subs, id)
		s.subMu.Unlock()
	}
}

// --- internals ---

func (s *taskService) buildTask(d TaskDraft) (models.Task, error) {
	title := strings.TrimSpace(d.Title)
	if title == "" {
		return models.Task{}, &ValidationError{Field: "title", Reason: "must not be empty"}
	}
	if d.DueDate == nil && d.HasTime {
		return models.Task{}, &ValidationError{Field: "due_date", Reason: "is required when a time is set"}
	}
	if d.WantReminder && (d.DueDate == nil || !d.HasTime) {
		return models.Task{}, &ValidationError{Field: "reminder", Reason: "requires a due date and time"}
	}
	priority := d.Priority
	if priority == "" {
		priority = s.defaultPriority
	}
	if !priority.Valid() {
		return models.Task{}, &ValidationError{Field: "priority", Reason: "must be one of low, medium, high"}
	}

	id, err := s.ids.GenerateTaskID()
	if err != nil {
		return models.Task{}, err
	}

	now := s.now()
	task := models.Task{
		ID:           id,
		Title:        title,
		Notes:        d.Notes,
		Priority:     priority,
		CreatedAt:    now,
		LastModified: now,
	}
	if d.DueDate != nil {
		task.HasDueDate = true
		task.HasTime = d.HasTime
		task.DueDate = *d.DueDate
		task.DueDate = normalizeDue(task)
	}

	task.HasReminder = d.WantReminder && task.HasTime && s.ReminderPermitted()
	if d.WantReminder && !task.HasReminder {
		s.log.Info("reminder not permitted, saving task without it", "task_id", task.ID)
	}
	return task, nil
}

func validateTask(t models.Task) error {
	if t.ID == "" {
		return &ValidationError{Field: "id", Reason: "must not be empty"}
	}
	if t.Title == "" {
		return &ValidationError{Field: "title", Reason: "must not be empty"}
	}
	if !t.Priority.Valid() {
		return &ValidationError{Field: "priority", Reason: "must be one of low, medium, high"}
	}
	if t.HasTime && !t.HasDueDate {
		return &ValidationError{Field: "due_date", Reason: "is required when a time is set"}
	}
	if !t.ReminderConsistent() {
		return &ValidationError{Field: "reminder", Reason: "requires a due date and time"}
	}
	return nil
}

// normalizeDue drops sub-minute precision from timed due dates and the time
// of day from date-only ones.
func normalizeDue(t models.Task) time.Time {
	switch {
	case !t.HasDueDate:
		return time.Time{}
	case t.HasTime:
		return t.DueDate.Truncate(time.Minute)
	default:
		return models.StartOfDay(t.DueDate, t.DueDate.Location())
	}
}

// mutationFailed classifies a failed update. A vanished record triggers a
// reload so the view resynchronizes; any other failure moves the service to
// StateError.
func (s *taskService) mutationFailed(ctx context.Context, op string, err error) error {
	err = NewStorageError(op, err)
	switch {
	case errors.Is(err, ErrNotFound):
		s.log.Info("task vanished, resynchronizing", "error", err)
		s.reload(ctx)
	case errors.Is(err, ErrStorage):
		s.fail(err)
	}
	return err
}

func (s *taskService) reload(ctx context.Context) {
	if err := s.LoadTasks(ctx); err != nil {
		s.log.Error("reloading tasks", "error", err)
	}
}

func (s *taskService) fail(err error) {
	s.mu.Lock()
	s.state = StateError
	s.lastErr = err
	s.mu.Unlock()
}

func (s *taskService) scheduleReminder(ctx context.Context, task models.Task) {
	if s.scheduler == nil {
		return
	}
	if err := s.scheduler.Schedule(ctx, task); err != nil {
		if errors.Is(err, ErrReminderElapsed) {
			s.log.Debug("reminder time already passed, nothing queued", "task_id", task.ID)
			return
		}
		s.schedulingFailed("schedule", task.ID, err)
		return
	}
	s.logEvent(EventReminderScheduled, map[string]any{
		"task_id": task.ID,
		"fire_at": task.ReminderAt().Format(time.RFC3339),
	})
}

func (s *taskService) cancelReminder(ctx context.Context, taskID string) {
	if s.scheduler == nil {
		return
	}
	if err := s.scheduler.Cancel(ctx, taskID); err != nil {
		s.schedulingFailed("cancel", taskID, err)
		return
	}
	s.logEvent(EventReminderCancelled, map[string]any{"task_id": taskID})
}

func (s *taskService) schedulingFailed(op, taskID string, err error) {
	if !errors.Is(err, ErrScheduling) {
		err = &SchedulingError{Op: op, TaskID: taskID, Err: err}
	}
	s.log.Warn("reminder operation failed", "op", op, "task_id", taskID, "error", err)
	s.logEvent(EventReminderFailed, map[string]any{
		"task_id": taskID,
		"op":      op,
		"error":   err.Error(),
	})
}

func (s *taskService) publish(kind models.ChangeKind, task models.Task) {
	s.subMu.Lock()
	fns := make([]func(models.ChangeEvent), 0, len(s.subs))
	for i := 0; i < s.nextSub; i++ {
		if fn, ok := s.subs[i]; ok {
			fns = append(fns, fn)
		}
	}
	s.subMu.Unlock()

	evt := models.ChangeEvent{Kind: kind, Task: task, At: s.now()}
	for _, fn := range fns {
		fn(evt)
	}
}

func (s *taskService) logEvent(eventType string, data map[string]any) {
	if s.events == nil {
		return
	}
	if err := s.events.LogEvent(eventType, data); err != nil {
		s.log.Debug("writing event", "type", eventType, "error", err)
	}
}

func taskEventData(t models.Task) map[string]any {
	return map[string]any{
		"task_id":      t.ID,
		"title":        t.Title,
		"priority":     string(t.Priority),
		"has_due_date": t.HasDueDate,
		"has_reminder": t.HasReminder,
	}
}
