package scheduler

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"github.com/valter-silva-au/reminderwave/internal/core"
	"github.com/valter-silva-au/reminderwave/pkg/models"
)

// ErrPermissionDenied is returned by Schedule when reminders are not
// permitted.
var ErrPermissionDenied = errors.New("reminder permission not granted")

// errNotSchedulable rejects a task that cannot carry a reminder.
var errNotSchedulable = errors.New("task has no reminder time")

// queueScheduler implements core.ReminderScheduler over a NotificationQueue.
type queueScheduler struct {
	gate  PermissionGate
	queue core.NotificationQueue
	now   func() time.Time
	log   *slog.Logger
}

// Option customizes a scheduler built by New.
type Option func(*queueScheduler)

// WithClock overrides the time source used to skip past fire times.
func WithClock(now func() time.Time) Option {
	return func(s *queueScheduler) { s.now = now }
}

// WithLogger sets the structured logger.
func WithLogger(l *slog.Logger) Option {
	return func(s *queueScheduler) { s.log = l }
}

// New creates a ReminderScheduler that registers one notification per task in
// queue, subject to gate.
func New(gate PermissionGate, queue core.NotificationQueue, opts ...Option) core.ReminderScheduler {
	s := &queueScheduler{
		gate:  gate,
		queue: queue,
		now:   time.Now,
		log:   slog.New(slog.DiscardHandler),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

func (s *queueScheduler) RequestPermission(ctx context.Context) (bool, error) {
	return s.gate.Request(ctx)
}

func (s *queueScheduler) PermissionGranted() bool {
	return s.gate.Granted()
}

// Schedule registers the task's reminder, replacing any earlier one. A fire
// time already in the past drops the previous registration, queues nothing
// and returns core.ErrReminderElapsed.
func (s *queueScheduler) Schedule(ctx context.Context, task models.Task) error {
	if !task.HasReminder || !task.HasDueDate || !task.HasTime {
		return &core.SchedulingError{Op: "schedule", TaskID: task.ID, Err: errNotSchedulable}
	}
	if !s.gate.Granted() {
		return &core.SchedulingError{Op: "schedule", TaskID: task.ID, Err: ErrPermissionDenied}
	}

	n := models.NotificationFor(task)
	if n.FireAt.Before(s.now().Truncate(time.Minute)) {
		s.log.Debug("reminder time already passed", "task_id", task.ID, "fire_at", n.FireAt)
		if err := s.Cancel(ctx, task.ID); err != nil {
			return err
		}
		return core.ErrReminderElapsed
	}

	if err := s.queue.Put(ctx, n); err != nil {
		return &core.SchedulingError{Op: "schedule", TaskID: task.ID, Err: err}
	}
	s.log.Debug("reminder scheduled", "task_id", task.ID, "fire_at", n.FireAt)
	return nil
}

func (s *queueScheduler) Cancel(ctx context.Context, taskID string) error {
	if err := s.queue.Remove(ctx, taskID); err != nil {
		return &core.SchedulingError{Op: "cancel", TaskID: taskID, Err: err}
	}
	return nil
}
