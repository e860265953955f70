package scheduler

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"sync"
	"time"

	"github.com/charmbracelet/lipgloss"
	"github.com/valter-silva-au/reminderwave/internal/core"
	"github.com/valter-silva-au/reminderwave/pkg/models"
)

// Deliverer sends a single notification to a user-facing channel.
type Deliverer interface {
	Name() string
	Deliver(ctx context.Context, n models.Notification) error
}

// Dispatcher polls the queue and delivers notifications whose fire time has
// arrived. Each notification is acknowledged after one delivery attempt,
// whether or not it succeeded, so a reminder never repeats.
type Dispatcher struct {
	queue      core.NotificationQueue
	deliverers []Deliverer
	interval   time.Duration
	events     core.EventLogger
	log        *slog.Logger
	now        func() time.Time
}

// DispatcherConfig configures a Dispatcher.
type DispatcherConfig struct {
	Interval time.Duration
	Events   core.EventLogger
	Logger   *slog.Logger
	Now      func() time.Time
}

// NewDispatcher creates a Dispatcher delivering to every given deliverer.
func NewDispatcher(queue core.NotificationQueue, deliverers []Deliverer, cfg DispatcherConfig) *Dispatcher {
	d := &Dispatcher{
		queue:      queue,
		deliverers: deliverers,
		interval:   cfg.Interval,
		events:     cfg.Events,
		log:        cfg.Logger,
		now:        cfg.Now,
	}
	if d.interval <= 0 {
		d.interval = 30 * time.Second
	}
	if d.log == nil {
		d.log = slog.New(slog.DiscardHandler)
	}
	if d.now == nil {
		d.now = time.Now
	}
	return d
}

// Run delivers due notifications immediately and then on every tick until
// ctx is cancelled.
func (d *Dispatcher) Run(ctx context.Context) error {
	d.log.Info("reminder dispatcher started", "interval", d.interval.String())

	if _, err := d.Tick(ctx); err != nil {
		d.log.Error("dispatching reminders", "error", err)
	}

	ticker := time.NewTicker(d.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			d.log.Info("reminder dispatcher stopped")
			return nil
		case <-ticker.C:
			if _, err := d.Tick(ctx); err != nil {
				d.log.Error("dispatching reminders", "error", err)
			}
		}
	}
}

// Tick performs one delivery pass and returns how many notifications were
// delivered to at least one channel.
func (d *Dispatcher) Tick(ctx context.Context) (int, error) {
	due, err := d.queue.Due(ctx, d.now())
	if err != nil {
		return 0, fmt.Errorf("reading due reminders: %w", err)
	}

	delivered := 0
	for _, n := range due {
		if ctx.Err() != nil {
			return delivered, ctx.Err()
		}

		err := d.deliver(ctx, n)
		if err != nil {
			d.log.Warn("reminder delivery failed", "task_id", n.TaskID, "error", err)
			d.logEvent(core.EventReminderFailed, map[string]any{
				"task_id": n.TaskID,
				"op":      "deliver",
				"error":   err.Error(),
			})
		} else {
			delivered++
			d.logEvent(core.EventReminderDelivered, map[string]any{"task_id": n.TaskID})
		}

		// Acknowledged whether or not delivery succeeded.
		if err := d.queue.Ack(ctx, n); err != nil {
			d.log.Error("acknowledging reminder", "task_id", n.TaskID, "error", err)
		}
	}
	return delivered, nil
}

// deliver fans n out to every deliverer. It succeeds when at least one
// channel accepted the notification.
func (d *Dispatcher) deliver(ctx context.Context, n models.Notification) error {
	if len(d.deliverers) == 0 {
		return errors.New("no delivery channels configured")
	}
	var errs []error
	for _, dl := range d.deliverers {
		if err := dl.Deliver(ctx, n); err != nil {
			errs = append(errs, fmt.Errorf("%s: %w", dl.Name(), err))
		}
	}
	if len(errs) == len(d.deliverers) {
		return errors.Join(errs...)
	}
	for _, err := range errs {
		d.log.Warn("reminder channel failed", "task_id", n.TaskID, "error", err)
	}
	return nil
}

func (d *Dispatcher) logEvent(eventType string, data map[string]any) {
	if d.events == nil {
		return
	}
	if err := d.events.LogEvent(eventType, data); err != nil {
		d.log.Debug("writing event", "type", eventType, "error", err)
	}
}

var (
	reminderTitleStyle = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("205"))
	reminderTimeStyle  = lipgloss.NewStyle().Foreground(lipgloss.Color("241"))
)

// consoleDeliverer prints reminders to a terminal.
type consoleDeliverer struct {
	mu  sync.Mutex
	out io.Writer
}

// NewConsoleDeliverer creates a Deliverer that writes reminders to out.
func NewConsoleDeliverer(out io.Writer) Deliverer {
	return &consoleDeliverer{out: out}
}

func (c *consoleDeliverer) Name() string { return "console" }

func (c *consoleDeliverer) Deliver(_ context.Context, n models.Notification) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	_, err := fmt.Fprintf(c.out, "\a%s %s %s\n",
		reminderTitleStyle.Render(n.Title+":"),
		n.Body,
		reminderTimeStyle.Render("("+n.FireAt.Local().Format("Mon Jan 2 15:04")+")"),
	)
	return err
}
