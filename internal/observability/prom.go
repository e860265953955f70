package observability

import (
	"context"
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// PromMetrics exposes event counters and live task gauges in the Prometheus
// text format. It uses its own registry so several instances can coexist in
// one process.
type PromMetrics struct {
	registry *prometheus.Registry
	events   *prometheus.CounterVec
}

// NewPromMetrics creates the registry. tasks may be nil, in which case only
// event counters are exported.
func NewPromMetrics(tasks TaskSource) *PromMetrics {
	m := &PromMetrics{
		registry: prometheus.NewRegistry(),
		events: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: "rwave",
				Name:      "events_total",
				Help:      "Task and reminder events recorded, by type.",
			},
			[]string{"type"},
		),
	}
	m.registry.MustRegister(m.events)
	if tasks != nil {
		m.registry.MustRegister(newTaskCollector(tasks, time.Now))
	}
	return m
}

// Registry returns the underlying registry.
func (m *PromMetrics) Registry() *prometheus.Registry { return m.registry }

// Handler serves the registry on a /metrics endpoint.
func (m *PromMetrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{})
}

// Observe counts one event of the given type.
func (m *PromMetrics) Observe(eventType string) {
	m.events.WithLabelValues(eventType).Inc()
}

// instrumentedEventLog counts every successful write.
type instrumentedEventLog struct {
	EventLog
	metrics *PromMetrics
}

// InstrumentEventLog wraps log so each written event increments the event
// counter.
func InstrumentEventLog(log EventLog, m *PromMetrics) EventLog {
	return &instrumentedEventLog{EventLog: log, metrics: m}
}

func (l *instrumentedEventLog) Write(event Event) error {
	if err := l.EventLog.Write(event); err != nil {
		return err
	}
	l.metrics.Observe(event.Type)
	return nil
}

// taskCollector reads the task list on every scrape.
type taskCollector struct {
	tasks TaskSource
	now   func() time.Time

	open      *prometheus.Desc
	completed *prometheus.Desc
	overdue   *prometheus.Desc
	dueToday  *prometheus.Desc
	reminders *prometheus.Desc
	up        *prometheus.Desc
}

func newTaskCollector(tasks TaskSource, now func() time.Time) *taskCollector {
	desc := func(name, help string) *prometheus.Desc {
		return prometheus.NewDesc(prometheus.BuildFQName("rwave", "tasks", name), help, nil, nil)
	}
	return &taskCollector{
		tasks:     tasks,
		now:       now,
		open:      desc("open", "Tasks not yet completed."),
		completed: desc("completed", "Completed tasks."),
		overdue:   desc("overdue", "Open tasks past their due date."),
		dueToday:  desc("due_today", "Open tasks due today."),
		reminders: desc("with_reminder", "Open tasks carrying a reminder."),
		up:        desc("store_up", "Whether the last scrape could read the task store."),
	}
}

func (c *taskCollector) Describe(ch chan<- *prometheus.Desc) {
	ch <- c.open
	ch <- c.completed
	ch <- c.overdue
	ch <- c.dueToday
	ch <- c.reminders
	ch <- c.up
}

func (c *taskCollector) Collect(ch chan<- prometheus.Metric) {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	tasks, err := c.tasks.List(ctx)
	if err != nil {
		ch <- prometheus.MustNewConstMetric(c.up, prometheus.GaugeValue, 0)
		return
	}
	ch <- prometheus.MustNewConstMetric(c.up, prometheus.GaugeValue, 1)

	now := c.now()
	var open, completed, overdue, today, reminders float64
	for _, t := range tasks {
		if t.IsCompleted {
			completed++
			continue
		}
		open++
		if t.IsOverdue(now) {
			overdue++
		}
		if t.IsDueToday(now) {
			today++
		}
		if t.HasReminder {
			reminders++
		}
	}
	ch <- prometheus.MustNewConstMetric(c.open, prometheus.GaugeValue, open)
	ch <- prometheus.MustNewConstMetric(c.completed, prometheus.GaugeValue, completed)
	ch <- prometheus.MustNewConstMetric(c.overdue, prometheus.GaugeValue, overdue)
	ch <- prometheus.MustNewConstMetric(c.dueToday, prometheus.GaugeValue, today)
	ch <- prometheus.MustNewConstMetric(c.reminders, prometheus.GaugeValue, reminders)
}
