// Package internal provides the App struct that wires all components of
// ReminderWave together and initializes the CLI layer.
package internal

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"

	"github.com/valter-silva-au/reminderwave/internal/cli"
	"github.com/valter-silva-au/reminderwave/internal/core"
	"github.com/valter-silva-au/reminderwave/internal/logger"
	"github.com/valter-silva-au/reminderwave/internal/observability"
	"github.com/valter-silva-au/reminderwave/internal/scheduler"
	"github.com/valter-silva-au/reminderwave/internal/storage"
	"github.com/valter-silva-au/reminderwave/pkg/models"
)

// App holds all service dependencies for ReminderWave.
type App struct {
	BasePath string

	// Configuration
	ConfigMgr core.ConfigurationManager
	Config    *models.GlobalConfig

	// Storage layer
	Store core.TaskStore
	Queue core.NotificationQueue

	// Reminders
	PermissionPath string
	Scheduler      core.ReminderScheduler
	Dispatcher     *scheduler.Dispatcher

	// Core services
	TaskSvc core.TaskService

	// Observability
	EventLog    observability.EventLog
	AlertEngine observability.AlertEngine
	MetricsCalc observability.MetricsCalculator
	Notifier    observability.Notifier
	Prom        *observability.PromMetrics

	closers []io.Closer
}

// Options lets callers and tests replace the terminal streams used for the
// permission prompt and console reminders.
type Options struct {
	In  io.Reader
	Out io.Writer
}

// NewApp creates and wires all components of ReminderWave. basePath is the
// directory where configuration and data live (typically ~/.rwave or the
// nearest directory containing .rwaveconfig).
func NewApp(basePath string) (*App, error) {
	return NewAppWithOptions(context.Background(), basePath, Options{})
}

// NewAppWithOptions is NewApp with explicit streams. ctx bounds connection
// setup for network-backed stores and queues.
func NewAppWithOptions(ctx context.Context, basePath string, opts Options) (*App, error) {
	if opts.In == nil {
		opts.In = os.Stdin
	}
	if opts.Out == nil {
		opts.Out = os.Stdout
	}

	app := &App{BasePath: basePath}

	// --- Configuration ---
	app.ConfigMgr = core.NewConfigurationManager(basePath)
	globalCfg, err := app.ConfigMgr.LoadGlobalConfig()
	if err != nil {
		// Use defaults if the config file cannot be read.
		globalCfg = core.DefaultGlobalConfig(basePath)
	}
	if err := app.ConfigMgr.ValidateConfig(globalCfg); err != nil {
		return nil, err
	}
	app.Config = globalCfg

	logger.Init(globalCfg.Log.Level, globalCfg.Log.Format == "json")
	log := logger.With("component", "app")

	// --- Storage layer ---
	app.Store, err = app.openStore(globalCfg.Storage)
	if err != nil {
		_ = app.Close()
		return nil, err
	}
	app.Queue, err = app.openQueue(ctx, globalCfg.Reminders)
	if err != nil {
		_ = app.Close()
		return nil, err
	}

	// --- Observability ---
	app.Prom = observability.NewPromMetrics(app.Store)
	eventLogPath := filepath.Join(basePath, "events.jsonl")
	eventLog, err := observability.NewJSONLEventLog(eventLogPath)
	if err != nil {
		// Non-fatal: run without history if the log can't be created.
		log.Warn("event log disabled", "path", eventLogPath, "error", err)
	} else {
		app.closers = append(app.closers, eventLog)
		app.EventLog = observability.InstrumentEventLog(eventLog, app.Prom)
		app.MetricsCalc = observability.NewMetricsCalculator(app.EventLog)
	}

	thresholds := observability.DefaultAlertThresholds()
	if globalCfg.Alerts.MaxOpenTasks > 0 {
		thresholds.MaxOpenTasks = globalCfg.Alerts.MaxOpenTasks
	}
	app.AlertEngine = observability.NewAlertEngine(app.Store, app.EventLog, thresholds)

	var evtAdapter core.EventLogger
	if app.EventLog != nil {
		evtAdapter = &eventLogAdapter{log: app.EventLog}
	}

	// --- Reminders ---
	gate := app.permissionGate(globalCfg.Reminders.Permission, opts)
	app.Scheduler = scheduler.New(gate, app.Queue,
		scheduler.WithLogger(logger.With("component", "scheduler")),
	)

	deliverers := []scheduler.Deliverer{scheduler.NewConsoleDeliverer(opts.Out)}
	if url := globalCfg.Notifications.SlackWebhookURL; url != "" {
		app.Notifier = observability.NewSlackNotifier(url)
		deliverers = append(deliverers, observability.NewSlackReminderDeliverer(url))
	}
	app.Dispatcher = scheduler.NewDispatcher(app.Queue, deliverers, scheduler.DispatcherConfig{
		Interval: globalCfg.Reminders.PollInterval,
		Events:   evtAdapter,
		Logger:   logger.With("component", "dispatcher"),
	})

	// --- Core services ---
	app.TaskSvc = core.NewTaskService(app.Store, app.Scheduler,
		core.WithLogger(logger.With("component", "tasks")),
		core.WithEventLogger(evtAdapter),
		core.WithDefaultPriority(globalCfg.DefaultPriority),
		core.WithUpcomingWindow(globalCfg.Reminders.UpcomingDays),
	)

	// --- Wire CLI package-level variables ---
	cli.BasePath = basePath
	cli.Config = globalCfg
	cli.TaskSvc = app.TaskSvc
	cli.PermissionPath = app.PermissionPath
	cli.Dispatcher = app.Dispatcher

	cli.EventLog = app.EventLog
	cli.AlertEngine = app.AlertEngine
	cli.MetricsCalc = app.MetricsCalc
	cli.Notifier = app.Notifier
	cli.Prom = app.Prom

	return app, nil
}

func (a *App) openStore(cfg models.StorageConfig) (core.TaskStore, error) {
	switch cfg.Backend {
	case models.StorageMemory:
		return storage.NewMemoryTaskStore(), nil
	case models.StorageSQLite:
		s, err := storage.NewSQLiteTaskStore(cfg.SQLitePath)
		if err != nil {
			return nil, err
		}
		a.closers = append(a.closers, s)
		return s, nil
	case models.StoragePostgres:
		db, err := storage.OpenPostgres(cfg.PostgresDSN)
		if err != nil {
			return nil, err
		}
		if sqlDB, err := db.DB(); err == nil {
			a.closers = append(a.closers, sqlDB)
		}
		return storage.NewGormTaskStore(db)
	default:
		return storage.NewYAMLTaskStore(cfg.Path), nil
	}
}

func (a *App) openQueue(ctx context.Context, cfg models.RemindersConfig) (core.NotificationQueue, error) {
	switch cfg.Backend {
	case models.ReminderMemory:
		return storage.NewMemoryQueue(), nil
	case models.ReminderRedis:
		client, err := storage.NewRedisClient(ctx, cfg.Redis.Addr, cfg.Redis.Password, cfg.Redis.DB)
		if err != nil {
			return nil, err
		}
		a.closers = append(a.closers, client)
		return storage.NewRedisQueue(client, cfg.Redis.KeyPrefix), nil
	default:
		return storage.NewFileQueue(cfg.QueuePath), nil
	}
}

func (a *App) permissionGate(mode models.PermissionMode, opts Options) scheduler.PermissionGate {
	switch mode {
	case models.PermissionGranted:
		return scheduler.NewStaticGate(true)
	case models.PermissionDenied:
		return scheduler.NewStaticGate(false)
	default:
		a.PermissionPath = filepath.Join(a.BasePath, "permission.yaml")
		return scheduler.NewPromptGate(opts.In, opts.Out, a.PermissionPath)
	}
}

// Close releases resources held by the App: the event log file handle and
// any database or Redis connections. It is safe to call more than once.
func (a *App) Close() error {
	var errs []error
	for i := len(a.closers) - 1; i >= 0; i-- {
		if err := a.closers[i].Close(); err != nil {
			errs = append(errs, err)
		}
	}
	a.closers = nil
	if len(errs) > 0 {
		return fmt.Errorf("closing app: %w", errors.Join(errs...))
	}
	return nil
}

// --- Adapters ---

// eventLogAdapter adapts observability.EventLog to core.EventLogger.
type eventLogAdapter struct {
	log observability.EventLog
}

func (a *eventLogAdapter) LogEvent(eventType string, data map[string]any) error {
	return a.log.Write(observability.NewEvent(eventType, data))
}
