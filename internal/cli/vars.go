package cli

import (
	"github.com/valter-silva-au/reminderwave/internal/core"
	"github.com/valter-silva-au/reminderwave/internal/observability"
	"github.com/valter-silva-au/reminderwave/internal/scheduler"
	"github.com/valter-silva-au/reminderwave/pkg/models"
)

// Service instances, set during app initialization in app.go.
var (
	BasePath       string
	Config         *models.GlobalConfig
	TaskSvc        core.TaskService
	PermissionPath string
	Dispatcher     *scheduler.Dispatcher
)

// Observability service instances, set during app initialization in app.go.
var (
	EventLog    observability.EventLog
	AlertEngine observability.AlertEngine
	MetricsCalc observability.MetricsCalculator
	Notifier    observability.Notifier
	Prom        *observability.PromMetrics
)
