// Package core contains the business logic for ReminderWave: the task
// service that coordinates persistence and reminder scheduling, the derived
// due-date views, configuration and the domain error types.
package core

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"
	"github.com/valter-silva-au/reminderwave/pkg/models"
)

// ConfigFileName is the name of the global configuration file.
const ConfigFileName = ".rwaveconfig"

// ConfigurationManager loads and validates the global configuration from
// .rwaveconfig, .env and RWAVE_ environment variables.
type ConfigurationManager interface {
	LoadGlobalConfig() (*models.GlobalConfig, error)
	ValidateConfig(cfg *models.GlobalConfig) error
}

// viperConfigManager implements ConfigurationManager using Viper.
type viperConfigManager struct {
	// basePath is the directory holding .rwaveconfig, .env and data files.
	basePath string
}

// NewConfigurationManager creates a ConfigurationManager that reads
// configuration files relative to basePath.
func NewConfigurationManager(basePath string) ConfigurationManager {
	return &viperConfigManager{basePath: basePath}
}

// DefaultGlobalConfig returns a GlobalConfig populated with defaults. Relative
// paths are resolved against basePath.
func DefaultGlobalConfig(basePath string) *models.GlobalConfig {
	return &models.GlobalConfig{
		DefaultPriority: models.PriorityMedium,
		Storage: models.StorageConfig{
			Backend:    models.StorageYAML,
			Path:       filepath.Join(basePath, "tasks.yaml"),
			SQLitePath: filepath.Join(basePath, "tasks.db"),
		},
		Reminders: models.RemindersConfig{
			Backend:      models.ReminderFile,
			Permission:   models.PermissionPrompt,
			PollInterval: 30 * time.Second,
			UpcomingDays: models.DefaultUpcomingWindowDays,
			QueuePath:    filepath.Join(basePath, "reminders.yaml"),
			Redis: models.RedisConfig{
				Addr:      "localhost:6379",
				KeyPrefix: "rwave",
			},
		},
		Alerts: models.AlertsConfig{MaxOpenTasks: 25},
		Log:    models.LogConfig{Level: "info", Format: "text"},
		API:    models.APIConfig{Addr: "127.0.0.1:8420"},
		Display: models.DisplayConfig{
			DateFormat: "Mon Jan 2",
			TimeFormat: "15:04",
		},
	}
}

// LoadGlobalConfig reads .rwaveconfig from the base path. Values from a .env
// file in the base path and RWAVE_ environment variables take precedence over
// the file. A missing file yields defaults.
func (cm *viperConfigManager) LoadGlobalConfig() (*models.GlobalConfig, error) {
	defaults := DefaultGlobalConfig(cm.basePath)

	// .env values never override variables already set in the environment.
	if err := godotenv.Load(filepath.Join(cm.basePath, ".env")); err != nil && !errors.Is(err, os.ErrNotExist) {
		return nil, fmt.Errorf("reading .env: %w", err)
	}

	v := viper.New()
	v.SetConfigName(ConfigFileName)
	v.SetConfigType("yaml")
	v.AddConfigPath(cm.basePath)
	v.SetEnvPrefix("RWAVE")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	v.SetDefault("default_priority", string(defaults.DefaultPriority))
	v.SetDefault("storage.backend", string(defaults.Storage.Backend))
	v.SetDefault("storage.path", defaults.Storage.Path)
	v.SetDefault("storage.sqlite_path", defaults.Storage.SQLitePath)
	v.SetDefault("storage.postgres_dsn", "")
	v.SetDefault("reminders.backend", string(defaults.Reminders.Backend))
	v.SetDefault("reminders.permission", string(defaults.Reminders.Permission))
	v.SetDefault("reminders.poll_interval", defaults.Reminders.PollInterval.String())
	v.SetDefault("reminders.upcoming_days", defaults.Reminders.UpcomingDays)
	v.SetDefault("reminders.queue_path", defaults.Reminders.QueuePath)
	v.SetDefault("reminders.redis.addr", defaults.Reminders.Redis.Addr)
	v.SetDefault("reminders.redis.password", "")
	v.SetDefault("reminders.redis.db", 0)
	v.SetDefault("reminders.redis.key_prefix", defaults.Reminders.Redis.KeyPrefix)
	v.SetDefault("notifications.slack_webhook_url", "")
	v.SetDefault("alerts.max_open_tasks", defaults.Alerts.MaxOpenTasks)
	v.SetDefault("log.level", defaults.Log.Level)
	v.SetDefault("log.format", defaults.Log.Format)
	v.SetDefault("api.addr", defaults.API.Addr)
	v.SetDefault("display.date_format", defaults.Display.DateFormat)
	v.SetDefault("display.time_format", defaults.Display.TimeFormat)

	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) {
			return nil, fmt.Errorf("reading %s: %w", ConfigFileName, err)
		}
	}

	cfg := &models.GlobalConfig{}
	if err := v.Unmarshal(cfg); err != nil {
		return nil, fmt.Errorf("decoding %s: %w", ConfigFileName, err)
	}

	cfg.Storage.Path = cm.resolve(cfg.Storage.Path)
	cfg.Storage.SQLitePath = cm.resolve(cfg.Storage.SQLitePath)
	cfg.Reminders.QueuePath = cm.resolve(cfg.Reminders.QueuePath)

	return cfg, nil
}

func (cm *viperConfigManager) resolve(path string) string {
	if path == "" || filepath.IsAbs(path) {
		return path
	}
	return filepath.Join(cm.basePath, path)
}

// ValidateConfig checks cfg for invalid values and reports every problem at
// once.
func (cm *viperConfigManager) ValidateConfig(cfg *models.GlobalConfig) error {
	if cfg == nil {
		return fmt.Errorf("configuration is nil")
	}

	var errs []string

	if cfg.DefaultPriority != "" && !cfg.DefaultPriority.Valid() {
		errs = append(errs, fmt.Sprintf(
			"default_priority %q is invalid, must be one of: low, medium, high",
			cfg.DefaultPriority,
		))
	}

	switch cfg.Storage.Backend {
	case models.StorageYAML:
		if cfg.Storage.Path == "" {
			errs = append(errs, "storage.path must not be empty for the yaml backend")
		}
	case models.StorageSQLite:
		if cfg.Storage.SQLitePath == "" {
			errs = append(errs, "storage.sqlite_path must not be empty for the sqlite backend")
		}
	case models.StoragePostgres:
		if cfg.Storage.PostgresDSN == "" {
			errs = append(errs, "storage.postgres_dsn must be set for the postgres backend")
		}
	case models.StorageMemory:
	default:
		errs = append(errs, fmt.Sprintf(
			"storage.backend %q is invalid, must be one of: yaml, sqlite, postgres, memory",
			cfg.Storage.Backend,
		))
	}

	switch cfg.Reminders.Backend {
	case models.ReminderFile:
		if cfg.Reminders.QueuePath == "" {
			errs = append(errs, "reminders.queue_path must not be empty for the file backend")
		}
	case models.ReminderRedis:
		if cfg.Reminders.Redis.Addr == "" {
			errs = append(errs, "reminders.redis.addr must be set for the redis backend")
		}
	case models.ReminderMemory:
	default:
		errs = append(errs, fmt.Sprintf(
			"reminders.backend %q is invalid, must be one of: file, redis, memory",
			cfg.Reminders.Backend,
		))
	}

	switch cfg.Reminders.Permission {
	case models.PermissionPrompt, models.PermissionGranted, models.PermissionDenied:
	default:
		errs = append(errs, fmt.Sprintf(
			"reminders.permission %q is invalid, must be one of: prompt, granted, denied",
			cfg.Reminders.Permission,
		))
	}

	if cfg.Reminders.PollInterval <= 0 {
		errs = append(errs, fmt.Sprintf("reminders.poll_interval must be positive, got %s", cfg.Reminders.PollInterval))
	}
	if cfg.Reminders.UpcomingDays < 0 {
		errs = append(errs, fmt.Sprintf("reminders.upcoming_days must be non-negative, got %d", cfg.Reminders.UpcomingDays))
	}
	if cfg.Alerts.MaxOpenTasks < 0 {
		errs = append(errs, fmt.Sprintf("alerts.max_open_tasks must be non-negative, got %d", cfg.Alerts.MaxOpenTasks))
	}

	switch strings.ToLower(cfg.Log.Format) {
	case "text", "json":
	default:
		errs = append(errs, fmt.Sprintf("log.format %q is invalid, must be text or json", cfg.Log.Format))
	}

	if len(errs) > 0 {
		return fmt.Errorf("config validation failed:\n  - %s", strings.Join(errs, "\n  - "))
	}
	return nil
}

// ResolveBasePath determines the ReminderWave home directory. RWAVE_HOME wins;
// otherwise the nearest ancestor of the working directory containing
// .rwaveconfig is used, falling back to ~/.rwave.
func ResolveBasePath() string {
	if home := os.Getenv("RWAVE_HOME"); home != "" {
		return home
	}

	if dir, err := os.Getwd(); err == nil {
		for {
			if hasConfigFile(dir) {
				return dir
			}
			parent := filepath.Dir(dir)
			if parent == dir {
				break
			}
			dir = parent
		}
	}

	if home, err := os.UserHomeDir(); err == nil {
		return filepath.Join(home, ".rwave")
	}
	return ".rwave"
}

func hasConfigFile(dir string) bool {
	for _, name := range []string{ConfigFileName, ConfigFileName + ".yaml", ConfigFileName + ".yml"} {
		if _, err := os.Stat(filepath.Join(dir, name)); err == nil {
			return true
		}
	}
	return false
}
