package models

import "time"

// StorageBackend names a TaskStore implementation.
type StorageBackend string

const (
	StorageYAML     StorageBackend = "yaml"
	StorageSQLite   StorageBackend = "sqlite"
	StoragePostgres StorageBackend = "postgres"
	StorageMemory   StorageBackend = "memory"
)

// ReminderBackend names a pending-notification queue implementation.
type ReminderBackend string

const (
	ReminderFile   ReminderBackend = "file"
	ReminderRedis  ReminderBackend = "redis"
	ReminderMemory ReminderBackend = "memory"
)

// PermissionMode controls how reminder permission is obtained.
type PermissionMode string

const (
	PermissionPrompt  PermissionMode = "prompt"
	PermissionGranted PermissionMode = "granted"
	PermissionDenied  PermissionMode = "denied"
)

// StorageConfig selects and configures the task store.
type StorageConfig struct {
	Backend     StorageBackend `yaml:"backend" mapstructure:"backend"`
	Path        string         `yaml:"path" mapstructure:"path"`
	SQLitePath  string         `yaml:"sqlite_path" mapstructure:"sqlite_path"`
	PostgresDSN string         `yaml:"postgres_dsn,omitempty" mapstructure:"postgres_dsn"`
}

// RedisConfig holds connection settings for the Redis reminder queue.
type RedisConfig struct {
	Addr      string `yaml:"addr" mapstructure:"addr"`
	Password  string `yaml:"password,omitempty" mapstructure:"password"`
	DB        int    `yaml:"db" mapstructure:"db"`
	KeyPrefix string `yaml:"key_prefix" mapstructure:"key_prefix"`
}

// RemindersConfig configures reminder scheduling and delivery.
type RemindersConfig struct {
	Backend      ReminderBackend `yaml:"backend" mapstructure:"backend"`
	Permission   PermissionMode  `yaml:"permission" mapstructure:"permission"`
	PollInterval time.Duration   `yaml:"poll_interval" mapstructure:"poll_interval"`
	UpcomingDays int             `yaml:"upcoming_days" mapstructure:"upcoming_days"`
	QueuePath    string          `yaml:"queue_path" mapstructure:"queue_path"`
	Redis        RedisConfig     `yaml:"redis" mapstructure:"redis"`
}

// NotificationsConfig configures external delivery channels.
type NotificationsConfig struct {
	SlackWebhookURL string `yaml:"slack_webhook_url,omitempty" mapstructure:"slack_webhook_url"`
}

// AlertsConfig configures the alert engine thresholds.
type AlertsConfig struct {
	MaxOpenTasks int `yaml:"max_open_tasks" mapstructure:"max_open_tasks"`
}

// LogConfig configures the structured logger.
type LogConfig struct {
	Level  string `yaml:"level" mapstructure:"level"`
	Format string `yaml:"format" mapstructure:"format"`
}

// APIConfig configures the HTTP API served by the daemon.
type APIConfig struct {
	Addr string `yaml:"addr" mapstructure:"addr"`
}

// DisplayConfig holds presentation-only settings. The task core never reads
// these.
type DisplayConfig struct {
	DateFormat string `yaml:"date_format" mapstructure:"date_format"`
	TimeFormat string `yaml:"time_format" mapstructure:"time_format"`
}

// GlobalConfig holds system-wide settings read from .rwaveconfig via Viper.
type GlobalConfig struct {
	DefaultPriority Priority            `yaml:"default_priority" mapstructure:"default_priority"`
	Storage         StorageConfig       `yaml:"storage" mapstructure:"storage"`
	Reminders       RemindersConfig     `yaml:"reminders" mapstructure:"reminders"`
	Notifications   NotificationsConfig `yaml:"notifications" mapstructure:"notifications"`
	Alerts          AlertsConfig        `yaml:"alerts" mapstructure:"alerts"`
	Log             LogConfig           `yaml:"log" mapstructure:"log"`
	API             APIConfig           `yaml:"api" mapstructure:"api"`
	Display         DisplayConfig       `yaml:"display" mapstructure:"display"`
}
