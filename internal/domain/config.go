package domain

import "time"

// Config represents the application configuration
type Config struct {
	Server       ServerConfig       `mapstructure:"server"`
	Download     DownloadConfig     `mapstructure:"download"`
	Queue        QueueConfig        `mapstructure:"queue"`
	Providers    ProvidersConfig    `mapstructure:"providers"`
	History      HistoryConfig      `mapstructure:"history"`
	Notification NotificationConfig `mapstructure:"notification"`
	Logging      LoggingConfig      `mapstructure:"logging"`
}

// ServerConfig contains server-related configuration
type ServerConfig struct {
	Host string `mapstructure:"host"`
	Port int    `mapstructure:"port"`
}

// DownloadConfig contains orchestration-related configuration
type DownloadConfig struct {
	RequestTimeout   time.Duration `mapstructure:"request_timeout"`
	BatchDelay       time.Duration `mapstructure:"batch_delay"`
	PollInterval     time.Duration `mapstructure:"poll_interval"`
	ConcurrentLimit  int           `mapstructure:"concurrent_limit"`
	AutoStartWorkers bool          `mapstructure:"auto_start_workers"`
	MaxBatchSize     int           `mapstructure:"max_batch_size"`
}

// QueueConfig contains queue and storage configuration
type QueueConfig struct {
	DatabaseDriver    string        `mapstructure:"database_driver"` // sqlite or postgres
	DatabasePath      string        `mapstructure:"database_path"`
	DatabaseDSN       string        `mapstructure:"database_dsn"`
	CheckInterval     time.Duration `mapstructure:"check_interval"`
	ProgressRetention time.Duration `mapstructure:"progress_retention"`
}

// ProvidersConfig contains the third-party provider endpoints
type ProvidersConfig struct {
	TikwmHost       string `mapstructure:"tikwm_host"`
	BetabotzBaseURL string `mapstructure:"betabotz_base_url"`
	BetabotzAPIKey  string `mapstructure:"betabotz_api_key"`
	UserAgent       string `mapstructure:"user_agent"`
}

// HistoryConfig contains history maintenance configuration
type HistoryConfig struct {
	CleanupSchedule   string        `mapstructure:"cleanup_schedule"`
	QuickAccessMaxAge time.Duration `mapstructure:"quick_access_max_age"`
	QuickAccessLimit  int           `mapstructure:"quick_access_limit"`
	DefaultMaxItems   int           `mapstructure:"default_max_items"`
}

// NotificationConfig contains notification-related configuration
type NotificationConfig struct {
	Enabled bool   `mapstructure:"enabled"`
	Sound   bool   `mapstructure:"sound"`
	Method  string `mapstructure:"method"` // osascript, notify-send
}

// LoggingConfig contains logging-related configuration
type LoggingConfig struct {
	Level      string `mapstructure:"level"`       // debug, info, warn, error
	Format     string `mapstructure:"format"`      // json, console
	OutputPath string `mapstructure:"output_path"` // stdout, stderr, or file path
	LogsDir    string `mapstructure:"logs_dir"`
	MaxSizeMB  int    `mapstructure:"max_size_mb"`
	MaxBackups int    `mapstructure:"max_backups"`
	MaxAgeDays int    `mapstructure:"max_age_days"`
	Compress   bool   `mapstructure:"compress"`
}

// DefaultConfig returns a configuration with default values
func DefaultConfig() *Config {
	return &Config{
		Server: ServerConfig{
			Host: "localhost",
			Port: 8080,
		},
		Download: DownloadConfig{
			RequestTimeout:   30 * time.Second,
			BatchDelay:       2 * time.Second,
			PollInterval:     time.Second,
			ConcurrentLimit:  3,
			AutoStartWorkers: true,
			MaxBatchSize:     50,
		},
		Queue: QueueConfig{
			DatabaseDriver:    "sqlite",
			DatabasePath:      "$HOME/.mediagrab/mediagrab.db",
			CheckInterval:     5 * time.Second,
			ProgressRetention: time.Hour,
		},
		Providers: ProvidersConfig{
			TikwmHost:       "https://www.tikwm.com/",
			BetabotzBaseURL: "https://api.betabotz.eu.org/api/download/",
			UserAgent:       "Mozilla/5.0 (compatible; mediagrab/1.0)",
		},
		History: HistoryConfig{
			CleanupSchedule:   "@daily",
			QuickAccessMaxAge: 30 * 24 * time.Hour,
			QuickAccessLimit:  20,
			DefaultMaxItems:   100,
		},
		Notification: NotificationConfig{
			Enabled: false,
			Sound:   true,
			Method:  "notify-send",
		},
		Logging: LoggingConfig{
			Level:      "info",
			Format:     "console",
			OutputPath: "stdout",
			LogsDir:    "$HOME/.mediagrab/logs",
			MaxSizeMB:  50,
			MaxBackups: 5,
			MaxAgeDays: 28,
			Compress:   true,
		},
	}
}
