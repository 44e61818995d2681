package app

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/levtools/mediagrab/internal/domain"
	"github.com/spf13/viper"
)

// LoadConfig loads configuration from file and environment
func LoadConfig(configPath string) (*domain.Config, error) {
	config := domain.DefaultConfig()

	v := viper.New()
	v.SetConfigType("yaml")

	if configPath != "" {
		v.SetConfigFile(configPath)
	} else {
		v.SetConfigName("config")
		v.AddConfigPath("./configs")
		v.AddConfigPath("$HOME/.mediagrab")
		v.AddConfigPath("/etc/mediagrab")
	}

	// MEDIAGRAB_PROVIDERS_BETABOTZ_API_KEY and friends
	v.SetEnvPrefix("MEDIAGRAB")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()
	bindEnvKeys(v)

	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, fmt.Errorf("failed to read config file: %w", err)
		}
	}

	if err := v.Unmarshal(config); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}

	config = expandPaths(config)

	if err := validateConfig(config); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}

	return config, nil
}

// bindEnvKeys registers the keys that have no file value so AutomaticEnv
// can see them during Unmarshal
func bindEnvKeys(v *viper.Viper) {
	for _, key := range []string{
		"server.host", "server.port",
		"download.request_timeout", "download.batch_delay", "download.concurrent_limit",
		"download.max_batch_size",
		"queue.database_driver", "queue.database_path", "queue.database_dsn",
		"providers.tikwm_host", "providers.betabotz_base_url", "providers.betabotz_api_key",
		"logging.level", "logging.format", "logging.output_path", "logging.logs_dir",
		"notification.enabled",
	} {
		_ = v.BindEnv(key)
	}
}

// expandPaths expands environment variables in path configurations
func expandPaths(config *domain.Config) *domain.Config {
	config.Queue.DatabasePath = expandPath(config.Queue.DatabasePath)
	config.Logging.LogsDir = expandPath(config.Logging.LogsDir)

	if config.Logging.OutputPath != "stdout" && config.Logging.OutputPath != "stderr" {
		config.Logging.OutputPath = expandPath(config.Logging.OutputPath)
	}

	return config
}

// expandPath expands environment variables and ~ in paths
func expandPath(path string) string {
	if strings.HasPrefix(path, "~/") {
		if home, err := os.UserHomeDir(); err == nil {
			path = filepath.Join(home, path[2:])
		}
	}

	if strings.Contains(path, "$HOME") {
		if home, err := os.UserHomeDir(); err == nil {
			path = strings.ReplaceAll(path, "$HOME", home)
		}
	}

	return os.ExpandEnv(path)
}

// validateConfig validates the configuration
func validateConfig(config *domain.Config) error {
	if config.Server.Port < 1 || config.Server.Port > 65535 {
		return fmt.Errorf("invalid server port: %d", config.Server.Port)
	}

	if config.Download.RequestTimeout <= 0 {
		return fmt.Errorf("request timeout must be positive")
	}

	if config.Download.BatchDelay < 0 {
		return fmt.Errorf("batch delay cannot be negative")
	}

	if config.Download.ConcurrentLimit < 1 {
		return fmt.Errorf("concurrent limit must be at least 1")
	}

	if config.Download.MaxBatchSize < 1 {
		return fmt.Errorf("max batch size must be at least 1")
	}

	switch config.Queue.DatabaseDriver {
	case "", "sqlite":
		if config.Queue.DatabasePath == "" {
			return fmt.Errorf("queue database path not configured")
		}
	case "postgres":
		if config.Queue.DatabaseDSN == "" {
			return fmt.Errorf("queue database dsn not configured")
		}
	default:
		return fmt.Errorf("unsupported database driver: %s", config.Queue.DatabaseDriver)
	}

	if config.Providers.TikwmHost == "" || config.Providers.BetabotzBaseURL == "" {
		return fmt.Errorf("provider endpoints not configured")
	}

	if config.Logging.Level == "" {
		config.Logging.Level = "info"
	}

	return nil
}
