package domain

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestDefaultConfig(t *testing.T) {
	config := DefaultConfig()

	assert.NotNil(t, config)
	assert.Equal(t, "localhost", config.Server.Host)
	assert.Equal(t, 8080, config.Server.Port)
	assert.Equal(t, 2*time.Second, config.Download.BatchDelay)
	assert.Equal(t, time.Second, config.Download.PollInterval)
	assert.Equal(t, 50, config.Download.MaxBatchSize)
	assert.True(t, config.Download.AutoStartWorkers)
	assert.Equal(t, "sqlite", config.Queue.DatabaseDriver)
	assert.Equal(t, time.Hour, config.Queue.ProgressRetention)
	assert.Equal(t, "https://www.tikwm.com/", config.Providers.TikwmHost)
	assert.Equal(t, "@daily", config.History.CleanupSchedule)
	assert.Equal(t, 20, config.History.QuickAccessLimit)
	assert.Equal(t, 100, config.History.DefaultMaxItems)
	assert.False(t, config.Notification.Enabled)
	assert.Equal(t, "info", config.Logging.Level)
}

func TestDefaultPreferences(t *testing.T) {
	prefs := DefaultPreferences()

	assert.True(t, prefs.AutoSaveHistory)
	assert.Equal(t, 100, prefs.MaxHistoryItems)
	assert.Equal(t, 5, prefs.BatchSize)
	assert.Empty(t, prefs.FavoritePlatforms)
}
