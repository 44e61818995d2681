package logger

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func TestNew_FileOutput(t *testing.T) {
	path := filepath.Join(t.TempDir(), "nested", "app.log")

	log, err := New(Config{Level: "debug", Format: "json", OutputPath: path})
	require.NoError(t, err)
	log.Info("hello", zap.String("id", "dl_1"))
	_ = log.Sync()

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Contains(t, string(data), `"id":"dl_1"`)
}

func TestNew_InvalidLevelFallsBackToInfo(t *testing.T) {
	log, err := New(Config{Level: "loud", OutputPath: "stderr"})
	require.NoError(t, err)
	assert.False(t, log.Core().Enabled(zap.DebugLevel))
	assert.True(t, log.Core().Enabled(zap.InfoLevel))
}

func TestMultiLogger_Categories(t *testing.T) {
	dir := t.TempDir()
	ml, err := NewMultiLogger(MultiLoggerConfig{Level: "info", LogsDir: dir})
	require.NoError(t, err)

	ml.LogQueueEvent("download_completed", zap.String("id", "dl_1"))
	ml.LogBatchEvent("batch_finished", zap.Int("completed", 4))
	ml.LogAppError("boom")
	require.NoError(t, ml.Close())

	queue, err := os.ReadFile(ml.CategoryLogPath(CategoryQueue))
	require.NoError(t, err)
	assert.True(t, strings.Contains(string(queue), "download_completed"))

	batch, err := os.ReadFile(ml.CategoryLogPath(CategoryBatch))
	require.NoError(t, err)
	assert.Contains(t, string(batch), "batch_finished")

	errs, err := os.ReadFile(ml.CategoryLogPath(CategoryError))
	require.NoError(t, err)
	assert.Contains(t, string(errs), "boom")
}

func TestMultiLogger_RequiresDir(t *testing.T) {
	_, err := NewMultiLogger(MultiLoggerConfig{})
	assert.Error(t, err)
}
