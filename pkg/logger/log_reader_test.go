package logger

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func newTestMultiLogger(t *testing.T) *MultiLogger {
	t.Helper()
	ml, err := NewMultiLogger(MultiLoggerConfig{Level: "info", LogsDir: t.TempDir()})
	require.NoError(t, err)
	t.Cleanup(func() { _ = ml.Close() })
	return ml
}

func TestLogReader_ReadLogs(t *testing.T) {
	ml := newTestMultiLogger(t)
	ml.LogQueueEvent("download_queued", zap.String("id", "dl_1"))
	ml.LogQueueEvent("download_completed", zap.String("id", "dl_1"))
	ml.LogQueueEvent("download_queued", zap.String("id", "dl_2"))
	_ = ml.GetLogger(CategoryQueue).Sync()

	reader := NewLogReader(ml)

	entries, err := reader.ReadLogs(CategoryQueue, 0)
	require.NoError(t, err)
	require.Len(t, entries, 3)
	assert.Equal(t, "download_queued", entries[0].Message)
	assert.Equal(t, "info", entries[0].Level)
	assert.Equal(t, "queue", entries[0].Category)
	assert.NotEmpty(t, entries[0].Timestamp)
	assert.Equal(t, "dl_1", entries[0].Fields["id"])

	last, err := reader.ReadLogs(CategoryQueue, 2)
	require.NoError(t, err)
	require.Len(t, last, 2)
	assert.Equal(t, "download_completed", last[0].Message)
	assert.Equal(t, "dl_2", last[1].Fields["id"])
}

func TestLogReader_SearchLogs(t *testing.T) {
	ml := newTestMultiLogger(t)
	ml.LogQueueEvent("download_queued", zap.String("id", "dl_1"))
	ml.LogQueueEvent("download_failed", zap.String("id", "dl_2"))
	_ = ml.GetLogger(CategoryQueue).Sync()

	entries, err := NewLogReader(ml).SearchLogs(CategoryQueue, "FAILED", 10)
	require.NoError(t, err)
	require.Len(t, entries, 1)
	assert.Equal(t, "dl_2", entries[0].Fields["id"])
}

func TestLogReader_EmptyAndUnknown(t *testing.T) {
	ml := newTestMultiLogger(t)
	reader := NewLogReader(ml)

	entries, err := reader.ReadLogs(CategoryBatch, 10)
	require.NoError(t, err)
	assert.Empty(t, entries)

	_, err = reader.ReadLogs(LogCategory("download"), 10)
	assert.Error(t, err)
	assert.False(t, ValidCategory("download"))
	assert.Len(t, Categories(), 3)
}

func TestParseLine_PlainText(t *testing.T) {
	entry := parseLine(CategoryError, "not json")
	assert.Equal(t, "not json", entry.Message)
	assert.Equal(t, "info", entry.Level)
	assert.Nil(t, entry.Fields)
}
