package logger

import (
	"fmt"
	"os"
	"path/filepath"
	"sync"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"gopkg.in/natefinch/lumberjack.v2"
)

// LogCategory represents different log categories
type LogCategory string

const (
	CategoryQueue LogCategory = "queue" // Download lifecycle events (JSON)
	CategoryBatch LogCategory = "batch" // Batch runs (JSON)
	CategoryError LogCategory = "error" // Application errors (JSON)
)

// MultiLogger provides categorized JSON logging, one rotated file per category
type MultiLogger struct {
	loggers map[LogCategory]*zap.Logger
	writers []*lumberjack.Logger
	config  MultiLoggerConfig
	mu      sync.RWMutex
}

// MultiLoggerConfig contains configuration for multi-output logging
type MultiLoggerConfig struct {
	Level      string // debug, info, warn, error
	LogsDir    string // Directory for log files
	MaxSizeMB  int
	MaxBackups int
	MaxAgeDays int
	Compress   bool
}

// NewMultiLogger creates a new multi-output logger
func NewMultiLogger(config MultiLoggerConfig) (*MultiLogger, error) {
	if config.LogsDir == "" {
		return nil, fmt.Errorf("logs_dir must be specified")
	}

	if err := os.MkdirAll(config.LogsDir, 0755); err != nil {
		return nil, fmt.Errorf("failed to create logs directory: %w", err)
	}

	ml := &MultiLogger{
		loggers: make(map[LogCategory]*zap.Logger),
		config:  config,
	}

	level, err := zapcore.ParseLevel(config.Level)
	if err != nil {
		level = zapcore.InfoLevel
	}

	ml.loggers[CategoryQueue] = ml.createStructuredLogger(CategoryQueue, level)
	ml.loggers[CategoryBatch] = ml.createStructuredLogger(CategoryBatch, level)
	// error file only receives errors regardless of the configured level
	ml.loggers[CategoryError] = ml.createStructuredLogger(CategoryError, zapcore.ErrorLevel)

	return ml, nil
}

// createStructuredLogger creates a JSON-formatted logger for a category
func (ml *MultiLogger) createStructuredLogger(category LogCategory, level zapcore.Level) *zap.Logger {
	encoderConfig := zap.NewProductionEncoderConfig()
	encoderConfig.TimeKey = "ts"
	encoderConfig.EncodeTime = zapcore.ISO8601TimeEncoder
	encoderConfig.CallerKey = ""

	writer := rotatingWriter(ml.CategoryLogPath(category), Config{
		MaxSizeMB:  ml.config.MaxSizeMB,
		MaxBackups: ml.config.MaxBackups,
		MaxAgeDays: ml.config.MaxAgeDays,
		Compress:   ml.config.Compress,
	})
	ml.writers = append(ml.writers, writer)

	core := zapcore.NewCore(zapcore.NewJSONEncoder(encoderConfig), zapcore.AddSync(writer), level)
	return zap.New(core)
}

// CategoryLogPath returns the active log file of a category
func (ml *MultiLogger) CategoryLogPath(category LogCategory) string {
	return filepath.Join(ml.config.LogsDir, fmt.Sprintf("%s.log", category))
}

// GetLogger returns the structured logger for a specific category
func (ml *MultiLogger) GetLogger(category LogCategory) *zap.Logger {
	ml.mu.RLock()
	defer ml.mu.RUnlock()

	if logger, ok := ml.loggers[category]; ok {
		return logger
	}
	return ml.loggers[CategoryError]
}

// LogAppError logs an application-level error
func (ml *MultiLogger) LogAppError(msg string, fields ...zap.Field) {
	ml.GetLogger(CategoryError).Error(msg, fields...)
}

// LogQueueEvent logs a download lifecycle event
func (ml *MultiLogger) LogQueueEvent(event string, fields ...zap.Field) {
	ml.GetLogger(CategoryQueue).Info(event, fields...)
}

// LogBatchEvent logs a batch event
func (ml *MultiLogger) LogBatchEvent(event string, fields ...zap.Field) {
	ml.GetLogger(CategoryBatch).Info(event, fields...)
}

// Close flushes all loggers and closes their files
func (ml *MultiLogger) Close() error {
	ml.mu.Lock()
	defer ml.mu.Unlock()

	var lastErr error
	for _, logger := range ml.loggers {
		_ = logger.Sync()
	}
	for _, w := range ml.writers {
		if err := w.Close(); err != nil {
			lastErr = err
		}
	}
	return lastErr
}
