package logger

import (
	"bufio"
	"encoding/json"
	"fmt"
	"os"
	"strings"
)

// LogEntry is one parsed line of a category log
type LogEntry struct {
	Timestamp string         `json:"timestamp"`
	Level     string         `json:"level"`
	Message   string         `json:"message"`
	Category  string         `json:"category"`
	Fields    map[string]any `json:"fields,omitempty"`
}

// Categories lists the categories written by MultiLogger
func Categories() []LogCategory {
	return []LogCategory{CategoryQueue, CategoryBatch, CategoryError}
}

// ValidCategory reports whether category is written by MultiLogger
func ValidCategory(category LogCategory) bool {
	for _, c := range Categories() {
		if c == category {
			return true
		}
	}
	return false
}

// LogReader reads the active file of each category log
type LogReader struct {
	multiLogger *MultiLogger
}

// NewLogReader creates a log reader over the files of ml
func NewLogReader(ml *MultiLogger) *LogReader {
	return &LogReader{multiLogger: ml}
}

// ReadLogs returns the last limit entries of a category (all when limit <= 0)
func (lr *LogReader) ReadLogs(category LogCategory, limit int) ([]LogEntry, error) {
	return lr.read(category, "", limit)
}

// SearchLogs returns the last limit entries whose message, level or fields contain query
func (lr *LogReader) SearchLogs(category LogCategory, query string, limit int) ([]LogEntry, error) {
	return lr.read(category, strings.ToLower(query), limit)
}

func (lr *LogReader) read(category LogCategory, query string, limit int) ([]LogEntry, error) {
	if !ValidCategory(category) {
		return nil, fmt.Errorf("unknown log category: %s", category)
	}

	file, err := os.Open(lr.multiLogger.CategoryLogPath(category))
	if err != nil {
		if os.IsNotExist(err) {
			return []LogEntry{}, nil
		}
		return nil, err
	}
	defer file.Close()

	entries := []LogEntry{}
	scanner := bufio.NewScanner(file)
	scanner.Buffer(make([]byte, 64*1024), 1024*1024)
	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		if line == "" {
			continue
		}
		if query != "" && !strings.Contains(strings.ToLower(line), query) {
			continue
		}
		entries = append(entries, parseLine(category, line))
	}
	if err := scanner.Err(); err != nil {
		return nil, err
	}

	if limit > 0 && len(entries) > limit {
		entries = entries[len(entries)-limit:]
	}
	return entries, nil
}

// parseLine splits a JSON log line into the fixed keys and the rest.
// Lines that are not JSON are kept as plain messages.
func parseLine(category LogCategory, line string) LogEntry {
	entry := LogEntry{Category: string(category)}

	var raw map[string]any
	if err := json.Unmarshal([]byte(line), &raw); err != nil {
		entry.Level = "info"
		entry.Message = line
		return entry
	}

	entry.Timestamp, _ = raw["ts"].(string)
	entry.Level, _ = raw["level"].(string)
	entry.Message, _ = raw["msg"].(string)
	delete(raw, "ts")
	delete(raw, "level")
	delete(raw, "msg")
	if len(raw) > 0 {
		entry.Fields = raw
	}
	return entry
}
