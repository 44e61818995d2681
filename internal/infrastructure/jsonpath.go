package infrastructure

import (
	"fmt"
	"regexp"
	"strconv"
	"strings"
)

// Loose accessors for decoded provider JSON. Providers change field types
// without notice, so every accessor tolerates a missing or mistyped value
// and reports it as absent.

func lookup(v any, path ...string) any {
	cur := v
	for _, key := range path {
		m, ok := cur.(map[string]any)
		if !ok {
			return nil
		}
		cur = m[key]
	}
	return cur
}

// getString returns the string at path, or "" if absent
func getString(v any, path ...string) string {
	switch s := lookup(v, path...).(type) {
	case string:
		return strings.TrimSpace(s)
	case float64:
		return strconv.FormatFloat(s, 'f', -1, 64)
	}
	return ""
}

// firstString returns the first non-empty string among the given keys of m
func firstString(v any, keys ...string) string {
	for _, k := range keys {
		if s := getString(v, k); s != "" {
			return s
		}
	}
	return ""
}

func getMap(v any, path ...string) map[string]any {
	m, _ := lookup(v, path...).(map[string]any)
	return m
}

func getSlice(v any, path ...string) []any {
	s, _ := lookup(v, path...).([]any)
	return s
}

func getFloat(v any, path ...string) (float64, bool) {
	switch n := lookup(v, path...).(type) {
	case float64:
		return n, true
	case string:
		f, err := strconv.ParseFloat(strings.TrimSpace(n), 64)
		return f, err == nil
	}
	return 0, false
}

// getBool treats true, non-zero numbers, and "true"/"1" as true
func getBool(v any, path ...string) bool {
	switch b := lookup(v, path...).(type) {
	case bool:
		return b
	case float64:
		return b != 0
	case string:
		return b == "true" || b == "1"
	}
	return false
}

// linkOf extracts a URL from an entry that is either a bare string or an
// object carrying the link under one of the given keys
func linkOf(entry any, keys ...string) string {
	if s, ok := entry.(string); ok {
		return strings.TrimSpace(s)
	}
	return firstString(entry, keys...)
}

var sizeLabelPattern = regexp.MustCompile(`(?i)^\s*([0-9]+(?:[.,][0-9]+)?)\s*([KMGT]?i?B)?\s*$`)

var sizeUnits = map[string]float64{
	"":    1,
	"B":   1,
	"KB":  1e3,
	"MB":  1e6,
	"GB":  1e9,
	"TB":  1e12,
	"KIB": 1 << 10,
	"MIB": 1 << 20,
	"GIB": 1 << 30,
	"TIB": 1 << 40,
}

// parseSizeLabel converts a human-readable size such as "12.5 MB" into bytes
func parseSizeLabel(label string) (int64, bool) {
	m := sizeLabelPattern.FindStringSubmatch(label)
	if m == nil {
		return 0, false
	}
	n, err := strconv.ParseFloat(strings.ReplaceAll(m[1], ",", "."), 64)
	if err != nil {
		return 0, false
	}
	unit, ok := sizeUnits[strings.ToUpper(m[2])]
	if !ok {
		return 0, false
	}
	return int64(n * unit), true
}

// formatSizeMB renders a byte count the way file hosts label sizes
func formatSizeMB(bytes float64) string {
	return fmt.Sprintf("%.2f MB", bytes/(1024*1024))
}

var unsafeFilenameChars = regexp.MustCompile(`[\\/:*?"<>|\x00-\x1f]+`)

// safeFilename builds a filename from a title, falling back when the title is empty
func safeFilename(title, fallback, ext string) string {
	name := strings.TrimSpace(unsafeFilenameChars.ReplaceAllString(title, "_"))
	if r := []rune(name); len(r) > 80 {
		name = strings.TrimSpace(string(r[:80]))
	}
	if name == "" {
		name = fallback
	}
	if ext == "" {
		return name
	}
	return name + "." + ext
}
