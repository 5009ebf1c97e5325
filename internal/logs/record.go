package logs

import (
	"encoding/json"
	"fmt"
	"sort"
	"strings"
	"time"
)

// Record is one decoded log line.
type Record struct {
	Time      time.Time
	Level     string
	Component string
	Message   string
	SessionID string
	Fields    map[string]any
	Raw       string
}

var reservedKeys = map[string]struct{}{
	"ts":         {},
	"level":      {},
	"msg":        {},
	"component":  {},
	"session_id": {},
	"source":     {},
}

// Parse decodes a JSON log line. Lines that are not JSON objects come back
// with only Raw set.
func Parse(line string) Record {
	rec := Record{Raw: line}
	trimmed := strings.TrimSpace(line)
	if !strings.HasPrefix(trimmed, "{") {
		return rec
	}
	var payload map[string]any
	if err := json.Unmarshal([]byte(trimmed), &payload); err != nil {
		return rec
	}
	if ts, ok := payload["ts"].(string); ok {
		if parsed, err := time.Parse(time.RFC3339Nano, ts); err == nil {
			rec.Time = parsed
		}
	}
	rec.Level = stringField(payload, "level")
	rec.Message = stringField(payload, "msg")
	rec.Component = stringField(payload, "component")
	rec.SessionID = stringField(payload, "session_id")
	for key, value := range payload {
		if _, skip := reservedKeys[key]; skip {
			continue
		}
		if rec.Fields == nil {
			rec.Fields = make(map[string]any)
		}
		rec.Fields[key] = value
	}
	return rec
}

// Structured reports whether the line decoded as a JSON record.
func (r Record) Structured() bool {
	return r.Message != "" || r.Level != ""
}

// String renders the record the way the console handler does.
func (r Record) String() string {
	if !r.Structured() {
		return r.Raw
	}
	var b strings.Builder
	if !r.Time.IsZero() {
		b.WriteString(r.Time.Local().Format("15:04:05"))
		b.WriteByte(' ')
	}
	b.WriteString(strings.ToUpper(r.Level))
	b.WriteByte(' ')
	if r.Component != "" {
		b.WriteString(r.Component)
		b.WriteString(": ")
	}
	b.WriteString(r.Message)
	if r.SessionID != "" {
		fmt.Fprintf(&b, " session_id=%s", r.SessionID)
	}
	keys := make([]string, 0, len(r.Fields))
	for key := range r.Fields {
		keys = append(keys, key)
	}
	sort.Strings(keys)
	for _, key := range keys {
		fmt.Fprintf(&b, " %s=%v", key, r.Fields[key])
	}
	return b.String()
}

// Filter selects records. Empty fields match everything.
type Filter struct {
	SessionID string
	Component string
	MinLevel  string
}

// Match reports whether rec passes the filter. Unstructured lines only pass
// an empty filter.
func (f Filter) Match(rec Record) bool {
	if f == (Filter{}) {
		return true
	}
	if !rec.Structured() {
		return false
	}
	if f.SessionID != "" && rec.SessionID != f.SessionID {
		return false
	}
	if f.Component != "" && !strings.EqualFold(rec.Component, f.Component) {
		return false
	}
	if f.MinLevel != "" && levelRank(rec.Level) < levelRank(f.MinLevel) {
		return false
	}
	return true
}

func levelRank(level string) int {
	switch strings.ToLower(strings.TrimSpace(level)) {
	case "debug":
		return 0
	case "warn", "warning":
		return 2
	case "error":
		return 3
	default:
		return 1
	}
}

func stringField(payload map[string]any, key string) string {
	if value, ok := payload[key].(string); ok {
		return value
	}
	return ""
}
