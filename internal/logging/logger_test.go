package logging_test

import (
	"context"
	"encoding/json"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"truvideo/internal/config"
	"truvideo/internal/logging"
	"truvideo/internal/services"
)

func readLog(t *testing.T, path string) string {
	t.Helper()
	content, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("read log file: %v", err)
	}
	return string(content)
}

func TestNewFromConfigWritesJSONCopy(t *testing.T) {
	cfg := config.Default()
	cfg.Paths.LogDir = t.TempDir()
	cfg.Logging.Level = "error"

	logger, err := logging.NewFromConfig(&cfg)
	if err != nil {
		t.Fatalf("NewFromConfig returned error: %v", err)
	}
	logger.Error("export failed", logging.String("path", "/tmp/out.mp4"))

	content := readLog(t, filepath.Join(cfg.Paths.LogDir, "truvideo.log"))
	var record map[string]any
	if err := json.Unmarshal([]byte(strings.TrimSpace(content)), &record); err != nil {
		t.Fatalf("expected one JSON record, got %q: %v", content, err)
	}
	if record["msg"] != "export failed" || record["level"] != "error" || record["path"] != "/tmp/out.mp4" {
		t.Fatalf("unexpected record %v", record)
	}
	if _, ok := record["ts"]; !ok {
		t.Fatalf("expected ts key, got %v", record)
	}
}

func TestLogFileKeepsInfoWhenConsoleIsQuiet(t *testing.T) {
	dir := t.TempDir()
	consolePath := filepath.Join(dir, "console.log")
	filePath := filepath.Join(dir, "truvideo.log")

	logger, err := logging.New(logging.Options{Format: "console", Level: "error", OutputPaths: []string{consolePath}, FilePath: filePath})
	if err != nil {
		t.Fatalf("New returned error: %v", err)
	}
	logger.Info("recording started", logging.String(logging.FieldSessionID, "s-1"))
	logger.Debug("phase changed")

	if console := readLog(t, consolePath); console != "" {
		t.Fatalf("expected quiet console, got %q", console)
	}
	content := readLog(t, filePath)
	if !strings.Contains(content, `"msg":"recording started"`) || !strings.Contains(content, `"session_id":"s-1"`) {
		t.Fatalf("expected info record in log file, got %q", content)
	}
	if strings.Contains(content, "phase changed") {
		t.Fatalf("debug record should stay out of the log file: %q", content)
	}
}

func TestConsoleLoggerOmitsSourceForInfo(t *testing.T) {
	logPath := filepath.Join(t.TempDir(), "console-info.log")
	logger, err := logging.New(logging.Options{Format: "console", Level: "info", OutputPaths: []string{logPath}})
	if err != nil {
		t.Fatalf("New returned error: %v", err)
	}

	logging.NewComponentLogger(logger, "sequencer").Info("phase changed", logging.String("to", "recording"))

	content := readLog(t, logPath)
	if strings.Contains(content, ".go:") {
		t.Fatalf("expected no source information in info logs, got %q", content)
	}
	if !strings.Contains(content, "sequencer: phase changed") {
		t.Fatalf("expected component prefix, got %q", content)
	}
	if !strings.Contains(content, "to=recording") {
		t.Fatalf("expected key=value field, got %q", content)
	}
}

func TestConsoleLoggerIncludesSourceForDebug(t *testing.T) {
	logPath := filepath.Join(t.TempDir(), "console-debug.log")
	logger, err := logging.New(logging.Options{Format: "console", Level: "debug", OutputPaths: []string{logPath}})
	if err != nil {
		t.Fatalf("New returned error: %v", err)
	}

	logger.Info("message with source")

	if content := readLog(t, logPath); !strings.Contains(content, ".go:") {
		t.Fatalf("expected source information in debug logs, got %q", content)
	}
}

func TestNewRejectsUnknownFormat(t *testing.T) {
	if _, err := logging.New(logging.Options{Format: "xml"}); err == nil {
		t.Fatal("expected unsupported format error")
	}
}

func TestNewInvalidLevelDefaultsToInfo(t *testing.T) {
	logPath := filepath.Join(t.TempDir(), "level.log")
	logger, err := logging.New(logging.Options{Format: "json", Level: "invalid", OutputPaths: []string{logPath}})
	if err != nil {
		t.Fatalf("New returned error: %v", err)
	}
	logger.Debug("hidden")
	logger.Info("visible")

	content := readLog(t, logPath)
	if strings.Contains(content, "hidden") || !strings.Contains(content, "visible") {
		t.Fatalf("expected info threshold, got %q", content)
	}
}

func TestWithContextAddsFields(t *testing.T) {
	ctx := services.WithSessionID(context.Background(), "session-1")
	ctx = services.WithSegment(ctx, 3)

	logPath := filepath.Join(t.TempDir(), "ctx.log")
	logger, err := logging.New(logging.Options{Format: "json", Level: "info", OutputPaths: []string{logPath}})
	if err != nil {
		t.Fatalf("New returned error: %v", err)
	}
	logging.WithContext(ctx, logger).Info("contextual log")

	var record map[string]any
	if err := json.Unmarshal([]byte(strings.TrimSpace(readLog(t, logPath))), &record); err != nil {
		t.Fatalf("decode record: %v", err)
	}
	if record[logging.FieldSessionID] != "session-1" {
		t.Fatalf("session id = %v", record[logging.FieldSessionID])
	}
	if record[logging.FieldSegment] != float64(3) {
		t.Fatalf("segment = %v", record[logging.FieldSegment])
	}
}

func TestWarnWithContextAddsEventAndImpact(t *testing.T) {
	logPath := filepath.Join(t.TempDir(), "warn.log")
	logger, err := logging.New(logging.Options{Format: "json", Level: "info", OutputPaths: []string{logPath}})
	if err != nil {
		t.Fatalf("New returned error: %v", err)
	}
	logging.WarnWithContext(logger, "upload failed", "upload_failed", "file kept on disk")

	var record map[string]any
	if err := json.Unmarshal([]byte(strings.TrimSpace(readLog(t, logPath))), &record); err != nil {
		t.Fatalf("decode record: %v", err)
	}
	if record[logging.FieldEventType] != "upload_failed" || record[logging.FieldImpact] != "file kept on disk" {
		t.Fatalf("unexpected record %v", record)
	}
}

func TestTeeHandlerDuplicatesRecords(t *testing.T) {
	dir := t.TempDir()
	first := filepath.Join(dir, "a.log")
	second := filepath.Join(dir, "b.log")
	a, err := logging.New(logging.Options{Format: "json", OutputPaths: []string{first}})
	if err != nil {
		t.Fatalf("New a: %v", err)
	}
	b, err := logging.New(logging.Options{Format: "console", OutputPaths: []string{second}})
	if err != nil {
		t.Fatalf("New b: %v", err)
	}
	logger := slog.New(logging.TeeHandler(a.Handler(), b.Handler(), nil))
	logger.Info("twice")

	if !strings.Contains(readLog(t, first), "twice") || !strings.Contains(readLog(t, second), "twice") {
		t.Fatal("expected both handlers to receive the record")
	}
}

func TestNopLoggerDiscards(t *testing.T) {
	logger := logging.NewNop()
	if logger.Enabled(context.Background(), slog.LevelError) {
		t.Fatal("expected nop logger to be disabled")
	}
	logging.NewComponentLogger(nil, "x").Info("ignored")
}
