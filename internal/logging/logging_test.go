package logging

import (
	"bytes"
	"encoding/json"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"testing"
)

func TestParseLevel(t *testing.T) {
	tests := map[string]slog.Level{
		"debug":   slog.LevelDebug,
		" INFO ":  slog.LevelInfo,
		"warn":    slog.LevelWarn,
		"warning": slog.LevelWarn,
		"error":   slog.LevelError,
		"":        slog.LevelInfo,
		"chatty":  slog.LevelInfo,
	}
	for in, want := range tests {
		if got := ParseLevel(in); got != want {
			t.Errorf("ParseLevel(%q) = %v, want %v", in, got, want)
		}
	}
}

func TestNewLogger_JSONAndLevel(t *testing.T) {
	var buf bytes.Buffer
	logger, closer := newLogger(&buf, Options{Level: "warn"})
	defer closer.Close()

	logger.Info("dropped")
	logger.Warn("cache write failed", "service", "forecast", "event", "cache_write_failed", "cache_key", "forecast/zip/60601")

	lines := strings.Split(strings.TrimSpace(buf.String()), "\n")
	if len(lines) != 1 {
		t.Fatalf("expected one record above warn, got %d: %q", len(lines), buf.String())
	}

	var rec map[string]any
	if err := json.Unmarshal([]byte(lines[0]), &rec); err != nil {
		t.Fatalf("record is not JSON: %v", err)
	}
	if rec["event"] != "cache_write_failed" || rec["cache_key"] != "forecast/zip/60601" || rec["service"] != "forecast" {
		t.Fatalf("unexpected record %v", rec)
	}
}

func TestNewLogger_TeesToFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "logs", "app.log")

	var buf bytes.Buffer
	logger, closer := newLogger(&buf, Options{Level: "info", File: path, MaxSizeMB: 1})
	logger.Info("cache hit", "event", "cache_hit")
	if err := closer.Close(); err != nil {
		t.Fatalf("Close() error = %v", err)
	}

	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("reading log file: %v", err)
	}
	if !strings.Contains(string(data), `"event":"cache_hit"`) {
		t.Fatalf("log file missing record: %q", data)
	}
	if !strings.Contains(buf.String(), `"event":"cache_hit"`) {
		t.Fatalf("stdout missing record: %q", buf.String())
	}
}
