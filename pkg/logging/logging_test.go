package logging

import (
	"bytes"
	"encoding/json"
	"log/slog"
	"strings"
	"testing"
)

func TestParseLevel(t *testing.T) {
	tests := []struct {
		in   string
		want slog.Level
	}{
		{"DEBUG", slog.LevelDebug},
		{"debug", slog.LevelDebug},
		{"INFO", slog.LevelInfo},
		{"warn", slog.LevelWarn},
		{"WARNING", slog.LevelWarn},
		{"error", slog.LevelError},
		{"", slog.LevelInfo},
		{"verbose", slog.LevelInfo},
	}

	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			if got := ParseLevel(tt.in); got != tt.want {
				t.Errorf("ParseLevel(%q) = %v, want %v", tt.in, got, tt.want)
			}
		})
	}
}

func TestDefaultConfig(t *testing.T) {
	t.Setenv("LOG_LEVEL", "debug")
	t.Setenv("LOG_FORMAT", "JSON")

	cfg := DefaultConfig()
	if cfg.Level != slog.LevelDebug {
		t.Errorf("level: got %v, want DEBUG", cfg.Level)
	}
	if !cfg.JSON {
		t.Error("expected JSON output")
	}
}

func TestNew_JSONWithComponent(t *testing.T) {
	var buf bytes.Buffer
	logger := Component(New(Config{Level: slog.LevelInfo, JSON: true, Output: &buf}), "ledger")

	logger.Debug("hidden")
	logger.Info("expense appended", "category", "Food")

	lines := strings.Split(strings.TrimSpace(buf.String()), "\n")
	if len(lines) != 1 {
		t.Fatalf("expected one line, got %d: %q", len(lines), buf.String())
	}

	var entry map[string]any
	if err := json.Unmarshal([]byte(lines[0]), &entry); err != nil {
		t.Fatalf("invalid JSON log line: %v", err)
	}
	if entry["component"] != "ledger" || entry["category"] != "Food" || entry["msg"] != "expense appended" {
		t.Errorf("unexpected entry: %v", entry)
	}
}

func TestNew_Text(t *testing.T) {
	var buf bytes.Buffer
	New(Config{Level: slog.LevelWarn, Output: &buf}).Warn("careful", "n", 1)

	if !strings.Contains(buf.String(), "msg=careful") || !strings.Contains(buf.String(), "n=1") {
		t.Errorf("unexpected text output: %q", buf.String())
	}
}
