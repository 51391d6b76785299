package logger

import (
	"context"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"testing"
)

func TestParseLevel(t *testing.T) {
	cases := map[string]slog.Level{
		"debug":   slog.LevelDebug,
		" WARN ":  slog.LevelWarn,
		"error":   slog.LevelError,
		"info":    slog.LevelInfo,
		"verbose": slog.LevelInfo,
	}
	for in, want := range cases {
		if got := ParseLevel(in); got != want {
			t.Fatalf("ParseLevel(%q)=%v want %v", in, got, want)
		}
	}
}

func TestNewWritesJSONToRotatingFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "logs", "zenith.log")
	cfg := DefaultConfig()
	cfg.Format = "json"
	cfg.FilePath = path
	cfg.Level = "debug"

	log, closer, err := New(cfg)
	if err != nil {
		t.Fatalf("new logger: %v", err)
	}
	Component(log, "tasks").Debug("task added", "task_id", 7)
	if err := closer.Close(); err != nil {
		t.Fatalf("close: %v", err)
	}

	raw, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("read log: %v", err)
	}
	line := string(raw)
	if !strings.Contains(line, `"component":"tasks"`) || !strings.Contains(line, `"task_id":7`) {
		t.Fatalf("unexpected log line: %s", line)
	}
}

func TestDiscardOutputRespectsLevel(t *testing.T) {
	cfg := DefaultConfig()
	cfg.Output = "discard"
	cfg.Level = "error"
	log, closer, err := New(cfg)
	if err != nil {
		t.Fatalf("new logger: %v", err)
	}
	defer closer.Close()
	if log.Enabled(context.Background(), slog.LevelWarn) {
		t.Fatal("warn should be disabled at error level")
	}
}
