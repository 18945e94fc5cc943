package logger

import (
	"bytes"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"testing"
)

func TestLevelFromString(t *testing.T) {
	tests := []struct {
		name    string
		input   string
		expect  slog.Level
		expectErr bool
	}{
		{"debug", "debug", slog.LevelDebug, false},
		{"default-info", "", slog.LevelInfo, false},
		{"warn", "warn", slog.LevelWarn, false},
		{"error", "error", slog.LevelError, false},
		{"invalid", "verbose", slog.LevelInfo, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			level, err := levelFromString(tt.input)
			if tt.expectErr {
				if err == nil {
					t.Fatalf("expected error for input %q", tt.input)
				}
				if !strings.Contains(err.Error(), "invalid log level") {
					t.Fatalf("unexpected error message: %v", err)
				}
				return
			}

			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			if level != tt.expect {
				t.Fatalf("expected %v, got %v", tt.expect, level)
			}
		})
	}
}

func TestInitAndL(t *testing.T) {
	t.Cleanup(func() {
		// reset singleton for other tests
		once = sync.Once{}
		global = nil
	})

	logger, err := Init(Config{Level: "debug", Environment: "dev", WithSource: true})
	if err != nil {
		t.Fatalf("Init returned error: %v", err)
	}

	if logger == nil {
		t.Fatalf("Init returned nil logger")
	}

	if L() != logger {
		t.Fatalf("L did not return initialized logger")
	}

	// second init should return same instance without error
	logger2, err := Init(Config{Level: "info", Environment: "prod"})
	if err != nil {
		t.Fatalf("unexpected error on second init: %v", err)
	}
	if logger2 != logger {
		t.Fatalf("expected same logger instance on re-init")
	}
}

func TestNew_WithoutLogFilePathWritesToStdout(t *testing.T) {
	logger, err := New(Config{Level: "info", Environment: "dev"})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if logger == nil {
		t.Fatalf("expected non-nil logger")
	}
}

func TestNew_WithLogFilePathRotatesToDisk(t *testing.T) {
	dir := t.TempDir()
	logPath := filepath.Join(dir, "run.log")

	logger, err := New(Config{Level: "info", Environment: "prod", LogFilePath: logPath, MaxSizeMB: 1, MaxBackups: 1, MaxAgeDays: 1})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	logger.Info("hello", slog.String("k", "v"))

	data, err := os.ReadFile(logPath)
	if err != nil {
		t.Fatalf("expected log file to exist: %v", err)
	}
	if !strings.Contains(string(data), "hello") {
		t.Fatalf("expected log file to contain emitted record, got %q", string(data))
	}
}

func TestLogStage_SuccessAndError(t *testing.T) {
	var buf bytes.Buffer
	handler := slog.NewJSONHandler(&buf, nil)
	l := slog.New(handler)

	LogStage(l, "proj1", "episode1", 2, "fuse", "complete", nil)
	out := buf.String()
	if !strings.Contains(out, "proj1") || !strings.Contains(out, "fuse") {
		t.Fatalf("expected stage attrs in output, got %q", out)
	}

	buf.Reset()
	LogStage(l, "proj1", "episode1", 2, "fuse", "complete", os.ErrClosed)
	out = buf.String()
	if !strings.Contains(out, "error") {
		t.Fatalf("expected error attr in output, got %q", out)
	}
}

func TestLogOperator_SuccessAndError(t *testing.T) {
	var buf bytes.Buffer
	handler := slog.NewJSONHandler(&buf, nil)
	l := slog.New(handler)

	LogOperator(l, "proj1", "episode1", 0, "denoise", 150, nil)
	out := buf.String()
	if !strings.Contains(out, "denoise") || !strings.Contains(out, "150") {
		t.Fatalf("expected operator attrs in output, got %q", out)
	}

	buf.Reset()
	LogOperator(l, "proj1", "episode1", 0, "denoise", 150, os.ErrClosed)
	out = buf.String()
	if !strings.Contains(out, "error") {
		t.Fatalf("expected error attr in output, got %q", out)
	}
}
