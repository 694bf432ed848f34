package common

import (
	"bytes"
	"errors"
	"log/slog"
	"strings"
	"testing"
)

func TestLogLevel_ToSlogLevel(t *testing.T) {
	tests := []struct {
		name     string
		level    LogLevel
		expected slog.Level
		str      string
	}{
		{"error level", LogLevelError, slog.LevelError, "error"},
		{"warn level", LogLevelWarn, slog.LevelWarn, "warn"},
		{"info level", LogLevelInfo, slog.LevelInfo, "info"},
		{"debug level", LogLevelDebug, slog.LevelDebug, "debug"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := tt.level.ToSlogLevel(); got != tt.expected {
				t.Fatalf("ToSlogLevel() = %v, want %v", got, tt.expected)
			}
			if got := tt.level.String(); got != tt.str {
				t.Fatalf("String() = %q, want %q", got, tt.str)
			}
			logger := NewLogger(tt.level)
			if logger == nil || logger.Logger == nil {
				t.Fatal("expected logger, got nil")
			}
			if logger.Level() != tt.level {
				t.Fatalf("Level() = %v, want %v", logger.Level(), tt.level)
			}
		})
	}
}

func TestLoggerWithContext(t *testing.T) {
	var buf bytes.Buffer
	logger := NewTextLoggerTo(&buf, LogLevelDebug)

	logger.WithComponent("schemasync").
		WithSchema("/app/schema.prisma").
		WithTool("prisma").
		WithStore("sqlite").
		Info("sync finished")

	out := buf.String()
	for _, want := range []string{"component=schemasync", "schema=/app/schema.prisma", "tool=prisma", "store=sqlite"} {
		if !strings.Contains(out, want) {
			t.Errorf("expected %q in output %q", want, out)
		}
	}
}

func TestTextLogger_MasksMasterKey(t *testing.T) {
	var buf bytes.Buffer
	logger := NewTextLoggerTo(&buf, LogLevelInfo)

	logger.Info("starting", "env", "LITELLM_MASTER_KEY=sk-abcdef0123", "master_key", "sk-secret")
	logger.Error("push failed", "error", errors.New("connect postgres://user:hunter2@db:5432/litellm"))

	out := buf.String()
	if strings.Contains(out, "abcdef0123") || strings.Contains(out, "sk-secret") {
		t.Fatalf("master key leaked: %s", out)
	}
	if strings.Contains(out, "hunter2") {
		t.Fatalf("database password leaked: %s", out)
	}
	if !strings.Contains(out, MaskedValue) {
		t.Fatalf("expected masked marker in %s", out)
	}
}

func TestTextLogger_KeepsNonStringValues(t *testing.T) {
	var buf bytes.Buffer
	logger := NewTextLoggerTo(&buf, LogLevelInfo)

	logger.Info("result", "exit_code", 3, "args", []string{"db", "push"})

	out := buf.String()
	if !strings.Contains(out, "exit_code=3") {
		t.Errorf("expected exit_code=3 in %q", out)
	}
	if !strings.Contains(out, "args=\"[db push]\"") && !strings.Contains(out, "args=[db push]") {
		t.Errorf("expected args slice in %q", out)
	}
}

func TestGlobalLogger(t *testing.T) {
	if GetLogger() == nil {
		t.Fatal("expected default logger, got nil")
	}

	customLogger := NewLogger(LogLevelDebug)
	SetDefaultLogger(customLogger)
	defer SetDefaultLogger(NewLogger(LogLevelInfo))

	if GetLogger() != customLogger {
		t.Fatal("expected custom logger to be set as default")
	}
}

func TestLogFunctions(t *testing.T) {
	var buf bytes.Buffer
	SetDefaultLogger(NewTextLoggerTo(&buf, LogLevelDebug))
	defer SetDefaultLogger(NewLogger(LogLevelInfo))

	LogInfo("test info message", "key_env", "LITELLM_MASTER_KEY")
	LogDebug("test debug message")
	LogWarn("test warn message")
	LogError("test error message", errors.New("boom"))

	output := buf.String()
	for _, want := range []string{"test info message", "test debug message", "test warn message", "test error message", "boom"} {
		if !strings.Contains(output, want) {
			t.Errorf("expected %q in output", want)
		}
	}
}
