package logging

import (
	"bytes"
	"strings"
	"testing"

	"github.com/rs/zerolog"
)

func TestNew_DebugLevel(t *testing.T) {
	var buf bytes.Buffer
	logger := New(Config{
		Level:  "debug",
		Pretty: false,
		Output: &buf,
	})

	logger.Trace().Msg("trace message")
	logger.Debug().Msg("debug message")
	logger.Info().Msg("info message")

	output := buf.String()

	if strings.Contains(output, "trace message") {
		t.Error("Expected trace message to NOT be logged at debug level")
	}
	if !strings.Contains(output, "debug message") {
		t.Error("Expected debug message to be logged at debug level")
	}
	if !strings.Contains(output, "info message") {
		t.Error("Expected info message to be logged at debug level")
	}
}

func TestNew_WarnLevel(t *testing.T) {
	var buf bytes.Buffer
	logger := New(Config{
		Level:  "warn",
		Pretty: false,
		Output: &buf,
	})

	logger.Info().Msg("info message")
	logger.Warn().Msg("warn message")

	output := buf.String()

	if strings.Contains(output, "info message") {
		t.Error("Expected info message to NOT be logged at warn level")
	}
	if !strings.Contains(output, "warn message") {
		t.Error("Expected warn message to be logged at warn level")
	}
}

func TestNew_Off(t *testing.T) {
	var buf bytes.Buffer
	logger := New(Config{
		Level:  "off",
		Pretty: false,
		Output: &buf,
	})

	logger.Error().Msg("error message")

	if buf.Len() != 0 {
		t.Errorf("Expected no output when logging is off, got %q", buf.String())
	}
}

func TestNewWithComponent(t *testing.T) {
	var buf bytes.Buffer
	logger := NewWithComponent(Config{
		Level:  "info",
		Pretty: false,
		Output: &buf,
	}, "debugger")

	logger.Info().Msg("test message")

	output := buf.String()

	if !strings.Contains(output, "debugger") {
		t.Error("Expected log to contain component name 'debugger'")
	}
	if !strings.Contains(output, "test message") {
		t.Error("Expected log to contain message 'test message'")
	}
}

func TestNew_PrettyOutput(t *testing.T) {
	var buf bytes.Buffer
	logger := New(Config{
		Level:  "info",
		Pretty: true,
		Output: &buf,
	})

	logger.Info().Msg("test message")

	if !strings.Contains(buf.String(), "test message") {
		t.Error("Expected pretty output to contain message 'test message'")
	}
}

func TestNew_InvalidLevel(t *testing.T) {
	var buf bytes.Buffer
	logger := New(Config{
		Level:  "invalid",
		Pretty: false,
		Output: &buf,
	})

	logger.Info().Msg("info message")
	logger.Warn().Msg("warn message")

	output := buf.String()

	// Unknown levels fall back to warn.
	if strings.Contains(output, "info message") {
		t.Error("Expected info message to NOT be logged with invalid level")
	}
	if !strings.Contains(output, "warn message") {
		t.Error("Expected warn message to be logged with invalid level")
	}
}

func TestDefaultConfig(t *testing.T) {
	cfg := DefaultConfig()

	if cfg.Level != "warn" {
		t.Errorf("Expected default level 'warn', got '%s'", cfg.Level)
	}
	if cfg.Pretty {
		t.Error("Expected default pretty to be false")
	}
}

func TestNew_LevelHierarchy(t *testing.T) {
	levels := []struct {
		level    string
		expected zerolog.Level
	}{
		{"trace", zerolog.TraceLevel},
		{"debug", zerolog.DebugLevel},
		{"info", zerolog.InfoLevel},
		{"warn", zerolog.WarnLevel},
		{"error", zerolog.ErrorLevel},
		{"off", zerolog.Disabled},
	}

	for _, tc := range levels {
		t.Run(tc.level, func(t *testing.T) {
			var buf bytes.Buffer
			logger := New(Config{
				Level:  tc.level,
				Pretty: false,
				Output: &buf,
			})

			if logger.GetLevel() != tc.expected {
				t.Errorf("Expected level %v, got %v", tc.expected, logger.GetLevel())
			}
		})
	}
}
