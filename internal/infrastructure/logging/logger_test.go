package logging

import (
	"bytes"
	"encoding/json"
	"log/slog"
	"strings"
	"testing"

	"github.com/nerrad567/sensor-relay/internal/infrastructure/config"
)

func decode(t *testing.T, buf *bytes.Buffer) map[string]any {
	t.Helper()
	var entry map[string]any
	if err := json.Unmarshal(buf.Bytes(), &entry); err != nil {
		t.Fatalf("failed to parse JSON output %q: %v", buf.String(), err)
	}
	return entry
}

func TestParseLevel(t *testing.T) {
	tests := []struct {
		input string
		want  slog.Level
	}{
		{"debug", slog.LevelDebug},
		{"info", slog.LevelInfo},
		{"warn", slog.LevelWarn},
		{"warning", slog.LevelWarn},
		{"error", slog.LevelError},
		{"DEBUG", slog.LevelDebug},
		{"unknown", slog.LevelInfo},
		{"", slog.LevelInfo},
	}

	for _, tt := range tests {
		if got := parseLevel(tt.input); got != tt.want {
			t.Errorf("parseLevel(%q) = %v, want %v", tt.input, got, tt.want)
		}
	}
}

func TestNewWithWriter_DefaultFields(t *testing.T) {
	var buf bytes.Buffer

	logger := NewWithWriter(config.LoggingConfig{Level: "info", Format: "json"}, "test-1.2.3", &buf)
	logger.Component("mqtt").Info("test message", "key", "value")

	entry := decode(t, &buf)
	checks := map[string]string{
		"msg":       "test message",
		"key":       "value",
		"service":   ServiceName,
		"version":   "test-1.2.3",
		"component": "mqtt",
	}
	for k, want := range checks {
		if entry[k] != want {
			t.Errorf("expected %s=%q, got %v", k, want, entry[k])
		}
	}
}

func TestNewWithWriter_TextFormat(t *testing.T) {
	var buf bytes.Buffer

	logger := NewWithWriter(config.LoggingConfig{Level: "debug", Format: "TEXT"}, "dev", &buf)
	logger.Debug("hub started", "clients", 0)

	out := buf.String()
	if !strings.Contains(out, "msg=\"hub started\"") || !strings.Contains(out, "clients=0") {
		t.Errorf("text output = %q", out)
	}
}

func TestNewWithWriter_LevelFiltering(t *testing.T) {
	var buf bytes.Buffer

	logger := NewWithWriter(config.LoggingConfig{Level: "warn", Format: "text"}, "dev", &buf)
	logger.Info("dropped")
	logger.Warn("kept")

	output := buf.String()
	if strings.Contains(output, "dropped") {
		t.Error("info entry should be filtered at warn level")
	}
	if !strings.Contains(output, "kept") {
		t.Error("expected warn entry in output")
	}
}

func TestNewWithWriter_RedactsSecrets(t *testing.T) {
	var buf bytes.Buffer

	logger := NewWithWriter(config.LoggingConfig{Level: "info", Format: "json"}, "dev", &buf)
	logger.Info("connecting",
		"broker", "localhost:1883",
		"mqtt_password", "hunter2",
		"Token", "influx-token",
	)

	entry := decode(t, &buf)
	if entry["broker"] != "localhost:1883" {
		t.Errorf("broker = %v, want it untouched", entry["broker"])
	}
	for _, k := range []string{"mqtt_password", "Token"} {
		if entry[k] != redacted {
			t.Errorf("%s = %v, want %q", k, entry[k], redacted)
		}
	}
	if strings.Contains(buf.String(), "hunter2") {
		t.Error("password leaked into log output")
	}
}

func TestLogger_WithReturnsChild(t *testing.T) {
	var buf bytes.Buffer

	parent := NewWithWriter(config.LoggingConfig{Format: "json"}, "dev", &buf)
	child := parent.With("client_id", "abc")
	if child == parent {
		t.Fatal("With() returned the parent")
	}

	parent.Info("parent entry")
	if strings.Contains(buf.String(), "client_id") {
		t.Error("child attributes leaked into parent")
	}
}

func TestDefaultAndDiscard(t *testing.T) {
	if Default("1.0.0") == nil {
		t.Fatal("Default() = nil")
	}
	Discard().Error("goes nowhere")
}

// TestDefault_CarriesBuildVersion checks the pre-config logger is tagged
// with the real build version, so callers need not log it again.
func TestDefault_CarriesBuildVersion(t *testing.T) {
	var buf bytes.Buffer
	NewWithWriter(defaultConfig, "1.4.0", &buf).Info("starting sensor relay", "commit", "abc123")

	entry := decode(t, &buf)
	if entry["version"] != "1.4.0" {
		t.Errorf("version = %v, want 1.4.0", entry["version"])
	}
	if n := strings.Count(buf.String(), `"version"`); n != 1 {
		t.Errorf("version appears %d times, want once: %s", n, buf.String())
	}
}
