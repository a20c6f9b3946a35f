package logging

import (
	"bytes"
	"encoding/json"
	"log/slog"
	"testing"
)

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
		{"ERROR", slog.LevelError},
		{"", slog.LevelInfo},
		{"unknown", slog.LevelInfo},
	}
	for _, tt := range tests {
		if got := ParseLevel(tt.input); got != tt.want {
			t.Errorf("ParseLevel(%q) = %v, want %v", tt.input, got, tt.want)
		}
	}
}

func TestNew_JSON(t *testing.T) {
	var buf bytes.Buffer
	logger := New(Config{Level: "debug", Format: "json"}, &buf)

	logger.Info("prediction served", "customer_id", "7590-vhveg", "churn_probability", 0.62)

	var entry map[string]any
	if err := json.Unmarshal(buf.Bytes(), &entry); err != nil {
		t.Fatalf("output is not JSON: %v\n%s", err, buf.String())
	}
	if entry["msg"] != "prediction served" {
		t.Errorf("msg = %v, want prediction served", entry["msg"])
	}
	if entry["customer_id"] != "7590-vhveg" {
		t.Errorf("customer_id = %v", entry["customer_id"])
	}
}

func TestNew_LevelFilter(t *testing.T) {
	var buf bytes.Buffer
	logger := New(Config{Level: "error", Format: "text"}, &buf)

	logger.Info("should be dropped")
	if buf.Len() != 0 {
		t.Errorf("info record not filtered at error level: %s", buf.String())
	}
	logger.Error("kept")
	if buf.Len() == 0 {
		t.Errorf("error record missing")
	}
}
