package logger

import (
	"bytes"
	"encoding/json"
	"strings"
	"testing"
)

func TestLoggerEmitsNDJSON(t *testing.T) {
	var buf bytes.Buffer
	l := NewWithConfig(Config{Level: DEBUG, Output: &buf})

	l.WithField("component", "test").Info("object uploaded", "objKey", "abc", "sizeBytes", 42)
	l.Debug("quota consumed", "remaining", 2)

	lines := strings.Split(strings.TrimSpace(buf.String()), "\n")
	if len(lines) != 2 {
		t.Fatalf("expected 2 records, got %d", len(lines))
	}

	record := make(map[string]interface{})
	if err := json.Unmarshal([]byte(lines[0]), &record); err != nil {
		t.Fatalf("first record is not valid JSON: %v", err)
	}
	if record["component"] != "test" {
		t.Errorf("expected component field, got %v", record["component"])
	}
	if record["objKey"] != "abc" {
		t.Errorf("expected objKey field, got %v", record["objKey"])
	}
	if record["message"] != "object uploaded" {
		t.Errorf("expected message field, got %v", record["message"])
	}
	if record["level"] != "info" {
		t.Errorf("expected info level, got %v", record["level"])
	}
}

func TestLoggerLevelFiltering(t *testing.T) {
	var buf bytes.Buffer
	l := NewWithConfig(Config{Level: WARN, Output: &buf})

	l.Debug("hidden")
	l.Info("hidden")
	l.Warn("visible")
	l.Error("visible")

	lines := strings.Split(strings.TrimSpace(buf.String()), "\n")
	if len(lines) != 2 {
		t.Fatalf("expected 2 records after filtering, got %d: %q", len(lines), buf.String())
	}
}

func TestParseLevel(t *testing.T) {
	tests := []struct {
		input   string
		want    LogLevel
		wantErr bool
	}{
		{"DEBUG", DEBUG, false},
		{"info", INFO, false},
		{"Warning", WARN, false},
		{"ERROR", ERROR, false},
		{"verbose", INFO, true},
	}

	for _, tt := range tests {
		got, err := ParseLevel(tt.input)
		if (err != nil) != tt.wantErr {
			t.Errorf("ParseLevel(%q) error = %v, wantErr %v", tt.input, err, tt.wantErr)
		}
		if got != tt.want {
			t.Errorf("ParseLevel(%q) = %v, want %v", tt.input, got, tt.want)
		}
	}
}
