package logging

import (
	"bytes"
	"encoding/json"
	"strings"
	"testing"

	"github.com/sirupsen/logrus"

	"github.com/ayusman/mudra/internal/config"
)

func TestNewLogger_Level(t *testing.T) {
	tests := []struct {
		in   string
		want logrus.Level
	}{
		{"", logrus.InfoLevel},
		{"DEBUG", logrus.DebugLevel},
		{"warn", logrus.WarnLevel},
		{"loud", logrus.InfoLevel},
	}
	for _, tt := range tests {
		logger := NewLogger(config.LogConfig{Level: tt.in}, &bytes.Buffer{})
		if logger.GetLevel() != tt.want {
			t.Errorf("level %q: expected %v, got %v", tt.in, tt.want, logger.GetLevel())
		}
	}
}

func TestNewLogger_JSONWithSource(t *testing.T) {
	var buf bytes.Buffer
	logger := NewLogger(config.LogConfig{Format: "json", ReportCaller: true}, &buf)

	logger.WithField("session_id", "abc").Info("session created")

	var entry map[string]any
	if err := json.Unmarshal(buf.Bytes(), &entry); err != nil {
		t.Fatalf("expected JSON output, got %q: %v", buf.String(), err)
	}
	if entry["msg"] != "session created" || entry["session_id"] != "abc" {
		t.Errorf("unexpected entry %v", entry)
	}
	src, _ := entry["source"].(string)
	if !strings.HasPrefix(src, "logger_test.go:") {
		t.Errorf("expected source field, got %q", src)
	}
}

func TestNewLogger_TextWithoutCaller(t *testing.T) {
	var buf bytes.Buffer
	logger := NewLogger(config.LogConfig{Format: "text"}, &buf)

	logger.Info("hello")

	if !strings.Contains(buf.String(), "msg=hello") {
		t.Errorf("expected text output, got %q", buf.String())
	}
	if strings.Contains(buf.String(), "source=") {
		t.Errorf("expected no source without caller reporting, got %q", buf.String())
	}
}
