package logger

import (
	"testing"

	"github.com/sirupsen/logrus"
)

func TestParseLevel(t *testing.T) {
	tests := []struct {
		input    string
		expected logrus.Level
	}{
		{"debug", logrus.DebugLevel},
		{" WARN ", logrus.WarnLevel},
		{"warning", logrus.WarnLevel},
		{"error", logrus.ErrorLevel},
		{"", logrus.InfoLevel},
		{"verbose", logrus.InfoLevel},
	}

	for _, tt := range tests {
		if got := parseLevel(tt.input); got != tt.expected {
			t.Errorf("parseLevel(%q): expected %v, got %v", tt.input, tt.expected, got)
		}
	}
}

func TestConfigureFormat(t *testing.T) {
	defer Configure("info", "json")

	Configure("debug", "text")
	if _, ok := Logger.Formatter.(*logrus.TextFormatter); !ok {
		t.Errorf("Expected text formatter, got %T", Logger.Formatter)
	}
	if Logger.GetLevel() != logrus.DebugLevel {
		t.Errorf("Expected debug level, got %v", Logger.GetLevel())
	}

	Configure("info", "json")
	if _, ok := Logger.Formatter.(*logrus.JSONFormatter); !ok {
		t.Errorf("Expected JSON formatter, got %T", Logger.Formatter)
	}
}
