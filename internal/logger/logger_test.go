package logger

import (
	"bytes"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"kiosk/internal/config"
)

func TestNewWithWriters_Levels(t *testing.T) {
	var info, warning, errs bytes.Buffer
	l := NewWithWriters(&info, &warning, &errs)

	l.Info("frame %d processed", 7)
	l.Warning("read failed")
	l.Error("detector: %v", "boom")

	if !strings.Contains(info.String(), "frame 7 processed") {
		t.Errorf("Expected info entry, got %q", info.String())
	}
	if !strings.Contains(warning.String(), "WARNING") || !strings.Contains(warning.String(), "read failed") {
		t.Errorf("Expected warning entry, got %q", warning.String())
	}
	if !strings.Contains(errs.String(), "detector: boom") {
		t.Errorf("Expected error entry, got %q", errs.String())
	}
	if !strings.Contains(info.String(), "logger_test.go") {
		t.Errorf("Expected caller file in entry, got %q", info.String())
	}
}

func TestNewLogger_CreatesFilesAndCleans(t *testing.T) {
	dir := filepath.Join(t.TempDir(), "logs")
	l := NewLogger(&config.Config{LogDirectory: dir})

	l.Info("hello")

	content, err := os.ReadFile(filepath.Join(dir, "info.log"))
	if err != nil {
		t.Fatalf("Failed to read info.log: %v", err)
	}
	if !strings.Contains(string(content), "hello") {
		t.Errorf("Expected info.log to contain entry, got %q", content)
	}

	if err := l.CleanLogs("warning.log"); err != nil {
		t.Fatalf("CleanLogs failed: %v", err)
	}
	content, err = os.ReadFile(filepath.Join(dir, "warning.log"))
	if err != nil {
		t.Fatalf("Failed to read warning.log: %v", err)
	}
	if len(content) != 0 {
		t.Errorf("Expected truncated warning.log, got %q", content)
	}
}
