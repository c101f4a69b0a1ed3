package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"
)

func TestLoad_Defaults(t *testing.T) {
	for _, key := range []string{"PORT", "CAMERA_DEVICE", "FRAME_SKIP", "CONFIDENCE_THRESHOLD", "HEADLESS", "TICK_INTERVAL"} {
		t.Setenv(key, "")
	}

	cfg := Load()

	if cfg.Port != 8080 {
		t.Errorf("Expected port 8080, got %d", cfg.Port)
	}
	if cfg.CameraDevice != "0" {
		t.Errorf("Expected camera device 0, got %s", cfg.CameraDevice)
	}
	if cfg.FrameSkip != 2 {
		t.Errorf("Expected frame skip 2, got %d", cfg.FrameSkip)
	}
	if cfg.ConfidenceThreshold != 0.5 {
		t.Errorf("Expected threshold 0.5, got %v", cfg.ConfidenceThreshold)
	}
	if cfg.Headless {
		t.Error("Expected windowed mode by default")
	}
	if cfg.TickInterval != 15*time.Millisecond {
		t.Errorf("Expected 15ms tick, got %v", cfg.TickInterval)
	}
}

func TestLoad_FromEnvironment(t *testing.T) {
	t.Setenv("PORT", "9090")
	t.Setenv("FRAME_SKIP", "3")
	t.Setenv("CONFIDENCE_THRESHOLD", "0.65")
	t.Setenv("HEADLESS", "true")
	t.Setenv("SNAPSHOT_FLUSH_INTERVAL", "1s")

	cfg := Load()

	if cfg.Port != 9090 {
		t.Errorf("Expected port 9090, got %d", cfg.Port)
	}
	if cfg.FrameSkip != 3 {
		t.Errorf("Expected frame skip 3, got %d", cfg.FrameSkip)
	}
	if cfg.ConfidenceThreshold != 0.65 {
		t.Errorf("Expected threshold 0.65, got %v", cfg.ConfidenceThreshold)
	}
	if !cfg.Headless {
		t.Error("Expected headless mode")
	}
	if cfg.SnapshotFlushInterval != time.Second {
		t.Errorf("Expected 1s flush interval, got %v", cfg.SnapshotFlushInterval)
	}
}

func TestLoad_InvalidValuesFallBack(t *testing.T) {
	t.Setenv("PORT", "abc")
	t.Setenv("CONFIDENCE_THRESHOLD", "high")
	t.Setenv("TICK_INTERVAL", "soon")

	cfg := Load()

	if cfg.Port != 8080 {
		t.Errorf("Expected fallback port 8080, got %d", cfg.Port)
	}
	if cfg.ConfidenceThreshold != 0.5 {
		t.Errorf("Expected fallback threshold 0.5, got %v", cfg.ConfidenceThreshold)
	}
	if cfg.TickInterval != 15*time.Millisecond {
		t.Errorf("Expected fallback tick, got %v", cfg.TickInterval)
	}
}

func TestLoadEnvFile(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, ".env")
	if err := os.WriteFile(path, []byte("KIOSK_TEST_DEVICE=rtsp://cam/stream\n"), 0644); err != nil {
		t.Fatalf("Failed to write env file: %v", err)
	}
	t.Cleanup(func() { os.Unsetenv("KIOSK_TEST_DEVICE") })

	loaded, err := LoadEnvFile(path)
	if err != nil {
		t.Fatalf("LoadEnvFile failed: %v", err)
	}
	if !loaded {
		t.Fatal("Expected env file to be loaded")
	}
	if got := os.Getenv("KIOSK_TEST_DEVICE"); got != "rtsp://cam/stream" {
		t.Errorf("Expected variable from env file, got %q", got)
	}
}

func TestLoadEnvFile_Missing(t *testing.T) {
	loaded, err := LoadEnvFile(filepath.Join(t.TempDir(), "missing.env"))
	if err != nil {
		t.Fatalf("Expected no error for missing file, got %v", err)
	}
	if loaded {
		t.Error("Expected loaded=false for missing file")
	}
}
