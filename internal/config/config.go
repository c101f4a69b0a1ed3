package config

import (
	"errors"
	"io/fs"
	"os"
	"path/filepath"
	"strconv"
	"time"

	"github.com/joho/godotenv"
)

type Config struct {
	Port     int
	Password string

	CameraDevice   string
	FrameWidth     int
	FrameHeight    int
	ReadRetryDelay time.Duration

	Detector            string // "dnn" or "cascade"
	ModelPath           string
	ConfigPath          string
	CascadePath         string
	CascadeLabel        string
	ConfidenceThreshold float64
	FrameSkip           int // Co którą klatkę przetwarzać (1=każdą, 2=co drugą)
	MotionThreshold     int // 0 wyłącza bramkę ruchu

	CatalogPath string

	SnapshotDirectory     string
	SnapshotBufferLimit   int
	SnapshotFlushInterval time.Duration
	DatabasePath          string
	LogDirectory          string

	Headless     bool
	TickInterval time.Duration
}

// LoadEnvFile loads variables from a dotenv file into the process environment.
// It reports false without an error when the file does not exist.
func LoadEnvFile(path string) (bool, error) {
	if path == "" {
		return false, nil
	}
	if err := godotenv.Load(path); err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return false, nil
		}
		return false, err
	}
	return true, nil
}

func Load() *Config {
	return &Config{
		Port:                  getEnvAsInt("PORT", 8080),
		Password:              getEnv("PASSWORD", "kasa"),
		CameraDevice:          getEnv("CAMERA_DEVICE", "0"),
		FrameWidth:            getEnvAsInt("FRAME_WIDTH", 960),
		FrameHeight:           getEnvAsInt("FRAME_HEIGHT", 720),
		ReadRetryDelay:        getEnvAsDuration("READ_RETRY_DELAY", 50*time.Millisecond),
		Detector:              getEnv("DETECTOR", "dnn"),
		ModelPath:             getEnv("MODEL_PATH", filepath.Join(".", "models", "frozen_inference_graph.pb")),
		ConfigPath:            getEnv("CONFIG_PATH", filepath.Join(".", "models", "ssd_mobilenet_v1_coco_2017_11_17.pbtxt")),
		CascadePath:           getEnv("CASCADE_PATH", filepath.Join(".", "models", "haarcascade_frontalface_default.xml")),
		CascadeLabel:          getEnv("CASCADE_LABEL", "human"),
		ConfidenceThreshold:   getEnvAsFloat("CONFIDENCE_THRESHOLD", 0.5),
		FrameSkip:             getEnvAsInt("FRAME_SKIP", 2), // Przetwarzaj co 2. klatkę
		MotionThreshold:       getEnvAsInt("MOTION_THRESHOLD", 0),
		CatalogPath:           getEnv("CATALOG_PATH", ""),
		SnapshotDirectory:     getEnv("SNAPSHOT_DIR", filepath.Join(".", "snapshots")),
		SnapshotBufferLimit:   getEnvAsInt("SNAPSHOT_BUFFER_LIMIT", 16),
		SnapshotFlushInterval: getEnvAsDuration("SNAPSHOT_FLUSH_INTERVAL", 5*time.Second),
		DatabasePath:          getEnv("DATABASE_PATH", filepath.Join(".", "data", "kiosk.db")),
		LogDirectory:          getEnv("LOG_DIR", filepath.Join(".", "logs")),
		Headless:              getEnvAsBool("HEADLESS", false),
		TickInterval:          getEnvAsDuration("TICK_INTERVAL", 15*time.Millisecond),
	}
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvAsInt(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if intValue, err := strconv.Atoi(value); err == nil {
			return intValue
		}
	}
	return defaultValue
}

func getEnvAsFloat(key string, defaultValue float64) float64 {
	if value := os.Getenv(key); value != "" {
		if floatValue, err := strconv.ParseFloat(value, 64); err == nil {
			return floatValue
		}
	}
	return defaultValue
}

func getEnvAsBool(key string, defaultValue bool) bool {
	if value := os.Getenv(key); value != "" {
		if boolValue, err := strconv.ParseBool(value); err == nil {
			return boolValue
		}
	}
	return defaultValue
}

func getEnvAsDuration(key string, defaultValue time.Duration) time.Duration {
	if value := os.Getenv(key); value != "" {
		if d, err := time.ParseDuration(value); err == nil {
			return d
		}
	}
	return defaultValue
}
