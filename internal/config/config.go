package config

import (
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

// DefaultClassNames are the labels of the bundled weapon detection model, in class-id order.
var DefaultClassNames = []string{"Assault_weapon", "Blunt-objects", "Handguns", "Knives", "SMG", "Shotgun"}

type Config struct {
	Port            int
	Password        string
	ModelPath       string
	ClassNames      []string
	ConfidenceFloor float64
	ResultsDir      string // Każda sesja dostaje tu własny katalog
	DatabasePath    string
	LogDirectory    string
	CaptureSource   string
	AutoStart       bool
	SerialPort      string
	SerialBaud      int
	AlertThreshold  int
	AlertEnabled    bool
	OutputWidth     int
	OutputHeight    int
	VideoFPS        float64
	TickInterval    time.Duration
}

// Load reads an optional .env file and then the process environment.
func Load() *Config {
	_ = godotenv.Load()

	home, err := os.UserHomeDir()
	if err != nil {
		home = "."
	}

	return &Config{
		Port:            getEnvAsInt("PORT", 8080),
		Password:        getEnv("PASSWORD", "changeme"),
		ModelPath:       getEnv("MODEL_PATH", filepath.Join(".", "Model", "best.onnx")),
		ClassNames:      getEnvAsList("CLASS_NAMES", DefaultClassNames),
		ConfidenceFloor: getEnvAsFloat("CONFIDENCE_FLOOR", 0.25),
		ResultsDir:      getEnv("RESULTS_DIR", filepath.Join(home, "Documents", "results_Yolov8")),
		DatabasePath:    getEnv("DB_PATH", filepath.Join(".", "data", "detections.db")),
		LogDirectory:    getEnv("LOG_DIR", filepath.Join(".", "logs")),
		CaptureSource:   getEnv("CAPTURE_SOURCE", "0"),
		AutoStart:       getEnvAsBool("AUTO_START", false),
		SerialPort:      getEnv("SERIAL_PORT", ""),
		SerialBaud:      getEnvAsInt("SERIAL_BAUD", 9600),
		AlertThreshold:  getEnvAsInt("ALERT_THRESHOLD", 3),
		AlertEnabled:    getEnvAsBool("ALERT_ENABLED", false),
		OutputWidth:     getEnvAsInt("OUTPUT_WIDTH", 1080),
		OutputHeight:    getEnvAsInt("OUTPUT_HEIGHT", 720),
		VideoFPS:        getEnvAsFloat("VIDEO_FPS", 20.0),
		TickInterval:    time.Duration(getEnvAsInt("TICK_INTERVAL_MS", 10)) * time.Millisecond,
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

// getEnvAsList splits a comma separated variable, dropping empty entries.
func getEnvAsList(key string, defaultValue []string) []string {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue
	}
	var out []string
	for _, part := range strings.Split(value, ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	if len(out) == 0 {
		return defaultValue
	}
	return out
}
