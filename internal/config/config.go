package config

import (
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

type Config struct {
	Port                int
	SQLitePath          string
	DatabaseURL         string        // postgres; takes precedence over SQLitePath
	StoreTimeout        time.Duration // connect/ping and per-call timeout for the durable store
	ModelPath           string
	InferenceMode       string // "auto" or "dummy"
	ClassNames          []string
	ConfidenceThreshold float64
	DefaultWasteType    string
	DeviceID            string
	BinStatusFile       string
	BinCapacity         float64
	TodayIsTotal        bool // report the all-time total in todayCollection
	DebugImageDir       string
	DebugImageLimit     int
	DebugFlushInterval  time.Duration
	LogDirectory        string
	CORSOrigin          string
}

// Load reads configuration from environment variables (optionally .env).
func Load() *Config {
	_ = godotenv.Load() // ignore missing file

	return &Config{
		Port:                getEnvAsInt("PORT", 5000),
		SQLitePath:          getEnv("SQLITE_PATH", filepath.Join(".", "data", "waste.db")),
		DatabaseURL:         getEnv("DATABASE_URL", ""),
		StoreTimeout:        getEnvAsDuration("STORE_TIMEOUT", 3*time.Second),
		ModelPath:           getEnv("MODEL_PATH", filepath.Join(".", "models", "best.onnx")),
		InferenceMode:       strings.ToLower(getEnv("INFERENCE_MODE", "auto")),
		ClassNames:          getEnvAsList("CLASS_NAMES", []string{"hazardous", "recycle", "reject", "wet"}),
		ConfidenceThreshold: getEnvAsFloat("CONFIDENCE_THRESHOLD", 0.25),
		DefaultWasteType:    getEnv("DEFAULT_WASTE_TYPE", "reject"),
		DeviceID:            getEnv("DEVICE_ID", "BIN_01"),
		BinStatusFile:       getEnv("BIN_STATUS_FILE", ""),
		BinCapacity:         getEnvAsFloat("BIN_CAPACITY", 100),
		TodayIsTotal:        getEnvAsBool("DASHBOARD_TODAY_IS_TOTAL", true),
		DebugImageDir:       getEnv("DEBUG_IMAGE_DIR", ""),
		DebugImageLimit:     getEnvAsInt("DEBUG_IMAGE_LIMIT", 20),
		DebugFlushInterval:  getEnvAsDuration("DEBUG_FLUSH_INTERVAL", 30*time.Second),
		LogDirectory:        getEnv("LOG_DIR", filepath.Join(".", "logs")),
		CORSOrigin:          getEnv("CORS_ORIGIN", "*"),
	}
}

// ListenAddr returns the host:port string for the HTTP server.
func (c *Config) ListenAddr() string {
	return ":" + strconv.Itoa(c.Port)
}

func getEnv(key, defaultValue string) string {
	if value := strings.TrimSpace(os.Getenv(key)); value != "" {
		return value
	}
	return defaultValue
}

func getEnvAsInt(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if intValue, err := strconv.Atoi(strings.TrimSpace(value)); err == nil {
			return intValue
		}
	}
	return defaultValue
}

func getEnvAsFloat(key string, defaultValue float64) float64 {
	if value := os.Getenv(key); value != "" {
		if f, err := strconv.ParseFloat(strings.TrimSpace(value), 64); err == nil {
			return f
		}
	}
	return defaultValue
}

func getEnvAsBool(key string, defaultValue bool) bool {
	if value := os.Getenv(key); value != "" {
		if b, err := strconv.ParseBool(strings.TrimSpace(value)); err == nil {
			return b
		}
	}
	return defaultValue
}

func getEnvAsDuration(key string, defaultValue time.Duration) time.Duration {
	if value := os.Getenv(key); value != "" {
		if d, err := time.ParseDuration(strings.TrimSpace(value)); err == nil && d > 0 {
			return d
		}
	}
	return defaultValue
}

func getEnvAsList(key string, defaultValue []string) []string {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue
	}
	var items []string
	for _, part := range strings.Split(value, ",") {
		if part = strings.TrimSpace(part); part != "" {
			items = append(items, strings.ToLower(part))
		}
	}
	if len(items) == 0 {
		return defaultValue
	}
	return items
}
