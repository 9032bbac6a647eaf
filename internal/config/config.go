// Package config loads salescast settings from a .env file and SALESCAST_*
// environment variables.
package config

import (
	"log/slog"
	"os"
	"runtime"
	"strconv"
	"time"

	"github.com/joho/godotenv"
)

// Config holds process settings. Command-line flags default to these values.
type Config struct {
	Input string // CSV path
	DSN   string // database source, used when Input is empty
	Query string

	DateColumn     string
	CategoryColumn string
	SalesColumn    string

	Horizon         int
	MinTrain        int
	Workers         int
	CategoryWorkers int
	FitTimeout      time.Duration
	CategoryTimeout time.Duration
	MaxFits         int
	MaxDiff         int
	Alpha           float64
	CacheTTL        time.Duration

	LogLevel string
	Output   string // JSON export path
}

// Load reads an optional .env file from the working directory and then the
// environment. Missing or malformed values fall back to defaults.
func Load() *Config {
	if err := godotenv.Load(); err != nil {
		slog.Debug("no .env file loaded, using environment and defaults", "error", err)
	}
	return fromEnv()
}

// LoadFile is Load with an explicit .env path. Variables already set in the
// environment take precedence over the file.
func LoadFile(path string) (*Config, error) {
	if err := godotenv.Load(path); err != nil {
		return nil, err
	}
	return fromEnv(), nil
}

func fromEnv() *Config {
	return &Config{
		Input:           getEnv("SALESCAST_INPUT", ""),
		DSN:             getEnv("SALESCAST_DSN", ""),
		Query:           getEnv("SALESCAST_QUERY", ""),
		DateColumn:      getEnv("SALESCAST_DATE_COLUMN", "Order Date"),
		CategoryColumn:  getEnv("SALESCAST_CATEGORY_COLUMN", "Category"),
		SalesColumn:     getEnv("SALESCAST_SALES_COLUMN", "Sales"),
		Horizon:         getEnvAsInt("SALESCAST_HORIZON", 12),
		MinTrain:        getEnvAsInt("SALESCAST_MIN_TRAIN", 12),
		Workers:         getEnvAsInt("SALESCAST_WORKERS", runtime.GOMAXPROCS(0)),
		CategoryWorkers: getEnvAsInt("SALESCAST_CATEGORY_WORKERS", 1),
		FitTimeout:      getEnvAsDuration("SALESCAST_FIT_TIMEOUT", 10*time.Second),
		CategoryTimeout: getEnvAsDuration("SALESCAST_CATEGORY_TIMEOUT", 0),
		MaxFits:         getEnvAsInt("SALESCAST_MAX_FITS", 0),
		MaxDiff:         getEnvAsInt("SALESCAST_MAX_DIFF", 2),
		Alpha:           getEnvAsFloat("SALESCAST_ALPHA", 0.05),
		CacheTTL:        getEnvAsDuration("SALESCAST_CACHE_TTL", 0),
		LogLevel:        getEnv("SALESCAST_LOG_LEVEL", "info"),
		Output:          getEnv("SALESCAST_OUTPUT", ""),
	}
}

func getEnv(key, fallback string) string {
	if value, exists := os.LookupEnv(key); exists {
		return value
	}
	return fallback
}

func getEnvAsInt(key string, fallback int) int {
	valueStr := getEnv(key, "")
	if valueStr == "" {
		return fallback
	}
	if value, err := strconv.Atoi(valueStr); err == nil {
		return value
	}
	slog.Warn("invalid integer in environment, using default", "key", key, "value", valueStr, "default", fallback)
	return fallback
}

func getEnvAsFloat(key string, fallback float64) float64 {
	valueStr := getEnv(key, "")
	if valueStr == "" {
		return fallback
	}
	if value, err := strconv.ParseFloat(valueStr, 64); err == nil {
		return value
	}
	slog.Warn("invalid number in environment, using default", "key", key, "value", valueStr, "default", fallback)
	return fallback
}

func getEnvAsDuration(key string, fallback time.Duration) time.Duration {
	valueStr := getEnv(key, "")
	if valueStr == "" {
		return fallback
	}
	if value, err := time.ParseDuration(valueStr); err == nil {
		return value
	}
	slog.Warn("invalid duration in environment, using default", "key", key, "value", valueStr, "default", fallback.String())
	return fallback
}
