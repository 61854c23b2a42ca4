package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"
)

// Config is the service configuration, read from the environment.
type Config struct {
	Port string

	// Pathstore connection
	PathstoreURL    string
	PathstoreAPIKey string

	// Auth
	APIKey string

	// Worker pool
	WorkerCount        int
	MaxQueueSize       int
	MaxConcurrentStore int

	// Upload limits
	MaxUploadBytes int64

	// Anchoring
	LocationChars int
	IgnoreClass   string

	// Job state
	JobTTL time.Duration

	// Resolve latency stats
	ResolveStatsWindow time.Duration

	// PDF
	PDFFallbackPdftotext bool

	// Logging
	LogLevel  string
	LogFormat string
}

// Defaults applied when a variable is unset or not positive.
const (
	DefaultWorkerCount        = 4
	DefaultMaxQueueSize       = 100
	DefaultMaxConcurrentStore = 10
	DefaultMaxUploadBytes     = 50 << 20
	DefaultLocationChars      = 150
	DefaultIgnoreClass        = "docanchor-hl"
	DefaultJobTTL             = time.Hour
	DefaultStatsWindow        = time.Hour
)

// Load reads the configuration from the environment.
func Load() Config {
	cfg := Config{
		Port: envOr("PORT", "8090"),

		PathstoreURL:    envOr("PATHSTORE_URL", "http://localhost:8080"),
		PathstoreAPIKey: os.Getenv("PATHSTORE_API_KEY"),

		APIKey: os.Getenv("DOCANCHOR_API_KEY"),

		WorkerCount:        positive(envInt("WORKER_COUNT", 0), DefaultWorkerCount),
		MaxQueueSize:       positive(envInt("MAX_QUEUE_SIZE", 0), DefaultMaxQueueSize),
		MaxConcurrentStore: positive(envInt("MAX_CONCURRENT_STORE", 0), DefaultMaxConcurrentStore),

		MaxUploadBytes: positive(envInt64("MAX_UPLOAD_BYTES", 0), DefaultMaxUploadBytes),

		LocationChars: positive(envInt("LOCATION_CHARS", 0), DefaultLocationChars),
		IgnoreClass:   envOr("IGNORE_CLASS", DefaultIgnoreClass),

		JobTTL:             positive(envDuration("JOB_TTL", 0), DefaultJobTTL),
		ResolveStatsWindow: positive(envDuration("RESOLVE_STATS_WINDOW", 0), DefaultStatsWindow),

		PDFFallbackPdftotext: envBool("PDF_FALLBACK_PDFTOTEXT", true),

		LogLevel:  strings.ToLower(envOr("LOG_LEVEL", "info")),
		LogFormat: strings.ToLower(envOr("LOG_FORMAT", "json")),
	}
	return cfg
}

// Validate reports missing credentials and unknown logging settings.
func (c Config) Validate() error {
	if c.PathstoreAPIKey == "" {
		return fmt.Errorf("PATHSTORE_API_KEY is required")
	}
	if c.APIKey == "" {
		return fmt.Errorf("DOCANCHOR_API_KEY is required")
	}
	switch c.LogFormat {
	case "json", "text":
	default:
		return fmt.Errorf("LOG_FORMAT must be json or text, got %q", c.LogFormat)
	}
	switch c.LogLevel {
	case "debug", "info", "warn", "warning", "error":
	default:
		return fmt.Errorf("LOG_LEVEL must be debug, info, warn or error, got %q", c.LogLevel)
	}
	return nil
}

func positive[T int | int64 | time.Duration](v, fallback T) T {
	if v <= 0 {
		return fallback
	}
	return v
}

func envOr(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

func envInt(key string, fallback int) int {
	if v := os.Getenv(key); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			return n
		}
	}
	return fallback
}

func envInt64(key string, fallback int64) int64 {
	if v := os.Getenv(key); v != "" {
		if n, err := strconv.ParseInt(v, 10, 64); err == nil {
			return n
		}
	}
	return fallback
}

func envBool(key string, fallback bool) bool {
	if v := os.Getenv(key); v != "" {
		if b, err := strconv.ParseBool(v); err == nil {
			return b
		}
	}
	return fallback
}

func envDuration(key string, fallback time.Duration) time.Duration {
	if v := os.Getenv(key); v != "" {
		if d, err := time.ParseDuration(v); err == nil {
			return d
		}
	}
	return fallback
}
