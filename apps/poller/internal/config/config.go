package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

// Config holds all configuration for the poller service
type Config struct {
	// Snapshot
	SnapshotSource string
	DataDir        string
	SQLitePath     string
	DatabaseURL    string
	Location       *time.Location

	// Broadcast
	NATSURL         string
	SubjectPrefix   string
	PollInterval    time.Duration
	LogNATSSubjects bool

	// Snapshot reload, picks up a fresh import without a restart
	ReloadInterval time.Duration

	// Static refresh: when GTFSURL is set and SNAPSHOT_SOURCE=json, the JSON
	// snapshot in DataDir is rebuilt from the feed once older than StaticRefreshDays
	GTFSURL           string
	CacheDir          string
	StaticRefreshDays int

	// Metrics listen address (e.g. ":9102"); empty disables the metrics server
	MetricsAddr string
}

// Load reads configuration from environment variables with sensible defaults
func Load() (*Config, error) {
	_ = godotenv.Load(".env")
	_ = godotenv.Overload(".env.local")

	pollSeconds, err := getEnvInt("POLL_INTERVAL", 5)
	if err != nil {
		return nil, err
	}
	reloadHours, err := getEnvInt("SNAPSHOT_RELOAD_HOURS", 24)
	if err != nil {
		return nil, err
	}
	refreshDays, err := getEnvInt("STATIC_REFRESH_DAYS", 7)
	if err != nil {
		return nil, err
	}

	cfg := &Config{
		SnapshotSource: getEnv("SNAPSHOT_SOURCE", "json"),
		DataDir:        getEnv("DATA_DIR", "../data"),
		SQLitePath:     getEnv("SQLITE_DATABASE", "../data/busmap.db"),
		DatabaseURL:    os.Getenv("DATABASE_URL"),

		NATSURL:         getEnv("NATS_URL", "nats://127.0.0.1:4222"),
		SubjectPrefix:   getEnv("NATS_SUBJECT_PREFIX", "vehicles"),
		PollInterval:    time.Duration(pollSeconds) * time.Second,
		LogNATSSubjects: getEnvBool("LOG_NATS_SUBJECTS", false),

		ReloadInterval: time.Duration(reloadHours) * time.Hour,

		GTFSURL:           os.Getenv("GTFS_URL"),
		CacheDir:          getEnv("CACHE_DIR", "../data/cache"),
		StaticRefreshDays: refreshDays,

		MetricsAddr: os.Getenv("METRICS_ADDR"),
	}

	switch cfg.SnapshotSource {
	case "json", "sqlite":
	case "postgres":
		if cfg.DatabaseURL == "" {
			return nil, fmt.Errorf("DATABASE_URL is required when SNAPSHOT_SOURCE=postgres")
		}
	default:
		return nil, fmt.Errorf("invalid SNAPSHOT_SOURCE: %q", cfg.SnapshotSource)
	}

	if cfg.PollInterval <= 0 {
		return nil, fmt.Errorf("invalid POLL_INTERVAL: %v", cfg.PollInterval)
	}
	if cfg.ReloadInterval <= 0 {
		return nil, fmt.Errorf("invalid SNAPSHOT_RELOAD_HOURS: %v", cfg.ReloadInterval)
	}
	if cfg.StaticRefreshDays < 0 {
		return nil, fmt.Errorf("invalid STATIC_REFRESH_DAYS: %d", cfg.StaticRefreshDays)
	}

	loc, err := time.LoadLocation(getEnv("TZ", "Asia/Tokyo"))
	if err != nil {
		return nil, fmt.Errorf("invalid TZ: %w", err)
	}
	cfg.Location = loc

	return cfg, nil
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

// getEnvInt returns defaultValue when key is unset and an error when it is set but not an integer
func getEnvInt(key string, defaultValue int) (int, error) {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue, nil
	}
	intValue, err := strconv.Atoi(strings.TrimSpace(value))
	if err != nil {
		return 0, fmt.Errorf("invalid %s: %q is not an integer", key, value)
	}
	return intValue, nil
}

func getEnvBool(key string, defaultValue bool) bool {
	switch strings.ToLower(strings.TrimSpace(os.Getenv(key))) {
	case "1", "true", "t", "yes", "y", "on":
		return true
	case "0", "false", "f", "no", "n", "off":
		return false
	default:
		return defaultValue
	}
}
