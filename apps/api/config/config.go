package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"
)

// Config holds all configuration for the api service
type Config struct {
	Port int `yaml:"port" validate:"gt=0,lte=65535"`

	// Snapshot
	SnapshotSource string `yaml:"snapshot_source" validate:"oneof=json sqlite postgres"`
	DataDir        string `yaml:"data_dir" validate:"required_if=SnapshotSource json"`
	SQLitePath     string `yaml:"sqlite_database" validate:"required_if=SnapshotSource sqlite"`
	DatabaseURL    string `yaml:"database_url" validate:"required_if=SnapshotSource postgres"`

	// "Today" and "now" are evaluated in this zone
	TimeZone string         `yaml:"time_zone" validate:"required"`
	Location *time.Location `yaml:"-"`

	// HTTP
	CORSOrigins    []string `yaml:"cors_origins" validate:"dive,required"`
	MetricsEnabled bool     `yaml:"metrics_enabled"`
	StaticDir      string   `yaml:"static_dir"`
}

// Defaults returns the configuration used when nothing is set
func Defaults() Config {
	return Config{
		Port:           8080,
		SnapshotSource: "json",
		DataDir:        "../data",
		SQLitePath:     "../data/busmap.db",
		TimeZone:       "Asia/Tokyo",
		CORSOrigins:    []string{"*"},
		MetricsEnabled: true,
	}
}

// Load reads .env files, the optional CONFIG_FILE yaml and the environment,
// in increasing order of precedence
func Load() (*Config, error) {
	_ = godotenv.Load(".env")
	_ = godotenv.Overload(".env.local")

	cfg := Defaults()

	if path := os.Getenv("CONFIG_FILE"); path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("read config file: %w", err)
		}
		if err := yaml.Unmarshal(data, &cfg); err != nil {
			return nil, fmt.Errorf("parse config file %s: %w", path, err)
		}
	}

	if err := applyEnv(&cfg); err != nil {
		return nil, err
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

func applyEnv(cfg *Config) error {
	if v := os.Getenv("PORT"); v != "" {
		port, err := strconv.Atoi(v)
		if err != nil {
			return fmt.Errorf("invalid PORT: %q", v)
		}
		cfg.Port = port
	}

	cfg.SnapshotSource = getEnv("SNAPSHOT_SOURCE", cfg.SnapshotSource)
	cfg.DataDir = getEnv("DATA_DIR", cfg.DataDir)
	cfg.SQLitePath = getEnv("SQLITE_DATABASE", cfg.SQLitePath)
	cfg.DatabaseURL = getEnv("DATABASE_URL", cfg.DatabaseURL)
	cfg.TimeZone = getEnv("TZ", cfg.TimeZone)
	cfg.StaticDir = getEnv("STATIC_DIR", cfg.StaticDir)

	if v := os.Getenv("CORS_ORIGINS"); v != "" {
		var origins []string
		for _, o := range strings.Split(v, ",") {
			if o = strings.TrimSpace(o); o != "" {
				origins = append(origins, o)
			}
		}
		cfg.CORSOrigins = origins
	}

	if v := os.Getenv("METRICS_ENABLED"); v != "" {
		enabled, err := strconv.ParseBool(strings.TrimSpace(v))
		if err != nil {
			return fmt.Errorf("invalid METRICS_ENABLED: %q", v)
		}
		cfg.MetricsEnabled = enabled
	}
	return nil
}

// Validate checks field constraints and resolves the time zone
func (c *Config) Validate() error {
	if err := validator.New(validator.WithRequiredStructEnabled()).Struct(c); err != nil {
		return fmt.Errorf("invalid configuration: %w", err)
	}
	loc, err := time.LoadLocation(c.TimeZone)
	if err != nil {
		return fmt.Errorf("invalid TZ: %w", err)
	}
	c.Location = loc
	return nil
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}
