package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

// Config holds all configuration for compete-engine
type Config struct {
	Server   ServerConfig
	Database DatabaseConfig
	Redis    RedisConfig
	Catalog  CatalogConfig
	Saved    SavedConfig
	Urgency  UrgencyConfig
	Stream   StreamConfig
	Log      LogConfig
}

// ServerConfig holds HTTP server configuration
type ServerConfig struct {
	Host           string
	Port           int
	AllowedOrigins []string
}

// DatabaseConfig holds PostgreSQL configuration. An empty DSN disables the
// database: the catalog is served from YAML and saved items stay local.
type DatabaseConfig struct {
	DSN          string
	MaxOpenConns int
	MaxIdleConns int
	MaxLifetime  time.Duration
}

// RedisConfig holds Redis configuration. An empty address keeps saved state in memory.
type RedisConfig struct {
	Address   string
	Password  string
	KeyPrefix string
}

// CatalogConfig holds catalog source configuration
type CatalogConfig struct {
	Dir    string
	Import bool // upsert the YAML catalog into the database on startup
}

// SavedConfig holds saved-items configuration
type SavedConfig struct {
	UserID       string
	SyncInterval time.Duration
	MaxAttempts  int
}

// UrgencyConfig holds urgency thresholds in days
type UrgencyConfig struct {
	CriticalBelow  int
	UrgentBelow    int
	EndingSoonDays int
	PanicDays      int
}

// StreamConfig holds websocket stream configuration
type StreamConfig struct {
	RefreshInterval time.Duration
}

// LogConfig holds logging configuration
type LogConfig struct {
	Level  string
	Format string
}

// Load loads configuration from environment variables.
// A .env file in the working directory is read first when present; real
// environment variables take precedence over it.
func Load() (*Config, error) {
	if err := godotenv.Load(); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return nil, fmt.Errorf("failed to read .env: %w", err)
	}

	cfg := &Config{
		Server: ServerConfig{
			Host:           getEnv("SERVER_HOST", "0.0.0.0"),
			Port:           getEnvAsInt("SERVER_PORT", 8080),
			AllowedOrigins: getEnvAsSlice("CORS_ALLOWED_ORIGINS", []string{"*"}),
		},
		Database: DatabaseConfig{
			DSN:          getEnv("DATABASE_DSN", ""),
			MaxOpenConns: getEnvAsInt("DATABASE_MAX_OPEN_CONNS", 25),
			MaxIdleConns: getEnvAsInt("DATABASE_MAX_IDLE_CONNS", 2),
			MaxLifetime:  getEnvAsDuration("DATABASE_MAX_LIFETIME", 30*time.Minute),
		},
		Redis: RedisConfig{
			Address:   getEnv("REDIS_ADDRESS", ""),
			Password:  getEnv("REDIS_PASSWORD", ""),
			KeyPrefix: getEnv("REDIS_KEY_PREFIX", "compete:"),
		},
		Catalog: CatalogConfig{
			Dir:    getEnv("CATALOG_DIR", "./catalog"),
			Import: getEnvAsBool("CATALOG_IMPORT", false),
		},
		Saved: SavedConfig{
			UserID:       getEnv("SAVED_USER_ID", "default_user"),
			SyncInterval: getEnvAsDuration("SAVED_SYNC_INTERVAL", 30*time.Second),
			MaxAttempts:  getEnvAsInt("SAVED_SYNC_MAX_ATTEMPTS", 3),
		},
		Urgency: UrgencyConfig{
			CriticalBelow:  getEnvAsInt("URGENCY_CRITICAL_BELOW_DAYS", 1),
			UrgentBelow:    getEnvAsInt("URGENCY_URGENT_BELOW_DAYS", 3),
			EndingSoonDays: getEnvAsInt("URGENCY_ENDING_SOON_DAYS", 7),
			PanicDays:      getEnvAsInt("URGENCY_PANIC_DAYS", 5),
		},
		Stream: StreamConfig{
			RefreshInterval: getEnvAsDuration("STREAM_REFRESH_INTERVAL", time.Minute),
		},
		Log: LogConfig{
			Level:  getEnv("LOG_LEVEL", "info"),
			Format: getEnv("LOG_FORMAT", "json"),
		},
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("config validation failed: %w", err)
	}

	return cfg, nil
}

// Validate validates the configuration
func (c *Config) Validate() error {
	if c.Server.Port < 1 || c.Server.Port > 65535 {
		return fmt.Errorf("invalid server port: %d", c.Server.Port)
	}

	if c.Saved.UserID == "" {
		return fmt.Errorf("saved user id is required")
	}

	if c.Saved.MaxAttempts < 1 {
		return fmt.Errorf("invalid saved sync max attempts: %d", c.Saved.MaxAttempts)
	}

	if c.Urgency.CriticalBelow < 0 || c.Urgency.UrgentBelow < c.Urgency.CriticalBelow {
		return fmt.Errorf("invalid urgency thresholds: critical below %d, urgent below %d",
			c.Urgency.CriticalBelow, c.Urgency.UrgentBelow)
	}

	if c.Urgency.EndingSoonDays < 0 || c.Urgency.PanicDays < 1 {
		return fmt.Errorf("invalid urgency windows: ending soon %d, panic %d",
			c.Urgency.EndingSoonDays, c.Urgency.PanicDays)
	}

	if c.Catalog.Import && c.Database.DSN == "" {
		return fmt.Errorf("catalog import requires DATABASE_DSN")
	}

	switch c.Log.Format {
	case "json", "text":
	default:
		return fmt.Errorf("invalid log format: %s", c.Log.Format)
	}

	return nil
}

// Helper functions

func getEnv(key, defaultValue string) string {
	if value, exists := os.LookupEnv(key); exists {
		return value
	}
	return defaultValue
}

func getEnvAsInt(key string, defaultValue int) int {
	if value, exists := os.LookupEnv(key); exists {
		if intValue, err := strconv.Atoi(value); err == nil {
			return intValue
		}
	}
	return defaultValue
}

func getEnvAsBool(key string, defaultValue bool) bool {
	if value, exists := os.LookupEnv(key); exists {
		if boolValue, err := strconv.ParseBool(value); err == nil {
			return boolValue
		}
	}
	return defaultValue
}

func getEnvAsDuration(key string, defaultValue time.Duration) time.Duration {
	if value, exists := os.LookupEnv(key); exists {
		if duration, err := time.ParseDuration(value); err == nil {
			return duration
		}
	}
	return defaultValue
}

func getEnvAsSlice(key string, defaultValue []string) []string {
	value, exists := os.LookupEnv(key)
	if !exists {
		return defaultValue
	}

	var result []string
	for _, part := range strings.Split(value, ",") {
		if part = strings.TrimSpace(part); part != "" {
			result = append(result, part)
		}
	}
	if len(result) == 0 {
		return defaultValue
	}
	return result
}
