package config

import (
	"os"
	"runtime"
	"strconv"
	"time"

	"rankstat/internal/errors"
)

// Config represents the complete application configuration
type Config struct {
	Database  DatabaseConfig
	Server    ServerConfig
	Data      DataConfig
	Engine    EngineConfig
	Logging   LoggingConfig
	Profiling ProfilingConfig
}

// DatabaseConfig selects where results are persisted. With neither URL nor
// SQLitePath set, results are kept in memory.
type DatabaseConfig struct {
	URL        string
	SQLitePath string
}

// Driver returns the sqlx driver name for the configured store, or "" for in-memory
func (d DatabaseConfig) Driver() string {
	switch {
	case d.URL != "":
		return "postgres"
	case d.SQLitePath != "":
		return "sqlite3"
	default:
		return ""
	}
}

// DSN returns the data source name for Driver
func (d DatabaseConfig) DSN() string {
	if d.URL != "" {
		return d.URL
	}
	return d.SQLitePath
}

// ServerConfig holds web server settings
type ServerConfig struct {
	Port    string
	GinMode string
}

// DataConfig holds the dataset the server reads variables from
type DataConfig struct {
	ExcelFile string
	Sheet     string
}

// EngineConfig bounds job execution
type EngineConfig struct {
	WorkerPoolSize    int
	SubmissionTimeout time.Duration
}

// LoggingConfig holds logger settings
type LoggingConfig struct {
	Level  string
	Format string
}

// ProfilingConfig holds performance profiling settings
type ProfilingConfig struct {
	Port    string
	Enabled bool
}

// Load reads configuration from environment variables and validates it
func Load() (*Config, error) {
	config := &Config{
		Database: DatabaseConfig{
			URL:        getEnvOrDefault("DATABASE_URL", ""),
			SQLitePath: getEnvOrDefault("SQLITE_PATH", ""),
		},
		Server: ServerConfig{
			Port:    getEnvOrDefault("PORT", "8080"),
			GinMode: getEnvOrDefault("GIN_MODE", "debug"),
		},
		Data: DataConfig{
			ExcelFile: getEnvOrDefault("EXCEL_FILE", ""),
			Sheet:     getEnvOrDefault("EXCEL_SHEET", ""),
		},
		Engine: EngineConfig{
			WorkerPoolSize:    getEnvIntOrDefault("WORKER_POOL_SIZE", runtime.NumCPU()),
			SubmissionTimeout: getEnvDurationOrDefault("SUBMISSION_TIMEOUT", 60*time.Second),
		},
		Logging: LoggingConfig{
			Level:  getEnvOrDefault("LOG_LEVEL", "INFO"),
			Format: getEnvOrDefault("LOG_FORMAT", "console"),
		},
		Profiling: ProfilingConfig{
			Port:    getEnvOrDefault("PPROF_PORT", "6060"),
			Enabled: getEnvBoolOrDefault("PPROF_ENABLED", false),
		},
	}

	if err := config.Validate(); err != nil {
		return nil, errors.Wrap(err, "configuration validation failed")
	}
	return config, nil
}

// Validate checks that the configuration is usable
func (c *Config) Validate() error {
	if c.Database.URL != "" && c.Database.SQLitePath != "" {
		return errors.ConfigInvalid("DATABASE_URL and SQLITE_PATH are mutually exclusive")
	}
	if c.Engine.WorkerPoolSize <= 0 {
		return errors.ConfigInvalid("WORKER_POOL_SIZE must be positive")
	}
	if c.Engine.SubmissionTimeout <= 0 {
		return errors.ConfigInvalid("SUBMISSION_TIMEOUT must be positive")
	}
	if c.Server.Port == "" {
		return errors.ConfigInvalid("PORT is required")
	}
	return nil
}

// Helper functions for environment variable parsing
func getEnvOrDefault(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvIntOrDefault(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if intValue, err := strconv.Atoi(value); err == nil {
			return intValue
		}
	}
	return defaultValue
}

func getEnvBoolOrDefault(key string, defaultValue bool) bool {
	if value := os.Getenv(key); value != "" {
		if boolValue, err := strconv.ParseBool(value); err == nil {
			return boolValue
		}
	}
	return defaultValue
}

func getEnvDurationOrDefault(key string, defaultValue time.Duration) time.Duration {
	if value := os.Getenv(key); value != "" {
		if d, err := time.ParseDuration(value); err == nil {
			return d
		}
	}
	return defaultValue
}
