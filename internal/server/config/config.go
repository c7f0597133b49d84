package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"time"
)

var (
	ErrMissingAdminCredentials = errors.New("ADMIN_USERNAME and ADMIN_PASSWORD must both be set")
	ErrUnsupportedDatabase     = errors.New("unsupported database type")
	ErrNonPositiveDuration     = errors.New("duration must be positive")
)

// Supported DB_TYPE values.
const (
	DatabaseSQLite   = "sqlite"
	DatabasePostgres = "postgres"
)

type Config struct {
	Port    string
	BaseURL string

	AdminUsername string
	AdminPassword string

	UploadDir   string
	MaxFileSize int64

	DatabaseType string
	DatabaseURL  string
	DatabasePath string
	DatabaseName string

	SessionTimeout       time.Duration
	SessionSweepInterval time.Duration

	OrphanSweepInterval time.Duration
	OrphanGrace         time.Duration

	RateLimitRPS   float64
	RateLimitBurst int

	LogLevel      string
	LogFile       string
	LogMaxSizeMB  int
	LogMaxBackups int
	LogMaxAgeDays int
}

func Load() *Config {
	return &Config{
		Port:                 getEnv("PORT", "8080"),
		BaseURL:              getEnv("BASE_URL", "http://localhost:8080"),
		AdminUsername:        os.Getenv("ADMIN_USERNAME"),
		AdminPassword:        os.Getenv("ADMIN_PASSWORD"),
		UploadDir:            getEnv("UPLOAD_DIR", "uploads"),
		MaxFileSize:          getEnvInt64("MAX_FILE_SIZE", 1024*1024*1024), // 1GB
		DatabaseType:         getEnv("DB_TYPE", DatabaseSQLite),
		DatabaseURL:          getEnv("DATABASE_URL", "postgres://postgres@localhost:5432/file-storage?sslmode=disable"),
		DatabasePath:         getEnv("DATABASE_PATH", "data"),
		DatabaseName:         getEnv("DB_NAME", "file-storage"),
		SessionTimeout:       getEnvDuration("SESSION_TIMEOUT", 30*time.Minute),
		SessionSweepInterval: getEnvDuration("SESSION_SWEEP_INTERVAL", 5*time.Minute),
		OrphanSweepInterval:  getEnvDuration("ORPHAN_SWEEP_INTERVAL", time.Hour),
		OrphanGrace:          getEnvDuration("ORPHAN_GRACE", 10*time.Minute),
		RateLimitRPS:         getEnvFloat64("RATE_LIMIT_RPS", 10),
		RateLimitBurst:       getEnvInt("RATE_LIMIT_BURST", 20),
		LogLevel:             getEnv("LOG_LEVEL", "info"),
		LogFile:              os.Getenv("LOG_FILE"),
		LogMaxSizeMB:         getEnvInt("LOG_MAX_SIZE_MB", 100),
		LogMaxBackups:        getEnvInt("LOG_MAX_BACKUPS", 3),
		LogMaxAgeDays:        getEnvInt("LOG_MAX_AGE_DAYS", 7),
	}
}

// Validate reports configuration the server cannot start with.
func (c *Config) Validate() error {
	if c.AdminUsername == "" || c.AdminPassword == "" {
		return ErrMissingAdminCredentials
	}
	switch c.DatabaseType {
	case DatabaseSQLite, DatabasePostgres:
	default:
		return fmt.Errorf("%w: %q", ErrUnsupportedDatabase, c.DatabaseType)
	}
	durations := []struct {
		name  string
		value time.Duration
	}{
		{"SESSION_TIMEOUT", c.SessionTimeout},
		{"SESSION_SWEEP_INTERVAL", c.SessionSweepInterval},
		{"ORPHAN_SWEEP_INTERVAL", c.OrphanSweepInterval},
	}
	for _, d := range durations {
		if d.value <= 0 {
			return fmt.Errorf("%s: %w, got %s", d.name, ErrNonPositiveDuration, d.value)
		}
	}
	if c.OrphanGrace < 0 {
		return fmt.Errorf("ORPHAN_GRACE must not be negative, got %s", c.OrphanGrace)
	}
	return nil
}

// SQLiteFile is the database file used when DB_TYPE is sqlite.
func (c *Config) SQLiteFile() string {
	return filepath.Join(c.DatabasePath, c.DatabaseName+".db")
}

func getEnv(key, fallback string) string {
	if val := os.Getenv(key); val != "" {
		return val
	}
	return fallback
}

func getEnvInt64(key string, fallback int64) int64 {
	if val := os.Getenv(key); val != "" {
		if n, err := strconv.ParseInt(val, 10, 64); err == nil {
			return n
		}
	}
	return fallback
}

func getEnvInt(key string, fallback int) int {
	if val := os.Getenv(key); val != "" {
		if n, err := strconv.Atoi(val); err == nil {
			return n
		}
	}
	return fallback
}

func getEnvFloat64(key string, fallback float64) float64 {
	if val := os.Getenv(key); val != "" {
		if f, err := strconv.ParseFloat(val, 64); err == nil {
			return f
		}
	}
	return fallback
}

// getEnvDuration accepts Go duration strings ("30m", "1h30m").
func getEnvDuration(key string, fallback time.Duration) time.Duration {
	if val := os.Getenv(key); val != "" {
		if d, err := time.ParseDuration(val); err == nil {
			return d
		}
	}
	return fallback
}
