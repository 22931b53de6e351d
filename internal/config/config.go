// Package config contains everything related to configuration
package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"

	"github.com/j-veylop/data-watchdog/internal/models"
)

// Config holds the application configuration.
type Config struct {
	DatabasePath      string
	CountersPath      string
	BundlePath        string
	MetricsAddr       string
	PruneSchedule     string
	LogLevel          string
	MonitorInterval   time.Duration
	NotifyCooldown    time.Duration
	DailyHistoryDays  int
	PacingCycleDays   int
	RetentionDays     int
	NotifyMinSeverity models.Severity
	NotificationsOn   bool
}

// Default values
const (
	defaultMonitorInterval   = time.Minute
	defaultNotifyCooldown    = 30 * time.Minute
	defaultDailyHistoryDays  = 7
	defaultRetentionDays     = 30
	defaultPruneSchedule     = "0 3 * * *"
	defaultNotifyMinSeverity = "high"
	defaultLogLevel          = "info"

	appDirName = "data-watchdog"
)

// Load reads configuration from .env files and environment variables.
func Load() (*Config, error) {
	// Try loading .env from multiple locations
	envPaths := getEnvPaths()
	for _, path := range envPaths {
		if _, err := os.Stat(path); err == nil {
			_ = godotenv.Load(path)
			break
		}
	}

	cfg, err := fromEnv()
	if err != nil {
		return nil, err
	}

	for _, p := range []string{cfg.DatabasePath, cfg.CountersPath, cfg.BundlePath} {
		if err := ensureDir(filepath.Dir(p)); err != nil {
			return nil, fmt.Errorf("failed to create directory for %s: %w", p, err)
		}
	}

	return cfg, nil
}

// fromEnv builds and validates a Config from the current environment.
func fromEnv() (*Config, error) {
	severityName := getEnvString("NOTIFY_MIN_SEVERITY", defaultNotifyMinSeverity)
	severity, ok := models.ParseSeverity(severityName)
	if !ok {
		return nil, fmt.Errorf("NOTIFY_MIN_SEVERITY: unknown severity %q", severityName)
	}

	cfg := &Config{
		DatabasePath:      getEnvString("DATABASE_PATH", defaultPath("usage.db")),
		CountersPath:      getEnvString("COUNTERS_PATH", defaultPath("counters.json")),
		BundlePath:        getEnvString("BUNDLE_PATH", defaultPath("bundle.yaml")),
		MetricsAddr:       getEnvString("METRICS_ADDR", ""),
		PruneSchedule:     getEnvString("PRUNE_SCHEDULE", defaultPruneSchedule),
		LogLevel:          getEnvString("LOG_LEVEL", defaultLogLevel),
		MonitorInterval:   getEnvDuration("MONITOR_INTERVAL", defaultMonitorInterval),
		NotifyCooldown:    getEnvDuration("NOTIFY_COOLDOWN", defaultNotifyCooldown),
		DailyHistoryDays:  getEnvInt("DAILY_HISTORY_DAYS", defaultDailyHistoryDays),
		PacingCycleDays:   getEnvInt("PACING_CYCLE_DAYS", 0),
		RetentionDays:     getEnvInt("RETENTION_DAYS", defaultRetentionDays),
		NotifyMinSeverity: severity,
		NotificationsOn:   getEnvBool("NOTIFICATIONS_ENABLED", true),
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Validate checks that numeric settings are in range.
func (c *Config) Validate() error {
	switch {
	case c.MonitorInterval <= 0:
		return fmt.Errorf("MONITOR_INTERVAL must be positive, got %s", c.MonitorInterval)
	case c.DailyHistoryDays < 1:
		return fmt.Errorf("DAILY_HISTORY_DAYS must be at least 1, got %d", c.DailyHistoryDays)
	case c.PacingCycleDays < 0:
		return fmt.Errorf("PACING_CYCLE_DAYS must not be negative, got %d", c.PacingCycleDays)
	case c.RetentionDays < 1:
		return fmt.Errorf("RETENTION_DAYS must be at least 1, got %d", c.RetentionDays)
	case c.NotifyCooldown < 0:
		return fmt.Errorf("NOTIFY_COOLDOWN must not be negative, got %s", c.NotifyCooldown)
	}
	return nil
}

// getEnvPaths returns a list of paths to check for .env files.
func getEnvPaths() []string {
	var paths []string

	// Current directory
	if cwd, err := os.Getwd(); err == nil {
		paths = append(paths, filepath.Join(cwd, ".env"))
	}

	if home, err := os.UserHomeDir(); err == nil {
		paths = append(paths, filepath.Join(home, ".config", appDirName, ".env"))
	}

	// Parent directory (useful for development)
	if cwd, err := os.Getwd(); err == nil {
		paths = append(paths, filepath.Join(filepath.Dir(cwd), ".env"))
	}

	return paths
}

// defaultPath returns a file path inside the application config directory.
func defaultPath(name string) string {
	home, err := os.UserHomeDir()
	if err != nil {
		return name
	}
	return filepath.Join(home, ".config", appDirName, name)
}

// getEnvString retrieves a string environment variable or returns the default.
func getEnvString(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

// getEnvInt retrieves an integer environment variable or returns the default.
func getEnvInt(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if n, err := strconv.Atoi(strings.TrimSpace(value)); err == nil {
			return n
		}
	}
	return defaultValue
}

// getEnvBool retrieves a boolean environment variable or returns the default.
func getEnvBool(key string, defaultValue bool) bool {
	if value := os.Getenv(key); value != "" {
		if b, err := strconv.ParseBool(strings.TrimSpace(value)); err == nil {
			return b
		}
	}
	return defaultValue
}

// getEnvDuration retrieves a duration environment variable or returns the default.
// Accepts values like "30s", "1m", "500ms".
func getEnvDuration(key string, defaultValue time.Duration) time.Duration {
	if value := os.Getenv(key); value != "" {
		if duration, err := time.ParseDuration(value); err == nil {
			return duration
		}
		// Try parsing as seconds if no unit specified
		if secs, err := strconv.Atoi(value); err == nil {
			return time.Duration(secs) * time.Second
		}
	}
	return defaultValue
}

// ensureDir creates a directory and all parent directories if they don't exist.
func ensureDir(path string) error {
	if path == "" || path == "." {
		return nil
	}
	return os.MkdirAll(path, 0o750)
}
