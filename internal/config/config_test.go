package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/j-veylop/data-watchdog/internal/models"
)

func TestGetEnvString(t *testing.T) {
	key := "TEST_ENV_STRING"
	val := "test_value"
	t.Setenv(key, val)

	if got := getEnvString(key, "default"); got != val {
		t.Errorf("getEnvString() = %q, want %q", got, val)
	}

	if got := getEnvString("NON_EXISTENT", "default"); got != "default" {
		t.Errorf("getEnvString() = %q, want %q", got, "default")
	}
}

func TestGetEnvDuration(t *testing.T) {
	key := "TEST_ENV_DURATION"

	tests := []struct {
		name       string
		envVal     string
		defaultVal time.Duration
		want       time.Duration
	}{
		{"ValidDuration", "1m", time.Second, time.Minute},
		{"ValidSeconds", "60", time.Second, 60 * time.Second},
		{"Invalid", "invalid", time.Second, time.Second},
		{"Empty", "", time.Second, time.Second},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Setenv(key, tt.envVal)

			if got := getEnvDuration(key, tt.defaultVal); got != tt.want {
				t.Errorf("getEnvDuration() = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestGetEnvIntAndBool(t *testing.T) {
	t.Setenv("TEST_INT", " 14 ")
	t.Setenv("TEST_INT_BAD", "fourteen")
	t.Setenv("TEST_BOOL", "false")
	t.Setenv("TEST_BOOL_BAD", "nope")

	if got := getEnvInt("TEST_INT", 1); got != 14 {
		t.Errorf("getEnvInt() = %d, want 14", got)
	}
	if got := getEnvInt("TEST_INT_BAD", 1); got != 1 {
		t.Errorf("getEnvInt() = %d, want default 1", got)
	}
	if got := getEnvBool("TEST_BOOL", true); got {
		t.Error("getEnvBool() = true, want false")
	}
	if got := getEnvBool("TEST_BOOL_BAD", true); !got {
		t.Error("getEnvBool() should fall back to default")
	}
}

func TestEnsureDir(t *testing.T) {
	tmpDir := t.TempDir()
	path := filepath.Join(tmpDir, "nested", "dir")

	if err := ensureDir(path); err != nil {
		t.Fatalf("ensureDir() failed: %v", err)
	}

	if _, err := os.Stat(path); os.IsNotExist(err) {
		t.Error("directory was not created")
	}

	if err := ensureDir(""); err != nil {
		t.Error("ensureDir(\"\") should not error")
	}
}

func TestDefaultPath(t *testing.T) {
	home, err := os.UserHomeDir()
	if err != nil {
		t.Skip("Skipping test because user home dir cannot be found")
	}

	want := filepath.Join(home, ".config", "data-watchdog", "usage.db")
	if got := defaultPath("usage.db"); got != want {
		t.Errorf("defaultPath() = %q, want %q", got, want)
	}
}

func TestGetEnvPaths(t *testing.T) {
	paths := getEnvPaths()
	if len(paths) == 0 {
		t.Error("getEnvPaths() returned empty list")
	}

	cwd, _ := os.Getwd()
	found := false
	for _, p := range paths {
		if p == filepath.Join(cwd, ".env") {
			found = true
			break
		}
	}
	if !found {
		t.Error("getEnvPaths() missing current directory .env")
	}
}

func TestLoad(t *testing.T) {
	tmpDir := t.TempDir()
	t.Setenv("DATABASE_PATH", filepath.Join(tmpDir, "db", "usage.db"))
	t.Setenv("COUNTERS_PATH", filepath.Join(tmpDir, "in", "counters.json"))
	t.Setenv("BUNDLE_PATH", filepath.Join(tmpDir, "in", "bundle.yaml"))
	t.Setenv("MONITOR_INTERVAL", "5m")
	t.Setenv("PACING_CYCLE_DAYS", "30")
	t.Setenv("NOTIFY_MIN_SEVERITY", "critical")
	t.Setenv("NOTIFICATIONS_ENABLED", "false")

	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load() failed: %v", err)
	}

	if cfg.MonitorInterval != 5*time.Minute {
		t.Errorf("MonitorInterval = %v, want 5m", cfg.MonitorInterval)
	}
	if cfg.PacingCycleDays != 30 {
		t.Errorf("PacingCycleDays = %d, want 30", cfg.PacingCycleDays)
	}
	if cfg.NotifyMinSeverity != models.SeverityCritical {
		t.Errorf("NotifyMinSeverity = %v, want critical", cfg.NotifyMinSeverity)
	}
	if cfg.NotificationsOn {
		t.Error("NotificationsOn should be false")
	}
	if cfg.DailyHistoryDays != defaultDailyHistoryDays || cfg.RetentionDays != defaultRetentionDays {
		t.Errorf("Unexpected defaults: %+v", cfg)
	}
	if cfg.PruneSchedule != defaultPruneSchedule {
		t.Errorf("PruneSchedule = %q", cfg.PruneSchedule)
	}

	for _, dir := range []string{"db", "in"} {
		if _, err := os.Stat(filepath.Join(tmpDir, dir)); err != nil {
			t.Errorf("expected directory %s to be created: %v", dir, err)
		}
	}
}

func TestLoad_Invalid(t *testing.T) {
	tests := []struct {
		name string
		key  string
		val  string
	}{
		{"UnknownSeverity", "NOTIFY_MIN_SEVERITY", "urgent"},
		{"ZeroInterval", "MONITOR_INTERVAL", "0s"},
		{"ZeroRetention", "RETENTION_DAYS", "0"},
		{"NegativePacing", "PACING_CYCLE_DAYS", "-1"},
		{"ZeroHistoryDays", "DAILY_HISTORY_DAYS", "0"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			tmpDir := t.TempDir()
			t.Setenv("DATABASE_PATH", filepath.Join(tmpDir, "usage.db"))
			t.Setenv(tt.key, tt.val)

			if _, err := Load(); err == nil {
				t.Errorf("Load() should fail for %s=%s", tt.key, tt.val)
			}
		})
	}
}
