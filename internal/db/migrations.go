package db

import (
	"context"
	"fmt"
)

// migrations are applied in order; PRAGMA user_version records how many ran.
var migrations = []string{
	`
	CREATE TABLE IF NOT EXISTS usage_samples (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		timestamp INTEGER NOT NULL,
		date TEXT NOT NULL,
		app_id TEXT NOT NULL,
		app_name TEXT NOT NULL DEFAULT '',
		bytes INTEGER NOT NULL DEFAULT 0,
		mobile_bytes INTEGER NOT NULL DEFAULT 0
	);
	CREATE INDEX IF NOT EXISTS idx_usage_samples_date ON usage_samples(date);
	CREATE INDEX IF NOT EXISTS idx_usage_samples_timestamp ON usage_samples(timestamp);
	CREATE INDEX IF NOT EXISTS idx_usage_samples_app ON usage_samples(app_id, timestamp);

	CREATE TABLE IF NOT EXISTS bundle_info (
		id INTEGER PRIMARY KEY CHECK (id = 1),
		provider TEXT NOT NULL DEFAULT '',
		total_bytes INTEGER NOT NULL,
		used_bytes INTEGER NOT NULL DEFAULT -1,
		cycle_start INTEGER NOT NULL DEFAULT 0,
		expiry INTEGER NOT NULL DEFAULT 0,
		last_updated INTEGER NOT NULL
	);

	CREATE TABLE IF NOT EXISTS drain_alerts (
		id TEXT PRIMARY KEY,
		timestamp INTEGER NOT NULL,
		app_id TEXT NOT NULL,
		app_name TEXT NOT NULL DEFAULT '',
		kind TEXT NOT NULL,
		severity TEXT NOT NULL,
		message TEXT NOT NULL,
		recommendation TEXT NOT NULL DEFAULT '',
		data_used INTEGER NOT NULL DEFAULT 0,
		percentage REAL NOT NULL DEFAULT 0
	);
	CREATE INDEX IF NOT EXISTS idx_drain_alerts_timestamp ON drain_alerts(timestamp);

	CREATE TABLE IF NOT EXISTS predictions (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		timestamp INTEGER NOT NULL,
		daily_budget REAL NOT NULL DEFAULT 0,
		projected_overage INTEGER NOT NULL DEFAULT 0,
		projected_savings INTEGER NOT NULL DEFAULT 0,
		days_to_exhaustion INTEGER NOT NULL DEFAULT 0,
		trend TEXT NOT NULL DEFAULT 'stable',
		confidence REAL NOT NULL DEFAULT 0,
		will_exceed INTEGER NOT NULL DEFAULT 0
	);
	CREATE INDEX IF NOT EXISTS idx_predictions_timestamp ON predictions(timestamp);
	`,
}

// migrate brings the schema up to the latest version.
func (db *DB) migrate() error {
	ctx := context.Background()

	var version int
	if err := db.QueryRowContext(ctx, "PRAGMA user_version").Scan(&version); err != nil {
		return fmt.Errorf("failed to read schema version: %w", err)
	}

	for i := version; i < len(migrations); i++ {
		if _, err := db.ExecContext(ctx, migrations[i]); err != nil {
			return fmt.Errorf("failed to apply migration %d: %w", i+1, err)
		}
		// PRAGMA does not accept bound parameters.
		if _, err := db.ExecContext(ctx, fmt.Sprintf("PRAGMA user_version = %d", i+1)); err != nil {
			return fmt.Errorf("failed to record schema version %d: %w", i+1, err)
		}
	}

	return nil
}

// SchemaVersion returns the number of applied migrations.
func (db *DB) SchemaVersion() (int, error) {
	var version int
	err := db.QueryRowContext(context.Background(), "PRAGMA user_version").Scan(&version)
	return version, err
}
