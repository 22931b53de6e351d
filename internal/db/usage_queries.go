package db

import (
	"context"
	"fmt"
	"time"

	"github.com/j-veylop/data-watchdog/internal/logger"
	"github.com/j-veylop/data-watchdog/internal/models"
)

const (
	dateLayout  = "2006-01-02"
	labelLayout = "Mon 2006-01-02"
)

// InsertUsageSamples stores one tick's per-application usage.
// The date column uses the timestamp's own location.
func (db *DB) InsertUsageSamples(ts time.Time, snapshot models.Snapshot) error {
	if len(snapshot) == 0 {
		return nil
	}
	if ts.IsZero() {
		ts = time.Now()
	}

	ctx := context.Background()
	tx, err := db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	stmt, err := tx.PrepareContext(ctx, `
		INSERT INTO usage_samples (timestamp, date, app_id, app_name, bytes, mobile_bytes)
		VALUES (?, ?, ?, ?, ?, ?)
	`)
	if err != nil {
		return fmt.Errorf("failed to prepare usage insert: %w", err)
	}
	defer func() { _ = stmt.Close() }()

	date := ts.Format(dateLayout)
	for _, u := range snapshot {
		if _, err := stmt.ExecContext(ctx,
			ts.Unix(),
			date,
			u.AppID,
			u.AppName,
			int64(u.Total()),
			int64(u.Mobile()),
		); err != nil {
			return fmt.Errorf("failed to insert usage sample for %s: %w", u.AppID, err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit usage samples: %w", err)
	}
	return nil
}

// GetDailyUsage returns per-day totals for up to days calendar days ending
// the day before before, oldest first. Days before the first recorded
// sample are omitted; later gaps are reported as zero.
func (db *DB) GetDailyUsage(days int, before time.Time) ([]models.DailyUsage, error) {
	if days <= 0 {
		return nil, nil
	}

	end := time.Date(before.Year(), before.Month(), before.Day(), 0, 0, 0, 0, before.Location())
	start := end.AddDate(0, 0, -days)

	query := `
		SELECT date, COALESCE(SUM(bytes), 0)
		FROM usage_samples
		WHERE date >= ? AND date < ?
		GROUP BY date
		ORDER BY date
	`

	rows, err := db.QueryContext(context.Background(), query, start.Format(dateLayout), end.Format(dateLayout))
	if err != nil {
		return nil, fmt.Errorf("failed to query daily usage: %w", err)
	}
	defer func() {
		if err := rows.Close(); err != nil {
			logger.Error("failed to close rows", "error", err)
		}
	}()

	totals := make(map[string]int64)
	var first string
	for rows.Next() {
		var date string
		var bytes int64
		if err := rows.Scan(&date, &bytes); err != nil {
			return nil, fmt.Errorf("failed to scan daily usage: %w", err)
		}
		if first == "" {
			first = date
		}
		totals[date] = bytes
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	if first == "" {
		return nil, nil
	}

	var out []models.DailyUsage
	for day := start; day.Before(end); day = day.AddDate(0, 0, 1) {
		key := day.Format(dateLayout)
		if key < first {
			continue
		}
		out = append(out, models.DailyUsage{
			Label: day.Format(labelLayout),
			Bytes: totals[key],
		})
	}
	return out, nil
}

// GetRecentAppSamples returns up to limit of the newest samples per
// application, oldest first.
func (db *DB) GetRecentAppSamples(limit int) (map[string][]uint64, error) {
	query := `
		SELECT app_id, bytes FROM (
			SELECT app_id, bytes, timestamp, id,
				ROW_NUMBER() OVER (PARTITION BY app_id ORDER BY timestamp DESC, id DESC) AS rn
			FROM usage_samples
		)
		WHERE rn <= ?
		ORDER BY app_id, timestamp, id
	`

	rows, err := db.QueryContext(context.Background(), query, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to query recent app samples: %w", err)
	}
	defer func() {
		if err := rows.Close(); err != nil {
			logger.Error("failed to close rows", "error", err)
		}
	}()

	samples := make(map[string][]uint64)
	for rows.Next() {
		var appID string
		var bytes int64
		if err := rows.Scan(&appID, &bytes); err != nil {
			return nil, fmt.Errorf("failed to scan app sample: %w", err)
		}
		samples[appID] = append(samples[appID], models.ClampBytes(bytes))
	}

	return samples, rows.Err()
}

// GetRecentIntervalTotals returns the all-application totals of the newest
// limit ticks, oldest first.
func (db *DB) GetRecentIntervalTotals(limit int) ([]uint64, error) {
	query := `
		SELECT total FROM (
			SELECT timestamp, SUM(bytes) AS total
			FROM usage_samples
			GROUP BY timestamp
			ORDER BY timestamp DESC
			LIMIT ?
		)
		ORDER BY timestamp
	`

	rows, err := db.QueryContext(context.Background(), query, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to query interval totals: %w", err)
	}
	defer func() {
		if err := rows.Close(); err != nil {
			logger.Error("failed to close rows", "error", err)
		}
	}()

	var totals []uint64
	for rows.Next() {
		var total int64
		if err := rows.Scan(&total); err != nil {
			return nil, fmt.Errorf("failed to scan interval total: %w", err)
		}
		totals = append(totals, models.ClampBytes(total))
	}

	return totals, rows.Err()
}

// SumUsageSince returns the bytes recorded at or after since.
func (db *DB) SumUsageSince(since time.Time) (int64, error) {
	var total int64
	err := db.QueryRowContext(context.Background(),
		"SELECT COALESCE(SUM(bytes), 0) FROM usage_samples WHERE timestamp >= ?",
		since.Unix(),
	).Scan(&total)
	if err != nil {
		return 0, fmt.Errorf("failed to sum usage: %w", err)
	}
	return total, nil
}

// GetTopApps returns per-application totals since the given instant,
// largest first.
func (db *DB) GetTopApps(since time.Time, limit int) ([]models.UsageRecord, error) {
	query := `
		SELECT app_id, MAX(app_name), SUM(bytes), SUM(mobile_bytes), MAX(timestamp)
		FROM usage_samples
		WHERE timestamp >= ?
		GROUP BY app_id
		ORDER BY SUM(bytes) DESC, app_id
		LIMIT ?
	`

	rows, err := db.QueryContext(context.Background(), query, since.Unix(), limit)
	if err != nil {
		return nil, fmt.Errorf("failed to query top apps: %w", err)
	}
	defer func() {
		if err := rows.Close(); err != nil {
			logger.Error("failed to close rows", "error", err)
		}
	}()

	var records []models.UsageRecord
	for rows.Next() {
		var r models.UsageRecord
		var last int64
		if err := rows.Scan(&r.AppID, &r.AppName, &r.Bytes, &r.MobileBytes, &last); err != nil {
			return nil, fmt.Errorf("failed to scan app total: %w", err)
		}
		r.Timestamp = time.Unix(last, 0)
		records = append(records, r)
	}

	return records, rows.Err()
}

// DeleteOldData removes samples, alerts and predictions recorded before cutoff.
// The bundle row is never pruned.
func (db *DB) DeleteOldData(cutoff time.Time) (int64, error) {
	ctx := context.Background()
	tx, err := db.BeginTx(ctx, nil)
	if err != nil {
		return 0, fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	var removed int64
	for _, table := range []string{"usage_samples", "drain_alerts", "predictions"} {
		result, err := tx.ExecContext(ctx, "DELETE FROM "+table+" WHERE timestamp < ?", cutoff.Unix())
		if err != nil {
			return 0, fmt.Errorf("failed to prune %s: %w", table, err)
		}
		n, err := result.RowsAffected()
		if err != nil {
			return 0, fmt.Errorf("failed to count pruned %s: %w", table, err)
		}
		removed += n
	}

	if err := tx.Commit(); err != nil {
		return 0, fmt.Errorf("failed to commit prune: %w", err)
	}
	return removed, nil
}
