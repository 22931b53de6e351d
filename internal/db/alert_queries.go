package db

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/j-veylop/data-watchdog/internal/logger"
	"github.com/j-veylop/data-watchdog/internal/models"
)

// InsertAlerts stores alerts from one cycle. Alerts without an ID get one;
// re-inserting an existing ID is a no-op.
func (db *DB) InsertAlerts(alerts []models.DrainAlert) error {
	if len(alerts) == 0 {
		return nil
	}

	ctx := context.Background()
	tx, err := db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	stmt, err := tx.PrepareContext(ctx, `
		INSERT OR IGNORE INTO drain_alerts (
			id, timestamp, app_id, app_name, kind, severity,
			message, recommendation, data_used, percentage
		) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
	`)
	if err != nil {
		return fmt.Errorf("failed to prepare alert insert: %w", err)
	}
	defer func() { _ = stmt.Close() }()

	for i := range alerts {
		a := &alerts[i]
		if a.ID == "" {
			a.ID = uuid.NewString()
		}
		if a.Timestamp.IsZero() {
			a.Timestamp = time.Now()
		}
		if _, err := stmt.ExecContext(ctx,
			a.ID,
			a.Timestamp.Unix(),
			a.AppID,
			a.AppName,
			a.Kind.String(),
			a.Severity.String(),
			a.Message,
			a.Recommendation,
			int64(a.DataUsed),
			a.Percentage,
		); err != nil {
			return fmt.Errorf("failed to insert alert %s: %w", a.ID, err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit alerts: %w", err)
	}
	return nil
}

// GetRecentAlerts returns alerts raised at or after since, newest first.
func (db *DB) GetRecentAlerts(since time.Time, limit int) ([]models.DrainAlert, error) {
	query := `
		SELECT id, timestamp, app_id, app_name, kind, severity,
			   message, recommendation, data_used, percentage
		FROM drain_alerts
		WHERE timestamp >= ?
		ORDER BY timestamp DESC, rowid DESC
		LIMIT ?
	`

	rows, err := db.QueryContext(context.Background(), query, since.Unix(), limit)
	if err != nil {
		return nil, fmt.Errorf("failed to query recent alerts: %w", err)
	}
	defer func() {
		if err := rows.Close(); err != nil {
			logger.Error("failed to close rows", "error", err)
		}
	}()

	var alerts []models.DrainAlert
	for rows.Next() {
		var a models.DrainAlert
		var ts, dataUsed int64
		var kind, severity string

		err := rows.Scan(
			&a.ID,
			&ts,
			&a.AppID,
			&a.AppName,
			&kind,
			&severity,
			&a.Message,
			&a.Recommendation,
			&dataUsed,
			&a.Percentage,
		)
		if err != nil {
			return nil, fmt.Errorf("failed to scan alert: %w", err)
		}

		a.Timestamp = time.Unix(ts, 0)
		a.Kind = models.ParseAlertKind(kind)
		a.Severity, _ = models.ParseSeverity(severity)
		a.DataUsed = models.ClampBytes(dataUsed)
		alerts = append(alerts, a)
	}

	return alerts, rows.Err()
}
