package db

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/j-veylop/data-watchdog/internal/models"
)

// UpsertBundle stores the single current bundle description.
func (db *DB) UpsertBundle(b *models.Bundle) error {
	query := `
		INSERT INTO bundle_info (id, provider, total_bytes, used_bytes, cycle_start, expiry, last_updated)
		VALUES (1, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(id) DO UPDATE SET
			provider = excluded.provider,
			total_bytes = excluded.total_bytes,
			used_bytes = excluded.used_bytes,
			cycle_start = excluded.cycle_start,
			expiry = excluded.expiry,
			last_updated = excluded.last_updated
	`

	updated := b.LastUpdated
	if updated.IsZero() {
		updated = time.Now()
	}

	_, err := db.ExecContext(context.Background(), query,
		b.Provider,
		b.TotalBytes,
		b.UsedBytes,
		unixOrZero(b.CycleStart),
		unixOrZero(b.Expiry),
		updated.Unix(),
	)
	if err != nil {
		return fmt.Errorf("failed to upsert bundle: %w", err)
	}
	return nil
}

// GetBundle returns the stored bundle, or nil when none has been recorded.
func (db *DB) GetBundle() (*models.Bundle, error) {
	query := `
		SELECT provider, total_bytes, used_bytes, cycle_start, expiry, last_updated
		FROM bundle_info
		WHERE id = 1
	`

	var b models.Bundle
	var start, expiry, updated int64
	err := db.QueryRowContext(context.Background(), query).Scan(
		&b.Provider,
		&b.TotalBytes,
		&b.UsedBytes,
		&start,
		&expiry,
		&updated,
	)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get bundle: %w", err)
	}

	b.CycleStart = fromUnix(start)
	b.Expiry = fromUnix(expiry)
	b.LastUpdated = fromUnix(updated)
	return &b, nil
}

func unixOrZero(t time.Time) int64 {
	if t.IsZero() {
		return 0
	}
	return t.Unix()
}

func fromUnix(v int64) time.Time {
	if v == 0 {
		return time.Time{}
	}
	return time.Unix(v, 0)
}
