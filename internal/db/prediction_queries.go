package db

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/j-veylop/data-watchdog/internal/models"
)

// InsertPrediction records a forecast.
func (db *DB) InsertPrediction(rec *models.PredictionRecord) error {
	query := `
		INSERT INTO predictions (
			timestamp, daily_budget, projected_overage, projected_savings,
			days_to_exhaustion, trend, confidence, will_exceed
		) VALUES (?, ?, ?, ?, ?, ?, ?, ?)
	`

	timestamp := rec.Timestamp
	if timestamp.IsZero() {
		timestamp = time.Now()
	}

	result, err := db.ExecContext(context.Background(), query,
		timestamp.Unix(),
		rec.RecommendedDailyBudget,
		int64(rec.ProjectedOverage),
		int64(rec.ProjectedSavings),
		rec.DaysToExhaustion,
		rec.Trend.String(),
		rec.Confidence,
		rec.WillExceedLimit,
	)
	if err != nil {
		return fmt.Errorf("failed to insert prediction: %w", err)
	}

	id, err := result.LastInsertId()
	if err == nil {
		rec.ID = id
	}

	return nil
}

// GetLatestPrediction returns the newest stored forecast, or nil when none exists.
func (db *DB) GetLatestPrediction() (*models.PredictionRecord, error) {
	query := `
		SELECT id, timestamp, daily_budget, projected_overage, projected_savings,
			   days_to_exhaustion, trend, confidence, will_exceed
		FROM predictions
		ORDER BY timestamp DESC, id DESC
		LIMIT 1
	`

	var rec models.PredictionRecord
	var ts, overage, savings int64
	var trend string
	err := db.QueryRowContext(context.Background(), query).Scan(
		&rec.ID,
		&ts,
		&rec.RecommendedDailyBudget,
		&overage,
		&savings,
		&rec.DaysToExhaustion,
		&trend,
		&rec.Confidence,
		&rec.WillExceedLimit,
	)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get latest prediction: %w", err)
	}

	rec.Timestamp = time.Unix(ts, 0)
	rec.ProjectedOverage = models.ClampBytes(overage)
	rec.ProjectedSavings = models.ClampBytes(savings)
	rec.Trend = models.ParseTrend(trend)
	return &rec, nil
}
