// Package models defines data structures and domain types.
package models

import (
	"math"
	"time"
)

// DefaultCycleDays is the bundle cycle length assumed when none is known.
const DefaultCycleDays = 30

// BundleState is the current state of a metered data allowance.
type BundleState struct {
	TotalCapacityBytes int64
	UsedBytes          int64
	DaysElapsed        int
	TotalDays          int
}

// RemainingBytes returns capacity minus usage, never negative.
func (b BundleState) RemainingBytes() uint64 {
	capacity, used := ClampBytes(b.TotalCapacityBytes), ClampBytes(b.UsedBytes)
	if used >= capacity {
		return 0
	}
	return capacity - used
}

// DaysRemaining returns the days left in the cycle, never negative.
func (b BundleState) DaysRemaining() int {
	if d := b.TotalDays - max(b.DaysElapsed, 0); d > 0 {
		return d
	}
	return 0
}

// Bundle is the stored bundle description (DB model).
type Bundle struct {
	CycleStart  time.Time
	Expiry      time.Time
	LastUpdated time.Time
	Provider    string
	TotalBytes  int64
	// UsedBytes is negative when the provider did not report it.
	UsedBytes int64
}

// UsedKnown reports whether the provider supplied a used-so-far figure.
func (b *Bundle) UsedKnown() bool {
	return b.UsedBytes >= 0
}

// Start returns the cycle start. Without one the cycle is assumed to end at
// Expiry and last DefaultCycleDays.
func (b *Bundle) Start() time.Time {
	if b.CycleStart.IsZero() {
		return b.Expiry.AddDate(0, 0, -DefaultCycleDays)
	}
	return b.CycleStart
}

// StateAt derives the bundle state for the given instant.
func (b *Bundle) StateAt(now time.Time, used int64) BundleState {
	start := b.Start()

	totalDays := DefaultCycleDays
	if !b.Expiry.IsZero() {
		totalDays = int(math.Ceil(b.Expiry.Sub(start).Hours() / 24))
	}
	if totalDays <= 0 {
		totalDays = DefaultCycleDays
	}

	elapsed := int(now.Sub(start).Hours() / 24)
	if elapsed < 0 {
		elapsed = 0
	}
	if elapsed > totalDays {
		elapsed = totalDays
	}

	return BundleState{
		TotalCapacityBytes: b.TotalBytes,
		UsedBytes:          used,
		DaysElapsed:        elapsed,
		TotalDays:          totalDays,
	}
}

// Trend classifies the direction of recent daily usage.
type Trend int

const (
	// TrendStable means no meaningful change.
	TrendStable Trend = iota
	// TrendIncreasing means recent days are more than 20% above earlier ones.
	TrendIncreasing
	// TrendDecreasing means recent days are more than 20% below earlier ones.
	TrendDecreasing
	// TrendSpike means the latest day is more than double the days before it.
	TrendSpike
)

// String returns the name of the trend.
func (t Trend) String() string {
	switch t {
	case TrendStable:
		return "stable"
	case TrendIncreasing:
		return "increasing"
	case TrendDecreasing:
		return "decreasing"
	case TrendSpike:
		return "spike"
	default:
		return "unknown"
	}
}

// ParseTrend maps a stored trend name back to its value.
func ParseTrend(s string) Trend {
	switch s {
	case "increasing":
		return TrendIncreasing
	case "decreasing":
		return TrendDecreasing
	case "spike":
		return TrendSpike
	default:
		return TrendStable
	}
}

// UsagePrediction is the bundle exhaustion forecast for one cycle.
type UsagePrediction struct {
	RecommendedDailyBudget float64 // Bytes per remaining day
	Confidence             float64 // 0.1 - 0.9
	ProjectedOverage       uint64  // Bytes beyond capacity at cycle end
	ProjectedSavings       uint64  // Bytes left over at cycle end
	DaysToExhaustion       int
	Trend                  Trend
	WillExceedLimit        bool
}

// UsageAnalytics summarises the shape of a daily usage history.
type UsageAnalytics struct {
	PeakDays            []string
	LightDays           []string
	AverageDailyUsage   float64
	WeekdayWeekendRatio float64
	DataEfficiencyScore float64 // 0 - 1, higher is more consistent
}

// PredictionRecord is a persisted prediction (DB model).
type PredictionRecord struct {
	Timestamp time.Time
	ID        int64
	UsagePrediction
}
