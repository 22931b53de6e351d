// Package prediction forecasts bundle exhaustion from daily usage history.
package prediction

import (
	"math"
	"sync"

	"github.com/j-veylop/data-watchdog/internal/models"
)

const (
	// minWeightedDays is the history length from which recent days get extra weight.
	minWeightedDays = 3
	// recencyBoost is the extra weight of the newest day relative to the oldest.
	recencyBoost = 0.5

	minTrendDays     = 5
	trendWindow      = 3
	trendChange      = 0.2
	trendSpikeFactor = 2.0

	maxConfidence     = 0.9
	minConfidence     = 0.1
	confidenceRampDay = 14.0
)

// Predictor produces bundle forecasts and keeps the latest one per cycle.
type Predictor struct {
	mu       sync.RWMutex
	tracker  *IntervalTracker
	last     *models.UsagePrediction
	analytic *models.UsageAnalytics
}

// New creates a predictor with an empty interval tracker.
func New() *Predictor {
	return &Predictor{tracker: NewIntervalTracker()}
}

// Tracker returns the per-interval rate tracker.
func (p *Predictor) Tracker() *IntervalTracker {
	return p.tracker
}

// Forecast runs Predict and AnalyzePatterns over the same history and caches both.
func (p *Predictor) Forecast(bundle models.BundleState, daily []models.DailyUsage) (models.UsagePrediction, models.UsageAnalytics) {
	pred := Predict(bundle, models.DailyValues(daily))
	analytics := AnalyzePatterns(daily)

	p.mu.Lock()
	p.last = &pred
	p.analytic = &analytics
	p.mu.Unlock()

	return pred, analytics
}

// Latest returns the most recent forecast, if any.
func (p *Predictor) Latest() (*models.UsagePrediction, *models.UsageAnalytics) {
	p.mu.RLock()
	defer p.mu.RUnlock()
	return p.last, p.analytic
}

// Predict forecasts whether the bundle will run out before its cycle ends.
// The result depends only on its arguments.
func Predict(bundle models.BundleState, daily []int64) models.UsagePrediction {
	capacity := float64(models.ClampBytes(bundle.TotalCapacityBytes))
	used := float64(models.ClampBytes(bundle.UsedBytes))
	remainingData := float64(bundle.RemainingBytes())
	remainingDays := bundle.DaysRemaining()
	elapsed := max(bundle.DaysElapsed, 0)

	var rate float64
	if len(daily) > 0 {
		rate = WeightedDailyRate(daily)
	} else {
		rate = used / float64(max(elapsed, 1))
	}

	projected := used + rate*float64(remainingDays)

	daysToExhaustion := max(bundle.TotalDays, 0)
	if rate > 0 {
		daysToExhaustion = int(math.Min(math.Floor(capacity/rate), math.MaxInt32))
	}

	recommended := 0.0
	if remainingDays > 0 {
		recommended = remainingData / float64(remainingDays)
	}

	var overage, savings uint64
	if projected > capacity {
		overage = uint64(projected - capacity)
	} else {
		savings = uint64(capacity - projected)
	}

	return models.UsagePrediction{
		WillExceedLimit:        projected > capacity,
		DaysToExhaustion:       daysToExhaustion,
		RecommendedDailyBudget: recommended,
		Confidence:             CalculateConfidence(elapsed, daily),
		ProjectedOverage:       overage,
		ProjectedSavings:       savings,
		Trend:                  DetectTrend(daily),
	}
}

// WeightedDailyRate averages daily usage, giving the newest day up to 1.5x
// the weight of the oldest. Histories shorter than three days use a plain mean.
func WeightedDailyRate(daily []int64) float64 {
	n := len(daily)
	if n == 0 {
		return 0
	}
	if n < minWeightedDays {
		return meanOf(daily)
	}

	var sum, weights float64
	for i, v := range daily {
		w := 1.0 + (float64(i)/float64(n))*recencyBoost
		sum += float64(models.ClampBytes(v)) * w
		weights += w
	}
	return sum / weights
}

// DetectTrend compares the last three days with the three before them.
// Fewer than five days is always Stable.
func DetectTrend(daily []int64) models.Trend {
	n := len(daily)
	if n < minTrendDays {
		return models.TrendStable
	}

	recent := meanOf(daily[n-trendWindow:])
	earlier := meanOf(daily[max(0, n-2*trendWindow) : n-trendWindow])
	change := 0.0
	if earlier > 0 {
		change = (recent - earlier) / earlier
	}

	last := float64(models.ClampBytes(daily[n-1]))
	before := meanOf(daily[n-1-trendWindow : n-1])
	spikeRatio := 0.0
	if before > 0 {
		spikeRatio = last / before
	}

	switch {
	case spikeRatio > trendSpikeFactor:
		return models.TrendSpike
	case change > trendChange:
		return models.TrendIncreasing
	case change < -trendChange:
		return models.TrendDecreasing
	default:
		return models.TrendStable
	}
}

// CalculateConfidence scores how far a forecast can be trusted. It ramps up
// over the first two weeks of a cycle and, with three or more days of
// history, is averaged with how consistent that history is.
func CalculateConfidence(daysElapsed int, daily []int64) float64 {
	confidence := math.Min(maxConfidence, float64(max(daysElapsed, 0))/confidenceRampDay)

	if len(daily) >= minWeightedDays {
		consistency := 1 - math.Min(1, coefficientOfVariation(daily))
		confidence = (confidence + consistency) / 2
	}

	return math.Max(minConfidence, math.Min(maxConfidence, confidence))
}

// coefficientOfVariation is the mean absolute deviation over the mean.
// An all-zero history counts as maximally variable.
func coefficientOfVariation(values []int64) float64 {
	m := meanOf(values)
	if m <= 0 {
		return 1
	}
	var dev float64
	for _, v := range values {
		dev += math.Abs(float64(models.ClampBytes(v)) - m)
	}
	return dev / float64(len(values)) / m
}

func meanOf(values []int64) float64 {
	if len(values) == 0 {
		return 0
	}
	var sum float64
	for _, v := range values {
		sum += float64(models.ClampBytes(v))
	}
	return sum / float64(len(values))
}
