package prediction

import (
	"time"

	"github.com/j-veylop/data-watchdog/internal/history"
	"github.com/j-veylop/data-watchdog/internal/models"
)

// IntervalTracker keeps the most recent per-tick usage totals across all
// applications and extrapolates short-term exhaustion from them.
type IntervalTracker struct {
	window *history.Window
}

// NewIntervalTracker creates a tracker retaining the last ten intervals.
func NewIntervalTracker() *IntervalTracker {
	return &IntervalTracker{window: history.NewWindow(history.DefaultCapacity)}
}

// Record adds one interval's total.
func (t *IntervalTracker) Record(bytes uint64) {
	t.window.Push(bytes)
}

// Samples returns the retained interval totals, oldest first.
func (t *IntervalTracker) Samples() []uint64 {
	return t.window.Values()
}

// AveragePerInterval returns the mean interval total in MiB.
func (t *IntervalTracker) AveragePerInterval() float64 {
	return averageBytes(t.window.Values()) / models.MiB
}

// ExhaustionTime extrapolates when remaining bytes run out at the current
// per-interval rate. It needs at least two intervals and a positive rate.
func (t *IntervalTracker) ExhaustionTime(remaining uint64, interval time.Duration, now time.Time) (time.Time, bool) {
	samples := t.window.Values()
	if len(samples) < 2 || interval <= 0 {
		return time.Time{}, false
	}
	avg := averageBytes(samples)
	if avg <= 0 {
		return time.Time{}, false
	}

	intervals := float64(remaining) / avg
	return now.Add(time.Duration(intervals * float64(interval))), true
}

// Reset drops all recorded intervals.
func (t *IntervalTracker) Reset() {
	t.window.Reset()
}

func averageBytes(samples []uint64) float64 {
	if len(samples) == 0 {
		return 0
	}
	var sum float64
	for _, v := range samples {
		sum += float64(v)
	}
	return sum / float64(len(samples))
}
