// Package engine runs one usage evaluation cycle over explicitly owned state.
package engine

import (
	"context"
	"sync"
	"time"

	"github.com/j-veylop/data-watchdog/internal/history"
	"github.com/j-veylop/data-watchdog/internal/models"
	"github.com/j-veylop/data-watchdog/internal/services/drain"
	"github.com/j-veylop/data-watchdog/internal/services/prediction"
)

// State is all mutable state that survives between cycles.
type State struct {
	History   *history.Store
	Predictor *prediction.Predictor
}

// NewState creates empty engine state.
func NewState() *State {
	return &State{
		History:   history.NewStore(),
		Predictor: prediction.New(),
	}
}

// Options configures an Engine.
type Options struct {
	// PacingCycleDays forces the pacing check's cycle length; zero uses the bundle's.
	PacingCycleDays int
	// Interval is the tick length used to extrapolate short-term exhaustion.
	Interval time.Duration
	Now      func() time.Time
}

// CycleInput is everything one cycle evaluates.
type CycleInput struct {
	Snapshot models.Snapshot
	Bundle   *models.BundleState
	Daily    []models.DailyUsage
}

// CycleResult is everything one cycle produces.
type CycleResult struct {
	StartedAt  time.Time
	Alerts     []models.DrainAlert
	Prediction *models.UsagePrediction
	Analytics  *models.UsageAnalytics
	// ExhaustsAt is the short-term exhaustion estimate from recent ticks.
	ExhaustsAt time.Time
	// IntervalAverage is the mean per-tick usage in MiB over recent ticks.
	IntervalAverage float64
	Duration      time.Duration
	SnapshotTotal uint64
	TrackedApps   int
}

// Engine serialises evaluation cycles over a single State.
type Engine struct {
	mu       sync.Mutex
	state    *State
	detector *drain.Detector
	opts     Options
}

// New creates an engine over the given state. A nil state starts empty.
func New(state *State, opts Options) *Engine {
	if state == nil {
		state = NewState()
	}
	if opts.Now == nil {
		opts.Now = time.Now
	}
	return &Engine{
		state: state,
		detector: drain.New(state.History, drain.Options{
			PacingCycleDays: opts.PacingCycleDays,
			Now:             opts.Now,
		}),
		opts: opts,
	}
}

// State returns the engine's state.
func (e *Engine) State() *State {
	return e.state
}

// Detector returns the drain detector bound to the engine's history.
func (e *Engine) Detector() *drain.Detector {
	return e.detector
}

// RunCycle evaluates one snapshot. Cycles never overlap. The only error is
// the context's, returned when the caller cancels between phases; history
// recorded before that point is kept.
func (e *Engine) RunCycle(ctx context.Context, in CycleInput) (*CycleResult, error) {
	e.mu.Lock()
	defer e.mu.Unlock()

	if err := ctx.Err(); err != nil {
		return nil, err
	}

	start := e.opts.Now()
	snapshot := in.Snapshot.Normalize()
	res := &CycleResult{
		StartedAt:     start,
		SnapshotTotal: snapshot.Total(),
	}

	res.Alerts = e.detector.Evaluate(snapshot, in.Bundle)
	e.state.Predictor.Tracker().Record(res.SnapshotTotal)
	res.TrackedApps = len(e.state.History.Apps())

	if err := ctx.Err(); err != nil {
		return nil, err
	}

	e.forecast(res, in.Bundle, in.Daily)

	res.Duration = e.opts.Now().Sub(start)
	return res, nil
}

// Reforecast re-evaluates the bundle forecast between ticks. No sample is
// consumed: application history and interval totals are left as they are,
// and the result carries no alerts.
func (e *Engine) Reforecast(ctx context.Context, bundle *models.BundleState, daily []models.DailyUsage) (*CycleResult, error) {
	e.mu.Lock()
	defer e.mu.Unlock()

	if err := ctx.Err(); err != nil {
		return nil, err
	}

	start := e.opts.Now()
	res := &CycleResult{
		StartedAt:   start,
		TrackedApps: len(e.state.History.Apps()),
	}
	e.forecast(res, bundle, daily)

	res.Duration = e.opts.Now().Sub(start)
	return res, nil
}

func (e *Engine) forecast(res *CycleResult, bundle *models.BundleState, daily []models.DailyUsage) {
	tracker := e.state.Predictor.Tracker()
	res.IntervalAverage = tracker.AveragePerInterval()
	if bundle == nil {
		return
	}

	pred, analytics := e.state.Predictor.Forecast(*bundle, daily)
	res.Prediction = &pred
	res.Analytics = &analytics

	if at, ok := tracker.ExhaustionTime(bundle.RemainingBytes(), e.opts.Interval, res.StartedAt); ok {
		res.ExhaustsAt = at
	}
}
