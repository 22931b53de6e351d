// Package services provides service orchestration for the watchdog daemon.
package services

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"net/http"
	"sync"
	"time"

	"github.com/j-veylop/data-watchdog/internal/config"
	"github.com/j-veylop/data-watchdog/internal/db"
	"github.com/j-veylop/data-watchdog/internal/engine"
	"github.com/j-veylop/data-watchdog/internal/logger"
	"github.com/j-veylop/data-watchdog/internal/metrics"
	"github.com/j-veylop/data-watchdog/internal/models"
	"github.com/j-veylop/data-watchdog/internal/retention"
	"github.com/j-veylop/data-watchdog/internal/services/notify"
	"github.com/j-veylop/data-watchdog/internal/services/prediction"
	"github.com/j-veylop/data-watchdog/internal/sources"
)

type (
	// CycleCompletedEvent is emitted after every successful evaluation cycle.
	CycleCompletedEvent struct {
		Result *engine.CycleResult
		Bundle *models.BundleState
	}

	// ErrorEvent is emitted when an error occurs in any service.
	ErrorEvent struct {
		Service string
		Error   error
	}

	// PruneEvent is emitted after a retention run.
	PruneEvent struct {
		Rows int64
	}
)

// ServiceEvent is the interface implemented by all service events.
type ServiceEvent interface {
	isServiceEvent()
}

func (CycleCompletedEvent) isServiceEvent() {}
func (ErrorEvent) isServiceEvent()          {}
func (PruneEvent) isServiceEvent()          {}

// Forecast is a prediction computed from stored data alone.
type Forecast struct {
	Bundle     *models.Bundle
	State      models.BundleState
	Prediction models.UsagePrediction
	Analytics  models.UsageAnalytics
	Daily      []models.DailyUsage
	TopApps    []models.UsageRecord
	// ExhaustsAt is zero when recent ticks give no estimate.
	ExhaustsAt      time.Time
	IntervalAverage float64
}

// topAppsLimit is how many applications a forecast lists.
const topAppsLimit = 5

// Manager owns the engine and drives it from counters, the bundle file and
// a ticker.
type Manager struct {
	mu          sync.RWMutex
	cfg         *config.Config
	database    *db.DB
	engine      *engine.Engine
	counters    *sources.CounterSource
	notifier    *notify.Notifier
	metrics     *metrics.Collector
	pruner      *retention.Pruner
	scheduler   *retention.Scheduler
	watcher     *sources.Watcher
	server      *http.Server
	log         *slog.Logger
	now         func() time.Time
	subscribers []chan ServiceEvent
	refreshChan chan struct{}
	stopChan    chan struct{}
	wg          sync.WaitGroup
	closeOnce   sync.Once
	started     bool
}

// NewManager opens the database, restores recent history and wires every
// service. Nothing runs until Start.
func NewManager(cfg *config.Config) (*Manager, error) {
	m := &Manager{
		cfg:         cfg,
		log:         logger.With("manager"),
		now:         time.Now,
		refreshChan: make(chan struct{}, 1),
		stopChan:    make(chan struct{}),
	}

	var err error
	m.database, err = db.New(cfg.DatabasePath)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize database: %w", err)
	}

	m.engine = engine.New(nil, engine.Options{
		PacingCycleDays: cfg.PacingCycleDays,
		Interval:        cfg.MonitorInterval,
		Now:             func() time.Time { return m.now() },
	})
	m.counters = sources.NewCounterSource(cfg.CountersPath)
	m.notifier = notify.New(notify.Options{
		Now:         func() time.Time { return m.now() },
		Cooldown:    cfg.NotifyCooldown,
		MinSeverity: cfg.NotifyMinSeverity,
		Enabled:     cfg.NotificationsOn,
	})
	m.metrics = metrics.NewCollector(nil)
	m.pruner = retention.NewPruner(m.database, cfg.RetentionDays, func(rows int64) {
		m.metrics.RecordPrune(rows)
		m.broadcast(PruneEvent{Rows: rows})
	})
	m.scheduler = retention.NewScheduler(m.pruner, cfg.PruneSchedule)

	if err := m.warmStart(); err != nil {
		_ = m.database.Close()
		return nil, err
	}

	return m, nil
}

// warmStart seeds the in-memory windows from stored samples.
func (m *Manager) warmStart() error {
	state := m.engine.State()

	samples, err := m.database.GetRecentAppSamples(state.History.Capacity())
	if err != nil {
		return fmt.Errorf("failed to restore history: %w", err)
	}
	for appID, values := range samples {
		state.History.Seed(appID, values)
	}

	totals, err := m.database.GetRecentIntervalTotals(state.History.Capacity())
	if err != nil {
		return fmt.Errorf("failed to restore interval totals: %w", err)
	}
	for _, total := range totals {
		state.Predictor.Tracker().Record(total)
	}

	latest, err := m.database.GetLatestPrediction()
	if err != nil {
		return fmt.Errorf("failed to restore last forecast: %w", err)
	}
	if latest != nil {
		m.notifier.Restore(&latest.UsagePrediction)
	}

	m.log.Debug("history restored", "apps", len(samples), "intervals", len(totals), "forecast", latest != nil)
	return nil
}

// Start launches the periodic driver, the bundle file watcher, the retention
// scheduler and the metrics endpoint. Everything stops when ctx is cancelled
// or Close is called.
func (m *Manager) Start(ctx context.Context) error {
	m.mu.Lock()
	if m.started {
		m.mu.Unlock()
		return nil
	}
	m.started = true
	m.mu.Unlock()

	if err := m.scheduler.Start(ctx); err != nil {
		return err
	}

	watcher, err := sources.Watch(func(path string) {
		m.log.Debug("bundle file changed", "path", path)
		m.Refresh()
	}, m.cfg.BundlePath)
	if err != nil {
		m.log.Warn("bundle file watching disabled", "error", err)
	} else {
		m.mu.Lock()
		m.watcher = watcher
		m.mu.Unlock()
	}

	if m.cfg.MetricsAddr != "" {
		m.startMetricsServer()
	}

	m.wg.Add(1)
	go m.loop(ctx)

	m.log.Info("monitoring started", "interval", m.cfg.MonitorInterval, "counters", m.cfg.CountersPath)
	return nil
}

func (m *Manager) startMetricsServer() {
	mux := http.NewServeMux()
	mux.Handle("/metrics", m.metrics.Handler())

	srv := &http.Server{
		Addr:              m.cfg.MetricsAddr,
		Handler:           mux,
		ReadHeaderTimeout: 5 * time.Second,
	}
	m.mu.Lock()
	m.server = srv
	m.mu.Unlock()

	go func() {
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			m.log.Error("metrics server failed", "addr", srv.Addr, "error", err)
			m.broadcast(ErrorEvent{Service: "metrics", Error: err})
		}
	}()
	m.log.Info("metrics endpoint listening", "addr", srv.Addr)
}

// loop runs a cycle immediately and then on every tick. Refresh requests only
// re-forecast, so every counter sample spans one interval.
func (m *Manager) loop(ctx context.Context) {
	defer m.wg.Done()

	ticker := time.NewTicker(m.cfg.MonitorInterval)
	defer ticker.Stop()

	m.runCycle(ctx)
	for {
		select {
		case <-ctx.Done():
			return
		case <-m.stopChan:
			return
		case <-ticker.C:
			m.runCycle(ctx)
		case <-m.refreshChan:
			if _, err := m.Reforecast(ctx); err != nil && !errors.Is(err, context.Canceled) {
				m.log.Error("reforecast failed", "error", err)
			}
		}
	}
}

func (m *Manager) runCycle(ctx context.Context) {
	if _, err := m.RunOnce(ctx); err != nil && !errors.Is(err, context.Canceled) {
		m.log.Error("cycle failed", "error", err)
	}
}

// Refresh requests a re-forecast against the current bundle. Counters are not
// read. Requests made while one is pending are merged.
func (m *Manager) Refresh() {
	select {
	case m.refreshChan <- struct{}{}:
	default:
	}
}

// RunOnce performs one full cycle: read counters, resolve the bundle, load
// daily history, evaluate, persist, then notify.
func (m *Manager) RunOnce(ctx context.Context) (*engine.CycleResult, error) {
	now := m.now()

	snapshot, err := m.counters.Read()
	switch {
	case errors.Is(err, fs.ErrNotExist):
		m.log.Debug("counters file not found, evaluating empty snapshot", "path", m.counters.Path())
		snapshot = nil
	case err != nil:
		return nil, m.fail("counters", err)
	}
	snapshot = snapshot.Normalize()

	bundle, state, daily := m.resolve(now, snapshot.Total())

	result, err := m.engine.RunCycle(ctx, engine.CycleInput{
		Snapshot: snapshot,
		Bundle:   state,
		Daily:    daily,
	})
	if err != nil {
		return nil, err
	}

	m.persist(now, snapshot, result)
	m.metrics.RecordCycle(result.Duration.Seconds(), result.SnapshotTotal, result.TrackedApps, result.Alerts)
	m.notifier.Alerts(result.Alerts)
	m.publish("cycle completed", bundle, state, result)
	return result, nil
}

// Reforecast re-evaluates the bundle and its forecast without reading
// counters. Stored usage covers the bundle's used bytes.
func (m *Manager) Reforecast(ctx context.Context) (*engine.CycleResult, error) {
	now := m.now()

	bundle, state, daily := m.resolve(now, 0)

	result, err := m.engine.Reforecast(ctx, state, daily)
	if err != nil {
		return nil, err
	}

	m.persist(now, nil, result)
	m.publish("reforecast completed", bundle, state, result)
	return result, nil
}

// resolve loads the bundle and the daily history, reporting failures and
// continuing without them.
func (m *Manager) resolve(now time.Time, pending uint64) (*models.Bundle, *models.BundleState, []models.DailyUsage) {
	bundle, state, err := m.currentBundle(now, pending)
	if err != nil {
		m.reportError("bundle", err)
	}

	daily, err := m.database.GetDailyUsage(m.cfg.DailyHistoryDays, now)
	if err != nil {
		m.reportError("database", err)
	}
	return bundle, state, daily
}

// publish records gauges, sends bundle notices and broadcasts the result.
func (m *Manager) publish(msg string, bundle *models.Bundle, state *models.BundleState, result *engine.CycleResult) {
	if state != nil {
		m.metrics.RecordBundle(*state)
	}
	if result.Prediction != nil {
		m.metrics.RecordPrediction(*result.Prediction)
	}
	m.metrics.RecordInterval(result.IntervalAverage, result.ExhaustsAt)

	m.notifier.Prediction(result.Prediction)
	m.notifier.BundleExpiry(bundle)

	attrs := []any{
		"apps", result.TrackedApps,
		"alerts", len(result.Alerts),
		"interval_avg_mib", result.IntervalAverage,
		"duration", result.Duration,
	}
	if !result.ExhaustsAt.IsZero() {
		attrs = append(attrs, "exhausts_at", result.ExhaustsAt.Format(time.RFC3339))
	}
	m.log.Debug(msg, attrs...)
	m.broadcast(CycleCompletedEvent{Result: result, Bundle: state})
}

func (m *Manager) persist(now time.Time, snapshot models.Snapshot, result *engine.CycleResult) {
	if err := m.database.InsertUsageSamples(now, snapshot); err != nil {
		m.reportError("database", err)
	}
	if err := m.database.InsertAlerts(result.Alerts); err != nil {
		m.reportError("database", err)
	}
	if result.Prediction != nil {
		rec := &models.PredictionRecord{Timestamp: now, UsagePrediction: *result.Prediction}
		if err := m.database.InsertPrediction(rec); err != nil {
			m.reportError("database", err)
		}
	}
}

// currentBundle resolves the bundle from its file, falling back to the stored
// copy, and derives its state. pending is usage not yet persisted.
func (m *Manager) currentBundle(now time.Time, pending uint64) (*models.Bundle, *models.BundleState, error) {
	bundle, err := sources.LoadBundle(m.cfg.BundlePath)
	switch {
	case err == nil:
		bundle.LastUpdated = now
		if err := m.database.UpsertBundle(bundle); err != nil {
			m.reportError("database", err)
		}
	case errors.Is(err, fs.ErrNotExist):
		bundle, err = m.database.GetBundle()
		if err != nil {
			return nil, nil, err
		}
	default:
		// Keep evaluating against the last good bundle.
		stored, dbErr := m.database.GetBundle()
		if dbErr != nil || stored == nil {
			return nil, nil, err
		}
		m.reportError("bundle", err)
		bundle = stored
	}
	if bundle == nil {
		return nil, nil, nil
	}

	used := bundle.UsedBytes
	if !bundle.UsedKnown() {
		sum, err := m.database.SumUsageSince(bundle.Start())
		if err != nil {
			return nil, nil, err
		}
		used = sum + int64(pending)
	}

	state := bundle.StateAt(now, used)
	return bundle, &state, nil
}

// Forecast computes a prediction from stored data without reading counters
// or changing the engine state.
func (m *Manager) Forecast() (*Forecast, error) {
	now := m.now()

	bundle, state, err := m.currentBundle(now, 0)
	if err != nil {
		return nil, err
	}
	if state == nil {
		return nil, errors.New("no bundle configured")
	}

	daily, err := m.database.GetDailyUsage(m.cfg.DailyHistoryDays, now)
	if err != nil {
		return nil, err
	}

	top, err := m.database.GetTopApps(bundle.Start(), topAppsLimit)
	if err != nil {
		return nil, err
	}

	f := &Forecast{
		Bundle:     bundle,
		State:      *state,
		Prediction: prediction.Predict(*state, models.DailyValues(daily)),
		Analytics:  prediction.AnalyzePatterns(daily),
		Daily:      daily,
		TopApps:    top,
	}

	// The tracker holds the totals restored at startup.
	tracker := m.engine.State().Predictor.Tracker()
	f.IntervalAverage = tracker.AveragePerInterval()
	if at, ok := tracker.ExhaustionTime(state.RemainingBytes(), m.cfg.MonitorInterval, now); ok {
		f.ExhaustsAt = at
	}
	return f, nil
}

// Prune runs the retention pruner once.
func (m *Manager) Prune(ctx context.Context) (int64, error) {
	return m.pruner.Prune(ctx)
}

// fail records a cycle that could not run.
func (m *Manager) fail(service string, err error) error {
	m.metrics.RecordCycleError()
	m.reportError(service, err)
	return err
}

func (m *Manager) reportError(service string, err error) {
	m.log.Warn("service error", "service", service, "error", err)
	m.broadcast(ErrorEvent{Service: service, Error: err})
}

// broadcast sends an event to all subscribers.
func (m *Manager) broadcast(event ServiceEvent) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	for _, sub := range m.subscribers {
		select {
		case sub <- event:
		default:
			// Subscriber channel full, skip
		}
	}
}

// Subscribe creates a channel for receiving service events.
func (m *Manager) Subscribe() chan ServiceEvent {
	ch := make(chan ServiceEvent, 50)

	m.mu.Lock()
	m.subscribers = append(m.subscribers, ch)
	m.mu.Unlock()

	return ch
}

// Unsubscribe removes a subscriber channel.
func (m *Manager) Unsubscribe(ch chan ServiceEvent) {
	m.mu.Lock()
	defer m.mu.Unlock()

	for i, sub := range m.subscribers {
		if sub == ch {
			m.subscribers = append(m.subscribers[:i], m.subscribers[i+1:]...)
			close(ch)
			break
		}
	}
}

// Engine returns the evaluation engine.
func (m *Manager) Engine() *engine.Engine {
	return m.engine
}

// Metrics returns the metrics collector.
func (m *Manager) Metrics() *metrics.Collector {
	return m.metrics
}

// Database returns the database instance for direct access.
func (m *Manager) Database() *db.DB {
	return m.database
}

// Close stops every service and closes the database.
func (m *Manager) Close() error {
	var errs []error

	m.closeOnce.Do(func() {
		close(m.stopChan)
		m.wg.Wait()

		m.scheduler.Stop()

		m.mu.Lock()
		watcher, server := m.watcher, m.server
		for _, sub := range m.subscribers {
			close(sub)
		}
		m.subscribers = nil
		m.mu.Unlock()

		if watcher != nil {
			if err := watcher.Close(); err != nil {
				errs = append(errs, err)
			}
		}

		if server != nil {
			ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
			if err := server.Shutdown(ctx); err != nil {
				errs = append(errs, err)
			}
			cancel()
		}

		if err := m.database.Close(); err != nil {
			errs = append(errs, err)
		}
	})

	return errors.Join(errs...)
}
