// Package drain detects applications consuming data abnormally.
package drain

import (
	"fmt"
	"time"

	"github.com/dustin/go-humanize"
	"github.com/google/uuid"

	"github.com/j-veylop/data-watchdog/internal/history"
	"github.com/j-veylop/data-watchdog/internal/models"
)

const (
	// drainThresholdBytes is the mean of the last three samples above which
	// an application is considered draining.
	drainThresholdBytes = 2 * models.MiB
	drainWindow         = 3

	spikeMinIncreasePct   = 150.0
	spikeMinIncreaseBytes = 20 * models.MiB

	mobileMinTotalBytes = 50 * models.MiB
	mobileMinShare      = 0.7

	pacingCriticalDeviation = 25.0
	pacingHighDeviation     = 10.0
)

// Tier multipliers applied to the recommended daily budget when a bundle is known.
const (
	budgetCriticalShare = 0.40
	budgetHighShare     = 0.25
	budgetMediumShare   = 0.15
)

// Tier multipliers applied to the snapshot total when no bundle is known.
const (
	trafficCriticalShare = 0.25
	trafficHighShare     = 0.15
	trafficMediumShare   = 0.08
)

// Options tunes the detector.
type Options struct {
	// PacingCycleDays forces the cycle length used by the pacing check.
	// Zero uses the bundle's own TotalDays.
	PacingCycleDays int
	// Now overrides the clock used for alert timestamps.
	Now func() time.Time
}

// Thresholds are the byte levels above which a tier alert is raised.
type Thresholds struct {
	Critical float64
	High     float64
	Medium   float64
}

// Detector evaluates snapshots against per-application histories.
type Detector struct {
	store *history.Store
	opts  Options
}

// New creates a detector recording into the given store.
func New(store *history.Store, opts Options) *Detector {
	if store == nil {
		store = history.NewStore()
	}
	if opts.Now == nil {
		opts.Now = time.Now
	}
	return &Detector{store: store, opts: opts}
}

// Store returns the history store the detector records into.
func (d *Detector) Store() *history.Store {
	return d.store
}

// Evaluate records every application's usage and returns the alerts raised
// for the snapshot, in detection order. bundle may be nil.
func (d *Detector) Evaluate(snapshot models.Snapshot, bundle *models.BundleState) []models.DrainAlert {
	apps := snapshot.Normalize()
	if len(apps) == 0 {
		return []models.DrainAlert{}
	}

	for _, app := range apps {
		d.store.Record(app.AppID, app.Total())
	}

	total := apps.Total()
	tiers := CalculateThresholds(total, bundle)
	now := d.opts.Now()

	alerts := make([]models.DrainAlert, 0, len(apps))
	for _, app := range apps {
		if a, ok := d.checkHighUsage(app, total, tiers, now); ok {
			alerts = append(alerts, a)
		}
		if a, ok := d.checkSpike(app, now); ok {
			alerts = append(alerts, a)
		}
		if a, ok := checkMobilePreference(app, now); ok {
			alerts = append(alerts, a)
		}
	}

	if bundle != nil {
		if a, ok := d.checkPacing(*bundle, now); ok {
			alerts = append(alerts, a)
		}
	}

	return alerts
}

// CalculateThresholds returns the tier levels for a snapshot. With a bundle
// that still has days left they are shares of the recommended daily budget,
// otherwise shares of the snapshot's own total.
func CalculateThresholds(total uint64, bundle *models.BundleState) Thresholds {
	if bundle != nil && bundle.DaysRemaining() > 0 {
		daily := float64(bundle.RemainingBytes()) / float64(bundle.DaysRemaining())
		return Thresholds{
			Critical: daily * budgetCriticalShare,
			High:     daily * budgetHighShare,
			Medium:   daily * budgetMediumShare,
		}
	}
	t := float64(total)
	return Thresholds{
		Critical: t * trafficCriticalShare,
		High:     t * trafficHighShare,
		Medium:   t * trafficMediumShare,
	}
}

// IsDraining reports whether the mean of the application's last three
// samples exceeds the fixed drain threshold.
func (d *Detector) IsDraining(appID string) bool {
	h := d.store.HistoryOf(appID)
	if len(h) < drainWindow {
		return false
	}
	return mean(h[len(h)-drainWindow:]) > drainThresholdBytes
}

// DrainRate returns the mean of the application's retained samples in MiB per interval.
func (d *Detector) DrainRate(appID string) float64 {
	h := d.store.HistoryOf(appID)
	if len(h) == 0 {
		return 0
	}
	return mean(h) / models.MiB
}

func (d *Detector) checkHighUsage(
	app models.AppUsage,
	total uint64,
	tiers Thresholds,
	now time.Time,
) (models.DrainAlert, bool) {
	used := app.Total()
	bytes := float64(used)
	pct := 0.0
	if total > 0 {
		pct = bytes / float64(total) * 100
	}

	var (
		severity models.Severity
		label    string
		advice   string
	)
	switch {
	case bytes > tiers.Critical:
		severity, label, advice = models.SeverityCritical, "Critical", "Restrict background data or switch to Wi-Fi"
	case bytes > tiers.High:
		severity, label, advice = models.SeverityHigh, "High usage", "Monitor closely, prefer Wi-Fi when possible"
	case bytes > tiers.Medium:
		severity, label, advice = models.SeverityMedium, "Notable", "Keep an eye on this app's consumption"
	default:
		return models.DrainAlert{}, false
	}

	return newAlert(app, now, models.DrainAlert{
		Kind:           models.AlertUsage,
		Severity:       severity,
		Message:        fmt.Sprintf("%s: %s (%d%%)", label, humanize.IBytes(used), int(pct)),
		DataUsed:       used,
		Percentage:     pct,
		Recommendation: advice,
	}), true
}

func (d *Detector) checkSpike(app models.AppUsage, now time.Time) (models.DrainAlert, bool) {
	h := d.store.HistoryOf(app.AppID)
	if len(h) < 2 {
		return models.DrainAlert{}, false
	}

	latest, previous := h[len(h)-1], h[len(h)-2]
	if previous == 0 || latest <= previous {
		return models.DrainAlert{}, false
	}

	increase := latest - previous
	increasePct := float64(increase) / float64(previous) * 100
	if increasePct <= spikeMinIncreasePct || increase <= spikeMinIncreaseBytes {
		return models.DrainAlert{}, false
	}

	return newAlert(app, now, models.DrainAlert{
		Kind:           models.AlertSpike,
		Severity:       models.SeverityHigh,
		Message:        fmt.Sprintf("Usage spike: %d%% increase", int(increasePct)),
		DataUsed:       latest,
		Percentage:     increasePct,
		Recommendation: "Check if app is downloading updates or syncing",
	}), true
}

func checkMobilePreference(app models.AppUsage, now time.Time) (models.DrainAlert, bool) {
	if !app.HasInterfaceSplit {
		return models.DrainAlert{}, false
	}
	total := app.Total()
	if total <= mobileMinTotalBytes {
		return models.DrainAlert{}, false
	}

	mobile := app.Mobile()
	share := float64(mobile) / float64(total)
	if share <= mobileMinShare {
		return models.DrainAlert{}, false
	}

	return newAlert(app, now, models.DrainAlert{
		Kind:           models.AlertMobilePreference,
		Severity:       models.SeverityMedium,
		Message:        fmt.Sprintf("Prefers mobile: %s (%d%%)", humanize.IBytes(mobile), int(share*100)),
		DataUsed:       mobile,
		Percentage:     share * 100,
		Recommendation: "Enable Wi-Fi preference in app settings",
	}), true
}

func (d *Detector) checkPacing(bundle models.BundleState, now time.Time) (models.DrainAlert, bool) {
	daysRemaining := bundle.DaysRemaining()
	capacity := models.ClampBytes(bundle.TotalCapacityBytes)
	if daysRemaining <= 0 || capacity == 0 {
		return models.DrainAlert{}, false
	}

	cycle := bundle.TotalDays
	elapsed := bundle.DaysElapsed
	if d.opts.PacingCycleDays > 0 {
		cycle = d.opts.PacingCycleDays
		elapsed = cycle - daysRemaining
	}
	if cycle <= 0 {
		cycle = models.DefaultCycleDays
	}
	if elapsed < 0 {
		elapsed = 0
	}

	used := models.ClampBytes(bundle.UsedBytes)
	usagePct := float64(used) / float64(capacity) * 100
	expectedPct := float64(elapsed) / float64(cycle) * 100
	deviation := usagePct - expectedPct

	var (
		severity models.Severity
		message  string
		advice   string
	)
	switch {
	case deviation > pacingCriticalDeviation:
		severity = models.SeverityCritical
		message = fmt.Sprintf("Rapid depletion: %d%% used, %d days left", int(usagePct), daysRemaining)
		advice = "Reduce usage significantly or buy additional bundle"
	case deviation > pacingHighDeviation:
		severity = models.SeverityHigh
		message = fmt.Sprintf("Above average: %d%% used, %d days left", int(usagePct), daysRemaining)
		advice = "Monitor usage and prioritize Wi-Fi"
	default:
		return models.DrainAlert{}, false
	}

	return models.DrainAlert{
		ID:             uuid.NewString(),
		AppID:          models.BundleAlertAppID,
		AppName:        "Bundle",
		Kind:           models.AlertBundlePacing,
		Severity:       severity,
		Message:        message,
		DataUsed:       used,
		Percentage:     usagePct,
		Recommendation: advice,
		Timestamp:      now,
	}, true
}

func newAlert(app models.AppUsage, now time.Time, a models.DrainAlert) models.DrainAlert {
	a.ID = uuid.NewString()
	a.AppID = app.AppID
	a.AppName = app.DisplayName()
	a.Timestamp = now
	return a
}

func mean(values []uint64) float64 {
	if len(values) == 0 {
		return 0
	}
	var sum float64
	for _, v := range values {
		sum += float64(v)
	}
	return sum / float64(len(values))
}
