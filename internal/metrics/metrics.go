// Package metrics exposes engine activity as Prometheus metrics.
package metrics

import (
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/j-veylop/data-watchdog/internal/models"
)

const namespace = "datawatchdog"

// Collector owns every metric on a private registry.
type Collector struct {
	registry *prometheus.Registry

	cyclesTotal    *prometheus.CounterVec
	cycleDuration  prometheus.Histogram
	alertsTotal    *prometheus.CounterVec
	intervalBytes  prometheus.Counter
	trackedApps    prometheus.Gauge
	bundleUsed     prometheus.Gauge
	bundleCapacity prometheus.Gauge

	confidence       prometheus.Gauge
	daysToExhaustion prometheus.Gauge
	projectedOverage prometheus.Gauge
	dailyBudget      prometheus.Gauge
	willExceed       prometheus.Gauge

	intervalAverage prometheus.Gauge
	exhaustsAt      prometheus.Gauge

	pruneRows prometheus.Counter
}

// NewCollector creates and registers all metrics. A nil registry gets a fresh one
// with the Go and process collectors.
func NewCollector(registry *prometheus.Registry) *Collector {
	if registry == nil {
		registry = prometheus.NewRegistry()
		registry.MustRegister(
			collectors.NewGoCollector(),
			collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
		)
	}

	c := &Collector{
		registry: registry,
		cyclesTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "cycles_total",
			Help:      "Evaluation cycles by outcome",
		}, []string{"status"}),
		cycleDuration: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "cycle_duration_seconds",
			Help:      "Duration of evaluation cycles",
			Buckets:   prometheus.ExponentialBuckets(0.001, 4, 8),
		}),
		alertsTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "alerts_total",
			Help:      "Drain alerts raised by kind and severity",
		}, []string{"kind", "severity"}),
		intervalBytes: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "usage_bytes_total",
			Help:      "Bytes observed across all applications",
		}),
		trackedApps: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "tracked_apps",
			Help:      "Applications with retained usage history",
		}),
		bundleUsed: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Subsystem: "bundle",
			Name:      "used_bytes",
			Help:      "Bytes consumed in the current bundle cycle",
		}),
		bundleCapacity: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Subsystem: "bundle",
			Name:      "capacity_bytes",
			Help:      "Total bundle capacity",
		}),
		confidence: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Subsystem: "prediction",
			Name:      "confidence",
			Help:      "Confidence of the latest forecast",
		}),
		daysToExhaustion: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Subsystem: "prediction",
			Name:      "days_to_exhaustion",
			Help:      "Days until the bundle runs out at the forecast rate",
		}),
		projectedOverage: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Subsystem: "prediction",
			Name:      "projected_overage_bytes",
			Help:      "Forecast usage beyond the bundle capacity",
		}),
		dailyBudget: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Subsystem: "prediction",
			Name:      "daily_budget_bytes",
			Help:      "Recommended daily budget for the rest of the cycle",
		}),
		willExceed: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Subsystem: "prediction",
			Name:      "will_exceed",
			Help:      "1 when the forecast exceeds the bundle",
		}),
		intervalAverage: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Subsystem: "interval",
			Name:      "average_mebibytes",
			Help:      "Mean usage per monitoring interval over recent ticks",
		}),
		exhaustsAt: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Subsystem: "interval",
			Name:      "exhaustion_timestamp_seconds",
			Help:      "When the bundle runs out at the recent per-interval rate, 0 when unknown",
		}),
		pruneRows: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "pruned_rows_total",
			Help:      "Rows removed by retention pruning",
		}),
	}

	registry.MustRegister(
		c.cyclesTotal,
		c.cycleDuration,
		c.alertsTotal,
		c.intervalBytes,
		c.trackedApps,
		c.bundleUsed,
		c.bundleCapacity,
		c.confidence,
		c.daysToExhaustion,
		c.projectedOverage,
		c.dailyBudget,
		c.willExceed,
		c.intervalAverage,
		c.exhaustsAt,
		c.pruneRows,
	)

	return c
}

// Registry returns the underlying registry.
func (c *Collector) Registry() *prometheus.Registry {
	return c.registry
}

// RecordCycle records a completed cycle.
func (c *Collector) RecordCycle(seconds float64, bytes uint64, trackedApps int, alerts []models.DrainAlert) {
	c.cyclesTotal.WithLabelValues("ok").Inc()
	c.cycleDuration.Observe(seconds)
	c.intervalBytes.Add(float64(bytes))
	c.trackedApps.Set(float64(trackedApps))
	for _, a := range alerts {
		c.alertsTotal.WithLabelValues(a.Kind.String(), a.Severity.String()).Inc()
	}
}

// RecordCycleError counts a cycle that failed before completing.
func (c *Collector) RecordCycleError() {
	c.cyclesTotal.WithLabelValues("error").Inc()
}

// RecordBundle sets the bundle gauges.
func (c *Collector) RecordBundle(b models.BundleState) {
	c.bundleUsed.Set(float64(models.ClampBytes(b.UsedBytes)))
	c.bundleCapacity.Set(float64(models.ClampBytes(b.TotalCapacityBytes)))
}

// RecordPrediction sets the forecast gauges.
func (c *Collector) RecordPrediction(p models.UsagePrediction) {
	c.confidence.Set(p.Confidence)
	c.daysToExhaustion.Set(float64(p.DaysToExhaustion))
	c.projectedOverage.Set(float64(p.ProjectedOverage))
	c.dailyBudget.Set(p.RecommendedDailyBudget)
	if p.WillExceedLimit {
		c.willExceed.Set(1)
	} else {
		c.willExceed.Set(0)
	}
}

// RecordInterval sets the short-term rate gauges. A zero exhaustsAt clears
// the estimate.
func (c *Collector) RecordInterval(averageMiB float64, exhaustsAt time.Time) {
	c.intervalAverage.Set(averageMiB)
	if exhaustsAt.IsZero() {
		c.exhaustsAt.Set(0)
		return
	}
	c.exhaustsAt.Set(float64(exhaustsAt.Unix()))
}

// RecordPrune counts rows removed by a retention run.
func (c *Collector) RecordPrune(rows int64) {
	c.pruneRows.Add(float64(rows))
}

// Handler returns an HTTP handler for the Prometheus metrics endpoint.
func (c *Collector) Handler() http.Handler {
	return promhttp.HandlerFor(c.registry, promhttp.HandlerOpts{
		EnableOpenMetrics: true,
		ErrorHandling:     promhttp.ContinueOnError,
	})
}
