package metrics

import (
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"trade-surveillance-etl/internal/model"
)

// Collector exposes validation-run counters on a private registry.
type Collector struct {
	registry         *prometheus.Registry
	runsTotal        *prometheus.CounterVec
	recordsValidated prometheus.Counter
	breachesTotal    *prometheus.CounterVec
	runDuration      prometheus.Histogram
	lastPassRate     prometheus.Gauge
}

func NewCollector() *Collector {
	registry := prometheus.NewRegistry()

	return &Collector{
		registry: registry,
		runsTotal: promauto.With(registry).NewCounterVec(prometheus.CounterOpts{
			Name: "validation_runs_total",
			Help: "Total validation runs by terminal status",
		}, []string{"status"}),
		recordsValidated: promauto.With(registry).NewCounter(prometheus.CounterOpts{
			Name: "validation_records_total",
			Help: "Total records evaluated across runs",
		}),
		breachesTotal: promauto.With(registry).NewCounterVec(prometheus.CounterOpts{
			Name: "validation_breaches_total",
			Help: "Total breaches by rule and severity",
		}, []string{"rule_id", "severity"}),
		runDuration: promauto.With(registry).NewHistogram(prometheus.HistogramOpts{
			Name:    "validation_run_duration_seconds",
			Help:    "End-to-end run duration",
			Buckets: prometheus.DefBuckets,
		}),
		lastPassRate: promauto.With(registry).NewGauge(prometheus.GaugeOpts{
			Name: "validation_last_pass_rate_pct",
			Help: "Pass rate of the most recent run",
		}),
	}
}

// RecordRun reports a completed run's outcome.
func (c *Collector) RecordRun(duration time.Duration, summary model.RunSummary, success bool) {
	status := "completed"
	if !success {
		status = "failed"
	}
	c.runsTotal.WithLabelValues(status).Inc()
	c.recordsValidated.Add(float64(summary.InputRows))
	c.runDuration.Observe(duration.Seconds())
	c.lastPassRate.Set(summary.PassRatePct)
}

// RecordBreaches reports breach counts by rule and severity.
func (c *Collector) RecordBreaches(records []model.ValidatedRecord) {
	for _, vr := range records {
		for _, b := range vr.Breaches {
			c.breachesTotal.WithLabelValues(b.RuleID, b.Severity.String()).Inc()
		}
	}
}

// Handler serves the collector's registry.
func (c *Collector) Handler() http.Handler {
	return promhttp.HandlerFor(c.registry, promhttp.HandlerOpts{})
}
