package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"

	"jobboard-hq/custodian/pkg/config"
)

// SweepMetrics tracks retention sweep runs.
//
// Metrics:
//   - custodian_retention_runs_total: finished runs by sweep and stop reason
//   - custodian_retention_candidates_total: candidate outcomes by sweep
//   - custodian_retention_run_duration_seconds: run wall time
//   - custodian_retention_last_run_timestamp_seconds: end of the last run
type SweepMetrics struct {
	runsTotal       *prometheus.CounterVec
	candidatesTotal *prometheus.CounterVec
	runDuration     *prometheus.HistogramVec
	lastRun         *prometheus.GaugeVec
}

// NewSweepMetrics creates and registers sweep metrics with the provided registry.
func NewSweepMetrics(cfg *config.MetricsConfig, registry prometheus.Registerer) *SweepMetrics {
	sm := &SweepMetrics{
		runsTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: cfg.Namespace,
				Subsystem: "retention",
				Name:      "runs_total",
				Help:      "Total number of finished retention sweep runs",
			},
			[]string{"sweep", "stop_reason"},
		),

		candidatesTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: cfg.Namespace,
				Subsystem: "retention",
				Name:      "candidates_total",
				Help:      "Total number of processed retention candidates by outcome",
			},
			[]string{"sweep", "outcome"},
		),

		runDuration: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Namespace: cfg.Namespace,
				Subsystem: "retention",
				Name:      "run_duration_seconds",
				Help:      "Duration of retention sweep runs in seconds",
				Buckets:   cfg.DurationBuckets,
			},
			[]string{"sweep"},
		),

		lastRun: prometheus.NewGaugeVec(
			prometheus.GaugeOpts{
				Namespace: cfg.Namespace,
				Subsystem: "retention",
				Name:      "last_run_timestamp_seconds",
				Help:      "Unix time the last retention sweep run finished",
			},
			[]string{"sweep"},
		),
	}

	registry.MustRegister(
		sm.runsTotal,
		sm.candidatesTotal,
		sm.runDuration,
		sm.lastRun,
	)

	return sm
}

// RecordRun records a finished run.
func (sm *SweepMetrics) RecordRun(sweep, stopReason string, duration time.Duration, finishedAt time.Time) {
	sm.runsTotal.WithLabelValues(sweep, stopReason).Inc()
	sm.runDuration.WithLabelValues(sweep).Observe(duration.Seconds())
	sm.lastRun.WithLabelValues(sweep).Set(float64(finishedAt.Unix()))
}

// RecordCandidate counts one candidate outcome.
func (sm *SweepMetrics) RecordCandidate(sweep, outcome string) {
	sm.candidatesTotal.WithLabelValues(sweep, outcome).Inc()
}
