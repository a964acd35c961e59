package metrics

import (
	"database/sql"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"

	"jobboard-hq/custodian/pkg/config"
	"jobboard-hq/custodian/pkg/retention"
)

// Collector owns the custodian metrics registry. It satisfies the recorder
// interfaces of the sweep runner and the notification sender, so the same
// value is handed to both.
//
// With metrics disabled every Record method is a no-op and the registry
// stays empty.
type Collector struct {
	config   *config.MetricsConfig
	registry *prometheus.Registry

	sweepMetrics        *SweepMetrics
	notificationMetrics *NotificationMetrics
}

// NewCollector creates a collector. If registry is nil a fresh registry is
// created; the global default registry is never used so tests can build
// collectors side by side.
//
// Example:
//
//	collector := metrics.NewCollector(&cfg.Telemetry.Metrics, nil)
//	runner.New(runner.Options{Recorder: collector})
func NewCollector(cfg *config.MetricsConfig, registry *prometheus.Registry) *Collector {
	if registry == nil {
		registry = prometheus.NewRegistry()
	}

	if cfg.Namespace == "" {
		cfg.Namespace = config.DefaultMetricsNamespace
	}
	if len(cfg.DurationBuckets) == 0 {
		cfg.DurationBuckets = append([]float64(nil), config.DefaultDurationBuckets...)
	}

	c := &Collector{
		config:   cfg,
		registry: registry,
	}

	c.sweepMetrics = NewSweepMetrics(cfg, registry)
	c.notificationMetrics = NewNotificationMetrics(cfg, registry)

	if cfg.Enabled {
		registry.MustRegister(
			collectors.NewGoCollector(),
			collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
		)
	}

	return c
}

// RecordRun records a finished sweep run.
func (c *Collector) RecordRun(sweep, stopReason string, duration time.Duration, finishedAt time.Time) {
	if !c.config.Enabled {
		return
	}
	c.sweepMetrics.RecordRun(sweep, stopReason, duration, finishedAt)
}

// RecordCandidate counts a candidate outcome.
func (c *Collector) RecordCandidate(sweep string, outcome retention.Outcome) {
	if !c.config.Enabled {
		return
	}
	c.sweepMetrics.RecordCandidate(sweep, string(outcome))
}

// RecordNotification counts a notification delivery result.
func (c *Collector) RecordNotification(notificationType, result string) {
	if !c.config.Enabled {
		return
	}
	c.notificationMetrics.Record(notificationType, result)
}

// RegisterNotificationQueue exports custodian_notifications_queue_depth,
// read from pending at scrape time.
func (c *Collector) RegisterNotificationQueue(pending func() int) error {
	if !c.config.Enabled || pending == nil {
		return nil
	}
	return c.registry.Register(prometheus.NewGaugeFunc(
		prometheus.GaugeOpts{
			Namespace: c.config.Namespace,
			Name:      "notifications_queue_depth",
			Help:      "Number of notifications waiting to be delivered",
		},
		func() float64 { return float64(pending()) },
	))
}

// RegisterDB exports connection pool statistics for db under the given
// name. It is a no-op when metrics are disabled or db is nil.
func (c *Collector) RegisterDB(name string, db *sql.DB) error {
	if !c.config.Enabled || db == nil {
		return nil
	}
	return c.registry.Register(collectors.NewDBStatsCollector(db, name))
}

// Registry returns the Prometheus registry used by this collector.
func (c *Collector) Registry() *prometheus.Registry {
	return c.registry
}
