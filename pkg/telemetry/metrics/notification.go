package metrics

import (
	"github.com/prometheus/client_golang/prometheus"

	"jobboard-hq/custodian/pkg/config"
)

// NotificationMetrics tracks deletion warning delivery.
//
// Metrics:
//   - custodian_notifications_total: deliveries by notification type and result
type NotificationMetrics struct {
	total *prometheus.CounterVec
}

// NewNotificationMetrics creates and registers notification metrics.
func NewNotificationMetrics(cfg *config.MetricsConfig, registry prometheus.Registerer) *NotificationMetrics {
	nm := &NotificationMetrics{
		total: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: cfg.Namespace,
				Name:      "notifications_total",
				Help:      "Total number of deletion warning notifications by result",
			},
			[]string{"type", "result"},
		),
	}

	registry.MustRegister(nm.total)
	return nm
}

// Record counts one delivery result.
func (nm *NotificationMetrics) Record(notificationType, result string) {
	nm.total.WithLabelValues(notificationType, result).Inc()
}
