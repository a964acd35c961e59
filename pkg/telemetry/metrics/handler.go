package metrics

import (
	"log/slog"
	"net/http"

	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Handler returns an HTTP handler serving the collector's registry in the
// Prometheus exposition format.
func (c *Collector) Handler() http.Handler {
	return c.HandlerWithOptions(promhttp.HandlerOpts{
		EnableOpenMetrics: true,
		ErrorHandling:     promhttp.ContinueOnError,
		ErrorLog:          slogErrorLogger{slog.Default().With("component", "telemetry.metrics")},
	})
}

// HandlerWithOptions returns an HTTP handler with custom options.
func (c *Collector) HandlerWithOptions(opts promhttp.HandlerOpts) http.Handler {
	return promhttp.HandlerFor(c.registry, opts)
}

// slogErrorLogger adapts slog to promhttp.Logger.
type slogErrorLogger struct {
	logger *slog.Logger
}

func (l slogErrorLogger) Println(v ...interface{}) {
	l.logger.Error("metrics scrape error", "detail", v)
}
