package server

import (
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"

	"jobboard-hq/custodian/pkg/telemetry/health"
	"jobboard-hq/custodian/pkg/telemetry/logging"
	"jobboard-hq/custodian/pkg/telemetry/tracing"
)

// Handler returns the admin router.
func (s *Server) Handler() http.Handler {
	r := chi.NewRouter()

	r.Use(chimw.RequestID)
	r.Use(s.requestLogger)
	r.Use(chimw.Recoverer)
	r.Use(tracing.HTTPMiddleware)

	if s.telemetry.Health.Enabled && s.deps.Health != nil {
		r.Get(s.telemetry.Health.LivenessPath, s.deps.Health.LivenessHandler())
		r.Head(s.telemetry.Health.LivenessPath, s.deps.Health.LivenessHandler())
		r.Get(s.telemetry.Health.ReadinessPath, s.deps.Health.ReadinessHandler())
		r.Get(s.telemetry.Health.VersionPath, health.VersionHandler(s.deps.Version))
	}

	if s.telemetry.Metrics.Enabled && s.deps.Metrics != nil {
		r.Handle(s.telemetry.Metrics.Path, s.deps.Metrics)
	}

	r.Group(func(r chi.Router) {
		r.Use(s.auth.Handle)
		r.Get("/status", s.handleStatus)
		r.Post("/sweeps/{sweep}/run", s.handleRun)
		if s.deps.Evidence != nil {
			r.Get("/evidence", s.handleEvidence)
		}
	})

	return r
}

// requestLogger logs each request with its request id. Probe and scrape
// requests are logged at debug level.
func (s *Server) requestLogger(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		requestID := chimw.GetReqID(r.Context())
		ctx := logging.WithRequestID(r.Context(), requestID)

		ww := chimw.NewWrapResponseWriter(w, r.ProtoMajor)
		next.ServeHTTP(ww, r.WithContext(ctx))

		level := slog.LevelInfo
		if r.Method == http.MethodGet || r.Method == http.MethodHead {
			level = slog.LevelDebug
		}
		if ww.Status() >= http.StatusInternalServerError {
			level = slog.LevelError
		}

		s.logger.Log(ctx, level, "request completed",
			"method", r.Method,
			"path", r.URL.Path,
			"status", ww.Status(),
			"bytes", ww.BytesWritten(),
			"latency_ms", time.Since(start).Milliseconds(),
			"remote_addr", r.RemoteAddr,
		)
	})
}
