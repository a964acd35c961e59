package server

import (
	"encoding/json"
	"errors"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"

	"jobboard-hq/custodian/pkg/retention/runner"
	"jobboard-hq/custodian/pkg/retention/sweep"
	"jobboard-hq/custodian/pkg/security/auth"
)

// StatusResponse is the body of GET /status.
type StatusResponse struct {
	SchedulerRunning bool                      `json:"scheduler_running"`
	NextRuns         map[string]time.Time      `json:"next_runs"`
	LastReports      map[string]*runner.Report `json:"last_reports"`
	Version          string                    `json:"version"`
}

// RunResponse is the body of POST /sweeps/{sweep}/run.
type RunResponse struct {
	Reports []*runner.Report `json:"reports"`
}

// ErrorResponse is the body of every error answer.
type ErrorResponse struct {
	Error string `json:"error"`
}

func (s *Server) handleStatus(w http.ResponseWriter, r *http.Request) {
	resp := StatusResponse{
		NextRuns:    map[string]time.Time{},
		LastReports: s.deps.Sweeps.LastReports(),
		Version:     s.deps.Version.Version,
	}
	if s.deps.Schedule != nil {
		resp.SchedulerRunning = s.deps.Schedule.IsRunning()
		resp.NextRuns = s.deps.Schedule.NextRuns()
	}
	writeJSON(w, http.StatusOK, resp)
}

// handleRun runs a sweep synchronously and answers with its reports. The
// sweep is cancelled, between candidates, if the client goes away.
func (s *Server) handleRun(w http.ResponseWriter, r *http.Request) {
	name := chi.URLParam(r, "sweep")

	var opts sweep.RunOptions
	if v := r.URL.Query().Get("dry_run"); v != "" {
		dryRun, err := strconv.ParseBool(v)
		if err != nil {
			writeJSON(w, http.StatusBadRequest, ErrorResponse{Error: "dry_run must be a boolean"})
			return
		}
		opts.DryRun = dryRun
	}

	op, _ := auth.OperatorFrom(r.Context())
	opts.Trigger = "admin:" + op.Name
	s.logger.InfoContext(r.Context(), "manual sweep requested",
		"sweep", name,
		"dry_run", opts.DryRun,
		"operator", op.Name,
	)

	reports, err := s.deps.Sweeps.Run(r.Context(), name, opts)
	switch {
	case errors.Is(err, sweep.ErrUnknownSweep):
		writeJSON(w, http.StatusNotFound, ErrorResponse{Error: err.Error()})
	case errors.Is(err, sweep.ErrRunning):
		writeJSON(w, http.StatusConflict, ErrorResponse{Error: err.Error()})
	case err != nil:
		s.logger.ErrorContext(r.Context(), "manual sweep failed", "sweep", name, "error", err)
		writeJSON(w, http.StatusInternalServerError, ErrorResponse{Error: err.Error()})
	default:
		writeJSON(w, http.StatusOK, RunResponse{Reports: reports})
	}
}

func writeJSON(w http.ResponseWriter, code int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	_ = json.NewEncoder(w).Encode(v)
}
