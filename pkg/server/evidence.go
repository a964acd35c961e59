package server

import (
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"strconv"
	"time"

	"jobboard-hq/custodian/pkg/evidence"
	"jobboard-hq/custodian/pkg/evidence/query"
)

// EvidenceResponse is the body of GET /evidence.
type EvidenceResponse struct {
	Records []*evidence.Record `json:"records"`
	Total   int64              `json:"total"`
	Limit   int                `json:"limit"`
	Offset  int                `json:"offset"`
}

// handleEvidence lists evidence records. Filters: sweep, run_id, outcome,
// trigger, subject_hash, dry_run, since and until (RFC 3339), limit,
// offset and order (asc or desc).
func (s *Server) handleEvidence(w http.ResponseWriter, r *http.Request) {
	q, err := parseEvidenceQuery(r.URL.Query())
	if err == nil {
		err = query.Validate(q)
	}
	if err != nil {
		writeJSON(w, http.StatusBadRequest, ErrorResponse{Error: err.Error()})
		return
	}
	query.ApplyDefaults(q)

	records, err := s.deps.Evidence.Query(r.Context(), q)
	if err != nil {
		s.logger.ErrorContext(r.Context(), "evidence query failed", "error", err)
		writeJSON(w, http.StatusInternalServerError, ErrorResponse{Error: "evidence query failed"})
		return
	}
	total, err := s.deps.Evidence.Count(r.Context(), q)
	if err != nil {
		s.logger.ErrorContext(r.Context(), "evidence count failed", "error", err)
		writeJSON(w, http.StatusInternalServerError, ErrorResponse{Error: "evidence query failed"})
		return
	}

	writeJSON(w, http.StatusOK, EvidenceResponse{
		Records: records,
		Total:   total,
		Limit:   q.Limit,
		Offset:  q.Offset,
	})
}

func parseEvidenceQuery(v url.Values) (*evidence.Query, error) {
	q := &evidence.Query{
		Sweep:       v.Get("sweep"),
		RunID:       v.Get("run_id"),
		Outcome:     v.Get("outcome"),
		Trigger:     v.Get("trigger"),
		SubjectHash: v.Get("subject_hash"),
		SortOrder:   v.Get("order"),
	}

	var errs []error
	parseTime := func(name string) *time.Time {
		raw := v.Get(name)
		if raw == "" {
			return nil
		}
		t, err := time.Parse(time.RFC3339, raw)
		if err != nil {
			errs = append(errs, fmt.Errorf("%s must be an RFC 3339 timestamp", name))
			return nil
		}
		return &t
	}
	parseInt := func(name string) int {
		raw := v.Get(name)
		if raw == "" {
			return 0
		}
		n, err := strconv.Atoi(raw)
		if err != nil {
			errs = append(errs, fmt.Errorf("%s must be an integer", name))
		}
		return n
	}

	q.StartTime = parseTime("since")
	q.EndTime = parseTime("until")
	q.Limit = parseInt("limit")
	q.Offset = parseInt("offset")
	if raw := v.Get("dry_run"); raw != "" {
		dryRun, err := strconv.ParseBool(raw)
		if err != nil {
			errs = append(errs, errors.New("dry_run must be a boolean"))
		} else {
			q.DryRun = &dryRun
		}
	}
	return q, errors.Join(errs...)
}
