package logging

import (
	"context"
	"log/slog"
)

// Context keys for common log fields.
type contextKey string

const (
	// RunIDKey is the context key for sweep run identifiers.
	RunIDKey contextKey = "run_id"

	// SweepKey is the context key for the sweep name.
	SweepKey contextKey = "sweep"

	// CandidateIDKey is the context key for the record being processed.
	CandidateIDKey contextKey = "candidate_id"

	// RequestIDKey is the context key for admin request IDs.
	RequestIDKey contextKey = "request_id"

	// TraceIDKey is the context key for trace IDs.
	TraceIDKey contextKey = "trace_id"
)

// contextKeys is the order in which fields are added to records.
var contextKeys = []contextKey{RunIDKey, SweepKey, CandidateIDKey, RequestIDKey, TraceIDKey}

// WithRunID adds a run ID to the context.
func WithRunID(ctx context.Context, runID string) context.Context {
	return context.WithValue(ctx, RunIDKey, runID)
}

// GetRunID retrieves the run ID from the context.
func GetRunID(ctx context.Context) string {
	return get(ctx, RunIDKey)
}

// WithSweep adds a sweep name to the context.
func WithSweep(ctx context.Context, sweep string) context.Context {
	return context.WithValue(ctx, SweepKey, sweep)
}

// GetSweep retrieves the sweep name from the context.
func GetSweep(ctx context.Context) string {
	return get(ctx, SweepKey)
}

// WithCandidate adds the identifier of the record being processed.
func WithCandidate(ctx context.Context, id string) context.Context {
	return context.WithValue(ctx, CandidateIDKey, id)
}

// GetCandidate retrieves the candidate identifier from the context.
func GetCandidate(ctx context.Context) string {
	return get(ctx, CandidateIDKey)
}

// WithRequestID adds a request ID to the context.
func WithRequestID(ctx context.Context, requestID string) context.Context {
	return context.WithValue(ctx, RequestIDKey, requestID)
}

// GetRequestID retrieves the request ID from the context.
func GetRequestID(ctx context.Context) string {
	return get(ctx, RequestIDKey)
}

// WithTraceID adds a trace ID to the context.
func WithTraceID(ctx context.Context, traceID string) context.Context {
	return context.WithValue(ctx, TraceIDKey, traceID)
}

// GetTraceID retrieves the trace ID from the context.
func GetTraceID(ctx context.Context) string {
	return get(ctx, TraceIDKey)
}

func get(ctx context.Context, key contextKey) string {
	if ctx == nil {
		return ""
	}
	if v, ok := ctx.Value(key).(string); ok {
		return v
	}
	return ""
}

// contextAttrs extracts the fields stored on ctx.
func contextAttrs(ctx context.Context) []slog.Attr {
	var attrs []slog.Attr
	for _, key := range contextKeys {
		if v := get(ctx, key); v != "" {
			attrs = append(attrs, slog.String(string(key), v))
		}
	}
	return attrs
}
