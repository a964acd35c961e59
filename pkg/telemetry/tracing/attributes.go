package tracing

import (
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"
)

// Attribute keys use the "custodian.*" namespace.
const (
	AttrRunID      = "custodian.run.id"
	AttrSweep      = "custodian.sweep"
	AttrDryRun     = "custodian.dry_run"
	AttrStopReason = "custodian.run.stop_reason"
	AttrCandidates = "custodian.run.candidates"
	AttrFailures   = "custodian.run.failures"

	AttrCandidateID = "custodian.candidate.id"
	AttrOutcome     = "custodian.candidate.outcome"

	AttrStep     = "custodian.cascade.step"
	AttrAffected = "custodian.cascade.affected"

	AttrNotificationType = "custodian.notification.type"

	AttrErrorMessage = "error.message"
)

// SetRunAttributes tags a sweep run span.
func SetRunAttributes(span trace.Span, runID, sweep string, dryRun bool) {
	span.SetAttributes(
		attribute.String(AttrRunID, runID),
		attribute.String(AttrSweep, sweep),
		attribute.Bool(AttrDryRun, dryRun),
	)
}

// SetRunResult records how a sweep run ended.
func SetRunResult(span trace.Span, stopReason string, candidates, failures int) {
	span.SetAttributes(
		attribute.String(AttrStopReason, stopReason),
		attribute.Int(AttrCandidates, candidates),
		attribute.Int(AttrFailures, failures),
	)
}

// SetCandidateAttributes tags a candidate span with its outcome.
func SetCandidateAttributes(span trace.Span, id, outcome string) {
	span.SetAttributes(
		attribute.String(AttrCandidateID, id),
		attribute.String(AttrOutcome, outcome),
	)
}

// AddStepEvent records one cascade step on the candidate span.
func AddStepEvent(span trace.Span, step string, affected int64) {
	span.AddEvent("cascade.step", trace.WithAttributes(
		attribute.String(AttrStep, step),
		attribute.Int64(AttrAffected, affected),
	))
}
