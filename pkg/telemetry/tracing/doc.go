// Package tracing sets up OpenTelemetry tracing for custodian.
//
// New installs an OTLP gRPC exporter and a parent-based sampler as the
// global tracer provider. Every sweep run is one trace:
//
//	retention.sweep.<name>          run id, sweep, dry run, stop reason
//	  retention.candidate           candidate id, outcome, cascade.step events
//	    db spans                    from otelsql
//
// With tracing disabled the runner still creates spans against the default
// noop provider at negligible cost.
package tracing
