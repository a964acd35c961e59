// Package pruning bounds the evidence trail.
//
// Pruner deletes records older than evidence.retention_days and, when
// evidence.max_records is set, the oldest records beyond that count.
// Scheduler runs the pruner on evidence.prune_schedule.
package pruning
