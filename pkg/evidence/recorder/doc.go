// Package recorder turns runner decisions into evidence records.
//
// Recorder implements runner.Journal. Decisions are converted and queued
// on the calling goroutine and written to storage by a single background
// worker, so a slow evidence store never stalls a cascade. Close drains
// the queue before returning.
package recorder
