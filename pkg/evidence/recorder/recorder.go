package recorder

import (
	"context"
	"log/slog"
	"sync"
	"sync/atomic"
	"time"

	"github.com/google/uuid"

	"jobboard-hq/custodian/pkg/evidence"
	"jobboard-hq/custodian/pkg/retention"
	"jobboard-hq/custodian/pkg/retention/runner"
)

// Config contains configuration for the evidence recorder.
type Config struct {
	// AsyncBuffer is the size of the async write channel buffer.
	// Default: 1000
	AsyncBuffer int

	// WriteTimeout bounds both enqueueing and each storage write.
	// Default: 5 seconds
	WriteTimeout time.Duration

	// HashKey keys the subject hash. Empty means unkeyed SHA-256.
	HashKey string

	// IncludeUnchanged also records skipped, already_absent and
	// already_warned decisions.
	IncludeUnchanged bool
}

// DefaultConfig returns the default recorder configuration.
func DefaultConfig() *Config {
	return &Config{
		AsyncBuffer:  1000,
		WriteTimeout: 5 * time.Second,
	}
}

// Recorder writes evidence records for runner decisions.
type Recorder struct {
	storage    evidence.Storage
	config     *Config
	hasher     *SubjectHasher
	now        func() time.Time
	recordChan chan *evidence.Record
	wg         sync.WaitGroup
	done       chan struct{}
	closeOnce  sync.Once
	dropped    atomic.Int64
	written    atomic.Int64
	logger     *slog.Logger
}

var _ runner.Journal = (*Recorder)(nil)

// NewRecorder creates a recorder writing to storage and starts its worker.
func NewRecorder(storage evidence.Storage, config *Config) *Recorder {
	if config == nil {
		config = DefaultConfig()
	}
	if config.AsyncBuffer <= 0 {
		config.AsyncBuffer = DefaultConfig().AsyncBuffer
	}
	if config.WriteTimeout <= 0 {
		config.WriteTimeout = DefaultConfig().WriteTimeout
	}

	r := &Recorder{
		storage:    storage,
		config:     config,
		hasher:     NewSubjectHasher(config.HashKey),
		now:        time.Now,
		recordChan: make(chan *evidence.Record, config.AsyncBuffer),
		done:       make(chan struct{}),
		logger:     slog.Default().With("component", "evidence.recorder"),
	}

	r.wg.Add(1)
	go r.worker()

	r.logger.Info("evidence recorder initialized",
		"async_buffer", config.AsyncBuffer,
		"write_timeout", config.WriteTimeout,
		"keyed_hash", r.hasher.Keyed(),
		"include_unchanged", config.IncludeUnchanged,
	)
	if !r.hasher.Keyed() {
		r.logger.Warn("evidence.hash_key is empty, subject hashes are unkeyed")
	}

	return r
}

// RecordDecision queues the evidence for d. It blocks for at most
// WriteTimeout when the queue is full and then drops the record.
func (r *Recorder) RecordDecision(ctx context.Context, run *runner.Report, d runner.Decision) {
	if !r.config.IncludeUnchanged && unchanged(d.Outcome) {
		return
	}

	record := r.newRecord(run, d)

	select {
	case <-r.done:
		r.dropped.Add(1)
		r.logger.Warn("recorder shut down, dropping record", "record_id", record.ID, "run_id", record.RunID)
		return
	default:
	}

	timer := time.NewTimer(r.config.WriteTimeout)
	defer timer.Stop()

	select {
	case r.recordChan <- record:
	case <-timer.C:
		r.dropped.Add(1)
		r.logger.Error("evidence record channel full, dropping record",
			"error", evidence.NewRecorderError(record.ID, context.DeadlineExceeded),
			"run_id", record.RunID,
			"channel_capacity", r.config.AsyncBuffer,
		)
	case <-ctx.Done():
		r.dropped.Add(1)
		r.logger.Warn("run cancelled, dropping record",
			"error", evidence.NewRecorderError(record.ID, ctx.Err()),
			"run_id", record.RunID,
		)
	case <-r.done:
		r.dropped.Add(1)
		r.logger.Warn("recorder shut down, dropping record", "record_id", record.ID, "run_id", record.RunID)
	}
}

// Written returns the number of records stored so far.
func (r *Recorder) Written() int64 { return r.written.Load() }

// Dropped returns the number of records that never reached storage.
func (r *Recorder) Dropped() int64 { return r.dropped.Load() }

// Close stops accepting records, drains the queue and waits for the
// worker. It is safe to call more than once.
func (r *Recorder) Close() error {
	r.closeOnce.Do(func() {
		r.logger.Info("shutting down evidence recorder")
		close(r.done)
		r.wg.Wait()
		r.logger.Info("evidence recorder shut down complete",
			"written", r.written.Load(),
			"dropped", r.dropped.Load(),
		)
	})
	return nil
}

func (r *Recorder) worker() {
	defer r.wg.Done()

	for {
		select {
		case record := <-r.recordChan:
			r.writeRecord(record)

		case <-r.done:
			r.logger.Info("draining evidence channel before shutdown", "pending_count", len(r.recordChan))
			for {
				select {
				case record := <-r.recordChan:
					r.writeRecord(record)
				default:
					return
				}
			}
		}
	}
}

func (r *Recorder) writeRecord(record *evidence.Record) {
	ctx, cancel := context.WithTimeout(context.Background(), r.config.WriteTimeout)
	defer cancel()

	record.RecordedAt = r.now().UTC()
	start := time.Now()
	if err := r.storage.Store(ctx, record); err != nil {
		r.dropped.Add(1)
		r.logger.Error("failed to store evidence record",
			"record_id", record.ID,
			"run_id", record.RunID,
			"error", err,
		)
		return
	}
	r.written.Add(1)

	duration := time.Since(start)
	r.logger.Debug("evidence recorded",
		"record_id", record.ID,
		"run_id", record.RunID,
		"outcome", record.Outcome,
		"duration_ms", duration.Milliseconds(),
	)
	if duration > r.config.WriteTimeout/2 {
		r.logger.Warn("slow evidence write",
			"record_id", record.ID,
			"duration_ms", duration.Milliseconds(),
			"threshold_ms", (r.config.WriteTimeout / 2).Milliseconds(),
		)
	}
}

// newRecord copies everything it needs out of run; the runner keeps
// mutating the report after this returns.
func (r *Recorder) newRecord(run *runner.Report, d runner.Decision) *evidence.Record {
	now := r.now().UTC()
	return &evidence.Record{
		ID:          uuid.New().String(),
		RunID:       run.RunID,
		Sweep:       run.Sweep,
		DryRun:      run.DryRun,
		Trigger:     run.Trigger,
		SubjectHash: r.hasher.Hash(d.SubjectID),
		Outcome:     string(d.Outcome),
		Plan:        d.Plan,
		Reason:      d.Reason,
		Error:       d.Error,
		DecidedAt:   now,
		RecordedAt:  now,
	}
}

func unchanged(o retention.Outcome) bool {
	switch o {
	case retention.OutcomeSkipped, retention.OutcomeAlreadyAbsent, retention.OutcomeAlreadyWarned:
		return true
	}
	return false
}
