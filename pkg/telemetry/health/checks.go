package health

import (
	"context"
	"errors"
	"fmt"
	"time"
)

// Pinger is implemented by the retention store.
type Pinger interface {
	Ping(ctx context.Context) error
}

// StorageCheck pings the retention store.
func StorageCheck(p Pinger) CheckFunc {
	return func(ctx context.Context) error {
		if err := p.Ping(ctx); err != nil {
			return fmt.Errorf("storage unreachable: %w", err)
		}
		return nil
	}
}

// SchedulerCheck fails when the scheduler is not running.
func SchedulerCheck(running func() bool) CheckFunc {
	return func(ctx context.Context) error {
		if !running() {
			return errors.New("scheduler is not running")
		}
		return nil
	}
}

// StaleRunCheck fails when a sweep has not finished within maxAge. lastRun
// returns the zero time for a sweep that has never run since startup, which
// is reported healthy until maxAge has passed since started.
func StaleRunCheck(sweep string, lastRun func() time.Time, started time.Time, maxAge time.Duration, now func() time.Time) CheckFunc {
	return func(ctx context.Context) error {
		last := lastRun()
		if last.IsZero() {
			last = started
		}
		if age := now().Sub(last); age > maxAge {
			return fmt.Errorf("%s sweep last finished %s ago", sweep, age.Round(time.Second))
		}
		return nil
	}
}
