// Package selector pages through retention candidates older than a cutoff.
package selector

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"jobboard-hq/custodian/pkg/retention"
	"jobboard-hq/custodian/pkg/retention/storage"
)

// PageFunc fetches one page of candidate ids.
type PageFunc func(ctx context.Context, page storage.PageRequest) ([]string, error)

// Selector returns stable, id-ordered pages of candidate ids. It advances a
// keyset cursor, so pages neither skip nor repeat while earlier candidates
// are deleted, and a dry run still moves forward.
type Selector struct {
	name      string
	find      PageFunc
	size      int
	after     string
	protected map[string]bool
	exhausted bool
	logger    *slog.Logger
}

// New creates a selector over an arbitrary page query. Ids listed in
// protected are dropped from every page even if the query returns them.
func New(name string, find PageFunc, batchSize int, protected ...string) *Selector {
	p := make(map[string]bool, len(protected))
	for _, id := range protected {
		if id != "" {
			p[id] = true
		}
	}
	return &Selector{
		name:      name,
		find:      find,
		size:      batchSize,
		protected: p,
		logger:    slog.Default().With("component", "retention.selector", "selector", name),
	}
}

// ForApplications selects finalized applications last modified before cutoff.
func ForApplications(r storage.Reader, cutoff time.Time, batchSize int) *Selector {
	filter := storage.ApplicationFilter{
		Before: cutoff,
		States: retention.FinalizedStates,
	}
	return New("applications", func(ctx context.Context, page storage.PageRequest) ([]string, error) {
		return r.FindApplicationPage(ctx, filter, page)
	}, batchSize)
}

// ForAccounts selects accounts inactive since before cutoff. The sentinel
// account is excluded in the query and again on every page.
func ForAccounts(r storage.Reader, cutoff time.Time, batchSize int, sentinelID string) *Selector {
	filter := storage.AccountFilter{
		Before:     cutoff,
		ExcludeIDs: []string{sentinelID},
	}
	return New("accounts", func(ctx context.Context, page storage.PageRequest) ([]string, error) {
		return r.FindAccountPage(ctx, filter, page)
	}, batchSize, sentinelID)
}

// ForApplicationWarnings selects finalized, not yet anonymized applications
// whose last modification lies in the warning window.
func ForApplicationWarnings(r storage.Reader, window retention.Window, batchSize int) *Selector {
	filter := storage.ApplicationFilter{
		Before:            window.To,
		NotBefore:         window.From,
		States:            retention.FinalizedStates,
		ExcludeAnonymized: true,
	}
	return New("application_warnings", func(ctx context.Context, page storage.PageRequest) ([]string, error) {
		return r.FindApplicationPage(ctx, filter, page)
	}, batchSize)
}

// ForAccountWarnings selects accounts whose last activity lies in the warning window.
func ForAccountWarnings(r storage.Reader, window retention.Window, batchSize int, sentinelID string) *Selector {
	filter := storage.AccountFilter{
		Before:     window.To,
		NotBefore:  window.From,
		ExcludeIDs: []string{sentinelID},
	}
	return New("account_warnings", func(ctx context.Context, page storage.PageRequest) ([]string, error) {
		return r.FindAccountPage(ctx, filter, page)
	}, batchSize, sentinelID)
}

// Name returns the selector name used in logs and reports.
func (s *Selector) Name() string {
	return s.name
}

// Next returns the next page of candidate ids. An empty page means the
// backlog is exhausted.
func (s *Selector) Next(ctx context.Context) ([]string, error) {
	for !s.exhausted {
		ids, err := s.find(ctx, storage.PageRequest{After: s.after, Size: s.size})
		if err != nil {
			return nil, fmt.Errorf("select %s page after %q: %w", s.name, s.after, err)
		}
		if len(ids) == 0 {
			s.exhausted = true
			break
		}
		s.after = ids[len(ids)-1]

		page := make([]string, 0, len(ids))
		for _, id := range ids {
			if s.protected[id] {
				s.logger.Error("protected record returned as candidate, dropping", "id", id)
				continue
			}
			page = append(page, id)
		}
		if len(page) > 0 {
			return page, nil
		}
	}
	return nil, nil
}
