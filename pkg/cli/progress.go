package cli

import (
	"fmt"
	"io"
	"sync"
	"time"

	"jobboard-hq/custodian/pkg/retention"
	"jobboard-hq/custodian/pkg/retention/runner"
)

// ProgressRecorder prints a running tally of candidate outcomes and
// forwards every measurement to the wrapped recorder.
type ProgressRecorder struct {
	next   runner.Recorder
	writer io.Writer

	mu       sync.Mutex
	sweep    string
	counts   map[retention.Outcome]int
	total    int
	lastDraw time.Time
}

// NewProgressRecorder creates a progress recorder. next may be nil.
func NewProgressRecorder(w io.Writer, next runner.Recorder) *ProgressRecorder {
	return &ProgressRecorder{
		next:   next,
		writer: w,
		counts: make(map[retention.Outcome]int),
	}
}

// RecordCandidate counts the outcome and redraws at most every 100ms.
func (p *ProgressRecorder) RecordCandidate(sweep string, outcome retention.Outcome) {
	if p.next != nil {
		p.next.RecordCandidate(sweep, outcome)
	}

	p.mu.Lock()
	defer p.mu.Unlock()
	p.switchTo(sweep)
	p.counts[outcome]++
	p.total++

	if time.Since(p.lastDraw) >= 100*time.Millisecond {
		p.render()
	}
}

// RecordRun finishes the progress line of a sweep.
func (p *ProgressRecorder) RecordRun(sweep, stopReason string, duration time.Duration, finishedAt time.Time) {
	if p.next != nil {
		p.next.RecordRun(sweep, stopReason, duration, finishedAt)
	}

	p.mu.Lock()
	defer p.mu.Unlock()
	p.switchTo(sweep)
	p.render()
	fmt.Fprintf(p.writer, " (%s in %s)\n", stopReason, duration.Round(time.Millisecond))
	p.sweep = ""
}

func (p *ProgressRecorder) switchTo(sweep string) {
	if sweep == p.sweep {
		return
	}
	p.sweep = sweep
	p.counts = make(map[retention.Outcome]int)
	p.total = 0
}

var progressOrder = []retention.Outcome{
	retention.OutcomeDeleted,
	retention.OutcomeAnonymized,
	retention.OutcomePreviewed,
	retention.OutcomeWarned,
	retention.OutcomeAlreadyWarned,
	retention.OutcomeSkipped,
	retention.OutcomeAlreadyAbsent,
	retention.OutcomeViolation,
	retention.OutcomeFailed,
}

func (p *ProgressRecorder) render() {
	p.lastDraw = time.Now()
	fmt.Fprintf(p.writer, "\r%s: %d candidates", p.sweep, p.total)
	for _, o := range progressOrder {
		if n := p.counts[o]; n > 0 {
			fmt.Fprintf(p.writer, ", %s %d", o, n)
		}
	}
}
