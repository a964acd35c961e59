package sweep

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"jobboard-hq/custodian/pkg/config"
	"jobboard-hq/custodian/pkg/notify"
	"jobboard-hq/custodian/pkg/retention"
	"jobboard-hq/custodian/pkg/retention/runner"
	"jobboard-hq/custodian/pkg/retention/storage"
	"jobboard-hq/custodian/pkg/retention/warning"
)

const sentinel = "00000000-0000-0000-0000-000000000000"

var now = time.Date(2025, 6, 1, 3, 0, 0, 0, time.UTC)

func daysAgo(d int) time.Time { return now.AddDate(0, 0, -d) }

type captureSender struct {
	mu   sync.Mutex
	sent []notify.Notification
}

func (c *captureSender) SendAsync(_ context.Context, n notify.Notification) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.sent = append(c.sent, n)
}

func (c *captureSender) subjects() []string {
	c.mu.Lock()
	defer c.mu.Unlock()
	out := make([]string, 0, len(c.sent))
	for _, n := range c.sent {
		out = append(out, n.SubjectID)
	}
	return out
}

type runRecorder struct {
	mu   sync.Mutex
	runs map[string]string
}

func (r *runRecorder) RecordRun(sweep, stopReason string, _ time.Duration, _ time.Time) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.runs == nil {
		r.runs = map[string]string{}
	}
	r.runs[sweep] = stopReason
}

func (r *runRecorder) RecordCandidate(string, retention.Outcome) {}

// steppingClock advances by step on every reading.
type steppingClock struct {
	mu   sync.Mutex
	now  time.Time
	step time.Duration
}

func (c *steppingClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	t := c.now
	c.now = c.now.Add(c.step)
	return t
}

func basePolicy() retention.Policy {
	return retention.Policy{
		Enabled:                  true,
		ApplicationRetentionDays: 90,
		AccountRetentionDays:     365,
		BatchSize:                2,
		MaxRuntimeMinutes:        60,
		WarningWindowDays:        28,
		SentinelID:               sentinel,
	}
}

func fixed(p retention.Policy) PolicySource {
	return PolicyFunc(func() (retention.Policy, error) { return p, nil })
}

func seed(t *testing.T) *storage.MemoryStore {
	t.Helper()
	ctx := context.Background()
	s := storage.NewMemoryStore()

	accounts := []*retention.Account{
		{ID: "prof", Email: "prof@uni.example", ResearchGroupID: "rg", Roles: []retention.Role{retention.RoleProfessor}, LastActivityAt: now, CreatedAt: now},
		{ID: "appl", Email: "appl@mail.example", FirstName: "Ada", Roles: []retention.Role{retention.RoleApplicant}, LastActivityAt: now, CreatedAt: now},
		{ID: "gone", Email: "gone@mail.example", FirstName: "Old", Roles: []retention.Role{retention.RoleApplicant}, LastActivityAt: daysAgo(400), CreatedAt: daysAgo(500)},
		{ID: "idle", Email: "idle@mail.example", FirstName: "Idle", Roles: []retention.Role{retention.RoleApplicant}, LastActivityAt: daysAgo(350), CreatedAt: daysAgo(500)},
	}
	for _, a := range accounts {
		require.NoError(t, s.InsertAccount(ctx, a))
	}
	require.NoError(t, s.InsertJob(ctx, &retention.Job{ID: "job", SupervisingProfessorID: "prof", State: retention.JobPublished}))

	apps := []struct {
		id, applicant string
		state         retention.ApplicationState
		at            time.Time
	}{
		{"app-100", "appl", retention.StateRejected, daysAgo(100)},
		{"app-65", "appl", retention.StateRejected, daysAgo(65)},
		{"app-sent", "appl", retention.StateSent, daysAgo(100)},
		{"app-gone", "gone", retention.StateAccepted, daysAgo(400)},
	}
	for _, a := range apps {
		require.NoError(t, s.InsertApplication(ctx, &retention.Application{
			ID: a.id, ApplicantID: a.applicant, JobID: "job", State: a.state, LastModifiedAt: a.at, CreatedAt: a.at,
		}))
	}
	return s
}

func newEngine(t *testing.T, store storage.Store, policy PolicySource, opts ...func(*Options)) (*Engine, *captureSender) {
	t.Helper()
	sender := &captureSender{}
	o := Options{
		Store:           store,
		Sender:          sender,
		Policy:          policy,
		Clock:           retention.NewManualClock(now),
		DefaultLanguage: "en",
	}
	for _, fn := range opts {
		fn(&o)
	}
	e, err := New(o)
	require.NoError(t, err)
	return e, sender
}

func TestNew_RequiresCollaborators(t *testing.T) {
	_, err := New(Options{Sender: &captureSender{}})
	assert.Error(t, err)

	_, err = New(Options{Store: storage.NewMemoryStore()})
	assert.Error(t, err)
}

func TestRunApplications(t *testing.T) {
	ctx := context.Background()
	store := seed(t)
	e, _ := newEngine(t, store, fixed(basePolicy()))

	report, err := e.RunApplications(ctx, RunOptions{})
	require.NoError(t, err)
	assert.Equal(t, runner.StopExhausted, report.StopReason)
	assert.Equal(t, 2, report.Deleted)
	assert.Zero(t, report.Failures)

	for _, id := range []string{"app-100", "app-gone"} {
		_, err := store.GetApplication(ctx, id)
		assert.True(t, retention.IsNotFound(err), id)
	}
	for _, id := range []string{"app-65", "app-sent"} {
		_, err := store.GetApplication(ctx, id)
		assert.NoError(t, err, id)
	}

	last, ok := e.LastReport(Applications)
	require.True(t, ok)
	assert.Equal(t, report.RunID, last.RunID)
}

func TestRunApplications_DryRunOverride(t *testing.T) {
	ctx := context.Background()
	store := seed(t)
	e, _ := newEngine(t, store, fixed(basePolicy()))
	commits := store.Commits()

	report, err := e.RunApplications(ctx, RunOptions{DryRun: true})
	require.NoError(t, err)
	assert.True(t, report.DryRun)
	assert.Equal(t, 2, report.Previewed)
	assert.Zero(t, report.Deleted)
	assert.Equal(t, commits, store.Commits())

	_, err = store.GetApplication(ctx, "app-100")
	assert.NoError(t, err)
}

func TestRunAccounts_EnsuresSentinel(t *testing.T) {
	ctx := context.Background()
	store := seed(t)
	e, _ := newEngine(t, store, fixed(basePolicy()))

	_, err := store.GetAccount(ctx, sentinel)
	require.True(t, retention.IsNotFound(err))

	report, err := e.RunAccounts(ctx, RunOptions{})
	require.NoError(t, err)
	assert.Equal(t, runner.StopExhausted, report.StopReason)
	assert.Equal(t, 1, report.Deleted)

	_, err = store.GetAccount(ctx, sentinel)
	assert.NoError(t, err)
	_, err = store.GetAccount(ctx, "gone")
	assert.True(t, retention.IsNotFound(err))
	app, err := store.GetApplication(ctx, "app-gone")
	require.NoError(t, err)
	assert.True(t, app.Anonymized)
	assert.Equal(t, sentinel, app.ApplicantID)
	_, err = store.GetAccount(ctx, "idle")
	assert.NoError(t, err)
}

func TestRunAccounts_DryRunLeavesSentinelAlone(t *testing.T) {
	ctx := context.Background()
	store := seed(t)
	p := basePolicy()
	p.DryRun = true
	e, _ := newEngine(t, store, fixed(p))

	report, err := e.RunAccounts(ctx, RunOptions{})
	require.NoError(t, err)
	assert.Equal(t, 1, report.Previewed)

	_, err = store.GetAccount(ctx, sentinel)
	assert.True(t, retention.IsNotFound(err))
}

func TestRunWarnings(t *testing.T) {
	ctx := context.Background()
	store := seed(t)
	e, sender := newEngine(t, store, fixed(basePolicy()))

	reports, err := e.RunWarnings(ctx, RunOptions{})
	require.NoError(t, err)
	require.Len(t, reports, 2)
	assert.Equal(t, warning.SweepApplicationWarnings, reports[0].Sweep)
	assert.Equal(t, warning.SweepAccountWarnings, reports[1].Sweep)
	assert.Equal(t, 1, reports[0].Warned)
	assert.Equal(t, 1, reports[1].Warned)
	assert.ElementsMatch(t, []string{"app-65", "idle"}, sender.subjects())

	assert.Equal(t, []string{warning.SweepAccountWarnings, warning.SweepApplicationWarnings}, e.ReportNames())

	// a second run the same day sends nothing new
	reports, err = e.RunWarnings(ctx, RunOptions{})
	require.NoError(t, err)
	assert.Equal(t, 1, reports[0].AlreadyWarned)
	assert.Equal(t, 1, reports[1].AlreadyWarned)
	assert.Len(t, sender.subjects(), 2)
}

func TestRunWarnings_SharedBudget(t *testing.T) {
	store := seed(t)
	p := basePolicy()
	p.MaxRuntimeMinutes = 1
	clock := &steppingClock{now: now, step: time.Minute}
	e, sender := newEngine(t, store, fixed(p), func(o *Options) { o.Clock = clock })

	reports, err := e.RunWarnings(context.Background(), RunOptions{})
	require.NoError(t, err)
	require.Len(t, reports, 2)
	assert.Equal(t, runner.StopBudget, reports[0].StopReason)
	assert.Equal(t, runner.StopBudget, reports[1].StopReason)
	assert.Empty(t, sender.subjects())
}

func TestDisabled(t *testing.T) {
	store := seed(t)
	p := basePolicy()
	p.Enabled = false
	rec := &runRecorder{}
	e, sender := newEngine(t, store, fixed(p), func(o *Options) { o.Recorder = rec })
	commits := store.Commits()

	for _, name := range Names {
		reports, err := e.Run(context.Background(), name, RunOptions{})
		require.NoError(t, err, name)
		for _, r := range reports {
			assert.Equal(t, runner.StopDisabled, r.StopReason, r.Sweep)
			assert.Zero(t, r.Candidates)
		}
	}

	assert.Equal(t, commits, store.Commits())
	assert.Empty(t, sender.subjects())
	assert.Len(t, e.LastReports(), 4)
	assert.Equal(t, "disabled", rec.runs[Accounts])
}

func TestPolicyReadPerInvocation(t *testing.T) {
	ctx := context.Background()
	store := seed(t)
	p := basePolicy()
	p.Enabled = false
	var mu sync.Mutex
	source := PolicyFunc(func() (retention.Policy, error) {
		mu.Lock()
		defer mu.Unlock()
		return p, nil
	})
	e, _ := newEngine(t, store, source)

	report, err := e.RunApplications(ctx, RunOptions{})
	require.NoError(t, err)
	assert.Equal(t, runner.StopDisabled, report.StopReason)

	mu.Lock()
	p.Enabled = true
	mu.Unlock()

	report, err = e.RunApplications(ctx, RunOptions{})
	require.NoError(t, err)
	assert.Equal(t, runner.StopExhausted, report.StopReason)
	assert.Equal(t, 2, report.Deleted)
}

func TestPolicyError(t *testing.T) {
	boom := errors.New("boom")
	e, _ := newEngine(t, seed(t), PolicyFunc(func() (retention.Policy, error) { return retention.Policy{}, boom }))

	_, err := e.RunApplications(context.Background(), RunOptions{})
	assert.ErrorIs(t, err, boom)
	assert.Empty(t, e.LastReports())
}

func TestRun_UnknownSweep(t *testing.T) {
	e, _ := newEngine(t, seed(t), fixed(basePolicy()))
	_, err := e.Run(context.Background(), "jobs", RunOptions{})
	assert.ErrorIs(t, err, ErrUnknownSweep)
}

func TestRun_AlreadyRunning(t *testing.T) {
	e, _ := newEngine(t, seed(t), fixed(basePolicy()))

	e.locks[Accounts].Lock()
	_, err := e.RunAccounts(context.Background(), RunOptions{})
	assert.ErrorIs(t, err, ErrRunning)
	e.locks[Accounts].Unlock()

	_, err = e.RunAccounts(context.Background(), RunOptions{})
	assert.NoError(t, err)
}

func TestConfigSource(t *testing.T) {
	prev := config.GetConfig()
	t.Cleanup(func() { config.SetConfig(prev) })

	config.SetConfig(nil)
	_, err := ConfigSource{}.Policy()
	assert.Error(t, err)

	var cfg config.Config
	config.ApplyDefaults(&cfg)
	cfg.Retention.Enabled = true
	cfg.Retention.DaysBeforeDeletion = 90
	config.SetConfig(&cfg)

	p, err := ConfigSource{}.Policy()
	require.NoError(t, err)
	assert.True(t, p.Enabled)
	assert.Equal(t, 90, p.ApplicationRetentionDays)
	assert.Equal(t, config.DefaultSentinelID, p.SentinelID)
}
