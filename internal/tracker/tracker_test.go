package tracker

import (
	"context"
	"database/sql"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/cuadrantworks/fieldtrack/internal/domain"
	"github.com/cuadrantworks/fieldtrack/internal/prompt"
	"github.com/cuadrantworks/fieldtrack/internal/repository"
	"github.com/cuadrantworks/fieldtrack/internal/testutil"
)

type fakeKicker struct {
	kicks atomic.Int32
}

func (k *fakeKicker) Kick() { k.kicks.Add(1) }

type fakeNotifier struct {
	mu          sync.Mutex
	jobIntakes  []string
	completions []string
	notices     []string
}

func (n *fakeNotifier) ShowJobIntake(reason string) {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.jobIntakes = append(n.jobIntakes, reason)
}

func (n *fakeNotifier) ShowCompletionIntake(jobID, description, reason string) {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.completions = append(n.completions, jobID)
}

func (n *fakeNotifier) Notify(msg string) {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.notices = append(n.notices, msg)
}

func (n *fakeNotifier) noticeCount() int {
	n.mu.Lock()
	defer n.mu.Unlock()
	return len(n.notices)
}

type trackerFixture struct {
	db       *sql.DB
	tracker  *Tracker
	kicker   *fakeKicker
	notifier *fakeNotifier
	now      time.Time
}

func newTrackerFixture(t *testing.T, client prompt.DecisionClient) *trackerFixture {
	t.Helper()
	database := testutil.NewTestDB(t)
	f := &trackerFixture{
		db:       database,
		kicker:   &fakeKicker{},
		notifier: &fakeNotifier{},
		now:      testutil.FixedNow,
	}
	f.tracker = New(Config{
		TechnicianID: "tech-1",
		DB:           database,
		UoW:          testutil.NewTestUoW(database),
		Sync:         f.kicker,
		Client:       client,
		Gate:         prompt.DefaultGateConfig(),
		Notifier:     f.notifier,
	})
	f.tracker.nowFn = func() time.Time { return f.now }
	return f
}

func (f *trackerFixture) advance(d time.Duration) {
	f.now = f.now.Add(d)
}

func (f *trackerFixture) fix(lat, lon float64) domain.LocationPoint {
	return domain.NewLocationPoint(lat, lon, f.now)
}

func TestTracker_StartDayPersistsAggregate(t *testing.T) {
	f := newTrackerFixture(t, nil)
	ctx := context.Background()

	loc := f.fix(48.2082, 16.3738)
	day, err := f.tracker.StartDay(ctx, &loc)
	require.NoError(t, err)
	assert.Equal(t, domain.WorkdayTracking, day.Status)
	assert.Equal(t, int32(1), f.kicker.kicks.Load())

	stored, err := repository.NewSQLiteWorkdayRepo(f.db).GetByID(ctx, day.ID)
	require.NoError(t, err)
	assert.Equal(t, "tech-1", stored.TechnicianID)
	assert.False(t, stored.Synced)

	events, err := repository.NewSQLiteEventRepo(f.db).ListByWorkday(ctx, day.ID)
	require.NoError(t, err)
	require.Len(t, events, 1)
	assert.Equal(t, domain.EventSessionStart, events[0].Type)
}

func TestTracker_StartDayTwiceRejected(t *testing.T) {
	f := newTrackerFixture(t, nil)
	ctx := context.Background()

	_, err := f.tracker.StartDay(ctx, nil)
	require.NoError(t, err)
	_, err = f.tracker.StartDay(ctx, nil)
	assert.ErrorIs(t, err, ErrDayAlreadyStarted)
}

func TestTracker_ActionsWithoutDayRejected(t *testing.T) {
	f := newTrackerFixture(t, nil)
	ctx := context.Background()

	assert.ErrorIs(t, f.tracker.PauseDay(ctx), ErrNoActiveDay)
	assert.ErrorIs(t, f.tracker.EndDay(ctx), ErrNoActiveDay)
	_, err := f.tracker.StartJob(ctx, "anything")
	assert.ErrorIs(t, err, ErrNoActiveDay)
}

func TestTracker_FullDayFlow(t *testing.T) {
	f := newTrackerFixture(t, nil)
	ctx := context.Background()

	loc := f.fix(48.2082, 16.3738)
	day, err := f.tracker.StartDay(ctx, &loc)
	require.NoError(t, err)

	f.advance(30 * time.Minute)
	job, err := f.tracker.StartJob(ctx, "replace meter")
	require.NoError(t, err)

	f.advance(time.Hour)
	_, err = f.tracker.CompleteJob(ctx, job.ID, "meter replaced")
	require.NoError(t, err)

	f.advance(10 * time.Minute)
	require.NoError(t, f.tracker.PauseDay(ctx))
	f.advance(20 * time.Minute)
	require.NoError(t, f.tracker.ResumeDay(ctx))

	f.advance(time.Hour)
	require.NoError(t, f.tracker.EndDay(ctx))

	cur := f.tracker.Current()
	require.NotNil(t, cur.Summary)
	assert.Equal(t, 1, cur.Summary.JobsCompleted)
	// 3h on the clock minus the 20m pause.
	assert.Equal(t, 2*time.Hour+40*time.Minute, cur.Summary.ActiveDuration)

	stored, err := repository.NewSQLiteWorkdayRepo(f.db).GetByID(ctx, day.ID)
	require.NoError(t, err)
	assert.Equal(t, domain.WorkdayEnded, stored.Status)
	require.NotNil(t, stored.Summary)
	assert.Equal(t, 1, stored.Summary.JobsCompleted)
}

func TestTracker_StartJobRequiresFix(t *testing.T) {
	f := newTrackerFixture(t, nil)
	ctx := context.Background()

	_, err := f.tracker.StartDay(ctx, nil)
	require.NoError(t, err)

	_, err = f.tracker.StartJob(ctx, "no location yet")
	assert.ErrorIs(t, err, domain.ErrLocationRequired)

	f.tracker.OnLocation(ctx, f.fix(48.2082, 16.3738))
	_, err = f.tracker.StartJob(ctx, "now located")
	assert.NoError(t, err)
}

func TestTracker_EndDayRefusedWhileJobActive(t *testing.T) {
	f := newTrackerFixture(t, nil)
	ctx := context.Background()

	loc := f.fix(48.2082, 16.3738)
	_, err := f.tracker.StartDay(ctx, &loc)
	require.NoError(t, err)
	job, err := f.tracker.StartJob(ctx, "open job")
	require.NoError(t, err)

	assert.ErrorIs(t, f.tracker.EndDay(ctx), domain.ErrJobStillActive)

	_, err = f.tracker.CompleteJob(ctx, job.ID, "done")
	require.NoError(t, err)
	assert.NoError(t, f.tracker.EndDay(ctx))
}

func TestTracker_StaleFixFlagsDegradedOnce(t *testing.T) {
	f := newTrackerFixture(t, nil)
	ctx := context.Background()

	loc := f.fix(48.2082, 16.3738)
	_, err := f.tracker.StartDay(ctx, &loc)
	require.NoError(t, err)

	stale := domain.NewLocationPoint(48.2082, 16.3738, f.now.Add(-2*time.Hour))
	f.tracker.OnLocation(ctx, stale)
	f.tracker.OnLocation(ctx, stale)

	assert.Equal(t, 1, f.notifier.noticeCount())

	day := f.tracker.Current()
	var errorEvents int
	for _, e := range day.Events {
		if e.Type == domain.EventError {
			errorEvents++
		}
	}
	assert.Equal(t, 1, errorEvents)

	// A fresh fix clears the degraded state; the next stale one notifies
	// again.
	f.tracker.OnLocation(ctx, f.fix(48.2082, 16.3738))
	f.tracker.OnLocation(ctx, stale)
	assert.Equal(t, 2, f.notifier.noticeCount())
}

func TestTracker_LoadResumesUnfinishedDay(t *testing.T) {
	f := newTrackerFixture(t, nil)
	ctx := context.Background()

	loc := f.fix(48.2082, 16.3738)
	day, err := f.tracker.StartDay(ctx, &loc)
	require.NoError(t, err)
	job, err := f.tracker.StartJob(ctx, "unfinished")
	require.NoError(t, err)
	require.NoError(t, f.tracker.PauseDay(ctx))

	// A fresh tracker over the same database picks the day back up.
	resumed := New(Config{
		TechnicianID: "tech-1",
		DB:           f.db,
		UoW:          testutil.NewTestUoW(f.db),
	})
	resumed.nowFn = func() time.Time { return f.now }
	require.NoError(t, resumed.Load(ctx))

	cur := resumed.Current()
	require.NotNil(t, cur)
	assert.Equal(t, day.ID, cur.ID)
	assert.Equal(t, domain.WorkdayPaused, cur.Status)
	require.NotNil(t, cur.ActiveJob())
	assert.Equal(t, job.ID, cur.ActiveJob().ID)
	require.NotNil(t, cur.CurrentJobID)
	assert.Equal(t, job.ID, *cur.CurrentJobID)
	assert.NotNil(t, cur.OpenPause())
	assert.NotEmpty(t, cur.Events)
}

func TestTracker_LoadIgnoresEndedDay(t *testing.T) {
	f := newTrackerFixture(t, nil)
	ctx := context.Background()

	loc := f.fix(48.2082, 16.3738)
	_, err := f.tracker.StartDay(ctx, &loc)
	require.NoError(t, err)
	require.NoError(t, f.tracker.EndDay(ctx))

	resumed := New(Config{
		TechnicianID: "tech-1",
		DB:           f.db,
		UoW:          testutil.NewTestUoW(f.db),
	})
	require.NoError(t, resumed.Load(ctx))
	assert.Nil(t, resumed.Current())
}

func TestTracker_EveryMutationKicksSync(t *testing.T) {
	f := newTrackerFixture(t, nil)
	ctx := context.Background()

	loc := f.fix(48.2082, 16.3738)
	_, err := f.tracker.StartDay(ctx, &loc)
	require.NoError(t, err)
	require.NoError(t, f.tracker.PauseDay(ctx))
	require.NoError(t, f.tracker.ResumeDay(ctx))
	require.NoError(t, f.tracker.EndDay(ctx))

	assert.Equal(t, int32(4), f.kicker.kicks.Load())
}

type scriptedClient struct {
	mu       sync.Mutex
	decision prompt.Decision
	calls    int
}

func (c *scriptedClient) Decide(ctx context.Context, req prompt.DecisionRequest) (*prompt.Decision, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.calls++
	dec := c.decision
	return &dec, nil
}

func (c *scriptedClient) callCount() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.calls
}

func TestTracker_GateOpensJobIntakeAndJournals(t *testing.T) {
	client := &scriptedClient{decision: prompt.Decision{ShouldPrompt: true, Reason: "still for a while"}}
	f := newTrackerFixture(t, client)
	ctx := context.Background()

	loc := f.fix(48.2082, 16.3738)
	day, err := f.tracker.StartDay(ctx, &loc)
	require.NoError(t, err)

	// Twenty minutes of no displacement, then a fresh fix triggers the
	// new-job policy.
	f.advance(20 * time.Minute)
	f.tracker.OnLocation(ctx, f.fix(48.20821, 16.37381))

	require.Eventually(t, func() bool {
		f.notifier.mu.Lock()
		defer f.notifier.mu.Unlock()
		return len(f.notifier.jobIntakes) == 1
	}, time.Second, 5*time.Millisecond)

	f.tracker.lock()
	assert.NotNil(t, f.tracker.day.LastNewJobPromptAt)
	f.tracker.unlock()

	var prompts int
	cur := f.tracker.Current()
	for _, e := range cur.Events {
		if e.Type == domain.EventNewJobPrompt {
			prompts++
			assert.Nil(t, e.JobID)
		}
	}
	assert.Equal(t, 1, prompts)

	events, err := repository.NewSQLiteEventRepo(f.db).ListByWorkday(ctx, day.ID)
	require.NoError(t, err)
	var persisted bool
	for _, e := range events {
		if e.Type == domain.EventNewJobPrompt {
			persisted = true
		}
	}
	assert.True(t, persisted)
}

func TestTracker_StartJobResolvesOpenPrompt(t *testing.T) {
	client := &scriptedClient{decision: prompt.Decision{ShouldPrompt: true, Reason: "go"}}
	f := newTrackerFixture(t, client)
	ctx := context.Background()

	loc := f.fix(48.2082, 16.3738)
	_, err := f.tracker.StartDay(ctx, &loc)
	require.NoError(t, err)

	f.advance(20 * time.Minute)
	f.tracker.OnLocation(ctx, f.fix(48.20821, 16.37381))
	require.Eventually(t, func() bool {
		f.notifier.mu.Lock()
		defer f.notifier.mu.Unlock()
		return len(f.notifier.jobIntakes) == 1
	}, time.Second, 5*time.Millisecond)

	// While the prompt is open, further fixes do not re-consult the
	// service.
	f.advance(10 * time.Minute)
	f.tracker.OnLocation(ctx, f.fix(48.20821, 16.37381))
	assert.Equal(t, 1, client.callCount())

	// Starting the job answers the prompt and re-arms the gate.
	_, err = f.tracker.StartJob(ctx, "prompted job")
	require.NoError(t, err)
}
