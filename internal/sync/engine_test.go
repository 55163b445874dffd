package sync

import (
	"context"
	"database/sql"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/cuadrantworks/fieldtrack/internal/domain"
	"github.com/cuadrantworks/fieldtrack/internal/repository"
	"github.com/cuadrantworks/fieldtrack/internal/testutil"
)

type engineFixture struct {
	engine   *Engine
	remote   *testutil.FakeRemote
	workdays *repository.SQLiteWorkdayRepo
	jobs     *repository.SQLiteJobRepo
	pauses   *repository.SQLitePauseRepo
	events   *repository.SQLiteEventRepo
	samples  *repository.SQLiteSampleRepo
	db       *sql.DB
}

func newEngineFixture(t *testing.T) *engineFixture {
	t.Helper()
	database := testutil.NewTestDB(t)
	fake := testutil.NewFakeRemote()

	f := &engineFixture{
		remote:   fake,
		workdays: repository.NewSQLiteWorkdayRepo(database),
		jobs:     repository.NewSQLiteJobRepo(database),
		pauses:   repository.NewSQLitePauseRepo(database),
		events:   repository.NewSQLiteEventRepo(database),
		samples:  repository.NewSQLiteSampleRepo(database),
		db:       database,
	}
	f.engine = NewEngine(Config{
		Workdays: f.workdays,
		Jobs:     f.jobs,
		Pauses:   f.pauses,
		Events:   f.events,
		Samples:  f.samples,
		Remote:   fake,
	})
	return f
}

// seedWorkday persists a full aggregate (workday, job, pause, events,
// one location sample) into the local store, all unsynced.
func (f *engineFixture) seedWorkday(t *testing.T) *domain.Workday {
	t.Helper()
	ctx := context.Background()

	w := testutil.NewTestWorkday("tech-1")
	j, err := w.StartJob("Inspect valve", testutil.Point(48.2, 16.37, testutil.FixedNow), testutil.FixedNow.Add(time.Minute))
	require.NoError(t, err)
	_, err = w.CompleteJob(j.ID, "done", testutil.Point(48.2, 16.37, testutil.FixedNow), testutil.FixedNow.Add(time.Hour))
	require.NoError(t, err)
	require.NoError(t, w.Pause(nil, testutil.FixedNow.Add(2*time.Hour)))
	require.NoError(t, w.Resume(nil, testutil.FixedNow.Add(3*time.Hour)))

	require.NoError(t, f.workdays.Upsert(ctx, w))
	for _, job := range w.Jobs {
		require.NoError(t, f.jobs.Upsert(ctx, job))
	}
	for _, p := range w.Pauses {
		require.NoError(t, f.pauses.Upsert(ctx, p))
	}
	for _, e := range w.Events {
		require.NoError(t, f.events.Append(ctx, e))
	}
	_, err = f.samples.Insert(ctx, w.ID, domain.NewLocationPoint(48.2, 16.37, testutil.FixedNow))
	require.NoError(t, err)
	return w
}

func TestSyncAll_PushesAllTables(t *testing.T) {
	f := newEngineFixture(t)
	w := f.seedWorkday(t)
	ctx := context.Background()

	require.NoError(t, f.engine.SyncAll(ctx))

	assert.Contains(t, f.remote.Workdays, w.ID)
	assert.Len(t, f.remote.Jobs, 1)
	assert.Len(t, f.remote.Pauses, 1)
	assert.Len(t, f.remote.Events, len(w.Events))
	assert.Len(t, f.remote.RawLocations, 1)
	assert.False(t, f.engine.LastFailed())

	unsynced, err := f.workdays.ListUnsynced(ctx)
	require.NoError(t, err)
	assert.Empty(t, unsynced)
}

func TestSyncAll_TimestampAsymmetry(t *testing.T) {
	f := newEngineFixture(t)
	w := f.seedWorkday(t)
	ctx := context.Background()

	require.NoError(t, f.engine.SyncAll(ctx))

	day := f.remote.Workdays[w.ID]
	_, err := time.Parse(time.RFC3339, day.StartedAt)
	assert.NoError(t, err, "workday timestamps are ISO-8601 strings")

	require.NotEmpty(t, f.remote.Events)
	assert.Equal(t, w.Events[0].TimestampMs, f.remote.Events[0].TimestampMs,
		"event timestamps stay epoch milliseconds")
	require.Len(t, f.remote.RawLocations, 1)
	assert.Equal(t, testutil.FixedNow.UnixMilli(), f.remote.RawLocations[0].RecordedMs)
}

func TestSyncAll_IdempotentWhenFullySynced(t *testing.T) {
	f := newEngineFixture(t)
	f.seedWorkday(t)
	ctx := context.Background()

	require.NoError(t, f.engine.SyncAll(ctx))
	writesAfterFirst := f.remote.WriteCalls

	require.NoError(t, f.engine.SyncAll(ctx))
	assert.Equal(t, writesAfterFirst, f.remote.WriteCalls,
		"a fully synced store performs zero remote writes")
}

func TestSyncAll_PartialFailureIsolation(t *testing.T) {
	f := newEngineFixture(t)
	f.seedWorkday(t)
	f.remote.FailTable = "jobs"
	ctx := context.Background()

	err := f.engine.SyncAll(ctx)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "jobs")
	assert.True(t, f.engine.LastFailed())

	// Other tables still reconciled.
	assert.Len(t, f.remote.Workdays, 1)
	assert.Len(t, f.remote.Pauses, 1)
	assert.NotEmpty(t, f.remote.Events)

	// Failed rows stay unsynced and retry on the next pass.
	unsyncedJobs, listErr := f.jobs.ListUnsynced(ctx)
	require.NoError(t, listErr)
	assert.Len(t, unsyncedJobs, 1)

	f.remote.FailTable = ""
	require.NoError(t, f.engine.SyncAll(ctx))
	assert.Len(t, f.remote.Jobs, 1)
	assert.False(t, f.engine.LastFailed())
}

func TestSyncAll_OfflineIsNoop(t *testing.T) {
	f := newEngineFixture(t)
	f.seedWorkday(t)
	f.remote.Offline = true
	ctx := context.Background()

	require.NoError(t, f.engine.SyncAll(ctx), "offline is a deliberate no-op, not an error")
	assert.Empty(t, f.remote.Workdays)

	unsynced, err := f.workdays.ListUnsynced(ctx)
	require.NoError(t, err)
	assert.Len(t, unsynced, 1)
}

func TestSyncAll_SamplesInsertOnly(t *testing.T) {
	f := newEngineFixture(t)
	w := f.seedWorkday(t)
	ctx := context.Background()

	require.NoError(t, f.engine.SyncAll(ctx))
	require.Len(t, f.remote.RawLocations, 1)
	require.NotNil(t, f.remote.RawLocations[0].WorkdayID)
	assert.Equal(t, w.ID, *f.remote.RawLocations[0].WorkdayID)

	// New samples append; already synced ones are not resent.
	_, err := f.samples.Insert(ctx, w.ID, domain.NewLocationPoint(48.21, 16.38, testutil.FixedNow.Add(time.Minute)))
	require.NoError(t, err)
	require.NoError(t, f.engine.SyncAll(ctx))
	assert.Len(t, f.remote.RawLocations, 2)
}

func TestRun_KickTriggersPass(t *testing.T) {
	f := newEngineFixture(t)
	f.seedWorkday(t)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go f.engine.Run(ctx)

	f.engine.Kick()
	require.Eventually(t, func() bool {
		unsynced, err := f.workdays.ListUnsynced(context.Background())
		return err == nil && len(unsynced) == 0
	}, 2*time.Second, 10*time.Millisecond)
}
