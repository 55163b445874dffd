package repository

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/cuadrantworks/fieldtrack/internal/domain"
	"github.com/cuadrantworks/fieldtrack/internal/testutil"
)

func TestJobRepo_RoundTrip(t *testing.T) {
	database := testutil.NewTestDB(t)
	repo := NewSQLiteJobRepo(database)
	ctx := context.Background()

	day, job := testutil.NewTestWorkdayWithJob("tech-1", 48.2082, 16.3738)
	require.NoError(t, repo.Upsert(ctx, job))

	jobs, err := repo.ListByWorkday(ctx, day.ID)
	require.NoError(t, err)
	require.Len(t, jobs, 1)
	got := jobs[0]
	assert.Equal(t, job.ID, got.ID)
	assert.Equal(t, domain.JobActive, got.Status)
	assert.Equal(t, "Fixture job", got.Description)
	require.NotNil(t, got.StartLocation)
	assert.Equal(t, 48.2082, got.StartLocation.Latitude)
	assert.Nil(t, got.EndedAt)

	// Completion updates the same row.
	_, err = day.CompleteJob(job.ID, "wrapped up", testutil.Point(48.21, 16.38, testutil.FixedNow.Add(2*time.Hour)), testutil.FixedNow.Add(2*time.Hour))
	require.NoError(t, err)
	require.NoError(t, repo.Upsert(ctx, job))

	jobs, err = repo.ListByWorkday(ctx, day.ID)
	require.NoError(t, err)
	require.Len(t, jobs, 1)
	got = jobs[0]
	assert.Equal(t, domain.JobCompleted, got.Status)
	assert.Equal(t, "wrapped up", got.TechnicianSummary)
	require.NotNil(t, got.EndedAt)
	require.NotNil(t, got.EndLocation)
}

func TestJobRepo_UnsyncedLifecycle(t *testing.T) {
	database := testutil.NewTestDB(t)
	repo := NewSQLiteJobRepo(database)
	ctx := context.Background()

	_, job := testutil.NewTestWorkdayWithJob("tech-1", 48.2082, 16.3738)
	require.NoError(t, repo.Upsert(ctx, job))

	unsynced, err := repo.ListUnsynced(ctx)
	require.NoError(t, err)
	require.Len(t, unsynced, 1)

	require.NoError(t, repo.MarkSynced(ctx, []string{job.ID}))
	unsynced, err = repo.ListUnsynced(ctx)
	require.NoError(t, err)
	assert.Empty(t, unsynced)
}

func TestPauseRepo_RoundTrip(t *testing.T) {
	database := testutil.NewTestDB(t)
	repo := NewSQLitePauseRepo(database)
	ctx := context.Background()

	day := testutil.NewTestWorkday("tech-1")
	require.NoError(t, day.Pause(nil, testutil.FixedNow.Add(time.Hour)))
	pause := day.OpenPause()
	require.NotNil(t, pause)
	require.NoError(t, repo.Upsert(ctx, pause))

	pauses, err := repo.ListByWorkday(ctx, day.ID)
	require.NoError(t, err)
	require.Len(t, pauses, 1)
	assert.True(t, pauses[0].Open())

	require.NoError(t, day.Resume(testutil.Point(48.21, 16.38, testutil.FixedNow.Add(90*time.Minute)), testutil.FixedNow.Add(90*time.Minute)))
	require.NoError(t, repo.Upsert(ctx, pause))

	pauses, err = repo.ListByWorkday(ctx, day.ID)
	require.NoError(t, err)
	require.Len(t, pauses, 1)
	assert.False(t, pauses[0].Open())
	assert.Equal(t, 30*time.Minute, pauses[0].Duration())
}

func TestEventRepo_AppendIsIdempotent(t *testing.T) {
	database := testutil.NewTestDB(t)
	repo := NewSQLiteEventRepo(database)
	ctx := context.Background()

	day := testutil.NewTestWorkday("tech-1")
	require.NoError(t, day.Pause(nil, testutil.FixedNow.Add(time.Hour)))

	// Re-appending the full journal must not duplicate rows.
	for i := 0; i < 2; i++ {
		for _, e := range day.Events {
			require.NoError(t, repo.Append(ctx, e))
		}
	}

	events, err := repo.ListByWorkday(ctx, day.ID)
	require.NoError(t, err)
	require.Len(t, events, 2)
	assert.Equal(t, domain.EventSessionStart, events[0].Type)
	assert.Equal(t, domain.EventSessionPause, events[1].Type)
	assert.Equal(t, testutil.FixedNow.UnixMilli(), events[0].TimestampMs)
	require.NotNil(t, events[0].Location)
}

func TestEventRepo_InsertionOrderPreserved(t *testing.T) {
	database := testutil.NewTestDB(t)
	repo := NewSQLiteEventRepo(database)
	ctx := context.Background()

	day := testutil.NewTestWorkday("tech-1")
	// Journal entries may carry out-of-order timestamps; listing follows
	// insertion order regardless.
	day.RecordUserAction("second", testutil.FixedNow.Add(-time.Hour))
	day.RecordUserAction("third", testutil.FixedNow.Add(time.Hour))
	for _, e := range day.Events {
		require.NoError(t, repo.Append(ctx, e))
	}

	events, err := repo.ListByWorkday(ctx, day.ID)
	require.NoError(t, err)
	require.Len(t, events, 3)
	assert.Equal(t, "second", events[1].Detail)
	assert.Equal(t, "third", events[2].Detail)
}

func TestSampleRepo_InsertAndList(t *testing.T) {
	database := testutil.NewTestDB(t)
	repo := NewSQLiteSampleRepo(database)
	ctx := context.Background()

	p1 := domain.NewLocationPoint(48.2082, 16.3738, testutil.FixedNow)
	p2 := domain.NewLocationPoint(48.2182, 16.3738, testutil.FixedNow.Add(time.Minute))

	id1, err := repo.Insert(ctx, "wd-1", p1)
	require.NoError(t, err)
	id2, err := repo.Insert(ctx, "wd-1", p2)
	require.NoError(t, err)
	assert.Greater(t, id2, id1)

	samples, err := repo.ListByWorkday(ctx, "wd-1")
	require.NoError(t, err)
	require.Len(t, samples, 2)
	assert.Equal(t, id1, samples[0].ID)
	assert.Equal(t, 48.2082, samples[0].Point.Latitude)
	assert.Equal(t, testutil.FixedNow.UnixMilli(), samples[0].Point.TimestampMs)
	assert.False(t, samples[0].Synced)

	require.NoError(t, repo.MarkSynced(ctx, []int64{id1, id2}))
	unsynced, err := repo.ListUnsynced(ctx)
	require.NoError(t, err)
	assert.Empty(t, unsynced)
}
