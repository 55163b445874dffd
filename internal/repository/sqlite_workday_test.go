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

func TestWorkdayRepo_UpsertRoundTrip(t *testing.T) {
	database := testutil.NewTestDB(t)
	repo := NewSQLiteWorkdayRepo(database)
	ctx := context.Background()

	day := testutil.NewTestWorkday("tech-1")
	promptedAt := testutil.FixedNow.Add(30 * time.Minute)
	day.LastNewJobPromptAt = &promptedAt

	require.NoError(t, repo.Upsert(ctx, day))

	got, err := repo.GetByID(ctx, day.ID)
	require.NoError(t, err)
	assert.Equal(t, day.ID, got.ID)
	assert.Equal(t, "tech-1", got.TechnicianID)
	assert.Equal(t, domain.WorkdayTracking, got.Status)
	assert.True(t, got.StartedAt.Equal(testutil.FixedNow))
	require.NotNil(t, got.StartLocation)
	assert.Equal(t, 48.2082, got.StartLocation.Latitude)
	require.NotNil(t, got.LastNewJobPromptAt)
	assert.True(t, got.LastNewJobPromptAt.Equal(promptedAt))
	assert.Nil(t, got.Summary)
	assert.False(t, got.Synced)
}

func TestWorkdayRepo_UpsertUpdatesExisting(t *testing.T) {
	database := testutil.NewTestDB(t)
	repo := NewSQLiteWorkdayRepo(database)
	ctx := context.Background()

	day := testutil.NewTestWorkday("tech-1")
	require.NoError(t, repo.Upsert(ctx, day))

	require.NoError(t, day.EndDay(testutil.Point(48.21, 16.38, testutil.FixedNow.Add(8*time.Hour)), testutil.FixedNow.Add(8*time.Hour)))
	require.NoError(t, repo.Upsert(ctx, day))

	got, err := repo.GetByID(ctx, day.ID)
	require.NoError(t, err)
	assert.Equal(t, domain.WorkdayEnded, got.Status)
	require.NotNil(t, got.EndedAt)
	require.NotNil(t, got.EndLocation)
	require.NotNil(t, got.Summary)
	assert.Equal(t, 8*time.Hour, got.Summary.ActiveDuration)
	assert.Equal(t, 0, got.Summary.JobsCompleted)
}

func TestWorkdayRepo_GetByIDNotFound(t *testing.T) {
	database := testutil.NewTestDB(t)
	repo := NewSQLiteWorkdayRepo(database)

	_, err := repo.GetByID(context.Background(), "missing")
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestWorkdayRepo_LatestByTechnician(t *testing.T) {
	database := testutil.NewTestDB(t)
	repo := NewSQLiteWorkdayRepo(database)
	ctx := context.Background()

	older := domain.NewWorkday("tech-1", nil, testutil.FixedNow.Add(-24*time.Hour))
	require.NoError(t, older.EndDay(nil, testutil.FixedNow.Add(-16*time.Hour)))
	newer := domain.NewWorkday("tech-1", nil, testutil.FixedNow)
	other := domain.NewWorkday("tech-2", nil, testutil.FixedNow.Add(time.Hour))
	for _, w := range []*domain.Workday{older, newer, other} {
		require.NoError(t, repo.Upsert(ctx, w))
	}

	got, err := repo.LatestByTechnician(ctx, "tech-1")
	require.NoError(t, err)
	assert.Equal(t, newer.ID, got.ID)

	_, err = repo.LatestByTechnician(ctx, "tech-9")
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestWorkdayRepo_UnsyncedLifecycle(t *testing.T) {
	database := testutil.NewTestDB(t)
	repo := NewSQLiteWorkdayRepo(database)
	ctx := context.Background()

	day := testutil.NewTestWorkday("tech-1")
	require.NoError(t, repo.Upsert(ctx, day))

	unsynced, err := repo.ListUnsynced(ctx)
	require.NoError(t, err)
	require.Len(t, unsynced, 1)

	require.NoError(t, repo.MarkSynced(ctx, []string{day.ID}))
	unsynced, err = repo.ListUnsynced(ctx)
	require.NoError(t, err)
	assert.Empty(t, unsynced)

	// A later mutation resurfaces the row.
	require.NoError(t, day.Pause(nil, testutil.FixedNow.Add(time.Hour)))
	require.NoError(t, repo.Upsert(ctx, day))
	unsynced, err = repo.ListUnsynced(ctx)
	require.NoError(t, err)
	assert.Len(t, unsynced, 1)
}

func TestWorkdayRepo_PurgeSyncedRetainsUnsynced(t *testing.T) {
	database := testutil.NewTestDB(t)
	repo := NewSQLiteWorkdayRepo(database)
	events := NewSQLiteEventRepo(database)
	ctx := context.Background()

	day := testutil.NewTestWorkday("tech-1")
	require.NoError(t, day.EndDay(nil, testutil.FixedNow.Add(8*time.Hour)))
	require.NoError(t, repo.Upsert(ctx, day))
	for _, e := range day.Events {
		require.NoError(t, events.Append(ctx, e))
	}

	// Ended but not confirmed remote: retained.
	n, err := repo.PurgeSynced(ctx)
	require.NoError(t, err)
	assert.Equal(t, 0, n)

	require.NoError(t, repo.MarkSynced(ctx, []string{day.ID}))
	// Child events still unsynced: retained.
	n, err = repo.PurgeSynced(ctx)
	require.NoError(t, err)
	assert.Equal(t, 0, n)

	var ids []string
	for _, e := range day.Events {
		ids = append(ids, e.ID)
	}
	require.NoError(t, events.MarkSynced(ctx, ids))

	n, err = repo.PurgeSynced(ctx)
	require.NoError(t, err)
	assert.Equal(t, 1, n)

	_, err = repo.GetByID(ctx, day.ID)
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestWorkdayRepo_PurgeNeverTouchesRunningDays(t *testing.T) {
	database := testutil.NewTestDB(t)
	repo := NewSQLiteWorkdayRepo(database)
	ctx := context.Background()

	day := testutil.NewTestWorkday("tech-1")
	require.NoError(t, repo.Upsert(ctx, day))
	require.NoError(t, repo.MarkSynced(ctx, []string{day.ID}))

	n, err := repo.PurgeSynced(ctx)
	require.NoError(t, err)
	assert.Equal(t, 0, n)
}
