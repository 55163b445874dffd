package repository

import (
	"context"

	"github.com/cuadrantworks/fieldtrack/internal/domain"
)

// LocationSample is one raw GPS history row. Samples use an auto-incrementing
// surrogate key and are immutable once written.
type LocationSample struct {
	ID        int64
	WorkdayID string
	Point     domain.LocationPoint
	Synced    bool
}

type WorkdayRepo interface {
	// Upsert writes the workday row only; children are persisted through
	// their own repositories.
	Upsert(ctx context.Context, w *domain.Workday) error
	GetByID(ctx context.Context, id string) (*domain.Workday, error)
	// LatestByTechnician returns the most recently started workday for the
	// technician, regardless of status.
	LatestByTechnician(ctx context.Context, technicianID string) (*domain.Workday, error)
	ListUnsynced(ctx context.Context) ([]*domain.Workday, error)
	MarkSynced(ctx context.Context, ids []string) error
	// PurgeSynced removes ended workdays whose entire aggregate has been
	// confirmed synced. Ended-but-unsynced days are retained.
	PurgeSynced(ctx context.Context) (int, error)
}

type JobRepo interface {
	Upsert(ctx context.Context, j *domain.Job) error
	ListByWorkday(ctx context.Context, workdayID string) ([]*domain.Job, error)
	ListUnsynced(ctx context.Context) ([]*domain.Job, error)
	MarkSynced(ctx context.Context, ids []string) error
}

type PauseRepo interface {
	Upsert(ctx context.Context, p *domain.PauseInterval) error
	ListByWorkday(ctx context.Context, workdayID string) ([]*domain.PauseInterval, error)
	ListUnsynced(ctx context.Context) ([]*domain.PauseInterval, error)
	MarkSynced(ctx context.Context, ids []string) error
}

type EventRepo interface {
	// Append inserts a journal entry. Events are append-only: no update
	// path exists besides the synced flag.
	Append(ctx context.Context, e *domain.TrackingEvent) error
	ListByWorkday(ctx context.Context, workdayID string) ([]*domain.TrackingEvent, error)
	ListUnsynced(ctx context.Context) ([]*domain.TrackingEvent, error)
	MarkSynced(ctx context.Context, ids []string) error
}

type SampleRepo interface {
	Insert(ctx context.Context, workdayID string, p domain.LocationPoint) (int64, error)
	ListByWorkday(ctx context.Context, workdayID string) ([]LocationSample, error)
	ListUnsynced(ctx context.Context) ([]LocationSample, error)
	MarkSynced(ctx context.Context, ids []int64) error
}
