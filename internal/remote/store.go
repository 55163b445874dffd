package remote

import (
	"context"
	"errors"
)

// ErrNotFound indicates the requested remote row does not exist.
var ErrNotFound = errors.New("remote row not found")

// Store is the remote persistence contract shared by the sync engine and
// the ingestion pipeline. Upserts are keyed by primary id and must be
// idempotent; raw locations are insert-only since they represent immutable
// point-in-time facts.
type Store interface {
	UpsertWorkdays(ctx context.Context, rows []WorkdayRow) error
	UpsertJobs(ctx context.Context, rows []JobRow) error
	UpsertPauses(ctx context.Context, rows []PauseRow) error
	UpsertEvents(ctx context.Context, rows []EventRow) error
	InsertRawLocations(ctx context.Context, rows []RawLocationRow) error

	// LatestWorkdayForTechnician returns the technician's most recent
	// workday in tracking or idle status.
	LatestWorkdayForTechnician(ctx context.Context, technicianID string) (*WorkdayRow, error)
	// ActiveJob returns the workday's single active job.
	ActiveJob(ctx context.Context, workdayID string) (*JobRow, error)
	// LastEventForJob returns the most recently recorded event referencing
	// the given job.
	LastEventForJob(ctx context.Context, workdayID, jobID string) (*EventRow, error)
	InsertEvent(ctx context.Context, row EventRow) error

	// Ping reports reachability; the sync engine uses it as its offline probe.
	Ping(ctx context.Context) error
}
