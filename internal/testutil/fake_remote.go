package testutil

import (
	"context"
	"fmt"
	"sync"

	"github.com/cuadrantworks/fieldtrack/internal/remote"
)

// FakeRemote is an in-memory remote.Store for tests. Individual tables can
// be made to fail to exercise partial-failure isolation.
type FakeRemote struct {
	mu sync.Mutex

	Workdays     map[string]remote.WorkdayRow
	Jobs         map[string]remote.JobRow
	Pauses       map[string]remote.PauseRow
	Events       []remote.EventRow
	RawLocations []remote.RawLocationRow

	// FailTable, when set, makes writes to that table fail.
	FailTable string
	// Offline makes Ping fail.
	Offline bool

	WriteCalls int
}

// NewFakeRemote creates an empty in-memory store.
func NewFakeRemote() *FakeRemote {
	return &FakeRemote{
		Workdays: make(map[string]remote.WorkdayRow),
		Jobs:     make(map[string]remote.JobRow),
		Pauses:   make(map[string]remote.PauseRow),
	}
}

func (f *FakeRemote) failing(table string) error {
	if f.FailTable == table {
		return fmt.Errorf("injected %s failure", table)
	}
	return nil
}

func (f *FakeRemote) UpsertWorkdays(_ context.Context, rows []remote.WorkdayRow) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.WriteCalls++
	if err := f.failing("workdays"); err != nil {
		return err
	}
	for _, r := range rows {
		f.Workdays[r.ID] = r
	}
	return nil
}

func (f *FakeRemote) UpsertJobs(_ context.Context, rows []remote.JobRow) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.WriteCalls++
	if err := f.failing("jobs"); err != nil {
		return err
	}
	for _, r := range rows {
		f.Jobs[r.ID] = r
	}
	return nil
}

func (f *FakeRemote) UpsertPauses(_ context.Context, rows []remote.PauseRow) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.WriteCalls++
	if err := f.failing("pause_intervals"); err != nil {
		return err
	}
	for _, r := range rows {
		f.Pauses[r.ID] = r
	}
	return nil
}

func (f *FakeRemote) UpsertEvents(_ context.Context, rows []remote.EventRow) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.WriteCalls++
	if err := f.failing("tracking_events"); err != nil {
		return err
	}
	for _, r := range rows {
		if !f.hasEventLocked(r.ID) {
			f.Events = append(f.Events, r)
		}
	}
	return nil
}

func (f *FakeRemote) InsertRawLocations(_ context.Context, rows []remote.RawLocationRow) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.WriteCalls++
	if err := f.failing("raw_locations"); err != nil {
		return err
	}
	f.RawLocations = append(f.RawLocations, rows...)
	return nil
}

func (f *FakeRemote) LatestWorkdayForTechnician(_ context.Context, technicianID string) (*remote.WorkdayRow, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	var best *remote.WorkdayRow
	for id := range f.Workdays {
		r := f.Workdays[id]
		if r.TechnicianID != technicianID {
			continue
		}
		if r.Status != "tracking" && r.Status != "idle" {
			continue
		}
		if best == nil || r.StartedAt > best.StartedAt {
			copied := r
			best = &copied
		}
	}
	if best == nil {
		return nil, fmt.Errorf("workday for technician %s: %w", technicianID, remote.ErrNotFound)
	}
	return best, nil
}

func (f *FakeRemote) ActiveJob(_ context.Context, workdayID string) (*remote.JobRow, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	for id := range f.Jobs {
		r := f.Jobs[id]
		if r.WorkdayID == workdayID && r.Status == "active" {
			copied := r
			return &copied, nil
		}
	}
	return nil, fmt.Errorf("active job for workday %s: %w", workdayID, remote.ErrNotFound)
}

func (f *FakeRemote) LastEventForJob(_ context.Context, workdayID, jobID string) (*remote.EventRow, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	for i := len(f.Events) - 1; i >= 0; i-- {
		e := f.Events[i]
		if e.WorkdayID == workdayID && e.JobID != nil && *e.JobID == jobID {
			return &e, nil
		}
	}
	return nil, fmt.Errorf("events for job %s: %w", jobID, remote.ErrNotFound)
}

func (f *FakeRemote) InsertEvent(_ context.Context, row remote.EventRow) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if err := f.failing("tracking_events"); err != nil {
		return err
	}
	if !f.hasEventLocked(row.ID) {
		f.Events = append(f.Events, row)
	}
	return nil
}

func (f *FakeRemote) Ping(context.Context) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.Offline {
		return fmt.Errorf("remote unreachable")
	}
	return nil
}

// EventsOfType returns all stored events with the given type.
func (f *FakeRemote) EventsOfType(t string) []remote.EventRow {
	f.mu.Lock()
	defer f.mu.Unlock()
	var out []remote.EventRow
	for _, e := range f.Events {
		if e.Type == t {
			out = append(out, e)
		}
	}
	return out
}

func (f *FakeRemote) hasEventLocked(id string) bool {
	for _, e := range f.Events {
		if e.ID == id {
			return true
		}
	}
	return false
}
