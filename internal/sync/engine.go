// Package sync reconciles the device-local store with the remote store.
// Each of the five tables is pushed independently: a failure in one table
// is recorded and retried later without blocking the others.
package sync

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	"github.com/cuadrantworks/fieldtrack/internal/remote"
	"github.com/cuadrantworks/fieldtrack/internal/repository"
)

// DefaultRetryInterval is how often a failed pass is retried.
const DefaultRetryInterval = 60 * time.Second

// ConnectivityProbe reports whether the remote store is reachable. While
// offline, SyncAll is a deliberate no-op rather than an error.
type ConnectivityProbe interface {
	Online(ctx context.Context) bool
}

// PingProbe treats a successful store ping as being online.
type PingProbe struct {
	Store remote.Store
}

func (p PingProbe) Online(ctx context.Context) bool {
	ctx, cancel := context.WithTimeout(ctx, 3*time.Second)
	defer cancel()
	return p.Store.Ping(ctx) == nil
}

// Engine pushes unsynced local rows to the remote store. Passes are
// serialized by a mutex; overlapping callers coalesce onto one pass, and a
// fully synced store yields empty selections, so invocation is idempotent
// and at-least-once safe.
type Engine struct {
	workdays repository.WorkdayRepo
	jobs     repository.JobRepo
	pauses   repository.PauseRepo
	events   repository.EventRepo
	samples  repository.SampleRepo
	remote   remote.Store
	probe    ConnectivityProbe
	observer Observer

	retryInterval time.Duration

	mu         sync.Mutex
	lastFailed atomic.Bool
	kickCh     chan struct{}
}

// Config carries the engine's collaborators.
type Config struct {
	Workdays repository.WorkdayRepo
	Jobs     repository.JobRepo
	Pauses   repository.PauseRepo
	Events   repository.EventRepo
	Samples  repository.SampleRepo
	Remote   remote.Store
	Probe    ConnectivityProbe
	Observer Observer
	// RetryInterval overrides the failed-pass retry cadence (testing).
	RetryInterval time.Duration
}

// NewEngine creates a sync engine. A nil probe defaults to pinging the
// remote store; a nil observer is a no-op.
func NewEngine(cfg Config) *Engine {
	if cfg.Probe == nil {
		cfg.Probe = PingProbe{Store: cfg.Remote}
	}
	if cfg.Observer == nil {
		cfg.Observer = NoopObserver{}
	}
	if cfg.RetryInterval <= 0 {
		cfg.RetryInterval = DefaultRetryInterval
	}
	return &Engine{
		workdays:      cfg.Workdays,
		jobs:          cfg.Jobs,
		pauses:        cfg.Pauses,
		events:        cfg.Events,
		samples:       cfg.Samples,
		remote:        cfg.Remote,
		probe:         cfg.Probe,
		observer:      cfg.Observer,
		retryInterval: cfg.RetryInterval,
		kickCh:        make(chan struct{}, 1),
	}
}

// SyncAll reconciles every table once. Per-table failures are collected and
// returned joined; successfully pushed rows are marked synced regardless of
// other tables' outcomes.
func (e *Engine) SyncAll(ctx context.Context) error {
	e.mu.Lock()
	defer e.mu.Unlock()

	if !e.probe.Online(ctx) {
		return nil
	}

	var failures []error
	for _, pass := range []struct {
		table string
		fn    func(context.Context) (int, error)
	}{
		{"workdays", e.syncWorkdays},
		{"jobs", e.syncJobs},
		{"pause_intervals", e.syncPauses},
		{"tracking_events", e.syncEvents},
		{"location_samples", e.syncSamples},
	} {
		start := time.Now()
		rows, err := pass.fn(ctx)
		e.observer.ObserveTableSync(ctx, TableSyncEvent{
			Table:    pass.table,
			Rows:     rows,
			Duration: time.Since(start),
			Err:      err,
		})
		if err != nil {
			failures = append(failures, fmt.Errorf("%s: %w", pass.table, err))
		}
	}

	e.lastFailed.Store(len(failures) > 0)

	// Ended workdays are retained locally until the whole aggregate has
	// been confirmed remote; only a clean pass makes purging safe.
	if len(failures) == 0 {
		if _, err := e.workdays.PurgeSynced(ctx); err != nil {
			return fmt.Errorf("purging synced workdays: %w", err)
		}
	}
	return errors.Join(failures...)
}

// Kick requests an opportunistic pass, typically right after a local
// mutation. Non-blocking; a pending kick absorbs further ones.
func (e *Engine) Kick() {
	select {
	case e.kickCh <- struct{}{}:
	default:
	}
}

// Run services kicks and retries failed passes on a fixed timer until the
// context is canceled.
func (e *Engine) Run(ctx context.Context) {
	ticker := time.NewTicker(e.retryInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-e.kickCh:
			_ = e.SyncAll(ctx)
		case <-ticker.C:
			if e.lastFailed.Load() {
				_ = e.SyncAll(ctx)
			}
		}
	}
}

// LastFailed reports whether the most recent pass left any table unsynced.
func (e *Engine) LastFailed() bool {
	return e.lastFailed.Load()
}

func (e *Engine) syncWorkdays(ctx context.Context) (int, error) {
	local, err := e.workdays.ListUnsynced(ctx)
	if err != nil {
		return 0, err
	}
	if len(local) == 0 {
		return 0, nil
	}
	rows := make([]remote.WorkdayRow, len(local))
	ids := make([]string, len(local))
	for i, w := range local {
		rows[i] = workdayToRow(w)
		ids[i] = w.ID
	}
	if err := e.remote.UpsertWorkdays(ctx, rows); err != nil {
		return len(rows), err
	}
	return len(rows), e.workdays.MarkSynced(ctx, ids)
}

func (e *Engine) syncJobs(ctx context.Context) (int, error) {
	local, err := e.jobs.ListUnsynced(ctx)
	if err != nil {
		return 0, err
	}
	if len(local) == 0 {
		return 0, nil
	}
	rows := make([]remote.JobRow, len(local))
	ids := make([]string, len(local))
	for i, j := range local {
		rows[i] = jobToRow(j)
		ids[i] = j.ID
	}
	if err := e.remote.UpsertJobs(ctx, rows); err != nil {
		return len(rows), err
	}
	return len(rows), e.jobs.MarkSynced(ctx, ids)
}

func (e *Engine) syncPauses(ctx context.Context) (int, error) {
	local, err := e.pauses.ListUnsynced(ctx)
	if err != nil {
		return 0, err
	}
	if len(local) == 0 {
		return 0, nil
	}
	rows := make([]remote.PauseRow, len(local))
	ids := make([]string, len(local))
	for i, p := range local {
		rows[i] = pauseToRow(p)
		ids[i] = p.ID
	}
	if err := e.remote.UpsertPauses(ctx, rows); err != nil {
		return len(rows), err
	}
	return len(rows), e.pauses.MarkSynced(ctx, ids)
}

func (e *Engine) syncEvents(ctx context.Context) (int, error) {
	local, err := e.events.ListUnsynced(ctx)
	if err != nil {
		return 0, err
	}
	if len(local) == 0 {
		return 0, nil
	}
	rows := make([]remote.EventRow, len(local))
	ids := make([]string, len(local))
	for i, ev := range local {
		rows[i] = eventToRow(ev)
		ids[i] = ev.ID
	}
	if err := e.remote.UpsertEvents(ctx, rows); err != nil {
		return len(rows), err
	}
	return len(rows), e.events.MarkSynced(ctx, ids)
}

func (e *Engine) syncSamples(ctx context.Context) (int, error) {
	local, err := e.samples.ListUnsynced(ctx)
	if err != nil {
		return 0, err
	}
	if len(local) == 0 {
		return 0, nil
	}
	rows := make([]remote.RawLocationRow, len(local))
	ids := make([]int64, len(local))
	for i, s := range local {
		rows[i] = sampleToRow(s)
		ids[i] = s.ID
	}
	// Samples are immutable facts: insert-only, never upserted.
	if err := e.remote.InsertRawLocations(ctx, rows); err != nil {
		return len(rows), err
	}
	return len(rows), e.samples.MarkSynced(ctx, ids)
}
