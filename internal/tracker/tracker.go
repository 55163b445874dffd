// Package tracker owns the device-local session runtime: one in-memory
// workday aggregate mutated through a single mutex, persisted transactionally
// to the local store on every change, with the sync engine kicked after each
// successful write.
package tracker

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/cuadrantworks/fieldtrack/internal/db"
	"github.com/cuadrantworks/fieldtrack/internal/domain"
	"github.com/cuadrantworks/fieldtrack/internal/prompt"
	"github.com/cuadrantworks/fieldtrack/internal/repository"
)

const (
	// DefaultStaleThreshold is the age beyond which a location fix counts
	// as a degraded signal rather than a usable position.
	DefaultStaleThreshold = time.Hour

	defaultElapsedInterval = time.Second
	defaultHistoryInterval = time.Minute
)

// ErrNoActiveDay indicates there is no workday to act on.
var ErrNoActiveDay = errors.New("no active workday")

// ErrDayAlreadyStarted indicates a workday is already running.
var ErrDayAlreadyStarted = errors.New("workday already started")

// Kicker requests an opportunistic sync pass. The sync engine implements it.
type Kicker interface {
	Kick()
}

// Notifier surfaces prompts and notices to whatever front end is attached.
// All methods must be non-blocking.
type Notifier interface {
	ShowJobIntake(reason string)
	ShowCompletionIntake(jobID, description, reason string)
	Notify(message string)
}

// Config carries the tracker's collaborators.
type Config struct {
	TechnicianID string

	DB   db.DBTX
	UoW  db.UnitOfWork
	Sync Kicker

	// Client talks to the decision service. Nil disables gated prompts.
	Client prompt.DecisionClient
	Gate   prompt.GateConfig

	Notifier Notifier
	Log      *slog.Logger

	// OnElapsed, when set, receives the active duration on every elapsed
	// tick.
	OnElapsed func(d time.Duration)

	ElapsedInterval time.Duration
	HistoryInterval time.Duration
	StaleThreshold  time.Duration
}

// Tracker serializes all mutations of one technician's workday. Exactly one
// mutation is ever in flight; tickers, location callbacks and prompt sink
// callbacks all funnel through the same mutex.
type Tracker struct {
	cfg  Config
	gate *prompt.Gate

	workdays repository.WorkdayRepo
	jobs     repository.JobRepo
	pauses   repository.PauseRepo
	events   repository.EventRepo
	samples  repository.SampleRepo

	mu       sync.Mutex
	nowFn    func() time.Time
	day      *domain.Workday
	lastFix  *domain.LocationPoint
	degraded bool
}

// New creates a tracker. The prompt gate is wired back to the tracker, which
// acts as its sink.
func New(cfg Config) *Tracker {
	if cfg.ElapsedInterval <= 0 {
		cfg.ElapsedInterval = defaultElapsedInterval
	}
	if cfg.HistoryInterval <= 0 {
		cfg.HistoryInterval = defaultHistoryInterval
	}
	if cfg.StaleThreshold <= 0 {
		cfg.StaleThreshold = DefaultStaleThreshold
	}
	if cfg.Notifier == nil {
		cfg.Notifier = noopNotifier{}
	}
	if cfg.Log == nil {
		cfg.Log = slog.New(slog.DiscardHandler)
	}

	t := &Tracker{
		cfg:      cfg,
		workdays: repository.NewSQLiteWorkdayRepo(cfg.DB),
		jobs:     repository.NewSQLiteJobRepo(cfg.DB),
		pauses:   repository.NewSQLitePauseRepo(cfg.DB),
		events:   repository.NewSQLiteEventRepo(cfg.DB),
		samples:  repository.NewSQLiteSampleRepo(cfg.DB),
		nowFn:    func() time.Time { return time.Now().UTC() },
	}
	if cfg.Client != nil {
		t.gate = prompt.NewGate(cfg.Client, t, cfg.Gate)
	}
	return t
}

func (t *Tracker) lock()   { t.mu.Lock() }
func (t *Tracker) unlock() { t.mu.Unlock() }

// Load resumes the technician's most recent unfinished workday, if any,
// rebuilding the aggregate from the local store.
func (t *Tracker) Load(ctx context.Context) error {
	t.lock()
	defer t.unlock()

	day, err := t.workdays.LatestByTechnician(ctx, t.cfg.TechnicianID)
	if errors.Is(err, repository.ErrNotFound) {
		return nil
	}
	if err != nil {
		return fmt.Errorf("loading latest workday: %w", err)
	}
	if day.Status == domain.WorkdayEnded {
		return nil
	}

	if day.Jobs, err = t.jobs.ListByWorkday(ctx, day.ID); err != nil {
		return fmt.Errorf("loading jobs: %w", err)
	}
	if day.Pauses, err = t.pauses.ListByWorkday(ctx, day.ID); err != nil {
		return fmt.Errorf("loading pauses: %w", err)
	}
	if day.Events, err = t.events.ListByWorkday(ctx, day.ID); err != nil {
		return fmt.Errorf("loading events: %w", err)
	}
	rows, err := t.samples.ListByWorkday(ctx, day.ID)
	if err != nil {
		return fmt.Errorf("loading location history: %w", err)
	}
	for _, r := range rows {
		day.LocationHistory = append(day.LocationHistory, r.Point)
	}
	if j := day.ActiveJob(); j != nil {
		day.CurrentJobID = &j.ID
	}

	t.day = day
	if p := day.LastLocation(); p != nil {
		t.lastFix = p
	}
	t.cfg.Log.Info("resumed workday", "workday_id", day.ID, "status", string(day.Status))
	return nil
}

// StartDay begins tracking. The start location may be absent; tracking then
// starts in a degraded state until a fix arrives.
func (t *Tracker) StartDay(ctx context.Context, loc *domain.LocationPoint) (*domain.Workday, error) {
	t.lock()
	defer t.unlock()

	if t.day != nil && t.day.Status != domain.WorkdayEnded {
		return nil, ErrDayAlreadyStarted
	}

	day := domain.NewWorkday(t.cfg.TechnicianID, loc, t.now())
	if err := t.persist(ctx, day); err != nil {
		return nil, err
	}
	t.day = day
	if loc != nil {
		t.lastFix = loc
	}
	t.afterMutation(ctx)
	return day, nil
}

// PauseDay transitions tracking to paused.
func (t *Tracker) PauseDay(ctx context.Context) error {
	return t.mutate(ctx, func(day *domain.Workday, now time.Time) error {
		return day.Pause(t.lastFix, now)
	})
}

// ResumeDay transitions paused back to tracking.
func (t *Tracker) ResumeDay(ctx context.Context) error {
	return t.mutate(ctx, func(day *domain.Workday, now time.Time) error {
		return day.Resume(t.lastFix, now)
	})
}

// StartJob opens a job at the current position. A usable fix is required;
// job sites anchor geofencing.
func (t *Tracker) StartJob(ctx context.Context, description string) (*domain.Job, error) {
	var job *domain.Job
	err := t.mutate(ctx, func(day *domain.Workday, now time.Time) error {
		j, err := day.StartJob(description, t.lastFix, now)
		if err != nil {
			return err
		}
		job = j
		return nil
	})
	if err != nil {
		return nil, err
	}
	t.resolvePrompt()
	return job, nil
}

// CompleteJob closes the job with the technician's summary.
func (t *Tracker) CompleteJob(ctx context.Context, jobID, summary string) (*domain.Job, error) {
	var job *domain.Job
	err := t.mutate(ctx, func(day *domain.Workday, now time.Time) error {
		j, err := day.CompleteJob(jobID, summary, t.lastFix, now)
		if err != nil {
			return err
		}
		job = j
		return nil
	})
	if err != nil {
		return nil, err
	}
	t.resolvePrompt()
	return job, nil
}

// AttachAISummary stores an asynchronously generated summary on a job.
func (t *Tracker) AttachAISummary(ctx context.Context, jobID, summary string) error {
	return t.mutate(ctx, func(day *domain.Workday, _ time.Time) error {
		return day.AttachAISummary(jobID, summary)
	})
}

// EndDay finalizes the workday. Refused while a job is still active; the
// caller routes the user through completion first.
func (t *Tracker) EndDay(ctx context.Context) error {
	return t.mutate(ctx, func(day *domain.Workday, now time.Time) error {
		return day.EndDay(t.lastFix, now)
	})
}

// DismissPrompt closes an open intake dialog without acting on it.
func (t *Tracker) DismissPrompt(ctx context.Context) {
	t.lock()
	if t.day != nil {
		t.day.RecordUserAction("prompt dismissed", t.now())
		if err := t.persist(ctx, t.day); err != nil {
			t.cfg.Log.Warn("persisting dismissal", "error", err)
		}
	}
	t.unlock()
	t.resolvePrompt()
}

// OnLocation receives a fix from the platform's location watch. A stale fix
// flips the session into a degraded state instead of failing; a fresh one
// clears it and feeds the prompt gate.
func (t *Tracker) OnLocation(ctx context.Context, p domain.LocationPoint) {
	t.lock()
	defer t.unlock()

	if t.day == nil || t.day.Status == domain.WorkdayEnded {
		return
	}

	now := t.now()
	if now.Sub(p.Time()) > t.cfg.StaleThreshold {
		if !t.degraded {
			t.degraded = true
			t.day.RecordError("stale location signal", now)
			if err := t.persist(ctx, t.day); err != nil {
				t.cfg.Log.Warn("persisting stale-signal event", "error", err)
			}
			t.cfg.Notifier.Notify("location signal is stale; tracking continues without fresh coordinates")
		}
		return
	}

	t.degraded = false
	t.lastFix = &p
	if t.gate != nil {
		t.gate.Evaluate(ctx, t.day, now)
	}
}

// Elapsed returns the current active duration, zero when no day is running.
func (t *Tracker) Elapsed() time.Duration {
	t.lock()
	defer t.unlock()
	if t.day == nil {
		return 0
	}
	return t.day.ElapsedActive(t.now())
}

// Current returns the live workday, or nil. Callers must treat it as
// read-only; all mutations go through the tracker.
func (t *Tracker) Current() *domain.Workday {
	t.lock()
	defer t.unlock()
	return t.day
}

// Run drives the elapsed ticker and the periodic location-history append
// until the context is canceled.
func (t *Tracker) Run(ctx context.Context) {
	elapsed := time.NewTicker(t.cfg.ElapsedInterval)
	defer elapsed.Stop()
	history := time.NewTicker(t.cfg.HistoryInterval)
	defer history.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-elapsed.C:
			t.elapsedTick(ctx)
		case <-history.C:
			t.historyTick(ctx)
		}
	}
}

func (t *Tracker) elapsedTick(ctx context.Context) {
	t.lock()
	defer t.unlock()
	if t.day == nil || t.day.Status == domain.WorkdayEnded {
		return
	}
	now := t.now()
	if t.cfg.OnElapsed != nil {
		t.cfg.OnElapsed(t.day.ElapsedActive(now))
	}
	if t.gate != nil {
		t.gate.Evaluate(ctx, t.day, now)
	}
}

// historyTick appends the latest usable fix to the workday's location
// history and journals a LOCATION_UPDATE. The matching sample row is what
// later reconciles into the remote raw-location table.
func (t *Tracker) historyTick(ctx context.Context) {
	t.lock()
	defer t.unlock()
	if t.day == nil || t.day.Status != domain.WorkdayTracking || t.lastFix == nil {
		return
	}

	fix := *t.lastFix
	t.day.AppendLocation(fix)
	t.day.RecordLocationUpdate(&fix, t.now())
	if _, err := t.samples.Insert(ctx, t.day.ID, fix); err != nil {
		t.cfg.Log.Warn("storing location sample", "error", err)
	}
	if err := t.persist(ctx, t.day); err != nil {
		t.cfg.Log.Warn("persisting location history", "error", err)
		return
	}
	t.afterMutation(ctx)
}

// mutate runs one state transition under the lock, persists the whole
// aggregate, and kicks the sync engine. A local persistence failure aborts
// the action and is returned to the caller.
func (t *Tracker) mutate(ctx context.Context, fn func(day *domain.Workday, now time.Time) error) error {
	t.lock()
	defer t.unlock()

	if t.day == nil {
		return ErrNoActiveDay
	}
	if err := fn(t.day, t.now()); err != nil {
		return err
	}
	if err := t.persist(ctx, t.day); err != nil {
		return err
	}
	t.afterMutation(ctx)
	return nil
}

// persist writes the aggregate transactionally. Events are append-only and
// conflict-free, so re-appending the full journal is idempotent.
func (t *Tracker) persist(ctx context.Context, day *domain.Workday) error {
	err := t.cfg.UoW.WithinTx(ctx, func(ctx context.Context, tx db.DBTX) error {
		txWorkdays := repository.NewSQLiteWorkdayRepo(tx)
		txJobs := repository.NewSQLiteJobRepo(tx)
		txPauses := repository.NewSQLitePauseRepo(tx)
		txEvents := repository.NewSQLiteEventRepo(tx)

		if err := txWorkdays.Upsert(ctx, day); err != nil {
			return err
		}
		for _, j := range day.Jobs {
			if err := txJobs.Upsert(ctx, j); err != nil {
				return err
			}
		}
		for _, p := range day.Pauses {
			if err := txPauses.Upsert(ctx, p); err != nil {
				return err
			}
		}
		for _, e := range day.Events {
			if err := txEvents.Append(ctx, e); err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		return fmt.Errorf("persisting workday: %w", err)
	}
	return nil
}

func (t *Tracker) afterMutation(context.Context) {
	if t.cfg.Sync != nil {
		t.cfg.Sync.Kick()
	}
}

func (t *Tracker) resolvePrompt() {
	if t.gate != nil {
		t.gate.PromptResolved()
	}
}

func (t *Tracker) now() time.Time {
	return t.nowFn()
}

type noopNotifier struct{}

func (noopNotifier) ShowJobIntake(string)                 {}
func (noopNotifier) ShowCompletionIntake(string, string, string) {}
func (noopNotifier) Notify(string)                        {}
