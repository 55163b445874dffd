package tracker

import (
	"context"
	"time"

	"github.com/cuadrantworks/fieldtrack/internal/domain"
	"github.com/cuadrantworks/fieldtrack/internal/prompt"
)

var _ prompt.Sink = (*Tracker)(nil)

// The tracker is the prompt gate's sink: decision outcomes re-enter the
// session through these callbacks, taking the same lock as every other
// mutation. The gate guarantees they arrive off the Evaluate call path.

// MarkPrompted notes that a decision of the given kind was obtained, which
// bounds how soon the gate re-asks.
func (t *Tracker) MarkPrompted(kind domain.EventType, at time.Time) {
	t.lock()
	defer t.unlock()
	if t.day == nil || t.day.Status == domain.WorkdayEnded {
		return
	}
	t.day.MarkPrompted(kind, at)
	if err := t.persist(context.Background(), t.day); err != nil {
		t.cfg.Log.Warn("persisting prompt timestamp", "error", err)
		return
	}
	t.afterMutation(context.Background())
}

// OpenJobIntake journals the prompt and surfaces the job intake dialog.
func (t *Tracker) OpenJobIntake(reason string, at time.Time) {
	t.lock()
	if t.day != nil && t.day.Status == domain.WorkdayTracking {
		t.day.RecordPrompt(domain.EventNewJobPrompt, nil, t.lastFix, at)
		if err := t.persist(context.Background(), t.day); err != nil {
			t.cfg.Log.Warn("persisting prompt event", "error", err)
		}
		t.afterMutation(context.Background())
	}
	t.unlock()
	t.cfg.Notifier.ShowJobIntake(reason)
}

// OpenCompletionIntake journals the prompt and surfaces the completion
// dialog pre-filled with the job's description.
func (t *Tracker) OpenCompletionIntake(jobID, description, reason string, at time.Time) {
	t.lock()
	if t.day != nil && t.day.Status == domain.WorkdayTracking {
		t.day.RecordPrompt(domain.EventJobCompletionPrompt, &jobID, t.lastFix, at)
		if err := t.persist(context.Background(), t.day); err != nil {
			t.cfg.Log.Warn("persisting prompt event", "error", err)
		}
		t.afterMutation(context.Background())
	}
	t.unlock()
	t.cfg.Notifier.ShowCompletionIntake(jobID, description, reason)
}

// NotifyFailure surfaces a failed decision call as a non-blocking notice.
// The equivalent manual action stays available throughout.
func (t *Tracker) NotifyFailure(kind domain.EventType, err error) {
	t.cfg.Log.Warn("decision call failed", "kind", string(kind), "error", err)
	t.cfg.Notifier.Notify("automatic prompt check failed; you can still start or complete jobs manually")
}
