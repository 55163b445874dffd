package prompt

import (
	"context"
	"sync/atomic"
	"time"

	"github.com/cuadrantworks/fieldtrack/internal/domain"
	"github.com/cuadrantworks/fieldtrack/internal/geo"
)

// Sink receives the outcomes of decision calls. The tracker implements it;
// its methods journal events, persist, and surface intake dialogs. Callbacks
// arrive from the gate's worker goroutine, never while the caller of
// Evaluate still holds its own lock.
type Sink interface {
	// MarkPrompted records that a decision of the given kind was obtained,
	// whatever the answer was.
	MarkPrompted(kind domain.EventType, at time.Time)

	// OpenJobIntake surfaces the new-job prompt to the technician.
	OpenJobIntake(reason string, at time.Time)

	// OpenCompletionIntake surfaces the completion prompt for the given job.
	OpenCompletionIntake(jobID, description, reason string, at time.Time)

	// NotifyFailure reports a failed decision call. Session state is
	// unaffected; tracking continues.
	NotifyFailure(kind domain.EventType, err error)
}

// Gate decides when to consult the decision service about surfacing a
// prompt, and keeps at most one consultation and one open prompt at a time.
type Gate struct {
	client DecisionClient
	sink   Sink
	cfg    GateConfig

	inFlight   atomic.Bool
	promptOpen atomic.Bool
}

// NewGate wires a decision client to a sink.
func NewGate(client DecisionClient, sink Sink, cfg GateConfig) *Gate {
	return &Gate{client: client, sink: sink, cfg: cfg}
}

// PromptResolved tells the gate the open intake dialog has been answered or
// dismissed, re-arming evaluation.
func (g *Gate) PromptResolved() {
	g.promptOpen.Store(false)
}

// Evaluate inspects the workday and, when a policy matches, consults the
// decision service on a background goroutine. The workday must be stable
// for the duration of the call; all features are captured before returning.
// While a call is in flight or a prompt is open, Evaluate does nothing.
func (g *Gate) Evaluate(ctx context.Context, w *domain.Workday, now time.Time) {
	if g.inFlight.Load() || g.promptOpen.Load() {
		return
	}
	if w == nil || w.Status != domain.WorkdayTracking {
		return
	}

	if job := w.ActiveJob(); job != nil {
		g.evaluateCompletion(ctx, w, job, now)
		return
	}
	g.evaluateNewJob(ctx, w, now)
}

func (g *Gate) evaluateNewJob(ctx context.Context, w *domain.Workday, now time.Time) {
	if recentlyChecked(w.LastNewJobPromptAt, now, g.cfg.RecheckInterval) {
		return
	}
	still := stillnessDuration(w.LocationHistory, now, g.cfg.MovementThresholdMeters)
	if still < g.cfg.StillnessWindow {
		return
	}

	stillSec := int64(still / time.Second)
	recent := w.LastNewJobPromptAt != nil && now.Sub(*w.LastNewJobPromptAt) < g.cfg.RepromptWindow
	req := DecisionRequest{
		Kind:             KindNewJob,
		StillnessSec:     &stillSec,
		RecentlyPrompted: &recent,
	}
	g.dispatch(ctx, req, domain.EventNewJobPrompt, "", "")
}

func (g *Gate) evaluateCompletion(ctx context.Context, w *domain.Workday, job *domain.Job, now time.Time) {
	if recentlyChecked(w.LastCompletionPromptAt, now, g.cfg.RecheckInterval) {
		return
	}
	last := w.LastLocation()
	if last == nil || job.StartLocation == nil {
		return
	}
	dist := geo.Meters(last.Latitude, last.Longitude,
		job.StartLocation.Latitude, job.StartLocation.Longitude)
	if dist <= g.cfg.MovementThresholdMeters {
		return
	}

	req := DecisionRequest{
		Kind:           KindJobCompletion,
		DistanceMeters: &dist,
	}
	if w.LastCompletionPromptAt != nil {
		sec := int64(now.Sub(*w.LastCompletionPromptAt) / time.Second)
		req.SecSinceLastPrompt = &sec
	}
	g.dispatch(ctx, req, domain.EventJobCompletionPrompt, job.ID, job.Description)
}

// dispatch runs the decision call without blocking the caller. jobID and
// description are only set for completion prompts.
func (g *Gate) dispatch(ctx context.Context, req DecisionRequest, kind domain.EventType, jobID, description string) {
	if !g.inFlight.CompareAndSwap(false, true) {
		return
	}
	go func() {
		defer g.inFlight.Store(false)

		dec, err := g.client.Decide(ctx, req)
		if err != nil {
			g.sink.NotifyFailure(kind, err)
			return
		}

		now := time.Now().UTC()
		g.sink.MarkPrompted(kind, now)
		if !dec.ShouldPrompt {
			return
		}

		g.promptOpen.Store(true)
		switch kind {
		case domain.EventNewJobPrompt:
			g.sink.OpenJobIntake(dec.Reason, now)
		case domain.EventJobCompletionPrompt:
			g.sink.OpenCompletionIntake(jobID, description, dec.Reason, now)
		}
	}()
}

// recentlyChecked bounds how often the same decision is re-requested.
func recentlyChecked(last *time.Time, now time.Time, interval time.Duration) bool {
	return last != nil && now.Sub(*last) < interval
}

// stillnessDuration returns how long the technician has stayed within
// threshold meters of their latest position. It walks the history backwards
// to the most recent point that lies outside the threshold; everything
// after it counts as still. With no such point the whole history is still.
func stillnessDuration(history []domain.LocationPoint, now time.Time, threshold float64) time.Duration {
	if len(history) == 0 {
		return 0
	}
	anchor := history[len(history)-1]
	sinceTs := history[0].TimestampMs
	for i := len(history) - 2; i >= 0; i-- {
		p := history[i]
		d := geo.Meters(anchor.Latitude, anchor.Longitude, p.Latitude, p.Longitude)
		if d > threshold {
			sinceTs = history[i+1].TimestampMs
			break
		}
	}
	still := now.Sub(time.UnixMilli(sinceTs))
	if still < 0 {
		return 0
	}
	return still
}
