package domain

import (
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/cuadrantworks/fieldtrack/internal/geo"
)

// Workday is the aggregate root for one technician's tracked session on a
// calendar date. Jobs, pauses, events and location history are owned by the
// workday and live and die with it; they are never created independently.
type Workday struct {
	ID           string
	TechnicianID string
	Date         string // calendar date, YYYY-MM-DD
	Status       WorkdayStatus

	StartedAt     time.Time
	StartLocation *LocationPoint
	EndedAt       *time.Time
	EndLocation   *LocationPoint

	Jobs            []*Job
	Pauses          []*PauseInterval
	Events          []*TrackingEvent
	LocationHistory []LocationPoint

	CurrentJobID           *string
	LastNewJobPromptAt     *time.Time
	LastCompletionPromptAt *time.Time

	Summary *DaySummary
	Synced  bool
}

// DaySummary is computed when the day ends.
type DaySummary struct {
	ActiveDuration time.Duration
	DistanceMeters float64
	JobsCompleted  int
}

// NewWorkday starts tracking for a technician. The start location may be
// absent (degraded but valid). Appends the SESSION_START journal entry.
func NewWorkday(technicianID string, loc *LocationPoint, now time.Time) *Workday {
	w := &Workday{
		ID:            uuid.New().String(),
		TechnicianID:  technicianID,
		Date:          now.UTC().Format("2006-01-02"),
		Status:        WorkdayTracking,
		StartedAt:     now,
		StartLocation: loc,
	}
	if loc != nil {
		w.LocationHistory = append(w.LocationHistory, *loc)
	}
	w.appendEvent(EventSessionStart, nil, loc, "", now)
	return w
}

// Pause transitions tracking -> paused and opens a new pause interval.
func (w *Workday) Pause(loc *LocationPoint, now time.Time) error {
	if w.Status != WorkdayTracking {
		return fmt.Errorf("%w: pause from %s", ErrInvalidTransition, w.Status)
	}
	w.Pauses = append(w.Pauses, &PauseInterval{
		ID:            uuid.New().String(),
		WorkdayID:     w.ID,
		StartedAt:     now,
		StartLocation: loc,
	})
	w.Status = WorkdayPaused
	w.Synced = false
	w.appendEvent(EventSessionPause, nil, loc, "", now)
	return nil
}

// Resume transitions paused -> tracking and closes the open pause interval.
func (w *Workday) Resume(loc *LocationPoint, now time.Time) error {
	if w.Status != WorkdayPaused {
		return fmt.Errorf("%w: resume from %s", ErrInvalidTransition, w.Status)
	}
	if p := w.OpenPause(); p != nil {
		p.EndedAt = &now
		p.EndLocation = loc
		p.Synced = false
	}
	w.Status = WorkdayTracking
	w.Synced = false
	w.appendEvent(EventSessionResume, nil, loc, "", now)
	return nil
}

// StartJob opens a new active job at the given site location. A valid
// location is mandatory; job sites anchor geofencing.
func (w *Workday) StartJob(description string, loc *LocationPoint, now time.Time) (*Job, error) {
	if w.Status != WorkdayTracking {
		return nil, fmt.Errorf("%w: start job from %s", ErrInvalidTransition, w.Status)
	}
	if w.ActiveJob() != nil {
		return nil, fmt.Errorf("%w: another job is already active", ErrInvalidTransition)
	}
	if loc == nil {
		return nil, fmt.Errorf("%w: starting a job", ErrLocationRequired)
	}
	j := &Job{
		ID:            uuid.New().String(),
		WorkdayID:     w.ID,
		Description:   description,
		Status:        JobActive,
		StartedAt:     now,
		StartLocation: loc,
	}
	w.Jobs = append(w.Jobs, j)
	w.CurrentJobID = &j.ID
	w.Synced = false
	w.appendEvent(EventJobStart, &j.ID, loc, description, now)
	return j, nil
}

// CompleteJob closes the referenced active job with the technician's summary.
func (w *Workday) CompleteJob(jobID, summary string, loc *LocationPoint, now time.Time) (*Job, error) {
	j := w.JobByID(jobID)
	if j == nil {
		return nil, fmt.Errorf("%w: %s", ErrJobNotFound, jobID)
	}
	if j.Status != JobActive {
		return nil, fmt.Errorf("%w: %s", ErrJobNotActive, jobID)
	}
	j.Status = JobCompleted
	j.EndedAt = &now
	j.EndLocation = loc
	j.TechnicianSummary = summary
	j.Synced = false
	w.CurrentJobID = nil
	w.Synced = false
	w.appendEvent(EventJobCompleted, &j.ID, loc, summary, now)
	return j, nil
}

// AttachAISummary records an asynchronously generated summary on an already
// existing job, re-marking it for sync without touching its status.
func (w *Workday) AttachAISummary(jobID, summary string) error {
	j := w.JobByID(jobID)
	if j == nil {
		return fmt.Errorf("%w: %s", ErrJobNotFound, jobID)
	}
	j.AISummary = summary
	j.Synced = false
	return nil
}

// EndDay finalizes the workday. It is refused while a job is still active:
// the caller must route the user through job completion first. An open
// pause interval is closed at the end time.
func (w *Workday) EndDay(loc *LocationPoint, now time.Time) error {
	if w.Status != WorkdayTracking && w.Status != WorkdayPaused {
		return fmt.Errorf("%w: end day from %s", ErrInvalidTransition, w.Status)
	}
	if w.ActiveJob() != nil {
		return ErrJobStillActive
	}
	if p := w.OpenPause(); p != nil {
		p.EndedAt = &now
		p.EndLocation = loc
		p.Synced = false
	}
	w.Status = WorkdayEnded
	w.EndedAt = &now
	w.EndLocation = loc
	w.Synced = false
	w.appendEvent(EventSessionEnd, nil, loc, "", now)

	completed := 0
	for _, j := range w.Jobs {
		if j.Status == JobCompleted {
			completed++
		}
	}
	w.Summary = &DaySummary{
		ActiveDuration: w.ElapsedActive(now),
		DistanceMeters: w.TotalDistance(),
		JobsCompleted:  completed,
	}
	return nil
}

// ElapsedActive returns time since session start minus closed pause
// durations, clamped at zero. Session start is the canonical reference
// basis. After the day has ended the end time replaces now.
func (w *Workday) ElapsedActive(now time.Time) time.Duration {
	end := now
	if w.EndedAt != nil {
		end = *w.EndedAt
	}
	d := end.Sub(w.StartedAt)
	for _, p := range w.Pauses {
		d -= p.Duration()
	}
	if d < 0 {
		return 0
	}
	return d
}

// TotalDistance sums great-circle distances over consecutive history points.
func (w *Workday) TotalDistance() float64 {
	var total float64
	for i := 1; i < len(w.LocationHistory); i++ {
		a, b := w.LocationHistory[i-1], w.LocationHistory[i]
		total += geo.Meters(a.Latitude, a.Longitude, b.Latitude, b.Longitude)
	}
	return total
}

// ActiveJob returns the single active job, or nil.
func (w *Workday) ActiveJob() *Job {
	for _, j := range w.Jobs {
		if j.Status == JobActive {
			return j
		}
	}
	return nil
}

// JobByID returns the job with the given id, or nil.
func (w *Workday) JobByID(id string) *Job {
	for _, j := range w.Jobs {
		if j.ID == id {
			return j
		}
	}
	return nil
}

// OpenPause returns the single pause interval without an end time, or nil.
func (w *Workday) OpenPause() *PauseInterval {
	for _, p := range w.Pauses {
		if p.Open() {
			return p
		}
	}
	return nil
}

// AppendLocation records a point in the workday's location history.
func (w *Workday) AppendLocation(p LocationPoint) {
	w.LocationHistory = append(w.LocationHistory, p)
	w.Synced = false
}

// LastLocation returns the most recent history point, or nil.
func (w *Workday) LastLocation() *LocationPoint {
	if len(w.LocationHistory) == 0 {
		return nil
	}
	return &w.LocationHistory[len(w.LocationHistory)-1]
}

// MarkPrompted updates the last-prompt timestamp for the given prompt kind.
// Called regardless of the decision outcome to bound re-evaluation frequency.
func (w *Workday) MarkPrompted(kind EventType, now time.Time) {
	switch kind {
	case EventNewJobPrompt:
		w.LastNewJobPromptAt = &now
	case EventJobCompletionPrompt:
		w.LastCompletionPromptAt = &now
	}
	w.Synced = false
}

// RecordPrompt journals a surfaced prompt of the given kind.
func (w *Workday) RecordPrompt(kind EventType, jobID *string, loc *LocationPoint, now time.Time) {
	w.appendEvent(kind, jobID, loc, "", now)
}

// RecordLocationUpdate journals a periodic history append.
func (w *Workday) RecordLocationUpdate(loc *LocationPoint, now time.Time) {
	w.appendEvent(EventLocationUpdate, nil, loc, "", now)
}

// RecordUserAction journals a manual user action.
func (w *Workday) RecordUserAction(detail string, now time.Time) {
	w.appendEvent(EventUserAction, nil, nil, detail, now)
}

// RecordError journals a non-fatal failure without changing session state.
func (w *Workday) RecordError(detail string, now time.Time) {
	w.appendEvent(EventError, nil, nil, detail, now)
}

func (w *Workday) appendEvent(t EventType, jobID *string, loc *LocationPoint, detail string, now time.Time) {
	w.Events = append(w.Events, &TrackingEvent{
		ID:          uuid.New().String(),
		WorkdayID:   w.ID,
		Type:        t,
		TimestampMs: now.UnixMilli(),
		JobID:       jobID,
		Location:    loc,
		Detail:      detail,
	})
}
