package domain

import "time"

// PauseInterval records a non-working interval within a Workday.
// An interval with no EndedAt is still open; at most one may be open.
type PauseInterval struct {
	ID            string
	WorkdayID     string
	StartedAt     time.Time
	StartLocation *LocationPoint
	EndedAt       *time.Time
	EndLocation   *LocationPoint
	Synced        bool
}

// Open reports whether the interval has not been closed yet.
func (p *PauseInterval) Open() bool {
	return p.EndedAt == nil
}

// Duration returns the closed interval length, or zero while still open.
func (p *PauseInterval) Duration() time.Duration {
	if p.EndedAt == nil {
		return 0
	}
	return p.EndedAt.Sub(p.StartedAt)
}
