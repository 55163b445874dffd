package domain

import "time"

// Job is a bounded unit of on-site work nested within a Workday.
// Jobs are owned by their Workday and mutated only through it.
type Job struct {
	ID            string
	WorkdayID     string
	Description   string
	Status        JobStatus
	StartedAt     time.Time
	StartLocation *LocationPoint
	EndedAt       *time.Time
	EndLocation   *LocationPoint

	// TechnicianSummary is entered at completion; AISummary may arrive
	// asynchronously afterward.
	TechnicianSummary string
	AISummary         string

	Synced bool
}
