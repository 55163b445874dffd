// Package remote talks to the networked relational store that device-local
// data reconciles into. Row types mirror the remote snake_case schema:
// workdays, jobs and pauses carry ISO-8601 timestamp strings while events
// and raw locations keep epoch-millisecond integers. The asymmetry is
// deliberate and must be preserved as-is.
package remote

// WorkdayRow is the remote projection of a workday.
type WorkdayRow struct {
	ID             string
	TechnicianID   string
	Date           string
	Status         string
	StartedAt      string // ISO-8601
	StartLatitude  *float64
	StartLongitude *float64
	EndedAt        *string // ISO-8601
	EndLatitude    *float64
	EndLongitude   *float64
	ActiveSec      *int64
	DistanceMeters *float64
	JobsCompleted  *int64
}

// JobRow is the remote projection of a job.
type JobRow struct {
	ID                string
	WorkdayID         string
	Description       string
	Status            string
	StartedAt         string // ISO-8601
	StartLatitude     *float64
	StartLongitude    *float64
	EndedAt           *string // ISO-8601
	EndLatitude       *float64
	EndLongitude      *float64
	TechnicianSummary string
	AISummary         string
}

// PauseRow is the remote projection of a pause interval.
type PauseRow struct {
	ID             string
	WorkdayID      string
	StartedAt      string // ISO-8601
	StartLatitude  *float64
	StartLongitude *float64
	EndedAt        *string // ISO-8601
	EndLatitude    *float64
	EndLongitude   *float64
}

// EventRow is the remote projection of a tracking event. Timestamps stay
// in epoch milliseconds.
type EventRow struct {
	ID          string
	WorkdayID   string
	Type        string
	TimestampMs int64
	JobID       *string
	Latitude    *float64
	Longitude   *float64
	Detail      string
}

// RawLocationRow is one immutable location fact. Rows written by the
// ingestion endpoint carry a device id; rows reconciled from a device's
// local history carry a workday id. Timestamps stay in epoch milliseconds.
type RawLocationRow struct {
	DeviceID    *string
	WorkdayID   *string
	Latitude    float64
	Longitude   float64
	Accuracy    *float64
	Altitude    *float64
	Heading     *float64
	Speed       *float64
	RecordedMs  int64
	Processed   bool
}
