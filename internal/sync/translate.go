package sync

import (
	"time"

	"github.com/cuadrantworks/fieldtrack/internal/domain"
	"github.com/cuadrantworks/fieldtrack/internal/remote"
	"github.com/cuadrantworks/fieldtrack/internal/repository"
)

// Translation to the remote schema. Workdays, jobs and pauses convert their
// millisecond/local timestamps to ISO-8601 strings; events and raw samples
// keep epoch milliseconds. That asymmetry mirrors the remote schema and is
// intentional.

func isoTime(t time.Time) string {
	return t.UTC().Format(time.RFC3339)
}

func isoTimePtr(t *time.Time) *string {
	if t == nil {
		return nil
	}
	s := isoTime(*t)
	return &s
}

func locLat(p *domain.LocationPoint) *float64 {
	if p == nil {
		return nil
	}
	v := p.Latitude
	return &v
}

func locLon(p *domain.LocationPoint) *float64 {
	if p == nil {
		return nil
	}
	v := p.Longitude
	return &v
}

func workdayToRow(w *domain.Workday) remote.WorkdayRow {
	row := remote.WorkdayRow{
		ID:             w.ID,
		TechnicianID:   w.TechnicianID,
		Date:           w.Date,
		Status:         string(w.Status),
		StartedAt:      isoTime(w.StartedAt),
		StartLatitude:  locLat(w.StartLocation),
		StartLongitude: locLon(w.StartLocation),
		EndedAt:        isoTimePtr(w.EndedAt),
		EndLatitude:    locLat(w.EndLocation),
		EndLongitude:   locLon(w.EndLocation),
	}
	if w.Summary != nil {
		activeSec := int64(w.Summary.ActiveDuration.Seconds())
		distance := w.Summary.DistanceMeters
		completed := int64(w.Summary.JobsCompleted)
		row.ActiveSec = &activeSec
		row.DistanceMeters = &distance
		row.JobsCompleted = &completed
	}
	return row
}

func jobToRow(j *domain.Job) remote.JobRow {
	return remote.JobRow{
		ID:                j.ID,
		WorkdayID:         j.WorkdayID,
		Description:       j.Description,
		Status:            string(j.Status),
		StartedAt:         isoTime(j.StartedAt),
		StartLatitude:     locLat(j.StartLocation),
		StartLongitude:    locLon(j.StartLocation),
		EndedAt:           isoTimePtr(j.EndedAt),
		EndLatitude:       locLat(j.EndLocation),
		EndLongitude:      locLon(j.EndLocation),
		TechnicianSummary: j.TechnicianSummary,
		AISummary:         j.AISummary,
	}
}

func pauseToRow(p *domain.PauseInterval) remote.PauseRow {
	return remote.PauseRow{
		ID:             p.ID,
		WorkdayID:      p.WorkdayID,
		StartedAt:      isoTime(p.StartedAt),
		StartLatitude:  locLat(p.StartLocation),
		StartLongitude: locLon(p.StartLocation),
		EndedAt:        isoTimePtr(p.EndedAt),
		EndLatitude:    locLat(p.EndLocation),
		EndLongitude:   locLon(p.EndLocation),
	}
}

func eventToRow(e *domain.TrackingEvent) remote.EventRow {
	row := remote.EventRow{
		ID:          e.ID,
		WorkdayID:   e.WorkdayID,
		Type:        string(e.Type),
		TimestampMs: e.TimestampMs,
		JobID:       e.JobID,
		Detail:      e.Detail,
	}
	if e.Location != nil {
		row.Latitude = locLat(e.Location)
		row.Longitude = locLon(e.Location)
	}
	return row
}

func sampleToRow(s repository.LocationSample) remote.RawLocationRow {
	workdayID := s.WorkdayID
	return remote.RawLocationRow{
		WorkdayID:  &workdayID,
		Latitude:   s.Point.Latitude,
		Longitude:  s.Point.Longitude,
		Accuracy:   s.Point.Accuracy,
		RecordedMs: s.Point.TimestampMs,
		Processed:  true,
	}
}
