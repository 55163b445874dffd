package ingest

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/google/uuid"

	"github.com/cuadrantworks/fieldtrack/internal/domain"
	"github.com/cuadrantworks/fieldtrack/internal/geo"
	"github.com/cuadrantworks/fieldtrack/internal/remote"
)

// GeofenceRadiusMeters is the distance from a job site beyond which a ping
// counts as having left the site.
const GeofenceRadiusMeters = 200.0

// Geofencer evaluates a normalized ping against the technician's active job
// site. It holds no state between pings; every decision reads the remote
// store directly.
type Geofencer struct {
	store remote.Store
	log   *slog.Logger
}

// NewGeofencer creates a Geofencer over the given store.
func NewGeofencer(store remote.Store, log *slog.Logger) *Geofencer {
	return &Geofencer{store: store, log: log}
}

// Process emits a GEOFENCE_EXIT event when the ping is more than the
// geofence radius away from the active job's site and the job's latest
// event is neither a previous exit nor its completion.
//
// The check-then-insert step is not atomic: two concurrent over-threshold
// pings for the same device can both observe no prior exit and both insert
// one. Resolving that needs a uniqueness constraint on the remote side or a
// per-job serialization point; until then duplicates are possible and
// tolerated downstream.
func (g *Geofencer) Process(ctx context.Context, p Ping) error {
	// Only technician-shaped device ids participate in geofencing.
	if _, err := uuid.Parse(p.DeviceID); err != nil {
		return nil
	}

	wd, err := g.store.LatestWorkdayForTechnician(ctx, p.DeviceID)
	if errors.Is(err, remote.ErrNotFound) {
		return nil
	}
	if err != nil {
		return fmt.Errorf("looking up workday: %w", err)
	}

	job, err := g.store.ActiveJob(ctx, wd.ID)
	if errors.Is(err, remote.ErrNotFound) {
		return nil
	}
	if err != nil {
		return fmt.Errorf("looking up active job: %w", err)
	}
	if job.StartLatitude == nil || job.StartLongitude == nil {
		return nil
	}

	dist := geo.Meters(p.Latitude, p.Longitude, *job.StartLatitude, *job.StartLongitude)
	if dist <= GeofenceRadiusMeters {
		return nil
	}

	last, err := g.store.LastEventForJob(ctx, wd.ID, job.ID)
	if err != nil && !errors.Is(err, remote.ErrNotFound) {
		return fmt.Errorf("looking up last job event: %w", err)
	}
	if last != nil {
		switch last.Type {
		case string(domain.EventGeofenceExit), string(domain.EventJobCompleted):
			return nil
		}
	}

	ev := remote.EventRow{
		ID:          uuid.New().String(),
		WorkdayID:   wd.ID,
		Type:        string(domain.EventGeofenceExit),
		TimestampMs: p.RecordedMs,
		JobID:       &job.ID,
		Latitude:    &p.Latitude,
		Longitude:   &p.Longitude,
		Detail:      fmt.Sprintf("distance_m=%.0f", dist),
	}
	if err := g.store.InsertEvent(ctx, ev); err != nil {
		return fmt.Errorf("inserting geofence event: %w", err)
	}

	g.log.Info("geofence exit recorded",
		"technician_id", p.DeviceID,
		"workday_id", wd.ID,
		"job_id", job.ID,
		"distance_m", dist)
	return nil
}
