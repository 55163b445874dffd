package remote

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

// PostgresStore implements Store on a pgx connection pool.
type PostgresStore struct {
	db *pgxpool.Pool
}

// NewPostgresStore creates a PostgresStore backed by the given pool.
func NewPostgresStore(db *pgxpool.Pool) *PostgresStore {
	return &PostgresStore{db: db}
}

// Connect opens a pool for the given DSN and runs migrations.
func Connect(ctx context.Context, dsn string) (*PostgresStore, error) {
	pool, err := pgxpool.New(ctx, dsn)
	if err != nil {
		return nil, fmt.Errorf("connecting to remote store: %w", err)
	}
	if err := Migrate(ctx, pool); err != nil {
		pool.Close()
		return nil, err
	}
	return &PostgresStore{db: pool}, nil
}

// Close releases the underlying pool.
func (s *PostgresStore) Close() {
	s.db.Close()
}

func (s *PostgresStore) Ping(ctx context.Context) error {
	return s.db.Ping(ctx)
}

func (s *PostgresStore) UpsertWorkdays(ctx context.Context, rows []WorkdayRow) error {
	if len(rows) == 0 {
		return nil
	}
	batch := &pgx.Batch{}
	for _, r := range rows {
		batch.Queue(`
			INSERT INTO workdays (id, technician_id, date, status, started_at,
				start_latitude, start_longitude, ended_at, end_latitude, end_longitude,
				active_sec, distance_m, jobs_completed, updated_at)
			VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, now())
			ON CONFLICT (id) DO UPDATE SET
				status = excluded.status,
				ended_at = excluded.ended_at,
				end_latitude = excluded.end_latitude,
				end_longitude = excluded.end_longitude,
				active_sec = excluded.active_sec,
				distance_m = excluded.distance_m,
				jobs_completed = excluded.jobs_completed,
				updated_at = now()
		`, r.ID, r.TechnicianID, r.Date, r.Status, r.StartedAt,
			r.StartLatitude, r.StartLongitude, r.EndedAt, r.EndLatitude, r.EndLongitude,
			r.ActiveSec, r.DistanceMeters, r.JobsCompleted)
	}
	return s.sendBatch(ctx, batch, "workdays")
}

func (s *PostgresStore) UpsertJobs(ctx context.Context, rows []JobRow) error {
	if len(rows) == 0 {
		return nil
	}
	batch := &pgx.Batch{}
	for _, r := range rows {
		batch.Queue(`
			INSERT INTO jobs (id, workday_id, description, status, started_at,
				start_latitude, start_longitude, ended_at, end_latitude, end_longitude,
				technician_summary, ai_summary, updated_at)
			VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, now())
			ON CONFLICT (id) DO UPDATE SET
				status = excluded.status,
				ended_at = excluded.ended_at,
				end_latitude = excluded.end_latitude,
				end_longitude = excluded.end_longitude,
				technician_summary = excluded.technician_summary,
				ai_summary = excluded.ai_summary,
				updated_at = now()
		`, r.ID, r.WorkdayID, r.Description, r.Status, r.StartedAt,
			r.StartLatitude, r.StartLongitude, r.EndedAt, r.EndLatitude, r.EndLongitude,
			r.TechnicianSummary, r.AISummary)
	}
	return s.sendBatch(ctx, batch, "jobs")
}

func (s *PostgresStore) UpsertPauses(ctx context.Context, rows []PauseRow) error {
	if len(rows) == 0 {
		return nil
	}
	batch := &pgx.Batch{}
	for _, r := range rows {
		batch.Queue(`
			INSERT INTO pause_intervals (id, workday_id, started_at,
				start_latitude, start_longitude, ended_at, end_latitude, end_longitude, updated_at)
			VALUES ($1, $2, $3, $4, $5, $6, $7, $8, now())
			ON CONFLICT (id) DO UPDATE SET
				ended_at = excluded.ended_at,
				end_latitude = excluded.end_latitude,
				end_longitude = excluded.end_longitude,
				updated_at = now()
		`, r.ID, r.WorkdayID, r.StartedAt,
			r.StartLatitude, r.StartLongitude, r.EndedAt, r.EndLatitude, r.EndLongitude)
	}
	return s.sendBatch(ctx, batch, "pause_intervals")
}

func (s *PostgresStore) UpsertEvents(ctx context.Context, rows []EventRow) error {
	if len(rows) == 0 {
		return nil
	}
	batch := &pgx.Batch{}
	for _, r := range rows {
		// Journal entries never change; conflict means the row already
		// made it across on an earlier attempt.
		batch.Queue(`
			INSERT INTO tracking_events (id, workday_id, type, timestamp_ms, job_id, latitude, longitude, detail)
			VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
			ON CONFLICT (id) DO NOTHING
		`, r.ID, r.WorkdayID, r.Type, r.TimestampMs, r.JobID, r.Latitude, r.Longitude, r.Detail)
	}
	return s.sendBatch(ctx, batch, "tracking_events")
}

func (s *PostgresStore) InsertRawLocations(ctx context.Context, rows []RawLocationRow) error {
	if len(rows) == 0 {
		return nil
	}
	batch := &pgx.Batch{}
	for _, r := range rows {
		batch.Queue(`
			INSERT INTO raw_locations (device_id, workday_id, latitude, longitude,
				accuracy, altitude, heading, speed, recorded_ms, processed)
			VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)
		`, r.DeviceID, r.WorkdayID, r.Latitude, r.Longitude,
			r.Accuracy, r.Altitude, r.Heading, r.Speed, r.RecordedMs, r.Processed)
	}
	return s.sendBatch(ctx, batch, "raw_locations")
}

func (s *PostgresStore) sendBatch(ctx context.Context, batch *pgx.Batch, table string) error {
	br := s.db.SendBatch(ctx, batch)
	defer br.Close()
	for i := 0; i < batch.Len(); i++ {
		if _, err := br.Exec(); err != nil {
			return fmt.Errorf("batch write to %s (row %d): %w", table, i, err)
		}
	}
	return nil
}

func (s *PostgresStore) LatestWorkdayForTechnician(ctx context.Context, technicianID string) (*WorkdayRow, error) {
	var r WorkdayRow
	err := s.db.QueryRow(ctx, `
		SELECT id, technician_id, date, status, started_at,
			start_latitude, start_longitude, ended_at, end_latitude, end_longitude,
			active_sec, distance_m, jobs_completed
		FROM workdays
		WHERE technician_id = $1 AND status IN ('tracking', 'idle')
		ORDER BY started_at DESC
		LIMIT 1
	`, technicianID).Scan(
		&r.ID, &r.TechnicianID, &r.Date, &r.Status, &r.StartedAt,
		&r.StartLatitude, &r.StartLongitude, &r.EndedAt, &r.EndLatitude, &r.EndLongitude,
		&r.ActiveSec, &r.DistanceMeters, &r.JobsCompleted,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, fmt.Errorf("workday for technician %s: %w", technicianID, ErrNotFound)
		}
		return nil, fmt.Errorf("querying latest workday: %w", err)
	}
	return &r, nil
}

func (s *PostgresStore) ActiveJob(ctx context.Context, workdayID string) (*JobRow, error) {
	var r JobRow
	err := s.db.QueryRow(ctx, `
		SELECT id, workday_id, description, status, started_at,
			start_latitude, start_longitude, ended_at, end_latitude, end_longitude,
			technician_summary, ai_summary
		FROM jobs
		WHERE workday_id = $1 AND status = 'active'
		ORDER BY started_at DESC
		LIMIT 1
	`, workdayID).Scan(
		&r.ID, &r.WorkdayID, &r.Description, &r.Status, &r.StartedAt,
		&r.StartLatitude, &r.StartLongitude, &r.EndedAt, &r.EndLatitude, &r.EndLongitude,
		&r.TechnicianSummary, &r.AISummary,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, fmt.Errorf("active job for workday %s: %w", workdayID, ErrNotFound)
		}
		return nil, fmt.Errorf("querying active job: %w", err)
	}
	return &r, nil
}

func (s *PostgresStore) LastEventForJob(ctx context.Context, workdayID, jobID string) (*EventRow, error) {
	var r EventRow
	err := s.db.QueryRow(ctx, `
		SELECT id, workday_id, type, timestamp_ms, job_id, latitude, longitude, detail
		FROM tracking_events
		WHERE workday_id = $1 AND job_id = $2
		ORDER BY timestamp_ms DESC, id DESC
		LIMIT 1
	`, workdayID, jobID).Scan(
		&r.ID, &r.WorkdayID, &r.Type, &r.TimestampMs, &r.JobID, &r.Latitude, &r.Longitude, &r.Detail,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, fmt.Errorf("events for job %s: %w", jobID, ErrNotFound)
		}
		return nil, fmt.Errorf("querying last job event: %w", err)
	}
	return &r, nil
}

func (s *PostgresStore) InsertEvent(ctx context.Context, row EventRow) error {
	_, err := s.db.Exec(ctx, `
		INSERT INTO tracking_events (id, workday_id, type, timestamp_ms, job_id, latitude, longitude, detail)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
		ON CONFLICT (id) DO NOTHING
	`, row.ID, row.WorkdayID, row.Type, row.TimestampMs, row.JobID, row.Latitude, row.Longitude, row.Detail)
	if err != nil {
		return fmt.Errorf("inserting tracking event: %w", err)
	}
	return nil
}
