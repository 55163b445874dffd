package remote

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5/pgxpool"
)

var schema = []string{
	`CREATE TABLE IF NOT EXISTS workdays (
		id              TEXT PRIMARY KEY,
		technician_id   TEXT NOT NULL,
		date            TEXT NOT NULL,
		status          TEXT NOT NULL,
		started_at      TEXT NOT NULL,
		start_latitude  DOUBLE PRECISION,
		start_longitude DOUBLE PRECISION,
		ended_at        TEXT,
		end_latitude    DOUBLE PRECISION,
		end_longitude   DOUBLE PRECISION,
		active_sec      BIGINT,
		distance_m      DOUBLE PRECISION,
		jobs_completed  BIGINT,
		updated_at      TIMESTAMPTZ NOT NULL DEFAULT now()
	)`,

	`CREATE INDEX IF NOT EXISTS idx_workdays_technician ON workdays(technician_id, started_at)`,

	`CREATE TABLE IF NOT EXISTS jobs (
		id                 TEXT PRIMARY KEY,
		workday_id         TEXT NOT NULL,
		description        TEXT NOT NULL DEFAULT '',
		status             TEXT NOT NULL,
		started_at         TEXT NOT NULL,
		start_latitude     DOUBLE PRECISION,
		start_longitude    DOUBLE PRECISION,
		ended_at           TEXT,
		end_latitude       DOUBLE PRECISION,
		end_longitude      DOUBLE PRECISION,
		technician_summary TEXT NOT NULL DEFAULT '',
		ai_summary         TEXT NOT NULL DEFAULT '',
		updated_at         TIMESTAMPTZ NOT NULL DEFAULT now()
	)`,

	`CREATE INDEX IF NOT EXISTS idx_jobs_workday ON jobs(workday_id)`,

	`CREATE TABLE IF NOT EXISTS pause_intervals (
		id              TEXT PRIMARY KEY,
		workday_id      TEXT NOT NULL,
		started_at      TEXT NOT NULL,
		start_latitude  DOUBLE PRECISION,
		start_longitude DOUBLE PRECISION,
		ended_at        TEXT,
		end_latitude    DOUBLE PRECISION,
		end_longitude   DOUBLE PRECISION,
		updated_at      TIMESTAMPTZ NOT NULL DEFAULT now()
	)`,

	`CREATE INDEX IF NOT EXISTS idx_pauses_workday ON pause_intervals(workday_id)`,

	// Events and raw locations keep epoch-millisecond integers.
	`CREATE TABLE IF NOT EXISTS tracking_events (
		id           TEXT PRIMARY KEY,
		workday_id   TEXT NOT NULL,
		type         TEXT NOT NULL,
		timestamp_ms BIGINT NOT NULL,
		job_id       TEXT,
		latitude     DOUBLE PRECISION,
		longitude    DOUBLE PRECISION,
		detail       TEXT NOT NULL DEFAULT ''
	)`,

	`CREATE INDEX IF NOT EXISTS idx_events_workday ON tracking_events(workday_id, timestamp_ms)`,
	`CREATE INDEX IF NOT EXISTS idx_events_job ON tracking_events(job_id, timestamp_ms)`,

	`CREATE TABLE IF NOT EXISTS raw_locations (
		id          BIGSERIAL PRIMARY KEY,
		device_id   TEXT,
		workday_id  TEXT,
		latitude    DOUBLE PRECISION NOT NULL,
		longitude   DOUBLE PRECISION NOT NULL,
		accuracy    DOUBLE PRECISION,
		altitude    DOUBLE PRECISION,
		heading     DOUBLE PRECISION,
		speed       DOUBLE PRECISION,
		recorded_ms BIGINT NOT NULL,
		processed   BOOLEAN NOT NULL DEFAULT false
	)`,

	`CREATE INDEX IF NOT EXISTS idx_raw_locations_device ON raw_locations(device_id, recorded_ms)`,
}

// Migrate creates the remote tables if they do not exist yet.
func Migrate(ctx context.Context, pool *pgxpool.Pool) error {
	for i, stmt := range schema {
		if _, err := pool.Exec(ctx, stmt); err != nil {
			return fmt.Errorf("remote migration %d: %w", i, err)
		}
	}
	return nil
}
