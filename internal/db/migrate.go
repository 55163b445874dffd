package db

import (
	"database/sql"
	"fmt"
	"strings"
)

// Migrate runs all schema migrations for the device-local store.
func Migrate(db *sql.DB) error {
	for i, stmt := range migrations {
		if _, err := db.Exec(stmt); err != nil {
			// Tolerate "duplicate column name" errors from ALTER TABLE
			// since the migration system re-runs all statements.
			if strings.Contains(err.Error(), "duplicate column name") {
				continue
			}
			return fmt.Errorf("migration %d: %w", i, err)
		}
	}
	return nil
}

var migrations = []string{
	`CREATE TABLE IF NOT EXISTS workdays (
		id                        TEXT PRIMARY KEY,
		technician_id             TEXT NOT NULL,
		date                      TEXT NOT NULL,
		status                    TEXT NOT NULL DEFAULT 'idle'
		                          CHECK(status IN ('idle','tracking','paused','ended')),
		started_at                TEXT NOT NULL,
		start_location            TEXT,
		ended_at                  TEXT,
		end_location              TEXT,
		current_job_id            TEXT,
		last_new_job_prompt_at    TEXT,
		last_completion_prompt_at TEXT,
		summary_active_sec        INTEGER,
		summary_distance_m        REAL,
		summary_jobs_completed    INTEGER,
		synced                    INTEGER NOT NULL DEFAULT 0,
		created_at                TEXT NOT NULL,
		updated_at                TEXT NOT NULL
	)`,

	`CREATE INDEX IF NOT EXISTS idx_workdays_technician ON workdays(technician_id, started_at)`,
	`CREATE INDEX IF NOT EXISTS idx_workdays_synced ON workdays(synced)`,

	`CREATE TABLE IF NOT EXISTS jobs (
		id                 TEXT PRIMARY KEY,
		workday_id         TEXT NOT NULL REFERENCES workdays(id) ON DELETE CASCADE,
		description        TEXT NOT NULL DEFAULT '',
		status             TEXT NOT NULL DEFAULT 'active'
		                   CHECK(status IN ('active','completed')),
		started_at         TEXT NOT NULL,
		start_location     TEXT,
		ended_at           TEXT,
		end_location       TEXT,
		technician_summary TEXT NOT NULL DEFAULT '',
		ai_summary         TEXT NOT NULL DEFAULT '',
		synced             INTEGER NOT NULL DEFAULT 0
	)`,

	`CREATE INDEX IF NOT EXISTS idx_jobs_workday ON jobs(workday_id)`,
	`CREATE INDEX IF NOT EXISTS idx_jobs_synced ON jobs(synced)`,

	`CREATE TABLE IF NOT EXISTS pause_intervals (
		id             TEXT PRIMARY KEY,
		workday_id     TEXT NOT NULL REFERENCES workdays(id) ON DELETE CASCADE,
		started_at     TEXT NOT NULL,
		start_location TEXT,
		ended_at       TEXT,
		end_location   TEXT,
		synced         INTEGER NOT NULL DEFAULT 0
	)`,

	`CREATE INDEX IF NOT EXISTS idx_pauses_workday ON pause_intervals(workday_id)`,
	`CREATE INDEX IF NOT EXISTS idx_pauses_synced ON pause_intervals(synced)`,

	// Journal entries keep epoch-millisecond timestamps end to end; they
	// sync to the remote store verbatim.
	`CREATE TABLE IF NOT EXISTS tracking_events (
		id           TEXT PRIMARY KEY,
		workday_id   TEXT NOT NULL REFERENCES workdays(id) ON DELETE CASCADE,
		type         TEXT NOT NULL,
		timestamp_ms INTEGER NOT NULL,
		job_id       TEXT,
		location     TEXT,
		detail       TEXT NOT NULL DEFAULT '',
		synced       INTEGER NOT NULL DEFAULT 0
	)`,

	`CREATE INDEX IF NOT EXISTS idx_events_workday ON tracking_events(workday_id)`,
	`CREATE INDEX IF NOT EXISTS idx_events_synced ON tracking_events(synced)`,

	// Raw samples use an auto-incrementing surrogate key; they are
	// immutable point-in-time facts and sync insert-only.
	`CREATE TABLE IF NOT EXISTS location_samples (
		id           INTEGER PRIMARY KEY AUTOINCREMENT,
		workday_id   TEXT NOT NULL REFERENCES workdays(id) ON DELETE CASCADE,
		latitude     REAL NOT NULL,
		longitude    REAL NOT NULL,
		accuracy     REAL,
		timestamp_ms INTEGER NOT NULL,
		synced       INTEGER NOT NULL DEFAULT 0
	)`,

	`CREATE INDEX IF NOT EXISTS idx_samples_workday ON location_samples(workday_id)`,
	`CREATE INDEX IF NOT EXISTS idx_samples_synced ON location_samples(synced)`,
}
