package repository

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/cuadrantworks/fieldtrack/internal/db"
	"github.com/cuadrantworks/fieldtrack/internal/domain"
)

const jobColumns = `id, workday_id, description, status, started_at, start_location,
	ended_at, end_location, technician_summary, ai_summary, synced`

// SQLiteJobRepo implements JobRepo using a SQLite database.
type SQLiteJobRepo struct {
	db db.DBTX
}

// NewSQLiteJobRepo creates a new SQLiteJobRepo.
func NewSQLiteJobRepo(db db.DBTX) *SQLiteJobRepo {
	return &SQLiteJobRepo{db: db}
}

func (r *SQLiteJobRepo) Upsert(ctx context.Context, j *domain.Job) error {
	startLoc, err := locationToJSON(j.StartLocation)
	if err != nil {
		return err
	}
	endLoc, err := locationToJSON(j.EndLocation)
	if err != nil {
		return err
	}

	query := `INSERT INTO jobs (id, workday_id, description, status, started_at, start_location,
		ended_at, end_location, technician_summary, ai_summary, synced)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(id) DO UPDATE SET
			status = excluded.status,
			ended_at = excluded.ended_at,
			end_location = excluded.end_location,
			technician_summary = excluded.technician_summary,
			ai_summary = excluded.ai_summary,
			synced = excluded.synced`
	_, err = r.db.ExecContext(ctx, query,
		j.ID,
		j.WorkdayID,
		j.Description,
		string(j.Status),
		j.StartedAt.Format(time.RFC3339),
		startLoc,
		nullableTimeToString(j.EndedAt),
		endLoc,
		j.TechnicianSummary,
		j.AISummary,
		boolToInt(j.Synced),
	)
	if err != nil {
		return fmt.Errorf("upserting job: %w", err)
	}
	return nil
}

func (r *SQLiteJobRepo) ListByWorkday(ctx context.Context, workdayID string) ([]*domain.Job, error) {
	query := `SELECT ` + jobColumns + ` FROM jobs WHERE workday_id = ? ORDER BY started_at`
	rows, err := r.db.QueryContext(ctx, query, workdayID)
	if err != nil {
		return nil, fmt.Errorf("listing jobs by workday: %w", err)
	}
	defer rows.Close()
	return r.scanJobs(rows)
}

func (r *SQLiteJobRepo) ListUnsynced(ctx context.Context) ([]*domain.Job, error) {
	query := `SELECT ` + jobColumns + ` FROM jobs WHERE synced = 0 ORDER BY started_at`
	rows, err := r.db.QueryContext(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("listing unsynced jobs: %w", err)
	}
	defer rows.Close()
	return r.scanJobs(rows)
}

func (r *SQLiteJobRepo) MarkSynced(ctx context.Context, ids []string) error {
	if len(ids) == 0 {
		return nil
	}
	placeholders, args := idPlaceholders(ids)
	query := `UPDATE jobs SET synced = 1 WHERE id IN (` + placeholders + `)`
	if _, err := r.db.ExecContext(ctx, query, args...); err != nil {
		return fmt.Errorf("marking jobs synced: %w", err)
	}
	return nil
}

func (r *SQLiteJobRepo) scanJobs(rows *sql.Rows) ([]*domain.Job, error) {
	var jobs []*domain.Job
	for rows.Next() {
		var j domain.Job
		var status, startedAtStr string
		var startLoc, endLoc, endedAt sql.NullString
		var synced int

		err := rows.Scan(
			&j.ID, &j.WorkdayID, &j.Description, &status, &startedAtStr, &startLoc,
			&endedAt, &endLoc, &j.TechnicianSummary, &j.AISummary, &synced,
		)
		if err != nil {
			return nil, fmt.Errorf("scanning job row: %w", err)
		}

		j.Status = domain.JobStatus(status)
		j.StartedAt, err = time.Parse(time.RFC3339, startedAtStr)
		if err != nil {
			return nil, fmt.Errorf("parsing job started_at: %w", err)
		}
		if j.StartLocation, err = locationFromJSON(startLoc); err != nil {
			return nil, err
		}
		if j.EndLocation, err = locationFromJSON(endLoc); err != nil {
			return nil, err
		}
		j.EndedAt = parseNullableTime(endedAt)
		j.Synced = intToBool(synced)
		jobs = append(jobs, &j)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterating jobs: %w", err)
	}
	return jobs, nil
}
