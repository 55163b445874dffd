package repository

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/cuadrantworks/fieldtrack/internal/db"
	"github.com/cuadrantworks/fieldtrack/internal/domain"
)

const workdayColumns = `id, technician_id, date, status, started_at, start_location,
	ended_at, end_location, current_job_id,
	last_new_job_prompt_at, last_completion_prompt_at,
	summary_active_sec, summary_distance_m, summary_jobs_completed, synced`

// SQLiteWorkdayRepo implements WorkdayRepo using a SQLite database.
type SQLiteWorkdayRepo struct {
	db db.DBTX
}

// NewSQLiteWorkdayRepo creates a new SQLiteWorkdayRepo.
func NewSQLiteWorkdayRepo(db db.DBTX) *SQLiteWorkdayRepo {
	return &SQLiteWorkdayRepo{db: db}
}

func (r *SQLiteWorkdayRepo) Upsert(ctx context.Context, w *domain.Workday) error {
	startLoc, err := locationToJSON(w.StartLocation)
	if err != nil {
		return err
	}
	endLoc, err := locationToJSON(w.EndLocation)
	if err != nil {
		return err
	}

	var activeSec, jobsCompleted interface{}
	var distanceM interface{}
	if w.Summary != nil {
		activeSec = int64(w.Summary.ActiveDuration.Seconds())
		distanceM = w.Summary.DistanceMeters
		jobsCompleted = w.Summary.JobsCompleted
	}

	query := `INSERT INTO workdays (id, technician_id, date, status, started_at, start_location,
		ended_at, end_location, current_job_id,
		last_new_job_prompt_at, last_completion_prompt_at,
		summary_active_sec, summary_distance_m, summary_jobs_completed,
		synced, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(id) DO UPDATE SET
			status = excluded.status,
			ended_at = excluded.ended_at,
			end_location = excluded.end_location,
			current_job_id = excluded.current_job_id,
			last_new_job_prompt_at = excluded.last_new_job_prompt_at,
			last_completion_prompt_at = excluded.last_completion_prompt_at,
			summary_active_sec = excluded.summary_active_sec,
			summary_distance_m = excluded.summary_distance_m,
			summary_jobs_completed = excluded.summary_jobs_completed,
			synced = excluded.synced,
			updated_at = excluded.updated_at`
	_, err = r.db.ExecContext(ctx, query,
		w.ID,
		w.TechnicianID,
		w.Date,
		string(w.Status),
		w.StartedAt.Format(time.RFC3339),
		startLoc,
		nullableTimeToString(w.EndedAt),
		endLoc,
		nullableString(w.CurrentJobID),
		nullableTimeToString(w.LastNewJobPromptAt),
		nullableTimeToString(w.LastCompletionPromptAt),
		activeSec,
		distanceM,
		jobsCompleted,
		boolToInt(w.Synced),
		nowUTC(),
		nowUTC(),
	)
	if err != nil {
		return fmt.Errorf("upserting workday: %w", err)
	}
	return nil
}

func (r *SQLiteWorkdayRepo) GetByID(ctx context.Context, id string) (*domain.Workday, error) {
	query := `SELECT ` + workdayColumns + ` FROM workdays WHERE id = ?`
	return r.scanWorkday(r.db.QueryRowContext(ctx, query, id))
}

func (r *SQLiteWorkdayRepo) LatestByTechnician(ctx context.Context, technicianID string) (*domain.Workday, error) {
	query := `SELECT ` + workdayColumns + ` FROM workdays
		WHERE technician_id = ? ORDER BY started_at DESC LIMIT 1`
	return r.scanWorkday(r.db.QueryRowContext(ctx, query, technicianID))
}

func (r *SQLiteWorkdayRepo) ListUnsynced(ctx context.Context) ([]*domain.Workday, error) {
	query := `SELECT ` + workdayColumns + ` FROM workdays WHERE synced = 0 ORDER BY started_at`
	rows, err := r.db.QueryContext(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("listing unsynced workdays: %w", err)
	}
	defer rows.Close()

	var out []*domain.Workday
	for rows.Next() {
		w, err := r.scanWorkdayRow(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, w)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterating workdays: %w", err)
	}
	return out, nil
}

func (r *SQLiteWorkdayRepo) MarkSynced(ctx context.Context, ids []string) error {
	if len(ids) == 0 {
		return nil
	}
	placeholders, args := idPlaceholders(ids)
	query := `UPDATE workdays SET synced = 1 WHERE id IN (` + placeholders + `)`
	if _, err := r.db.ExecContext(ctx, query, args...); err != nil {
		return fmt.Errorf("marking workdays synced: %w", err)
	}
	return nil
}

func (r *SQLiteWorkdayRepo) PurgeSynced(ctx context.Context) (int, error) {
	// Only remove days where the full aggregate is confirmed on the remote.
	query := `DELETE FROM workdays WHERE status = 'ended' AND synced = 1
		AND NOT EXISTS (SELECT 1 FROM jobs j WHERE j.workday_id = workdays.id AND j.synced = 0)
		AND NOT EXISTS (SELECT 1 FROM pause_intervals p WHERE p.workday_id = workdays.id AND p.synced = 0)
		AND NOT EXISTS (SELECT 1 FROM tracking_events e WHERE e.workday_id = workdays.id AND e.synced = 0)
		AND NOT EXISTS (SELECT 1 FROM location_samples s WHERE s.workday_id = workdays.id AND s.synced = 0)`
	res, err := r.db.ExecContext(ctx, query)
	if err != nil {
		return 0, fmt.Errorf("purging synced workdays: %w", err)
	}
	n, _ := res.RowsAffected()
	return int(n), nil
}

type workdayScanner interface {
	Scan(dest ...any) error
}

func (r *SQLiteWorkdayRepo) scanWorkday(row *sql.Row) (*domain.Workday, error) {
	w, err := r.scan(row)
	if err == sql.ErrNoRows {
		return nil, fmt.Errorf("workday: %w", ErrNotFound)
	}
	return w, err
}

func (r *SQLiteWorkdayRepo) scanWorkdayRow(rows *sql.Rows) (*domain.Workday, error) {
	return r.scan(rows)
}

func (r *SQLiteWorkdayRepo) scan(row workdayScanner) (*domain.Workday, error) {
	var w domain.Workday
	var status, startedAtStr string
	var startLoc, endLoc, endedAt, currentJob, lastNewPrompt, lastCompletionPrompt sql.NullString
	var activeSec, jobsCompleted sql.NullInt64
	var distanceM sql.NullFloat64
	var synced int

	err := row.Scan(
		&w.ID, &w.TechnicianID, &w.Date, &status, &startedAtStr, &startLoc,
		&endedAt, &endLoc, &currentJob,
		&lastNewPrompt, &lastCompletionPrompt,
		&activeSec, &distanceM, &jobsCompleted, &synced,
	)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, err
		}
		return nil, fmt.Errorf("scanning workday: %w", err)
	}

	w.Status = domain.WorkdayStatus(status)
	w.StartedAt, err = time.Parse(time.RFC3339, startedAtStr)
	if err != nil {
		return nil, fmt.Errorf("parsing started_at: %w", err)
	}
	if w.StartLocation, err = locationFromJSON(startLoc); err != nil {
		return nil, err
	}
	if w.EndLocation, err = locationFromJSON(endLoc); err != nil {
		return nil, err
	}
	w.EndedAt = parseNullableTime(endedAt)
	w.CurrentJobID = stringPtr(currentJob)
	w.LastNewJobPromptAt = parseNullableTime(lastNewPrompt)
	w.LastCompletionPromptAt = parseNullableTime(lastCompletionPrompt)
	if activeSec.Valid {
		w.Summary = &domain.DaySummary{
			ActiveDuration: time.Duration(activeSec.Int64) * time.Second,
			DistanceMeters: distanceM.Float64,
			JobsCompleted:  int(jobsCompleted.Int64),
		}
	}
	w.Synced = intToBool(synced)
	return &w, nil
}
