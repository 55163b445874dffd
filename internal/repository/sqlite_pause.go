package repository

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/cuadrantworks/fieldtrack/internal/db"
	"github.com/cuadrantworks/fieldtrack/internal/domain"
)

const pauseColumns = `id, workday_id, started_at, start_location, ended_at, end_location, synced`

// SQLitePauseRepo implements PauseRepo using a SQLite database.
type SQLitePauseRepo struct {
	db db.DBTX
}

// NewSQLitePauseRepo creates a new SQLitePauseRepo.
func NewSQLitePauseRepo(db db.DBTX) *SQLitePauseRepo {
	return &SQLitePauseRepo{db: db}
}

func (r *SQLitePauseRepo) Upsert(ctx context.Context, p *domain.PauseInterval) error {
	startLoc, err := locationToJSON(p.StartLocation)
	if err != nil {
		return err
	}
	endLoc, err := locationToJSON(p.EndLocation)
	if err != nil {
		return err
	}

	query := `INSERT INTO pause_intervals (id, workday_id, started_at, start_location,
		ended_at, end_location, synced)
		VALUES (?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(id) DO UPDATE SET
			ended_at = excluded.ended_at,
			end_location = excluded.end_location,
			synced = excluded.synced`
	_, err = r.db.ExecContext(ctx, query,
		p.ID,
		p.WorkdayID,
		p.StartedAt.Format(time.RFC3339),
		startLoc,
		nullableTimeToString(p.EndedAt),
		endLoc,
		boolToInt(p.Synced),
	)
	if err != nil {
		return fmt.Errorf("upserting pause interval: %w", err)
	}
	return nil
}

func (r *SQLitePauseRepo) ListByWorkday(ctx context.Context, workdayID string) ([]*domain.PauseInterval, error) {
	query := `SELECT ` + pauseColumns + ` FROM pause_intervals WHERE workday_id = ? ORDER BY started_at`
	rows, err := r.db.QueryContext(ctx, query, workdayID)
	if err != nil {
		return nil, fmt.Errorf("listing pauses by workday: %w", err)
	}
	defer rows.Close()
	return r.scanPauses(rows)
}

func (r *SQLitePauseRepo) ListUnsynced(ctx context.Context) ([]*domain.PauseInterval, error) {
	query := `SELECT ` + pauseColumns + ` FROM pause_intervals WHERE synced = 0 ORDER BY started_at`
	rows, err := r.db.QueryContext(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("listing unsynced pauses: %w", err)
	}
	defer rows.Close()
	return r.scanPauses(rows)
}

func (r *SQLitePauseRepo) MarkSynced(ctx context.Context, ids []string) error {
	if len(ids) == 0 {
		return nil
	}
	placeholders, args := idPlaceholders(ids)
	query := `UPDATE pause_intervals SET synced = 1 WHERE id IN (` + placeholders + `)`
	if _, err := r.db.ExecContext(ctx, query, args...); err != nil {
		return fmt.Errorf("marking pauses synced: %w", err)
	}
	return nil
}

func (r *SQLitePauseRepo) scanPauses(rows *sql.Rows) ([]*domain.PauseInterval, error) {
	var pauses []*domain.PauseInterval
	for rows.Next() {
		var p domain.PauseInterval
		var startedAtStr string
		var startLoc, endLoc, endedAt sql.NullString
		var synced int

		err := rows.Scan(&p.ID, &p.WorkdayID, &startedAtStr, &startLoc, &endedAt, &endLoc, &synced)
		if err != nil {
			return nil, fmt.Errorf("scanning pause row: %w", err)
		}

		p.StartedAt, err = time.Parse(time.RFC3339, startedAtStr)
		if err != nil {
			return nil, fmt.Errorf("parsing pause started_at: %w", err)
		}
		if p.StartLocation, err = locationFromJSON(startLoc); err != nil {
			return nil, err
		}
		if p.EndLocation, err = locationFromJSON(endLoc); err != nil {
			return nil, err
		}
		p.EndedAt = parseNullableTime(endedAt)
		p.Synced = intToBool(synced)
		pauses = append(pauses, &p)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterating pauses: %w", err)
	}
	return pauses, nil
}
