package repository

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/cuadrantworks/fieldtrack/internal/db"
	"github.com/cuadrantworks/fieldtrack/internal/domain"
)

const eventColumns = `id, workday_id, type, timestamp_ms, job_id, location, detail, synced`

// SQLiteEventRepo implements EventRepo using a SQLite database.
// The journal is append-only; rows are never updated except for the
// synced flag, and never deleted independently of their workday.
type SQLiteEventRepo struct {
	db db.DBTX
}

// NewSQLiteEventRepo creates a new SQLiteEventRepo.
func NewSQLiteEventRepo(db db.DBTX) *SQLiteEventRepo {
	return &SQLiteEventRepo{db: db}
}

func (r *SQLiteEventRepo) Append(ctx context.Context, e *domain.TrackingEvent) error {
	loc, err := locationToJSON(e.Location)
	if err != nil {
		return err
	}
	query := `INSERT INTO tracking_events (id, workday_id, type, timestamp_ms, job_id, location, detail, synced)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(id) DO NOTHING`
	_, err = r.db.ExecContext(ctx, query,
		e.ID,
		e.WorkdayID,
		string(e.Type),
		e.TimestampMs,
		nullableString(e.JobID),
		loc,
		e.Detail,
		boolToInt(e.Synced),
	)
	if err != nil {
		return fmt.Errorf("appending tracking event: %w", err)
	}
	return nil
}

func (r *SQLiteEventRepo) ListByWorkday(ctx context.Context, workdayID string) ([]*domain.TrackingEvent, error) {
	query := `SELECT ` + eventColumns + ` FROM tracking_events WHERE workday_id = ? ORDER BY rowid`
	rows, err := r.db.QueryContext(ctx, query, workdayID)
	if err != nil {
		return nil, fmt.Errorf("listing events by workday: %w", err)
	}
	defer rows.Close()
	return r.scanEvents(rows)
}

func (r *SQLiteEventRepo) ListUnsynced(ctx context.Context) ([]*domain.TrackingEvent, error) {
	query := `SELECT ` + eventColumns + ` FROM tracking_events WHERE synced = 0 ORDER BY rowid`
	rows, err := r.db.QueryContext(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("listing unsynced events: %w", err)
	}
	defer rows.Close()
	return r.scanEvents(rows)
}

func (r *SQLiteEventRepo) MarkSynced(ctx context.Context, ids []string) error {
	if len(ids) == 0 {
		return nil
	}
	placeholders, args := idPlaceholders(ids)
	query := `UPDATE tracking_events SET synced = 1 WHERE id IN (` + placeholders + `)`
	if _, err := r.db.ExecContext(ctx, query, args...); err != nil {
		return fmt.Errorf("marking events synced: %w", err)
	}
	return nil
}

func (r *SQLiteEventRepo) scanEvents(rows *sql.Rows) ([]*domain.TrackingEvent, error) {
	var events []*domain.TrackingEvent
	for rows.Next() {
		var e domain.TrackingEvent
		var typ string
		var jobID, loc sql.NullString
		var synced int

		err := rows.Scan(&e.ID, &e.WorkdayID, &typ, &e.TimestampMs, &jobID, &loc, &e.Detail, &synced)
		if err != nil {
			return nil, fmt.Errorf("scanning event row: %w", err)
		}

		e.Type = domain.EventType(typ)
		e.JobID = stringPtr(jobID)
		if e.Location, err = locationFromJSON(loc); err != nil {
			return nil, err
		}
		e.Synced = intToBool(synced)
		events = append(events, &e)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterating events: %w", err)
	}
	return events, nil
}
