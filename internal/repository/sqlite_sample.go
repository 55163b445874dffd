package repository

import (
	"context"
	"database/sql"
	"fmt"
	"strings"

	"github.com/cuadrantworks/fieldtrack/internal/db"
	"github.com/cuadrantworks/fieldtrack/internal/domain"
)

// SQLiteSampleRepo implements SampleRepo using a SQLite database.
type SQLiteSampleRepo struct {
	db db.DBTX
}

// NewSQLiteSampleRepo creates a new SQLiteSampleRepo.
func NewSQLiteSampleRepo(db db.DBTX) *SQLiteSampleRepo {
	return &SQLiteSampleRepo{db: db}
}

func (r *SQLiteSampleRepo) Insert(ctx context.Context, workdayID string, p domain.LocationPoint) (int64, error) {
	query := `INSERT INTO location_samples (workday_id, latitude, longitude, accuracy, timestamp_ms, synced)
		VALUES (?, ?, ?, ?, ?, 0)`
	var accuracy interface{}
	if p.Accuracy != nil {
		accuracy = *p.Accuracy
	}
	res, err := r.db.ExecContext(ctx, query, workdayID, p.Latitude, p.Longitude, accuracy, p.TimestampMs)
	if err != nil {
		return 0, fmt.Errorf("inserting location sample: %w", err)
	}
	id, err := res.LastInsertId()
	if err != nil {
		return 0, fmt.Errorf("reading sample id: %w", err)
	}
	return id, nil
}

func (r *SQLiteSampleRepo) ListByWorkday(ctx context.Context, workdayID string) ([]LocationSample, error) {
	query := `SELECT id, workday_id, latitude, longitude, accuracy, timestamp_ms, synced
		FROM location_samples WHERE workday_id = ? ORDER BY id`
	rows, err := r.db.QueryContext(ctx, query, workdayID)
	if err != nil {
		return nil, fmt.Errorf("listing samples by workday: %w", err)
	}
	defer rows.Close()
	return r.scanSamples(rows)
}

func (r *SQLiteSampleRepo) ListUnsynced(ctx context.Context) ([]LocationSample, error) {
	query := `SELECT id, workday_id, latitude, longitude, accuracy, timestamp_ms, synced
		FROM location_samples WHERE synced = 0 ORDER BY id`
	rows, err := r.db.QueryContext(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("listing unsynced samples: %w", err)
	}
	defer rows.Close()
	return r.scanSamples(rows)
}

func (r *SQLiteSampleRepo) MarkSynced(ctx context.Context, ids []int64) error {
	if len(ids) == 0 {
		return nil
	}
	args := make([]interface{}, len(ids))
	for i, id := range ids {
		args[i] = id
	}
	placeholders := strings.TrimSuffix(strings.Repeat("?, ", len(ids)), ", ")
	query := `UPDATE location_samples SET synced = 1 WHERE id IN (` + placeholders + `)`
	if _, err := r.db.ExecContext(ctx, query, args...); err != nil {
		return fmt.Errorf("marking samples synced: %w", err)
	}
	return nil
}

func (r *SQLiteSampleRepo) scanSamples(rows *sql.Rows) ([]LocationSample, error) {
	var samples []LocationSample
	for rows.Next() {
		var s LocationSample
		var accuracy sql.NullFloat64
		var synced int

		err := rows.Scan(&s.ID, &s.WorkdayID, &s.Point.Latitude, &s.Point.Longitude, &accuracy, &s.Point.TimestampMs, &synced)
		if err != nil {
			return nil, fmt.Errorf("scanning sample row: %w", err)
		}
		if accuracy.Valid {
			v := accuracy.Float64
			s.Point.Accuracy = &v
		}
		s.Synced = intToBool(synced)
		samples = append(samples, s)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterating samples: %w", err)
	}
	return samples, nil
}
