package database

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/synox/telewall/internal/database/models"
)

// callHistoryRepo implements CallHistory.
type callHistoryRepo struct {
	db *DB
}

// NewCallHistory creates the CallHistory repository.
func NewCallHistory(db *DB) CallHistory {
	return &callHistoryRepo{db: db}
}

func (r *callHistoryRepo) Insert(ctx context.Context, rec *models.CallRecord) error {
	res, err := r.db.ExecContext(ctx,
		`INSERT INTO call_history (src, caller_name, start_time, end_time, duration, telewall_state, blocked)
		 VALUES (?, ?, ?, ?, ?, ?, ?)`,
		rec.Src, rec.CallerName, rec.StartTime, rec.EndTime, rec.Duration, rec.State, rec.Blocked,
	)
	if err != nil {
		return fmt.Errorf("inserting call record: %w", err)
	}
	id, err := res.LastInsertId()
	if err != nil {
		return fmt.Errorf("getting call record id: %w", err)
	}
	rec.ID = id
	return nil
}

func (r *callHistoryRepo) LastCaller(ctx context.Context, after time.Time) (*models.CallRecord, error) {
	rec, err := r.scanOne(r.db.QueryRowContext(ctx,
		`SELECT id, src, caller_name, start_time, end_time, duration, telewall_state, blocked
		 FROM call_history
		 WHERE end_time > ?
		 ORDER BY end_time DESC
		 LIMIT 1`, after,
	))
	if err != nil {
		return nil, fmt.Errorf("finding last caller: %w", err)
	}
	return rec, nil
}

func (r *callHistoryRepo) List(ctx context.Context, numberFilter string, offset, limit int) ([]models.CallRecord, error) {
	query := `SELECT id, src, caller_name, start_time, end_time, duration, telewall_state, blocked
		 FROM call_history`
	args := []any{}
	if numberFilter != "" {
		query += ` WHERE src = ?`
		args = append(args, numberFilter)
	}
	query += ` ORDER BY start_time DESC LIMIT ? OFFSET ?`
	args = append(args, limit, offset)

	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("listing call history: %w", err)
	}
	defer rows.Close()

	var records []models.CallRecord
	for rows.Next() {
		var rec models.CallRecord
		if err := rows.Scan(&rec.ID, &rec.Src, &rec.CallerName, &rec.StartTime,
			&rec.EndTime, &rec.Duration, &rec.State, &rec.Blocked); err != nil {
			return nil, fmt.Errorf("scanning call record: %w", err)
		}
		records = append(records, rec)
	}
	return records, rows.Err()
}

func (r *callHistoryRepo) Count(ctx context.Context, numberFilter string) (int64, error) {
	query := `SELECT COUNT(*) FROM call_history`
	args := []any{}
	if numberFilter != "" {
		query += ` WHERE src = ?`
		args = append(args, numberFilter)
	}

	var count int64
	if err := r.db.QueryRowContext(ctx, query, args...).Scan(&count); err != nil {
		return 0, fmt.Errorf("counting call history: %w", err)
	}
	return count, nil
}

func (r *callHistoryRepo) DeleteOlderThan(ctx context.Context, cutoff time.Time) (int64, error) {
	res, err := r.db.ExecContext(ctx,
		`DELETE FROM call_history WHERE end_time IS NOT NULL AND end_time < ?`, cutoff,
	)
	if err != nil {
		return 0, fmt.Errorf("deleting old call records: %w", err)
	}
	return res.RowsAffected()
}

func (r *callHistoryRepo) scanOne(row *sql.Row) (*models.CallRecord, error) {
	var rec models.CallRecord
	err := row.Scan(&rec.ID, &rec.Src, &rec.CallerName, &rec.StartTime,
		&rec.EndTime, &rec.Duration, &rec.State, &rec.Blocked)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &rec, nil
}
