package database

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/synox/telewall/internal/database/models"
)

// blocklistRepo implements Blocklist.
type blocklistRepo struct {
	db *DB
}

// NewBlocklist creates the Blocklist repository.
func NewBlocklist(db *DB) Blocklist {
	return &blocklistRepo{db: db}
}

func (r *blocklistRepo) IsBlocked(ctx context.Context, number string) (bool, error) {
	var count int
	err := r.db.QueryRowContext(ctx,
		`SELECT COUNT(*) FROM blocked_callers WHERE telephone_number = ?`, number,
	).Scan(&count)
	if err != nil {
		return false, fmt.Errorf("checking block list: %w", err)
	}
	return count > 0, nil
}

func (r *blocklistRepo) Block(ctx context.Context, entry *models.BlockedCaller) error {
	// INSERT OR IGNORE keeps the first entry (and its source/comment) when
	// the number is blocked again.
	_, err := r.db.ExecContext(ctx,
		`INSERT OR IGNORE INTO blocked_callers (telephone_number, comment, source)
		 VALUES (?, ?, ?)`,
		entry.TelephoneNumber, entry.Comment, entry.Source,
	)
	if err != nil {
		return fmt.Errorf("blocking %s: %w", entry.TelephoneNumber, err)
	}
	return nil
}

func (r *blocklistRepo) BlockAll(ctx context.Context, entries []*models.BlockedCaller) (int, error) {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return 0, fmt.Errorf("beginning transaction: %w", err)
	}
	defer tx.Rollback()

	added := 0
	for _, entry := range entries {
		res, err := tx.ExecContext(ctx,
			`INSERT OR IGNORE INTO blocked_callers (telephone_number, comment, source)
			 VALUES (?, ?, ?)`,
			entry.TelephoneNumber, entry.Comment, entry.Source,
		)
		if err != nil {
			return 0, fmt.Errorf("blocking %s: %w", entry.TelephoneNumber, err)
		}
		if n, err := res.RowsAffected(); err == nil {
			added += int(n)
		}
	}

	if err := tx.Commit(); err != nil {
		return 0, fmt.Errorf("committing block list import: %w", err)
	}
	return added, nil
}

func (r *blocklistRepo) Unblock(ctx context.Context, number string) error {
	_, err := r.db.ExecContext(ctx,
		`DELETE FROM blocked_callers WHERE telephone_number = ?`, number,
	)
	if err != nil {
		return fmt.Errorf("unblocking %s: %w", number, err)
	}
	return nil
}

func (r *blocklistRepo) Find(ctx context.Context, number string) (*models.BlockedCaller, error) {
	var entry models.BlockedCaller
	err := r.db.QueryRowContext(ctx,
		`SELECT telephone_number, comment, source, created
		 FROM blocked_callers WHERE telephone_number = ?`, number,
	).Scan(&entry.TelephoneNumber, &entry.Comment, &entry.Source, &entry.Created)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("finding %s: %w", number, err)
	}
	return &entry, nil
}

func (r *blocklistRepo) List(ctx context.Context, search string, offset, limit int) ([]models.BlockedCaller, error) {
	query := `SELECT telephone_number, comment, source, created FROM blocked_callers`
	args := []any{}
	if search != "" {
		query += ` WHERE telephone_number LIKE ? OR comment LIKE ?`
		like := "%" + search + "%"
		args = append(args, like, like)
	}
	query += ` ORDER BY created DESC LIMIT ? OFFSET ?`
	args = append(args, limit, offset)

	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("listing blocked callers: %w", err)
	}
	defer rows.Close()

	var entries []models.BlockedCaller
	for rows.Next() {
		var entry models.BlockedCaller
		if err := rows.Scan(&entry.TelephoneNumber, &entry.Comment, &entry.Source, &entry.Created); err != nil {
			return nil, fmt.Errorf("scanning blocked caller: %w", err)
		}
		entries = append(entries, entry)
	}
	return entries, rows.Err()
}

func (r *blocklistRepo) Count(ctx context.Context, search string) (int64, error) {
	query := `SELECT COUNT(*) FROM blocked_callers`
	args := []any{}
	if search != "" {
		query += ` WHERE telephone_number LIKE ? OR comment LIKE ?`
		like := "%" + search + "%"
		args = append(args, like, like)
	}

	var count int64
	if err := r.db.QueryRowContext(ctx, query, args...).Scan(&count); err != nil {
		return 0, fmt.Errorf("counting blocked callers: %w", err)
	}
	return count, nil
}
