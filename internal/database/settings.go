package database

import (
	"context"
	"database/sql"
	"fmt"
)

// Setting keys.
const (
	SettingAdminPasswordHash = "admin_password_hash"
)

// settingsRepo implements Settings.
type settingsRepo struct {
	db *DB
}

// NewSettings creates the Settings repository.
func NewSettings(db *DB) Settings {
	return &settingsRepo{db: db}
}

// Get returns the stored value, or "" when the key is unset.
func (r *settingsRepo) Get(ctx context.Context, key string) (string, error) {
	var value string
	err := r.db.QueryRowContext(ctx,
		`SELECT value FROM settings WHERE key = ?`, key,
	).Scan(&value)
	if err == sql.ErrNoRows {
		return "", nil
	}
	if err != nil {
		return "", fmt.Errorf("reading setting %s: %w", key, err)
	}
	return value, nil
}

func (r *settingsRepo) Set(ctx context.Context, key, value string) error {
	_, err := r.db.ExecContext(ctx,
		`INSERT INTO settings (key, value, updated_at) VALUES (?, ?, datetime('now'))
		 ON CONFLICT(key) DO UPDATE SET value = excluded.value, updated_at = excluded.updated_at`,
		key, value,
	)
	if err != nil {
		return fmt.Errorf("writing setting %s: %w", key, err)
	}
	return nil
}
