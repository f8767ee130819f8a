package database

import (
	"context"
	"time"

	"github.com/synox/telewall/internal/database/models"
)

// Blocklist is the persisted set of refused callers. Numbers are always
// stored in canonical international format.
type Blocklist interface {
	IsBlocked(ctx context.Context, number string) (bool, error)
	// Block inserts an entry. Blocking an already blocked number is a no-op
	// that keeps the original entry.
	Block(ctx context.Context, entry *models.BlockedCaller) error
	// BlockAll bulk-inserts entries, skipping numbers already present.
	// Returns the number of entries actually added.
	BlockAll(ctx context.Context, entries []*models.BlockedCaller) (int, error)
	Unblock(ctx context.Context, number string) error
	// Find returns nil without error when the number is not blocked.
	Find(ctx context.Context, number string) (*models.BlockedCaller, error)
	List(ctx context.Context, search string, offset, limit int) ([]models.BlockedCaller, error)
	Count(ctx context.Context, search string) (int64, error)
}

// CallHistory stores the incoming call log.
type CallHistory interface {
	Insert(ctx context.Context, rec *models.CallRecord) error
	// LastCaller returns the most recent completed incoming call after the
	// given time, or nil if there was none.
	LastCaller(ctx context.Context, after time.Time) (*models.CallRecord, error)
	List(ctx context.Context, numberFilter string, offset, limit int) ([]models.CallRecord, error)
	Count(ctx context.Context, numberFilter string) (int64, error)
	// DeleteOlderThan removes records that ended before the cutoff and
	// returns how many were deleted.
	DeleteOlderThan(ctx context.Context, cutoff time.Time) (int64, error)
}

// Settings is a small key-value store for web UI configuration such as the
// admin password hash.
type Settings interface {
	Get(ctx context.Context, key string) (string, error)
	Set(ctx context.Context, key, value string) error
}
