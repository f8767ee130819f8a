// Package cleanup removes old call history records in the background.
package cleanup

import (
	"context"
	"log/slog"
	"time"

	"github.com/synox/telewall/internal/database"
)

// DefaultInterval is how often the retention job runs.
const DefaultInterval = time.Hour

// Job periodically deletes call records older than the retention period.
type Job struct {
	history  database.CallHistory
	keepDays int
	interval time.Duration
	logger   *slog.Logger
}

// NewJob creates a retention job. A keepDays of 0 disables deletion.
func NewJob(history database.CallHistory, keepDays int, interval time.Duration, logger *slog.Logger) *Job {
	if interval <= 0 {
		interval = DefaultInterval
	}
	return &Job{
		history:  history,
		keepDays: keepDays,
		interval: interval,
		logger:   logger.With("subsystem", "cleanup"),
	}
}

// Run executes the job once at startup and then on every tick until the
// context is cancelled.
func (j *Job) Run(ctx context.Context) {
	if j.keepDays <= 0 {
		j.logger.Info("call history retention disabled")
		return
	}

	j.runOnce(ctx)

	ticker := time.NewTicker(j.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			j.runOnce(ctx)
		}
	}
}

func (j *Job) runOnce(ctx context.Context) {
	cutoff := time.Now().AddDate(0, 0, -j.keepDays)

	deleted, err := j.history.DeleteOlderThan(ctx, cutoff)
	if err != nil {
		j.logger.Error("call history retention failed", "error", err)
		return
	}
	if deleted > 0 {
		j.logger.Info("call history retention", "deleted", deleted, "keep_days", j.keepDays)
	}
}
