// Package tasks holds the scheduled maintenance tasks.
package tasks

import (
	"context"
	"time"

	"go.uber.org/zap"

	"github.com/Aaryanpadhaikarega/otp-bot/internal/runner"
)

// Purger deletes expired grant rows and reports how many went.
type Purger interface {
	PurgeExpired(ctx context.Context) (int64, error)
}

// GrantPurgeTask removes grants whose expiry has passed. Access checks
// already ignore them; this only keeps the table small.
type GrantPurgeTask struct {
	purger   Purger
	schedule string
	logger   *zap.Logger
}

// NewGrantPurgeTask creates the purge task for a cron schedule with seconds.
func NewGrantPurgeTask(purger Purger, schedule string, logger *zap.Logger) runner.Task {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &GrantPurgeTask{purger: purger, schedule: schedule, logger: logger}
}

// Name returns the task name
func (t *GrantPurgeTask) Name() string {
	return "grant-purge"
}

// Schedule returns the configured cron schedule
func (t *GrantPurgeTask) Schedule() string {
	return t.schedule
}

// Timeout returns the task timeout (1 minute)
func (t *GrantPurgeTask) Timeout() time.Duration {
	return time.Minute
}

// Run deletes expired grants.
func (t *GrantPurgeTask) Run(ctx context.Context) error {
	n, err := t.purger.PurgeExpired(ctx)
	if err != nil {
		return err
	}
	if n > 0 {
		t.logger.Info("purged expired grants", zap.Int64("count", n))
	}
	return nil
}
