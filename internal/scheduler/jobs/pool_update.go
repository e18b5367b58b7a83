package jobs

import (
	"context"
	"fmt"

	"github.com/mingxuan/fishbowl/internal/contracts"
	"github.com/mingxuan/fishbowl/internal/pool"
	"github.com/mingxuan/fishbowl/pkg/config"
	"github.com/mingxuan/fishbowl/pkg/logger"
)

// PoolUpdateJob rebuilds the ETF pool after the Friday close and pushes the
// new composition.
type PoolUpdateJob struct {
	manager  *pool.Manager
	notifier contracts.Notifier
	config   *config.Config
	logger   *logger.Logger
}

// NewPoolUpdateJob creates the weekly pool refresh job.
func NewPoolUpdateJob(manager *pool.Manager, notifier contracts.Notifier, cfg *config.Config, log *logger.Logger) *PoolUpdateJob {
	return &PoolUpdateJob{
		manager:  manager,
		notifier: notifier,
		config:   cfg,
		logger:   log,
	}
}

// Name returns the job name
func (j *PoolUpdateJob) Name() string {
	return "pool_update"
}

// Schedule returns the cron schedule (default: Friday 16:00 Beijing)
func (j *PoolUpdateJob) Schedule() string {
	return j.config.Strategy.PoolUpdateSpec
}

// Run rebuilds the pool and announces the result.
func (j *PoolUpdateJob) Run(ctx context.Context) error {
	candidates, err := j.manager.Update(ctx)
	if err != nil {
		return fmt.Errorf("update pool: %w", err)
	}
	j.logger.WithField("size", len(candidates)).Info("Weekly pool refresh done")

	text, err := j.manager.Summary(ctx)
	if err != nil {
		return fmt.Errorf("render pool summary: %w", err)
	}
	if err := j.notifier.SendText(ctx, text); err != nil {
		return fmt.Errorf("push pool summary: %w", err)
	}
	return nil
}
