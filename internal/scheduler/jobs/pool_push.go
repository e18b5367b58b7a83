package jobs

import (
	"context"
	"fmt"

	"github.com/mingxuan/fishbowl/internal/contracts"
	"github.com/mingxuan/fishbowl/internal/pool"
	"github.com/mingxuan/fishbowl/pkg/config"
	"github.com/mingxuan/fishbowl/pkg/logger"
	"github.com/mingxuan/fishbowl/pkg/tradingtime"
)

// PoolPushJob pushes the current ETF pool every trading morning, so the
// holder sees what the afternoon run will pick from.
type PoolPushJob struct {
	manager  *pool.Manager
	notifier contracts.Notifier
	config   *config.Config
	logger   *logger.Logger
}

// NewPoolPushJob creates the morning pool push job.
func NewPoolPushJob(manager *pool.Manager, notifier contracts.Notifier, cfg *config.Config, log *logger.Logger) *PoolPushJob {
	return &PoolPushJob{
		manager:  manager,
		notifier: notifier,
		config:   cfg,
		logger:   log,
	}
}

// Name returns the job name
func (j *PoolPushJob) Name() string {
	return "pool_push"
}

// Schedule returns the cron schedule (default: weekdays 11:00 Beijing)
func (j *PoolPushJob) Schedule() string {
	return j.config.Strategy.PoolPushSpec
}

// Run pushes the pool summary.
func (j *PoolPushJob) Run(ctx context.Context) error {
	if !tradingtime.IsTradingDay(tradingtime.Now()) {
		j.logger.Info("Skipping pool push on non-trading day")
		return nil
	}

	text, err := j.manager.Summary(ctx)
	if err != nil {
		return fmt.Errorf("render pool summary: %w", err)
	}

	if err := j.notifier.SendText(ctx, text); err != nil {
		return fmt.Errorf("push pool summary: %w", err)
	}
	return nil
}
