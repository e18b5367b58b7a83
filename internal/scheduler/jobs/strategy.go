package jobs

import (
	"context"
	"fmt"
	"time"

	"github.com/mingxuan/fishbowl/internal/contracts"
	"github.com/mingxuan/fishbowl/pkg/config"
	"github.com/mingxuan/fishbowl/pkg/logger"
	"github.com/mingxuan/fishbowl/pkg/tradingtime"
)

// Publisher receives each finished cycle's result (status API, websocket).
type Publisher interface {
	Publish(result *contracts.StrategyResult)
}

// CycleRunner runs one decision cycle at the given time.
type CycleRunner interface {
	RunCycle(ctx context.Context, now time.Time) (*contracts.StrategyResult, error)
}

// StrategyJob runs the daily decision cycle and pushes the summary.
// ⭐ SSOT: 策略的定时触发只在这个Job
type StrategyJob struct {
	engine    CycleRunner
	notifier  contracts.Notifier
	publisher Publisher
	config    *config.Config
	logger    *logger.Logger
}

// NewStrategyJob creates the daily strategy job. publisher may be nil.
func NewStrategyJob(engine CycleRunner, notifier contracts.Notifier, publisher Publisher, cfg *config.Config, log *logger.Logger) *StrategyJob {
	return &StrategyJob{
		engine:    engine,
		notifier:  notifier,
		publisher: publisher,
		config:    cfg,
		logger:    log,
	}
}

// Name returns the job name
func (j *StrategyJob) Name() string {
	return "strategy"
}

// Schedule returns the cron schedule (default: weekdays 14:00 Beijing)
func (j *StrategyJob) Schedule() string {
	return j.config.Strategy.StrategySpec
}

// Run executes one decision cycle.
func (j *StrategyJob) Run(ctx context.Context) error {
	return j.runAt(ctx, tradingtime.Now())
}

// 月度换仓额度和加仓间隔都按北京时间算，交易日判断和周期必须用同一个时刻
func (j *StrategyJob) runAt(ctx context.Context, now time.Time) error {
	if !tradingtime.IsTradingDay(now) {
		j.logger.Info("Skipping strategy run on non-trading day")
		return nil
	}

	result, err := j.engine.RunCycle(ctx, now)
	if err != nil {
		// 失败也要让人知道，推送尽力而为
		if nerr := j.notifier.SendText(ctx, fmt.Sprintf("【鱼盆策略】运行失败：%v", err)); nerr != nil {
			j.logger.WithError(nerr).Error("Failed to push failure notice")
		}
		return fmt.Errorf("strategy cycle: %w", err)
	}

	if j.publisher != nil {
		j.publisher.Publish(result)
	}

	if err := j.notifier.SendText(ctx, FormatResult(result)); err != nil {
		return fmt.Errorf("push strategy summary: %w", err)
	}

	return nil
}

var envLabels = map[contracts.MarketEnvironment]string{
	contracts.MarketBull:  "牛市",
	contracts.MarketBear:  "熊市",
	contracts.MarketShock: "震荡市",
}

// FormatResult renders the push message for one cycle.
func FormatResult(result *contracts.StrategyResult) string {
	return fmt.Sprintf(
		"【鱼盆每日策略】\n市场环境：%s（建议仓位 稳%.0f%%/激%.0f%%/套%.0f%%）\n%s",
		envLabels[result.Environment],
		result.Allocation.Stable*100,
		result.Allocation.Aggressive*100,
		result.Allocation.Arbitrage*100,
		result.Summary,
	)
}
