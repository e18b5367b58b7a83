package commands

import (
	"context"
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"github.com/mingxuan/fishbowl/internal/scheduler/jobs"
)

// strategyCmd groups strategy-related commands
var strategyCmd = &cobra.Command{
	Use:   "strategy",
	Short: "策略相关命令",
	Long:  `手动触发策略评估等命令。`,
}

var strategyPush bool

// strategyRunCmd runs one decision cycle immediately
var strategyRunCmd = &cobra.Command{
	Use:   "run",
	Short: "立即跑一轮策略",
	Long: `绕过调度器立即执行一轮完整的策略评估：
读取持仓 -> 三仓独立评估 -> 落账 -> 打印建议。

默认只打印，不推送企业微信；--push 开启推送。

Example:
  go run ./cmd/fishbowl strategy run
  go run ./cmd/fishbowl strategy run --push`,
	RunE: runStrategyOnce,
}

func init() {
	rootCmd.AddCommand(strategyCmd)
	strategyCmd.AddCommand(strategyRunCmd)
	strategyRunCmd.Flags().BoolVar(&strategyPush, "push", false, "把结果推送到企业微信")
}

func runStrategyOnce(cmd *cobra.Command, args []string) error {
	fmt.Println("=== 鱼盆策略：手动执行 ===")

	ctx := context.Background()
	a, err := initApp(ctx)
	if err != nil {
		return err
	}
	defer a.Close()

	start := time.Now()
	result, err := a.engine.RunCycle(ctx, time.Now())
	if err != nil {
		return fmt.Errorf("strategy cycle: %w", err)
	}

	fmt.Printf("\n%s\n", jobs.FormatResult(result))
	fmt.Printf("\n耗时 %.1fs\n", time.Since(start).Seconds())

	if strategyPush {
		if err := a.notifier.SendText(ctx, jobs.FormatResult(result)); err != nil {
			return fmt.Errorf("push result: %w", err)
		}
		fmt.Println("✅ 已推送企业微信")
	}

	return nil
}
