package commands

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"
)

// poolCmd groups ETF pool commands
var poolCmd = &cobra.Command{
	Use:   "pool",
	Short: "ETF池管理",
	Long: `查看或刷新ETF池。

Subcommands:
  update  - 立即重建ETF池（平时由周五16:00的定时任务触发）
  show    - 打印当前ETF池

Example:
  go run ./cmd/fishbowl pool update
  go run ./cmd/fishbowl pool show`,
}

var poolUpdateCmd = &cobra.Command{
	Use:   "update",
	Short: "立即重建ETF池",
	RunE:  runPoolUpdate,
}

var poolShowCmd = &cobra.Command{
	Use:   "show",
	Short: "打印当前ETF池",
	RunE:  runPoolShow,
}

func init() {
	rootCmd.AddCommand(poolCmd)
	poolCmd.AddCommand(poolUpdateCmd)
	poolCmd.AddCommand(poolShowCmd)
}

func runPoolUpdate(cmd *cobra.Command, args []string) error {
	fmt.Println("=== 鱼盆ETF池：重建 ===")

	ctx := context.Background()
	a, err := initApp(ctx)
	if err != nil {
		return err
	}
	defer a.Close()

	candidates, err := a.manager.Update(ctx)
	if err != nil {
		return fmt.Errorf("update pool: %w", err)
	}
	fmt.Printf("✅ ETF池已重建（%d只）\n\n", len(candidates))

	return printPool(ctx, a)
}

func runPoolShow(cmd *cobra.Command, args []string) error {
	ctx := context.Background()
	a, err := initApp(ctx)
	if err != nil {
		return err
	}
	defer a.Close()

	return printPool(ctx, a)
}

func printPool(ctx context.Context, a *app) error {
	text, err := a.manager.Summary(ctx)
	if err != nil {
		return fmt.Errorf("render pool: %w", err)
	}
	fmt.Println(text)
	return nil
}
