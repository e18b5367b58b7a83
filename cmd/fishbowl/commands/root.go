package commands

import (
	"github.com/spf13/cobra"
)

var (
	// Global flags
	configFile string
	verbose    bool
)

// rootCmd represents the base command when called without any subcommands
var rootCmd = &cobra.Command{
	Use:   "fishbowl",
	Short: "鱼盆 - 三仓位ETF策略决策引擎",
	Long: `鱼盆ETF策略决策引擎

稳健仓/激进仓/套利仓三仓独立运行，每个交易日14:00评估一次，
产出买入/加仓/卖出/换仓建议并推送企业微信。引擎只出建议，不下单。

Usage:
  go run ./cmd/fishbowl [command]

Examples:
  go run ./cmd/fishbowl start
  go run ./cmd/fishbowl strategy run
  go run ./cmd/fishbowl pool update
  go run ./cmd/fishbowl status`,
}

// Execute adds all child commands to the root command and sets flags appropriately.
// This is called by main.main(). It only needs to happen once to the rootCmd.
func Execute() error {
	return rootCmd.Execute()
}

func init() {
	// Global flags
	rootCmd.PersistentFlags().StringVar(&configFile, "config", "", "config file (default is .env)")
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "verbose output")
}
