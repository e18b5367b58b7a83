package commands

import (
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"github.com/spf13/cobra"

	"github.com/mingxuan/fishbowl/internal/contracts"
)

// statusCmd queries the running service's status API
var statusCmd = &cobra.Command{
	Use:   "status",
	Short: "查看运行中服务的状态",
	Long: `查询本机运行中的鱼盆服务：健康状态、持仓、最新策略结果。

需要先 go run ./cmd/fishbowl start。

Example:
  go run ./cmd/fishbowl status
  go run ./cmd/fishbowl status --port 8090`,
	RunE: runStatus,
}

var statusPort string

func init() {
	rootCmd.AddCommand(statusCmd)
	statusCmd.Flags().StringVar(&statusPort, "port", "8090", "服务端口")
}

func runStatus(cmd *cobra.Command, args []string) error {
	base := fmt.Sprintf("http://localhost:%s", statusPort)
	client := &http.Client{Timeout: 5 * time.Second}

	// Health
	resp, err := client.Get(base + "/health")
	if err != nil {
		return fmt.Errorf("服务未运行（%s）: %w", base, err)
	}
	resp.Body.Close()
	fmt.Printf("✅ 服务运行中 %s\n\n", base)

	// Positions
	resp, err = client.Get(base + "/api/positions")
	if err != nil {
		return err
	}
	var book map[string]*contracts.Position
	if err := json.NewDecoder(resp.Body).Decode(&book); err != nil {
		resp.Body.Close()
		return err
	}
	resp.Body.Close()

	labels := map[string]string{"stable": "稳健仓", "aggressive": "激进仓", "arbitrage": "套利仓"}
	fmt.Println("持仓:")
	for _, sleeve := range []string{"stable", "aggressive", "arbitrage"} {
		pos := book[sleeve]
		if pos == nil {
			fmt.Printf("  %s: 空仓\n", labels[sleeve])
			continue
		}
		fmt.Printf("  %s: %s %s 仓位%.0f%%\n", labels[sleeve], pos.Code, pos.Name, pos.Ratio*100)
	}

	// Latest result
	resp, err = client.Get(base + "/api/result")
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if resp.StatusCode == http.StatusNotFound {
		fmt.Println("\n今日还没有策略结果")
		return nil
	}

	var result contracts.StrategyResult
	if err := json.NewDecoder(resp.Body).Decode(&result); err != nil {
		return err
	}
	fmt.Printf("\n最新策略（%s）:\n%s\n", result.Timestamp.Format("2006-01-02 15:04"), result.Summary)
	return nil
}
