package commands

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/mingxuan/fishbowl/internal/api"
	"github.com/mingxuan/fishbowl/internal/api/handlers"
	"github.com/mingxuan/fishbowl/internal/scheduler"
	"github.com/mingxuan/fishbowl/internal/scheduler/jobs"
)

// startCmd runs the scheduler and the status API together
var startCmd = &cobra.Command{
	Use:   "start",
	Short: "启动调度器和状态API",
	Long: `启动完整的鱼盆服务：

- 定时任务：工作日14:00跑策略，11:00推送ETF池，周五16:00刷新ETF池
- 状态API：持仓/流水/ETF池/最新结果的只读查询
- WebSocket：每轮策略结果实时推送

Ctrl+C 优雅退出。

Example:
  go run ./cmd/fishbowl start
  go run ./cmd/fishbowl start --port 8090`,
	RunE: runStart,
}

var startPort string

func init() {
	rootCmd.AddCommand(startCmd)
	startCmd.Flags().StringVar(&startPort, "port", "", "API 端口（默认读配置）")
}

func runStart(cmd *cobra.Command, args []string) error {
	fmt.Println("=== 鱼盆 ETF 策略引擎 ===")

	ctx := context.Background()
	a, err := initApp(ctx)
	if err != nil {
		return err
	}
	defer a.Close()

	if startPort != "" {
		a.cfg.Port = startPort
	}

	// Websocket hub doubles as the latest-result holder
	hub := api.NewHub(a.log)

	// Scheduler with the three jobs
	sched := scheduler.New(a.log)
	jobList := []scheduler.Job{
		jobs.NewStrategyJob(a.engine, a.notifier, hub, a.cfg, a.log),
		jobs.NewPoolPushJob(a.manager, a.notifier, a.cfg, a.log),
		jobs.NewPoolUpdateJob(a.manager, a.notifier, a.cfg, a.log),
	}
	for _, job := range jobList {
		if err := sched.AddJob(job); err != nil {
			return fmt.Errorf("add job %s: %w", job.Name(), err)
		}
	}
	sched.Start()
	defer sched.Stop()

	// Status API
	status := handlers.NewStatusHandler(a.stateRepo, a.manager, hub, sched, a.log)
	server := api.New(a.cfg, a.log, api.NewRouter(status, hub, a.log))

	errCh := make(chan error, 1)
	go func() {
		errCh <- server.Start()
	}()

	fmt.Println("\n✅ 服务已启动")
	fmt.Println("\n定时任务:")
	for _, job := range jobList {
		fmt.Printf("  - %-12s %s\n", job.Name(), job.Schedule())
	}
	fmt.Printf("\n状态API: http://localhost:%s\n", a.cfg.Port)
	fmt.Println("Ctrl+C 退出")

	// Wait for interrupt signal
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, os.Interrupt, syscall.SIGTERM)

	select {
	case err := <-errCh:
		return err
	case <-quit:
	}

	fmt.Println("\n正在退出...")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	return server.Shutdown(shutdownCtx)
}
