package commands

import (
	"context"
	"fmt"

	"github.com/mingxuan/fishbowl/internal/contracts"
	"github.com/mingxuan/fishbowl/internal/marketdata"
	"github.com/mingxuan/fishbowl/internal/notify"
	"github.com/mingxuan/fishbowl/internal/pool"
	"github.com/mingxuan/fishbowl/internal/store"
	"github.com/mingxuan/fishbowl/internal/strategy"
	"github.com/mingxuan/fishbowl/pkg/config"
	"github.com/mingxuan/fishbowl/pkg/database"
	"github.com/mingxuan/fishbowl/pkg/httputil"
	"github.com/mingxuan/fishbowl/pkg/logger"
	"github.com/mingxuan/fishbowl/pkg/redis"
)

// app bundles everything a command needs. Close releases the connections.
// ⭐ SSOT: 依赖装配只在这个函数
type app struct {
	cfg       *config.Config
	log       *logger.Logger
	db        *database.DB
	redis     *redis.Client
	stateRepo *store.StateRepository
	poolRepo  *store.PoolRepository
	provider  *marketdata.Provider
	manager   *pool.Manager
	engine    *strategy.Engine
	notifier  *notify.WeComNotifier
}

func initApp(ctx context.Context) (*app, error) {
	cfg, err := config.Load()
	if err != nil {
		return nil, fmt.Errorf("load config: %w", err)
	}
	if verbose {
		cfg.LogLevel = "debug"
	}

	log := logger.New(cfg)

	db, err := database.New(cfg)
	if err != nil {
		return nil, fmt.Errorf("connect to database: %w", err)
	}
	if err := store.EnsureSchema(ctx, db.Pool); err != nil {
		db.Close()
		return nil, fmt.Errorf("ensure schema: %w", err)
	}

	rdb, err := redis.New(cfg)
	if err != nil {
		db.Close()
		return nil, fmt.Errorf("connect to redis: %w", err)
	}

	limiter := redis.NewRateLimiter(rdb, "fishbowl")
	cache := redis.NewCache(rdb, "fishbowl")

	// 每个外部源一个限流通道
	emClient := httputil.New(cfg, log).WithRateLimiter(limiter, redis.EastmoneyRateLimit)
	sinaClient := httputil.New(cfg, log).WithRateLimiter(limiter, redis.SinaRateLimit)
	wecomClient := httputil.New(cfg, log).WithRateLimiter(limiter, redis.WeComRateLimit)

	eastmoney := marketdata.NewEastmoneyClient(cfg, emClient, log)
	sina := marketdata.NewSinaClient(cfg, sinaClient, log)

	stateRepo := store.NewStateRepository(db.Pool)
	poolRepo := store.NewPoolRepository(db.Pool)
	eventRepo := store.NewEventRepository(db.Pool)

	provider := marketdata.NewProvider(eastmoney, sina, eventRepo, cache, cfg.Strategy.Benchmark, log)
	manager := pool.NewManager(sina, provider, poolRepo, log)

	capital := strategy.CapitalConfig{
		Total: cfg.Strategy.TotalCapital,
		Split: contracts.CapitalSplit{
			Stable:     cfg.Strategy.StableCapital / cfg.Strategy.TotalCapital,
			Aggressive: cfg.Strategy.AggroCapital / cfg.Strategy.TotalCapital,
			Arbitrage:  cfg.Strategy.ArbCapital / cfg.Strategy.TotalCapital,
		},
	}
	engine := strategy.NewEngine(provider, manager, stateRepo, capital, cfg.Strategy.Benchmark, log)

	notifier := notify.NewWeComNotifier(cfg, wecomClient, log)

	return &app{
		cfg:       cfg,
		log:       log,
		db:        db,
		redis:     rdb,
		stateRepo: stateRepo,
		poolRepo:  poolRepo,
		provider:  provider,
		manager:   manager,
		engine:    engine,
		notifier:  notifier,
	}, nil
}

func (a *app) Close() {
	if a.redis != nil {
		a.redis.Close()
	}
	if a.db != nil {
		a.db.Close()
	}
}
