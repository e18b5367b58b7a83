package strategy

import (
	"context"
	"fmt"
	"time"

	"github.com/mingxuan/fishbowl/internal/contracts"
	"github.com/mingxuan/fishbowl/pkg/logger"
)

// Engine runs one full evaluation cycle over the three sleeves. It is
// single-threaded and invoked synchronously by the scheduler; the caller must
// not re-invoke it concurrently.
type Engine struct {
	data      contracts.MarketData
	pool      contracts.CandidateSource
	store     contracts.StateStore
	eval      *Evaluator
	ledger    *Ledger
	benchmark string
	log       *logger.Logger
}

// NewEngine wires the evaluator and ledger around the collaborators.
// benchmark is the index code used for market-environment classification.
func NewEngine(data contracts.MarketData, pool contracts.CandidateSource, store contracts.StateStore, capital CapitalConfig, benchmark string, log *logger.Logger) *Engine {
	detector := NewDetector(data, log)
	return &Engine{
		data:      data,
		pool:      pool,
		store:     store,
		eval:      NewEvaluator(data, pool, detector, capital, log),
		ledger:    NewLedger(store, log),
		benchmark: benchmark,
		log:       log,
	}
}

// RunCycle evaluates all sleeves against current data, applies the decisions
// to the position book and persists it once. Only a failed load of positions
// or trade history is fatal; everything else degrades to per-sleeve holds.
func (e *Engine) RunCycle(ctx context.Context, now time.Time) (*contracts.StrategyResult, error) {
	book, err := e.store.LoadPositions(ctx)
	if err != nil {
		return nil, fmt.Errorf("load positions: %w", err)
	}

	monthStart := time.Date(now.Year(), now.Month(), 1, 0, 0, 0, 0, now.Location())
	history, err := e.store.TradesSince(ctx, monthStart)
	if err != nil {
		return nil, fmt.Errorf("load trade history: %w", err)
	}

	env := e.classify(ctx)
	e.log.WithFields(map[string]interface{}{
		"environment": env,
		"allocation":  env.Split(),
	}).Info("Market environment classified")

	decisions := make(map[contracts.Sleeve]contracts.Decision, len(contracts.Sleeves))
	for _, sleeve := range contracts.Sleeves {
		d := e.eval.Evaluate(ctx, sleeve, book[sleeve], history, now)
		if err := e.ledger.Apply(ctx, book, d, now); err != nil {
			// 记录失败则该仓位本轮放弃操作，持仓不变
			e.log.WithError(err).WithField("sleeve", sleeve).Error("Decision not applied")
			d = contracts.Hold(sleeve, degraded("操作落账失败，本轮维持现状", err))
		}
		decisions[sleeve] = d
	}

	if err := e.store.SavePositions(ctx, book); err != nil {
		return nil, fmt.Errorf("save positions: %w", err)
	}

	result := &contracts.StrategyResult{
		Timestamp:   now,
		Environment: env,
		Allocation:  env.Split(),
		Decisions:   decisions,
		Summary:     contracts.BuildSummary(decisions),
	}
	e.log.WithField("summary", result.Summary).Info("Cycle complete")
	return result, nil
}

// classify derives the market environment from the benchmark series,
// defaulting to shock when the benchmark cannot be read.
func (e *Engine) classify(ctx context.Context) contracts.MarketEnvironment {
	series, err := e.data.GetSeries(ctx, e.benchmark)
	if err != nil {
		e.log.WithError(err).WithField("code", e.benchmark).Warn("Benchmark unavailable, defaulting to shock")
		return contracts.MarketShock
	}
	env, err := ClassifyMarket(series)
	if err != nil {
		e.log.WithError(err).Warn("Market classification degraded, defaulting to shock")
		return contracts.MarketShock
	}
	return env
}
