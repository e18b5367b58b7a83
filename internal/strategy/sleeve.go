package strategy

import (
	"context"
	"fmt"
	"math"
	"time"

	"github.com/mingxuan/fishbowl/internal/contracts"
	"github.com/mingxuan/fishbowl/pkg/logger"
)

const (
	maxSwitchesPerMonth = 3
	arbitrageEntryRatio = 0.30 // of arbitrage sleeve capital
	arbitrageCloseShare = 0.80 // close at 80% of recorded expected return
)

// CapitalConfig fixes the capital base behind per-sleeve amounts.
type CapitalConfig struct {
	Total float64
	Split contracts.CapitalSplit
}

// SleeveCapital returns the capital assigned to a sleeve.
func (c CapitalConfig) SleeveCapital(s contracts.Sleeve) float64 {
	switch s {
	case contracts.SleeveStable:
		return c.Total * c.Split.Stable
	case contracts.SleeveAggressive:
		return c.Total * c.Split.Aggressive
	case contracts.SleeveArbitrage:
		return c.Total * c.Split.Arbitrage
	default:
		return 0
	}
}

// Evaluator produces one Decision per sleeve per cycle. It only reads
// positions; mutations belong to the ledger.
type Evaluator struct {
	data     contracts.MarketData
	pool     contracts.CandidateSource
	detector *Detector
	capital  CapitalConfig
	log      *logger.Logger
}

// NewEvaluator creates a sleeve evaluator.
func NewEvaluator(data contracts.MarketData, pool contracts.CandidateSource, detector *Detector, capital CapitalConfig, log *logger.Logger) *Evaluator {
	return &Evaluator{data: data, pool: pool, detector: detector, capital: capital, log: log}
}

// Evaluate runs the sleeve's state machine against current data. Errors in
// individual checks degrade that check; a sleeve that cannot evaluate at all
// simply holds.
func (e *Evaluator) Evaluate(ctx context.Context, sleeve contracts.Sleeve, pos *contracts.Position, history []contracts.TradeRecord, now time.Time) contracts.Decision {
	if sleeve == contracts.SleeveArbitrage {
		return e.evaluateArbitrage(ctx, pos, now)
	}
	return e.evaluateTrend(ctx, sleeve, pos, history, now)
}

// evaluateTrend is the stable/aggressive state machine:
// liquidation > switch-or-sell > add > hold when holding, buy scan when flat.
func (e *Evaluator) evaluateTrend(ctx context.Context, sleeve contracts.Sleeve, pos *contracts.Position, history []contracts.TradeRecord, now time.Time) contracts.Decision {
	if pos == nil {
		return e.evaluateTrendFlat(ctx, sleeve)
	}

	params := sleeve.Params()
	capital := e.capital.SleeveCapital(sleeve)

	series, err := e.data.GetSeries(ctx, pos.Code)
	if err != nil {
		return contracts.Hold(sleeve, degraded("获取持仓行情失败", err))
	}
	series = Enrich(series)
	if series.Len() == 0 {
		return contracts.Hold(sleeve, "持仓行情为空")
	}
	lastClose := series.Latest().Close

	if forced, reason := e.checkForcedExit(ctx, sleeve, pos, now); forced {
		return contracts.Decision{
			Sleeve: sleeve, Action: contracts.ActionSell,
			Code: pos.Code, Name: pos.Name,
			Reason: reason, Forced: true,
			Price: lastClose, Amount: capital * pos.Ratio,
		}
	}

	sellSig, sellReason, kind, err := CheckSell(sleeve, series, pos.BuyPrice)
	if err != nil {
		sellSig = false
		sellReason = degraded("卖出检查失败", err)
		e.log.WithError(err).WithField("code", pos.Code).Warn("Sell check degraded")
	}

	if sellSig {
		if sw := e.trySwitch(ctx, sleeve, pos, history, sellReason, now); sw != nil {
			return *sw
		}

		// 稳健仓已加仓过的持仓先减半，其余一次性卖出
		if sleeve == contracts.SleeveStable && pos.Ratio > params.EntryRatio {
			return contracts.Decision{
				Sleeve: sleeve, Action: contracts.ActionPartialSell,
				Code: pos.Code, Name: pos.Name,
				Reason: fmt.Sprintf("%s（仓位%.0f%%超过初始仓位，先减半）", sellReason, pos.Ratio*100),
				Price:  lastClose, Amount: capital * pos.Ratio * 0.5,
				ResultingRatio: pos.Ratio / 2,
			}
		}
		e.log.WithFields(map[string]interface{}{
			"sleeve": sleeve, "code": pos.Code, "kind": kind,
		}).Info("Sell signal")
		return contracts.Decision{
			Sleeve: sleeve, Action: contracts.ActionSell,
			Code: pos.Code, Name: pos.Name,
			Reason: sellReason,
			Price:  lastClose, Amount: capital * pos.Ratio,
		}
	}

	if pos.Ratio < params.Ceiling {
		if ok, addReason := CheckAdd(series, pos.LastAddDate, now); ok {
			inc := math.Min(params.AddStep, params.Ceiling-pos.Ratio)
			return contracts.Decision{
				Sleeve: sleeve, Action: contracts.ActionAdd,
				Code: pos.Code, Name: pos.Name,
				Reason: fmt.Sprintf("%s（当前仓位%.0f%%，上限%.0f%%）", addReason, pos.Ratio*100, params.Ceiling*100),
				Price:  lastClose, Amount: capital * inc,
				ResultingRatio: pos.Ratio + inc,
			}
		}
	}

	return contracts.Hold(sleeve, "符合持有条件（价格在均线上方且趋势未坏）")
}

// evaluateTrendFlat scans ranked candidates and buys the first one passing
// the buy check.
func (e *Evaluator) evaluateTrendFlat(ctx context.Context, sleeve contracts.Sleeve) contracts.Decision {
	candidates, err := e.pool.Candidates(ctx, sleeve)
	if err != nil {
		return contracts.Hold(sleeve, degraded("获取候选标的失败", err))
	}

	params := sleeve.Params()
	capital := e.capital.SleeveCapital(sleeve)

	for _, c := range candidates {
		ok, reason, lastClose := e.buyCheck(ctx, sleeve, c.Code)
		if !ok {
			e.log.WithFields(map[string]interface{}{
				"sleeve": sleeve, "code": c.Code, "reason": reason,
			}).Debug("Buy check rejected")
			continue
		}
		candidate := c
		return contracts.Decision{
			Sleeve: sleeve, Action: contracts.ActionBuy,
			Code: c.Code, Name: c.Name,
			Candidate: &candidate,
			Reason:    reason, Price: lastClose,
			Amount: capital * params.EntryRatio, ResultingRatio: params.EntryRatio,
		}
	}
	return contracts.Hold(sleeve, "无符合条件的买入标的")
}

// trySwitch evaluates the intra-sleeve rotation: only reachable when the
// current holding already wants to exit, capped at three switches per sleeve
// per calendar month, and only into the best-scoring candidate that passes
// the buy check.
func (e *Evaluator) trySwitch(ctx context.Context, sleeve contracts.Sleeve, pos *contracts.Position, history []contracts.TradeRecord, sellReason string, now time.Time) *contracts.Decision {
	if contracts.CountSwitches(history, sleeve, now) >= maxSwitchesPerMonth {
		e.log.WithField("sleeve", sleeve).Info("Monthly switch limit reached, degrading to plain sell")
		return nil
	}

	candidates, err := e.pool.Candidates(ctx, sleeve)
	if err != nil {
		e.log.WithError(err).Warn("Candidate fetch failed, degrading to plain sell")
		return nil
	}

	params := sleeve.Params()
	capital := e.capital.SleeveCapital(sleeve)

	var (
		best       *contracts.Candidate
		bestScore  float64
		bestReason string
		bestClose  float64
	)
	for i, c := range candidates {
		if c.Code == pos.Code {
			continue
		}
		ok, buyReason, lastClose := e.buyCheck(ctx, sleeve, c.Code)
		if !ok {
			continue
		}
		score := switchScore(c)
		if best == nil || score > bestScore {
			best = &candidates[i]
			bestScore = score
			bestReason = buyReason
			bestClose = lastClose
		}
	}
	if best == nil {
		return nil
	}

	return &contracts.Decision{
		Sleeve: sleeve, Action: contracts.ActionSwitch,
		Code: pos.Code, Name: pos.Name,
		Switch: &contracts.SwitchPlan{
			SellCode:   pos.Code,
			SellName:   pos.Name,
			SellAmount: capital * pos.Ratio,
			Buy:        *best,
			BuyAmount:  capital * params.EntryRatio,
			BuyPrice:   bestClose,
		},
		Reason:         fmt.Sprintf("卖出原因: %s; 买入原因: %s", sellReason, bestReason),
		ResultingRatio: params.EntryRatio,
	}
}

// switchScore ranks replacement candidates: base 50, liquidity up to 20,
// valuation 30 below the 40th percentile else 15.
func switchScore(c contracts.Candidate) float64 {
	score := 50.0
	score += math.Min(c.Volume/10_000_000, 20)
	if c.ValuationPercentile < 40 {
		score += 30
	} else {
		score += 15
	}
	return score
}

// buyCheck resolves the data behind CheckBuy for one candidate. Provider
// failures fold into the rejection reason.
func (e *Evaluator) buyCheck(ctx context.Context, sleeve contracts.Sleeve, code string) (bool, string, float64) {
	series, err := e.data.GetSeries(ctx, code)
	if err != nil {
		return false, degraded("获取行情失败", err), 0
	}
	series = Enrich(series)
	if series.Len() == 0 {
		return false, "行情数据为空", 0
	}

	var valuationPct, sentiment float64
	switch sleeve {
	case contracts.SleeveStable:
		v, err := e.data.GetValuation(ctx, code)
		if err != nil {
			return false, degraded("获取估值分位失败", err), 0
		}
		valuationPct = v.Percentile
	case contracts.SleeveAggressive:
		s, err := e.data.GetSentiment(ctx, code)
		if err != nil {
			return false, degraded("获取市场情绪失败", err), 0
		}
		sentiment = s
	}

	ok, reason := CheckBuy(sleeve, series, valuationPct, sentiment)
	return ok, reason, series.Latest().Close
}

// checkForcedExit resolves the event feeds behind the liquidation check.
// Feed failures degrade to "no event", never to a forced exit.
func (e *Evaluator) checkForcedExit(ctx context.Context, sleeve contracts.Sleeve, pos *contracts.Position, now time.Time) (bool, string) {
	var in LiquidationInput

	alerts, err := e.data.GetFundamentalAlerts(ctx, pos.Code)
	if err != nil {
		e.log.WithError(err).WithField("code", pos.Code).Warn("Fundamental alert feed degraded")
	} else {
		in.Alerts = alerts
	}

	policies, err := e.data.GetPolicyEvents(ctx, pos.Code)
	if err != nil {
		e.log.WithError(err).WithField("code", pos.Code).Warn("Policy event feed degraded")
	} else {
		in.PolicyEvents = policies
	}

	return CheckLiquidation(sleeve, pos, in, now)
}

// evaluateArbitrage is the arbitrage sleeve state machine:
// EMPTY -> OPEN -> EMPTY, closed by liquidation or at 80% of the recorded
// expected return.
func (e *Evaluator) evaluateArbitrage(ctx context.Context, pos *contracts.Position, now time.Time) contracts.Decision {
	sleeve := contracts.SleeveArbitrage
	capital := e.capital.SleeveCapital(sleeve)

	if pos != nil {
		if forced, reason := e.checkForcedExit(ctx, sleeve, pos, now); forced {
			return contracts.Decision{
				Sleeve: sleeve, Action: contracts.ActionClose,
				Code: pos.Code, Name: pos.Name,
				Reason: reason, Forced: true,
				Amount: capital * pos.Ratio,
			}
		}

		quote, err := e.data.GetRealtime(ctx, pos.Code)
		if err != nil {
			return contracts.Hold(sleeve, degraded("获取实时行情失败", err))
		}
		if pos.OpenPrice <= 0 {
			return contracts.Hold(sleeve, "持仓开仓价异常，等待人工处理")
		}

		realized := (quote.Price - pos.OpenPrice) / pos.OpenPrice
		if pos.Direction == "sell" {
			realized = -realized
		}
		if pos.ExpectedReturn > 0 && realized >= arbitrageCloseShare*pos.ExpectedReturn {
			return contracts.Decision{
				Sleeve: sleeve, Action: contracts.ActionClose,
				Code: pos.Code, Name: pos.Name,
				Reason: fmt.Sprintf("已实现收益%.2f%%达到预期收益的80%%", realized*100),
				Price:  quote.Price, Amount: capital * pos.Ratio,
			}
		}
		return contracts.Hold(sleeve, fmt.Sprintf("套利持仓未达目标（已实现%.2f%%，预期%.2f%%）", realized*100, pos.ExpectedReturn*100))
	}

	universe, err := e.pool.Universe(ctx)
	if err != nil {
		return contracts.Hold(sleeve, degraded("获取ETF池失败", err))
	}

	opportunities := Combine(e.detector.Scan(ctx, universe, now))
	if len(opportunities) == 0 {
		return contracts.Hold(sleeve, "无符合条件的套利机会")
	}

	top := opportunities[0]
	quote, err := e.data.GetRealtime(ctx, top.Code)
	if err != nil {
		return contracts.Hold(sleeve, degraded("套利标的实时行情失败", err))
	}

	// 最多动用套利仓资金的30%
	remaining := capital
	size := math.Min(arbitrageEntryRatio*capital, remaining)

	return contracts.Decision{
		Sleeve: sleeve, Action: contracts.ActionBuy,
		Code: top.Code, Name: top.Name,
		Opportunity: &top,
		Reason:      top.Reason,
		Price:       quote.Price,
		Amount:      size,
		ResultingRatio: arbitrageEntryRatio,
	}
}

// degraded folds a collaborator failure into a rejection reason.
func degraded(base string, err error) string {
	return fmt.Sprintf("%s: %v", base, err)
}
