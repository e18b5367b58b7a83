package strategy

import (
	"fmt"
	"time"

	"github.com/mingxuan/fishbowl/internal/contracts"
)

// SellKind classifies why a sell signal fired.
type SellKind string

const (
	SellNone       SellKind = "none"
	SellProfitTake SellKind = "profit_take"
	SellStopLoss   SellKind = "stop_loss"
	SellTechnical  SellKind = "technical"
)

const (
	volumeSurgeRatio = 1.2  // buy: latest volume vs 5-day average
	maxPullback      = 0.05 // add: drawdown from 10-bar high
	addVolumeLow     = 0.7
	addVolumeHigh    = 1.3
	addSpacingDays   = 5
	stableValuationCeiling = 60.0
)

// CheckBuy answers "buy now?" for one instrument. The series must already be
// enriched. All five conditions must pass; the first failing one determines
// the reason. Breakout semantics: both of the latest two closes above MA20
// (sustained), not a single-bar crossover.
func CheckBuy(sleeve contracts.Sleeve, series contracts.InstrumentSeries, valuationPct, sentiment float64) (bool, string) {
	if len(series) < maWindow {
		return false, "数据不足（需至少20天行情数据）"
	}

	latest := series.Latest()
	prev := series.FromEnd(1)

	// 持续突破：最近两日收盘价均站上20日均线
	if latest.Close <= latest.MA20 || prev.Close <= prev.MA20 {
		return false, "未形成持续突破（最近两日收盘价需站上20日均线）"
	}

	// 趋势确认：20日均线高于3日前
	if latest.MA20 <= series.FromEnd(3).MA20 {
		return false, "20日均线未呈上升趋势"
	}

	if latest.Volume < latest.VolumeMA5*volumeSurgeRatio {
		return false, "成交量未放大20%以上（未达5日均量的1.2倍）"
	}

	switch sleeve {
	case contracts.SleeveStable:
		if valuationPct >= stableValuationCeiling {
			return false, fmt.Sprintf("估值分位%.0f%%过高（稳健仓需低于60%%）", valuationPct)
		}
	case contracts.SleeveAggressive:
		if sentiment <= 0 {
			return false, fmt.Sprintf("市场情绪%.2f不佳（激进仓需大于0）", sentiment)
		}
	}

	return true, "符合买入条件（持续突破均线+量能放大+趋势确认）"
}

// CheckAdd answers "add now?" for the current holding. All three conditions
// are required: add spacing, a mild pullback still above MA20, and steady
// volume.
func CheckAdd(series contracts.InstrumentSeries, lastAddDate, now time.Time) (bool, string) {
	if !lastAddDate.IsZero() && now.Before(lastAddDate.AddDate(0, 0, addSpacingDays)) {
		return false, "距上次加仓不足5天"
	}
	if len(series) < maWindow {
		return false, "数据不足（需至少20天行情数据）"
	}

	high, err := RecentHigh(series, recentHighWindow)
	if err != nil || high <= 0 {
		return false, "数据不足（需至少10天行情数据计算近期高点）"
	}

	latest := series.Latest()
	pullback := (high - latest.Close) / high
	if pullback > maxPullback {
		return false, fmt.Sprintf("距10日高点回撤%.1f%%超过5%%", pullback*100)
	}
	if latest.Close < latest.MA20 {
		return false, "收盘价跌破20日均线"
	}

	if latest.VolumeMA5 <= 0 {
		return false, "数据不足（缺少5日均量）"
	}
	ratio := latest.Volume / latest.VolumeMA5
	if ratio < addVolumeLow || ratio > addVolumeHigh {
		return false, fmt.Sprintf("量能比%.2f异常（需在0.7-1.3之间）", ratio)
	}

	return true, "符合加仓条件（温和回调+量能平稳）"
}

// CheckSell answers "sell now?" for the current holding against its cost
// basis. Thresholds are checked take-profit, stop-loss, then technical exit;
// the first match wins. A non-positive buy price is a computation error.
func CheckSell(sleeve contracts.Sleeve, series contracts.InstrumentSeries, buyPrice float64) (bool, string, SellKind, error) {
	if len(series) < 2 {
		return false, "数据不足（需至少2天行情数据）", SellNone, nil
	}
	if buyPrice <= 0 {
		return false, "", SellNone, &contracts.ComputationError{Op: "sell check", Msg: fmt.Sprintf("invalid buy price %.4f", buyPrice)}
	}

	params := sleeve.Params()
	latest := series.Latest()
	ret := (latest.Close - buyPrice) / buyPrice

	if ret >= params.TakeProfit {
		return true, fmt.Sprintf("达到止盈线（收益%.1f%% ≥ %.0f%%）", ret*100, params.TakeProfit*100), SellProfitTake, nil
	}
	if ret <= params.StopLoss {
		return true, fmt.Sprintf("触发止损线（收益%.1f%% ≤ %.0f%%）", ret*100, params.StopLoss*100), SellStopLoss, nil
	}

	// 技术破位：连续两日收盘跌破20日均线且均线走弱
	if len(series) >= maWindow {
		prev := series.FromEnd(1)
		if latest.Close < latest.MA20 && prev.Close < prev.MA20 &&
			latest.MA20 < series.FromEnd(3).MA20 {
			return true, "技术破位（连续两日跌破20日均线且均线转弱）", SellTechnical, nil
		}
	}

	return false, "未满足卖出条件（价格在均线上方且趋势未坏）", SellNone, nil
}

// LiquidationInput carries the event feeds behind the forced-exit check.
type LiquidationInput struct {
	Alerts       []contracts.FundamentalAlert
	PolicyEvents []contracts.PolicyEvent
}

const (
	liquidationAlertCount  = 3
	policyLookbackDays     = 5
	arbitrageMaxHoldingAge = 3 // days
)

// CheckLiquidation answers "must liquidate?" — a forced full exit that
// overrides ordinary P&L logic.
func CheckLiquidation(sleeve contracts.Sleeve, pos *contracts.Position, in LiquidationInput, now time.Time) (bool, string) {
	if pos == nil {
		return false, ""
	}

	if len(in.Alerts) >= liquidationAlertCount {
		return true, fmt.Sprintf("成分股基本面暴雷%d起（≥3起强制清仓）", len(in.Alerts))
	}

	cutoff := now.AddDate(0, 0, -policyLookbackDays)
	for _, ev := range in.PolicyEvents {
		if ev.Impact == contracts.PolicySevere && !ev.Date.Before(cutoff) && !ev.Date.After(now) {
			return true, "近5日出现重大利空政策（强制清仓）"
		}
	}

	if sleeve == contracts.SleeveArbitrage && !pos.OpenDate.IsZero() {
		if age := now.Sub(pos.OpenDate); age >= arbitrageMaxHoldingAge*24*time.Hour {
			return true, fmt.Sprintf("套利持仓已满%d天（上限3天，强制平仓）", int(age.Hours()/24))
		}
	}

	return false, ""
}
