package contracts

import (
	"fmt"
	"strings"
	"time"
)

// Action is the per-sleeve outcome of one evaluation cycle.
type Action string

const (
	ActionHold        Action = "hold"
	ActionBuy         Action = "buy"
	ActionAdd         Action = "add"
	ActionSell        Action = "sell"
	ActionPartialSell Action = "partial_sell"
	ActionSwitch      Action = "switch"
	ActionClose       Action = "close"
)

// SwitchPlan carries the two legs of an intra-sleeve rotation.
type SwitchPlan struct {
	SellCode   string    `json:"sell_code"`
	SellName   string    `json:"sell_name"`
	SellAmount float64   `json:"sell_amount"`
	Buy        Candidate `json:"buy"`
	BuyAmount  float64   `json:"buy_amount"`
	BuyPrice   float64   `json:"buy_price"`
}

// Decision is the transient output of a sleeve evaluator. It is input to the
// transition applier, never persisted directly.
type Decision struct {
	Sleeve         Sleeve                `json:"sleeve"`
	Action         Action                `json:"action"`
	Code           string                `json:"code,omitempty"`
	Name           string                `json:"name,omitempty"`
	Candidate      *Candidate            `json:"candidate,omitempty"` // buy target when opening flat
	Switch         *SwitchPlan           `json:"switch,omitempty"`
	Opportunity    *ArbitrageOpportunity `json:"opportunity,omitempty"` // arbitrage open only
	Reason         string                `json:"reason"`
	Price          float64               `json:"price,omitempty"` // reference price for bookkeeping
	Amount         float64               `json:"amount,omitempty"`
	ResultingRatio float64               `json:"resulting_ratio,omitempty"`
	Forced         bool                  `json:"forced,omitempty"` // forced liquidation
}

// Hold builds a hold decision for the sleeve.
func Hold(sleeve Sleeve, reason string) Decision {
	return Decision{Sleeve: sleeve, Action: ActionHold, Reason: reason}
}

// MarketEnvironment classifies the benchmark's trailing one-month return.
type MarketEnvironment string

const (
	MarketBull  MarketEnvironment = "bull"  // 牛市
	MarketBear  MarketEnvironment = "bear"  // 熊市
	MarketShock MarketEnvironment = "shock" // 震荡市
)

// CapitalSplit is a stable/aggressive/arbitrage capital allocation.
type CapitalSplit struct {
	Stable     float64 `json:"stable"`
	Aggressive float64 `json:"aggressive"`
	Arbitrage  float64 `json:"arbitrage"`
}

// Split returns the allocation the environment would select. Declared policy:
// currently reported alongside results, not applied to sizing.
func (m MarketEnvironment) Split() CapitalSplit {
	switch m {
	case MarketBull:
		return CapitalSplit{Stable: 0.50, Aggressive: 0.40, Arbitrage: 0.10}
	case MarketBear:
		return CapitalSplit{Stable: 0.70, Aggressive: 0.20, Arbitrage: 0.10}
	default:
		return CapitalSplit{Stable: 0.60, Aggressive: 0.30, Arbitrage: 0.10}
	}
}

// StrategyResult is the combined outcome of one evaluation cycle.
type StrategyResult struct {
	Timestamp   time.Time           `json:"timestamp"`
	Environment MarketEnvironment   `json:"market_environment"`
	Allocation  CapitalSplit        `json:"allocation"`
	Decisions   map[Sleeve]Decision `json:"decisions"`
	Summary     string              `json:"summary"`
}

var sleeveLabels = map[Sleeve]string{
	SleeveStable:     "稳健仓",
	SleeveAggressive: "激进仓",
	SleeveArbitrage:  "套利仓",
}

// BuildSummary renders the human-readable summary: one line per non-hold
// sleeve, "<sleeve>: <action> <code> (<reason>)".
func BuildSummary(decisions map[Sleeve]Decision) string {
	var lines []string
	for _, sleeve := range Sleeves {
		d, ok := decisions[sleeve]
		if !ok || d.Action == ActionHold {
			continue
		}
		code := d.Code
		if d.Action == ActionSwitch && d.Switch != nil {
			code = fmt.Sprintf("%s->%s", d.Switch.SellCode, d.Switch.Buy.Code)
		}
		lines = append(lines, fmt.Sprintf("%s: %s %s (%s)", sleeveLabels[sleeve], d.Action, code, d.Reason))
	}
	if len(lines) == 0 {
		return "所有仓位维持不变，无操作建议"
	}
	return strings.Join(lines, "\n")
}
