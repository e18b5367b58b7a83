package strategy

import (
	"github.com/mingxuan/fishbowl/internal/contracts"
)

const (
	regimeWindow    = 20 // trading days in one month
	bullThreshold   = 0.05
	bearThreshold   = -0.05
)

// ClassifyMarket derives the market environment from the benchmark index's
// trailing one-month return: bull above +5%, bear below -5%, shock between.
// The resulting capital split is reported with each cycle but deliberately
// not applied to sizing.
func ClassifyMarket(benchmark contracts.InstrumentSeries) (contracts.MarketEnvironment, error) {
	if len(benchmark) < regimeWindow+1 {
		return contracts.MarketShock, contracts.ErrInsufficientData
	}
	base := benchmark.FromEnd(regimeWindow).Close
	if base <= 0 {
		return contracts.MarketShock, &contracts.ComputationError{Op: "classify market", Msg: "non-positive benchmark close"}
	}
	ret := (benchmark.Latest().Close - base) / base
	switch {
	case ret > bullThreshold:
		return contracts.MarketBull, nil
	case ret < bearThreshold:
		return contracts.MarketBear, nil
	default:
		return contracts.MarketShock, nil
	}
}
