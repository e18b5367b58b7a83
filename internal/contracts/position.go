package contracts

import "time"

// Sleeve identifies one of the three independently managed capital buckets.
type Sleeve string

const (
	SleeveStable     Sleeve = "stable"     // 稳健仓
	SleeveAggressive Sleeve = "aggressive" // 激进仓
	SleeveArbitrage  Sleeve = "arbitrage"  // 套利仓
)

// Sleeves lists all sleeves in evaluation order.
var Sleeves = []Sleeve{SleeveStable, SleeveAggressive, SleeveArbitrage}

// SleeveParams holds the per-sleeve rule constants. Branching on sleeve
// strings elsewhere is a bug; look the numbers up here.
type SleeveParams struct {
	Ceiling    float64 // max position_ratio
	EntryRatio float64 // initial buy ratio
	AddStep    float64 // add-position increment
	TakeProfit float64 // profit-take threshold on return ratio
	StopLoss   float64 // stop-loss threshold (negative)
}

var sleeveParams = map[Sleeve]SleeveParams{
	SleeveStable:     {Ceiling: 0.70, EntryRatio: 0.30, AddStep: 0.20, TakeProfit: 0.15, StopLoss: -0.05},
	SleeveAggressive: {Ceiling: 0.60, EntryRatio: 0.20, AddStep: 0.15, TakeProfit: 0.25, StopLoss: -0.08},
	SleeveArbitrage:  {Ceiling: 1.00, EntryRatio: 0.30, AddStep: 0, TakeProfit: 0.05, StopLoss: -0.02},
}

// Params returns the rule constants for the sleeve.
func (s Sleeve) Params() SleeveParams { return sleeveParams[s] }

// Valid reports whether s is a known sleeve tag.
func (s Sleeve) Valid() bool {
	_, ok := sleeveParams[s]
	return ok
}

// Position is the holding of one sleeve. A nil *Position means flat.
// Owned exclusively by the ledger; evaluators only read it.
type Position struct {
	Code     string   `json:"code"`
	Name     string   `json:"name"`
	Category Category `json:"category"`
	Ratio    float64  `json:"position_ratio"` // fraction of sleeve capital

	// stable / aggressive bookkeeping
	BuyPrice    float64   `json:"buy_price,omitempty"`
	BuyDate     time.Time `json:"buy_date,omitempty"`
	LastAddDate time.Time `json:"last_add_date,omitempty"`

	// arbitrage bookkeeping
	Direction      string    `json:"direction,omitempty"` // "buy" or "sell"
	OpenPrice      float64   `json:"open_price,omitempty"`
	OpenDate       time.Time `json:"open_date,omitempty"`
	ExpectedReturn float64   `json:"expected_return,omitempty"`
	PairCode       string    `json:"pair_code,omitempty"` // cross-market second leg
}

// Clone returns a deep copy of the position.
func (p *Position) Clone() *Position {
	if p == nil {
		return nil
	}
	cp := *p
	return &cp
}

// PositionBook maps each sleeve to its current holding (nil = flat).
// Passed by value into every cycle and returned mutated by the ledger, so no
// hidden shared state survives across sleeve evaluations.
type PositionBook map[Sleeve]*Position

// NewPositionBook returns an all-flat book.
func NewPositionBook() PositionBook {
	return PositionBook{
		SleeveStable:     nil,
		SleeveAggressive: nil,
		SleeveArbitrage:  nil,
	}
}

// Clone returns a deep copy of the book.
func (b PositionBook) Clone() PositionBook {
	out := make(PositionBook, len(b))
	for sleeve, pos := range b {
		out[sleeve] = pos.Clone()
	}
	return out
}
