package contracts

import "time"

// TradeType tags a trade record.
type TradeType string

const (
	TradeBuy         TradeType = "buy"
	TradeAdd         TradeType = "add"
	TradeSell        TradeType = "sell"
	TradePartialSell TradeType = "partial_sell"
	TradeSwitchSell  TradeType = "switch_sell"
	TradeSwitchBuy   TradeType = "switch_buy"
	TradeClose       TradeType = "close"
)

// TradeRecord is one immutable, append-only ledger entry. Records are never
// mutated or deleted; the monthly switch-rate limit is computed from them.
type TradeRecord struct {
	Type      TradeType `json:"type"`
	Sleeve    Sleeve    `json:"sleeve"`
	Code      string    `json:"code"`
	Name      string    `json:"name"`
	Amount    float64   `json:"amount"`
	Reason    string    `json:"reason"`
	Timestamp time.Time `json:"timestamp"`
}

// CountSwitches returns how many switches the sleeve executed in the calendar
// month of ref. Each switch leaves a switch_sell/switch_buy pair, so only the
// sell leg is counted.
func CountSwitches(history []TradeRecord, sleeve Sleeve, ref time.Time) int {
	year, month := ref.Year(), ref.Month()
	n := 0
	for _, rec := range history {
		if rec.Sleeve != sleeve || rec.Type != TradeSwitchSell {
			continue
		}
		if rec.Timestamp.Year() == year && rec.Timestamp.Month() == month {
			n++
		}
	}
	return n
}
