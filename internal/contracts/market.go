package contracts

import "time"

// RealtimeQuote is the intraday snapshot used by the arbitrage detectors.
// IOPV may be zero when the source does not publish it.
type RealtimeQuote struct {
	Code   string  `json:"code"`
	Price  float64 `json:"price"`
	IOPV   float64 `json:"iopv,omitempty"`
	Volume float64 `json:"volume"`
}

// Valuation carries the index valuation percentile (0-100) behind an ETF.
type Valuation struct {
	Code       string  `json:"code"`
	Percentile float64 `json:"percentile"`
}

// CorporateEventType orders event-driven opportunities: share conversion
// beats dividend beats constituent rebalance.
type CorporateEventType string

const (
	EventShareConversion CorporateEventType = "share_conversion" // 份额折算
	EventDividend        CorporateEventType = "dividend"         // 分红
	EventRebalance       CorporateEventType = "constituent_rebalance"
)

// Rank returns the event type's precedence (higher wins).
func (t CorporateEventType) Rank() int {
	switch t {
	case EventShareConversion:
		return 3
	case EventDividend:
		return 2
	case EventRebalance:
		return 1
	default:
		return 0
	}
}

// CorporateEvent is one upcoming corporate action.
type CorporateEvent struct {
	Date time.Time          `json:"date"`
	Type CorporateEventType `json:"type"`
}

// PolicyImpact grades an adverse policy event.
type PolicyImpact string

const (
	PolicySevere   PolicyImpact = "severe"
	PolicyModerate PolicyImpact = "moderate"
	PolicyMinor    PolicyImpact = "minor"
)

// PolicyEvent is one policy announcement affecting an instrument's sector.
type PolicyEvent struct {
	Date   time.Time    `json:"date"`
	Impact PolicyImpact `json:"impact"`
}

// FundamentalAlert is a reported fundamental blow-up of an index constituent
// (fraud, delisting risk, earnings collapse). Three or more inside the
// evaluation window force liquidation.
type FundamentalAlert struct {
	Date   time.Time `json:"date"`
	Code   string    `json:"code"` // constituent, not the ETF
	Detail string    `json:"detail"`
}
