package contracts

// OpportunityKind tags which detector produced an arbitrage opportunity.
type OpportunityKind string

const (
	OpportunityPremium     OpportunityKind = "premium"
	OpportunityEvent       OpportunityKind = "event"
	OpportunityCrossMarket OpportunityKind = "cross_market"
)

// ArbitrageOpportunity is one candidate short-horizon trade. Transient:
// recomputed every cycle, never persisted.
type ArbitrageOpportunity struct {
	Kind           OpportunityKind `json:"kind"`
	Code           string          `json:"code"`
	Name           string          `json:"name"`
	PairCode       string          `json:"pair_code,omitempty"` // cross_market only
	PairName       string          `json:"pair_name,omitempty"`
	Direction      string          `json:"direction"` // "buy" or "sell"
	ExpectedReturn float64         `json:"expected_return"`
	Reason         string          `json:"reason"`
	Priority       int             `json:"priority"` // premium 3 > event 2 > cross_market 1
}

// IsPair reports whether the opportunity has two legs.
func (o *ArbitrageOpportunity) IsPair() bool {
	return o.Kind == OpportunityCrossMarket && o.PairCode != ""
}
