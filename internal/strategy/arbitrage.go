package strategy

import (
	"context"
	"fmt"
	"math"
	"sort"
	"time"

	"github.com/mingxuan/fishbowl/internal/contracts"
	"github.com/mingxuan/fishbowl/pkg/logger"
)

const (
	premiumMinRate      = 0.01
	premiumMinVolume    = 5_000_000
	premiumFee          = 0.001
	eventWindowDays     = 3
	eventExpectedReturn = 0.015
	pairMinSpread       = 0.005
	pairMinVolume       = 3_000_000
	pairFee             = 0.002
	minExpectedReturn   = 0.003 // combiner floor
	maxOpportunities    = 3
)

// Detector runs the three arbitrage checks over the candidate universe.
// Each detector is independent and yields at most one opportunity per
// instrument (or pair).
type Detector struct {
	data contracts.MarketData
	log  *logger.Logger
}

// NewDetector creates an arbitrage detector.
func NewDetector(data contracts.MarketData, log *logger.Logger) *Detector {
	return &Detector{data: data, log: log}
}

// DetectPremium checks the ETF's premium/discount against its IOPV.
func (d *Detector) DetectPremium(ctx context.Context, c contracts.Candidate) (*contracts.ArbitrageOpportunity, error) {
	quote, err := d.data.GetRealtime(ctx, c.Code)
	if err != nil {
		return nil, contracts.NewProviderError("get_realtime", err)
	}
	if quote.IOPV <= 0 {
		// Source does not publish IOPV for this fund; not an error.
		return nil, nil
	}

	rate := (quote.Price - quote.IOPV) / quote.IOPV
	if math.Abs(rate) < premiumMinRate || quote.Volume < premiumMinVolume {
		return nil, nil
	}

	direction := "sell"
	label := "溢价"
	if rate <= -premiumMinRate {
		direction = "buy"
		label = "折价"
	}

	return &contracts.ArbitrageOpportunity{
		Kind:           contracts.OpportunityPremium,
		Code:           c.Code,
		Name:           c.Name,
		Direction:      direction,
		ExpectedReturn: math.Abs(rate) - premiumFee,
		Reason:         fmt.Sprintf("%s率%.2f%%（IOPV %.3f）", label, math.Abs(rate)*100, quote.IOPV),
		Priority:       3,
	}, nil
}

// DetectEvent scans upcoming corporate events within the next three days.
// Among multiple events the type precedence decides:
// 份额折算 > 分红 > 成分调整.
func (d *Detector) DetectEvent(ctx context.Context, c contracts.Candidate, now time.Time) (*contracts.ArbitrageOpportunity, error) {
	events, err := d.data.GetEvents(ctx, c.Code)
	if err != nil {
		return nil, contracts.NewProviderError("get_events", err)
	}

	var best *contracts.CorporateEvent
	for i, ev := range events {
		// 按自然日比较，当天的事件算第0天
		days := calendarDays(now, ev.Date)
		if days < 0 || days > eventWindowDays {
			continue
		}
		if best == nil || ev.Type.Rank() > best.Type.Rank() {
			best = &events[i]
		}
	}
	if best == nil {
		return nil, nil
	}

	return &contracts.ArbitrageOpportunity{
		Kind:           contracts.OpportunityEvent,
		Code:           c.Code,
		Name:           c.Name,
		Direction:      "buy",
		ExpectedReturn: eventExpectedReturn,
		Reason:         fmt.Sprintf("%s事件临近（%s）", eventLabel(best.Type), best.Date.Format("01-02")),
		Priority:       2,
	}, nil
}

// calendarDays returns the whole-day difference between the two dates,
// ignoring clock time.
func calendarDays(from, to time.Time) int {
	f := time.Date(from.Year(), from.Month(), from.Day(), 0, 0, 0, 0, time.UTC)
	t := time.Date(to.Year(), to.Month(), to.Day(), 0, 0, 0, 0, time.UTC)
	return int(t.Sub(f).Hours() / 24)
}

func eventLabel(t contracts.CorporateEventType) string {
	switch t {
	case contracts.EventShareConversion:
		return "份额折算"
	case contracts.EventDividend:
		return "分红"
	case contracts.EventRebalance:
		return "成分调整"
	default:
		return string(t)
	}
}

// DetectCrossMarket compares the instrument against its related listings on
// other markets and keeps only the widest-spread pair.
func (d *Detector) DetectCrossMarket(ctx context.Context, c contracts.Candidate) (*contracts.ArbitrageOpportunity, error) {
	related, err := d.data.GetRelated(ctx, c.Code)
	if err != nil {
		return nil, contracts.NewProviderError("get_related", err)
	}
	if len(related) == 0 {
		return nil, nil
	}

	quoteA, err := d.data.GetRealtime(ctx, c.Code)
	if err != nil {
		return nil, contracts.NewProviderError("get_realtime", err)
	}

	var best *contracts.ArbitrageOpportunity
	for _, rel := range related {
		quoteB, err := d.data.GetRealtime(ctx, rel.Code)
		if err != nil {
			d.log.WithError(err).WithField("code", rel.Code).Debug("Skipping pair leg, quote unavailable")
			continue
		}
		if quoteB.Price <= 0 {
			continue
		}

		spread := (quoteA.Price - quoteB.Price) / quoteB.Price
		if math.Abs(spread) < pairMinSpread ||
			quoteA.Volume < pairMinVolume || quoteB.Volume < pairMinVolume {
			continue
		}

		direction := "sell"
		if spread < 0 {
			direction = "buy"
		}
		opp := &contracts.ArbitrageOpportunity{
			Kind:           contracts.OpportunityCrossMarket,
			Code:           c.Code,
			Name:           c.Name,
			PairCode:       rel.Code,
			PairName:       rel.Name,
			Direction:      direction,
			ExpectedReturn: math.Abs(spread) - pairFee,
			Reason:         fmt.Sprintf("跨市场价差%.2f%%（对手标的%s）", math.Abs(spread)*100, rel.Code),
			Priority:       1,
		}
		if best == nil || opp.ExpectedReturn > best.ExpectedReturn {
			best = opp
		}
	}
	return best, nil
}

// Scan runs all detectors across the universe. Per-instrument failures are
// downgraded to debug logs; a broken quote never aborts the scan.
func (d *Detector) Scan(ctx context.Context, universe []contracts.Candidate, now time.Time) []contracts.ArbitrageOpportunity {
	var all []contracts.ArbitrageOpportunity
	for _, c := range universe {
		if opp, err := d.DetectPremium(ctx, c); err != nil {
			d.log.WithError(err).WithField("code", c.Code).Debug("Premium detector degraded")
		} else if opp != nil {
			all = append(all, *opp)
		}

		if opp, err := d.DetectEvent(ctx, c, now); err != nil {
			d.log.WithError(err).WithField("code", c.Code).Debug("Event detector degraded")
		} else if opp != nil {
			all = append(all, *opp)
		}

		if opp, err := d.DetectCrossMarket(ctx, c); err != nil {
			d.log.WithError(err).WithField("code", c.Code).Debug("Cross-market detector degraded")
		} else if opp != nil {
			all = append(all, *opp)
		}
	}
	return all
}

// Combine ranks and deduplicates detector hits: sort by (priority desc,
// expected return desc), drop anything under the 0.3% floor, keep one per
// kind first, then backfill by rank up to three total.
func Combine(opps []contracts.ArbitrageOpportunity) []contracts.ArbitrageOpportunity {
	filtered := make([]contracts.ArbitrageOpportunity, 0, len(opps))
	for _, o := range opps {
		if o.ExpectedReturn >= minExpectedReturn {
			filtered = append(filtered, o)
		}
	}

	sort.SliceStable(filtered, func(i, j int) bool {
		if filtered[i].Priority != filtered[j].Priority {
			return filtered[i].Priority > filtered[j].Priority
		}
		return filtered[i].ExpectedReturn > filtered[j].ExpectedReturn
	})

	result := make([]contracts.ArbitrageOpportunity, 0, maxOpportunities)
	seen := make(map[contracts.OpportunityKind]bool)
	var skipped []contracts.ArbitrageOpportunity
	for _, o := range filtered {
		if seen[o.Kind] {
			skipped = append(skipped, o)
			continue
		}
		seen[o.Kind] = true
		result = append(result, o)
		if len(result) == maxOpportunities {
			return result
		}
	}
	for _, o := range skipped {
		result = append(result, o)
		if len(result) == maxOpportunities {
			break
		}
	}
	sort.SliceStable(result, func(i, j int) bool {
		if result[i].Priority != result[j].Priority {
			return result[i].Priority > result[j].Priority
		}
		return result[i].ExpectedReturn > result[j].ExpectedReturn
	})
	return result
}
