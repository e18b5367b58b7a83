package pool

import (
	"context"
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/mingxuan/fishbowl/internal/contracts"
	"github.com/mingxuan/fishbowl/internal/marketdata"
	"github.com/mingxuan/fishbowl/internal/strategy"
	"github.com/mingxuan/fishbowl/pkg/logger"
)

const (
	// 固定10只ETF，每周五收盘后刷新
	poolSize = 10

	minFundSize      = 500_000_000 // 规模≥5亿
	minFundSizeFloor = 300_000_000 // 底线规模≥3亿
	minTurnover      = 50_000_000  // 日均成交额≥5000万
	maxTrackingError = 0.02
	relaxedTracking  = 0.03
	minBars          = 20
	relaxedMinBars   = 15

	// 每个仓位至少给三个候选，不够就从池里其他类别补
	minSleeveCandidates = 3
)

// ListingSource provides the full market ETF list with filter basics.
type ListingSource interface {
	FetchListings(ctx context.Context) ([]marketdata.Listing, error)
}

// Store persists pool snapshots between refreshes.
type Store interface {
	Replace(ctx context.Context, candidates []contracts.Candidate) error
	All(ctx context.Context) ([]contracts.Candidate, error)
	UpdatedAt(ctx context.Context) (time.Time, error)
}

// Manager builds and serves the curated ETF pool. It implements
// contracts.CandidateSource.
// ⭐ SSOT: ETF池的构建规则只在这里
type Manager struct {
	listings ListingSource
	data     contracts.MarketData
	store    Store
	logger   *logger.Logger
}

// NewManager wires the pool manager.
func NewManager(listings ListingSource, data contracts.MarketData, store Store, log *logger.Logger) *Manager {
	return &Manager{
		listings: listings,
		data:     data,
		store:    store,
		logger:   log,
	}
}

// filterTier is one pass over the market list. Tiers relax non-core
// conditions when the strict pass leaves the pool short.
type filterTier struct {
	name        string
	minSize     float64
	maxTracking float64
	minTurnover float64
	minBars     int
}

var tiers = []filterTier{
	{"strict", minFundSize, maxTrackingError, minTurnover, minBars},
	{"relaxed", minFundSize, relaxedTracking, minTurnover, relaxedMinBars},
	{"minimal", minFundSizeFloor, 1, 0, 0},
}

// Update rebuilds the pool from the full market list and persists it.
func (m *Manager) Update(ctx context.Context) ([]contracts.Candidate, error) {
	listings, err := m.listings.FetchListings(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to fetch market list: %w", err)
	}
	m.logger.WithField("count", len(listings)).Info("Rebuilding ETF pool")

	accepted := make([]marketdata.Listing, 0, poolSize)
	taken := make(map[string]bool)

	for _, tier := range tiers {
		if len(accepted) >= poolSize {
			break
		}
		for _, l := range listings {
			if taken[l.Code] {
				continue
			}
			if m.passes(ctx, l, tier) {
				accepted = append(accepted, l)
				taken[l.Code] = true
			}
		}
		m.logger.WithFields(map[string]interface{}{
			"tier": tier.name, "accepted": len(accepted),
		}).Debug("Pool filter tier done")
	}

	candidates := make([]contracts.Candidate, 0, len(accepted))
	for _, l := range accepted {
		candidates = append(candidates, m.build(ctx, l))
	}

	sortByScore(candidates)
	if len(candidates) > poolSize {
		candidates = candidates[:poolSize]
	}

	if err := m.store.Replace(ctx, candidates); err != nil {
		return nil, fmt.Errorf("failed to persist pool: %w", err)
	}

	m.logger.WithField("size", len(candidates)).Info("ETF pool updated")
	return candidates, nil
}

// passes applies one tier's conditions. Unavailable basics count as passing;
// the hard gates are series length and the size floor.
func (m *Manager) passes(ctx context.Context, l marketdata.Listing, tier filterTier) bool {
	if l.FundSize > 0 && l.FundSize < tier.minSize {
		return false
	}
	if l.TrackingError > 0 && l.TrackingError > tier.maxTracking {
		return false
	}
	if l.AvgTurnover > 0 && l.AvgTurnover < tier.minTurnover {
		return false
	}

	if tier.minBars > 0 {
		series, err := m.data.GetSeries(ctx, l.Code)
		if err != nil || series.Len() < tier.minBars {
			return false
		}
	}
	return true
}

// build scores one accepted listing and fills the candidate snapshot.
// 打分规则：基础50 + 均线上行10 + 当日涨幅最多10 + 放量5 + 类别加成
func (m *Manager) build(ctx context.Context, l marketdata.Listing) contracts.Candidate {
	c := contracts.Candidate{
		Code:                l.Code,
		Name:                l.Name,
		Category:            Classify(l.Name),
		ValuationPercentile: 50, // neutral until the source answers
		Score:               50,
	}

	series, err := m.data.GetSeries(ctx, l.Code)
	if err != nil {
		m.logger.WithError(err).WithField("code", l.Code).Warn("Scoring without series data")
		return c
	}
	series = strategy.Enrich(series)
	latest := series.Latest()
	c.Volume = latest.Volume

	if series.Len() >= minBars {
		old := series.FromEnd(minBars - 1).MA20
		if old > 0 && latest.MA20 > old {
			c.Score += 10
		}
	}

	if series.Len() >= 2 {
		prev := series.FromEnd(1).Close
		if prev > 0 && latest.Close > prev {
			gain := (latest.Close - prev) / prev * 100
			if gain > 10 {
				gain = 10
			}
			c.Score += gain
		}
	}

	if latest.VolumeMA5 > 0 && latest.Volume > latest.VolumeMA5*1.2 {
		c.Score += 5
	}

	switch c.Category {
	case contracts.CategoryBroad:
		c.Score += 3
	case contracts.CategorySector, contracts.CategoryTheme:
		c.Score += 5
	}

	if v, err := m.data.GetValuation(ctx, l.Code); err == nil {
		c.ValuationPercentile = v.Percentile
	} else {
		m.logger.WithError(err).WithField("code", l.Code).Debug("Valuation unavailable, using neutral percentile")
	}

	return c
}

// Candidates returns the ranked per-sleeve view of the pool: broad funds
// first for the stable sleeve, sector/theme first for the aggressive one,
// everything for arbitrage. Short views are backfilled from the rest of the
// pool so an evaluator always has something to look at.
func (m *Manager) Candidates(ctx context.Context, sleeve contracts.Sleeve) ([]contracts.Candidate, error) {
	all, err := m.store.All(ctx)
	if err != nil {
		return nil, contracts.NewProviderError("pool_candidates", err)
	}

	if sleeve == contracts.SleeveArbitrage {
		return all, nil
	}

	preferred := func(c contracts.Candidate) bool {
		if sleeve == contracts.SleeveStable {
			return c.Category == contracts.CategoryBroad
		}
		return c.Category != contracts.CategoryBroad
	}

	out := make([]contracts.Candidate, 0, len(all))
	rest := make([]contracts.Candidate, 0, len(all))
	for _, c := range all {
		if preferred(c) {
			out = append(out, c)
		} else {
			rest = append(rest, c)
		}
	}

	// 优先类别内部按分排序，补位的排在后面，评估器按顺序试
	sortByScore(out)
	sortByScore(rest)
	for len(out) < minSleeveCandidates && len(rest) > 0 {
		out = append(out, rest[0])
		rest = rest[1:]
	}
	return out, nil
}

// Universe returns the full current pool.
func (m *Manager) Universe(ctx context.Context) ([]contracts.Candidate, error) {
	all, err := m.store.All(ctx)
	if err != nil {
		return nil, contracts.NewProviderError("pool_universe", err)
	}
	return all, nil
}

// Summary renders the pool as a push message.
func (m *Manager) Summary(ctx context.Context) (string, error) {
	all, err := m.store.All(ctx)
	if err != nil {
		return "", err
	}
	updated, err := m.store.UpdatedAt(ctx)
	if err != nil {
		return "", err
	}

	var b strings.Builder
	fmt.Fprintf(&b, "【鱼盆ETF池】共%d只", len(all))
	if !updated.IsZero() {
		fmt.Fprintf(&b, "（更新于 %s）", updated.Format("2006-01-02"))
	}
	b.WriteString("\n")

	labels := map[contracts.Category]string{
		contracts.CategoryBroad:  "宽基",
		contracts.CategorySector: "行业",
		contracts.CategoryTheme:  "主题",
	}
	for i, c := range all {
		fmt.Fprintf(&b, "%d. %s %s [%s] 得分%.1f\n", i+1, c.Code, c.Name, labels[c.Category], c.Score)
	}
	return strings.TrimRight(b.String(), "\n"), nil
}

func sortByScore(cs []contracts.Candidate) {
	sort.SliceStable(cs, func(i, j int) bool {
		return cs[i].Score > cs[j].Score
	})
}
