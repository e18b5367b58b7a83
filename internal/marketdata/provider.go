package marketdata

import (
	"context"
	"time"

	"github.com/mingxuan/fishbowl/internal/contracts"
	"github.com/mingxuan/fishbowl/pkg/logger"
	"github.com/mingxuan/fishbowl/pkg/redis"
	"github.com/mingxuan/fishbowl/pkg/tradingtime"
)

// KlineSource is the primary quote/series backend (Eastmoney in production).
type KlineSource interface {
	FetchSeries(ctx context.Context, code string) (contracts.InstrumentSeries, error)
	FetchQuote(ctx context.Context, code string) (*contracts.RealtimeQuote, error)
	FetchValuation(ctx context.Context, code string) (*contracts.Valuation, error)
}

// QuoteFallback serves quotes when the primary source fails.
type QuoteFallback interface {
	FetchQuote(ctx context.Context, code string) (*contracts.RealtimeQuote, error)
}

// EventSource serves the curated event tables (corporate actions, policy
// events, constituent alerts, cross-market listings). These are maintained in
// the database, not scraped.
type EventSource interface {
	CorporateEvents(ctx context.Context, code string) ([]contracts.CorporateEvent, error)
	PolicyEvents(ctx context.Context, code string) ([]contracts.PolicyEvent, error)
	FundamentalAlerts(ctx context.Context, code string) ([]contracts.FundamentalAlert, error)
	RelatedListings(ctx context.Context, code string) ([]contracts.Candidate, error)
}

// Provider implements contracts.MarketData by layering a Redis cache over the
// Eastmoney primary with the Sina scraper as quote fallback. The decision
// engine only ever sees this type.
// ⭐ SSOT: 数据源选择和降级只在这里决定
type Provider struct {
	primary   KlineSource
	fallback  QuoteFallback
	events    EventSource
	cache     *redis.Cache
	benchmark string
	logger    *logger.Logger
}

// NewProvider wires the provider. fallback and cache may be nil; the provider
// then runs primary-only and uncached.
func NewProvider(primary KlineSource, fallback QuoteFallback, events EventSource, cache *redis.Cache, benchmark string, log *logger.Logger) *Provider {
	return &Provider{
		primary:   primary,
		fallback:  fallback,
		events:    events,
		cache:     cache,
		benchmark: benchmark,
		logger:    log,
	}
}

// GetSeries returns the daily series, oldest first, cached for an hour.
func (p *Provider) GetSeries(ctx context.Context, code string) (contracts.InstrumentSeries, error) {
	if p.cache != nil {
		var cached contracts.InstrumentSeries
		if found, _ := p.cache.Get(ctx, redis.SeriesKey(code), &cached); found {
			return cached, nil
		}
	}

	series, err := p.primary.FetchSeries(ctx, code)
	if err != nil {
		return nil, err
	}

	if p.cache != nil {
		if err := p.cache.Set(ctx, redis.SeriesKey(code), series, redis.TTLSeries); err != nil {
			p.logger.WithError(err).WithField("code", code).Warn("Failed to cache series")
		}
	}
	return series, nil
}

// GetRealtime returns the intraday snapshot. On primary failure it falls back
// to the Sina scraper before giving up.
func (p *Provider) GetRealtime(ctx context.Context, code string) (*contracts.RealtimeQuote, error) {
	if p.cache != nil {
		var cached contracts.RealtimeQuote
		if found, _ := p.cache.Get(ctx, redis.QuoteKey(code), &cached); found {
			return &cached, nil
		}
	}

	quote, err := p.primary.FetchQuote(ctx, code)
	if err != nil && p.fallback != nil {
		p.logger.WithError(err).WithField("code", code).Warn("Primary quote failed, trying Sina fallback")
		quote, err = p.fallback.FetchQuote(ctx, code)
	}
	if err != nil {
		return nil, err
	}

	if p.cache != nil {
		if err := p.cache.Set(ctx, redis.QuoteKey(code), quote, redis.TTLQuote); err != nil {
			p.logger.WithError(err).WithField("code", code).Warn("Failed to cache quote")
		}
	}
	return quote, nil
}

// GetValuation returns the tracked index's valuation percentile, cached for a
// day since the upstream only updates after the close.
func (p *Provider) GetValuation(ctx context.Context, code string) (*contracts.Valuation, error) {
	if p.cache != nil {
		var cached contracts.Valuation
		if found, _ := p.cache.Get(ctx, redis.ValuationKey(code), &cached); found {
			return &cached, nil
		}
	}

	v, err := p.primary.FetchValuation(ctx, code)
	if err != nil {
		return nil, err
	}

	if p.cache != nil {
		if err := p.cache.Set(ctx, redis.ValuationKey(code), v, redis.TTLValuation); err != nil {
			p.logger.WithError(err).WithField("code", code).Warn("Failed to cache valuation")
		}
	}
	return v, nil
}

// GetSentiment derives a market sentiment score from the benchmark index:
// the percentage distance of the latest close from its 20-day average.
// Positive means risk-on. 按天缓存，盘中不重算.
func (p *Provider) GetSentiment(ctx context.Context, code string) (float64, error) {
	key := redis.SentimentKey(tradingtime.DateTag(time.Now()))
	if p.cache != nil {
		var cached float64
		if found, _ := p.cache.Get(ctx, key, &cached); found {
			return cached, nil
		}
	}

	series, err := p.GetSeries(ctx, p.benchmark)
	if err != nil {
		return 0, err
	}
	if series.Len() < 20 {
		return 0, contracts.ErrInsufficientData
	}

	var sum float64
	for i := 0; i < 20; i++ {
		sum += series.FromEnd(i).Close
	}
	ma20 := sum / 20
	score := (series.Latest().Close/ma20 - 1) * 100

	if p.cache != nil {
		if err := p.cache.Set(ctx, key, score, redis.TTLSentiment); err != nil {
			p.logger.WithError(err).Warn("Failed to cache sentiment")
		}
	}
	return score, nil
}

// GetEvents returns upcoming corporate events from the curated tables.
func (p *Provider) GetEvents(ctx context.Context, code string) ([]contracts.CorporateEvent, error) {
	return p.events.CorporateEvents(ctx, code)
}

// GetPolicyEvents returns recent policy events touching the instrument.
func (p *Provider) GetPolicyEvents(ctx context.Context, code string) ([]contracts.PolicyEvent, error) {
	return p.events.PolicyEvents(ctx, code)
}

// GetFundamentalAlerts returns constituent blow-up reports.
func (p *Provider) GetFundamentalAlerts(ctx context.Context, code string) ([]contracts.FundamentalAlert, error) {
	return p.events.FundamentalAlerts(ctx, code)
}

// GetRelated returns same-underlying listings on other markets.
func (p *Provider) GetRelated(ctx context.Context, code string) ([]contracts.Candidate, error) {
	return p.events.RelatedListings(ctx, code)
}
