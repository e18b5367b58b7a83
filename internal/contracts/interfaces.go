package contracts

import (
	"context"
	"time"
)

// MarketData is the engine's view of the market-data collaborator. The engine
// never fetches raw data itself; implementations own source selection,
// fallback and caching. Calls are blocking and synchronous.
// ⭐ SSOT: 行情数据只通过这个接口进入策略引擎
type MarketData interface {
	// GetSeries returns the daily series, oldest first. May return fewer
	// than 20 bars; evaluators handle that as a rejection.
	GetSeries(ctx context.Context, code string) (InstrumentSeries, error)

	// GetRealtime returns the intraday price/iopv/volume snapshot.
	GetRealtime(ctx context.Context, code string) (*RealtimeQuote, error)

	// GetValuation returns the tracked index's valuation percentile.
	GetValuation(ctx context.Context, code string) (*Valuation, error)

	// GetSentiment returns a market sentiment score; zero is neutral.
	GetSentiment(ctx context.Context, code string) (float64, error)

	// GetEvents returns upcoming corporate events for the instrument.
	GetEvents(ctx context.Context, code string) ([]CorporateEvent, error)

	// GetPolicyEvents returns recent policy events touching the instrument.
	GetPolicyEvents(ctx context.Context, code string) ([]PolicyEvent, error)

	// GetFundamentalAlerts returns constituent blow-up reports within the
	// evaluation window.
	GetFundamentalAlerts(ctx context.Context, code string) ([]FundamentalAlert, error)

	// GetRelated returns instruments tracking the same underlying on other
	// markets, for the cross-market detector.
	GetRelated(ctx context.Context, code string) ([]Candidate, error)
}

// CandidateSource exposes the candidate pool as ranked, immutable snapshots.
type CandidateSource interface {
	// Candidates returns the ranked eligible codes for a sleeve.
	Candidates(ctx context.Context, sleeve Sleeve) ([]Candidate, error)

	// Universe returns the full current pool, for the arbitrage detectors.
	Universe(ctx context.Context) ([]Candidate, error)
}

// StateStore owns persistence of positions and trade history. The engine
// reads the book once per cycle and writes it back wholesale.
type StateStore interface {
	LoadPositions(ctx context.Context) (PositionBook, error)
	SavePositions(ctx context.Context, book PositionBook) error
	AppendTrade(ctx context.Context, rec TradeRecord) error

	// TradesSince returns records with Timestamp >= from, oldest first.
	TradesSince(ctx context.Context, from time.Time) ([]TradeRecord, error)
}

// Notifier delivers human-readable strategy output.
type Notifier interface {
	SendText(ctx context.Context, msg string) error
}
