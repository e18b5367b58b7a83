package strategy

import (
	"context"
	"errors"
	"time"

	"github.com/mingxuan/fishbowl/internal/contracts"
	"github.com/mingxuan/fishbowl/pkg/config"
	"github.com/mingxuan/fishbowl/pkg/logger"
)

func testLogger() *logger.Logger {
	return logger.New(&config.Config{
		Env:       "test",
		LogLevel:  "error",
		LogFormat: "json",
	})
}

func testCapital() CapitalConfig {
	return CapitalConfig{
		Total: 100_000,
		Split: contracts.CapitalSplit{Stable: 0.6, Aggressive: 0.3, Arbitrage: 0.1},
	}
}

var errFeedDown = errors.New("feed down")

// fakeMarketData serves canned data per code; missing entries error.
type fakeMarketData struct {
	series     map[string]contracts.InstrumentSeries
	quotes     map[string]*contracts.RealtimeQuote
	valuations map[string]float64
	sentiments map[string]float64
	events     map[string][]contracts.CorporateEvent
	policies   map[string][]contracts.PolicyEvent
	alerts     map[string][]contracts.FundamentalAlert
	related    map[string][]contracts.Candidate
}

func newFakeMarketData() *fakeMarketData {
	return &fakeMarketData{
		series:     map[string]contracts.InstrumentSeries{},
		quotes:     map[string]*contracts.RealtimeQuote{},
		valuations: map[string]float64{},
		sentiments: map[string]float64{},
		events:     map[string][]contracts.CorporateEvent{},
		policies:   map[string][]contracts.PolicyEvent{},
		alerts:     map[string][]contracts.FundamentalAlert{},
		related:    map[string][]contracts.Candidate{},
	}
}

func (f *fakeMarketData) GetSeries(_ context.Context, code string) (contracts.InstrumentSeries, error) {
	s, ok := f.series[code]
	if !ok {
		return nil, errFeedDown
	}
	return s, nil
}

func (f *fakeMarketData) GetRealtime(_ context.Context, code string) (*contracts.RealtimeQuote, error) {
	q, ok := f.quotes[code]
	if !ok {
		return nil, errFeedDown
	}
	return q, nil
}

func (f *fakeMarketData) GetValuation(_ context.Context, code string) (*contracts.Valuation, error) {
	pct, ok := f.valuations[code]
	if !ok {
		return nil, errFeedDown
	}
	return &contracts.Valuation{Code: code, Percentile: pct}, nil
}

func (f *fakeMarketData) GetSentiment(_ context.Context, code string) (float64, error) {
	return f.sentiments[code], nil
}

func (f *fakeMarketData) GetEvents(_ context.Context, code string) ([]contracts.CorporateEvent, error) {
	return f.events[code], nil
}

func (f *fakeMarketData) GetPolicyEvents(_ context.Context, code string) ([]contracts.PolicyEvent, error) {
	return f.policies[code], nil
}

func (f *fakeMarketData) GetFundamentalAlerts(_ context.Context, code string) ([]contracts.FundamentalAlert, error) {
	return f.alerts[code], nil
}

func (f *fakeMarketData) GetRelated(_ context.Context, code string) ([]contracts.Candidate, error) {
	return f.related[code], nil
}

// fakePool serves ranked candidates per sleeve.
type fakePool struct {
	candidates map[contracts.Sleeve][]contracts.Candidate
	universe   []contracts.Candidate
	err        error
}

func (f *fakePool) Candidates(_ context.Context, sleeve contracts.Sleeve) ([]contracts.Candidate, error) {
	if f.err != nil {
		return nil, f.err
	}
	return f.candidates[sleeve], nil
}

func (f *fakePool) Universe(_ context.Context) ([]contracts.Candidate, error) {
	if f.err != nil {
		return nil, f.err
	}
	return f.universe, nil
}

// fakeStore is an in-memory StateStore.
type fakeStore struct {
	book      contracts.PositionBook
	trades    []contracts.TradeRecord
	saves     int
	loadErr   error
	appendErr error
	saveErr   error
}

func newFakeStore() *fakeStore {
	return &fakeStore{book: contracts.NewPositionBook()}
}

func (f *fakeStore) LoadPositions(_ context.Context) (contracts.PositionBook, error) {
	if f.loadErr != nil {
		return nil, f.loadErr
	}
	return f.book.Clone(), nil
}

func (f *fakeStore) SavePositions(_ context.Context, book contracts.PositionBook) error {
	if f.saveErr != nil {
		return f.saveErr
	}
	f.book = book.Clone()
	f.saves++
	return nil
}

func (f *fakeStore) AppendTrade(_ context.Context, rec contracts.TradeRecord) error {
	if f.appendErr != nil {
		return f.appendErr
	}
	f.trades = append(f.trades, rec)
	return nil
}

func (f *fakeStore) TradesSince(_ context.Context, from time.Time) ([]contracts.TradeRecord, error) {
	var out []contracts.TradeRecord
	for _, rec := range f.trades {
		if !rec.Timestamp.Before(from) {
			out = append(out, rec)
		}
	}
	return out, nil
}

var day0 = time.Date(2026, 8, 3, 0, 0, 0, 0, time.UTC)

// flatSeries builds n identical bars with explicit indicator values so tests
// control each rule condition directly (Enrich keeps supplied values).
func flatSeries(n int, close, ma20, volume, volumeMA5 float64) contracts.InstrumentSeries {
	out := make(contracts.InstrumentSeries, n)
	for i := range out {
		out[i] = contracts.Bar{
			Date:      day0.AddDate(0, 0, i),
			Open:      close,
			High:      close,
			Low:       close,
			Close:     close,
			Volume:    volume,
			MA20:      ma20,
			VolumeMA5: volumeMA5,
		}
	}
	return out
}

// buySeries satisfies every buy condition: 25 bars, last two closes above a
// rising MA20, latest volume at 1.3x the 5-day average.
func buySeries() contracts.InstrumentSeries {
	s := flatSeries(25, 10, 9.5, 1000, 1000)
	s[21].MA20 = 9.4 // three bars before the latest
	s[24].Volume = 1300
	return s
}
