package marketdata

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mingxuan/fishbowl/internal/contracts"
	"github.com/mingxuan/fishbowl/pkg/config"
	"github.com/mingxuan/fishbowl/pkg/logger"
)

var errPrimaryDown = errors.New("primary down")

type fakePrimary struct {
	series    map[string]contracts.InstrumentSeries
	quotes    map[string]*contracts.RealtimeQuote
	valuation map[string]*contracts.Valuation
	quoteErr  error
}

func (f *fakePrimary) FetchSeries(_ context.Context, code string) (contracts.InstrumentSeries, error) {
	s, ok := f.series[code]
	if !ok {
		return nil, errPrimaryDown
	}
	return s, nil
}

func (f *fakePrimary) FetchQuote(_ context.Context, code string) (*contracts.RealtimeQuote, error) {
	if f.quoteErr != nil {
		return nil, f.quoteErr
	}
	q, ok := f.quotes[code]
	if !ok {
		return nil, errPrimaryDown
	}
	return q, nil
}

func (f *fakePrimary) FetchValuation(_ context.Context, code string) (*contracts.Valuation, error) {
	v, ok := f.valuation[code]
	if !ok {
		return nil, errPrimaryDown
	}
	return v, nil
}

type fakeFallback struct {
	quotes map[string]*contracts.RealtimeQuote
	calls  int
}

func (f *fakeFallback) FetchQuote(_ context.Context, code string) (*contracts.RealtimeQuote, error) {
	f.calls++
	q, ok := f.quotes[code]
	if !ok {
		return nil, errors.New("fallback down")
	}
	return q, nil
}

type fakeEvents struct {
	corporate []contracts.CorporateEvent
	policy    []contracts.PolicyEvent
	alerts    []contracts.FundamentalAlert
	related   []contracts.Candidate
}

func (f *fakeEvents) CorporateEvents(context.Context, string) ([]contracts.CorporateEvent, error) {
	return f.corporate, nil
}
func (f *fakeEvents) PolicyEvents(context.Context, string) ([]contracts.PolicyEvent, error) {
	return f.policy, nil
}
func (f *fakeEvents) FundamentalAlerts(context.Context, string) ([]contracts.FundamentalAlert, error) {
	return f.alerts, nil
}
func (f *fakeEvents) RelatedListings(context.Context, string) ([]contracts.Candidate, error) {
	return f.related, nil
}

func providerLogger() *logger.Logger {
	return logger.New(&config.Config{Env: "test", LogLevel: "error", LogFormat: "json"})
}

func benchmarkSeries(lastClose float64) contracts.InstrumentSeries {
	s := make(contracts.InstrumentSeries, 25)
	day := time.Date(2026, 8, 3, 0, 0, 0, 0, time.UTC)
	for i := range s {
		s[i] = contracts.Bar{Date: day.AddDate(0, 0, i), Close: 10, Volume: 1000}
	}
	s[len(s)-1].Close = lastClose
	return s
}

func TestProvider_GetRealtimeUsesPrimary(t *testing.T) {
	primary := &fakePrimary{quotes: map[string]*contracts.RealtimeQuote{
		"510300": {Code: "510300", Price: 4.05},
	}}
	fallback := &fakeFallback{}
	p := NewProvider(primary, fallback, &fakeEvents{}, nil, "000300", providerLogger())

	q, err := p.GetRealtime(context.Background(), "510300")
	require.NoError(t, err)
	assert.Equal(t, 4.05, q.Price)
	assert.Equal(t, 0, fallback.calls, "fallback should stay idle when primary works")
}

func TestProvider_GetRealtimeFallsBackToSina(t *testing.T) {
	primary := &fakePrimary{quoteErr: errPrimaryDown}
	fallback := &fakeFallback{quotes: map[string]*contracts.RealtimeQuote{
		"510300": {Code: "510300", Price: 4.04},
	}}
	p := NewProvider(primary, fallback, &fakeEvents{}, nil, "000300", providerLogger())

	q, err := p.GetRealtime(context.Background(), "510300")
	require.NoError(t, err)
	assert.Equal(t, 4.04, q.Price)
	assert.Equal(t, 1, fallback.calls)
}

func TestProvider_GetRealtimeBothSourcesDown(t *testing.T) {
	primary := &fakePrimary{quoteErr: errPrimaryDown}
	fallback := &fakeFallback{}
	p := NewProvider(primary, fallback, &fakeEvents{}, nil, "000300", providerLogger())

	_, err := p.GetRealtime(context.Background(), "510300")
	assert.Error(t, err)
}

func TestProvider_GetRealtimeNoFallbackConfigured(t *testing.T) {
	primary := &fakePrimary{quoteErr: errPrimaryDown}
	p := NewProvider(primary, nil, &fakeEvents{}, nil, "000300", providerLogger())

	_, err := p.GetRealtime(context.Background(), "510300")
	assert.ErrorIs(t, err, errPrimaryDown)
}

func TestProvider_GetSeries(t *testing.T) {
	primary := &fakePrimary{series: map[string]contracts.InstrumentSeries{
		"510300": benchmarkSeries(10),
	}}
	p := NewProvider(primary, nil, &fakeEvents{}, nil, "000300", providerLogger())

	s, err := p.GetSeries(context.Background(), "510300")
	require.NoError(t, err)
	assert.Equal(t, 25, s.Len())

	_, err = p.GetSeries(context.Background(), "999999")
	assert.Error(t, err)
}

func TestProvider_GetSentiment(t *testing.T) {
	// 基准最新收盘11，前19根都是10：ma20=10.05，偏离约+9.45%
	primary := &fakePrimary{series: map[string]contracts.InstrumentSeries{
		"000300": benchmarkSeries(11),
	}}
	p := NewProvider(primary, nil, &fakeEvents{}, nil, "000300", providerLogger())

	score, err := p.GetSentiment(context.Background(), "510300")
	require.NoError(t, err)
	assert.InDelta(t, 9.45, score, 0.01)
}

func TestProvider_GetSentimentNeutral(t *testing.T) {
	primary := &fakePrimary{series: map[string]contracts.InstrumentSeries{
		"000300": benchmarkSeries(10),
	}}
	p := NewProvider(primary, nil, &fakeEvents{}, nil, "000300", providerLogger())

	score, err := p.GetSentiment(context.Background(), "510300")
	require.NoError(t, err)
	assert.InDelta(t, 0, score, 1e-9)
}

func TestProvider_GetSentimentShortSeries(t *testing.T) {
	primary := &fakePrimary{series: map[string]contracts.InstrumentSeries{
		"000300": benchmarkSeries(10)[:10],
	}}
	p := NewProvider(primary, nil, &fakeEvents{}, nil, "000300", providerLogger())

	_, err := p.GetSentiment(context.Background(), "510300")
	assert.ErrorIs(t, err, contracts.ErrInsufficientData)
}

func TestProvider_EventDelegation(t *testing.T) {
	events := &fakeEvents{
		corporate: []contracts.CorporateEvent{{Type: contracts.EventDividend}},
		policy:    []contracts.PolicyEvent{{Impact: contracts.PolicySevere}},
		alerts:    []contracts.FundamentalAlert{{Code: "600519"}},
		related:   []contracts.Candidate{{Code: "513500"}},
	}
	p := NewProvider(&fakePrimary{}, nil, events, nil, "000300", providerLogger())
	ctx := context.Background()

	ce, err := p.GetEvents(ctx, "510300")
	require.NoError(t, err)
	assert.Len(t, ce, 1)

	pe, err := p.GetPolicyEvents(ctx, "510300")
	require.NoError(t, err)
	assert.Len(t, pe, 1)

	fa, err := p.GetFundamentalAlerts(ctx, "510300")
	require.NoError(t, err)
	assert.Len(t, fa, 1)

	rel, err := p.GetRelated(ctx, "510300")
	require.NoError(t, err)
	assert.Equal(t, "513500", rel[0].Code)
}
