package pool

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mingxuan/fishbowl/internal/contracts"
	"github.com/mingxuan/fishbowl/internal/marketdata"
	"github.com/mingxuan/fishbowl/pkg/config"
	"github.com/mingxuan/fishbowl/pkg/logger"
)

func poolLogger() *logger.Logger {
	return logger.New(&config.Config{Env: "test", LogLevel: "error", LogFormat: "json"})
}

type fakeListings struct {
	listings []marketdata.Listing
	err      error
}

func (f *fakeListings) FetchListings(context.Context) ([]marketdata.Listing, error) {
	return f.listings, f.err
}

type fakeData struct {
	series     map[string]contracts.InstrumentSeries
	valuations map[string]float64
}

func (f *fakeData) GetSeries(_ context.Context, code string) (contracts.InstrumentSeries, error) {
	s, ok := f.series[code]
	if !ok {
		return nil, errors.New("no series")
	}
	return s, nil
}

func (f *fakeData) GetValuation(_ context.Context, code string) (*contracts.Valuation, error) {
	v, ok := f.valuations[code]
	if !ok {
		return nil, errors.New("no valuation")
	}
	return &contracts.Valuation{Code: code, Percentile: v}, nil
}

func (f *fakeData) GetRealtime(context.Context, string) (*contracts.RealtimeQuote, error) {
	return nil, errors.New("not used")
}
func (f *fakeData) GetSentiment(context.Context, string) (float64, error) {
	return 0, errors.New("not used")
}
func (f *fakeData) GetEvents(context.Context, string) ([]contracts.CorporateEvent, error) {
	return nil, nil
}
func (f *fakeData) GetPolicyEvents(context.Context, string) ([]contracts.PolicyEvent, error) {
	return nil, nil
}
func (f *fakeData) GetFundamentalAlerts(context.Context, string) ([]contracts.FundamentalAlert, error) {
	return nil, nil
}
func (f *fakeData) GetRelated(context.Context, string) ([]contracts.Candidate, error) {
	return nil, nil
}

type memStore struct {
	pool    []contracts.Candidate
	updated time.Time
	err     error
}

func (s *memStore) Replace(_ context.Context, cs []contracts.Candidate) error {
	if s.err != nil {
		return s.err
	}
	s.pool = cs
	s.updated = time.Now()
	return nil
}

func (s *memStore) All(context.Context) ([]contracts.Candidate, error) {
	if s.err != nil {
		return nil, s.err
	}
	out := make([]contracts.Candidate, len(s.pool))
	copy(out, s.pool)
	return out, nil
}

func (s *memStore) UpdatedAt(context.Context) (time.Time, error) {
	return s.updated, s.err
}

// risingSeries trends up with a volume pop on the last bar.
func risingSeries(n int) contracts.InstrumentSeries {
	day := time.Date(2026, 8, 3, 0, 0, 0, 0, time.UTC)
	s := make(contracts.InstrumentSeries, n)
	for i := range s {
		px := 10 + 0.1*float64(i)
		s[i] = contracts.Bar{Date: day.AddDate(0, 0, i), Open: px, Close: px, High: px, Low: px, Volume: 1000}
	}
	s[n-1].Volume = 2000
	return s
}

// flatSeries never earns a momentum bonus.
func flatSeries(n int) contracts.InstrumentSeries {
	day := time.Date(2026, 8, 3, 0, 0, 0, 0, time.UTC)
	s := make(contracts.InstrumentSeries, n)
	for i := range s {
		s[i] = contracts.Bar{Date: day.AddDate(0, 0, i), Open: 10, Close: 10, High: 10, Low: 10, Volume: 1000}
	}
	return s
}

func goodListing(code, name string) marketdata.Listing {
	return marketdata.Listing{
		Code: code, Name: name,
		FundSize: 1_000_000_000, TrackingError: 0.01, AvgTurnover: 80_000_000,
	}
}

func TestClassify(t *testing.T) {
	tests := []struct {
		name string
		want contracts.Category
	}{
		{"沪深300ETF", contracts.CategoryBroad},
		{"创业板ETF", contracts.CategoryBroad},
		{"证券ETF", contracts.CategorySector},
		{"医疗ETF", contracts.CategorySector},
		{"人工智能ETF", contracts.CategoryTheme},
	}

	for _, tt := range tests {
		assert.Equal(t, tt.want, Classify(tt.name), tt.name)
	}
}

func TestManager_Update(t *testing.T) {
	data := &fakeData{
		series: map[string]contracts.InstrumentSeries{
			"512880": risingSeries(40),
			"510300": flatSeries(40),
		},
		valuations: map[string]float64{"510300": 35},
	}
	store := &memStore{}
	m := NewManager(&fakeListings{listings: []marketdata.Listing{
		goodListing("510300", "沪深300ETF"),
		goodListing("512880", "证券ETF"),
	}}, data, store, poolLogger())

	got, err := m.Update(context.Background())
	require.NoError(t, err)
	require.Len(t, got, 2)

	// 上升趋势+放量+行业加成，证券ETF排第一
	assert.Equal(t, "512880", got[0].Code)
	assert.InDelta(t, 70.72, got[0].Score, 0.01)

	// 走平的宽基只有基础分+类别分
	assert.Equal(t, "510300", got[1].Code)
	assert.InDelta(t, 53, got[1].Score, 1e-9)
	assert.Equal(t, 35.0, got[1].ValuationPercentile)

	// 估值拿不到时停在中性50
	assert.Equal(t, 50.0, got[0].ValuationPercentile)

	assert.Len(t, store.pool, 2, "pool persisted")
}

func TestManager_UpdateFiltersBySize(t *testing.T) {
	tiny := goodListing("560000", "小微ETF")
	tiny.FundSize = 200_000_000 // below even the minimal floor

	data := &fakeData{series: map[string]contracts.InstrumentSeries{
		"510300": flatSeries(40),
	}}
	store := &memStore{}
	m := NewManager(&fakeListings{listings: []marketdata.Listing{
		goodListing("510300", "沪深300ETF"),
		tiny,
	}}, data, store, poolLogger())

	got, err := m.Update(context.Background())
	require.NoError(t, err)
	require.Len(t, got, 1)
	assert.Equal(t, "510300", got[0].Code)
}

func TestManager_UpdateRelaxedTierAdmitsShortSeries(t *testing.T) {
	// 18根K线过不了严格档（≥20），但能过放宽档（≥15）
	data := &fakeData{series: map[string]contracts.InstrumentSeries{
		"159915": flatSeries(18),
	}}
	store := &memStore{}
	m := NewManager(&fakeListings{listings: []marketdata.Listing{
		goodListing("159915", "创业板ETF"),
	}}, data, store, poolLogger())

	got, err := m.Update(context.Background())
	require.NoError(t, err)
	require.Len(t, got, 1)
}

func TestManager_UpdateTrimsToPoolSize(t *testing.T) {
	listings := make([]marketdata.Listing, 0, 12)
	series := make(map[string]contracts.InstrumentSeries)
	for i := 0; i < 12; i++ {
		code := string(rune('a'+i)) + "10300"
		listings = append(listings, goodListing(code, "沪深300ETF"))
		series[code] = flatSeries(40)
	}

	store := &memStore{}
	m := NewManager(&fakeListings{listings: listings}, &fakeData{series: series}, store, poolLogger())

	got, err := m.Update(context.Background())
	require.NoError(t, err)
	assert.Len(t, got, poolSize)
}

func TestManager_UpdateListingsFailure(t *testing.T) {
	m := NewManager(&fakeListings{err: errors.New("list down")}, &fakeData{}, &memStore{}, poolLogger())

	_, err := m.Update(context.Background())
	assert.Error(t, err)
}

func seededStore() *memStore {
	return &memStore{
		pool: []contracts.Candidate{
			{Code: "510300", Name: "沪深300ETF", Category: contracts.CategoryBroad, Score: 80},
			{Code: "510050", Name: "上证50ETF", Category: contracts.CategoryBroad, Score: 70},
			{Code: "512880", Name: "证券ETF", Category: contracts.CategorySector, Score: 85},
			{Code: "512690", Name: "酒ETF", Category: contracts.CategoryTheme, Score: 60},
			{Code: "515790", Name: "光伏ETF", Category: contracts.CategoryTheme, Score: 65},
		},
		updated: time.Date(2026, 8, 28, 16, 0, 0, 0, time.UTC),
	}
}

func TestManager_CandidatesStable(t *testing.T) {
	m := NewManager(nil, &fakeData{}, seededStore(), poolLogger())

	got, err := m.Candidates(context.Background(), contracts.SleeveStable)
	require.NoError(t, err)
	require.Len(t, got, 3, "two broad funds backfilled to three")

	assert.Equal(t, "510300", got[0].Code)
	assert.Equal(t, "510050", got[1].Code)
	// 补位的来自其他类别
	assert.NotEqual(t, contracts.CategoryBroad, got[2].Category)
}

func TestManager_CandidatesAggressive(t *testing.T) {
	m := NewManager(nil, &fakeData{}, seededStore(), poolLogger())

	got, err := m.Candidates(context.Background(), contracts.SleeveAggressive)
	require.NoError(t, err)
	require.Len(t, got, 3)

	assert.Equal(t, "512880", got[0].Code, "highest score first")
	for _, c := range got {
		assert.NotEqual(t, contracts.CategoryBroad, c.Category)
	}
}

func TestManager_CandidatesArbitrageGetsWholePool(t *testing.T) {
	m := NewManager(nil, &fakeData{}, seededStore(), poolLogger())

	got, err := m.Candidates(context.Background(), contracts.SleeveArbitrage)
	require.NoError(t, err)
	assert.Len(t, got, 5)
}

func TestManager_CandidatesStoreFailure(t *testing.T) {
	m := NewManager(nil, &fakeData{}, &memStore{err: errors.New("db down")}, poolLogger())

	_, err := m.Candidates(context.Background(), contracts.SleeveStable)
	var perr *contracts.ProviderError
	assert.ErrorAs(t, err, &perr)
}

func TestManager_Summary(t *testing.T) {
	m := NewManager(nil, &fakeData{}, seededStore(), poolLogger())

	text, err := m.Summary(context.Background())
	require.NoError(t, err)

	assert.Contains(t, text, "【鱼盆ETF池】共5只")
	assert.Contains(t, text, "2026-08-28")
	assert.Contains(t, text, "512880 证券ETF [行业]")
}
