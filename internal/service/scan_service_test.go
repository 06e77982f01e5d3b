package service

import (
	"context"
	"io"
	"log/slog"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/marketsentinel/sentinel/internal/domain"
)

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

type fakeMarketSource struct {
	markets []domain.MarketSnapshot
	err     error
}

func (f *fakeMarketSource) TopMarkets(_ context.Context, _ int) ([]domain.MarketSnapshot, error) {
	return f.markets, f.err
}

type fakeTradeSource struct {
	trades map[string][]domain.Trade
	err    error
}

func (f *fakeTradeSource) MarketTrades(_ context.Context, market domain.MarketSnapshot, _ int) ([]domain.Trade, error) {
	if f.err != nil {
		return nil, f.err
	}
	return f.trades[market.ID], nil
}

type fakeAnalysisStore struct {
	domain.AnalysisStore
	inserted []domain.InsiderAnalysis
}

func (f *fakeAnalysisStore) Insert(_ context.Context, a domain.InsiderAnalysis) error {
	f.inserted = append(f.inserted, a)
	return nil
}

type fakeBus struct {
	domain.SignalBus
	published [][]byte
	appended  [][]byte
}

func (f *fakeBus) Publish(_ context.Context, _ string, payload []byte) error {
	f.published = append(f.published, payload)
	return nil
}

func (f *fakeBus) StreamAppend(_ context.Context, _ string, payload []byte) error {
	f.appended = append(f.appended, payload)
	return nil
}

type fakeNotifier struct {
	alerts []domain.Alert
}

func (f *fakeNotifier) NotifyAlert(_ context.Context, a domain.Alert) error {
	f.alerts = append(f.alerts, a)
	return nil
}

func concentratedHistory(marketID string, n int) []domain.Trade {
	base := time.Date(2026, 5, 1, 10, 0, 0, 0, time.UTC)
	trades := make([]domain.Trade, 0, n)
	for i := 0; i < n; i++ {
		trades = append(trades, domain.Trade{
			ID:        marketID + "-t" + string(rune('a'+i%26)) + string(rune('a'+i/26)),
			MarketID:  marketID,
			Platform:  domain.PlatformPolymarket,
			Outcome:   "Yes",
			Side:      "buy",
			Price:     0.9,
			Size:      500,
			Maker:     "0xwhale",
			Timestamp: base.Add(time.Duration(i) * time.Minute),
		})
	}
	return trades
}

func TestScanRanksAndAlerts(t *testing.T) {
	hot := domain.MarketSnapshot{ID: "hot", Platform: domain.PlatformPolymarket, Question: "Hot?"}
	quiet := domain.MarketSnapshot{ID: "quiet", Platform: domain.PlatformPolymarket, Question: "Quiet?"}

	quietTrades := []domain.Trade{
		{ID: "q1", MarketID: "quiet", Outcome: "Yes", Price: 0.5, Size: 10, Maker: "0xa",
			Timestamp: time.Date(2026, 5, 1, 0, 0, 0, 0, time.UTC)},
		{ID: "q2", MarketID: "quiet", Outcome: "No", Price: 0.5, Size: 10, Maker: "0xb",
			Timestamp: time.Date(2026, 5, 1, 12, 0, 0, 0, time.UTC)},
	}

	analyses := &fakeAnalysisStore{}
	bus := &fakeBus{}
	notifier := &fakeNotifier{}

	svc := NewScanService(
		&fakeMarketSource{markets: []domain.MarketSnapshot{quiet, hot}},
		&fakeTradeSource{trades: map[string][]domain.Trade{
			"hot":   concentratedHistory("hot", 30),
			"quiet": quietTrades,
		}},
		nil, nil, analyses, nil, bus, notifier, nil, nil,
		ScanConfig{TopMarkets: 10, TradeLimit: 100, AlertThreshold: 0.5},
		testLogger(),
	)

	results, err := svc.Run(context.Background())
	require.NoError(t, err)
	require.Len(t, results, 2)

	// One whale buying one side nonstop must outrank the balanced market.
	assert.Equal(t, "hot", results[0].MarketID)
	assert.Greater(t, results[0].InsiderProbability, results[1].InsiderProbability)
	assert.GreaterOrEqual(t, results[0].InsiderProbability, 0.5)

	assert.Len(t, analyses.inserted, 2)
	require.Len(t, notifier.alerts, 1)
	assert.Equal(t, "hot", notifier.alerts[0].MarketID)
	assert.Equal(t, domain.AlertKindScan, notifier.alerts[0].Kind)
	assert.Len(t, bus.published, 1)
	assert.Len(t, bus.appended, 1)
}

func TestScanSkipsFailedMarkets(t *testing.T) {
	market := domain.MarketSnapshot{ID: "m1", Platform: domain.PlatformPolymarket}

	svc := NewScanService(
		&fakeMarketSource{markets: []domain.MarketSnapshot{market}},
		&fakeTradeSource{err: domain.ErrRateLimited},
		nil, nil, nil, nil, nil, nil, nil, nil,
		ScanConfig{},
		testLogger(),
	)

	results, err := svc.Run(context.Background())
	require.NoError(t, err)
	assert.Empty(t, results)
}

func TestScanFailsWhenMarketListUnavailable(t *testing.T) {
	svc := NewScanService(
		&fakeMarketSource{err: domain.ErrRateLimited},
		&fakeTradeSource{},
		nil, nil, nil, nil, nil, nil, nil, nil,
		ScanConfig{},
		testLogger(),
	)

	_, err := svc.Run(context.Background())
	require.Error(t, err)
	assert.ErrorIs(t, err, domain.ErrRateLimited)
}

func TestQuickScanFiltersAndRanks(t *testing.T) {
	poly := &fakeMarketSource{markets: []domain.MarketSnapshot{
		{ID: "p1", Platform: domain.PlatformPolymarket, Question: "Skewed?",
			Outcomes: []string{"Yes", "No"}, Prices: []float64{0.97, 0.03}},
		{ID: "p2", Platform: domain.PlatformPolymarket, Question: "Even?",
			Outcomes: []string{"Yes", "No"}, Prices: []float64{0.52, 0.48}},
	}}
	mani := &fakeMarketSource{markets: []domain.MarketSnapshot{
		{ID: "m1", Platform: domain.PlatformManifold, Question: "Very skewed?",
			Outcomes: []string{"Yes", "No"}, Prices: []float64{0.99, 0.01}},
	}}

	svc := NewQuickScanService(
		[]NamedSource{
			{Platform: domain.PlatformPolymarket, Source: poly},
			{Platform: domain.PlatformManifold, Source: mani},
		},
		nil, 50, 7.0, testLogger(),
	)

	results, err := svc.Run(context.Background())
	require.NoError(t, err)
	require.Len(t, results, 2)

	assert.Equal(t, "m1", results[0].MarketID)
	assert.Equal(t, "p1", results[1].MarketID)
	assert.InDelta(t, 9.8, results[0].SkewScore, 1e-9)
	assert.InDelta(t, 9.4, results[1].SkewScore, 1e-9)
}

func TestQuickScanSurvivesPlatformFailure(t *testing.T) {
	ok := &fakeMarketSource{markets: []domain.MarketSnapshot{
		{ID: "k1", Platform: domain.PlatformKalshi, Question: "Q",
			Outcomes: []string{"Yes", "No"}, Prices: []float64{0.95, 0.05}},
	}}
	broken := &fakeMarketSource{err: domain.ErrUnauthorized}

	svc := NewQuickScanService(
		[]NamedSource{
			{Platform: domain.PlatformKalshi, Source: ok},
			{Platform: domain.PlatformPolymarket, Source: broken},
		},
		nil, 50, 7.0, testLogger(),
	)

	results, err := svc.Run(context.Background())
	require.NoError(t, err)
	require.Len(t, results, 1)
	assert.Equal(t, "k1", results[0].MarketID)
}
