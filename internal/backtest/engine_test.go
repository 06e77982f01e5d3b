package backtest

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

var t0 = time.Date(2026, 2, 10, 9, 0, 0, 0, time.UTC)

type fakeTradeSource struct {
	trades map[string][]domain.Trade
	err    error
}

func (f *fakeTradeSource) HistoricalTrades(_ context.Context, m domain.MarketSnapshot) ([]domain.Trade, error) {
	if f.err != nil {
		return nil, f.err
	}
	return f.trades[m.ID], nil
}

type fakeLimiter struct {
	waits int
}

func (f *fakeLimiter) Allow(context.Context, string, int, time.Duration) (bool, error) {
	return true, nil
}

func (f *fakeLimiter) Wait(context.Context, string) error {
	f.waits++
	return nil
}

type fakeResolver struct {
	snapshots map[string]domain.MarketSnapshot
	err       error
	calls     int
}

func (f *fakeResolver) GetMarket(_ context.Context, id string) (domain.MarketSnapshot, error) {
	f.calls++
	if f.err != nil {
		return domain.MarketSnapshot{}, f.err
	}
	return f.snapshots[id], nil
}

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func trade(addr, outcome string, price, size float64, at time.Time) domain.Trade {
	return domain.Trade{
		ID:        addr + at.Format(time.RFC3339Nano),
		MarketID:  "mkt-1",
		Outcome:   outcome,
		Price:     price,
		Size:      size,
		Maker:     addr,
		Timestamp: at,
	}
}

// signalHistory builds a history whose suspicion peaks at the tenth
// trade: a single-account burst followed by scattered retail flow.
func signalHistory() []domain.Trade {
	var trades []domain.Trade
	for i := 0; i < 10; i++ {
		price := 0.50
		if i == 9 {
			price = 0.52
		}
		trades = append(trades, trade("0xwhale", "Yes", price, 1000, t0.Add(time.Duration(i)*time.Minute)))
	}
	trades = append(trades,
		trade("0xr1", "No", 0.55, 1, t0.Add(30*time.Minute)),
		trade("0xr2", "No", 0.58, 1, t0.Add(50*time.Minute)),
		trade("0xr3", "No", 0.60, 1, t0.Add(67*time.Minute)),
	)
	return trades
}

func resolvedSnapshot() domain.MarketSnapshot {
	resolvedAt := t0.Add(9 * time.Minute).Add(48 * time.Hour)
	return domain.MarketSnapshot{
		ID:               "mkt-1",
		Platform:         domain.PlatformPolymarket,
		Question:         "Will the event happen?",
		Resolved:         true,
		ResolvedOutcome:  "Yes",
		ResolutionSource: "uma",
		ResolvedAt:       &resolvedAt,
	}
}

func TestBacktestMarket(t *testing.T) {
	src := &fakeTradeSource{trades: map[string][]domain.Trade{"mkt-1": signalHistory()}}
	engine := New(src, nil, nil, nil, testLogger())

	res, err := engine.BacktestMarket(context.Background(), resolvedSnapshot())
	require.NoError(t, err)
	require.NotNil(t, res)

	signalTime := t0.Add(9 * time.Minute)
	assert.Equal(t, signalTime, res.SignalTime)
	assert.Equal(t, 10, res.TradesBefore)
	assert.Equal(t, 3, res.TradesAfter)
	assert.InDelta(t, 0.52, res.PreSignalPrice, 1e-9)
	// Exit price comes from the trade two minutes shy of signal+1h.
	assert.InDelta(t, 0.60, res.PostSignalPrice, 1e-9)
	assert.InDelta(t, 0.08, res.PriceMove, 1e-9)
	assert.InDelta(t, 0.08/0.52*100, res.PriceMovePct, 1e-9)
	assert.Equal(t, "Yes", res.PredictedOutcome)
	assert.True(t, res.MarketResolved)
	assert.Equal(t, "Yes", res.ActualOutcome)
	require.NotNil(t, res.PredictedCorrectly)
	assert.True(t, *res.PredictedCorrectly)
	assert.InDelta(t, 48.0, res.TimeToResolutionHours, 1e-9)
	assert.Len(t, res.Indicators, 5)
	assert.Greater(t, res.SignalProbability, 0.0)
}

func TestBacktestMarketUnresolved(t *testing.T) {
	src := &fakeTradeSource{trades: map[string][]domain.Trade{"mkt-1": signalHistory()}}
	engine := New(src, nil, nil, nil, testLogger())

	snap := resolvedSnapshot()
	snap.Resolved = false
	snap.ResolutionSource = ""
	snap.ResolvedOutcome = ""
	snap.ResolvedAt = nil

	res, err := engine.BacktestMarket(context.Background(), snap)
	require.NoError(t, err)
	require.NotNil(t, res)
	assert.False(t, res.MarketResolved)
	assert.Empty(t, res.ActualOutcome)
	assert.Nil(t, res.PredictedCorrectly)
	assert.Zero(t, res.TimeToResolutionHours)
}

func TestBacktestMarketTooFewTrades(t *testing.T) {
	src := &fakeTradeSource{trades: map[string][]domain.Trade{
		"mkt-1": signalHistory()[:4],
	}}
	engine := New(src, nil, nil, nil, testLogger())

	res, err := engine.BacktestMarket(context.Background(), resolvedSnapshot())
	require.NoError(t, err)
	assert.Nil(t, res)
}

func TestBacktestMarketNoExitPrice(t *testing.T) {
	// Burst only: nothing trades near signal+1h, so there is no
	// usable exit price and no result.
	history := signalHistory()[:10]
	src := &fakeTradeSource{trades: map[string][]domain.Trade{"mkt-1": history}}
	engine := New(src, nil, nil, nil, testLogger())

	res, err := engine.BacktestMarket(context.Background(), resolvedSnapshot())
	require.NoError(t, err)
	assert.Nil(t, res)
}

func TestBacktestMarketRefreshesResolution(t *testing.T) {
	// The batch snapshot predates resolution; the refresh sees it.
	src := &fakeTradeSource{trades: map[string][]domain.Trade{"mkt-1": signalHistory()}}
	resolver := &fakeResolver{snapshots: map[string]domain.MarketSnapshot{
		"mkt-1": resolvedSnapshot(),
	}}
	engine := New(src, resolver, nil, nil, testLogger())

	stale := resolvedSnapshot()
	stale.Resolved = false
	stale.ResolutionSource = ""
	stale.ResolvedOutcome = ""
	stale.ResolvedAt = nil

	res, err := engine.BacktestMarket(context.Background(), stale)
	require.NoError(t, err)
	require.NotNil(t, res)
	assert.Equal(t, 1, resolver.calls)
	assert.True(t, res.MarketResolved)
	assert.Equal(t, "Yes", res.ActualOutcome)
	require.NotNil(t, res.PredictedCorrectly)
	assert.True(t, *res.PredictedCorrectly)
}

func TestBacktestMarketSurvivesRefreshFailure(t *testing.T) {
	src := &fakeTradeSource{trades: map[string][]domain.Trade{"mkt-1": signalHistory()}}
	resolver := &fakeResolver{err: domain.ErrRateLimited}
	engine := New(src, resolver, nil, nil, testLogger())

	res, err := engine.BacktestMarket(context.Background(), resolvedSnapshot())
	require.NoError(t, err)
	require.NotNil(t, res)
	// Falls back to the snapshot it was handed.
	assert.True(t, res.MarketResolved)
	assert.Equal(t, "Yes", res.ActualOutcome)
}

func TestRunPausesBatch(t *testing.T) {
	src := &fakeTradeSource{trades: map[string][]domain.Trade{}}
	var markets []domain.MarketSnapshot
	for i := 0; i < 20; i++ {
		id := "mkt-" + string(rune('a'+i))
		markets = append(markets, domain.MarketSnapshot{ID: id})
		history := make([]domain.Trade, len(signalHistory()))
		copy(history, signalHistory())
		for j := range history {
			history[j].MarketID = id
		}
		src.trades[id] = history
	}

	limiter := &fakeLimiter{}
	engine := New(src, nil, limiter, nil, testLogger())

	results, err := engine.Run(context.Background(), markets)
	require.NoError(t, err)
	assert.Len(t, results, 20)
	assert.Equal(t, 2, limiter.waits)
}

func TestRunPacesThroughUnscorableMarkets(t *testing.T) {
	// Nine scorable markets, then one with no trade history. The tenth
	// market produces nothing, but it still completes a batch of ten
	// upstream fetches, so the pause fires all the same.
	src := &fakeTradeSource{trades: map[string][]domain.Trade{}}
	var markets []domain.MarketSnapshot
	for i := 0; i < 10; i++ {
		id := "mkt-" + string(rune('a'+i))
		markets = append(markets, domain.MarketSnapshot{ID: id})
		if i == 9 {
			continue
		}
		history := make([]domain.Trade, len(signalHistory()))
		copy(history, signalHistory())
		for j := range history {
			history[j].MarketID = id
		}
		src.trades[id] = history
	}

	limiter := &fakeLimiter{}
	engine := New(src, nil, limiter, nil, testLogger())

	results, err := engine.Run(context.Background(), markets)
	require.NoError(t, err)
	assert.Len(t, results, 9)
	assert.Equal(t, 1, limiter.waits)
}

func TestRunSkipsUnscorableMarkets(t *testing.T) {
	src := &fakeTradeSource{trades: map[string][]domain.Trade{
		"mkt-1": signalHistory(),
		// mkt-2 has no trades at all.
	}}
	engine := New(src, nil, nil, nil, testLogger())

	results, err := engine.Run(context.Background(), []domain.MarketSnapshot{
		{ID: "mkt-1"}, {ID: "mkt-2"},
	})
	require.NoError(t, err)
	assert.Len(t, results, 1)
	assert.Equal(t, "mkt-1", results[0].MarketID)
}

func TestPriceAt(t *testing.T) {
	trades := []domain.Trade{
		trade("0xa", "Yes", 0.40, 1, t0),
		trade("0xb", "Yes", 0.45, 1, t0.Add(4*time.Minute)),
	}
	price, ok := priceAt(trades, t0.Add(3*time.Minute))
	require.True(t, ok)
	assert.InDelta(t, 0.45, price, 1e-9)

	_, ok = priceAt(trades, t0.Add(time.Hour))
	assert.False(t, ok)

	_, ok = priceAt(nil, t0)
	assert.False(t, ok)
}
