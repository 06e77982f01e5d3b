package pipeline

import (
	"context"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/marketsentinel/sentinel/internal/domain"
)

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

type fakeMarketLister struct {
	markets []domain.MarketSnapshot
	err     error
}

func (f *fakeMarketLister) TopMarkets(_ context.Context, _ int) ([]domain.MarketSnapshot, error) {
	return f.markets, f.err
}

type fakeTradeLister struct {
	trades map[string][]domain.Trade
}

func (f *fakeTradeLister) MarketTrades(_ context.Context, market domain.MarketSnapshot, _ int) ([]domain.Trade, error) {
	return f.trades[market.ID], nil
}

type fakeProber struct {
	counts map[string]int
}

func (f *fakeProber) UserTradeCount(_ context.Context, address string, _ int) (int, error) {
	return f.counts[address], nil
}

type memorySeen struct {
	seen map[string]bool
}

func newMemorySeen() *memorySeen { return &memorySeen{seen: map[string]bool{}} }

func (m *memorySeen) MarkSeen(_ context.Context, id string) (bool, error) {
	if m.seen[id] {
		return false, nil
	}
	m.seen[id] = true
	return true, nil
}

func (m *memorySeen) Count(_ context.Context) (int64, error) {
	return int64(len(m.seen)), nil
}

type captureNotifier struct {
	alerts []domain.Alert
}

func (c *captureNotifier) NotifyAlert(_ context.Context, a domain.Alert) error {
	c.alerts = append(c.alerts, a)
	return nil
}

func monitorFixture(csvPath string) (*Monitor, *captureNotifier, *memorySeen) {
	market := domain.MarketSnapshot{
		ID:       "mkt-1",
		Platform: domain.PlatformPolymarket,
		Question: "Will the merger close?",
	}
	ts := time.Date(2026, 6, 1, 9, 0, 0, 0, time.UTC)

	trades := []domain.Trade{
		// Large buy from a fresh account.
		{ID: "t1", MarketID: "mkt-1", Platform: domain.PlatformPolymarket,
			Outcome: "Yes", Side: "buy", Price: 0.60, Size: 1000, Maker: "0xfresh", Timestamp: ts},
		// Large longshot buy from an established account.
		{ID: "t2", MarketID: "mkt-1", Platform: domain.PlatformPolymarket,
			Outcome: "Yes", Side: "buy", Price: 0.10, Size: 5000, Maker: "0xveteran", Timestamp: ts},
		// Large mid-price buy from an established account: no flag.
		{ID: "t3", MarketID: "mkt-1", Platform: domain.PlatformPolymarket,
			Outcome: "No", Side: "buy", Price: 0.55, Size: 1000, Maker: "0xveteran", Timestamp: ts},
		// Too small to matter.
		{ID: "t4", MarketID: "mkt-1", Platform: domain.PlatformPolymarket,
			Outcome: "Yes", Side: "buy", Price: 0.60, Size: 10, Maker: "0xfresh", Timestamp: ts},
	}

	notifier := &captureNotifier{}
	seen := newMemorySeen()

	mon := NewMonitor(
		&fakeMarketLister{markets: []domain.MarketSnapshot{market}},
		&fakeTradeLister{trades: map[string][]domain.Trade{"mkt-1": trades}},
		&fakeProber{counts: map[string]int{"0xfresh": 3, "0xveteran": 500}},
		seen,
		nil, nil, notifier,
		MonitorConfig{
			LargeTradeUSD:   400,
			FreshAccountMax: 10,
			ContrarianPrice: 0.20,
			CSVLogPath:      csvPath,
		},
		testLogger(),
	)
	return mon, notifier, seen
}

func TestMonitorFlagsLargeTrades(t *testing.T) {
	csvPath := filepath.Join(t.TempDir(), "trades_log.csv")
	mon, notifier, _ := monitorFixture(csvPath)

	flagged, err := mon.Run(context.Background())
	require.NoError(t, err)

	// Three trades clear the $400 bar; t4 is only $6.
	require.Len(t, flagged, 3)

	byID := map[string]domain.FlaggedTrade{}
	for _, ft := range flagged {
		byID[ft.ID] = ft
	}

	assert.Equal(t, domain.FlagFreshInsider, byID["t1"].Flag)
	assert.Equal(t, 3, byID["t1"].AccountTrades)
	assert.Equal(t, domain.FlagContrarianInsider, byID["t2"].Flag)
	assert.Equal(t, "", byID["t3"].Flag)
	assert.Equal(t, "Will the merger close?", byID["t1"].Question)

	// Only the two flagged trades raise alerts.
	require.Len(t, notifier.alerts, 2)
	for _, a := range notifier.alerts {
		assert.Equal(t, domain.AlertKindMonitor, a.Kind)
	}
}

func TestMonitorDeduplicatesAcrossCycles(t *testing.T) {
	csvPath := filepath.Join(t.TempDir(), "trades_log.csv")
	mon, notifier, _ := monitorFixture(csvPath)

	first, err := mon.Run(context.Background())
	require.NoError(t, err)
	require.Len(t, first, 3)

	second, err := mon.Run(context.Background())
	require.NoError(t, err)
	assert.Empty(t, second)
	assert.Len(t, notifier.alerts, 2)
}

func TestMonitorWritesCSVLog(t *testing.T) {
	csvPath := filepath.Join(t.TempDir(), "trades_log.csv")
	mon, _, _ := monitorFixture(csvPath)

	_, err := mon.Run(context.Background())
	require.NoError(t, err)

	data, err := os.ReadFile(csvPath)
	require.NoError(t, err)

	lines := strings.Split(strings.TrimSpace(string(data)), "\n")
	require.Len(t, lines, 4) // header + three large trades
	assert.Contains(t, lines[0], "account_trades")
	assert.Contains(t, lines[1], domain.FlagFreshInsider)
}

func TestMonitorFailsWhenMarketListUnavailable(t *testing.T) {
	mon := NewMonitor(
		&fakeMarketLister{err: domain.ErrRateLimited},
		&fakeTradeLister{}, nil, newMemorySeen(), nil, nil, nil,
		MonitorConfig{}, testLogger(),
	)

	_, err := mon.Run(context.Background())
	require.Error(t, err)
	assert.ErrorIs(t, err, domain.ErrRateLimited)
}
