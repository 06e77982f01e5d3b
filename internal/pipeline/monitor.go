package pipeline

import (
	"context"
	"encoding/csv"
	"encoding/json"
	"fmt"
	"log/slog"
	"os"
	"strconv"
	"time"

	"github.com/google/uuid"

	"github.com/marketsentinel/sentinel/internal/domain"
)

// MarketLister lists the highest-volume active markets.
type MarketLister interface {
	TopMarkets(ctx context.Context, limit int) ([]domain.MarketSnapshot, error)
}

// TradeLister fetches recent trades for one market.
type TradeLister interface {
	MarketTrades(ctx context.Context, market domain.MarketSnapshot, limitPerToken int) ([]domain.Trade, error)
}

// AccountProber reports how many historical trades an account has, up to
// the probe limit.
type AccountProber interface {
	UserTradeCount(ctx context.Context, address string, probeLimit int) (int, error)
}

// MonitorNotifier fans a monitor alert out to the configured channels.
type MonitorNotifier interface {
	NotifyAlert(ctx context.Context, alert domain.Alert) error
}

// MonitorConfig tunes the live trade monitor.
type MonitorConfig struct {
	Interval        time.Duration
	LargeTradeUSD   float64
	FreshAccountMax int
	ContrarianPrice float64
	TopMarkets      int
	TradesPerMarket int
	CSVLogPath      string
}

// Monitor watches live trades on the top markets and flags large trades
// from fresh accounts or at longshot prices. Seen trade IDs are tracked
// in Redis so a restart does not replay old alerts.
type Monitor struct {
	markets  MarketLister
	trades   TradeLister
	prober   AccountProber
	seen     domain.SeenTrades
	store    domain.TradeStore
	bus      domain.SignalBus
	notifier MonitorNotifier
	cfg      MonitorConfig
	logger   *slog.Logger
}

// NewMonitor creates a Monitor. The store, bus, and notifier may be nil;
// flagged trades are then only written to the CSV log.
func NewMonitor(
	markets MarketLister,
	trades TradeLister,
	prober AccountProber,
	seen domain.SeenTrades,
	store domain.TradeStore,
	bus domain.SignalBus,
	notifier MonitorNotifier,
	cfg MonitorConfig,
	logger *slog.Logger,
) *Monitor {
	if cfg.Interval <= 0 {
		cfg.Interval = 30 * time.Second
	}
	if cfg.LargeTradeUSD <= 0 {
		cfg.LargeTradeUSD = 400
	}
	if cfg.FreshAccountMax <= 0 {
		cfg.FreshAccountMax = 10
	}
	if cfg.ContrarianPrice <= 0 {
		cfg.ContrarianPrice = 0.20
	}
	if cfg.TopMarkets <= 0 {
		cfg.TopMarkets = 50
	}
	if cfg.TradesPerMarket <= 0 {
		cfg.TradesPerMarket = 50
	}
	return &Monitor{
		markets:  markets,
		trades:   trades,
		prober:   prober,
		seen:     seen,
		store:    store,
		bus:      bus,
		notifier: notifier,
		cfg:      cfg,
		logger:   logger.With(slog.String("component", "monitor")),
	}
}

// Run executes one monitor cycle and returns the large trades it saw,
// flagged or not. Per-market fetch failures are logged and skipped.
func (m *Monitor) Run(ctx context.Context) ([]domain.FlaggedTrade, error) {
	markets, err := m.markets.TopMarkets(ctx, m.cfg.TopMarkets)
	if err != nil {
		return nil, fmt.Errorf("monitor: top markets: %w", err)
	}

	var flagged []domain.FlaggedTrade
	var fresh []domain.Trade

	for _, market := range markets {
		if err := ctx.Err(); err != nil {
			return flagged, fmt.Errorf("monitor: %w", domain.ErrContextDone)
		}

		trades, err := m.trades.MarketTrades(ctx, market, m.cfg.TradesPerMarket)
		if err != nil {
			m.logger.WarnContext(ctx, "monitor: fetch trades failed",
				slog.String("market_id", market.ID),
				slog.String("error", err.Error()),
			)
			continue
		}

		for _, trade := range trades {
			isNew, err := m.seen.MarkSeen(ctx, string(trade.Platform)+":"+trade.ID)
			if err != nil {
				m.logger.WarnContext(ctx, "monitor: seen check failed",
					slog.String("trade_id", trade.ID),
					slog.String("error", err.Error()),
				)
				continue
			}
			if !isNew {
				continue
			}

			fresh = append(fresh, trade)

			if trade.Value() < m.cfg.LargeTradeUSD {
				continue
			}

			ft := m.classify(ctx, market, trade)
			flagged = append(flagged, ft)

			if ft.Flag != "" {
				m.raiseAlert(ctx, ft)
			}
		}
	}

	if m.store != nil && len(fresh) > 0 {
		if err := m.store.InsertBatch(ctx, fresh); err != nil {
			m.logger.WarnContext(ctx, "monitor: persist trades failed",
				slog.String("error", err.Error()),
			)
		}
	}

	if len(flagged) > 0 && m.cfg.CSVLogPath != "" {
		if err := m.appendCSV(flagged); err != nil {
			m.logger.WarnContext(ctx, "monitor: csv log failed",
				slog.String("error", err.Error()),
			)
		}
	}

	m.logger.InfoContext(ctx, "monitor: cycle complete",
		slog.Int("markets", len(markets)),
		slog.Int("new_trades", len(fresh)),
		slog.Int("large_trades", len(flagged)),
	)
	return flagged, nil
}

// RunLoop runs the monitor on its configured interval until the context
// is cancelled.
func (m *Monitor) RunLoop(ctx context.Context) error {
	if _, err := m.Run(ctx); err != nil {
		m.logger.Error("monitor cycle failed", slog.String("error", err.Error()))
	}

	ticker := time.NewTicker(m.cfg.Interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			m.logger.Info("monitor loop stopped")
			return ctx.Err()
		case <-ticker.C:
			if _, err := m.Run(ctx); err != nil {
				m.logger.Error("monitor cycle failed", slog.String("error", err.Error()))
			}
		}
	}
}

// classify annotates a large trade with the account's history depth and a
// suspicion flag. A probe failure leaves AccountTrades at -1; the price
// check still applies.
func (m *Monitor) classify(ctx context.Context, market domain.MarketSnapshot, trade domain.Trade) domain.FlaggedTrade {
	ft := domain.FlaggedTrade{
		Trade:         trade,
		Question:      market.Question,
		AccountTrades: -1,
	}

	addr := trade.Address()
	if addr != "" && m.prober != nil {
		count, err := m.prober.UserTradeCount(ctx, addr, m.cfg.FreshAccountMax+1)
		if err != nil {
			m.logger.WarnContext(ctx, "monitor: account probe failed",
				slog.String("address", addr),
				slog.String("error", err.Error()),
			)
		} else {
			ft.AccountTrades = count
		}
	}

	switch {
	case ft.AccountTrades >= 0 && ft.AccountTrades <= m.cfg.FreshAccountMax:
		ft.Flag = domain.FlagFreshInsider
	case trade.Price > 0 && trade.Price <= m.cfg.ContrarianPrice:
		ft.Flag = domain.FlagContrarianInsider
	}
	return ft
}

func (m *Monitor) raiseAlert(ctx context.Context, ft domain.FlaggedTrade) {
	alert := domain.Alert{
		ID:         uuid.NewString(),
		Kind:       domain.AlertKindMonitor,
		Platform:   ft.Platform,
		MarketID:   ft.MarketID,
		Question:   ft.Question,
		TradeValue: ft.Value(),
		Flag:       ft.Flag,
		Message: fmt.Sprintf("%s %s at %.2f, account history %d trades",
			ft.Side, ft.Outcome, ft.Price, ft.AccountTrades),
		CreatedAt: time.Now().UTC(),
	}

	if m.bus != nil {
		payload, err := json.Marshal(alert)
		if err != nil {
			m.logger.ErrorContext(ctx, "monitor: marshal alert failed",
				slog.String("error", err.Error()),
			)
		} else {
			if err := m.bus.Publish(ctx, "alerts", payload); err != nil {
				m.logger.WarnContext(ctx, "monitor: publish alert failed",
					slog.String("error", err.Error()),
				)
			}
			if err := m.bus.StreamAppend(ctx, "alerts:stream", payload); err != nil {
				m.logger.WarnContext(ctx, "monitor: append alert stream failed",
					slog.String("error", err.Error()),
				)
			}
		}
	}

	if m.notifier != nil {
		if err := m.notifier.NotifyAlert(ctx, alert); err != nil {
			m.logger.WarnContext(ctx, "monitor: notify failed",
				slog.String("error", err.Error()),
			)
		}
	}

	m.logger.InfoContext(ctx, "monitor: flagged trade",
		slog.String("flag", ft.Flag),
		slog.String("market_id", ft.MarketID),
		slog.Float64("value", ft.Value()),
		slog.Int("account_trades", ft.AccountTrades),
	)
}

var csvHeader = []string{
	"timestamp", "platform", "market_id", "question", "outcome", "side",
	"price", "size", "value_usd", "address", "account_trades", "flag",
}

// appendCSV appends flagged trades to the monitor's CSV log, writing the
// header first when the file is new.
func (m *Monitor) appendCSV(trades []domain.FlaggedTrade) error {
	f, err := os.OpenFile(m.cfg.CSVLogPath, os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0o644)
	if err != nil {
		return fmt.Errorf("monitor: open csv log: %w", err)
	}
	defer f.Close()

	info, err := f.Stat()
	if err != nil {
		return fmt.Errorf("monitor: stat csv log: %w", err)
	}

	w := csv.NewWriter(f)
	if info.Size() == 0 {
		if err := w.Write(csvHeader); err != nil {
			return fmt.Errorf("monitor: write csv header: %w", err)
		}
	}

	for _, ft := range trades {
		record := []string{
			ft.Timestamp.UTC().Format(time.RFC3339),
			string(ft.Platform),
			ft.MarketID,
			ft.Question,
			ft.Outcome,
			ft.Side,
			strconv.FormatFloat(ft.Price, 'f', 4, 64),
			strconv.FormatFloat(ft.Size, 'f', 2, 64),
			strconv.FormatFloat(ft.Value(), 'f', 2, 64),
			ft.Address(),
			strconv.Itoa(ft.AccountTrades),
			ft.Flag,
		}
		if err := w.Write(record); err != nil {
			return fmt.Errorf("monitor: write csv record: %w", err)
		}
	}

	w.Flush()
	if err := w.Error(); err != nil {
		return fmt.Errorf("monitor: flush csv log: %w", err)
	}
	return nil
}
