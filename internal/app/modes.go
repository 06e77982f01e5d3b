package app

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/marketsentinel/sentinel/internal/backtest"
	"github.com/marketsentinel/sentinel/internal/domain"
	"github.com/marketsentinel/sentinel/internal/pipeline"
	"github.com/marketsentinel/sentinel/internal/platform/kalshi"
	"github.com/marketsentinel/sentinel/internal/platform/manifold"
	"github.com/marketsentinel/sentinel/internal/platform/polymarket"
	"github.com/marketsentinel/sentinel/internal/report"
	"github.com/marketsentinel/sentinel/internal/server"
	"github.com/marketsentinel/sentinel/internal/server/handler"
	"github.com/marketsentinel/sentinel/internal/server/ws"
	"github.com/marketsentinel/sentinel/internal/service"
)

// platformClients bundles the HTTP clients for every supported platform.
type platformClients struct {
	gamma    *polymarket.GammaClient
	data     *polymarket.DataClient
	kalshi   *kalshi.Client
	manifold *manifold.Client
}

// buildPlatformClients constructs the platform API clients from config.
// The Kalshi RSA key is optional; public market data needs no signature.
func (a *App) buildPlatformClients() *platformClients {
	pc := &platformClients{
		gamma:    polymarket.NewGammaClient(a.cfg.Polymarket.GammaHost),
		data:     polymarket.NewDataClient(a.cfg.Polymarket.DataHost),
		manifold: manifold.NewClient(a.cfg.Manifold.BaseURL),
	}

	kc := kalshi.NewClient(a.cfg.Kalshi.BaseURL, a.cfg.Kalshi.ApiKey)
	if a.cfg.Kalshi.RsaPrivateKeyPath != "" {
		keyBytes, err := os.ReadFile(a.cfg.Kalshi.RsaPrivateKeyPath)
		if err != nil {
			a.logger.Warn("kalshi RSA key unreadable, continuing unauthenticated",
				slog.String("path", a.cfg.Kalshi.RsaPrivateKeyPath),
				slog.String("error", err.Error()),
			)
		} else if err := kc.SetRSAPrivateKey(keyBytes); err != nil {
			a.logger.Warn("kalshi RSA key unparsable, continuing unauthenticated",
				slog.String("path", a.cfg.Kalshi.RsaPrivateKeyPath),
				slog.String("error", err.Error()),
			)
		}
	}
	pc.kalshi = kc

	return pc
}

// buildScanService assembles the deep-scan service over the Polymarket
// clients and whatever stores the current mode wired up.
func (a *App) buildScanService(deps *Dependencies, pc *platformClients) *service.ScanService {
	return service.NewScanService(
		pc.gamma,
		pc.data,
		deps.MarketStore,
		deps.TradeStore,
		deps.AnalysisStore,
		deps.MarketCache,
		deps.SignalBus,
		deps.Notifier,
		deps.AuditStore,
		deps.RateLimiter,
		service.ScanConfig{
			TopMarkets:     a.cfg.Detector.TopMarkets,
			TradeLimit:     a.cfg.Detector.TradeLimit,
			AlertThreshold: a.cfg.Detector.AlertThreshold,
		},
		a.logger,
	)
}

// buildMonitor assembles the live large-trade monitor.
func (a *App) buildMonitor(deps *Dependencies, pc *platformClients) *pipeline.Monitor {
	return pipeline.NewMonitor(
		pc.gamma,
		pc.data,
		pc.data,
		deps.SeenTrades,
		deps.TradeStore,
		deps.SignalBus,
		deps.Notifier,
		pipeline.MonitorConfig{
			Interval:        a.cfg.Monitor.Interval.Duration,
			LargeTradeUSD:   a.cfg.Monitor.LargeTradeUSD,
			FreshAccountMax: a.cfg.Monitor.FreshAccountMax,
			ContrarianPrice: a.cfg.Monitor.ContrarianPrice,
			TopMarkets:      a.cfg.Monitor.TopMarkets,
			TradesPerMarket: a.cfg.Monitor.TradesPerMarket,
			CSVLogPath:      a.cfg.Monitor.CSVLogPath,
		},
		a.logger,
	)
}

// ScanMode runs a single deep scan over the top Polymarket markets and
// prints the ranked report to stdout.
func (a *App) ScanMode(ctx context.Context, deps *Dependencies) error {
	a.logger.InfoContext(ctx, "starting scan mode")

	pc := a.buildPlatformClients()
	analyses, err := a.buildScanService(deps, pc).Run(ctx)
	if err != nil {
		return fmt.Errorf("scan mode: %w", err)
	}

	if a.jsonOut {
		return report.ExportJSON(os.Stdout, analyses)
	}
	return report.WriteScanReport(os.Stdout, analyses)
}

// QuickScanMode sweeps all three platforms for heavily skewed markets
// using market-level data only and prints the result table.
func (a *App) QuickScanMode(ctx context.Context, deps *Dependencies) error {
	a.logger.InfoContext(ctx, "starting quickscan mode")

	pc := a.buildPlatformClients()
	qs := service.NewQuickScanService(
		[]service.NamedSource{
			{Platform: domain.PlatformPolymarket, Source: pc.gamma},
			{Platform: domain.PlatformKalshi, Source: pc.kalshi},
			{Platform: domain.PlatformManifold, Source: pc.manifold},
		},
		deps.MarketStore,
		a.cfg.Detector.TopMarkets,
		a.cfg.Detector.QuickScanMin,
		a.logger,
	)

	scans, err := qs.Run(ctx)
	if err != nil {
		return fmt.Errorf("quickscan mode: %w", err)
	}

	if a.jsonOut {
		return report.ExportJSON(os.Stdout, scans)
	}
	return report.WriteQuickScanReport(os.Stdout, scans)
}

// MonitorMode runs the live trade monitor loop until cancelled.
func (a *App) MonitorMode(ctx context.Context, deps *Dependencies) error {
	a.logger.InfoContext(ctx, "starting monitor mode",
		slog.Duration("interval", a.cfg.Monitor.Interval.Duration),
		slog.Float64("large_trade_usd", a.cfg.Monitor.LargeTradeUSD),
	)

	pc := a.buildPlatformClients()
	mon := a.buildMonitor(deps, pc)
	if err := mon.RunLoop(ctx); ctx.Err() == nil && err != nil {
		return fmt.Errorf("monitor mode: %w", err)
	}
	return nil
}

// historySource adapts the Polymarket data client to the backtest
// engine's trade source by fetching the full per-token history.
type historySource struct {
	data  *polymarket.DataClient
	limit int
}

func (h historySource) HistoricalTrades(ctx context.Context, market domain.MarketSnapshot) ([]domain.Trade, error) {
	return h.data.MarketTrades(ctx, market, h.limit)
}

// backtestPageSize is the Gamma API page size used when collecting
// markets for a backtest run.
const backtestPageSize = 100

// BacktestMode replays historical trades for the highest-volume markets,
// resolved ones included, and prints the prediction report.
func (a *App) BacktestMode(ctx context.Context, deps *Dependencies) error {
	a.logger.InfoContext(ctx, "starting backtest mode",
		slog.Int("max_markets", a.cfg.Backtest.MaxMarkets),
	)

	pc := a.buildPlatformClients()

	var markets []domain.MarketSnapshot
	for offset := 0; len(markets) < a.cfg.Backtest.MaxMarkets; offset += backtestPageSize {
		page, err := pc.gamma.GetMarkets(ctx, backtestPageSize, offset)
		if err != nil {
			return fmt.Errorf("backtest mode: list markets: %w", err)
		}
		if len(page) == 0 {
			break
		}
		markets = append(markets, page...)
	}
	if len(markets) > a.cfg.Backtest.MaxMarkets {
		markets = markets[:a.cfg.Backtest.MaxMarkets]
	}

	engine := backtest.New(
		historySource{data: pc.data, limit: a.cfg.Backtest.TradeLimit},
		pc.gamma,
		deps.RateLimiter,
		deps.BacktestStore,
		a.logger,
	)

	results, err := engine.Run(ctx, markets)
	if err != nil {
		return fmt.Errorf("backtest mode: %w", err)
	}

	if a.jsonOut {
		return report.ExportJSON(os.Stdout, map[string]any{
			"results":       results,
			"effectiveness": backtest.Effectiveness(results),
		})
	}
	return report.WriteBacktestReport(os.Stdout, results, backtest.Effectiveness(results))
}

// lockedScan wraps a scan runner with a distributed lock so only one
// replica runs the deep scan per interval. When the lock is held
// elsewhere the pass is skipped without error.
type lockedScan struct {
	inner  pipeline.ScanRunner
	locks  domain.LockManager
	ttl    time.Duration
	logger *slog.Logger
}

func (l lockedScan) Run(ctx context.Context) ([]domain.InsiderAnalysis, error) {
	unlock, err := l.locks.Acquire(ctx, "scan", l.ttl)
	if err != nil {
		if errors.Is(err, domain.ErrLockHeld) {
			l.logger.InfoContext(ctx, "scan lock held elsewhere, skipping pass")
			return nil, nil
		}
		return nil, fmt.Errorf("acquire scan lock: %w", err)
	}
	defer unlock()

	return l.inner.Run(ctx)
}

// ServeMode runs only the HTTP and WebSocket API over the stored data.
func (a *App) ServeMode(ctx context.Context, deps *Dependencies) error {
	a.logger.InfoContext(ctx, "starting serve mode")

	g, ctx := errgroup.WithContext(ctx)
	a.startHTTPServer(ctx, g, deps)
	return g.Wait()
}

// FullMode runs everything: the periodic deep scanner, the live monitor
// when enabled, the cold-storage archiver, and the API server.
func (a *App) FullMode(ctx context.Context, deps *Dependencies) error {
	a.logger.InfoContext(ctx, "starting full mode")

	g, ctx := errgroup.WithContext(ctx)

	pc := a.buildPlatformClients()

	scanInterval := a.cfg.Pipeline.ScanInterval.Duration
	if scanInterval <= 0 {
		scanInterval = 15 * time.Minute
	}

	scanner := pipeline.NewScanner(lockedScan{
		inner:  a.buildScanService(deps, pc),
		locks:  deps.LockManager,
		ttl:    scanInterval,
		logger: a.logger,
	}, a.logger)

	var mon *pipeline.Monitor
	if a.cfg.Monitor.Enabled {
		mon = a.buildMonitor(deps, pc)
	}

	var arch *pipeline.Archiver
	if deps.Archiver != nil {
		arch = pipeline.NewArchiver(
			deps.Archiver,
			deps.TradeStore,
			deps.AnalysisStore,
			deps.BacktestStore,
			a.cfg.Pipeline.ArchiveRetentionDays,
			a.logger,
		)
	}

	if !a.cfg.Pipeline.Enabled {
		a.logger.WarnContext(ctx, "pipeline.enabled is false, but full mode runs the pipeline by design")
	}

	orch := pipeline.NewOrchestrator(scanner, mon, arch, scanInterval, a.cfg.Pipeline.ArchiveCron, a.logger)
	g.Go(func() error {
		return orch.Run(ctx)
	})

	if a.cfg.Server.Enabled {
		a.startHTTPServer(ctx, g, deps)
	}

	return g.Wait()
}

// startHTTPServer adds the API server and WebSocket hub goroutines to the
// given errgroup. Store-backed handlers are registered only when Postgres
// is wired, so the server degrades to health, status, and alerts.
func (a *App) startHTTPServer(ctx context.Context, g *errgroup.Group, deps *Dependencies) {
	hub := ws.NewHub(deps.SignalBus, a.cfg.Mode, a.logger)
	g.Go(func() error {
		err := hub.Run(ctx)
		if ctx.Err() != nil {
			return nil // clean shutdown
		}
		return err
	})

	handlers := server.Handlers{
		Health: handler.NewHealthHandler(a.logger),
	}

	var marketSvc *service.MarketService
	if deps.MarketStore != nil {
		marketSvc = service.NewMarketService(deps.MarketStore, deps.MarketCache, a.logger)
		handlers.Markets = handler.NewMarketHandler(marketSvc, a.logger)
		handlers.Status = handler.NewStatusHandler(a.cfg.Mode, marketSvc, a.logger)
	} else {
		handlers.Status = handler.NewStatusHandler(a.cfg.Mode, nil, a.logger)
	}
	if deps.AnalysisStore != nil {
		handlers.Analyses = handler.NewAnalysisHandler(deps.AnalysisStore, a.logger)
	}
	if deps.BacktestStore != nil {
		handlers.Backtests = handler.NewBacktestHandler(deps.BacktestStore, a.logger)
	}
	if deps.BlobReader != nil {
		handlers.Archives = handler.NewArchiveHandler(deps.BlobReader, a.logger)
	}
	if deps.SignalBus != nil {
		handlers.Alerts = handler.NewAlertHandler(deps.SignalBus, service.AlertStream, a.logger)
	}

	srv := server.NewServer(server.Config{
		Port:        a.cfg.Server.Port,
		CORSOrigins: a.cfg.Server.CORSOrigins,
		APIKey:      a.cfg.Server.APIKey,
		RateLimit:   a.cfg.Server.RateLimit,
		RateWindow:  a.cfg.Server.RateWindow.Duration,
	}, handlers, hub, deps.RateLimiter, a.logger)

	g.Go(func() error {
		err := srv.Start()
		if ctx.Err() != nil {
			return nil // clean shutdown
		}
		return err
	})

	g.Go(func() error {
		<-ctx.Done()
		shutCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		return srv.Shutdown(shutCtx)
	})
}
