package service

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"sort"
	"time"

	"github.com/google/uuid"

	"github.com/marketsentinel/sentinel/internal/detector"
	"github.com/marketsentinel/sentinel/internal/domain"
)

// Signal bus channels used by the scan and monitor pipelines.
const (
	AlertChannel = "alerts"
	AlertStream  = "alerts:stream"
)

// MarketSource lists the highest-volume active markets on one platform.
type MarketSource interface {
	TopMarkets(ctx context.Context, limit int) ([]domain.MarketSnapshot, error)
}

// TradeSource fetches recent trades for one market.
type TradeSource interface {
	MarketTrades(ctx context.Context, market domain.MarketSnapshot, limitPerToken int) ([]domain.Trade, error)
}

// AlertNotifier fans a domain alert out to the configured channels.
type AlertNotifier interface {
	NotifyAlert(ctx context.Context, alert domain.Alert) error
}

// ScanConfig tunes a full deep scan.
type ScanConfig struct {
	TopMarkets     int
	TradeLimit     int
	AlertThreshold float64
}

// ScanService runs the deep insider scan: pull the top markets, fetch
// their trade history, score every suspicion indicator, persist the
// results, and raise alerts for markets above the probability threshold.
//
// Per-market failures degrade to a log line and a skip; the scan itself
// only fails when the market list cannot be fetched at all.
type ScanService struct {
	source   MarketSource
	trades   TradeSource
	markets  domain.MarketStore
	trdStore domain.TradeStore
	analyses domain.AnalysisStore
	cache    domain.MarketCache
	bus      domain.SignalBus
	notifier AlertNotifier
	audit    domain.AuditStore
	limiter  domain.RateLimiter
	cfg      ScanConfig
	logger   *slog.Logger
}

// NewScanService creates a ScanService. The stores, cache, bus, notifier,
// audit log, and limiter may each be nil; the scan then simply skips that
// side effect.
func NewScanService(
	source MarketSource,
	trades TradeSource,
	markets domain.MarketStore,
	trdStore domain.TradeStore,
	analyses domain.AnalysisStore,
	cache domain.MarketCache,
	bus domain.SignalBus,
	notifier AlertNotifier,
	audit domain.AuditStore,
	limiter domain.RateLimiter,
	cfg ScanConfig,
	logger *slog.Logger,
) *ScanService {
	if cfg.TopMarkets <= 0 {
		cfg.TopMarkets = 20
	}
	if cfg.TradeLimit <= 0 {
		cfg.TradeLimit = 500
	}
	if cfg.AlertThreshold <= 0 {
		cfg.AlertThreshold = 0.7
	}
	return &ScanService{
		source:   source,
		trades:   trades,
		markets:  markets,
		trdStore: trdStore,
		analyses: analyses,
		cache:    cache,
		bus:      bus,
		notifier: notifier,
		audit:    audit,
		limiter:  limiter,
		cfg:      cfg,
		logger:   logger.With(slog.String("component", "scan")),
	}
}

// Run executes one scan pass and returns the analyses ranked by insider
// probability, highest first.
func (s *ScanService) Run(ctx context.Context) ([]domain.InsiderAnalysis, error) {
	markets, err := s.source.TopMarkets(ctx, s.cfg.TopMarkets)
	if err != nil {
		return nil, fmt.Errorf("scan: top markets: %w", err)
	}

	s.logger.InfoContext(ctx, "scan: starting",
		slog.Int("markets", len(markets)),
		slog.Int("trade_limit", s.cfg.TradeLimit),
	)

	s.persistMarkets(ctx, markets)

	var results []domain.InsiderAnalysis
	for _, market := range markets {
		select {
		case <-ctx.Done():
			return results, fmt.Errorf("scan: %w", domain.ErrContextDone)
		default:
		}

		analysis := s.scanMarket(ctx, market)
		if analysis == nil {
			continue
		}
		results = append(results, *analysis)
	}

	sort.SliceStable(results, func(i, j int) bool {
		return results[i].InsiderProbability > results[j].InsiderProbability
	})

	s.logger.InfoContext(ctx, "scan: complete",
		slog.Int("analyzed", len(results)),
	)
	return results, nil
}

// scanMarket fetches trade history and scores one market. A nil return
// means the market was skipped (fetch error or not enough data).
func (s *ScanService) scanMarket(ctx context.Context, market domain.MarketSnapshot) *domain.InsiderAnalysis {
	if s.limiter != nil {
		if err := s.limiter.Wait(ctx, "scan:trades"); err != nil {
			s.logger.WarnContext(ctx, "scan: rate limiter wait failed",
				slog.String("market_id", market.ID),
				slog.String("error", err.Error()),
			)
			return nil
		}
	}

	trades, err := s.trades.MarketTrades(ctx, market, s.cfg.TradeLimit)
	if err != nil {
		s.logger.WarnContext(ctx, "scan: fetch trades failed",
			slog.String("market_id", market.ID),
			slog.String("error", err.Error()),
		)
		return nil
	}

	if s.trdStore != nil {
		if err := s.trdStore.InsertBatch(ctx, trades); err != nil {
			s.logger.WarnContext(ctx, "scan: persist trades failed",
				slog.String("market_id", market.ID),
				slog.String("error", err.Error()),
			)
		}
	}

	analysis := detector.Analyze(market, trades)
	if analysis == nil {
		return nil
	}

	if s.analyses != nil {
		if err := s.analyses.Insert(ctx, *analysis); err != nil {
			s.logger.WarnContext(ctx, "scan: persist analysis failed",
				slog.String("market_id", market.ID),
				slog.String("error", err.Error()),
			)
		}
	}

	if analysis.InsiderProbability >= s.cfg.AlertThreshold {
		s.raiseAlert(ctx, *analysis)
	}

	return analysis
}

func (s *ScanService) persistMarkets(ctx context.Context, markets []domain.MarketSnapshot) {
	if s.markets != nil {
		if err := s.markets.UpsertBatch(ctx, markets); err != nil {
			s.logger.WarnContext(ctx, "scan: persist markets failed",
				slog.String("error", err.Error()),
			)
		}
	}
	if s.cache != nil {
		for _, m := range markets {
			if err := s.cache.Set(ctx, m); err != nil {
				s.logger.WarnContext(ctx, "scan: cache market failed",
					slog.String("market_id", m.ID),
					slog.String("error", err.Error()),
				)
			}
		}
	}
}

// raiseAlert publishes a high-probability alert to the signal bus, the
// notifier, and the audit log. Each sink failure is logged independently.
func (s *ScanService) raiseAlert(ctx context.Context, analysis domain.InsiderAnalysis) {
	alert := domain.Alert{
		ID:          uuid.NewString(),
		Kind:        domain.AlertKindScan,
		Platform:    analysis.Platform,
		MarketID:    analysis.MarketID,
		Question:    analysis.Question,
		Probability: analysis.InsiderProbability,
		Message: fmt.Sprintf("risk score %.1f across %d trades",
			analysis.RiskScore, analysis.TradeCount),
		CreatedAt: time.Now().UTC(),
	}

	if s.bus != nil {
		payload, err := json.Marshal(alert)
		if err != nil {
			s.logger.ErrorContext(ctx, "scan: marshal alert failed",
				slog.String("error", err.Error()),
			)
		} else {
			if err := s.bus.Publish(ctx, AlertChannel, payload); err != nil {
				s.logger.WarnContext(ctx, "scan: publish alert failed",
					slog.String("error", err.Error()),
				)
			}
			if err := s.bus.StreamAppend(ctx, AlertStream, payload); err != nil {
				s.logger.WarnContext(ctx, "scan: append alert stream failed",
					slog.String("error", err.Error()),
				)
			}
		}
	}

	if s.notifier != nil {
		if err := s.notifier.NotifyAlert(ctx, alert); err != nil {
			s.logger.WarnContext(ctx, "scan: notify failed",
				slog.String("error", err.Error()),
			)
		}
	}

	if s.audit != nil {
		if err := s.audit.Log(ctx, "scan.alert", map[string]any{
			"market_id":   alert.MarketID,
			"platform":    string(alert.Platform),
			"probability": alert.Probability,
		}); err != nil {
			s.logger.WarnContext(ctx, "scan: audit log failed",
				slog.String("error", err.Error()),
			)
		}
	}

	s.logger.InfoContext(ctx, "scan: high probability market",
		slog.String("market_id", alert.MarketID),
		slog.String("question", alert.Question),
		slog.Float64("probability", alert.Probability),
	)
}
