// Package backtest replays market trade histories to find where the
// suspicion signal peaked and measures how the market moved and
// resolved afterwards.
package backtest

import (
	"context"
	"log/slog"
	"math"
	"sort"
	"time"

	"github.com/google/uuid"

	"github.com/marketsentinel/sentinel/internal/detector"
	"github.com/marketsentinel/sentinel/internal/domain"
)

const (
	// minBacktestTrades is the least history a market needs before a
	// backtest says anything.
	minBacktestTrades = 5
	// priceTolerance bounds how far from a reference instant a trade
	// may sit and still define the price at that instant.
	priceTolerance = 5 * time.Minute
	// postSignalDelay is how long after the signal the exit price is
	// sampled.
	postSignalDelay = time.Hour
	// afterWindow bounds the post-signal partition.
	afterWindow = 24 * time.Hour
	// pauseEvery throttles batch runs against upstream APIs.
	pauseEvery = 10
)

// TradeSource supplies the full trade history for a market.
type TradeSource interface {
	HistoricalTrades(ctx context.Context, market domain.MarketSnapshot) ([]domain.Trade, error)
}

// MarketResolver re-fetches a market's current state. Snapshots
// collected at the start of a long batch can resolve while earlier
// markets are still being replayed.
type MarketResolver interface {
	GetMarket(ctx context.Context, id string) (domain.MarketSnapshot, error)
}

// Engine runs backtests over market snapshots.
type Engine struct {
	trades   TradeSource
	resolver MarketResolver
	limiter  domain.RateLimiter
	store    domain.BacktestStore
	logger   *slog.Logger
}

// New creates a backtest engine. The resolver, limiter, and store are
// optional: a nil resolver scores against the snapshot as given, a nil
// limiter disables batch pacing, and a nil store disables persistence.
func New(trades TradeSource, resolver MarketResolver, limiter domain.RateLimiter, store domain.BacktestStore, logger *slog.Logger) *Engine {
	return &Engine{
		trades:   trades,
		resolver: resolver,
		limiter:  limiter,
		store:    store,
		logger:   logger.With(slog.String("component", "backtest")),
	}
}

// BacktestMarket replays one market. Returns nil (with no error) when
// the market cannot produce a meaningful result: too little history,
// no signal point, or no usable prices around the signal.
func (e *Engine) BacktestMarket(ctx context.Context, market domain.MarketSnapshot) (*domain.BacktestResult, error) {
	trades, err := e.trades.HistoricalTrades(ctx, market)
	if err != nil {
		return nil, err
	}
	if len(trades) < minBacktestTrades {
		return nil, nil
	}

	signal := detector.FindSignalPoint(trades)
	if signal == nil {
		return nil, nil
	}

	sorted := sortByTime(trades)
	var before, after []domain.Trade
	afterCutoff := signal.Timestamp.Add(afterWindow)
	for _, t := range sorted {
		switch {
		case !t.Timestamp.After(signal.Timestamp):
			before = append(before, t)
		case !t.Timestamp.After(afterCutoff):
			after = append(after, t)
		}
	}

	prePrice, preOK := priceAt(before, signal.Timestamp)
	postPrice, postOK := priceAt(sorted, signal.Timestamp.Add(postSignalDelay))
	if !preOK || !postOK {
		return nil, nil
	}

	// Refresh resolution state now that the market is known to score.
	// The stale snapshot still serves when the refresh fails.
	if e.resolver != nil {
		fresh, err := e.resolver.GetMarket(ctx, market.ID)
		if err != nil {
			e.logger.WarnContext(ctx, "market refresh failed",
				slog.String("market_id", market.ID),
				slog.String("error", err.Error()),
			)
		} else {
			market = fresh
		}
	}

	whaleScore, _ := detector.WhaleAccumulation(before)
	indicators := map[string]domain.IndicatorScore{
		domain.IndicatorConcentration: detector.Concentration(before),
		domain.IndicatorVelocity:      detector.Velocity(before),
		domain.IndicatorOutcomeSkew:   detector.OutcomeSkew(before),
		domain.IndicatorPriceMovement: detector.PriceMovement(before),
		domain.IndicatorWhale:         whaleScore,
	}

	result := &domain.BacktestResult{
		ID:                uuid.NewString(),
		MarketID:          market.ID,
		Platform:          market.Platform,
		Question:          market.Question,
		SignalTime:        signal.Timestamp,
		SignalProbability: signal.Probability,
		Indicators:        indicators,
		TradesBefore:      len(before),
		TradesAfter:       len(after),
		PreSignalPrice:    prePrice,
		PostSignalPrice:   postPrice,
		PriceMove:         postPrice - prePrice,
		PredictedOutcome:  predictOutcome(before),
		ComputedAt:        time.Now().UTC(),
	}
	if prePrice != 0 {
		result.PriceMovePct = (postPrice - prePrice) / prePrice * 100
	}

	if market.ResolutionSource != "" {
		result.MarketResolved = true
		result.ActualOutcome = market.ResolvedOutcome
		correct := result.PredictedOutcome != "" && result.PredictedOutcome == market.ResolvedOutcome
		result.PredictedCorrectly = &correct
		if market.ResolvedAt != nil {
			result.TimeToResolutionHours = market.ResolvedAt.Sub(signal.Timestamp).Hours()
		}
	}

	return result, nil
}

// Run backtests a batch of markets, skipping the ones that cannot be
// scored and pausing periodically so upstream trade APIs are not
// hammered. Per-market failures are logged and skipped.
func (e *Engine) Run(ctx context.Context, markets []domain.MarketSnapshot) ([]domain.BacktestResult, error) {
	results := make([]domain.BacktestResult, 0, len(markets))
	for i, m := range markets {
		if err := ctx.Err(); err != nil {
			return results, err
		}

		res, err := e.BacktestMarket(ctx, m)
		switch {
		case err != nil:
			e.logger.WarnContext(ctx, "backtest failed",
				slog.String("market_id", m.ID),
				slog.String("error", err.Error()),
			)
		case res == nil:
			// Unscorable market, nothing to keep.
		default:
			results = append(results, *res)
			if e.store != nil {
				if err := e.store.Insert(ctx, *res); err != nil {
					e.logger.WarnContext(ctx, "backtest persist failed",
						slog.String("market_id", m.ID),
						slog.String("error", err.Error()),
					)
				}
			}
		}

		// Pacing follows the loop counter. Skipped markets still cost
		// upstream API calls, so they count toward the batch.
		if e.limiter != nil && (i+1)%pauseEvery == 0 {
			if err := e.limiter.Wait(ctx, "backtest:trades"); err != nil {
				return results, err
			}
		}
	}

	e.logger.InfoContext(ctx, "backtest batch complete",
		slog.Int("markets", len(markets)),
		slog.Int("results", len(results)),
	)
	return results, nil
}

// priceAt returns the price of the trade nearest to the reference
// instant, when one exists within the tolerance.
func priceAt(trades []domain.Trade, at time.Time) (float64, bool) {
	var (
		best    float64
		bestGap = time.Duration(math.MaxInt64)
	)
	for _, t := range trades {
		gap := t.Timestamp.Sub(at)
		if gap < 0 {
			gap = -gap
		}
		if gap < bestGap {
			bestGap = gap
			best = t.Price
		}
	}
	if bestGap > priceTolerance {
		return 0, false
	}
	return best, true
}

// predictOutcome picks the outcome holding the largest volume share.
func predictOutcome(trades []domain.Trade) string {
	volumes := detector.OutcomeVolumes(trades)
	var outcome string
	var best float64
	for o, v := range volumes {
		if v > best || (v == best && outcome == "") {
			best = v
			outcome = o
		}
	}
	return outcome
}

func sortByTime(trades []domain.Trade) []domain.Trade {
	sorted := make([]domain.Trade, len(trades))
	copy(sorted, trades)
	sort.SliceStable(sorted, func(i, j int) bool {
		return sorted[i].Timestamp.Before(sorted[j].Timestamp)
	})
	return sorted
}
