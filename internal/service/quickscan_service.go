package service

import (
	"context"
	"log/slog"
	"sort"

	"github.com/marketsentinel/sentinel/internal/detector"
	"github.com/marketsentinel/sentinel/internal/domain"
)

// NamedSource pairs a market source with the platform it serves, so the
// quick scan can report per-platform failures without losing the rest.
type NamedSource struct {
	Platform domain.Platform
	Source   MarketSource
}

// QuickScanService runs the price-skew sweep: snapshot prices only, no
// trade history, so it covers far more markets per pass than a deep scan.
type QuickScanService struct {
	sources  []NamedSource
	markets  domain.MarketStore
	perSite  int
	minScore float64
	logger   *slog.Logger
}

// NewQuickScanService creates a QuickScanService. The market store may be
// nil; snapshots are then not persisted. minScore filters the output to
// markets at or above that skew score.
func NewQuickScanService(
	sources []NamedSource,
	markets domain.MarketStore,
	perSite int,
	minScore float64,
	logger *slog.Logger,
) *QuickScanService {
	if perSite <= 0 {
		perSite = 50
	}
	return &QuickScanService{
		sources:  sources,
		markets:  markets,
		perSite:  perSite,
		minScore: minScore,
		logger:   logger.With(slog.String("component", "quickscan")),
	}
}

// Run sweeps every configured platform and returns skewed markets ranked
// by skew score, highest first. A platform whose market list cannot be
// fetched is logged and skipped.
func (s *QuickScanService) Run(ctx context.Context) ([]domain.QuickScan, error) {
	var results []domain.QuickScan

	for _, src := range s.sources {
		select {
		case <-ctx.Done():
			return results, domain.ErrContextDone
		default:
		}

		markets, err := src.Source.TopMarkets(ctx, s.perSite)
		if err != nil {
			s.logger.WarnContext(ctx, "quickscan: fetch markets failed",
				slog.String("platform", string(src.Platform)),
				slog.String("error", err.Error()),
			)
			continue
		}

		if s.markets != nil {
			if err := s.markets.UpsertBatch(ctx, markets); err != nil {
				s.logger.WarnContext(ctx, "quickscan: persist markets failed",
					slog.String("platform", string(src.Platform)),
					slog.String("error", err.Error()),
				)
			}
		}

		kept := 0
		for _, market := range markets {
			scan := detector.AnalyzeSnapshot(market)
			if scan == nil {
				continue
			}
			if scan.SkewScore < s.minScore {
				continue
			}
			results = append(results, *scan)
			kept++
		}

		s.logger.InfoContext(ctx, "quickscan: platform swept",
			slog.String("platform", string(src.Platform)),
			slog.Int("markets", len(markets)),
			slog.Int("flagged", kept),
		)
	}

	sort.SliceStable(results, func(i, j int) bool {
		return results[i].SkewScore > results[j].SkewScore
	})

	return results, nil
}
