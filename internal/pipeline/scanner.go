// Package pipeline contains the long-running loops: the periodic deep
// scanner, the live trade monitor, and the cold-storage archiver.
package pipeline

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/marketsentinel/sentinel/internal/domain"
)

// ScanRunner executes one full scan pass and returns the ranked analyses.
type ScanRunner interface {
	Run(ctx context.Context) ([]domain.InsiderAnalysis, error)
}

// Scanner repeats deep scans on a fixed interval.
type Scanner struct {
	scan   ScanRunner
	logger *slog.Logger
}

// NewScanner creates a new Scanner.
func NewScanner(scan ScanRunner, logger *slog.Logger) *Scanner {
	return &Scanner{
		scan:   scan,
		logger: logger,
	}
}

// Run executes a single scan pass.
func (s *Scanner) Run(ctx context.Context) error {
	if err := ctx.Err(); err != nil {
		return fmt.Errorf("scanner context cancelled: %w", err)
	}

	started := time.Now()
	results, err := s.scan.Run(ctx)
	if err != nil {
		return fmt.Errorf("scan pass: %w", err)
	}

	suspicious := 0
	for _, r := range results {
		if r.InsiderProbability >= 0.5 {
			suspicious++
		}
	}

	s.logger.Info("scan pass complete",
		slog.Int("analyzed", len(results)),
		slog.Int("suspicious", suspicious),
		slog.Duration("elapsed", time.Since(started)),
	)
	return nil
}

// RunLoop runs the scanner on a repeating interval until the context is
// cancelled.
func (s *Scanner) RunLoop(ctx context.Context, interval time.Duration) error {
	// Run immediately on start.
	if err := s.Run(ctx); err != nil {
		s.logger.Error("scan pass failed", slog.String("error", err.Error()))
	}

	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			s.logger.Info("scanner loop stopped")
			return ctx.Err()
		case <-ticker.C:
			if err := s.Run(ctx); err != nil {
				s.logger.Error("scan pass failed", slog.String("error", err.Error()))
			}
		}
	}
}
