package postgres

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/marketsentinel/sentinel/internal/domain"
)

// AnalysisStore implements domain.AnalysisStore using PostgreSQL. The
// nested indicator, whale, and volume structures are stored as JSONB.
type AnalysisStore struct {
	pool *pgxpool.Pool
}

// NewAnalysisStore creates a new AnalysisStore backed by the given connection pool.
func NewAnalysisStore(pool *pgxpool.Pool) *AnalysisStore {
	return &AnalysisStore{pool: pool}
}

var _ domain.AnalysisStore = (*AnalysisStore)(nil)

const analysisSelectCols = `id, market_id, platform, question, indicators,
	insider_probability, risk_score, whales, outcome_volumes,
	trade_count, total_volume, computed_at`

// Insert persists one analysis.
func (s *AnalysisStore) Insert(ctx context.Context, a domain.InsiderAnalysis) error {
	indicators, err := json.Marshal(a.Indicators)
	if err != nil {
		return fmt.Errorf("postgres: marshal analysis indicators: %w", err)
	}
	whales, err := json.Marshal(a.Whales)
	if err != nil {
		return fmt.Errorf("postgres: marshal analysis whales: %w", err)
	}
	volumes, err := json.Marshal(a.OutcomeVolumes)
	if err != nil {
		return fmt.Errorf("postgres: marshal analysis outcome volumes: %w", err)
	}

	const query = `
		INSERT INTO analyses (
			id, market_id, platform, question, indicators,
			insider_probability, risk_score, whales, outcome_volumes,
			trade_count, total_volume, computed_at
		) VALUES (
			$1, $2, $3, $4, $5,
			$6, $7, $8, $9,
			$10, $11, $12
		)`
	_, err = s.pool.Exec(ctx, query,
		a.ID, a.MarketID, a.Platform, a.Question, indicators,
		a.InsiderProbability, a.RiskScore, whales, volumes,
		a.TradeCount, a.TotalVolume, a.ComputedAt,
	)
	if err != nil {
		return fmt.Errorf("postgres: insert analysis for market %s: %w", a.MarketID, err)
	}
	return nil
}

func scanAnalysisRow(row pgx.Row) (domain.InsiderAnalysis, error) {
	var a domain.InsiderAnalysis
	var indicators, whales, volumes []byte

	err := row.Scan(
		&a.ID, &a.MarketID, &a.Platform, &a.Question, &indicators,
		&a.InsiderProbability, &a.RiskScore, &whales, &volumes,
		&a.TradeCount, &a.TotalVolume, &a.ComputedAt,
	)
	if err != nil {
		return domain.InsiderAnalysis{}, err
	}

	if indicators != nil {
		if err := json.Unmarshal(indicators, &a.Indicators); err != nil {
			return domain.InsiderAnalysis{}, fmt.Errorf("unmarshal indicators: %w", err)
		}
	}
	if whales != nil {
		if err := json.Unmarshal(whales, &a.Whales); err != nil {
			return domain.InsiderAnalysis{}, fmt.Errorf("unmarshal whales: %w", err)
		}
	}
	if volumes != nil {
		if err := json.Unmarshal(volumes, &a.OutcomeVolumes); err != nil {
			return domain.InsiderAnalysis{}, fmt.Errorf("unmarshal outcome volumes: %w", err)
		}
	}
	return a, nil
}

// GetLatestByMarket returns the most recent analysis for a market, or domain.ErrNotFound.
func (s *AnalysisStore) GetLatestByMarket(ctx context.Context, marketID string) (domain.InsiderAnalysis, error) {
	row := s.pool.QueryRow(ctx,
		`SELECT `+analysisSelectCols+` FROM analyses
		 WHERE market_id = $1 ORDER BY computed_at DESC LIMIT 1`, marketID)

	a, err := scanAnalysisRow(row)
	if errors.Is(err, pgx.ErrNoRows) {
		return domain.InsiderAnalysis{}, domain.ErrNotFound
	}
	if err != nil {
		return domain.InsiderAnalysis{}, fmt.Errorf("postgres: get latest analysis for %s: %w", marketID, err)
	}
	return a, nil
}

// ListRecent returns analyses ordered by computation time descending.
func (s *AnalysisStore) ListRecent(ctx context.Context, opts domain.ListOpts) ([]domain.InsiderAnalysis, error) {
	return s.list(ctx, -1, opts)
}

// ListAbove returns analyses with an insider probability at or above the
// threshold, highest probability first.
func (s *AnalysisStore) ListAbove(ctx context.Context, minProbability float64, opts domain.ListOpts) ([]domain.InsiderAnalysis, error) {
	return s.list(ctx, minProbability, opts)
}

func (s *AnalysisStore) list(ctx context.Context, minProbability float64, opts domain.ListOpts) ([]domain.InsiderAnalysis, error) {
	query := `SELECT ` + analysisSelectCols + ` FROM analyses WHERE 1=1`
	args := []any{}
	argIdx := 1

	if minProbability >= 0 {
		query += fmt.Sprintf(" AND insider_probability >= $%d", argIdx)
		args = append(args, minProbability)
		argIdx++
	}
	if opts.Since != nil {
		query += fmt.Sprintf(" AND computed_at >= $%d", argIdx)
		args = append(args, *opts.Since)
		argIdx++
	}
	if opts.Until != nil {
		query += fmt.Sprintf(" AND computed_at <= $%d", argIdx)
		args = append(args, *opts.Until)
		argIdx++
	}

	if minProbability >= 0 {
		query += " ORDER BY insider_probability DESC, computed_at DESC"
	} else {
		query += " ORDER BY computed_at DESC"
	}

	if opts.Limit > 0 {
		query += fmt.Sprintf(" LIMIT $%d", argIdx)
		args = append(args, opts.Limit)
		argIdx++
	}
	if opts.Offset > 0 {
		query += fmt.Sprintf(" OFFSET $%d", argIdx)
		args = append(args, opts.Offset)
	}

	rows, err := s.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("postgres: list analyses: %w", err)
	}
	defer rows.Close()

	var analyses []domain.InsiderAnalysis
	for rows.Next() {
		a, err := scanAnalysisRow(rows)
		if err != nil {
			return nil, fmt.Errorf("postgres: scan analysis: %w", err)
		}
		analyses = append(analyses, a)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("postgres: list analyses rows: %w", err)
	}
	return analyses, nil
}

// ListBefore returns all analyses computed strictly before the given time (for archiving).
func (s *AnalysisStore) ListBefore(ctx context.Context, before time.Time) ([]domain.InsiderAnalysis, error) {
	query := `SELECT ` + analysisSelectCols + ` FROM analyses WHERE computed_at < $1 ORDER BY computed_at ASC`
	rows, err := s.pool.Query(ctx, query, before)
	if err != nil {
		return nil, fmt.Errorf("postgres: list analyses before: %w", err)
	}
	defer rows.Close()

	var analyses []domain.InsiderAnalysis
	for rows.Next() {
		a, err := scanAnalysisRow(rows)
		if err != nil {
			return nil, fmt.Errorf("postgres: scan analysis: %w", err)
		}
		analyses = append(analyses, a)
	}
	return analyses, rows.Err()
}

// DeleteBefore deletes analyses computed before the given time. Returns the number deleted.
func (s *AnalysisStore) DeleteBefore(ctx context.Context, before time.Time) (int64, error) {
	tag, err := s.pool.Exec(ctx, `DELETE FROM analyses WHERE computed_at < $1`, before)
	if err != nil {
		return 0, fmt.Errorf("postgres: delete analyses before: %w", err)
	}
	return tag.RowsAffected(), nil
}
