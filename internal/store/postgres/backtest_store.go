package postgres

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/marketsentinel/sentinel/internal/domain"
)

// BacktestStore implements domain.BacktestStore using PostgreSQL.
type BacktestStore struct {
	pool *pgxpool.Pool
}

// NewBacktestStore creates a new BacktestStore backed by the given connection pool.
func NewBacktestStore(pool *pgxpool.Pool) *BacktestStore {
	return &BacktestStore{pool: pool}
}

var _ domain.BacktestStore = (*BacktestStore)(nil)

const backtestSelectCols = `id, market_id, platform, question, signal_time,
	signal_probability, indicators, trades_before, trades_after,
	pre_signal_price, post_signal_price, price_move, price_move_pct,
	predicted_outcome, market_resolved, actual_outcome, predicted_correctly,
	time_to_resolution_hours, computed_at`

// Insert persists one backtest result. predicted_correctly stays NULL for
// markets that have not resolved yet.
func (s *BacktestStore) Insert(ctx context.Context, r domain.BacktestResult) error {
	indicators, err := json.Marshal(r.Indicators)
	if err != nil {
		return fmt.Errorf("postgres: marshal backtest indicators: %w", err)
	}

	const query = `
		INSERT INTO backtests (
			id, market_id, platform, question, signal_time,
			signal_probability, indicators, trades_before, trades_after,
			pre_signal_price, post_signal_price, price_move, price_move_pct,
			predicted_outcome, market_resolved, actual_outcome, predicted_correctly,
			time_to_resolution_hours, computed_at
		) VALUES (
			$1, $2, $3, $4, $5,
			$6, $7, $8, $9,
			$10, $11, $12, $13,
			$14, $15, $16, $17,
			$18, $19
		)`
	_, err = s.pool.Exec(ctx, query,
		r.ID, r.MarketID, r.Platform, r.Question, r.SignalTime,
		r.SignalProbability, indicators, r.TradesBefore, r.TradesAfter,
		r.PreSignalPrice, r.PostSignalPrice, r.PriceMove, r.PriceMovePct,
		r.PredictedOutcome, r.MarketResolved, r.ActualOutcome, r.PredictedCorrectly,
		r.TimeToResolutionHours, r.ComputedAt,
	)
	if err != nil {
		return fmt.Errorf("postgres: insert backtest for market %s: %w", r.MarketID, err)
	}
	return nil
}

func scanBacktestRows(rows pgx.Rows) ([]domain.BacktestResult, error) {
	var results []domain.BacktestResult
	for rows.Next() {
		var r domain.BacktestResult
		var indicators []byte

		if err := rows.Scan(
			&r.ID, &r.MarketID, &r.Platform, &r.Question, &r.SignalTime,
			&r.SignalProbability, &indicators, &r.TradesBefore, &r.TradesAfter,
			&r.PreSignalPrice, &r.PostSignalPrice, &r.PriceMove, &r.PriceMovePct,
			&r.PredictedOutcome, &r.MarketResolved, &r.ActualOutcome, &r.PredictedCorrectly,
			&r.TimeToResolutionHours, &r.ComputedAt,
		); err != nil {
			return nil, err
		}

		if indicators != nil {
			if err := json.Unmarshal(indicators, &r.Indicators); err != nil {
				return nil, fmt.Errorf("unmarshal indicators: %w", err)
			}
		}
		results = append(results, r)
	}
	return results, rows.Err()
}

// ListByMarket returns backtest results for one market, newest first.
func (s *BacktestStore) ListByMarket(ctx context.Context, marketID string, opts domain.ListOpts) ([]domain.BacktestResult, error) {
	query := `SELECT ` + backtestSelectCols + ` FROM backtests WHERE market_id = $1 ORDER BY computed_at DESC`
	args := []any{marketID}
	argIdx := 2

	if opts.Limit > 0 {
		query += fmt.Sprintf(" LIMIT $%d", argIdx)
		args = append(args, opts.Limit)
	}

	rows, err := s.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("postgres: list backtests by market: %w", err)
	}
	defer rows.Close()

	results, err := scanBacktestRows(rows)
	if err != nil {
		return nil, fmt.Errorf("postgres: scan backtests by market: %w", err)
	}
	return results, nil
}

// ListRecent returns backtest results with pagination and optional time filtering.
func (s *BacktestStore) ListRecent(ctx context.Context, opts domain.ListOpts) ([]domain.BacktestResult, error) {
	query := `SELECT ` + backtestSelectCols + ` FROM backtests WHERE 1=1`
	args := []any{}
	argIdx := 1

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

	query += " ORDER BY computed_at DESC"

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
		return nil, fmt.Errorf("postgres: list recent backtests: %w", err)
	}
	defer rows.Close()

	results, err := scanBacktestRows(rows)
	if err != nil {
		return nil, fmt.Errorf("postgres: scan recent backtests: %w", err)
	}
	return results, nil
}

// ListBefore returns all backtests computed strictly before the given time (for archiving).
func (s *BacktestStore) ListBefore(ctx context.Context, before time.Time) ([]domain.BacktestResult, error) {
	query := `SELECT ` + backtestSelectCols + ` FROM backtests WHERE computed_at < $1 ORDER BY computed_at ASC`
	rows, err := s.pool.Query(ctx, query, before)
	if err != nil {
		return nil, fmt.Errorf("postgres: list backtests before: %w", err)
	}
	defer rows.Close()
	return scanBacktestRows(rows)
}

// DeleteBefore deletes backtests computed before the given time. Returns the number deleted.
func (s *BacktestStore) DeleteBefore(ctx context.Context, before time.Time) (int64, error) {
	tag, err := s.pool.Exec(ctx, `DELETE FROM backtests WHERE computed_at < $1`, before)
	if err != nil {
		return 0, fmt.Errorf("postgres: delete backtests before: %w", err)
	}
	return tag.RowsAffected(), nil
}
