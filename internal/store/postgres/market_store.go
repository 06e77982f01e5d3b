package postgres

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/marketsentinel/sentinel/internal/domain"
)

// MarketStore implements domain.MarketStore using PostgreSQL.
type MarketStore struct {
	pool *pgxpool.Pool
}

// NewMarketStore creates a new MarketStore backed by the given connection pool.
func NewMarketStore(pool *pgxpool.Pool) *MarketStore {
	return &MarketStore{pool: pool}
}

var _ domain.MarketStore = (*MarketStore)(nil)

const marketSelectCols = `id, platform, question, slug, outcomes, prices, token_ids,
	volume, volume_24h, liquidity, unique_bettors, active, close_time,
	resolved, resolved_outcome, resolution_source, resolved_at,
	created_at, updated_at`

const marketUpsertQuery = `
	INSERT INTO markets (
		id, platform, question, slug, outcomes, prices, token_ids,
		volume, volume_24h, liquidity, unique_bettors, active, close_time,
		resolved, resolved_outcome, resolution_source, resolved_at
	) VALUES (
		$1, $2, $3, $4, $5, $6, $7,
		$8, $9, $10, $11, $12, $13,
		$14, $15, $16, $17
	) ON CONFLICT (id) DO UPDATE SET
		question = EXCLUDED.question,
		slug = EXCLUDED.slug,
		outcomes = EXCLUDED.outcomes,
		prices = EXCLUDED.prices,
		token_ids = EXCLUDED.token_ids,
		volume = EXCLUDED.volume,
		volume_24h = EXCLUDED.volume_24h,
		liquidity = EXCLUDED.liquidity,
		unique_bettors = EXCLUDED.unique_bettors,
		active = EXCLUDED.active,
		close_time = EXCLUDED.close_time,
		resolved = EXCLUDED.resolved,
		resolved_outcome = EXCLUDED.resolved_outcome,
		resolution_source = EXCLUDED.resolution_source,
		resolved_at = EXCLUDED.resolved_at,
		updated_at = NOW()`

func marketUpsertArgs(m domain.MarketSnapshot) []any {
	return []any{
		m.ID, m.Platform, m.Question, m.Slug, m.Outcomes, m.Prices, m.TokenIDs,
		m.Volume, m.Volume24h, m.Liquidity, m.UniqueBettors, m.Active, m.CloseTime,
		m.Resolved, m.ResolvedOutcome, m.ResolutionSource, m.ResolvedAt,
	}
}

func scanMarketRow(row pgx.Row) (domain.MarketSnapshot, error) {
	var m domain.MarketSnapshot
	err := row.Scan(
		&m.ID, &m.Platform, &m.Question, &m.Slug,
		&m.Outcomes, &m.Prices, &m.TokenIDs,
		&m.Volume, &m.Volume24h, &m.Liquidity, &m.UniqueBettors,
		&m.Active, &m.CloseTime,
		&m.Resolved, &m.ResolvedOutcome, &m.ResolutionSource, &m.ResolvedAt,
		&m.CreatedAt, &m.UpdatedAt,
	)
	return m, err
}

// Upsert inserts a market snapshot or refreshes the stored row in place.
func (s *MarketStore) Upsert(ctx context.Context, market domain.MarketSnapshot) error {
	_, err := s.pool.Exec(ctx, marketUpsertQuery, marketUpsertArgs(market)...)
	if err != nil {
		return fmt.Errorf("postgres: upsert market %s: %w", market.ID, err)
	}
	return nil
}

// UpsertBatch upserts multiple markets efficiently using pgx Batch.
func (s *MarketStore) UpsertBatch(ctx context.Context, markets []domain.MarketSnapshot) error {
	if len(markets) == 0 {
		return nil
	}

	batch := &pgx.Batch{}
	for _, m := range markets {
		batch.Queue(marketUpsertQuery, marketUpsertArgs(m)...)
	}

	br := s.pool.SendBatch(ctx, batch)
	defer br.Close()

	for i := range markets {
		if _, err := br.Exec(); err != nil {
			return fmt.Errorf("postgres: upsert market batch item %d: %w", i, err)
		}
	}
	return nil
}

// GetByID returns a single market snapshot, or domain.ErrNotFound.
func (s *MarketStore) GetByID(ctx context.Context, id string) (domain.MarketSnapshot, error) {
	row := s.pool.QueryRow(ctx,
		`SELECT `+marketSelectCols+` FROM markets WHERE id = $1`, id)

	m, err := scanMarketRow(row)
	if errors.Is(err, pgx.ErrNoRows) {
		return domain.MarketSnapshot{}, domain.ErrNotFound
	}
	if err != nil {
		return domain.MarketSnapshot{}, fmt.Errorf("postgres: get market %s: %w", id, err)
	}
	return m, nil
}

// ListActive returns active markets ordered by volume, optionally
// restricted to one platform. An empty platform matches all venues.
func (s *MarketStore) ListActive(ctx context.Context, platform domain.Platform, opts domain.ListOpts) ([]domain.MarketSnapshot, error) {
	query := `SELECT ` + marketSelectCols + ` FROM markets WHERE active = TRUE`
	args := []any{}
	argIdx := 1

	if platform != "" {
		query += fmt.Sprintf(" AND platform = $%d", argIdx)
		args = append(args, platform)
		argIdx++
	}
	if opts.Since != nil {
		query += fmt.Sprintf(" AND updated_at >= $%d", argIdx)
		args = append(args, *opts.Since)
		argIdx++
	}

	query += " ORDER BY volume DESC"

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
		return nil, fmt.Errorf("postgres: list active markets: %w", err)
	}
	defer rows.Close()

	var markets []domain.MarketSnapshot
	for rows.Next() {
		m, err := scanMarketRow(rows)
		if err != nil {
			return nil, fmt.Errorf("postgres: scan market: %w", err)
		}
		markets = append(markets, m)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("postgres: list active markets rows: %w", err)
	}
	return markets, nil
}

// Count returns the total number of stored markets.
func (s *MarketStore) Count(ctx context.Context) (int64, error) {
	var n int64
	if err := s.pool.QueryRow(ctx, `SELECT COUNT(*) FROM markets`).Scan(&n); err != nil {
		return 0, fmt.Errorf("postgres: count markets: %w", err)
	}
	return n, nil
}
