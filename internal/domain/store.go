package domain

import (
	"context"
	"time"
)

// ListOpts provides pagination and filtering for list queries.
type ListOpts struct {
	Limit  int
	Offset int
	Since  *time.Time
	Until  *time.Time
}

// MarketStore persists market snapshots.
type MarketStore interface {
	Upsert(ctx context.Context, market MarketSnapshot) error
	UpsertBatch(ctx context.Context, markets []MarketSnapshot) error
	GetByID(ctx context.Context, id string) (MarketSnapshot, error)
	ListActive(ctx context.Context, platform Platform, opts ListOpts) ([]MarketSnapshot, error)
	Count(ctx context.Context) (int64, error)
}

// TradeStore persists normalized trades.
type TradeStore interface {
	InsertBatch(ctx context.Context, trades []Trade) error
	ListByMarket(ctx context.Context, marketID string, opts ListOpts) ([]Trade, error)
	ListByAddress(ctx context.Context, address string, opts ListOpts) ([]Trade, error)
	GetLastTimestamp(ctx context.Context) (time.Time, error)
	DeleteBefore(ctx context.Context, cutoff time.Time) (int64, error)
}

// AnalysisStore persists insider analyses.
type AnalysisStore interface {
	Insert(ctx context.Context, a InsiderAnalysis) error
	GetLatestByMarket(ctx context.Context, marketID string) (InsiderAnalysis, error)
	ListRecent(ctx context.Context, opts ListOpts) ([]InsiderAnalysis, error)
	ListAbove(ctx context.Context, minProbability float64, opts ListOpts) ([]InsiderAnalysis, error)
	DeleteBefore(ctx context.Context, cutoff time.Time) (int64, error)
}

// BacktestStore persists backtest results.
type BacktestStore interface {
	Insert(ctx context.Context, r BacktestResult) error
	ListByMarket(ctx context.Context, marketID string, opts ListOpts) ([]BacktestResult, error)
	ListRecent(ctx context.Context, opts ListOpts) ([]BacktestResult, error)
	DeleteBefore(ctx context.Context, cutoff time.Time) (int64, error)
}

// AuditEntry is a single audit log row.
type AuditEntry struct {
	ID        int64
	Event     string
	Detail    map[string]any
	CreatedAt time.Time
}

// AuditStore persists an append-only audit log.
type AuditStore interface {
	Log(ctx context.Context, event string, detail map[string]any) error
	List(ctx context.Context, opts ListOpts) ([]AuditEntry, error)
}
