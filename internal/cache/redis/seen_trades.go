package redis

import (
	"context"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/marketsentinel/sentinel/internal/domain"
)

const seenTradesKey = "monitor:seen_trades"

// SeenTrades implements domain.SeenTrades with a Redis set, so trade
// deduplication survives monitor restarts. The set's TTL is refreshed
// on every write; an idle monitor lets the whole set expire.
type SeenTrades struct {
	rdb       *redis.Client
	retention time.Duration
}

// NewSeenTrades creates a SeenTrades store with the given retention window.
// A non-positive retention defaults to seven days.
func NewSeenTrades(c *Client, retention time.Duration) *SeenTrades {
	if retention <= 0 {
		retention = 7 * 24 * time.Hour
	}
	return &SeenTrades{rdb: c.Underlying(), retention: retention}
}

// MarkSeen records a trade ID and reports whether it was newly added.
// A false return means the trade was already processed in an earlier cycle.
func (st *SeenTrades) MarkSeen(ctx context.Context, tradeID string) (bool, error) {
	pipe := st.rdb.TxPipeline()
	added := pipe.SAdd(ctx, seenTradesKey, tradeID)
	pipe.Expire(ctx, seenTradesKey, st.retention)

	if _, err := pipe.Exec(ctx); err != nil {
		return false, fmt.Errorf("redis: mark trade seen %s: %w", tradeID, err)
	}
	return added.Val() == 1, nil
}

// Count returns the number of trade IDs currently remembered.
func (st *SeenTrades) Count(ctx context.Context) (int64, error) {
	n, err := st.rdb.SCard(ctx, seenTradesKey).Result()
	if err != nil {
		return 0, fmt.Errorf("redis: count seen trades: %w", err)
	}
	return n, nil
}

// Compile-time interface check.
var _ domain.SeenTrades = (*SeenTrades)(nil)
