package storage

import (
	"context"

	"tradecycle/internal/domain"
)

// TradeStore provides durable, deduplicating storage of raw trades.
// Inserts are the only mutation; trades are write-once.
type TradeStore interface {
	// Insert stores trades for a pair. The input may be unsorted and may
	// contain duplicates of each other or of already-stored rows: rows
	// sharing (price, time) are merged by summing amount before storage,
	// and rows whose uniqueness key already exists are silently skipped.
	// Returns the number of skipped duplicates. Duplicates are expected
	// steady-state behavior when a poller re-requests overlapping
	// windows; only storage failures surface as errors.
	Insert(ctx context.Context, pair string, trades []domain.Trade) (duplicates int, err error)

	// Trades retrieves all trades for a pair, ordered ascending by time.
	Trades(ctx context.Context, pair string) ([]domain.Trade, error)

	// TradesSince retrieves trades for a pair with time >= since,
	// ordered ascending by time.
	TradesSince(ctx context.Context, pair string, since float64) ([]domain.Trade, error)

	// DistinctPairs returns every pair with at least one stored trade.
	DistinctPairs(ctx context.Context) ([]string, error)
}

// PriceBucketStore archives derived price buckets for analytics
// consumers. Rows are rebuildable from raw trades at any time.
type PriceBucketStore interface {
	// InsertBulk appends archived bucket rows.
	InsertBulk(ctx context.Context, buckets []*domain.PriceBucket) error

	// GetByPair retrieves archived buckets for a pair, ordered by
	// time_class ASC.
	GetByPair(ctx context.Context, pair string) ([]*domain.PriceBucket, error)
}
