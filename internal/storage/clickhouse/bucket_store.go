package clickhouse

import (
	"context"
	"fmt"

	"tradecycle/internal/domain"
	"tradecycle/internal/storage"
)

// PriceBucketStore implements storage.PriceBucketStore using ClickHouse.
// The table is a ReplacingMergeTree keyed on (pair, time_class), so
// re-archiving a pair converges on the latest derived rows instead of
// producing duplicates.
type PriceBucketStore struct {
	conn *Conn
}

// NewPriceBucketStore creates a new PriceBucketStore.
func NewPriceBucketStore(conn *Conn) *PriceBucketStore {
	return &PriceBucketStore{conn: conn}
}

// Compile-time interface check.
var _ storage.PriceBucketStore = (*PriceBucketStore)(nil)

// InsertBulk appends archived bucket rows.
func (s *PriceBucketStore) InsertBulk(ctx context.Context, buckets []*domain.PriceBucket) error {
	if len(buckets) == 0 {
		return nil
	}

	batch, err := s.conn.PrepareBatch(ctx, `
		INSERT INTO price_buckets (pair, time_class, time, price, volume)
	`)
	if err != nil {
		return fmt.Errorf("prepare batch: %w", err)
	}

	for _, b := range buckets {
		if b == nil || b.Pair == "" {
			return storage.ErrInvalidInput
		}
		if err := batch.Append(b.Pair, b.TimeClass, b.Time, b.Price, b.Volume); err != nil {
			return fmt.Errorf("append to batch: %w", err)
		}
	}

	if err := batch.Send(); err != nil {
		return fmt.Errorf("send batch: %w", err)
	}

	return nil
}

// GetByPair retrieves archived buckets for a pair, ordered by
// time_class ASC. FINAL folds rows not yet merged by the engine.
func (s *PriceBucketStore) GetByPair(ctx context.Context, pair string) ([]*domain.PriceBucket, error) {
	query := `
		SELECT pair, time_class, time, price, volume
		FROM price_buckets FINAL
		WHERE pair = ?
		ORDER BY time_class ASC
	`

	rows, err := s.conn.Query(ctx, query, pair)
	if err != nil {
		return nil, fmt.Errorf("query buckets by pair: %w", err)
	}
	defer rows.Close()

	var result []*domain.PriceBucket
	for rows.Next() {
		var b domain.PriceBucket
		if err := rows.Scan(&b.Pair, &b.TimeClass, &b.Time, &b.Price, &b.Volume); err != nil {
			return nil, fmt.Errorf("scan bucket row: %w", err)
		}
		result = append(result, &b)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate bucket rows: %w", err)
	}

	return result, nil
}
