package series

import (
	"context"
	"fmt"

	"tradecycle/internal/domain"
	"tradecycle/internal/storage"
)

// ContinuityChecker answers whether a pair has had uninterrupted
// bucketed activity since a given timestamp. Consumers that need a
// warmed-up window gate on this before trusting aggregated signals.
type ContinuityChecker struct {
	store       storage.TradeStore
	bucketWidth float64
}

// NewContinuityChecker creates a ContinuityChecker. A non-positive
// bucketWidth falls back to the default grouping interval.
func NewContinuityChecker(store storage.TradeStore, bucketWidth float64) *ContinuityChecker {
	if bucketWidth <= 0 {
		bucketWidth = domain.DefaultBucketWidth
	}
	return &ContinuityChecker{store: store, bucketWidth: bucketWidth}
}

// HasContinuousTradesSince reports whether the pair's bucketed activity
// starts in the exact bucket containing since and continues without a
// missing bucket through its latest trade. No data at all is false.
func (c *ContinuityChecker) HasContinuousTradesSince(ctx context.Context, pair string, since float64) (bool, error) {
	trades, err := c.store.TradesSince(ctx, pair, since)
	if err != nil {
		return false, fmt.Errorf("read trades for %s: %w", pair, err)
	}
	if len(trades) == 0 {
		return false, nil
	}

	sinceClass := domain.TimeClassOf(since, c.bucketWidth)
	prevClass := domain.TimeClassOf(trades[0].Time, c.bucketWidth)
	if prevClass != sinceClass {
		// Activity starts in a later bucket than the one containing since.
		return false, nil
	}

	for _, t := range trades[1:] {
		class := domain.TimeClassOf(t.Time, c.bucketWidth)
		if prevClass+1 < class {
			return false, nil
		}
		prevClass = class
	}

	return true, nil
}
