// Package series turns raw stored trades into volume-weighted,
// gap-segmented price buckets.
package series

import (
	"context"
	"fmt"

	"tradecycle/internal/domain"
	"tradecycle/internal/storage"
)

// Segment is a maximal run of temporally contiguous buckets for one
// pair: consecutive entries differ by exactly one time class. Prices,
// Times and Volumes are parallel slices.
type Segment struct {
	Prices  []float64 // volume-weighted average price per bucket
	Times   []float64 // bucket midpoint timestamps
	Volumes []float64 // summed trade amount per bucket
}

// SplitSeries holds bucketed prices over several consecutive periods,
// split wherever trading had a gap between time classes.
type SplitSeries struct {
	Segments []Segment
}

// Len returns the flattened count of buckets across all segments.
func (s *SplitSeries) Len() int {
	n := 0
	for _, seg := range s.Segments {
		n += len(seg.Prices)
	}
	return n
}

// AllPrices returns every bucket price across all segments in order.
func (s *SplitSeries) AllPrices() []float64 {
	result := make([]float64, 0, s.Len())
	for _, seg := range s.Segments {
		result = append(result, seg.Prices...)
	}
	return result
}

// Aggregator reads trades for one or more pairs and groups them into
// fixed-width time buckets. Buckets are recomputed from raw trades on
// every read; nothing here caches across calls.
type Aggregator struct {
	store       storage.TradeStore
	bucketWidth float64
}

// NewAggregator creates an Aggregator. A non-positive bucketWidth falls
// back to the default grouping interval.
func NewAggregator(store storage.TradeStore, bucketWidth float64) *Aggregator {
	if bucketWidth <= 0 {
		bucketWidth = domain.DefaultBucketWidth
	}
	return &Aggregator{store: store, bucketWidth: bucketWidth}
}

// BucketWidth returns the configured grouping interval in seconds.
func (a *Aggregator) BucketWidth() float64 {
	return a.bucketWidth
}

// Prices buckets the trades of the given pairs. With no pairs given it
// operates over every pair known to the store.
func (a *Aggregator) Prices(ctx context.Context, pairs ...string) (*SplitSeries, error) {
	if len(pairs) == 0 {
		known, err := a.store.DistinctPairs(ctx)
		if err != nil {
			return nil, fmt.Errorf("list pairs: %w", err)
		}
		pairs = known
	}

	result := &SplitSeries{}
	for _, pair := range pairs {
		trades, err := a.store.Trades(ctx, pair)
		if err != nil {
			return nil, fmt.Errorf("read trades for %s: %w", pair, err)
		}
		a.bucketPair(trades, result)
	}

	return result, nil
}

// bucketPair consumes one pair's trades in ascending time order and
// appends the resulting segments to out.
func (a *Aggregator) bucketPair(trades []domain.Trade, out *SplitSeries) {
	var segment Segment
	var prevClass int64
	started := false

	var sumPriceVolume, sumVolume float64

	closeBucket := func(class int64) {
		// Only reached with sumVolume > 0, so the division is safe.
		segment.Prices = append(segment.Prices, sumPriceVolume/sumVolume)
		segment.Times = append(segment.Times, (float64(class)+0.5)*a.bucketWidth)
		segment.Volumes = append(segment.Volumes, sumVolume)
	}

	for _, t := range trades {
		class := domain.TimeClassOf(t.Time, a.bucketWidth)

		if !started || class == prevClass {
			sumPriceVolume += t.Price * t.Amount
			sumVolume += t.Amount
		} else {
			closeBucket(prevClass)
			if prevClass+1 != class {
				// Gap between time classes: the segment ends here.
				out.Segments = append(out.Segments, segment)
				segment = Segment{}
			}
			sumPriceVolume = t.Price * t.Amount
			sumVolume = t.Amount
		}

		prevClass = class
		started = true
	}

	if sumVolume > 0 {
		closeBucket(prevClass)
		out.Segments = append(out.Segments, segment)
	}
}

// Buckets computes archive rows for the given pairs (all known pairs if
// none given). Same bucketing as Prices, flattened across segments and
// tagged with pair and time class for durable storage.
func (a *Aggregator) Buckets(ctx context.Context, pairs ...string) ([]*domain.PriceBucket, error) {
	if len(pairs) == 0 {
		known, err := a.store.DistinctPairs(ctx)
		if err != nil {
			return nil, fmt.Errorf("list pairs: %w", err)
		}
		pairs = known
	}

	var result []*domain.PriceBucket
	for _, pair := range pairs {
		trades, err := a.store.Trades(ctx, pair)
		if err != nil {
			return nil, fmt.Errorf("read trades for %s: %w", pair, err)
		}

		var series SplitSeries
		a.bucketPair(trades, &series)
		for _, seg := range series.Segments {
			for i := range seg.Prices {
				result = append(result, &domain.PriceBucket{
					Pair:      pair,
					TimeClass: domain.TimeClassOf(seg.Times[i], a.bucketWidth),
					Time:      seg.Times[i],
					Price:     seg.Prices[i],
					Volume:    seg.Volumes[i],
				})
			}
		}
	}

	return result, nil
}
