// Package archive rebuilds aggregated price buckets from stored trades
// and writes them to the bucket store. Buckets are derived data; the
// archive can always be regenerated from the trades table.
package archive

import (
	"context"
	"fmt"
	"log"
	"time"

	"tradecycle/internal/series"
	"tradecycle/internal/storage"
)

// DefaultInterval is how often the archive is refreshed when running
// continuously.
const DefaultInterval = 10 * time.Minute

// Runner aggregates trades into price buckets and archives them.
type Runner struct {
	aggregator *series.Aggregator
	buckets    storage.PriceBucketStore
	pairs      []string
	interval   time.Duration
	logger     *log.Logger
}

// RunnerOptions contains configuration for creating a Runner.
type RunnerOptions struct {
	Aggregator *series.Aggregator
	Buckets    storage.PriceBucketStore
	Pairs      []string      // empty means every pair with stored trades
	Interval   time.Duration // default 10m
	Logger     *log.Logger
}

// NewRunner creates an archive runner.
func NewRunner(opts RunnerOptions) *Runner {
	interval := opts.Interval
	if interval == 0 {
		interval = DefaultInterval
	}

	logger := opts.Logger
	if logger == nil {
		logger = log.Default()
	}

	return &Runner{
		aggregator: opts.Aggregator,
		buckets:    opts.Buckets,
		pairs:      opts.Pairs,
		interval:   interval,
		logger:     logger,
	}
}

// Archive performs a single aggregation pass.
func (r *Runner) Archive(ctx context.Context) error {
	buckets, err := r.aggregator.Buckets(ctx, r.pairs...)
	if err != nil {
		return fmt.Errorf("aggregate buckets: %w", err)
	}
	if len(buckets) == 0 {
		r.logger.Printf("no trades to archive")
		return nil
	}

	if err := r.buckets.InsertBulk(ctx, buckets); err != nil {
		return fmt.Errorf("archive buckets: %w", err)
	}

	r.logger.Printf("archived %d price buckets", len(buckets))
	return nil
}

// Run archives on a fixed interval until the context is cancelled. An
// initial pass runs immediately.
func (r *Runner) Run(ctx context.Context) error {
	if err := r.Archive(ctx); err != nil {
		return err
	}

	ticker := time.NewTicker(r.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-ticker.C:
			if err := r.Archive(ctx); err != nil {
				return err
			}
		}
	}
}
