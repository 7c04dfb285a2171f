// Package collector pulls trades from an exchange and lands them in the
// trade store.
package collector

import (
	"context"
	"fmt"
	"log"
	"time"

	"tradecycle/internal/domain"
	"tradecycle/internal/exchange"
	"tradecycle/internal/observability"
	"tradecycle/internal/storage"
)

// Default intervals.
const (
	DefaultPollInterval  = 1 * time.Minute
	DefaultFlushInterval = 5 * time.Second
)

// Runner polls an exchange for recent trades per pair and inserts them
// into the trade store. When a streaming feed is attached its trades are
// buffered and flushed periodically through the same insert path.
// Polling windows deliberately overlap the last seen timestamp, so
// duplicate skips on insert are routine rather than a fault.
type Runner struct {
	exchange      exchange.Exchange
	store         storage.TradeStore
	pairs         []string
	pollInterval  time.Duration
	flushInterval time.Duration
	feed          *exchange.TradeFeed
	logger        *log.Logger

	lastSeen map[string]float64      // pair -> newest stored trade time
	buffer   map[string][]domain.Trade // pair -> feed trades pending insert
}

// RunnerOptions contains configuration for creating a Runner.
type RunnerOptions struct {
	Exchange      exchange.Exchange
	Store         storage.TradeStore
	Pairs         []string
	PollInterval  time.Duration      // default 1m
	FlushInterval time.Duration      // default 5s, feed buffer flush
	Feed          *exchange.TradeFeed // optional streaming feed
	Logger        *log.Logger
}

// NewRunner creates a collector runner.
func NewRunner(opts RunnerOptions) *Runner {
	pollInterval := opts.PollInterval
	if pollInterval == 0 {
		pollInterval = DefaultPollInterval
	}

	flushInterval := opts.FlushInterval
	if flushInterval == 0 {
		flushInterval = DefaultFlushInterval
	}

	logger := opts.Logger
	if logger == nil {
		logger = log.Default()
	}

	return &Runner{
		exchange:      opts.Exchange,
		store:         opts.Store,
		pairs:         opts.Pairs,
		pollInterval:  pollInterval,
		flushInterval: flushInterval,
		feed:          opts.Feed,
		logger:        logger,
		lastSeen:      make(map[string]float64),
		buffer:        make(map[string][]domain.Trade),
	}
}

// Run polls until the context is cancelled. Fetch failures are logged
// and retried on the next tick; storage failures are fatal and
// propagate to the caller.
func (r *Runner) Run(ctx context.Context) error {
	r.logger.Printf("collecting %d pairs from %s every %s", len(r.pairs), r.exchange.Name(), r.pollInterval)

	if err := r.pollAll(ctx); err != nil {
		return err
	}

	pollTicker := time.NewTicker(r.pollInterval)
	defer pollTicker.Stop()
	flushTicker := time.NewTicker(r.flushInterval)
	defer flushTicker.Stop()

	var feedCh <-chan exchange.FeedTrade
	if r.feed != nil {
		feedCh = r.feed.Trades()
	}

	for {
		select {
		case <-ctx.Done():
			// Land whatever the feed delivered before shutting down.
			if err := r.flushBuffer(context.Background()); err != nil {
				r.logger.Printf("final flush failed: %v", err)
			}
			return ctx.Err()

		case <-pollTicker.C:
			if err := r.pollAll(ctx); err != nil {
				return err
			}

		case <-flushTicker.C:
			if err := r.flushBuffer(ctx); err != nil {
				return err
			}

		case ft, ok := <-feedCh:
			if !ok {
				feedCh = nil
				continue
			}
			r.buffer[ft.Pair] = append(r.buffer[ft.Pair], ft.Trade)
		}
	}
}

// pollAll fetches recent trades for every configured pair.
func (r *Runner) pollAll(ctx context.Context) error {
	for _, pair := range r.pairs {
		trades, err := r.exchange.RecentTrades(ctx, pair, r.lastSeen[pair])
		if err != nil {
			if ctx.Err() != nil {
				return ctx.Err()
			}
			r.logger.Printf("fetch trades for %s: %v", pair, err)
			observability.RecordCollectError(pair)
			continue
		}
		if err := r.insert(ctx, pair, trades); err != nil {
			return err
		}
	}
	return nil
}

// flushBuffer inserts buffered feed trades.
func (r *Runner) flushBuffer(ctx context.Context) error {
	for pair, trades := range r.buffer {
		if len(trades) == 0 {
			continue
		}
		if err := r.insert(ctx, pair, trades); err != nil {
			return err
		}
		delete(r.buffer, pair)
	}
	return nil
}

// insert stores trades and advances the pair's high-water mark.
func (r *Runner) insert(ctx context.Context, pair string, trades []domain.Trade) error {
	if len(trades) == 0 {
		return nil
	}

	duplicates, err := r.store.Insert(ctx, pair, trades)
	if err != nil {
		return fmt.Errorf("store trades for %s: %w", pair, err)
	}

	for _, t := range trades {
		if t.Time > r.lastSeen[pair] {
			r.lastSeen[pair] = t.Time
		}
	}

	observability.RecordTradesStored(pair, len(trades)-duplicates, duplicates)
	if duplicates > 0 {
		r.logger.Printf("ignoring %d duplicate trades for %s", duplicates, pair)
	}

	return nil
}
