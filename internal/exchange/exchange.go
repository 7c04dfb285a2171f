// Package exchange defines the exchange collaborator surface the core
// consumes: traded-pair listings, order books and recent trades.
package exchange

import (
	"context"

	"tradecycle/internal/domain"
)

// Exchange is one venue's market-data surface. Implementations wrap a
// venue-specific transport; the core only depends on these abstract
// request/response shapes.
type Exchange interface {
	// Name returns the venue name, e.g. "kraken".
	Name() string

	// TradedPairs lists every market currently traded on the venue.
	TradedPairs(ctx context.Context) ([]domain.TradedPair, error)

	// OrderBook fetches one side of the live order book for the market
	// quoted as (base, to). Books are transient; callers must not cache.
	OrderBook(ctx context.Context, base, to string, side domain.Side) ([]domain.OrderBookEntry, error)

	// RecentTrades fetches trades for a pair with time >= since.
	RecentTrades(ctx context.Context, pair string, since float64) ([]domain.Trade, error)
}
