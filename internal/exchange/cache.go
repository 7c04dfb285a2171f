package exchange

import (
	"context"
	"sync"
	"time"

	"tradecycle/internal/domain"
)

// DefaultPairsTTL is how long a traded-pair listing stays fresh.
// Listings change rarely; the cycle scanner re-reads them every
// iteration and must not hammer the venue.
const DefaultPairsTTL = 10 * time.Minute

// PairsCache is an explicit get-or-compute cache of traded-pair
// listings keyed by venue name. It is owned by whichever component
// needs it; there is no process-global instance.
type PairsCache struct {
	ttl time.Duration
	now func() time.Time

	mu      sync.Mutex
	entries map[string]pairsEntry
}

type pairsEntry struct {
	pairs   []domain.TradedPair
	fetched time.Time
}

// NewPairsCache creates a PairsCache. A non-positive ttl falls back to
// DefaultPairsTTL.
func NewPairsCache(ttl time.Duration) *PairsCache {
	if ttl <= 0 {
		ttl = DefaultPairsTTL
	}
	return &PairsCache{
		ttl:     ttl,
		now:     time.Now,
		entries: make(map[string]pairsEntry),
	}
}

// Get returns the cached traded pairs for the exchange, fetching them
// when absent or older than the TTL. A fetch failure leaves any stale
// entry untouched and is returned to the caller.
func (c *PairsCache) Get(ctx context.Context, ex Exchange) ([]domain.TradedPair, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if entry, ok := c.entries[ex.Name()]; ok && c.now().Sub(entry.fetched) < c.ttl {
		return entry.pairs, nil
	}

	pairs, err := ex.TradedPairs(ctx)
	if err != nil {
		return nil, err
	}

	c.entries[ex.Name()] = pairsEntry{pairs: pairs, fetched: c.now()}
	return pairs, nil
}
