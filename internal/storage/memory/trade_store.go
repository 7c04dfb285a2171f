package memory

import (
	"context"
	"sort"
	"sync"

	"tradecycle/internal/domain"
	"tradecycle/internal/storage"
)

// tradeKey is the uniqueness key of a stored trade within a pair.
type tradeKey struct {
	price  float64
	amount float64
	time   float64
}

// TradeStore is an in-memory implementation of storage.TradeStore.
// Safe for concurrent writers and readers; readers observe a consistent
// snapshot per call.
type TradeStore struct {
	mu   sync.RWMutex
	data map[string]map[tradeKey]domain.Trade // pair -> key -> trade
}

// NewTradeStore creates a new in-memory trade store.
func NewTradeStore() *TradeStore {
	return &TradeStore{
		data: make(map[string]map[tradeKey]domain.Trade),
	}
}

// Compile-time interface check.
var _ storage.TradeStore = (*TradeStore)(nil)

// Insert stores trades for a pair, merging rows that share (price, time)
// and skipping rows whose key already exists. Returns the number of
// skipped duplicates.
func (s *TradeStore) Insert(_ context.Context, pair string, trades []domain.Trade) (int, error) {
	if pair == "" {
		return 0, storage.ErrInvalidInput
	}

	merged := domain.MergeTrades(trades)
	if len(merged) == 0 {
		return 0, nil
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	rows := s.data[pair]
	if rows == nil {
		rows = make(map[tradeKey]domain.Trade, len(merged))
		s.data[pair] = rows
	}

	duplicates := 0
	for _, t := range merged {
		key := tradeKey{price: t.Price, amount: t.Amount, time: t.Time}
		if _, exists := rows[key]; exists {
			duplicates++
			continue
		}
		rows[key] = t
	}

	return duplicates, nil
}

// Trades retrieves all trades for a pair, ordered ascending by time.
func (s *TradeStore) Trades(_ context.Context, pair string) ([]domain.Trade, error) {
	return s.tradesSince(pair, nil)
}

// TradesSince retrieves trades for a pair with time >= since, ordered
// ascending by time.
func (s *TradeStore) TradesSince(_ context.Context, pair string, since float64) ([]domain.Trade, error) {
	return s.tradesSince(pair, &since)
}

func (s *TradeStore) tradesSince(pair string, since *float64) ([]domain.Trade, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var result []domain.Trade
	for _, t := range s.data[pair] {
		if since != nil && t.Time < *since {
			continue
		}
		result = append(result, t)
	}

	sort.Slice(result, func(i, j int) bool {
		return result[i].Time < result[j].Time
	})

	return result, nil
}

// DistinctPairs returns every pair with at least one stored trade.
func (s *TradeStore) DistinctPairs(_ context.Context) ([]string, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var pairs []string
	for pair, rows := range s.data {
		if len(rows) > 0 {
			pairs = append(pairs, pair)
		}
	}
	sort.Strings(pairs)

	return pairs, nil
}
