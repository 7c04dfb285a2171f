package memory

import (
	"context"
	"sort"
	"sync"

	"tradecycle/internal/domain"
	"tradecycle/internal/storage"
)

// PriceBucketStore is an in-memory implementation of
// storage.PriceBucketStore.
type PriceBucketStore struct {
	mu   sync.RWMutex
	data map[string][]*domain.PriceBucket // pair -> buckets
}

// NewPriceBucketStore creates a new in-memory bucket store.
func NewPriceBucketStore() *PriceBucketStore {
	return &PriceBucketStore{
		data: make(map[string][]*domain.PriceBucket),
	}
}

// Compile-time interface check.
var _ storage.PriceBucketStore = (*PriceBucketStore)(nil)

// InsertBulk appends archived bucket rows.
func (s *PriceBucketStore) InsertBulk(_ context.Context, buckets []*domain.PriceBucket) error {
	if len(buckets) == 0 {
		return nil
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	for _, b := range buckets {
		if b == nil || b.Pair == "" {
			return storage.ErrInvalidInput
		}
		row := *b
		s.data[b.Pair] = append(s.data[b.Pair], &row)
	}

	return nil
}

// GetByPair retrieves archived buckets for a pair, ordered by
// time_class ASC.
func (s *PriceBucketStore) GetByPair(_ context.Context, pair string) ([]*domain.PriceBucket, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var result []*domain.PriceBucket
	for _, b := range s.data[pair] {
		row := *b
		result = append(result, &row)
	}

	sort.Slice(result, func(i, j int) bool {
		return result[i].TimeClass < result[j].TimeClass
	})

	return result, nil
}
