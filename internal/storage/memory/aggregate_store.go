package memory

import (
	"context"
	"sort"
	"sync"

	"github.com/crynom/derive/internal/domain"
	"github.com/crynom/derive/internal/storage"
)

// AggregateStore is an in-memory implementation of storage.AggregateStore.
type AggregateStore struct {
	mu     sync.RWMutex
	tables map[string][]*domain.AggregatedBucket
}

// NewAggregateStore creates a new in-memory aggregate store.
func NewAggregateStore() *AggregateStore {
	return &AggregateStore{
		tables: make(map[string][]*domain.AggregatedBucket),
	}
}

// Load returns a copy of the table. Returns ErrNotFound if never saved.
func (s *AggregateStore) Load(_ context.Context, table string) ([]*domain.AggregatedBucket, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	buckets, ok := s.tables[table]
	if !ok {
		return nil, storage.ErrNotFound
	}
	return copyBuckets(buckets), nil
}

// Save replaces the table with a copy of buckets.
func (s *AggregateStore) Save(_ context.Context, table string, buckets []*domain.AggregatedBucket) error {
	if err := storage.ValidateTableName(table); err != nil {
		return err
	}
	if err := storage.CheckBuckets(buckets); err != nil {
		return err
	}

	stored := copyBuckets(buckets)
	sort.Slice(stored, func(i, j int) bool {
		return stored[i].Bucket < stored[j].Bucket
	})

	s.mu.Lock()
	defer s.mu.Unlock()

	s.tables[table] = stored
	return nil
}

func copyBuckets(buckets []*domain.AggregatedBucket) []*domain.AggregatedBucket {
	result := make([]*domain.AggregatedBucket, len(buckets))
	for i, b := range buckets {
		copy := *b
		result[i] = &copy
	}
	return result
}

var _ storage.AggregateStore = (*AggregateStore)(nil)
