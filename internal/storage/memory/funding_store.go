package memory

import (
	"context"
	"sort"
	"sync"

	"github.com/crynom/derive/internal/domain"
	"github.com/crynom/derive/internal/storage"
)

// FundingStore is an in-memory implementation of storage.FundingStore.
type FundingStore struct {
	mu   sync.RWMutex
	data map[int64]*domain.FundingRecord // keyed by timestamp (ms)
}

// NewFundingStore creates a new in-memory funding store.
func NewFundingStore() *FundingStore {
	return &FundingStore{
		data: make(map[int64]*domain.FundingRecord),
	}
}

// Upsert writes records keyed by timestamp; the later write wins.
func (s *FundingStore) Upsert(_ context.Context, records []*domain.FundingRecord) error {
	for _, r := range records {
		if r == nil {
			return storage.ErrInvalidInput
		}
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	for _, r := range records {
		copy := *r
		s.data[r.Timestamp] = &copy
	}
	return nil
}

// GetAll retrieves all records, ordered by timestamp ASC.
func (s *FundingStore) GetAll(_ context.Context) ([]*domain.FundingRecord, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	result := make([]*domain.FundingRecord, 0, len(s.data))
	for _, r := range s.data {
		copy := *r
		result = append(result, &copy)
	}

	sort.Slice(result, func(i, j int) bool {
		return result[i].Timestamp < result[j].Timestamp
	})
	return result, nil
}

var _ storage.FundingStore = (*FundingStore)(nil)
