package memory

import (
	"context"
	"sort"
	"sync"

	"github.com/crynom/derive/internal/domain"
	"github.com/crynom/derive/internal/storage"
)

// CandleStore is an in-memory implementation of storage.CandleStore.
type CandleStore struct {
	mu   sync.RWMutex
	data map[int64]*domain.Candle // keyed by timestamp_bucket
}

// NewCandleStore creates a new in-memory candle store.
func NewCandleStore() *CandleStore {
	return &CandleStore{
		data: make(map[int64]*domain.Candle),
	}
}

// Upsert writes candles keyed by timestamp_bucket; the later write wins.
func (s *CandleStore) Upsert(_ context.Context, candles []*domain.Candle) error {
	for _, c := range candles {
		if c == nil {
			return storage.ErrInvalidInput
		}
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	for _, c := range candles {
		copy := *c
		s.data[c.TimestampBucket] = &copy
	}
	return nil
}

// GetAll retrieves all candles, ordered by timestamp_bucket ASC.
func (s *CandleStore) GetAll(_ context.Context) ([]*domain.Candle, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	result := make([]*domain.Candle, 0, len(s.data))
	for _, c := range s.data {
		copy := *c
		result = append(result, &copy)
	}

	sort.Slice(result, func(i, j int) bool {
		return result[i].TimestampBucket < result[j].TimestampBucket
	})
	return result, nil
}

var _ storage.CandleStore = (*CandleStore)(nil)
