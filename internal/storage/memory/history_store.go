package memory

import (
	"context"
	"sort"
	"sync"

	"github.com/crynom/derive/internal/domain"
	"github.com/crynom/derive/internal/storage"
)

// HistoryStore is an in-memory implementation of storage.HistoryStore.
type HistoryStore struct {
	mu     sync.RWMutex
	tables map[string][]*domain.HistoryRow // table name -> rows ordered by timestamp
}

// NewHistoryStore creates a new in-memory history store.
func NewHistoryStore() *HistoryStore {
	return &HistoryStore{
		tables: make(map[string][]*domain.HistoryRow),
	}
}

// Load returns a deep copy of the table. Returns ErrNotFound if never saved.
func (s *HistoryStore) Load(_ context.Context, table string) ([]*domain.HistoryRow, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	rows, ok := s.tables[table]
	if !ok {
		return nil, storage.ErrNotFound
	}
	return cloneRows(rows), nil
}

// Save replaces the table with a deep copy of rows.
func (s *HistoryStore) Save(_ context.Context, table string, rows []*domain.HistoryRow) error {
	if err := storage.ValidateTableName(table); err != nil {
		return err
	}
	if err := storage.CheckHistoryRows(rows); err != nil {
		return err
	}

	stored := cloneRows(rows)
	sort.Slice(stored, func(i, j int) bool {
		return stored[i].Timestamp < stored[j].Timestamp
	})

	s.mu.Lock()
	defer s.mu.Unlock()

	s.tables[table] = stored
	return nil
}

func cloneRows(rows []*domain.HistoryRow) []*domain.HistoryRow {
	result := make([]*domain.HistoryRow, len(rows))
	for i, r := range rows {
		result[i] = r.Clone()
	}
	return result
}

var _ storage.HistoryStore = (*HistoryStore)(nil)
