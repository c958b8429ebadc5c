package history

import (
	"sort"

	"github.com/crynom/derive/internal/domain"
)

// Reconcile unions freshly computed rows with previously persisted rows.
// Rows are deduplicated by grid timestamp; on collision the fresh row wins.
// No prior row is dropped unless a fresh row supersedes it.
// Returns the reconciled rows (ordered) and the number of superseded prior rows.
func Reconcile(fresh, prior []*domain.HistoryRow) ([]*domain.HistoryRow, int) {
	byKey := make(map[int64]*domain.HistoryRow, len(fresh)+len(prior))
	for _, r := range prior {
		byKey[r.Timestamp] = r
	}

	superseded := 0
	for _, r := range fresh {
		if _, ok := byKey[r.Timestamp]; ok {
			superseded++
		}
		byKey[r.Timestamp] = r
	}

	result := make([]*domain.HistoryRow, 0, len(byKey))
	for _, r := range byKey {
		result = append(result, r)
	}
	SortRows(result)
	return result, superseded
}

// DropEmptyAggregates removes rows with no trade data.
// Returns the kept rows and the number removed.
func DropEmptyAggregates(rows []*domain.HistoryRow) ([]*domain.HistoryRow, int) {
	kept := make([]*domain.HistoryRow, 0, len(rows))
	for _, r := range rows {
		if r.HasTrades() {
			kept = append(kept, r)
		}
	}
	return kept, len(rows) - len(kept)
}

// SortRows orders rows by grid timestamp ASC.
func SortRows(rows []*domain.HistoryRow) {
	sort.Slice(rows, func(i, j int) bool {
		return rows[i].Timestamp < rows[j].Timestamp
	})
}
