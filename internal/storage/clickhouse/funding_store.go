package clickhouse

import (
	"context"
	"fmt"

	"github.com/crynom/derive/internal/domain"
	"github.com/crynom/derive/internal/storage"
)

// FundingStore implements storage.FundingStore using ClickHouse.
type FundingStore struct {
	conn *Conn
}

// NewFundingStore creates a new FundingStore.
func NewFundingStore(conn *Conn) *FundingStore {
	return &FundingStore{conn: conn}
}

// Compile-time interface check.
var _ storage.FundingStore = (*FundingStore)(nil)

// Upsert appends the records under a fresh version, superseding any stored
// row with the same timestamp.
func (s *FundingStore) Upsert(ctx context.Context, records []*domain.FundingRecord) error {
	for _, r := range records {
		if r == nil {
			return storage.ErrInvalidInput
		}
	}
	records = lastByKey(records, func(r *domain.FundingRecord) int64 { return r.Timestamp })
	if len(records) == 0 {
		return nil
	}

	batch, err := s.conn.PrepareBatch(ctx, `INSERT INTO funding_rates (timestamp_ms, funding_rate, version)`)
	if err != nil {
		return fmt.Errorf("prepare batch: %w", err)
	}
	version := rowVersion()
	for _, r := range records {
		if err := batch.Append(r.Timestamp, r.FundingRate, version); err != nil {
			batch.Abort()
			return fmt.Errorf("append funding rate: %w", err)
		}
	}
	if err := batch.Send(); err != nil {
		return fmt.Errorf("send funding rates: %w", err)
	}
	return nil
}

// GetAll retrieves all records, ordered by timestamp ASC.
func (s *FundingStore) GetAll(ctx context.Context) ([]*domain.FundingRecord, error) {
	rows, err := s.conn.Query(ctx, `
		SELECT timestamp_ms, funding_rate
		FROM funding_rates FINAL
		ORDER BY timestamp_ms ASC
	`)
	if err != nil {
		return nil, fmt.Errorf("query funding rates: %w", err)
	}
	defer rows.Close()

	var result []*domain.FundingRecord
	for rows.Next() {
		var r domain.FundingRecord
		if err := rows.Scan(&r.Timestamp, &r.FundingRate); err != nil {
			return nil, fmt.Errorf("scan funding rate: %w", err)
		}
		result = append(result, &r)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate funding rates: %w", err)
	}
	return result, nil
}
