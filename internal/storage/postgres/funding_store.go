package postgres

import (
	"context"
	"fmt"

	"github.com/crynom/derive/internal/domain"
	"github.com/crynom/derive/internal/storage"
)

// FundingStore implements storage.FundingStore using PostgreSQL.
type FundingStore struct {
	pool *Pool
}

// NewFundingStore creates a new FundingStore.
func NewFundingStore(pool *Pool) *FundingStore {
	return &FundingStore{pool: pool}
}

// Compile-time interface check.
var _ storage.FundingStore = (*FundingStore)(nil)

// Upsert writes records in one transaction; an existing timestamp is overwritten.
func (s *FundingStore) Upsert(ctx context.Context, records []*domain.FundingRecord) error {
	if len(records) == 0 {
		return nil
	}
	for _, r := range records {
		if r == nil {
			return storage.ErrInvalidInput
		}
	}

	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return fmt.Errorf("begin tx: %w", err)
	}
	defer tx.Rollback(ctx)

	query := `
		INSERT INTO funding_rates (timestamp_ms, funding_rate)
		VALUES ($1, $2)
		ON CONFLICT (timestamp_ms) DO UPDATE SET
			funding_rate = EXCLUDED.funding_rate,
			updated_at = now()
	`

	for _, r := range records {
		if _, err := tx.Exec(ctx, query, r.Timestamp, r.FundingRate); err != nil {
			return fmt.Errorf("upsert funding rate: %w", err)
		}
	}

	if err := tx.Commit(ctx); err != nil {
		return fmt.Errorf("commit tx: %w", err)
	}
	return nil
}

// GetAll retrieves all records, ordered by timestamp ASC.
func (s *FundingStore) GetAll(ctx context.Context) ([]*domain.FundingRecord, error) {
	rows, err := s.pool.Query(ctx, `
		SELECT timestamp_ms, funding_rate
		FROM funding_rates
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
