package postgres

import (
	"context"
	"fmt"

	"github.com/crynom/derive/internal/domain"
	"github.com/crynom/derive/internal/storage"
)

// CandleStore implements storage.CandleStore using PostgreSQL.
type CandleStore struct {
	pool *Pool
}

// NewCandleStore creates a new CandleStore.
func NewCandleStore(pool *Pool) *CandleStore {
	return &CandleStore{pool: pool}
}

// Compile-time interface check.
var _ storage.CandleStore = (*CandleStore)(nil)

// Upsert writes candles in one transaction; an existing bucket is overwritten.
func (s *CandleStore) Upsert(ctx context.Context, candles []*domain.Candle) error {
	if len(candles) == 0 {
		return nil
	}
	for _, c := range candles {
		if c == nil {
			return storage.ErrInvalidInput
		}
	}

	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return fmt.Errorf("begin tx: %w", err)
	}
	defer tx.Rollback(ctx)

	query := `
		INSERT INTO candles (timestamp_bucket, open_price, high_price, low_price, close_price)
		VALUES ($1, $2, $3, $4, $5)
		ON CONFLICT (timestamp_bucket) DO UPDATE SET
			open_price = EXCLUDED.open_price,
			high_price = EXCLUDED.high_price,
			low_price = EXCLUDED.low_price,
			close_price = EXCLUDED.close_price,
			updated_at = now()
	`

	for _, c := range candles {
		_, err := tx.Exec(ctx, query,
			c.TimestampBucket, c.OpenPrice, c.HighPrice, c.LowPrice, c.ClosePrice,
		)
		if err != nil {
			return fmt.Errorf("upsert candle: %w", err)
		}
	}

	if err := tx.Commit(ctx); err != nil {
		return fmt.Errorf("commit tx: %w", err)
	}
	return nil
}

// GetAll retrieves all candles, ordered by timestamp_bucket ASC.
func (s *CandleStore) GetAll(ctx context.Context) ([]*domain.Candle, error) {
	rows, err := s.pool.Query(ctx, `
		SELECT timestamp_bucket, open_price, high_price, low_price, close_price
		FROM candles
		ORDER BY timestamp_bucket ASC
	`)
	if err != nil {
		return nil, fmt.Errorf("query candles: %w", err)
	}
	defer rows.Close()

	var result []*domain.Candle
	for rows.Next() {
		var c domain.Candle
		if err := rows.Scan(&c.TimestampBucket, &c.OpenPrice, &c.HighPrice, &c.LowPrice, &c.ClosePrice); err != nil {
			return nil, fmt.Errorf("scan candle: %w", err)
		}
		result = append(result, &c)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate candles: %w", err)
	}
	return result, nil
}
