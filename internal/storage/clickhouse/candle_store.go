package clickhouse

import (
	"context"
	"fmt"

	"github.com/crynom/derive/internal/domain"
	"github.com/crynom/derive/internal/storage"
)

// CandleStore implements storage.CandleStore using ClickHouse.
type CandleStore struct {
	conn *Conn
}

// NewCandleStore creates a new CandleStore.
func NewCandleStore(conn *Conn) *CandleStore {
	return &CandleStore{conn: conn}
}

// Compile-time interface check.
var _ storage.CandleStore = (*CandleStore)(nil)

// Upsert appends the candles under a fresh version; a stored candle with the
// same bucket is superseded.
func (s *CandleStore) Upsert(ctx context.Context, candles []*domain.Candle) error {
	for _, c := range candles {
		if c == nil {
			return storage.ErrInvalidInput
		}
	}
	candles = lastByKey(candles, func(c *domain.Candle) int64 { return c.TimestampBucket })
	if len(candles) == 0 {
		return nil
	}

	batch, err := s.conn.PrepareBatch(ctx, `
		INSERT INTO candles (timestamp_bucket, open_price, high_price, low_price, close_price, version)
	`)
	if err != nil {
		return fmt.Errorf("prepare batch: %w", err)
	}
	version := rowVersion()
	for _, c := range candles {
		err := batch.Append(c.TimestampBucket, c.OpenPrice, c.HighPrice, c.LowPrice, c.ClosePrice, version)
		if err != nil {
			batch.Abort()
			return fmt.Errorf("append candle: %w", err)
		}
	}
	if err := batch.Send(); err != nil {
		return fmt.Errorf("send candles: %w", err)
	}
	return nil
}

// GetAll retrieves all candles, ordered by timestamp_bucket ASC.
func (s *CandleStore) GetAll(ctx context.Context) ([]*domain.Candle, error) {
	rows, err := s.conn.Query(ctx, `
		SELECT timestamp_bucket, open_price, high_price, low_price, close_price
		FROM candles FINAL
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
