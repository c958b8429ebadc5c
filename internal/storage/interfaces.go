package storage

import (
	"context"

	"github.com/crynom/derive/internal/domain"
)

// FundingStore provides access to the raw funding_rates table.
type FundingStore interface {
	// Upsert writes records keyed by timestamp. An existing row with the same
	// key is replaced.
	Upsert(ctx context.Context, records []*domain.FundingRecord) error

	// GetAll retrieves all records, ordered by timestamp ASC.
	GetAll(ctx context.Context) ([]*domain.FundingRecord, error)
}

// CandleStore provides access to the raw candles table.
type CandleStore interface {
	// Upsert writes candles keyed by timestamp_bucket. An existing row with
	// the same key is replaced.
	Upsert(ctx context.Context, candles []*domain.Candle) error

	// GetAll retrieves all candles, ordered by timestamp_bucket ASC.
	GetAll(ctx context.Context) ([]*domain.Candle, error)
}

// TradeStore provides access to the raw trades table.
type TradeStore interface {
	// Upsert writes trades keyed by trade_id. An existing row with the same
	// key is replaced.
	Upsert(ctx context.Context, trades []*domain.Trade) error

	// GetAll retrieves all trades, ordered by (timestamp, trade_id) ASC.
	GetAll(ctx context.Context) ([]*domain.Trade, error)
}

// HistoryStore persists named history tables.
type HistoryStore interface {
	// Load returns the rows of a table, ordered by timestamp ASC.
	// Returns ErrNotFound if the table was never saved.
	Load(ctx context.Context, table string) ([]*domain.HistoryRow, error)

	// Save replaces the full contents of a table atomically.
	// Saving zero rows leaves an existing, empty table.
	Save(ctx context.Context, table string, rows []*domain.HistoryRow) error
}

// AggregateStore persists named tables of per-bucket trade aggregates.
type AggregateStore interface {
	// Load returns the buckets of a table, ordered by bucket ASC.
	// Returns ErrNotFound if the table was never saved.
	Load(ctx context.Context, table string) ([]*domain.AggregatedBucket, error)

	// Save replaces the full contents of a table atomically.
	Save(ctx context.Context, table string, buckets []*domain.AggregatedBucket) error
}
