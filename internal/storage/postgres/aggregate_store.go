package postgres

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5"

	"github.com/crynom/derive/internal/domain"
	"github.com/crynom/derive/internal/storage"
)

// AggregateStore implements storage.AggregateStore using PostgreSQL.
type AggregateStore struct {
	pool *Pool
}

// NewAggregateStore creates a new AggregateStore.
func NewAggregateStore(pool *Pool) *AggregateStore {
	return &AggregateStore{pool: pool}
}

// Compile-time interface check.
var _ storage.AggregateStore = (*AggregateStore)(nil)

var aggregateColumns = []string{
	"table_name", "bucket", "trade_count",
	"min_price", "max_price", "min_vol", "max_vol",
	"last_price", "last_vol", "avg_index_price", "pnl_buy", "pnl_sell",
}

// Load returns the buckets of a table. Returns ErrNotFound if never saved.
func (s *AggregateStore) Load(ctx context.Context, table string) ([]*domain.AggregatedBucket, error) {
	exists, err := catalogExists(ctx, s.pool, table, kindAggregate)
	if err != nil {
		return nil, err
	}
	if !exists {
		return nil, storage.ErrNotFound
	}

	rows, err := s.pool.Query(ctx, `
		SELECT bucket, trade_count,
			min_price, max_price, min_vol, max_vol,
			last_price, last_vol, avg_index_price, pnl_buy, pnl_sell
		FROM aggregate_rows
		WHERE table_name = $1
		ORDER BY bucket ASC
	`, table)
	if err != nil {
		return nil, fmt.Errorf("query aggregate rows: %w", err)
	}
	defer rows.Close()

	result := make([]*domain.AggregatedBucket, 0)
	for rows.Next() {
		var b domain.AggregatedBucket
		var tradeCount int32
		err := rows.Scan(
			&b.Bucket, &tradeCount,
			&b.MinPrice, &b.MaxPrice, &b.MinVol, &b.MaxVol,
			&b.LastPrice, &b.LastVol, &b.AvgIndexPrice, &b.PnlBuy, &b.PnlSell,
		)
		if err != nil {
			return nil, fmt.Errorf("scan aggregate row: %w", err)
		}
		b.TradeCount = int(tradeCount)
		result = append(result, &b)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate aggregate rows: %w", err)
	}
	return result, nil
}

// Save replaces the table in one transaction.
func (s *AggregateStore) Save(ctx context.Context, table string, buckets []*domain.AggregatedBucket) error {
	if err := storage.ValidateTableName(table); err != nil {
		return err
	}
	if err := storage.CheckBuckets(buckets); err != nil {
		return err
	}

	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return fmt.Errorf("begin tx: %w", err)
	}
	defer tx.Rollback(ctx)

	if err := markSaved(ctx, tx, table, kindAggregate, len(buckets)); err != nil {
		return err
	}
	if _, err := tx.Exec(ctx, `DELETE FROM aggregate_rows WHERE table_name = $1`, table); err != nil {
		return fmt.Errorf("clear aggregate rows: %w", err)
	}

	_, err = tx.CopyFrom(ctx, pgx.Identifier{"aggregate_rows"}, aggregateColumns,
		pgx.CopyFromSlice(len(buckets), func(i int) ([]any, error) {
			b := buckets[i]
			return []any{
				table, b.Bucket, int32(b.TradeCount),
				b.MinPrice, b.MaxPrice, b.MinVol, b.MaxVol,
				b.LastPrice, b.LastVol, b.AvgIndexPrice, b.PnlBuy, b.PnlSell,
			}, nil
		}),
	)
	if err != nil {
		if isUniqueViolation(err) {
			return storage.ErrDuplicateKey
		}
		return fmt.Errorf("copy aggregate rows: %w", err)
	}

	if err := tx.Commit(ctx); err != nil {
		return fmt.Errorf("commit tx: %w", err)
	}
	return nil
}
