package clickhouse

import (
	"context"
	"fmt"

	"github.com/crynom/derive/internal/domain"
	"github.com/crynom/derive/internal/storage"
)

// AggregateStore implements storage.AggregateStore using ClickHouse.
type AggregateStore struct {
	conn *Conn
}

// NewAggregateStore creates a new AggregateStore.
func NewAggregateStore(conn *Conn) *AggregateStore {
	return &AggregateStore{conn: conn}
}

// Compile-time interface check.
var _ storage.AggregateStore = (*AggregateStore)(nil)

// Load returns the latest version of a table. Returns ErrNotFound if never saved.
func (s *AggregateStore) Load(ctx context.Context, table string) ([]*domain.AggregatedBucket, error) {
	version, ok, err := latestVersion(ctx, s.conn, table, kindAggregate)
	if err != nil {
		return nil, err
	}
	if !ok {
		return nil, storage.ErrNotFound
	}

	rows, err := s.conn.Query(ctx, `
		SELECT bucket, trade_count,
			min_price, max_price, min_vol, max_vol,
			last_price, last_vol, avg_index_price, pnl_buy, pnl_sell
		FROM aggregate_rows
		WHERE table_name = ? AND version = ?
		ORDER BY bucket ASC
	`, table, version)
	if err != nil {
		return nil, fmt.Errorf("query aggregate rows: %w", err)
	}
	defer rows.Close()

	return scanAggregates(rows)
}

// Save writes a new version of the table, then publishes it.
func (s *AggregateStore) Save(ctx context.Context, table string, buckets []*domain.AggregatedBucket) error {
	if err := storage.ValidateTableName(table); err != nil {
		return err
	}
	if err := storage.CheckBuckets(buckets); err != nil {
		return err
	}

	version, err := nextVersion(ctx, s.conn, table, kindAggregate)
	if err != nil {
		return err
	}

	if len(buckets) > 0 {
		batch, err := s.conn.PrepareBatch(ctx, `
			INSERT INTO aggregate_rows (
				table_name, version, bucket, trade_count,
				min_price, max_price, min_vol, max_vol,
				last_price, last_vol, avg_index_price, pnl_buy, pnl_sell
			)
		`)
		if err != nil {
			return fmt.Errorf("prepare batch: %w", err)
		}

		for _, b := range buckets {
			err = batch.Append(
				table, version, b.Bucket, uint32(b.TradeCount),
				b.MinPrice, b.MaxPrice, b.MinVol, b.MaxVol,
				b.LastPrice, b.LastVol, b.AvgIndexPrice, b.PnlBuy, b.PnlSell,
			)
			if err != nil {
				batch.Abort()
				return fmt.Errorf("append to batch: %w", err)
			}
		}

		if err := batch.Send(); err != nil {
			return fmt.Errorf("send batch: %w", err)
		}
	}

	return publishVersion(ctx, s.conn, table, kindAggregate, version, len(buckets))
}

// scanAggregates scans multiple rows into a slice.
func scanAggregates(rows chRows) ([]*domain.AggregatedBucket, error) {
	result := make([]*domain.AggregatedBucket, 0)

	for rows.Next() {
		var b domain.AggregatedBucket
		var tradeCount uint32
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
