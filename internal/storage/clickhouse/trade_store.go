package clickhouse

import (
	"context"
	"fmt"

	"github.com/crynom/derive/internal/domain"
	"github.com/crynom/derive/internal/storage"
)

// TradeStore implements storage.TradeStore using ClickHouse.
// Trades are the only record of accepted trade statistics once they fall
// out of the exchange's paging window, so every fetched trade is kept.
type TradeStore struct {
	conn *Conn
}

// NewTradeStore creates a new TradeStore.
func NewTradeStore(conn *Conn) *TradeStore {
	return &TradeStore{conn: conn}
}

// Compile-time interface check.
var _ storage.TradeStore = (*TradeStore)(nil)

// Upsert appends trades under a fresh version; a stored trade_id is superseded.
func (s *TradeStore) Upsert(ctx context.Context, trades []*domain.Trade) error {
	for _, t := range trades {
		if t == nil || t.TradeID == "" {
			return storage.ErrInvalidInput
		}
	}
	trades = lastByKey(trades, func(t *domain.Trade) string { return t.TradeID })
	if len(trades) == 0 {
		return nil
	}

	batch, err := s.conn.PrepareBatch(ctx, `
		INSERT INTO trades (
			trade_id, timestamp_ms, trade_price, trade_amount,
			index_price, realized_pnl, direction, version
		)
	`)
	if err != nil {
		return fmt.Errorf("prepare batch: %w", err)
	}
	version := rowVersion()
	for _, t := range trades {
		err := batch.Append(
			t.TradeID, t.Timestamp, t.TradePrice, t.TradeAmount,
			t.IndexPrice, t.RealizedPnl, string(t.Direction), version,
		)
		if err != nil {
			batch.Abort()
			return fmt.Errorf("append trade: %w", err)
		}
	}
	if err := batch.Send(); err != nil {
		return fmt.Errorf("send trades: %w", err)
	}
	return nil
}

// GetAll retrieves all trades, ordered by (timestamp, trade_id) ASC.
func (s *TradeStore) GetAll(ctx context.Context) ([]*domain.Trade, error) {
	rows, err := s.conn.Query(ctx, `
		SELECT trade_id, timestamp_ms, trade_price, trade_amount,
			index_price, realized_pnl, direction
		FROM trades FINAL
		ORDER BY timestamp_ms ASC, trade_id ASC
	`)
	if err != nil {
		return nil, fmt.Errorf("query trades: %w", err)
	}
	defer rows.Close()

	var result []*domain.Trade
	for rows.Next() {
		var t domain.Trade
		var direction string
		err := rows.Scan(
			&t.TradeID, &t.Timestamp, &t.TradePrice, &t.TradeAmount,
			&t.IndexPrice, &t.RealizedPnl, &direction,
		)
		if err != nil {
			return nil, fmt.Errorf("scan trade: %w", err)
		}
		t.Direction = domain.Direction(direction)
		result = append(result, &t)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate trades: %w", err)
	}
	return result, nil
}
