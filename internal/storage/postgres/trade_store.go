package postgres

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5"

	"github.com/crynom/derive/internal/domain"
	"github.com/crynom/derive/internal/storage"
)

// TradeStore implements storage.TradeStore using PostgreSQL.
type TradeStore struct {
	pool *Pool
}

// NewTradeStore creates a new TradeStore.
func NewTradeStore(pool *Pool) *TradeStore {
	return &TradeStore{pool: pool}
}

// Compile-time interface check.
var _ storage.TradeStore = (*TradeStore)(nil)

// Upsert writes trades in one round trip; an existing trade_id is overwritten.
func (s *TradeStore) Upsert(ctx context.Context, trades []*domain.Trade) error {
	if len(trades) == 0 {
		return nil
	}
	for _, t := range trades {
		if t == nil || t.TradeID == "" {
			return storage.ErrInvalidInput
		}
	}

	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return fmt.Errorf("begin tx: %w", err)
	}
	defer tx.Rollback(ctx)

	query := `
		INSERT INTO trades (
			trade_id, timestamp_ms, trade_price, trade_amount,
			index_price, realized_pnl, direction
		) VALUES ($1, $2, $3, $4, $5, $6, $7)
		ON CONFLICT (trade_id) DO UPDATE SET
			timestamp_ms = EXCLUDED.timestamp_ms,
			trade_price = EXCLUDED.trade_price,
			trade_amount = EXCLUDED.trade_amount,
			index_price = EXCLUDED.index_price,
			realized_pnl = EXCLUDED.realized_pnl,
			direction = EXCLUDED.direction,
			updated_at = now()
	`

	batch := &pgx.Batch{}
	for _, t := range trades {
		batch.Queue(query,
			t.TradeID, t.Timestamp, t.TradePrice, t.TradeAmount,
			t.IndexPrice, t.RealizedPnl, string(t.Direction),
		)
	}

	results := tx.SendBatch(ctx, batch)
	for range trades {
		if _, err := results.Exec(); err != nil {
			results.Close()
			return fmt.Errorf("upsert trade: %w", err)
		}
	}
	if err := results.Close(); err != nil {
		return fmt.Errorf("close batch: %w", err)
	}

	if err := tx.Commit(ctx); err != nil {
		return fmt.Errorf("commit tx: %w", err)
	}
	return nil
}

// GetAll retrieves all trades, ordered by (timestamp, trade_id) ASC.
func (s *TradeStore) GetAll(ctx context.Context) ([]*domain.Trade, error) {
	rows, err := s.pool.Query(ctx, `
		SELECT trade_id, timestamp_ms, trade_price, trade_amount,
			index_price, realized_pnl, direction
		FROM trades
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
