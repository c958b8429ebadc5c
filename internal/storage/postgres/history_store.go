package postgres

import (
	"context"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"

	"github.com/crynom/derive/internal/domain"
	"github.com/crynom/derive/internal/storage"
)

// HistoryStore implements storage.HistoryStore using PostgreSQL.
// All tables share history_rows, partitioned by table_name.
type HistoryStore struct {
	pool *Pool
}

// NewHistoryStore creates a new HistoryStore.
func NewHistoryStore(pool *Pool) *HistoryStore {
	return &HistoryStore{pool: pool}
}

// Compile-time interface check.
var _ storage.HistoryStore = (*HistoryStore)(nil)

var historyColumns = []string{
	"table_name", "ts", "funding_rate",
	"open_price", "high_price", "low_price", "close_price",
	"trade_count", "min_price", "max_price", "min_vol", "max_vol",
	"last_price", "last_vol", "avg_index_price", "pnl_buy", "pnl_sell",
	"datetime",
}

// Load returns the rows of a table. Returns ErrNotFound if never saved.
func (s *HistoryStore) Load(ctx context.Context, table string) ([]*domain.HistoryRow, error) {
	exists, err := catalogExists(ctx, s.pool, table, kindHistory)
	if err != nil {
		return nil, err
	}
	if !exists {
		return nil, storage.ErrNotFound
	}

	rows, err := s.pool.Query(ctx, `
		SELECT ts, funding_rate,
			open_price, high_price, low_price, close_price,
			trade_count, min_price, max_price, min_vol, max_vol,
			last_price, last_vol, avg_index_price, pnl_buy, pnl_sell,
			datetime
		FROM history_rows
		WHERE table_name = $1
		ORDER BY ts ASC
	`, table)
	if err != nil {
		return nil, fmt.Errorf("query history rows: %w", err)
	}
	defer rows.Close()

	result := make([]*domain.HistoryRow, 0)
	for rows.Next() {
		r, err := scanHistoryRow(rows)
		if err != nil {
			return nil, err
		}
		result = append(result, r)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate history rows: %w", err)
	}
	return result, nil
}

// Save replaces the table in one transaction: catalog row, delete, COPY.
func (s *HistoryStore) Save(ctx context.Context, table string, rows []*domain.HistoryRow) error {
	if err := storage.ValidateTableName(table); err != nil {
		return err
	}
	if err := storage.CheckHistoryRows(rows); err != nil {
		return err
	}

	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return fmt.Errorf("begin tx: %w", err)
	}
	defer tx.Rollback(ctx)

	if err := markSaved(ctx, tx, table, kindHistory, len(rows)); err != nil {
		return err
	}
	if _, err := tx.Exec(ctx, `DELETE FROM history_rows WHERE table_name = $1`, table); err != nil {
		return fmt.Errorf("clear history rows: %w", err)
	}

	_, err = tx.CopyFrom(ctx, pgx.Identifier{"history_rows"}, historyColumns,
		pgx.CopyFromSlice(len(rows), func(i int) ([]any, error) {
			return historyValues(table, rows[i]), nil
		}),
	)
	if err != nil {
		if isUniqueViolation(err) {
			return storage.ErrDuplicateKey
		}
		return fmt.Errorf("copy history rows: %w", err)
	}

	if err := tx.Commit(ctx); err != nil {
		return fmt.Errorf("commit tx: %w", err)
	}
	return nil
}

// historyValues flattens a row; nil Candle/Trades become NULL columns.
func historyValues(table string, r *domain.HistoryRow) []any {
	var open, high, low, closePrice *float64
	if c := r.Candle; c != nil {
		open, high, low, closePrice = &c.OpenPrice, &c.HighPrice, &c.LowPrice, &c.ClosePrice
	}

	var tradeCount *int32
	var minPrice, maxPrice, minVol, maxVol, lastPrice, lastVol, avgIndex, pnlBuy, pnlSell *float64
	if a := r.Trades; a != nil {
		n := int32(a.TradeCount)
		tradeCount = &n
		minPrice, maxPrice = &a.MinPrice, &a.MaxPrice
		minVol, maxVol = &a.MinVol, &a.MaxVol
		lastPrice, lastVol = &a.LastPrice, &a.LastVol
		avgIndex = &a.AvgIndexPrice
		pnlBuy, pnlSell = &a.PnlBuy, &a.PnlSell
	}

	return []any{
		table, r.Timestamp, r.FundingRate,
		open, high, low, closePrice,
		tradeCount, minPrice, maxPrice, minVol, maxVol,
		lastPrice, lastVol, avgIndex, pnlBuy, pnlSell,
		r.Datetime.UTC(),
	}
}

func scanHistoryRow(rows pgx.Rows) (*domain.HistoryRow, error) {
	var r domain.HistoryRow
	var open, high, low, closePrice *float64
	var tradeCount *int32
	var minPrice, maxPrice, minVol, maxVol, lastPrice, lastVol, avgIndex, pnlBuy, pnlSell *float64
	var datetime time.Time

	err := rows.Scan(
		&r.Timestamp, &r.FundingRate,
		&open, &high, &low, &closePrice,
		&tradeCount, &minPrice, &maxPrice, &minVol, &maxVol,
		&lastPrice, &lastVol, &avgIndex, &pnlBuy, &pnlSell,
		&datetime,
	)
	if err != nil {
		return nil, fmt.Errorf("scan history row: %w", err)
	}

	if open != nil && high != nil && low != nil && closePrice != nil {
		r.Candle = &domain.Candle{
			TimestampBucket: r.Timestamp,
			OpenPrice:       *open,
			HighPrice:       *high,
			LowPrice:        *low,
			ClosePrice:      *closePrice,
		}
	}
	if tradeCount != nil {
		r.Trades = &domain.AggregatedBucket{
			Bucket:        r.Timestamp,
			TradeCount:    int(*tradeCount),
			MinPrice:      deref(minPrice),
			MaxPrice:      deref(maxPrice),
			MinVol:        deref(minVol),
			MaxVol:        deref(maxVol),
			LastPrice:     deref(lastPrice),
			LastVol:       deref(lastVol),
			AvgIndexPrice: deref(avgIndex),
			PnlBuy:        deref(pnlBuy),
			PnlSell:       deref(pnlSell),
		}
	}
	r.Datetime = datetime.UTC()
	return &r, nil
}

func deref(v *float64) float64 {
	if v == nil {
		return 0
	}
	return *v
}
