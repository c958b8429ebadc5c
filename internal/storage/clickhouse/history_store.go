package clickhouse

import (
	"context"
	"fmt"
	"time"

	"github.com/crynom/derive/internal/domain"
	"github.com/crynom/derive/internal/storage"
)

// HistoryStore implements storage.HistoryStore using ClickHouse.
// Each Save appends a new version of the table; rows of older versions
// stay in history_rows but are never read back.
type HistoryStore struct {
	conn *Conn
}

// NewHistoryStore creates a new HistoryStore.
func NewHistoryStore(conn *Conn) *HistoryStore {
	return &HistoryStore{conn: conn}
}

// Compile-time interface check.
var _ storage.HistoryStore = (*HistoryStore)(nil)

// Load returns the latest version of a table. Returns ErrNotFound if never saved.
func (s *HistoryStore) Load(ctx context.Context, table string) ([]*domain.HistoryRow, error) {
	version, ok, err := latestVersion(ctx, s.conn, table, kindHistory)
	if err != nil {
		return nil, err
	}
	if !ok {
		return nil, storage.ErrNotFound
	}

	rows, err := s.conn.Query(ctx, `
		SELECT ts, funding_rate,
			open_price, high_price, low_price, close_price,
			trade_count, min_price, max_price, min_vol, max_vol,
			last_price, last_vol, avg_index_price, pnl_buy, pnl_sell,
			datetime
		FROM history_rows
		WHERE table_name = ? AND version = ?
		ORDER BY ts ASC
	`, table, version)
	if err != nil {
		return nil, fmt.Errorf("query history rows: %w", err)
	}
	defer rows.Close()

	return scanHistoryRows(rows)
}

// Save writes a new version of the table, then publishes it.
// A failed write leaves the previous version current.
func (s *HistoryStore) Save(ctx context.Context, table string, rows []*domain.HistoryRow) error {
	if err := storage.ValidateTableName(table); err != nil {
		return err
	}
	if err := storage.CheckHistoryRows(rows); err != nil {
		return err
	}

	version, err := nextVersion(ctx, s.conn, table, kindHistory)
	if err != nil {
		return err
	}

	if len(rows) > 0 {
		batch, err := s.conn.PrepareBatch(ctx, `
			INSERT INTO history_rows (
				table_name, version, ts, funding_rate,
				open_price, high_price, low_price, close_price,
				trade_count, min_price, max_price, min_vol, max_vol,
				last_price, last_vol, avg_index_price, pnl_buy, pnl_sell,
				datetime
			)
		`)
		if err != nil {
			return fmt.Errorf("prepare batch: %w", err)
		}

		for _, r := range rows {
			var open, high, low, closePrice *float64
			if c := r.Candle; c != nil {
				open, high, low, closePrice = &c.OpenPrice, &c.HighPrice, &c.LowPrice, &c.ClosePrice
			}

			var tradeCount *uint32
			var minPrice, maxPrice, minVol, maxVol, lastPrice, lastVol, avgIndex, pnlBuy, pnlSell *float64
			if a := r.Trades; a != nil {
				n := uint32(a.TradeCount)
				tradeCount = &n
				minPrice, maxPrice = &a.MinPrice, &a.MaxPrice
				minVol, maxVol = &a.MinVol, &a.MaxVol
				lastPrice, lastVol = &a.LastPrice, &a.LastVol
				avgIndex = &a.AvgIndexPrice
				pnlBuy, pnlSell = &a.PnlBuy, &a.PnlSell
			}

			err = batch.Append(
				table, version, r.Timestamp, r.FundingRate,
				open, high, low, closePrice,
				tradeCount, minPrice, maxPrice, minVol, maxVol,
				lastPrice, lastVol, avgIndex, pnlBuy, pnlSell,
				r.Datetime.UTC(),
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

	return publishVersion(ctx, s.conn, table, kindHistory, version, len(rows))
}

// scanHistoryRows scans rows; NULL candle/trade columns become nil pointers.
func scanHistoryRows(rows chRows) ([]*domain.HistoryRow, error) {
	result := make([]*domain.HistoryRow, 0)

	for rows.Next() {
		var r domain.HistoryRow
		var open, high, low, closePrice *float64
		var tradeCount *uint32
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
		result = append(result, &r)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate history rows: %w", err)
	}
	return result, nil
}

func deref(v *float64) float64 {
	if v == nil {
		return 0
	}
	return *v
}
