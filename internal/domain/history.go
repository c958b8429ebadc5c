package domain

import "time"

// AggregatedBucket summarizes every trade attributed to one grid bucket.
// Buckets without trades are never materialized.
type AggregatedBucket struct {
	Bucket        int64   // grid timestamp, Unix seconds
	TradeCount    int     // number of trades in bucket
	MinPrice      float64 // lowest trade price
	MaxPrice      float64 // highest trade price
	MinVol        float64 // amount traded at MinPrice (all ties)
	MaxVol        float64 // amount traded at MaxPrice (all ties)
	LastPrice     float64 // mean price of trades at the latest timestamp
	LastVol       float64 // amount traded at the latest timestamp
	AvgIndexPrice float64 // mean index price
	PnlBuy        float64 // realized pnl of buy trades
	PnlSell       float64 // realized pnl of sell trades
}

// HistoryRow is one row of the merged, persisted history table.
// Nil Candle or Trades means the feed had no data for this grid point.
type HistoryRow struct {
	Timestamp   int64             // grid timestamp, Unix seconds (primary key)
	FundingRate float64           // funding rate sampled at this grid point
	Candle      *Candle           // matching candle (nullable)
	Trades      *AggregatedBucket // trades closing at this grid point (nullable)
	Datetime    time.Time         // Timestamp as UTC time
}

// HasTrades reports whether any trade was attributed to the row.
func (r *HistoryRow) HasTrades() bool {
	return r.Trades != nil
}

// Clone returns a deep copy of the row.
func (r *HistoryRow) Clone() *HistoryRow {
	c := *r
	if r.Candle != nil {
		candle := *r.Candle
		c.Candle = &candle
	}
	if r.Trades != nil {
		trades := *r.Trades
		c.Trades = &trades
	}
	return &c
}
