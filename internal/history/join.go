package history

import (
	"fmt"
	"time"

	"github.com/crynom/derive/internal/domain"
	"github.com/crynom/derive/internal/lookup"
)

// JoinFundingCandles left-joins funding records with candles on
// grid timestamp = timestamp_bucket. Funding drives the join: every funding
// record yields a row, unmatched rows keep a nil Candle and candles without
// a funding row are dropped. Rows are returned in grid order.
//
// Candles are keyed by timestamp_bucket; a repeated bucket is rejected.
func JoinFundingCandles(funding []*domain.FundingRecord, candles []*domain.Candle) ([]*domain.HistoryRow, error) {
	byBucket := make(map[int64]*domain.Candle, len(candles))
	for _, c := range candles {
		if _, ok := byBucket[c.TimestampBucket]; ok {
			return nil, fmt.Errorf("%w: candle timestamp_bucket %d", ErrDuplicateKey, c.TimestampBucket)
		}
		byBucket[c.TimestampBucket] = c
	}

	// Keyed by grid second; a later sample within the same second wins.
	latest := make(map[int64]*domain.FundingRecord, len(funding))
	for _, f := range funding {
		ts := f.GridTimestamp()
		if prev, ok := latest[ts]; ok && prev.Timestamp > f.Timestamp {
			continue
		}
		latest[ts] = f
	}

	rows := make([]*domain.HistoryRow, 0, len(latest))
	for ts, f := range latest {
		row := &domain.HistoryRow{
			Timestamp:   ts,
			FundingRate: f.FundingRate,
		}
		if c, ok := byBucket[ts]; ok {
			candle := *c
			row.Candle = &candle
		}
		rows = append(rows, row)
	}

	SortRows(rows)
	return rows, nil
}

// GridFromRows builds the timestamp grid from joined rows.
func GridFromRows(rows []*domain.HistoryRow) (lookup.Grid, error) {
	points := make([]int64, len(rows))
	for i, r := range rows {
		points[i] = r.Timestamp
	}
	return lookup.NewGrid(points)
}

// JoinAggregates left-joins rows with trade aggregates on
// grid timestamp = bucket. Rows without trades keep a nil Trades.
// Returns the number of rows that matched.
func JoinAggregates(rows []*domain.HistoryRow, buckets []*domain.AggregatedBucket) int {
	byBucket := make(map[int64]*domain.AggregatedBucket, len(buckets))
	for _, b := range buckets {
		byBucket[b.Bucket] = b
	}

	matched := 0
	for _, r := range rows {
		if b, ok := byBucket[r.Timestamp]; ok {
			agg := *b
			r.Trades = &agg
			matched++
		}
	}
	return matched
}

// AttachDatetime sets Datetime from the grid timestamp (epoch seconds, UTC).
func AttachDatetime(rows []*domain.HistoryRow) {
	for _, r := range rows {
		r.Datetime = time.Unix(r.Timestamp, 0).UTC()
	}
}
