package normalization

import (
	"fmt"
	"sort"

	"github.com/crynom/derive/internal/domain"
)

// SortFunding orders funding records by timestamp ASC.
func SortFunding(records []*domain.FundingRecord) {
	sort.SliceStable(records, func(i, j int) bool {
		return records[i].Timestamp < records[j].Timestamp
	})
}

// SortCandles orders candles by timestamp_bucket ASC.
func SortCandles(candles []*domain.Candle) {
	sort.SliceStable(candles, func(i, j int) bool {
		return candles[i].TimestampBucket < candles[j].TimestampBucket
	})
}

// SortTrades orders trades by (timestamp ASC, trade_id ASC).
func SortTrades(trades []*domain.Trade) {
	sort.Slice(trades, func(i, j int) bool {
		if trades[i].Timestamp != trades[j].Timestamp {
			return trades[i].Timestamp < trades[j].Timestamp
		}
		return trades[i].TradeID < trades[j].TradeID
	})
}

// DedupFunding drops records whose timestamp was already seen.
// The first occurrence wins.
func DedupFunding(records []*domain.FundingRecord) ([]*domain.FundingRecord, int) {
	seen := make(map[int64]struct{}, len(records))
	result := make([]*domain.FundingRecord, 0, len(records))
	for _, r := range records {
		if _, ok := seen[r.Timestamp]; ok {
			continue
		}
		seen[r.Timestamp] = struct{}{}
		result = append(result, r)
	}
	return result, len(records) - len(result)
}

// DedupTrades drops trades whose trade_id was already seen.
// The first occurrence wins.
func DedupTrades(trades []*domain.Trade) ([]*domain.Trade, int) {
	seen := make(map[string]struct{}, len(trades))
	result := make([]*domain.Trade, 0, len(trades))
	for _, t := range trades {
		if _, ok := seen[t.TradeID]; ok {
			continue
		}
		seen[t.TradeID] = struct{}{}
		result = append(result, t)
	}
	return result, len(trades) - len(result)
}

// DedupCandles drops exact duplicate candles.
// timestamp_bucket is a primary key: two candles with the same bucket and
// different prices return ErrCandleKeyConflict.
func DedupCandles(candles []*domain.Candle) ([]*domain.Candle, int, error) {
	seen := make(map[int64]*domain.Candle, len(candles))
	result := make([]*domain.Candle, 0, len(candles))
	for _, c := range candles {
		if prev, ok := seen[c.TimestampBucket]; ok {
			if !prev.SameOHLC(c) {
				return nil, 0, fmt.Errorf("%w: %d", ErrCandleKeyConflict, c.TimestampBucket)
			}
			continue
		}
		seen[c.TimestampBucket] = c
		result = append(result, c)
	}
	return result, len(candles) - len(result), nil
}

// UnionFunding merges freshly fetched records with stored ones by timestamp.
// Fresh records replace stored records with the same key. Result is ordered.
func UnionFunding(fresh, stored []*domain.FundingRecord) []*domain.FundingRecord {
	byKey := make(map[int64]*domain.FundingRecord, len(fresh)+len(stored))
	for _, r := range stored {
		byKey[r.Timestamp] = r
	}
	for _, r := range fresh {
		byKey[r.Timestamp] = r
	}

	result := make([]*domain.FundingRecord, 0, len(byKey))
	for _, r := range byKey {
		result = append(result, r)
	}
	SortFunding(result)
	return result
}

// UnionCandles merges freshly fetched candles with stored ones by
// timestamp_bucket. Fresh candles replace stored ones. Result is ordered.
func UnionCandles(fresh, stored []*domain.Candle) []*domain.Candle {
	byKey := make(map[int64]*domain.Candle, len(fresh)+len(stored))
	for _, c := range stored {
		byKey[c.TimestampBucket] = c
	}
	for _, c := range fresh {
		byKey[c.TimestampBucket] = c
	}

	result := make([]*domain.Candle, 0, len(byKey))
	for _, c := range byKey {
		result = append(result, c)
	}
	SortCandles(result)
	return result
}

// UnionTrades merges freshly fetched trades with stored ones by trade_id.
// Fresh trades replace stored ones. Result is ordered.
func UnionTrades(fresh, stored []*domain.Trade) []*domain.Trade {
	byKey := make(map[string]*domain.Trade, len(fresh)+len(stored))
	for _, t := range stored {
		byKey[t.TradeID] = t
	}
	for _, t := range fresh {
		byKey[t.TradeID] = t
	}

	result := make([]*domain.Trade, 0, len(byKey))
	for _, t := range byKey {
		result = append(result, t)
	}
	SortTrades(result)
	return result
}
