package normalization

import (
	"sort"

	"github.com/crynom/derive/internal/domain"
	"github.com/crynom/derive/internal/lookup"
)

// BucketedTrade is a trade tagged with the grid bucket it closes into.
type BucketedTrade struct {
	Bucket int64
	Trade  *domain.Trade
}

// AssignBuckets tags every trade with its grid bucket.
// Trades at or after the last grid point have no bucket and are dropped;
// the number dropped is returned.
func AssignBuckets(trades []*domain.Trade, grid lookup.Grid) ([]BucketedTrade, int) {
	tagged := make([]BucketedTrade, 0, len(trades))
	dropped := 0
	for _, t := range trades {
		bucket, ok := grid.Next(t.TimestampSeconds())
		if !ok {
			dropped++
			continue
		}
		tagged = append(tagged, BucketedTrade{Bucket: bucket, Trade: t})
	}
	return tagged, dropped
}

// AggregateTrades summarizes tagged trades into one row per bucket.
// Buckets with no trades are absent from the result. Result is ordered by bucket ASC.
//
// Per bucket:
//   - trade_count = COUNT(*)
//   - min_price / max_price = MIN / MAX(trade_price)
//   - min_vol / max_vol = SUM(trade_amount) WHERE trade_price = min_price / max_price
//   - last_price = AVG(trade_price), last_vol = SUM(trade_amount)
//     WHERE timestamp = MAX(timestamp)
//   - avg_index_price = AVG(index_price)
//   - pnl_buy / pnl_sell = SUM(realized_pnl) WHERE direction = buy / sell
func AggregateTrades(tagged []BucketedTrade) []*domain.AggregatedBucket {
	if len(tagged) == 0 {
		return nil
	}

	groups := make(map[int64][]*domain.Trade)
	for _, bt := range tagged {
		groups[bt.Bucket] = append(groups[bt.Bucket], bt.Trade)
	}

	result := make([]*domain.AggregatedBucket, 0, len(groups))
	for bucket, trades := range groups {
		result = append(result, aggregateBucket(bucket, trades))
	}

	sort.Slice(result, func(i, j int) bool {
		return result[i].Bucket < result[j].Bucket
	})
	return result
}

// GenerateTradeBuckets assigns buckets and aggregates in one call.
// Returns the aggregates and the number of trades without a bucket.
func GenerateTradeBuckets(trades []*domain.Trade, grid lookup.Grid) ([]*domain.AggregatedBucket, int) {
	tagged, dropped := AssignBuckets(trades, grid)
	return AggregateTrades(tagged), dropped
}

// aggregateBucket computes statistics for one non-empty group.
func aggregateBucket(bucket int64, trades []*domain.Trade) *domain.AggregatedBucket {
	first := trades[0]
	agg := &domain.AggregatedBucket{
		Bucket:     bucket,
		TradeCount: len(trades),
		MinPrice:   first.TradePrice,
		MaxPrice:   first.TradePrice,
	}
	lastTs := first.Timestamp

	var indexSum float64
	for _, t := range trades {
		if t.TradePrice < agg.MinPrice {
			agg.MinPrice = t.TradePrice
		}
		if t.TradePrice > agg.MaxPrice {
			agg.MaxPrice = t.TradePrice
		}
		if t.Timestamp > lastTs {
			lastTs = t.Timestamp
		}
		indexSum += t.IndexPrice

		switch t.Direction {
		case domain.DirectionBuy:
			agg.PnlBuy += t.RealizedPnl
		case domain.DirectionSell:
			agg.PnlSell += t.RealizedPnl
		}
	}
	agg.AvgIndexPrice = indexSum / float64(len(trades))

	// Second pass: tie sets depend on the extremes found above
	var lastPriceSum float64
	var lastCount int
	for _, t := range trades {
		if t.TradePrice == agg.MinPrice {
			agg.MinVol += t.TradeAmount
		}
		if t.TradePrice == agg.MaxPrice {
			agg.MaxVol += t.TradeAmount
		}
		if t.Timestamp == lastTs {
			lastPriceSum += t.TradePrice
			lastCount++
			agg.LastVol += t.TradeAmount
		}
	}
	agg.LastPrice = lastPriceSum / float64(lastCount)

	return agg
}
