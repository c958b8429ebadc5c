package domain

// DefaultCandlePeriod is the candle width requested from the spot feed (seconds).
const DefaultCandlePeriod = 900

// Candle is an OHLC summary of one fixed-width spot price bucket.
// Corresponds to candles table in PostgreSQL.
type Candle struct {
	TimestampBucket int64 // bucket time, Unix seconds (primary key)
	OpenPrice       float64
	HighPrice       float64
	LowPrice        float64
	ClosePrice      float64
}

// SameOHLC reports whether two candles carry identical prices.
func (c *Candle) SameOHLC(o *Candle) bool {
	return c.OpenPrice == o.OpenPrice &&
		c.HighPrice == o.HighPrice &&
		c.LowPrice == o.LowPrice &&
		c.ClosePrice == o.ClosePrice
}
