package domain

// Trade is a single settled execution on the perpetual market.
// Corresponds to trades table in PostgreSQL.
type Trade struct {
	TradeID     string    // exchange trade id (primary key)
	Timestamp   int64     // execution time, Unix milliseconds
	TradePrice  float64   // execution price
	TradeAmount float64   // executed size
	IndexPrice  float64   // index price at execution
	RealizedPnl float64   // pnl booked by the execution
	Direction   Direction // taker side
}

// TimestampSeconds returns the execution time truncated to whole seconds.
func (t *Trade) TimestampSeconds() int64 {
	return t.Timestamp / 1000
}
