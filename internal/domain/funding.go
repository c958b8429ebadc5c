package domain

// FundingRecord is one funding-rate snapshot of the perpetual market.
// Corresponds to funding_rates table in PostgreSQL.
type FundingRecord struct {
	Timestamp   int64   // sample time, Unix milliseconds (primary key)
	FundingRate float64 // rate paid between longs and shorts for the period
}

// GridTimestamp returns the sample time in whole seconds.
// This is the value every other feed is aligned on.
func (f *FundingRecord) GridTimestamp() int64 {
	return f.Timestamp / 1000
}
