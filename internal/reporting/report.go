package reporting

import (
	"time"

	"github.com/crynom/derive/internal/domain"
)

// Summary describes one history table, optionally with the run that wrote it.
type Summary struct {
	Table       string
	GeneratedAt time.Time
	Coverage    Coverage
	Run         *RunSection // nil when summarizing a stored table
}

// Coverage counts how much of the grid each feed filled.
type Coverage struct {
	Rows           int
	RowsWithCandle int
	RowsWithTrades int
	Trades         int   // sum of trade counts over all rows
	FirstTimestamp int64 // Unix seconds, 0 if empty
	LastTimestamp  int64 // Unix seconds, 0 if empty
	MinFunding     float64
	MaxFunding     float64
	MeanFunding    float64
}

// RunSection holds counters from a single collection run.
type RunSection struct {
	RunID          string
	FundingFetched int
	CandlesFetched int
	TradesFetched  int
	Duplicates     int
	Unbucketed     int
	TradeCutoff    int64 // zero when the run had no grid
	Filtered       int
	Superseded     int
	Duration       time.Duration
}

// Summarize computes coverage for rows. Rows must be sorted by timestamp.
func Summarize(table string, rows []*domain.HistoryRow, now time.Time) *Summary {
	s := &Summary{Table: table, GeneratedAt: now.UTC()}
	if len(rows) == 0 {
		return s
	}

	cov := &s.Coverage
	cov.Rows = len(rows)
	cov.FirstTimestamp = rows[0].Timestamp
	cov.LastTimestamp = rows[len(rows)-1].Timestamp
	cov.MinFunding = rows[0].FundingRate
	cov.MaxFunding = rows[0].FundingRate

	var sum float64
	for _, r := range rows {
		sum += r.FundingRate
		cov.MinFunding = min(cov.MinFunding, r.FundingRate)
		cov.MaxFunding = max(cov.MaxFunding, r.FundingRate)
		if r.Candle != nil {
			cov.RowsWithCandle++
		}
		if r.Trades != nil {
			cov.RowsWithTrades++
			cov.Trades += r.Trades.TradeCount
		}
	}
	cov.MeanFunding = sum / float64(len(rows))

	return s
}
