// Package history builds the merged funding/candle/trade history table and
// reconciles it with previously persisted history.
//
// Everything here is pure: callers load prior history and persist the
// result.
package history

import (
	"errors"
	"fmt"

	"github.com/crynom/derive/internal/domain"
	"github.com/crynom/derive/internal/normalization"
)

// ErrDuplicateKey is returned when a keyed input holds the same key twice.
var ErrDuplicateKey = errors.New("duplicate key in merge input")

// Options configures a Merger.
type Options struct {
	// DropEmptyAggregates removes freshly computed rows that have no
	// trades in their bucket before reconciliation.
	DropEmptyAggregates bool
}

// Merger implements the history merge: join, bucket, aggregate, reconcile.
type Merger struct {
	dropEmptyAggregates bool
}

// NewMerger creates a new Merger.
func NewMerger(opts Options) *Merger {
	return &Merger{dropEmptyAggregates: opts.DropEmptyAggregates}
}

// Input holds the deduplicated feeds for one run.
type Input struct {
	Funding []*domain.FundingRecord
	Candles []*domain.Candle
	Trades  []*domain.Trade
}

// Result holds the merge output.
type Result struct {
	Rows          []*domain.HistoryRow       // reconciled history, ordered
	Fresh         []*domain.HistoryRow       // rows computed this run, after filtering
	Aggregates    []*domain.AggregatedBucket // per-bucket trade statistics
	DroppedTrades int                        // trades at or after the last grid point
	TradeCutoff   int64                      // last grid point; zero without a grid
	FilteredRows  int                        // fresh rows removed by DropEmptyAggregates
	Superseded    int                        // prior rows replaced by fresh rows
}

// Merge computes this run's history rows and reconciles them with prior.
// Steps:
//  1. Grid timestamp per funding record (ms / 1000)
//  2. Left join funding with candles
//  3. Build the grid from joined rows
//  4. Bucket and aggregate trades against the grid
//  5. Left join aggregates
//  6. Attach datetime
//  7. Reconcile with prior history (fresh wins)
//
// DropEmptyAggregates only ever removes fresh rows, so it is applied to
// them before step 7. Prior rows without trades stay in the table.
//
// With no funding records there is no grid; prior history is returned as is.
func (m *Merger) Merge(in Input, prior []*domain.HistoryRow) (*Result, error) {
	result := &Result{}

	if len(in.Funding) == 0 {
		result.Rows, _ = Reconcile(nil, prior)
		result.DroppedTrades = len(in.Trades)
		return result, nil
	}

	rows, err := JoinFundingCandles(in.Funding, in.Candles)
	if err != nil {
		return nil, fmt.Errorf("join funding and candles: %w", err)
	}

	grid, err := GridFromRows(rows)
	if err != nil {
		return nil, fmt.Errorf("build grid: %w", err)
	}

	aggregates, dropped := normalization.GenerateTradeBuckets(in.Trades, grid)
	result.Aggregates = aggregates
	result.DroppedTrades = dropped
	result.TradeCutoff, _ = grid.Last()

	JoinAggregates(rows, aggregates)
	AttachDatetime(rows)

	if m.dropEmptyAggregates {
		rows, result.FilteredRows = DropEmptyAggregates(rows)
	}
	result.Fresh = rows

	result.Rows, result.Superseded = Reconcile(rows, prior)
	return result, nil
}
