// Package orchestrator runs one collection batch end to end.
// It coordinates: fetch → normalize → merge → persist → export
package orchestrator

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/crynom/derive/internal/domain"
	"github.com/crynom/derive/internal/history"
	"github.com/crynom/derive/internal/ingestion"
	"github.com/crynom/derive/internal/observability"
	"github.com/crynom/derive/internal/reporting"
	"github.com/crynom/derive/internal/storage"
)

// ErrRawStoreRequired is returned by Run when a feed has a source but no raw
// store. Prior history is recomputed from the raw tables every run, so a
// feed that is not persisted would erase its own earlier statistics once the
// exchange stops returning them.
var ErrRawStoreRequired = errors.New("raw store required for configured source")

// Orchestrator coordinates a single, run-to-completion collection batch.
// Nothing is written until every computation has succeeded.
// Concurrent runs against the same stores are not supported.
type Orchestrator struct {
	rawStoreErr error

	manager *ingestion.Manager
	merger  *history.Merger

	historyStore   storage.HistoryStore
	aggregateStore storage.AggregateStore
	historyTable   string
	aggregateTable string

	csvPath string
	metrics *observability.Metrics
	logger  *log.Logger
	now     func() time.Time
}

// Options for creating Orchestrator.
type Options struct {
	// Sources
	FundingSource ingestion.FundingSource
	CandleSource  ingestion.CandleSource
	TradeSource   ingestion.TradeSource

	// Raw stores, required for every configured source
	FundingStore storage.FundingStore
	CandleStore  storage.CandleStore
	TradeStore   storage.TradeStore

	// Required table stores and their table names
	HistoryStore   storage.HistoryStore
	AggregateStore storage.AggregateStore
	HistoryTable   string
	AggregateTable string

	DropEmptyAggregates bool
	CSVPath             string // empty disables export

	Metrics *observability.Metrics // nil disables metrics
	Logger  *log.Logger            // nil discards
	Now     func() time.Time       // nil uses time.Now
}

// New creates a new Orchestrator.
func New(opts Options) *Orchestrator {
	logger := opts.Logger
	if logger == nil {
		logger = log.New(io.Discard, "", 0)
	}
	now := opts.Now
	if now == nil {
		now = time.Now
	}

	return &Orchestrator{
		manager: ingestion.NewManager(ingestion.ManagerOptions{
			FundingSource: opts.FundingSource,
			CandleSource:  opts.CandleSource,
			TradeSource:   opts.TradeSource,
			FundingStore:  opts.FundingStore,
			CandleStore:   opts.CandleStore,
			TradeStore:    opts.TradeStore,
			Logger:        logger,
		}),
		merger:         history.NewMerger(history.Options{DropEmptyAggregates: opts.DropEmptyAggregates}),
		historyStore:   opts.HistoryStore,
		aggregateStore: opts.AggregateStore,
		historyTable:   opts.HistoryTable,
		aggregateTable: opts.AggregateTable,
		csvPath:        opts.CSVPath,
		metrics:        opts.Metrics,
		logger:         logger,
		now:            now,
		rawStoreErr:    checkRawStores(opts),
	}
}

// RunResult contains results from one run.
type RunResult struct {
	RunID uuid.UUID

	FundingFetched int
	CandlesFetched int
	TradesFetched  int
	Duplicates     int // dropped across all three feeds

	DroppedTrades int   // trades with no grid point after them
	TradeCutoff   int64 // last grid point; later trades wait for the next funding sample
	FreshRows     int   // rows computed this run, after filtering
	FilteredRows  int   // fresh rows dropped for having no trades
	Superseded    int   // prior rows replaced by fresh rows
	Aggregates    int
	HistoryRows   int // rows in the saved history table

	History []*domain.HistoryRow // the saved history table
	CSVPath string               // set when the table was exported

	Duration time.Duration
}

// Run executes one batch.
// Phases:
//  1. Collect funding, candles (over the funding window) and trades
//  2. Union with stored raw records (fresh wins)
//  3. Load prior history (absent table means empty)
//  4. Merge
//  5. Persist raw records, aggregates, then history
//  6. Export CSV
//
// A SchemaMismatch or any store failure before phase 5 leaves every store untouched.
func (o *Orchestrator) Run(ctx context.Context) (_ *RunResult, err error) {
	start := o.now()
	result := &RunResult{RunID: uuid.New()}

	defer func() {
		result.Duration = o.now().Sub(start)
		if o.metrics == nil {
			return
		}
		status := observability.StatusSuccess
		if err != nil {
			status = observability.StatusFailed
		}
		o.metrics.RecordRun(status, result.Duration)
	}()

	o.log("Run %s started", result.RunID)
	if o.rawStoreErr != nil {
		return nil, o.rawStoreErr
	}

	// Phase 1: Collect
	o.log("Phase 1: Collecting feeds...")
	fresh, stats, err := o.manager.Collect(ctx)
	if err != nil {
		return nil, fmt.Errorf("phase 1 (collect) failed: %w", err)
	}
	result.FundingFetched = stats.FundingFetched
	result.CandlesFetched = stats.CandlesFetched
	result.TradesFetched = stats.TradesFetched
	result.Duplicates = stats.FundingDuplicates + stats.CandleDuplicates + stats.TradeDuplicates
	if o.metrics != nil {
		o.metrics.RecordFetched(observability.FeedFunding, stats.FundingFetched, stats.FundingDuplicates)
		o.metrics.RecordFetched(observability.FeedCandles, stats.CandlesFetched, stats.CandleDuplicates)
		o.metrics.RecordFetched(observability.FeedTrades, stats.TradesFetched, stats.TradeDuplicates)
	}
	o.log("  Fetched %d funding, %d candles, %d trades (%d duplicates)",
		result.FundingFetched, result.CandlesFetched, result.TradesFetched, result.Duplicates)

	// Phase 2: Union with stored raw records
	o.log("Phase 2: Loading stored raw records...")
	combined, err := o.manager.WithStored(ctx, fresh)
	if err != nil {
		return nil, fmt.Errorf("phase 2 (load raw) failed: %w", err)
	}
	o.log("  Merging %d funding, %d candles, %d trades",
		len(combined.Funding), len(combined.Candles), len(combined.Trades))

	// Phase 3: Prior history
	o.log("Phase 3: Loading prior history %q...", o.historyTable)
	var prior []*domain.HistoryRow
	err = o.timed(o.historyTable, "load", func() error {
		var loadErr error
		prior, loadErr = o.historyStore.Load(ctx, o.historyTable)
		return loadErr
	})
	switch {
	case errors.Is(err, storage.ErrNotFound):
		o.log("  Table absent, starting empty")
	case err != nil:
		return nil, fmt.Errorf("phase 3 (load history) failed: %w", err)
	default:
		o.log("  Loaded %d rows", len(prior))
	}

	// Phase 4: Merge
	o.log("Phase 4: Merging history...")
	merged, err := o.merger.Merge(history.Input{
		Funding: combined.Funding,
		Candles: combined.Candles,
		Trades:  combined.Trades,
	}, prior)
	if err != nil {
		return nil, fmt.Errorf("phase 4 (merge) failed: %w", err)
	}
	result.DroppedTrades = merged.DroppedTrades
	result.TradeCutoff = merged.TradeCutoff
	result.FreshRows = len(merged.Fresh)
	result.FilteredRows = merged.FilteredRows
	result.Superseded = merged.Superseded
	result.Aggregates = len(merged.Aggregates)
	result.HistoryRows = len(merged.Rows)
	result.History = merged.Rows
	o.log("  %d fresh rows (%d filtered, %d superseded), %d trades unbucketed at or after %d",
		result.FreshRows, result.FilteredRows, result.Superseded, result.DroppedTrades, result.TradeCutoff)

	// Phase 5: Persist
	o.log("Phase 5: Persisting...")
	if err := o.manager.Persist(ctx, fresh); err != nil {
		return nil, fmt.Errorf("phase 5 (persist raw) failed: %w", err)
	}
	err = o.timed(o.aggregateTable, "save", func() error {
		return o.aggregateStore.Save(ctx, o.aggregateTable, merged.Aggregates)
	})
	if err != nil {
		return nil, fmt.Errorf("phase 5 (save aggregates) failed: %w", err)
	}
	err = o.timed(o.historyTable, "save", func() error {
		return o.historyStore.Save(ctx, o.historyTable, merged.Rows)
	})
	if err != nil {
		return nil, fmt.Errorf("phase 5 (save history) failed: %w", err)
	}
	if o.metrics != nil {
		o.metrics.RecordMerge(result.DroppedTrades, result.FilteredRows, result.Superseded, result.HistoryRows)
	}
	o.log("  Saved %d history rows, %d aggregates", result.HistoryRows, result.Aggregates)

	// Phase 6: Export
	if o.csvPath != "" {
		o.log("Phase 6: Exporting CSV to %s...", o.csvPath)
		if err := ExportCSV(o.csvPath, merged.Rows); err != nil {
			return nil, fmt.Errorf("phase 6 (export) failed: %w", err)
		}
		result.CSVPath = o.csvPath
	}

	o.log("Run %s completed: %d history rows", result.RunID, result.HistoryRows)
	return result, nil
}

func checkRawStores(opts Options) error {
	var missing []string
	if opts.FundingSource != nil && opts.FundingStore == nil {
		missing = append(missing, "funding")
	}
	if opts.CandleSource != nil && opts.CandleStore == nil {
		missing = append(missing, "candles")
	}
	if opts.TradeSource != nil && opts.TradeStore == nil {
		missing = append(missing, "trades")
	}
	if len(missing) == 0 {
		return nil
	}
	return fmt.Errorf("%w: %s", ErrRawStoreRequired, strings.Join(missing, ", "))
}

// ExportCSV writes rows to path. The file is replaced only once fully written.
func ExportCSV(path string, rows []*domain.HistoryRow) error {
	tmp, err := os.CreateTemp(filepath.Dir(path), filepath.Base(path)+".*.tmp")
	if err != nil {
		return fmt.Errorf("create temp file: %w", err)
	}
	defer os.Remove(tmp.Name())

	if err := reporting.WriteHistoryCSV(tmp, rows); err != nil {
		tmp.Close()
		return fmt.Errorf("write csv: %w", err)
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("close csv: %w", err)
	}
	if err := os.Rename(tmp.Name(), path); err != nil {
		return fmt.Errorf("rename csv: %w", err)
	}
	return nil
}

// timed runs a store call and records its duration and outcome.
// ErrNotFound is not counted as a failure.
func (o *Orchestrator) timed(table, op string, fn func() error) error {
	start := o.now()
	err := fn()
	if o.metrics != nil {
		recorded := err
		if errors.Is(err, storage.ErrNotFound) {
			recorded = nil
		}
		o.metrics.RecordStoreOp(table, op, o.now().Sub(start), recorded)
	}
	return err
}

func (o *Orchestrator) log(format string, args ...interface{}) {
	o.logger.Printf("[orchestrator] "+format, args...)
}
