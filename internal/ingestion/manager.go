package ingestion

import (
	"context"
	"fmt"
	"io"
	"log"

	"github.com/crynom/derive/internal/domain"
	"github.com/crynom/derive/internal/normalization"
	"github.com/crynom/derive/internal/storage"
)

// Manager moves the three raw feeds between the data source and the raw
// stores. It enforces deterministic ordering and key-based deduplication.
type Manager struct {
	fundingSource FundingSource
	candleSource  CandleSource
	tradeSource   TradeSource

	fundingStore storage.FundingStore
	candleStore  storage.CandleStore
	tradeStore   storage.TradeStore

	logger *log.Logger
}

// ManagerOptions contains configuration for creating a Manager.
type ManagerOptions struct {
	FundingSource FundingSource
	CandleSource  CandleSource
	TradeSource   TradeSource

	// Raw stores are optional; without them nothing is unioned or persisted.
	FundingStore storage.FundingStore
	CandleStore  storage.CandleStore
	TradeStore   storage.TradeStore

	Logger *log.Logger
}

// NewManager creates a new ingestion manager with the provided sources and stores.
func NewManager(opts ManagerOptions) *Manager {
	logger := opts.Logger
	if logger == nil {
		logger = log.New(io.Discard, "", 0)
	}
	return &Manager{
		fundingSource: opts.FundingSource,
		candleSource:  opts.CandleSource,
		tradeSource:   opts.TradeSource,
		fundingStore:  opts.FundingStore,
		candleStore:   opts.CandleStore,
		tradeStore:    opts.TradeStore,
		logger:        logger,
	}
}

// Batch holds typed, deduplicated and ordered feeds.
type Batch struct {
	Funding []*domain.FundingRecord
	Candles []*domain.Candle
	Trades  []*domain.Trade
}

// CollectStats counts what one Collect call saw.
type CollectStats struct {
	FundingFetched int
	CandlesFetched int
	TradesFetched  int

	FundingDuplicates int
	CandleDuplicates  int
	TradeDuplicates   int

	CandleWindowStart int64 // epoch seconds; zero when no candles were requested
	CandleWindowEnd   int64
}

// Collect fetches all three feeds, parses and deduplicates them.
// The candle window spans the fetched funding timestamps; with no funding,
// candles are not requested. A SchemaMismatch or candle key conflict aborts
// the collection.
func (m *Manager) Collect(ctx context.Context) (*Batch, *CollectStats, error) {
	stats := &CollectStats{}
	batch := &Batch{}

	if m.fundingSource != nil {
		raw, err := m.fundingSource.FetchFunding(ctx)
		if err != nil {
			return nil, nil, fmt.Errorf("fetch funding: %w", err)
		}
		stats.FundingFetched = len(raw)

		records, err := normalization.ParseFunding(raw)
		if err != nil {
			return nil, nil, err
		}
		batch.Funding, stats.FundingDuplicates = normalization.DedupFunding(records)
		normalization.SortFunding(batch.Funding)
	}
	m.logger.Printf("fetched %d funding records (%d duplicates)", stats.FundingFetched, stats.FundingDuplicates)

	if m.candleSource != nil && len(batch.Funding) > 0 {
		start, end := FundingWindow(batch.Funding)
		stats.CandleWindowStart, stats.CandleWindowEnd = start, end

		raw, err := m.candleSource.FetchCandles(ctx, start, end)
		if err != nil {
			return nil, nil, fmt.Errorf("fetch candles: %w", err)
		}
		stats.CandlesFetched = len(raw)

		candles, err := normalization.ParseCandles(raw)
		if err != nil {
			return nil, nil, err
		}
		batch.Candles, stats.CandleDuplicates, err = normalization.DedupCandles(candles)
		if err != nil {
			return nil, nil, err
		}
		normalization.SortCandles(batch.Candles)
		m.logger.Printf("fetched %d candles for [%d, %d] (%d duplicates)",
			stats.CandlesFetched, start, end, stats.CandleDuplicates)
	}

	if m.tradeSource != nil {
		raw, err := m.tradeSource.FetchTrades(ctx)
		if err != nil {
			return nil, nil, fmt.Errorf("fetch trades: %w", err)
		}
		stats.TradesFetched = len(raw)

		trades, err := normalization.ParseTrades(raw)
		if err != nil {
			return nil, nil, err
		}
		batch.Trades, stats.TradeDuplicates = normalization.DedupTrades(trades)
		normalization.SortTrades(batch.Trades)
	}
	m.logger.Printf("fetched %d trades (%d duplicates)", stats.TradesFetched, stats.TradeDuplicates)

	return batch, stats, nil
}

// WithStored unions a fresh batch with the raw stores. On a key collision
// the fresh row wins. The fresh batch is not modified.
func (m *Manager) WithStored(ctx context.Context, fresh *Batch) (*Batch, error) {
	combined := &Batch{
		Funding: fresh.Funding,
		Candles: fresh.Candles,
		Trades:  fresh.Trades,
	}

	if m.fundingStore != nil {
		stored, err := m.fundingStore.GetAll(ctx)
		if err != nil {
			return nil, fmt.Errorf("load stored funding: %w", err)
		}
		combined.Funding = normalization.UnionFunding(fresh.Funding, stored)
	}
	if m.candleStore != nil {
		stored, err := m.candleStore.GetAll(ctx)
		if err != nil {
			return nil, fmt.Errorf("load stored candles: %w", err)
		}
		combined.Candles = normalization.UnionCandles(fresh.Candles, stored)
	}
	if m.tradeStore != nil {
		stored, err := m.tradeStore.GetAll(ctx)
		if err != nil {
			return nil, fmt.Errorf("load stored trades: %w", err)
		}
		combined.Trades = normalization.UnionTrades(fresh.Trades, stored)
	}

	return combined, nil
}

// Persist upserts a fresh batch into the raw stores.
func (m *Manager) Persist(ctx context.Context, fresh *Batch) error {
	if m.fundingStore != nil {
		if err := m.fundingStore.Upsert(ctx, fresh.Funding); err != nil {
			return fmt.Errorf("store funding: %w", err)
		}
	}
	if m.candleStore != nil {
		if err := m.candleStore.Upsert(ctx, fresh.Candles); err != nil {
			return fmt.Errorf("store candles: %w", err)
		}
	}
	if m.tradeStore != nil {
		if err := m.tradeStore.Upsert(ctx, fresh.Trades); err != nil {
			return fmt.Errorf("store trades: %w", err)
		}
	}
	return nil
}

// FundingWindow returns [min, max] of the funding timestamps in epoch seconds.
// records must be non-empty.
func FundingWindow(records []*domain.FundingRecord) (int64, int64) {
	lo, hi := records[0].Timestamp, records[0].Timestamp
	for _, r := range records[1:] {
		if r.Timestamp < lo {
			lo = r.Timestamp
		}
		if r.Timestamp > hi {
			hi = r.Timestamp
		}
	}
	return lo / 1000, hi / 1000
}
