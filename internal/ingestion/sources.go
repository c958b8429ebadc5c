package ingestion

import (
	"context"

	"github.com/crynom/derive/internal/domain"
)

// FundingSource provides raw funding rate snapshots.
type FundingSource interface {
	// FetchFunding returns the funding history as delivered by the source.
	// Records may be unordered and may repeat.
	FetchFunding(ctx context.Context) ([]domain.RawRecord, error)
}

// CandleSource provides raw price candles.
type CandleSource interface {
	// FetchCandles returns candles whose timestamp_bucket lies in
	// [startSec, endSec] (epoch seconds).
	FetchCandles(ctx context.Context, startSec, endSec int64) ([]domain.RawRecord, error)
}

// TradeSource provides raw trade executions.
type TradeSource interface {
	// FetchTrades returns the most recent trades the source exposes.
	FetchTrades(ctx context.Context) ([]domain.RawRecord, error)
}
