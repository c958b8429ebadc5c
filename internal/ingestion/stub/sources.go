package stub

import (
	"context"

	"github.com/crynom/derive/internal/domain"
)

// Source returns fixed in-memory raw records for testing and dry runs.
// Satisfies the ingestion source interfaces.
type Source struct {
	Funding []domain.RawRecord
	Candles []domain.RawRecord
	Trades  []domain.RawRecord

	// Err, when set, is returned by every fetch.
	Err error

	// CandleWindows records the [start, end] of every FetchCandles call.
	CandleWindows [][2]int64
}

// FetchFunding returns copies of the funding records.
func (s *Source) FetchFunding(_ context.Context) ([]domain.RawRecord, error) {
	if s.Err != nil {
		return nil, s.Err
	}
	return copyRecords(s.Funding), nil
}

// FetchCandles returns candles whose timestamp_bucket is within [startSec, endSec].
// Records without a numeric timestamp_bucket are always returned so that
// malformed input reaches the parser.
func (s *Source) FetchCandles(_ context.Context, startSec, endSec int64) ([]domain.RawRecord, error) {
	s.CandleWindows = append(s.CandleWindows, [2]int64{startSec, endSec})
	if s.Err != nil {
		return nil, s.Err
	}

	var result []domain.RawRecord
	for _, r := range s.Candles {
		if ts, ok := bucketOf(r); ok && (ts < startSec || ts > endSec) {
			continue
		}
		result = append(result, copyRecord(r))
	}
	return result, nil
}

// FetchTrades returns copies of the trades.
func (s *Source) FetchTrades(_ context.Context) ([]domain.RawRecord, error) {
	if s.Err != nil {
		return nil, s.Err
	}
	return copyRecords(s.Trades), nil
}

func bucketOf(r domain.RawRecord) (int64, bool) {
	switch v := r[domain.FieldTimestampBucket].(type) {
	case int:
		return int64(v), true
	case int64:
		return v, true
	case float64:
		return int64(v), true
	}
	return 0, false
}

func copyRecords(records []domain.RawRecord) []domain.RawRecord {
	result := make([]domain.RawRecord, len(records))
	for i, r := range records {
		result[i] = copyRecord(r)
	}
	return result
}

func copyRecord(r domain.RawRecord) domain.RawRecord {
	c := make(domain.RawRecord, len(r))
	for k, v := range r {
		c[k] = v
	}
	return c
}
