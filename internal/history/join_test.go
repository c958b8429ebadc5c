package history

import (
	"errors"
	"testing"
	"time"

	"github.com/crynom/derive/internal/domain"
)

func TestJoinFundingCandles_LeftJoin(t *testing.T) {
	funding := []*domain.FundingRecord{
		{Timestamp: 1_800_000, FundingRate: 0.2},
		{Timestamp: 900_000, FundingRate: 0.1},
		{Timestamp: 2_700_000, FundingRate: 0.3},
	}
	candles := []*domain.Candle{
		{TimestampBucket: 900, ClosePrice: 10},
		{TimestampBucket: 2700, ClosePrice: 30},
		{TimestampBucket: 3600, ClosePrice: 40}, // no funding row
	}

	rows, err := JoinFundingCandles(funding, candles)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if len(rows) != 3 {
		t.Fatalf("expected 3 rows (funding drives the join), got %d", len(rows))
	}
	if rows[0].Timestamp != 900 || rows[1].Timestamp != 1800 || rows[2].Timestamp != 2700 {
		t.Errorf("rows not in grid order: %d %d %d", rows[0].Timestamp, rows[1].Timestamp, rows[2].Timestamp)
	}
	if rows[0].Candle == nil || rows[0].Candle.ClosePrice != 10 {
		t.Errorf("row 900: expected candle close 10, got %+v", rows[0].Candle)
	}
	if rows[1].Candle != nil {
		t.Errorf("row 1800: expected nil candle, got %+v", rows[1].Candle)
	}
	if rows[1].FundingRate != 0.2 {
		t.Errorf("row 1800: expected funding 0.2, got %f", rows[1].FundingRate)
	}
}

func TestJoinFundingCandles_DuplicateCandle(t *testing.T) {
	funding := []*domain.FundingRecord{{Timestamp: 900_000}}
	candles := []*domain.Candle{{TimestampBucket: 900}, {TimestampBucket: 900}}

	_, err := JoinFundingCandles(funding, candles)
	if !errors.Is(err, ErrDuplicateKey) {
		t.Errorf("expected ErrDuplicateKey, got %v", err)
	}
}

func TestJoinFundingCandles_SameSecondLaterSampleWins(t *testing.T) {
	funding := []*domain.FundingRecord{
		{Timestamp: 900_700, FundingRate: 0.7},
		{Timestamp: 900_100, FundingRate: 0.1},
	}

	rows, err := JoinFundingCandles(funding, nil)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(rows) != 1 || rows[0].FundingRate != 0.7 {
		t.Errorf("expected one row with rate 0.7, got %+v", rows)
	}
}

func TestJoinAggregates(t *testing.T) {
	rows := []*domain.HistoryRow{{Timestamp: 900}, {Timestamp: 1800}, {Timestamp: 2700}}
	buckets := []*domain.AggregatedBucket{
		{Bucket: 900, TradeCount: 1},
		{Bucket: 2700, TradeCount: 4},
	}

	matched := JoinAggregates(rows, buckets)

	if matched != 2 {
		t.Errorf("expected 2 matches, got %d", matched)
	}
	if rows[0].Trades == nil || rows[0].Trades.TradeCount != 1 {
		t.Errorf("row 900: unexpected trades %+v", rows[0].Trades)
	}
	if rows[1].Trades != nil {
		t.Errorf("row 1800: expected nil trades (no activity), got %+v", rows[1].Trades)
	}
	if rows[2].Trades == nil || rows[2].Trades.TradeCount != 4 {
		t.Errorf("row 2700: unexpected trades %+v", rows[2].Trades)
	}
}

func TestAttachDatetime(t *testing.T) {
	rows := []*domain.HistoryRow{{Timestamp: 1700000100}}

	AttachDatetime(rows)

	want := time.Date(2023, 11, 14, 22, 15, 0, 0, time.UTC)
	if !rows[0].Datetime.Equal(want) {
		t.Errorf("expected %s, got %s", want, rows[0].Datetime)
	}
	if rows[0].Datetime.Location() != time.UTC {
		t.Errorf("expected UTC location, got %s", rows[0].Datetime.Location())
	}
}

func TestGridFromRows(t *testing.T) {
	grid, err := GridFromRows([]*domain.HistoryRow{{Timestamp: 1800}, {Timestamp: 900}})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(grid) != 2 || grid[0] != 900 || grid[1] != 1800 {
		t.Errorf("unexpected grid %v", grid)
	}
}
