package reporting

import (
	"bytes"
	"strings"
	"testing"
	"time"

	"github.com/crynom/derive/internal/domain"
)

func testRows() []*domain.HistoryRow {
	return []*domain.HistoryRow{
		{
			Timestamp:   1700000100,
			FundingRate: 0.0001,
			Candle:      &domain.Candle{TimestampBucket: 1700000100, OpenPrice: 100, HighPrice: 110, LowPrice: 95, ClosePrice: 105},
			Trades: &domain.AggregatedBucket{
				Bucket: 1700000100, TradeCount: 2,
				MinPrice: 99, MaxPrice: 101, MinVol: 1, MaxVol: 2,
				LastPrice: 101, LastVol: 2, AvgIndexPrice: 100.5,
				PnlBuy: 0.5, PnlSell: -1,
			},
			Datetime: time.Unix(1700000100, 0).UTC(),
		},
		{
			Timestamp:   1700001000,
			FundingRate: -0.0003,
			Datetime:    time.Unix(1700001000, 0).UTC(),
		},
	}
}

func TestRenderHistoryCSV(t *testing.T) {
	out := RenderHistoryCSV(testRows())
	lines := strings.Split(strings.TrimSuffix(out, "\n"), "\n")

	if len(lines) != 3 {
		t.Fatalf("expected 3 lines, got %d", len(lines))
	}
	if lines[0] != strings.Join(HistoryHeader, ",") {
		t.Errorf("unexpected header: %s", lines[0])
	}

	want := "1700000100,0.0001,100,110,95,105,2,99,101,1,2,101,2,100.5,0.5,-1,2023-11-14 22:15:00"
	if lines[1] != want {
		t.Errorf("row 1:\n got %s\nwant %s", lines[1], want)
	}

	want = "1700001000,-0.0003,,,,,,,,,,,,,,,2023-11-14 22:30:00"
	if lines[2] != want {
		t.Errorf("row 2:\n got %s\nwant %s", lines[2], want)
	}

	for i, line := range lines {
		if n := strings.Count(line, ","); n != len(HistoryHeader)-1 {
			t.Errorf("line %d has %d separators", i, n)
		}
	}
}

func TestRenderHistoryCSV_Empty(t *testing.T) {
	out := RenderHistoryCSV(nil)
	if out != strings.Join(HistoryHeader, ",")+"\n" {
		t.Errorf("expected header only, got %q", out)
	}
}

func TestWriteHistoryCSV(t *testing.T) {
	var buf bytes.Buffer
	if err := WriteHistoryCSV(&buf, testRows()); err != nil {
		t.Fatalf("WriteHistoryCSV: %v", err)
	}
	if buf.String() != RenderHistoryCSV(testRows()) {
		t.Error("written CSV differs from rendered CSV")
	}
}

func TestSummarize(t *testing.T) {
	now := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	s := Summarize("eth_perp", testRows(), now)

	c := s.Coverage
	if c.Rows != 2 || c.RowsWithCandle != 1 || c.RowsWithTrades != 1 || c.Trades != 2 {
		t.Errorf("unexpected coverage counts: %+v", c)
	}
	if c.FirstTimestamp != 1700000100 || c.LastTimestamp != 1700001000 {
		t.Errorf("unexpected range: %d..%d", c.FirstTimestamp, c.LastTimestamp)
	}
	if c.MinFunding != -0.0003 || c.MaxFunding != 0.0001 {
		t.Errorf("unexpected funding range: %f..%f", c.MinFunding, c.MaxFunding)
	}
	if !s.GeneratedAt.Equal(now) {
		t.Errorf("unexpected GeneratedAt %v", s.GeneratedAt)
	}
}

func TestRenderMarkdown(t *testing.T) {
	s := Summarize("eth_perp", testRows(), time.Unix(0, 0))
	s.Run = &RunSection{RunID: "run-1", TradesFetched: 3, Unbucketed: 1, TradeCutoff: 2700, Duration: 1500 * time.Millisecond}

	out := RenderMarkdown(s)
	for _, want := range []string{
		"# History: eth_perp",
		"| Run ID | run-1 |",
		"| Trades Unbucketed | 1 |",
		"| Trade Cutoff | 2700 |",
		"| Rows With Candle | 1 (50.0%) |",
		"| First | 2023-11-14 22:15:00 |",
	} {
		if !strings.Contains(out, want) {
			t.Errorf("markdown missing %q", want)
		}
	}
}

func TestRenderMarkdown_Empty(t *testing.T) {
	out := RenderMarkdown(Summarize("empty", nil, time.Unix(0, 0)))
	if !strings.Contains(out, "Table is empty.") {
		t.Error("expected empty-table note")
	}
	if strings.Contains(out, "## Run") {
		t.Error("run section rendered without a run")
	}
}
