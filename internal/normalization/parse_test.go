package normalization

import (
	"encoding/json"
	"errors"
	"testing"

	"github.com/crynom/derive/internal/domain"
)

func TestParseFunding_CoercesText(t *testing.T) {
	raw := []domain.RawRecord{
		{"timestamp": json.Number("1700000900000"), "funding_rate": "0.00012"},
		{"timestamp": "1700001800000", "funding_rate": json.Number("-0.0003")},
		{"timestamp": float64(1700002700000), "funding_rate": 0.0001},
	}

	records, err := ParseFunding(raw)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(records) != 3 {
		t.Fatalf("expected 3 records, got %d", len(records))
	}
	if records[0].Timestamp != 1700000900000 || records[0].FundingRate != 0.00012 {
		t.Errorf("record 0: got %+v", records[0])
	}
	if records[1].Timestamp != 1700001800000 || records[1].FundingRate != -0.0003 {
		t.Errorf("record 1: got %+v", records[1])
	}
	if records[2].GridTimestamp() != 1700002700 {
		t.Errorf("record 2: expected grid ts 1700002700, got %d", records[2].GridTimestamp())
	}
}

func TestParseCandles(t *testing.T) {
	raw := []domain.RawRecord{
		{
			"timestamp_bucket": json.Number("1700000900"),
			"open_price":       "2000.5",
			"high_price":       "2010",
			"low_price":        "1995.25",
			"close_price":      "2005",
		},
	}

	candles, err := ParseCandles(raw)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	c := candles[0]
	if c.TimestampBucket != 1700000900 || c.OpenPrice != 2000.5 || c.HighPrice != 2010 || c.LowPrice != 1995.25 || c.ClosePrice != 2005 {
		t.Errorf("unexpected candle %+v", c)
	}
}

func validTrade() domain.RawRecord {
	return domain.RawRecord{
		"trade_id":     "abc-1",
		"timestamp":    json.Number("1700000850000"),
		"trade_price":  "2001.5",
		"trade_amount": "0.25",
		"index_price":  "2001.1",
		"realized_pnl": "-1.5",
		"direction":    "SELL",
	}
}

func TestParseTrades(t *testing.T) {
	trades, err := ParseTrades([]domain.RawRecord{validTrade()})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	tr := trades[0]
	if tr.TradeID != "abc-1" || tr.Timestamp != 1700000850000 {
		t.Errorf("unexpected id/timestamp: %+v", tr)
	}
	if tr.TradePrice != 2001.5 || tr.TradeAmount != 0.25 || tr.IndexPrice != 2001.1 || tr.RealizedPnl != -1.5 {
		t.Errorf("unexpected numbers: %+v", tr)
	}
	if tr.Direction != domain.DirectionSell {
		t.Errorf("expected direction sell, got %s", tr.Direction)
	}
}

func TestParseTrades_SchemaMismatch(t *testing.T) {
	tests := []struct {
		name  string
		edit  func(r domain.RawRecord)
		field string
	}{
		{"missing price", func(r domain.RawRecord) { delete(r, "trade_price") }, "trade_price"},
		{"null amount", func(r domain.RawRecord) { r["trade_amount"] = nil }, "trade_amount"},
		{"text not a number", func(r domain.RawRecord) { r["index_price"] = "n/a" }, "index_price"},
		{"empty text", func(r domain.RawRecord) { r["realized_pnl"] = "  " }, "realized_pnl"},
		{"bad direction", func(r domain.RawRecord) { r["direction"] = "hold" }, "direction"},
		{"missing id", func(r domain.RawRecord) { delete(r, "trade_id") }, "trade_id"},
		{"unsupported type", func(r domain.RawRecord) { r["timestamp"] = []int{1} }, "timestamp"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			bad := validTrade()
			tt.edit(bad)

			_, err := ParseTrades([]domain.RawRecord{validTrade(), bad})
			if !errors.Is(err, ErrSchemaMismatch) {
				t.Fatalf("expected ErrSchemaMismatch, got %v", err)
			}

			var sm *SchemaMismatchError
			if !errors.As(err, &sm) {
				t.Fatalf("expected *SchemaMismatchError, got %T", err)
			}
			if sm.Table != TableTrades || sm.Index != 1 || sm.Field != tt.field {
				t.Errorf("unexpected error detail: %+v", sm)
			}
		})
	}
}

func TestParseFunding_MissingField(t *testing.T) {
	_, err := ParseFunding([]domain.RawRecord{{"timestamp": json.Number("1")}})
	if !errors.Is(err, ErrSchemaMismatch) {
		t.Errorf("expected ErrSchemaMismatch, got %v", err)
	}
}
