package normalization

import (
	"encoding/json"
	"errors"
	"fmt"
	"math"
	"strings"

	"github.com/shopspring/decimal"

	"github.com/crynom/derive/internal/domain"
)

// Table names used in SchemaMismatchError.
const (
	TableFunding = "funding"
	TableCandles = "candles"
	TableTrades  = "trades"
)

var (
	errMissing     = errors.New("missing")
	errUnsupported = errors.New("unsupported value type")
)

// ParseFunding converts raw funding records into typed records.
// Fails on the first record missing timestamp or funding_rate.
func ParseFunding(raw []domain.RawRecord) ([]*domain.FundingRecord, error) {
	result := make([]*domain.FundingRecord, 0, len(raw))
	for i, r := range raw {
		p := recordParser{table: TableFunding, index: i, rec: r}
		f := &domain.FundingRecord{
			Timestamp:   p.intField(domain.FieldTimestamp),
			FundingRate: p.floatField(domain.FieldFundingRate),
		}
		if p.err != nil {
			return nil, p.err
		}
		result = append(result, f)
	}
	return result, nil
}

// ParseCandles converts raw spot-feed candles into typed candles.
func ParseCandles(raw []domain.RawRecord) ([]*domain.Candle, error) {
	result := make([]*domain.Candle, 0, len(raw))
	for i, r := range raw {
		p := recordParser{table: TableCandles, index: i, rec: r}
		c := &domain.Candle{
			TimestampBucket: p.intField(domain.FieldTimestampBucket),
			OpenPrice:       p.floatField(domain.FieldOpenPrice),
			HighPrice:       p.floatField(domain.FieldHighPrice),
			LowPrice:        p.floatField(domain.FieldLowPrice),
			ClosePrice:      p.floatField(domain.FieldClosePrice),
		}
		if p.err != nil {
			return nil, p.err
		}
		result = append(result, c)
	}
	return result, nil
}

// ParseTrades converts raw trade history into typed trades.
// Direction must be "buy" or "sell" (case-insensitive).
func ParseTrades(raw []domain.RawRecord) ([]*domain.Trade, error) {
	result := make([]*domain.Trade, 0, len(raw))
	for i, r := range raw {
		p := recordParser{table: TableTrades, index: i, rec: r}
		t := &domain.Trade{
			TradeID:     p.stringField(domain.FieldTradeID),
			Timestamp:   p.intField(domain.FieldTimestamp),
			TradePrice:  p.floatField(domain.FieldTradePrice),
			TradeAmount: p.floatField(domain.FieldTradeAmount),
			IndexPrice:  p.floatField(domain.FieldIndexPrice),
			RealizedPnl: p.floatField(domain.FieldRealizedPnl),
			Direction:   domain.Direction(strings.ToLower(p.stringField(domain.FieldDirection))),
		}
		if p.err == nil && !t.Direction.IsValid() {
			p.fail(domain.FieldDirection, fmt.Errorf("invalid direction %q", t.Direction))
		}
		if p.err != nil {
			return nil, p.err
		}
		result = append(result, t)
	}
	return result, nil
}

// recordParser extracts fields from one raw record, keeping the first error.
type recordParser struct {
	table string
	index int
	rec   domain.RawRecord
	err   error
}

func (p *recordParser) fail(field string, err error) {
	if p.err == nil {
		p.err = &SchemaMismatchError{Table: p.table, Index: p.index, Field: field, Err: err}
	}
}

func (p *recordParser) value(field string) (any, bool) {
	v, ok := p.rec[field]
	if !ok || v == nil {
		p.fail(field, errMissing)
		return nil, false
	}
	return v, true
}

func (p *recordParser) decimalField(field string) (decimal.Decimal, bool) {
	v, ok := p.value(field)
	if !ok {
		return decimal.Zero, false
	}
	d, err := toDecimal(v)
	if err != nil {
		p.fail(field, err)
		return decimal.Zero, false
	}
	return d, true
}

func (p *recordParser) floatField(field string) float64 {
	d, ok := p.decimalField(field)
	if !ok {
		return 0
	}
	f, _ := d.Float64()
	return f
}

func (p *recordParser) intField(field string) int64 {
	d, ok := p.decimalField(field)
	if !ok {
		return 0
	}
	return d.IntPart()
}

func (p *recordParser) stringField(field string) string {
	v, ok := p.value(field)
	if !ok {
		return ""
	}
	switch x := v.(type) {
	case string:
		s := strings.TrimSpace(x)
		if s == "" {
			p.fail(field, errMissing)
		}
		return s
	case json.Number:
		return x.String()
	default:
		p.fail(field, fmt.Errorf("%w: %T", errUnsupported, v))
		return ""
	}
}

// toDecimal coerces a JSON number, text or Go numeric into a decimal.
func toDecimal(v any) (decimal.Decimal, error) {
	switch x := v.(type) {
	case json.Number:
		return decimal.NewFromString(x.String())
	case string:
		s := strings.TrimSpace(x)
		if s == "" {
			return decimal.Zero, errMissing
		}
		return decimal.NewFromString(s)
	case float64:
		if math.IsNaN(x) || math.IsInf(x, 0) {
			return decimal.Zero, errMissing
		}
		return decimal.NewFromFloat(x), nil
	case float32:
		return toDecimal(float64(x))
	case int:
		return decimal.NewFromInt(int64(x)), nil
	case int32:
		return decimal.NewFromInt(int64(x)), nil
	case int64:
		return decimal.NewFromInt(x), nil
	case decimal.Decimal:
		return x, nil
	default:
		return decimal.Zero, fmt.Errorf("%w: %T", errUnsupported, v)
	}
}
