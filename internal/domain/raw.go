package domain

// RawRecord is one flat record as delivered by the exchange API.
// Numeric fields may arrive as JSON numbers or as text.
type RawRecord map[string]any

// Raw field names used by the exchange feeds.
const (
	FieldTimestamp       = "timestamp"
	FieldFundingRate     = "funding_rate"
	FieldTimestampBucket = "timestamp_bucket"
	FieldOpenPrice       = "open_price"
	FieldHighPrice       = "high_price"
	FieldLowPrice        = "low_price"
	FieldClosePrice      = "close_price"
	FieldTradeID         = "trade_id"
	FieldTradePrice      = "trade_price"
	FieldTradeAmount     = "trade_amount"
	FieldIndexPrice      = "index_price"
	FieldRealizedPnl     = "realized_pnl"
	FieldDirection       = "direction"
)
