package derive

import (
	"encoding/json"
	"fmt"
	"math"

	"github.com/crynom/derive/internal/domain"
)

// Endpoint paths relative to the API base URL.
const (
	PathFundingRateHistory = "/public/get_funding_rate_history"
	PathSpotFeedCandles    = "/public/get_spot_feed_history_candles"
	PathTradeHistory       = "/public/get_trade_history"
)

// DefaultBaseURL is the public REST API of the exchange.
const DefaultBaseURL = "https://api.lyra.finance"

// Market identifies the perpetual market and how much of it to fetch.
type Market struct {
	Instrument    string // funding history instrument, e.g. ETH-PERP
	Currency      string // candle and trade currency, e.g. ETH
	FundingPeriod int    // funding sample period in seconds
	CandlePeriod  int    // candle width in seconds
	TradePages    int    // trade history pages per run
	TradePageSize int
}

// DefaultMarket returns the ETH perpetual with the collector's page limits.
func DefaultMarket() Market {
	return Market{
		Instrument:    "ETH-PERP",
		Currency:      "ETH",
		FundingPeriod: 900,
		CandlePeriod:  domain.DefaultCandlePeriod,
		TradePages:    7,
		TradePageSize: 1000,
	}
}

// APIError is an error object returned by the exchange. Not retried.
type APIError struct {
	Code    int    `json:"code"`
	Message string `json:"message"`
	Data    any    `json:"data,omitempty"`
}

func (e *APIError) Error() string {
	return fmt.Sprintf("api error %d: %s", e.Code, e.Message)
}

// envelope is the outer shape of every response.
type envelope struct {
	Result json.RawMessage `json:"result"`
	Error  *APIError       `json:"error,omitempty"`
}

type fundingRequest struct {
	InstrumentName string `json:"instrument_name"`
	Period         int    `json:"period"`
	StartTimestamp int64  `json:"start_timestamp"`
	EndTimestamp   int64  `json:"end_timestamp"`
}

type fundingResult struct {
	FundingRateHistory []domain.RawRecord `json:"funding_rate_history"`
}

type candleRequest struct {
	Currency       string `json:"currency"`
	Period         int    `json:"period"`
	StartTimestamp int64  `json:"start_timestamp"`
	EndTimestamp   int64  `json:"end_timestamp"`
}

type candleResult struct {
	SpotFeedHistory []domain.RawRecord `json:"spot_feed_history"`
}

type tradeRequest struct {
	Currency       string `json:"currency"`
	InstrumentType string `json:"instrument_type"`
	TxStatus       string `json:"tx_status"`
	FromTimestamp  int64  `json:"from_timestamp"`
	ToTimestamp    uint64 `json:"to_timestamp"`
	Page           int    `json:"page"`
	PageSize       int    `json:"page_size"`
}

type tradeResult struct {
	Trades     []domain.RawRecord `json:"trades"`
	Pagination *pagination        `json:"pagination,omitempty"`
}

type pagination struct {
	NumPages int `json:"num_pages"`
	Count    int `json:"count"`
}

// Open-ended range bounds accepted by the history endpoints.
const (
	openEndMillis  uint64 = math.MaxUint64
	openEndFunding int64  = math.MaxInt64
)
