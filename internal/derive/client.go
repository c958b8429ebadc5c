// Package derive is an HTTP client for the exchange's public history
// endpoints. It returns records undecoded, as flat field maps, so number
// coercion and schema checks happen in one place downstream.
package derive

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/crynom/derive/internal/domain"
	"github.com/crynom/derive/internal/ingestion"
)

// Default configuration values.
const (
	DefaultTimeout     = 30 * time.Second
	DefaultMaxRetries  = 3
	DefaultRetryDelay  = 1 * time.Second
	DefaultMaxDelay    = 10 * time.Second
	DefaultBackoffMult = 2.0
)

// Client fetches funding, candle and trade history for one market.
type Client struct {
	baseURL     string
	market      Market
	client      *http.Client
	maxRetries  int
	retryDelay  time.Duration
	maxDelay    time.Duration
	backoffMult float64
}

// ClientOption configures Client.
type ClientOption func(*Client)

// WithTimeout sets HTTP client timeout.
func WithTimeout(d time.Duration) ClientOption {
	return func(c *Client) {
		c.client.Timeout = d
	}
}

// WithMaxRetries sets maximum retry attempts.
func WithMaxRetries(n int) ClientOption {
	return func(c *Client) {
		c.maxRetries = n
	}
}

// WithRetryDelay sets initial retry delay.
func WithRetryDelay(d time.Duration) ClientOption {
	return func(c *Client) {
		c.retryDelay = d
	}
}

// WithMaxDelay sets maximum retry delay.
func WithMaxDelay(d time.Duration) ClientOption {
	return func(c *Client) {
		c.maxDelay = d
	}
}

// WithHTTPClient sets custom http.Client.
func WithHTTPClient(client *http.Client) ClientOption {
	return func(c *Client) {
		c.client = client
	}
}

// WithMarket overrides the market queried by the client.
func WithMarket(m Market) ClientOption {
	return func(c *Client) {
		c.market = m
	}
}

// NewClient creates a client for the API at baseURL.
func NewClient(baseURL string, opts ...ClientOption) *Client {
	c := &Client{
		baseURL:     strings.TrimRight(baseURL, "/"),
		market:      DefaultMarket(),
		client:      &http.Client{Timeout: DefaultTimeout},
		maxRetries:  DefaultMaxRetries,
		retryDelay:  DefaultRetryDelay,
		maxDelay:    DefaultMaxDelay,
		backoffMult: DefaultBackoffMult,
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Compile-time interface checks.
var (
	_ ingestion.FundingSource = (*Client)(nil)
	_ ingestion.CandleSource  = (*Client)(nil)
	_ ingestion.TradeSource   = (*Client)(nil)
)

// FetchFunding returns the full funding rate history of the instrument.
func (c *Client) FetchFunding(ctx context.Context) ([]domain.RawRecord, error) {
	req := fundingRequest{
		InstrumentName: c.market.Instrument,
		Period:         c.market.FundingPeriod,
		StartTimestamp: 0,
		EndTimestamp:   openEndFunding,
	}

	var result fundingResult
	if err := c.post(ctx, PathFundingRateHistory, req, &result); err != nil {
		return nil, fmt.Errorf("fetch funding history: %w", err)
	}
	return result.FundingRateHistory, nil
}

// FetchCandles returns spot candles between startSec and endSec (epoch seconds).
func (c *Client) FetchCandles(ctx context.Context, startSec, endSec int64) ([]domain.RawRecord, error) {
	if endSec < startSec {
		return nil, fmt.Errorf("fetch candles: end %d before start %d", endSec, startSec)
	}

	req := candleRequest{
		Currency:       c.market.Currency,
		Period:         c.market.CandlePeriod,
		StartTimestamp: startSec,
		EndTimestamp:   endSec,
	}

	var result candleResult
	if err := c.post(ctx, PathSpotFeedCandles, req, &result); err != nil {
		return nil, fmt.Errorf("fetch candles: %w", err)
	}
	return result.SpotFeedHistory, nil
}

// FetchTrades returns settled perp trades, up to the configured page count.
// Paging stops early on the last page.
func (c *Client) FetchTrades(ctx context.Context) ([]domain.RawRecord, error) {
	var all []domain.RawRecord

	for page := 1; page <= c.market.TradePages; page++ {
		req := tradeRequest{
			Currency:       c.market.Currency,
			InstrumentType: "perp",
			TxStatus:       "settled",
			FromTimestamp:  0,
			ToTimestamp:    openEndMillis,
			Page:           page,
			PageSize:       c.market.TradePageSize,
		}

		var result tradeResult
		if err := c.post(ctx, PathTradeHistory, req, &result); err != nil {
			return nil, fmt.Errorf("fetch trades page %d: %w", page, err)
		}
		all = append(all, result.Trades...)

		if len(result.Trades) == 0 {
			break
		}
		if p := result.Pagination; p != nil {
			if p.NumPages > 0 && page >= p.NumPages {
				break
			}
		} else if len(result.Trades) < c.market.TradePageSize {
			break
		}
	}

	return all, nil
}

// post sends a JSON request with retries and exponential backoff and decodes
// the result object into out. Numbers are kept as json.Number.
func (c *Client) post(ctx context.Context, path string, payload, out any) error {
	body, err := json.Marshal(payload)
	if err != nil {
		return fmt.Errorf("marshal request: %w", err)
	}

	delay := c.retryDelay
	var lastErr error

	for attempt := 0; attempt <= c.maxRetries; attempt++ {
		if attempt > 0 {
			select {
			case <-ctx.Done():
				return ctx.Err()
			case <-time.After(delay):
			}
			delay = time.Duration(float64(delay) * c.backoffMult)
			if delay > c.maxDelay {
				delay = c.maxDelay
			}
		}

		req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+path, bytes.NewReader(body))
		if err != nil {
			return fmt.Errorf("create request: %w", err)
		}
		req.Header.Set("Accept", "application/json")
		req.Header.Set("Content-Type", "application/json")

		resp, err := c.client.Do(req)
		if err != nil {
			if ctx.Err() != nil {
				return ctx.Err()
			}
			lastErr = fmt.Errorf("http request: %w", err)
			continue
		}

		respBody, err := io.ReadAll(resp.Body)
		resp.Body.Close()
		if err != nil {
			lastErr = fmt.Errorf("read response: %w", err)
			continue
		}

		if resp.StatusCode == http.StatusTooManyRequests {
			lastErr = fmt.Errorf("rate limited (429)")
			continue
		}

		if resp.StatusCode != http.StatusOK {
			lastErr = fmt.Errorf("unexpected status %d: %s", resp.StatusCode, string(respBody))
			continue
		}

		var env envelope
		if err := decode(respBody, &env); err != nil {
			lastErr = fmt.Errorf("unmarshal response: %w", err)
			continue
		}

		if env.Error != nil {
			return env.Error
		}
		if len(env.Result) == 0 || string(env.Result) == "null" {
			return fmt.Errorf("response has no result")
		}

		if err := decode(env.Result, out); err != nil {
			return fmt.Errorf("unmarshal result: %w", err)
		}
		return nil
	}

	return fmt.Errorf("max retries exceeded: %w", lastErr)
}

func decode(data []byte, v any) error {
	dec := json.NewDecoder(bytes.NewReader(data))
	dec.UseNumber()
	return dec.Decode(v)
}
