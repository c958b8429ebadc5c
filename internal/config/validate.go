package config

import (
	"errors"
	"fmt"
	"net/url"

	"github.com/crynom/derive/internal/storage"
)

// Validate checks the configuration for missing or inconsistent values.
// All problems are reported together.
func (c *Config) Validate() error {
	var errs []error

	if u, err := url.Parse(c.API.BaseURL); err != nil || u.Scheme == "" || u.Host == "" {
		errs = append(errs, fmt.Errorf("api.base_url %q is not an absolute URL", c.API.BaseURL))
	}
	if c.API.Timeout < 0 {
		errs = append(errs, errors.New("api.timeout must not be negative"))
	}
	if c.API.MaxRetries < 0 {
		errs = append(errs, errors.New("api.max_retries must not be negative"))
	}

	if c.Market.Instrument == "" {
		errs = append(errs, errors.New("market.instrument is required"))
	}
	if c.Market.Currency == "" {
		errs = append(errs, errors.New("market.currency is required"))
	}
	if c.Market.FundingPeriod <= 0 || c.Market.CandlePeriod <= 0 {
		errs = append(errs, errors.New("market periods must be positive"))
	}
	if c.Market.TradePages <= 0 || c.Market.TradePageSize <= 0 {
		errs = append(errs, errors.New("market.trade_pages and market.trade_page_size must be positive"))
	}

	switch c.Storage.Backend {
	case BackendMemory:
	case BackendPostgres:
		if c.Storage.PostgresDSN == "" {
			errs = append(errs, errors.New("storage.postgres_dsn is required for the postgres backend"))
		}
	case BackendClickhouse:
		if c.Storage.ClickhouseDSN == "" {
			errs = append(errs, errors.New("storage.clickhouse_dsn is required for the clickhouse backend"))
		}
	default:
		errs = append(errs, fmt.Errorf("storage.backend %q is not one of memory, postgres, clickhouse", c.Storage.Backend))
	}
	if err := storage.ValidateTableName(c.Storage.HistoryTable); err != nil {
		errs = append(errs, fmt.Errorf("storage.history_table: %w", err))
	}
	if err := storage.ValidateTableName(c.Storage.AggregateTable); err != nil {
		errs = append(errs, fmt.Errorf("storage.aggregate_table: %w", err))
	}
	if c.Storage.HistoryTable == c.Storage.AggregateTable {
		errs = append(errs, errors.New("storage.history_table and storage.aggregate_table must differ"))
	}

	if c.Metrics.PushgatewayURL != "" && c.Metrics.Job == "" {
		errs = append(errs, errors.New("metrics.job is required when pushing metrics"))
	}

	return errors.Join(errs...)
}
