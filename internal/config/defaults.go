package config

import "github.com/crynom/derive/internal/derive"

// Default returns a configuration with every default applied.
func Default() *Config {
	cfg := &Config{}
	cfg.applyDefaults()
	return cfg
}

// applyDefaults fills unset fields with the client's own defaults.
func (c *Config) applyDefaults() {
	if c.API.BaseURL == "" {
		c.API.BaseURL = derive.DefaultBaseURL
	}
	if c.API.Timeout == 0 {
		c.API.Timeout = derive.DefaultTimeout
	}
	if c.API.MaxRetries == 0 {
		c.API.MaxRetries = derive.DefaultMaxRetries
	}
	if c.API.RetryDelay == 0 {
		c.API.RetryDelay = derive.DefaultRetryDelay
	}

	market := derive.DefaultMarket()
	if c.Market.Instrument == "" {
		c.Market.Instrument = market.Instrument
	}
	if c.Market.Currency == "" {
		c.Market.Currency = market.Currency
	}
	if c.Market.FundingPeriod == 0 {
		c.Market.FundingPeriod = market.FundingPeriod
	}
	if c.Market.CandlePeriod == 0 {
		c.Market.CandlePeriod = market.CandlePeriod
	}
	if c.Market.TradePages == 0 {
		c.Market.TradePages = market.TradePages
	}
	if c.Market.TradePageSize == 0 {
		c.Market.TradePageSize = market.TradePageSize
	}

	if c.Storage.Backend == "" {
		c.Storage.Backend = BackendMemory
	}
	if c.Storage.HistoryTable == "" {
		c.Storage.HistoryTable = "history"
	}
	if c.Storage.AggregateTable == "" {
		c.Storage.AggregateTable = "aggregated_trades"
	}

	if c.Metrics.Job == "" {
		c.Metrics.Job = "derive_collector"
	}
}
