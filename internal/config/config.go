// Package config handles YAML configuration loading with environment variable substitution.
//
// Configuration files support ${VAR} syntax for environment variable interpolation.
// A .env file, when present, is loaded into the environment first.
package config

import "time"

// Storage backends.
const (
	BackendMemory     = "memory"
	BackendPostgres   = "postgres"
	BackendClickhouse = "clickhouse"
)

// Config is the root configuration of the collector.
type Config struct {
	API     APIConfig     `yaml:"api"`
	Market  MarketConfig  `yaml:"market"`
	Storage StorageConfig `yaml:"storage"`
	Merge   MergeConfig   `yaml:"merge"`
	Export  ExportConfig  `yaml:"export"`
	Metrics MetricsConfig `yaml:"metrics"`
}

// APIConfig holds exchange REST API settings.
type APIConfig struct {
	BaseURL    string        `yaml:"base_url"`
	Timeout    time.Duration `yaml:"timeout"`
	MaxRetries int           `yaml:"max_retries"`
	RetryDelay time.Duration `yaml:"retry_delay"`
}

// MarketConfig selects the perpetual market and fetch sizes.
type MarketConfig struct {
	Instrument    string `yaml:"instrument"`
	Currency      string `yaml:"currency"`
	FundingPeriod int    `yaml:"funding_period"` // seconds
	CandlePeriod  int    `yaml:"candle_period"`  // seconds
	TradePages    int    `yaml:"trade_pages"`
	TradePageSize int    `yaml:"trade_page_size"`
}

// StorageConfig selects where tables live. There is no implicit location.
type StorageConfig struct {
	Backend        string `yaml:"backend"`
	PostgresDSN    string `yaml:"postgres_dsn"`
	ClickhouseDSN  string `yaml:"clickhouse_dsn"`
	HistoryTable   string `yaml:"history_table"`
	AggregateTable string `yaml:"aggregate_table"`
}

// MergeConfig holds history merge switches.
type MergeConfig struct {
	DropEmptyAggregates bool `yaml:"drop_empty_aggregates"`
}

// ExportConfig holds CSV export settings. Empty path disables export.
type ExportConfig struct {
	CSVPath string `yaml:"csv_path"`
}

// MetricsConfig holds Prometheus settings.
type MetricsConfig struct {
	Addr           string `yaml:"addr"` // listen address for /metrics, empty disables
	PushgatewayURL string `yaml:"pushgateway_url"`
	Job            string `yaml:"job"`
}
