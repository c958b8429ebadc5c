// Package observability provides Prometheus metrics for monitoring.
package observability

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/prometheus/client_golang/prometheus/push"
)

// Feed labels.
const (
	FeedFunding = "funding"
	FeedCandles = "candles"
	FeedTrades  = "trades"
)

// Run status labels.
const (
	StatusSuccess = "success"
	StatusFailed  = "failed"
)

// Metrics holds all Prometheus metrics for the collector.
type Metrics struct {
	// Run metrics
	RunsTotal   *prometheus.CounterVec
	RunDuration prometheus.Histogram

	// Ingestion metrics
	RecordsFetched    *prometheus.CounterVec
	DuplicatesDropped *prometheus.CounterVec

	// Merge metrics
	TradesUnbucketed   prometheus.Counter
	RowsFiltered       prometheus.Counter
	RowsSuperseded     prometheus.Counter
	HistoryRowsWritten prometheus.Counter
	HistorySize        prometheus.Gauge

	// Storage metrics
	StoreOpDuration *prometheus.HistogramVec
	StoreOpErrors   *prometheus.CounterVec

	// Health metrics
	LastSuccessfulRun prometheus.Gauge
}

// NewMetrics creates a new Metrics instance registered with reg.
// A nil reg registers with the default Prometheus registry.
func NewMetrics(namespace string, reg prometheus.Registerer) *Metrics {
	if namespace == "" {
		namespace = "derive_collector"
	}
	if reg == nil {
		reg = prometheus.DefaultRegisterer
	}
	f := promauto.With(reg)

	return &Metrics{
		RunsTotal: f.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "run",
			Name:      "total",
			Help:      "Total number of collector runs by status",
		}, []string{"status"}),
		RunDuration: f.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace,
			Subsystem: "run",
			Name:      "duration_seconds",
			Help:      "Collector run duration in seconds",
			Buckets:   []float64{1, 5, 10, 30, 60, 120, 300, 600},
		}),

		RecordsFetched: f.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "ingestion",
			Name:      "records_fetched_total",
			Help:      "Total number of raw records fetched by feed",
		}, []string{"feed"}),
		DuplicatesDropped: f.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "ingestion",
			Name:      "duplicates_dropped_total",
			Help:      "Total number of duplicate records dropped by feed",
		}, []string{"feed"}),

		TradesUnbucketed: f.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "merge",
			Name:      "trades_unbucketed_total",
			Help:      "Total number of trades at or after the last grid point",
		}),
		RowsFiltered: f.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "merge",
			Name:      "rows_filtered_total",
			Help:      "Total number of fresh rows dropped for having no trades",
		}),
		RowsSuperseded: f.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "merge",
			Name:      "rows_superseded_total",
			Help:      "Total number of persisted rows replaced by fresh rows",
		}),
		HistoryRowsWritten: f.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "merge",
			Name:      "history_rows_written_total",
			Help:      "Total number of history rows written",
		}),
		HistorySize: f.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Subsystem: "merge",
			Name:      "history_rows",
			Help:      "Number of rows in the history table after the last run",
		}),

		StoreOpDuration: f.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Subsystem: "storage",
			Name:      "operation_duration_seconds",
			Help:      "Store operation duration in seconds",
			Buckets:   prometheus.DefBuckets,
		}, []string{"table", "operation"}),
		StoreOpErrors: f.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "storage",
			Name:      "operation_errors_total",
			Help:      "Total number of store operation errors",
		}, []string{"table", "operation"}),

		LastSuccessfulRun: f.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Subsystem: "health",
			Name:      "last_successful_run_timestamp",
			Help:      "Unix timestamp of last successful run",
		}),
	}
}

// Handler returns an HTTP handler for the /metrics endpoint.
func Handler() http.Handler {
	return promhttp.Handler()
}

// DefaultMetrics is the default metrics instance.
var DefaultMetrics = NewMetrics("", nil)

// RecordFetched records fetched and duplicate counts for one feed.
func (m *Metrics) RecordFetched(feed string, fetched, duplicates int) {
	m.RecordsFetched.WithLabelValues(feed).Add(float64(fetched))
	m.DuplicatesDropped.WithLabelValues(feed).Add(float64(duplicates))
}

// RecordMerge records the outcome of one merge.
func (m *Metrics) RecordMerge(unbucketed, filtered, superseded, historyRows int) {
	m.TradesUnbucketed.Add(float64(unbucketed))
	m.RowsFiltered.Add(float64(filtered))
	m.RowsSuperseded.Add(float64(superseded))
	m.HistoryRowsWritten.Add(float64(historyRows))
	m.HistorySize.Set(float64(historyRows))
}

// RecordStoreOp records a store call.
func (m *Metrics) RecordStoreOp(table, operation string, d time.Duration, err error) {
	m.StoreOpDuration.WithLabelValues(table, operation).Observe(d.Seconds())
	if err != nil {
		m.StoreOpErrors.WithLabelValues(table, operation).Inc()
	}
}

// RecordRun records a finished run.
func (m *Metrics) RecordRun(status string, d time.Duration) {
	m.RunsTotal.WithLabelValues(status).Inc()
	m.RunDuration.Observe(d.Seconds())
	if status == StatusSuccess {
		m.LastSuccessfulRun.SetToCurrentTime()
	}
}

// Push delivers the metrics gathered by g to a Pushgateway under job.
// A nil g pushes the default registry.
func Push(ctx context.Context, url, job string, g prometheus.Gatherer) error {
	if g == nil {
		g = prometheus.DefaultGatherer
	}
	if err := push.New(url, job).Gatherer(g).PushContext(ctx); err != nil {
		return fmt.Errorf("push metrics to %s: %w", url, err)
	}
	return nil
}
