package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log"
	"net/http"
	"time"

	"github.com/spf13/cobra"

	"github.com/crynom/derive/internal/config"
	"github.com/crynom/derive/internal/derive"
	"github.com/crynom/derive/internal/observability"
	"github.com/crynom/derive/internal/orchestrator"
	"github.com/crynom/derive/internal/reporting"
)

func newRunCmd(flags *globalFlags) *cobra.Command {
	var (
		csvPath   string
		dropEmpty bool
		summary   bool
		every     time.Duration
	)

	cmd := &cobra.Command{
		Use:   "run",
		Short: "Fetch all feeds once and update the history table",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg, err := loadConfig(cmd, flags)
			if err != nil {
				return err
			}
			if cmd.Flags().Changed("csv") {
				cfg.Export.CSVPath = csvPath
			}
			if cmd.Flags().Changed("drop-empty-aggregates") {
				cfg.Merge.DropEmptyAggregates = dropEmpty
			}
			if err := cfg.Validate(); err != nil {
				return fmt.Errorf("validate config: %w", err)
			}

			return runCollect(cmd.Context(), cfg, cmd.OutOrStdout(), newLogger(flags.verbose), summary, every)
		},
	}

	cmd.Flags().StringVar(&csvPath, "csv", "", "Write the history table to this CSV file")
	cmd.Flags().BoolVar(&dropEmpty, "drop-empty-aggregates", false, "Drop fresh rows without trades")
	cmd.Flags().BoolVar(&summary, "summary", false, "Print a Markdown summary instead of plain counts")
	cmd.Flags().DurationVar(&every, "every", 0, "Repeat the run at this interval until interrupted")
	return cmd
}

// runCollect performs one batch against the configured API and stores.
// With every > 0 it repeats the batch on a ticker until ctx is cancelled;
// a failed batch is reported and the next one still runs.
func runCollect(ctx context.Context, cfg *config.Config, out io.Writer, logger *log.Logger, summary bool, every time.Duration) error {
	st, err := openStores(ctx, cfg.Storage)
	if err != nil {
		return err
	}
	defer st.Close()

	if cfg.Metrics.Addr != "" {
		stop := serveMetrics(cfg.Metrics.Addr, logger)
		defer stop()
	}

	client := derive.NewClient(cfg.API.BaseURL,
		derive.WithTimeout(cfg.API.Timeout),
		derive.WithMaxRetries(cfg.API.MaxRetries),
		derive.WithRetryDelay(cfg.API.RetryDelay),
		derive.WithMarket(derive.Market{
			Instrument:    cfg.Market.Instrument,
			Currency:      cfg.Market.Currency,
			FundingPeriod: cfg.Market.FundingPeriod,
			CandlePeriod:  cfg.Market.CandlePeriod,
			TradePages:    cfg.Market.TradePages,
			TradePageSize: cfg.Market.TradePageSize,
		}),
	)

	orch := orchestrator.New(orchestrator.Options{
		FundingSource:       client,
		CandleSource:        client,
		TradeSource:         client,
		FundingStore:        st.funding,
		CandleStore:         st.candles,
		TradeStore:          st.trades,
		HistoryStore:        st.history,
		AggregateStore:      st.aggregate,
		HistoryTable:        cfg.Storage.HistoryTable,
		AggregateTable:      cfg.Storage.AggregateTable,
		DropEmptyAggregates: cfg.Merge.DropEmptyAggregates,
		CSVPath:             cfg.Export.CSVPath,
		Metrics:             observability.DefaultMetrics,
		Logger:              logger,
	})

	if every <= 0 {
		return collectOnce(ctx, orch, cfg, out, logger, summary)
	}

	ticker := time.NewTicker(every)
	defer ticker.Stop()

	logger.Printf("Scheduler started, interval: %v", every)
	for {
		if err := collectOnce(ctx, orch, cfg, out, logger, summary); err != nil {
			if ctx.Err() != nil {
				return ctx.Err()
			}
			fmt.Fprintf(out, "Run failed: %v\n", err)
		}

		select {
		case <-ctx.Done():
			logger.Println("Scheduler stopping...")
			return nil
		case <-ticker.C:
		}
	}
}

func collectOnce(ctx context.Context, orch *orchestrator.Orchestrator, cfg *config.Config, out io.Writer, logger *log.Logger, summary bool) error {
	result, runErr := orch.Run(ctx)

	if cfg.Metrics.PushgatewayURL != "" {
		pushCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), 10*time.Second)
		defer cancel()
		if err := observability.Push(pushCtx, cfg.Metrics.PushgatewayURL, cfg.Metrics.Job, nil); err != nil {
			logger.Printf("push metrics: %v", err)
		}
	}

	if runErr != nil {
		return runErr
	}

	if summary {
		s := reporting.Summarize(cfg.Storage.HistoryTable, result.History, time.Now())
		s.Run = &reporting.RunSection{
			RunID:          result.RunID.String(),
			FundingFetched: result.FundingFetched,
			CandlesFetched: result.CandlesFetched,
			TradesFetched:  result.TradesFetched,
			Duplicates:     result.Duplicates,
			Unbucketed:     result.DroppedTrades,
			TradeCutoff:    result.TradeCutoff,
			Filtered:       result.FilteredRows,
			Superseded:     result.Superseded,
			Duration:       result.Duration,
		}
		_, err := io.WriteString(out, reporting.RenderMarkdown(s))
		return err
	}

	fmt.Fprintf(out, "Run %s completed in %s:\n", result.RunID, result.Duration.Round(time.Millisecond))
	fmt.Fprintf(out, "  Fetched: %d funding, %d candles, %d trades\n",
		result.FundingFetched, result.CandlesFetched, result.TradesFetched)
	fmt.Fprintf(out, "  History: %d rows (%d fresh, %d superseded, %d filtered)\n",
		result.HistoryRows, result.FreshRows, result.Superseded, result.FilteredRows)
	if result.TradeCutoff != 0 {
		fmt.Fprintf(out, "  Trades unbucketed: %d (at or after %d)\n", result.DroppedTrades, result.TradeCutoff)
	} else {
		fmt.Fprintf(out, "  Trades unbucketed: %d\n", result.DroppedTrades)
	}
	if result.CSVPath != "" {
		fmt.Fprintf(out, "  Exported: %s\n", result.CSVPath)
	}
	return nil
}

// serveMetrics exposes /metrics on addr until the returned stop is called.
func serveMetrics(addr string, logger *log.Logger) (stop func()) {
	mux := http.NewServeMux()
	mux.Handle("/metrics", observability.Handler())
	srv := &http.Server{Addr: addr, Handler: mux, ReadHeaderTimeout: 5 * time.Second}

	go func() {
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Printf("metrics server: %v", err)
		}
	}()

	return func() {
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		srv.Shutdown(ctx)
	}
}
