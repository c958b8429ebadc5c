// Package main provides the collector entry point.
// Commands: run (one batch), migrate (apply schemas), export (history as CSV)
package main

import (
	"context"
	"fmt"
	"io"
	"log"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/crynom/derive/internal/config"
)

// globalFlags are shared by every subcommand.
type globalFlags struct {
	configPath    string
	envFile       string
	backend       string
	postgresDSN   string
	clickhouseDSN string
	historyTable  string
	verbose       bool
}

func main() {
	// Create context with cancellation for graceful shutdown
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// Handle shutdown signals
	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	go func() {
		sig := <-sigCh
		fmt.Fprintf(os.Stderr, "\nReceived signal %v, cancelling...\n", sig)
		cancel()
	}()

	if err := newRootCmd().ExecuteContext(ctx); err != nil {
		os.Exit(1)
	}
}

func newRootCmd() *cobra.Command {
	flags := &globalFlags{}

	root := &cobra.Command{
		Use:   "collect",
		Short: "Perpetual futures funding, candle and trade history collector",
		Long: `Fetches funding rate history, spot candles and settled trades for a
perpetual market, merges them onto the funding grid and keeps the result
in a persisted history table. Reruns refresh overlapping rows.`,
		SilenceUsage: true,
	}

	pf := root.PersistentFlags()
	pf.StringVarP(&flags.configPath, "config", "c", "", "YAML config file")
	pf.StringVar(&flags.envFile, "env-file", ".env", "Environment file loaded before the config")
	pf.StringVar(&flags.backend, "backend", "", "Storage backend: memory, postgres, clickhouse")
	pf.StringVar(&flags.postgresDSN, "postgres-dsn", "", "PostgreSQL connection string")
	pf.StringVar(&flags.clickhouseDSN, "clickhouse-dsn", "", "ClickHouse connection string")
	pf.StringVar(&flags.historyTable, "history-table", "", "History table name")
	pf.BoolVarP(&flags.verbose, "verbose", "v", false, "Verbose output")

	root.AddCommand(newRunCmd(flags), newMigrateCmd(flags), newExportCmd(flags))
	return root
}

// loadConfig reads the env file and config, then applies flag overrides.
func loadConfig(cmd *cobra.Command, flags *globalFlags) (*config.Config, error) {
	if err := config.LoadEnv(flags.envFile); err != nil {
		return nil, err
	}

	cfg, err := config.LoadWithDefaults(flags.configPath)
	if err != nil {
		return nil, err
	}

	pf := cmd.Flags()
	if pf.Changed("backend") {
		cfg.Storage.Backend = flags.backend
	}
	if pf.Changed("postgres-dsn") {
		cfg.Storage.PostgresDSN = flags.postgresDSN
	}
	if pf.Changed("clickhouse-dsn") {
		cfg.Storage.ClickhouseDSN = flags.clickhouseDSN
	}
	if pf.Changed("history-table") {
		cfg.Storage.HistoryTable = flags.historyTable
	}

	return cfg, nil
}

func newLogger(verbose bool) *log.Logger {
	if !verbose {
		return log.New(io.Discard, "", 0)
	}
	return log.New(os.Stderr, "[collect] ", log.LstdFlags)
}
