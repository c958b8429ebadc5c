package main

import (
	"fmt"
	"io"
	"time"

	"github.com/spf13/cobra"

	"github.com/crynom/derive/internal/orchestrator"
	"github.com/crynom/derive/internal/reporting"
)

func newExportCmd(flags *globalFlags) *cobra.Command {
	var (
		outPath string
		summary bool
	)

	cmd := &cobra.Command{
		Use:   "export",
		Short: "Write the persisted history table as CSV",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg, err := loadConfig(cmd, flags)
			if err != nil {
				return err
			}
			if err := cfg.Validate(); err != nil {
				return fmt.Errorf("validate config: %w", err)
			}

			ctx := cmd.Context()
			st, err := openStores(ctx, cfg.Storage)
			if err != nil {
				return err
			}
			defer st.Close()

			rows, err := st.history.Load(ctx, cfg.Storage.HistoryTable)
			if err != nil {
				return fmt.Errorf("load history %s: %w", cfg.Storage.HistoryTable, err)
			}

			out := cmd.OutOrStdout()
			if summary {
				s := reporting.Summarize(cfg.Storage.HistoryTable, rows, time.Now())
				_, err := io.WriteString(out, reporting.RenderMarkdown(s))
				return err
			}
			if outPath == "" || outPath == "-" {
				return reporting.WriteHistoryCSV(out, rows)
			}
			if err := orchestrator.ExportCSV(outPath, rows); err != nil {
				return err
			}
			fmt.Fprintf(out, "Exported %d rows to %s\n", len(rows), outPath)
			return nil
		},
	}

	cmd.Flags().StringVarP(&outPath, "out", "o", "-", "Output file, - for stdout")
	cmd.Flags().BoolVar(&summary, "summary", false, "Print a Markdown coverage summary instead")
	return cmd
}
