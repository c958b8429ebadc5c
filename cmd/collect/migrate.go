package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/crynom/derive/internal/config"
	"github.com/crynom/derive/internal/storage/migrations"
	"github.com/crynom/derive/internal/storage/postgres"
)

func newMigrateCmd(flags *globalFlags) *cobra.Command {
	return &cobra.Command{
		Use:   "migrate",
		Short: "Apply the embedded schema migrations to the configured databases",
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
			out := cmd.OutOrStdout()

			if cfg.Storage.Backend == config.BackendMemory {
				fmt.Fprintln(out, "memory backend has no schema")
				return nil
			}

			if cfg.Storage.Backend == config.BackendPostgres {
				pool, err := postgres.NewPool(ctx, cfg.Storage.PostgresDSN)
				if err != nil {
					return err
				}
				defer pool.Close()
				applied, err := migrations.RunPostgresMigrations(ctx, pool)
				if err != nil {
					return err
				}
				fmt.Fprintf(out, "postgres: %d migrations applied\n", len(applied))
				for _, file := range applied {
					fmt.Fprintf(out, "  %s\n", file)
				}
			}

			if cfg.Storage.Backend == config.BackendClickhouse {
				conn, err := migrations.RunClickhouseMigrations(ctx, cfg.Storage.ClickhouseDSN)
				if err != nil {
					return err
				}
				conn.Close()
				fmt.Fprintln(out, "clickhouse migrations applied")
			}

			return nil
		},
	}
}
