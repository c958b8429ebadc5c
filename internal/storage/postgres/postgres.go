package postgres

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
)

// Pool is the connection pool shared by the raw and snapshot stores.
type Pool struct {
	*pgxpool.Pool
}

// NewPool connects and pings. Pool sizing comes from the DSN's pool_*
// parameters.
func NewPool(ctx context.Context, dsn string) (*Pool, error) {
	cfg, err := pgxpool.ParseConfig(dsn)
	if err != nil {
		return nil, fmt.Errorf("parse postgres dsn: %w", err)
	}

	pool, err := pgxpool.NewWithConfig(ctx, cfg)
	if err != nil {
		return nil, fmt.Errorf("connect to postgres %s: %w", cfg.ConnConfig.Host, err)
	}
	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("ping postgres %s: %w", cfg.ConnConfig.Host, err)
	}
	return &Pool{Pool: pool}, nil
}

// Close closes the connection pool.
func (p *Pool) Close() {
	p.Pool.Close()
}

// Snapshot kinds recorded in table_catalog.
const (
	kindHistory   = "history"
	kindAggregate = "aggregate"
)

const sqlstateUniqueViolation = "23505"

func isUniqueViolation(err error) bool {
	var pgErr *pgconn.PgError
	return errors.As(err, &pgErr) && pgErr.Code == sqlstateUniqueViolation
}

type queryRower interface {
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
}

// catalogExists reports whether table was ever saved as kind. An empty save
// still creates a catalog entry, which is what separates it from a table
// that does not exist.
func catalogExists(ctx context.Context, q queryRower, table, kind string) (bool, error) {
	var exists bool
	err := q.QueryRow(ctx,
		`SELECT EXISTS (SELECT 1 FROM table_catalog WHERE table_name = $1 AND kind = $2)`,
		table, kind,
	).Scan(&exists)
	if err != nil {
		return false, fmt.Errorf("query table catalog for %s: %w", table, err)
	}
	return exists, nil
}

// markSaved upserts the catalog entry inside the snapshot's transaction.
func markSaved(ctx context.Context, tx pgx.Tx, table, kind string, rowCount int) error {
	const q = `
		INSERT INTO table_catalog (table_name, kind, row_count, saved_at)
		VALUES ($1, $2, $3, now())
		ON CONFLICT (table_name, kind)
		DO UPDATE SET row_count = EXCLUDED.row_count, saved_at = EXCLUDED.saved_at`
	if _, err := tx.Exec(ctx, q, table, kind, rowCount); err != nil {
		return fmt.Errorf("update table catalog for %s: %w", table, err)
	}
	return nil
}
