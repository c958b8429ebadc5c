package clickhouse

import (
	"context"
	"fmt"
	"sync/atomic"
	"time"
)

var lastRowVersion atomic.Uint64

// rowVersion returns a ReplacingMergeTree version greater than any handed
// out before by this process.
func rowVersion() uint64 {
	for {
		prev := lastRowVersion.Load()
		next := uint64(time.Now().UnixNano())
		if next <= prev {
			next = prev + 1
		}
		if lastRowVersion.CompareAndSwap(prev, next) {
			return next
		}
	}
}

// lastByKey keeps the last item per key, in order of first appearance.
// Rows sharing a version and key would otherwise collapse arbitrarily.
func lastByKey[T any, K comparable](items []T, key func(T) K) []T {
	index := make(map[K]int, len(items))
	out := make([]T, 0, len(items))
	for _, item := range items {
		k := key(item)
		if i, ok := index[k]; ok {
			out[i] = item
			continue
		}
		index[k] = len(out)
		out = append(out, item)
	}
	return out
}

// latestVersion returns the current snapshot version of a table.
// ok is false when the table was never saved.
func latestVersion(ctx context.Context, conn *Conn, table, kind string) (version uint64, ok bool, err error) {
	rows, err := conn.Query(ctx, `
		SELECT version
		FROM table_versions FINAL
		WHERE table_name = ? AND kind = ?
		ORDER BY version DESC
		LIMIT 1
	`, table, kind)
	if err != nil {
		return 0, false, fmt.Errorf("query table version: %w", err)
	}
	defer rows.Close()

	if !rows.Next() {
		if err := rows.Err(); err != nil {
			return 0, false, fmt.Errorf("iterate table version: %w", err)
		}
		return 0, false, nil
	}
	if err := rows.Scan(&version); err != nil {
		return 0, false, fmt.Errorf("scan table version: %w", err)
	}
	return version, true, nil
}

// nextVersion picks a version strictly greater than the current one.
func nextVersion(ctx context.Context, conn *Conn, table, kind string) (uint64, error) {
	current, _, err := latestVersion(ctx, conn, table, kind)
	if err != nil {
		return 0, err
	}
	next := rowVersion()
	if next <= current {
		next = current + 1
	}
	return next, nil
}

// publishVersion makes a fully written snapshot visible to Load.
func publishVersion(ctx context.Context, conn *Conn, table, kind string, version uint64, rowCount int) error {
	err := conn.Exec(ctx, `
		INSERT INTO table_versions (table_name, kind, version, row_count)
		VALUES (?, ?, ?, ?)
	`, table, kind, version, uint32(rowCount))
	if err != nil {
		return fmt.Errorf("publish table version: %w", err)
	}
	return nil
}
