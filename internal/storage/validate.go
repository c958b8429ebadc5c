package storage

import (
	"fmt"
	"regexp"

	"github.com/crynom/derive/internal/domain"
)

var tableNamePattern = regexp.MustCompile(`^[A-Za-z][A-Za-z0-9_]{0,62}$`)

// ValidateTableName checks that a snapshot table name is usable by every backend.
func ValidateTableName(table string) error {
	if !tableNamePattern.MatchString(table) {
		return fmt.Errorf("%w: table name %q", ErrInvalidInput, table)
	}
	return nil
}

// CheckHistoryRows validates rows before a Save.
// Timestamps must be unique within one table.
func CheckHistoryRows(rows []*domain.HistoryRow) error {
	seen := make(map[int64]struct{}, len(rows))
	for i, r := range rows {
		if r == nil {
			return fmt.Errorf("%w: nil history row at %d", ErrInvalidInput, i)
		}
		if _, ok := seen[r.Timestamp]; ok {
			return fmt.Errorf("%w: history timestamp %d", ErrDuplicateKey, r.Timestamp)
		}
		seen[r.Timestamp] = struct{}{}
	}
	return nil
}

// CheckBuckets validates aggregates before a Save.
func CheckBuckets(buckets []*domain.AggregatedBucket) error {
	seen := make(map[int64]struct{}, len(buckets))
	for i, b := range buckets {
		if b == nil {
			return fmt.Errorf("%w: nil bucket at %d", ErrInvalidInput, i)
		}
		if _, ok := seen[b.Bucket]; ok {
			return fmt.Errorf("%w: bucket %d", ErrDuplicateKey, b.Bucket)
		}
		seen[b.Bucket] = struct{}{}
	}
	return nil
}
