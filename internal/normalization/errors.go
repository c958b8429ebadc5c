package normalization

import (
	"errors"
	"fmt"
)

// Errors returned by parsing and deduplication.
var (
	// ErrSchemaMismatch is returned when a raw record lacks a required field
	// or carries a value that cannot be coerced. Runs must abort on it.
	ErrSchemaMismatch = errors.New("schema mismatch")

	// ErrCandleKeyConflict is returned when two candles share a
	// timestamp_bucket but carry different prices.
	ErrCandleKeyConflict = errors.New("conflicting candles for timestamp_bucket")
)

// SchemaMismatchError describes which raw record and field failed.
// It matches ErrSchemaMismatch with errors.Is.
type SchemaMismatchError struct {
	Table string // feed name: funding, candles, trades
	Index int    // position of the record in the fetched set
	Field string // offending field
	Err   error  // underlying cause
}

func (e *SchemaMismatchError) Error() string {
	return fmt.Sprintf("schema mismatch in %s record %d: field %q: %v", e.Table, e.Index, e.Field, e.Err)
}

func (e *SchemaMismatchError) Unwrap() error {
	return e.Err
}

// Is reports whether target is ErrSchemaMismatch.
func (e *SchemaMismatchError) Is(target error) bool {
	return target == ErrSchemaMismatch
}
