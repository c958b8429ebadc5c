package storage

import "errors"

// Storage errors shared by all backends.
var (
	// ErrNotFound is returned when a requested table or record does not exist.
	ErrNotFound = errors.New("not found")

	// ErrDuplicateKey is returned when a write violates a key constraint
	// that the store does not resolve by replacement.
	ErrDuplicateKey = errors.New("duplicate key")

	// ErrInvalidInput is returned when input validation fails.
	ErrInvalidInput = errors.New("invalid input")
)
