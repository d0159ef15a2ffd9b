package store

import "errors"

var (
	// ErrNotFound marks a row that is missing or, for sessions, already
	// expired. Callers must never conflate it with a transient store
	// failure: any other non-nil error means the lookup itself failed.
	ErrNotFound = errors.New("store: record not found")

	ErrUniqueViolation = errors.New("store: duplicate key value violates unique constraint")
	ErrInvalidInput    = errors.New("store: invalid input")
)
