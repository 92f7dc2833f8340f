package documents

import "errors"

var (
	// ErrNotFound indicates the identifier is absent (or not a quote on conversion).
	ErrNotFound = errors.New("documents: not found")
	// ErrPersistence wraps failures of the backing key-value store.
	ErrPersistence = errors.New("documents: persistence failure")
	// ErrInvalidDocument indicates a record that fails the schema check.
	ErrInvalidDocument = errors.New("documents: invalid document")
)
