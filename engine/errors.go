package engine

import "errors"

var (
	// ErrNotFound is returned when removing or looking up an ID that is not
	// indexed. Recoverable; the caller decides how to proceed.
	ErrNotFound = errors.New("not found")

	// ErrNilStore is returned when an engine is constructed without a
	// vector store.
	ErrNilStore = errors.New("nil vector store")
)
