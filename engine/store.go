package engine

import "context"

// VectorStore is the caller-side storage interface for original
// high-dimensional vectors. The engine indexes only projected points; during
// stage 2 of a query it fetches each candidate's original vector through
// this interface.
//
// Implementations may be backed by memory, disk, or a remote platform — the
// engine treats Get as an opaque, potentially blocking call and owns no
// retry or timeout policy for it. Pass a ctx with a deadline if the backing
// store can stall.
type VectorStore interface {
	// Get retrieves the vector associated with the given ID.
	// Returns the vector and true if found, or nil and false if not found.
	Get(ctx context.Context, id uint64) ([]float32, bool)

	// Set stores the vector associated with the given ID.
	// If the ID already exists, it replaces the vector.
	Set(ctx context.Context, id uint64, vector []float32) error

	// Delete removes the vector associated with the given ID.
	// Deleting an absent ID is not an error.
	Delete(ctx context.Context, id uint64) error

	// Len returns the number of vectors currently stored.
	Len() int
}
