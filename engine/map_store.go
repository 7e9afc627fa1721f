package engine

import (
	"context"
	"slices"
	"sync"
)

// MapStore is an in-memory implementation of VectorStore using a Go map.
// It's suitable for datasets that fit in memory and provides O(1) access.
type MapStore struct {
	mu   sync.RWMutex
	data map[uint64][]float32
}

// NewMapStore creates a new in-memory map-based store.
func NewMapStore() *MapStore {
	return &MapStore{
		data: make(map[uint64][]float32),
	}
}

// Get retrieves the vector associated with the given ID.
func (m *MapStore) Get(_ context.Context, id uint64) ([]float32, bool) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	v, ok := m.data[id]
	return v, ok
}

// Set stores a copy of the vector associated with the given ID.
// Copying keeps the store immune to caller-side mutation of the slice.
func (m *MapStore) Set(_ context.Context, id uint64, vector []float32) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.data[id] = slices.Clone(vector)
	return nil
}

// Delete removes the vector associated with the given ID.
func (m *MapStore) Delete(_ context.Context, id uint64) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	delete(m.data, id)
	return nil
}

// Len returns the number of vectors currently stored.
func (m *MapStore) Len() int {
	m.mu.RLock()
	defer m.mu.RUnlock()

	return len(m.data)
}
