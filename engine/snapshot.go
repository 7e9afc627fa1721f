package engine

import (
	"github.com/hupe1980/trigo/index/rtree"
)

// Entries returns a copy of all indexed entries (id, point, key). This is
// the persistable shape of the engine; pair it with the configuration to
// rebuild an equivalent index elsewhere.
func (e *Engine) Entries() []rtree.Entry {
	e.mu.RLock()
	defer e.mu.RUnlock()

	out := make([]rtree.Entry, 0, len(e.entries))
	for id, meta := range e.entries {
		out = append(out, rtree.Entry{ID: id, Point: meta.point, Key: meta.key})
	}
	return out
}

// Restore replaces the index contents with previously persisted entries.
// The entries must have been projected under the same (dimension, seed)
// basis and encoder configuration as this engine — the determinism contract
// makes that equivalence checkable by the caller via Seed and Encoder.
// The vector store is not touched: originals are expected to already live
// in the caller's storage layer.
func (e *Engine) Restore(entries []rtree.Entry) {
	e.mu.Lock()
	defer e.mu.Unlock()

	e.entries = make(map[uint64]entryMeta, len(entries))
	e.live.Clear()
	for _, entry := range entries {
		e.entries[entry.ID] = entryMeta{point: entry.Point, key: entry.Key}
		e.live.Add(entry.ID)
	}
	e.tree.BulkLoad(entries)
}
