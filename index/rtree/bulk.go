package rtree

import (
	"sort"
)

// BulkLoad replaces the tree contents with the given entries, packed
// bottom-up in locality-key order. Sorting by the space-filling-curve key
// keeps spatially close points in the same leaves, which is what makes the
// packed tree's rectangles tight. Used for rebuilds and batch ingestion;
// the swap to the new root happens under the write lock, so readers observe
// either the old tree or the complete new one.
func (t *Tree) BulkLoad(entries []Entry) {
	sorted := make([]Entry, len(entries))
	copy(sorted, entries)
	sort.Slice(sorted, func(i, j int) bool {
		if sorted[i].Key != sorted[j].Key {
			return sorted[i].Key < sorted[j].Key
		}
		return sorted[i].ID < sorted[j].ID
	})

	root := t.pack(sorted)

	t.mu.Lock()
	t.root = root
	t.size = len(sorted)
	t.mu.Unlock()
}

// pack builds a tree over pre-sorted entries: fill leaves to capacity, then
// repeatedly group nodes under internal parents until one root remains.
func (t *Tree) pack(sorted []Entry) *node {
	if len(sorted) == 0 {
		return newLeaf()
	}

	// Leaf level.
	var level []*node
	for start := 0; start < len(sorted); start += t.maxEntries {
		end := start + t.maxEntries
		if end > len(sorted) {
			end = len(sorted)
		}
		leaf := newLeaf()
		leaf.entries = append(leaf.entries, sorted[start:end]...)
		leaf.recomputeRect()
		level = append(level, leaf)
	}

	// Internal levels.
	for len(level) > 1 {
		var next []*node
		for start := 0; start < len(level); start += t.maxEntries {
			end := start + t.maxEntries
			if end > len(level) {
				end = len(level)
			}
			parent := newInternal()
			for _, c := range level[start:end] {
				c.parent = parent
				parent.children = append(parent.children, c)
			}
			parent.recomputeRect()
			next = append(next, parent)
		}
		level = next
	}

	return level[0]
}
