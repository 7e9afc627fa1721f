// Package rtree provides a balanced bounding-box tree over projected 3D
// points. It is the stage-1 candidate index of the two-stage query engine:
// internal nodes hold rectangles covering their subtrees, leaves hold
// entries, and both range queries and nearest-window retrieval prune by
// rectangle overlap, giving sub-linear scan cost on balanced trees.
//
// Concurrency: a single read-write lock protects the tree. Write operations
// are bounded by tree height, never by population size, so readers are only
// briefly blocked. The copy-free in-place design mirrors the needs of an
// index that is queried far more often than mutated.
package rtree

import (
	"container/heap"
	"context"
	"fmt"
	"iter"
	"sync"

	"github.com/hupe1980/trigo/curve"
	"github.com/hupe1980/trigo/projection"
)

// ErrNotFound is a named error type for removal of an absent entry.
type ErrNotFound struct {
	ID uint64
}

func (e *ErrNotFound) Error() string {
	return fmt.Sprintf("entry not found: id=%d", e.ID)
}

// Entry is a leaf record: an opaque identifier, its projected point and its
// locality key. The tree owns only this triple; the original
// high-dimensional vector stays with the calling layer.
type Entry struct {
	ID    uint64
	Point projection.Point
	Key   curve.Key
}

// Options contains configuration options for the tree.
type Options struct {
	// MaxEntries is the node capacity before a split. Minimum fill is
	// derived as 40% of it.
	MaxEntries int
}

// DefaultOptions contains the default configuration options for the tree.
var DefaultOptions = Options{
	MaxEntries: 16,
}

// Tree is a balanced bounding-box tree over 3D points.
type Tree struct {
	mu         sync.RWMutex
	root       *node
	size       int
	maxEntries int
	minEntries int
}

// New creates a new empty tree.
func New(optFns ...func(o *Options)) *Tree {
	opts := DefaultOptions
	for _, fn := range optFns {
		fn(&opts)
	}
	if opts.MaxEntries < 4 {
		opts.MaxEntries = 4
	}

	minEntries := opts.MaxEntries * 2 / 5
	if minEntries < 2 {
		minEntries = 2
	}

	return &Tree{
		root:       newLeaf(),
		maxEntries: opts.MaxEntries,
		minEntries: minEntries,
	}
}

// Len returns the number of entries in the tree.
func (t *Tree) Len() int {
	t.mu.RLock()
	defer t.mu.RUnlock()
	return t.size
}

// Insert adds an entry, splitting nodes on overflow.
func (t *Tree) Insert(e Entry) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.insertLocked(e)
}

func (t *Tree) insertLocked(e Entry) {
	r := pointRect(e.Point)
	leaf := t.chooseLeaf(t.root, r)
	leaf.entries = append(leaf.entries, e)
	leaf.rect = leaf.rect.union(r)

	t.adjustUpward(leaf)
	t.size++
}

// adjustUpward splits overflowing nodes bottom-up and grows the root when
// it splits.
func (t *Tree) adjustUpward(n *node) {
	for n != nil {
		if n.overflowing(t.maxEntries) {
			left, right := n.split(t.minEntries)
			if n.parent == nil {
				// Root split: tree grows one level.
				root := newInternal()
				root.children = append(root.children, left, right)
				left.parent = root
				right.parent = root
				root.recomputeRect()
				t.root = root
				return
			}
			parent := n.parent
			parent.replaceChild(n, left, right)
			n = parent
			continue
		}
		n.recomputeRect()
		n = n.parent
	}
}

// Delete removes the entry with the given id at the given point. The point
// steers the leaf lookup; removal fails with *ErrNotFound if no entry with
// the id is stored there. Leaf underflow condenses the tree, reinserting
// orphaned siblings.
func (t *Tree) Delete(id uint64, p projection.Point) error {
	t.mu.Lock()
	defer t.mu.Unlock()

	leaf, idx := t.findLeaf(t.root, id, p)
	if leaf == nil {
		return &ErrNotFound{ID: id}
	}

	leaf.entries[idx] = leaf.entries[len(leaf.entries)-1]
	leaf.entries = leaf.entries[:len(leaf.entries)-1]
	t.size--

	t.condense(leaf)
	return nil
}

// condense walks from a shrunken leaf to the root, removing underflowing
// nodes and reinserting their orphaned entries, then shrinks a root left
// with a single internal child.
func (t *Tree) condense(n *node) {
	var orphans []Entry

	for n.parent != nil {
		parent := n.parent
		if n.underflowing(t.minEntries) {
			orphans = append(orphans, collectEntries(n)...)
			parent.removeChild(n)
		} else {
			n.recomputeRect()
		}
		n = parent
	}
	n.recomputeRect()

	// Root with one internal child shrinks a level.
	for !t.root.leaf && len(t.root.children) == 1 {
		t.root = t.root.children[0]
		t.root.parent = nil
	}
	if !t.root.leaf && len(t.root.children) == 0 {
		t.root = newLeaf()
	}

	// Reinsertion restores the covering invariant for orphaned points.
	t.size -= len(orphans)
	for _, e := range orphans {
		t.insertLocked(e)
	}
}

// Search returns a lazy sequence of entries whose point intersects the
// region. Pruning is top-down by rectangle overlap. The iterator checks ctx
// between node visits so a caller can abandon an expensive scan; it holds a
// read lock until iteration stops, so callers must not mutate the tree from
// inside the loop. Restart only via a fresh call.
func (t *Tree) Search(ctx context.Context, r Rect) iter.Seq[Entry] {
	return func(yield func(Entry) bool) {
		t.mu.RLock()
		defer t.mu.RUnlock()

		stack := []*node{t.root}
		for len(stack) > 0 {
			if ctx.Err() != nil {
				return
			}

			n := stack[len(stack)-1]
			stack = stack[:len(stack)-1]

			if !n.rect.intersects(r) {
				continue
			}
			if n.leaf {
				for _, e := range n.entries {
					if r.containsPoint(e.Point) {
						if !yield(e) {
							return
						}
					}
				}
				continue
			}
			for _, c := range n.children {
				if c.rect.intersects(r) {
					stack = append(stack, c)
				}
			}
		}
	}
}

// NearestWindow returns a superset of the k nearest entries to p, collected
// by best-first traversal ordered by minimum rectangle distance. It stops
// after k entries or when the tree is exhausted, whichever comes first.
//
// The result is approximate only in what the caller does with it: the
// entries returned are exactly the k geometrically nearest stored points,
// but the stored points are low-dimensional projections, so callers
// oversample (k = topN * oversample factor) and re-rank exactly.
//
// k <= 0 and an empty tree both yield an empty result, not an error; k
// larger than the population yields the whole population.
func (t *Tree) NearestWindow(ctx context.Context, p projection.Point, k int) []Entry {
	if k <= 0 {
		return nil
	}

	t.mu.RLock()
	defer t.mu.RUnlock()

	if t.size == 0 {
		return nil
	}
	if k > t.size {
		k = t.size
	}

	pq := &traversalQueue{}
	heap.Push(pq, traversalItem{node: t.root, dist: t.root.rect.minDistSquared(p)})

	out := make([]Entry, 0, k)
	for pq.Len() > 0 {
		if ctx.Err() != nil {
			break
		}

		item := heap.Pop(pq).(traversalItem)
		if item.node == nil {
			out = append(out, item.entry)
			if len(out) >= k {
				break
			}
			continue
		}

		n := item.node
		if n.leaf {
			for _, e := range n.entries {
				heap.Push(pq, traversalItem{entry: e, dist: pointDistSquared(e.Point, p)})
			}
			continue
		}
		for _, c := range n.children {
			heap.Push(pq, traversalItem{node: c, dist: c.rect.minDistSquared(p)})
		}
	}

	return out
}

// Stats returns structural statistics about the tree.
func (t *Tree) Stats() Stats {
	t.mu.RLock()
	defer t.mu.RUnlock()

	s := Stats{Size: t.size, MaxEntries: t.maxEntries, MinEntries: t.minEntries}
	measure(t.root, 1, &s)
	return s
}

// chooseLeaf descends to the leaf whose rectangle needs the least
// enlargement to cover r, breaking ties by smaller area.
func (t *Tree) chooseLeaf(n *node, r Rect) *node {
	for !n.leaf {
		var best *node
		bestEnlargement := 0.0
		bestArea := 0.0
		for _, c := range n.children {
			enlargement := c.rect.union(r).area() - c.rect.area()
			area := c.rect.area()
			if best == nil || enlargement < bestEnlargement ||
				(enlargement == bestEnlargement && area < bestArea) {
				best = c
				bestEnlargement = enlargement
				bestArea = area
			}
		}
		n = best
	}
	return n
}

// findLeaf locates the leaf and slot holding id, using p to prune.
func (t *Tree) findLeaf(n *node, id uint64, p projection.Point) (*node, int) {
	if !n.rect.containsPoint(p) {
		return nil, 0
	}
	if n.leaf {
		for i, e := range n.entries {
			if e.ID == id {
				return n, i
			}
		}
		return nil, 0
	}
	for _, c := range n.children {
		if leaf, idx := t.findLeaf(c, id, p); leaf != nil {
			return leaf, idx
		}
	}
	return nil, 0
}

func collectEntries(n *node) []Entry {
	if n.leaf {
		return n.entries
	}
	var out []Entry
	for _, c := range n.children {
		out = append(out, collectEntries(c)...)
	}
	return out
}

// traversalItem is either a pending node or a resolved entry in the
// best-first queue; node == nil marks an entry.
type traversalItem struct {
	node  *node
	entry Entry
	dist  float64
}

type traversalQueue struct {
	items []traversalItem
}

func (q *traversalQueue) Len() int { return len(q.items) }

func (q *traversalQueue) Less(i, j int) bool {
	if q.items[i].dist != q.items[j].dist {
		return q.items[i].dist < q.items[j].dist
	}
	// Resolved entries drain before nodes at equal distance; among entries,
	// ascending id keeps traversal deterministic.
	if (q.items[i].node == nil) != (q.items[j].node == nil) {
		return q.items[i].node == nil
	}
	return q.items[i].entry.ID < q.items[j].entry.ID
}

func (q *traversalQueue) Swap(i, j int) { q.items[i], q.items[j] = q.items[j], q.items[i] }

func (q *traversalQueue) Push(x any) { q.items = append(q.items, x.(traversalItem)) }

func (q *traversalQueue) Pop() any {
	n := len(q.items)
	item := q.items[n-1]
	q.items[n-1] = traversalItem{}
	q.items = q.items[:n-1]
	return item
}
