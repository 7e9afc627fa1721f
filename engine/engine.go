// Package engine implements the two-stage approximate nearest-neighbor
// query engine, the only entry point external callers use.
//
// Stage 1 projects the query embedding to 3D and collects a bounded
// candidate window from the spatial index — O(log N) node visits plus O(K)
// candidates, independent of total population once the tree is balanced.
// Stage 2 fetches each candidate's original high-dimensional vector from the
// caller's store and scores it exactly under the requested metric.
//
// The search is approximate, with recall tunable via the oversample factor:
// the locality projection can scatter a true neighbor outside the stage-1
// window. It is never exact, and callers must not treat it as such; stage 2
// only guarantees exact ordering of the candidates stage 1 produced.
package engine

import (
	"context"
	"sort"
	"sync"

	"github.com/RoaringBitmap/roaring/v2/roaring64"

	"github.com/hupe1980/trigo/curve"
	"github.com/hupe1980/trigo/distance"
	"github.com/hupe1980/trigo/index/rtree"
	"github.com/hupe1980/trigo/projection"
)

// Result is a single scored query result.
type Result struct {
	// ID is the identifier of the matched vector.
	ID uint64

	// Score is the exact metric value between the query and the matched
	// vector (similarity for cosine/dot, squared distance for Euclidean).
	Score float64
}

// entryMeta is what the engine remembers per indexed ID: enough to locate
// the entry in the tree again. The original vector stays in the store.
type entryMeta struct {
	point projection.Point
	key   curve.Key
}

// Engine coordinates the projector, locality encoder, spatial index, and
// the caller's vector store.
//
// Concurrency: the basis and encoder are immutable and shared without
// synchronization. The spatial index carries its own lock; the engine's own
// mutex covers the ID bookkeeping. Multiple readers and a single writer are
// safe; callers serialize concurrent writers.
type Engine struct {
	basis   *projection.Basis
	encoder *curve.Encoder
	tree    *rtree.Tree
	store   VectorStore

	metric     distance.Metric
	oversample int

	mu      sync.RWMutex
	entries map[uint64]entryMeta
	live    *roaring64.Bitmap
}

// New creates a new engine over the given vector store.
// Dimension is required; basis construction fails with
// *projection.ErrInvalidDimension or *projection.ErrDegenerateBasis, and an
// invalid encoder configuration fails with *curve.ErrInvalidBits before any
// data can be inserted.
func New(store VectorStore, optFns ...func(o *Options)) (*Engine, error) {
	if store == nil {
		return nil, ErrNilStore
	}

	opts := DefaultOptions
	for _, fn := range optFns {
		fn(&opts)
	}
	if opts.OversampleFactor < 1 {
		opts.OversampleFactor = 1
	}

	basis, err := projection.Build(opts.Dimension, opts.Seed)
	if err != nil {
		return nil, err
	}

	encoder, err := curve.New(opts.CurveOptions...)
	if err != nil {
		return nil, err
	}

	if _, err := distance.Provider(opts.Metric); err != nil {
		return nil, err
	}

	return &Engine{
		basis:      basis,
		encoder:    encoder,
		tree:       rtree.New(opts.TreeOptions...),
		store:      store,
		metric:     opts.Metric,
		oversample: opts.OversampleFactor,
		entries:    make(map[uint64]entryMeta),
		live:       roaring64.New(),
	}, nil
}

// Dimension returns the configured embedding dimension.
func (e *Engine) Dimension() int { return e.basis.Dimension() }

// Seed returns the basis seed.
func (e *Engine) Seed() uint64 { return e.basis.Seed() }

// Metric returns the default scoring metric.
func (e *Engine) Metric() distance.Metric { return e.metric }

// Encoder returns the immutable locality encoder configuration.
func (e *Engine) Encoder() *curve.Encoder { return e.encoder }

// OversampleFactor returns the default stage-1 candidate window scale.
func (e *Engine) OversampleFactor() int { return e.oversample }

// Len returns the number of indexed vectors.
func (e *Engine) Len() int {
	e.mu.RLock()
	defer e.mu.RUnlock()
	return len(e.entries)
}

// Contains reports whether the given ID is indexed.
func (e *Engine) Contains(id uint64) bool {
	e.mu.RLock()
	defer e.mu.RUnlock()
	return e.live.Contains(id)
}

// LiveIDs returns a copy of the set of indexed IDs. Intended for external
// control loops that diagnose drift or schedule pruning.
func (e *Engine) LiveIDs() *roaring64.Bitmap {
	e.mu.RLock()
	defer e.mu.RUnlock()
	return e.live.Clone()
}

// Insert projects the embedding, encodes its locality key, inserts the
// entry into the spatial index, and records the vector in the store.
// Inserting an already-indexed ID replaces the previous entry (upsert);
// feedback loops re-enter through Insert for changed vectors.
//
// Fails with *projection.ErrDimensionMismatch if the embedding's length
// disagrees with the configured dimension. The vector is never truncated or
// padded.
func (e *Engine) Insert(ctx context.Context, id uint64, vector []float32) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	point, err := e.basis.Project(vector)
	if err != nil {
		return err
	}
	key := e.encoder.Encode(point)

	e.mu.Lock()
	defer e.mu.Unlock()

	// The store write happens before any index mutation, so a failing store
	// leaves the index untouched.
	if err := e.store.Set(ctx, id, vector); err != nil {
		return err
	}

	if prev, ok := e.entries[id]; ok {
		// Upsert: drop the stale tree entry before inserting the new one.
		if err := e.tree.Delete(id, prev.point); err != nil {
			return err
		}
	}

	e.tree.Insert(rtree.Entry{ID: id, Point: point, Key: key})
	e.entries[id] = entryMeta{point: point, key: key}
	e.live.Add(id)
	return nil
}

// Delete removes the entry from the spatial index and the store. The
// original embedding's lifecycle beyond the configured store is the
// caller's responsibility.
//
// Fails with ErrNotFound if the ID is not indexed; a second Delete of the
// same ID therefore also fails with ErrNotFound.
func (e *Engine) Delete(ctx context.Context, id uint64) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	e.mu.Lock()
	defer e.mu.Unlock()

	meta, ok := e.entries[id]
	if !ok {
		return ErrNotFound
	}

	if err := e.tree.Delete(id, meta.point); err != nil {
		return err
	}
	delete(e.entries, id)
	e.live.Remove(id)

	return e.store.Delete(ctx, id)
}

// Query runs the two-stage search: project the query embedding, collect a
// candidate window of topN * oversample entries from the spatial index,
// fetch each candidate's original vector, score it exactly under the
// metric, and return the topN best. Ties are broken by ascending ID.
//
// An empty engine and topN <= 0 both return an empty result, not an error.
// Fails with *projection.ErrDimensionMismatch on a query vector of the
// wrong length.
func (e *Engine) Query(ctx context.Context, vector []float32, topN int, optFns ...func(o *QueryOptions)) ([]Result, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	opts := QueryOptions{
		Metric:           e.metric,
		OversampleFactor: e.oversample,
	}
	for _, fn := range optFns {
		fn(&opts)
	}
	if opts.OversampleFactor < 1 {
		opts.OversampleFactor = 1
	}

	score, err := distance.Provider(opts.Metric)
	if err != nil {
		return nil, err
	}

	point, err := e.basis.Project(vector)
	if err != nil {
		return nil, err
	}

	if topN <= 0 {
		return []Result{}, nil
	}

	candidates := e.tree.NearestWindow(ctx, point, topN*opts.OversampleFactor)
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	results := make([]Result, 0, len(candidates))
	for _, c := range candidates {
		// The fetch may block on the caller's storage layer; it is treated
		// as opaque here. Retry and timeout policy belong to the caller.
		original, ok := e.store.Get(ctx, c.ID)
		if !ok {
			// Index and store out of sync; skip rather than fail the query.
			continue
		}
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		results = append(results, Result{ID: c.ID, Score: score(vector, original)})
	}

	descending := opts.Metric.Descending()
	sort.Slice(results, func(i, j int) bool {
		if results[i].Score != results[j].Score {
			if descending {
				return results[i].Score > results[j].Score
			}
			return results[i].Score < results[j].Score
		}
		return results[i].ID < results[j].ID
	})

	if len(results) > topN {
		results = results[:topN]
	}
	return results, nil
}

// Stats returns population and tree-shape statistics.
func (e *Engine) Stats() Stats {
	e.mu.RLock()
	population := len(e.entries)
	e.mu.RUnlock()

	return Stats{
		Population: population,
		Tree:       e.tree.Stats(),
	}
}

// Stats describes the engine state.
type Stats struct {
	// Population is the number of indexed vectors.
	Population int

	// Tree is the spatial index shape.
	Tree rtree.Stats
}
