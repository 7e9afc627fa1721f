package engine

import (
	"context"
	"runtime"

	"golang.org/x/sync/errgroup"
	"golang.org/x/time/rate"

	"github.com/hupe1980/trigo/index/rtree"
)

// Item is a single (id, embedding) pair for batch ingestion.
type Item struct {
	ID     uint64
	Vector []float32
}

// BulkLoad ingests a batch of vectors into a freshly packed tree, merged
// with whatever is already indexed. Projection runs in parallel across
// CPUs — safe for the reproducibility contract, since each vector's own
// accumulation order stays fixed and results land in per-item slots.
//
// Duplicate IDs within the batch, or between batch and index, resolve to
// the batch (last occurrence wins), matching Insert's upsert semantics.
func (e *Engine) BulkLoad(ctx context.Context, items []Item) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	loaded := make([]rtree.Entry, len(items))

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(runtime.GOMAXPROCS(0))
	for i, item := range items {
		g.Go(func() error {
			if err := gctx.Err(); err != nil {
				return err
			}
			point, err := e.basis.Project(item.Vector)
			if err != nil {
				return err
			}
			loaded[i] = rtree.Entry{ID: item.ID, Point: point, Key: e.encoder.Encode(point)}
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return err
	}

	e.mu.Lock()
	defer e.mu.Unlock()

	// All store writes happen before any index mutation, so a failing store
	// leaves the index untouched.
	for _, item := range items {
		if err := e.store.Set(ctx, item.ID, item.Vector); err != nil {
			return err
		}
	}

	for i, item := range items {
		e.entries[item.ID] = entryMeta{point: loaded[i].Point, key: loaded[i].Key}
		e.live.Add(item.ID)
	}

	merged := make([]rtree.Entry, 0, len(e.entries))
	for id, meta := range e.entries {
		merged = append(merged, rtree.Entry{ID: id, Point: meta.point, Key: meta.key})
	}
	e.tree.BulkLoad(merged)
	return nil
}

// RebuildOptions contains configuration options for Rebuild.
type RebuildOptions struct {
	// MaxEntriesPerSecond paces the scan phase so a large rebuild cannot
	// monopolize the machine. 0 means unpaced.
	MaxEntriesPerSecond int
}

// Rebuild repacks the spatial index from the live entries into a fresh,
// balanced tree and swaps it in atomically. Readers see either the old tree
// or the complete new one, never an intermediate state. Use it to reclaim
// fragmentation after heavy delete churn.
//
// Rebuild runs on the caller's goroutine; cancellation is honored between
// pacing windows.
func (e *Engine) Rebuild(ctx context.Context, optFns ...func(o *RebuildOptions)) error {
	var opts RebuildOptions
	for _, fn := range optFns {
		fn(&opts)
	}

	var limiter *rate.Limiter
	if opts.MaxEntriesPerSecond > 0 {
		limiter = rate.NewLimiter(rate.Limit(opts.MaxEntriesPerSecond), opts.MaxEntriesPerSecond)
	}

	// Snapshot the live entries under the read lock; the paced packing
	// below must not hold any engine lock.
	e.mu.RLock()
	snapshot := make([]rtree.Entry, 0, len(e.entries))
	for id, meta := range e.entries {
		snapshot = append(snapshot, rtree.Entry{ID: id, Point: meta.point, Key: meta.key})
	}
	e.mu.RUnlock()

	if limiter != nil {
		const window = 1024
		for off := 0; off < len(snapshot); off += window {
			n := window
			if off+n > len(snapshot) {
				n = len(snapshot) - off
			}
			if err := limiter.WaitN(ctx, n); err != nil {
				return err
			}
		}
	} else if err := ctx.Err(); err != nil {
		return err
	}

	// Writers are excluded for the swap; BulkLoad publishes the new root
	// under the tree's own write lock.
	e.mu.Lock()
	defer e.mu.Unlock()

	// Entries may have changed while pacing; rebuild from the current map.
	current := make([]rtree.Entry, 0, len(e.entries))
	for id, meta := range e.entries {
		current = append(current, rtree.Entry{ID: id, Point: meta.point, Key: meta.key})
	}
	e.tree.BulkLoad(current)
	return nil
}
