package engine

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/hupe1980/trigo/projection"
	"github.com/hupe1980/trigo/testutil"
)

func TestBulkLoad(t *testing.T) {
	ctx := context.Background()

	t.Run("Basic", func(t *testing.T) {
		e := newTestEngine(t, 8)

		vectors := testutil.RandomUnitVectors(500, 8, 20)
		items := make([]Item, len(vectors))
		for i, v := range vectors {
			items[i] = Item{ID: uint64(i + 1), Vector: v}
		}
		require.NoError(t, e.BulkLoad(ctx, items))
		assert.Equal(t, 500, e.Len())

		// Every loaded vector is queryable.
		results, err := e.Query(ctx, vectors[0], 1)
		require.NoError(t, err)
		require.Len(t, results, 1)
		assert.Equal(t, uint64(1), results[0].ID)
	})

	t.Run("MergesWithExisting", func(t *testing.T) {
		e := newTestEngine(t, 4)
		require.NoError(t, e.Insert(ctx, 1, []float32{1, 0, 0, 0}))

		require.NoError(t, e.BulkLoad(ctx, []Item{
			{ID: 2, Vector: []float32{0, 1, 0, 0}},
			{ID: 3, Vector: []float32{0, 0, 1, 0}},
		}))

		assert.Equal(t, 3, e.Len())
		assert.True(t, e.Contains(1))
		assert.True(t, e.Contains(2))
		assert.True(t, e.Contains(3))
	})

	t.Run("BatchWinsOverIndex", func(t *testing.T) {
		e := newTestEngine(t, 4)
		require.NoError(t, e.Insert(ctx, 1, []float32{1, 0, 0, 0}))

		require.NoError(t, e.BulkLoad(ctx, []Item{
			{ID: 1, Vector: []float32{0, 1, 0, 0}},
		}))
		require.Equal(t, 1, e.Len())

		results, err := e.Query(ctx, []float32{0, 1, 0, 0}, 1)
		require.NoError(t, err)
		require.Len(t, results, 1)
		assert.InDelta(t, 1.0, results[0].Score, 1e-9)
	})

	t.Run("DimensionMismatch", func(t *testing.T) {
		e := newTestEngine(t, 4)
		err := e.BulkLoad(ctx, []Item{
			{ID: 1, Vector: []float32{1, 0, 0, 0}},
			{ID: 2, Vector: []float32{1, 0}},
		})

		var mismatchErr *projection.ErrDimensionMismatch
		require.ErrorAs(t, err, &mismatchErr)
	})

	t.Run("EmptyItemVector", func(t *testing.T) {
		e := newTestEngine(t, 4)
		err := e.BulkLoad(ctx, []Item{{ID: 1, Vector: nil}})

		var mismatchErr *projection.ErrDimensionMismatch
		require.ErrorAs(t, err, &mismatchErr)
		assert.Equal(t, 0, mismatchErr.Actual)
	})

	t.Run("StoreFailureLeavesIndexUntouched", func(t *testing.T) {
		store := &failingStore{MapStore: NewMapStore(), failAfter: 2}
		e, err := New(store, func(o *Options) {
			o.Dimension = 4
		})
		require.NoError(t, err)

		require.NoError(t, e.Insert(ctx, 1, []float32{1, 0, 0, 0}))
		require.NoError(t, e.Insert(ctx, 2, []float32{0, 1, 0, 0}))

		err = e.BulkLoad(ctx, []Item{
			{ID: 3, Vector: []float32{0, 0, 1, 0}},
			{ID: 4, Vector: []float32{0, 0, 0, 1}},
		})
		require.ErrorIs(t, err, errStoreUnavailable)

		// The failed batch must not leak into the index.
		assert.Equal(t, 2, e.Len())
		assert.False(t, e.Contains(3))
		assert.False(t, e.Contains(4))

		results, err := e.Query(ctx, []float32{1, 0, 0, 0}, 1)
		require.NoError(t, err)
		require.Len(t, results, 1)
		assert.Equal(t, uint64(1), results[0].ID)
	})

	t.Run("EmptyBatch", func(t *testing.T) {
		e := newTestEngine(t, 4)
		require.NoError(t, e.BulkLoad(ctx, nil))
		assert.Zero(t, e.Len())
	})

	t.Run("Cancelled", func(t *testing.T) {
		e := newTestEngine(t, 4)
		cctx, cancel := context.WithCancel(ctx)
		cancel()
		require.ErrorIs(t, e.BulkLoad(cctx, nil), context.Canceled)
	})
}

func TestRebuild(t *testing.T) {
	ctx := context.Background()

	t.Run("PreservesContents", func(t *testing.T) {
		e := newTestEngine(t, 8)
		vectors := testutil.RandomUnitVectors(300, 8, 21)
		for i, v := range vectors {
			require.NoError(t, e.Insert(ctx, uint64(i+1), v))
		}

		// Churn: delete two thirds, then repack.
		for i := 0; i < 200; i++ {
			require.NoError(t, e.Delete(ctx, uint64(i+1)))
		}
		require.NoError(t, e.Rebuild(ctx))

		assert.Equal(t, 100, e.Len())
		for i := 200; i < 300; i++ {
			results, err := e.Query(ctx, vectors[i], 1)
			require.NoError(t, err)
			require.Len(t, results, 1)
			assert.Equal(t, uint64(i+1), results[0].ID)
		}
	})

	t.Run("Paced", func(t *testing.T) {
		e := newTestEngine(t, 4)
		for i := 0; i < 50; i++ {
			require.NoError(t, e.Insert(ctx, uint64(i+1), []float32{float32(i), 1, 0, 0}))
		}

		require.NoError(t, e.Rebuild(ctx, func(o *RebuildOptions) {
			o.MaxEntriesPerSecond = 100000
		}))
		assert.Equal(t, 50, e.Len())
	})

	t.Run("Empty", func(t *testing.T) {
		e := newTestEngine(t, 4)
		require.NoError(t, e.Rebuild(ctx))
		assert.Zero(t, e.Len())
	})

	t.Run("Cancelled", func(t *testing.T) {
		e := newTestEngine(t, 4)
		cctx, cancel := context.WithCancel(ctx)
		cancel()
		require.ErrorIs(t, e.Rebuild(cctx), context.Canceled)
	})
}
