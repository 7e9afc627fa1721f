package engine

import (
	"context"
	"sort"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/hupe1980/trigo/testutil"
)

func TestEntriesAndRestore(t *testing.T) {
	ctx := context.Background()

	t.Run("Roundtrip", func(t *testing.T) {
		store := NewMapStore()
		src, err := New(store, func(o *Options) {
			o.Dimension = 8
		})
		require.NoError(t, err)

		vectors := testutil.RandomUnitVectors(100, 8, 30)
		for i, v := range vectors {
			require.NoError(t, src.Insert(ctx, uint64(i+1), v))
		}

		entries := src.Entries()
		require.Len(t, entries, 100)

		// Restore into a fresh engine sharing the same store and config.
		dst, err := New(store, func(o *Options) {
			o.Dimension = 8
		})
		require.NoError(t, err)
		dst.Restore(entries)

		assert.Equal(t, 100, dst.Len())

		for _, q := range testutil.RandomUnitVectors(10, 8, 31) {
			want, err := src.Query(ctx, q, 5)
			require.NoError(t, err)
			got, err := dst.Query(ctx, q, 5)
			require.NoError(t, err)
			assert.Equal(t, want, got)
		}
	})

	t.Run("EntriesAreACopy", func(t *testing.T) {
		e := newTestEngine(t, 4)
		require.NoError(t, e.Insert(ctx, 1, []float32{1, 0, 0, 0}))

		entries := e.Entries()
		require.Len(t, entries, 1)
		entries[0].ID = 999

		assert.True(t, e.Contains(1))
		assert.False(t, e.Contains(999))
	})

	t.Run("RestoreReplaces", func(t *testing.T) {
		e := newTestEngine(t, 4)
		require.NoError(t, e.Insert(ctx, 1, []float32{1, 0, 0, 0}))
		require.NoError(t, e.Insert(ctx, 2, []float32{0, 1, 0, 0}))

		keep := e.Entries()
		sort.Slice(keep, func(i, j int) bool { return keep[i].ID < keep[j].ID })

		e.Restore(keep[:1])
		assert.Equal(t, 1, e.Len())
		assert.True(t, e.Contains(1))
		assert.False(t, e.Contains(2))
	})
}

func TestMapStore(t *testing.T) {
	ctx := context.Background()

	t.Run("SetGet", func(t *testing.T) {
		s := NewMapStore()
		require.NoError(t, s.Set(ctx, 1, []float32{1, 2, 3}))

		v, ok := s.Get(ctx, 1)
		require.True(t, ok)
		assert.Equal(t, []float32{1, 2, 3}, v)
		assert.Equal(t, 1, s.Len())
	})

	t.Run("GetMissing", func(t *testing.T) {
		s := NewMapStore()
		_, ok := s.Get(ctx, 1)
		assert.False(t, ok)
	})

	t.Run("SetCopies", func(t *testing.T) {
		s := NewMapStore()
		v := []float32{1, 2, 3}
		require.NoError(t, s.Set(ctx, 1, v))

		v[0] = 99
		stored, ok := s.Get(ctx, 1)
		require.True(t, ok)
		assert.Equal(t, float32(1), stored[0])
	})

	t.Run("Delete", func(t *testing.T) {
		s := NewMapStore()
		require.NoError(t, s.Set(ctx, 1, []float32{1}))
		require.NoError(t, s.Delete(ctx, 1))
		_, ok := s.Get(ctx, 1)
		assert.False(t, ok)

		// Deleting an absent ID is not an error at the store level.
		require.NoError(t, s.Delete(ctx, 2))
	})
}
