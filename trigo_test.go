package trigo

import (
	"bytes"
	"context"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/hupe1980/trigo/distance"
	"github.com/hupe1980/trigo/engine"
	"github.com/hupe1980/trigo/testutil"
)

func TestNew(t *testing.T) {
	t.Run("Defaults", func(t *testing.T) {
		tg, err := New(8)
		require.NoError(t, err)
		assert.Equal(t, 8, tg.Dimension())
		assert.Equal(t, engine.DefaultSeed, tg.Seed())
		assert.Equal(t, distance.MetricCosine, tg.Metric())
		assert.Zero(t, tg.Len())
	})

	t.Run("InvalidDimension", func(t *testing.T) {
		_, err := New(2)
		require.ErrorIs(t, err, ErrInvalidConfiguration)
	})

	t.Run("WithOptions", func(t *testing.T) {
		tg, err := New(16,
			WithSeed(7),
			WithMetric(distance.MetricSquaredL2),
			WithOversampleFactor(20),
		)
		require.NoError(t, err)
		assert.Equal(t, uint64(7), tg.Seed())
		assert.Equal(t, distance.MetricSquaredL2, tg.Metric())
	})
}

func TestInsertQueryDelete(t *testing.T) {
	ctx := context.Background()

	t.Run("EndToEnd", func(t *testing.T) {
		tg, err := New(8)
		require.NoError(t, err)

		v1 := []float32{1, 0, 0, 0, 0, 0, 0, 0}
		v2 := []float32{0, 1, 0, 0, 0, 0, 0, 0}
		v3 := []float32{1, 0.01, 0, 0, 0, 0, 0, 0}

		require.NoError(t, tg.Insert(ctx, 1, v1))
		require.NoError(t, tg.Insert(ctx, 2, v2))
		require.NoError(t, tg.Insert(ctx, 3, v3))

		results, err := tg.Query(ctx, v1, 2)
		require.NoError(t, err)
		require.Len(t, results, 2)
		assert.Equal(t, uint64(1), results[0].ID)
		assert.InDelta(t, 1.0, results[0].Score, 1e-12)
		assert.Equal(t, uint64(3), results[1].ID)

		require.NoError(t, tg.Delete(ctx, 1))
		require.ErrorIs(t, tg.Delete(ctx, 1), ErrNotFound)
	})

	t.Run("DimensionMismatch", func(t *testing.T) {
		tg, err := New(8)
		require.NoError(t, err)

		err = tg.Insert(ctx, 1, []float32{1, 0})
		require.ErrorIs(t, err, ErrDimensionMismatch)

		_, err = tg.Query(ctx, []float32{1, 0}, 1)
		require.ErrorIs(t, err, ErrDimensionMismatch)
	})

	t.Run("EmptyVector", func(t *testing.T) {
		tg, err := New(8)
		require.NoError(t, err)
		require.ErrorIs(t, tg.Insert(ctx, 1, nil), ErrDimensionMismatch)
	})
}

func TestBulkLoadAndRebuild(t *testing.T) {
	ctx := context.Background()

	tg, err := New(16)
	require.NoError(t, err)

	vectors := testutil.RandomUnitVectors(200, 16, 40)
	items := make([]Item, len(vectors))
	for i, v := range vectors {
		items[i] = Item{ID: uint64(i + 1), Vector: v}
	}
	require.NoError(t, tg.BulkLoad(ctx, items))
	assert.Equal(t, 200, tg.Len())

	for i := 0; i < 100; i++ {
		require.NoError(t, tg.Delete(ctx, uint64(i+1)))
	}
	require.NoError(t, tg.Rebuild(ctx))
	assert.Equal(t, 100, tg.Len())

	s := tg.Stats()
	assert.Equal(t, 100, s.Population)
}

func TestMetricsAndLogging(t *testing.T) {
	ctx := context.Background()

	metrics := &BasicMetricsCollector{}
	tg, err := New(8, WithMetrics(metrics), WithLogger(NoopLogger()))
	require.NoError(t, err)

	require.NoError(t, tg.Insert(ctx, 1, []float32{1, 0, 0, 0, 0, 0, 0, 0}))
	require.Error(t, tg.Insert(ctx, 2, []float32{1, 0}))

	_, err = tg.Query(ctx, []float32{1, 0, 0, 0, 0, 0, 0, 0}, 1)
	require.NoError(t, err)

	require.NoError(t, tg.Delete(ctx, 1))
	require.Error(t, tg.Delete(ctx, 1))

	assert.Equal(t, int64(2), metrics.InsertCount.Load())
	assert.Equal(t, int64(1), metrics.InsertErrors.Load())
	assert.Equal(t, int64(1), metrics.QueryCount.Load())
	assert.Equal(t, int64(2), metrics.DeleteCount.Load())
	assert.Equal(t, int64(1), metrics.DeleteErrors.Load())
}

func TestSaveLoad(t *testing.T) {
	ctx := context.Background()

	t.Run("Writer", func(t *testing.T) {
		store := engine.NewMapStore()
		tg, err := New(8, WithStore(store))
		require.NoError(t, err)

		vectors := testutil.RandomUnitVectors(100, 8, 41)
		for i, v := range vectors {
			require.NoError(t, tg.Insert(ctx, uint64(i+1), v))
		}

		var buf bytes.Buffer
		require.NoError(t, tg.SaveToWriter(&buf))

		// Restore against the same store; the snapshot carries only the
		// projected entries.
		restored, err := LoadFromReader(&buf, WithStore(store))
		require.NoError(t, err)

		assert.Equal(t, tg.Dimension(), restored.Dimension())
		assert.Equal(t, tg.Seed(), restored.Seed())
		assert.Equal(t, tg.Len(), restored.Len())

		for _, q := range testutil.RandomUnitVectors(10, 8, 42) {
			want, err := tg.Query(ctx, q, 5)
			require.NoError(t, err)
			got, err := restored.Query(ctx, q, 5)
			require.NoError(t, err)
			assert.Equal(t, want, got)
		}
	})

	t.Run("File", func(t *testing.T) {
		store := engine.NewMapStore()
		tg, err := New(8, WithStore(store))
		require.NoError(t, err)

		require.NoError(t, tg.Insert(ctx, 1, []float32{1, 0, 0, 0, 0, 0, 0, 0}))

		filename := filepath.Join(t.TempDir(), "index.trg")
		require.NoError(t, tg.SaveToFile(ctx, filename))

		restored, err := LoadFromFile(filename, WithStore(store))
		require.NoError(t, err)
		assert.Equal(t, 1, restored.Len())
		assert.True(t, restored.Contains(1))
	})
}
