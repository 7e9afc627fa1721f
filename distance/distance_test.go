package distance

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDot(t *testing.T) {
	t.Run("Orthogonal", func(t *testing.T) {
		assert.Equal(t, 0.0, Dot([]float32{1, 0}, []float32{0, 1}))
	})

	t.Run("Parallel", func(t *testing.T) {
		assert.Equal(t, 14.0, Dot([]float32{1, 2, 3}, []float32{1, 2, 3}))
	})

	t.Run("Deterministic", func(t *testing.T) {
		a := []float32{0.1, 0.2, 0.3, 0.4, 0.5}
		b := []float32{0.5, 0.4, 0.3, 0.2, 0.1}
		first := Dot(a, b)
		for i := 0; i < 100; i++ {
			assert.Equal(t, first, Dot(a, b))
		}
	})
}

func TestSquaredL2(t *testing.T) {
	t.Run("Identical", func(t *testing.T) {
		assert.Equal(t, 0.0, SquaredL2([]float32{1, 2, 3}, []float32{1, 2, 3}))
	})

	t.Run("UnitApart", func(t *testing.T) {
		assert.Equal(t, 1.0, SquaredL2([]float32{0, 0}, []float32{1, 0}))
	})

	t.Run("Symmetric", func(t *testing.T) {
		a := []float32{1, 2, 3}
		b := []float32{4, 5, 6}
		assert.Equal(t, SquaredL2(a, b), SquaredL2(b, a))
	})
}

func TestCosine(t *testing.T) {
	t.Run("Identical", func(t *testing.T) {
		assert.InDelta(t, 1.0, Cosine([]float32{1, 2, 3}, []float32{1, 2, 3}), 1e-12)
	})

	t.Run("Orthogonal", func(t *testing.T) {
		assert.Equal(t, 0.0, Cosine([]float32{1, 0}, []float32{0, 1}))
	})

	t.Run("Opposite", func(t *testing.T) {
		assert.InDelta(t, -1.0, Cosine([]float32{1, 0}, []float32{-1, 0}), 1e-12)
	})

	t.Run("ZeroMagnitude", func(t *testing.T) {
		assert.Equal(t, 0.0, Cosine([]float32{0, 0}, []float32{1, 1}))
	})

	t.Run("ScaleInvariant", func(t *testing.T) {
		a := []float32{1, 2, 3}
		b := []float32{2, 4, 6}
		assert.InDelta(t, 1.0, Cosine(a, b), 1e-12)
	})
}

func TestMetric(t *testing.T) {
	t.Run("Descending", func(t *testing.T) {
		assert.True(t, MetricCosine.Descending())
		assert.True(t, MetricDot.Descending())
		assert.False(t, MetricSquaredL2.Descending())
	})

	t.Run("String", func(t *testing.T) {
		assert.Equal(t, "Cosine", MetricCosine.String())
		assert.Equal(t, "Dot", MetricDot.String())
		assert.Equal(t, "SquaredL2", MetricSquaredL2.String())
		assert.Contains(t, Metric(99).String(), "Unknown")
	})
}

func TestProvider(t *testing.T) {
	t.Run("Known", func(t *testing.T) {
		for _, m := range []Metric{MetricCosine, MetricDot, MetricSquaredL2} {
			fn, err := Provider(m)
			require.NoError(t, err)
			require.NotNil(t, fn)
		}
	})

	t.Run("Unknown", func(t *testing.T) {
		_, err := Provider(Metric(99))
		require.Error(t, err)
	})
}
