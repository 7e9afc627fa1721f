// Package distance provides the exact similarity and distance functions used
// for stage-2 re-ranking.
//
// All functions accumulate in float64 with a fixed left-to-right order. This
// is deliberate: the projection layer shares the same discipline, and its
// reproducibility contract requires bit-identical results for identical
// inputs on every platform. Do not replace the loops with order-sensitive
// parallel or SIMD reductions.
package distance

import (
	"fmt"
	"math"
)

// Dot calculates the dot product of two vectors.
// Assumes vectors are the same length (caller's responsibility).
func Dot(a, b []float32) float64 {
	var sum float64
	for i := range a {
		sum += float64(a[i]) * float64(b[i])
	}
	return sum
}

// SquaredL2 calculates the squared L2 (Euclidean) distance between two vectors.
// Assumes vectors are the same length (caller's responsibility).
func SquaredL2(a, b []float32) float64 {
	var sum float64
	for i := range a {
		d := float64(a[i]) - float64(b[i])
		sum += d * d
	}
	return sum
}

// Magnitude calculates the L2 norm of v.
func Magnitude(v []float32) float64 {
	return math.Sqrt(Dot(v, v))
}

// Cosine calculates the cosine similarity between two vectors.
// A zero-magnitude operand yields a similarity of 0.
func Cosine(a, b []float32) float64 {
	ma := Magnitude(a)
	mb := Magnitude(b)
	if ma == 0 || mb == 0 {
		return 0
	}
	return Dot(a, b) / (ma * mb)
}

// Metric represents the scoring function used for exact re-ranking.
type Metric int

const (
	// MetricCosine scores by cosine similarity (higher is better).
	MetricCosine Metric = iota
	// MetricDot scores by dot product (higher is better).
	MetricDot
	// MetricSquaredL2 scores by squared Euclidean distance (lower is better).
	MetricSquaredL2
)

func (m Metric) String() string {
	switch m {
	case MetricCosine:
		return "Cosine"
	case MetricDot:
		return "Dot"
	case MetricSquaredL2:
		return "SquaredL2"
	default:
		return fmt.Sprintf("Unknown(%d)", int(m))
	}
}

// Descending reports whether higher scores rank first under the metric.
func (m Metric) Descending() bool {
	return m != MetricSquaredL2
}

// Func is a function type for exact score calculation.
type Func func(a, b []float32) float64

// Provider returns the scoring function for the given metric.
func Provider(m Metric) (Func, error) {
	switch m {
	case MetricCosine:
		return Cosine, nil
	case MetricDot:
		return Dot, nil
	case MetricSquaredL2:
		return SquaredL2, nil
	default:
		return nil, fmt.Errorf("unsupported metric: %v", m)
	}
}
