// Package projection maps arbitrary-dimension embedding vectors onto a fixed
// three-dimensional space using a deterministic orthonormal basis.
//
// The basis for a given (dimension, seed) pair is bit-for-bit reproducible:
// the seed stream comes from an explicit splitmix64 generator owned by this
// package, and every accumulation runs in float64 with a fixed
// left-to-right order. Regenerating a basis on another machine, or years
// later, yields the identical matrix, so projected points computed at insert
// time and at query time always agree.
package projection

import (
	"fmt"
	"math"
)

// ProjectionDim is the fixed dimensionality of the target space.
const ProjectionDim = 3

// maxBuildRetries bounds the number of seed perturbations attempted when a
// drawn vector collapses during orthonormalization.
const maxBuildRetries = 8

// degenerateNorm is the squared-norm threshold below which a residual vector
// is considered collinear with the already-built basis vectors.
const degenerateNorm = 1e-12

// ErrDegenerateBasis indicates that basis construction failed after bounded
// retries because the seeded draws stayed (near-)linearly dependent.
type ErrDegenerateBasis struct {
	Dimension int
	Seed      uint64
	Retries   int
}

func (e *ErrDegenerateBasis) Error() string {
	return fmt.Sprintf("degenerate basis: dimension=%d seed=%d after %d retries", e.Dimension, e.Seed, e.Retries)
}

// ErrInvalidDimension indicates a configured dimension that cannot support
// three mutually orthogonal vectors.
type ErrInvalidDimension struct {
	Dimension int
}

func (e *ErrInvalidDimension) Error() string {
	return fmt.Sprintf("invalid dimension: %d (must be >= %d)", e.Dimension, ProjectionDim)
}

// ErrDimensionMismatch indicates a vector whose length disagrees with the
// basis dimension. The input is never truncated or padded.
type ErrDimensionMismatch struct {
	Expected int
	Actual   int
}

func (e *ErrDimensionMismatch) Error() string {
	return fmt.Sprintf("dimension mismatch: expected %d, got %d", e.Expected, e.Actual)
}

// Point is a projected point in the 3D target space.
type Point struct {
	X, Y, Z float64
}

// Coords returns the point as a fixed-size array, indexable by axis.
func (p Point) Coords() [3]float64 {
	return [3]float64{p.X, p.Y, p.Z}
}

// Basis is a precomputed set of three mutually orthogonal, unit-length
// vectors of a fixed dimension. It is immutable after construction and safe
// to share across goroutines without synchronization.
type Basis struct {
	dimension int
	seed      uint64
	vectors   [ProjectionDim][]float64
}

// Dimension returns the embedding dimension the basis was built for.
func (b *Basis) Dimension() int { return b.dimension }

// Seed returns the seed the basis was built from.
func (b *Basis) Seed() uint64 { return b.seed }

// splitmix64 is the deterministic generator behind basis construction.
// It is implemented here rather than taken from math/rand because the
// stream must stay stable across Go releases and platforms.
type splitmix64 struct {
	state uint64
}

func (s *splitmix64) next() uint64 {
	s.state += 0x9e3779b97f4a7c15
	z := s.state
	z = (z ^ (z >> 30)) * 0xbf58476d1ce4e5b9
	z = (z ^ (z >> 27)) * 0x94d049bb133111eb
	return z ^ (z >> 31)
}

// float64Unit returns a value in [-1, 1) derived from the top 53 bits.
func (s *splitmix64) float64Unit() float64 {
	return float64(s.next()>>11)/float64(1<<52) - 1
}

// Build deterministically generates a three-vector orthonormal basis of the
// given dimension via Gram–Schmidt over a splitmix64 stream seeded with seed.
//
// The same (dimension, seed) pair always yields a bit-identical basis. If an
// orthogonalization step degenerates, the seed is perturbed and construction
// retried a bounded number of times before *ErrDegenerateBasis is returned.
func Build(dimension int, seed uint64) (*Basis, error) {
	if dimension < ProjectionDim {
		return nil, &ErrInvalidDimension{Dimension: dimension}
	}

	for retry := 0; retry <= maxBuildRetries; retry++ {
		// The perturbation itself is deterministic: retry r of seed s is
		// always the same stream.
		attemptSeed := seed + uint64(retry)*0x9e3779b97f4a7c15
		vectors, ok := buildAttempt(dimension, attemptSeed)
		if ok {
			return &Basis{
				dimension: dimension,
				seed:      seed,
				vectors:   vectors,
			}, nil
		}
	}

	return nil, &ErrDegenerateBasis{Dimension: dimension, Seed: seed, Retries: maxBuildRetries}
}

func buildAttempt(dimension int, seed uint64) ([ProjectionDim][]float64, bool) {
	var vectors [ProjectionDim][]float64

	rng := splitmix64{state: seed}
	for i := 0; i < ProjectionDim; i++ {
		v := make([]float64, dimension)
		for j := range v {
			v[j] = rng.float64Unit()
		}

		// Subtract projections onto the previously accepted vectors.
		for k := 0; k < i; k++ {
			var dot float64
			for j := range v {
				dot += v[j] * vectors[k][j]
			}
			for j := range v {
				v[j] -= dot * vectors[k][j]
			}
		}

		var norm2 float64
		for j := range v {
			norm2 += v[j] * v[j]
		}
		if norm2 < degenerateNorm {
			return vectors, false
		}

		inv := 1 / math.Sqrt(norm2)
		for j := range v {
			v[j] *= inv
		}
		vectors[i] = v
	}

	return vectors, true
}

// Project computes the projected point of v under the basis: three dot
// products accumulated in float64, fixed order. Pure function; repeated
// calls on equal input yield bit-identical points.
func (b *Basis) Project(v []float32) (Point, error) {
	if len(v) != b.dimension {
		return Point{}, &ErrDimensionMismatch{Expected: b.dimension, Actual: len(v)}
	}

	var coords [ProjectionDim]float64
	for axis := 0; axis < ProjectionDim; axis++ {
		bv := b.vectors[axis]
		var sum float64
		for j := range v {
			sum += float64(v[j]) * bv[j]
		}
		coords[axis] = sum
	}

	return Point{X: coords[0], Y: coords[1], Z: coords[2]}, nil
}

// Vector returns a copy of the axis-th basis vector. Intended for
// diagnostics and tests; axis must be in [0, ProjectionDim).
func (b *Basis) Vector(axis int) []float64 {
	out := make([]float64, b.dimension)
	copy(out, b.vectors[axis])
	return out
}
