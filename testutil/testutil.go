// Package testutil provides helpers for generating test vectors and
// computing ground-truth results for recall measurement.
package testutil

import (
	"math/rand"
	"sort"

	"github.com/hupe1980/trigo/distance"
)

// RandomVectors generates count random vectors of the given dimension with
// components in [-1, 1), using a fixed seed for reproducible tests.
func RandomVectors(count, dimension int, seed int64) [][]float32 {
	rng := rand.New(rand.NewSource(seed))
	vectors := make([][]float32, count)
	for i := range vectors {
		v := make([]float32, dimension)
		for j := range v {
			v[j] = rng.Float32()*2 - 1
		}
		vectors[i] = v
	}
	return vectors
}

// GaussianVectors generates count vectors with normally distributed
// components. Gaussian data spreads uniformly over directions, which makes
// it the harder case for locality-based candidate windows.
func GaussianVectors(count, dimension int, seed int64) [][]float32 {
	rng := rand.New(rand.NewSource(seed))
	vectors := make([][]float32, count)
	for i := range vectors {
		v := make([]float32, dimension)
		for j := range v {
			v[j] = float32(rng.NormFloat64())
		}
		vectors[i] = v
	}
	return vectors
}

// RandomUnitVectors generates count random vectors normalized to unit
// length.
func RandomUnitVectors(count, dimension int, seed int64) [][]float32 {
	vectors := RandomVectors(count, dimension, seed)
	for _, v := range vectors {
		mag := distance.Magnitude(v)
		if mag == 0 {
			continue
		}
		for j := range v {
			v[j] = float32(float64(v[j]) / mag)
		}
	}
	return vectors
}

// ScoredID pairs a vector ID with its exact score against a query.
type ScoredID struct {
	ID    uint64
	Score float64
}

// BruteForceSearch computes the exact topN nearest neighbors of query over
// the given (id, vector) pairs under the metric. Ties are broken by
// ascending ID, matching the engine's ordering contract.
func BruteForceSearch(query []float32, vectors map[uint64][]float32, topN int, metric distance.Metric) []ScoredID {
	score, err := distance.Provider(metric)
	if err != nil {
		panic(err)
	}

	scored := make([]ScoredID, 0, len(vectors))
	for id, v := range vectors {
		scored = append(scored, ScoredID{ID: id, Score: score(query, v)})
	}

	descending := metric.Descending()
	sort.Slice(scored, func(i, j int) bool {
		if scored[i].Score != scored[j].Score {
			if descending {
				return scored[i].Score > scored[j].Score
			}
			return scored[i].Score < scored[j].Score
		}
		return scored[i].ID < scored[j].ID
	})

	if len(scored) > topN {
		scored = scored[:topN]
	}
	return scored
}

// ComputeRecall returns the fraction of ground-truth IDs present in the
// approximate result set.
func ComputeRecall(approximate []uint64, groundTruth []ScoredID) float64 {
	if len(groundTruth) == 0 {
		return 1
	}

	truth := make(map[uint64]struct{}, len(groundTruth))
	for _, g := range groundTruth {
		truth[g.ID] = struct{}{}
	}

	var hits int
	for _, id := range approximate {
		if _, ok := truth[id]; ok {
			hits++
		}
	}
	return float64(hits) / float64(len(groundTruth))
}
