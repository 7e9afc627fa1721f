package engine

import (
	"github.com/hupe1980/trigo/curve"
	"github.com/hupe1980/trigo/distance"
	"github.com/hupe1980/trigo/index/rtree"
)

// DefaultSeed is the basis seed used when none is configured.
const DefaultSeed uint64 = 42

// DefaultOversampleFactor compensates for locality-key and quantization
// imprecision: stage 1 collects topN * factor candidates so that stage 2
// re-ranking can recover neighbors the projection scattered. Raising it
// trades query cost for recall.
const DefaultOversampleFactor = 10

// Options contains configuration options for the engine.
type Options struct {
	// Dimension is the fixed embedding dimensionality for this engine.
	// It must be >= 3 and is enforced for all inserts and queries.
	Dimension int

	// Seed drives deterministic basis construction. The same
	// (Dimension, Seed) pair always yields the same basis, and therefore
	// the same projected points.
	Seed uint64

	// Metric is the default exact scoring metric for queries.
	Metric distance.Metric

	// OversampleFactor scales the stage-1 candidate window. Values < 1 are
	// treated as 1.
	OversampleFactor int

	// CurveOptions configure the locality encoder (quantization bits and
	// value range). Stored with the engine; insert and query encodings
	// always agree.
	CurveOptions []func(o *curve.Options)

	// TreeOptions configure the spatial index (node capacity).
	TreeOptions []func(o *rtree.Options)
}

// DefaultOptions contains the default configuration options for the engine.
var DefaultOptions = Options{
	Dimension:        0,
	Seed:             DefaultSeed,
	Metric:           distance.MetricCosine,
	OversampleFactor: DefaultOversampleFactor,
}

// QueryOptions contains per-query overrides.
type QueryOptions struct {
	// Metric overrides the engine's default scoring metric.
	Metric distance.Metric

	// OversampleFactor overrides the engine's candidate window scale.
	OversampleFactor int
}
