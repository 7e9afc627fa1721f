package trigo

import (
	"github.com/hupe1980/trigo/curve"
	"github.com/hupe1980/trigo/distance"
	"github.com/hupe1980/trigo/engine"
	"github.com/hupe1980/trigo/index/rtree"
)

// Options contains configuration options for TriGo.
type Options struct {
	// Dimension is the fixed embedding dimensionality. Required; must be
	// >= 3 and is enforced for every insert and query.
	Dimension int

	// Seed drives deterministic projection basis construction. Two instances
	// configured with the same (Dimension, Seed) produce identical projected
	// points for identical inputs.
	Seed uint64

	// Metric is the default exact scoring metric for queries.
	Metric distance.Metric

	// OversampleFactor scales the stage-1 candidate window. Values < 1 are
	// treated as 1.
	OversampleFactor int

	// CurveOptions configure the locality encoder (quantization bits and
	// value range).
	CurveOptions []func(o *curve.Options)

	// TreeOptions configure the spatial index (node capacity).
	TreeOptions []func(o *rtree.Options)

	// Store holds the original high-dimensional vectors. Defaults to an
	// in-memory map store.
	Store engine.VectorStore

	// Logger is used for operational logging. Defaults to a no-op logger.
	Logger *Logger

	// Metrics collects operation timings and error counts. Defaults to a
	// no-op collector.
	Metrics MetricsCollector
}

// DefaultOptions contains the default configuration options for TriGo.
var DefaultOptions = Options{
	Seed:             engine.DefaultSeed,
	Metric:           distance.MetricCosine,
	OversampleFactor: engine.DefaultOversampleFactor,
}

// WithLogger configures a logger.
func WithLogger(logger *Logger) func(o *Options) {
	return func(o *Options) {
		o.Logger = logger
	}
}

// WithMetrics configures a metrics collector.
func WithMetrics(metrics MetricsCollector) func(o *Options) {
	return func(o *Options) {
		o.Metrics = metrics
	}
}

// WithStore configures the vector store backing the index.
func WithStore(store engine.VectorStore) func(o *Options) {
	return func(o *Options) {
		o.Store = store
	}
}

// WithSeed configures the projection basis seed.
func WithSeed(seed uint64) func(o *Options) {
	return func(o *Options) {
		o.Seed = seed
	}
}

// WithMetric configures the default scoring metric.
func WithMetric(metric distance.Metric) func(o *Options) {
	return func(o *Options) {
		o.Metric = metric
	}
}

// WithOversampleFactor configures the stage-1 candidate window scale.
func WithOversampleFactor(factor int) func(o *Options) {
	return func(o *Options) {
		o.OversampleFactor = factor
	}
}
