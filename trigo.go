package trigo

import (
	"context"
	"io"
	"time"

	"github.com/hupe1980/trigo/curve"
	"github.com/hupe1980/trigo/distance"
	"github.com/hupe1980/trigo/engine"
	"github.com/hupe1980/trigo/persistence"
)

// Result is a single scored query result.
type Result = engine.Result

// Item is a single (id, embedding) pair for batch ingestion.
type Item = engine.Item

// TriGo is the top-level handle: a deterministic 3D-projection index over
// high-dimensional embeddings with two-stage approximate nearest-neighbor
// queries. All methods are safe for concurrent use.
type TriGo struct {
	engine  *engine.Engine
	logger  *Logger
	metrics MetricsCollector
}

// New creates a new TriGo instance. Dimension is required.
func New(dimension int, optFns ...func(o *Options)) (*TriGo, error) {
	opts := DefaultOptions
	opts.Dimension = dimension
	for _, fn := range optFns {
		fn(&opts)
	}

	return fromOptions(opts)
}

func fromOptions(opts Options) (*TriGo, error) {
	store := opts.Store
	if store == nil {
		store = engine.NewMapStore()
	}

	e, err := engine.New(store, func(o *engine.Options) {
		o.Dimension = opts.Dimension
		o.Seed = opts.Seed
		o.Metric = opts.Metric
		o.OversampleFactor = opts.OversampleFactor
		o.CurveOptions = opts.CurveOptions
		o.TreeOptions = opts.TreeOptions
	})
	if err != nil {
		return nil, translateError(err)
	}

	logger := opts.Logger
	if logger == nil {
		logger = NoopLogger()
	}

	metrics := opts.Metrics
	if metrics == nil {
		metrics = NoopMetricsCollector{}
	}

	return &TriGo{
		engine:  e,
		logger:  logger,
		metrics: metrics,
	}, nil
}

// Dimension returns the configured embedding dimension.
func (t *TriGo) Dimension() int { return t.engine.Dimension() }

// Seed returns the projection basis seed.
func (t *TriGo) Seed() uint64 { return t.engine.Seed() }

// Metric returns the default scoring metric.
func (t *TriGo) Metric() distance.Metric { return t.engine.Metric() }

// Len returns the number of indexed vectors.
func (t *TriGo) Len() int { return t.engine.Len() }

// Contains reports whether the given ID is indexed.
func (t *TriGo) Contains(id uint64) bool { return t.engine.Contains(id) }

// Engine exposes the underlying query engine for advanced consumers such as
// the tensor adapter.
func (t *TriGo) Engine() *engine.Engine { return t.engine }

// Insert indexes the vector under the given ID. Inserting an existing ID
// replaces the previous vector (upsert).
func (t *TriGo) Insert(ctx context.Context, id uint64, vector []float32) error {
	start := time.Now()
	err := translateError(t.engine.Insert(ctx, id, vector))
	t.metrics.RecordInsert(time.Since(start), err)
	t.logger.LogInsert(ctx, id, len(vector), err)
	return err
}

// Delete removes the vector with the given ID from the index and store.
func (t *TriGo) Delete(ctx context.Context, id uint64) error {
	start := time.Now()
	err := translateError(t.engine.Delete(ctx, id))
	t.metrics.RecordDelete(time.Since(start), err)
	t.logger.LogDelete(ctx, id, err)
	return err
}

// Query returns the topN nearest neighbors of the query vector, scored
// exactly under the configured (or per-query overridden) metric. The search
// is approximate; raise the oversample factor to trade cost for recall.
func (t *TriGo) Query(ctx context.Context, vector []float32, topN int, optFns ...func(o *engine.QueryOptions)) ([]Result, error) {
	start := time.Now()
	results, err := t.engine.Query(ctx, vector, topN, optFns...)
	err = translateError(err)
	t.metrics.RecordQuery(topN, time.Since(start), err)
	t.logger.LogQuery(ctx, topN, len(results), err)
	return results, err
}

// BulkLoad ingests a batch of vectors into a freshly packed index. Faster
// than repeated Insert for large batches.
func (t *TriGo) BulkLoad(ctx context.Context, items []Item) error {
	start := time.Now()
	err := translateError(t.engine.BulkLoad(ctx, items))
	t.metrics.RecordRebuild(len(items), time.Since(start), err)
	t.logger.LogRebuild(ctx, len(items), err)
	return err
}

// Rebuild repacks the spatial index into a fresh balanced tree. Use after
// heavy delete churn.
func (t *TriGo) Rebuild(ctx context.Context, optFns ...func(o *engine.RebuildOptions)) error {
	start := time.Now()
	err := translateError(t.engine.Rebuild(ctx, optFns...))
	t.metrics.RecordRebuild(t.engine.Len(), time.Since(start), err)
	t.logger.LogRebuild(ctx, t.engine.Len(), err)
	return err
}

// Stats returns population and index-shape statistics.
func (t *TriGo) Stats() engine.Stats { return t.engine.Stats() }

// SaveToWriter writes a snapshot of the index to w. The snapshot holds the
// configuration and the projected entries, not the original vectors; those
// stay in the vector store.
func (t *TriGo) SaveToWriter(w io.Writer, optFns ...func(o *persistence.Options)) error {
	return persistence.Save(w, t.snapshot(), optFns...)
}

// SaveToFile writes a snapshot of the index to a file.
func (t *TriGo) SaveToFile(ctx context.Context, filename string, optFns ...func(o *persistence.Options)) error {
	err := persistence.SaveToFile(filename, t.snapshot(), optFns...)
	t.logger.LogSnapshot(ctx, filename, err)
	return err
}

func (t *TriGo) snapshot() *persistence.Snapshot {
	enc := t.engine.Encoder()
	min, max := enc.Range()
	return &persistence.Snapshot{
		Dimension:        t.engine.Dimension(),
		Seed:             t.engine.Seed(),
		Metric:           t.engine.Metric(),
		OversampleFactor: t.engine.OversampleFactor(),
		BitsPerDim:       enc.BitsPerDim(),
		RangeMin:         min,
		RangeMax:         max,
		Entries:          t.engine.Entries(),
	}
}

// LoadFromReader reconstructs an index from a snapshot. The configuration
// (dimension, seed, metric, encoder) comes from the snapshot; the vector
// store must already hold the original vectors, or queries will silently
// skip candidates whose vectors are missing.
func LoadFromReader(r io.Reader, optFns ...func(o *Options)) (*TriGo, error) {
	snap, err := persistence.Load(r)
	if err != nil {
		return nil, err
	}

	return fromSnapshot(snap, optFns...)
}

// LoadFromFile reconstructs an index from a snapshot file.
func LoadFromFile(filename string, optFns ...func(o *Options)) (*TriGo, error) {
	snap, err := persistence.LoadFromFile(filename)
	if err != nil {
		return nil, err
	}

	return fromSnapshot(snap, optFns...)
}

func fromSnapshot(snap *persistence.Snapshot, optFns ...func(o *Options)) (*TriGo, error) {
	opts := DefaultOptions
	for _, fn := range optFns {
		fn(&opts)
	}

	opts.Dimension = snap.Dimension
	opts.Seed = snap.Seed
	opts.Metric = snap.Metric
	opts.OversampleFactor = snap.OversampleFactor
	opts.CurveOptions = []func(o *curve.Options){
		func(o *curve.Options) {
			o.BitsPerDim = snap.BitsPerDim
			o.Min = snap.RangeMin
			o.Max = snap.RangeMax
		},
	}

	t, err := fromOptions(opts)
	if err != nil {
		return nil, err
	}

	t.engine.Restore(snap.Entries)
	return t, nil
}
