// Package tensor adapts the query engine for model-parameter consumers that
// treat each scalar parameter (or small parameter group) as an embedding
// point keyed by its structural coordinates. It is a thin specialization:
// no new algorithms, only an id-space convention over the engine's public
// operations. Weight-update and pruning policy live with the caller.
package tensor

import (
	"context"

	"github.com/hupe1980/trigo/engine"
)

// ParamRef identifies a parameter by its structural coordinates.
type ParamRef struct {
	// Layer is the owning layer index.
	Layer uint32

	// Position is the parameter's position within the layer.
	Position uint32
}

// ID packs the coordinates into the engine's 64-bit id space.
func (r ParamRef) ID() uint64 {
	return uint64(r.Layer)<<32 | uint64(r.Position)
}

// RefFromID unpacks an engine id back into coordinates.
func RefFromID(id uint64) ParamRef {
	return ParamRef{Layer: uint32(id >> 32), Position: uint32(id)}
}

// Match is a scored parameter result.
type Match struct {
	Ref   ParamRef
	Score float64
}

// Adapter exposes the engine under parameter-coordinate addressing.
type Adapter struct {
	engine *engine.Engine
}

// NewAdapter creates a new adapter over an existing engine.
func NewAdapter(e *engine.Engine) *Adapter {
	return &Adapter{engine: e}
}

// Upsert indexes (or re-indexes) the parameter's embedding.
func (a *Adapter) Upsert(ctx context.Context, ref ParamRef, embedding []float32) error {
	return a.engine.Insert(ctx, ref.ID(), embedding)
}

// Remove drops the parameter from the index.
func (a *Adapter) Remove(ctx context.Context, ref ParamRef) error {
	return a.engine.Delete(ctx, ref.ID())
}

// Nearest returns the topN parameters most similar to the embedding under
// the engine's default metric.
func (a *Adapter) Nearest(ctx context.Context, embedding []float32, topN int, optFns ...func(o *engine.QueryOptions)) ([]Match, error) {
	results, err := a.engine.Query(ctx, embedding, topN, optFns...)
	if err != nil {
		return nil, err
	}

	matches := make([]Match, len(results))
	for i, r := range results {
		matches[i] = Match{Ref: RefFromID(r.ID), Score: r.Score}
	}
	return matches, nil
}
