// Package trigo is an embedded approximate nearest-neighbor index that
// trades exactness for a radically cheaper index structure: instead of
// searching in the original high-dimensional space, every embedding is
// deterministically projected onto a fixed 3D basis, assigned a
// space-filling-curve locality key, and stored in an R-tree over the
// projected points.
//
// Queries run in two stages. Stage 1 projects the query vector and collects
// an oversampled candidate window from the R-tree by 3D proximity. Stage 2
// fetches each candidate's original vector from the configured store and
// re-ranks exactly under the requested metric (cosine, dot, or squared L2).
// Recall is tunable through the oversample factor.
//
// The projection is bit-for-bit reproducible for a given (dimension, seed)
// pair, on every platform and across process restarts, so an index snapshot
// written by one process can be restored by another without re-projecting.
//
// Basic usage:
//
//	tg, err := trigo.New(768)
//	if err != nil {
//		log.Fatal(err)
//	}
//
//	_ = tg.Insert(ctx, 1, embedding)
//
//	results, err := tg.Query(ctx, query, 10)
package trigo
