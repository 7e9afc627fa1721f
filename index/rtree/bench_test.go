package rtree

import (
	"context"
	"fmt"
	"testing"

	"github.com/hupe1980/trigo/projection"
)

// BenchmarkNearestWindow measures candidate-scan cost across population
// sizes. The per-query cost should grow near-logarithmically while the tree
// stays balanced.
func BenchmarkNearestWindow(b *testing.B) {
	ctx := context.Background()

	for _, size := range []int{1_000, 10_000, 100_000, 1_000_000} {
		b.Run(fmt.Sprintf("n=%d", size), func(b *testing.B) {
			tree := New()
			tree.BulkLoad(randomEntries(size, 1))

			queries := randomEntries(64, 2)

			b.ResetTimer()
			for i := 0; i < b.N; i++ {
				q := queries[i%len(queries)].Point
				tree.NearestWindow(ctx, q, 100)
			}
		})
	}
}

func BenchmarkInsert(b *testing.B) {
	tree := New()
	entries := randomEntries(b.N, 3)

	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		tree.Insert(entries[i])
	}
}

func BenchmarkBulkLoad(b *testing.B) {
	entries := randomEntries(100_000, 4)

	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		tree := New()
		tree.BulkLoad(entries)
	}
}

var benchSink []Entry

func BenchmarkSearch(b *testing.B) {
	ctx := context.Background()
	tree := New()
	tree.BulkLoad(randomEntries(100_000, 5))

	region := NewRect(
		projection.Point{X: -0.1, Y: -0.1, Z: -0.1},
		projection.Point{X: 0.1, Y: 0.1, Z: 0.1},
	)

	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		var out []Entry
		for e := range tree.Search(ctx, region) {
			out = append(out, e)
		}
		benchSink = out
	}
}
