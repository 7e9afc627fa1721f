package rtree

import (
	"math"

	"github.com/hupe1980/trigo/projection"
)

// Rect is an axis-aligned bounding box in the 3D projection space.
type Rect struct {
	Min, Max [3]float64
}

// pointRect returns the zero-extent rectangle covering a single point.
// Zero-width regions are valid everywhere in the tree.
func pointRect(p projection.Point) Rect {
	c := p.Coords()
	return Rect{Min: c, Max: c}
}

// NewRect returns the rectangle spanning the two corner points, normalizing
// the per-axis ordering.
func NewRect(a, b projection.Point) Rect {
	ac, bc := a.Coords(), b.Coords()
	var r Rect
	for i := 0; i < 3; i++ {
		r.Min[i] = math.Min(ac[i], bc[i])
		r.Max[i] = math.Max(ac[i], bc[i])
	}
	return r
}

func (r Rect) union(o Rect) Rect {
	var u Rect
	for i := 0; i < 3; i++ {
		u.Min[i] = math.Min(r.Min[i], o.Min[i])
		u.Max[i] = math.Max(r.Max[i], o.Max[i])
	}
	return u
}

func (r Rect) area() float64 {
	a := 1.0
	for i := 0; i < 3; i++ {
		a *= r.Max[i] - r.Min[i]
	}
	return a
}

func (r Rect) intersects(o Rect) bool {
	for i := 0; i < 3; i++ {
		if r.Min[i] > o.Max[i] || r.Max[i] < o.Min[i] {
			return false
		}
	}
	return true
}

func (r Rect) containsPoint(p projection.Point) bool {
	c := p.Coords()
	for i := 0; i < 3; i++ {
		if c[i] < r.Min[i] || c[i] > r.Max[i] {
			return false
		}
	}
	return true
}

// minDistSquared returns the squared distance from p to the nearest point of
// the rectangle (0 if p lies inside).
func (r Rect) minDistSquared(p projection.Point) float64 {
	c := p.Coords()
	var sum float64
	for i := 0; i < 3; i++ {
		switch {
		case c[i] < r.Min[i]:
			d := r.Min[i] - c[i]
			sum += d * d
		case c[i] > r.Max[i]:
			d := c[i] - r.Max[i]
			sum += d * d
		}
	}
	return sum
}

func pointDistSquared(a, b projection.Point) float64 {
	dx := a.X - b.X
	dy := a.Y - b.Y
	dz := a.Z - b.Z
	return dx*dx + dy*dy + dz*dz
}

// node is a tree node. Leaves hold entries; internal nodes hold children.
// rect always covers everything below — the covering invariant every
// mutation must restore before releasing the write lock.
type node struct {
	parent   *node
	rect     Rect
	leaf     bool
	entries  []Entry
	children []*node
}

func newLeaf() *node {
	return &node{leaf: true}
}

func newInternal() *node {
	return &node{}
}

func (n *node) overflowing(maxEntries int) bool {
	if n.leaf {
		return len(n.entries) > maxEntries
	}
	return len(n.children) > maxEntries
}

func (n *node) underflowing(minEntries int) bool {
	if n.leaf {
		return len(n.entries) < minEntries
	}
	return len(n.children) < minEntries
}

func (n *node) recomputeRect() {
	if n.leaf {
		if len(n.entries) == 0 {
			n.rect = Rect{}
			return
		}
		r := pointRect(n.entries[0].Point)
		for _, e := range n.entries[1:] {
			r = r.union(pointRect(e.Point))
		}
		n.rect = r
		return
	}
	if len(n.children) == 0 {
		n.rect = Rect{}
		return
	}
	r := n.children[0].rect
	for _, c := range n.children[1:] {
		r = r.union(c.rect)
	}
	n.rect = r
}

func (n *node) replaceChild(old, left, right *node) {
	for i, c := range n.children {
		if c == old {
			n.children[i] = left
			break
		}
	}
	n.children = append(n.children, right)
	left.parent = n
	right.parent = n
	n.recomputeRect()
}

func (n *node) removeChild(child *node) {
	for i, c := range n.children {
		if c == child {
			n.children[i] = n.children[len(n.children)-1]
			n.children[len(n.children)-1] = nil
			n.children = n.children[:len(n.children)-1]
			break
		}
	}
	n.recomputeRect()
}

// split divides an overflowing node into two using the quadratic heuristic:
// seed with the pair wasting the most area together, then assign the rest to
// the group whose rectangle grows least, forcing assignment when a group
// must absorb all remaining items to reach minimum fill.
func (n *node) split(minEntries int) (left, right *node) {
	if n.leaf {
		return n.splitLeaf(minEntries)
	}
	return n.splitInternal(minEntries)
}

func (n *node) splitLeaf(minEntries int) (left, right *node) {
	rects := make([]Rect, len(n.entries))
	for i, e := range n.entries {
		rects[i] = pointRect(e.Point)
	}
	groupA, groupB := quadraticPartition(rects, minEntries)

	left = newLeaf()
	right = newLeaf()
	for _, i := range groupA {
		left.entries = append(left.entries, n.entries[i])
	}
	for _, i := range groupB {
		right.entries = append(right.entries, n.entries[i])
	}
	left.recomputeRect()
	right.recomputeRect()
	return left, right
}

func (n *node) splitInternal(minEntries int) (left, right *node) {
	rects := make([]Rect, len(n.children))
	for i, c := range n.children {
		rects[i] = c.rect
	}
	groupA, groupB := quadraticPartition(rects, minEntries)

	left = newInternal()
	right = newInternal()
	for _, i := range groupA {
		c := n.children[i]
		c.parent = left
		left.children = append(left.children, c)
	}
	for _, i := range groupB {
		c := n.children[i]
		c.parent = right
		right.children = append(right.children, c)
	}
	left.recomputeRect()
	right.recomputeRect()
	return left, right
}

// quadraticPartition distributes rect indices into two groups per the
// quadratic split heuristic and returns the index groups.
func quadraticPartition(rects []Rect, minEntries int) (groupA, groupB []int) {
	seedA, seedB := pickSeeds(rects)

	groupA = []int{seedA}
	groupB = []int{seedB}
	rectA := rects[seedA]
	rectB := rects[seedB]

	remaining := make([]int, 0, len(rects)-2)
	for i := range rects {
		if i != seedA && i != seedB {
			remaining = append(remaining, i)
		}
	}

	for len(remaining) > 0 {
		// Forced assignment when a group needs every remaining item to
		// reach minimum fill.
		if len(groupA)+len(remaining) <= minEntries {
			for _, i := range remaining {
				groupA = append(groupA, i)
				rectA = rectA.union(rects[i])
			}
			break
		}
		if len(groupB)+len(remaining) <= minEntries {
			for _, i := range remaining {
				groupB = append(groupB, i)
				rectB = rectB.union(rects[i])
			}
			break
		}

		// Pick the item with the strongest preference for one group.
		bestIdx := -1
		bestDiff := -1.0
		for pos, i := range remaining {
			dA := rectA.union(rects[i]).area() - rectA.area()
			dB := rectB.union(rects[i]).area() - rectB.area()
			diff := math.Abs(dA - dB)
			if diff > bestDiff {
				bestDiff = diff
				bestIdx = pos
			}
		}

		i := remaining[bestIdx]
		remaining[bestIdx] = remaining[len(remaining)-1]
		remaining = remaining[:len(remaining)-1]

		dA := rectA.union(rects[i]).area() - rectA.area()
		dB := rectB.union(rects[i]).area() - rectB.area()
		switch {
		case dA < dB:
			groupA = append(groupA, i)
			rectA = rectA.union(rects[i])
		case dB < dA:
			groupB = append(groupB, i)
			rectB = rectB.union(rects[i])
		case len(groupA) <= len(groupB):
			groupA = append(groupA, i)
			rectA = rectA.union(rects[i])
		default:
			groupB = append(groupB, i)
			rectB = rectB.union(rects[i])
		}
	}

	return groupA, groupB
}

// pickSeeds returns the pair of rects that would waste the most area if
// placed in one group.
func pickSeeds(rects []Rect) (int, int) {
	seedA, seedB := 0, 1
	worst := math.Inf(-1)
	for i := 0; i < len(rects); i++ {
		for j := i + 1; j < len(rects); j++ {
			waste := rects[i].union(rects[j]).area() - rects[i].area() - rects[j].area()
			if waste > worst {
				worst = waste
				seedA, seedB = i, j
			}
		}
	}
	return seedA, seedB
}
