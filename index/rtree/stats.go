package rtree

// Stats describes the structural shape of a tree.
type Stats struct {
	// Size is the number of stored entries.
	Size int

	// Height is the number of levels, counting the root.
	Height int

	// LeafNodes and InternalNodes count nodes per kind.
	LeafNodes     int
	InternalNodes int

	// MaxEntries and MinEntries echo the configured fill bounds.
	MaxEntries int
	MinEntries int
}

func measure(n *node, depth int, s *Stats) {
	if depth > s.Height {
		s.Height = depth
	}
	if n.leaf {
		s.LeafNodes++
		return
	}
	s.InternalNodes++
	for _, c := range n.children {
		measure(c, depth+1, s)
	}
}
