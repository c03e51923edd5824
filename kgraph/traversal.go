package kgraph

// Roots returns the nodes without predecessors, in encounter order: edge
// sources that never appear as edge targets, followed by nodes that take
// part in no edge at all.
func (g *Graph) Roots() []NodeID {
	targets := make(map[NodeID]bool, len(g.edges))
	inEdge := make(map[NodeID]bool, len(g.edges))
	for _, e := range g.edges {
		targets[e.Child] = true
		inEdge[e.Parent] = true
		inEdge[e.Child] = true
	}

	var roots []NodeID
	seen := make(map[NodeID]bool)
	for _, e := range g.edges {
		if !targets[e.Parent] && !seen[e.Parent] {
			seen[e.Parent] = true
			roots = append(roots, e.Parent)
		}
	}
	for _, id := range g.order {
		if !inEdge[id] {
			roots = append(roots, id)
		}
	}
	return roots
}

// Leaves returns the edge targets that never appear as edge sources, in
// encounter order.
func (g *Graph) Leaves() []NodeID {
	sources := make(map[NodeID]bool, len(g.edges))
	for _, e := range g.edges {
		sources[e.Parent] = true
	}

	var leaves []NodeID
	seen := make(map[NodeID]bool)
	for _, e := range g.edges {
		if !sources[e.Child] && !seen[e.Child] {
			seen[e.Child] = true
			leaves = append(leaves, e.Child)
		}
	}
	return leaves
}

// DFSSeq returns every node in depth-first pre-order from the roots, visiting
// children in edge order. A node is expanded only once all of its
// predecessors have been emitted, so the sequence is a topological order.
func (g *Graph) DFSSeq() []NodeID {
	children := make(map[NodeID][]NodeID, len(g.nodes))
	pending := make(map[NodeID]int, len(g.nodes))
	linked := make(map[Edge]bool, len(g.edges))
	for _, e := range g.edges {
		if linked[e] {
			continue
		}
		linked[e] = true
		children[e.Parent] = append(children[e.Parent], e.Child)
		pending[e.Child]++
	}

	seq := make([]NodeID, 0, len(g.nodes))
	var visit func(NodeID)
	visit = func(id NodeID) {
		seq = append(seq, id)
		for _, child := range children[id] {
			pending[child]--
			if pending[child] == 0 {
				visit(child)
			}
		}
	}

	for _, root := range g.Roots() {
		visit(root)
	}
	return seq
}
