package kgraph

import (
	"fmt"

	"golang.org/x/exp/maps"
	"golang.org/x/exp/slices"

	"github.com/birdayz/nngraph/kbuffer"
)

// Edge is a data dependency from Parent to Child.
type Edge struct {
	Parent NodeID
	Child  NodeID
}

// BufferEntry is a graph-owned buffer and its gradient. Gradient stays nil
// until the execution engine attaches one.
type BufferEntry struct {
	Data     *kbuffer.Buffer
	Gradient *kbuffer.Buffer
}

// Graph is an immutable computation graph.
//
// Every update returns a new Graph; unchanged nodes and buffers are shared
// with the previous value, which stays valid. A Graph is safe for concurrent
// reads.
type Graph struct {
	edges   []Edge
	nodes   map[NodeID]*Node
	order   []NodeID
	buffers map[BufferID]BufferEntry
	bufIDs  []BufferID
}

// New creates an empty graph.
func New() *Graph {
	return &Graph{
		nodes:   make(map[NodeID]*Node),
		buffers: make(map[BufferID]BufferEntry),
	}
}

// clone copies the maps and clips the slices so the copy can be updated
// without affecting g.
func (g *Graph) clone() *Graph {
	c := &Graph{
		edges:   slices.Clip(g.edges),
		nodes:   maps.Clone(g.nodes),
		order:   slices.Clip(g.order),
		buffers: maps.Clone(g.buffers),
		bufIDs:  slices.Clip(g.bufIDs),
	}
	if c.nodes == nil {
		c.nodes = make(map[NodeID]*Node)
	}
	if c.buffers == nil {
		c.buffers = make(map[BufferID]BufferEntry)
	}
	return c
}

// Len returns the number of nodes.
func (g *Graph) Len() int {
	return len(g.order)
}

// Node returns a copy of the node with the given id.
func (g *Graph) Node(id NodeID) (*Node, bool) {
	n, ok := g.nodes[id]
	if !ok {
		return nil, false
	}
	return n.Clone(), true
}

// NodeIDs returns all node ids in insertion order.
func (g *Graph) NodeIDs() []NodeID {
	return slices.Clone(g.order)
}

// Nodes returns copies of all nodes in insertion order.
func (g *Graph) Nodes() []*Node {
	out := make([]*Node, len(g.order))
	for i, id := range g.order {
		out[i] = g.nodes[id].Clone()
	}
	return out
}

// Edges returns all edges in insertion order.
func (g *Graph) Edges() []Edge {
	return slices.Clone(g.edges)
}

// Parents returns the distinct predecessors of id in edge order.
func (g *Graph) Parents(id NodeID) []NodeID {
	var out []NodeID
	for _, e := range g.edges {
		if e.Child == id && !slices.Contains(out, e.Parent) {
			out = append(out, e.Parent)
		}
	}
	return out
}

// Children returns the distinct successors of id in edge order.
func (g *Graph) Children(id NodeID) []NodeID {
	var out []NodeID
	for _, e := range g.edges {
		if e.Parent == id && !slices.Contains(out, e.Child) {
			out = append(out, e.Child)
		}
	}
	return out
}

// Buffer returns the buffer entry stored under id.
func (g *Graph) Buffer(id BufferID) (BufferEntry, bool) {
	b, ok := g.buffers[id]
	return b, ok
}

// BufferIDs returns all buffer ids in allocation order.
func (g *Graph) BufferIDs() []BufferID {
	return slices.Clone(g.bufIDs)
}

// WithBuffer returns a graph whose buffer id holds data. An existing gradient
// is dropped. It is used to load persisted weights before parameters are
// generated.
func (g *Graph) WithBuffer(id BufferID, data *kbuffer.Buffer) (*Graph, error) {
	if data == nil {
		return nil, fmt.Errorf("buffer %s: data cannot be nil", id)
	}
	c := g.clone()
	if _, exists := c.buffers[id]; !exists {
		c.bufIDs = append(c.bufIDs, id)
	}
	c.buffers[id] = BufferEntry{Data: data}
	return c, nil
}

// WithGradient returns a graph in which the buffer id carries grad. The
// gradient must have the buffer's shape.
func (g *Graph) WithGradient(id BufferID, grad *kbuffer.Buffer) (*Graph, error) {
	entry, ok := g.buffers[id]
	if !ok {
		return nil, fmt.Errorf("%w: buffer %s", ErrUnresolvedParameter, id)
	}
	if grad != nil && !grad.Shape().Equal(entry.Data.Shape()) {
		return nil, fmt.Errorf("%w: gradient for %s has shape %v, buffer has %v",
			ErrShapeMismatch, id, grad.Shape(), entry.Data.Shape())
	}
	c := g.clone()
	entry.Gradient = grad
	c.buffers[id] = entry
	return c, nil
}

// ReplaceNode returns a graph in which the node with n's id is replaced by a
// copy of n. Edges are kept. The node type cannot change.
func (g *Graph) ReplaceNode(n *Node) (*Graph, error) {
	old, ok := g.nodes[n.ID]
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrNodeNotFound, n.ID)
	}
	if old.Type != n.Type {
		return nil, fmt.Errorf("%w: node %s cannot change type from %s to %s",
			ErrInvalidNode, n.ID, old.Type, n.Type)
	}
	c := g.clone()
	c.nodes[n.ID] = n.Clone()
	return c, nil
}

func (g *Graph) withNode(n *Node, preds []NodeID) *Graph {
	c := g.clone()
	for _, p := range preds {
		c.edges = append(c.edges, Edge{Parent: p, Child: n.ID})
	}
	c.nodes[n.ID] = n
	c.order = append(c.order, n.ID)
	return c
}

func (g *Graph) nextNodeID(t NodeType) NodeID {
	prefix := string(t)
	if prefix == "" {
		prefix = "node"
	}
	for i := 1; ; i++ {
		id := NodeID(fmt.Sprintf("%s-%d", prefix, i))
		if _, exists := g.nodes[id]; !exists {
			return id
		}
	}
}

func (g *Graph) nextBufferID(t NodeType, key string) BufferID {
	for i := 1; ; i++ {
		id := BufferID(fmt.Sprintf("%s-%s-%d", t, key, i))
		if _, exists := g.buffers[id]; !exists {
			return id
		}
	}
}
