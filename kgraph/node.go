package kgraph

import (
	"fmt"
	"strings"

	"golang.org/x/exp/maps"
)

// NodeID is a strongly-typed identifier for graph nodes.
// NodeIDs cannot contain whitespace.
type NodeID string

// Validate checks if the NodeID is valid.
// Returns ErrInvalidNodeID if the ID contains whitespace.
func (id NodeID) Validate() error {
	if strings.ContainsAny(string(id), " \t\n\r") {
		return fmt.Errorf("%w: NodeID %q cannot contain whitespace", ErrInvalidNodeID, id)
	}
	return nil
}

// NodeType is the tag the Registry dispatches on, e.g. "linear".
type NodeType string

// BufferID identifies a graph-owned buffer.
type BufferID string

// Node is a layer in the graph.
//
// Attrs holds type-specific fields such as sizes. Args holds instance-level
// arguments; they override the argument templates declared for the node type.
type Node struct {
	ID    NodeID
	Type  NodeType
	Attrs map[string]any
	Args  map[string]Argument
}

// Clone returns a copy of n whose maps can be modified freely.
func (n *Node) Clone() *Node {
	c := &Node{
		ID:    n.ID,
		Type:  n.Type,
		Attrs: maps.Clone(n.Attrs),
		Args:  maps.Clone(n.Args),
	}
	if c.Attrs == nil {
		c.Attrs = make(map[string]any)
	}
	if c.Args == nil {
		c.Args = make(map[string]Argument)
	}
	return c
}

// Attr returns the raw attribute stored under key.
func (n *Node) Attr(key string) (any, bool) {
	v, ok := n.Attrs[key]
	return v, ok
}

// IntAttr returns an integral attribute, accepting the numeric types produced
// by Go literals and by decoded description files.
func (n *Node) IntAttr(key string) (int, bool) {
	switch v := n.Attrs[key].(type) {
	case int:
		return v, true
	case int64:
		return int(v), true
	case float64:
		if v == float64(int(v)) {
			return int(v), true
		}
	}
	return 0, false
}

// FloatAttr returns a numeric attribute as float64.
func (n *Node) FloatAttr(key string) (float64, bool) {
	switch v := n.Attrs[key].(type) {
	case float64:
		return v, true
	case int:
		return float64(v), true
	case int64:
		return float64(v), true
	}
	return 0, false
}

// StringAttr returns a string attribute.
func (n *Node) StringAttr(key string) (string, bool) {
	v, ok := n.Attrs[key].(string)
	return v, ok
}

// SetAttr stores an attribute, allocating the map if needed.
func (n *Node) SetAttr(key string, value any) {
	if n.Attrs == nil {
		n.Attrs = make(map[string]any)
	}
	n.Attrs[key] = value
}

// SetArg stores an instance-level argument, allocating the map if needed.
func (n *Node) SetArg(key string, arg Argument) {
	if n.Args == nil {
		n.Args = make(map[string]Argument)
	}
	n.Args[key] = arg
}
