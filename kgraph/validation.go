package kgraph

import (
	"fmt"

	"go.uber.org/multierr"
)

// Validate checks the structural invariants of g and reports every
// violation, combined into one error:
//
//   - every edge endpoint is a node, and every edge points forward in
//     insertion order (which makes the graph acyclic)
//   - node ids are valid
//   - node-output and node-parameter arguments reference existing nodes
//   - parameter arguments that name a buffer find it in the graph
//
// Graphs built only through Engine.AddNode and Engine.GenerateParameters
// always validate. Each reported error matches ErrInvalidGraph.
func (e *Engine) Validate(g *Graph) error {
	var errs error
	invalid := func(format string, args ...any) {
		errs = multierr.Append(errs, fmt.Errorf("%w: %s", ErrInvalidGraph, fmt.Sprintf(format, args...)))
	}

	position := make(map[NodeID]int, len(g.order))
	for i, id := range g.order {
		position[id] = i
		if err := id.Validate(); err != nil {
			invalid("node %q: %v", id, err)
		}
	}

	for _, edge := range g.edges {
		p, okParent := position[edge.Parent]
		c, okChild := position[edge.Child]
		switch {
		case !okParent:
			invalid("edge %s -> %s: unknown parent", edge.Parent, edge.Child)
		case !okChild:
			invalid("edge %s -> %s: unknown child", edge.Parent, edge.Child)
		case p >= c:
			invalid("edge %s -> %s: child precedes parent", edge.Parent, edge.Child)
		}
	}

	for _, id := range g.order {
		for _, ka := range e.NodeArguments(g.nodes[id]) {
			switch arg := ka.Argument.(type) {
			case NodeOutputArg:
				if _, ok := g.nodes[arg.Node]; !ok {
					invalid("node %s argument %q: unknown producer %s", id, ka.Key, arg.Node)
				}
			case NodeParameterArg:
				if _, ok := g.nodes[arg.Node]; !ok {
					invalid("node %s argument %q: unknown producer %s", id, ka.Key, arg.Node)
				}
			case ParameterArg:
				if arg.BufferID == "" {
					continue
				}
				if _, ok := g.buffers[arg.BufferID]; !ok {
					invalid("node %s argument %q: unknown buffer %s", id, ka.Key, arg.BufferID)
				}
			}
		}
	}

	return errs
}
