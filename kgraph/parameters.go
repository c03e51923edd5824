package kgraph

import (
	"fmt"

	"github.com/birdayz/nngraph/kbuffer"
	"github.com/birdayz/nngraph/kfunc"
)

// ArgumentShape computes the expected shape of a parameter argument of n.
// Failures, including panics inside the shape function, are returned as
// *ShapeFunctionError.
func (e *Engine) ArgumentShape(g *Graph, n *Node, key string, arg ParameterArg) (kbuffer.Shape, error) {
	shape, err := e.argumentShape(g, n, arg)
	if err != nil {
		return nil, &ShapeFunctionError{Node: n.ID, Key: key, Argument: arg, Err: err}
	}
	return shape, nil
}

func (e *Engine) argumentShape(g *Graph, n *Node, arg ParameterArg) (kbuffer.Shape, error) {
	if arg.ShapeFn == "" {
		if arg.Shape == nil {
			return nil, fmt.Errorf("parameter declares neither a shape function nor a shape")
		}
		return arg.Shape, nil
	}
	fn, err := e.reg.ShapeFunc(arg.ShapeFn)
	if err != nil {
		return nil, err
	}
	shape, err := kfunc.Invoke(func() (kbuffer.Shape, error) {
		return fn(g, n, arg)
	})
	if err != nil {
		return nil, err
	}
	if err := shape.Validate(); err != nil {
		return nil, err
	}
	return shape, nil
}

// GenerateParameters returns a graph in which every parameter argument of
// every node references an allocated buffer of the expected shape.
//
// Nodes are visited in DFSSeq order so shape functions can rely on their
// predecessors. Parameters that already reference a buffer are validated,
// never reallocated, which makes the operation idempotent and safe to run
// after loading persisted weights.
func (e *Engine) GenerateParameters(g *Graph) (*Graph, error) {
	out := g.clone()
	for _, id := range g.DFSSeq() {
		node := out.nodes[id]
		for _, ka := range e.NodeArguments(node) {
			param, ok := ka.Argument.(ParameterArg)
			if !ok {
				continue
			}
			updated, err := e.generateParameter(out, node, ka.Key, param)
			if err != nil {
				return nil, err
			}
			if updated != nil {
				out.nodes[id] = updated
				node = updated
			}
		}
	}
	return out, nil
}

// generateParameter validates or allocates the buffer of one parameter
// argument, storing it in g. It returns the rewritten node when a buffer was
// allocated.
func (e *Engine) generateParameter(g *Graph, node *Node, key string, param ParameterArg) (*Node, error) {
	expected, err := e.ArgumentShape(g, node, key, param)
	if err != nil {
		return nil, err
	}

	if entry, ok := g.buffers[param.BufferID]; ok && param.BufferID != "" {
		if existing := entry.Data.Shape(); !existing.Equal(expected) {
			return nil, &ShapeMismatchError{
				Node:     node.ID,
				Key:      key,
				Buffer:   param.BufferID,
				Existing: existing,
				Expected: expected,
			}
		}
		e.log.V(1).Info("Validated existing parameter buffer", "node", node.ID, "argument", key, "buffer", param.BufferID)
		return nil, nil
	}

	var buf *kbuffer.Buffer
	if param.Buffer != nil {
		if actual := param.Buffer.Shape(); !actual.Equal(expected) {
			return nil, &UserBufferShapeMismatchError{
				Node:     node.ID,
				Key:      key,
				Actual:   actual,
				Expected: expected,
			}
		}
		buf = param.Buffer
	} else {
		buf, err = e.reg.Initializer(param.Init.Kind).Initialize(expected, param.Init)
		if err != nil {
			return nil, fmt.Errorf("initialize node %s argument %q: %w", node.ID, key, err)
		}
		if actual := buf.Shape(); !actual.Equal(expected) {
			return nil, &ShapeMismatchError{
				Node:     node.ID,
				Key:      key,
				Existing: actual,
				Expected: expected,
			}
		}
	}

	bufID := g.nextBufferID(node.Type, key)
	g.buffers[bufID] = BufferEntry{Data: buf}
	g.bufIDs = append(g.bufIDs, bufID)
	e.log.V(1).Info("Allocated parameter buffer", "node", node.ID, "argument", key, "buffer", bufID, "shape", expected)

	param.BufferID = bufID
	param.Buffer = nil
	updated := node.Clone()
	updated.Args[key] = param
	return updated, nil
}
