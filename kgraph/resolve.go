package kgraph

import (
	"fmt"

	"golang.org/x/exp/slices"
)

// ResolveArguments resolves every argument of node against the graph's
// buffers, the current stream map and the outputs computed so far. The
// result maps argument keys to values; parameters resolve to the graph's
// *kbuffer.Buffer. The first argument that cannot be resolved, in key
// order, fails the call with an *UnresolvedArgumentError.
func (e *Engine) ResolveArguments(g *Graph, node *Node, streams map[string]any, outputs map[NodeID]any) (map[string]any, error) {
	args := e.NodeArguments(node)
	resolved := make(map[string]any, len(args))
	for _, ka := range args {
		v, err := e.resolveArgument(g, node.ID, ka, streams, outputs)
		if err != nil {
			return nil, err
		}
		resolved[ka.Key] = v
	}
	return resolved, nil
}

// ResolveNodeArguments is ResolveArguments for the node stored under id.
func (e *Engine) ResolveNodeArguments(g *Graph, id NodeID, streams map[string]any, outputs map[NodeID]any) (map[string]any, error) {
	node, ok := g.nodes[id]
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrNodeNotFound, id)
	}
	return e.ResolveArguments(g, node, streams, outputs)
}

func (e *Engine) resolveArgument(g *Graph, node NodeID, ka KeyedArgument, streams map[string]any, outputs map[NodeID]any) (any, error) {
	unresolved := func(available []string) error {
		return &UnresolvedArgumentError{Node: node, Key: ka.Key, Argument: ka.Argument, Available: available}
	}

	switch arg := ka.Argument.(type) {
	case StreamArg:
		v, ok := streams[arg.Stream]
		if !ok {
			return nil, unresolved(sortedKeys(streams))
		}
		return v, nil

	case ParameterArg:
		entry, ok := g.buffers[arg.BufferID]
		if !ok || arg.BufferID == "" {
			return nil, unresolved(sortedKeys(g.buffers))
		}
		return entry.Data, nil

	case NodeOutputArg:
		v, ok := outputs[arg.Node]
		if !ok {
			return nil, unresolved(sortedKeys(outputs))
		}
		return v, nil

	case NodeParameterArg:
		producer, ok := g.nodes[arg.Node]
		if !ok {
			return nil, unresolved(sortedKeys(g.nodes))
		}
		param, ok := e.producerParameter(producer, arg.Param)
		if !ok {
			return nil, unresolved(e.parameterKeys(producer))
		}
		entry, ok := g.buffers[param.BufferID]
		if !ok || param.BufferID == "" {
			return nil, unresolved(sortedKeys(g.buffers))
		}
		return entry.Data, nil

	case AugmentedStreamArg:
		v, ok := streams[AugmentedStreamID(arg.Stream, arg.Augmentation)]
		if !ok {
			return nil, unresolved(sortedKeys(streams))
		}
		return v, nil
	}
	panic(fmt.Sprintf("kgraph: unhandled argument %T", ka.Argument))
}

func (e *Engine) producerParameter(producer *Node, key string) (ParameterArg, bool) {
	arg, ok := e.NodeArgument(producer, key)
	if !ok {
		return ParameterArg{}, false
	}
	p, ok := arg.(ParameterArg)
	return p, ok
}

func (e *Engine) parameterKeys(n *Node) []string {
	var keys []string
	for _, ka := range e.NodeArguments(n) {
		if ka.Kind() == KindParameter {
			keys = append(keys, ka.Key)
		}
	}
	return keys
}

func sortedKeys[K ~string, V any](m map[K]V) []string {
	out := make([]string, 0, len(m))
	for k := range m {
		out = append(out, string(k))
	}
	slices.Sort(out)
	return out
}
