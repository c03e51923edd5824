package nngraph

import (
	"fmt"
	"strings"

	"github.com/birdayz/nngraph/kgraph"
	"github.com/birdayz/nngraph/kserde"
)

// ParameterKey names parameter param of node in exported parameter sets.
func ParameterKey(node kgraph.NodeID, param string) string {
	return string(node) + "/" + param
}

func splitParameterKey(key string) (kgraph.NodeID, string, bool) {
	i := strings.LastIndex(key, "/")
	if i <= 0 || i == len(key)-1 {
		return "", "", false
	}
	return kgraph.NodeID(key[:i]), key[i+1:], true
}

// ExportParameters serializes every bound parameter of g with kserde.Buffer,
// keyed by ParameterKey. Parameters a node borrows from another node are
// exported once, under their owner.
func ExportParameters(e *kgraph.Engine, g *kgraph.Graph) (map[string][]byte, error) {
	out := make(map[string][]byte)
	for _, n := range g.Nodes() {
		for _, ka := range e.NodeArguments(n) {
			p, ok := ka.Argument.(kgraph.ParameterArg)
			if !ok || p.BufferID == "" {
				continue
			}
			entry, ok := g.Buffer(p.BufferID)
			if !ok {
				return nil, fmt.Errorf("%w: %s of node %s", kgraph.ErrUnresolvedParameter, p.BufferID, n.ID)
			}
			data, err := kserde.Buffer.Serializer(entry.Data)
			if err != nil {
				return nil, fmt.Errorf("serialize %s: %w", p.BufferID, err)
			}
			out[ParameterKey(n.ID, ka.Key)] = data
		}
	}
	return out, nil
}

// ImportParameters returns a graph with the parameters in params loaded.
//
// A parameter already bound to a buffer has that buffer replaced, which
// requires an equal shape. An unbound parameter gets the buffer as its user
// value, to be shape-checked and allocated by GenerateParameters.
func ImportParameters(e *kgraph.Engine, g *kgraph.Graph, params map[string][]byte) (*kgraph.Graph, error) {
	for _, key := range sortedKeys(params) {
		id, param, ok := splitParameterKey(key)
		if !ok {
			return nil, fmt.Errorf("%w: malformed parameter key %q", kgraph.ErrUnresolvedParameter, key)
		}
		n, ok := g.Node(id)
		if !ok {
			return nil, fmt.Errorf("%w: %s", kgraph.ErrNodeNotFound, id)
		}
		arg, _ := e.NodeArgument(n, param)
		p, ok := arg.(kgraph.ParameterArg)
		if !ok {
			return nil, fmt.Errorf("%w: node %s has no parameter %q", kgraph.ErrUnresolvedParameter, id, param)
		}

		buf, err := kserde.Buffer.Deserializer(params[key])
		if err != nil {
			return nil, fmt.Errorf("deserialize %s: %w", key, err)
		}

		if entry, bound := g.Buffer(p.BufferID); bound && p.BufferID != "" {
			if !entry.Data.Shape().Equal(buf.Shape()) {
				return nil, &kgraph.ShapeMismatchError{
					Node:     id,
					Key:      param,
					Buffer:   p.BufferID,
					Existing: entry.Data.Shape(),
					Expected: buf.Shape(),
				}
			}
			if g, err = g.WithBuffer(p.BufferID, buf); err != nil {
				return nil, err
			}
			continue
		}

		p.BufferID = ""
		p.Buffer = buf
		n.SetArg(param, p)
		if g, err = g.ReplaceNode(n); err != nil {
			return nil, err
		}
	}
	return g, nil
}
