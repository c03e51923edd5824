package kgraph

import (
	"errors"
	"fmt"
	"testing"

	"github.com/go-logr/logr/testr"

	"github.com/birdayz/nngraph/kbuffer"
)

// newTestRegistry registers a small layer set:
//
//   - "input": reads stream "data", output-size taken from attr "size"
//   - "dense": reads its first predecessor, owns "weights" [units, input-size]
//     and "bias" [units]
//   - "merge": reads every predecessor, output-size of the first one
//
// plus the "double-it" augmentation.
func newTestRegistry() *Registry {
	reg := NewRegistry()
	reg.RegisterInitializer(kbuffer.KindZero, kbuffer.Zero)
	reg.RegisterInitializer(kbuffer.KindConstant, kbuffer.Constant)
	reg.RegisterInitializer(kbuffer.KindRandom, kbuffer.NewRandom(1))

	reg.MustRegisterShapeFunc("dense-weights", func(_ *Graph, n *Node, _ ParameterArg) (kbuffer.Shape, error) {
		units, ok := n.IntAttr("units")
		if !ok {
			return nil, errors.New("units not set")
		}
		in, ok := n.IntAttr("input-size")
		if !ok {
			return nil, errors.New("input-size not set")
		}
		return kbuffer.Shape{units, in}, nil
	})
	reg.MustRegisterShapeFunc("dense-bias", func(_ *Graph, n *Node, _ ParameterArg) (kbuffer.Shape, error) {
		units, ok := n.IntAttr("units")
		if !ok {
			return nil, errors.New("units not set")
		}
		return kbuffer.Shape{units}, nil
	})

	reg.MustRegisterNodeType("input", NodeTypeSpec{
		Arguments: map[string]Argument{
			"input": StreamArg{Stream: "data"},
		},
		Build: func(n *Node, _ *Graph, _ []NodeID) (*Node, error) {
			size, ok := n.IntAttr("size")
			if !ok {
				return nil, errors.New("size not set")
			}
			n.SetAttr("output-size", size)
			return n, nil
		},
	})

	reg.MustRegisterNodeType("dense", NodeTypeSpec{
		Arguments: map[string]Argument{
			"weights": ParameterArg{
				ShapeFn: "dense-weights",
				Init:    kbuffer.InitSpec{Kind: kbuffer.KindRandom, Stddev: 0.1},
			},
			"bias": ParameterArg{
				ShapeFn: "dense-bias",
				Init:    kbuffer.InitSpec{Kind: kbuffer.KindZero},
			},
		},
		Build: func(n *Node, g *Graph, preds []NodeID) (*Node, error) {
			if len(preds) != 1 {
				return nil, fmt.Errorf("dense takes exactly one input, got %d", len(preds))
			}
			parent, _ := g.Node(preds[0])
			size, ok := parent.IntAttr("output-size")
			if !ok {
				return nil, fmt.Errorf("%s has no output-size", parent.ID)
			}
			units, _ := n.IntAttr("units")
			n.SetAttr("input-size", size)
			n.SetAttr("output-size", units)
			n.SetArg("input", NodeOutputArg{Node: preds[0]})
			return n, nil
		},
	})

	reg.MustRegisterNodeType("merge", NodeTypeSpec{
		Build: func(n *Node, g *Graph, preds []NodeID) (*Node, error) {
			for i, p := range preds {
				n.SetArg(fmt.Sprintf("input-%d", i), NodeOutputArg{Node: p})
			}
			if len(preds) > 0 {
				parent, _ := g.Node(preds[0])
				size, _ := parent.IntAttr("output-size")
				n.SetAttr("output-size", size)
			}
			return n, nil
		},
	})

	reg.MustRegisterAugmentation("double-it", func(v any) (any, error) {
		xs, ok := v.([]float64)
		if !ok {
			return nil, fmt.Errorf("expected []float64, got %T", v)
		}
		out := make([]float64, len(xs))
		for i, x := range xs {
			out[i] = 2 * x
		}
		return out, nil
	})

	return reg
}

func newTestEngine(t *testing.T) *Engine {
	t.Helper()
	return NewEngine(newTestRegistry(), WithLogr(testr.New(t)))
}

func inputNode(id string, size int) *Node {
	return &Node{ID: NodeID(id), Type: "input", Attrs: map[string]any{"size": size}}
}

func denseNode(id string, units int) *Node {
	return &Node{ID: NodeID(id), Type: "dense", Attrs: map[string]any{"units": units}}
}

// mustAdd is a test helper that inserts a node and fails the test on error.
func mustAdd(t *testing.T, e *Engine, g *Graph, n *Node, preds ...NodeID) *Graph {
	t.Helper()
	out, err := e.AddNode(g, n, preds...)
	if err != nil {
		t.Fatalf("add node %s: %v", n.ID, err)
	}
	return out
}

// buildMLP builds in(4) -> hidden(3) -> out(2).
func buildMLP(t *testing.T, e *Engine) *Graph {
	t.Helper()
	g := New()
	g = mustAdd(t, e, g, inputNode("in", 4))
	g = mustAdd(t, e, g, denseNode("hidden", 3), "in")
	g = mustAdd(t, e, g, denseNode("out", 2), "hidden")
	return g
}
