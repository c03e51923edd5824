// Package kdesc loads network descriptions written in HCL into a graph.
//
// A description is a list of node blocks in insertion order. The two labels
// are the node type and id, inputs names the predecessors, and every other
// attribute becomes a node attribute:
//
//	node "input" "pixels" {
//	  size = 784
//	}
//
//	node "linear" "hidden" {
//	  inputs = ["pixels"]
//	  units  = 128
//	}
//
// Predecessors must be declared before the nodes that read them.
package kdesc

import (
	"errors"
	"fmt"
	"math/big"

	"github.com/hashicorp/hcl/v2"
	"github.com/hashicorp/hcl/v2/gohcl"
	"github.com/hashicorp/hcl/v2/hclparse"
	"github.com/zclconf/go-cty/cty"
	"github.com/zclconf/go-cty/cty/gocty"

	"github.com/birdayz/nngraph/kgraph"
)

var ErrInvalidDescription = errors.New("invalid network description")

type fileRoot struct {
	Nodes []*nodeBlock `hcl:"node,block"`
}

type nodeBlock struct {
	Type   string   `hcl:"type,label"`
	ID     string   `hcl:"id,label"`
	Inputs []string `hcl:"inputs,optional"`
	Remain hcl.Body `hcl:",remain"`
}

// Load parses src and inserts its nodes into g. filename is only used in
// diagnostics.
func Load(e *kgraph.Engine, g *kgraph.Graph, src []byte, filename string) (*kgraph.Graph, error) {
	file, diags := hclparse.NewParser().ParseHCL(src, filename)
	if diags.HasErrors() {
		return nil, fmt.Errorf("%w: failed to parse %s: %w", ErrInvalidDescription, filename, diags)
	}
	return load(e, g, file, filename)
}

// LoadFile reads the description at path and inserts its nodes into g.
func LoadFile(e *kgraph.Engine, g *kgraph.Graph, path string) (*kgraph.Graph, error) {
	file, diags := hclparse.NewParser().ParseHCLFile(path)
	if diags.HasErrors() {
		return nil, fmt.Errorf("%w: failed to parse %s: %w", ErrInvalidDescription, path, diags)
	}
	return load(e, g, file, path)
}

func load(e *kgraph.Engine, g *kgraph.Graph, file *hcl.File, filename string) (*kgraph.Graph, error) {
	var root fileRoot
	if diags := gohcl.DecodeBody(file.Body, nil, &root); diags.HasErrors() {
		return nil, fmt.Errorf("%w: failed to decode %s: %w", ErrInvalidDescription, filename, diags)
	}

	for _, block := range root.Nodes {
		n, err := translateNode(block)
		if err != nil {
			return nil, fmt.Errorf("%s: %w", filename, err)
		}
		preds := make([]kgraph.NodeID, len(block.Inputs))
		for i, in := range block.Inputs {
			preds[i] = kgraph.NodeID(in)
		}
		g, err = e.AddNode(g, n, preds...)
		if err != nil {
			return nil, fmt.Errorf("%s: node %q: %w", filename, block.ID, err)
		}
	}
	return g, nil
}

func translateNode(block *nodeBlock) (*kgraph.Node, error) {
	attrs, diags := block.Remain.JustAttributes()
	if diags.HasErrors() {
		return nil, fmt.Errorf("%w: node %q: %w", ErrInvalidDescription, block.ID, diags)
	}

	n := &kgraph.Node{
		ID:    kgraph.NodeID(block.ID),
		Type:  kgraph.NodeType(block.Type),
		Attrs: make(map[string]any, len(attrs)),
	}
	for name, attr := range attrs {
		v, diags := attr.Expr.Value(nil)
		if diags.HasErrors() {
			return nil, fmt.Errorf("%w: node %q: %w", ErrInvalidDescription, block.ID, diags)
		}
		native, err := ctyToNative(v)
		if err != nil {
			return nil, fmt.Errorf("%w: node %q attribute %q: %w", ErrInvalidDescription, block.ID, name, err)
		}
		n.Attrs[name] = native
	}
	return n, nil
}

// ctyToNative converts v into plain Go values. Whole numbers become int so
// that size attributes read back through Node.IntAttr.
func ctyToNative(v cty.Value) (any, error) {
	if v.IsNull() || !v.IsKnown() {
		return nil, nil
	}

	ty := v.Type()
	switch {
	case ty == cty.String:
		return v.AsString(), nil

	case ty == cty.Number:
		if bf := v.AsBigFloat(); bf.IsInt() {
			if i, acc := bf.Int64(); acc == big.Exact {
				return int(i), nil
			}
		}
		var f float64
		if err := gocty.FromCtyValue(v, &f); err != nil {
			return nil, fmt.Errorf("could not convert number to float64: %w", err)
		}
		return f, nil

	case ty == cty.Bool:
		return v.True(), nil

	case ty.IsListType() || ty.IsTupleType() || ty.IsSetType():
		var out []any
		for it := v.ElementIterator(); it.Next(); {
			_, elem := it.Element()
			native, err := ctyToNative(elem)
			if err != nil {
				return nil, err
			}
			out = append(out, native)
		}
		return out, nil

	case ty.IsMapType() || ty.IsObjectType():
		out := make(map[string]any)
		for it := v.ElementIterator(); it.Next(); {
			key, elem := it.Element()
			native, err := ctyToNative(elem)
			if err != nil {
				return nil, fmt.Errorf("in key %q: %w", key.AsString(), err)
			}
			out[key.AsString()] = native
		}
		return out, nil
	}
	return nil, fmt.Errorf("unsupported type %s", ty.FriendlyName())
}
