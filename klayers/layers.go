package klayers

import (
	"errors"
	"fmt"

	"go.uber.org/multierr"

	"github.com/birdayz/nngraph/kbuffer"
	"github.com/birdayz/nngraph/kgraph"
)

// Node types.
const (
	TypeInput   kgraph.NodeType = "input"
	TypeLinear  kgraph.NodeType = "linear"
	TypeRelu    kgraph.NodeType = "relu"
	TypeSoftmax kgraph.NodeType = "softmax"
	TypeDropout kgraph.NodeType = "dropout"
	TypeJoin    kgraph.NodeType = "join"
)

// Attribute keys.
const (
	AttrSize         = "size"
	AttrStream       = "stream"
	AttrAugmentation = "augmentation"
	AttrUnits        = "units"
	AttrProbability  = "probability"
	AttrShareWeights = "share-weights"
	AttrInputSize    = "input-size"
	AttrOutputSize   = "output-size"
)

// Argument keys.
const (
	ArgInput   = "input"
	ArgWeights = "weights"
	ArgBias    = "bias"
)

// Shape function names.
const (
	ShapeLinearWeights = "linear-weights"
	ShapeLinearBias    = "linear-bias"
)

// DefaultStream is the stream an input layer reads when none is set.
const DefaultStream = "data"

var ErrInvalidLayer = errors.New("invalid layer")

// Register adds the layer types and their shape functions to reg.
func Register(reg *kgraph.Registry) error {
	return multierr.Combine(
		reg.RegisterShapeFunc(ShapeLinearWeights, linearWeightsShape),
		reg.RegisterShapeFunc(ShapeLinearBias, linearBiasShape),
		reg.RegisterNodeType(TypeInput, kgraph.NodeTypeSpec{Build: buildInput}),
		reg.RegisterNodeType(TypeLinear, kgraph.NodeTypeSpec{
			Arguments: map[string]kgraph.Argument{
				ArgWeights: kgraph.ParameterArg{
					ShapeFn: ShapeLinearWeights,
					Init:    kbuffer.InitSpec{Kind: kbuffer.KindRandom, Distribution: kbuffer.DistributionXavier},
				},
				ArgBias: kgraph.ParameterArg{
					ShapeFn: ShapeLinearBias,
					Init:    kbuffer.InitSpec{Kind: kbuffer.KindZero},
				},
			},
			Build: buildLinear,
		}),
		reg.RegisterNodeType(TypeRelu, kgraph.NodeTypeSpec{Build: buildPassThrough}),
		reg.RegisterNodeType(TypeSoftmax, kgraph.NodeTypeSpec{Build: buildPassThrough}),
		reg.RegisterNodeType(TypeDropout, kgraph.NodeTypeSpec{Build: buildDropout}),
		reg.RegisterNodeType(TypeJoin, kgraph.NodeTypeSpec{Build: buildJoin}),
	)
}

// MustRegister is like Register but panics on error.
func MustRegister(reg *kgraph.Registry) {
	if err := Register(reg); err != nil {
		panic(err)
	}
}

// Input reads size values per sample from DefaultStream.
func Input(size int) *kgraph.Node {
	return &kgraph.Node{Type: TypeInput, Attrs: map[string]any{AttrSize: size}}
}

// Linear is a fully connected layer with units outputs.
func Linear(units int) *kgraph.Node {
	return &kgraph.Node{Type: TypeLinear, Attrs: map[string]any{AttrUnits: units}}
}

func Relu() *kgraph.Node {
	return &kgraph.Node{Type: TypeRelu}
}

func Softmax() *kgraph.Node {
	return &kgraph.Node{Type: TypeSoftmax}
}

// Dropout zeroes inputs with probability p during training.
func Dropout(p float64) *kgraph.Node {
	return &kgraph.Node{Type: TypeDropout, Attrs: map[string]any{AttrProbability: p}}
}

// Join sums the outputs of all its predecessors, which must agree in size.
func Join() *kgraph.Node {
	return &kgraph.Node{Type: TypeJoin}
}

// Named sets the id of n and returns it.
func Named(id kgraph.NodeID, n *kgraph.Node) *kgraph.Node {
	n.ID = id
	return n
}

// Chain inserts nodes one after another, each with the previous one as its
// single predecessor. The first node gets no predecessor.
func Chain(e *kgraph.Engine, g *kgraph.Graph, nodes ...*kgraph.Node) (*kgraph.Graph, error) {
	var prev []kgraph.NodeID
	for _, n := range nodes {
		var err error
		g, err = e.AddNode(g, n, prev...)
		if err != nil {
			return nil, err
		}
		ids := g.NodeIDs()
		prev = []kgraph.NodeID{ids[len(ids)-1]}
	}
	return g, nil
}

func invalid(n *kgraph.Node, format string, args ...any) error {
	return fmt.Errorf("%w: %s %s: %s", ErrInvalidLayer, n.Type, n.ID, fmt.Sprintf(format, args...))
}

func buildInput(n *kgraph.Node, _ *kgraph.Graph, preds []kgraph.NodeID) (*kgraph.Node, error) {
	if len(preds) > 0 {
		return nil, invalid(n, "input layers take no predecessors")
	}
	size, ok := n.IntAttr(AttrSize)
	if !ok || size <= 0 {
		return nil, invalid(n, "%s must be a positive integer", AttrSize)
	}
	n.SetAttr(AttrOutputSize, size)

	if _, set := n.Args[ArgInput]; set {
		return n, nil
	}
	stream, ok := n.StringAttr(AttrStream)
	if !ok {
		stream = DefaultStream
	}
	if aug, ok := n.StringAttr(AttrAugmentation); ok {
		n.SetArg(ArgInput, kgraph.AugmentedStreamArg{Stream: stream, Augmentation: aug})
	} else {
		n.SetArg(ArgInput, kgraph.StreamArg{Stream: stream})
	}
	return n, nil
}

// singleInput wires the only predecessor of n and returns its output size.
func singleInput(n *kgraph.Node, g *kgraph.Graph, preds []kgraph.NodeID) (int, error) {
	if len(preds) != 1 {
		return 0, invalid(n, "expected exactly one predecessor, got %d", len(preds))
	}
	parent, _ := g.Node(preds[0])
	size, ok := parent.IntAttr(AttrOutputSize)
	if !ok {
		return 0, invalid(n, "predecessor %s has no %s", parent.ID, AttrOutputSize)
	}
	n.SetAttr(AttrInputSize, size)
	n.SetArg(ArgInput, kgraph.NodeOutputArg{Node: preds[0]})
	return size, nil
}

func buildLinear(n *kgraph.Node, g *kgraph.Graph, preds []kgraph.NodeID) (*kgraph.Node, error) {
	in, err := singleInput(n, g, preds)
	if err != nil {
		return nil, err
	}
	units, ok := n.IntAttr(AttrUnits)
	if !ok || units <= 0 {
		return nil, invalid(n, "%s must be a positive integer", AttrUnits)
	}
	n.SetAttr(AttrOutputSize, units)

	if source, ok := n.StringAttr(AttrShareWeights); ok {
		peer, found := g.Node(kgraph.NodeID(source))
		if !found || peer.Type != TypeLinear {
			return nil, invalid(n, "cannot share weights of %q: not a linear layer", source)
		}
		peerIn, _ := peer.IntAttr(AttrInputSize)
		peerUnits, _ := peer.IntAttr(AttrUnits)
		if peerIn != in || peerUnits != units {
			return nil, invalid(n, "cannot share weights of %s: shape [%d %d], need [%d %d]",
				source, peerUnits, peerIn, units, in)
		}
		owner := peer.ID
		if shared, ok := peer.Args[ArgWeights].(kgraph.NodeParameterArg); ok {
			// peer borrows its weights too; bind to the layer that owns them
			owner = shared.Node
		}
		n.SetArg(ArgWeights, kgraph.NodeParameterArg{Node: owner, Param: ArgWeights})
	}
	return n, nil
}

func buildPassThrough(n *kgraph.Node, g *kgraph.Graph, preds []kgraph.NodeID) (*kgraph.Node, error) {
	size, err := singleInput(n, g, preds)
	if err != nil {
		return nil, err
	}
	n.SetAttr(AttrOutputSize, size)
	return n, nil
}

func buildDropout(n *kgraph.Node, g *kgraph.Graph, preds []kgraph.NodeID) (*kgraph.Node, error) {
	p, ok := n.FloatAttr(AttrProbability)
	if !ok || p < 0 || p >= 1 {
		return nil, invalid(n, "%s must be in [0, 1)", AttrProbability)
	}
	return buildPassThrough(n, g, preds)
}

func buildJoin(n *kgraph.Node, g *kgraph.Graph, preds []kgraph.NodeID) (*kgraph.Node, error) {
	if len(preds) == 0 {
		return nil, invalid(n, "expected at least one predecessor")
	}
	size := -1
	for i, p := range preds {
		parent, _ := g.Node(p)
		s, ok := parent.IntAttr(AttrOutputSize)
		if !ok {
			return nil, invalid(n, "predecessor %s has no %s", p, AttrOutputSize)
		}
		if size >= 0 && s != size {
			return nil, invalid(n, "predecessor %s has size %d, expected %d", p, s, size)
		}
		size = s
		n.SetArg(fmt.Sprintf("%s-%d", ArgInput, i), kgraph.NodeOutputArg{Node: p})
	}
	n.SetAttr(AttrOutputSize, size)
	return n, nil
}

func linearWeightsShape(_ *kgraph.Graph, n *kgraph.Node, _ kgraph.ParameterArg) (kbuffer.Shape, error) {
	units, ok := n.IntAttr(AttrUnits)
	if !ok {
		return nil, invalid(n, "%s not set", AttrUnits)
	}
	in, ok := n.IntAttr(AttrInputSize)
	if !ok {
		return nil, invalid(n, "%s not set", AttrInputSize)
	}
	return kbuffer.Shape{units, in}, nil
}

func linearBiasShape(_ *kgraph.Graph, n *kgraph.Node, _ kgraph.ParameterArg) (kbuffer.Shape, error) {
	units, ok := n.IntAttr(AttrUnits)
	if !ok {
		return nil, invalid(n, "%s not set", AttrUnits)
	}
	return kbuffer.Shape{units}, nil
}
