package klayers

import (
	"errors"
	"testing"

	"github.com/alecthomas/assert/v2"
	"github.com/go-logr/logr/testr"

	"github.com/birdayz/nngraph/kbuffer"
	"github.com/birdayz/nngraph/kgraph"
)

func newTestEngine(t *testing.T) *kgraph.Engine {
	t.Helper()
	reg := kgraph.NewRegistry()
	assert.NoError(t, Register(reg))
	reg.RegisterInitializer(kbuffer.KindZero, kbuffer.Zero)
	reg.RegisterInitializer(kbuffer.KindRandom, kbuffer.NewRandom(7))
	return kgraph.NewEngine(reg, kgraph.WithLogr(testr.New(t)))
}

func TestRegister(t *testing.T) {
	t.Run("registers every layer", func(t *testing.T) {
		reg := kgraph.NewRegistry()
		assert.NoError(t, Register(reg))
		for _, typ := range []kgraph.NodeType{TypeInput, TypeLinear, TypeRelu, TypeSoftmax, TypeDropout, TypeJoin} {
			assert.True(t, reg.HasNodeType(typ), "%s", typ)
		}
	})

	t.Run("twice", func(t *testing.T) {
		reg := kgraph.NewRegistry()
		assert.NoError(t, Register(reg))
		err := Register(reg)
		assert.Error(t, err)
		assert.True(t, errors.Is(err, kgraph.ErrTypeAlreadyRegistered))
	})
}

func TestChain(t *testing.T) {
	t.Run("mlp", func(t *testing.T) {
		e := newTestEngine(t)
		g, err := Chain(e, kgraph.New(),
			Input(4),
			Linear(3),
			Relu(),
			Dropout(0.2),
			Linear(2),
			Softmax(),
		)
		assert.NoError(t, err)

		assert.Equal(t, []kgraph.NodeID{
			"input-1", "linear-1", "relu-1", "dropout-1", "linear-2", "softmax-1",
		}, g.DFSSeq())
		assert.Equal(t, []kgraph.NodeID{"input-1"}, g.Roots())
		assert.Equal(t, []kgraph.NodeID{"softmax-1"}, g.Leaves())

		out, _ := g.Node("linear-2")
		in, _ := out.IntAttr(AttrInputSize)
		assert.Equal(t, 3, in)
		arg, _ := e.NodeArgument(out, ArgInput)
		assert.Equal(t, kgraph.Argument(kgraph.NodeOutputArg{Node: "dropout-1"}), arg)

		soft, _ := g.Node("softmax-1")
		size, _ := soft.IntAttr(AttrOutputSize)
		assert.Equal(t, 2, size)
	})

	t.Run("stops at first error", func(t *testing.T) {
		e := newTestEngine(t)
		g, err := Chain(e, kgraph.New(), Input(4), Linear(0))
		assert.Zero(t, g)
		assert.True(t, errors.Is(err, ErrInvalidLayer))
	})

	t.Run("empty", func(t *testing.T) {
		e := newTestEngine(t)
		g, err := Chain(e, kgraph.New())
		assert.NoError(t, err)
		assert.Equal(t, 0, g.Len())
	})
}

func TestInput(t *testing.T) {
	t.Run("default stream", func(t *testing.T) {
		e := newTestEngine(t)
		g, err := e.AddNode(kgraph.New(), Input(3))
		assert.NoError(t, err)
		n, _ := g.Node("input-1")
		arg, _ := e.NodeArgument(n, ArgInput)
		assert.Equal(t, kgraph.Argument(kgraph.StreamArg{Stream: DefaultStream}), arg)
	})

	t.Run("augmented stream", func(t *testing.T) {
		e := newTestEngine(t)
		n := Input(3)
		n.SetAttr(AttrStream, "pixels")
		n.SetAttr(AttrAugmentation, "normalize")
		g, err := e.AddNode(kgraph.New(), n)
		assert.NoError(t, err)
		got, _ := g.Node("input-1")
		arg, _ := e.NodeArgument(got, ArgInput)
		assert.Equal(t, kgraph.Argument(kgraph.AugmentedStreamArg{Stream: "pixels", Augmentation: "normalize"}), arg)
	})

	t.Run("explicit argument kept", func(t *testing.T) {
		e := newTestEngine(t)
		n := Input(3)
		n.SetArg(ArgInput, kgraph.StreamArg{Stream: "other"})
		g, err := e.AddNode(kgraph.New(), n)
		assert.NoError(t, err)
		got, _ := g.Node("input-1")
		assert.Equal(t, kgraph.Argument(kgraph.StreamArg{Stream: "other"}), got.Args[ArgInput])
	})

	t.Run("invalid", func(t *testing.T) {
		e := newTestEngine(t)
		_, err := e.AddNode(kgraph.New(), Input(0))
		assert.True(t, errors.Is(err, ErrInvalidLayer))

		g, err := e.AddNode(kgraph.New(), Input(2))
		assert.NoError(t, err)
		_, err = e.AddNode(g, Input(2), "input-1")
		assert.True(t, errors.Is(err, ErrInvalidLayer))
	})
}

func TestLinear(t *testing.T) {
	t.Run("parameters", func(t *testing.T) {
		e := newTestEngine(t)
		g, err := Chain(e, kgraph.New(), Input(4), Linear(3))
		assert.NoError(t, err)
		g, err = e.GenerateParameters(g)
		assert.NoError(t, err)

		assert.Equal(t, []kgraph.BufferID{"linear-bias-1", "linear-weights-1"}, g.BufferIDs())
		w, _ := g.Buffer("linear-weights-1")
		assert.Equal(t, kbuffer.Shape{3, 4}, w.Data.Shape())
		b, _ := g.Buffer("linear-bias-1")
		assert.Equal(t, []float64{0, 0, 0}, b.Data.Data())
	})

	t.Run("needs one predecessor", func(t *testing.T) {
		e := newTestEngine(t)
		_, err := e.AddNode(kgraph.New(), Linear(3))
		assert.True(t, errors.Is(err, ErrInvalidLayer))
	})

	t.Run("shares weights", func(t *testing.T) {
		e := newTestEngine(t)
		g, err := Chain(e, kgraph.New(), Named("a", Input(4)), Named("first", Linear(4)))
		assert.NoError(t, err)
		shared := Named("second", Linear(4))
		shared.SetAttr(AttrShareWeights, "first")
		g, err = e.AddNode(g, shared, "first")
		assert.NoError(t, err)

		g, err = e.GenerateParameters(g)
		assert.NoError(t, err)
		// first bias, first weights, second bias
		assert.Equal(t, 3, len(g.BufferIDs()))

		out, err := e.ResolveNodeArguments(g, "second", nil, map[kgraph.NodeID]any{"first": "x"})
		assert.NoError(t, err)
		first, _ := g.Node("first")
		want, _ := g.Buffer(first.Args[ArgWeights].(kgraph.ParameterArg).BufferID)
		assert.True(t, want.Data == out[ArgWeights])
	})

	t.Run("shares weights of a sharing layer", func(t *testing.T) {
		e := newTestEngine(t)
		g, err := Chain(e, kgraph.New(), Named("in", Input(4)), Named("a", Linear(4)))
		assert.NoError(t, err)
		b := Named("b", Linear(4))
		b.SetAttr(AttrShareWeights, "a")
		g, err = e.AddNode(g, b, "a")
		assert.NoError(t, err)
		c := Named("c", Linear(4))
		c.SetAttr(AttrShareWeights, "b")
		g, err = e.AddNode(g, c, "b")
		assert.NoError(t, err)

		got, _ := g.Node("c")
		assert.Equal(t, kgraph.Argument(kgraph.NodeParameterArg{Node: "a", Param: ArgWeights}), got.Args[ArgWeights])

		g, err = e.GenerateParameters(g)
		assert.NoError(t, err)
		args, err := e.ResolveNodeArguments(g, "c", nil, map[kgraph.NodeID]any{"b": "x"})
		assert.NoError(t, err)
		a, _ := g.Node("a")
		want, _ := g.Buffer(a.Args[ArgWeights].(kgraph.ParameterArg).BufferID)
		assert.True(t, want.Data == args[ArgWeights])
	})

	t.Run("shares weights of wrong shape", func(t *testing.T) {
		e := newTestEngine(t)
		g, err := Chain(e, kgraph.New(), Named("a", Input(4)), Named("first", Linear(3)))
		assert.NoError(t, err)
		shared := Linear(4)
		shared.SetAttr(AttrShareWeights, "first")
		_, err = e.AddNode(g, shared, "first")
		assert.True(t, errors.Is(err, ErrInvalidLayer))
	})
}

func TestDropout(t *testing.T) {
	e := newTestEngine(t)
	g, err := e.AddNode(kgraph.New(), Input(2))
	assert.NoError(t, err)

	for _, p := range []float64{-0.1, 1} {
		_, err := e.AddNode(g, Dropout(p), "input-1")
		assert.True(t, errors.Is(err, ErrInvalidLayer), "%v", p)
	}
	_, err = e.AddNode(g, Dropout(0), "input-1")
	assert.NoError(t, err)
}

func TestJoin(t *testing.T) {
	t.Run("equal sizes", func(t *testing.T) {
		e := newTestEngine(t)
		g, err := Chain(e, kgraph.New(), Named("in", Input(4)), Named("left", Linear(2)))
		assert.NoError(t, err)
		g, err = e.AddNode(g, Named("right", Linear(2)), "in")
		assert.NoError(t, err)
		g, err = e.AddNode(g, Named("sum", Join()), "left", "right")
		assert.NoError(t, err)

		sum, _ := g.Node("sum")
		assert.Equal(t, kgraph.Argument(kgraph.NodeOutputArg{Node: "left"}), sum.Args["input-0"])
		assert.Equal(t, kgraph.Argument(kgraph.NodeOutputArg{Node: "right"}), sum.Args["input-1"])
		assert.Equal(t, []kgraph.NodeID{"in", "left", "right", "sum"}, g.DFSSeq())

		args, err := e.ResolveNodeArguments(g, "sum", nil, map[kgraph.NodeID]any{"left": 1, "right": 2})
		assert.NoError(t, err)
		assert.Equal(t, map[string]any{"input-0": 1, "input-1": 2}, args)
	})

	t.Run("size mismatch", func(t *testing.T) {
		e := newTestEngine(t)
		g, err := Chain(e, kgraph.New(), Named("in", Input(4)), Named("left", Linear(2)))
		assert.NoError(t, err)
		g, err = e.AddNode(g, Named("right", Linear(3)), "in")
		assert.NoError(t, err)
		_, err = e.AddNode(g, Join(), "left", "right")
		assert.True(t, errors.Is(err, ErrInvalidLayer))
	})
}
