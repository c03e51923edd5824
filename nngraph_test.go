package nngraph

import (
	"errors"
	"testing"

	"github.com/alecthomas/assert/v2"

	"github.com/birdayz/nngraph/kbuffer"
	"github.com/birdayz/nngraph/kgraph"
	"github.com/birdayz/nngraph/klayers"
)

func TestNew(t *testing.T) {
	t.Run("builtins", func(t *testing.T) {
		e := newTestEngine(t)
		reg := e.Registry()
		assert.True(t, reg.HasNodeType(klayers.TypeLinear))
		_, err := reg.Augmentation(AugmentNormalize)
		assert.NoError(t, err)
		_, err = reg.ShapeFunc(klayers.ShapeLinearWeights)
		assert.NoError(t, err)
	})

	t.Run("with registry", func(t *testing.T) {
		reg := kgraph.NewRegistry()
		reg.MustRegisterAugmentation("once", Identity)
		e := newTestEngine(t, WithRegistry(reg), WithAugmentation("twice", Scale(2)))
		assert.False(t, e.Registry().HasNodeType(klayers.TypeLinear))
		_, err := e.Registry().Augmentation("once")
		assert.NoError(t, err)
		_, err = e.Registry().Augmentation("twice")
		assert.NoError(t, err)

		// the shared registry is left alone
		_, err = reg.Augmentation("twice")
		assert.Error(t, err)
	})

	t.Run("one registry for many engines", func(t *testing.T) {
		reg := kgraph.NewRegistry()
		a := newTestEngine(t, WithRegistry(reg), WithNodeType("custom", kgraph.NodeTypeSpec{}))
		b := newTestEngine(t, WithRegistry(reg), WithNodeType("custom", kgraph.NodeTypeSpec{}))
		assert.True(t, a.Registry().HasNodeType("custom"))
		assert.True(t, b.Registry().HasNodeType("custom"))
		assert.False(t, reg.HasNodeType("custom"))
	})

	t.Run("duplicate node type", func(t *testing.T) {
		_, err := New(WithNodeType(klayers.TypeInput, kgraph.NodeTypeSpec{}))
		assert.True(t, errors.Is(err, kgraph.ErrTypeAlreadyRegistered))
	})

	t.Run("same seed same weights", func(t *testing.T) {
		a := newTestEngine(t, WithSeed(9))
		b := newTestEngine(t, WithSeed(9))
		c := newTestEngine(t, WithSeed(10))

		ga := generate(t, a, buildClassifier(t, a))
		gb := generate(t, b, buildClassifier(t, b))
		gc := generate(t, c, buildClassifier(t, c))

		wa, _ := ga.Buffer("linear-weights-1")
		wb, _ := gb.Buffer("linear-weights-1")
		wc, _ := gc.Buffer("linear-weights-1")
		assert.True(t, wa.Data.Equal(wb.Data))
		assert.False(t, wa.Data.Equal(wc.Data))
	})

	t.Run("fallback initializer", func(t *testing.T) {
		var asked []kbuffer.Kind
		service := kbuffer.InitializerFunc(func(shape kbuffer.Shape, spec kbuffer.InitSpec) (*kbuffer.Buffer, error) {
			asked = append(asked, spec.Kind)
			return kbuffer.New(shape, []float64{7, 7})
		})
		e := newTestEngine(t,
			WithFallbackInitializer(service),
			WithNodeType("embedding", kgraph.NodeTypeSpec{
				Arguments: map[string]kgraph.Argument{
					"table": kgraph.ParameterArg{
						Shape: kbuffer.Shape{2},
						Init:  kbuffer.InitSpec{Kind: "pretrained-service"},
					},
				},
			}),
		)
		g, err := e.AddNode(kgraph.New(), &kgraph.Node{ID: "emb", Type: "embedding"})
		assert.NoError(t, err)
		g = generate(t, e, g)

		assert.Equal(t, []kbuffer.Kind{"pretrained-service"}, asked)
		entry, _ := g.Buffer("embedding-table-1")
		assert.Equal(t, []float64{7, 7}, entry.Data.Data())
	})

	t.Run("initializer override", func(t *testing.T) {
		e := newTestEngine(t, WithInitializer(kbuffer.KindRandom, kbuffer.Constant))
		g := generate(t, e, buildClassifier(t, e))
		w, _ := g.Buffer("linear-weights-1")
		assert.Equal(t, make([]float64, 12), w.Data.Data())
	})

	t.Run("shape func", func(t *testing.T) {
		e := newTestEngine(t, WithShapeFunc("square", func(_ *kgraph.Graph, n *kgraph.Node, _ kgraph.ParameterArg) (kbuffer.Shape, error) {
			size, _ := n.IntAttr("size")
			return kbuffer.Shape{size, size}, nil
		}))
		_, err := e.Registry().ShapeFunc("square")
		assert.NoError(t, err)
	})
}

func TestMustNew(t *testing.T) {
	assert.Panics(t, func() {
		MustNew(WithAugmentation(AugmentIdentity, Identity))
	})
}

// TestPipeline runs the graph operations in the order an execution engine
// does: build, generate parameters, augment, resolve per node.
func TestPipeline(t *testing.T) {
	e := newTestEngine(t)
	g := generate(t, e, buildClassifier(t, e))
	assert.NoError(t, e.Validate(g))

	streams, err := e.AugmentStreams(g, map[string]any{"data": []float64{1, 2, 3}})
	assert.NoError(t, err)
	assert.Equal(t, any([]float64{-1, 0, 1}), streams[kgraph.AugmentedStreamID("data", AugmentNormalize)])

	outputs := map[kgraph.NodeID]any{}
	for _, id := range g.DFSSeq() {
		args, err := e.ResolveNodeArguments(g, id, streams, outputs)
		assert.NoError(t, err)
		outputs[id] = args
	}

	in := outputs["in"].(map[string]any)
	assert.Equal(t, any([]float64{-1, 0, 1}), in[klayers.ArgInput])

	hidden := outputs["hidden"].(map[string]any)
	assert.Equal(t, kbuffer.Shape{4, 3}, hidden[klayers.ArgWeights].(*kbuffer.Buffer).Shape())
	assert.Equal(t, kbuffer.Shape{4}, hidden[klayers.ArgBias].(*kbuffer.Buffer).Shape())

	probs := outputs["probs"].(map[string]any)
	assert.Equal(t, 1, len(probs))
}
