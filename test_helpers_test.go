package nngraph

import (
	"testing"

	"github.com/alecthomas/assert/v2"
	"github.com/go-logr/logr/testr"

	"github.com/birdayz/nngraph/kgraph"
	"github.com/birdayz/nngraph/klayers"
)

func newTestEngine(t *testing.T, opts ...Option) *kgraph.Engine {
	t.Helper()
	e, err := New(append([]Option{WithLogr(testr.New(t))}, opts...)...)
	assert.NoError(t, err)
	return e
}

// buildClassifier chains in(3) -> hidden(4) -> relu -> out(2) -> softmax,
// reading the normalized "data" stream.
func buildClassifier(t *testing.T, e *kgraph.Engine) *kgraph.Graph {
	t.Helper()
	in := klayers.Named("in", klayers.Input(3))
	in.SetAttr(klayers.AttrAugmentation, AugmentNormalize)

	g, err := klayers.Chain(e, kgraph.New(),
		in,
		klayers.Named("hidden", klayers.Linear(4)),
		klayers.Named("act", klayers.Relu()),
		klayers.Named("out", klayers.Linear(2)),
		klayers.Named("probs", klayers.Softmax()),
	)
	assert.NoError(t, err)
	return g
}

func generate(t *testing.T, e *kgraph.Engine, g *kgraph.Graph) *kgraph.Graph {
	t.Helper()
	g, err := e.GenerateParameters(g)
	assert.NoError(t, err)
	return g
}
