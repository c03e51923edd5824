// Package nngraph assembles a kgraph engine with the built-in layer library,
// buffer initializers and stream augmentations.
//
//	engine, err := nngraph.New(nngraph.WithSeed(42))
//	if err != nil {
//	    return err
//	}
//	g, err := kdesc.LoadFile(engine, kgraph.New(), "mlp.hcl")
//	if err != nil {
//	    return err
//	}
//	g, err = engine.GenerateParameters(g)
//
// See package kgraph for the graph operations themselves.
package nngraph

import (
	"go.uber.org/multierr"
	"golang.org/x/exp/slices"

	"github.com/birdayz/nngraph/kbuffer"
	"github.com/birdayz/nngraph/kgraph"
	"github.com/birdayz/nngraph/klayers"
)

// DefaultSeed seeds the random initializer unless WithSeed is given, so that
// parameter generation is reproducible by default.
const DefaultSeed uint64 = 1

// New creates an engine. Unless WithRegistry is given, its registry knows the
// klayers node types, the zero, constant and random initializers and the
// identity and normalize augmentations.
func New(opts ...Option) (*kgraph.Engine, error) {
	c := newConfig()
	for _, opt := range opts {
		opt(c)
	}

	var reg *kgraph.Registry
	if c.reg != nil {
		reg = c.reg.Clone()
	} else {
		reg = kgraph.NewRegistry()
		if err := registerBuiltins(reg, c.seed); err != nil {
			return nil, err
		}
	}

	if c.fallback != nil {
		reg.SetFallbackInitializer(c.fallback)
	}
	for _, kind := range sortedKeys(c.initializers) {
		reg.RegisterInitializer(kind, c.initializers[kind])
	}

	var err error
	for _, name := range sortedKeys(c.shapeFuncs) {
		err = multierr.Append(err, reg.RegisterShapeFunc(name, c.shapeFuncs[name]))
	}
	for _, name := range sortedKeys(c.augmentations) {
		err = multierr.Append(err, reg.RegisterAugmentation(name, c.augmentations[name]))
	}
	for _, t := range sortedKeys(c.nodeTypes) {
		err = multierr.Append(err, reg.RegisterNodeType(t, c.nodeTypes[t]))
	}
	if err != nil {
		return nil, err
	}

	return kgraph.NewEngine(reg, kgraph.WithLogr(c.log)), nil
}

// MustNew is like New but panics on error.
func MustNew(opts ...Option) *kgraph.Engine {
	e, err := New(opts...)
	if err != nil {
		panic(err)
	}
	return e
}

func registerBuiltins(reg *kgraph.Registry, seed uint64) error {
	reg.RegisterInitializer(kbuffer.KindZero, kbuffer.Zero)
	reg.RegisterInitializer(kbuffer.KindConstant, kbuffer.Constant)
	reg.RegisterInitializer(kbuffer.KindRandom, kbuffer.NewRandom(seed))

	return multierr.Combine(
		klayers.Register(reg),
		reg.RegisterAugmentation(AugmentIdentity, Identity),
		reg.RegisterAugmentation(AugmentNormalize, Normalize),
	)
}

func sortedKeys[K ~string, V any](m map[K]V) []K {
	keys := make([]K, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	slices.Sort(keys)
	return keys
}
