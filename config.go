package nngraph

import (
	"github.com/go-logr/logr"

	"github.com/birdayz/nngraph/kbuffer"
	"github.com/birdayz/nngraph/kgraph"
)

// Option configures the engine built by New.
type Option func(*config)

type config struct {
	log      logr.Logger
	reg      *kgraph.Registry
	seed     uint64
	fallback kbuffer.Initializer

	initializers  map[kbuffer.Kind]kbuffer.Initializer
	shapeFuncs    map[string]kgraph.ShapeFunc
	augmentations map[string]kgraph.AugmentFunc
	nodeTypes     map[kgraph.NodeType]kgraph.NodeTypeSpec
}

func newConfig() *config {
	return &config{
		log:           logr.Discard(),
		seed:          DefaultSeed,
		initializers:  make(map[kbuffer.Kind]kbuffer.Initializer),
		shapeFuncs:    make(map[string]kgraph.ShapeFunc),
		augmentations: make(map[string]kgraph.AugmentFunc),
		nodeTypes:     make(map[kgraph.NodeType]kgraph.NodeTypeSpec),
	}
}

// WithLogr sets the logger of the engine.
var WithLogr = func(log logr.Logger) Option {
	return func(c *config) {
		c.log = log
	}
}

// WithRegistry makes the engine dispatch through a copy of reg instead of a
// fresh registry. The built-in layers, initializers and augmentations are not
// added to it; the other options are, without touching reg itself.
var WithRegistry = func(reg *kgraph.Registry) Option {
	return func(c *config) {
		c.reg = reg
	}
}

// WithSeed seeds the built-in random initializer.
var WithSeed = func(seed uint64) Option {
	return func(c *config) {
		c.seed = seed
	}
}

// WithFallbackInitializer sets the initializer used for kinds nothing is
// registered for, typically a client of an external initialization service.
var WithFallbackInitializer = func(init kbuffer.Initializer) Option {
	return func(c *config) {
		c.fallback = init
	}
}

// WithInitializer registers init for kind, replacing a built-in one.
var WithInitializer = func(kind kbuffer.Kind, init kbuffer.Initializer) Option {
	return func(c *config) {
		c.initializers[kind] = init
	}
}

// WithShapeFunc registers a named shape function for parameter arguments.
var WithShapeFunc = func(name string, fn kgraph.ShapeFunc) Option {
	return func(c *config) {
		c.shapeFuncs[name] = fn
	}
}

// WithAugmentation registers a named stream augmentation.
var WithAugmentation = func(name string, fn kgraph.AugmentFunc) Option {
	return func(c *config) {
		c.augmentations[name] = fn
	}
}

// WithNodeType registers an additional node type.
var WithNodeType = func(t kgraph.NodeType, spec kgraph.NodeTypeSpec) Option {
	return func(c *config) {
		c.nodeTypes[t] = spec
	}
}
