package kgraph

import (
	"fmt"

	"golang.org/x/exp/maps"

	"github.com/birdayz/nngraph/kbuffer"
	"github.com/birdayz/nngraph/kfunc"
)

// ShapeFunc computes the expected shape of a parameter argument of node n.
type ShapeFunc func(g *Graph, n *Node, arg ParameterArg) (kbuffer.Shape, error)

// AugmentFunc derives an augmented stream value from a raw stream value.
type AugmentFunc func(value any) (any, error)

// BuildFunc is invoked when a node is inserted. It receives a copy of the node
// and the graph before insertion, so it can read predecessors but not the
// node itself. It may set attributes and arguments; it must not change ID or
// Type, nor any parameter argument that already references a buffer.
type BuildFunc func(n *Node, g *Graph, preds []NodeID) (*Node, error)

// NodeTypeSpec describes a node type: the argument templates it declares and
// its insertion-time hook.
type NodeTypeSpec struct {
	Arguments map[string]Argument
	Build     BuildFunc
}

// Registry dispatches on node type tags and initialization kinds, and holds
// the named shape and augmentation functions.
//
// IMPORTANT: Registry is NOT safe for concurrent registration. Populate it at
// process start, then share it read-only between engines.
type Registry struct {
	types       map[NodeType]NodeTypeSpec
	defaultType NodeTypeSpec

	initializers map[kbuffer.Kind]kbuffer.Initializer
	fallbackInit kbuffer.Initializer
	shapeFuncs   *kfunc.Table[ShapeFunc]
	augmentFuncs *kfunc.Table[AugmentFunc]
}

// NewRegistry creates a registry that knows no node types. Unknown types get
// a spec without arguments or build hook; unknown initialization kinds go to
// kbuffer.Unavailable until SetFallbackInitializer is called.
func NewRegistry() *Registry {
	return &Registry{
		types:        make(map[NodeType]NodeTypeSpec),
		initializers: make(map[kbuffer.Kind]kbuffer.Initializer),
		fallbackInit: kbuffer.Unavailable,
		shapeFuncs:   kfunc.NewTable[ShapeFunc]("shape function"),
		augmentFuncs: kfunc.NewTable[AugmentFunc]("augmentation"),
	}
}

// RegisterNodeType adds a node type.
func (r *Registry) RegisterNodeType(t NodeType, spec NodeTypeSpec) error {
	if t == "" {
		return fmt.Errorf("%w: node type cannot be empty", ErrInvalidNode)
	}
	if _, exists := r.types[t]; exists {
		return fmt.Errorf("%w: %s", ErrTypeAlreadyRegistered, t)
	}
	r.types[t] = spec
	return nil
}

// MustRegisterNodeType is like RegisterNodeType but panics on error.
func (r *Registry) MustRegisterNodeType(t NodeType, spec NodeTypeSpec) {
	must(r.RegisterNodeType(t, spec))
}

// SetDefaultNodeType replaces the spec used for unregistered node types.
func (r *Registry) SetDefaultNodeType(spec NodeTypeSpec) {
	r.defaultType = spec
}

// Metadata returns the spec of a node type, or the default spec.
func (r *Registry) Metadata(t NodeType) NodeTypeSpec {
	if spec, ok := r.types[t]; ok {
		return spec
	}
	return r.defaultType
}

// HasNodeType reports whether t has been registered.
func (r *Registry) HasNodeType(t NodeType) bool {
	_, ok := r.types[t]
	return ok
}

// RegisterInitializer binds an initialization kind to an initializer,
// replacing any previous binding.
func (r *Registry) RegisterInitializer(kind kbuffer.Kind, init kbuffer.Initializer) {
	r.initializers[kind] = init
}

// SetFallbackInitializer sets the initializer used for kinds without a
// binding, typically an external buffer-initialization service.
func (r *Registry) SetFallbackInitializer(init kbuffer.Initializer) {
	r.fallbackInit = init
}

// Initializer returns the initializer for kind.
func (r *Registry) Initializer(kind kbuffer.Kind) kbuffer.Initializer {
	if init, ok := r.initializers[kind]; ok {
		return init
	}
	return r.fallbackInit
}

// RegisterShapeFunc binds a shape function to name.
func (r *Registry) RegisterShapeFunc(name string, fn ShapeFunc) error {
	return r.shapeFuncs.Register(name, fn)
}

// MustRegisterShapeFunc is like RegisterShapeFunc but panics on error.
func (r *Registry) MustRegisterShapeFunc(name string, fn ShapeFunc) {
	r.shapeFuncs.MustRegister(name, fn)
}

// ShapeFunc resolves a shape function by name.
func (r *Registry) ShapeFunc(name string) (ShapeFunc, error) {
	return r.shapeFuncs.Lookup(name)
}

// RegisterAugmentation binds an augmentation function to name.
func (r *Registry) RegisterAugmentation(name string, fn AugmentFunc) error {
	return r.augmentFuncs.Register(name, fn)
}

// MustRegisterAugmentation is like RegisterAugmentation but panics on error.
func (r *Registry) MustRegisterAugmentation(name string, fn AugmentFunc) {
	r.augmentFuncs.MustRegister(name, fn)
}

// Augmentation resolves an augmentation function by name.
func (r *Registry) Augmentation(name string) (AugmentFunc, error) {
	return r.augmentFuncs.Lookup(name)
}

// Clone returns a registry with the same bindings. Registrations on the
// clone do not affect r.
func (r *Registry) Clone() *Registry {
	return &Registry{
		types:        maps.Clone(r.types),
		defaultType:  r.defaultType,
		initializers: maps.Clone(r.initializers),
		fallbackInit: r.fallbackInit,
		shapeFuncs:   r.shapeFuncs.Clone(),
		augmentFuncs: r.augmentFuncs.Clone(),
	}
}

func must(err error) {
	if err != nil {
		panic(err)
	}
}
