package kgraph

import (
	"fmt"

	"github.com/go-logr/logr"
	"golang.org/x/exp/slices"
)

// Option configures an Engine.
type Option func(*Engine)

// WithLogr sets the logger of the engine.
var WithLogr = func(log logr.Logger) Option {
	return func(e *Engine) {
		e.log = log
	}
}

// Engine runs the graph operations that dispatch through a Registry: node
// insertion, parameter generation, stream augmentation and argument
// resolution. Engine holds no graph state and is safe for concurrent use
// once its registry is fully populated.
type Engine struct {
	reg *Registry
	log logr.Logger
}

// NewEngine creates an engine dispatching through reg.
func NewEngine(reg *Registry, opts ...Option) *Engine {
	e := &Engine{
		reg: reg,
		log: logr.Discard(),
	}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// Registry returns the registry the engine dispatches through.
func (e *Engine) Registry() *Registry {
	return e.reg
}

// AddNode returns a new graph with node inserted after preds.
//
// Every predecessor must already be in the graph, which keeps the graph
// acyclic. A node without an ID gets one derived from its type. The build
// hook of the node type runs before insertion and may derive attributes from
// the predecessors.
func (e *Engine) AddNode(g *Graph, node *Node, preds ...NodeID) (*Graph, error) {
	if node == nil {
		return nil, fmt.Errorf("%w: node cannot be nil", ErrInvalidNode)
	}

	var missing []NodeID
	for _, p := range preds {
		if _, ok := g.nodes[p]; !ok && !slices.Contains(missing, p) {
			missing = append(missing, p)
		}
	}
	if len(missing) > 0 {
		return nil, &MissingPredecessorError{
			Predecessors: slices.Clone(preds),
			Missing:      missing,
		}
	}

	n := node.Clone()
	if n.ID == "" {
		n.ID = g.nextNodeID(n.Type)
	} else if existing, ok := g.nodes[n.ID]; ok {
		return nil, &DuplicateNodeIDError{Node: n, Existing: existing.Clone()}
	}
	if err := n.ID.Validate(); err != nil {
		return nil, err
	}

	if build := e.reg.Metadata(n.Type).Build; build != nil {
		built, err := build(n.Clone(), g, slices.Clone(preds))
		if err != nil {
			return nil, fmt.Errorf("build %s node %s: %w", n.Type, n.ID, err)
		}
		if err := checkBuildContract(n, built); err != nil {
			return nil, err
		}
		n = built.Clone()
	}

	e.log.V(1).Info("Adding node", "node", n.ID, "type", n.Type, "predecessors", preds)
	return g.withNode(n, preds), nil
}

func checkBuildContract(before, after *Node) error {
	fail := func(format string, args ...any) error {
		return &BuildContractError{Type: before.Type, Node: before.ID, Detail: fmt.Sprintf(format, args...)}
	}
	if after == nil {
		return fail("returned nil node")
	}
	if after.ID != before.ID {
		return fail("changed id to %s", after.ID)
	}
	if after.Type != before.Type {
		return fail("changed type to %s", after.Type)
	}
	for key, arg := range before.Args {
		p, ok := arg.(ParameterArg)
		if !ok || p.BufferID == "" {
			continue
		}
		q, ok := after.Args[key].(ParameterArg)
		if !ok || q.BufferID != p.BufferID {
			return fail("rewrote parameter %q bound to buffer %s", key, p.BufferID)
		}
	}
	return nil
}

// NodeArguments returns the arguments of n sorted by key: every template its
// type declares merged with the node's instance-level override, plus
// arguments that exist only on the instance.
func (e *Engine) NodeArguments(n *Node) []KeyedArgument {
	templates := e.reg.Metadata(n.Type).Arguments

	keys := make([]string, 0, len(templates)+len(n.Args))
	for key := range templates {
		keys = append(keys, key)
	}
	for key := range n.Args {
		if _, ok := templates[key]; !ok {
			keys = append(keys, key)
		}
	}
	slices.Sort(keys)

	out := make([]KeyedArgument, 0, len(keys))
	for _, key := range keys {
		arg := mergeArgument(templates[key], n.Args[key])
		if arg == nil {
			continue
		}
		out = append(out, KeyedArgument{Key: key, Argument: arg})
	}
	return out
}

// NodeArgument returns the merged argument of n under key.
func (e *Engine) NodeArgument(n *Node, key string) (Argument, bool) {
	arg := mergeArgument(e.reg.Metadata(n.Type).Arguments[key], n.Args[key])
	return arg, arg != nil
}
