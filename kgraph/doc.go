// Package kgraph is a directed computation-graph engine for neural network
// topologies.
//
// # Overview
//
// A Graph holds nodes (layers), the edges between them (data dependencies)
// and the named buffers (parameters and their gradients) the nodes own. The
// package does no numeric work: it builds, validates and wires the structure
// an execution engine walks.
//
// The work is split in two:
//
//   - **Graph**: an immutable value. Every update returns a new Graph that
//     shares unchanged nodes and buffers with the old one, so snapshots can be
//     read concurrently without locking.
//   - **Engine**: the operations that dispatch on open sets of tags through a
//     Registry (node types, initialization kinds, shape functions and
//     augmentations).
//
// # Basic Usage
//
//	reg := kgraph.NewRegistry()
//	reg.RegisterInitializer(kbuffer.KindZero, kbuffer.Zero)
//	reg.MustRegisterNodeType("dense", kgraph.NodeTypeSpec{
//	    Arguments: map[string]kgraph.Argument{
//	        "weights": kgraph.ParameterArg{
//	            Shape: kbuffer.Shape{2, 2},
//	            Init:  kbuffer.InitSpec{Kind: kbuffer.KindZero},
//	        },
//	    },
//	})
//	engine := kgraph.NewEngine(reg)
//
//	g := kgraph.New()
//	g, err := engine.AddNode(g, &kgraph.Node{ID: "in", Type: "input"})
//	g, err = engine.AddNode(g, &kgraph.Node{ID: "fc", Type: "dense"}, "in")
//	g, err = engine.GenerateParameters(g)
//
//	streams, err := engine.AugmentStreams(g, map[string]any{"data": batch})
//	args, err := engine.ResolveNodeArguments(g, "fc", streams, outputs)
//
// # Arguments
//
// A node declares its inputs as arguments, a closed set of variants:
// StreamArg, ParameterArg, NodeOutputArg, NodeParameterArg and
// AugmentedStreamArg. The node type declares templates; a node's own Args
// override them key by key (see Engine.NodeArguments).
//
// # Ordering
//
// Nodes can only be inserted after their predecessors, so graphs are acyclic
// by construction. DFSSeq yields a deterministic topological order that
// GenerateParameters and AugmentStreams walk.
//
// # Error Handling
//
// Every failure matches a sentinel error (ErrDuplicateNodeID,
// ErrShapeMismatch, ErrUnresolvedStream, ...) with errors.Is and carries its
// diagnostic payload in a struct type reachable with errors.As:
//
//	_, err := engine.ResolveNodeArguments(g, "fc", streams, outputs)
//	var unresolved *kgraph.UnresolvedArgumentError
//	if errors.As(err, &unresolved) {
//	    fmt.Println(unresolved.Available)
//	}
//
// # Thread Safety
//
// Graph values and Engine are safe for concurrent use. Registry is NOT safe
// for concurrent registration; populate it before creating engines.
package kgraph
