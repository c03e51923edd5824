// Package klayers describes common neural network layers as kgraph node
// types.
//
// Each layer declares its arguments and a build hook that derives sizes from
// its predecessors, so a network is described by sizes alone:
//
//	reg := kgraph.NewRegistry()
//	if err := klayers.Register(reg); err != nil {
//	    return err
//	}
//	engine := kgraph.NewEngine(reg)
//
//	g, err := klayers.Chain(engine, kgraph.New(),
//	    klayers.Input(784),
//	    klayers.Linear(128),
//	    klayers.Relu(),
//	    klayers.Linear(10),
//	    klayers.Softmax(),
//	)
//
// The numeric kernels belong to the execution engine; this package only
// builds the structure.
package klayers
