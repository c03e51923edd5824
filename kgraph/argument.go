package kgraph

import (
	"fmt"

	"github.com/birdayz/nngraph/kbuffer"
)

// ArgumentKind tags the variant of an Argument.
type ArgumentKind int

const (
	KindStream ArgumentKind = iota
	KindParameter
	KindNodeOutput
	KindNodeParameter
	KindAugmentedStream
)

func (k ArgumentKind) String() string {
	switch k {
	case KindStream:
		return "stream"
	case KindParameter:
		return "parameter"
	case KindNodeOutput:
		return "node-output"
	case KindNodeParameter:
		return "node-parameter"
	case KindAugmentedStream:
		return "stream-augmentation"
	default:
		return "unknown"
	}
}

// Argument describes how a node input is obtained at execution time. The set
// of variants is closed: StreamArg, ParameterArg, NodeOutputArg,
// NodeParameterArg and AugmentedStreamArg.
type Argument interface {
	Kind() ArgumentKind
	isArgument()
}

// StreamArg reads a value from the external input-stream map.
type StreamArg struct {
	Stream string
}

// ParameterArg reads a graph-owned learnable buffer.
//
// The expected shape comes from the shape function named by ShapeFn, or from
// Shape when ShapeFn is empty. Buffer may carry a user-supplied initial value;
// once the parameter has been generated it is cleared and BufferID references
// the graph-owned copy.
type ParameterArg struct {
	BufferID BufferID
	ShapeFn  string
	Shape    kbuffer.Shape
	Init     kbuffer.InitSpec
	Buffer   *kbuffer.Buffer
}

// NodeOutputArg reads the already-computed output of another node.
type NodeOutputArg struct {
	Node NodeID
}

// NodeParameterArg reads the parameter buffer another node holds under Param.
type NodeParameterArg struct {
	Node  NodeID
	Param string
}

// AugmentedStreamArg reads a stream derived by applying the augmentation
// function named Augmentation to the raw stream Stream.
type AugmentedStreamArg struct {
	Stream       string
	Augmentation string
}

func (StreamArg) Kind() ArgumentKind          { return KindStream }
func (ParameterArg) Kind() ArgumentKind       { return KindParameter }
func (NodeOutputArg) Kind() ArgumentKind      { return KindNodeOutput }
func (NodeParameterArg) Kind() ArgumentKind   { return KindNodeParameter }
func (AugmentedStreamArg) Kind() ArgumentKind { return KindAugmentedStream }

func (StreamArg) isArgument()          {}
func (ParameterArg) isArgument()       {}
func (NodeOutputArg) isArgument()      {}
func (NodeParameterArg) isArgument()   {}
func (AugmentedStreamArg) isArgument() {}

func (a StreamArg) String() string { return fmt.Sprintf("stream(%s)", a.Stream) }

func (a ParameterArg) String() string {
	if a.BufferID != "" {
		return fmt.Sprintf("parameter(%s)", a.BufferID)
	}
	return fmt.Sprintf("parameter(shape-fn=%q)", a.ShapeFn)
}

func (a NodeOutputArg) String() string { return fmt.Sprintf("node-output(%s)", a.Node) }

func (a NodeParameterArg) String() string {
	return fmt.Sprintf("node-parameter(%s.%s)", a.Node, a.Param)
}

func (a AugmentedStreamArg) String() string {
	return fmt.Sprintf("stream-augmentation(%s)", AugmentedStreamID(a.Stream, a.Augmentation))
}

// KeyedArgument is an argument tagged with the node field it was declared
// under.
type KeyedArgument struct {
	Key string
	Argument
}

// AugmentedStreamID derives the stream-map key under which the result of
// applying augmentation to stream is stored.
func AugmentedStreamID(stream, augmentation string) string {
	return stream + ":" + augmentation
}

// mergeArgument overlays a node's instance-level argument on the template
// declared by its type. Instance fields win; a parameter inherits the
// template's shape and initialization when it leaves them unset.
func mergeArgument(template, instance Argument) Argument {
	if instance == nil {
		return template
	}
	tp, ok := template.(ParameterArg)
	if !ok {
		return instance
	}
	ip, ok := instance.(ParameterArg)
	if !ok {
		return instance
	}
	if ip.ShapeFn == "" && ip.Shape == nil {
		ip.ShapeFn = tp.ShapeFn
		ip.Shape = tp.Shape
	}
	if ip.Init == (kbuffer.InitSpec{}) {
		ip.Init = tp.Init
	}
	if ip.BufferID == "" && ip.Buffer == nil {
		ip.BufferID = tp.BufferID
		ip.Buffer = tp.Buffer
	}
	return ip
}
