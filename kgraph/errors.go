package kgraph

import (
	"errors"
	"fmt"
	"strings"

	"github.com/birdayz/nngraph/kbuffer"
)

// Sentinel errors for common failure cases. Every failure returned by this
// package matches one of them with errors.Is; the struct types below carry
// the diagnostic payload and can be extracted with errors.As.
var (
	ErrDuplicateNodeID           = errors.New("duplicate node id")
	ErrMissingPredecessor        = errors.New("missing predecessor")
	ErrNodeNotFound              = errors.New("node not found")
	ErrInvalidNodeID             = errors.New("invalid node id")
	ErrInvalidNode               = errors.New("invalid node")
	ErrBuildContract             = errors.New("build hook contract violated")
	ErrTypeAlreadyRegistered     = errors.New("node type already registered")
	ErrShapeFunction             = errors.New("shape function failed")
	ErrShapeMismatch             = errors.New("shape mismatch")
	ErrUserBufferShapeMismatch   = errors.New("user buffer shape mismatch")
	ErrMissingAugmentationSource = errors.New("missing augmentation source")
	ErrAugmentation              = errors.New("augmentation failed")
	ErrUnresolvedStream          = errors.New("unresolved stream")
	ErrUnresolvedParameter       = errors.New("unresolved parameter")
	ErrUnresolvedNodeOutput      = errors.New("unresolved node output")
	ErrUnresolvedNodeParameter   = errors.New("unresolved node parameter")
	ErrUnresolvedAugmentedStream = errors.New("unresolved augmented stream")
	ErrInvalidGraph              = errors.New("invalid graph")
)

// DuplicateNodeIDError is returned when a node is inserted with an id that
// the graph already holds.
type DuplicateNodeIDError struct {
	Node     *Node
	Existing *Node
}

func (e *DuplicateNodeIDError) Error() string {
	return fmt.Sprintf("%s: %s (type %s) conflicts with existing node of type %s",
		ErrDuplicateNodeID, e.Node.ID, e.Node.Type, e.Existing.Type)
}

func (e *DuplicateNodeIDError) Is(target error) bool { return target == ErrDuplicateNodeID }

// MissingPredecessorError is returned when a node is inserted with
// predecessor ids that are not in the graph.
type MissingPredecessorError struct {
	Predecessors []NodeID
	Missing      []NodeID
}

func (e *MissingPredecessorError) Error() string {
	return fmt.Sprintf("%s: %s not found (predecessors: %s)",
		ErrMissingPredecessor, joinIDs(e.Missing), joinIDs(e.Predecessors))
}

func (e *MissingPredecessorError) Is(target error) bool { return target == ErrMissingPredecessor }

// BuildContractError is returned when a node type's build hook changes what
// it must not: the node identity, its type, or an allocated parameter.
type BuildContractError struct {
	Type   NodeType
	Node   NodeID
	Detail string
}

func (e *BuildContractError) Error() string {
	return fmt.Sprintf("%s: %s hook for node %s: %s", ErrBuildContract, e.Type, e.Node, e.Detail)
}

func (e *BuildContractError) Is(target error) bool { return target == ErrBuildContract }

// ShapeFunctionError wraps a failure raised while computing the expected
// shape of a parameter argument.
type ShapeFunctionError struct {
	Node     NodeID
	Key      string
	Argument ParameterArg
	Err      error
}

func (e *ShapeFunctionError) Error() string {
	return fmt.Sprintf("%s: node %s argument %q (shape function %q): %v",
		ErrShapeFunction, e.Node, e.Key, e.Argument.ShapeFn, e.Err)
}

func (e *ShapeFunctionError) Is(target error) bool { return target == ErrShapeFunction }

func (e *ShapeFunctionError) Unwrap() error { return e.Err }

// ShapeMismatchError is returned when an existing buffer does not have the
// shape its parameter argument now expects.
type ShapeMismatchError struct {
	Node     NodeID
	Key      string
	Buffer   BufferID
	Existing kbuffer.Shape
	Expected kbuffer.Shape
}

func (e *ShapeMismatchError) Error() string {
	return fmt.Sprintf("%s: node %s argument %q buffer %s has shape %v, expected %v",
		ErrShapeMismatch, e.Node, e.Key, e.Buffer, e.Existing, e.Expected)
}

func (e *ShapeMismatchError) Is(target error) bool { return target == ErrShapeMismatch }

// UserBufferShapeMismatchError is returned when a buffer supplied inline on a
// parameter argument has the wrong shape.
type UserBufferShapeMismatchError struct {
	Node     NodeID
	Key      string
	Actual   kbuffer.Shape
	Expected kbuffer.Shape
}

func (e *UserBufferShapeMismatchError) Error() string {
	return fmt.Sprintf("%s: node %s argument %q was given shape %v, expected %v",
		ErrUserBufferShapeMismatch, e.Node, e.Key, e.Actual, e.Expected)
}

func (e *UserBufferShapeMismatchError) Is(target error) bool {
	return target == ErrUserBufferShapeMismatch
}

// MissingAugmentationSourceError is returned when an augmentation refers to
// a raw stream that is absent from the stream map.
type MissingAugmentationSourceError struct {
	Node      NodeID
	Key       string
	Argument  AugmentedStreamArg
	Available []string
}

func (e *MissingAugmentationSourceError) Error() string {
	return fmt.Sprintf("%s: node %s argument %q needs stream %q (available: %s)",
		ErrMissingAugmentationSource, e.Node, e.Key, e.Argument.Stream, strings.Join(e.Available, ", "))
}

func (e *MissingAugmentationSourceError) Is(target error) bool {
	return target == ErrMissingAugmentationSource
}

// AugmentationError wraps a failure of an augmentation function, including
// a failure to resolve it by name.
type AugmentationError struct {
	Node     NodeID
	Key      string
	Argument AugmentedStreamArg
	Err      error
}

func (e *AugmentationError) Error() string {
	return fmt.Sprintf("%s: node %s argument %q (%s of stream %q): %v",
		ErrAugmentation, e.Node, e.Key, e.Argument.Augmentation, e.Argument.Stream, e.Err)
}

func (e *AugmentationError) Is(target error) bool { return target == ErrAugmentation }

func (e *AugmentationError) Unwrap() error { return e.Err }

// UnresolvedArgumentError is returned when an argument cannot be resolved to
// a value. It matches the Unresolved* sentinel of its argument kind.
// Available lists the keys that were present in the lookup that failed.
type UnresolvedArgumentError struct {
	Node      NodeID
	Key       string
	Argument  Argument
	Available []string
}

func (e *UnresolvedArgumentError) sentinel() error {
	switch e.Argument.Kind() {
	case KindStream:
		return ErrUnresolvedStream
	case KindParameter:
		return ErrUnresolvedParameter
	case KindNodeOutput:
		return ErrUnresolvedNodeOutput
	case KindNodeParameter:
		return ErrUnresolvedNodeParameter
	case KindAugmentedStream:
		return ErrUnresolvedAugmentedStream
	}
	panic(fmt.Sprintf("kgraph: unhandled argument kind %v", e.Argument.Kind()))
}

func (e *UnresolvedArgumentError) Error() string {
	return fmt.Sprintf("%s: node %s argument %q %v (available: %s)",
		e.sentinel(), e.Node, e.Key, e.Argument, strings.Join(e.Available, ", "))
}

func (e *UnresolvedArgumentError) Is(target error) bool { return target == e.sentinel() }

func joinIDs[T ~string](ids []T) string {
	strs := make([]string, len(ids))
	for i, id := range ids {
		strs[i] = string(id)
	}
	return strings.Join(strs, ", ")
}
