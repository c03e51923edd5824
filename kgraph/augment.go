package kgraph

import (
	"golang.org/x/exp/maps"

	"github.com/birdayz/nngraph/kfunc"
)

// AugmentStreams computes every augmented stream declared by the graph's
// nodes and returns a copy of streams extended with the results, keyed by
// AugmentedStreamID. Raw entries are never overwritten, and an augmentation
// shared by several nodes is computed once.
func (e *Engine) AugmentStreams(g *Graph, streams map[string]any) (map[string]any, error) {
	out := maps.Clone(streams)
	if out == nil {
		out = make(map[string]any)
	}

	done := make(map[string]bool)
	for _, id := range g.DFSSeq() {
		node := g.nodes[id]
		for _, ka := range e.NodeArguments(node) {
			arg, ok := ka.Argument.(AugmentedStreamArg)
			if !ok {
				continue
			}
			augID := AugmentedStreamID(arg.Stream, arg.Augmentation)
			if done[augID] {
				continue
			}

			raw, ok := streams[arg.Stream]
			if !ok {
				return nil, &MissingAugmentationSourceError{
					Node:      id,
					Key:       ka.Key,
					Argument:  arg,
					Available: sortedKeys(streams),
				}
			}
			done[augID] = true
			if _, exists := streams[augID]; exists {
				continue
			}

			fn, err := e.reg.Augmentation(arg.Augmentation)
			if err != nil {
				return nil, &AugmentationError{Node: id, Key: ka.Key, Argument: arg, Err: err}
			}
			v, err := kfunc.Invoke(func() (any, error) {
				return fn(raw)
			})
			if err != nil {
				return nil, &AugmentationError{Node: id, Key: ka.Key, Argument: arg, Err: err}
			}
			out[augID] = v
		}
	}
	return out, nil
}
