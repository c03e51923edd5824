package nngraph

import (
	"errors"
	"fmt"

	"gonum.org/v1/gonum/floats"
	"gonum.org/v1/gonum/stat"

	"github.com/birdayz/nngraph/kbuffer"
	"github.com/birdayz/nngraph/kgraph"
)

// Names of the built-in augmentations.
const (
	AugmentIdentity  = "identity"
	AugmentNormalize = "normalize"
)

// Identity returns the stream value unchanged.
func Identity(v any) (any, error) {
	return v, nil
}

// Normalize shifts a []float64 or *kbuffer.Buffer stream to zero mean and unit
// standard deviation. A constant stream is only shifted.
func Normalize(v any) (any, error) {
	return mapValues(v, func(xs []float64) {
		mean, std := stat.MeanStdDev(xs, nil)
		floats.AddConst(-mean, xs)
		if std > 0 {
			floats.Scale(1/std, xs)
		}
	})
}

// Scale returns an augmentation multiplying a []float64 or *kbuffer.Buffer
// stream by factor.
func Scale(factor float64) kgraph.AugmentFunc {
	return func(v any) (any, error) {
		return mapValues(v, func(xs []float64) {
			floats.Scale(factor, xs)
		})
	}
}

// mapValues applies fn to a copy of the elements of v.
func mapValues(v any, fn func([]float64)) (any, error) {
	switch v := v.(type) {
	case []float64:
		xs := make([]float64, len(v))
		copy(xs, v)
		fn(xs)
		return xs, nil
	case *kbuffer.Buffer:
		if v == nil {
			return nil, errors.New("nil buffer")
		}
		xs := v.Data()
		fn(xs)
		return kbuffer.New(v.Shape(), xs)
	}
	return nil, fmt.Errorf("expected []float64 or *kbuffer.Buffer, got %T", v)
}
