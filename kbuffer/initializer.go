package kbuffer

import (
	"errors"
	"fmt"
	"math"
	"math/rand/v2"
	"sync"

	"gonum.org/v1/gonum/floats"
	"gonum.org/v1/gonum/stat/distuv"
)

var ErrNoInitializer = errors.New("no initializer available")

// Kind names an initialization strategy.
type Kind string

const (
	KindZero     Kind = "zero"
	KindConstant Kind = "constant"
	KindRandom   Kind = "random"
)

// Distribution selects the distribution sampled by the random initializer.
type Distribution string

const (
	DistributionNormal  Distribution = "normal"
	DistributionUniform Distribution = "uniform"

	// DistributionXavier is a zero-mean normal whose deviation is derived
	// from the shape: sqrt(2 / (fan-in + fan-out)), with fan-out the first
	// dimension and fan-in the product of the others.
	DistributionXavier Distribution = "xavier"
)

// InitSpec describes how a parameter buffer is filled when it is first
// allocated. Only the fields relevant to Kind are read.
type InitSpec struct {
	Kind Kind

	// Value is the fill value of the constant strategy.
	Value float64

	Distribution Distribution
	Mean         float64
	Stddev       float64
	Min          float64
	Max          float64
}

// Initializer allocates a fresh buffer of the given shape.
type Initializer interface {
	Initialize(shape Shape, spec InitSpec) (*Buffer, error)
}

// InitializerFunc adapts a function to the Initializer interface.
type InitializerFunc func(shape Shape, spec InitSpec) (*Buffer, error)

func (f InitializerFunc) Initialize(shape Shape, spec InitSpec) (*Buffer, error) {
	return f(shape, spec)
}

// Zero fills buffers with zeros.
var Zero Initializer = InitializerFunc(func(shape Shape, _ InitSpec) (*Buffer, error) {
	return Zeros(shape)
})

// Constant fills buffers with spec.Value.
var Constant Initializer = InitializerFunc(func(shape Shape, spec InitSpec) (*Buffer, error) {
	b, err := Zeros(shape)
	if err != nil {
		return nil, err
	}
	floats.AddConst(spec.Value, b.data)
	return b, nil
})

// Unavailable rejects every request. It is the fallback of a registry that has
// not been wired to a buffer-initialization service.
var Unavailable Initializer = InitializerFunc(func(_ Shape, spec InitSpec) (*Buffer, error) {
	return nil, fmt.Errorf("%w: kind %q", ErrNoInitializer, spec.Kind)
})

// Random samples every element from the distribution named by the InitSpec.
// A zero Stddev for the normal distribution defaults to 1, an empty uniform
// range defaults to [-1, 1).
type Random struct {
	mu  sync.Mutex
	src rand.Source
}

// NewRandom returns a random initializer with a deterministic seed, so the
// same sequence of allocations always yields the same buffers.
func NewRandom(seed uint64) *Random {
	return &Random{src: rand.NewPCG(seed, seed^0x9e3779b97f4a7c15)}
}

func (r *Random) Initialize(shape Shape, spec InitSpec) (*Buffer, error) {
	b, err := Zeros(shape)
	if err != nil {
		return nil, err
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	var sample func() float64
	switch spec.Distribution {
	case DistributionNormal, "":
		sigma := spec.Stddev
		if sigma == 0 {
			sigma = 1
		}
		sample = distuv.Normal{Mu: spec.Mean, Sigma: sigma, Src: r.src}.Rand
	case DistributionUniform:
		lo, hi := spec.Min, spec.Max
		if lo == hi {
			lo, hi = -1, 1
		}
		sample = distuv.Uniform{Min: lo, Max: hi, Src: r.src}.Rand
	case DistributionXavier:
		sample = distuv.Normal{Mu: 0, Sigma: xavierStddev(shape), Src: r.src}.Rand
	default:
		return nil, fmt.Errorf("unknown distribution %q", spec.Distribution)
	}

	for i := range b.data {
		b.data[i] = sample()
	}
	return b, nil
}

func xavierStddev(shape Shape) float64 {
	if len(shape) == 0 {
		return 1
	}
	fanOut := shape[0]
	fanIn := Shape(shape[1:]).ElementCount()
	return math.Sqrt(2 / float64(fanIn+fanOut))
}
