package kbuffer

import (
	"errors"
	"fmt"

	"golang.org/x/exp/slices"
	"gonum.org/v1/gonum/floats"
)

var (
	ErrInvalidShape = errors.New("invalid shape")
	ErrDataLength   = errors.New("data length does not match shape")
)

// Shape is an ordered sequence of dimension sizes. The empty shape describes a
// scalar.
type Shape []int

// ElementCount returns the number of elements a buffer of this shape holds.
func (s Shape) ElementCount() int {
	n := 1
	for _, d := range s {
		n *= d
	}
	return n
}

// Equal reports whether both shapes have identical rank and dimensions.
func (s Shape) Equal(other Shape) bool {
	return slices.Equal(s, other)
}

// Validate returns ErrInvalidShape if any dimension is not positive.
func (s Shape) Validate() error {
	for i, d := range s {
		if d <= 0 {
			return fmt.Errorf("%w: dimension %d of %v is %d", ErrInvalidShape, i, []int(s), d)
		}
	}
	return nil
}

func (s Shape) String() string {
	return fmt.Sprint([]int(s))
}

// Buffer is an immutable block of float64 values laid out row-major according
// to its shape. Accessors return copies so a buffer can be shared between
// graph snapshots and goroutines.
type Buffer struct {
	shape Shape
	data  []float64
}

// New creates a buffer holding a copy of data.
func New(shape Shape, data []float64) (*Buffer, error) {
	if err := shape.Validate(); err != nil {
		return nil, err
	}
	if len(data) != shape.ElementCount() {
		return nil, fmt.Errorf("%w: shape %v needs %d elements, got %d",
			ErrDataLength, shape, shape.ElementCount(), len(data))
	}
	return &Buffer{
		shape: slices.Clone(shape),
		data:  slices.Clone(data),
	}, nil
}

// MustNew is like New but panics on error.
func MustNew(shape Shape, data []float64) *Buffer {
	b, err := New(shape, data)
	if err != nil {
		panic(err)
	}
	return b
}

// Zeros returns a zero-filled buffer.
func Zeros(shape Shape) (*Buffer, error) {
	if err := shape.Validate(); err != nil {
		return nil, err
	}
	return &Buffer{
		shape: slices.Clone(shape),
		data:  make([]float64, shape.ElementCount()),
	}, nil
}

// Shape returns a copy of the buffer's shape.
func (b *Buffer) Shape() Shape {
	return slices.Clone(b.shape)
}

// Len returns the element count.
func (b *Buffer) Len() int {
	return len(b.data)
}

// Data returns a copy of the underlying values.
func (b *Buffer) Data() []float64 {
	return slices.Clone(b.data)
}

// At returns the i-th element in row-major order.
func (b *Buffer) At(i int) float64 {
	return b.data[i]
}

// Equal reports whether both buffers have the same shape and contents.
func (b *Buffer) Equal(other *Buffer) bool {
	if b == nil || other == nil {
		return b == other
	}
	return b.shape.Equal(other.shape) && floats.Equal(b.data, other.data)
}

func (b *Buffer) String() string {
	return fmt.Sprintf("Buffer%v", b.shape)
}

// ShapeOf returns the shape of b, or nil for a nil buffer.
func ShapeOf(b *Buffer) Shape {
	if b == nil {
		return nil
	}
	return b.Shape()
}

// Count returns the element count of b, or 0 for a nil buffer.
func Count(b *Buffer) int {
	if b == nil {
		return 0
	}
	return b.Len()
}
