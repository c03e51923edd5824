package kserde

import (
	"encoding/binary"
	"errors"
	"fmt"
	"math"

	"github.com/birdayz/nngraph/kbuffer"
)

// Buffers are encoded big-endian as the rank, each dimension, then every
// element:
//
//	uint32 rank | uint32 dim... | float64 data...

// BufferSerializer encodes b. A nil buffer is an error.
var BufferSerializer = func(b *kbuffer.Buffer) ([]byte, error) {
	if b == nil {
		return nil, errors.New("cannot serialize nil buffer")
	}
	shape := b.Shape()
	out := make([]byte, 0, 4+4*len(shape)+8*b.Len())
	out = binary.BigEndian.AppendUint32(out, uint32(len(shape)))
	for _, d := range shape {
		out = binary.BigEndian.AppendUint32(out, uint32(d))
	}
	for i := 0; i < b.Len(); i++ {
		out = binary.BigEndian.AppendUint64(out, math.Float64bits(b.At(i)))
	}
	return out, nil
}

var BufferDeserializer = func(data []byte) (*kbuffer.Buffer, error) {
	if len(data) < 4 {
		return nil, fmt.Errorf("%w: buffer header needs 4 bytes, got %d", ErrShortData, len(data))
	}
	rank := int(binary.BigEndian.Uint32(data))
	data = data[4:]
	if len(data) < 4*rank {
		return nil, fmt.Errorf("%w: rank %d needs %d bytes of dimensions, got %d", ErrShortData, rank, 4*rank, len(data))
	}

	shape := make(kbuffer.Shape, rank)
	for i := range shape {
		shape[i] = int(binary.BigEndian.Uint32(data[4*i:]))
	}
	if err := shape.Validate(); err != nil {
		return nil, err
	}
	data = data[4*rank:]

	// bound the element count by the payload before it can overflow
	limit := len(data) / 8
	n := 1
	for _, d := range shape {
		if d > limit/n {
			return nil, fmt.Errorf("%w: shape %s exceeds %d bytes of data", ErrShortData, shape, len(data))
		}
		n *= d
	}
	if len(data) != 8*n {
		return nil, fmt.Errorf("%w: shape %s needs %d bytes of data, got %d", ErrShortData, shape, 8*n, len(data))
	}
	values := make([]float64, n)
	for i := range values {
		values[i] = math.Float64frombits(binary.BigEndian.Uint64(data[8*i:]))
	}
	return kbuffer.New(shape, values)
}

var Buffer = Serde[*kbuffer.Buffer]{
	Serializer:   BufferSerializer,
	Deserializer: BufferDeserializer,
}
