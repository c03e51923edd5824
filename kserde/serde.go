// Package kserde converts values to and from bytes, for persisting buffers
// outside a graph.
package kserde

import "errors"

var ErrShortData = errors.New("short data")

type Serde[T any] struct {
	Serializer   Serializer[T]
	Deserializer Deserializer[T]
}

type Serializer[T any] func(T) ([]byte, error)

type Deserializer[T any] func([]byte) (T, error)
