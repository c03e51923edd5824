package kfunc

import (
	"errors"
	"fmt"

	"golang.org/x/exp/maps"
	"golang.org/x/exp/slices"
)

var (
	ErrNotFound          = errors.New("function not found")
	ErrAlreadyRegistered = errors.New("function already registered")
	ErrInvalidName       = errors.New("invalid function name")
)

// Table maps names to functions of a single signature.
//
// Table is NOT safe for concurrent registration. Register everything during
// process start, then share the table read-only.
type Table[F any] struct {
	kind string
	fns  map[string]F
}

// NewTable creates an empty table. kind is used in error messages only.
func NewTable[F any](kind string) *Table[F] {
	return &Table[F]{
		kind: kind,
		fns:  make(map[string]F),
	}
}

// Register binds fn to name.
func (t *Table[F]) Register(name string, fn F) error {
	if name == "" {
		return fmt.Errorf("%w: %s name cannot be empty", ErrInvalidName, t.kind)
	}
	if _, exists := t.fns[name]; exists {
		return fmt.Errorf("%w: %s %q", ErrAlreadyRegistered, t.kind, name)
	}
	t.fns[name] = fn
	return nil
}

// MustRegister is like Register but panics on error.
func (t *Table[F]) MustRegister(name string, fn F) {
	if err := t.Register(name, fn); err != nil {
		panic(err)
	}
}

// Lookup returns the function bound to name.
func (t *Table[F]) Lookup(name string) (F, error) {
	fn, ok := t.fns[name]
	if !ok {
		var zero F
		return zero, fmt.Errorf("%w: %s %q (available: %v)", ErrNotFound, t.kind, name, t.Names())
	}
	return fn, nil
}

// Names returns all registered names in sorted order.
func (t *Table[F]) Names() []string {
	names := make([]string, 0, len(t.fns))
	for name := range t.fns {
		names = append(names, name)
	}
	slices.Sort(names)
	return names
}

// Clone returns an independent copy of the table.
func (t *Table[F]) Clone() *Table[F] {
	return &Table[F]{
		kind: t.kind,
		fns:  maps.Clone(t.fns),
	}
}
