package kfunc

import "fmt"

// PanicError wraps a value recovered from a panicking function.
type PanicError struct {
	Value any
}

func (e *PanicError) Error() string {
	return fmt.Sprintf("function panicked: %v", e.Value)
}

// Unwrap exposes the panic value when it was an error.
func (e *PanicError) Unwrap() error {
	err, _ := e.Value.(error)
	return err
}

// Invoke calls fn and converts a panic into a *PanicError.
func Invoke[R any](fn func() (R, error)) (result R, err error) {
	defer func() {
		if r := recover(); r != nil {
			var zero R
			result = zero
			err = &PanicError{Value: r}
		}
	}()
	return fn()
}
