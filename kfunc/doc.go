// Package kfunc resolves symbolic function references to callables.
//
// Shape functions and stream augmentations are referenced by name from node
// arguments. A Table maps those names to typed Go functions, and Invoke runs
// a resolved function while turning a panic into an ordinary error, so a
// faulty extension surfaces as an opaque cause instead of crashing the
// caller.
package kfunc
