/*
Copyright 2026 Ardika Saputro.
Licensed under the Apache License, Version 2.0.
*/

package jsonpatch

import "fmt"

// PointerError reports a malformed or semantically invalid JSON Pointer, or
// an operation target that the pointer resolves to but cannot legally
// serve the requested operation (e.g. traversing into a scalar).
type PointerError struct {
	Msg string
}

func (e *PointerError) Error() string {
	return e.Msg
}

func pointerErrorf(format string, args ...interface{}) *PointerError {
	return &PointerError{Msg: fmt.Sprintf(format, args...)}
}

// TestFailedError is raised when a "test" operation's value assertion does
// not hold. It is distinct from PointerError: the pointer resolved fine,
// the value just didn't match.
type TestFailedError struct {
	Path     string
	Expected interface{}
	Actual   interface{}
}

func (e *TestFailedError) Error() string {
	return fmt.Sprintf("test failed at %q: expected %#v, got %#v", e.Path, e.Expected, e.Actual)
}

// UnsupportedOpError is raised when a patch operation carries an "op" value
// outside {add, remove, replace, move, copy, test}.
type UnsupportedOpError struct {
	Op string
}

func (e *UnsupportedOpError) Error() string {
	return fmt.Sprintf("unsupported patch operation %q", e.Op)
}
