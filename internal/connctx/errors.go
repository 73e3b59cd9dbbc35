/*
Copyright 2026 Ardika Saputro.
Licensed under the Apache License, Version 2.0.
*/

package connctx

import "errors"

// ErrClosed is returned by Do once the context has been disposed.
var ErrClosed = errors.New("connection context is closed")
