// Package graal binds the native image shared library through cgo.
//
// The binding is only compiled with cgo enabled and the graal build tag:
//
//	CGO_CFLAGS=-I/path/to/sdk/include CGO_LDFLAGS=-L/path/to/sdk/lib \
//		go build -tags graal ./...
//
// Without it, New returns ErrNotBuilt.
package graal

import "errors"

// ErrNotBuilt is returned by New when the binary was built without the
// native library.
var ErrNotBuilt = errors.New("graal backend not built: rebuild with cgo and -tags graal")
