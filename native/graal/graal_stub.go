//go:build !(cgo && graal)

package graal

import "github.com/caffeineduck/graaliso/native"

// New reports that the native library is not linked into this binary.
func New() (native.Runtime, error) {
	return nil, ErrNotBuilt
}
