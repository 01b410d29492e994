// Package osthread identifies the operating-system thread the calling
// goroutine is running on.
//
// The value is only stable while the goroutine is pinned with
// runtime.LockOSThread. Platforms other than Linux and Windows need cgo.
package osthread
