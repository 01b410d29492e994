//go:build !linux && !windows && cgo

package osthread

/*
#include <pthread.h>
#include <stdint.h>

static uint64_t current_thread_id(void) {
	return (uint64_t)(uintptr_t)pthread_self();
}
*/
import "C"

// ID returns the pthread identity of the calling thread.
func ID() int64 {
	return int64(C.current_thread_id())
}
