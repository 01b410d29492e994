//go:build cgo && graal

package graal

/*
#cgo LDFLAGS: -lDxFeedGraalNativeSdk
#include <stdlib.h>
#include <graal_isolate.h>
#include <dxfg_system.h>
*/
import "C"

import (
	"unsafe"

	"github.com/caffeineduck/graaliso/native"
)

// Runtime calls the entry points of the linked shared library.
type Runtime struct{}

var _ native.Runtime = Runtime{}

// New returns the linked runtime.
func New() (native.Runtime, error) {
	return Runtime{}, nil
}

func isolatePtr(h native.IsolateHandle) *C.graal_isolate_t {
	return (*C.graal_isolate_t)(unsafe.Pointer(h))
}

func threadPtr(h native.ThreadHandle) *C.graal_isolatethread_t {
	return (*C.graal_isolatethread_t)(unsafe.Pointer(h))
}

func status(code C.int) native.Status {
	return native.StatusOf(int(code))
}

func (Runtime) CreateIsolate() (native.IsolateHandle, native.ThreadHandle, native.Status) {
	var iso *C.graal_isolate_t
	var th *C.graal_isolatethread_t
	st := status(C.graal_create_isolate(nil, &iso, &th))
	if !st.OK() {
		return 0, 0, st
	}
	return native.IsolateHandle(unsafe.Pointer(iso)), native.ThreadHandle(unsafe.Pointer(th)), st
}

func (Runtime) AttachThread(iso native.IsolateHandle) (native.ThreadHandle, native.Status) {
	var th *C.graal_isolatethread_t
	st := status(C.graal_attach_thread(isolatePtr(iso), &th))
	if !st.OK() {
		return 0, st
	}
	return native.ThreadHandle(unsafe.Pointer(th)), st
}

func (Runtime) DetachThread(th native.ThreadHandle) native.Status {
	return status(C.graal_detach_thread(threadPtr(th)))
}

func (Runtime) DetachAllThreadsAndTearDownIsolate(th native.ThreadHandle) native.Status {
	return status(C.graal_detach_all_threads_and_tear_down_isolate(threadPtr(th)))
}

func (Runtime) SetProperty(th native.ThreadHandle, key, value string) native.Status {
	ckey := C.CString(key)
	defer C.free(unsafe.Pointer(ckey))
	cvalue := C.CString(value)
	defer C.free(unsafe.Pointer(cvalue))

	return native.StatusOf(int(C.dxfg_system_set_property(threadPtr(th), ckey, cvalue)))
}

func (Runtime) GetProperty(th native.ThreadHandle, key string) (native.CString, native.Status) {
	ckey := C.CString(key)
	defer C.free(unsafe.Pointer(ckey))

	res := C.dxfg_system_get_property(threadPtr(th), ckey)
	return native.CString(unsafe.Pointer(res)), native.StatusNoError
}

func (Runtime) ReleaseProperty(th native.ThreadHandle, value native.CString) native.Status {
	return native.StatusOf(int(C.dxfg_system_release_property(threadPtr(th), (*C.char)(unsafe.Pointer(value)))))
}

func (Runtime) GoString(value native.CString) string {
	if value == 0 {
		return ""
	}
	return C.GoString((*C.char)(unsafe.Pointer(value)))
}
