package isolate

import (
	"fmt"

	"github.com/caffeineduck/graaliso/native"
)

// thread is the attachment record of one OS thread.
// handle is guarded by the isolate lock; the other fields never change.
type thread struct {
	handle native.ThreadHandle
	main   bool
	tid    int64
	index  uint64
}

// detach releases the native attachment. Detaching a record that is not
// attached succeeds without calling into the runtime.
func (t *thread) detach(rt native.Runtime) native.Status {
	if t.handle == 0 {
		return native.StatusNoError
	}
	st := rt.DetachThread(t.handle)
	if st.OK() {
		t.handle = 0
	}
	return st
}

// tearDown detaches every thread of the isolate and destroys it.
func (t *thread) tearDown(rt native.Runtime) native.Status {
	if t.handle == 0 {
		return native.StatusNoError
	}
	st := rt.DetachAllThreadsAndTearDownIsolate(t.handle)
	if st.OK() {
		t.handle = 0
	}
	return st
}

func (t *thread) info() ThreadInfo {
	return ThreadInfo{
		Handle:   t.handle,
		Main:     t.main,
		TID:      t.tid,
		Index:    t.index,
		Attached: t.handle != 0,
	}
}

// ThreadInfo is a snapshot of an OS thread's attachment.
type ThreadInfo struct {
	Handle   native.ThreadHandle
	Main     bool
	TID      int64
	Index    uint64
	Attached bool
}

func (ti ThreadInfo) String() string {
	return fmt.Sprintf("Thread{%#x, main=%t, tid=%d, idx=%d}", uintptr(ti.Handle), ti.Main, ti.TID, ti.Index)
}
