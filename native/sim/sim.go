// Package sim provides an in-process stand-in for the native image runtime.
//
// It implements [native.Runtime] with the same observable contract as the
// GraalVM entry points: one attachment per OS thread per isolate, thread
// handles invalidated by detach and teardown, and native strings that must be
// released. Every entry point is counted and can be made to fail, which makes
// the simulator suitable both for tests and for running the CLI without the
// native library.
package sim

import (
	"sync"

	"github.com/caffeineduck/graaliso/internal/osthread"
	"github.com/caffeineduck/graaliso/native"
)

// Entry names a native entry point.
type Entry string

const (
	EntryCreateIsolate   Entry = "graal_create_isolate"
	EntryAttachThread    Entry = "graal_attach_thread"
	EntryDetachThread    Entry = "graal_detach_thread"
	EntryTearDown        Entry = "graal_detach_all_threads_and_tear_down_isolate"
	EntrySetProperty     Entry = "dxfg_system_set_property"
	EntryGetProperty     Entry = "dxfg_system_get_property"
	EntryReleaseProperty Entry = "dxfg_system_release_property"
)

type isolateState struct {
	props *properties
	// attached maps OS thread id to that thread's handle.
	attached map[int64]native.ThreadHandle
}

type threadState struct {
	iso native.IsolateHandle
	tid int64
}

// Runtime is a simulated native runtime. The zero value is not usable; call New.
type Runtime struct {
	cfg config

	mu       sync.Mutex
	next     uintptr
	isolates map[native.IsolateHandle]*isolateState
	threads  map[native.ThreadHandle]threadState
	strings  map[native.CString]string
	calls    map[Entry]int
	faults   map[Entry]native.Status
}

var _ native.Runtime = (*Runtime)(nil)
var _ native.ThreadCounter = (*Runtime)(nil)

// New creates a simulated runtime.
func New(opts ...Option) *Runtime {
	cfg := defaultConfig()
	for _, opt := range opts {
		opt(&cfg)
	}
	if cfg.threadID == nil {
		cfg.threadID = osthread.ID
	}

	return &Runtime{
		cfg:      cfg,
		isolates: make(map[native.IsolateHandle]*isolateState),
		threads:  make(map[native.ThreadHandle]threadState),
		strings:  make(map[native.CString]string),
		calls:    make(map[Entry]int),
		faults:   make(map[Entry]native.Status),
	}
}

// Fail makes every subsequent call to entry return st until Clear is called.
func (r *Runtime) Fail(entry Entry, st native.Status) {
	r.mu.Lock()
	r.faults[entry] = st
	r.mu.Unlock()
}

// Clear removes an injected failure.
func (r *Runtime) Clear(entry Entry) {
	r.mu.Lock()
	delete(r.faults, entry)
	r.mu.Unlock()
}

// Calls returns how many times entry has been invoked, failed calls included.
func (r *Runtime) Calls(entry Entry) int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.calls[entry]
}

// AttachedThreads returns the number of thread attachments across all live
// isolates.
func (r *Runtime) AttachedThreads() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.threads)
}

// Isolates returns the number of live isolates.
func (r *Runtime) Isolates() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.isolates)
}

// OutstandingStrings returns the number of native strings handed out by
// GetProperty and not yet released.
func (r *Runtime) OutstandingStrings() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.strings)
}

// Keys returns the property names of the isolate, sorted.
func (r *Runtime) Keys(iso native.IsolateHandle) []string {
	r.mu.Lock()
	state, ok := r.isolates[iso]
	r.mu.Unlock()
	if !ok {
		return nil
	}
	return state.props.keys()
}

// enter counts the call and returns the injected failure, if any.
// Must be called with r.mu held.
func (r *Runtime) enter(entry Entry) native.Status {
	r.calls[entry]++
	if st, ok := r.faults[entry]; ok {
		return st
	}
	return native.StatusNoError
}

func (r *Runtime) handle() uintptr {
	r.next++
	return r.next
}

// thread resolves a thread handle passed by the caller. Must be called with
// r.mu held.
func (r *Runtime) thread(th native.ThreadHandle) (threadState, *isolateState, native.Status) {
	if th == 0 {
		return threadState{}, nil, native.StatusNullArgument
	}
	ts, ok := r.threads[th]
	if !ok {
		return threadState{}, nil, native.StatusUnattachedThread
	}
	if r.cfg.strict && ts.tid != r.cfg.threadID() {
		return threadState{}, nil, native.StatusUnattachedThread
	}
	state, ok := r.isolates[ts.iso]
	if !ok {
		return threadState{}, nil, native.StatusUninitializedIsolate
	}
	return ts, state, native.StatusNoError
}

func (r *Runtime) CreateIsolate() (native.IsolateHandle, native.ThreadHandle, native.Status) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if st := r.enter(EntryCreateIsolate); !st.OK() {
		return 0, 0, st
	}

	iso := native.IsolateHandle(r.handle())
	th := native.ThreadHandle(r.handle())
	tid := r.cfg.threadID()

	r.isolates[iso] = &isolateState{
		props:    newProperties(r.cfg.limits, r.cfg.seed),
		attached: map[int64]native.ThreadHandle{tid: th},
	}
	r.threads[th] = threadState{iso: iso, tid: tid}
	return iso, th, native.StatusNoError
}

func (r *Runtime) AttachThread(iso native.IsolateHandle) (native.ThreadHandle, native.Status) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if st := r.enter(EntryAttachThread); !st.OK() {
		return 0, st
	}
	if iso == 0 {
		return 0, native.StatusNullArgument
	}
	state, ok := r.isolates[iso]
	if !ok {
		return 0, native.StatusUninitializedIsolate
	}

	tid := r.cfg.threadID()
	// Attaching an already attached thread hands back the existing handle.
	if th, ok := state.attached[tid]; ok {
		return th, native.StatusNoError
	}

	th := native.ThreadHandle(r.handle())
	state.attached[tid] = th
	r.threads[th] = threadState{iso: iso, tid: tid}
	return th, native.StatusNoError
}

func (r *Runtime) DetachThread(th native.ThreadHandle) native.Status {
	r.mu.Lock()
	defer r.mu.Unlock()

	if st := r.enter(EntryDetachThread); !st.OK() {
		return st
	}
	ts, state, st := r.thread(th)
	if !st.OK() {
		return st
	}

	delete(state.attached, ts.tid)
	delete(r.threads, th)
	return native.StatusNoError
}

func (r *Runtime) DetachAllThreadsAndTearDownIsolate(th native.ThreadHandle) native.Status {
	r.mu.Lock()
	defer r.mu.Unlock()

	if st := r.enter(EntryTearDown); !st.OK() {
		return st
	}
	ts, state, st := r.thread(th)
	if !st.OK() {
		return st
	}

	for _, attached := range state.attached {
		delete(r.threads, attached)
	}
	delete(r.isolates, ts.iso)
	return native.StatusNoError
}

func (r *Runtime) SetProperty(th native.ThreadHandle, key, value string) native.Status {
	r.mu.Lock()
	defer r.mu.Unlock()

	if st := r.enter(EntrySetProperty); !st.OK() {
		return st
	}
	_, state, st := r.thread(th)
	if !st.OK() {
		return st
	}

	if err := state.props.set(key, value); err != nil {
		// The JVM side throws; the entry point reports it as uncaught.
		return native.StatusUncaughtException
	}
	return native.StatusNoError
}

func (r *Runtime) GetProperty(th native.ThreadHandle, key string) (native.CString, native.Status) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if st := r.enter(EntryGetProperty); !st.OK() {
		return 0, st
	}
	_, state, st := r.thread(th)
	if !st.OK() {
		return 0, st
	}
	if key == "" {
		return 0, native.StatusUncaughtException
	}

	val, ok := state.props.get(key)
	if !ok {
		return 0, native.StatusNoError
	}

	cs := native.CString(r.handle())
	r.strings[cs] = val
	return cs, native.StatusNoError
}

func (r *Runtime) ReleaseProperty(th native.ThreadHandle, value native.CString) native.Status {
	r.mu.Lock()
	defer r.mu.Unlock()

	if st := r.enter(EntryReleaseProperty); !st.OK() {
		return st
	}
	if _, _, st := r.thread(th); !st.OK() {
		return st
	}
	if _, ok := r.strings[value]; !ok {
		return native.StatusNullArgument
	}

	delete(r.strings, value)
	return native.StatusNoError
}

func (r *Runtime) GoString(value native.CString) string {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.strings[value]
}
