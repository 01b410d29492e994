package native

// IsolateHandle is an opaque reference to a native isolate (graal_isolate_t*).
// The zero value means no isolate.
type IsolateHandle uintptr

// ThreadHandle is an opaque reference to an attached native thread
// (graal_isolatethread_t*). The zero value means not attached.
type ThreadHandle uintptr

// CString is a string allocated by the native layer. The zero value is NULL.
// It must be copied with Runtime.GoString and handed back through
// Runtime.ReleaseProperty.
type CString uintptr

// Runtime is the C entry-point surface of the embedded native image.
//
// Implementations translate each entry point one to one and never retain Go
// state on behalf of callers. Thread handles are only meaningful on the OS
// thread they were attached from; callers are responsible for pinning the
// goroutine (see the isolate package).
type Runtime interface {
	// CreateIsolate creates the isolate and attaches the calling thread as its
	// main thread.
	CreateIsolate() (IsolateHandle, ThreadHandle, Status)

	// AttachThread attaches the calling thread to iso.
	AttachThread(iso IsolateHandle) (ThreadHandle, Status)

	// DetachThread detaches the thread identified by thread.
	DetachThread(thread ThreadHandle) Status

	// DetachAllThreadsAndTearDownIsolate detaches every thread of the isolate
	// that thread belongs to and destroys the isolate.
	DetachAllThreadsAndTearDownIsolate(thread ThreadHandle) Status

	// SetProperty sets a system property inside the isolate.
	SetProperty(thread ThreadHandle, key, value string) Status

	// GetProperty returns the property value or a zero CString when unset.
	GetProperty(thread ThreadHandle, key string) (CString, Status)

	// ReleaseProperty frees a string returned by GetProperty.
	ReleaseProperty(thread ThreadHandle, value CString) Status

	// GoString copies a native string into Go memory.
	GoString(value CString) string
}

// ThreadCounter is implemented by runtimes that can report how many threads
// are currently attached across all isolates.
type ThreadCounter interface {
	AttachedThreads() int
}

// Closer is implemented by runtimes holding host resources beyond the
// isolate (loaded modules, compilation caches).
type Closer interface {
	Close() error
}
