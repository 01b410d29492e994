// Package isolate manages the single native isolate of a process and the
// attachment of OS threads to it.
//
// # Overview
//
// A native image isolate may only be entered from an OS thread that is
// attached to it, and each OS thread has its own thread handle. Goroutines
// are not threads, so every call goes through [RunIsolated], which pins the
// goroutine to its current OS thread, attaches that thread on first use and
// passes its handle to the operation:
//
//	provider := isolate.NewProvider(rt, isolate.WithLogger(log))
//	defer provider.Shutdown()
//
//	iso, err := provider.Get()
//	if err != nil {
//	    return err // creation failed, the isolate is unavailable
//	}
//
//	st, err := isolate.RunIsolated(iso, func(th native.ThreadHandle) native.Status {
//	    return rt.SetProperty(th, "dxfeed.address", "demo.dxfeed.com:7300")
//	})
//
// # Serialization
//
// Only one operation runs inside an isolate at a time, process wide. The lock
// is re-entrant per OS thread, so an operation may call RunIsolated again.
// There is no timeout; run the call on a worker if you need one.
//
// # Thread lifetime
//
// The isolate's main thread is a dedicated OS thread owned by the [Isolate]
// and detached only by [Isolate.Close]. Other threads stay attached for the
// life of the thread. Use [Isolate.Go] for work on a thread of its own that is
// detached when the work finishes, or [Isolate.DetachCurrentThread] before a
// pinned goroutine exits.
package isolate
