// Package graaliso manages an embedded GraalVM native-image isolate from Go.
//
// # Overview
//
// A native image exposes its JVM through C entry points that must be called
// from an OS thread attached to the isolate. graaliso owns one isolate per
// [isolate.Isolate], attaches each calling OS thread on first use, and
// serializes every call so at most one goroutine is inside the isolate at a
// time. Calls are re-entrant on the same thread.
//
// # Basic Usage
//
//	prov := isolate.NewProvider(sim.New())
//	defer prov.Shutdown()
//
//	sys := system.New(prov, nil)
//	sys.SetProperty("dxfeed.address", "demo.dxfeed.com:7300")
//	fmt.Println(sys.GetProperty("dxfeed.address"))
//
// # Calling Entry Points Directly
//
//	iso, err := prov.Get()
//	n, err := isolate.RunIsolated(iso, func(th native.ThreadHandle) int {
//	    // th is valid only inside this function
//	    return 42
//	})
//
// # Worker Threads
//
// Goroutines that pin themselves to an OS thread should run through
// [isolate.Isolate.Go], which detaches the thread when the goroutine ends:
//
//	done := iso.Go(func() {
//	    sys.GetProperty("user.name")
//	})
//	<-done
//
// # Backends
//
// A backend implements [native.Runtime]:
//   - native/sim: in-process simulation, used by tests and the CLI default
//   - native/wasm: a WebAssembly build of the library run with wazero
//   - native/graal: the shared library linked through cgo (-tags graal)
//
// # Packages
//
//   - isolate: isolate lifecycle, thread attachment, RunIsolated
//   - system: JVM system property accessors
//   - native: the C entry point boundary and status codes
//   - cmd/graaliso: command-line interface
package graaliso
