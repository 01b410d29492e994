package isolate

import (
	"errors"
	"fmt"
	"runtime"
	"sync"
	"sync/atomic"

	"github.com/caffeineduck/graaliso/native"
	"go.uber.org/zap"
)

var (
	// ErrUnavailable is returned when no isolate could be created.
	ErrUnavailable = errors.New("isolate unavailable")
	// ErrClosed is returned for calls made after the isolate was torn down.
	ErrClosed = errors.New("isolate closed")
	// ErrWorkerPanic is delivered by Go when the worker function panicked.
	ErrWorkerPanic = errors.New("worker panicked")
)

// Isolate owns one native isolate and serializes every call into it.
//
// The thread that created the isolate is owned by the Isolate: it is a
// dedicated OS thread that runs nothing else and is only detached by Close.
// Every other OS thread is attached lazily on its first call and stays
// attached until DetachCurrentThread, the end of a Go worker, or Close.
type Isolate struct {
	rt  native.Runtime
	cfg config
	log *zap.Logger

	mu     reentrantMutex
	handle native.IsolateHandle
	main   *thread
	// ownerCh feeds work to the goroutine pinned to the main thread.
	ownerCh chan func()

	threads sync.Map // OS thread id -> *thread
	seq     atomic.Uint64
}

type created struct {
	iso native.IsolateHandle
	th  native.ThreadHandle
	tid int64
	st  native.Status
}

// Create creates the native isolate. On failure no Isolate is built and the
// returned error wraps the native.Status reported by the runtime.
func Create(rt native.Runtime, opts ...Option) (*Isolate, error) {
	if rt == nil {
		return nil, errors.New("create isolate: nil runtime")
	}

	cfg := defaultConfig()
	for _, opt := range opts {
		opt(&cfg)
	}
	if cfg.logger == nil {
		cfg.logger = Logger()
	}
	log := cfg.logger.With(zap.String("isolate", cfg.name))

	log.Debug("creating isolate")

	ownerCh := make(chan func())
	ready := make(chan created, 1)
	go owner(rt, log, cfg.threadID, ready, ownerCh)

	res := <-ready
	if !res.st.OK() {
		log.Error("create isolate failed", zap.Stringer("status", res.st))
		return nil, fmt.Errorf("create isolate: %w", res.st)
	}

	i := &Isolate{
		rt:      rt,
		cfg:     cfg,
		log:     log,
		handle:  res.iso,
		main:    &thread{handle: res.th, main: true, tid: res.tid},
		ownerCh: ownerCh,
	}
	i.seq.Store(1)
	i.threads.Store(res.tid, i.main)

	log.Info("isolate created",
		zap.Uintptr("handle", uintptr(res.iso)),
		zap.Stringer("main", i.main.info()))
	return i, nil
}

// owner creates the isolate on a goroutine pinned to its own OS thread and
// then runs work that must execute on the main thread. It never unlocks the
// thread: when it returns the thread is discarded.
func owner(rt native.Runtime, log *zap.Logger, threadID func() int64, ready chan<- created, work <-chan func()) {
	runtime.LockOSThread()

	var iso native.IsolateHandle
	var th native.ThreadHandle
	st := guard(log, "create isolate", func() native.Status {
		var st native.Status
		iso, th, st = rt.CreateIsolate()
		return st
	})
	ready <- created{iso: iso, th: th, tid: threadID(), st: st}
	if !st.OK() {
		return
	}

	for fn := range work {
		fn()
	}
}

// guard reports a panic raised by a native call as UNSPECIFIED. Nothing else
// recovers on the owner goroutine, so a panic there would end the process.
func guard(log *zap.Logger, op string, fn func() native.Status) (st native.Status) {
	defer func() {
		if r := recover(); r != nil {
			log.Error("native call panicked", zap.String("op", op), zap.Any("panic", r))
			st = native.StatusUnspecified
		}
	}()
	return fn()
}

// onMain runs fn on the main thread and waits for it.
func (i *Isolate) onMain(fn func()) {
	done := make(chan struct{})
	i.ownerCh <- func() {
		defer close(done)
		fn()
	}
	<-done
}

// Runtime returns the native runtime the isolate was created with.
func (i *Isolate) Runtime() native.Runtime {
	return i.rt
}

// lock pins the goroutine and takes the isolate lock. The returned function
// undoes both.
func (i *Isolate) lock() (int64, func()) {
	runtime.LockOSThread()
	tid := i.cfg.threadID()
	i.mu.Lock(tid)
	return tid, func() {
		i.mu.Unlock()
		runtime.UnlockOSThread()
	}
}

// attach returns the calling thread's record, attaching it on first use.
// Must be called with the isolate lock held. On failure the thread table is
// left untouched.
func (i *Isolate) attach(tid int64) (*thread, native.Status) {
	if v, ok := i.threads.Load(tid); ok {
		t := v.(*thread)
		if t.handle != 0 {
			i.log.Debug("thread cached", zap.Stringer("thread", t.info()))
			return t, native.StatusNoError
		}
	}

	th, st := i.rt.AttachThread(i.handle)
	if !st.OK() {
		i.log.Warn("attach thread failed", zap.Int64("tid", tid), zap.Stringer("status", st))
		return nil, st
	}

	t := &thread{
		handle: th,
		main:   th == i.main.handle,
		tid:    tid,
		index:  i.seq.Add(1) - 1,
	}
	i.threads.Store(tid, t)

	i.log.Info("thread attached", zap.Stringer("thread", t.info()))
	return t, native.StatusNoError
}

// RunIsolated calls fn with the calling thread's native handle, attaching
// the thread first if needed. Calls are serialized across the process; fn may
// call RunIsolated again from the same goroutine.
//
// The error is non-nil when fn was not invoked: the isolate is nil or torn
// down, or the thread could not be attached. It always wraps a native.Status.
// fn must not retain the handle past its return.
func RunIsolated[T any](i *Isolate, fn func(native.ThreadHandle) T) (T, error) {
	var zero T
	if i == nil {
		return zero, fmt.Errorf("%w: %w", ErrUnavailable, native.StatusUninitializedIsolate)
	}

	tid, unlock := i.lock()
	defer unlock()

	if i.handle == 0 {
		i.log.Debug("call rejected, isolate closed", zap.Int64("tid", tid))
		return zero, fmt.Errorf("%w: %w", ErrClosed, native.StatusUninitializedIsolate)
	}

	t, st := i.attach(tid)
	if !st.OK() {
		return zero, fmt.Errorf("attach thread: %w", st)
	}

	i.log.Debug("call enter", zap.Stringer("thread", t.info()))
	defer i.log.Debug("call exit", zap.Stringer("thread", t.info()))

	return fn(t.handle), nil
}

// Run is RunIsolated for operations that report their own error.
func (i *Isolate) Run(fn func(native.ThreadHandle) error) error {
	res, err := RunIsolated(i, fn)
	if err != nil {
		return err
	}
	return res
}

// Current returns the calling thread's attachment. It reports Attached=false
// for threads that never called into the isolate.
func (i *Isolate) Current() ThreadInfo {
	tid, unlock := i.lock()
	defer unlock()

	if v, ok := i.threads.Load(tid); ok {
		return v.(*thread).info()
	}
	return ThreadInfo{TID: tid}
}

// Main returns the main thread's attachment.
func (i *Isolate) Main() ThreadInfo {
	_, unlock := i.lock()
	defer unlock()
	return i.main.info()
}

// DetachCurrentThread detaches the calling OS thread. It is a no-op when the
// thread is not attached, and the main thread is never detached this way.
//
// Goroutines that pin themselves with runtime.LockOSThread and exit without
// unlocking must call it first, since their thread is destroyed with them.
func (i *Isolate) DetachCurrentThread() error {
	runtime.LockOSThread()
	defer runtime.UnlockOSThread()
	return i.release(i.cfg.threadID())
}

func (i *Isolate) release(tid int64) error {
	v, ok := i.threads.Load(tid)
	if !ok {
		return nil
	}
	t := v.(*thread)
	if t.main {
		i.log.Debug("main thread stays attached", zap.Stringer("thread", t.info()))
		return nil
	}

	i.mu.Lock(tid)
	defer i.mu.Unlock()

	info := t.info()
	if st := t.detach(i.rt); !st.OK() {
		i.log.Warn("detach thread failed", zap.Stringer("thread", info), zap.Stringer("status", st))
		return fmt.Errorf("detach thread: %w", st)
	}
	i.threads.Delete(tid)

	i.log.Info("thread detached", zap.Stringer("thread", info))
	return nil
}

// Go runs fn on a new goroutine pinned to an OS thread of its own. When fn
// returns or panics the thread is detached and discarded. The channel
// receives the outcome and is then closed: nil, a failed detach (never
// retried), or an error wrapping ErrWorkerPanic if fn panicked.
func (i *Isolate) Go(fn func()) <-chan error {
	done := make(chan error, 1)
	if i == nil {
		done <- ErrUnavailable
		close(done)
		return done
	}

	go func() {
		// Left locked on purpose: the thread exits with the goroutine.
		runtime.LockOSThread()
		tid := i.cfg.threadID()

		var err error
		defer func() {
			done <- errors.Join(err, i.release(tid))
			close(done)
		}()
		defer func() {
			if r := recover(); r != nil {
				i.log.Error("worker panicked", zap.Int64("tid", tid), zap.Any("panic", r))
				err = fmt.Errorf("%w: %v", ErrWorkerPanic, r)
			}
		}()
		fn()
	}()
	return done
}

// Close detaches all threads and tears the isolate down. It is the only way
// the main thread is detached. Calls made afterwards fail with ErrClosed.
// Closing twice is a no-op; if teardown fails the isolate stays usable.
func (i *Isolate) Close() error {
	if i == nil {
		return nil
	}

	_, unlock := i.lock()
	defer unlock()

	if i.handle == 0 {
		return nil
	}

	var st native.Status
	i.onMain(func() {
		st = guard(i.log, "tear down isolate", func() native.Status {
			return i.main.tearDown(i.rt)
		})
	})
	if !st.OK() {
		i.log.Error("tear down isolate failed", zap.Stringer("status", st))
		return fmt.Errorf("tear down isolate: %w", st)
	}

	handle := i.handle
	i.handle = 0
	i.threads.Range(func(key, value any) bool {
		value.(*thread).handle = 0
		i.threads.Delete(key)
		return true
	})
	close(i.ownerCh)

	i.log.Info("isolate torn down", zap.Uintptr("handle", uintptr(handle)))
	return nil
}

// Closed reports whether the isolate has been torn down.
func (i *Isolate) Closed() bool {
	_, unlock := i.lock()
	defer unlock()
	return i.handle == 0
}

func (i *Isolate) String() string {
	_, unlock := i.lock()
	defer unlock()
	return fmt.Sprintf("Isolate{%#x, main=%s}", uintptr(i.handle), i.main.info())
}
