package isolate

import (
	"sync"
	"sync/atomic"
)

// reentrantMutex is a mutex that the owning OS thread may lock again.
// Callers must pin their goroutine with runtime.LockOSThread for as long as
// they hold it; ownership is tracked by thread id, never by goroutine.
type reentrantMutex struct {
	mu    sync.Mutex
	owner atomic.Int64 // 0 when free
	depth int
}

func (m *reentrantMutex) Lock(tid int64) {
	if m.owner.Load() == tid {
		m.depth++
		return
	}
	m.mu.Lock()
	m.owner.Store(tid)
	m.depth = 1
}

func (m *reentrantMutex) Unlock() {
	m.depth--
	if m.depth == 0 {
		m.owner.Store(0)
		m.mu.Unlock()
	}
}
