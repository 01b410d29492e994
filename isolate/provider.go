package isolate

import (
	"errors"
	"fmt"
	"sync"
	"sync/atomic"

	"github.com/caffeineduck/graaliso/native"
)

// ErrNoDefault is returned by Instance when SetDefault was never called.
var ErrNoDefault = errors.New("no default isolate provider")

// Provider creates an Isolate on first use and hands out the same instance
// afterwards. A failed creation is final: every later Get reports it.
type Provider struct {
	rt   native.Runtime
	opts []Option

	once     sync.Once
	iso      *Isolate
	err      error
	shutdown sync.Mutex
}

// NewProvider returns a provider that will create its isolate on rt.
func NewProvider(rt native.Runtime, opts ...Option) *Provider {
	return &Provider{rt: rt, opts: opts}
}

// Get returns the isolate, creating it on the first call. Concurrent first
// calls wait for a single creation. The isolate is nil exactly when the
// error is non-nil; the error then wraps ErrUnavailable.
func (p *Provider) Get() (*Isolate, error) {
	p.once.Do(func() {
		iso, err := Create(p.rt, p.opts...)
		if err != nil {
			p.err = fmt.Errorf("%w: %w", ErrUnavailable, err)
			return
		}
		p.iso = iso
	})
	return p.iso, p.err
}

// Shutdown tears the isolate down if it was created. Afterwards Get never
// creates a new one.
func (p *Provider) Shutdown() error {
	p.shutdown.Lock()
	defer p.shutdown.Unlock()

	p.once.Do(func() {
		p.err = fmt.Errorf("%w: provider shut down", ErrUnavailable)
	})
	if p.iso == nil {
		return nil
	}
	return p.iso.Close()
}

var defaultProvider atomic.Pointer[Provider]

// SetDefault installs the provider used by Instance.
func SetDefault(p *Provider) {
	defaultProvider.Store(p)
}

// Instance returns the process-wide isolate from the default provider.
func Instance() (*Isolate, error) {
	p := defaultProvider.Load()
	if p == nil {
		return nil, fmt.Errorf("%w: %w", ErrUnavailable, ErrNoDefault)
	}
	return p.Get()
}
