package isolate

import (
	"errors"
	"sync"
	"testing"

	"github.com/caffeineduck/graaliso/native"
	"github.com/caffeineduck/graaliso/native/sim"
)

func TestProviderCreatesOnce(t *testing.T) {
	rt := sim.New()
	p := NewProvider(rt)
	defer p.Shutdown()

	const callers = 16
	got := make([]*Isolate, callers)

	var start sync.WaitGroup
	start.Add(1)
	var wg sync.WaitGroup
	wg.Add(callers)
	for n := range callers {
		go func(n int) {
			defer wg.Done()
			start.Wait()
			iso, err := p.Get()
			if err != nil {
				t.Errorf("Get failed: %v", err)
			}
			got[n] = iso
		}(n)
	}
	start.Done()
	wg.Wait()

	for n := 1; n < callers; n++ {
		if got[n] != got[0] {
			t.Fatalf("caller %d got a different isolate", n)
		}
	}
	if rt.Calls(sim.EntryCreateIsolate) != 1 {
		t.Errorf("expected exactly 1 native create, got %d", rt.Calls(sim.EntryCreateIsolate))
	}
}

func TestProviderLazy(t *testing.T) {
	rt := sim.New()
	p := NewProvider(rt)
	defer p.Shutdown()

	if rt.Calls(sim.EntryCreateIsolate) != 0 {
		t.Fatal("provider must not create before first use")
	}
	p.Get()
	if rt.Calls(sim.EntryCreateIsolate) != 1 {
		t.Errorf("expected creation on first Get")
	}
}

func TestProviderFailureIsFinal(t *testing.T) {
	rt := sim.New()
	rt.Fail(sim.EntryCreateIsolate, native.StatusOpenImageFailed)
	p := NewProvider(rt)

	iso, err := p.Get()
	if iso != nil {
		t.Fatal("expected nil isolate")
	}
	if !errors.Is(err, ErrUnavailable) {
		t.Errorf("expected ErrUnavailable, got %v", err)
	}

	rt.Clear(sim.EntryCreateIsolate)
	if iso, _ := p.Get(); iso != nil {
		t.Error("a failed creation must not be retried")
	}
	if rt.Calls(sim.EntryCreateIsolate) != 1 {
		t.Errorf("expected 1 native create, got %d", rt.Calls(sim.EntryCreateIsolate))
	}
}

func TestProviderShutdown(t *testing.T) {
	rt := sim.New()
	p := NewProvider(rt)

	iso, err := p.Get()
	if err != nil {
		t.Fatalf("Get failed: %v", err)
	}
	if err := p.Shutdown(); err != nil {
		t.Fatalf("Shutdown failed: %v", err)
	}
	if !iso.Closed() {
		t.Error("isolate should be torn down")
	}
	if err := p.Shutdown(); err != nil {
		t.Errorf("second Shutdown should be a no-op, got %v", err)
	}
}

func TestProviderShutdownBeforeGet(t *testing.T) {
	rt := sim.New()
	p := NewProvider(rt)

	if err := p.Shutdown(); err != nil {
		t.Fatalf("Shutdown failed: %v", err)
	}
	if _, err := p.Get(); !errors.Is(err, ErrUnavailable) {
		t.Errorf("expected ErrUnavailable, got %v", err)
	}
	if rt.Calls(sim.EntryCreateIsolate) != 0 {
		t.Error("no isolate should be created after shutdown")
	}
}

func TestInstance(t *testing.T) {
	SetDefault(nil)
	if _, err := Instance(); !errors.Is(err, ErrNoDefault) {
		t.Errorf("expected ErrNoDefault, got %v", err)
	}

	p := NewProvider(sim.New())
	defer p.Shutdown()
	SetDefault(p)
	defer SetDefault(nil)

	a, err := Instance()
	if err != nil {
		t.Fatalf("Instance failed: %v", err)
	}
	b, _ := Instance()
	if a != b {
		t.Error("Instance should return the same isolate")
	}
}
