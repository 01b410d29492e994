package system

import (
	"errors"
	"sync"
	"testing"

	"github.com/caffeineduck/graaliso/isolate"
	"github.com/caffeineduck/graaliso/native"
	"github.com/caffeineduck/graaliso/native/sim"
)

func newTestSystem(t *testing.T, opts ...sim.Option) (*System, *sim.Runtime) {
	t.Helper()
	rt := sim.New(opts...)
	p := isolate.NewProvider(rt)
	t.Cleanup(func() { p.Shutdown() })
	return New(p, nil), rt
}

func TestSetGetProperty(t *testing.T) {
	s, rt := newTestSystem(t)

	if !s.SetProperty("k", "v") {
		t.Fatal("SetProperty returned false")
	}
	if got := s.GetProperty("k"); got != "v" {
		t.Errorf("GetProperty = %q, want %q", got, "v")
	}
	if rt.OutstandingStrings() != 0 {
		t.Errorf("native strings leaked: %d", rt.OutstandingStrings())
	}
}

func TestGetPropertyUnset(t *testing.T) {
	s, _ := newTestSystem(t)

	if got := s.GetProperty("never.set"); got != "" {
		t.Errorf("expected empty string, got %q", got)
	}

	value, found, err := s.LookupProperty("never.set")
	if err != nil || found || value != "" {
		t.Errorf("LookupProperty = (%q, %t, %v), want (\"\", false, nil)", value, found, err)
	}
}

func TestUnavailableIsolate(t *testing.T) {
	rt := sim.New()
	rt.Fail(sim.EntryCreateIsolate, native.StatusLocateImageFailed)
	s := New(isolate.NewProvider(rt), nil)

	if s.SetProperty("k", "v") {
		t.Error("SetProperty should return false when the isolate is unavailable")
	}
	if got := s.GetProperty("k"); got != "" {
		t.Errorf("GetProperty should return empty string, got %q", got)
	}

	_, _, err := s.LookupProperty("k")
	if !IsUnavailable(err) {
		t.Errorf("expected an unavailable error, got %v", err)
	}
}

func TestStaticNil(t *testing.T) {
	s := New(Static(nil), nil)
	if s.SetProperty("k", "v") {
		t.Error("SetProperty on a nil isolate should return false")
	}
}

func TestSetPropertyNativeFailure(t *testing.T) {
	s, rt := newTestSystem(t)
	rt.Fail(sim.EntrySetProperty, native.StatusUncaughtException)

	if s.SetProperty("k", "v") {
		t.Error("SetProperty should return false on native failure")
	}
}

func TestLookupPropertyNativeFailure(t *testing.T) {
	s, rt := newTestSystem(t)
	s.SetProperty("k", "v")
	rt.Fail(sim.EntryGetProperty, native.StatusUnspecified)

	_, _, err := s.LookupProperty("k")
	var st native.Status
	if !errors.As(err, &st) || st != native.StatusUnspecified {
		t.Errorf("expected UNSPECIFIED, got %v", err)
	}
	if got := s.GetProperty("k"); got != "" {
		t.Errorf("GetProperty should hide the failure as empty, got %q", got)
	}
}

func TestReleaseFailureKeepsValue(t *testing.T) {
	s, rt := newTestSystem(t)
	s.SetProperty("k", "v")
	rt.Fail(sim.EntryReleaseProperty, native.StatusUnspecified)

	if got := s.GetProperty("k"); got != "v" {
		t.Errorf("value should be copied before release, got %q", got)
	}
}

func TestAfterShutdown(t *testing.T) {
	rt := sim.New()
	p := isolate.NewProvider(rt)
	s := New(p, nil)

	s.SetProperty("k", "v")
	p.Shutdown()

	if s.SetProperty("k", "v2") {
		t.Error("SetProperty should fail after shutdown")
	}
	_, _, err := s.LookupProperty("k")
	if !IsUnavailable(err) {
		t.Errorf("expected an unavailable error, got %v", err)
	}
}

func TestSetProperties(t *testing.T) {
	s, _ := newTestSystem(t, sim.WithLimits(sim.Limits{MaxValueSize: 3}))

	err := s.SetProperties(map[string]string{"a": "1", "b": "2"})
	if err != nil {
		t.Fatalf("SetProperties failed: %v", err)
	}
	if s.GetProperty("a") != "1" || s.GetProperty("b") != "2" {
		t.Error("properties were not set")
	}

	err = s.SetProperties(map[string]string{"c": "3", "d": "toolong", "e": "5"})
	if err == nil {
		t.Fatal("expected error for oversized value")
	}
	if s.GetProperty("c") != "3" {
		t.Error("keys before the failing one should be set")
	}
	if s.GetProperty("e") != "" {
		t.Error("keys after the failing one should not be set")
	}
}

func TestConcurrentAccess(t *testing.T) {
	s, rt := newTestSystem(t, sim.WithStrictThreads())

	const workers = 8
	var wg sync.WaitGroup
	wg.Add(workers)
	for n := range workers {
		go func(n int) {
			defer wg.Done()
			key := string(rune('a' + n))
			for range 20 {
				if !s.SetProperty(key, key) {
					t.Errorf("SetProperty(%q) failed", key)
					return
				}
				if got := s.GetProperty(key); got != key {
					t.Errorf("GetProperty(%q) = %q", key, got)
					return
				}
			}
		}(n)
	}
	wg.Wait()

	if rt.OutstandingStrings() != 0 {
		t.Errorf("native strings leaked: %d", rt.OutstandingStrings())
	}
}
