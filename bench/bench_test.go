// Package bench measures the cost of calling into an isolate.
//
// Benchmarks: go test -bench=. ./bench/
package bench

import (
	"strconv"
	"sync"
	"testing"

	"github.com/caffeineduck/graaliso/isolate"
	"github.com/caffeineduck/graaliso/native"
	"github.com/caffeineduck/graaliso/native/sim"
	"github.com/caffeineduck/graaliso/system"
)

func newIsolate(b *testing.B) *isolate.Isolate {
	b.Helper()
	iso, err := isolate.Create(sim.New())
	if err != nil {
		b.Fatalf("create isolate: %v", err)
	}
	b.Cleanup(func() { iso.Close() })
	return iso
}

// --- Isolate lifecycle ---

func BenchmarkCreateClose(b *testing.B) {
	rt := sim.New()
	for i := 0; i < b.N; i++ {
		iso, err := isolate.Create(rt)
		if err != nil {
			b.Fatal(err)
		}
		iso.Close()
	}
}

// --- Hot path: attached thread, serialized call ---

func BenchmarkRunIsolated(b *testing.B) {
	iso := newIsolate(b)

	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		isolate.RunIsolated(iso, func(native.ThreadHandle) int { return 0 })
	}
}

func BenchmarkRunIsolated_Reentrant(b *testing.B) {
	iso := newIsolate(b)

	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		isolate.RunIsolated(iso, func(native.ThreadHandle) int {
			n, _ := isolate.RunIsolated(iso, func(native.ThreadHandle) int { return 1 })
			return n
		})
	}
}

func BenchmarkRunIsolated_Parallel(b *testing.B) {
	iso := newIsolate(b)

	b.ResetTimer()
	b.RunParallel(func(pb *testing.PB) {
		for pb.Next() {
			isolate.RunIsolated(iso, func(native.ThreadHandle) int { return 0 })
		}
	})
}

// --- Attach/detach churn: every worker is a fresh OS thread ---

func BenchmarkGoWorker(b *testing.B) {
	iso := newIsolate(b)

	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		done := iso.Go(func() {
			isolate.RunIsolated(iso, func(native.ThreadHandle) int { return 0 })
		})
		if err := <-done; err != nil {
			b.Fatal(err)
		}
	}
}

// --- Property accessors ---

func BenchmarkSetProperty(b *testing.B) {
	sys := system.New(system.Static(newIsolate(b)), nil)

	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		sys.SetProperty("bench.key", "value")
	}
}

func BenchmarkGetProperty(b *testing.B) {
	sys := system.New(system.Static(newIsolate(b)), nil)
	sys.SetProperty("bench.key", "value")

	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		sys.GetProperty("bench.key")
	}
}

func BenchmarkSetGetParallel(b *testing.B) {
	for _, workers := range []int{1, 4, 16} {
		b.Run(strconv.Itoa(workers), func(b *testing.B) {
			sys := system.New(system.Static(newIsolate(b)), nil)
			per := b.N/workers + 1

			b.ResetTimer()
			var wg sync.WaitGroup
			for w := range workers {
				wg.Add(1)
				go func() {
					defer wg.Done()
					key := "bench." + strconv.Itoa(w)
					for i := 0; i < per; i++ {
						sys.SetProperty(key, "v")
						sys.GetProperty(key)
					}
				}()
			}
			wg.Wait()
		})
	}
}
