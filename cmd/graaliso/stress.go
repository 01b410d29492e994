package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"strconv"
	"sync/atomic"
	"time"

	"github.com/caffeineduck/graaliso/isolate"
	"github.com/caffeineduck/graaliso/native"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
)

var errConcurrentCall = errors.New("concurrent calls observed inside the isolate")

type stressOptions struct {
	workers    int
	iterations int
	timeout    time.Duration
}

type stressReport struct {
	calls          atomic.Int64
	failures       atomic.Int64
	mismatches     atomic.Int64
	detachFailures int
	maxConcurrency atomic.Int64
	threadsBefore  int
	threadsAfter   int
	counted        bool
	elapsed        time.Duration
}

func newStressCmd(opts *rootOptions) *cobra.Command {
	so := &stressOptions{}

	cmd := &cobra.Command{
		Use:   "stress",
		Short: "Hammer the isolate from many OS threads",
		Long: `Run concurrent set/get calls from worker goroutines, each pinned to an OS
thread of its own that is attached on first use and detached when the worker
ends.

Reports the highest number of calls observed inside the isolate at once,
which must be 1, and the attached thread count before and after the run when
the backend can report it.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := opts.open(cmd.Context())
			if err != nil {
				return err
			}
			defer a.Close()

			ctx := cmd.Context()
			if so.timeout > 0 {
				var cancel context.CancelFunc
				ctx, cancel = context.WithTimeout(ctx, so.timeout)
				defer cancel()
			}

			report, err := runStress(ctx, a, so)
			if report != nil {
				report.print(cmd.OutOrStdout(), so)
			}
			return err
		},
	}

	cmd.Flags().IntVarP(&so.workers, "workers", "w", 8, "Number of worker threads")
	cmd.Flags().IntVarP(&so.iterations, "iterations", "n", 100, "Calls per worker")
	cmd.Flags().DurationVarP(&so.timeout, "timeout", "t", 30*time.Second, "Give up after this long (0 = no limit)")
	return cmd
}

func runStress(ctx context.Context, a *app, so *stressOptions) (*stressReport, error) {
	if so.workers < 1 || so.iterations < 1 {
		return nil, errors.New("workers and iterations must be positive")
	}

	iso, err := isolate.Instance()
	if err != nil {
		return nil, err
	}
	rt := iso.Runtime()

	report := &stressReport{}
	counter, counted := rt.(native.ThreadCounter)
	if counted {
		report.counted = true
		report.threadsBefore = counter.AttachedThreads()
	}

	var inside atomic.Int64
	start := time.Now()

	dones := make([]<-chan error, 0, so.workers)
	for w := range so.workers {
		key := "graaliso.stress." + strconv.Itoa(w)
		dones = append(dones, iso.Go(func() {
			for i := range so.iterations {
				if ctx.Err() != nil {
					return
				}
				value := strconv.Itoa(i)

				ok, err := isolate.RunIsolated(iso, func(th native.ThreadHandle) bool {
					n := inside.Add(1)
					defer inside.Add(-1)
					for {
						m := report.maxConcurrency.Load()
						if n <= m || report.maxConcurrency.CompareAndSwap(m, n) {
							break
						}
					}
					return rt.SetProperty(th, key, value).OK()
				})
				report.calls.Add(1)
				if err != nil || !ok {
					report.failures.Add(1)
					continue
				}
				if got := a.sys.GetProperty(key); got != value {
					report.mismatches.Add(1)
				}
			}
		}))
	}

	for _, done := range dones {
		select {
		case err := <-done:
			if err != nil {
				report.detachFailures++
				a.log.Warn("worker detach failed", zap.Error(err))
			}
		case <-ctx.Done():
			return report, fmt.Errorf("stress: %w", ctx.Err())
		}
	}
	report.elapsed = time.Since(start)

	if counted {
		report.threadsAfter = counter.AttachedThreads()
	}
	if report.maxConcurrency.Load() > 1 {
		return report, errConcurrentCall
	}
	if n := report.failures.Load() + report.mismatches.Load(); n > 0 {
		return report, fmt.Errorf("stress: %d failed calls", n)
	}
	return report, nil
}

func (r *stressReport) print(w io.Writer, so *stressOptions) {
	fmt.Fprintf(w, "workers:         %d\n", so.workers)
	fmt.Fprintf(w, "iterations:      %d\n", so.iterations)
	fmt.Fprintf(w, "calls:           %d\n", r.calls.Load())
	fmt.Fprintf(w, "failures:        %d\n", r.failures.Load())
	fmt.Fprintf(w, "mismatches:      %d\n", r.mismatches.Load())
	fmt.Fprintf(w, "detach failures: %d\n", r.detachFailures)
	fmt.Fprintf(w, "max concurrency: %d\n", r.maxConcurrency.Load())
	if r.counted {
		fmt.Fprintf(w, "attached threads: %d -> %d\n", r.threadsBefore, r.threadsAfter)
	}
	if r.elapsed > 0 {
		fmt.Fprintf(w, "elapsed:         %s\n", r.elapsed.Round(time.Millisecond))
	}
}
