// Copyright 2023-2026 The GoMLX Authors. SPDX-License-Identifier: Apache-2.0

// Package benchmark is a small runner for micro benchmarks with explicit setup and teardown, used by
// the `ndgraph bench` command. For in-test benchmarks use the standard testing.B.
package benchmark

import (
	"fmt"
	"time"

	"github.com/dustin/go-humanize"
	"github.com/gomlx/exceptions"
	"github.com/gomlx/ndgraph/internal/workerspool"
	"github.com/pkg/errors"
	"k8s.io/klog/v2"
)

// Benchmark to be executed by a Runner.
type Benchmark struct {
	Name string

	// Setup is called once before the warm-up. Optional.
	Setup func() error

	// Run executes one iteration on the given thread, in [0, Threads).
	Run func(thread int) error

	// Teardown is called once after the last iteration, even if Run failed. Optional.
	Teardown func() error

	// Threads running Run concurrently in each iteration. Values <= 1 run on the calling goroutine.
	Threads int
}

// Result of a benchmark. Timings are per iteration, and an iteration includes all threads.
type Result struct {
	Name       string
	Threads    int
	Iterations int

	Total, Mean, Min, Max time.Duration
}

// OpsPerSecond is the number of Run calls per second, summed over all threads.
func (r Result) OpsPerSecond() float64 {
	if r.Total <= 0 {
		return 0
	}
	return float64(r.Iterations*max(r.Threads, 1)) / r.Total.Seconds()
}

// String implements fmt.Stringer.
func (r Result) String() string {
	return fmt.Sprintf("%s: %d iterations x %d threads, mean=%s min=%s max=%s, %s ops/s",
		r.Name, r.Iterations, max(r.Threads, 1), r.Mean, r.Min, r.Max, humanize.CommafWithDigits(r.OpsPerSecond(), 1))
}

// Runner configures how benchmarks are executed.
type Runner struct {
	// Warmup iterations, not measured.
	Warmup int

	// Iterations measured. Defaults to 1 if <= 0.
	Iterations int

	// OnProgress, if set, is called after each measured iteration.
	OnProgress func(name string, done, total int)

	// Pool, if set, runs the threads of multi-threaded benchmarks, e.g. the pool of the CPU backend.
	// By default, each benchmark uses a pool with one worker per thread.
	Pool *workerspool.Pool
}

// Run executes the benchmark b: Setup, Warmup iterations, the measured Iterations and then Teardown.
//
// The first error returned by any of the functions aborts the run. A panic in Run is converted to an error.
func (r *Runner) Run(b Benchmark) (result Result, err error) {
	if b.Run == nil {
		return result, errors.Errorf("benchmark %q has no Run function", b.Name)
	}
	result = Result{Name: b.Name, Threads: max(b.Threads, 1), Iterations: max(r.Iterations, 1)}
	if b.Setup != nil {
		if err = b.Setup(); err != nil {
			return result, errors.WithMessagef(err, "benchmark %q setup", b.Name)
		}
	}
	if b.Teardown != nil {
		defer func() {
			if teardownErr := b.Teardown(); teardownErr != nil && err == nil {
				err = errors.WithMessagef(teardownErr, "benchmark %q teardown", b.Name)
			}
		}()
	}

	var pool *workerspool.Pool
	if result.Threads > 1 {
		pool = r.Pool
		if pool == nil {
			pool = workerspool.NewWithParallelism(result.Threads)
		}
	}
	iteration := func() error {
		if pool == nil {
			return safeRun(b.Run, 0)
		}
		errs := make([]error, result.Threads)
		pool.Run(result.Threads, func(thread int) {
			errs[thread] = safeRun(b.Run, thread)
		})
		for _, threadErr := range errs {
			if threadErr != nil {
				return threadErr
			}
		}
		return nil
	}

	for ii := range r.Warmup {
		if err = iteration(); err != nil {
			return result, errors.WithMessagef(err, "benchmark %q warm-up iteration #%d", b.Name, ii)
		}
	}
	klog.V(1).Infof("benchmark %q: warm-up of %d iterations done", b.Name, r.Warmup)

	for ii := range result.Iterations {
		start := time.Now()
		err = iteration()
		elapsed := time.Since(start)
		if err != nil {
			return result, errors.WithMessagef(err, "benchmark %q iteration #%d", b.Name, ii)
		}
		result.Total += elapsed
		if ii == 0 || elapsed < result.Min {
			result.Min = elapsed
		}
		result.Max = max(result.Max, elapsed)
		if r.OnProgress != nil {
			r.OnProgress(b.Name, ii+1, result.Iterations)
		}
	}
	result.Mean = result.Total / time.Duration(result.Iterations)
	klog.V(1).Infof("%s", result)
	return result, nil
}

func safeRun(run func(int) error, thread int) (err error) {
	exception := exceptions.Try(func() { err = run(thread) })
	if exception != nil {
		if e, ok := exception.(error); ok {
			return errors.WithMessage(e, "panic")
		}
		return errors.Errorf("panic: %v", exception)
	}
	return err
}

// RunAll runs the benchmarks in order, stopping at the first error.
func (r *Runner) RunAll(benchmarks ...Benchmark) ([]Result, error) {
	results := make([]Result, 0, len(benchmarks))
	for _, b := range benchmarks {
		result, err := r.Run(b)
		if err != nil {
			return results, err
		}
		results = append(results, result)
	}
	return results, nil
}
