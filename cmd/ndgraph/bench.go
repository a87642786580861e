// Copyright 2023-2026 The GoMLX Authors. SPDX-License-Identifier: Apache-2.0

package main

import (
	"fmt"
	"os"

	"github.com/dustin/go-humanize"
	"github.com/gomlx/ndgraph/backends"
	"github.com/gomlx/ndgraph/backends/cpu"
	"github.com/gomlx/ndgraph/pkg/core/dtypes"
	"github.com/gomlx/ndgraph/pkg/core/graph"
	"github.com/gomlx/ndgraph/pkg/core/ops"
	"github.com/gomlx/ndgraph/pkg/core/shapes"
	"github.com/gomlx/ndgraph/pkg/core/tensors"
	"github.com/gomlx/ndgraph/pkg/support/benchmark"
	"github.com/pkg/errors"
	"github.com/schollz/progressbar/v3"
	"k8s.io/klog/v2"
)

// opBenchmark binds arrays to an op and converts it to its canonical form in each iteration, as done
// for every op before it is dispatched to a backend.
type opBenchmark struct {
	name           string
	opType         ops.OpType
	opName         string
	inPlace, unary bool
	extraArgs      []any
}

// smallArrayBenchmarks are the operations on small arrays, where the per-op overhead dominates.
var smallArrayBenchmarks = []opBenchmark{
	{name: "sumNumber", opType: ops.OpTypeReduceSame, opName: "sum", unary: true},
	{name: "add", opType: ops.OpTypePairwise, opName: "add"},
	{name: "addi", opType: ops.OpTypePairwise, opName: "add", inPlace: true},
	{name: "sub", opType: ops.OpTypePairwise, opName: "sub"},
	{name: "subi", opType: ops.OpTypePairwise, opName: "sub", inPlace: true},
	{name: "mul", opType: ops.OpTypePairwise, opName: "mul"},
	{name: "muli", opType: ops.OpTypePairwise, opName: "mul", inPlace: true},
	{name: "cumsum", opType: ops.OpTypeTransformSame, opName: "cumsum", unary: true, extraArgs: []any{0}},
	{name: "cumsumi", opType: ops.OpTypeTransformSame, opName: "cumsum", unary: true, inPlace: true, extraArgs: []any{0}},
	{name: "assign", opType: ops.OpTypeTransformSame, opName: "assign", unary: true},
}

// threadState holds the arrays and the op used by one benchmark thread: ops are not safe for concurrent use.
type threadState struct {
	op      ops.Op
	x, y, z *tensors.Tensor
}

func (ob opBenchmark) build(caps *backends.Capabilities, size, threads int) (benchmark.Benchmark, error) {
	threads = max(threads, 1)
	states := make([]threadState, threads)
	shape := shapes.Make(dtypes.Float32, size)
	b := benchmark.Benchmark{Name: ob.name, Threads: threads}
	b.Setup = func() error {
		for ii := range states {
			op, err := ops.NewByName(ops.DefaultRegistry, ob.opType, ob.opName)
			if err != nil {
				return err
			}
			if caps != nil && !caps.SupportsOp(op.Type()) {
				return errors.Errorf("backend doesn't support op type %s", op.Type())
			}
			if ob.extraArgs != nil {
				if err = op.SetExtraArgs(ob.extraArgs); err != nil {
					return err
				}
			}
			states[ii] = threadState{op: op, x: tensors.FromShape(shape), y: tensors.FromShape(shape)}
			switch {
			case ob.inPlace:
				states[ii].z = states[ii].x
			case ob.opType.IsReduce():
				states[ii].z = tensors.FromShape(shapes.Scalar(dtypes.Float32))
			default:
				states[ii].z = tensors.FromShape(shape)
			}
		}
		return nil
	}
	b.Run = func(thread int) error {
		state := &states[thread]
		op := state.op
		if err := op.SetX(state.x); err != nil {
			return err
		}
		if !ob.unary {
			if err := op.SetY(state.y); err != nil {
				return err
			}
		}
		if err := op.SetZ(state.z); err != nil {
			return err
		}
		if custom := op.ToCustomOp(); len(custom.Outputs) != 1 {
			return errors.Errorf("op %s has %d outputs", custom, len(custom.Outputs))
		}
		op.ClearArrays()
		return nil
	}
	b.Teardown = func() error {
		clear(states)
		return nil
	}
	return b, nil
}

// codecBenchmarks serialize and deserialize the demo graph.
func codecBenchmarks() []benchmark.Benchmark {
	g := demoGraph()
	var buf []byte
	return []benchmark.Benchmark{
		{
			Name: "serialize",
			Run: func(int) (err error) {
				buf, err = g.Serialize()
				return err
			},
		},
		{
			Name: "deserialize",
			Setup: func() (err error) {
				buf, err = g.Serialize()
				return err
			},
			Run: func(int) error {
				_, err := graph.Deserialize(buf)
				return err
			},
		},
	}
}

// allBenchmarks returns the op benchmarks followed by the codec benchmarks.
// If caps is given, op benchmarks fail for op types the backend doesn't support.
func allBenchmarks(caps *backends.Capabilities, size, threads int) ([]benchmark.Benchmark, error) {
	var benchmarks []benchmark.Benchmark
	for _, ob := range smallArrayBenchmarks {
		b, err := ob.build(caps, size, threads)
		if err != nil {
			return nil, err
		}
		benchmarks = append(benchmarks, b)
	}
	return append(benchmarks, codecBenchmarks()...), nil
}

// newRunner returns the benchmark runner configured by the flags. Multi-threaded benchmarks run in the
// workers pool of the backend, if it is the CPU backend.
func newRunner(backend backends.Backend) *benchmark.Runner {
	runner := &benchmark.Runner{Warmup: *flagWarmup, Iterations: *flagIterations}
	if cpuBackend, ok := backend.(*cpu.Backend); ok {
		runner.Pool = cpuBackend.NewPool()
	}
	return runner
}

func bench() {
	var caps *backends.Capabilities
	var backend backends.Backend
	if handle, err := backends.Resolve(); err != nil {
		klog.Warningf("No backend available, running benchmarks without capabilities check: %v", err)
	} else {
		backend = handle.Backend()
		c := backend.Capabilities()
		caps = &c
		klog.V(1).Infof("Benchmarking with backend %s", handle)
	}
	benchmarks, err := allBenchmarks(caps, *flagSize, *flagThreads)
	if err != nil {
		klog.Errorf("Failed to create benchmarks: %+v", err)
		os.Exit(1)
	}

	var bar *progressbar.ProgressBar
	runner := newRunner(backend)
	runner.OnProgress = func(name string, done, total int) {
		if done == 1 {
			bar = progressbar.NewOptions(total,
				progressbar.OptionSetDescription(fmt.Sprintf("%-12s", name)),
				progressbar.OptionShowIts(),
				progressbar.OptionSetItsString("it"),
				progressbar.OptionSetTheme(progressbar.ThemeASCII),
				progressbar.OptionClearOnFinish(),
			)
		}
		_ = bar.Add(1)
	}
	var results []benchmark.Result
	for _, b := range benchmarks {
		result, err := runner.Run(b)
		if err != nil {
			klog.Errorf("Benchmark failed: %+v", err)
			os.Exit(1)
		}
		results = append(results, result)
	}

	printTitle(fmt.Sprintf("Benchmarks (%d elements, %d threads)", *flagSize, max(*flagThreads, 1)))
	table := newTable(true).Headers("Name", "Mean", "Min", "Max", "Ops/s")
	for _, r := range results {
		table.Row(r.Name, r.Mean.String(), r.Min.String(), r.Max.String(),
			humanize.CommafWithDigits(r.OpsPerSecond(), 0))
	}
	fmt.Println(table.Render())
}
