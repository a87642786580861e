// Copyright 2023-2026 The GoMLX Authors. SPDX-License-Identifier: Apache-2.0

// Package cpu implements the host backend. It is always available, with the lowest priority.
//
// Its configuration is a comma-separated list of options:
//
//   - "threads=<n>": maximum number of threads (the default is GOMAXPROCS).
//   - "debug", "verbose": enable the corresponding environment flags.
//
// E.g.: NDGRAPH_BACKEND="cpu:threads=4,debug".
package cpu

import (
	"fmt"
	"os"
	"runtime"
	"runtime/debug"
	"strconv"
	"strings"

	"github.com/dustin/go-humanize"
	"github.com/gomlx/ndgraph/backends"
	"github.com/gomlx/ndgraph/internal/workerspool"
	"github.com/gomlx/ndgraph/pkg/core/dtypes"
	"github.com/gomlx/ndgraph/pkg/core/ops"
	"github.com/pkg/errors"
)

// BackendName to be used in NDGRAPH_BACKEND to specify this backend.
const BackendName = "cpu"

// Registers New() as the constructor for the "cpu" backend.
func init() {
	backends.Register(BackendName, New)
}

// Capabilities of the CPU backend: every operation category, and every dtype but the complex ones.
var Capabilities = func() backends.Capabilities {
	c := backends.Capabilities{
		OpTypes: make(map[ops.OpType]bool),
		DTypes:  make(map[dtypes.DType]bool),
	}
	for _, opType := range ops.OpTypeValues() {
		if opType != ops.OpTypeInvalid && opType != ops.OpTypeLast {
			c.OpTypes[opType] = true
		}
	}
	for dtype := dtypes.Bool; dtype <= dtypes.BFloat16; dtype++ {
		c.DTypes[dtype] = true
	}
	return c
}()

// Backend implements backends.Backend for the host.
type Backend struct {
	env backends.Environment
}

// Compile-time check that cpu.Backend implements backends.Backend.
var _ backends.Backend = &Backend{}

// New constructs a new CPU Backend. See package documentation for the configuration.
func New(config string) (backends.Backend, error) {
	b := &Backend{}
	b.env.MaxThreads = workerspool.DefaultParallelism()
	for _, option := range strings.Split(config, ",") {
		option = strings.TrimSpace(option)
		key, value, _ := strings.Cut(option, "=")
		switch key {
		case "":
		case "threads":
			threads, err := strconv.Atoi(value)
			if err != nil || threads <= 0 {
				return nil, errors.Errorf("cpu backend: invalid number of threads in option %q", option)
			}
			b.env.MaxThreads = threads
		case "debug":
			b.env.Debug = true
		case "verbose":
			b.env.Verbose = true
		default:
			return nil, errors.Errorf("cpu backend: unknown option %q in configuration %q", option, config)
		}
	}
	b.env.Description = fmt.Sprintf("host %s/%s, %d CPUs", runtime.GOOS, runtime.GOARCH, runtime.NumCPU())
	return b, nil
}

// Name implements backends.Backend.
func (b *Backend) Name() string { return BackendName }

// Description implements backends.Backend.
func (b *Backend) Description() string { return "CPU host backend" }

// IsAvailable implements backends.Backend: the host is always available.
func (b *Backend) IsAvailable() bool { return true }

// CanRun implements backends.Backend.
func (b *Backend) CanRun() bool { return true }

// Priority implements backends.Backend.
func (b *Backend) Priority() int { return backends.PriorityCPU }

// AllowsOrder implements backends.Backend: only row-major ('c') arrays are accepted.
func (b *Backend) AllowsOrder() bool { return false }

// Capabilities implements backends.Backend.
func (b *Backend) Capabilities() backends.Capabilities { return Capabilities.Clone() }

// Environment implements backends.Backend.
func (b *Backend) Environment() backends.Environment { return b.env }

// NewPool returns a workers pool limited to the backend's MaxThreads.
func (b *Backend) NewPool() *workerspool.Pool {
	return workerspool.NewWithParallelism(b.env.MaxThreads)
}

// BuildInfo implements backends.Backend: the process id followed by the Go build and host information.
func (b *Backend) BuildInfo() string {
	var sb strings.Builder
	fmt.Fprintf(&sb, "PID: %d\n", os.Getpid())
	fmt.Fprintf(&sb, "Go: %s %s/%s\n", runtime.Version(), runtime.GOOS, runtime.GOARCH)
	if info, ok := debug.ReadBuildInfo(); ok && info.Main.Path != "" {
		fmt.Fprintf(&sb, "Module: %s %s\n", info.Main.Path, info.Main.Version)
	}
	var mem runtime.MemStats
	runtime.ReadMemStats(&mem)
	fmt.Fprintf(&sb, "CPUs: %d, threads: %d, host memory reserved: %s", runtime.NumCPU(), b.env.MaxThreads,
		humanize.IBytes(mem.Sys))
	return sb.String()
}
