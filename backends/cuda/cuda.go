// Copyright 2023-2026 The GoMLX Authors. SPDX-License-Identifier: Apache-2.0

// Package cuda implements the probe of the CUDA backend.
//
// The backend is available if the CUDA runtime library (libcudart.so*) is found, and it can run if the
// native dispatcher library (libnd4jcuda.so*) is found too. Libraries are searched in $CUDA_PATH/lib64,
// $CUDA_PATH/lib, the directories in $LD_LIBRARY_PATH, and then DefaultSearchDirs.
//
// Setting CUDA_VISIBLE_DEVICES=-1 makes the backend unavailable.
//
// The configuration string, if given, is a comma-separated list of device numbers to use.
package cuda

import (
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"sync"

	"github.com/gomlx/ndgraph/backends"
	"github.com/gomlx/ndgraph/pkg/core/dtypes"
	"github.com/gomlx/ndgraph/pkg/core/ops"
	"github.com/gomlx/ndgraph/pkg/support/fsutil"
	"github.com/pkg/errors"
	"k8s.io/klog/v2"
)

// BackendName to be used in NDGRAPH_BACKEND to specify this backend.
const BackendName = "cuda"

const (
	runtimeLibPattern    = "libcudart.so*"
	dispatcherLibPattern = "libnd4jcuda.so*"
)

// DefaultSearchDirs are searched for the libraries after the environment variables.
var DefaultSearchDirs = []string{"/usr/local/cuda/lib64"}

func init() {
	backends.Register(BackendName, New)
}

// Capabilities of the CUDA backend.
var Capabilities = backends.Capabilities{
	OpTypes: map[ops.OpType]bool{
		ops.OpTypeScalar:          true,
		ops.OpTypeScalarBool:      true,
		ops.OpTypeTransformSame:   true,
		ops.OpTypeTransformFloat:  true,
		ops.OpTypeTransformAny:    true,
		ops.OpTypeTransformBool:   true,
		ops.OpTypeTransformStrict: true,
		ops.OpTypePairwise:        true,
		ops.OpTypePairwiseBool:    true,
		ops.OpTypeBroadcast:       true,
		ops.OpTypeBroadcastBool:   true,
		ops.OpTypeReduceLong:      true,
		ops.OpTypeReduceSame:      true,
		ops.OpTypeReduceFloat:     true,
		ops.OpTypeReduceBool:      true,
		ops.OpTypeIndexReduce:     true,
		ops.OpTypeVariance:        true,
		ops.OpTypeReduce3:         true,
		ops.OpTypeRandom:          true,
		ops.OpTypeCustom:          true,
		ops.OpTypeSummaryStats:    true,
	},
	DTypes: map[dtypes.DType]bool{
		dtypes.Bool:     true,
		dtypes.Int8:     true,
		dtypes.Int16:    true,
		dtypes.Int32:    true,
		dtypes.Int64:    true,
		dtypes.Uint8:    true,
		dtypes.Float16:  true,
		dtypes.BFloat16: true,
		dtypes.Float32:  true,
		dtypes.Float64:  true,
	},
}

// Backend implements backends.Backend for CUDA devices. Probes run once, lazily.
type Backend struct {
	devices []int

	probeOnce     sync.Once
	runtimeLib    string
	dispatcherLib string
	probeErr      error
}

// Compile-time check that cuda.Backend implements backends.Backend.
var _ backends.Backend = &Backend{}

// New constructs a new CUDA Backend. It doesn't load any library.
func New(config string) (backends.Backend, error) {
	b := &Backend{}
	for _, part := range strings.Split(config, ",") {
		part = strings.TrimSpace(part)
		if part == "" {
			continue
		}
		device, err := strconv.Atoi(part)
		if err != nil || device < 0 {
			return nil, errors.Errorf("cuda backend: invalid device %q in configuration %q", part, config)
		}
		b.devices = append(b.devices, device)
	}
	return b, nil
}

// SearchDirs returns the directories searched for the CUDA libraries, in order.
func SearchDirs() []string {
	var dirs []string
	if cudaPath := os.Getenv("CUDA_PATH"); cudaPath != "" {
		dirs = append(dirs, filepath.Join(cudaPath, "lib64"), filepath.Join(cudaPath, "lib"))
	}
	dirs = append(dirs, filepath.SplitList(os.Getenv("LD_LIBRARY_PATH"))...)
	return append(dirs, DefaultSearchDirs...)
}

func (b *Backend) probe() {
	b.probeOnce.Do(func() {
		if strings.TrimSpace(os.Getenv("CUDA_VISIBLE_DEVICES")) == "-1" {
			b.probeErr = errors.New("CUDA_VISIBLE_DEVICES=-1")
			return
		}
		dirs := SearchDirs()
		b.runtimeLib, b.probeErr = fsutil.FindInDirs(dirs, runtimeLibPattern)
		if b.probeErr != nil || b.runtimeLib == "" {
			return
		}
		b.dispatcherLib, b.probeErr = fsutil.FindInDirs(dirs, dispatcherLibPattern)
		klog.V(1).Infof("cuda backend: runtime library %q, dispatcher library %q", b.runtimeLib, b.dispatcherLib)
	})
}

// Name implements backends.Backend.
func (b *Backend) Name() string { return BackendName }

// Description implements backends.Backend.
func (b *Backend) Description() string { return "CUDA GPU backend" }

// IsAvailable implements backends.Backend: it checks for the CUDA runtime library.
func (b *Backend) IsAvailable() bool {
	b.probe()
	return b.probeErr == nil && b.runtimeLib != ""
}

// CanRun implements backends.Backend: it checks for the native dispatcher library.
func (b *Backend) CanRun() bool {
	return b.IsAvailable() && b.dispatcherLib != ""
}

// Priority implements backends.Backend.
func (b *Backend) Priority() int { return backends.PriorityGPU }

// AllowsOrder implements backends.Backend: only row-major ('c') arrays are accepted.
func (b *Backend) AllowsOrder() bool { return false }

// Capabilities implements backends.Backend.
func (b *Backend) Capabilities() backends.Capabilities { return Capabilities.Clone() }

// Environment implements backends.Backend.
func (b *Backend) Environment() backends.Environment {
	description := "all visible devices"
	if len(b.devices) > 0 {
		description = fmt.Sprintf("devices %v", b.devices)
	}
	return backends.Environment{MaxThreads: 1, Description: description}
}

// BuildInfo implements backends.Backend.
func (b *Backend) BuildInfo() string {
	b.probe()
	if b.probeErr != nil {
		return fmt.Sprintf("PID: %d\nCUDA: unavailable (%v)", os.Getpid(), b.probeErr)
	}
	return fmt.Sprintf("PID: %d\nCUDA runtime: %s\nDispatcher: %s", os.Getpid(), b.runtimeLib, b.dispatcherLib)
}
