// Copyright 2023-2026 The GoMLX Authors. SPDX-License-Identifier: Apache-2.0

package backends

import (
	"fmt"
	"slices"
	"sync"

	"github.com/gomlx/exceptions"
	"github.com/pkg/errors"
	"k8s.io/klog/v2"
)

// Registry is an ordered list of named backend constructors.
//
// Registration order matters: it breaks ties between backends of equal priority.
type Registry struct {
	mu      sync.Mutex
	entries []registration

	resolveOnce func() (*Handle, error)
}

type registration struct {
	name        string
	constructor Constructor
}

// NewRegistry returns an empty Registry.
func NewRegistry() *Registry {
	r := &Registry{}
	r.resolveOnce = sync.OnceValues(r.resolve)
	return r
}

// Register backend with the given name, and a constructor that takes as input a configuration string.
//
// Registering a name again replaces its constructor, keeping its original position.
func (r *Registry) Register(name string, constructor Constructor) {
	if name == "" || constructor == nil {
		exceptions.Panicf("backends.Register: name (%q) and constructor must be given", name)
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	for ii := range r.entries {
		if r.entries[ii].name == name {
			r.entries[ii].constructor = constructor
			return
		}
	}
	r.entries = append(r.entries, registration{name: name, constructor: constructor})
}

// Names returns the names of the registered backends, in registration order.
func (r *Registry) Names() []string {
	r.mu.Lock()
	defer r.mu.Unlock()
	names := make([]string, len(r.entries))
	for ii, entry := range r.entries {
		names[ii] = entry.name
	}
	return names
}

// Select builds and probes the registered backends, and returns the one available and able to run with
// the highest priority. Ties go to the first registered.
//
// If config is given, it is formatted as "<backend_name>[:<backend_configuration>]": only the named
// backend is considered, and it is given the backend configuration.
//
// Errors and panics of constructors and probes are recovered, and exclude the backend from the selection.
// If no backend qualifies, it returns a *BackendUnavailableError listing every candidate and its probes.
//
// Select doesn't change the process backend returned by Resolve.
func (r *Registry) Select(config string) (*Handle, error) {
	r.mu.Lock()
	entries := slices.Clone(r.entries)
	r.mu.Unlock()

	name, backendConfig := splitConfig(config)
	firstIdx := 0
	if name != "" {
		idx := slices.IndexFunc(entries, func(e registration) bool { return e.name == name })
		if idx == -1 {
			names := make([]string, len(entries))
			for ii, entry := range entries {
				names[ii] = entry.name
			}
			return nil, errors.Errorf("can't find backend %q for configuration %q given, registered backends: %q",
				name, config, names)
		}
		entries = entries[idx : idx+1]
		firstIdx = idx
	}

	var (
		reports  = make([]CandidateReport, 0, len(entries))
		best     Backend
		bestName string
		bestIdx  = -1
	)
	for ii, entry := range entries {
		backend, report := probeCandidate(entry, backendConfig)
		report.Registered = firstIdx + ii
		reports = append(reports, report)
		klog.V(1).Infof("backend candidate %s", report)
		if !report.Available || !report.CanRun {
			continue
		}
		if bestIdx == -1 || report.Priority > reports[bestIdx].Priority {
			best, bestName, bestIdx = backend, entry.name, len(reports)-1
		}
	}
	if best == nil {
		return nil, &BackendUnavailableError{Config: config, Candidates: reports}
	}
	return &Handle{
		backend:    best,
		name:       bestName,
		config:     backendConfig,
		candidates: reports,
	}, nil
}

// probeCandidate builds the backend and queries its probes, recovering from errors and panics.
func probeCandidate(entry registration, config string) (Backend, CandidateReport) {
	report := CandidateReport{Name: entry.name}
	var backend Backend
	var err error
	if exception := exceptions.Try(func() { backend, err = entry.constructor(config) }); exception != nil {
		err = errors.Errorf("constructor panicked: %v", exception)
	}
	if err == nil && backend == nil {
		err = errors.New("constructor returned no backend")
	}
	if err != nil {
		report.Err = err
		return nil, report
	}
	// Both probes always run, also for unavailable backends.
	report.Available = probe(&report, "IsAvailable", backend.IsAvailable)
	report.CanRun = probe(&report, "CanRun", backend.CanRun)
	if exception := exceptions.Try(func() { report.Priority = backend.Priority() }); exception != nil {
		report.Err = errors.Errorf("Priority panicked: %v", exception)
		report.Available, report.CanRun = false, false
	}
	return backend, report
}

// probe calls fn, returning false and recording the error in report if it panics.
// Only the first error is kept.
func probe(report *CandidateReport, method string, fn func() bool) (result bool) {
	if exception := exceptions.Try(func() { result = fn() }); exception != nil {
		if report.Err == nil {
			report.Err = errors.Errorf("%s panicked: %v", method, exception)
		}
		return false
	}
	return
}

// Resolve returns the backend of the process: the first call performs the selection (see Select)
// with the configuration returned by ConfigFromEnv, and every later or concurrent call returns
// the same *Handle, or the same error.
//
// The selection is never repeated: changing the configuration requires restarting the process.
func (r *Registry) Resolve() (*Handle, error) {
	return r.resolveOnce()
}

func (r *Registry) resolve() (*Handle, error) {
	config := ConfigFromEnv()
	h, err := r.Select(config)
	if err != nil {
		klog.Errorf("failed to select backend: %v", err)
		return nil, err
	}
	logInit(h)
	return h, nil
}

// String implements fmt.Stringer.
func (r *Registry) String() string {
	return fmt.Sprintf("backends.Registry%q", r.Names())
}
