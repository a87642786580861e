// Copyright 2023-2026 The GoMLX Authors. SPDX-License-Identifier: Apache-2.0

package backends

import (
	"fmt"
	"strings"

	"github.com/pkg/errors"
)

// ErrBackendUnavailable is matched (with errors.Is) by *BackendUnavailableError.
var ErrBackendUnavailable = errors.New("no backend available")

// CandidateReport holds the probe results of one backend during a selection.
type CandidateReport struct {
	Name string

	// Registered is the position of the backend in the registration order.
	Registered int

	Available bool
	CanRun    bool
	Priority  int

	// Err is the error (or recovered panic) of the constructor or of a probe, if any.
	Err error
}

// String implements fmt.Stringer.
func (r CandidateReport) String() string {
	s := fmt.Sprintf("%s(#%d, available=%v, canRun=%v, priority=%d", r.Name, r.Registered, r.Available, r.CanRun, r.Priority)
	if r.Err != nil {
		s += fmt.Sprintf(", error=%q", r.Err.Error())
	}
	return s + ")"
}

// BackendUnavailableError is returned when no backend is available and able to run.
type BackendUnavailableError struct {
	// Config used in the selection.
	Config string

	// Candidates considered, in registration order.
	Candidates []CandidateReport
}

// Error implements the error interface.
func (e *BackendUnavailableError) Error() string {
	if len(e.Candidates) == 0 {
		return fmt.Sprintf("%v (config %q): no backends registered, maybe import _ \"github.com/gomlx/ndgraph/backends/default\"?",
			ErrBackendUnavailable, e.Config)
	}
	parts := make([]string, len(e.Candidates))
	for ii, candidate := range e.Candidates {
		parts[ii] = candidate.String()
	}
	return fmt.Sprintf("%v (config %q), candidates: %s", ErrBackendUnavailable, e.Config, strings.Join(parts, "; "))
}

// Is makes errors.Is(err, ErrBackendUnavailable) true.
func (e *BackendUnavailableError) Is(target error) bool {
	return target == ErrBackendUnavailable
}
