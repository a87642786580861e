// Copyright 2023-2026 The GoMLX Authors. SPDX-License-Identifier: Apache-2.0

package backends

import (
	"fmt"
	"slices"
)

// Handle is the result of a backend selection. It is immutable and safe for concurrent use.
type Handle struct {
	backend    Backend
	name       string
	config     string
	candidates []CandidateReport
}

// Backend returns the selected backend.
func (h *Handle) Backend() Backend { return h.backend }

// Name returns the name under which the selected backend was registered.
func (h *Handle) Name() string { return h.name }

// Config returns the backend configuration given to the selected backend's constructor.
func (h *Handle) Config() string { return h.config }

// AllowsOrder returns whether the selected backend accepts arrays in either memory order.
func (h *Handle) AllowsOrder() bool { return h.backend.AllowsOrder() }

// Candidates returns the probe results of every backend considered, in registration order.
func (h *Handle) Candidates() []CandidateReport { return slices.Clone(h.candidates) }

// String implements fmt.Stringer.
func (h *Handle) String() string {
	return fmt.Sprintf("%s (%s, priority %d)", h.name, h.backend.Description(), h.backend.Priority())
}
