// Copyright 2023-2026 The GoMLX Authors. SPDX-License-Identifier: Apache-2.0

package main

import (
	"fmt"
	"os"
	"strings"

	"github.com/gomlx/ndgraph/backends"
	"github.com/pkg/errors"
	"k8s.io/klog/v2"
)

// backend resolves the backend, as any user of the library would, and prints the probe of each candidate.
func backend() {
	handle, err := backends.Resolve()
	var candidates []backends.CandidateReport
	if err != nil {
		var unavailable *backends.BackendUnavailableError
		if !errors.As(err, &unavailable) {
			klog.Errorf("Failed to resolve backend: %+v", err)
			os.Exit(1)
		}
		candidates = unavailable.Candidates
	} else {
		candidates = handle.Candidates()
	}

	printTitle("Candidates")
	table := newTable(true).Headers("#", "Name", "Available", "Can Run", "Priority", "Error")
	for _, c := range candidates {
		var errMsg string
		if c.Err != nil {
			errMsg = c.Err.Error()
		}
		table.Row(fmt.Sprintf("%d", c.Registered), c.Name, fmt.Sprintf("%v", c.Available),
			fmt.Sprintf("%v", c.CanRun), fmt.Sprintf("%d", c.Priority), errMsg)
	}
	fmt.Println(table.Render())
	if err != nil {
		klog.Errorf("%v", err)
		os.Exit(1)
	}

	b := handle.Backend()
	printTitle("Selected")
	table = newTable(false)
	table.Row("name", handle.Name())
	table.Row("config", handle.Config())
	table.Row("description", b.Description())
	table.Row("allows order", fmt.Sprintf("%v", handle.AllowsOrder()))
	table.Row("environment", b.Environment().String())
	caps := b.Capabilities()
	opTypes := make([]string, 0, len(caps.OpTypes))
	for _, opType := range caps.SortedOpTypes() {
		opTypes = append(opTypes, opType.String())
	}
	table.Row("op types", strings.Join(opTypes, ", "))
	dtypes := make([]string, 0, len(caps.DTypes))
	for _, dtype := range caps.SortedDTypes() {
		dtypes = append(dtypes, dtype.String())
	}
	table.Row("dtypes", strings.Join(dtypes, ", "))
	fmt.Println(table.Render())

	printTitle("Build Info")
	fmt.Println(b.BuildInfo())
}
