// Copyright 2023-2026 The GoMLX Authors. SPDX-License-Identifier: Apache-2.0

package main

import (
	"bytes"
	"fmt"
	"os"

	"github.com/gomlx/ndgraph/pkg/core/graph"
	"github.com/gomlx/ndgraph/pkg/core/ops"
	"github.com/gomlx/ndgraph/pkg/core/tensors"
	"github.com/gomlx/ndgraph/pkg/support/fsutil"
	"github.com/janpfeifer/must"
	"k8s.io/klog/v2"
)

// demoGraph builds the graph of a training run with one epoch: loss and accuracy of the epoch,
// a hardware snapshot, and the node computing the loss.
func demoGraph() *graph.Graph {
	g := graph.New()
	loss := graph.ArrayFromTensor(tensors.FromFlatDataAndDimensions([]float32{0.6931}, 1))
	accuracy := graph.ArrayFromTensor(tensors.FromFlatDataAndDimensions([]float32{0.5, 0.625, 0.75}, 3))
	g.AddSequenceItem("epoch-1",
		&graph.NamedVariable{Name: "loss", Arrays: []graph.ArrayRef{loss}},
		&graph.NamedVariable{Name: "accuracy", Arrays: []graph.ArrayRef{accuracy}})
	g.AddHardwareSnapshot([]int64{1024, 2048}, 4096)

	mean := must.M1(ops.NewByName(ops.DefaultRegistry, ops.OpTypeReduceFloat, "mean"))
	g.AddNode(mean, []string{"errors"}, []string{"loss"})
	return g
}

func demo(filePath string) {
	g := demoGraph()
	filePath = must.M1(fsutil.ReplaceTildeInDir(filePath))
	version := graph.CurrentVersion
	if *flagVersion != 0 {
		version = uint32(*flagVersion)
	}
	var frames bytes.Buffer
	if err := graph.WriteFrameVersion(&frames, g, version); err != nil {
		klog.Errorf("Failed to serialize demo graph: %+v", err)
		os.Exit(1)
	}
	must.M(fsutil.WriteFileAtomic(filePath, frames.Bytes(), 0o644))
	fmt.Printf("Wrote %s (version %d) to %q\n", g, version, filePath)
}
