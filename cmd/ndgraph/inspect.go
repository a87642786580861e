// Copyright 2023-2026 The GoMLX Authors. SPDX-License-Identifier: Apache-2.0

package main

import (
	"bufio"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/dustin/go-humanize"
	"github.com/gomlx/ndgraph/pkg/core/graph"
	"github.com/gomlx/ndgraph/pkg/support/fsutil"
	"github.com/pkg/errors"
)

// inspect prints every graph (frame) in the file. A file without graphs is an error.
func inspect(filePath string) error {
	filePath, err := fsutil.ReplaceTildeInDir(filePath)
	if err != nil {
		return err
	}
	f, err := os.Open(filePath)
	if err != nil {
		return errors.Wrapf(err, "failed to open %q", filePath)
	}
	defer func() { _ = f.Close() }()
	r := bufio.NewReader(f)
	for frame := 0; ; frame++ {
		view, err := graph.ReadFrameView(r)
		if err == io.EOF {
			if frame == 0 {
				return errors.Errorf("no graphs found in %q", filePath)
			}
			return nil
		}
		if err != nil {
			return errors.WithMessagef(err, "failed to read frame #%d of %q", frame, filePath)
		}
		if err = inspectView(frame, view); err != nil {
			return err
		}
	}
}

func inspectView(frame int, view *graph.View) error {
	g, err := view.Graph()
	if err != nil {
		return errors.WithMessagef(err, "failed to decode frame #%d", frame)
	}
	printTitle(fmt.Sprintf("Graph #%d", frame))
	table := newTable(false)
	table.Row("session", g.SessionID)
	table.Row("version", fmt.Sprintf("%d", view.Version()))
	table.Row("size", humanize.IBytes(uint64(view.Size())))
	table.Row("# variables", humanize.Comma(int64(view.NumVariables())))
	table.Row("# sequence items", humanize.Comma(int64(view.NumSequenceItems())))
	table.Row("# hardware states", humanize.Comma(int64(view.NumHardwareStates())))
	table.Row("# nodes", humanize.Comma(int64(view.NumNodes())))
	fmt.Println(table.Render())

	if variables := g.Variables(); len(variables) > 0 {
		printTitle("Variables")
		table = newTable(true).Headers("Name", "Arrays")
		for _, v := range variables {
			table.Row(v.Name, arraysString(v.Arrays))
		}
		fmt.Println(table.Render())
	}

	if entries := g.Entries(); len(entries) > 0 {
		printTitle("Entries")
		table = newTable(true).Headers("#", "Kind", "Name", "Contents")
		for ii, entry := range entries {
			if entry.HardwareState != nil {
				table.Row(fmt.Sprintf("%d", ii), "hardware", "", entry.HardwareState.String())
				continue
			}
			item := entry.SequenceItem
			parts := make([]string, 0, len(item.Variables))
			for _, v := range item.Variables {
				parts = append(parts, fmt.Sprintf("%s=%s", v.Name, arraysString(v.Arrays)))
			}
			table.Row(fmt.Sprintf("%d", ii), "sequence", item.Name, strings.Join(parts, "\n"))
		}
		fmt.Println(table.Render())
	}

	if nodes := g.Nodes(); len(nodes) > 0 {
		printTitle("Nodes")
		table = newTable(true).Headers("ID", "Name", "Op", "Inputs", "Outputs", "Args")
		for _, node := range nodes {
			table.Row(
				fmt.Sprintf("%d", node.ID), node.Name,
				fmt.Sprintf("%s/%s(#%d)", node.OpType, node.OpName, node.OpNum),
				strings.Join(node.Inputs, ", "), strings.Join(node.Outputs, ", "),
				fmt.Sprintf("t=%v i=%v b=%v", node.TArgs, node.IArgs, node.BArgs))
		}
		fmt.Println(table.Render())
	}
	return nil
}

func arraysString(arrays []graph.ArrayRef) string {
	parts := make([]string, len(arrays))
	for ii, a := range arrays {
		parts[ii] = a.String()
	}
	return "[" + strings.Join(parts, ", ") + "]"
}
