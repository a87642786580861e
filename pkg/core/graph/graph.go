// Copyright 2023-2026 The GoMLX Authors. SPDX-License-Identifier: Apache-2.0

// Package graph holds a serializable computation graph record: named variables, sequence items
// (e.g. one per training iteration), hardware-state snapshots for monitoring, and op nodes.
//
// Graphs are exchanged in the flatbin format (identifier "NDGR"), see Serialize and Deserialize,
// and streamed to files as length-prefixed frames, see WriteFrame and SaveFile.
//
// A Graph is not safe for concurrent mutation. Serialized buffers and Views can be read concurrently.
package graph

import (
	"fmt"
	"slices"
	"strings"
	"time"

	"github.com/dustin/go-humanize"
	"github.com/gomlx/ndgraph/pkg/core/ops"
	"github.com/gomlx/ndgraph/pkg/core/shapes"
	"github.com/gomlx/ndgraph/pkg/core/tensors"
	"github.com/google/uuid"
	"github.com/pkg/errors"
)

// ArrayRef is a serialized array: its shape, memory order and raw little-endian data.
// Data may be empty for arrays whose contents are not recorded.
type ArrayRef struct {
	Shape shapes.Shape

	// Order is tensors.RowMajor ('c') or tensors.ColumnMajor ('f').
	Order byte

	Data []byte
}

// ArrayFromTensor returns an ArrayRef sharing the tensor's data.
func ArrayFromTensor(t *tensors.Tensor) ArrayRef {
	return ArrayRef{Shape: t.Shape(), Order: t.Order(), Data: t.Bytes()}
}

// Tensor converts the ArrayRef back to a tensor. Arrays without data become zero-valued tensors.
func (a ArrayRef) Tensor() (*tensors.Tensor, error) {
	if len(a.Data) == 0 {
		t := tensors.FromShape(a.Shape)
		return t, nil
	}
	return tensors.FromBytes(a.Shape, a.Order, a.Data)
}

// validate checks that the ArrayRef can be serialized.
func (a ArrayRef) validate() error {
	if !a.Shape.Ok() || !a.Shape.DType.IsSupported() {
		return errors.Errorf("array with invalid shape %s", a.Shape)
	}
	if a.Order != tensors.RowMajor && a.Order != tensors.ColumnMajor {
		return errors.Errorf("array %s has invalid order %q", a.Shape, a.Order)
	}
	if len(a.Data) != 0 && uintptr(len(a.Data)) != a.Shape.Memory() {
		return errors.Errorf("array %s has %d bytes of data, expected %d", a.Shape, len(a.Data), a.Shape.Memory())
	}
	return nil
}

// String implements fmt.Stringer.
func (a ArrayRef) String() string {
	return fmt.Sprintf("%s/%c(%s)", a.Shape, a.Order, humanize.IBytes(uint64(len(a.Data))))
}

// NamedVariable is a named list of arrays.
type NamedVariable struct {
	Name   string
	Arrays []ArrayRef
}

// SequenceItem is a named group of variables representing one logical step, e.g. a training iteration.
type SequenceItem struct {
	Name      string
	Variables []*NamedVariable
}

// HardwareState is a snapshot of memory usage of the devices and of the host, in bytes.
type HardwareState struct {
	// PerDeviceMemory lists the memory used in each device.
	PerDeviceMemory []int64

	HostMemory int64

	// Timestamp in milliseconds since the Unix epoch, 0 if unknown.
	Timestamp int64
}

// String implements fmt.Stringer, with humanized memory values.
func (h *HardwareState) String() string {
	devices := make([]string, len(h.PerDeviceMemory))
	for ii, mem := range h.PerDeviceMemory {
		devices[ii] = humanizeBytes(mem)
	}
	s := fmt.Sprintf("devices=[%s], host=%s", strings.Join(devices, ", "), humanizeBytes(h.HostMemory))
	if h.Timestamp != 0 {
		s += ", at " + time.UnixMilli(h.Timestamp).UTC().Format(time.RFC3339)
	}
	return s
}

func humanizeBytes(n int64) string {
	if n < 0 {
		return fmt.Sprintf("%d B", n)
	}
	return humanize.IBytes(uint64(n))
}

// Node is an operation of the graph, in canonical form, with its inputs and outputs referenced by
// variable name.
type Node struct {
	ID     int32
	Name   string
	OpType ops.OpType
	OpNum  int64
	OpName string

	Inputs, Outputs []string

	TArgs []float64
	IArgs []int64
	BArgs []bool
}

// Entry is one element of the ordered record of sequence items and hardware states.
// Exactly one of the fields is set.
type Entry struct {
	SequenceItem  *SequenceItem
	HardwareState *HardwareState
}

// Graph is the serializable record.
type Graph struct {
	// SessionID identifies the session that produced the graph, by default a random UUID.
	SessionID string

	variables []*NamedVariable
	entries   []Entry
	nodes     []*Node
}

// New returns an empty Graph with a new random SessionID.
func New() *Graph {
	return &Graph{SessionID: uuid.NewString()}
}

// AddVariable adds a variable. Variables with a repeated name are kept, but Variable returns the last one.
func (g *Graph) AddVariable(name string, arrays ...ArrayRef) *NamedVariable {
	v := &NamedVariable{Name: name, Arrays: slices.Clone(arrays)}
	g.variables = append(g.variables, v)
	return v
}

// Variable returns the last variable added with the given name.
func (g *Graph) Variable(name string) (*NamedVariable, bool) {
	for _, v := range slices.Backward(g.variables) {
		if v.Name == name {
			return v, true
		}
	}
	return nil, false
}

// Variables returns the variables of the graph in the order they were added.
func (g *Graph) Variables() []*NamedVariable {
	return slices.Clone(g.variables)
}

// AddSequenceItem appends a sequence item with the given variables, in order.
func (g *Graph) AddSequenceItem(name string, variables ...*NamedVariable) *SequenceItem {
	item := &SequenceItem{Name: name, Variables: slices.Clone(variables)}
	g.entries = append(g.entries, Entry{SequenceItem: item})
	return item
}

// SequenceItems returns the sequence items in the order they were added.
func (g *Graph) SequenceItems() []*SequenceItem {
	var items []*SequenceItem
	for _, entry := range g.entries {
		if entry.SequenceItem != nil {
			items = append(items, entry.SequenceItem)
		}
	}
	return items
}

// AddHardwareSnapshot appends a hardware state, timestamped now.
func (g *Graph) AddHardwareSnapshot(perDeviceMemory []int64, hostMemory int64) *HardwareState {
	return g.AddHardwareState(&HardwareState{
		PerDeviceMemory: slices.Clone(perDeviceMemory),
		HostMemory:      hostMemory,
		Timestamp:       time.Now().UnixMilli(),
	})
}

// AddHardwareState appends the given hardware state.
func (g *Graph) AddHardwareState(state *HardwareState) *HardwareState {
	g.entries = append(g.entries, Entry{HardwareState: state})
	return state
}

// HardwareStates returns the hardware states in the order they were added.
func (g *Graph) HardwareStates() []*HardwareState {
	var states []*HardwareState
	for _, entry := range g.entries {
		if entry.HardwareState != nil {
			states = append(states, entry.HardwareState)
		}
	}
	return states
}

// Entries returns sequence items and hardware states interleaved in the order they were added.
func (g *Graph) Entries() []Entry {
	return slices.Clone(g.entries)
}

// AddNode adds the operation as a node, reading its name and arguments from its canonical form.
// The inputs and outputs are names of variables.
func (g *Graph) AddNode(op ops.Op, inputs, outputs []string) *Node {
	custom := op.ToCustomOp()
	id := int32(len(g.nodes) + 1)
	node := &Node{
		ID:      id,
		Name:    fmt.Sprintf("%s_%d", custom.Name, id),
		OpType:  custom.Type,
		OpNum:   int64(custom.Num),
		OpName:  custom.Name,
		Inputs:  slices.Clone(inputs),
		Outputs: slices.Clone(outputs),
		TArgs:   custom.TArgs,
		IArgs:   custom.IArgs,
		BArgs:   custom.BArgs,
	}
	g.nodes = append(g.nodes, node)
	return node
}

// Nodes returns the nodes in the order they were added.
func (g *Graph) Nodes() []*Node {
	return slices.Clone(g.nodes)
}

// String returns a one-line summary of the graph.
func (g *Graph) String() string {
	return fmt.Sprintf("Graph(session=%q, %d variables, %d sequence items, %d hardware states, %d nodes)",
		g.SessionID, len(g.variables), len(g.SequenceItems()), len(g.HardwareStates()), len(g.nodes))
}
