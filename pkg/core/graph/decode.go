// Copyright 2023-2026 The GoMLX Authors. SPDX-License-Identifier: Apache-2.0

package graph

import (
	"fmt"
	"slices"

	"github.com/gomlx/ndgraph/pkg/core/dtypes"
	"github.com/gomlx/ndgraph/pkg/core/ops"
	"github.com/gomlx/ndgraph/pkg/core/shapes"
	"github.com/gomlx/ndgraph/pkg/core/tensors"
	"github.com/gomlx/ndgraph/pkg/flatbin"
	"github.com/pkg/errors"
)

// View is a lazy read-only view of a serialized graph: records are decoded only when requested.
// The buffer must not be modified while the View is in use.
//
// A View is safe for concurrent use.
type View struct {
	header  flatbin.Header
	root    flatbin.Table
	vars    flatbin.Vector
	items   flatbin.Vector
	states  flatbin.Vector
	nodes   flatbin.Vector
	order   []byte
	session string
	size    int
}

// OpenView validates the header of buf and returns a View of the graph.
//
// Buffers written with a version older than MinSupportedVersion fail with an error matching
// flatbin.ErrUnsupportedVersion. Newer versions are read, ignoring the fields this reader doesn't know.
func OpenView(buf []byte) (*View, error) {
	root, header, err := flatbin.Open(buf, Identifier, MinSupportedVersion)
	if err != nil {
		return nil, errors.WithMessage(err, "graph: can't open buffer")
	}
	v := &View{header: header, root: root, size: len(buf)}
	err = flatbin.Decode(func() {
		v.vars = root.Vector(graphVariables)
		v.items = root.Vector(graphSequenceItems)
		v.states = root.Vector(graphHardwareStates)
		v.nodes = root.Vector(graphNodes)
		v.session = root.String(graphSessionID)
		v.order = root.Bytes(graphEntryOrder)
	})
	if err != nil {
		return nil, errors.WithMessage(err, "graph: malformed buffer")
	}
	if v.order != nil {
		var numStates int
		for _, kind := range v.order {
			if kind == entryHardwareState {
				numStates++
			} else if kind != entrySequenceItem {
				return nil, errors.WithMessage(malformed(root, "unknown entry kind %d", kind), "graph: malformed buffer")
			}
		}
		if numStates != v.states.Len() || len(v.order)-numStates != v.items.Len() {
			return nil, errors.WithMessage(
				malformed(root, "entry order lists %d entries, but there are %d sequence items and %d hardware states",
					len(v.order), v.items.Len(), v.states.Len()),
				"graph: malformed buffer")
		}
	}
	return v, nil
}

func malformed(t flatbin.Table, format string, args ...any) *flatbin.DecodeError {
	return &flatbin.DecodeError{Kind: flatbin.ErrMalformed, Offset: t.Offset(), Details: fmt.Sprintf(format, args...)}
}

// throwMalformed panics with a *flatbin.DecodeError, to be caught by flatbin.Decode.
func throwMalformed(t flatbin.Table, format string, args ...any) {
	panic(malformed(t, format, args...))
}

// Version of the schema used to write the buffer.
func (v *View) Version() uint32 { return v.header.Version }

// Size of the serialized graph in bytes.
func (v *View) Size() int { return v.size }

// SessionID of the graph, empty for version 2 buffers.
func (v *View) SessionID() string { return v.session }

// NumVariables returns the number of graph variables.
func (v *View) NumVariables() int { return v.vars.Len() }

// NumSequenceItems returns the number of sequence items.
func (v *View) NumSequenceItems() int { return v.items.Len() }

// NumHardwareStates returns the number of hardware states.
func (v *View) NumHardwareStates() int { return v.states.Len() }

// NumNodes returns the number of nodes, always 0 for version 2 buffers.
func (v *View) NumNodes() int { return v.nodes.Len() }

// Variable decodes the i-th graph variable.
func (v *View) Variable(i int) (variable *NamedVariable, err error) {
	err = decodeWith("variable", func() { variable = decodeVariable(v.vars.Table(i)) })
	return
}

// SequenceItem decodes the i-th sequence item.
func (v *View) SequenceItem(i int) (item *SequenceItem, err error) {
	err = decodeWith("sequence item", func() { item = decodeSequenceItem(v.items.Table(i)) })
	return
}

// HardwareState decodes the i-th hardware state.
func (v *View) HardwareState(i int) (state *HardwareState, err error) {
	err = decodeWith("hardware state", func() { state = decodeHardwareState(v.states.Table(i)) })
	return
}

// Node decodes the i-th node.
func (v *View) Node(i int) (node *Node, err error) {
	err = decodeWith("node", func() { node = decodeNode(v.nodes.Table(i)) })
	return
}

// Graph decodes the whole graph.
func (v *View) Graph() (g *Graph, err error) {
	err = decodeWith("graph", func() {
		g = &Graph{SessionID: v.session}
		for ii := range v.vars.Len() {
			g.variables = append(g.variables, decodeVariable(v.vars.Table(ii)))
		}
		for ii := range v.nodes.Len() {
			g.nodes = append(g.nodes, decodeNode(v.nodes.Table(ii)))
		}
		if v.order == nil {
			// No order recorded (version 2): sequence items first.
			for ii := range v.items.Len() {
				g.entries = append(g.entries, Entry{SequenceItem: decodeSequenceItem(v.items.Table(ii))})
			}
			for ii := range v.states.Len() {
				g.entries = append(g.entries, Entry{HardwareState: decodeHardwareState(v.states.Table(ii))})
			}
			return
		}
		var nextItem, nextState int
		for _, kind := range v.order {
			if kind == entryHardwareState {
				g.entries = append(g.entries, Entry{HardwareState: decodeHardwareState(v.states.Table(nextState))})
				nextState++
			} else {
				g.entries = append(g.entries, Entry{SequenceItem: decodeSequenceItem(v.items.Table(nextItem))})
				nextItem++
			}
		}
	})
	return
}

// Deserialize decodes a graph serialized with any supported version of the schema.
// Fields absent in older versions take their defaults: empty session id, no nodes, zero timestamps.
func Deserialize(buf []byte) (*Graph, error) {
	v, err := OpenView(buf)
	if err != nil {
		return nil, err
	}
	return v.Graph()
}

func decodeWith(what string, fn func()) error {
	if err := flatbin.Decode(fn); err != nil {
		return errors.WithMessagef(err, "graph: failed to decode %s", what)
	}
	return nil
}

func decodeArray(t flatbin.Table) ArrayRef {
	var dims []int
	for _, dim := range t.Int64Vector(arrayShape) {
		if dim < 0 || dim > int64(^uint32(0)) {
			throwMalformed(t, "invalid dimension %d", dim)
		}
		dims = append(dims, int(dim))
	}
	dtype := dtypes.DType(t.Int8(arrayDType, 0))
	if !dtype.IsSupported() {
		throwMalformed(t, "invalid dtype %d", dtype)
	}
	a := ArrayRef{
		Shape: shapes.Shape{DType: dtype, Dimensions: dims},
		Order: t.Uint8(arrayOrder, tensors.RowMajor),
		Data:  slices.Clone(t.Bytes(arrayData)),
	}
	if err := a.validate(); err != nil {
		throwMalformed(t, "%v", err)
	}
	return a
}

func decodeVariable(t flatbin.Table) *NamedVariable {
	v := &NamedVariable{Name: t.String(variableName)}
	arrays := t.Vector(variableArrays)
	for ii := range arrays.Len() {
		v.Arrays = append(v.Arrays, decodeArray(arrays.Table(ii)))
	}
	return v
}

func decodeSequenceItem(t flatbin.Table) *SequenceItem {
	item := &SequenceItem{Name: t.String(itemName)}
	variables := t.Vector(itemVariables)
	for ii := range variables.Len() {
		item.Variables = append(item.Variables, decodeVariable(variables.Table(ii)))
	}
	return item
}

func decodeHardwareState(t flatbin.Table) *HardwareState {
	return &HardwareState{
		PerDeviceMemory: t.Int64Vector(stateDeviceMemory),
		HostMemory:      t.Int64(stateHostMemory, 0),
		Timestamp:       t.Int64(stateTimestamp, 0),
	}
}

func decodeStrings(v flatbin.Vector) []string {
	if v.Len() == 0 {
		return nil
	}
	values := make([]string, v.Len())
	for ii := range values {
		values[ii] = v.String(ii)
	}
	return values
}

func decodeNode(t flatbin.Table) *Node {
	return &Node{
		ID:      t.Int32(nodeID, 0),
		Name:    t.String(nodeName),
		OpType:  ops.OpType(t.Int32(nodeOpType, 0)),
		OpNum:   t.Int64(nodeOpNum, 0),
		OpName:  t.String(nodeOpName),
		Inputs:  decodeStrings(t.Vector(nodeInputs)),
		Outputs: decodeStrings(t.Vector(nodeOutputs)),
		TArgs:   t.Float64Vector(nodeTArgs),
		IArgs:   t.Int64Vector(nodeIArgs),
		BArgs:   t.BoolVector(nodeBArgs),
	}
}
