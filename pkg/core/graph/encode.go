// Copyright 2023-2026 The GoMLX Authors. SPDX-License-Identifier: Apache-2.0

package graph

import (
	"github.com/gomlx/exceptions"
	"github.com/gomlx/ndgraph/pkg/flatbin"
	"github.com/pkg/errors"
)

// Identifier of graph buffers.
const Identifier = "NDGR"

// Schema versions.
//
//   - 2: variables, sequence items and hardware states (device and host memory).
//   - 3: adds the session id, op nodes, the order of the entries and hardware states timestamps.
const (
	CurrentVersion      uint32 = 3
	MinSupportedVersion uint32 = 2
)

// Field slots of the tables of the schema.
const (
	graphVariables = iota
	graphSequenceItems
	graphHardwareStates
	graphSessionID  // v3
	graphNodes      // v3
	graphEntryOrder // v3: one byte per entry, entrySequenceItem or entryHardwareState.
	graphNumFields
)

const (
	arrayShape = iota
	arrayData
	arrayDType
	arrayOrder
	arrayNumFields
)

const (
	variableName = iota
	variableArrays
	variableNumFields
)

const (
	itemName = iota
	itemVariables
	itemNumFields
)

const (
	stateDeviceMemory = iota
	stateHostMemory
	stateTimestamp // v3
	stateNumFields
)

const (
	nodeID = iota
	nodeName
	nodeOpType
	nodeOpNum
	nodeOpName
	nodeInputs
	nodeOutputs
	nodeTArgs
	nodeIArgs
	nodeBArgs
	nodeNumFields
)

const (
	entrySequenceItem  byte = 0
	entryHardwareState byte = 1
)

// Serialize the graph in the CurrentVersion of the schema.
func (g *Graph) Serialize() ([]byte, error) {
	return g.SerializeVersion(CurrentVersion)
}

// SerializeVersion serializes the graph in the given version of the schema, to be read by older readers.
// Version 2 drops the session id, the nodes, the order of the entries (sequence items are read before the
// hardware states) and the timestamps.
func (g *Graph) SerializeVersion(version uint32) (buf []byte, err error) {
	if version < MinSupportedVersion || version > CurrentVersion {
		return nil, errors.Errorf("graph: can't serialize version %d, supported versions are %d to %d",
			version, MinSupportedVersion, CurrentVersion)
	}
	if err = g.validate(); err != nil {
		return nil, err
	}
	err = exceptions.TryCatch[error](func() {
		e := &encoder{b: flatbin.NewBuilder(Identifier, version, 1024), version: version}
		buf = e.b.Finish(e.graph(g))
	})
	if err != nil {
		return nil, errors.WithMessage(err, "graph: failed to serialize")
	}
	return buf, nil
}

func (g *Graph) validate() error {
	validateVariable := func(v *NamedVariable, where string) error {
		if v == nil {
			return errors.Errorf("graph: nil variable in %s", where)
		}
		for ii, array := range v.Arrays {
			if err := array.validate(); err != nil {
				return errors.WithMessagef(err, "graph: variable %q array #%d", v.Name, ii)
			}
		}
		return nil
	}
	for _, v := range g.variables {
		if err := validateVariable(v, "graph variables"); err != nil {
			return err
		}
	}
	for _, entry := range g.entries {
		if entry.SequenceItem == nil {
			if entry.HardwareState == nil {
				return errors.New("graph: empty entry")
			}
			continue
		}
		for _, v := range entry.SequenceItem.Variables {
			if err := validateVariable(v, "sequence item "+entry.SequenceItem.Name); err != nil {
				return err
			}
		}
	}
	for _, node := range g.nodes {
		if node == nil {
			return errors.New("graph: nil node")
		}
	}
	return nil
}

// encoder writes a Graph bottom-up: children are always created before the tables referencing them.
type encoder struct {
	b       *flatbin.Builder
	version uint32
}

func (e *encoder) tables(n int, fn func(ii int) flatbin.Offset) flatbin.Offset {
	if n == 0 {
		return 0
	}
	offsets := make([]flatbin.Offset, n)
	for ii := range offsets {
		offsets[ii] = fn(ii)
	}
	return e.b.CreateOffsetVector(offsets)
}

func (e *encoder) strings(values []string) flatbin.Offset {
	return e.tables(len(values), func(ii int) flatbin.Offset { return e.b.CreateString(values[ii]) })
}

func (e *encoder) graph(g *Graph) flatbin.Offset {
	variables := e.tables(len(g.variables), func(ii int) flatbin.Offset { return e.variable(g.variables[ii]) })
	items := g.SequenceItems()
	itemsVec := e.tables(len(items), func(ii int) flatbin.Offset { return e.sequenceItem(items[ii]) })
	states := g.HardwareStates()
	statesVec := e.tables(len(states), func(ii int) flatbin.Offset { return e.hardwareState(states[ii]) })

	var sessionID, nodes, order flatbin.Offset
	if e.version >= 3 {
		if g.SessionID != "" {
			sessionID = e.b.CreateString(g.SessionID)
		}
		nodes = e.tables(len(g.nodes), func(ii int) flatbin.Offset { return e.node(g.nodes[ii]) })
		if len(g.entries) > 0 {
			kinds := make([]byte, len(g.entries))
			for ii, entry := range g.entries {
				if entry.HardwareState != nil {
					kinds[ii] = entryHardwareState
				}
			}
			order = e.b.CreateByteVector(kinds)
		}
	}

	e.b.StartTable(graphNumFields)
	e.b.AddOffset(graphVariables, variables)
	e.b.AddOffset(graphSequenceItems, itemsVec)
	e.b.AddOffset(graphHardwareStates, statesVec)
	e.b.AddOffset(graphSessionID, sessionID)
	e.b.AddOffset(graphNodes, nodes)
	e.b.AddOffset(graphEntryOrder, order)
	return e.b.EndTable()
}

func (e *encoder) array(a ArrayRef) flatbin.Offset {
	dims := make([]int64, len(a.Shape.Dimensions))
	for ii, dim := range a.Shape.Dimensions {
		dims[ii] = int64(dim)
	}
	var shape, data flatbin.Offset
	if len(dims) > 0 {
		shape = flatbin.CreateScalarVector(e.b, dims)
	}
	if len(a.Data) > 0 {
		data = e.b.CreateByteVector(a.Data)
	}
	e.b.StartTable(arrayNumFields)
	e.b.AddOffset(arrayShape, shape)
	e.b.AddOffset(arrayData, data)
	e.b.AddInt8(arrayDType, int8(a.Shape.DType), 0)
	e.b.AddUint8(arrayOrder, a.Order, 'c')
	return e.b.EndTable()
}

func (e *encoder) variable(v *NamedVariable) flatbin.Offset {
	arrays := e.tables(len(v.Arrays), func(ii int) flatbin.Offset { return e.array(v.Arrays[ii]) })
	name := e.b.CreateString(v.Name)
	e.b.StartTable(variableNumFields)
	e.b.AddOffset(variableName, name)
	e.b.AddOffset(variableArrays, arrays)
	return e.b.EndTable()
}

func (e *encoder) sequenceItem(item *SequenceItem) flatbin.Offset {
	variables := e.tables(len(item.Variables), func(ii int) flatbin.Offset { return e.variable(item.Variables[ii]) })
	name := e.b.CreateString(item.Name)
	e.b.StartTable(itemNumFields)
	e.b.AddOffset(itemName, name)
	e.b.AddOffset(itemVariables, variables)
	return e.b.EndTable()
}

func (e *encoder) hardwareState(state *HardwareState) flatbin.Offset {
	var devices flatbin.Offset
	if state.PerDeviceMemory != nil {
		devices = flatbin.CreateScalarVector(e.b, state.PerDeviceMemory)
	}
	e.b.StartTable(stateNumFields)
	e.b.AddOffset(stateDeviceMemory, devices)
	e.b.AddInt64(stateHostMemory, state.HostMemory, 0)
	if e.version >= 3 {
		e.b.AddInt64(stateTimestamp, state.Timestamp, 0)
	}
	return e.b.EndTable()
}

func (e *encoder) node(n *Node) flatbin.Offset {
	name := e.b.CreateString(n.Name)
	opName := e.b.CreateString(n.OpName)
	inputs := e.strings(n.Inputs)
	outputs := e.strings(n.Outputs)
	var tArgs, iArgs, bArgs flatbin.Offset
	if len(n.TArgs) > 0 {
		tArgs = flatbin.CreateScalarVector(e.b, n.TArgs)
	}
	if len(n.IArgs) > 0 {
		iArgs = flatbin.CreateScalarVector(e.b, n.IArgs)
	}
	if len(n.BArgs) > 0 {
		bArgs = e.b.CreateBoolVector(n.BArgs)
	}
	e.b.StartTable(nodeNumFields)
	e.b.AddInt32(nodeID, n.ID, 0)
	e.b.AddOffset(nodeName, name)
	e.b.AddInt32(nodeOpType, int32(n.OpType), 0)
	e.b.AddInt64(nodeOpNum, n.OpNum, 0)
	e.b.AddOffset(nodeOpName, opName)
	e.b.AddOffset(nodeInputs, inputs)
	e.b.AddOffset(nodeOutputs, outputs)
	e.b.AddOffset(nodeTArgs, tArgs)
	e.b.AddOffset(nodeIArgs, iArgs)
	e.b.AddOffset(nodeBArgs, bArgs)
	return e.b.EndTable()
}
