// Copyright 2023-2026 The GoMLX Authors. SPDX-License-Identifier: Apache-2.0

package graph

import (
	"bytes"
	"encoding/binary"
	"io"
	"path/filepath"
	"testing"

	"github.com/gomlx/ndgraph/pkg/core/dtypes"
	"github.com/gomlx/ndgraph/pkg/core/ops"
	"github.com/gomlx/ndgraph/pkg/core/shapes"
	"github.com/gomlx/ndgraph/pkg/core/tensors"
	"github.com/gomlx/ndgraph/pkg/flatbin"
	"github.com/pkg/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func epochGraph() (g *Graph, loss, accuracy ArrayRef) {
	loss = ArrayFromTensor(tensors.FromFlatDataAndDimensions([]float32{0.25}, 1))
	accuracy = ArrayFromTensor(tensors.FromFlatDataAndDimensions([]float64{0.5, 0.75, 0.875}, 3))
	g = New()
	g.AddSequenceItem("epoch-1",
		&NamedVariable{Name: "loss", Arrays: []ArrayRef{loss}},
		&NamedVariable{Name: "accuracy", Arrays: []ArrayRef{accuracy}})
	g.AddHardwareSnapshot([]int64{1024, 2048}, 4096)
	return
}

func TestEpochRoundTrip(t *testing.T) {
	g, loss, accuracy := epochGraph()
	buf, err := g.Serialize()
	require.NoError(t, err)

	got, err := Deserialize(buf)
	require.NoError(t, err)
	assert.Equal(t, g.SessionID, got.SessionID)

	items := got.SequenceItems()
	require.Len(t, items, 1)
	assert.Equal(t, "epoch-1", items[0].Name)
	require.Len(t, items[0].Variables, 2)
	assert.Equal(t, "loss", items[0].Variables[0].Name)
	assert.Equal(t, []ArrayRef{loss}, items[0].Variables[0].Arrays)
	assert.Equal(t, "accuracy", items[0].Variables[1].Name)
	assert.Equal(t, []ArrayRef{accuracy}, items[0].Variables[1].Arrays)

	states := got.HardwareStates()
	require.Len(t, states, 1)
	assert.Equal(t, []int64{1024, 2048}, states[0].PerDeviceMemory)
	assert.Equal(t, int64(4096), states[0].HostMemory)
	assert.Equal(t, g.HardwareStates()[0].Timestamp, states[0].Timestamp)

	tensor, err := items[0].Variables[1].Arrays[0].Tensor()
	require.NoError(t, err)
	assert.Equal(t, 0.75, tensor.Float64(1))
}

func TestEntriesOrder(t *testing.T) {
	g := New()
	g.AddHardwareState(&HardwareState{HostMemory: 1})
	g.AddSequenceItem("step-1")
	g.AddHardwareState(&HardwareState{HostMemory: 2})

	buf, err := g.Serialize()
	require.NoError(t, err)
	got, err := Deserialize(buf)
	require.NoError(t, err)
	entries := got.Entries()
	require.Len(t, entries, 3)
	assert.Equal(t, int64(1), entries[0].HardwareState.HostMemory)
	assert.Equal(t, "step-1", entries[1].SequenceItem.Name)
	assert.Equal(t, int64(2), entries[2].HardwareState.HostMemory)

	// Version 2 doesn't record the order: sequence items come first.
	buf, err = g.SerializeVersion(2)
	require.NoError(t, err)
	got, err = Deserialize(buf)
	require.NoError(t, err)
	entries = got.Entries()
	require.Len(t, entries, 3)
	assert.Equal(t, "step-1", entries[0].SequenceItem.Name)
	assert.Equal(t, int64(1), entries[1].HardwareState.HostMemory)
	assert.Equal(t, int64(2), entries[2].HardwareState.HostMemory)
}

func TestOlderVersion(t *testing.T) {
	g, _, _ := epochGraph()
	g.AddVariable("w", ArrayFromTensor(tensors.FromFlatDataAndDimensions([]int32{1, 2, 3, 4}, 2, 2)))
	g.AddNode(ops.NewPairwiseOp(ops.OpTypePairwise, "add", 0), []string{"w", "w"}, []string{"w2"})

	buf, err := g.SerializeVersion(2)
	require.NoError(t, err)
	view, err := OpenView(buf)
	require.NoError(t, err)
	assert.Equal(t, uint32(2), view.Version())
	assert.Equal(t, "", view.SessionID())
	assert.Equal(t, 0, view.NumNodes())

	got, err := view.Graph()
	require.NoError(t, err)
	assert.Len(t, got.Variables(), 1)
	assert.Len(t, got.SequenceItems(), 1)
	require.Len(t, got.HardwareStates(), 1)
	assert.Equal(t, int64(0), got.HardwareStates()[0].Timestamp)
	assert.Equal(t, []int64{1024, 2048}, got.HardwareStates()[0].PerDeviceMemory)

	_, err = g.SerializeVersion(1)
	require.Error(t, err)
	_, err = g.SerializeVersion(CurrentVersion + 1)
	require.Error(t, err)
}

func TestUnsupportedBuffers(t *testing.T) {
	b := flatbin.NewBuilder(Identifier, 1, 64)
	b.StartTable(graphNumFields)
	_, err := Deserialize(b.Finish(b.EndTable()))
	require.Error(t, err)
	assert.True(t, errors.Is(err, flatbin.ErrUnsupportedVersion), "got %v", err)

	b = flatbin.NewBuilder("ABCD", CurrentVersion, 64)
	b.StartTable(graphNumFields)
	_, err = Deserialize(b.Finish(b.EndTable()))
	require.Error(t, err)
	assert.True(t, errors.Is(err, flatbin.ErrInvalidIdentifier), "got %v", err)

	_, err = Deserialize([]byte{1, 2, 3})
	require.Error(t, err)
	assert.True(t, errors.Is(err, flatbin.ErrTruncated), "got %v", err)

	// Newer versions are read, ignoring unknown fields.
	b = flatbin.NewBuilder(Identifier, CurrentVersion+1, 64)
	name := b.CreateString("future")
	b.StartTable(graphNumFields + 2)
	b.AddOffset(graphSessionID, name)
	b.AddInt64(graphNumFields+1, 7, 0)
	got, err := Deserialize(b.Finish(b.EndTable()))
	require.NoError(t, err)
	assert.Equal(t, "future", got.SessionID)
}

func TestMalformedArray(t *testing.T) {
	b := flatbin.NewBuilder(Identifier, CurrentVersion, 64)
	b.StartTable(arrayNumFields)
	b.AddInt8(arrayDType, 100, 0)
	array := b.EndTable()
	arrays := b.CreateOffsetVector([]flatbin.Offset{array})
	name := b.CreateString("x")
	b.StartTable(variableNumFields)
	b.AddOffset(variableName, name)
	b.AddOffset(variableArrays, arrays)
	variables := b.CreateOffsetVector([]flatbin.Offset{b.EndTable()})
	b.StartTable(graphNumFields)
	b.AddOffset(graphVariables, variables)
	buf := b.Finish(b.EndTable())

	view, err := OpenView(buf)
	require.NoError(t, err)
	require.Equal(t, 1, view.NumVariables())
	_, err = view.Variable(0)
	require.Error(t, err)
	assert.True(t, errors.Is(err, flatbin.ErrMalformed), "got %v", err)

	_, err = view.Variable(1)
	require.Error(t, err)
	assert.True(t, errors.Is(err, flatbin.ErrOutOfBounds), "got %v", err)
}

func TestCorruptedBuffer(t *testing.T) {
	g, _, _ := epochGraph()
	buf, err := g.Serialize()
	require.NoError(t, err)

	// Point the root past the end of the buffer.
	corrupt := bytes.Clone(buf)
	binary.LittleEndian.PutUint32(corrupt, uint32(len(buf)+100))
	_, err = Deserialize(corrupt)
	require.Error(t, err)

	// Truncations must never panic.
	for cut := 0; cut < len(buf); cut += 7 {
		require.NotPanics(t, func() { _, _ = Deserialize(buf[:cut]) })
	}
}

func TestLazyView(t *testing.T) {
	g, _, accuracy := epochGraph()
	g.AddHardwareSnapshot([]int64{1}, 2)
	buf, err := g.Serialize()
	require.NoError(t, err)

	view, err := OpenView(buf)
	require.NoError(t, err)
	assert.Equal(t, CurrentVersion, view.Version())
	assert.Equal(t, g.SessionID, view.SessionID())
	assert.Equal(t, 1, view.NumSequenceItems())
	assert.Equal(t, 2, view.NumHardwareStates())

	item, err := view.SequenceItem(0)
	require.NoError(t, err)
	assert.Equal(t, accuracy, item.Variables[1].Arrays[0])
	state, err := view.HardwareState(1)
	require.NoError(t, err)
	assert.Equal(t, []int64{1}, state.PerDeviceMemory)
	assert.Equal(t, int64(2), state.HostMemory)
}

func TestVariables(t *testing.T) {
	g := New()
	scalar := ArrayRef{Shape: shapes.Scalar(dtypes.Int64), Order: tensors.RowMajor}
	g.AddVariable("x", scalar)
	g.AddVariable("y")
	g.AddVariable("x", scalar, ArrayFromTensor(tensors.FromFlatDataAndDimensions([]uint8{1, 2}, 2)))

	v, found := g.Variable("x")
	require.True(t, found)
	assert.Len(t, v.Arrays, 2)
	_, found = g.Variable("z")
	assert.False(t, found)

	buf, err := g.Serialize()
	require.NoError(t, err)
	got, err := Deserialize(buf)
	require.NoError(t, err)
	require.Len(t, got.Variables(), 3)
	v, found = got.Variable("x")
	require.True(t, found)
	require.Len(t, v.Arrays, 2)
	assert.Equal(t, scalar.Shape, v.Arrays[0].Shape)
	assert.Empty(t, v.Arrays[0].Data)
	assert.Equal(t, []byte{1, 2}, v.Arrays[1].Data)
	y, _ := got.Variable("y")
	assert.Empty(t, y.Arrays)
}

func TestValidation(t *testing.T) {
	g := New()
	g.AddVariable("bad", ArrayRef{Shape: shapes.Make(dtypes.Float32, 2), Order: tensors.RowMajor, Data: []byte{1}})
	_, err := g.Serialize()
	require.Error(t, err)

	g = New()
	g.AddVariable("bad", ArrayRef{Shape: shapes.Make(dtypes.Float32, 2), Order: 'x'})
	_, err = g.Serialize()
	require.Error(t, err)

	g = New()
	g.AddSequenceItem("item", nil)
	_, err = g.Serialize()
	require.Error(t, err)
}

func TestNodes(t *testing.T) {
	g := New()
	sum := ops.NewReduceOp(ops.OpTypeReduceSame, "sum", 0, true, 1)
	g.AddNode(sum, []string{"x"}, []string{"y"})
	g.AddNode(ops.NewScalarOp(ops.OpTypeScalar, "add", 0, 2.5), []string{"y"}, []string{"z"})

	buf, err := g.Serialize()
	require.NoError(t, err)
	got, err := Deserialize(buf)
	require.NoError(t, err)
	nodes := got.Nodes()
	require.Len(t, nodes, 2)

	assert.Equal(t, int32(1), nodes[0].ID)
	assert.Equal(t, "sum_1", nodes[0].Name)
	assert.Equal(t, ops.OpTypeReduceSame, nodes[0].OpType)
	assert.Equal(t, "sum", nodes[0].OpName)
	assert.Equal(t, []string{"x"}, nodes[0].Inputs)
	assert.Equal(t, []string{"y"}, nodes[0].Outputs)
	assert.Equal(t, []int64{1}, nodes[0].IArgs)
	assert.Equal(t, []bool{true}, nodes[0].BArgs)

	assert.Equal(t, "add_2", nodes[1].Name)
	assert.Equal(t, ops.OpTypeScalar, nodes[1].OpType)
	assert.Equal(t, []float64{2.5}, nodes[1].TArgs)
	assert.Empty(t, nodes[1].BArgs)
}

func TestFrames(t *testing.T) {
	g1, _, _ := epochGraph()
	g2 := New()
	g2.AddSequenceItem("epoch-2")

	var buf bytes.Buffer
	require.NoError(t, WriteFrame(&buf, g1))
	require.NoError(t, WriteFrame(&buf, g2))
	full := bytes.Clone(buf.Bytes())

	got, err := ReadFrame(&buf)
	require.NoError(t, err)
	assert.Equal(t, g1.SessionID, got.SessionID)
	got, err = ReadFrame(&buf)
	require.NoError(t, err)
	assert.Equal(t, g2.SessionID, got.SessionID)
	_, err = ReadFrame(&buf)
	assert.Equal(t, io.EOF, err)

	view, err := ReadFrameView(bytes.NewReader(full))
	require.NoError(t, err)
	assert.Equal(t, CurrentVersion, view.Version())
	assert.Equal(t, int(binary.LittleEndian.Uint32(full)), view.Size())

	// Partial frame.
	r := bytes.NewReader(full[:len(full)-1])
	_, err = ReadFrame(r)
	require.NoError(t, err)
	_, err = ReadFrame(r)
	require.Error(t, err)
	assert.True(t, errors.Is(err, io.ErrUnexpectedEOF), "got %v", err)
}

func TestFiles(t *testing.T) {
	path := filepath.Join(t.TempDir(), "run.ndgraph")
	g1, _, _ := epochGraph()
	g2 := New()
	require.NoError(t, SaveFile(path, g1, g2))

	g3 := New()
	g3.AddHardwareSnapshot(nil, 10)
	require.NoError(t, AppendFile(path, g3))

	graphs, err := LoadFile(path)
	require.NoError(t, err)
	require.Len(t, graphs, 3)
	assert.Equal(t, g1.SessionID, graphs[0].SessionID)
	assert.Equal(t, g2.SessionID, graphs[1].SessionID)
	assert.Equal(t, g3.SessionID, graphs[2].SessionID)
	assert.Len(t, graphs[0].SequenceItems(), 1)

	// Overwrites.
	require.NoError(t, SaveFile(path, g2))
	graphs, err = LoadFile(path)
	require.NoError(t, err)
	require.Len(t, graphs, 1)

	_, err = LoadFile(filepath.Join(t.TempDir(), "missing"))
	require.Error(t, err)
}
