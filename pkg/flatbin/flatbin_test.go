// Copyright 2023-2026 The GoMLX Authors. SPDX-License-Identifier: Apache-2.0

package flatbin

import (
	"encoding/binary"
	"math"
	"testing"

	"github.com/pkg/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const testID = "TEST"

// buildSample builds a root table with a name, a scalar, a nested table and vectors:
//
//	slot 0: name string
//	slot 1: int64 counter
//	slot 2: float64 ratio
//	slot 3: child table {slot 0: int32 value}
//	slot 4: vector of child tables
//	slot 5: int64 scalar vector
//	slot 6: bool flag
func buildSample(t *testing.T) []byte {
	b := NewBuilder(testID, 3, 0)
	name := b.CreateString("epoch-1")
	children := make([]Offset, 3)
	for ii := range children {
		b.StartTable(1)
		b.AddInt32(0, int32(10*(ii+1)), 0)
		children[ii] = b.EndTable()
	}
	childrenVec := b.CreateOffsetVector(children)
	memory := CreateScalarVector(b, []int64{1024, 2048})
	b.StartTable(1)
	b.AddInt32(0, -7, 0)
	single := b.EndTable()

	b.StartTable(7)
	b.AddOffset(0, name)
	b.AddInt64(1, 4096, 0)
	b.AddFloat64(2, 0.25, 0)
	b.AddOffset(3, single)
	b.AddOffset(4, childrenVec)
	b.AddOffset(5, memory)
	b.AddBool(6, true, false)
	root := b.EndTable()
	buf := b.Finish(root)
	require.Greater(t, len(buf), HeaderSize)
	return buf
}

func TestRoundTrip(t *testing.T) {
	buf := buildSample(t)
	root, header, err := Open(buf, testID, 2)
	require.NoError(t, err)
	assert.Equal(t, testID, header.Identifier)
	assert.Equal(t, uint32(3), header.Version)

	err = Decode(func() {
		assert.Equal(t, "epoch-1", root.String(0))
		assert.Equal(t, int64(4096), root.Int64(1, 0))
		assert.Equal(t, 0.25, root.Float64(2, 0))
		assert.True(t, root.Bool(6, false))

		child, found := root.Table(3)
		require.True(t, found)
		assert.Equal(t, int32(-7), child.Int32(0, 0))

		vec := root.Vector(4)
		require.Equal(t, 3, vec.Len())
		for ii := range vec.Len() {
			assert.Equal(t, int32(10*(ii+1)), vec.Table(ii).Int32(0, 0))
		}

		assert.Equal(t, []int64{1024, 2048}, ReadScalarVector[int64](root, 5))
		lazy := ScalarVector[int64](root, 5)
		require.Equal(t, 2, lazy.Len())
		assert.Equal(t, int64(2048), ScalarAt[int64](lazy, 1))
	})
	require.NoError(t, err)
}

func TestAbsentFieldsReturnDefaults(t *testing.T) {
	b := NewBuilder(testID, 1, 0)
	b.StartTable(4)
	b.AddInt32(0, 5, 5) // Equal to default: omitted.
	b.AddFloat32(1, 1.5, 0)
	buf := b.Finish(b.EndTable())

	root, _, err := Open(buf, testID, 1)
	require.NoError(t, err)
	assert.False(t, root.HasField(0))
	assert.Equal(t, int32(5), root.Int32(0, 5))
	assert.Equal(t, float32(1.5), root.Float32(1, 0))

	// Slots beyond the vtable (e.g. fields added in a newer schema) are absent.
	assert.Equal(t, 2, root.NumSlots())
	assert.Equal(t, int64(-1), root.Int64(10, -1))
	assert.Equal(t, "", root.String(3))
	assert.Nil(t, root.Bytes(3))
	assert.Equal(t, 0, root.Vector(3).Len())
	assert.Nil(t, ReadScalarVector[float32](root, 3))
	_, found := root.Table(2)
	assert.False(t, found)
}

func TestForceDefaults(t *testing.T) {
	b := NewBuilder(testID, 1, 0)
	b.ForceDefaults(true)
	b.StartTable(1)
	b.AddInt32(0, 0, 0)
	buf := b.Finish(b.EndTable())
	root, _, err := Open(buf, testID, 1)
	require.NoError(t, err)
	assert.True(t, root.HasField(0))
}

func TestScalarTypes(t *testing.T) {
	b := NewBuilder(testID, 1, 0)
	f32 := CreateScalarVector(b, []float32{1.5, float32(math.Inf(-1))})
	u8 := CreateScalarVector(b, []uint8{1, 255})
	i16 := CreateScalarVector(b, []int16{-3, 300})
	bools := b.CreateBoolVector([]bool{true, false, true})
	raw := b.CreateByteVector([]byte{0xCA, 0xFE})
	b.StartTable(12)
	b.AddInt8(0, -8, 0)
	b.AddUint8(1, 200, 0)
	b.AddInt16(2, -1000, 0)
	b.AddUint16(3, 60000, 0)
	b.AddUint32(4, math.MaxUint32, 0)
	b.AddUint64(5, math.MaxUint64, 0)
	b.AddOffset(6, f32)
	b.AddOffset(7, u8)
	b.AddOffset(8, i16)
	b.AddOffset(9, bools)
	b.AddOffset(10, raw)
	b.AddInt64(11, math.MinInt64, 0)
	buf := b.Finish(b.EndTable())

	root, _, err := Open(buf, testID, 1)
	require.NoError(t, err)
	require.NoError(t, Decode(func() {
		assert.Equal(t, int8(-8), root.Int8(0, 0))
		assert.Equal(t, uint8(200), root.Uint8(1, 0))
		assert.Equal(t, int16(-1000), root.Int16(2, 0))
		assert.Equal(t, uint16(60000), root.Uint16(3, 0))
		assert.Equal(t, uint32(math.MaxUint32), root.Uint32(4, 0))
		assert.Equal(t, uint64(math.MaxUint64), root.Uint64(5, 0))
		assert.Equal(t, []float32{1.5, float32(math.Inf(-1))}, ReadScalarVector[float32](root, 6))
		assert.Equal(t, []uint8{1, 255}, ReadScalarVector[uint8](root, 7))
		assert.Equal(t, []int16{-3, 300}, ReadScalarVector[int16](root, 8))
		assert.Equal(t, []byte{1, 0, 1}, root.Bytes(9))
		assert.Equal(t, []byte{0xCA, 0xFE}, root.Bytes(10))
		assert.Equal(t, int64(math.MinInt64), root.Int64(11, 0))
	}))
}

func TestVtableSharedBetweenTables(t *testing.T) {
	b := NewBuilder(testID, 1, 0)
	var tables []Offset
	for ii := range 3 {
		b.StartTable(2)
		b.AddInt64(1, int64(ii+1), 0)
		tables = append(tables, b.EndTable())
	}
	vec := b.CreateOffsetVector(tables)
	b.StartTable(1)
	b.AddOffset(0, vec)
	buf := b.Finish(b.EndTable())

	root, _, err := Open(buf, testID, 1)
	require.NoError(t, err)
	v := root.Vector(0)
	require.Equal(t, 3, v.Len())
	first := v.Table(0)
	for ii := range 3 {
		table := v.Table(ii)
		assert.Equal(t, first.vtable, table.vtable, "table #%d should share the vtable", ii)
		assert.Equal(t, int64(ii+1), table.Int64(1, 0))
	}
}

func TestOpenErrors(t *testing.T) {
	buf := buildSample(t)

	_, _, err := Open(buf[:8], testID, 1)
	require.ErrorIs(t, err, ErrTruncated)

	_, _, err = Open(buf, "ABCD", 1)
	require.ErrorIs(t, err, ErrInvalidIdentifier)

	_, _, err = Open(buf, testID, 4)
	require.ErrorIs(t, err, ErrUnsupportedVersion)
	var decodeErr *DecodeError
	require.True(t, errors.As(err, &decodeErr))
	assert.Equal(t, 8, decodeErr.Offset)

	// Newer versions are accepted.
	_, header, err := Open(buf, testID, 1)
	require.NoError(t, err)
	assert.Equal(t, uint32(3), header.Version)

	// Root pointing outside the buffer.
	corrupt := append([]byte(nil), buf...)
	binary.LittleEndian.PutUint32(corrupt, uint32(len(buf)+100))
	_, _, err = Open(corrupt, testID, 1)
	require.ErrorIs(t, err, ErrOutOfBounds)

	// Root pointing into the header.
	binary.LittleEndian.PutUint32(corrupt, 4)
	_, _, err = Open(corrupt, testID, 1)
	require.ErrorIs(t, err, ErrOutOfBounds)
}

func TestTruncatedBuffer(t *testing.T) {
	buf := buildSample(t)
	root, _, err := Open(buf, testID, 1)
	require.NoError(t, err)

	// Cutting inside the root table fails already on Open.
	_, _, err = Open(buf[:root.Offset()+2], testID, 1)
	require.ErrorIs(t, err, ErrTruncated)
}

func TestCorruptReference(t *testing.T) {
	b := NewBuilder(testID, 1, 0)
	s := b.CreateString("hello")
	b.StartTable(1)
	b.AddOffset(0, s)
	root := b.EndTable()
	buf := b.Finish(root)

	table, _, err := Open(buf, testID, 1)
	require.NoError(t, err)
	fieldPos := table.fieldPos(0, 4)
	binary.LittleEndian.PutUint32(buf[fieldPos:], uint32(fieldPos+10))
	err = Decode(func() { _ = table.String(0) })
	require.ErrorIs(t, err, ErrMalformed)

	// String length larger than the buffer.
	binary.LittleEndian.PutUint32(buf[fieldPos:], uint32(fieldPos-int(s)))
	binary.LittleEndian.PutUint32(buf[s:], 1<<20)
	err = Decode(func() { _ = table.String(0) })
	require.ErrorIs(t, err, ErrTruncated)

	// Accessors outside Decode panic with *DecodeError.
	require.Panics(t, func() { _ = table.String(0) })
}

func TestVectorIndexOutOfRange(t *testing.T) {
	buf := buildSample(t)
	root, _, err := Open(buf, testID, 1)
	require.NoError(t, err)
	err = Decode(func() { _ = root.Vector(4).Table(3) })
	require.ErrorIs(t, err, ErrOutOfBounds)
	err = Decode(func() { _ = ScalarAt[int32](ScalarVector[int64](root, 5), 0) })
	require.ErrorIs(t, err, ErrMalformed)
}

func TestBuilderMisuse(t *testing.T) {
	require.Panics(t, func() { NewBuilder("TOO-LONG", 1, 0) })

	b := NewBuilder(testID, 1, 0)
	b.StartTable(1)
	require.Panics(t, func() { b.CreateString("x") }, "objects can't be created inside a table")
	require.Panics(t, func() { b.AddInt32(1, 1, 0) }, "slot out of range")
	b.AddInt32(0, 1, 0)
	require.Panics(t, func() { b.AddInt32(0, 2, 0) }, "slot set twice")
	root := b.EndTable()
	require.Panics(t, func() { b.EndTable() })

	_ = b.Finish(root)
	require.Panics(t, func() { b.CreateString("x") }, "builder finished")
	b.Reset()
	b.StartTable(0)
	buf := b.Finish(b.EndTable())
	table, _, err := Open(buf, testID, 1)
	require.NoError(t, err)
	assert.Equal(t, 0, table.NumSlots())
}
