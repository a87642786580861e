// Copyright 2023-2026 The GoMLX Authors. SPDX-License-Identifier: Apache-2.0

// Package flatbin implements a small offset-table binary format, in the spirit of FlatBuffers,
// with a hand-written Builder (writer) and Table/Vector (readers).
//
// Layout of a finished buffer, all little-endian:
//
//	[0:4]   uint32 absolute offset of the root table
//	[4:8]   4 bytes file identifier
//	[8:12]  uint32 schema version
//	[12:]   strings, vectors, vtables and tables, written front-to-back
//
// Objects are always written before the table that references them, so reference fields hold a
// backwards offset: the target is at (field position - stored value). A table starts with an int32
// pointing back to its vtable, which lists, per field slot, the field position relative to the
// table start, or 0 if the field is absent -- in which case readers return the field default.
//
// A Builder is meant to be used by one goroutine at a time. Readers over a finished buffer never
// write to it, and can be used concurrently.
package flatbin

import (
	"encoding/binary"
	"math"
	"slices"
	"unsafe"

	"github.com/gomlx/exceptions"
	"golang.org/x/exp/constraints"
)

const (
	// HeaderSize is the size of the fixed header: root offset, identifier and version.
	HeaderSize = 12

	// IdentifierSize is the size of the file identifier.
	IdentifierSize = 4

	vtableHeaderSize = 4
	soffsetSize      = 4
)

// Offset is the absolute position of an object (string, vector or table) in the buffer being built.
// The zero Offset means "no object": adding it to a table leaves the field absent.
type Offset uint32

// Scalar are the element types that can be stored in scalar vectors.
// Platform dependent types (int, uint) are not included.
type Scalar interface {
	constraints.Float | ~int8 | ~int16 | ~int32 | ~int64 | ~uint8 | ~uint16 | ~uint32 | ~uint64
}

// Builder builds a buffer front-to-back in a growable arena.
type Builder struct {
	buf        []byte
	identifier string
	version    uint32

	// vtables already written, indexed by their serialized contents, for deduplication.
	vtables map[string]Offset

	inTable       bool
	numFields     int
	fields        []pendingField
	forceDefaults bool
	finished      bool
}

// pendingField is a field added to the table being built, laid out in EndTable.
type pendingField struct {
	slot  int
	size  int
	bits  uint64
	ref   Offset
	isRef bool
}

// NewBuilder returns a Builder for buffers with the given 4-bytes identifier and schema version.
// initialSize is only a hint for the initial capacity of the arena.
func NewBuilder(identifier string, version uint32, initialSize int) *Builder {
	if len(identifier) != IdentifierSize {
		exceptions.Panicf("flatbin.NewBuilder: identifier must have %d bytes, got %q", IdentifierSize, identifier)
	}
	b := &Builder{
		identifier: identifier,
		version:    version,
	}
	b.reset(initialSize)
	return b
}

func (b *Builder) reset(initialSize int) {
	b.buf = make([]byte, HeaderSize, max(initialSize, 1024))
	b.vtables = make(map[string]Offset)
	b.inTable = false
	b.fields = b.fields[:0]
	b.finished = false
}

// Reset the builder, so it can be used to build a new buffer. Buffers previously returned by Finish
// are not affected.
func (b *Builder) Reset() {
	b.reset(cap(b.buf))
}

// Version returns the schema version that will be written in the header.
func (b *Builder) Version() uint32 { return b.version }

// ForceDefaults controls whether scalar fields equal to their default value are written.
// By default, they are omitted, and readers get the default back.
func (b *Builder) ForceDefaults(force bool) {
	b.forceDefaults = force
}

// Len returns the current size of the buffer being built.
func (b *Builder) Len() int { return len(b.buf) }

func (b *Builder) assertWritable(method string) {
	if b.finished {
		exceptions.Panicf("flatbin.Builder.%s: builder already finished, call Reset() first", method)
	}
}

func (b *Builder) assertNotInTable(method string) {
	b.assertWritable(method)
	if b.inTable {
		exceptions.Panicf("flatbin.Builder.%s: can't be called while building a table, objects must be created before StartTable", method)
	}
}

// pad appends zeros until the buffer length is aligned to the given size.
func (b *Builder) pad(alignment int) {
	for len(b.buf)%alignment != 0 {
		b.buf = append(b.buf, 0)
	}
}

// padForVector aligns the buffer so that the uint32 count is 4-aligned and the first element
// is aligned to elemSize.
func (b *Builder) padForVector(elemSize int) {
	if elemSize <= soffsetSize {
		b.pad(soffsetSize)
		return
	}
	for (len(b.buf)+soffsetSize)%elemSize != 0 {
		b.buf = append(b.buf, 0)
	}
}

// CreateString writes a string (length prefixed and NUL terminated) and returns its offset.
func (b *Builder) CreateString(s string) Offset {
	b.assertNotInTable("CreateString")
	b.pad(soffsetSize)
	pos := len(b.buf)
	b.buf = binary.LittleEndian.AppendUint32(b.buf, uint32(len(s)))
	b.buf = append(b.buf, s...)
	b.buf = append(b.buf, 0)
	return Offset(pos)
}

// CreateByteVector writes a vector of bytes and returns its offset.
func (b *Builder) CreateByteVector(data []byte) Offset {
	b.assertNotInTable("CreateByteVector")
	b.pad(soffsetSize)
	pos := len(b.buf)
	b.buf = binary.LittleEndian.AppendUint32(b.buf, uint32(len(data)))
	b.buf = append(b.buf, data...)
	return Offset(pos)
}

// CreateBoolVector writes a vector of booleans (one byte each) and returns its offset.
func (b *Builder) CreateBoolVector(values []bool) Offset {
	data := make([]byte, len(values))
	for ii, v := range values {
		if v {
			data[ii] = 1
		}
	}
	return b.CreateByteVector(data)
}

// CreateScalarVector writes a vector of scalars and returns its offset.
// The elements are aligned to their size.
func CreateScalarVector[T Scalar](b *Builder, values []T) Offset {
	b.assertNotInTable("CreateScalarVector")
	var zero T
	elemSize := int(unsafe.Sizeof(zero))
	b.padForVector(elemSize)
	pos := len(b.buf)
	b.buf = binary.LittleEndian.AppendUint32(b.buf, uint32(len(values)))
	for _, v := range values {
		b.buf = appendScalar(b.buf, v)
	}
	return Offset(pos)
}

func appendScalar[T Scalar](buf []byte, v T) []byte {
	switch x := any(v).(type) {
	case float32:
		return binary.LittleEndian.AppendUint32(buf, math.Float32bits(x))
	case float64:
		return binary.LittleEndian.AppendUint64(buf, math.Float64bits(x))
	}
	switch unsafe.Sizeof(v) {
	case 1:
		return append(buf, byte(v))
	case 2:
		return binary.LittleEndian.AppendUint16(buf, uint16(v))
	case 4:
		if isFloat[T]() {
			return binary.LittleEndian.AppendUint32(buf, math.Float32bits(float32(v)))
		}
		return binary.LittleEndian.AppendUint32(buf, uint32(v))
	default:
		if isFloat[T]() {
			return binary.LittleEndian.AppendUint64(buf, math.Float64bits(float64(v)))
		}
		return binary.LittleEndian.AppendUint64(buf, uint64(v))
	}
}

// isFloat returns whether T is a float type (including named types over float32/float64).
func isFloat[T Scalar]() bool {
	var v T = 1
	v /= 2
	return v != 0
}

// CreateOffsetVector writes a vector of references to previously created objects (typically tables),
// and returns its offset. Elements keep their order.
func (b *Builder) CreateOffsetVector(offsets []Offset) Offset {
	b.assertNotInTable("CreateOffsetVector")
	b.pad(soffsetSize)
	pos := len(b.buf)
	b.buf = binary.LittleEndian.AppendUint32(b.buf, uint32(len(offsets)))
	for ii, target := range offsets {
		slotPos := len(b.buf)
		if target == 0 || int(target) >= slotPos {
			exceptions.Panicf("flatbin.Builder.CreateOffsetVector: element %d has invalid offset %d (vector at %d)", ii, target, pos)
		}
		b.buf = binary.LittleEndian.AppendUint32(b.buf, uint32(slotPos-int(target)))
	}
	return Offset(pos)
}

// StartTable starts building a table with up to numFields field slots.
// All strings, vectors and sub-tables referenced by the table must have been created before.
func (b *Builder) StartTable(numFields int) {
	b.assertNotInTable("StartTable")
	if numFields < 0 || numFields > (math.MaxUint16-vtableHeaderSize)/2 {
		exceptions.Panicf("flatbin.Builder.StartTable: invalid number of fields %d", numFields)
	}
	b.inTable = true
	b.numFields = numFields
	b.fields = b.fields[:0]
}

func (b *Builder) addField(method string, field pendingField) {
	b.assertWritable(method)
	if !b.inTable {
		exceptions.Panicf("flatbin.Builder.%s: called outside of StartTable/EndTable", method)
	}
	if field.slot < 0 || field.slot >= b.numFields {
		exceptions.Panicf("flatbin.Builder.%s: slot %d out of range, table has %d fields", method, field.slot, b.numFields)
	}
	for _, f := range b.fields {
		if f.slot == field.slot {
			exceptions.Panicf("flatbin.Builder.%s: slot %d set twice", method, field.slot)
		}
	}
	b.fields = append(b.fields, field)
}

// AddBool adds a boolean field.
func (b *Builder) AddBool(slot int, value, defaultValue bool) {
	if value == defaultValue && !b.forceDefaults {
		return
	}
	var bits uint64
	if value {
		bits = 1
	}
	b.addField("AddBool", pendingField{slot: slot, size: 1, bits: bits})
}

// AddInt8 adds an int8 field.
func (b *Builder) AddInt8(slot int, value, defaultValue int8) {
	if value == defaultValue && !b.forceDefaults {
		return
	}
	b.addField("AddInt8", pendingField{slot: slot, size: 1, bits: uint64(uint8(value))})
}

// AddUint8 adds an uint8 field.
func (b *Builder) AddUint8(slot int, value, defaultValue uint8) {
	if value == defaultValue && !b.forceDefaults {
		return
	}
	b.addField("AddUint8", pendingField{slot: slot, size: 1, bits: uint64(value)})
}

// AddInt16 adds an int16 field.
func (b *Builder) AddInt16(slot int, value, defaultValue int16) {
	if value == defaultValue && !b.forceDefaults {
		return
	}
	b.addField("AddInt16", pendingField{slot: slot, size: 2, bits: uint64(uint16(value))})
}

// AddUint16 adds an uint16 field.
func (b *Builder) AddUint16(slot int, value, defaultValue uint16) {
	if value == defaultValue && !b.forceDefaults {
		return
	}
	b.addField("AddUint16", pendingField{slot: slot, size: 2, bits: uint64(value)})
}

// AddInt32 adds an int32 field.
func (b *Builder) AddInt32(slot int, value, defaultValue int32) {
	if value == defaultValue && !b.forceDefaults {
		return
	}
	b.addField("AddInt32", pendingField{slot: slot, size: 4, bits: uint64(uint32(value))})
}

// AddUint32 adds an uint32 field.
func (b *Builder) AddUint32(slot int, value, defaultValue uint32) {
	if value == defaultValue && !b.forceDefaults {
		return
	}
	b.addField("AddUint32", pendingField{slot: slot, size: 4, bits: uint64(value)})
}

// AddInt64 adds an int64 field.
func (b *Builder) AddInt64(slot int, value, defaultValue int64) {
	if value == defaultValue && !b.forceDefaults {
		return
	}
	b.addField("AddInt64", pendingField{slot: slot, size: 8, bits: uint64(value)})
}

// AddUint64 adds an uint64 field.
func (b *Builder) AddUint64(slot int, value, defaultValue uint64) {
	if value == defaultValue && !b.forceDefaults {
		return
	}
	b.addField("AddUint64", pendingField{slot: slot, size: 8, bits: value})
}

// AddFloat32 adds a float32 field.
func (b *Builder) AddFloat32(slot int, value, defaultValue float32) {
	if value == defaultValue && !b.forceDefaults {
		return
	}
	b.addField("AddFloat32", pendingField{slot: slot, size: 4, bits: uint64(math.Float32bits(value))})
}

// AddFloat64 adds a float64 field.
func (b *Builder) AddFloat64(slot int, value, defaultValue float64) {
	if value == defaultValue && !b.forceDefaults {
		return
	}
	b.addField("AddFloat64", pendingField{slot: slot, size: 8, bits: math.Float64bits(value)})
}

// AddOffset adds a reference to a string, vector or table. A zero offset leaves the field absent.
func (b *Builder) AddOffset(slot int, target Offset) {
	if target == 0 {
		return
	}
	b.addField("AddOffset", pendingField{slot: slot, size: 4, ref: target, isRef: true})
}

// EndTable lays out and writes the table (and its vtable, if not yet written) and returns its offset.
func (b *Builder) EndTable() Offset {
	b.assertWritable("EndTable")
	if !b.inTable {
		exceptions.Panicf("flatbin.Builder.EndTable: called without StartTable")
	}
	b.inTable = false

	// Layout: larger fields first, to minimize padding. Ties are broken by slot for determinism.
	fields := slices.Clone(b.fields)
	slices.SortStableFunc(fields, func(a, c pendingField) int {
		if a.size != c.size {
			return c.size - a.size
		}
		return a.slot - c.slot
	})
	relPositions := make([]int, len(fields))
	tableSize := soffsetSize
	tableAlign := soffsetSize
	numSlots := 0
	for ii, f := range fields {
		for tableSize%f.size != 0 {
			tableSize++
		}
		relPositions[ii] = tableSize
		tableSize += f.size
		tableAlign = max(tableAlign, f.size)
		numSlots = max(numSlots, f.slot+1)
	}
	if tableSize > math.MaxUint16 {
		exceptions.Panicf("flatbin.Builder.EndTable: table too large (%d bytes)", tableSize)
	}

	// Vtable: trailing absent slots are trimmed, readers treat them as absent anyway.
	vtable := make([]byte, vtableHeaderSize+2*numSlots)
	binary.LittleEndian.PutUint16(vtable[0:], uint16(len(vtable)))
	binary.LittleEndian.PutUint16(vtable[2:], uint16(tableSize))
	for ii, f := range fields {
		binary.LittleEndian.PutUint16(vtable[vtableHeaderSize+2*f.slot:], uint16(relPositions[ii]))
	}
	vtablePos, found := b.vtables[string(vtable)]
	if !found {
		b.pad(2)
		vtablePos = Offset(len(b.buf))
		b.buf = append(b.buf, vtable...)
		b.vtables[string(vtable)] = vtablePos
	}

	// Table.
	b.pad(tableAlign)
	tablePos := len(b.buf)
	b.buf = append(b.buf, make([]byte, tableSize)...)
	table := b.buf[tablePos:]
	binary.LittleEndian.PutUint32(table, uint32(int32(tablePos-int(vtablePos))))
	for ii, f := range fields {
		fieldBytes := table[relPositions[ii]:]
		if f.isRef {
			fieldPos := tablePos + relPositions[ii]
			if int(f.ref) >= fieldPos {
				exceptions.Panicf("flatbin.Builder.EndTable: slot %d references offset %d which was not written before the table", f.slot, f.ref)
			}
			binary.LittleEndian.PutUint32(fieldBytes, uint32(fieldPos-int(f.ref)))
			continue
		}
		switch f.size {
		case 1:
			fieldBytes[0] = byte(f.bits)
		case 2:
			binary.LittleEndian.PutUint16(fieldBytes, uint16(f.bits))
		case 4:
			binary.LittleEndian.PutUint32(fieldBytes, uint32(f.bits))
		case 8:
			binary.LittleEndian.PutUint64(fieldBytes, f.bits)
		}
	}
	b.fields = b.fields[:0]
	return Offset(tablePos)
}

// Finish writes the header pointing to the root table and returns the finished buffer.
// The builder can't be used again until Reset is called.
func (b *Builder) Finish(root Offset) []byte {
	b.assertNotInTable("Finish")
	if root < HeaderSize || int(root) >= len(b.buf) {
		exceptions.Panicf("flatbin.Builder.Finish: invalid root offset %d", root)
	}
	binary.LittleEndian.PutUint32(b.buf[0:], uint32(root))
	copy(b.buf[4:8], b.identifier)
	binary.LittleEndian.PutUint32(b.buf[8:], b.version)
	b.finished = true
	buf := b.buf
	b.buf = nil
	return buf
}
