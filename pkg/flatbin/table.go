// Copyright 2023-2026 The GoMLX Authors. SPDX-License-Identifier: Apache-2.0

package flatbin

import (
	"encoding/binary"
	"fmt"
	"math"
	"unsafe"
)

// Header is the fixed header of a buffer.
type Header struct {
	// Root is the absolute offset of the root table.
	Root uint32

	// Identifier is the 4-bytes file identifier.
	Identifier string

	// Version of the schema used to write the buffer.
	Version uint32
}

// ReadHeader reads the header of buf, without validating the identifier or the version.
func ReadHeader(buf []byte) (Header, error) {
	if len(buf) < HeaderSize {
		return Header{}, &DecodeError{Kind: ErrTruncated, Offset: len(buf),
			Details: "buffer smaller than the header"}
	}
	return Header{
		Root:       binary.LittleEndian.Uint32(buf[0:]),
		Identifier: string(buf[4:8]),
		Version:    binary.LittleEndian.Uint32(buf[8:]),
	}, nil
}

// Open validates the header of buf and returns its root table.
//
// It fails with ErrInvalidIdentifier if the identifier doesn't match, with ErrUnsupportedVersion if the
// version is older than minVersion (newer versions are accepted: unknown fields are simply ignored),
// and with ErrTruncated/ErrOutOfBounds/ErrMalformed if the root table can't be located.
//
// The buffer is not copied, and must not be modified while the returned Table is in use.
func Open(buf []byte, identifier string, minVersion uint32) (root Table, header Header, err error) {
	header, err = ReadHeader(buf)
	if err != nil {
		return
	}
	if header.Identifier != identifier {
		err = &DecodeError{Kind: ErrInvalidIdentifier, Offset: 4,
			Details: fmt.Sprintf("expected %q, got %q", identifier, header.Identifier)}
		return
	}
	if header.Version < minVersion {
		err = &DecodeError{Kind: ErrUnsupportedVersion, Offset: 8,
			Details: fmt.Sprintf("version %d is older than the minimum supported %d", header.Version, minVersion)}
		return
	}
	err = Decode(func() {
		root = newTable(buf, int(header.Root))
	})
	return
}

// Table is a read-only view of a table in a buffer. Accessors are lazy: only the requested
// fields are read. Corrupt offsets cause accessors to panic with a *DecodeError, see Decode.
//
// Field accessors take the field slot and the default value returned when the field is absent.
type Table struct {
	buf       []byte
	pos       int
	vtable    int
	vtSize    int
	tableSize int
}

func u16(buf []byte, pos int) int {
	return int(binary.LittleEndian.Uint16(buf[pos:]))
}

func u32(buf []byte, pos int) int {
	return int(binary.LittleEndian.Uint32(buf[pos:]))
}

// checkRange panics with a *DecodeError if [pos, pos+size) is not within buf.
func checkRange(buf []byte, pos, size int, what string) {
	if pos < 0 || size < 0 {
		throwf(ErrOutOfBounds, pos, "negative position/size for %s", what)
	}
	if pos > len(buf) || size > len(buf)-pos {
		kind := ErrOutOfBounds
		if pos <= len(buf) {
			kind = ErrTruncated
		}
		throwf(kind, pos, "%s needs %d bytes, buffer has %d", what, size, len(buf))
	}
}

func newTable(buf []byte, pos int) Table {
	if pos < HeaderSize {
		throwf(ErrOutOfBounds, pos, "table offset points into the header")
	}
	checkRange(buf, pos, soffsetSize, "table")
	soffset := int(int32(binary.LittleEndian.Uint32(buf[pos:])))
	vtable := pos - soffset
	if soffset <= 0 || vtable < HeaderSize {
		throwf(ErrMalformed, pos, "invalid vtable offset %d", soffset)
	}
	checkRange(buf, vtable, vtableHeaderSize, "vtable")
	t := Table{
		buf:       buf,
		pos:       pos,
		vtable:    vtable,
		vtSize:    u16(buf, vtable),
		tableSize: u16(buf, vtable+2),
	}
	if t.vtSize < vtableHeaderSize || t.vtSize%2 != 0 {
		throwf(ErrMalformed, vtable, "invalid vtable size %d", t.vtSize)
	}
	if t.tableSize < soffsetSize {
		throwf(ErrMalformed, vtable, "invalid table size %d", t.tableSize)
	}
	checkRange(buf, vtable, t.vtSize, "vtable")
	checkRange(buf, pos, t.tableSize, "table")
	return t
}

// Offset returns the absolute position of the table in the buffer.
func (t Table) Offset() int { return t.pos }

// NumSlots returns the number of field slots recorded in the vtable. Slots beyond it are absent.
func (t Table) NumSlots() int {
	return (t.vtSize - vtableHeaderSize) / 2
}

// fieldPos returns the absolute position of the field in slot, or 0 if it is absent.
func (t Table) fieldPos(slot, size int) int {
	if slot < 0 {
		throwf(ErrOutOfBounds, t.pos, "negative slot %d", slot)
	}
	entry := vtableHeaderSize + 2*slot
	if entry+2 > t.vtSize {
		return 0
	}
	rel := u16(t.buf, t.vtable+entry)
	if rel == 0 {
		return 0
	}
	if rel < soffsetSize || rel+size > t.tableSize {
		throwf(ErrMalformed, t.vtable+entry, "field at slot %d (relative position %d, %d bytes) outside of table of %d bytes",
			slot, rel, size, t.tableSize)
	}
	return t.pos + rel
}

// HasField returns whether the field in slot is present.
func (t Table) HasField(slot int) bool {
	return t.fieldPos(slot, 0) != 0
}

// Bool reads a boolean field.
func (t Table) Bool(slot int, defaultValue bool) bool {
	pos := t.fieldPos(slot, 1)
	if pos == 0 {
		return defaultValue
	}
	return t.buf[pos] != 0
}

// Int8 reads an int8 field.
func (t Table) Int8(slot int, defaultValue int8) int8 {
	pos := t.fieldPos(slot, 1)
	if pos == 0 {
		return defaultValue
	}
	return int8(t.buf[pos])
}

// Uint8 reads an uint8 field.
func (t Table) Uint8(slot int, defaultValue uint8) uint8 {
	pos := t.fieldPos(slot, 1)
	if pos == 0 {
		return defaultValue
	}
	return t.buf[pos]
}

// Int16 reads an int16 field.
func (t Table) Int16(slot int, defaultValue int16) int16 {
	pos := t.fieldPos(slot, 2)
	if pos == 0 {
		return defaultValue
	}
	return int16(binary.LittleEndian.Uint16(t.buf[pos:]))
}

// Uint16 reads an uint16 field.
func (t Table) Uint16(slot int, defaultValue uint16) uint16 {
	pos := t.fieldPos(slot, 2)
	if pos == 0 {
		return defaultValue
	}
	return binary.LittleEndian.Uint16(t.buf[pos:])
}

// Int32 reads an int32 field.
func (t Table) Int32(slot int, defaultValue int32) int32 {
	pos := t.fieldPos(slot, 4)
	if pos == 0 {
		return defaultValue
	}
	return int32(binary.LittleEndian.Uint32(t.buf[pos:]))
}

// Uint32 reads an uint32 field.
func (t Table) Uint32(slot int, defaultValue uint32) uint32 {
	pos := t.fieldPos(slot, 4)
	if pos == 0 {
		return defaultValue
	}
	return binary.LittleEndian.Uint32(t.buf[pos:])
}

// Int64 reads an int64 field.
func (t Table) Int64(slot int, defaultValue int64) int64 {
	pos := t.fieldPos(slot, 8)
	if pos == 0 {
		return defaultValue
	}
	return int64(binary.LittleEndian.Uint64(t.buf[pos:]))
}

// Uint64 reads an uint64 field.
func (t Table) Uint64(slot int, defaultValue uint64) uint64 {
	pos := t.fieldPos(slot, 8)
	if pos == 0 {
		return defaultValue
	}
	return binary.LittleEndian.Uint64(t.buf[pos:])
}

// Float32 reads a float32 field.
func (t Table) Float32(slot int, defaultValue float32) float32 {
	pos := t.fieldPos(slot, 4)
	if pos == 0 {
		return defaultValue
	}
	return math.Float32frombits(binary.LittleEndian.Uint32(t.buf[pos:]))
}

// Float64 reads a float64 field.
func (t Table) Float64(slot int, defaultValue float64) float64 {
	pos := t.fieldPos(slot, 8)
	if pos == 0 {
		return defaultValue
	}
	return math.Float64frombits(binary.LittleEndian.Uint64(t.buf[pos:]))
}

// deref follows the backwards reference stored at pos.
func deref(buf []byte, pos int) int {
	checkRange(buf, pos, 4, "reference")
	stored := u32(buf, pos)
	if stored == 0 || stored > pos-HeaderSize {
		throwf(ErrMalformed, pos, "invalid reference %d", stored)
	}
	return pos - stored
}

// ref returns the absolute position of the object referenced by slot, or 0 if absent.
func (t Table) ref(slot int) int {
	pos := t.fieldPos(slot, 4)
	if pos == 0 {
		return 0
	}
	return deref(t.buf, pos)
}

func readString(buf []byte, pos int) string {
	return string(readBytes(buf, pos))
}

func readBytes(buf []byte, pos int) []byte {
	checkRange(buf, pos, 4, "length prefix")
	length := u32(buf, pos)
	checkRange(buf, pos+4, length, "string/bytes")
	return buf[pos+4 : pos+4+length]
}

// String reads a string field, returning "" if absent.
func (t Table) String(slot int) string {
	pos := t.ref(slot)
	if pos == 0 {
		return ""
	}
	return readString(t.buf, pos)
}

// Bytes reads a byte vector field, returning nil if absent.
// The returned slice points into the buffer and must not be modified.
func (t Table) Bytes(slot int) []byte {
	pos := t.ref(slot)
	if pos == 0 {
		return nil
	}
	return readBytes(t.buf, pos)
}

// Table reads a sub-table field.
func (t Table) Table(slot int) (Table, bool) {
	pos := t.ref(slot)
	if pos == 0 {
		return Table{}, false
	}
	return newTable(t.buf, pos), true
}

// Vector returns a lazy view of a vector of references (tables or strings).
// An absent field returns an empty vector.
func (t Table) Vector(slot int) Vector {
	return t.vector(slot, 4)
}

func (t Table) vector(slot, elemSize int) Vector {
	pos := t.ref(slot)
	if pos == 0 {
		return Vector{buf: t.buf}
	}
	checkRange(t.buf, pos, 4, "vector length")
	count := u32(t.buf, pos)
	if count > (len(t.buf)-pos-4)/elemSize {
		throwf(ErrTruncated, pos, "vector of %d elements of %d bytes doesn't fit the buffer", count, elemSize)
	}
	return Vector{buf: t.buf, start: pos + 4, count: count, elemSize: elemSize}
}

// ReadScalarVector reads and copies a scalar vector field. An absent field returns nil.
func ReadScalarVector[T Scalar](t Table, slot int) []T {
	var zero T
	v := t.vector(slot, int(unsafe.Sizeof(zero)))
	if v.count == 0 {
		if v.start == 0 {
			return nil
		}
		return []T{}
	}
	values := make([]T, v.count)
	for ii := range values {
		values[ii] = ScalarAt[T](v, ii)
	}
	return values
}

// ScalarVector returns a lazy view of a scalar vector field, whose elements are read with ScalarAt.
func ScalarVector[T Scalar](t Table, slot int) Vector {
	var zero T
	return t.vector(slot, int(unsafe.Sizeof(zero)))
}

// Vector is a read-only lazy view of a vector in a buffer.
type Vector struct {
	buf      []byte
	start    int
	count    int
	elemSize int
}

// Len returns the number of elements of the vector.
func (v Vector) Len() int { return v.count }

func (v Vector) elemPos(i int) int {
	if i < 0 || i >= v.count {
		throwf(ErrOutOfBounds, v.start, "vector index %d out of range [0, %d)", i, v.count)
	}
	return v.start + i*v.elemSize
}

// Table returns the i-th element of a vector of tables.
func (v Vector) Table(i int) Table {
	return newTable(v.buf, deref(v.buf, v.elemPos(i)))
}

// String returns the i-th element of a vector of strings.
func (v Vector) String(i int) string {
	return readString(v.buf, deref(v.buf, v.elemPos(i)))
}

// ScalarAt returns the i-th element of a scalar vector.
func ScalarAt[T Scalar](v Vector, i int) T {
	pos := v.elemPos(i)
	var zero T
	if int(unsafe.Sizeof(zero)) != v.elemSize {
		throwf(ErrMalformed, v.start, "vector has elements of %d bytes, requested %d", v.elemSize, unsafe.Sizeof(zero))
	}
	switch v.elemSize {
	case 1:
		return T(v.buf[pos])
	case 2:
		return T(binary.LittleEndian.Uint16(v.buf[pos:]))
	case 4:
		bits := binary.LittleEndian.Uint32(v.buf[pos:])
		if isFloat[T]() {
			return T(math.Float32frombits(bits))
		}
		return T(int32(bits))
	default:
		bits := binary.LittleEndian.Uint64(v.buf[pos:])
		if isFloat[T]() {
			return T(math.Float64frombits(bits))
		}
		return T(int64(bits))
	}
}

// Int64Vector reads and copies an int64 vector field.
func (t Table) Int64Vector(slot int) []int64 { return ReadScalarVector[int64](t, slot) }

// Float64Vector reads and copies a float64 vector field.
func (t Table) Float64Vector(slot int) []float64 { return ReadScalarVector[float64](t, slot) }

// BoolVector reads and copies a bool vector field (stored one byte per element).
func (t Table) BoolVector(slot int) []bool {
	data := t.Bytes(slot)
	if data == nil {
		return nil
	}
	values := make([]bool, len(data))
	for ii, b := range data {
		values[ii] = b != 0
	}
	return values
}

// Int64 returns the i-th element of an int64 vector.
func (v Vector) Int64(i int) int64 { return ScalarAt[int64](v, i) }

// Float64 returns the i-th element of a float64 vector.
func (v Vector) Float64(i int) float64 { return ScalarAt[float64](v, i) }

// Uint8 returns the i-th element of a byte vector.
func (v Vector) Uint8(i int) uint8 { return ScalarAt[uint8](v, i) }
