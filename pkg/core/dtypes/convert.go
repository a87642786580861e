// Copyright 2023-2026 The GoMLX Authors. SPDX-License-Identifier: Apache-2.0

package dtypes

import (
	"encoding/binary"
	"math"

	"github.com/gomlx/ndgraph/pkg/core/dtypes/bfloat16"
	"github.com/x448/float16"
)

// Narrowing rules used by EncodeFloat, EncodeInt and EncodeUint. They are part of the contract of
// operation extra-arguments buffers, and must remain deterministic:
//
//   - Float to a narrower float: round to nearest-even (Float32, Float16); BFloat16 truncates the
//     lower mantissa bits of the float32 value. Out-of-range values become ±Inf.
//   - Float to integer: NaN becomes 0, otherwise truncate toward zero and saturate at the type's
//     minimum/maximum.
//   - Integer to a narrower integer (or signed to unsigned): saturate at the type's minimum/maximum.
//   - Integer to float: round to nearest-even.
//   - Anything to Bool: value != 0, stored as 1 or 0.
//
// All of them return whether the stored value represents the input exactly.

const (
	two63 = 9223372036854775808.0  // 2^63
	two64 = 18446744073709551616.0 // 2^64
)

// EncodeFloat stores v into dst (little-endian, dst must have at least dtype.Size() bytes) and
// reports whether the conversion was exact.
//
// It panics if dtype is not IsScalarEncodable.
func EncodeFloat(dtype DType, dst []byte, v float64) (exact bool) {
	switch dtype {
	case Float64:
		binary.LittleEndian.PutUint64(dst, math.Float64bits(v))
		return true
	case Float32:
		f := float32(v)
		binary.LittleEndian.PutUint32(dst, math.Float32bits(f))
		return sameFloat(float64(f), v)
	case Float16:
		f := float16.Fromfloat32(float32(v))
		binary.LittleEndian.PutUint16(dst, f.Bits())
		return sameFloat(float64(f.Float32()), v)
	case BFloat16:
		f := bfloat16.FromFloat64(v)
		binary.LittleEndian.PutUint16(dst, f.Bits())
		return sameFloat(f.Float64(), v)
	case Bool:
		putBool(dst, v != 0)
		return v == 0 || v == 1
	}
	if dtype.IsInt() {
		if math.IsNaN(v) {
			if dtype.IsUnsigned() {
				_, _ = putUint(dtype, dst, 0)
			} else {
				_, _ = putInt(dtype, dst, 0)
			}
			return false
		}
		t := math.Trunc(v)
		if dtype.IsUnsigned() {
			var u uint64
			clamped := false
			switch {
			case t < 0:
				clamped = true
			case t >= two64:
				u, clamped = math.MaxUint64, true
			default:
				u = uint64(t)
			}
			_, saturated := putUint(dtype, dst, u)
			return t == v && !clamped && !saturated
		}
		var i int64
		clamped := false
		switch {
		case t >= two63:
			i, clamped = math.MaxInt64, true
		case t < -two63:
			i, clamped = math.MinInt64, true
		default:
			i = int64(t)
		}
		_, saturated := putInt(dtype, dst, i)
		return t == v && !clamped && !saturated
	}
	panicf("dtypes.EncodeFloat: dtype %s cannot be used to encode scalar values", dtype)
	return false
}

// EncodeInt stores v into dst (little-endian, dst must have at least dtype.Size() bytes) and
// reports whether the conversion was exact.
//
// It panics if dtype is not IsScalarEncodable.
func EncodeInt(dtype DType, dst []byte, v int64) (exact bool) {
	switch {
	case dtype == Bool:
		putBool(dst, v != 0)
		return v == 0 || v == 1
	case dtype.IsFloat():
		EncodeFloat(dtype, dst, float64(v))
		return isExactInt(DecodeFloat(dtype, dst), v)
	case dtype.IsUnsigned():
		if v < 0 {
			_, _ = putUint(dtype, dst, 0)
			return false
		}
		_, saturated := putUint(dtype, dst, uint64(v))
		return !saturated
	case dtype.IsInt():
		_, saturated := putInt(dtype, dst, v)
		return !saturated
	}
	panicf("dtypes.EncodeInt: dtype %s cannot be used to encode scalar values", dtype)
	return false
}

// EncodeUint stores v into dst (little-endian, dst must have at least dtype.Size() bytes) and
// reports whether the conversion was exact.
//
// It panics if dtype is not IsScalarEncodable.
func EncodeUint(dtype DType, dst []byte, v uint64) (exact bool) {
	if v <= math.MaxInt64 {
		return EncodeInt(dtype, dst, int64(v))
	}
	switch {
	case dtype == Bool:
		putBool(dst, true)
		return false
	case dtype.IsFloat():
		EncodeFloat(dtype, dst, float64(v))
		stored := DecodeFloat(dtype, dst)
		return stored >= two63 && stored < two64 && uint64(stored) == v
	case dtype.IsUnsigned():
		_, saturated := putUint(dtype, dst, v)
		return !saturated
	case dtype.IsInt():
		putInt(dtype, dst, math.MaxInt64)
		return false
	}
	panicf("dtypes.EncodeUint: dtype %s cannot be used to encode scalar values", dtype)
	return false
}

// DecodeFloat reads a little-endian value of the given dtype from src, and returns it as a float64.
// Integer values beyond 2^53 lose precision.
//
// It panics if dtype is not IsScalarEncodable.
func DecodeFloat(dtype DType, src []byte) float64 {
	switch dtype {
	case Float64:
		return math.Float64frombits(binary.LittleEndian.Uint64(src))
	case Float32:
		return float64(math.Float32frombits(binary.LittleEndian.Uint32(src)))
	case Float16:
		return float64(float16.Frombits(binary.LittleEndian.Uint16(src)).Float32())
	case BFloat16:
		return bfloat16.FromBits(binary.LittleEndian.Uint16(src)).Float64()
	case Bool:
		if src[0] != 0 {
			return 1
		}
		return 0
	case Int8:
		return float64(int8(src[0]))
	case Int16:
		return float64(int16(binary.LittleEndian.Uint16(src)))
	case Int32:
		return float64(int32(binary.LittleEndian.Uint32(src)))
	case Int64:
		return float64(int64(binary.LittleEndian.Uint64(src)))
	case Uint8:
		return float64(src[0])
	case Uint16:
		return float64(binary.LittleEndian.Uint16(src))
	case Uint32:
		return float64(binary.LittleEndian.Uint32(src))
	case Uint64:
		return float64(binary.LittleEndian.Uint64(src))
	}
	panicf("dtypes.DecodeFloat: dtype %s cannot be used to decode scalar values", dtype)
	return 0
}

// sameFloat compares two floats, considering NaNs equal to each other.
func sameFloat(a, b float64) bool {
	if math.IsNaN(a) || math.IsNaN(b) {
		return math.IsNaN(a) && math.IsNaN(b)
	}
	return a == b
}

func isExactInt(stored float64, v int64) bool {
	return stored >= -two63 && stored < two63 && int64(stored) == v
}

func putBool(dst []byte, b bool) {
	if b {
		dst[0] = 1
	} else {
		dst[0] = 0
	}
}

// putInt saturates v to the range of the signed dtype, and returns the stored value.
func putInt(dtype DType, dst []byte, v int64) (stored int64, saturated bool) {
	var lo, hi int64
	switch dtype {
	case Int8:
		lo, hi = math.MinInt8, math.MaxInt8
	case Int16:
		lo, hi = math.MinInt16, math.MaxInt16
	case Int32:
		lo, hi = math.MinInt32, math.MaxInt32
	case Int64:
		lo, hi = math.MinInt64, math.MaxInt64
	default:
		panicf("dtypes: %s is not a signed integer type", dtype)
	}
	stored = min(max(v, lo), hi)
	saturated = stored != v
	switch dtype {
	case Int8:
		dst[0] = byte(int8(stored))
	case Int16:
		binary.LittleEndian.PutUint16(dst, uint16(int16(stored)))
	case Int32:
		binary.LittleEndian.PutUint32(dst, uint32(int32(stored)))
	case Int64:
		binary.LittleEndian.PutUint64(dst, uint64(stored))
	}
	return
}

// putUint saturates v to the range of the unsigned dtype, and returns the stored value.
func putUint(dtype DType, dst []byte, v uint64) (stored uint64, saturated bool) {
	var hi uint64
	switch dtype {
	case Uint8:
		hi = math.MaxUint8
	case Uint16:
		hi = math.MaxUint16
	case Uint32:
		hi = math.MaxUint32
	case Uint64:
		hi = math.MaxUint64
	default:
		panicf("dtypes: %s is not an unsigned integer type", dtype)
	}
	stored = min(v, hi)
	saturated = stored != v
	switch dtype {
	case Uint8:
		dst[0] = byte(stored)
	case Uint16:
		binary.LittleEndian.PutUint16(dst, uint16(stored))
	case Uint32:
		binary.LittleEndian.PutUint32(dst, uint32(stored))
	case Uint64:
		binary.LittleEndian.PutUint64(dst, stored)
	}
	return
}
