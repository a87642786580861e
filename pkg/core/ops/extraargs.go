// Copyright 2023-2026 The GoMLX Authors. SPDX-License-Identifier: Apache-2.0

package ops

import (
	"github.com/gomlx/ndgraph/pkg/core/dtypes"
	"github.com/gomlx/ndgraph/pkg/core/dtypes/bfloat16"
	"github.com/pkg/errors"
	"github.com/x448/float16"
	"k8s.io/klog/v2"
)

// ExtraArgsBuffer holds the extra arguments of an operation converted to one dtype, as the
// native kernels take them.
type ExtraArgsBuffer struct {
	DType dtypes.DType

	// Data holds the values in little-endian, DType.Size() bytes each.
	Data []byte

	// Warnings lists the values that could not be represented exactly in DType.
	Warnings []ArgumentTruncationWarning
}

// Len returns the number of values in the buffer.
func (b *ExtraArgsBuffer) Len() int {
	return len(b.Data) / b.DType.Size()
}

// Float64 returns the i-th value converted to float64.
func (b *ExtraArgsBuffer) Float64(i int) float64 {
	size := b.DType.Size()
	return dtypes.DecodeFloat(b.DType, b.Data[i*size:])
}

// Float64s returns all values converted to float64.
func (b *ExtraArgsBuffer) Float64s() []float64 {
	values := make([]float64, b.Len())
	for ii := range values {
		values[ii] = b.Float64(ii)
	}
	return values
}

type argKind int

const (
	argFloat argKind = iota
	argInt
	argUint
)

// scalarArg is one flattened extra argument, kept in the widest representation of its kind.
type scalarArg struct {
	kind argKind
	f    float64
	i    int64
	u    uint64
}

func (a scalarArg) float() float64 {
	switch a.kind {
	case argInt:
		return float64(a.i)
	case argUint:
		return float64(a.u)
	default:
		return a.f
	}
}

func floatArg(v float64) scalarArg { return scalarArg{kind: argFloat, f: v} }
func intArg(v int64) scalarArg     { return scalarArg{kind: argInt, i: v} }
func uintArg(v uint64) scalarArg   { return scalarArg{kind: argUint, u: v} }

func boolArg(v bool) scalarArg {
	if v {
		return intArg(1)
	}
	return intArg(0)
}

// flattenArg appends the scalar values of arg to values. It returns false if the type of arg is not accepted.
func flattenArg(values []scalarArg, arg any) ([]scalarArg, bool) {
	switch v := arg.(type) {
	case float64:
		return append(values, floatArg(v)), true
	case float32:
		return append(values, floatArg(float64(v))), true
	case float16.Float16:
		return append(values, floatArg(float64(v.Float32()))), true
	case bfloat16.BFloat16:
		return append(values, floatArg(v.Float64())), true
	case int:
		return append(values, intArg(int64(v))), true
	case int8:
		return append(values, intArg(int64(v))), true
	case int16:
		return append(values, intArg(int64(v))), true
	case int32:
		return append(values, intArg(int64(v))), true
	case int64:
		return append(values, intArg(v)), true
	case uint:
		return append(values, uintArg(uint64(v))), true
	case uint8:
		return append(values, uintArg(uint64(v))), true
	case uint16:
		return append(values, uintArg(uint64(v))), true
	case uint32:
		return append(values, uintArg(uint64(v))), true
	case uint64:
		return append(values, uintArg(v)), true
	case bool:
		return append(values, boolArg(v)), true
	case []float64:
		return flattenSlice(values, v)
	case []float32:
		return flattenSlice(values, v)
	case []float16.Float16:
		return flattenSlice(values, v)
	case []bfloat16.BFloat16:
		return flattenSlice(values, v)
	case []int:
		return flattenSlice(values, v)
	case []int8:
		return flattenSlice(values, v)
	case []int16:
		return flattenSlice(values, v)
	case []int32:
		return flattenSlice(values, v)
	case []int64:
		return flattenSlice(values, v)
	case []uint8:
		return flattenSlice(values, v)
	case []uint16:
		return flattenSlice(values, v)
	case []uint32:
		return flattenSlice(values, v)
	case []uint64:
		return flattenSlice(values, v)
	case []bool:
		return flattenSlice(values, v)
	}
	return values, false
}

func flattenSlice[T any](values []scalarArg, slice []T) ([]scalarArg, bool) {
	for _, v := range slice {
		values, _ = flattenArg(values, v)
	}
	return values, true
}

func validateExtraArg(arg any) error {
	if _, ok := flattenArg(nil, arg); !ok {
		return errors.Errorf("unsupported extra argument type %T", arg)
	}
	return nil
}

func errorsWithIndex(opName string, index int, err error) error {
	return errors.WithMessagef(err, "op %q: extra argument #%d", opName, index)
}

func flattenArgs(args []any) []scalarArg {
	values := make([]scalarArg, 0, len(args))
	for _, arg := range args {
		values, _ = flattenArg(values, arg)
	}
	return values
}

// newExtraArgsBuffer converts args to dtype following the narrowing rules of dtypes.EncodeFloat,
// dtypes.EncodeInt and dtypes.EncodeUint. Inexact conversions are reported as warnings.
func newExtraArgsBuffer(opName string, args []any, dtype dtypes.DType) (*ExtraArgsBuffer, error) {
	if !dtype.IsScalarEncodable() {
		return nil, errors.Errorf("op %q: extra arguments can't be materialized as dtype %s", opName, dtype)
	}
	values := flattenArgs(args)
	size := dtype.Size()
	buf := &ExtraArgsBuffer{
		DType: dtype,
		Data:  make([]byte, len(values)*size),
	}
	for ii, value := range values {
		dst := buf.Data[ii*size:]
		var exact bool
		switch value.kind {
		case argFloat:
			exact = dtypes.EncodeFloat(dtype, dst, value.f)
		case argInt:
			exact = dtypes.EncodeInt(dtype, dst, value.i)
		case argUint:
			exact = dtypes.EncodeUint(dtype, dst, value.u)
		}
		if exact {
			continue
		}
		warning := ArgumentTruncationWarning{
			Index:     ii,
			Original:  value.float(),
			Converted: dtypes.DecodeFloat(dtype, dst),
			DType:     dtype,
		}
		buf.Warnings = append(buf.Warnings, warning)
		klog.V(1).Infof("op %q: %s", opName, warning)
	}
	return buf, nil
}

// canonicalTArgs converts the extra arguments to the float64 TArgs of the canonical form.
// Integers beyond 2^53 lose precision.
func canonicalTArgs(args []any) []float64 {
	values := flattenArgs(args)
	if len(values) == 0 {
		return nil
	}
	tArgs := make([]float64, len(values))
	for ii, v := range values {
		tArgs[ii] = v.float()
	}
	return tArgs
}
