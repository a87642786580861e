// Copyright 2023-2026 The GoMLX Authors. SPDX-License-Identifier: Apache-2.0

package ops

import (
	"math"
	"testing"

	"github.com/gomlx/ndgraph/pkg/core/dtypes"
	"github.com/gomlx/ndgraph/pkg/core/shapes"
	"github.com/gomlx/ndgraph/pkg/core/tensors"
	"github.com/pkg/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestOpType(t *testing.T) {
	assert.Equal(t, "Pairwise", OpTypePairwise.String())
	assert.Equal(t, "UDF", OpTypeUDF.String())
	assert.Equal(t, "OpType(100)", OpType(100).String())
	opType, err := OpTypeString("reducesame")
	require.NoError(t, err)
	assert.Equal(t, OpTypeReduceSame, opType)
	assert.Len(t, OpTypeValues(), 33) // 31 categories + Invalid + Last.

	assert.True(t, OpTypePairwiseBool.RequiresConformance())
	assert.True(t, OpTypeBroadcast.RequiresConformance())
	assert.False(t, OpTypeTransformSame.RequiresConformance())
	assert.True(t, OpTypeVariance.IsReduce())
	assert.True(t, OpTypeLoopCond.IsControlFlow())
	assert.True(t, OpTypeScalarBool.IsBoolOutput())
}

func TestPairwiseCanonicalForm(t *testing.T) {
	x := tensors.FromFlatDataAndDimensions([]float32{1, 2, 3, 4}, 4)
	y := tensors.FromFlatDataAndDimensions([]float32{5, 6, 7, 8}, 4)
	z := tensors.FromShape(shapes.Make(dtypes.Float32, 4))

	op := NewPairwiseOp(OpTypePairwise, "add", 0)
	require.NoError(t, op.SetX(x))
	require.NoError(t, op.SetY(y))
	require.NoError(t, op.SetZ(z))
	require.NoError(t, op.SetExtraArgs([]any{1.5, int32(2)}))

	custom := op.ToCustomOp()
	assert.Equal(t, "add", custom.Name)
	assert.Equal(t, OpTypePairwise, custom.Type)
	require.Len(t, custom.Inputs, 2)
	assert.Same(t, x, custom.Inputs[0])
	assert.Same(t, y, custom.Inputs[1])
	require.Len(t, custom.Outputs, 1)
	assert.Same(t, z, custom.Outputs[0])
	assert.Equal(t, []float64{1.5, 2}, custom.TArgs)

	// Canonicalization doesn't change the op.
	assert.Same(t, x, op.X())
	assert.Len(t, op.ExtraArgs(), 2)

	// Only the present operands are listed.
	require.NoError(t, op.SetX(nil))
	custom = op.ToCustomOp()
	require.Len(t, custom.Inputs, 1)
	assert.Same(t, y, custom.Inputs[0])
}

func TestClearArraysAndReuse(t *testing.T) {
	x := tensors.FromShape(shapes.Make(dtypes.Float64, 2, 2))
	op := NewTransformOp(OpTypeTransformSame, "abs", 0)
	require.NoError(t, op.SetExtraArgs([]any{3.0}))
	require.NoError(t, op.SetX(x))
	require.NoError(t, op.SetZ(x)) // z may alias x.
	op.ClearArrays()
	assert.Nil(t, op.X())
	assert.Nil(t, op.Y())
	assert.Nil(t, op.Z())
	assert.Equal(t, "abs", op.OpName())
	assert.Equal(t, 0, op.OpNum())
	assert.Equal(t, OpTypeTransformSame, op.Type())
	assert.Equal(t, []any{3.0}, op.ExtraArgs())

	custom := op.ToCustomOp()
	assert.Empty(t, custom.Inputs)
	assert.Empty(t, custom.Outputs)

	// Rebinding with a different shape is fine once cleared.
	require.NoError(t, op.SetX(tensors.FromShape(shapes.Make(dtypes.Float32, 7))))
}

func TestConformanceRejection(t *testing.T) {
	x := tensors.FromShape(shapes.Make(dtypes.Float32, 4))
	y := tensors.FromShape(shapes.Make(dtypes.Float32, 4))
	op := NewPairwiseOp(OpTypePairwise, "mul", 3)
	require.NoError(t, op.SetX(x))
	require.NoError(t, op.SetY(y))

	err := op.SetY(tensors.FromShape(shapes.Make(dtypes.Float32, 5)))
	require.Error(t, err)
	assert.True(t, errors.Is(err, ErrInvalidOperand))
	var invalid *InvalidOperandError
	require.True(t, errors.As(err, &invalid))
	assert.Equal(t, RoleY, invalid.Role)
	assert.Equal(t, RoleX, invalid.Against)
	assert.Same(t, y, op.Y(), "previous binding must be kept")

	err = op.SetZ(tensors.FromShape(shapes.Make(dtypes.Float64, 4)))
	require.ErrorIs(t, err, ErrInvalidOperand)
	assert.Nil(t, op.Z())

	// Aliasing x and y is rejected.
	err = op.SetY(x)
	require.ErrorIs(t, err, ErrAliasedOperand)
	assert.Same(t, y, op.Y())

	// Transform ops don't check conformance.
	transform := NewTransformOp(OpTypeTransformAny, "cast", 0)
	require.NoError(t, transform.SetX(x))
	require.NoError(t, transform.SetZ(tensors.FromShape(shapes.Make(dtypes.Int32, 2))))
}

func TestBoolOutputConformance(t *testing.T) {
	op := NewPairwiseOp(OpTypePairwiseBool, "equals", 0)
	require.NoError(t, op.SetX(shapes.Make(dtypes.Float32, 3)))
	require.NoError(t, op.SetY(shapes.Make(dtypes.Float32, 3)))
	require.NoError(t, op.SetZ(shapes.Make(dtypes.Bool, 3)))
	require.Error(t, op.SetZ(shapes.Make(dtypes.Bool, 4)))
}

func TestBroadcastConformance(t *testing.T) {
	op := NewBroadcastOp(OpTypeBroadcast, "add", 0, 1)
	require.NoError(t, op.SetX(shapes.Make(dtypes.Float32, 2, 3)))
	require.NoError(t, op.SetY(shapes.Make(dtypes.Float32, 3)))
	require.NoError(t, op.SetZ(shapes.Make(dtypes.Float32, 2, 3)))
	require.ErrorIs(t, op.SetY(shapes.Make(dtypes.Float32, 2)), ErrInvalidOperand)

	// Changing the axes is checked against the bound operands.
	require.Error(t, op.SetDimensions(0))
	assert.Equal(t, []int{1}, op.Dimensions())

	custom := op.ToCustomOp()
	assert.Equal(t, []int64{1}, custom.IArgs)
	assert.Len(t, custom.Inputs, 2)
}

type rejectAll struct{ calls int }

func (r *rejectAll) Elementwise(a, b shapes.Shape) error {
	r.calls++
	return errors.New("rejected")
}

func (r *rejectAll) Broadcast(target, operand shapes.Shape, axes []int) error {
	r.calls++
	return errors.New("rejected")
}

func TestCustomConformanceChecker(t *testing.T) {
	checker := &rejectAll{}
	op := NewPairwiseOp(OpTypePairwise, "sub", 4)
	op.SetConformance(checker)
	require.NoError(t, op.SetX(shapes.Make(dtypes.Float32, 3)))
	assert.Equal(t, 0, checker.calls, "nothing to check against")
	require.Error(t, op.SetY(shapes.Make(dtypes.Float32, 3)))
	assert.Equal(t, 1, checker.calls)
}

func TestKindsCanonicalForm(t *testing.T) {
	x := shapes.Make(dtypes.Float32, 2, 3)

	scalar := NewScalarOp(OpTypeScalar, "add", 0, 0.5)
	require.NoError(t, scalar.SetExtraArgs([]any{[]float64{1, 2}}))
	require.NoError(t, scalar.SetX(x))
	custom := scalar.ToCustomOp()
	assert.Equal(t, []float64{1, 2, 0.5}, custom.TArgs)
	assert.Len(t, custom.Inputs, 1)

	reduce := NewReduceOp(OpTypeReduceSame, "sum", 0, true, 0, 1)
	custom = reduce.ToCustomOp()
	assert.Equal(t, []int64{0, 1}, custom.IArgs)
	assert.Equal(t, []bool{true}, custom.BArgs)

	argmax := NewIndexReduceOp("argmax", 0, false, 1)
	custom = argmax.ToCustomOp()
	assert.Equal(t, OpTypeIndexReduce, custom.Type)
	assert.Equal(t, []int64{1}, custom.IArgs)
	assert.Equal(t, []bool{false}, custom.BArgs)

	random := NewRandomOp("uniform", 0, 42)
	assert.Equal(t, []int64{42}, random.ToCustomOp().IArgs)

	loop := New(OpTypeLoop, "while", 0)
	custom = loop.ToCustomOp()
	assert.Equal(t, "while", custom.Name)
	assert.Empty(t, custom.Inputs)

	clone := custom.Clone()
	clone.Name = "other"
	assert.Equal(t, "while", custom.Name)

	require.Panics(t, func() { NewPairwiseOp(OpTypeReduceSame, "sum", 0) })
	require.Panics(t, func() { New(OpTypeInvalid, "nothing", 0) })
}

func TestExtraArgs(t *testing.T) {
	op := NewScalarOp(OpTypeScalar, "pow", 8, 2)
	require.Error(t, op.SetExtraArgs([]any{"not a number"}))
	require.NoError(t, op.SetExtraArgs([]any{0.1, int64(300), true, uint8(7)}))

	args := op.ExtraArgs()
	args[0] = 1000.0
	assert.Equal(t, 0.1, op.ExtraArgs()[0], "ExtraArgs must return a copy")

	buf, err := op.ExtraArgsDataBuff(dtypes.Float64)
	require.NoError(t, err)
	assert.Equal(t, 4, buf.Len())
	assert.Equal(t, []float64{0.1, 300, 1, 7}, buf.Float64s())
	assert.Empty(t, buf.Warnings)

	buf, err = op.ExtraArgsDataBuff(dtypes.Float32)
	require.NoError(t, err)
	require.Len(t, buf.Warnings, 1)
	assert.Equal(t, 0, buf.Warnings[0].Index)
	assert.Equal(t, 0.1, buf.Warnings[0].Original)
	assert.Equal(t, float64(float32(0.1)), buf.Warnings[0].Converted)
	assert.Equal(t, dtypes.Float32, buf.Warnings[0].DType)

	// Integers truncate toward zero and saturate.
	buf, err = op.ExtraArgsDataBuff(dtypes.Int8)
	require.NoError(t, err)
	assert.Equal(t, []float64{0, 127, 1, 7}, buf.Float64s())
	require.Len(t, buf.Warnings, 2)
	assert.Equal(t, 0, buf.Warnings[0].Index)
	assert.Equal(t, 1, buf.Warnings[1].Index)
	assert.Equal(t, float64(127), buf.Warnings[1].Converted)

	// The same request is deterministic.
	again, err := op.ExtraArgsDataBuff(dtypes.Int8)
	require.NoError(t, err)
	assert.Equal(t, buf.Data, again.Data)

	_, err = op.ExtraArgsDataBuff(dtypes.Complex64)
	require.Error(t, err)
}

func TestExtraArgsBuffDType(t *testing.T) {
	op := NewTransformOp(OpTypeTransformFloat, "exp", 0)
	require.NoError(t, op.SetExtraArgs([]any{math.Pi}))
	buf, err := op.ExtraArgsBuff()
	require.NoError(t, err)
	assert.Equal(t, dtypes.Float32, buf.DType)

	require.NoError(t, op.SetX(shapes.Make(dtypes.Float64, 3)))
	buf, err = op.ExtraArgsBuff()
	require.NoError(t, err)
	assert.Equal(t, dtypes.Float64, buf.DType)
	assert.Equal(t, math.Pi, buf.Float64(0))
}

func TestRegistry(t *testing.T) {
	r := NewRegistry()
	require.NoError(t, r.Register(OpTypePairwise, "add", 0))
	require.NoError(t, r.Register(OpTypePairwise, "add", 0))
	require.Error(t, r.Register(OpTypePairwise, "add", 1))
	require.Error(t, r.Register(OpTypePairwise, "sub", 0))
	require.NoError(t, r.Register(OpTypeScalar, "add", 0), "names are per OpType")

	num, found := r.Lookup(OpTypePairwise, "add")
	assert.True(t, found)
	assert.Equal(t, 0, num)
	name, found := r.Name(OpTypePairwise, 0)
	assert.True(t, found)
	assert.Equal(t, "add", name)
	_, found = r.Name(OpTypePairwise, 10)
	assert.False(t, found)

	require.NoError(t, r.Validate(NewPairwiseOp(OpTypePairwise, "add", 0)))
	require.Error(t, r.Validate(NewPairwiseOp(OpTypePairwise, "add", 2)))
	require.Error(t, r.Validate(NewPairwiseOp(OpTypePairwise, "pow", 2)))
}

func TestDefaultRegistry(t *testing.T) {
	op, err := NewByName(DefaultRegistry, OpTypePairwise, "mul")
	require.NoError(t, err)
	require.IsType(t, &PairwiseOp{}, op)
	require.NoError(t, DefaultRegistry.Validate(op))

	op, err = NewByName(DefaultRegistry, OpTypeReduceSame, "sum")
	require.NoError(t, err)
	require.IsType(t, &ReduceOp{}, op)

	op, err = NewByName(DefaultRegistry, OpTypeIndexReduce, "argmax")
	require.NoError(t, err)
	require.IsType(t, &IndexReduceOp{}, op)

	_, err = NewByName(DefaultRegistry, OpTypePairwise, "unknown")
	require.Error(t, err)
	assert.Contains(t, DefaultRegistry.Names(OpTypeTransformSame), "cumsum")
}
