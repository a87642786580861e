// Copyright 2023-2026 The GoMLX Authors. SPDX-License-Identifier: Apache-2.0

// Package ops describes tensor operations independently of the backend that executes them.
//
// An operation has an identity (OpType, OpNum, OpName), up to three bound operands (x, y and the
// output z) and an ordered list of extra arguments. Every kind of operation can be converted to
// the canonical CustomOp form, the only form execution engines need to understand.
//
// Operations are meant to be reused: ClearArrays unbinds the operands, keeping the identity and the
// extra arguments. An operation instance must not be mutated concurrently.
package ops

import (
	"reflect"
	"slices"

	"github.com/gomlx/exceptions"
	"github.com/gomlx/ndgraph/pkg/core/dtypes"
	"github.com/gomlx/ndgraph/pkg/core/shapes"
)

// Array is an operand of an operation. Only its shape is consulted here: the memory belongs to
// the numeric kernel layer.
//
// *tensors.Tensor and shapes.Shape implement it.
type Array interface {
	Shape() shapes.Shape
}

// Op is implemented by every kind of operation.
type Op interface {
	// Type returns the category of the operation.
	Type() OpType

	// OpNum returns the number identifying the native kernel, within its OpType.
	OpNum() int

	// OpName returns the stable name of the operation, matching OpNum under a Registry.
	OpName() string

	// X returns the first input, or nil if not bound.
	X() Array
	// Y returns the second input, or nil if not bound.
	Y() Array
	// Z returns the output, or nil if not bound.
	Z() Array

	// SetX binds the first input; nil unbinds it.
	// It returns an *InvalidOperandError, and keeps the previous binding, if x doesn't conform to
	// the other bound operands.
	SetX(x Array) error
	// SetY binds the second input; nil unbinds it. See SetX.
	SetY(y Array) error
	// SetZ binds the output; nil unbinds it. See SetX.
	SetZ(z Array) error

	// SetConformance changes the checker used when binding operands. The default is
	// shapes.DefaultConformance.
	SetConformance(checker shapes.ConformanceChecker)

	// ExtraArgs returns a copy of the extra arguments.
	ExtraArgs() []any

	// SetExtraArgs replaces the extra arguments. See ExtraArgsDataBuff for the accepted types.
	SetExtraArgs(args []any) error

	// ExtraArgsDataBuff materializes the extra arguments in a buffer of the given dtype.
	ExtraArgsDataBuff(dtype dtypes.DType) (*ExtraArgsBuffer, error)

	// ExtraArgsBuff materializes the extra arguments in Float64 if x is Float64, Float32 otherwise.
	ExtraArgsBuff() (*ExtraArgsBuffer, error)

	// ToCustomOp returns the canonical form of the operation. It never fails, and doesn't change the operation.
	ToCustomOp() *CustomOp

	// ClearArrays unbinds x, y and z.
	ClearArrays()
}

// base implements the parts of Op common to every kind.
type base struct {
	opType      OpType
	num         int
	name        string
	x, y, z     Array
	extraArgs   []any
	conformance shapes.ConformanceChecker

	// dimensions are the axes of broadcast and reduce operations.
	dimensions []int
}

func newBase(opType OpType, name string, num int) base {
	if !opType.IsAOpType() || opType == OpTypeInvalid || opType == OpTypeLast {
		exceptions.Panicf("ops: invalid OpType %s for op %q", opType, name)
	}
	return base{
		opType:      opType,
		num:         num,
		name:        name,
		conformance: shapes.DefaultConformance,
	}
}

// Type implements Op.
func (b *base) Type() OpType { return b.opType }

// OpNum implements Op.
func (b *base) OpNum() int { return b.num }

// OpName implements Op.
func (b *base) OpName() string { return b.name }

// X implements Op.
func (b *base) X() Array { return b.x }

// Y implements Op.
func (b *base) Y() Array { return b.y }

// Z implements Op.
func (b *base) Z() Array { return b.z }

// SetX implements Op.
func (b *base) SetX(x Array) error { return b.bind(RoleX, x) }

// SetY implements Op.
func (b *base) SetY(y Array) error { return b.bind(RoleY, y) }

// SetZ implements Op.
func (b *base) SetZ(z Array) error { return b.bind(RoleZ, z) }

// SetConformance implements Op.
func (b *base) SetConformance(checker shapes.ConformanceChecker) {
	if checker == nil {
		checker = shapes.DefaultConformance
	}
	b.conformance = checker
}

// ClearArrays implements Op.
func (b *base) ClearArrays() {
	b.x, b.y, b.z = nil, nil, nil
}

func (b *base) operand(role Role) Array {
	switch role {
	case RoleX:
		return b.x
	case RoleY:
		return b.y
	default:
		return b.z
	}
}

func (b *base) setOperand(role Role, array Array) {
	switch role {
	case RoleX:
		b.x = array
	case RoleY:
		b.y = array
	default:
		b.z = array
	}
}

func (b *base) bind(role Role, array Array) error {
	if isNil(array) {
		b.setOperand(role, nil)
		return nil
	}
	if (role == RoleY && sameArray(array, b.x)) || (role == RoleX && sameArray(array, b.y)) {
		against := RoleX
		if role == RoleX {
			against = RoleY
		}
		return &InvalidOperandError{Op: b.name, Role: role, Shape: array.Shape(), Against: against, Cause: ErrAliasedOperand}
	}
	if b.opType.RequiresConformance() {
		shape := array.Shape()
		for _, other := range []Role{RoleX, RoleY, RoleZ} {
			if other == role {
				continue
			}
			otherArray := b.operand(other)
			if otherArray == nil {
				continue
			}
			if err := b.conform(role, shape, other, otherArray.Shape()); err != nil {
				return &InvalidOperandError{Op: b.name, Role: role, Shape: shape, Against: other, Cause: err}
			}
		}
	}
	b.setOperand(role, array)
	return nil
}

// conform checks the operand being bound (role, shape) against an already bound one.
func (b *base) conform(role Role, shape shapes.Shape, other Role, otherShape shapes.Shape) error {
	if b.opType.IsBoolOutput() {
		// The output of boolean ops only needs to conform in dimensions.
		if role == RoleZ {
			shape.DType = otherShape.DType
		} else if other == RoleZ {
			otherShape.DType = shape.DType
		}
	}
	if b.opType.IsBroadcast() {
		if role == RoleY {
			return b.conformance.Broadcast(otherShape, shape, b.dimensions)
		} else if other == RoleY {
			return b.conformance.Broadcast(shape, otherShape, b.dimensions)
		}
	}
	return b.conformance.Elementwise(otherShape, shape)
}

// isNil returns true for a nil interface or an interface holding a nil pointer.
func isNil(array Array) bool {
	if array == nil {
		return true
	}
	v := reflect.ValueOf(array)
	return v.Kind() == reflect.Pointer && v.IsNil()
}

// sameArray returns whether a and b are the same array. Arrays whose types are not comparable
// (e.g. shapes.Shape) are never the same.
func sameArray(a, b Array) bool {
	if a == nil || b == nil {
		return false
	}
	va, vb := reflect.ValueOf(a), reflect.ValueOf(b)
	if va.Type() != vb.Type() || !va.Comparable() {
		return false
	}
	return va.Equal(vb)
}

// ExtraArgs implements Op.
func (b *base) ExtraArgs() []any {
	return slices.Clone(b.extraArgs)
}

// SetExtraArgs implements Op.
func (b *base) SetExtraArgs(args []any) error {
	for ii, arg := range args {
		if err := validateExtraArg(arg); err != nil {
			return errorsWithIndex(b.name, ii, err)
		}
	}
	b.extraArgs = slices.Clone(args)
	return nil
}

// ExtraArgsDataBuff implements Op.
func (b *base) ExtraArgsDataBuff(dtype dtypes.DType) (*ExtraArgsBuffer, error) {
	return newExtraArgsBuffer(b.name, b.extraArgs, dtype)
}

// ExtraArgsBuff implements Op.
func (b *base) ExtraArgsBuff() (*ExtraArgsBuffer, error) {
	dtype := dtypes.Float32
	if b.x != nil && b.x.Shape().DType == dtypes.Float64 {
		dtype = dtypes.Float64
	}
	return b.ExtraArgsDataBuff(dtype)
}

// GenericOp is an operation of any category with no kind-specific state, for instance graph
// control-flow markers.
type GenericOp struct {
	base
}

// New returns a GenericOp. It panics if opType is not valid.
func New(opType OpType, name string, num int) *GenericOp {
	return &GenericOp{base: newBase(opType, name, num)}
}

// ToCustomOp implements Op.
func (o *GenericOp) ToCustomOp() *CustomOp { return ToCustom(o) }
