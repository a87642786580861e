// Copyright 2023-2026 The GoMLX Authors. SPDX-License-Identifier: Apache-2.0

package ops

import (
	"slices"

	"github.com/gomlx/exceptions"
	"github.com/pkg/errors"
)

// assertKind panics if opType is not accepted by the kind being constructed.
func assertKind(kind string, opType OpType, accepted bool) {
	if !accepted {
		exceptions.Panicf("ops.New%s: OpType %s is not a %s operation", kind, opType, kind)
	}
}

func axesToInt64(axes []int) []int64 {
	if len(axes) == 0 {
		return nil
	}
	values := make([]int64, len(axes))
	for ii, axis := range axes {
		values[ii] = int64(axis)
	}
	return values
}

// ScalarOp combines the array x with a scalar operand.
type ScalarOp struct {
	base
	Scalar float64
}

// NewScalarOp returns a scalar operation. opType must be OpTypeScalar or OpTypeScalarBool.
func NewScalarOp(opType OpType, name string, num int, scalar float64) *ScalarOp {
	assertKind("ScalarOp", opType, opType.IsScalar())
	return &ScalarOp{base: newBase(opType, name, num), Scalar: scalar}
}

// ToCustomOp implements Op.
func (o *ScalarOp) ToCustomOp() *CustomOp { return ToCustom(o) }

func (o *ScalarOp) canonicalArgs(c *CustomOp) {
	c.TArgs = append(c.TArgs, o.Scalar)
}

// TransformOp is an elementwise transformation of x.
type TransformOp struct {
	base
}

// NewTransformOp returns a transform operation. opType must be one of the OpTypeTransform* types.
func NewTransformOp(opType OpType, name string, num int) *TransformOp {
	assertKind("TransformOp", opType, opType.IsTransform())
	return &TransformOp{base: newBase(opType, name, num)}
}

// ToCustomOp implements Op.
func (o *TransformOp) ToCustomOp() *CustomOp { return ToCustom(o) }

// PairwiseOp combines x and y element by element. Operands are checked for conformance when bound.
type PairwiseOp struct {
	base
}

// NewPairwiseOp returns a pairwise operation. opType must be OpTypePairwise or OpTypePairwiseBool.
func NewPairwiseOp(opType OpType, name string, num int) *PairwiseOp {
	assertKind("PairwiseOp", opType, opType.IsPairwise())
	return &PairwiseOp{base: newBase(opType, name, num)}
}

// ToCustomOp implements Op.
func (o *PairwiseOp) ToCustomOp() *CustomOp { return ToCustom(o) }

// BroadcastOp combines x with y broadcast along the given dimensions (axes) of x.
type BroadcastOp struct {
	base
}

// NewBroadcastOp returns a broadcast operation. opType must be OpTypeBroadcast or OpTypeBroadcastBool.
// If no dimensions are given, y is broadcast along the trailing axes of x.
func NewBroadcastOp(opType OpType, name string, num int, dimensions ...int) *BroadcastOp {
	assertKind("BroadcastOp", opType, opType.IsBroadcast())
	o := &BroadcastOp{base: newBase(opType, name, num)}
	o.dimensions = slices.Clone(dimensions)
	return o
}

// Dimensions returns the axes of x along which y is broadcast.
func (o *BroadcastOp) Dimensions() []int { return slices.Clone(o.dimensions) }

// SetDimensions changes the broadcast axes. It fails, keeping the previous ones, if the bound
// operands don't conform with the new axes.
func (o *BroadcastOp) SetDimensions(dimensions ...int) error {
	previous := o.dimensions
	o.dimensions = slices.Clone(dimensions)
	if o.x != nil && o.y != nil {
		if err := o.conform(RoleY, o.y.Shape(), RoleX, o.x.Shape()); err != nil {
			o.dimensions = previous
			return errors.WithMessagef(err, "op %q: broadcast dimensions %v", o.name, dimensions)
		}
	}
	return nil
}

// ToCustomOp implements Op.
func (o *BroadcastOp) ToCustomOp() *CustomOp { return ToCustom(o) }

func (o *BroadcastOp) canonicalArgs(c *CustomOp) {
	c.IArgs = append(c.IArgs, axesToInt64(o.dimensions)...)
}

// ReduceOp reduces x along the given dimensions (axes), or all of them if none is given.
type ReduceOp struct {
	base

	// KeepDims keeps the reduced axes in the output, with dimension 1.
	KeepDims bool
}

// NewReduceOp returns a reduce operation. opType must be one of the reduce types (see OpType.IsReduce).
func NewReduceOp(opType OpType, name string, num int, keepDims bool, dimensions ...int) *ReduceOp {
	assertKind("ReduceOp", opType, opType.IsReduce())
	o := &ReduceOp{base: newBase(opType, name, num), KeepDims: keepDims}
	o.dimensions = slices.Clone(dimensions)
	return o
}

// Dimensions returns the reduced axes.
func (o *ReduceOp) Dimensions() []int { return slices.Clone(o.dimensions) }

// SetDimensions changes the reduced axes.
func (o *ReduceOp) SetDimensions(dimensions ...int) { o.dimensions = slices.Clone(dimensions) }

// ToCustomOp implements Op.
func (o *ReduceOp) ToCustomOp() *CustomOp { return ToCustom(o) }

func (o *ReduceOp) canonicalArgs(c *CustomOp) {
	c.IArgs = append(c.IArgs, axesToInt64(o.dimensions)...)
	c.BArgs = append(c.BArgs, o.KeepDims)
}

// IndexReduceOp reduces x to the index of the selected element (e.g. argmax) along the given axes.
type IndexReduceOp struct {
	ReduceOp
}

// NewIndexReduceOp returns an index reduce operation.
func NewIndexReduceOp(name string, num int, keepDims bool, dimensions ...int) *IndexReduceOp {
	o := &IndexReduceOp{}
	o.base = newBase(OpTypeIndexReduce, name, num)
	o.KeepDims = keepDims
	o.dimensions = slices.Clone(dimensions)
	return o
}

// ToCustomOp implements Op.
func (o *IndexReduceOp) ToCustomOp() *CustomOp { return ToCustom(o) }

// RandomOp fills z with random values, optionally using x (and y) as distribution parameters.
type RandomOp struct {
	base

	// Seed of the random number generator, 0 means the backend chooses one.
	Seed int64
}

// NewRandomOp returns a random operation.
func NewRandomOp(name string, num int, seed int64) *RandomOp {
	return &RandomOp{base: newBase(OpTypeRandom, name, num), Seed: seed}
}

// ToCustomOp implements Op.
func (o *RandomOp) ToCustomOp() *CustomOp { return ToCustom(o) }

func (o *RandomOp) canonicalArgs(c *CustomOp) {
	if o.Seed != 0 {
		c.IArgs = append(c.IArgs, o.Seed)
	}
}

// Compile-time checks.
var (
	_ Op = (*GenericOp)(nil)
	_ Op = (*ScalarOp)(nil)
	_ Op = (*TransformOp)(nil)
	_ Op = (*PairwiseOp)(nil)
	_ Op = (*BroadcastOp)(nil)
	_ Op = (*ReduceOp)(nil)
	_ Op = (*IndexReduceOp)(nil)
	_ Op = (*RandomOp)(nil)
)
