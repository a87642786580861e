// Copyright 2023-2026 The GoMLX Authors. SPDX-License-Identifier: Apache-2.0

package shapes

import (
	"slices"

	"github.com/pkg/errors"
)

// ConformanceChecker validates that operands of an operation can be used together.
//
// It is consulted when binding operands of operations whose category requires elementwise
// conformance (pairwise and broadcast operations). Implementations are provided by the numeric
// kernel layer; the operation model never re-derives the rules.
type ConformanceChecker interface {
	// Elementwise returns an error if a and b can't be combined element by element.
	Elementwise(a, b Shape) error

	// Broadcast returns an error if operand can't be broadcast into target along the given
	// axes of target.
	Broadcast(target, operand Shape, axes []int) error
}

// DefaultConformance is a conservative ConformanceChecker: elementwise operands must have the
// same dtype and dimensions, and a broadcast operand must match the target's dimensions at the
// given axes.
var DefaultConformance ConformanceChecker = strictConformance{}

type strictConformance struct{}

// Elementwise implements ConformanceChecker.
func (strictConformance) Elementwise(a, b Shape) error {
	if a.DType != b.DType {
		return errors.Errorf("dtype mismatch: %s vs %s", a.DType, b.DType)
	}
	if !a.EqualDimensions(b) {
		return errors.Errorf("dimensions mismatch: %v vs %v", a.Dimensions, b.Dimensions)
	}
	return nil
}

// Broadcast implements ConformanceChecker.
func (strictConformance) Broadcast(target, operand Shape, axes []int) error {
	if target.DType != operand.DType {
		return errors.Errorf("dtype mismatch: %s vs %s", target.DType, operand.DType)
	}
	if len(axes) == 0 {
		// Without explicit axes, the operand must match the trailing axes of the target.
		if operand.Rank() > target.Rank() ||
			!slices.Equal(operand.Dimensions, target.Dimensions[target.Rank()-operand.Rank():]) {
			return errors.Errorf("operand %s can't be broadcast to %s", operand, target)
		}
		return nil
	}
	if operand.Rank() != len(axes) {
		return errors.Errorf("operand %s has rank %d, but %d broadcast axes were given", operand, operand.Rank(), len(axes))
	}
	for ii, axis := range axes {
		if axis < 0 {
			axis += target.Rank()
		}
		if axis < 0 || axis >= target.Rank() {
			return errors.Errorf("broadcast axis %d out of range for target %s", axes[ii], target)
		}
		if target.Dimensions[axis] != operand.Dimensions[ii] {
			return errors.Errorf("operand %s axis %d (dim %d) doesn't match target %s axis %d (dim %d)",
				operand, ii, operand.Dimensions[ii], target, axis, target.Dimensions[axis])
		}
	}
	return nil
}
