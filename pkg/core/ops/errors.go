// Copyright 2023-2026 The GoMLX Authors. SPDX-License-Identifier: Apache-2.0

package ops

import (
	"fmt"

	"github.com/gomlx/ndgraph/pkg/core/dtypes"
	"github.com/gomlx/ndgraph/pkg/core/shapes"
	"github.com/pkg/errors"
)

// Role of an operand of an operation.
type Role string

const (
	RoleX Role = "x"
	RoleY Role = "y"
	RoleZ Role = "z"
)

// ErrAliasedOperand is the cause of an InvalidOperandError when the same array is bound as both
// x and y of an operation.
var ErrAliasedOperand = errors.New("y can't be the same array as x")

// ErrInvalidOperand is matched by every *InvalidOperandError with errors.Is.
var ErrInvalidOperand = errors.New("invalid operand")

// InvalidOperandError is returned when binding an operand that doesn't conform to the operands
// already bound. The operation keeps its previous binding.
type InvalidOperandError struct {
	// Op is the name of the operation.
	Op string

	// Role of the operand being bound.
	Role Role

	// Shape of the operand being bound.
	Shape shapes.Shape

	// Against is the role of the already bound operand it conflicts with.
	Against Role

	// Cause is the error returned by the conformance checker, or ErrAliasedOperand.
	Cause error
}

// Error implements the error interface.
func (e *InvalidOperandError) Error() string {
	return fmt.Sprintf("op %q: invalid operand %s %s (against %s): %v", e.Op, e.Role, e.Shape, e.Against, e.Cause)
}

// Unwrap returns the cause.
func (e *InvalidOperandError) Unwrap() error { return e.Cause }

// Is makes errors.Is(err, ErrInvalidOperand) true.
func (e *InvalidOperandError) Is(target error) bool {
	return target == ErrInvalidOperand
}

// ArgumentTruncationWarning records an extra argument that couldn't be represented exactly
// in the requested dtype. It is informational, never an error.
type ArgumentTruncationWarning struct {
	// Index of the value in the flattened extra arguments.
	Index int

	// Original value and Converted, the value actually stored, both as float64.
	Original, Converted float64

	// DType requested.
	DType dtypes.DType
}

// String implements fmt.Stringer.
func (w ArgumentTruncationWarning) String() string {
	return fmt.Sprintf("extra argument #%d: %g stored as %g in %s", w.Index, w.Original, w.Converted, w.DType)
}
