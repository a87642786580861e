// Copyright 2023-2026 The GoMLX Authors. SPDX-License-Identifier: Apache-2.0

package ops

import (
	"fmt"
	"slices"
)

// CustomOp is the canonical form of an operation: named, with any number of inputs and outputs,
// and its arguments split by type.
type CustomOp struct {
	// Name of the operation, the OpName of the converted op.
	Name string

	// Type and Num of the converted op.
	Type OpType
	Num  int

	Inputs  []Array
	Outputs []Array

	// TArgs are the floating point arguments: the extra arguments, followed by the scalar operand
	// of scalar operations.
	TArgs []float64

	// IArgs are the integer arguments: the axes of reduce and broadcast operations, or the seed of
	// random operations.
	IArgs []int64

	// BArgs are the boolean arguments: whether reduce operations keep the reduced axes.
	BArgs []bool
}

// canonicalizer is implemented by the kinds that add kind-specific arguments to the canonical form.
type canonicalizer interface {
	canonicalArgs(c *CustomOp)
}

// ToCustom converts any operation to its canonical form:
//
//   - Inputs are the bound operands among x and y, in that order.
//   - Outputs is z, if bound.
//   - TArgs are the extra arguments (flattened, as float64) followed by kind-specific values.
//
// It never fails and doesn't modify op.
func ToCustom(op Op) *CustomOp {
	c := &CustomOp{
		Name: op.OpName(),
		Type: op.Type(),
		Num:  op.OpNum(),
	}
	for _, input := range []Array{op.X(), op.Y()} {
		if !isNil(input) {
			c.Inputs = append(c.Inputs, input)
		}
	}
	if z := op.Z(); !isNil(z) {
		c.Outputs = append(c.Outputs, z)
	}
	c.TArgs = canonicalTArgs(op.ExtraArgs())
	if k, ok := op.(canonicalizer); ok {
		k.canonicalArgs(c)
	}
	return c
}

// Clone returns a copy of the CustomOp. The arrays themselves are not copied.
func (c *CustomOp) Clone() *CustomOp {
	return &CustomOp{
		Name:    c.Name,
		Type:    c.Type,
		Num:     c.Num,
		Inputs:  slices.Clone(c.Inputs),
		Outputs: slices.Clone(c.Outputs),
		TArgs:   slices.Clone(c.TArgs),
		IArgs:   slices.Clone(c.IArgs),
		BArgs:   slices.Clone(c.BArgs),
	}
}

// String implements fmt.Stringer.
func (c *CustomOp) String() string {
	return fmt.Sprintf("%s(%s #%d, %d inputs, %d outputs, tArgs=%v, iArgs=%v, bArgs=%v)",
		c.Name, c.Type, c.Num, len(c.Inputs), len(c.Outputs), c.TArgs, c.IArgs, c.BArgs)
}
