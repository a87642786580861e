// Copyright 2023-2026 The GoMLX Authors. SPDX-License-Identifier: Apache-2.0

package ops

// OpType is the category of an operation, which determines how the native kernel is dispatched
// and which operands it expects.
type OpType int

//go:generate go tool enumer -type=OpType -trimprefix=OpType -output=gen_optype_enumer.go optype.go

const (
	OpTypeInvalid OpType = iota
	OpTypeScalar
	OpTypeScalarBool
	OpTypeTransformSame
	OpTypeTransformFloat
	OpTypeTransformAny
	OpTypeTransformBool
	OpTypeTransformStrict
	OpTypePairwise
	OpTypePairwiseBool
	OpTypeSpecial
	OpTypeBroadcast
	OpTypeBroadcastBool
	OpTypeReduceLong
	OpTypeReduceSame
	OpTypeReduceFloat
	OpTypeReduceBool
	OpTypeIndexReduce
	OpTypeVariance
	OpTypeReduce3
	OpTypeGrid
	OpTypeMeta
	OpTypeCustom
	OpTypeGradient
	OpTypeConditional
	OpTypeLoop
	OpTypeLoopCond
	OpTypeReturn
	OpTypeRandom
	OpTypeSummaryStats
	OpTypeLogic
	OpTypeUDF

	// OpTypeLast should always be kept the last, it is used as a counter/marker for OpType.
	OpTypeLast
)

// IsScalar returns whether the op combines an array with a scalar operand.
func (t OpType) IsScalar() bool {
	return t == OpTypeScalar || t == OpTypeScalarBool
}

// IsTransform returns whether the op is an elementwise transformation of a single array.
func (t OpType) IsTransform() bool {
	return t >= OpTypeTransformSame && t <= OpTypeTransformStrict
}

// IsPairwise returns whether the op combines two arrays element by element.
func (t OpType) IsPairwise() bool {
	return t == OpTypePairwise || t == OpTypePairwiseBool
}

// IsBroadcast returns whether the op combines an array with another broadcast along some axes.
func (t OpType) IsBroadcast() bool {
	return t == OpTypeBroadcast || t == OpTypeBroadcastBool
}

// IsReduce returns whether the op reduces an array along some axes.
func (t OpType) IsReduce() bool {
	switch t {
	case OpTypeReduceLong, OpTypeReduceSame, OpTypeReduceFloat, OpTypeReduceBool, OpTypeVariance, OpTypeReduce3,
		OpTypeSummaryStats:
		return true
	}
	return false
}

// IsControlFlow returns whether the op is a graph control-flow marker, with no kernel of its own.
func (t OpType) IsControlFlow() bool {
	switch t {
	case OpTypeConditional, OpTypeLoop, OpTypeLoopCond, OpTypeReturn, OpTypeLogic:
		return true
	}
	return false
}

// IsBoolOutput returns whether the op outputs booleans, regardless of the dtype of its inputs.
func (t OpType) IsBoolOutput() bool {
	switch t {
	case OpTypeScalarBool, OpTypeTransformBool, OpTypePairwiseBool, OpTypeBroadcastBool, OpTypeReduceBool:
		return true
	}
	return false
}

// RequiresConformance returns whether operands must be checked for elementwise conformance when bound.
func (t OpType) RequiresConformance() bool {
	return t.IsPairwise() || t.IsBroadcast()
}
