package backends

import (
	"maps"
	"slices"

	"github.com/gomlx/ndgraph/pkg/core/dtypes"
	"github.com/gomlx/ndgraph/pkg/core/ops"
)

// Capabilities holds mappings of what is supported by a backend.
type Capabilities struct {
	// OpTypes (operation categories) supported by a backend.
	// If not listed, it's assumed to be false, hence not supported.
	OpTypes map[ops.OpType]bool

	// DTypes list the data types supported by a backend.
	// If not listed, it's assumed to be false, hence not supported.
	DTypes map[dtypes.DType]bool
}

// Clone makes a deep copy of the Capabilities.
func (c Capabilities) Clone() Capabilities {
	var c2 Capabilities
	c2.OpTypes = make(map[ops.OpType]bool, len(c.OpTypes))
	maps.Copy(c2.OpTypes, c.OpTypes)
	c2.DTypes = make(map[dtypes.DType]bool, len(c.DTypes))
	maps.Copy(c2.DTypes, c.DTypes)
	return c2
}

// SupportsOp returns whether the operation category is supported.
func (c Capabilities) SupportsOp(opType ops.OpType) bool {
	return c.OpTypes[opType]
}

// SupportsDType returns whether the dtype is supported.
func (c Capabilities) SupportsDType(dtype dtypes.DType) bool {
	return c.DTypes[dtype]
}

// Supports returns whether op can be executed: its category and the dtypes of its bound operands
// must be supported.
func (c Capabilities) Supports(op ops.Op) bool {
	if !c.SupportsOp(op.Type()) {
		return false
	}
	for _, operand := range []ops.Array{op.X(), op.Y(), op.Z()} {
		if operand != nil && !c.SupportsDType(operand.Shape().DType) {
			return false
		}
	}
	return true
}

// SortedOpTypes returns the supported operation categories, sorted.
func (c Capabilities) SortedOpTypes() []ops.OpType {
	var opTypes []ops.OpType
	for opType, supported := range c.OpTypes {
		if supported {
			opTypes = append(opTypes, opType)
		}
	}
	slices.Sort(opTypes)
	return opTypes
}

// SortedDTypes returns the supported dtypes, sorted.
func (c Capabilities) SortedDTypes() []dtypes.DType {
	var dtypesList []dtypes.DType
	for dtype, supported := range c.DTypes {
		if supported {
			dtypesList = append(dtypesList, dtype)
		}
	}
	slices.Sort(dtypesList)
	return dtypesList
}
