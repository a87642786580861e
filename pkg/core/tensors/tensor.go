/*
 *	Copyright 2023 Jan Pfeifer
 *
 *	Licensed under the Apache License, Version 2.0 (the "License");
 *	you may not use this file except in compliance with the License.
 *	You may obtain a copy of the License at
 *
 *	http://www.apache.org/licenses/LICENSE-2.0
 *
 *	Unless required by applicable law or agreed to in writing, software
 *	distributed under the License is distributed on an "AS IS" BASIS,
 *	WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
 *	See the License for the specific language governing permissions and
 *	limitations under the License.
 */

// Package tensors implements a host-memory `Tensor`: a shape plus its flat little-endian bytes.
//
// It is the concrete array used by the tools and tests of ndgraph: it can be bound as an operand to
// an operation (it implements shapes.HasShape), and it can be stored in a graph as an array
// reference. Actual numeric computation is done by the backends, not here.
//
// Constructors:
//
//   - FromShape(shape shapes.Shape): creates a tensor with the given shape, and zero values.
//   - FromFlatDataAndDimensions[T dtypes.Supported](data []T, dimensions ...int): creates a Tensor with the
//     given dimensions and the flattened values. Example:
//
//     t := FromFlatDataAndDimensions([]int8{1, 2, 3, 4}, 2, 2) // Tensor with [[1,2], [3,4]]
//
//   - FromBytes(shape, order, data): wraps raw little-endian bytes, e.g. decoded from a graph.
package tensors

import (
	"encoding/binary"
	"fmt"
	"strconv"

	"github.com/gomlx/exceptions"
	"github.com/gomlx/ndgraph/pkg/core/dtypes"
	"github.com/gomlx/ndgraph/pkg/core/shapes"
	"github.com/pkg/errors"
)

// Order of the elements in memory.
const (
	// RowMajor ("c" order): last axis varies fastest.
	RowMajor byte = 'c'

	// ColumnMajor ("f" order): first axis varies fastest.
	ColumnMajor byte = 'f'
)

// Tensor is a multidimensional array stored in host memory.
type Tensor struct {
	shape shapes.Shape
	order byte
	data  []byte
}

// FromShape returns a Tensor with the given shape, with the data initialized with zeros.
func FromShape(shape shapes.Shape) *Tensor {
	if !shape.Ok() {
		panic(errors.New("invalid shape"))
	}
	return &Tensor{
		shape: shape.Clone(),
		order: RowMajor,
		data:  make([]byte, shape.Memory()),
	}
}

// FromBytes creates a Tensor from raw little-endian data. It doesn't copy data.
func FromBytes(shape shapes.Shape, order byte, data []byte) (*Tensor, error) {
	if !shape.Ok() {
		return nil, errors.Errorf("tensors.FromBytes: invalid shape %s", shape)
	}
	if order != RowMajor && order != ColumnMajor {
		return nil, errors.Errorf("tensors.FromBytes: invalid order %q", order)
	}
	if uintptr(len(data)) != shape.Memory() {
		return nil, errors.Errorf("tensors.FromBytes: shape %s requires %d bytes, got %d",
			shape, shape.Memory(), len(data))
	}
	return &Tensor{shape: shape.Clone(), order: order, data: data}, nil
}

// FromFlatDataAndDimensions creates a row-major tensor with the given dimensions, filled with the
// flattened values given in `data`. The data is copied.
//
// It panics if the size of data doesn't match the dimensions.
func FromFlatDataAndDimensions[T dtypes.Supported](data []T, dimensions ...int) *Tensor {
	dtype := dtypes.FromGenericsType[T]()
	shape := shapes.Make(dtype, dimensions...)
	if len(data) != shape.Size() {
		exceptions.Panicf("FromFlatDataAndDimensions(%s): data has %d values, shape requires %d", shape, len(data), shape.Size())
	}
	var raw []byte
	switch flat := any(data).(type) {
	case []int:
		raw = make([]byte, 0, shape.Memory())
		for _, v := range flat {
			if strconv.IntSize == 32 {
				raw = binary.LittleEndian.AppendUint32(raw, uint32(int32(v)))
			} else {
				raw = binary.LittleEndian.AppendUint64(raw, uint64(int64(v)))
			}
		}
	default:
		var err error
		raw, err = binary.Append(make([]byte, 0, shape.Memory()), binary.LittleEndian, data)
		if err != nil {
			panic(errors.Wrapf(err, "FromFlatDataAndDimensions(%s)", shape))
		}
	}
	return &Tensor{shape: shape, order: RowMajor, data: raw}
}

// Shape of the tensor. It implements shapes.HasShape.
func (t *Tensor) Shape() shapes.Shape { return t.shape }

// DType of the tensor's elements.
func (t *Tensor) DType() dtypes.DType { return t.shape.DType }

// Size is the number of elements.
func (t *Tensor) Size() int { return t.shape.Size() }

// Order returns the memory order of the elements: RowMajor or ColumnMajor.
func (t *Tensor) Order() byte { return t.order }

// Bytes returns the underlying little-endian data. It is not a copy, and it should not be changed.
func (t *Tensor) Bytes() []byte { return t.data }

// Float64 returns the element at the flat index ii converted to float64.
// It panics for complex dtypes.
func (t *Tensor) Float64(ii int) float64 {
	size := t.shape.DType.Size()
	return dtypes.DecodeFloat(t.shape.DType, t.data[ii*size:(ii+1)*size])
}

// String implements fmt.Stringer. It doesn't print the values.
func (t *Tensor) String() string {
	return fmt.Sprintf("Tensor%s(order=%c, %d bytes)", t.shape, t.order, len(t.data))
}
