// Copyright 2023-2026 The GoMLX Authors. SPDX-License-Identifier: Apache-2.0

package tensors

import (
	"testing"

	"github.com/gomlx/ndgraph/pkg/core/dtypes"
	"github.com/gomlx/ndgraph/pkg/core/shapes"
	"github.com/stretchr/testify/require"
)

func TestFromFlatDataAndDimensions(t *testing.T) {
	tensor := FromFlatDataAndDimensions([]float32{1, 2, 3, 4, 5, 6}, 2, 3)
	require.Equal(t, shapes.Make(dtypes.Float32, 2, 3), tensor.Shape())
	require.Len(t, tensor.Bytes(), 24)
	require.Equal(t, RowMajor, tensor.Order())
	require.Equal(t, 5.0, tensor.Float64(4))

	ints := FromFlatDataAndDimensions([]int{7, -1}, 2)
	require.Equal(t, -1.0, ints.Float64(1))

	require.Panics(t, func() { FromFlatDataAndDimensions([]int8{1, 2, 3}, 2, 2) })
}

func TestFromBytes(t *testing.T) {
	shape := shapes.Make(dtypes.Int16, 3)
	tensor, err := FromBytes(shape, ColumnMajor, []byte{1, 0, 2, 0, 0xFF, 0xFF})
	require.NoError(t, err)
	require.Equal(t, -1.0, tensor.Float64(2))
	require.Equal(t, ColumnMajor, tensor.Order())

	_, err = FromBytes(shape, RowMajor, []byte{1, 2})
	require.Error(t, err)
	_, err = FromBytes(shape, 'x', make([]byte, 6))
	require.Error(t, err)
	_, err = FromBytes(shapes.Invalid(), RowMajor, nil)
	require.Error(t, err)

	zeros := FromShape(shape)
	require.Len(t, zeros.Bytes(), 6)
}
