// Copyright 2025 mmaplan Authors
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//     http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

package mmacore

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ajroetker/mmaplan/mma"
)

func baseRequest() Request {
	return Request{
		Tiles: mma.TileHierarchy{
			Block:       mma.GemmShape{M: 128, N: 128, K: 32},
			Warp:        mma.GemmShape{M: 64, N: 64, K: 32},
			Instruction: mma.GemmShape{M: 16, N: 8, K: 16},
		},
		A:                 mma.OperandDescriptor{Element: mma.S8, Layout: mma.RowMajor, Alignment: 16},
		B:                 mma.OperandDescriptor{Element: mma.F16, Layout: mma.ColumnMajor, Alignment: 4},
		AccumulatorLayout: mma.RowMajor,
		Profile:           mma.Profile{Arch: mma.SM80, OperatorClass: mma.TensorOp},
		Stages:            3,
		UnitClass:         mma.TensorOp,
		CacheA:            mma.CacheGlobal,
		CacheB:            mma.CacheAlways,
	}
}

func TestDefaultProvideMixedInput(t *testing.T) {
	core, err := Default.Provide(baseRequest())
	require.NoError(t, err)

	assert.Equal(t, mma.GemmShape{M: 2, N: 2, K: 1}, core.WarpCount)
	assert.Equal(t, 128, core.Threads)
	assert.Equal(t, mma.GemmShape{M: 16, N: 8, K: 16}, core.ComputeUnitShape())
	assert.Equal(t, mma.F16, core.ComputeElement)
	assert.Equal(t, mma.F32, core.ElementAccumulator)
	assert.Equal(t, mma.MultiplyAddMixedInputUpcast, core.Operator)
	assert.Equal(t, mma.GemmShape{M: 4, N: 8, K: 2}, core.Warp.MmaIterations)

	// A is row-major: K (32) is contiguous, 16 int8 per 128-bit access.
	assert.Equal(t, mma.PitchLinearShape{Contiguous: 32, Strided: 128}, core.ThreadMapA.Shape)
	assert.Equal(t, 16, core.ThreadMapA.ElementsPerAccess)
	assert.Equal(t, mma.PitchLinearShape{Contiguous: 2, Strided: 16}, core.ThreadMapA.WarpThreadArrangement)

	// B is column-major: K is contiguous again, 8 halves per access.
	assert.Equal(t, mma.PitchLinearShape{Contiguous: 32, Strided: 128}, core.ThreadMapB.Shape)
	assert.Equal(t, 8, core.ThreadMapB.ElementsPerAccess)
	assert.Equal(t, mma.PitchLinearShape{Contiguous: 4, Strided: 8}, core.ThreadMapB.WarpThreadArrangement)

	checkExactCover(t, core.ThreadMapA)
	checkExactCover(t, core.ThreadMapB)

	// 3 stages x (128*32 bytes + 32*128*2 bytes).
	assert.Equal(t, 3*(4096+8192), core.SharedMemoryBytes())
}

func TestDefaultProvideCongruous(t *testing.T) {
	req := baseRequest()
	req.A = mma.OperandDescriptor{Element: mma.F16, Layout: mma.ColumnMajor, Alignment: 8}
	req.B = mma.OperandDescriptor{Element: mma.F16, Layout: mma.RowMajor, Alignment: 8}

	core, err := Default.Provide(req)
	require.NoError(t, err)

	assert.Equal(t, mma.PitchLinearShape{Contiguous: 128, Strided: 32}, core.ThreadMapA.Shape)
	assert.Equal(t, mma.PitchLinearShape{Contiguous: 8, Strided: 4}, core.ThreadMapA.WarpThreadArrangement)
	assert.Equal(t, mma.PitchLinearShape{Contiguous: 128, Strided: 32}, core.ThreadMapB.Shape)
	assert.Equal(t, mma.MultiplyAdd, core.Operator)
	checkExactCover(t, core.ThreadMapA)
	checkExactCover(t, core.ThreadMapB)
}

func TestDefaultProvideErrors(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(*Request)
		want   error
	}{
		{"warp does not divide block", func(r *Request) { r.Tiles.Warp = mma.GemmShape{M: 48, N: 64, K: 32} }, mma.ErrShapeMismatch},
		{"instruction does not divide warp", func(r *Request) { r.Tiles.Instruction = mma.GemmShape{M: 16, N: 24, K: 16} }, mma.ErrShapeMismatch},
		{"single stage", func(r *Request) { r.Stages = 1 }, mma.ErrInvalidDescriptor},
		{"simt", func(r *Request) { r.UnitClass = mma.Simt }, mma.ErrUnsupported},
		{"no async copy", func(r *Request) { r.Profile.Arch = mma.SM75 }, mma.ErrUnsupported},
		{"unknown arch", func(r *Request) { r.Profile.Arch = mma.ArchUnknown }, mma.ErrUnsupported},
		{"f32 without fast operator", func(r *Request) {
			r.A = mma.OperandDescriptor{Element: mma.F32, Layout: mma.RowMajor, Alignment: 4}
			r.B = mma.OperandDescriptor{Element: mma.F32, Layout: mma.ColumnMajor, Alignment: 4}
		}, mma.ErrUnsupported},
		{"f16 x bf16", func(r *Request) { r.A.Element = mma.BF16; r.A.Alignment = 8 }, mma.ErrUnsupported},
		{"illegal instruction", func(r *Request) { r.Tiles.Instruction = mma.GemmShape{M: 16, N: 8, K: 32} }, mma.ErrUnsupported},
		{"bad accumulator", func(r *Request) { r.Accumulator = mma.S32 }, mma.ErrUnsupported},
		{"saturate on float", func(r *Request) { r.Operator = mma.MultiplyAddSaturate }, mma.ErrUnsupported},
		{"zero alignment", func(r *Request) { r.B.Alignment = 0 }, mma.ErrInvalidDescriptor},
		{"undefined operator", func(r *Request) { r.Operator = mma.MathOperator(42) }, mma.ErrInvalidDescriptor},
		{"too many threads", func(r *Request) {
			r.Tiles.Block = mma.GemmShape{M: 256, N: 256, K: 32}
			r.Tiles.Warp = mma.GemmShape{M: 32, N: 32, K: 32}
		}, mma.ErrResourceLimit},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := baseRequest()
			tt.mutate(&req)
			core, err := Default.Provide(req)
			require.Error(t, err)
			assert.Nil(t, core)
			assert.ErrorIs(t, err, tt.want)
		})
	}
}

func TestDefaultProvideFastF32(t *testing.T) {
	req := baseRequest()
	req.A = mma.OperandDescriptor{Element: mma.F32, Layout: mma.RowMajor, Alignment: 4}
	req.B = mma.OperandDescriptor{Element: mma.F32, Layout: mma.ColumnMajor, Alignment: 4}
	req.Operator = mma.MultiplyAddFastBF16

	core, err := Default.Provide(req)
	require.NoError(t, err)
	assert.Equal(t, mma.BF16, core.ComputeElement)
	assert.Equal(t, mma.F32, core.ElementAccumulator)
}

func TestDefaultProvideInteger(t *testing.T) {
	req := baseRequest()
	req.A = mma.OperandDescriptor{Element: mma.U8, Layout: mma.RowMajor, Alignment: 16}
	req.B = mma.OperandDescriptor{Element: mma.S8, Layout: mma.ColumnMajor, Alignment: 16}
	req.Tiles.Block.K = 64
	req.Tiles.Warp.K = 64
	req.Tiles.Instruction = mma.GemmShape{M: 16, N: 8, K: 32}
	req.Operator = mma.MultiplyAddSaturate

	core, err := Default.Provide(req)
	require.NoError(t, err)
	assert.Equal(t, mma.S8, core.ComputeElement)
	assert.Equal(t, mma.S32, core.ElementAccumulator)
	assert.Equal(t, mma.MultiplyAddSaturate, core.Operator)
}

func TestComputeTypeTable(t *testing.T) {
	params := mma.ArchParamsSM80()
	tests := []struct {
		a, b    mma.NumericType
		want    mma.NumericType
		wantErr bool
	}{
		{mma.F16, mma.F16, mma.F16, false},
		{mma.BF16, mma.BF16, mma.BF16, false},
		{mma.TF32, mma.TF32, mma.TF32, false},
		{mma.S8, mma.F16, mma.F16, false},
		{mma.BF16, mma.U8, mma.BF16, false},
		{mma.S4, mma.S8, mma.S8, false},
		{mma.U8, mma.S8, mma.S8, false},
		{mma.F16, mma.BF16, mma.Invalid, true},
		{mma.F16, mma.TF32, mma.Invalid, true},
		{mma.B1, mma.S8, mma.Invalid, true},
		{mma.F32, mma.F32, mma.Invalid, true},
	}
	for _, tt := range tests {
		t.Run(tt.a.String()+"x"+tt.b.String(), func(t *testing.T) {
			got, _, err := computeType(params, tt.a, tt.b, mma.MultiplyAdd)
			if tt.wantErr {
				assert.ErrorIs(t, err, mma.ErrUnsupported)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}
