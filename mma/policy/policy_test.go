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

package policy

import (
	"fmt"
	"testing"

	"github.com/ajroetker/mmaplan/mma"
)

func TestCacheOperationForTable(t *testing.T) {
	elements := []mma.NumericType{mma.S8, mma.F16, mma.F32} // 8, 16, 32 bits
	alignments := []int{1, 2, 4, 8, 16}

	for _, elem := range elements {
		for _, align := range alignments {
			op := mma.OperandDescriptor{Element: elem, Layout: mma.RowMajor, Alignment: align}
			t.Run(fmt.Sprintf("%s_x%d", elem, align), func(t *testing.T) {
				want := mma.CacheAlways
				if elem.Bits()*align == 128 {
					want = mma.CacheGlobal
				}
				if got := CacheOperationFor(op); got != want {
					t.Errorf("CacheOperationFor(%v) = %v, want %v", op, got, want)
				}
			})
		}
	}
}

func TestCacheOperationForBypassCases(t *testing.T) {
	// 128-bit combinations, including element types the exhaustive table
	// leaves out.
	tests := []struct {
		elem  mma.NumericType
		align int
	}{
		{mma.S8, 16},
		{mma.F16, 8},
		{mma.F32, 4},
		{mma.F64, 2},
		{mma.S4, 32},
	}
	for _, tt := range tests {
		op := mma.OperandDescriptor{Element: tt.elem, Alignment: tt.align}
		if got := CacheOperationFor(op); got != mma.CacheGlobal {
			t.Errorf("CacheOperationFor(%v) = %v, want global", op, got)
		}
	}
}

func TestCacheOperationForWiderThanBulk(t *testing.T) {
	// 256-bit accesses are not "exactly one bulk transfer" and stay cached.
	op := mma.OperandDescriptor{Element: mma.F32, Alignment: 8}
	if got := CacheOperationFor(op); got != mma.CacheAlways {
		t.Errorf("CacheOperationFor(%v) = %v, want always", op, got)
	}
}

func TestDeriveNormFollowsA(t *testing.T) {
	descs := []mma.OperandDescriptor{
		{Element: mma.S8, Layout: mma.RowMajor, Alignment: 16},
		{Element: mma.F16, Layout: mma.ColumnMajor, Alignment: 4},
		{Element: mma.F16, Layout: mma.RowMajor, Alignment: 8},
		{Element: mma.F32, Layout: mma.RowMajor, Alignment: 1},
		{Element: mma.TF32, Layout: mma.ColumnMajor, Alignment: 4},
	}
	for _, a := range descs {
		for _, b := range descs {
			set := Derive(a, b)
			if set.Norm != set.A {
				t.Errorf("Derive(%v, %v).Norm = %v, want A's %v", a, b, set.Norm, set.A)
			}
			if set.A != CacheOperationFor(a) || set.B != CacheOperationFor(b) {
				t.Errorf("Derive(%v, %v) = %+v, inconsistent with CacheOperationFor", a, b, set)
			}
		}
	}
}

func TestDeriveBoundaryScenario(t *testing.T) {
	a := mma.OperandDescriptor{Element: mma.S8, Layout: mma.RowMajor, Alignment: 16}    // 128 bits
	b := mma.OperandDescriptor{Element: mma.F16, Layout: mma.ColumnMajor, Alignment: 4} // 64 bits

	got := Derive(a, b)
	want := Set{A: mma.CacheGlobal, B: mma.CacheAlways, Norm: mma.CacheGlobal}
	if got != want {
		t.Errorf("Derive() = %+v, want %+v", got, want)
	}
}

func TestDeriveNormIgnoresB(t *testing.T) {
	// B qualifies for bypass, A does not: the vector still follows A.
	a := mma.OperandDescriptor{Element: mma.F16, Alignment: 2}
	b := mma.OperandDescriptor{Element: mma.F16, Alignment: 8}
	got := Derive(a, b)
	if got.B != mma.CacheGlobal || got.Norm != mma.CacheAlways {
		t.Errorf("Derive() = %+v, want B=global Norm=always", got)
	}
}
