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

package mma

import (
	"errors"
	"fmt"
	"testing"
)

func TestNumericTypeRoundTrip(t *testing.T) {
	for typ, name := range numericNames {
		got, err := ParseNumericType(name)
		if err != nil || got != typ {
			t.Errorf("ParseNumericType(%q) = %v, %v; want %v", name, got, err, typ)
		}
		if !typ.Valid() {
			t.Errorf("%v is not Valid", typ)
		}
	}
	if Invalid.Valid() || Invalid.String() != "invalid" {
		t.Errorf("Invalid: Valid=%v String=%q", Invalid.Valid(), Invalid.String())
	}
	for alias, want := range map[string]NumericType{"half": F16, " Float ": F32, "int8": S8, "bfloat16": BF16} {
		if got, err := ParseNumericType(alias); err != nil || got != want {
			t.Errorf("ParseNumericType(%q) = %v, %v; want %v", alias, got, err, want)
		}
	}
	if _, err := ParseNumericType("f17"); err == nil {
		t.Error("ParseNumericType(f17) succeeded")
	}
}

func TestNumericTypeBits(t *testing.T) {
	tests := []struct {
		typ          NumericType
		bits         int
		float, isInt bool
	}{
		{B1, 1, false, true},
		{S4, 4, false, true},
		{U8, 8, false, true},
		{F16, 16, true, false},
		{BF16, 16, true, false},
		{TF32, 32, true, false},
		{S32, 32, false, true},
		{F64, 64, true, false},
		{Invalid, 0, false, false},
	}
	for _, tt := range tests {
		if tt.typ.Bits() != tt.bits || tt.typ.IsFloat() != tt.float || tt.typ.IsInteger() != tt.isInt {
			t.Errorf("%v: bits=%d float=%v int=%v", tt.typ, tt.typ.Bits(), tt.typ.IsFloat(), tt.typ.IsInteger())
		}
	}
}

func TestParseLayout(t *testing.T) {
	for in, want := range map[string]Layout{"row": RowMajor, "N": RowMajor, "column": ColumnMajor, "t": ColumnMajor, "col": ColumnMajor} {
		if got, err := ParseLayout(in); err != nil || got != want {
			t.Errorf("ParseLayout(%q) = %v, %v; want %v", in, got, err, want)
		}
	}
	if _, err := ParseLayout("diagonal"); err == nil {
		t.Error("ParseLayout(diagonal) succeeded")
	}
	if RowMajor.Short() != "n" || ColumnMajor.Short() != "t" {
		t.Errorf("Short() = %q/%q", RowMajor.Short(), ColumnMajor.Short())
	}
}

func TestParseArch(t *testing.T) {
	for in, want := range map[string]Arch{"sm80": SM80, "SM_86": SM86, "90a": SM90, " sm70 ": SM70} {
		if got, err := ParseArch(in); err != nil || got != want {
			t.Errorf("ParseArch(%q) = %v, %v; want %v", in, got, err, want)
		}
	}
	for _, tag := range AvailableArchs() {
		a, err := ParseArch(tag)
		if err != nil || a.String() != tag {
			t.Errorf("ParseArch(%q) = %v, %v", tag, a, err)
		}
		if _, ok := ArchParamsFor(a); !ok {
			t.Errorf("no parameters for %v", a)
		}
	}
	if _, err := ParseArch("sm61"); err == nil {
		t.Error("ParseArch(sm61) succeeded")
	}
	if SM75.HasAsyncCopy() || !SM80.HasAsyncCopy() {
		t.Error("async copy starts at sm80")
	}
}

func TestArchFromEnv(t *testing.T) {
	t.Setenv(ArchEnvVar, "")
	if a, err := ArchFromEnv(SM86); err != nil || a != SM86 {
		t.Errorf("unset: ArchFromEnv() = %v, %v; want sm86", a, err)
	}

	t.Setenv(ArchEnvVar, "sm90")
	if a, err := ArchFromEnv(SM80); err != nil || a != SM90 {
		t.Errorf("sm90: ArchFromEnv() = %v, %v", a, err)
	}

	t.Setenv(ArchEnvVar, "pascal")
	if _, err := ArchFromEnv(SM80); err == nil {
		t.Error("unparsable value fell back silently")
	}
}

func TestParseEnums(t *testing.T) {
	for _, c := range []OperatorClass{TensorOp, Simt, WmmaTensorOp} {
		if got, err := ParseOperatorClass(c.String()); err != nil || got != c {
			t.Errorf("ParseOperatorClass(%q) = %v, %v", c.String(), got, err)
		}
	}
	for _, o := range []MathOperator{MultiplyAdd, MultiplyAddSaturate, MultiplyAddFastF16, MultiplyAddFastBF16, MultiplyAddMixedInputUpcast} {
		if got, err := ParseMathOperator(o.String()); err != nil || got != o {
			t.Errorf("ParseMathOperator(%q) = %v, %v", o.String(), got, err)
		}
	}
	if got, _ := ParseMathOperator("fast-bf16"); got != MultiplyAddFastBF16 {
		t.Errorf("ParseMathOperator(fast-bf16) = %v", got)
	}
	for _, c := range []SharedMemoryClear{ClearNone, ClearZFill, ClearLastStage} {
		if got, err := ParseSharedMemoryClear(c.String()); err != nil || got != c {
			t.Errorf("ParseSharedMemoryClear(%q) = %v, %v", c.String(), got, err)
		}
	}
	if !CacheGlobal.BypassesL1() || CacheAlways.BypassesL1() {
		t.Error("only the global cache operation bypasses L1")
	}
}

func TestEnumsOutOfRange(t *testing.T) {
	if !ClearLastStage.Valid() || SharedMemoryClear(7).Valid() || SharedMemoryClear(-1).Valid() {
		t.Error("SharedMemoryClear.Valid accepts only the defined options")
	}
	if !MultiplyAddMixedInputUpcast.Valid() || MathOperator(42).Valid() {
		t.Error("MathOperator.Valid accepts only the defined operators")
	}
	if !WmmaTensorOp.Valid() || OperatorClass(9).Valid() {
		t.Error("OperatorClass.Valid accepts only the defined classes")
	}
	if a, b := SharedMemoryClear(7).String(), SharedMemoryClear(8).String(); a == b {
		t.Errorf("undefined options share the name %q", a)
	}
	if got := MathOperator(42).String(); got != "unknown(42)" {
		t.Errorf("MathOperator(42).String() = %q", got)
	}
}

func TestShapes(t *testing.T) {
	s, err := ParseGemmShape("128x256x32")
	if err != nil || s != (GemmShape{M: 128, N: 256, K: 32}) {
		t.Fatalf("ParseGemmShape = %v, %v", s, err)
	}
	if s.String() != "128x256x32" || s.Count() != 128*256*32 {
		t.Errorf("String/Count = %q/%d", s.String(), s.Count())
	}
	if got, _ := ParseGemmShape("16, 8, 16"); got != (GemmShape{M: 16, N: 8, K: 16}) {
		t.Errorf("comma form = %v", got)
	}
	for _, bad := range []string{"128x128", "axbxc", ""} {
		if _, err := ParseGemmShape(bad); err == nil {
			t.Errorf("ParseGemmShape(%q) succeeded", bad)
		}
	}

	warp := GemmShape{M: 64, N: 64, K: 32}
	if !warp.Divides(s) || s.Div(warp) != (GemmShape{M: 2, N: 4, K: 1}) {
		t.Errorf("%v / %v", s, warp)
	}
	if (GemmShape{M: 48, N: 64, K: 32}).Divides(s) || (GemmShape{}).Divides(s) {
		t.Error("non-divisors reported as dividing")
	}

	a := s.MK()
	if a.PitchLinear(RowMajor) != (PitchLinearShape{Contiguous: 32, Strided: 128}) ||
		a.PitchLinear(ColumnMajor) != (PitchLinearShape{Contiguous: 128, Strided: 32}) {
		t.Errorf("PitchLinear(%v) wrong", a)
	}
	for _, l := range []Layout{RowMajor, ColumnMajor} {
		if back := a.PitchLinear(l).Matrix(l); back != a {
			t.Errorf("%v: %v -> %v", l, a, back)
		}
	}
}

func TestErrors(t *testing.T) {
	kinds := []struct {
		kind     ErrorKind
		sentinel error
	}{
		{KindInvalidDescriptor, ErrInvalidDescriptor},
		{KindShapeMismatch, ErrShapeMismatch},
		{KindUnsupported, ErrUnsupported},
		{KindResourceLimit, ErrResourceLimit},
	}
	for _, k := range kinds {
		err := fmt.Errorf("outer: %w", Errorf(k.kind, "test.Op", "value %d", 7))
		if !errors.Is(err, k.sentinel) {
			t.Errorf("%v does not match %v", err, k.sentinel)
		}
		if got, ok := KindOf(err); !ok || got != k.kind {
			t.Errorf("KindOf(%v) = %v, %v", err, got, ok)
		}
		want := "outer: test.Op: " + k.kind.String() + ": value 7"
		if err.Error() != want {
			t.Errorf("Error() = %q, want %q", err.Error(), want)
		}
	}
	if _, ok := KindOf(errors.New("plain")); ok {
		t.Error("KindOf matched a plain error")
	}
}

func TestTileHierarchyValidate(t *testing.T) {
	good := TileHierarchy{
		Block:       GemmShape{M: 128, N: 128, K: 32},
		Warp:        GemmShape{M: 64, N: 64, K: 32},
		Instruction: GemmShape{M: 16, N: 8, K: 16},
	}
	if err := good.Validate("t"); err != nil {
		t.Fatalf("Validate() = %v", err)
	}
	if good.WarpCount() != (GemmShape{M: 2, N: 2, K: 1}) {
		t.Errorf("WarpCount() = %v", good.WarpCount())
	}

	tests := []struct {
		name   string
		mutate func(*TileHierarchy)
		want   error
	}{
		{"zero block", func(h *TileHierarchy) { h.Block.K = 0 }, ErrInvalidDescriptor},
		{"negative warp", func(h *TileHierarchy) { h.Warp.M = -64 }, ErrInvalidDescriptor},
		{"warp does not divide block", func(h *TileHierarchy) { h.Warp.N = 48 }, ErrShapeMismatch},
		{"instruction does not divide warp", func(h *TileHierarchy) { h.Instruction.K = 64 }, ErrShapeMismatch},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			h := good
			tt.mutate(&h)
			if err := h.Validate("t"); !errors.Is(err, tt.want) {
				t.Errorf("Validate() = %v, want %v", err, tt.want)
			}
		})
	}
}

func TestOperandDescriptor(t *testing.T) {
	d := OperandDescriptor{Element: F16, Layout: ColumnMajor, Alignment: 4}
	if d.AccessBits() != 64 || d.String() != "f16:column:4" {
		t.Errorf("AccessBits/String = %d/%q", d.AccessBits(), d.String())
	}
	if err := d.Validate("t"); err != nil {
		t.Errorf("Validate() = %v", err)
	}
	for _, bad := range []OperandDescriptor{
		{Element: Invalid, Alignment: 4},
		{Element: F16, Alignment: 0},
		{Element: F16, Layout: Layout(7), Alignment: 8},
	} {
		if err := bad.Validate("t"); !errors.Is(err, ErrInvalidDescriptor) {
			t.Errorf("%v: Validate() = %v", bad, err)
		}
	}
}

func TestArchParams(t *testing.T) {
	p := ArchParamsSM80()
	if !p.SupportsTensorOp(F16) || p.SupportsTensorOp(F32) {
		t.Error("sm80 tensor-op element support wrong")
	}
	if !p.LegalInstruction(S8, GemmShape{M: 16, N: 8, K: 32}) || p.LegalInstruction(F16, GemmShape{M: 16, N: 8, K: 32}) {
		t.Error("sm80 instruction legality wrong")
	}
	if ArchParamsSM86().SharedMemoryBytes >= p.SharedMemoryBytes {
		t.Error("sm86 should have less shared memory per block than sm80")
	}
	if _, ok := ArchParamsFor(ArchUnknown); ok {
		t.Error("parameters for unknown arch")
	}
}
