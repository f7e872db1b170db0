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
	"fmt"
	"strings"
)

// NumericType is the element type of an operand, accumulator or vector.
type NumericType int

const (
	// Invalid is the zero value; it never validates.
	Invalid NumericType = iota

	// B1 is a single-bit binary element.
	B1

	// U4 and S4 are 4-bit integers, packed two per byte.
	U4
	S4

	// U8 and S8 are 8-bit integers.
	U8
	S8

	// F16 is IEEE 754 half precision.
	F16

	// BF16 is bfloat16 (8-bit exponent, 7-bit mantissa).
	BF16

	// TF32 is the tensor-float format: 19 significant bits stored in 32.
	TF32

	// S32 is a 32-bit integer, the accumulator type for integer MMA.
	S32

	// F32 is IEEE 754 single precision.
	F32

	// F64 is IEEE 754 double precision.
	F64
)

var numericNames = map[NumericType]string{
	B1:   "b1",
	U4:   "u4",
	S4:   "s4",
	U8:   "u8",
	S8:   "s8",
	F16:  "f16",
	BF16: "bf16",
	TF32: "tf32",
	S32:  "s32",
	F32:  "f32",
	F64:  "f64",
}

// String returns the short lower-case name, e.g. "f16".
func (t NumericType) String() string {
	if name, ok := numericNames[t]; ok {
		return name
	}
	return "invalid"
}

// Bits returns the storage width of one element in bits.
// TF32 occupies a full 32-bit word in memory.
func (t NumericType) Bits() int {
	switch t {
	case B1:
		return 1
	case U4, S4:
		return 4
	case U8, S8:
		return 8
	case F16, BF16:
		return 16
	case TF32, S32, F32:
		return 32
	case F64:
		return 64
	default:
		return 0
	}
}

// IsFloat reports whether t is a floating-point format.
func (t NumericType) IsFloat() bool {
	switch t {
	case F16, BF16, TF32, F32, F64:
		return true
	}
	return false
}

// IsInteger reports whether t is an integer (or binary) format.
func (t NumericType) IsInteger() bool {
	switch t {
	case B1, U4, S4, U8, S8, S32:
		return true
	}
	return false
}

// Valid reports whether t is one of the defined element types.
func (t NumericType) Valid() bool {
	return t.Bits() > 0
}

// ParseNumericType parses the names produced by String. Common aliases
// ("half", "float", "int8", ...) are accepted too.
func ParseNumericType(s string) (NumericType, error) {
	name := strings.ToLower(strings.TrimSpace(s))
	switch name {
	case "half", "float16":
		return F16, nil
	case "bfloat16":
		return BF16, nil
	case "float", "float32":
		return F32, nil
	case "double", "float64":
		return F64, nil
	case "int8":
		return S8, nil
	case "uint8":
		return U8, nil
	case "int4":
		return S4, nil
	case "uint4":
		return U4, nil
	case "int32":
		return S32, nil
	}
	for t, n := range numericNames {
		if n == name {
			return t, nil
		}
	}
	return Invalid, fmt.Errorf("unknown numeric type %q", s)
}

// Layout is the memory order of a matrix operand.
type Layout int

const (
	// RowMajor stores consecutive columns of a row contiguously.
	RowMajor Layout = iota

	// ColumnMajor stores consecutive rows of a column contiguously.
	ColumnMajor
)

// String returns "row" or "column".
func (l Layout) String() string {
	switch l {
	case RowMajor:
		return "row"
	case ColumnMajor:
		return "column"
	default:
		return "unknown"
	}
}

// Short returns the BLAS-style letter: "n" for row-major ("normal" in a
// row-major problem) and "t" for column-major.
func (l Layout) Short() string {
	if l == ColumnMajor {
		return "t"
	}
	return "n"
}

// ParseLayout accepts "row", "rowmajor", "r", "n", "column", "colmajor", "c", "t".
func ParseLayout(s string) (Layout, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "row", "rowmajor", "row_major", "r", "n":
		return RowMajor, nil
	case "column", "col", "colmajor", "columnmajor", "column_major", "c", "t":
		return ColumnMajor, nil
	}
	return RowMajor, fmt.Errorf("unknown layout %q", s)
}
