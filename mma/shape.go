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
	"strconv"
	"strings"
)

// GemmShape is an (M, N, K) extent of a GEMM tile.
type GemmShape struct {
	M int
	N int
	K int
}

// String formats the shape as "MxNxK".
func (s GemmShape) String() string {
	return fmt.Sprintf("%dx%dx%d", s.M, s.N, s.K)
}

// Count returns M*N*K.
func (s GemmShape) Count() int {
	return s.M * s.N * s.K
}

// Positive reports whether every extent is > 0.
func (s GemmShape) Positive() bool {
	return s.M > 0 && s.N > 0 && s.K > 0
}

// Divides reports whether s evenly divides other in every dimension.
func (s GemmShape) Divides(other GemmShape) bool {
	if !s.Positive() {
		return false
	}
	return other.M%s.M == 0 && other.N%s.N == 0 && other.K%s.K == 0
}

// Div returns the per-dimension quotient s / d. The caller must have checked
// d.Divides(s).
func (s GemmShape) Div(d GemmShape) GemmShape {
	return GemmShape{M: s.M / d.M, N: s.N / d.N, K: s.K / d.K}
}

// MK returns the (M x K) matrix extent, the footprint of an A tile.
func (s GemmShape) MK() MatrixShape {
	return MatrixShape{Rows: s.M, Columns: s.K}
}

// KN returns the (K x N) matrix extent, the footprint of a B tile.
func (s GemmShape) KN() MatrixShape {
	return MatrixShape{Rows: s.K, Columns: s.N}
}

// MN returns the (M x N) matrix extent, the footprint of an accumulator tile.
func (s GemmShape) MN() MatrixShape {
	return MatrixShape{Rows: s.M, Columns: s.N}
}

// ParseGemmShape parses "MxNxK" (also accepts ',' as separator).
func ParseGemmShape(s string) (GemmShape, error) {
	fields := strings.FieldsFunc(strings.ToLower(s), func(r rune) bool {
		return r == 'x' || r == ',' || r == ' '
	})
	if len(fields) != 3 {
		return GemmShape{}, fmt.Errorf("gemm shape %q: want MxNxK", s)
	}
	var dims [3]int
	for i, f := range fields {
		v, err := strconv.Atoi(f)
		if err != nil {
			return GemmShape{}, fmt.Errorf("gemm shape %q: %w", s, err)
		}
		dims[i] = v
	}
	return GemmShape{M: dims[0], N: dims[1], K: dims[2]}, nil
}

// MatrixShape is a (rows, columns) extent.
type MatrixShape struct {
	Rows    int
	Columns int
}

// String formats the shape as "RxC".
func (s MatrixShape) String() string {
	return fmt.Sprintf("%dx%d", s.Rows, s.Columns)
}

// Count returns Rows*Columns.
func (s MatrixShape) Count() int {
	return s.Rows * s.Columns
}

// PitchLinear maps the matrix extent onto a pitch-linear one: the contiguous
// dimension is columns for row-major and rows for column-major.
func (s MatrixShape) PitchLinear(l Layout) PitchLinearShape {
	if l == ColumnMajor {
		return PitchLinearShape{Contiguous: s.Rows, Strided: s.Columns}
	}
	return PitchLinearShape{Contiguous: s.Columns, Strided: s.Rows}
}

// PitchLinearShape is an extent in memory order: Contiguous elements share a
// row of the underlying storage, Strided counts rows.
type PitchLinearShape struct {
	Contiguous int
	Strided    int
}

// String formats the shape as "<contiguous,strided>".
func (s PitchLinearShape) String() string {
	return fmt.Sprintf("<%d,%d>", s.Contiguous, s.Strided)
}

// Count returns Contiguous*Strided.
func (s PitchLinearShape) Count() int {
	return s.Contiguous * s.Strided
}

// Matrix maps a pitch-linear coordinate back to (row, column) under l.
func (s PitchLinearShape) Matrix(l Layout) MatrixShape {
	if l == ColumnMajor {
		return MatrixShape{Rows: s.Contiguous, Columns: s.Strided}
	}
	return MatrixShape{Rows: s.Strided, Columns: s.Contiguous}
}

// PitchLinearCoord is a position in pitch-linear (memory) order.
type PitchLinearCoord struct {
	Contiguous int
	Strided    int
}

// Add returns the element-wise sum.
func (c PitchLinearCoord) Add(o PitchLinearCoord) PitchLinearCoord {
	return PitchLinearCoord{Contiguous: c.Contiguous + o.Contiguous, Strided: c.Strided + o.Strided}
}

// Matrix maps the coordinate to (row, column) under l.
func (c PitchLinearCoord) Matrix(l Layout) MatrixCoord {
	if l == ColumnMajor {
		return MatrixCoord{Row: c.Contiguous, Column: c.Strided}
	}
	return MatrixCoord{Row: c.Strided, Column: c.Contiguous}
}

// MatrixCoord is a (row, column) position.
type MatrixCoord struct {
	Row    int
	Column int
}

// Within reports whether c lies inside extent.
func (c MatrixCoord) Within(extent MatrixShape) bool {
	return c.Row >= 0 && c.Column >= 0 && c.Row < extent.Rows && c.Column < extent.Columns
}
