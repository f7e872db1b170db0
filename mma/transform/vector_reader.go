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

package transform

import "github.com/ajroetker/mmaplan/mma"

// VectorAccessBits is the widest scale/bias access.
const VectorAccessBits = 128

// VectorSpec is the construction input of a scale/bias vector reader.
type VectorSpec struct {
	Extent  mma.MatrixShape // (1 x warp N)
	Element mma.NumericType
	Layout  mma.Layout
	CacheOp mma.CacheOperation
}

// VectorReader streams one scale and one bias element per output column of
// a warp tile. It is rewound at every pipeline stage advance, so the same
// columns are re-read for each K step rather than once per block.
type VectorReader struct {
	VectorSpec

	ElementsPerAccess int
	RewindPerStage    bool
}

// VectorReaderFactory constructs scale/bias vector readers.
type VectorReaderFactory interface {
	NewVectorReader(spec VectorSpec) (*VectorReader, error)
}

// ScaleBias is the reference VectorReaderFactory.
var ScaleBias VectorReaderFactory = scaleBiasFactory{}

type scaleBiasFactory struct{}

func (scaleBiasFactory) NewVectorReader(spec VectorSpec) (*VectorReader, error) {
	const op = "transform.NewVectorReader"

	if spec.Extent.Rows != 1 || spec.Extent.Columns <= 0 {
		return nil, mma.Errorf(mma.KindShapeMismatch, op, "vector extent %v must be 1 x N", spec.Extent)
	}
	if !spec.Element.IsFloat() {
		return nil, mma.Errorf(mma.KindUnsupported, op, "scale/bias element %v is not a floating-point type", spec.Element)
	}
	if spec.Layout != mma.RowMajor {
		return nil, mma.Errorf(mma.KindUnsupported, op, "scale/bias vectors are row-major only, got %v", spec.Layout)
	}
	epa := min(VectorAccessBits/spec.Element.Bits(), spec.Extent.Columns)
	if spec.Extent.Columns%epa != 0 {
		return nil, mma.Errorf(mma.KindShapeMismatch, op,
			"warp N %d is not a multiple of the %d-element vector access", spec.Extent.Columns, epa)
	}
	return &VectorReader{
		VectorSpec:        spec,
		ElementsPerAccess: epa,
		RewindPerStage:    true,
	}, nil
}

// Accesses returns the number of accesses per vector (scale or bias).
func (r *VectorReader) Accesses() int {
	return r.Extent.Columns / r.ElementsPerAccess
}

// FragmentElements returns the register footprint: a scale and a bias per
// column.
func (r *VectorReader) FragmentElements() int {
	return 2 * r.Extent.Columns
}

// Predicates returns one guard per access for a warp tile starting at
// column offset in a problem of n columns.
func (r *VectorReader) Predicates(offset, n int) []bool {
	guards := make([]bool, r.Accesses())
	for i := range guards {
		col := offset + i*r.ElementsPerAccess
		guards[i] = col >= 0 && col < n
	}
	return guards
}
