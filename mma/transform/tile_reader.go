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

// Package transform specializes the readers that stream operand tiles and
// the scale/bias vector from global memory into the mainloop.
//
// Readers here are descriptions, not engines: they fix extents, access
// widths, thread partitioning and cache policy, and can evaluate the guard
// predicates a thread would use at a matrix boundary. Out-of-bound accesses
// are inert (read as zero), never faults.
package transform

import (
	"github.com/ajroetker/mmaplan/mma"
	"github.com/ajroetker/mmaplan/mma/mmacore"
)

// TileSpec is the construction input of a tile reader.
type TileSpec struct {
	Extent    mma.MatrixShape
	Element   mma.NumericType
	Layout    mma.Layout
	Alignment int

	// AdvanceRank is the matrix dimension the reader steps along between
	// K iterations: 1 (columns) for A, 0 (rows) for B.
	AdvanceRank int

	ThreadMap mmacore.ThreadMap
	CacheOp   mma.CacheOperation
}

// TileReader is a predicated reader over one operand tile.
type TileReader struct {
	TileSpec

	// AccessesPerVector is how many Alignment-wide global accesses make up
	// one thread-map vector (ThreadMap.ElementsPerAccess / Alignment).
	AccessesPerVector int
}

// ReaderFactory constructs tile readers.
type ReaderFactory interface {
	NewTileReader(spec TileSpec) (*TileReader, error)
}

// Predicated is the reference ReaderFactory.
var Predicated ReaderFactory = predicatedFactory{}

type predicatedFactory struct{}

func (predicatedFactory) NewTileReader(spec TileSpec) (*TileReader, error) {
	const op = "transform.NewTileReader"

	if spec.Extent.Rows <= 0 || spec.Extent.Columns <= 0 {
		return nil, mma.Errorf(mma.KindInvalidDescriptor, op, "tile extent %v must be positive", spec.Extent)
	}
	if !spec.Element.Valid() || spec.Alignment <= 0 {
		return nil, mma.Errorf(mma.KindInvalidDescriptor, op, "element %v with alignment %d", spec.Element, spec.Alignment)
	}
	if spec.AdvanceRank != 0 && spec.AdvanceRank != 1 {
		return nil, mma.Errorf(mma.KindInvalidDescriptor, op, "advance rank must be 0 or 1, got %d", spec.AdvanceRank)
	}
	if want := spec.Extent.PitchLinear(spec.Layout); spec.ThreadMap.Shape != want {
		return nil, mma.Errorf(mma.KindShapeMismatch, op,
			"thread map covers %v, tile %v (%v) needs %v", spec.ThreadMap.Shape, spec.Extent, spec.Layout, want)
	}
	epa := spec.ThreadMap.ElementsPerAccess
	if epa <= 0 || epa%spec.Alignment != 0 {
		return nil, mma.Errorf(mma.KindUnsupported, op,
			"alignment %d (%d bits) does not divide the %d-element thread map access", spec.Alignment, spec.Alignment*spec.Element.Bits(), epa)
	}
	return &TileReader{
		TileSpec:          spec,
		AccessesPerVector: epa / spec.Alignment,
	}, nil
}

// Step returns the coordinate delta of one advance along K.
func (r *TileReader) Step() mma.MatrixCoord {
	if r.AdvanceRank == 1 {
		return mma.MatrixCoord{Column: r.Extent.Columns}
	}
	return mma.MatrixCoord{Row: r.Extent.Rows}
}

// AccessesPerThread returns the number of guarded global accesses a thread
// issues per tile.
func (r *TileReader) AccessesPerThread() int {
	return r.ThreadMap.AccessCount() * r.AccessesPerVector
}

// Predicates returns, for thread tid, one guard per global access in issue
// order. residue is the valid part of the tile (the problem extent minus the
// tile origin); accesses starting outside it are masked off and read as zero.
func (r *TileReader) Predicates(tid int, residue mma.MatrixShape) []bool {
	guards := make([]bool, 0, r.AccessesPerThread())
	for _, off := range r.ThreadMap.Offsets(tid) {
		for v := 0; v < r.AccessesPerVector; v++ {
			c := off.Add(mma.PitchLinearCoord{Contiguous: v * r.Alignment})
			guards = append(guards, c.Matrix(r.Layout).Within(residue))
		}
	}
	return guards
}
