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

import "github.com/ajroetker/mmaplan/mma"

// ThreadMap partitions a pitch-linear tile across the threads of a block.
//
// It is a warp-raked map: each warp owns a contiguous footprint of
// WarpThreadArrangement × Iterations accesses, warps are arranged first along
// the strided dimension, and lanes within a warp are arranged contiguous-first.
// Every element of Shape is touched by exactly one (thread, iteration) pair.
type ThreadMap struct {
	Shape                 mma.PitchLinearShape
	Threads               int
	ElementsPerAccess     int
	WarpThreadArrangement mma.PitchLinearShape
	WarpArrangement       mma.PitchLinearShape
	Iterations            mma.PitchLinearShape
	Delta                 mma.PitchLinearShape
}

// NewWarpRakedThreadMap builds a warp-raked map or reports why the tile does
// not partition exactly.
func NewWarpRakedThreadMap(shape mma.PitchLinearShape, threads int, arrangement mma.PitchLinearShape, elementsPerAccess int) (ThreadMap, error) {
	const op = "mmacore.NewWarpRakedThreadMap"

	if shape.Contiguous <= 0 || shape.Strided <= 0 {
		return ThreadMap{}, mma.Errorf(mma.KindInvalidDescriptor, op, "tile %v must be positive", shape)
	}
	if threads <= 0 || threads%mma.WarpSize != 0 {
		return ThreadMap{}, mma.Errorf(mma.KindShapeMismatch, op, "thread count %d is not a positive multiple of %d", threads, mma.WarpSize)
	}
	if arrangement.Count() != mma.WarpSize || arrangement.Contiguous <= 0 {
		return ThreadMap{}, mma.Errorf(mma.KindShapeMismatch, op, "warp thread arrangement %v does not cover %d lanes", arrangement, mma.WarpSize)
	}
	if elementsPerAccess <= 0 || shape.Contiguous%elementsPerAccess != 0 {
		return ThreadMap{}, mma.Errorf(mma.KindShapeMismatch, op, "contiguous extent %d is not a multiple of %d elements per access", shape.Contiguous, elementsPerAccess)
	}

	inAccesses := mma.PitchLinearShape{
		Contiguous: shape.Contiguous / elementsPerAccess,
		Strided:    shape.Strided,
	}
	if inAccesses.Contiguous%arrangement.Contiguous != 0 || inAccesses.Strided%arrangement.Strided != 0 {
		return ThreadMap{}, mma.Errorf(mma.KindShapeMismatch, op,
			"tile %v (%v in accesses) does not divide across warp arrangement %v", shape, inAccesses, arrangement)
	}

	warpIterations := mma.PitchLinearShape{
		Contiguous: inAccesses.Contiguous / arrangement.Contiguous,
		Strided:    inAccesses.Strided / arrangement.Strided,
	}
	warpCount := threads / mma.WarpSize

	// Rake warps along the strided dimension first; spill into the
	// contiguous dimension only when there are more warps than strided steps.
	warpsStrided := min(warpIterations.Strided, warpCount)
	warpsContiguous := 1
	if warpCount > warpIterations.Strided {
		if warpCount%warpsStrided != 0 {
			return ThreadMap{}, mma.Errorf(mma.KindShapeMismatch, op, "%d warps do not split over %d strided steps", warpCount, warpsStrided)
		}
		warpsContiguous = warpCount / warpsStrided
	}
	if warpIterations.Strided%warpsStrided != 0 || warpIterations.Contiguous%warpsContiguous != 0 {
		return ThreadMap{}, mma.Errorf(mma.KindShapeMismatch, op,
			"%d warps leave a remainder over warp iterations %v", warpCount, warpIterations)
	}

	tm := ThreadMap{
		Shape:                 shape,
		Threads:               threads,
		ElementsPerAccess:     elementsPerAccess,
		WarpThreadArrangement: arrangement,
		WarpArrangement:       mma.PitchLinearShape{Contiguous: warpsContiguous, Strided: warpsStrided},
		Iterations: mma.PitchLinearShape{
			Contiguous: warpIterations.Contiguous / warpsContiguous,
			Strided:    warpIterations.Strided / warpsStrided,
		},
		Delta: mma.PitchLinearShape{
			Contiguous: arrangement.Contiguous * elementsPerAccess,
			Strided:    arrangement.Strided,
		},
	}
	if tm.Iterations.Contiguous == 0 || tm.Iterations.Strided == 0 {
		return ThreadMap{}, mma.Errorf(mma.KindShapeMismatch, op, "tile %v is too small for %d threads", shape, threads)
	}
	return tm, nil
}

// AccessCount returns the number of vector accesses each thread performs.
func (m ThreadMap) AccessCount() int {
	return m.Iterations.Count()
}

// InitialOffset returns the pitch-linear element offset of thread tid's
// first access.
func (m ThreadMap) InitialOffset(tid int) mma.PitchLinearCoord {
	warpID := tid / mma.WarpSize
	laneID := tid % mma.WarpSize

	// Footprint of one warp in accesses.
	footprint := mma.PitchLinearShape{
		Contiguous: m.WarpThreadArrangement.Contiguous * m.Iterations.Contiguous,
		Strided:    m.WarpThreadArrangement.Strided * m.Iterations.Strided,
	}
	warpOffset := mma.PitchLinearCoord{
		Contiguous: warpID % m.WarpArrangement.Contiguous,
		Strided:    warpID / m.WarpArrangement.Contiguous,
	}
	laneOffset := mma.PitchLinearCoord{
		Contiguous: laneID % m.WarpThreadArrangement.Contiguous,
		Strided:    laneID / m.WarpThreadArrangement.Contiguous,
	}
	vec := mma.PitchLinearCoord{
		Contiguous: footprint.Contiguous*warpOffset.Contiguous + laneOffset.Contiguous,
		Strided:    footprint.Strided*warpOffset.Strided + laneOffset.Strided,
	}
	return mma.PitchLinearCoord{
		Contiguous: vec.Contiguous * m.ElementsPerAccess,
		Strided:    vec.Strided,
	}
}

// Offsets returns the starting element offset of every access of thread tid,
// strided iterations outermost.
func (m ThreadMap) Offsets(tid int) []mma.PitchLinearCoord {
	base := m.InitialOffset(tid)
	out := make([]mma.PitchLinearCoord, 0, m.AccessCount())
	for s := 0; s < m.Iterations.Strided; s++ {
		for c := 0; c < m.Iterations.Contiguous; c++ {
			out = append(out, base.Add(mma.PitchLinearCoord{
				Contiguous: c * m.Delta.Contiguous,
				Strided:    s * m.Delta.Strided,
			}))
		}
	}
	return out
}
