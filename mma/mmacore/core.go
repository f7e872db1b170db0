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

// Package mmacore provides the warp-level tiling plan of a multistage
// tensor-op mainloop: the warp arrangement inside a threadblock, the
// compute-unit (instruction) shape, and the thread maps that tile readers
// must use to split operand tiles across lanes.
//
// Provider is the construction interface consumed by the fusion assembler.
// Default is the reference implementation.
package mmacore

import (
	"github.com/ajroetker/mmaplan/mma"
)

// AccessBits is the width of one thread's global->shared copy in a
// multistage tensor-op core.
const AccessBits = 128

// Request carries everything a provider needs to build a Core.
type Request struct {
	Tiles             mma.TileHierarchy
	A                 mma.OperandDescriptor
	B                 mma.OperandDescriptor
	Accumulator       mma.NumericType
	AccumulatorLayout mma.Layout
	Profile           mma.Profile
	Stages            int
	UnitClass         mma.OperatorClass
	Operator          mma.MathOperator
	CacheA            mma.CacheOperation
	CacheB            mma.CacheOperation
}

// Provider builds the warp-tiling plan for a request.
type Provider interface {
	Provide(req Request) (*Core, error)
}

// ProviderFunc adapts a function to Provider.
type ProviderFunc func(req Request) (*Core, error)

// Provide calls f(req).
func (f ProviderFunc) Provide(req Request) (*Core, error) {
	return f(req)
}

// WarpPolicy is the warp-scoped part of the plan: how many instructions
// each warp issues per K step to cover its tile.
type WarpPolicy struct {
	Shape         mma.GemmShape
	Instruction   mma.GemmShape
	MmaIterations mma.GemmShape // Shape / Instruction
}

// Core is the warp-tiling plan. It is immutable once returned.
type Core struct {
	Shape            mma.GemmShape // threadblock tile
	WarpShape        mma.GemmShape
	InstructionShape mma.GemmShape
	WarpCount        mma.GemmShape
	Threads          int
	PartitionsK      int

	ElementA           mma.NumericType
	ElementB           mma.NumericType
	ComputeElement     mma.NumericType // type the tensor cores consume
	ElementAccumulator mma.NumericType
	LayoutA            mma.Layout
	LayoutB            mma.Layout
	LayoutAccumulator  mma.Layout

	OperatorClass mma.OperatorClass
	Operator      mma.MathOperator
	Stages        int
	CacheA        mma.CacheOperation
	CacheB        mma.CacheOperation

	ThreadMapA ThreadMap
	ThreadMapB ThreadMap

	// Per-stage shared memory tiles: A is (M x K), B is (K x N).
	SmemTileA mma.MatrixShape
	SmemTileB mma.MatrixShape

	Warp WarpPolicy
}

// ComputeUnitShape is the canonical shape of one MMA instruction.
func (c *Core) ComputeUnitShape() mma.GemmShape {
	return c.InstructionShape
}

// StageBytes returns the shared memory used by one pipeline stage.
func (c *Core) StageBytes() int {
	bitsA := c.SmemTileA.Count() * c.ElementA.Bits()
	bitsB := c.SmemTileB.Count() * c.ElementB.Bits()
	return (bitsA + bitsB + 7) / 8
}

// SharedMemoryBytes returns the operand staging footprint over all stages.
func (c *Core) SharedMemoryBytes() int {
	return c.Stages * c.StageBytes()
}
