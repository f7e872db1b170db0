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

package fusion

import (
	"fmt"

	"github.com/ajroetker/mmaplan/mma"
	"github.com/ajroetker/mmaplan/mma/mmacore"
	"github.com/ajroetker/mmaplan/mma/policy"
	"github.com/ajroetker/mmaplan/mma/transform"
)

// Operand names an operand role of the multiply.
type Operand int

const (
	OperandA Operand = iota
	OperandB
)

// String returns "A" or "B".
func (o Operand) String() string {
	if o == OperandB {
		return "B"
	}
	return "A"
}

// Request is the full set of static descriptors of one kernel
// specialization.
type Request struct {
	A    mma.OperandDescriptor
	B    mma.OperandDescriptor
	Norm mma.VectorDescriptor

	// Accumulator is the accumulation element type. Invalid selects the
	// default for the compute type (F32 for floating point, S32 for
	// integers, F64 for doubles).
	Accumulator mma.NumericType

	Profile  mma.Profile
	Tiles    mma.TileHierarchy
	Stages   int
	Flags    mma.FusionFlags
	Operator mma.MathOperator
}

// String returns a compact, stable description, also used as a cache key.
func (r Request) String() string {
	return fmt.Sprintf("%v|a=%v|b=%v|norm=%v|acc=%v|%v|stages=%d|op=%v|transpose=%t|accrow=%t|clear=%v",
		r.Profile, r.A, r.B, r.Norm, r.Accumulator, r.Tiles, r.Stages, r.Operator,
		r.Flags.InternalTranspose, r.Flags.AccumulatorsRowMajor, r.Flags.SharedMemoryClear)
}

// PipelineConfig is the fully specified plan handed to the pipeline engine.
// It is immutable; the caller owns it for the lifetime of one launch.
type PipelineConfig struct {
	Profile  mma.Profile
	Core     *mmacore.Core
	ReaderA  *transform.TileReader
	ReaderB  *transform.TileReader
	NormSum  *transform.VectorReader
	Policies policy.Set

	Accumulator       mma.NumericType
	AccumulatorLayout mma.Layout
	Stages            int
	Flags             mma.FusionFlags
}

// Clone returns a deep copy of c. Every component of a PipelineConfig is
// a plain value behind its pointer, so copying each pointee is enough.
func (c *PipelineConfig) Clone() *PipelineConfig {
	if c == nil {
		return nil
	}
	out := *c
	if c.Core != nil {
		core := *c.Core
		out.Core = &core
	}
	if c.ReaderA != nil {
		ra := *c.ReaderA
		out.ReaderA = &ra
	}
	if c.ReaderB != nil {
		rb := *c.ReaderB
		out.ReaderB = &rb
	}
	if c.NormSum != nil {
		ns := *c.NormSum
		out.NormSum = &ns
	}
	return &out
}

// Shape returns the threadblock tile.
func (c *PipelineConfig) Shape() mma.GemmShape {
	return c.Core.Shape
}

// ComputeUnitShape returns the MMA instruction shape.
func (c *PipelineConfig) ComputeUnitShape() mma.GemmShape {
	return c.Core.ComputeUnitShape()
}

// Threads returns the threadblock size.
func (c *PipelineConfig) Threads() int {
	return c.Core.Threads
}

// NormalizedOperand returns the operand role the fused scale/bias is applied
// to: A normally, B when the problem was internally transposed.
func (c *PipelineConfig) NormalizedOperand() Operand {
	if c.Flags.InternalTranspose {
		return OperandB
	}
	return OperandA
}

// NormalizedReader returns the reader of the normalized operand.
func (c *PipelineConfig) NormalizedReader() *transform.TileReader {
	if c.NormalizedOperand() == OperandB {
		return c.ReaderB
	}
	return c.ReaderA
}

// Reader returns the tile reader of operand o.
func (c *PipelineConfig) Reader(o Operand) *transform.TileReader {
	if o == OperandB {
		return c.ReaderB
	}
	return c.ReaderA
}

// SharedMemoryBytes returns the operand staging footprint of all stages.
func (c *PipelineConfig) SharedMemoryBytes() int {
	return c.Core.SharedMemoryBytes()
}

// String returns a one-line summary.
func (c *PipelineConfig) String() string {
	return fmt.Sprintf("%v %v/%v/%v stages=%d threads=%d cache(a=%v b=%v norm=%v) norm->%v smem=%dB",
		c.Profile, c.Core.Shape, c.Core.WarpShape, c.Core.InstructionShape, c.Stages, c.Core.Threads,
		c.Policies.A, c.Policies.B, c.Policies.Norm, c.NormalizedOperand(), c.SharedMemoryBytes())
}
