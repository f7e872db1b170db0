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

import "fmt"

// OperandDescriptor describes one matrix operand (A or B).
type OperandDescriptor struct {
	Element NumericType
	Layout  Layout

	// Alignment is the access granularity in elements. Every global load
	// moves Alignment contiguous elements.
	Alignment int
}

// AccessBits returns the width in bits of one global access.
func (d OperandDescriptor) AccessBits() int {
	return d.Element.Bits() * d.Alignment
}

// String returns e.g. "f16:row:8".
func (d OperandDescriptor) String() string {
	return fmt.Sprintf("%s:%s:%d", d.Element, d.Layout, d.Alignment)
}

// Validate checks the descriptor in isolation.
func (d OperandDescriptor) Validate(op string) error {
	if !d.Element.Valid() {
		return Errorf(KindInvalidDescriptor, op, "operand element type %v is not valid", d.Element)
	}
	if d.Alignment <= 0 {
		return Errorf(KindInvalidDescriptor, op, "operand alignment must be positive, got %d", d.Alignment)
	}
	if d.Layout != RowMajor && d.Layout != ColumnMajor {
		return Errorf(KindInvalidDescriptor, op, "operand layout %d is not valid", int(d.Layout))
	}
	return nil
}

// VectorDescriptor describes the fused scale/bias vector operand.
type VectorDescriptor struct {
	Element NumericType
	Layout  Layout
}

// String returns e.g. "f16:row".
func (d VectorDescriptor) String() string {
	return fmt.Sprintf("%s:%s", d.Element, d.Layout)
}

// TileHierarchy is the nested work partitioning of one threadblock.
type TileHierarchy struct {
	Block       GemmShape
	Warp        GemmShape
	Instruction GemmShape
}

// String returns "block/warp/instruction".
func (h TileHierarchy) String() string {
	return fmt.Sprintf("%v/%v/%v", h.Block, h.Warp, h.Instruction)
}

// Validate enforces positive extents and instruction | warp | block in every
// dimension. Nothing is rounded.
func (h TileHierarchy) Validate(op string) error {
	for _, s := range []struct {
		name  string
		shape GemmShape
	}{
		{"block", h.Block},
		{"warp", h.Warp},
		{"instruction", h.Instruction},
	} {
		if !s.shape.Positive() {
			return Errorf(KindInvalidDescriptor, op, "%s shape %v must be positive", s.name, s.shape)
		}
	}
	if !h.Warp.Divides(h.Block) {
		return Errorf(KindShapeMismatch, op, "warp shape %v does not divide block shape %v", h.Warp, h.Block)
	}
	if !h.Instruction.Divides(h.Warp) {
		return Errorf(KindShapeMismatch, op, "instruction shape %v does not divide warp shape %v", h.Instruction, h.Warp)
	}
	return nil
}

// WarpCount returns Block / Warp. Valid only after Validate.
func (h TileHierarchy) WarpCount() GemmShape {
	return h.Block.Div(h.Warp)
}

// FusionFlags are the behavioral switches of the fused mainloop.
type FusionFlags struct {
	// InternalTranspose is set when the problem was transposed to reach a
	// supported layout. It decides which operand role receives the fused
	// scale/bias: A when false, B when true.
	InternalTranspose bool

	// AccumulatorsRowMajor stores accumulators in row-major order, used when
	// the output layout is interleaved.
	AccumulatorsRowMajor bool

	// SharedMemoryClear fixes the handling of the under-filled final stage.
	SharedMemoryClear SharedMemoryClear
}

// MinStages is the smallest legal pipeline depth.
const MinStages = 2
