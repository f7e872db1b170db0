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

import (
	"fmt"

	"github.com/ajroetker/mmaplan/mma"
)

// Default is the reference multistage tensor-op provider.
var Default Provider = ProviderFunc(provideTensorOp)

func provideTensorOp(req Request) (*Core, error) {
	const op = "mmacore.Provide"

	if err := req.A.Validate(op); err != nil {
		return nil, wrapOperand("A", err)
	}
	if err := req.B.Validate(op); err != nil {
		return nil, wrapOperand("B", err)
	}
	if err := req.Tiles.Validate(op); err != nil {
		return nil, err
	}
	if req.Stages < mma.MinStages {
		return nil, mma.Errorf(mma.KindInvalidDescriptor, op, "stage count %d is below %d", req.Stages, mma.MinStages)
	}
	if req.UnitClass != mma.TensorOp {
		return nil, mma.Errorf(mma.KindUnsupported, op, "operator class %v has no multistage core", req.UnitClass)
	}
	params, ok := mma.ArchParamsFor(req.Profile.Arch)
	if !ok {
		return nil, mma.Errorf(mma.KindUnsupported, op, "unknown architecture %v", req.Profile.Arch)
	}
	if !req.Profile.Arch.HasAsyncCopy() {
		return nil, mma.Errorf(mma.KindUnsupported, op,
			"multistage mainloop needs asynchronous copy (sm80 or newer), got %v", req.Profile.Arch)
	}

	compute, operator, err := computeType(params, req.A.Element, req.B.Element, req.Operator)
	if err != nil {
		return nil, err
	}
	inst := req.Tiles.Instruction
	if !params.LegalInstruction(compute, inst) {
		return nil, mma.Errorf(mma.KindUnsupported, op,
			"instruction shape %v is not a %v tensor-op shape on %v (legal: %v)", inst, compute, params.Arch, params.Instructions[compute])
	}
	acc, err := accumulatorType(compute, req.Accumulator)
	if err != nil {
		return nil, err
	}

	warpCount := req.Tiles.WarpCount()
	threads := warpCount.Count() * mma.WarpSize
	if threads > params.MaxThreads {
		return nil, mma.Errorf(mma.KindResourceLimit, op,
			"%v warps need %d threads, %v allows %d", warpCount, threads, params.Arch, params.MaxThreads)
	}

	block := req.Tiles.Block
	tmA, err := operandThreadMap(req.A, block.MK(), req.A.Layout == mma.RowMajor, threads)
	if err != nil {
		return nil, wrapOperand("A", err)
	}
	tmB, err := operandThreadMap(req.B, block.KN(), req.B.Layout == mma.ColumnMajor, threads)
	if err != nil {
		return nil, wrapOperand("B", err)
	}

	return &Core{
		Shape:              block,
		WarpShape:          req.Tiles.Warp,
		InstructionShape:   inst,
		WarpCount:          warpCount,
		Threads:            threads,
		PartitionsK:        warpCount.K,
		ElementA:           req.A.Element,
		ElementB:           req.B.Element,
		ComputeElement:     compute,
		ElementAccumulator: acc,
		LayoutA:            req.A.Layout,
		LayoutB:            req.B.Layout,
		LayoutAccumulator:  req.AccumulatorLayout,
		OperatorClass:      req.UnitClass,
		Operator:           operator,
		Stages:             req.Stages,
		CacheA:             req.CacheA,
		CacheB:             req.CacheB,
		ThreadMapA:         tmA,
		ThreadMapB:         tmB,
		SmemTileA:          block.MK(),
		SmemTileB:          block.KN(),
		Warp: WarpPolicy{
			Shape:         req.Tiles.Warp,
			Instruction:   inst,
			MmaIterations: req.Tiles.Warp.Div(inst),
		},
	}, nil
}

// operandThreadMap picks the warp thread arrangement for one operand tile.
//
// Congruous tiles (contiguous dimension is M or N) use an 8x4 lane
// arrangement. Crosswise tiles (contiguous dimension is K) put as many lanes
// along K as the K extent holds accesses, up to 8.
func operandThreadMap(desc mma.OperandDescriptor, extent mma.MatrixShape, crosswise bool, threads int) (ThreadMap, error) {
	epa := AccessBits / desc.Element.Bits()
	shape := extent.PitchLinear(desc.Layout)

	arrangement := mma.PitchLinearShape{Contiguous: 8, Strided: 4}
	if crosswise {
		lanes := min(shape.Contiguous/epa, 8)
		if lanes <= 0 || mma.WarpSize%lanes != 0 {
			return ThreadMap{}, mma.Errorf(mma.KindShapeMismatch, "mmacore.Provide",
				"crosswise K extent %d holds %d accesses of %d elements, need a power of two", shape.Contiguous, shape.Contiguous/epa, epa)
		}
		arrangement = mma.PitchLinearShape{Contiguous: lanes, Strided: mma.WarpSize / lanes}
	}
	return NewWarpRakedThreadMap(shape, threads, arrangement, epa)
}

func wrapOperand(role string, err error) error {
	return fmt.Errorf("operand %s: %w", role, err)
}
