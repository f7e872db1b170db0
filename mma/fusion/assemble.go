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

// Package fusion assembles the configuration of a multistage GEMM mainloop
// with a fused per-column scale/bias (softmax statistic) applied to one
// operand as it is streamed.
//
// Assembly is dependency ordered:
//
//  1. the warp-tiling plan (mmacore.Provider) fixes warp arrangement,
//     compute-unit shape and the operand thread maps;
//  2. tile readers for A and B are built over those thread maps with the
//     derived cache policies;
//  3. the scale/bias vector reader is built over one warp's N extent;
//  4. everything is bound into one immutable PipelineConfig.
//
// Any descriptor mismatch fails the whole specialization; no partially
// assembled configuration is ever returned.
package fusion

import (
	"fmt"

	"k8s.io/klog/v2"

	"github.com/ajroetker/mmaplan/mma"
	"github.com/ajroetker/mmaplan/mma/mmacore"
	"github.com/ajroetker/mmaplan/mma/policy"
	"github.com/ajroetker/mmaplan/mma/transform"
)

// Deps are the externally supplied building blocks. Nil fields use the
// reference implementations.
type Deps struct {
	Core    mmacore.Provider
	Readers transform.ReaderFactory
	Vectors transform.VectorReaderFactory
}

func (d Deps) withDefaults() Deps {
	if d.Core == nil {
		d.Core = mmacore.Default
	}
	if d.Readers == nil {
		d.Readers = transform.Predicated
	}
	if d.Vectors == nil {
		d.Vectors = transform.ScaleBias
	}
	return d
}

// Resolve derives the cache policies for req and assembles it with the
// reference building blocks.
func Resolve(req Request) (*PipelineConfig, error) {
	return Assemble(req, policy.Derive(req.A, req.B), Deps{})
}

// Assemble builds the PipelineConfig for req using the given cache policies.
func Assemble(req Request, pol policy.Set, deps Deps) (*PipelineConfig, error) {
	const op = "fusion.Assemble"
	deps = deps.withDefaults()

	if err := validateRequest(req); err != nil {
		return nil, err
	}

	// Step 1: warp-tiling plan. The compute-unit class is always the tensor
	// core class and the core's accumulators are always row-major.
	core, err := deps.Core.Provide(mmacore.Request{
		Tiles:             req.Tiles,
		A:                 req.A,
		B:                 req.B,
		Accumulator:       req.Accumulator,
		AccumulatorLayout: mma.RowMajor,
		Profile:           req.Profile,
		Stages:            req.Stages,
		UnitClass:         mma.TensorOp,
		Operator:          req.Operator,
		CacheA:            pol.A,
		CacheB:            pol.B,
	})
	if err != nil {
		return nil, fmt.Errorf("warp-tiling plan: %w", err)
	}
	if err := checkCore(core, req); err != nil {
		return nil, err
	}

	// Step 2: operand tile readers over the provider's thread maps.
	block := req.Tiles.Block
	readerA, err := deps.Readers.NewTileReader(transform.TileSpec{
		Extent:      block.MK(),
		Element:     req.A.Element,
		Layout:      req.A.Layout,
		Alignment:   req.A.Alignment,
		AdvanceRank: 1,
		ThreadMap:   core.ThreadMapA,
		CacheOp:     pol.A,
	})
	if err != nil {
		return nil, fmt.Errorf("operand A reader: %w", err)
	}
	readerB, err := deps.Readers.NewTileReader(transform.TileSpec{
		Extent:      block.KN(),
		Element:     req.B.Element,
		Layout:      req.B.Layout,
		Alignment:   req.B.Alignment,
		AdvanceRank: 0,
		ThreadMap:   core.ThreadMapB,
		CacheOp:     pol.B,
	})
	if err != nil {
		return nil, fmt.Errorf("operand B reader: %w", err)
	}

	// Step 3: scale/bias vector reader, one warp tile wide.
	normSum, err := deps.Vectors.NewVectorReader(transform.VectorSpec{
		Extent:  mma.MatrixShape{Rows: 1, Columns: req.Tiles.Warp.N},
		Element: req.Norm.Element,
		Layout:  req.Norm.Layout,
		CacheOp: pol.Norm,
	})
	if err != nil {
		return nil, fmt.Errorf("scale/bias reader: %w", err)
	}

	// Step 4: bind.
	accLayout := mma.ColumnMajor
	if req.Flags.AccumulatorsRowMajor {
		accLayout = mma.RowMajor
	}
	cfg := &PipelineConfig{
		Profile:           req.Profile,
		Core:              core,
		ReaderA:           readerA,
		ReaderB:           readerB,
		NormSum:           normSum,
		Policies:          pol,
		Accumulator:       core.ElementAccumulator,
		AccumulatorLayout: accLayout,
		Stages:            req.Stages,
		Flags:             req.Flags,
	}

	params, _ := mma.ArchParamsFor(req.Profile.Arch)
	if smem := cfg.SharedMemoryBytes(); smem > params.SharedMemoryBytes {
		return nil, mma.Errorf(mma.KindResourceLimit, op,
			"%d stages need %d bytes of shared memory, %v allows %d", req.Stages, smem, req.Profile.Arch, params.SharedMemoryBytes)
	}

	klog.V(4).InfoS("Assembled pipeline", "config", cfg.String())
	return cfg, nil
}

// validateRequest rejects descriptors that are malformed regardless of
// which building blocks are plugged in.
func validateRequest(req Request) error {
	const op = "fusion.Assemble"

	if err := req.A.Validate(op); err != nil {
		return fmt.Errorf("operand A: %w", err)
	}
	if err := req.B.Validate(op); err != nil {
		return fmt.Errorf("operand B: %w", err)
	}
	if !req.Norm.Element.Valid() {
		return mma.Errorf(mma.KindInvalidDescriptor, op, "scale/bias element type %v is not valid", req.Norm.Element)
	}
	if err := req.Tiles.Validate(op); err != nil {
		return err
	}
	if req.Stages < mma.MinStages {
		return mma.Errorf(mma.KindInvalidDescriptor, op, "stage count %d is below %d", req.Stages, mma.MinStages)
	}
	if _, ok := mma.ArchParamsFor(req.Profile.Arch); !ok {
		return mma.Errorf(mma.KindUnsupported, op, "unknown architecture %v", req.Profile.Arch)
	}
	if !req.Operator.Valid() {
		return mma.Errorf(mma.KindInvalidDescriptor, op, "math operator %v is not defined", req.Operator)
	}
	if !req.Flags.SharedMemoryClear.Valid() {
		return mma.Errorf(mma.KindInvalidDescriptor, op, "shared memory clear option %v is not defined", req.Flags.SharedMemoryClear)
	}
	if !req.Profile.OperatorClass.Valid() {
		return mma.Errorf(mma.KindInvalidDescriptor, op, "operator class %v is not defined", req.Profile.OperatorClass)
	}
	if req.Profile.OperatorClass != mma.TensorOp {
		return mma.Errorf(mma.KindUnsupported, op,
			"profile declares %v, the fused mainloop runs on %v only", req.Profile.OperatorClass, mma.TensorOp)
	}
	return nil
}

// checkCore verifies that a provider's plan agrees with the request, so a
// custom provider cannot smuggle in an inconsistent configuration.
func checkCore(core *mmacore.Core, req Request) error {
	const op = "fusion.Assemble"

	if core == nil {
		return mma.Errorf(mma.KindInvalidDescriptor, op, "warp-tiling provider returned no plan")
	}
	if core.Shape != req.Tiles.Block || core.WarpShape != req.Tiles.Warp || core.InstructionShape != req.Tiles.Instruction {
		return mma.Errorf(mma.KindShapeMismatch, op,
			"provider plan %v/%v/%v disagrees with requested %v", core.Shape, core.WarpShape, core.InstructionShape, req.Tiles)
	}
	if core.Stages != req.Stages {
		return mma.Errorf(mma.KindShapeMismatch, op, "provider plan has %d stages, requested %d", core.Stages, req.Stages)
	}
	if want := core.WarpCount.Count() * mma.WarpSize; core.Threads != want ||
		core.ThreadMapA.Threads != want || core.ThreadMapB.Threads != want {
		return mma.Errorf(mma.KindShapeMismatch, op,
			"thread counts disagree: core %d, map A %d, map B %d, warps need %d",
			core.Threads, core.ThreadMapA.Threads, core.ThreadMapB.Threads, want)
	}
	return nil
}
