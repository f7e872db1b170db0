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

// Package mma holds the static descriptors that select a fused
// matrix-multiply + scale/bias mainloop for a tensor-core accelerator.
//
// Everything here is a plain comparable value: element types, layouts,
// the three-level tile hierarchy, the target architecture and the fusion
// switches. Sub-packages turn these descriptors into a plan:
//
//   - policy: per-operand cache operation (bypass L1 or cache always)
//   - mmacore: warp-level tiling plan and thread maps
//   - transform: predicated tile readers and the scale/bias vector reader
//   - fusion: dependency-ordered assembly of one PipelineConfig
//   - catalog: named variants loaded from YAML and resolved in bulk
//   - workerpool: persistent goroutines for batch resolution
//
// Example:
//
//	req := fusion.Request{
//		A:       mma.OperandDescriptor{Element: mma.F16, Layout: mma.RowMajor, Alignment: 8},
//		B:       mma.OperandDescriptor{Element: mma.F16, Layout: mma.ColumnMajor, Alignment: 8},
//		Norm:    mma.VectorDescriptor{Element: mma.F16, Layout: mma.RowMajor},
//		Profile: mma.Profile{Arch: mma.SM80, OperatorClass: mma.TensorOp},
//		Tiles: mma.TileHierarchy{
//			Block:       mma.GemmShape{M: 128, N: 128, K: 32},
//			Warp:        mma.GemmShape{M: 64, N: 64, K: 32},
//			Instruction: mma.GemmShape{M: 16, N: 8, K: 16},
//		},
//		Stages: 3,
//	}
//	cfg, err := fusion.Resolve(req)
//
// Descriptor mismatches are configuration errors (see ConfigError); they are
// never coerced into a nearby legal configuration.
package mma
