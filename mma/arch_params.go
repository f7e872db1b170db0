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

import "slices"

// WarpSize is the number of lanes in one lane-group.
const WarpSize = 32

// ArchParams defines architecture-specific limits used when specializing a
// tensor-op mainloop:
//   - SharedMemoryBytes: maximum dynamic shared memory per threadblock
//   - MaxThreads: maximum threads per threadblock
//   - Instructions: legal MMA instruction shapes per compute element type
//
// An element type missing from Instructions has no tensor-core support on
// that architecture.
type ArchParams struct {
	Arch              Arch
	SharedMemoryBytes int
	MaxThreads        int
	Instructions      map[NumericType][]GemmShape
}

// ArchParamsSM70 returns limits for Volta.
// Tensor cores accept f16 only, through the 8x8x4 quad-pair MMA.
func ArchParamsSM70() ArchParams {
	return ArchParams{
		Arch:              SM70,
		SharedMemoryBytes: 96 * 1024,
		MaxThreads:        1024,
		Instructions: map[NumericType][]GemmShape{
			F16: {{M: 8, N: 8, K: 4}},
		},
	}
}

// ArchParamsSM75 returns limits for Turing.
// Adds integer and binary tensor cores.
func ArchParamsSM75() ArchParams {
	return ArchParams{
		Arch:              SM75,
		SharedMemoryBytes: 64 * 1024,
		MaxThreads:        1024,
		Instructions: map[NumericType][]GemmShape{
			F16: {{M: 16, N: 8, K: 8}},
			S8:  {{M: 8, N: 8, K: 16}},
			U8:  {{M: 8, N: 8, K: 16}},
			S4:  {{M: 8, N: 8, K: 32}},
			U4:  {{M: 8, N: 8, K: 32}},
			B1:  {{M: 8, N: 8, K: 128}},
		},
	}
}

// ampereInstructions is the tensor-op instruction table shared by SM80 and
// later architectures on the multistage path.
func ampereInstructions() map[NumericType][]GemmShape {
	half := []GemmShape{{M: 16, N: 8, K: 16}, {M: 16, N: 8, K: 8}}
	int8 := []GemmShape{{M: 16, N: 8, K: 32}, {M: 16, N: 8, K: 16}, {M: 8, N: 8, K: 16}}
	int4 := []GemmShape{{M: 16, N: 8, K: 64}, {M: 16, N: 8, K: 32}, {M: 8, N: 8, K: 32}}
	return map[NumericType][]GemmShape{
		F16:  half,
		BF16: half,
		TF32: {{M: 16, N: 8, K: 8}, {M: 16, N: 8, K: 4}},
		S8:   int8,
		U8:   int8,
		S4:   int4,
		U4:   int4,
		B1:   {{M: 16, N: 8, K: 256}, {M: 8, N: 8, K: 128}},
		F64:  {{M: 8, N: 8, K: 4}},
	}
}

// ArchParamsSM80 returns limits for A100.
// 163KB of the 164KB shared memory carve-out is addressable by one block.
func ArchParamsSM80() ArchParams {
	return ArchParams{
		Arch:              SM80,
		SharedMemoryBytes: 163 * 1024,
		MaxThreads:        1024,
		Instructions:      ampereInstructions(),
	}
}

// ArchParamsSM86 returns limits for GA10x parts (99KB per block).
func ArchParamsSM86() ArchParams {
	p := ArchParamsSM80()
	p.Arch = SM86
	p.SharedMemoryBytes = 99 * 1024
	return p
}

// ArchParamsSM89 returns limits for Ada (99KB per block).
func ArchParamsSM89() ArchParams {
	p := ArchParamsSM80()
	p.Arch = SM89
	p.SharedMemoryBytes = 99 * 1024
	return p
}

// ArchParamsSM90 returns limits for Hopper (227KB per block).
func ArchParamsSM90() ArchParams {
	p := ArchParamsSM80()
	p.Arch = SM90
	p.SharedMemoryBytes = 227 * 1024
	return p
}

// ArchParamsFor returns the limits of a, or false for an unknown arch.
func ArchParamsFor(a Arch) (ArchParams, bool) {
	switch a {
	case SM70:
		return ArchParamsSM70(), true
	case SM75:
		return ArchParamsSM75(), true
	case SM80:
		return ArchParamsSM80(), true
	case SM86:
		return ArchParamsSM86(), true
	case SM89:
		return ArchParamsSM89(), true
	case SM90:
		return ArchParamsSM90(), true
	}
	return ArchParams{}, false
}

// SupportsTensorOp reports whether tensor cores accept element type t.
func (p ArchParams) SupportsTensorOp(t NumericType) bool {
	_, ok := p.Instructions[t]
	return ok
}

// LegalInstruction reports whether shape is a native MMA shape for the
// compute element type t.
func (p ArchParams) LegalInstruction(t NumericType, shape GemmShape) bool {
	return slices.Contains(p.Instructions[t], shape)
}
