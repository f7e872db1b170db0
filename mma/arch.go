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

import (
	"fmt"
	"os"
	"strings"
)

// Arch is the accelerator generation a kernel is specialized for.
type Arch int

const (
	// ArchUnknown is the zero value.
	ArchUnknown Arch = iota

	// SM70 (Volta): first tensor cores, f16 only, no asynchronous copy.
	SM70

	// SM75 (Turing): adds integer tensor cores.
	SM75

	// SM80 (Ampere A100): bf16/tf32/f64 tensor cores and cp.async, which
	// makes multistage mainloops possible.
	SM80

	// SM86 (Ampere GA10x): SM80 feature set with less shared memory.
	SM86

	// SM89 (Ada): SM80 feature set, fp8 is not modeled.
	SM89

	// SM90 (Hopper), driven here through the SM80-compatible multistage path.
	SM90
)

// String returns the lower-case tag, e.g. "sm80".
func (a Arch) String() string {
	switch a {
	case SM70:
		return "sm70"
	case SM75:
		return "sm75"
	case SM80:
		return "sm80"
	case SM86:
		return "sm86"
	case SM89:
		return "sm89"
	case SM90:
		return "sm90"
	default:
		return "unknown"
	}
}

// HasAsyncCopy reports whether the architecture has the 128-bit
// global->shared asynchronous copy path used by multistage pipelines.
func (a Arch) HasAsyncCopy() bool {
	return a >= SM80
}

// AvailableArchs returns the tags accepted by ParseArch, oldest first.
func AvailableArchs() []string {
	return []string{"sm70", "sm75", "sm80", "sm86", "sm89", "sm90"}
}

// ParseArch parses "sm80", "SM_80", "80" and similar spellings.
func ParseArch(s string) (Arch, error) {
	tag := strings.ToLower(strings.TrimSpace(s))
	tag = strings.TrimPrefix(tag, "sm")
	tag = strings.TrimPrefix(tag, "_")
	switch tag {
	case "70":
		return SM70, nil
	case "75":
		return SM75, nil
	case "80":
		return SM80, nil
	case "86":
		return SM86, nil
	case "89":
		return SM89, nil
	case "90", "90a":
		return SM90, nil
	}
	return ArchUnknown, fmt.Errorf("unknown architecture %q (available: %s)", s, strings.Join(AvailableArchs(), ","))
}

// ArchEnvVar names the environment variable consulted by ArchFromEnv.
const ArchEnvVar = "MMAPLAN_ARCH"

// ArchFromEnv returns the architecture named by MMAPLAN_ARCH, or def when the
// variable is unset. A set but unparsable value is an error rather than a
// silent fallback.
func ArchFromEnv(def Arch) (Arch, error) {
	val := os.Getenv(ArchEnvVar)
	if val == "" {
		return def, nil
	}
	return ParseArch(val)
}

// OperatorClass is the execution-unit class that performs the multiply.
type OperatorClass int

const (
	// TensorOp uses the matrix (tensor core) units.
	TensorOp OperatorClass = iota

	// Simt uses the general-purpose vector lanes.
	Simt

	// WmmaTensorOp uses tensor cores through the warp-level WMMA API.
	WmmaTensorOp
)

// String returns the class name.
func (c OperatorClass) String() string {
	switch c {
	case TensorOp:
		return "tensorop"
	case Simt:
		return "simt"
	case WmmaTensorOp:
		return "wmmatensorop"
	default:
		return fmt.Sprintf("unknown(%d)", int(c))
	}
}

// Valid reports whether c is one of the defined classes.
func (c OperatorClass) Valid() bool {
	return c >= TensorOp && c <= WmmaTensorOp
}

// ParseOperatorClass is the inverse of OperatorClass.String.
func ParseOperatorClass(s string) (OperatorClass, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "tensorop", "tensor", "tc":
		return TensorOp, nil
	case "simt":
		return Simt, nil
	case "wmmatensorop", "wmma":
		return WmmaTensorOp, nil
	}
	return TensorOp, fmt.Errorf("unknown operator class %q", s)
}

// Profile is the target architecture together with the execution-unit class
// the kernel is built for.
type Profile struct {
	Arch          Arch
	OperatorClass OperatorClass
}

// String returns e.g. "sm80/tensorop".
func (p Profile) String() string {
	return p.Arch.String() + "/" + p.OperatorClass.String()
}

// MathOperator selects the multiply-accumulate flavor of the instruction.
type MathOperator int

const (
	// MultiplyAdd is the default fused multiply-add.
	MultiplyAdd MathOperator = iota

	// MultiplyAddSaturate clamps integer accumulation instead of wrapping.
	MultiplyAddSaturate

	// MultiplyAddFastF16 runs F32 operands through F16 tensor cores.
	MultiplyAddFastF16

	// MultiplyAddFastBF16 runs F32 operands through BF16 tensor cores.
	MultiplyAddFastBF16

	// MultiplyAddMixedInputUpcast converts the narrower operand to the wider
	// operand's type before the multiply.
	MultiplyAddMixedInputUpcast
)

// String returns the operator name.
func (o MathOperator) String() string {
	switch o {
	case MultiplyAdd:
		return "multiply_add"
	case MultiplyAddSaturate:
		return "multiply_add_saturate"
	case MultiplyAddFastF16:
		return "multiply_add_fast_f16"
	case MultiplyAddFastBF16:
		return "multiply_add_fast_bf16"
	case MultiplyAddMixedInputUpcast:
		return "multiply_add_mixed_input_upcast"
	default:
		return fmt.Sprintf("unknown(%d)", int(o))
	}
}

// Valid reports whether o is one of the defined operators.
func (o MathOperator) Valid() bool {
	return o >= MultiplyAdd && o <= MultiplyAddMixedInputUpcast
}

// ParseMathOperator is the inverse of MathOperator.String. The empty string
// selects MultiplyAdd.
func ParseMathOperator(s string) (MathOperator, error) {
	name := strings.ToLower(strings.TrimSpace(s))
	name = strings.ReplaceAll(name, "-", "_")
	switch name {
	case "", "multiply_add", "mma":
		return MultiplyAdd, nil
	case "multiply_add_saturate", "saturate":
		return MultiplyAddSaturate, nil
	case "multiply_add_fast_f16", "fast_f16":
		return MultiplyAddFastF16, nil
	case "multiply_add_fast_bf16", "fast_bf16":
		return MultiplyAddFastBF16, nil
	case "multiply_add_mixed_input_upcast", "upcast":
		return MultiplyAddMixedInputUpcast, nil
	}
	return MultiplyAdd, fmt.Errorf("unknown math operator %q", s)
}

// CacheOperation is the caching strategy of a global->shared copy.
type CacheOperation int

const (
	// CacheAlways caches at all levels (L1 and L2). Transfers narrower than
	// the bulk-transfer width go through L1 so they can coalesce.
	CacheAlways CacheOperation = iota

	// CacheGlobal caches at L2 only and bypasses L1.
	CacheGlobal
)

// String returns "always" or "global".
func (c CacheOperation) String() string {
	switch c {
	case CacheAlways:
		return "always"
	case CacheGlobal:
		return "global"
	default:
		return "unknown"
	}
}

// BypassesL1 reports whether the copy skips the on-chip L1 cache.
func (c CacheOperation) BypassesL1() bool {
	return c == CacheGlobal
}

// SharedMemoryClear selects how the last, partially filled stage at the K
// boundary is handled in shared memory.
type SharedMemoryClear int

const (
	// ClearNone skips out-of-bound copies through predicates; stale shared
	// memory is never read because the math is predicated too.
	ClearNone SharedMemoryClear = iota

	// ClearZFill zero-fills every out-of-bound copy (cp.async zfill).
	ClearZFill

	// ClearLastStage zero-fills only the residue of the final stage.
	ClearLastStage
)

// String returns the option name.
func (c SharedMemoryClear) String() string {
	switch c {
	case ClearNone:
		return "none"
	case ClearZFill:
		return "zfill"
	case ClearLastStage:
		return "clear_last_stage"
	default:
		return fmt.Sprintf("unknown(%d)", int(c))
	}
}

// Valid reports whether c is one of the defined options.
func (c SharedMemoryClear) Valid() bool {
	return c >= ClearNone && c <= ClearLastStage
}

// ParseSharedMemoryClear is the inverse of SharedMemoryClear.String.
func ParseSharedMemoryClear(s string) (SharedMemoryClear, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "", "none", "predicate":
		return ClearNone, nil
	case "zfill":
		return ClearZFill, nil
	case "clear_last_stage", "last_stage":
		return ClearLastStage, nil
	}
	return ClearNone, fmt.Errorf("unknown shared memory clear option %q", s)
}
