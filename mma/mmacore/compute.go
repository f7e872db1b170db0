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

const computeOp = "mmacore.computeType"

// computeType returns the element type the tensor cores consume for operands
// a and b, and the math operator actually used.
//
//   - equal types compute in that type;
//   - F32 operands compute in F16/BF16 only with the matching fast operator;
//   - same-width integers of different signedness compute in the signed one;
//   - a narrower integer operand is upcast to the wider operand's type.
//
// Anything else (f16 x bf16, float -> integer, binary mixing) is unsupported.
func computeType(params mma.ArchParams, a, b mma.NumericType, op mma.MathOperator) (mma.NumericType, mma.MathOperator, error) {
	switch op {
	case mma.MultiplyAddFastF16, mma.MultiplyAddFastBF16:
		if a != mma.F32 || b != mma.F32 {
			return mma.Invalid, op, mma.Errorf(mma.KindUnsupported, computeOp, "%v requires f32 operands, got %v x %v", op, a, b)
		}
		compute := mma.F16
		if op == mma.MultiplyAddFastBF16 {
			compute = mma.BF16
		}
		if !params.SupportsTensorOp(compute) {
			return mma.Invalid, op, unsupportedElement(params, compute)
		}
		return compute, op, nil
	case mma.MultiplyAdd, mma.MultiplyAddSaturate, mma.MultiplyAddMixedInputUpcast:
	default:
		return mma.Invalid, op, mma.Errorf(mma.KindInvalidDescriptor, computeOp, "math operator %v is not defined", op)
	}

	for _, t := range []mma.NumericType{a, b} {
		if !params.SupportsTensorOp(t) {
			return mma.Invalid, op, unsupportedElement(params, t)
		}
	}

	compute := a
	resolved := op
	switch {
	case a == b:
	case a.Bits() == b.Bits():
		if !a.IsInteger() || !b.IsInteger() || a == mma.B1 {
			return mma.Invalid, op, mma.Errorf(mma.KindUnsupported, computeOp, "operand types %v x %v cannot be mixed", a, b)
		}
		if b == mma.S8 || b == mma.S4 {
			compute = b
		}
	default:
		wide, narrow := a, b
		if b.Bits() > a.Bits() {
			wide, narrow = b, a
		}
		if !narrow.IsInteger() || narrow == mma.B1 || wide == mma.B1 {
			return mma.Invalid, op, mma.Errorf(mma.KindUnsupported, computeOp, "cannot upcast %v to %v", narrow, wide)
		}
		if op != mma.MultiplyAdd && op != mma.MultiplyAddMixedInputUpcast {
			return mma.Invalid, op, mma.Errorf(mma.KindUnsupported, computeOp, "mixed operands %v x %v need an upcasting operator, got %v", a, b, op)
		}
		compute = wide
		resolved = mma.MultiplyAddMixedInputUpcast
	}

	if op == mma.MultiplyAddSaturate && !compute.IsInteger() {
		return mma.Invalid, op, mma.Errorf(mma.KindUnsupported, computeOp, "%v needs integer operands, got %v", op, compute)
	}
	return compute, resolved, nil
}

func unsupportedElement(params mma.ArchParams, t mma.NumericType) error {
	return mma.Errorf(mma.KindUnsupported, computeOp, "%v tensor cores do not support %v", params.Arch, t)
}

// accumulatorType validates (or defaults, when requested is Invalid) the
// accumulator element for a compute type.
func accumulatorType(compute, requested mma.NumericType) (mma.NumericType, error) {
	const op = "mmacore.accumulatorType"

	var legal []mma.NumericType
	switch {
	case compute == mma.F64:
		legal = []mma.NumericType{mma.F64}
	case compute.IsInteger():
		legal = []mma.NumericType{mma.S32}
	case compute == mma.F16:
		legal = []mma.NumericType{mma.F32, mma.F16}
	default:
		legal = []mma.NumericType{mma.F32}
	}

	if requested == mma.Invalid {
		return legal[0], nil
	}
	for _, t := range legal {
		if t == requested {
			return t, nil
		}
	}
	return mma.Invalid, mma.Errorf(mma.KindUnsupported, op, "%v accumulator is not legal for %v compute (want one of %v)", requested, compute, legal)
}
