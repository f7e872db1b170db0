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

// Package policy derives the cache operation used to stream each operand of
// the fused mainloop from global memory.
//
// The rule is a fixed-width check against the asynchronous copy path:
//
//	bits(element) * alignment == BulkTransferBits  =>  CacheGlobal (bypass L1)
//	otherwise                                      =>  CacheAlways
//
// The scale/bias vector shares operand A's streaming path, so its policy is a
// copy of A's.
package policy

import "github.com/ajroetker/mmaplan/mma"

// BulkTransferBits is the width of one asynchronous global->shared copy.
const BulkTransferBits = 128

// Set is the derived cache operation for each streamed operand.
type Set struct {
	A    mma.CacheOperation
	B    mma.CacheOperation
	Norm mma.CacheOperation
}

// CacheOperationFor returns the cache operation for one operand.
func CacheOperationFor(op mma.OperandDescriptor) mma.CacheOperation {
	if op.AccessBits() == BulkTransferBits {
		return mma.CacheGlobal
	}
	return mma.CacheAlways
}

// Derive computes the cache operations for A, B and the scale/bias vector.
//
// Norm always equals A, whichever operand receives the fused scale/bias.
// This mirrors how the vector is streamed today; it is not re-derived from
// the vector's own descriptor.
func Derive(a, b mma.OperandDescriptor) Set {
	cacheA := CacheOperationFor(a)
	return Set{
		A:    cacheA,
		B:    CacheOperationFor(b),
		Norm: cacheA,
	}
}
