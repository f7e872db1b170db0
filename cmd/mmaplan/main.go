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

// Command mmaplan resolves fused scale/bias GEMM mainloop specializations.
//
// Usage:
//
//	mmaplan resolve --a s8:row:16 --b f16:column:4 --norm f16 \
//	    --block 128x128x32 --warp 64x64x32 --instruction 16x8x16 --stages 3
//	mmaplan catalog kernels.yaml --arch sm80 --tag prefill
//	mmaplan gen kernels.yaml --pkg kernels --output variants_gen.go
//	mmaplan archs
//
// The default target architecture is read from MMAPLAN_ARCH (sm80 when
// unset). Verbose logging is enabled with -v=2 or higher.
package main

import (
	"os"

	"k8s.io/klog/v2"
)

func main() {
	defer klog.Flush()
	if err := newRootCmd().Execute(); err != nil {
		klog.ErrorS(err, "mmaplan failed")
		klog.Flush()
		os.Exit(1)
	}
}
