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

package main

import (
	"flag"
	"sync"

	"github.com/spf13/cobra"
	"k8s.io/klog/v2"
)

// klog registers its flags on a FlagSet exactly once per process.
var klogFlags = sync.OnceValue(func() *flag.FlagSet {
	fs := flag.NewFlagSet("klog", flag.ContinueOnError)
	klog.InitFlags(fs)
	return fs
})

func newRootCmd() *cobra.Command {
	root := &cobra.Command{
		Use:           "mmaplan",
		Short:         "Resolve fused scale/bias GEMM mainloop configurations",
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	root.PersistentFlags().AddGoFlagSet(klogFlags())

	root.AddCommand(
		newResolveCmd(),
		newCatalogCmd(),
		newGenCmd(),
		newArchsCmd(),
	)
	return root
}
