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
	"fmt"
	"slices"
	"strings"
	"text/tabwriter"

	"github.com/samber/lo"
	"github.com/spf13/cobra"

	"github.com/ajroetker/mmaplan/mma"
)

type archJSON struct {
	Arch              string              `json:"arch"`
	AsyncCopy         bool                `json:"async_copy"`
	SharedMemoryBytes int                 `json:"shared_memory_bytes"`
	MaxThreads        int                 `json:"max_threads"`
	Instructions      map[string][]string `json:"instructions"`
}

func newArchsCmd() *cobra.Command {
	var asJSON bool
	cmd := &cobra.Command{
		Use:   "archs",
		Short: "List the supported architectures and their tensor-op instructions",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			var rows []archJSON
			for _, tag := range mma.AvailableArchs() {
				arch, err := mma.ParseArch(tag)
				if err != nil {
					return err
				}
				params, _ := mma.ArchParamsFor(arch)
				rows = append(rows, archJSON{
					Arch:              arch.String(),
					AsyncCopy:         arch.HasAsyncCopy(),
					SharedMemoryBytes: params.SharedMemoryBytes,
					MaxThreads:        params.MaxThreads,
					Instructions: lo.MapEntries(params.Instructions, func(t mma.NumericType, shapes []mma.GemmShape) (string, []string) {
						return t.String(), lo.Map(shapes, func(s mma.GemmShape, _ int) string { return s.String() })
					}),
				})
			}

			out := cmd.OutOrStdout()
			if asJSON {
				return writeJSON(out, rows)
			}
			tw := tabwriter.NewWriter(out, 0, 4, 2, ' ', 0)
			fmt.Fprintln(tw, "ARCH\tASYNC COPY\tSMEM/BLOCK\tMAX THREADS\tTENSOR-OP TYPES")
			for _, r := range rows {
				types := lo.Keys(r.Instructions)
				slices.Sort(types)
				fmt.Fprintf(tw, "%s\t%t\t%d\t%d\t%s\n", r.Arch, r.AsyncCopy, r.SharedMemoryBytes, r.MaxThreads, strings.Join(types, ","))
			}
			return tw.Flush()
		},
	}
	cmd.Flags().BoolVar(&asJSON, "json", false, "print as JSON")
	return cmd
}
