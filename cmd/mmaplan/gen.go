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
	"bytes"
	"cmp"
	"fmt"
	"os"
	"path/filepath"
	"slices"
	"text/template"

	"github.com/spf13/cobra"
	"golang.org/x/tools/imports"
	"k8s.io/klog/v2"

	"github.com/ajroetker/mmaplan/mma"
	"github.com/ajroetker/mmaplan/mma/catalog"
)

func newGenCmd() *cobra.Command {
	var (
		sel        selection
		pkg        string
		output     string
		skipFailed bool
	)
	cmd := &cobra.Command{
		Use:   "gen FILE",
		Short: "Generate a Go table of the resolved variants of a catalog",
		Long: `Gen resolves a catalog and writes a Go source file holding one table row per
variant, for build drivers that instantiate the kernels. Use it from
go:generate:

	//go:generate mmaplan gen kernels.yaml --pkg kernels --output variants_gen.go`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			variants, err := sel.load(args[0])
			if err != nil {
				return err
			}
			results, err := sel.resolve(cmd, variants)
			if err != nil && !skipFailed {
				return err
			}
			if err != nil {
				klog.InfoS("Skipping unresolvable variants", "failed", len(results)-len(catalog.Succeeded(results)))
			}

			src, err := generateTable(pkg, filepath.Base(args[0]), catalog.Succeeded(results))
			if err != nil {
				return err
			}
			if output == "" || output == "-" {
				_, err = cmd.OutOrStdout().Write(src)
				return err
			}
			if err := os.WriteFile(output, src, 0644); err != nil {
				return fmt.Errorf("write table: %w", err)
			}
			klog.V(1).InfoS("Wrote variant table", "path", output, "variants", len(catalog.Succeeded(results)))
			return nil
		},
	}
	sel.register(cmd.Flags())
	f := cmd.Flags()
	f.StringVar(&pkg, "pkg", "kernels", "package name of the generated file")
	f.StringVarP(&output, "output", "o", "", "output file (default stdout)")
	f.BoolVar(&skipFailed, "skip-failed", false, "leave unresolvable variants out instead of failing")
	return cmd
}

// tableRow is one generated Variant literal.
type tableRow struct {
	Name                     string
	Arch                     string
	Block, Warp, Instruction mma.GemmShape
	Stages                   int
	Threads                  int
	SharedMemory             int
	A, B, Norm               string
	Compute, Acc             string
	CacheA, CacheB           string
	CacheNorm                string
	NormalizeB               bool
	AccRowMajor              bool
	AccessA, AccessB         int
	AccessNorm               int
	ZFill, ClearLastStage    bool
}

var tableTemplate = template.Must(template.New("table").Parse(`// Code generated by mmaplan gen from {{.Source}}. DO NOT EDIT.

package {{.Package}}

import "sort"

// Variant is one resolved fused scale/bias mainloop specialization.
type Variant struct {
	Name string
	Arch string

	Block, Warp, Instruction [3]int // M, N, K
	Stages                   int
	Threads                  int
	SharedMemoryBytes        int

	ElementA, ElementB, ElementNorm string
	Compute, Accumulator            string
	AccumulatorsRowMajor            bool

	// Cache operations: "global" bypasses L1, "always" caches at all levels.
	CacheA, CacheB, CacheNorm string

	// NormalizeB is set when the scale/bias applies to operand B.
	NormalizeB bool

	ElementsPerAccessA, ElementsPerAccessB, ElementsPerAccessNorm int

	ZFill, ClearLastStage bool
}

// Variants is sorted by Name.
var Variants = []Variant{
{{- range .Rows}}
	{
		Name: {{printf "%q" .Name}},
		Arch: {{printf "%q" .Arch}},
		Block: [3]int{ {{- .Block.M}}, {{.Block.N}}, {{.Block.K -}} },
		Warp: [3]int{ {{- .Warp.M}}, {{.Warp.N}}, {{.Warp.K -}} },
		Instruction: [3]int{ {{- .Instruction.M}}, {{.Instruction.N}}, {{.Instruction.K -}} },
		Stages: {{.Stages}},
		Threads: {{.Threads}},
		SharedMemoryBytes: {{.SharedMemory}},
		ElementA: {{printf "%q" .A}},
		ElementB: {{printf "%q" .B}},
		ElementNorm: {{printf "%q" .Norm}},
		Compute: {{printf "%q" .Compute}},
		Accumulator: {{printf "%q" .Acc}},
		AccumulatorsRowMajor: {{.AccRowMajor}},
		CacheA: {{printf "%q" .CacheA}},
		CacheB: {{printf "%q" .CacheB}},
		CacheNorm: {{printf "%q" .CacheNorm}},
		NormalizeB: {{.NormalizeB}},
		ElementsPerAccessA: {{.AccessA}},
		ElementsPerAccessB: {{.AccessB}},
		ElementsPerAccessNorm: {{.AccessNorm}},
		ZFill: {{.ZFill}},
		ClearLastStage: {{.ClearLastStage}},
	},
{{- end}}
}

// Lookup returns the variant called name.
func Lookup(name string) (Variant, bool) {
	i := sort.Search(len(Variants), func(i int) bool { return Variants[i].Name >= name })
	if i < len(Variants) && Variants[i].Name == name {
		return Variants[i], true
	}
	return Variant{}, false
}
`))

// generateTable renders the resolved results as gofmt-formatted Go source.
func generateTable(pkg, source string, results []catalog.Result) ([]byte, error) {
	rows := make([]tableRow, 0, len(results))
	for _, r := range results {
		c := r.Config
		rows = append(rows, tableRow{
			Name:           r.Variant.Name,
			Arch:           c.Profile.Arch.String(),
			Block:          c.Shape(),
			Warp:           c.Core.WarpShape,
			Instruction:    c.ComputeUnitShape(),
			Stages:         c.Stages,
			Threads:        c.Threads(),
			SharedMemory:   c.SharedMemoryBytes(),
			A:              c.Core.ElementA.String(),
			B:              c.Core.ElementB.String(),
			Norm:           c.NormSum.Element.String(),
			Compute:        c.Core.ComputeElement.String(),
			Acc:            c.Accumulator.String(),
			CacheA:         c.Policies.A.String(),
			CacheB:         c.Policies.B.String(),
			CacheNorm:      c.Policies.Norm.String(),
			NormalizeB:     c.Flags.InternalTranspose,
			AccRowMajor:    c.AccumulatorLayout == mma.RowMajor,
			AccessA:        c.ReaderA.ThreadMap.ElementsPerAccess,
			AccessB:        c.ReaderB.ThreadMap.ElementsPerAccess,
			AccessNorm:     c.NormSum.ElementsPerAccess,
			ZFill:          c.Flags.SharedMemoryClear == mma.ClearZFill,
			ClearLastStage: c.Flags.SharedMemoryClear == mma.ClearLastStage,
		})
	}
	slices.SortFunc(rows, func(a, b tableRow) int { return cmp.Compare(a.Name, b.Name) })

	var buf bytes.Buffer
	err := tableTemplate.Execute(&buf, struct {
		Package, Source string
		Rows            []tableRow
	}{pkg, source, rows})
	if err != nil {
		return nil, fmt.Errorf("render table: %w", err)
	}
	src, err := imports.Process("variants_gen.go", buf.Bytes(), &imports.Options{
		Comments:   true,
		TabIndent:  true,
		TabWidth:   8,
		FormatOnly: true,
	})
	if err != nil {
		return nil, fmt.Errorf("format table: %w", err)
	}
	return src, nil
}
