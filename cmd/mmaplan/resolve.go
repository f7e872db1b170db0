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
	"strconv"
	"strings"

	"github.com/spf13/cobra"

	"github.com/ajroetker/mmaplan/mma"
	"github.com/ajroetker/mmaplan/mma/catalog"
	"github.com/ajroetker/mmaplan/mma/fusion"
)

type resolveOptions struct {
	entry       catalog.Entry
	a, b        string
	norm        string
	transpose   bool
	accRowMajor bool
	asJSON      bool
	asYAML      bool
	varName     string
}

func newResolveCmd() *cobra.Command {
	var opts resolveOptions
	cmd := &cobra.Command{
		Use:   "resolve",
		Short: "Resolve one specialization described by flags",
		Long: `Resolve derives the cache policies of one specialization and assembles its
pipeline configuration. Operands are given as type[:layout[:alignment]], for
example s8:row:16 or f16:column:4.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			if !cmd.Flags().Changed("arch") {
				arch, err := mma.ArchFromEnv(mma.SM80)
				if err != nil {
					return err
				}
				opts.entry.Arch = arch.String()
			}
			return runResolve(cmd, opts)
		},
	}

	f := cmd.Flags()
	f.StringVar(&opts.entry.Arch, "arch", "sm80", "target architecture ("+strings.Join(mma.AvailableArchs(), ",")+"); defaults to $"+mma.ArchEnvVar)
	f.StringVar(&opts.entry.Class, "class", "tensorop", "operator class of the profile")
	f.StringVar(&opts.a, "a", "f16:row:8", "operand A as type[:layout[:alignment]]")
	f.StringVar(&opts.b, "b", "f16:column:8", "operand B as type[:layout[:alignment]]")
	f.StringVar(&opts.norm, "norm", "f16", "scale/bias vector element type")
	f.StringVar(&opts.entry.Accumulator, "accumulator", "", "accumulator type (default: derived from the compute type)")
	f.StringVar(&opts.entry.Operator, "operator", "", "math operator (multiply_add, saturate, fast_f16, fast_bf16, upcast)")
	f.StringVar(&opts.entry.Block, "block", "128x128x32", "threadblock tile MxNxK")
	f.StringVar(&opts.entry.Warp, "warp", "64x64x32", "warp tile MxNxK")
	f.StringVar(&opts.entry.Instruction, "instruction", "16x8x16", "instruction shape MxNxK")
	f.IntVar(&opts.entry.Stages, "stages", 3, "pipeline stages (at least 2)")
	f.BoolVar(&opts.transpose, "transpose", false, "the problem was internally transposed; normalize B instead of A")
	f.BoolVar(&opts.accRowMajor, "accumulators-row-major", false, "lay out accumulator fragments row-major")
	f.StringVar(&opts.entry.SharedMemoryClear, "smem-clear", "none", "shared memory clear option (none, zfill, clear_last_stage)")
	f.BoolVar(&opts.asJSON, "json", false, "print the configuration as JSON")
	f.BoolVar(&opts.asYAML, "yaml", false, "print the request as a catalog entry instead of resolving")
	f.StringVar(&opts.varName, "name", "", "variant name used in reports and --yaml output")
	cmd.MarkFlagsMutuallyExclusive("json", "yaml")
	return cmd
}

func runResolve(cmd *cobra.Command, opts resolveOptions) error {
	entry := opts.entry
	entry.Name = opts.varName
	entry.Transpose = &opts.transpose
	entry.AccumulatorsRowMajor = &opts.accRowMajor
	var err error
	if entry.A, err = parseOperandFlag(opts.a); err != nil {
		return fmt.Errorf("--a: %w", err)
	}
	if entry.B, err = parseOperandFlag(opts.b); err != nil {
		return fmt.Errorf("--b: %w", err)
	}
	if entry.Norm, err = parseOperandFlag(opts.norm); err != nil {
		return fmt.Errorf("--norm: %w", err)
	}
	req, err := entry.Request()
	if err != nil {
		return err
	}

	out := cmd.OutOrStdout()
	if opts.asYAML {
		name := entry.Name
		if name == "" {
			name = defaultVariantName(req)
		}
		c := &catalog.Catalog{Variants: []catalog.Variant{{Name: name, Request: req}}}
		return c.Encode(out)
	}

	cfg, err := fusion.Resolve(req)
	if err != nil {
		return err
	}
	rep := newReport(entry.Name, cfg)
	if opts.asJSON {
		return writeJSON(out, rep)
	}
	return writeReport(out, rep)
}

// parseOperandFlag splits "type[:layout[:alignment]]".
func parseOperandFlag(s string) (catalog.OperandEntry, error) {
	parts := strings.Split(s, ":")
	if len(parts) > 3 || parts[0] == "" {
		return catalog.OperandEntry{}, fmt.Errorf("operand %q: want type[:layout[:alignment]]", s)
	}
	o := catalog.OperandEntry{Type: parts[0]}
	if len(parts) > 1 {
		o.Layout = parts[1]
	}
	if len(parts) > 2 {
		a, err := strconv.Atoi(parts[2])
		if err != nil {
			return catalog.OperandEntry{}, fmt.Errorf("operand %q: alignment: %w", s, err)
		}
		o.Alignment = a
	}
	return o, nil
}

// defaultVariantName builds e.g. "s8xf16_128x128x32_s3_sm80".
func defaultVariantName(req fusion.Request) string {
	return fmt.Sprintf("%vx%v_%v_s%d_%v", req.A.Element, req.B.Element, req.Tiles.Block, req.Stages, req.Profile.Arch)
}
