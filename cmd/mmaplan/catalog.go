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
	"io"
	"text/tabwriter"

	"github.com/spf13/cobra"
	"github.com/spf13/pflag"

	"github.com/ajroetker/mmaplan/mma"
	"github.com/ajroetker/mmaplan/mma/catalog"
	"github.com/ajroetker/mmaplan/mma/fusion"
	"github.com/ajroetker/mmaplan/mma/workerpool"
)

// selection is shared by the commands that read a catalog file.
type selection struct {
	arch    string
	tag     string
	workers int
}

func (s *selection) register(f *pflag.FlagSet) {
	f.StringVar(&s.arch, "arch", "", "only variants targeting this architecture")
	f.StringVar(&s.tag, "tag", "", "only variants carrying this tag")
	f.IntVar(&s.workers, "workers", 0, "resolution workers (default GOMAXPROCS)")
}

// load reads path and applies the selection.
func (s *selection) load(path string) ([]catalog.Variant, error) {
	c, err := catalog.LoadFile(path)
	if err != nil {
		return nil, err
	}
	arch := mma.ArchUnknown
	if s.arch != "" {
		if arch, err = mma.ParseArch(s.arch); err != nil {
			return nil, err
		}
	}
	return c.Select(arch, s.tag), nil
}

// resolve resolves variants on a fresh pool.
func (s *selection) resolve(cmd *cobra.Command, variants []catalog.Variant) ([]catalog.Result, error) {
	pool := workerpool.New(s.workers)
	defer pool.Close()
	batch := catalog.Batch{Pool: pool, Resolver: fusion.NewResolver(fusion.Deps{})}
	return batch.Resolve(cmd.Context(), variants)
}

func newCatalogCmd() *cobra.Command {
	var (
		sel    selection
		asJSON bool
		full   bool
	)
	cmd := &cobra.Command{
		Use:   "catalog FILE",
		Short: "Resolve every variant of a YAML catalog",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			variants, err := sel.load(args[0])
			if err != nil {
				return err
			}
			results, resolveErr := sel.resolve(cmd, variants)

			out := cmd.OutOrStdout()
			switch {
			case asJSON:
				err = writeJSON(out, catalogJSON(results))
			case full:
				for _, r := range catalog.Succeeded(results) {
					if err = writeReport(out, newReport(r.Variant.Name, r.Config)); err != nil {
						break
					}
					fmt.Fprintln(out)
				}
			default:
				err = writeSummary(out, results)
			}
			if err != nil {
				return err
			}
			return resolveErr
		},
	}
	sel.register(cmd.Flags())
	cmd.Flags().BoolVar(&asJSON, "json", false, "print results as JSON")
	cmd.Flags().BoolVar(&full, "full", false, "print the full report of every resolved variant")
	cmd.MarkFlagsMutuallyExclusive("json", "full")
	return cmd
}

type catalogEntryJSON struct {
	Name   string  `json:"name"`
	Error  string  `json:"error,omitempty"`
	Config *report `json:"config,omitempty"`
}

func catalogJSON(results []catalog.Result) []catalogEntryJSON {
	out := make([]catalogEntryJSON, len(results))
	for i, r := range results {
		out[i].Name = r.Variant.Name
		if r.Err != nil {
			out[i].Error = r.Err.Error()
			continue
		}
		rep := newReport(r.Variant.Name, r.Config)
		out[i].Config = &rep
	}
	return out
}

// writeSummary prints one line per variant.
func writeSummary(w io.Writer, results []catalog.Result) error {
	tw := tabwriter.NewWriter(w, 0, 4, 2, ' ', 0)
	fmt.Fprintln(tw, "NAME\tPROFILE\tBLOCK\tSTAGES\tTHREADS\tSMEM\tCACHE A/B/NORM\tNORMALIZED\tSTATUS")
	for _, r := range results {
		if r.Err != nil {
			req := r.Variant.Request
			fmt.Fprintf(tw, "%s\t%v\t%v\t%d\t-\t-\t-\t-\t%v\n",
				r.Variant.Name, req.Profile, req.Tiles.Block, req.Stages, failureStatus(r.Err))
			continue
		}
		c := r.Config
		fmt.Fprintf(tw, "%s\t%v\t%v\t%d\t%d\t%d\t%v/%v/%v\t%v\tok\n",
			r.Variant.Name, c.Profile, c.Shape(), c.Stages, c.Threads(), c.SharedMemoryBytes(),
			c.Policies.A, c.Policies.B, c.Policies.Norm, c.NormalizedOperand())
	}
	return tw.Flush()
}

// failureStatus names the error kind, or "error" for failures outside the
// configuration error taxonomy.
func failureStatus(err error) string {
	if kind, ok := mma.KindOf(err); ok {
		return kind.String()
	}
	return "error"
}
