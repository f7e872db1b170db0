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
	"encoding/json"
	"fmt"
	"io"
	"text/tabwriter"

	"golang.org/x/text/cases"
	"golang.org/x/text/language"

	"github.com/ajroetker/mmaplan/mma/fusion"
	"github.com/ajroetker/mmaplan/mma/transform"
)

// report is the printable form of a resolved configuration.
type report struct {
	Name              string       `json:"name,omitempty"`
	Profile           string       `json:"profile"`
	Block             string       `json:"block"`
	Warp              string       `json:"warp"`
	Instruction       string       `json:"instruction"`
	WarpCount         string       `json:"warp_count"`
	Threads           int          `json:"threads"`
	Stages            int          `json:"stages"`
	Compute           string       `json:"compute"`
	Accumulator       string       `json:"accumulator"`
	AccumulatorLayout string       `json:"accumulator_layout"`
	Operator          string       `json:"operator"`
	Normalized        string       `json:"normalized_operand"`
	SmemClear         string       `json:"smem_clear"`
	SharedMemoryBytes int          `json:"shared_memory_bytes"`
	ReaderA           readerReport `json:"reader_a"`
	ReaderB           readerReport `json:"reader_b"`
	NormSum           vectorReport `json:"norm_sum"`
}

type readerReport struct {
	Extent            string `json:"extent"`
	Cache             string `json:"cache"`
	AdvanceRank       int    `json:"advance_rank"`
	ThreadMap         string `json:"thread_map"`
	WarpThreads       string `json:"warp_threads"`
	WarpArrangement   string `json:"warp_arrangement"`
	Iterations        string `json:"iterations"`
	Delta             string `json:"delta"`
	ElementsPerAccess int    `json:"elements_per_access"`
	AccessesPerVector int    `json:"accesses_per_vector"`
	AccessesPerThread int    `json:"accesses_per_thread"`
}

type vectorReport struct {
	Extent            string `json:"extent"`
	Element           string `json:"element"`
	Cache             string `json:"cache"`
	ElementsPerAccess int    `json:"elements_per_access"`
	Accesses          int    `json:"accesses"`
	RewindPerStage    bool   `json:"rewind_per_stage"`
}

func newReport(name string, cfg *fusion.PipelineConfig) report {
	core := cfg.Core
	return report{
		Name:              name,
		Profile:           cfg.Profile.String(),
		Block:             core.Shape.String(),
		Warp:              core.WarpShape.String(),
		Instruction:       cfg.ComputeUnitShape().String(),
		WarpCount:         core.WarpCount.String(),
		Threads:           cfg.Threads(),
		Stages:            cfg.Stages,
		Compute:           core.ComputeElement.String(),
		Accumulator:       cfg.Accumulator.String(),
		AccumulatorLayout: cfg.AccumulatorLayout.String(),
		Operator:          core.Operator.String(),
		Normalized:        cfg.NormalizedOperand().String(),
		SmemClear:         cfg.Flags.SharedMemoryClear.String(),
		SharedMemoryBytes: cfg.SharedMemoryBytes(),
		ReaderA:           newReaderReport(cfg.ReaderA),
		ReaderB:           newReaderReport(cfg.ReaderB),
		NormSum: vectorReport{
			Extent:            cfg.NormSum.Extent.String(),
			Element:           cfg.NormSum.Element.String(),
			Cache:             cfg.NormSum.CacheOp.String(),
			ElementsPerAccess: cfg.NormSum.ElementsPerAccess,
			Accesses:          cfg.NormSum.Accesses(),
			RewindPerStage:    cfg.NormSum.RewindPerStage,
		},
	}
}

func newReaderReport(r *transform.TileReader) readerReport {
	tm := r.ThreadMap
	return readerReport{
		Extent:            r.Extent.String(),
		Cache:             r.CacheOp.String(),
		AdvanceRank:       r.AdvanceRank,
		ThreadMap:         tm.Shape.String(),
		WarpThreads:       tm.WarpThreadArrangement.String(),
		WarpArrangement:   tm.WarpArrangement.String(),
		Iterations:        tm.Iterations.String(),
		Delta:             tm.Delta.String(),
		ElementsPerAccess: tm.ElementsPerAccess,
		AccessesPerVector: r.AccessesPerVector,
		AccessesPerThread: r.AccessesPerThread(),
	}
}

func writeJSON(w io.Writer, v any) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}

// writeReport prints rep as titled sections of aligned key/value rows.
func writeReport(w io.Writer, rep report) error {
	title := cases.Title(language.English)
	tw := tabwriter.NewWriter(w, 0, 4, 2, ' ', 0)
	section := func(heading string) {
		fmt.Fprintf(tw, "%s\n", title.String(heading))
	}
	row := func(key string, value any) {
		fmt.Fprintf(tw, "  %s\t%v\n", key, value)
	}

	if rep.Name != "" {
		section("variant " + rep.Name)
	}
	section("tiling")
	row("profile", rep.Profile)
	row("block / warp / instruction", rep.Block+" / "+rep.Warp+" / "+rep.Instruction)
	row("warps", rep.WarpCount)
	row("threads", rep.Threads)
	row("stages", rep.Stages)
	row("shared memory", fmt.Sprintf("%d bytes", rep.SharedMemoryBytes))
	row("smem clear", rep.SmemClear)

	section("math")
	row("compute", rep.Compute)
	row("accumulator", rep.Accumulator+" ("+rep.AccumulatorLayout+")")
	row("operator", rep.Operator)
	row("normalized operand", rep.Normalized)

	for _, r := range []struct {
		heading string
		rep     readerReport
	}{{"operand a reader", rep.ReaderA}, {"operand b reader", rep.ReaderB}} {
		section(r.heading)
		row("extent", r.rep.Extent)
		row("cache", r.rep.Cache)
		row("advance rank", r.rep.AdvanceRank)
		row("thread map", r.rep.ThreadMap)
		row("warp threads", r.rep.WarpThreads)
		row("warp arrangement", r.rep.WarpArrangement)
		row("iterations", r.rep.Iterations)
		row("delta", r.rep.Delta)
		row("elements per access", r.rep.ElementsPerAccess)
		row("accesses per vector", r.rep.AccessesPerVector)
		row("accesses per thread", r.rep.AccessesPerThread)
	}

	section("scale/bias reader")
	row("extent", rep.NormSum.Extent)
	row("element", rep.NormSum.Element)
	row("cache", rep.NormSum.Cache)
	row("elements per access", rep.NormSum.ElementsPerAccess)
	row("accesses", rep.NormSum.Accesses)
	row("rewind per stage", rep.NormSum.RewindPerStage)

	return tw.Flush()
}
