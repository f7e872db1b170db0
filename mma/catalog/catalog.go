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

// Package catalog reads named kernel specializations from YAML and resolves
// them in batches.
//
// A catalog file looks like:
//
//	defaults:
//	  arch: sm80
//	  stages: 3
//	variants:
//	  - name: s8xf16_128x128x32
//	    tags: [mixed]
//	    a: {type: s8, layout: row, alignment: 16}
//	    b: {type: f16, layout: column, alignment: 4}
//	    norm: {type: f16}
//	    block: 128x128x32
//	    warp: 64x64x32
//	    instruction: 16x8x16
//
// Scalar fields left empty in a variant are taken from defaults.
package catalog

import (
	"fmt"
	"io"
	"os"
	"slices"

	"github.com/samber/lo"
	"gopkg.in/yaml.v3"

	"github.com/ajroetker/mmaplan/mma"
	"github.com/ajroetker/mmaplan/mma/fusion"
)

// OperandEntry is the YAML form of an operand or vector descriptor.
type OperandEntry struct {
	Type      string `yaml:"type"`
	Layout    string `yaml:"layout,omitempty"`
	Alignment int    `yaml:"alignment,omitempty"`
}

// Entry is the YAML form of one specialization.
type Entry struct {
	Name string   `yaml:"name,omitempty"`
	Tags []string `yaml:"tags,omitempty"`

	Arch  string `yaml:"arch,omitempty"`
	Class string `yaml:"class,omitempty"`

	A    OperandEntry `yaml:"a,omitempty"`
	B    OperandEntry `yaml:"b,omitempty"`
	Norm OperandEntry `yaml:"norm,omitempty"`

	Accumulator string `yaml:"accumulator,omitempty"`
	Operator    string `yaml:"operator,omitempty"`

	Block       string `yaml:"block,omitempty"`
	Warp        string `yaml:"warp,omitempty"`
	Instruction string `yaml:"instruction,omitempty"`
	Stages      int    `yaml:"stages,omitempty"`

	// Nil inherits from defaults; an explicit false overrides a true default.
	Transpose            *bool  `yaml:"transpose,omitempty"`
	AccumulatorsRowMajor *bool  `yaml:"accumulators_row_major,omitempty"`
	SharedMemoryClear    string `yaml:"smem_clear,omitempty"`
}

// File is the top-level document.
type File struct {
	Defaults Entry   `yaml:"defaults,omitempty"`
	Variants []Entry `yaml:"variants"`
}

// Variant is a parsed, named request.
type Variant struct {
	Name    string
	Tags    []string
	Request fusion.Request
}

// HasTag reports whether v carries tag.
func (v Variant) HasTag(tag string) bool {
	return slices.Contains(v.Tags, tag)
}

// Catalog is an ordered set of uniquely named variants.
type Catalog struct {
	Variants []Variant
}

// LoadFile reads a catalog from path.
func LoadFile(path string) (*Catalog, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()
	c, err := Load(f)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	return c, nil
}

// Load decodes a catalog document and parses every variant. Unknown YAML
// fields are rejected.
func Load(r io.Reader) (*Catalog, error) {
	dec := yaml.NewDecoder(r)
	dec.KnownFields(true)
	var file File
	if err := dec.Decode(&file); err != nil {
		if err == io.EOF {
			return &Catalog{}, nil
		}
		return nil, fmt.Errorf("decoding catalog: %w", err)
	}
	return file.Catalog()
}

// Catalog parses every entry of f against its defaults.
func (f File) Catalog() (*Catalog, error) {
	if dups := lo.FindDuplicatesBy(f.Variants, func(e Entry) string { return e.Name }); len(dups) > 0 {
		return nil, fmt.Errorf("duplicate variant name %q", dups[0].Name)
	}
	c := &Catalog{Variants: make([]Variant, 0, len(f.Variants))}
	for i, e := range f.Variants {
		if e.Name == "" {
			return nil, fmt.Errorf("variant #%d has no name", i)
		}
		req, err := e.withDefaults(f.Defaults).Request()
		if err != nil {
			return nil, fmt.Errorf("variant %q: %w", e.Name, err)
		}
		c.Variants = append(c.Variants, Variant{Name: e.Name, Tags: e.Tags, Request: req})
	}
	return c, nil
}

func (e Entry) withDefaults(d Entry) Entry {
	e.Arch = lo.CoalesceOrEmpty(e.Arch, d.Arch)
	e.Class = lo.CoalesceOrEmpty(e.Class, d.Class)
	e.A = e.A.withDefaults(d.A)
	e.B = e.B.withDefaults(d.B)
	e.Norm = e.Norm.withDefaults(d.Norm)
	e.Accumulator = lo.CoalesceOrEmpty(e.Accumulator, d.Accumulator)
	e.Operator = lo.CoalesceOrEmpty(e.Operator, d.Operator)
	e.Block = lo.CoalesceOrEmpty(e.Block, d.Block)
	e.Warp = lo.CoalesceOrEmpty(e.Warp, d.Warp)
	e.Instruction = lo.CoalesceOrEmpty(e.Instruction, d.Instruction)
	e.Stages = lo.CoalesceOrEmpty(e.Stages, d.Stages)
	e.SharedMemoryClear = lo.CoalesceOrEmpty(e.SharedMemoryClear, d.SharedMemoryClear)
	if e.Transpose == nil {
		e.Transpose = d.Transpose
	}
	if e.AccumulatorsRowMajor == nil {
		e.AccumulatorsRowMajor = d.AccumulatorsRowMajor
	}
	return e
}

func (o OperandEntry) withDefaults(d OperandEntry) OperandEntry {
	o.Type = lo.CoalesceOrEmpty(o.Type, d.Type)
	o.Layout = lo.CoalesceOrEmpty(o.Layout, d.Layout)
	o.Alignment = lo.CoalesceOrEmpty(o.Alignment, d.Alignment)
	return o
}

func (o OperandEntry) operand() (mma.OperandDescriptor, error) {
	t, err := mma.ParseNumericType(o.Type)
	if err != nil {
		return mma.OperandDescriptor{}, err
	}
	l, err := mma.ParseLayout(lo.CoalesceOrEmpty(o.Layout, "row"))
	if err != nil {
		return mma.OperandDescriptor{}, err
	}
	return mma.OperandDescriptor{Element: t, Layout: l, Alignment: o.Alignment}, nil
}

func (o OperandEntry) vector() (mma.VectorDescriptor, error) {
	d, err := o.operand()
	if err != nil {
		return mma.VectorDescriptor{}, err
	}
	return mma.VectorDescriptor{Element: d.Element, Layout: d.Layout}, nil
}

// Request parses e into a resolution request. Only syntax is checked here;
// semantic checks are left to resolution.
func (e Entry) Request() (fusion.Request, error) {
	var req fusion.Request
	var err error

	if req.Profile.Arch, err = mma.ParseArch(e.Arch); err != nil {
		return req, err
	}
	if e.Class != "" {
		if req.Profile.OperatorClass, err = mma.ParseOperatorClass(e.Class); err != nil {
			return req, err
		}
	}
	if req.A, err = e.A.operand(); err != nil {
		return req, fmt.Errorf("a: %w", err)
	}
	if req.B, err = e.B.operand(); err != nil {
		return req, fmt.Errorf("b: %w", err)
	}
	if req.Norm, err = e.Norm.vector(); err != nil {
		return req, fmt.Errorf("norm: %w", err)
	}
	if e.Accumulator != "" {
		if req.Accumulator, err = mma.ParseNumericType(e.Accumulator); err != nil {
			return req, fmt.Errorf("accumulator: %w", err)
		}
	}
	if req.Operator, err = mma.ParseMathOperator(e.Operator); err != nil {
		return req, err
	}
	if req.Tiles.Block, err = mma.ParseGemmShape(e.Block); err != nil {
		return req, fmt.Errorf("block: %w", err)
	}
	if req.Tiles.Warp, err = mma.ParseGemmShape(e.Warp); err != nil {
		return req, fmt.Errorf("warp: %w", err)
	}
	if req.Tiles.Instruction, err = mma.ParseGemmShape(e.Instruction); err != nil {
		return req, fmt.Errorf("instruction: %w", err)
	}
	req.Stages = e.Stages
	req.Flags.InternalTranspose = lo.FromPtr(e.Transpose)
	req.Flags.AccumulatorsRowMajor = lo.FromPtr(e.AccumulatorsRowMajor)
	if req.Flags.SharedMemoryClear, err = mma.ParseSharedMemoryClear(e.SharedMemoryClear); err != nil {
		return req, err
	}
	return req, nil
}

// EntryFor is the inverse of Entry.Request.
func EntryFor(name string, req fusion.Request) Entry {
	e := Entry{
		Name:                 name,
		Arch:                 req.Profile.Arch.String(),
		Class:                req.Profile.OperatorClass.String(),
		A:                    OperandEntry{Type: req.A.Element.String(), Layout: req.A.Layout.String(), Alignment: req.A.Alignment},
		B:                    OperandEntry{Type: req.B.Element.String(), Layout: req.B.Layout.String(), Alignment: req.B.Alignment},
		Norm:                 OperandEntry{Type: req.Norm.Element.String(), Layout: req.Norm.Layout.String()},
		Operator:             req.Operator.String(),
		Block:                req.Tiles.Block.String(),
		Warp:                 req.Tiles.Warp.String(),
		Instruction:          req.Tiles.Instruction.String(),
		Stages:               req.Stages,
		Transpose:            flagPtr(req.Flags.InternalTranspose),
		AccumulatorsRowMajor: flagPtr(req.Flags.AccumulatorsRowMajor),
		SharedMemoryClear:    req.Flags.SharedMemoryClear.String(),
	}
	if req.Accumulator.Valid() {
		e.Accumulator = req.Accumulator.String()
	}
	return e
}

// flagPtr returns nil for false so encoded entries omit unset flags.
func flagPtr(b bool) *bool {
	if !b {
		return nil
	}
	return lo.ToPtr(b)
}

// Encode writes c as a catalog document.
func (c *Catalog) Encode(w io.Writer) error {
	file := File{Variants: lo.Map(c.Variants, func(v Variant, _ int) Entry {
		e := EntryFor(v.Name, v.Request)
		e.Tags = v.Tags
		return e
	})}
	enc := yaml.NewEncoder(w)
	enc.SetIndent(2)
	if err := enc.Encode(file); err != nil {
		return err
	}
	return enc.Close()
}

// Lookup returns the variant named name.
func (c *Catalog) Lookup(name string) (Variant, bool) {
	return lo.Find(c.Variants, func(v Variant) bool { return v.Name == name })
}

// Select returns the variants targeting arch (ArchUnknown matches any) that
// carry tag (empty matches any), in catalog order.
func (c *Catalog) Select(arch mma.Arch, tag string) []Variant {
	return lo.Filter(c.Variants, func(v Variant, _ int) bool {
		if arch != mma.ArchUnknown && v.Request.Profile.Arch != arch {
			return false
		}
		return tag == "" || v.HasTag(tag)
	})
}

// Archs returns the distinct architectures in the catalog, oldest first.
func (c *Catalog) Archs() []mma.Arch {
	archs := lo.Uniq(lo.Map(c.Variants, func(v Variant, _ int) mma.Arch { return v.Request.Profile.Arch }))
	slices.Sort(archs)
	return archs
}

// Tags returns the distinct tags in the catalog, sorted.
func (c *Catalog) Tags() []string {
	tags := lo.Uniq(lo.FlatMap(c.Variants, func(v Variant, _ int) []string { return v.Tags }))
	slices.Sort(tags)
	return tags
}

// ByArch groups the variants by target architecture.
func (c *Catalog) ByArch() map[mma.Arch][]Variant {
	return lo.GroupBy(c.Variants, func(v Variant) mma.Arch { return v.Request.Profile.Arch })
}
