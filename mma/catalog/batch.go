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

package catalog

import (
	"context"
	"errors"
	"fmt"

	"github.com/samber/lo"
	"k8s.io/klog/v2"

	"github.com/ajroetker/mmaplan/mma/fusion"
	"github.com/ajroetker/mmaplan/mma/workerpool"
)

// Result is the outcome of resolving one variant. Exactly one of Config and
// Err is set.
type Result struct {
	Variant Variant
	Config  *fusion.PipelineConfig
	Err     error
}

// Batch resolves many variants on a shared pool and resolver.
type Batch struct {
	Pool     *workerpool.Pool
	Resolver *fusion.Resolver
}

// Resolve resolves every variant, preserving order. The returned error joins
// the failures of all variants (nil if all resolved); the results are
// complete either way.
func (b Batch) Resolve(ctx context.Context, variants []Variant) ([]Result, error) {
	resolver := b.Resolver
	if resolver == nil {
		resolver = fusion.NewResolver(fusion.Deps{})
	}
	pool := b.Pool
	if pool == nil {
		pool = workerpool.New(0)
		defer pool.Close()
	}

	results := make([]Result, len(variants))
	errs := pool.Each(ctx, len(variants), func(_ context.Context, i int) error {
		results[i].Variant = variants[i]
		cfg, err := resolver.Resolve(variants[i].Request)
		if err != nil {
			return fmt.Errorf("variant %q: %w", variants[i].Name, err)
		}
		results[i].Config = cfg
		return nil
	})
	for i, err := range errs {
		results[i].Variant = variants[i]
		results[i].Err = err
	}

	failed := lo.CountBy(results, func(r Result) bool { return r.Err != nil })
	klog.V(1).InfoS("Resolved catalog batch", "variants", len(variants), "failed", failed, "cached", resolver.Len())
	return results, errors.Join(errs...)
}

// Succeeded returns the results that produced a configuration.
func Succeeded(results []Result) []Result {
	return lo.Filter(results, func(r Result, _ int) bool { return r.Err == nil })
}
