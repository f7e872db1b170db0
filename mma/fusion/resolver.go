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

package fusion

import (
	"hash/maphash"
	"sync"

	"golang.org/x/sync/singleflight"
	"golang.org/x/sys/cpu"
	"k8s.io/klog/v2"

	"github.com/ajroetker/mmaplan/mma/policy"
)

const resolverShards = 16

// Resolver memoizes resolutions by request value. Each caller receives its
// own copy of the cached *PipelineConfig, so mutating a result never leaks
// into later resolutions. Concurrent requests for the same key run the
// assembly once. Failures are not cached.
//
// A Resolver is safe for concurrent use.
type Resolver struct {
	deps   Deps
	seed   maphash.Seed
	flight singleflight.Group
	shards [resolverShards]resolverShard
}

type resolverShard struct {
	mu      sync.RWMutex
	entries map[Request]*PipelineConfig
	_       cpu.CacheLinePad
}

// NewResolver returns an empty Resolver assembling with deps.
func NewResolver(deps Deps) *Resolver {
	r := &Resolver{
		deps: deps.withDefaults(),
		seed: maphash.MakeSeed(),
	}
	for i := range r.shards {
		r.shards[i].entries = make(map[Request]*PipelineConfig)
	}
	return r
}

// Resolve returns the configuration for req, assembling it on first use.
func (r *Resolver) Resolve(req Request) (*PipelineConfig, error) {
	key := req.String()
	sh := &r.shards[maphash.String(r.seed, key)%resolverShards]

	sh.mu.RLock()
	cfg, ok := sh.entries[req]
	sh.mu.RUnlock()
	if ok {
		return cfg.Clone(), nil
	}

	v, err, shared := r.flight.Do(key, func() (any, error) {
		cfg, err := Assemble(req, policy.Derive(req.A, req.B), r.deps)
		if err != nil {
			return nil, err
		}
		sh.mu.Lock()
		sh.entries[req] = cfg
		sh.mu.Unlock()
		return cfg, nil
	})
	if err != nil {
		return nil, err
	}
	klog.V(2).InfoS("Resolved kernel variant", "request", key, "shared", shared)
	return v.(*PipelineConfig).Clone(), nil
}

// Len returns the number of cached configurations.
func (r *Resolver) Len() int {
	n := 0
	for i := range r.shards {
		sh := &r.shards[i]
		sh.mu.RLock()
		n += len(sh.entries)
		sh.mu.RUnlock()
	}
	return n
}
