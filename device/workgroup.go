// Copyright 2025 go-highway Authors
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

// Package device emulates the OpenCL-style compute runtime that
// spec.md §6 treats as an external collaborator: buffers, an
// out-of-order command queue, and kernel launches with explicit
// event wait-lists. Kernel launches fan out across a bounded pool of
// goroutines, one per "work-group", the concurrency model the
// teacher's hwy/contrib/workerpool uses for CPU-side parallelism.
package device

import (
	"context"
	"runtime"

	"golang.org/x/sync/errgroup"
)

// WorkgroupPool bounds how many work-groups of a kernel launch run
// concurrently. Unlike spawning a fresh goroutine per work-group with
// no cap, the pool keeps the number of simultaneously active
// work-groups in line with the number of compute units a real device
// would expose.
type WorkgroupPool struct {
	numUnits int
}

// NewWorkgroupPool creates a pool exposing numUnits compute units. If
// numUnits <= 0, it uses GOMAXPROCS.
func NewWorkgroupPool(numUnits int) *WorkgroupPool {
	if numUnits <= 0 {
		numUnits = runtime.GOMAXPROCS(0)
	}
	return &WorkgroupPool{numUnits: numUnits}
}

// NumUnits reports the number of compute units.
func (p *WorkgroupPool) NumUnits() int { return p.numUnits }

// Launch runs fn(group) once per group in [0, numGroups), at most
// NumUnits groups concurrently, and blocks until every group has
// finished, including after one has failed.
//
// This is the local, synchronous part of an otherwise async kernel
// launch: Queue.EnqueueKernel wraps it in a non-blocking Event. The
// first non-nil error any group returns cancels the shared context
// passed to the others and is returned to the caller, so a
// RuntimeError from one work-group is never silently swallowed.
func (p *WorkgroupPool) Launch(ctx context.Context, numGroups int, fn func(ctx context.Context, group int) error) error {
	if numGroups <= 0 {
		return nil
	}
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(max(1, p.numUnits))
	for group := range numGroups {
		g.Go(func() error {
			return fn(gctx, group)
		})
	}
	return g.Wait()
}
