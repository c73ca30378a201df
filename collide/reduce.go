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

package collide

import (
	"context"

	"github.com/ajroetker/go-collide/device"
	"github.com/ajroetker/go-collide/lane"
)

// Reducer is the two-stage associative tree reduction of spec.md
// §4.2 (C2 in SPEC_FULL.md §3), generic over the accumulator E: the
// Bounds instantiation below reduces AABB[T] with Union, and Summer
// reduces T with addition (the "parallel summer variant" spec.md
// mentions and SPEC_FULL.md §4 promotes to a concrete operation).
//
// Stage 1 ("bounds1"): ngroups work-groups are launched; each walks
// its groupSize work-item slots in turn, striding over the input with
// stride ngroups*groupSize, and folds every element it visits into a
// single accumulator for the group, which it writes to an intermediate
// buffer. There is no per-work-item accumulator and no in-group tree
// reduction. Stage 2 ("bounds2"): the calling goroutine folds the
// ngroups intermediate results serially into the final result; it is
// not a second kernel launch.
type Reducer[E any] struct {
	pool      *device.WorkgroupPool
	ngroups   int
	groupSize int
	identity  E
	combine   func(a, b E) E
}

func newReducer[E any](pool *device.WorkgroupPool, ngroups, groupSize int, identity E, combine func(a, b E) E) (*Reducer[E], error) {
	if ngroups <= 0 {
		return nil, configErrorf("ngroups %d must be positive", ngroups)
	}
	if !isPowerOfTwo(groupSize) {
		return nil, configErrorf("group_size %d is not a power of two", groupSize)
	}
	return &Reducer[E]{pool: pool, ngroups: ngroups, groupSize: groupSize, identity: identity, combine: combine}, nil
}

// Resize changes the stage-1 fan-out parameters.
func (r *Reducer[E]) Resize(ngroups, groupSize int) error {
	if ngroups <= 0 {
		return configErrorf("ngroups %d must be positive", ngroups)
	}
	if !isPowerOfTwo(groupSize) {
		return configErrorf("group_size %d is not a power of two", groupSize)
	}
	r.ngroups, r.groupSize = ngroups, groupSize
	return nil
}

// Reduce folds values down to a single accumulator (P2: for all
// inputs v, the result equals the associative combine of the whole
// input, starting from identity).
func (r *Reducer[E]) Reduce(ctx context.Context, values []E) (E, error) {
	if len(values) == 0 {
		return r.identity, nil
	}

	stride := r.ngroups * r.groupSize
	groupResults := make([]E, r.ngroups)

	err := r.pool.Launch(ctx, r.ngroups, func(ctx context.Context, group int) error {
		acc := r.identity
		for item := 0; item < r.groupSize; item++ {
			threadID := group*r.groupSize + item
			for idx := threadID; idx < len(values); idx += stride {
				acc = r.combine(acc, values[idx])
			}
		}
		groupResults[group] = acc
		return nil
	})
	if err != nil {
		return r.identity, runtimeErrorf(err, "bounds1 pass")
	}

	final := r.identity
	for _, v := range groupResults {
		final = r.combine(final, v)
	}
	return final, nil
}

// Bounds reduces per-primitive AABBs to the scene AABB (spec.md's
// Reducer as used by the Collider).
type Bounds[T lane.Float] struct {
	*Reducer[AABB[T]]
}

// NewBounds creates a scene-bounds reducer.
func NewBounds[T lane.Float](pool *device.WorkgroupPool, ngroups, groupSize int) (*Bounds[T], error) {
	r, err := newReducer(pool, ngroups, groupSize, emptyAABB[T](), Union[T])
	if err != nil {
		return nil, err
	}
	return &Bounds[T]{Reducer: r}, nil
}

// ReduceAABBs reduces per-primitive centers/radii directly to the
// scene AABB, the form the Collider drives it in.
func (b *Bounds[T]) ReduceAABBs(ctx context.Context, centers []Vec3[T], radii []T) (AABB[T], error) {
	boxes := make([]AABB[T], len(centers))
	for i := range centers {
		boxes[i] = SphereAABB(centers[i], radii[i])
	}
	return b.Reduce(ctx, boxes)
}

// EnqueueReduceAABBs enqueues the scene-bounds reduction, writing the
// result into out (dual-used as node 0 of the bounds buffer per
// spec.md §4.6, the Collider decides where out points).
func (b *Bounds[T]) EnqueueReduceAABBs(q *device.Queue, waitFor []*device.Event, centers []Vec3[T], radii []T, out *AABB[T]) *device.Event {
	return q.EnqueueKernel(waitFor, 1, func(ctx context.Context, group int) error {
		result, err := b.ReduceAABBs(ctx, centers, radii)
		if err != nil {
			return err
		}
		*out = result
		return nil
	})
}

// Summer reduces a plain numeric slice by addition (the parallel
// summer variant of spec.md §4.2, identity 0).
type Summer[T lane.Numeric] struct {
	*Reducer[T]
}

// NewSummer creates a sum reducer.
func NewSummer[T lane.Numeric](pool *device.WorkgroupPool, ngroups, groupSize int) (*Summer[T], error) {
	var zero T
	r, err := newReducer(pool, ngroups, groupSize, zero, func(a, b T) T { return a + b })
	if err != nil {
		return nil, err
	}
	return &Summer[T]{Reducer: r}, nil
}
