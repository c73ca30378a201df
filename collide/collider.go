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

// defaultRadixBits is spec.md §4.3's default bits-per-pass (8 passes
// over a 32-bit key).
const defaultRadixBits = 4

// Collider is the C6 orchestrator of SPEC_FULL.md §3 (spec.md §4.6):
// it sequences the Reducer, Morton encoding, RadixSorter, LBVHBuilder
// and Traverser into the get_collisions pipeline, wiring each stage's
// dependencies onto the events of its direct producers the way
// original_source/collision/collision.py's Collider.get_collisions
// wires its kernel launches.
//
// Unlike the Python original, RadixSorter.Sort here sorts in place
// (see radixsort.go), so the collider only needs one codes buffer and
// one ids buffer, not the ping-ponged pair the Python source keeps for
// its out-of-place sort kernel.
type Collider[T lane.Float] struct {
	pool *device.WorkgroupPool

	n         int
	ngroups   int
	groupSize int
	radixBits int

	bounds *Bounds[T]
	sorter *RadixSorter[uint32]
	lbvh   *LBVHBuilder[T]
	trav   *Traverser[T]

	idsBuf     *device.Buffer[uint32]
	codesBuf   *device.Buffer[uint32]
	nodesBuf   *device.Buffer[Node]
	parentsBuf *device.Buffer[int]
	boundsBuf  *device.Buffer[AABB[T]]
	flagsBuf   *device.Buffer[int32]
}

// NewCollider creates a collider for exactly n primitives
// (GetCollisions rejects coords/radii of any other length). ngroups
// configures the Reducer's stage-1 fan-out; groupSize is shared by
// every component and must be a power of two. radixBits defaults to
// defaultRadixBits, or to a smaller width when 2^defaultRadixBits
// exceeds 2*groupSize.
func NewCollider[T lane.Float](pool *device.WorkgroupPool, n, ngroups, groupSize int) (*Collider[T], error) {
	if n < 0 {
		return nil, configErrorf("n %d must be non-negative", n)
	}
	if ngroups <= 0 {
		return nil, configErrorf("ngroups %d must be positive", ngroups)
	}
	if !isPowerOfTwo(groupSize) {
		return nil, configErrorf("group_size %d is not a power of two", groupSize)
	}
	radixBits := defaultRadixBits
	if numBins := 1 << radixBits; numBins > 2*groupSize {
		// Fall back to the largest power-of-two-dividing-32 digit width
		// that fits this group size, rather than fail construction over
		// a default that doesn't suit a small groupSize.
		radixBits = 1
		for next := radixBits * 2; next <= 32 && 1<<next <= 2*groupSize; next *= 2 {
			radixBits = next
		}
	}

	c := &Collider[T]{pool: pool}
	bounds, err := NewBounds[T](pool, ngroups, groupSize)
	if err != nil {
		return nil, err
	}
	sorter, err := NewRadixSorter[uint32](pool, groupSize, radixBits)
	if err != nil {
		return nil, err
	}
	lbvh, err := NewLBVHBuilder[T](pool, groupSize)
	if err != nil {
		return nil, err
	}
	trav, err := NewTraverser[T](pool, groupSize)
	if err != nil {
		return nil, err
	}
	c.bounds, c.sorter, c.lbvh, c.trav = bounds, sorter, lbvh, trav
	c.n, c.ngroups, c.groupSize, c.radixBits = n, ngroups, groupSize, radixBits
	c.allocate()
	return c, nil
}

func paddedSize(n, groupSize int) int {
	if n == 0 {
		return 0
	}
	return roundUp(n, 2*groupSize)
}

func (c *Collider[T]) allocate() {
	padded := paddedSize(c.n, c.groupSize)
	nodeCount := NodeCount(c.n)
	internalCount := 0
	if c.n >= 2 {
		internalCount = c.n - 1
	}
	c.idsBuf = device.NewBuffer[uint32](padded, device.AccessRead|device.AccessWrite|device.AccessHostNoAccess)
	c.codesBuf = device.NewBuffer[uint32](padded, device.AccessRead|device.AccessWrite|device.AccessHostNoAccess)
	c.nodesBuf = device.NewBuffer[Node](nodeCount, device.AccessRead|device.AccessWrite|device.AccessHostNoAccess)
	c.parentsBuf = device.NewBuffer[int](nodeCount, device.AccessRead|device.AccessWrite|device.AccessHostNoAccess)
	c.boundsBuf = device.NewBuffer[AABB[T]](nodeCount, device.AccessRead|device.AccessWrite|device.AccessHostNoAccess)
	c.flagsBuf = device.NewBuffer[int32](internalCount, device.AccessRead|device.AccessWrite|device.AccessHostNoAccess)
}

// Resize changes the primitive count and/or tuning parameters. Any nil
// pointer leaves that parameter unchanged. Resize validates the full
// new configuration before mutating anything, so a rejected resize
// leaves the collider in its prior valid state (spec.md §7's
// transactional resize).
func (c *Collider[T]) Resize(n, ngroups, groupSize, radixBits *int) error {
	newN, newNgroups, newGroupSize, newRadixBits := c.n, c.ngroups, c.groupSize, c.radixBits
	if n != nil {
		newN = *n
	}
	if ngroups != nil {
		newNgroups = *ngroups
	}
	if groupSize != nil {
		newGroupSize = *groupSize
	}
	if radixBits != nil {
		newRadixBits = *radixBits
	}

	if newN < 0 {
		return configErrorf("n %d must be non-negative", newN)
	}
	if newNgroups <= 0 {
		return configErrorf("ngroups %d must be positive", newNgroups)
	}
	if !isPowerOfTwo(newGroupSize) {
		return configErrorf("group_size %d is not a power of two", newGroupSize)
	}
	if newRadixBits <= 0 || 32%newRadixBits != 0 {
		return configErrorf("radix_bits %d does not divide the 32-bit key width", newRadixBits)
	}
	if numBins := 1 << newRadixBits; numBins > 2*newGroupSize {
		return configErrorf("2^radix_bits (%d) exceeds 2*group_size (%d)", numBins, 2*newGroupSize)
	}

	oldPadded := paddedSize(c.n, c.groupSize)
	oldNodeCount := NodeCount(c.n)

	// Every check above passed, so every component Resize below is
	// guaranteed to succeed; apply them all.
	if err := c.bounds.Resize(newNgroups, newGroupSize); err != nil {
		return err
	}
	if err := c.sorter.Resize(newGroupSize, newRadixBits); err != nil {
		return err
	}
	if err := c.lbvh.Resize(newGroupSize); err != nil {
		return err
	}
	if err := c.trav.Resize(newGroupSize); err != nil {
		return err
	}
	c.n, c.ngroups, c.groupSize, c.radixBits = newN, newNgroups, newGroupSize, newRadixBits

	newPadded := paddedSize(c.n, c.groupSize)
	newNodeCount := NodeCount(c.n)
	if newPadded != oldPadded {
		c.idsBuf = device.NewBuffer[uint32](newPadded, device.AccessRead|device.AccessWrite|device.AccessHostNoAccess)
		c.codesBuf = device.NewBuffer[uint32](newPadded, device.AccessRead|device.AccessWrite|device.AccessHostNoAccess)
	}
	if newNodeCount != oldNodeCount {
		internalCount := 0
		if c.n >= 2 {
			internalCount = c.n - 1
		}
		c.nodesBuf = device.NewBuffer[Node](newNodeCount, device.AccessRead|device.AccessWrite|device.AccessHostNoAccess)
		c.parentsBuf = device.NewBuffer[int](newNodeCount, device.AccessRead|device.AccessWrite|device.AccessHostNoAccess)
		c.boundsBuf = device.NewBuffer[AABB[T]](newNodeCount, device.AccessRead|device.AccessWrite|device.AccessHostNoAccess)
		c.flagsBuf = device.NewBuffer[int32](internalCount, device.AccessRead|device.AccessWrite|device.AccessHostNoAccess)
	}
	return nil
}

// N returns the configured primitive count.
func (c *Collider[T]) N() int { return c.n }

// GetCollisions runs the full pipeline of spec.md §4.6 against coords
// and radii (each of length N()), reporting up to len(pairs[:m])
// overlapping pairs. It returns immediately with the completion event
// of the final (traverse) stage; count receives the true pair count
// once that event's Wait returns nil (the count may exceed m, per
// spec.md §7's Overflow). waitFor lets a caller chain this call after
// events that produced coords/radii.
func (c *Collider[T]) GetCollisions(ctx context.Context, coords []Vec3[T], radii []T, pairs []PairU32, m int, waitFor []*device.Event) (ev *device.Event, count *int, err error) {
	if len(coords) != c.n || len(radii) != c.n {
		return nil, nil, argumentErrorf("coords/radii length must equal N=%d", c.n)
	}
	if m < 0 {
		return nil, nil, argumentErrorf("M %d must be non-negative", m)
	}
	if m > 0 && len(pairs) < m {
		return nil, nil, argumentErrorf("collisions_buf shorter than M=%d", m)
	}

	q := device.NewQueue(c.pool, ctx)
	n := c.n
	padded := paddedSize(n, c.groupSize)
	count = new(int)

	var fillCodes []*device.Event
	if padded != n {
		fillCodes = []*device.Event{device.EnqueueFill(q, nil, c.codesBuf, ^uint32(0))}
	}
	fillIDs := q.EnqueueKernel(nil, 1, func(ctx context.Context, group int) error {
		ids := c.idsBuf.Data()
		for i := range ids {
			ids[i] = uint32(i)
		}
		return nil
	})
	var clearFlags *device.Event
	if len(c.flagsBuf.Data()) > 0 {
		clearFlags = device.EnqueueFill(q, nil, c.flagsBuf, int32(0))
	}

	calcSceneBounds := q.EnqueueKernel(waitFor, 1, func(ctx context.Context, group int) error {
		result, err := c.bounds.ReduceAABBs(ctx, coords, radii)
		if err != nil {
			return err
		}
		if len(c.boundsBuf.Data()) > 0 {
			c.boundsBuf.Data()[0] = result
		}
		return nil
	})

	calcCodesWait := append([]*device.Event{calcSceneBounds}, fillCodes...)
	calcCodes := q.EnqueueKernel(calcCodesWait, 1, func(ctx context.Context, group int) error {
		if n == 0 {
			return nil
		}
		var bbox AABB[T]
		if len(c.boundsBuf.Data()) > 0 {
			bbox = c.boundsBuf.Data()[0]
		}
		return EncodeMortonCodes(ctx, c.pool, c.groupSize, coords, bbox, c.codesBuf.Data()[:n])
	})

	sortCodes := q.EnqueueKernel([]*device.Event{calcCodes, fillIDs}, 1, func(ctx context.Context, group int) error {
		return c.sorter.Sort(ctx, c.codesBuf.Data(), c.idsBuf.Data())
	})

	fillLeaves := q.EnqueueKernel([]*device.Event{sortCodes}, 1, func(ctx context.Context, group int) error {
		return c.lbvh.FillLeaves(ctx, c.nodesBuf.Data(), c.idsBuf.Data()[:n])
	})
	buildInternal := q.EnqueueKernel([]*device.Event{sortCodes}, 1, func(ctx context.Context, group int) error {
		for i := range c.parentsBuf.Data() {
			c.parentsBuf.Data()[i] = -1
		}
		return c.lbvh.BuildInternal(ctx, c.codesBuf.Data()[:n], c.nodesBuf.Data(), c.parentsBuf.Data())
	})

	leafBounds := q.EnqueueKernel([]*device.Event{fillLeaves, buildInternal}, 1, func(ctx context.Context, group int) error {
		return c.lbvh.LeafBounds(ctx, coords, radii, c.nodesBuf.Data(), c.boundsBuf.Data())
	})
	internalBoundsWait := []*device.Event{leafBounds}
	if clearFlags != nil {
		internalBoundsWait = append(internalBoundsWait, clearFlags)
	}
	internalBounds := q.EnqueueKernel(internalBoundsWait, 1, func(ctx context.Context, group int) error {
		return c.lbvh.InternalBounds(ctx, c.nodesBuf.Data(), c.parentsBuf.Data(), c.flagsBuf.Data(), c.boundsBuf.Data())
	})

	findCollisions := q.EnqueueKernel([]*device.Event{internalBounds}, 1, func(ctx context.Context, group int) error {
		var dst []PairU32
		if m > 0 {
			dst = pairs[:m]
		}
		result, err := c.trav.Traverse(ctx, c.nodesBuf.Data(), c.parentsBuf.Data(), c.boundsBuf.Data(), dst)
		if err != nil {
			return err
		}
		*count = result
		return nil
	})

	return findCollisions, count, nil
}
