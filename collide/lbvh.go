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
	"sync/atomic"

	"github.com/ajroetker/go-collide/device"
	"github.com/ajroetker/go-collide/lane"
)

// Node is one entry of the 2N-1 node array produced by LBVHBuilder (C4
// in SPEC_FULL.md §3). Leaves occupy indices [N-1, 2N-2] and carry
// PrimID; internal nodes occupy [0, N-1) and carry Left/Right, both
// node-array indices already resolved to leaf- or internal-space per
// spec.md §4.4.
//
// Parent pointers live in a separate slice (not this struct): Karras
// construction assigns each child's parent from the *parent's* owning
// goroutine, while a node's own Left/Right/RightEdge/IsLeaf are
// written only by the goroutine that owns that node index. Keeping
// them in one struct would make two goroutines write disjoint fields
// of the same array element concurrently; splitting them out keeps
// every write single-owner.
type Node struct {
	RightEdge   int
	Left, Right int
	PrimID      uint32
	IsLeaf      bool
}

// LBVHBuilder builds a linear BVH from sorted Morton codes and
// primitive ids (spec.md §4.4): leaf fill, Karras internal-node
// construction, then bottom-up bounds propagation.
type LBVHBuilder[T lane.Float] struct {
	pool      *device.WorkgroupPool
	groupSize int
}

// NewLBVHBuilder creates a builder whose kernels are launched in
// groupSize-wide batches.
func NewLBVHBuilder[T lane.Float](pool *device.WorkgroupPool, groupSize int) (*LBVHBuilder[T], error) {
	if !isPowerOfTwo(groupSize) {
		return nil, configErrorf("group_size %d is not a power of two", groupSize)
	}
	return &LBVHBuilder[T]{pool: pool, groupSize: groupSize}, nil
}

// Resize changes the work-group size.
func (b *LBVHBuilder[T]) Resize(groupSize int) error {
	if !isPowerOfTwo(groupSize) {
		return configErrorf("group_size %d is not a power of two", groupSize)
	}
	b.groupSize = groupSize
	return nil
}

// NodeCount returns 2N-1, the number of entries Build's nodes/bounds
// slices must have for n primitives (n itself if n <= 1: 0 for no
// primitives, 1 for a single leaf with no internal nodes).
func NodeCount(n int) int {
	if n <= 1 {
		return n
	}
	return 2*n - 1
}

// FillLeaves writes nodes[N-1+k] for every leaf position k, the
// fillLeaves kernel of spec.md §4.6's step 4.
func (b *LBVHBuilder[T]) FillLeaves(ctx context.Context, nodes []Node, ids []uint32) error {
	n := len(ids)
	if n == 0 {
		return nil
	}
	numGroups := (n + b.groupSize - 1) / b.groupSize
	return b.pool.Launch(ctx, numGroups, func(ctx context.Context, group int) error {
		start := group * b.groupSize
		end := min(start+b.groupSize, n)
		for k := start; k < end; k++ {
			nodes[n-1+k] = Node{RightEdge: k, PrimID: ids[k], IsLeaf: true}
		}
		return nil
	})
}

// BuildInternal applies Karras's algorithm to construct the N-1
// internal nodes from sorted codes, writing nodes[0:N-1] and every
// child's entry in parents (parents must have length NodeCount(N),
// pre-initialized to -1; parents[0] is the root sentinel and is never
// written, per spec.md §4.4).
func (b *LBVHBuilder[T]) BuildInternal(ctx context.Context, codes []uint32, nodes []Node, parents []int) error {
	n := len(codes)
	if n < 2 {
		return nil
	}
	numInternal := n - 1
	numGroups := (numInternal + b.groupSize - 1) / b.groupSize
	return b.pool.Launch(ctx, numGroups, func(ctx context.Context, group int) error {
		start := group * b.groupSize
		end := min(start+b.groupSize, numInternal)
		for i := start; i < end; i++ {
			buildInternalNode(codes, n, i, nodes, parents)
		}
		return nil
	})
}

// delta is Karras's δ metric: the count of shared leading bits between
// the 64-bit keys (code[idx]<<32 | idx). Appending the index as a
// tie-break means equal codes still produce a strictly-decreasing δ
// away from the split, and out-of-range b yields -1.
func delta(codes []uint32, n, a, b int) int {
	if b < 0 || b >= n {
		return -1
	}
	ka := uint64(codes[a])<<32 | uint64(uint32(a))
	kb := uint64(codes[b])<<32 | uint64(uint32(b))
	return lane.LeadingZeros64(ka ^ kb)
}

func buildInternalNode(codes []uint32, n, i int, nodes []Node, parents []int) {
	d := 1
	if delta(codes, n, i, i-1) > delta(codes, n, i, i+1) {
		d = -1
	}
	deltaMin := delta(codes, n, i, i-d)

	lmax := 2
	for delta(codes, n, i, i+lmax*d) > deltaMin {
		lmax *= 2
	}
	l := 0
	for t := lmax / 2; t >= 1; t /= 2 {
		if delta(codes, n, i, i+(l+t)*d) > deltaMin {
			l += t
		}
	}
	j := i + l*d

	deltaNode := delta(codes, n, i, j)
	lo, hi := 0, absInt(j-i)
	for lo < hi {
		mid := (lo + hi + 1) / 2
		if delta(codes, n, i, i+mid*d) > deltaNode {
			lo = mid
		} else {
			hi = mid - 1
		}
	}
	s := lo
	gamma := i + s*d
	if d < 0 {
		gamma--
	}

	rangeLo, rangeHi := min(i, j), max(i, j)

	var left, right int
	if rangeLo == gamma {
		left = n - 1 + gamma
	} else {
		left = gamma
	}
	if rangeHi == gamma+1 {
		right = n - 1 + gamma + 1
	} else {
		right = gamma + 1
	}

	nodes[i] = Node{RightEdge: rangeHi, Left: left, Right: right, IsLeaf: false}
	parents[left] = i
	parents[right] = i
}

func absInt(x int) int {
	if x < 0 {
		return -x
	}
	return x
}

// LeafBounds fills bounds[N-1+k] with the AABB of the primitive each
// leaf carries, the leafBounds kernel of spec.md §4.6's step 6.
func (b *LBVHBuilder[T]) LeafBounds(ctx context.Context, centers []Vec3[T], radii []T, nodes []Node, bounds []AABB[T]) error {
	n := len(centers)
	if n == 0 {
		return nil
	}
	numGroups := (n + b.groupSize - 1) / b.groupSize
	return b.pool.Launch(ctx, numGroups, func(ctx context.Context, group int) error {
		start := group * b.groupSize
		end := min(start+b.groupSize, n)
		for k := start; k < end; k++ {
			idx := n - 1 + k
			id := nodes[idx].PrimID
			bounds[idx] = SphereAABB(centers[id], radii[id])
		}
		return nil
	})
}

// InternalBounds propagates leaf bounds up to every internal node, the
// internalBounds kernel of spec.md §4.6's step 7. flags must have
// length N-1, pre-cleared to zero; it is the atomic rendezvous counter
// of spec.md §4.4/§5: the first child to arrive at a node stops, the
// second computes and writes the node's union and continues upward.
func (b *LBVHBuilder[T]) InternalBounds(ctx context.Context, nodes []Node, parents []int, flags []int32, bounds []AABB[T]) error {
	n := (len(nodes) + 1) / 2
	if n < 2 {
		return nil
	}
	numGroups := (n + b.groupSize - 1) / b.groupSize
	return b.pool.Launch(ctx, numGroups, func(ctx context.Context, group int) error {
		start := group * b.groupSize
		end := min(start+b.groupSize, n)
		for k := start; k < end; k++ {
			idx := n - 1 + k
			parent := parents[idx]
			for parent != -1 {
				arrived := atomic.AddInt32(&flags[parent], 1)
				if arrived == 1 {
					break
				}
				left, right := nodes[parent].Left, nodes[parent].Right
				bounds[parent] = Union(bounds[left], bounds[right])
				idx = parent
				parent = parents[idx]
			}
		}
		return nil
	})
}

// Build runs the full leaf-fill/internal-construction/bounds-
// propagation sequence against freshly allocated node/parent/flag/
// bounds storage, for callers (and tests) that don't need the
// Collider's fine-grained event wiring.
func (b *LBVHBuilder[T]) Build(ctx context.Context, codes []uint32, ids []uint32, centers []Vec3[T], radii []T) ([]Node, []int, []AABB[T], error) {
	n := len(codes)
	count := NodeCount(n)
	nodes := make([]Node, count)
	parents := make([]int, count)
	for i := range parents {
		parents[i] = -1
	}
	bounds := make([]AABB[T], count)

	if err := b.FillLeaves(ctx, nodes, ids); err != nil {
		return nil, nil, nil, err
	}
	if err := b.BuildInternal(ctx, codes, nodes, parents); err != nil {
		return nil, nil, nil, err
	}
	if err := b.LeafBounds(ctx, centers, radii, nodes, bounds); err != nil {
		return nil, nil, nil, err
	}
	if n >= 2 {
		flags := make([]int32, n-1)
		if err := b.InternalBounds(ctx, nodes, parents, flags, bounds); err != nil {
			return nil, nil, nil, err
		}
	}
	return nodes, parents, bounds, nil
}
