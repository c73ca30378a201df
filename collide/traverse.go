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

// PairU32 is a reported collision pair: two original primitive ids
// (spec.md §6's "M×2 u32 pair records").
type PairU32 struct {
	A, B uint32
}

// Traverser walks an LBVH stacklessly for every leaf and reports each
// AABB-overlapping unordered pair exactly once (C5 in SPEC_FULL.md
// §3, spec.md §4.5).
type Traverser[T lane.Float] struct {
	pool      *device.WorkgroupPool
	groupSize int
}

// NewTraverser creates a traverser whose leaf queries are launched in
// groupSize-wide batches.
func NewTraverser[T lane.Float](pool *device.WorkgroupPool, groupSize int) (*Traverser[T], error) {
	if !isPowerOfTwo(groupSize) {
		return nil, configErrorf("group_size %d is not a power of two", groupSize)
	}
	return &Traverser[T]{pool: pool, groupSize: groupSize}, nil
}

// Resize changes the work-group size.
func (t *Traverser[T]) Resize(groupSize int) error {
	if !isPowerOfTwo(groupSize) {
		return configErrorf("group_size %d is not a power of two", groupSize)
	}
	t.groupSize = groupSize
	return nil
}

// nextAfterSkip returns the node to jump to when node v's subtree is
// rejected by the overlap test: the node immediately following v's
// right_edge in leaf-position order, derived purely from right_edge
// per spec.md §4.5 ("equivalently, each node's next-after-skip
// successor can be derived from right_edge alone"). It scans upward
// until it finds an ancestor whose right_edge exceeds v's — the first
// ancestor v reached by descending its *left* child, since every node
// reached via a right child shares its parent's right_edge. Reaching
// the root without finding one means v's right_edge already is the
// tree's last position: that is spec.md §4.5's early termination,
// here just the natural end of this walk. Grounded in
// original_source/collision/offset.py's single-pass-up formulation
// rather than a per-node precomputed successor table.
func nextAfterSkip(v int, nodes []Node, parents []int) int {
	edge := nodes[v].RightEdge
	cur := v
	for {
		p := parents[cur]
		if p == -1 {
			return -1
		}
		if nodes[p].RightEdge > edge {
			return nodes[p].Right
		}
		cur = p
	}
}

// Traverse queries every leaf's AABB against the tree rooted at
// nodes[0], writing each unordered overlapping pair (ID[k], ID[m])
// with leaf-position m > k into pairs at an atomically-claimed slot,
// up to len(pairs) (or counting only, if pairs is nil). It returns the
// total number of overlapping pairs found, which may exceed len(pairs)
// (spec.md §7's Overflow: the caller compares the count to len(pairs)
// to detect truncation).
func (t *Traverser[T]) Traverse(ctx context.Context, nodes []Node, parents []int, bounds []AABB[T], pairs []PairU32) (int, error) {
	n := (len(nodes) + 1) / 2
	if n < 2 {
		return 0, nil
	}
	var count int64
	cap32 := int64(len(pairs))

	numGroups := (n + t.groupSize - 1) / t.groupSize
	err := t.pool.Launch(ctx, numGroups, func(ctx context.Context, group int) error {
		start := group * t.groupSize
		end := min(start+t.groupSize, n)
		for k := start; k < end; k++ {
			leafIdx := n - 1 + k
			queryBox := bounds[leafIdx]

			v := 0
			for v != -1 {
				node := nodes[v]
				if node.IsLeaf {
					m := node.RightEdge
					if m > k && Overlaps(queryBox, bounds[v]) {
						slot := atomic.AddInt64(&count, 1) - 1
						if slot < cap32 {
							pairs[slot] = PairU32{A: nodes[leafIdx].PrimID, B: node.PrimID}
						}
					}
					v = nextAfterSkip(v, nodes, parents)
					continue
				}

				if Overlaps(queryBox, bounds[v]) {
					v = node.Left
					continue
				}
				v = nextAfterSkip(v, nodes, parents)
			}
		}
		return nil
	})
	if err != nil {
		return 0, runtimeErrorf(err, "traverse pass")
	}
	return int(atomic.LoadInt64(&count)), nil
}

// EnqueueTraverse enqueues a Traverse as a single-group kernel launch
// on q, waiting for waitFor first, and returns immediately with an
// Event; the pair count is delivered through countOut once the event
// completes.
func (t *Traverser[T]) EnqueueTraverse(q *device.Queue, waitFor []*device.Event, nodes []Node, parents []int, bounds []AABB[T], pairs []PairU32, countOut *int) *device.Event {
	return q.EnqueueKernel(waitFor, 1, func(ctx context.Context, group int) error {
		n, err := t.Traverse(ctx, nodes, parents, bounds, pairs)
		if err != nil {
			return err
		}
		*countOut = n
		return nil
	})
}
