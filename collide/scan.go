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

// PrefixScanner computes the exclusive prefix sum of an unsigned
// 32-bit array in place (C1 in SPEC_FULL.md §3), using the block
// recursion of spec.md §4.1: a local_scan pass scans each 2*groupSize
// block and emits one block total per block; the block totals recurse
// through the same scanner as a new, smaller input; the scanned block
// totals are then added back to their block's elements by a
// block_scan pass. Each block is scanned serially with a running
// carry (localExclusiveScan); there is no in-block up-sweep/down-sweep
// tree.
type PrefixScanner struct {
	pool      *device.WorkgroupPool
	groupSize int
}

// NewPrefixScanner creates a scanner whose work-groups are groupSize
// work-items wide. groupSize must be a power of two.
func NewPrefixScanner(pool *device.WorkgroupPool, groupSize int) (*PrefixScanner, error) {
	if !isPowerOfTwo(groupSize) {
		return nil, configErrorf("group_size %d is not a power of two", groupSize)
	}
	return &PrefixScanner{pool: pool, groupSize: groupSize}, nil
}

// GroupSize returns the configured work-group size G.
func (s *PrefixScanner) GroupSize() int { return s.groupSize }

// Scan computes the exclusive prefix sum of data in place. len(data)
// must be a multiple of 2*GroupSize(); violating this is a
// ConfigError, not a panic, since it is caller-observable per
// spec.md §4.1.
func (s *PrefixScanner) Scan(ctx context.Context, data []uint32) error {
	tile := 2 * s.groupSize
	if len(data) == 0 {
		return nil
	}
	if len(data)%tile != 0 {
		return configErrorf("scan input length %d is not a multiple of 2*group_size (%d)", len(data), tile)
	}
	_, err := s.scanLevel(ctx, data)
	return err
}

// scanLevel performs one level of the recursion and returns the total
// sum of the (pre-scan) input. Neither Scan nor the recursive call
// uses that total: each level derives its own grand total from the
// last block's captured sum.
func (s *PrefixScanner) scanLevel(ctx context.Context, data []uint32) (uint32, error) {
	tile := 2 * s.groupSize
	if len(data) <= tile {
		return localExclusiveScan(data), nil
	}

	numBlocks := len(data) / tile
	blockSums := make([]uint32, numBlocks)

	err := s.pool.Launch(ctx, numBlocks, func(ctx context.Context, group int) error {
		block := data[group*tile : (group+1)*tile]
		blockSums[group] = localExclusiveScan(block)
		return nil
	})
	if err != nil {
		return 0, runtimeErrorf(err, "local_scan pass")
	}

	lastBlockSum := blockSums[numBlocks-1]

	paddedLen := roundUp(numBlocks, tile)
	padded := make([]uint32, paddedLen)
	copy(padded, blockSums)
	if _, err := s.scanLevel(ctx, padded); err != nil {
		return 0, err
	}
	copy(blockSums, padded[:numBlocks])

	// blockSums now holds the exclusive prefix of the (pre-scan) block
	// totals; the grand total is the last block's exclusive offset
	// plus its own pre-scan sum, captured above before recursion
	// overwrote it.
	total := blockSums[numBlocks-1] + lastBlockSum

	err = s.pool.Launch(ctx, numBlocks, func(ctx context.Context, group int) error {
		offset := blockSums[group]
		applyOffset(data[group*tile:(group+1)*tile], offset)
		return nil
	})
	if err != nil {
		return 0, runtimeErrorf(err, "block_scan pass")
	}
	return total, nil
}

// localExclusiveScan scans a single block in place and returns the
// block's total (pre-scan) sum. It is the scalar core of the
// local_scan kernel's per-work-group body; the carry-based tiling
// mirrors the teacher's contrib/algo BasePrefixSum, reading in
// TileWidth-sized lanes.
func localExclusiveScan(block []uint32) uint32 {
	tw := lane.TileWidth[uint32]()
	carry := uint32(0)
	i := 0
	for i+tw <= len(block) {
		v := lane.LoadN(block[i:i+tw], tw)
		for j := 0; j < tw; j++ {
			cur := v.At(j)
			block[i+j] = carry
			carry += cur
		}
		i += tw
	}
	for ; i < len(block); i++ {
		cur := block[i]
		block[i] = carry
		carry += cur
	}
	return carry
}

// applyOffset adds offset to every element of block, the block_scan
// kernel's per-work-item body.
func applyOffset(block []uint32, offset uint32) {
	tw := lane.TileWidth[uint32]()
	i := 0
	for i+tw <= len(block) {
		v := lane.LoadN(block[i:i+tw], tw)
		off := lane.Set(tw, offset)
		lane.Store(lane.Add(v, off), block[i:i+tw])
		i += tw
	}
	for ; i < len(block); i++ {
		block[i] += offset
	}
}

// EnqueueScan enqueues a Scan as a single-group kernel launch on q,
// waiting for waitFor first, and returns immediately with an Event.
func (s *PrefixScanner) EnqueueScan(q *device.Queue, waitFor []*device.Event, buf *device.Buffer[uint32]) *device.Event {
	return q.EnqueueKernel(waitFor, 1, func(ctx context.Context, group int) error {
		return s.Scan(ctx, buf.Data())
	})
}
