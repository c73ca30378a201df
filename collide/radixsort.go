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
)

// RadixSorter stably sorts 32-bit unsigned keys in ascending order,
// optionally carrying a value payload (C3 in SPEC_FULL.md §3). It
// implements spec.md §4.3's LSD radix sort: radixBits bits per pass,
// 32/radixBits passes for 32-bit keys.
//
// Each pass has three stages, mirroring the kernel sequence exactly:
// block_sort partitions each work-group's 2*groupSize elements by the
// pass's digit and records a per-group histogram; a PrefixScanner (C1)
// turns that bin-major histogram into global (bin, group) start
// offsets; scatter combines each element's global offset with its
// rank within its block's digit run to place it in its final spot for
// this pass.
type RadixSorter[V any] struct {
	pool      *device.WorkgroupPool
	groupSize int
	radixBits int
	scanner   *PrefixScanner
}

// NewRadixSorter creates a sorter. groupSize must be a power of two;
// radixBits must divide 32 and 2^radixBits must not exceed 2*groupSize.
func NewRadixSorter[V any](pool *device.WorkgroupPool, groupSize, radixBits int) (*RadixSorter[V], error) {
	s := &RadixSorter[V]{pool: pool}
	if err := s.configure(groupSize, radixBits); err != nil {
		return nil, err
	}
	return s, nil
}

func (s *RadixSorter[V]) configure(groupSize, radixBits int) error {
	if !isPowerOfTwo(groupSize) {
		return configErrorf("group_size %d is not a power of two", groupSize)
	}
	if radixBits <= 0 || 32%radixBits != 0 {
		return configErrorf("radix_bits %d does not divide the 32-bit key width", radixBits)
	}
	if numBins := 1 << radixBits; numBins > 2*groupSize {
		return configErrorf("2^radix_bits (%d) exceeds 2*group_size (%d)", numBins, 2*groupSize)
	}
	scanner, err := NewPrefixScanner(s.pool, groupSize)
	if err != nil {
		return err
	}
	s.groupSize, s.radixBits, s.scanner = groupSize, radixBits, scanner
	return nil
}

// Resize changes the work-group size and/or bits-per-pass, leaving the
// sorter in its prior configuration if the new one is invalid
// (transactional resize, spec.md §7).
func (s *RadixSorter[V]) Resize(groupSize, radixBits int) error {
	prevGroupSize, prevRadixBits, prevScanner := s.groupSize, s.radixBits, s.scanner
	if err := s.configure(groupSize, radixBits); err != nil {
		s.groupSize, s.radixBits, s.scanner = prevGroupSize, prevRadixBits, prevScanner
		return err
	}
	return nil
}

// GroupSize returns the configured work-group size G.
func (s *RadixSorter[V]) GroupSize() int { return s.groupSize }

// RadixBits returns the configured bits per pass.
func (s *RadixSorter[V]) RadixBits() int { return s.radixBits }

// Sort stably sorts keys ascending in place, permuting values (if
// non-nil) the same way. len(keys) must be a multiple of 2*GroupSize();
// if values is non-nil it must have the same length as keys.
func (s *RadixSorter[V]) Sort(ctx context.Context, keys []uint32, values []V) error {
	n := len(keys)
	if n == 0 {
		return nil
	}
	if values != nil && len(values) != n {
		return argumentErrorf("values length %d does not match keys length %d", len(values), n)
	}
	tile := 2 * s.groupSize
	if n%tile != 0 {
		return configErrorf("sort input length %d is not a multiple of 2*group_size (%d)", n, tile)
	}

	numBlocks := n / tile
	numBins := 1 << s.radixBits
	passes := 32 / s.radixBits
	histLen := roundUp(numBins*numBlocks, 2*s.scanner.GroupSize())

	destKeys := make([]uint32, n)
	var destValues []V
	if values != nil {
		destValues = make([]V, n)
	}
	binStart := make([][]int, numBlocks)

	for p := 0; p < passes; p++ {
		shift := uint(p * s.radixBits)
		mask := uint32(numBins - 1)
		histogram := make([]uint32, histLen)

		err := s.pool.Launch(ctx, numBlocks, func(ctx context.Context, group int) error {
			block := keys[group*tile : (group+1)*tile]
			var blockVals []V
			if values != nil {
				blockVals = values[group*tile : (group+1)*tile]
			}

			counts := make([]uint32, numBins)
			for _, k := range block {
				counts[(k>>shift)&mask]++
			}
			starts := make([]int, numBins)
			sum := uint32(0)
			for b := 0; b < numBins; b++ {
				starts[b] = int(sum)
				histogram[b*numBlocks+group] = counts[b]
				sum += counts[b]
			}

			cursor := append([]int(nil), starts...)
			sortedKeys := make([]uint32, tile)
			var sortedVals []V
			if values != nil {
				sortedVals = make([]V, tile)
			}
			for i, k := range block {
				d := int((k >> shift) & mask)
				pos := cursor[d]
				cursor[d]++
				sortedKeys[pos] = k
				if values != nil {
					sortedVals[pos] = blockVals[i]
				}
			}
			copy(block, sortedKeys)
			if values != nil {
				copy(blockVals, sortedVals)
			}
			binStart[group] = starts
			return nil
		})
		if err != nil {
			return runtimeErrorf(err, "block_sort pass (shift %d)", shift)
		}

		if err := s.scanner.Scan(ctx, histogram); err != nil {
			return err
		}

		err = s.pool.Launch(ctx, numBlocks, func(ctx context.Context, group int) error {
			block := keys[group*tile : (group+1)*tile]
			var blockVals []V
			if values != nil {
				blockVals = values[group*tile : (group+1)*tile]
			}
			starts := binStart[group]
			for i, k := range block {
				d := int((k >> shift) & mask)
				intraRank := i - starts[d]
				globalOffset := histogram[d*numBlocks+group]
				dest := int(globalOffset) + intraRank
				destKeys[dest] = k
				if values != nil {
					destValues[dest] = blockVals[i]
				}
			}
			return nil
		})
		if err != nil {
			return runtimeErrorf(err, "scatter pass (shift %d)", shift)
		}

		copy(keys, destKeys)
		if values != nil {
			copy(values, destValues)
		}
	}
	return nil
}

// EnqueueSort enqueues a Sort as a single-group kernel launch on q,
// waiting for waitFor first, and returns immediately with an Event.
func (s *RadixSorter[V]) EnqueueSort(q *device.Queue, waitFor []*device.Event, keys []uint32, values []V) *device.Event {
	return q.EnqueueKernel(waitFor, 1, func(ctx context.Context, group int) error {
		return s.Sort(ctx, keys, values)
	})
}
