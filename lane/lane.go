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

// Package lane is the portable tile abstraction that the collision kernels
// in package collide run their per-work-item inner loops over. It is the
// scalar-device analogue of a GPU work-item: a kernel reads and writes a
// Vec[T] the same way an OpenCL kernel body reads and writes private
// registers, and TileWidth reports how many work-items a single Go
// goroutine should process per iteration so its inner loop stays
// cache-tiled the way a work-group's local memory would.
//
// Unlike a real accelerator, there is no separate address space: Vec[T]
// is a small tile holding its own copy of values taken from a Go slice
// (Load, LoadN, Set and the lanewise ops each allocate a new backing
// slice). The point of keeping
// the abstraction is the same one Highway makes for CPU SIMD — write a
// kernel once against Numeric, and let dispatch pick the tile width.
package lane

// Numeric is the constraint every collide kernel parameterizes over:
// the 32-bit key/id/flag arithmetic of the sort and tree builder, plus
// the float coordinate types used for centers, radii and AABBs.
type Numeric interface {
	~uint32 | ~uint64 | ~int32 | ~int64 | ~float32 | ~float64
}

// Unsigned is the constraint for keys, ids, flags and Morton codes.
type Unsigned interface {
	~uint32 | ~uint64
}

// Float is the constraint for coordinate and radius values.
type Float interface {
	~float32 | ~float64
}

// Vec is a fixed-width tile of values. It never grows past its initial
// length; Load copies values from a slice into a newly allocated tile.
type Vec[T Numeric] struct {
	data []T
}

// NumLanes reports the tile width.
func (v Vec[T]) NumLanes() int { return len(v.data) }

// At returns the value at a given lane.
func (v Vec[T]) At(i int) T { return v.data[i] }

// Load reads up to n values from src into a new tile, where n is the
// currently configured TileWidth for T (or len(src) if shorter).
func Load[T Numeric](src []T) Vec[T] {
	n := min(len(src), TileWidth[T]())
	data := make([]T, n)
	copy(data, src[:n])
	return Vec[T]{data: data}
}

// LoadN reads exactly n values (n must be <= len(src)).
func LoadN[T Numeric](src []T, n int) Vec[T] {
	data := make([]T, n)
	copy(data, src[:n])
	return Vec[T]{data: data}
}

// Store writes the tile back to dst.
func Store[T Numeric](v Vec[T], dst []T) {
	copy(dst[:len(v.data)], v.data)
}

// Set fills a tile of the given width with a single repeated value.
func Set[T Numeric](width int, value T) Vec[T] {
	data := make([]T, width)
	for i := range data {
		data[i] = value
	}
	return Vec[T]{data: data}
}

// Add returns the lanewise sum of two equal-width tiles.
func Add[T Numeric](a, b Vec[T]) Vec[T] {
	out := make([]T, len(a.data))
	for i := range out {
		out[i] = a.data[i] + b.data[i]
	}
	return Vec[T]{data: out}
}

// Min returns the lanewise minimum of two equal-width tiles.
func Min[T Numeric](a, b Vec[T]) Vec[T] {
	out := make([]T, len(a.data))
	for i := range out {
		if b.data[i] < a.data[i] {
			out[i] = b.data[i]
		} else {
			out[i] = a.data[i]
		}
	}
	return Vec[T]{data: out}
}

// Max returns the lanewise maximum of two equal-width tiles.
func Max[T Numeric](a, b Vec[T]) Vec[T] {
	out := make([]T, len(a.data))
	for i := range out {
		if b.data[i] > a.data[i] {
			out[i] = b.data[i]
		} else {
			out[i] = a.data[i]
		}
	}
	return Vec[T]{data: out}
}

// ReduceMin reduces a tile, lane by lane, to a single minimum, the way a
// local_scan/bounds1 kernel reduces its local-memory tile before
// writing one value per work-group.
func ReduceMin[T Numeric](v Vec[T]) T {
	m := v.data[0]
	for _, x := range v.data[1:] {
		if x < m {
			m = x
		}
	}
	return m
}

// ReduceMax reduces a tile, lane by lane, to a single maximum.
func ReduceMax[T Numeric](v Vec[T]) T {
	m := v.data[0]
	for _, x := range v.data[1:] {
		if x > m {
			m = x
		}
	}
	return m
}

// ReduceSum reduces a tile, lane by lane, to a single sum (the parallel
// summer variant of the Reducer, see SPEC_FULL.md §4).
func ReduceSum[T Numeric](v Vec[T]) T {
	var s T
	for _, x := range v.data {
		s += x
	}
	return s
}
