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
	"math"

	"github.com/ajroetker/go-collide/lane"
)

// Vec3 is a three-component coordinate, padded to 4 lanes at the
// buffer boundary per spec.md §6 ("N×4 packed coord_dtype, lane 3
// unused") to permit wide aligned loads; the fourth lane simply isn't
// modeled since Go has no alignment-sensitive load path to protect.
type Vec3[T lane.Float] struct {
	X, Y, Z T
}

// AABB is an axis-aligned bounding box.
type AABB[T lane.Float] struct {
	Min, Max Vec3[T]
}

// SphereAABB returns the AABB of a sphere of the given radius: [center-radius*1, center+radius*1].
func SphereAABB[T lane.Float](center Vec3[T], radius T) AABB[T] {
	return AABB[T]{
		Min: Vec3[T]{center.X - radius, center.Y - radius, center.Z - radius},
		Max: Vec3[T]{center.X + radius, center.Y + radius, center.Z + radius},
	}
}

// Union returns the component-wise min/max of a and b (invariant I4).
func Union[T lane.Float](a, b AABB[T]) AABB[T] {
	return AABB[T]{
		Min: Vec3[T]{min(a.Min.X, b.Min.X), min(a.Min.Y, b.Min.Y), min(a.Min.Z, b.Min.Z)},
		Max: Vec3[T]{max(a.Max.X, b.Max.X), max(a.Max.Y, b.Max.Y), max(a.Max.Z, b.Max.Z)},
	}
}

// Overlaps reports the standard strict-inequality AABB overlap test
// used by the traverser (spec.md §4.5): "the standard strict
// inequality in all three axes."
func Overlaps[T lane.Float](a, b AABB[T]) bool {
	return a.Min.X < b.Max.X && b.Min.X < a.Max.X &&
		a.Min.Y < b.Max.Y && b.Min.Y < a.Max.Y &&
		a.Min.Z < b.Max.Z && b.Min.Z < a.Max.Z
}

// emptyAABB is the reduction identity for Union: (+Inf, -Inf) per
// axis, spec.md §4.2 ("Accumulator identity for min is +Inf, for max
// is -Inf").
func emptyAABB[T lane.Float]() AABB[T] {
	posInf := T(math.Inf(1))
	negInf := T(math.Inf(-1))
	return AABB[T]{
		Min: Vec3[T]{posInf, posInf, posInf},
		Max: Vec3[T]{negInf, negInf, negInf},
	}
}
