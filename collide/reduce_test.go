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
	"math/rand"
	"testing"

	"github.com/ajroetker/go-collide/device"
)

// P2: reducer output equals (min v, max v) componentwise.
func TestBoundsCorrectness(t *testing.T) {
	pool := device.NewWorkgroupPool(4)
	b, err := NewBounds[float32](pool, 3, 4)
	if err != nil {
		t.Fatalf("NewBounds: %v", err)
	}

	rng := rand.New(rand.NewSource(7))
	n := 137
	centers := make([]Vec3[float32], n)
	radii := make([]float32, n)
	for i := range centers {
		centers[i] = Vec3[float32]{
			X: rng.Float32()*20 - 10,
			Y: rng.Float32()*20 - 10,
			Z: rng.Float32()*20 - 10,
		}
		radii[i] = rng.Float32() + 0.01
	}

	got, err := b.ReduceAABBs(context.Background(), centers, radii)
	if err != nil {
		t.Fatalf("ReduceAABBs: %v", err)
	}

	want := SphereAABB(centers[0], radii[0])
	for i := 1; i < n; i++ {
		want = Union(want, SphereAABB(centers[i], radii[i]))
	}

	if got != want {
		t.Fatalf("got %+v, want %+v", got, want)
	}
}

// S3 from spec.md §8: four unit spheres, expected root bounds.
func TestBoundsFigure3Scenario(t *testing.T) {
	pool := device.NewWorkgroupPool(2)
	b, err := NewBounds[float32](pool, 2, 2)
	if err != nil {
		t.Fatalf("NewBounds: %v", err)
	}
	centers := []Vec3[float32]{
		{0, 1, 3}, {4, 1, 8}, {-4, -6, 3}, {-5, 0, -1},
	}
	radii := []float32{1, 1, 1, 1}

	got, err := b.ReduceAABBs(context.Background(), centers, radii)
	if err != nil {
		t.Fatalf("ReduceAABBs: %v", err)
	}
	want := AABB[float32]{
		Min: Vec3[float32]{-6, -7, -2},
		Max: Vec3[float32]{5, 2, 9},
	}
	if got != want {
		t.Fatalf("got %+v, want %+v", got, want)
	}
}

func TestSummerCorrectness(t *testing.T) {
	pool := device.NewWorkgroupPool(4)
	s, err := NewSummer[uint32](pool, 4, 4)
	if err != nil {
		t.Fatalf("NewSummer: %v", err)
	}
	values := make([]uint32, 1000)
	var want uint32
	for i := range values {
		values[i] = uint32(i + 1)
		want += values[i]
	}
	got, err := s.Reduce(context.Background(), values)
	if err != nil {
		t.Fatalf("Reduce: %v", err)
	}
	if got != want {
		t.Fatalf("got %d, want %d", got, want)
	}
}
