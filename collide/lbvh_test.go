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
	"testing"

	"github.com/ajroetker/go-collide/device"
)

func buildTreeOnly(t *testing.T, codes []uint32) ([]Node, []int) {
	t.Helper()
	pool := device.NewWorkgroupPool(2)
	b, err := NewLBVHBuilder[float32](pool, 2)
	if err != nil {
		t.Fatalf("NewLBVHBuilder: %v", err)
	}
	n := len(codes)
	count := NodeCount(n)
	nodes := make([]Node, count)
	parents := make([]int, count)
	for i := range parents {
		parents[i] = -1
	}
	ids := make([]uint32, n)
	for i := range ids {
		ids[i] = uint32(i)
	}
	if err := b.FillLeaves(context.Background(), nodes, ids); err != nil {
		t.Fatalf("FillLeaves: %v", err)
	}
	if err := b.BuildInternal(context.Background(), codes, nodes, parents); err != nil {
		t.Fatalf("BuildInternal: %v", err)
	}
	return nodes, parents
}

// S1 — Figure-3 tree.
func TestLBVHBuildInternalFigure3(t *testing.T) {
	codes := []uint32{0b00001, 0b00010, 0b00100, 0b00101, 0b10011, 0b11000, 0b11001, 0b11110}
	nodes, parents := buildTreeOnly(t, codes)

	type want struct {
		parent, rightEdge, left, right int
	}
	wants := map[int]want{
		0: {-1, 7, 3, 4},
		1: {3, 1, 7, 8},
		2: {3, 3, 9, 10},
		3: {0, 3, 1, 2},
		4: {0, 7, 11, 5},
		5: {4, 7, 6, 14},
		6: {5, 6, 12, 13},
	}
	for i := 0; i < 7; i++ {
		w := wants[i]
		if parents[i] != w.parent {
			t.Errorf("node %d: parent = %d, want %d", i, parents[i], w.parent)
		}
		if nodes[i].RightEdge != w.rightEdge {
			t.Errorf("node %d: right_edge = %d, want %d", i, nodes[i].RightEdge, w.rightEdge)
		}
		if nodes[i].Left != w.left || nodes[i].Right != w.right {
			t.Errorf("node %d: data = [%d,%d], want [%d,%d]", i, nodes[i].Left, nodes[i].Right, w.left, w.right)
		}
	}

	wantLeafParents := []int{1, 1, 2, 2, 4, 6, 6, 5}
	for k, want := range wantLeafParents {
		got := parents[7+k]
		if got != want {
			t.Errorf("leaf %d: parent = %d, want %d", k, got, want)
		}
	}
}

// S2 — Odd tree.
func TestLBVHBuildInternalOddTree(t *testing.T) {
	codes := []uint32{0b00001, 0b00010, 0b00100, 0b00101, 0b10011, 0b11000, 0b11001}
	nodes, parents := buildTreeOnly(t, codes)

	wantLeafParents := []int{1, 1, 2, 2, 4, 5, 5}
	for k, want := range wantLeafParents {
		got := parents[6+k] // N=7: leaves start at index N-1=6
		if got != want {
			t.Errorf("leaf %d: parent = %d, want %d", k, got, want)
		}
	}
	if nodes[0].RightEdge != 6 {
		t.Errorf("root right_edge = %d, want 6", nodes[0].RightEdge)
	}
}

// P4: parent set covers [0, N-1) exactly twice each; root (index 0)
// has no incoming parent pointer.
func TestLBVHTreeValidity(t *testing.T) {
	codes := []uint32{0b00001, 0b00010, 0b00100, 0b00101, 0b10011, 0b11000, 0b11001, 0b11110}
	n := len(codes)
	_, parents := buildTreeOnly(t, codes)

	counts := make(map[int]int)
	for v := 1; v < 2*n-1; v++ {
		counts[parents[v]]++
	}
	for i := 0; i < n-1; i++ {
		if counts[i] != 2 {
			t.Errorf("internal node %d appears as parent %d times, want 2", i, counts[i])
		}
	}
	if parents[0] != -1 {
		t.Errorf("root parent = %d, want sentinel -1", parents[0])
	}
}

// P5: right_edge(v) = right_edge(right child) for every internal
// node, and leaves have right_edge == their position.
func TestLBVHRightEdgeMonotonicity(t *testing.T) {
	codes := []uint32{0b00001, 0b00010, 0b00100, 0b00101, 0b10011, 0b11000, 0b11001, 0b11110}
	n := len(codes)
	nodes, _ := buildTreeOnly(t, codes)

	for i := 0; i < n-1; i++ {
		r := nodes[i].Right
		if nodes[i].RightEdge != nodes[r].RightEdge {
			t.Errorf("node %d: right_edge %d != right child %d's right_edge %d", i, nodes[i].RightEdge, r, nodes[r].RightEdge)
		}
	}
	for k := 0; k < n; k++ {
		idx := n - 1 + k
		if nodes[idx].RightEdge != k {
			t.Errorf("leaf %d: right_edge = %d, want %d", k, nodes[idx].RightEdge, k)
		}
	}
}

// S3 via the full Build pipeline, cross-checking reduce_test's direct
// Reducer-based computation of the same scenario.
func TestLBVHBuildBoundsFigure3(t *testing.T) {
	pool := device.NewWorkgroupPool(2)
	b, err := NewLBVHBuilder[float32](pool, 2)
	if err != nil {
		t.Fatalf("NewLBVHBuilder: %v", err)
	}
	codes := []uint32{0b00001, 0b00010, 0b00100, 0b00101}
	ids := []uint32{0, 1, 2, 3}
	centers := []Vec3[float32]{
		{0, 1, 3}, {4, 1, 8}, {-4, -6, 3}, {-5, 0, -1},
	}
	radii := []float32{1, 1, 1, 1}

	_, _, bounds, err := b.Build(context.Background(), codes, ids, centers, radii)
	if err != nil {
		t.Fatalf("Build: %v", err)
	}
	want := AABB[float32]{
		Min: Vec3[float32]{-6, -7, -2},
		Max: Vec3[float32]{5, 2, 9},
	}
	if bounds[0] != want {
		t.Fatalf("root bounds = %+v, want %+v", bounds[0], want)
	}
}
