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

package lane

import "testing"

func TestLoadStore(t *testing.T) {
	src := []uint32{1, 2, 3, 4, 5, 6, 7, 8}
	v := LoadN(src, 8)
	if v.NumLanes() != 8 {
		t.Fatalf("NumLanes = %d, want 8", v.NumLanes())
	}
	dst := make([]uint32, 8)
	Store(v, dst)
	for i := range src {
		if dst[i] != src[i] {
			t.Errorf("dst[%d] = %d, want %d", i, dst[i], src[i])
		}
	}
}

func TestAddMinMax(t *testing.T) {
	a := LoadN([]int32{1, 5, 3, 9}, 4)
	b := LoadN([]int32{4, 2, 3, 1}, 4)

	sum := Add(a, b)
	want := []int32{5, 7, 6, 10}
	for i, w := range want {
		if sum.At(i) != w {
			t.Errorf("Add lane %d = %d, want %d", i, sum.At(i), w)
		}
	}

	mn := Min(a, b)
	wantMin := []int32{1, 2, 3, 1}
	for i, w := range wantMin {
		if mn.At(i) != w {
			t.Errorf("Min lane %d = %d, want %d", i, mn.At(i), w)
		}
	}

	mx := Max(a, b)
	wantMax := []int32{4, 5, 3, 9}
	for i, w := range wantMax {
		if mx.At(i) != w {
			t.Errorf("Max lane %d = %d, want %d", i, mx.At(i), w)
		}
	}
}

func TestReduce(t *testing.T) {
	v := LoadN([]float32{3, -1, 4, 1, 5, -9}, 6)
	if got := ReduceMin(v); got != -9 {
		t.Errorf("ReduceMin = %v, want -9", got)
	}
	if got := ReduceMax(v); got != 5 {
		t.Errorf("ReduceMax = %v, want 5", got)
	}
	if got := ReduceSum(v); got != 3 {
		t.Errorf("ReduceSum = %v, want 3", got)
	}
}

func TestLeadingZeros(t *testing.T) {
	if got := LeadingZeros32(1); got != 31 {
		t.Errorf("LeadingZeros32(1) = %d, want 31", got)
	}
	if got := LeadingZeros32(0); got != 32 {
		t.Errorf("LeadingZeros32(0) = %d, want 32", got)
	}
}

func TestTileWidth(t *testing.T) {
	w := TileWidth[uint32]()
	if w <= 0 {
		t.Fatalf("TileWidth = %d, want > 0", w)
	}
}
