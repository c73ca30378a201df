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

import "testing"

// S4 from spec.md §8.
func TestEncodeMortonScenario(t *testing.T) {
	centers := []Vec3[float32]{
		{0, 1, 3}, {0, 1, 3}, {4, 1, 8}, {-4, -6, 3}, {-5, 0, -1}, {-5, 0.5, -0.5},
	}
	want := []uint32{862940378, 862940378, 1073741823, 20332620, 302580864, 306295426}

	lo := Vec3[float32]{-5, -6, -1}
	hi := Vec3[float32]{4, 1, 8}

	for i, c := range centers {
		got := EncodeMorton(c, lo, hi)
		if got != want[i] {
			t.Errorf("EncodeMorton(%v) = %d, want %d", c, got, want[i])
		}
	}
}

func TestQuantizeAxisClamps(t *testing.T) {
	if q := quantizeAxis[float32](-100, 0, 10); q != 0 {
		t.Errorf("below-range quantize = %d, want 0", q)
	}
	if q := quantizeAxis[float32](100, 0, 10); q != morton10Bits {
		t.Errorf("above-range quantize = %d, want %d", q, morton10Bits)
	}
	if q := quantizeAxis[float32](5, 5, 5); q != 0 {
		t.Errorf("degenerate-range quantize = %d, want 0", q)
	}
}
