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

// Shared leaf utilities, promoted out of ad-hoc call-site arithmetic
// the way original_source/misc.py's roundUp/nextPowerOf2 serve every
// other collision/*.py module (see SPEC_FULL.md §4).

// roundUp rounds x up to the nearest multiple of base. base must be > 0.
func roundUp(x, base int) int {
	if x%base == 0 {
		return x
	}
	return (x/base + 1) * base
}

// isPowerOfTwo reports whether x is a positive power of two.
func isPowerOfTwo(x int) bool {
	return x > 0 && x&(x-1) == 0
}

// nextPowerOfTwo returns the smallest power of two >= x (x > 0).
func nextPowerOfTwo(x int) int {
	if x <= 1 {
		return 1
	}
	p := 1
	for p < x {
		p <<= 1
	}
	return p
}
