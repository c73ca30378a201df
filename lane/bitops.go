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

import "math/bits"

// LeadingZeros32 counts leading zero bits of a 32-bit value, the count
// of spec.md §4.4's delta metric over an XOR of two bare Morton codes.
// The LBVH builder itself uses LeadingZeros64 on index-extended keys.
func LeadingZeros32(x uint32) int {
	return bits.LeadingZeros32(x)
}

// LeadingZeros64 counts leading zero bits of a 64-bit value, used when
// the Karras delta metric is extended with the tie-breaking index
// (effectively a 64-bit key: code in the high bits, index in the low).
func LeadingZeros64(x uint64) int {
	return bits.LeadingZeros64(x)
}
