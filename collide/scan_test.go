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
	"errors"
	"math/rand"
	"testing"

	"github.com/ajroetker/go-collide/device"
)

func wantExclusiveScan(in []uint32) []uint32 {
	out := make([]uint32, len(in))
	var carry uint32
	for i, v := range in {
		out[i] = carry
		carry += v
	}
	return out
}

func TestPrefixScannerConfigError(t *testing.T) {
	pool := device.NewWorkgroupPool(2)
	if _, err := NewPrefixScanner(pool, 3); err == nil {
		t.Fatal("expected ConfigError for non-power-of-two group size")
	}

	s, err := NewPrefixScanner(pool, 4)
	if err != nil {
		t.Fatalf("NewPrefixScanner: %v", err)
	}
	data := make([]uint32, 5) // not a multiple of 2*4
	var ce *ConfigError
	if err := s.Scan(context.Background(), data); !errors.As(err, &ce) {
		t.Fatalf("Scan error = %v, want *ConfigError", err)
	}
}

// P1: for all S = 2G*k, for all inputs x, scan(x)[i] = sum_{j<i} x[j].
func TestPrefixScannerCorrectness(t *testing.T) {
	pool := device.NewWorkgroupPool(4)
	for _, g := range []int{1, 2, 4, 8} {
		s, err := NewPrefixScanner(pool, g)
		if err != nil {
			t.Fatalf("NewPrefixScanner(%d): %v", g, err)
		}
		for _, k := range []int{1, 2, 3, 7, 16} {
			n := 2 * g * k
			rng := rand.New(rand.NewSource(int64(g*1000 + k)))
			data := make([]uint32, n)
			for i := range data {
				data[i] = uint32(rng.Intn(100))
			}
			want := wantExclusiveScan(data)
			if err := s.Scan(context.Background(), data); err != nil {
				t.Fatalf("Scan(G=%d,n=%d): %v", g, n, err)
			}
			for i := range want {
				if data[i] != want[i] {
					t.Fatalf("G=%d n=%d: data[%d] = %d, want %d", g, n, i, data[i], want[i])
				}
			}
		}
	}
}

func TestPrefixScannerZeroLength(t *testing.T) {
	pool := device.NewWorkgroupPool(2)
	s, _ := NewPrefixScanner(pool, 4)
	if err := s.Scan(context.Background(), nil); err != nil {
		t.Fatalf("Scan(nil): %v", err)
	}
}

func TestPrefixScannerEvent(t *testing.T) {
	pool := device.NewWorkgroupPool(2)
	q := device.NewQueue(pool, context.Background())
	s, _ := NewPrefixScanner(pool, 2)

	buf := device.NewBuffer[uint32](8, device.AccessRead|device.AccessWrite)
	_ = buf.HostWrite([]uint32{1, 2, 3, 4, 5, 6, 7, 8})

	ev := s.EnqueueScan(q, nil, buf)
	if err := ev.Wait(); err != nil {
		t.Fatalf("EnqueueScan: %v", err)
	}
	want := []uint32{0, 1, 3, 6, 10, 15, 21, 28}
	got := buf.Data()
	for i := range want {
		if got[i] != want[i] {
			t.Errorf("got[%d] = %d, want %d", i, got[i], want[i])
		}
	}
}
