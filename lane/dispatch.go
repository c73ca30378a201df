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

import (
	"os"
	"strconv"

	"golang.org/x/sys/cpu"
)

// Level names the vector width this process will tile its inner loops
// at. There is no real accelerator underneath; the level only records
// which CPU feature informed the choice, the way the teacher's
// dispatch.go records which SIMD extension a kernel was JIT-dispatched
// to.
type Level int

const (
	LevelScalar Level = iota
	LevelWide128
	LevelWide256
	LevelWide512
)

func (l Level) String() string {
	switch l {
	case LevelWide512:
		return "wide512"
	case LevelWide256:
		return "wide256"
	case LevelWide128:
		return "wide128"
	default:
		return "scalar"
	}
}

var currentLevel = detectLevel()

func detectLevel() Level {
	if v := os.Getenv("GOCOLLIDE_TILE_WIDTH"); v != "" {
		if n, err := strconv.Atoi(v); err == nil && n > 0 {
			switch {
			case n >= 16:
				return LevelWide512
			case n >= 8:
				return LevelWide256
			case n >= 4:
				return LevelWide128
			default:
				return LevelScalar
			}
		}
	}
	switch {
	case cpu.X86.HasAVX512F:
		return LevelWide512
	case cpu.X86.HasAVX2:
		return LevelWide256
	case cpu.ARM64.HasASIMD:
		return LevelWide128
	default:
		return LevelScalar
	}
}

// CurrentLevel reports the tile width level chosen for this process.
func CurrentLevel() Level { return currentLevel }

// TileWidth returns how many lanes of T a kernel should process per
// goroutine iteration. It is deliberately small and type-independent:
// unlike true SIMD registers, a Go slice tile has no hardware width
// limit, so this is purely a cache/locality knob tuned by CurrentLevel.
func TileWidth[T Numeric]() int {
	switch currentLevel {
	case LevelWide512:
		return 16
	case LevelWide256:
		return 8
	case LevelWide128:
		return 4
	default:
		return 1
	}
}
