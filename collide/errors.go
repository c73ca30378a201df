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

import "fmt"

// ConfigError reports an invalid construction or resize argument:
// a group size that isn't a power of two, a non-positive ngroups, a
// negative N, incompatible radix_bits, or a scan/sort input length
// that isn't a multiple of 2*groupSize (spec.md §7).
type ConfigError struct {
	msg string
}

func (e *ConfigError) Error() string { return "collide: config error: " + e.msg }

func configErrorf(format string, args ...any) error {
	return &ConfigError{msg: fmt.Sprintf(format, args...)}
}

// ArgumentError reports an invalid call-site argument, such as a nil
// collisions buffer with a positive capacity (spec.md §7).
type ArgumentError struct {
	msg string
}

func (e *ArgumentError) Error() string { return "collide: argument error: " + e.msg }

func argumentErrorf(format string, args ...any) error {
	return &ArgumentError{msg: fmt.Sprintf(format, args...)}
}

// RuntimeError wraps a failure surfaced by the device runtime itself:
// kernel launch failure, allocation failure, or a device-side error
// during enqueue (spec.md §7).
type RuntimeError struct {
	msg string
	err error
}

func (e *RuntimeError) Error() string {
	if e.err != nil {
		return "collide: runtime error: " + e.msg + ": " + e.err.Error()
	}
	return "collide: runtime error: " + e.msg
}

func (e *RuntimeError) Unwrap() error { return e.err }

func runtimeErrorf(err error, format string, args ...any) error {
	return &RuntimeError{msg: fmt.Sprintf(format, args...), err: err}
}
