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

package device

import (
	"context"
	"fmt"
	"sync"
)

// AccessFlags mirrors the buffer access flags spec.md §6 lists as part
// of the compute runtime contract: {read, write, host-no-access,
// host-read-only}. They are advisory here — there is no separate
// device address space to enforce them against — but Buffer.HostRead
// and Buffer.HostWrite reject calls that violate them, so a caller
// that assumes host-no-access semantics is tested the same way it
// would be against a real accelerator.
type AccessFlags uint8

const (
	AccessRead AccessFlags = 1 << iota
	AccessWrite
	AccessHostNoAccess
	AccessHostReadOnly
)

// Buffer is a linear-memory device buffer of T.
type Buffer[T any] struct {
	data  []T
	flags AccessFlags
}

// NewBuffer allocates a buffer of the given length.
func NewBuffer[T any](length int, flags AccessFlags) *Buffer[T] {
	return &Buffer[T]{data: make([]T, length), flags: flags}
}

// Len reports the buffer length.
func (b *Buffer[T]) Len() int { return len(b.data) }

// Data exposes the underlying slice to kernels running on this
// process. Kernels are part of the trusted device-side code and may
// always read/write regardless of host-access flags; only HostRead
// and HostWrite enforce them.
func (b *Buffer[T]) Data() []T { return b.data }

// HostRead returns a copy of the buffer contents for host
// consumption, failing if the buffer was allocated host-no-access.
func (b *Buffer[T]) HostRead() ([]T, error) {
	if b.flags&AccessHostNoAccess != 0 {
		return nil, fmt.Errorf("device: buffer is host-no-access")
	}
	out := make([]T, len(b.data))
	copy(out, b.data)
	return out, nil
}

// HostWrite overwrites the buffer contents from the host, failing if
// the buffer is host-no-access or host-read-only.
func (b *Buffer[T]) HostWrite(src []T) error {
	if b.flags&AccessHostNoAccess != 0 {
		return fmt.Errorf("device: buffer is host-no-access")
	}
	if b.flags&AccessHostReadOnly != 0 {
		return fmt.Errorf("device: buffer is host-read-only")
	}
	n := copy(b.data, src)
	if n < len(src) {
		return fmt.Errorf("device: write overflows buffer of length %d", len(b.data))
	}
	return nil
}

// Event is a completion handle for an enqueued operation. It is
// non-blocking to obtain (Queue.Enqueue* return one immediately) and
// blocking only on Wait, matching spec.md §5: "only the final event
// wait before reading the counter... is blocking. All intermediate API
// calls are non-blocking enqueues."
type Event struct {
	done chan struct{}
	err  error
}

func newEvent() *Event { return &Event{done: make(chan struct{})} }

func (e *Event) finish(err error) {
	e.err = err
	close(e.done)
}

// Wait blocks until the operation this event represents (and,
// transitively, everything it waited for) has completed, returning the
// first error encountered anywhere in that dependency chain.
func (e *Event) Wait() error {
	<-e.done
	return e.err
}

// waitAll blocks on a wait-list and returns the first error, the
// cross-kernel dependency join spec.md §5 requires: "Each subsequent
// kernel's dependencies are declared by waiting on the events of its
// direct producers."
func waitAll(waitFor []*Event) error {
	var first error
	for _, ev := range waitFor {
		if ev == nil {
			continue
		}
		if err := ev.Wait(); err != nil && first == nil {
			first = err
		}
	}
	return first
}

// Queue is a single command stream that enqueues kernel launches and
// buffer operations without blocking. It makes no FIFO ordering
// guarantee beyond what each operation's explicit wait-list encodes,
// per spec.md §5: "The implementation must not assume implicit FIFO
// ordering on out-of-order queues."
type Queue struct {
	pool *WorkgroupPool
	ctx  context.Context
}

// NewQueue creates a command queue backed by pool, itself the
// emulated device's compute-unit allocation. ctx is passed to every
// kernel this queue launches; whether a kernel stops early on
// cancellation is up to the kernel function itself. Fills and copies
// do not observe ctx, and no launched work-group is preempted or
// skipped when it is cancelled (see spec.md §5 "Cancellation").
func NewQueue(pool *WorkgroupPool, ctx context.Context) *Queue {
	if ctx == nil {
		ctx = context.Background()
	}
	return &Queue{pool: pool, ctx: ctx}
}

// EnqueueKernel launches numGroups work-groups of fn after waitFor has
// completed, returning immediately with an Event for the launch.
func (q *Queue) EnqueueKernel(waitFor []*Event, numGroups int, fn func(ctx context.Context, group int) error) *Event {
	ev := newEvent()
	go func() {
		if err := waitAll(waitFor); err != nil {
			ev.finish(err)
			return
		}
		ev.finish(q.pool.Launch(q.ctx, numGroups, fn))
	}()
	return ev
}

// EnqueueFill fills dst with value after waitFor completes.
func EnqueueFill[T any](q *Queue, waitFor []*Event, dst *Buffer[T], value T) *Event {
	ev := newEvent()
	go func() {
		if err := waitAll(waitFor); err != nil {
			ev.finish(err)
			return
		}
		for i := range dst.data {
			dst.data[i] = value
		}
		ev.finish(nil)
	}()
	return ev
}

// EnqueueCopy copies src into dst after waitFor completes.
func EnqueueCopy[T any](q *Queue, waitFor []*Event, dst, src *Buffer[T]) *Event {
	ev := newEvent()
	go func() {
		if err := waitAll(waitFor); err != nil {
			ev.finish(err)
			return
		}
		copy(dst.data, src.data)
		ev.finish(nil)
	}()
	return ev
}

// WaitGroupBarrier is a reusable rendezvous used by kernels that need
// an intra-group barrier (the teacher's local-memory synchronization
// point). Work-items in a goroutine-modeled work-group call Arrive
// after writing their share of local memory; Arrive returns only once
// every participant has arrived, after which each may read another
// work-item's share.
type WaitGroupBarrier struct {
	mu      sync.Mutex
	cond    *sync.Cond
	arrived int
	total   int
	gen     int
}

// NewWaitGroupBarrier creates a barrier for `total` participants.
func NewWaitGroupBarrier(total int) *WaitGroupBarrier {
	b := &WaitGroupBarrier{total: total}
	b.cond = sync.NewCond(&b.mu)
	return b
}

// Arrive blocks until all `total` participants have called Arrive.
func (b *WaitGroupBarrier) Arrive() {
	b.mu.Lock()
	defer b.mu.Unlock()
	gen := b.gen
	b.arrived++
	if b.arrived == b.total {
		b.arrived = 0
		b.gen++
		b.cond.Broadcast()
		return
	}
	for b.gen == gen {
		b.cond.Wait()
	}
}
