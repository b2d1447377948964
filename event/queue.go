package event

import (
	"sync"
	"sync/atomic"
)

// DefaultCapacity is the queue size used when none is given.
const DefaultCapacity = 1024

// OverflowPolicy decides what a full queue gives up on Write.
type OverflowPolicy int

const (
	// DropNewest discards the value being written.
	DropNewest OverflowPolicy = iota
	// DropOldest discards the oldest pending value to make room.
	DropOldest
)

func (p OverflowPolicy) String() string {
	switch p {
	case DropNewest:
		return "drop-newest"
	case DropOldest:
		return "drop-oldest"
	}
	return "unknown"
}

// Queue is a bounded FIFO with a single consumer. Writes never block; when the
// queue is full the OverflowPolicy applies and the loss is counted.
type Queue[T any] struct {
	notifier

	mu      sync.Mutex
	buf     []T
	head    int
	n       int
	policy  OverflowPolicy
	dropped atomic.Uint64
}

// NewQueue returns a queue holding at most capacity values. A capacity <= 0
// means DefaultCapacity.
func NewQueue[T any](capacity int, policy OverflowPolicy) *Queue[T] {
	if capacity <= 0 {
		capacity = DefaultCapacity
	}
	return &Queue[T]{
		buf:    make([]T, capacity),
		policy: policy,
	}
}

// Write appends v. It reports false when v was not stored because the queue was
// full under DropNewest. Under DropOldest v is always stored.
func (q *Queue[T]) Write(v T) bool {
	q.mu.Lock()
	if q.n == len(q.buf) {
		if q.policy == DropNewest {
			q.mu.Unlock()
			q.dropped.Add(1)
			return false
		}
		var zero T
		q.buf[q.head] = zero
		q.head = (q.head + 1) % len(q.buf)
		q.n--
		q.dropped.Add(1)
	}
	q.buf[(q.head+q.n)%len(q.buf)] = v
	q.n++
	q.mu.Unlock()

	q.notify()
	return true
}

// Read removes and returns the oldest value, or ErrEmpty.
func (q *Queue[T]) Read() (T, error) {
	q.mu.Lock()
	defer q.mu.Unlock()
	var zero T
	if q.n == 0 {
		return zero, ErrEmpty
	}
	v := q.buf[q.head]
	q.buf[q.head] = zero
	q.head = (q.head + 1) % len(q.buf)
	q.n--
	return v, nil
}

// Clear discards everything pending.
func (q *Queue[T]) Clear() {
	q.mu.Lock()
	defer q.mu.Unlock()
	clear(q.buf)
	q.head = 0
	q.n = 0
}

// Len returns the number of pending values.
func (q *Queue[T]) Len() int {
	q.mu.Lock()
	defer q.mu.Unlock()
	return q.n
}

// Cap returns the queue capacity.
func (q *Queue[T]) Cap() int {
	return len(q.buf)
}

// Dropped returns how many values were lost to overflow.
func (q *Queue[T]) Dropped() uint64 {
	return q.dropped.Load()
}

// Pending implements Source.
func (q *Queue[T]) Pending() bool {
	return q.Len() > 0
}
