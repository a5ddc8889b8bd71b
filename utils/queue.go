package utils

import "sync/atomic"

// Queue is an unbounded multi-producer / single-consumer FIFO.
//
// Push never takes a lock: a producer swaps itself in as the new head with
// one atomic operation and then links the previous head to it. Pop must
// only ever be called from one goroutine at a time. An item whose Push has
// returned is always visible to the next Pop; an item still being linked
// may hide the items pushed after it until the link lands.
type Queue[T any] struct {
	head atomic.Pointer[qnode[T]] // most recently pushed node
	tail *qnode[T]                // consumer-owned stub; tail.next is the oldest item
	size atomic.Int64
}

type qnode[T any] struct {
	next  atomic.Pointer[qnode[T]]
	value T
}

// NewQueue creates an empty queue.
func NewQueue[T any]() *Queue[T] {
	stub := &qnode[T]{}
	q := &Queue[T]{tail: stub}
	q.head.Store(stub)
	return q
}

// Push appends v. Safe for concurrent use by any number of producers.
func (q *Queue[T]) Push(v T) {
	n := &qnode[T]{value: v}
	prev := q.head.Swap(n)
	prev.next.Store(n)
	q.size.Add(1)
}

// Pop removes and returns the oldest item, or false when none is visible.
func (q *Queue[T]) Pop() (T, bool) {
	var zero T
	next := q.tail.next.Load()
	if next == nil {
		return zero, false
	}
	q.tail = next
	v := next.value
	next.value = zero
	q.size.Add(-1)
	return v, true
}

// Len returns the approximate number of queued items.
func (q *Queue[T]) Len() int {
	n := q.size.Load()
	if n < 0 {
		return 0
	}
	return int(n)
}
