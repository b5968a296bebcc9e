// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

// Package queue provides a bounded FIFO buffer used between pipeline
// stages. A full queue rejects new items rather than blocking the
// producer: backpressure at an ingest boundary must surface as an
// error the producer can count, not a stall.
package queue

import (
	"context"
	"errors"
	"sync"
)

// ErrFull is returned by [Queue.Push] when the queue is at capacity.
var ErrFull = errors.New("queue is full")

// ErrClosed is returned by Push and Pop after [Queue.Close].
var ErrClosed = errors.New("queue is closed")

// Queue is a bounded FIFO. Push never blocks; Pop blocks until an item
// arrives, the context is cancelled, or the queue is closed and
// drained. All methods are safe for concurrent use.
type Queue[T any] struct {
	mutex  sync.Mutex
	items  chan T
	closed bool
}

// New creates a queue holding at most capacity items. Capacity must be
// at least 1.
func New[T any](capacity int) *Queue[T] {
	if capacity < 1 {
		capacity = 1
	}
	return &Queue[T]{items: make(chan T, capacity)}
}

// Push appends an item. Returns [ErrFull] if the queue is at capacity
// and [ErrClosed] if the queue has been closed.
func (q *Queue[T]) Push(item T) error {
	q.mutex.Lock()
	defer q.mutex.Unlock()
	if q.closed {
		return ErrClosed
	}
	select {
	case q.items <- item:
		return nil
	default:
		return ErrFull
	}
}

// Pop removes and returns the oldest item, blocking until one is
// available. Returns the context's error on cancellation, and
// [ErrClosed] once the queue is closed and drained.
func (q *Queue[T]) Pop(ctx context.Context) (T, error) {
	var zero T
	select {
	case item, ok := <-q.items:
		if !ok {
			return zero, ErrClosed
		}
		return item, nil
	case <-ctx.Done():
		return zero, ctx.Err()
	}
}

// TryPop removes and returns the oldest item without blocking. The
// second result is false if the queue is empty.
func (q *Queue[T]) TryPop() (T, bool) {
	var zero T
	select {
	case item, ok := <-q.items:
		if !ok {
			return zero, false
		}
		return item, true
	default:
		return zero, false
	}
}

// Len returns the number of buffered items.
func (q *Queue[T]) Len() int {
	return len(q.items)
}

// Close marks the queue closed. Subsequent Push calls fail with
// [ErrClosed]; Pop continues to drain buffered items and then fails
// with [ErrClosed]. Close is idempotent.
func (q *Queue[T]) Close() {
	q.mutex.Lock()
	defer q.mutex.Unlock()
	if q.closed {
		return
	}
	q.closed = true
	close(q.items)
}
