// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package queue

import (
	"context"
	"errors"
	"testing"
	"time"
)

func TestPushPopOrder(t *testing.T) {
	q := New[int](4)
	for i := 1; i <= 3; i++ {
		if err := q.Push(i); err != nil {
			t.Fatalf("Push(%d): %v", i, err)
		}
	}
	if q.Len() != 3 {
		t.Errorf("Len = %d, want 3", q.Len())
	}
	for i := 1; i <= 3; i++ {
		item, err := q.Pop(context.Background())
		if err != nil {
			t.Fatalf("Pop: %v", err)
		}
		if item != i {
			t.Errorf("Pop = %d, want %d", item, i)
		}
	}
}

func TestPushFull(t *testing.T) {
	q := New[string](2)
	if err := q.Push("a"); err != nil {
		t.Fatalf("Push: %v", err)
	}
	if err := q.Push("b"); err != nil {
		t.Fatalf("Push: %v", err)
	}
	if err := q.Push("c"); !errors.Is(err, ErrFull) {
		t.Errorf("Push on full queue = %v, want ErrFull", err)
	}
	// Draining one slot makes Push succeed again.
	if _, ok := q.TryPop(); !ok {
		t.Fatal("TryPop on non-empty queue returned false")
	}
	if err := q.Push("c"); err != nil {
		t.Errorf("Push after drain: %v", err)
	}
}

func TestTryPopEmpty(t *testing.T) {
	q := New[int](1)
	if _, ok := q.TryPop(); ok {
		t.Error("TryPop on empty queue returned true")
	}
}

func TestPopCancellation(t *testing.T) {
	q := New[int](1)
	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()

	_, err := q.Pop(ctx)
	if !errors.Is(err, context.DeadlineExceeded) {
		t.Errorf("Pop on empty queue = %v, want deadline exceeded", err)
	}
}

func TestCloseDrains(t *testing.T) {
	q := New[int](4)
	if err := q.Push(1); err != nil {
		t.Fatalf("Push: %v", err)
	}
	q.Close()

	if err := q.Push(2); !errors.Is(err, ErrClosed) {
		t.Errorf("Push after Close = %v, want ErrClosed", err)
	}

	// Buffered items remain readable after Close.
	item, err := q.Pop(context.Background())
	if err != nil {
		t.Fatalf("Pop after Close: %v", err)
	}
	if item != 1 {
		t.Errorf("Pop = %d, want 1", item)
	}

	if _, err := q.Pop(context.Background()); !errors.Is(err, ErrClosed) {
		t.Errorf("Pop on drained closed queue = %v, want ErrClosed", err)
	}
}

func TestCloseIdempotent(t *testing.T) {
	q := New[int](1)
	q.Close()
	q.Close()
}
