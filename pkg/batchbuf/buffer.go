// Package batchbuf implements a bounded in-memory batch.
//
// A buffer never holds capacity items: the Push that fills it swaps the whole
// batch out and returns it to the caller, who owns delivering it. The same
// policy serves both log entries and performance metrics.
package batchbuf

import "sync"

const DefaultCapacity = 100

type Buffer[T any] struct {
	mu       sync.Mutex
	items    []T
	capacity int
}

func New[T any](capacity int) *Buffer[T] {
	if capacity <= 0 {
		capacity = DefaultCapacity
	}
	return &Buffer[T]{
		items:    make([]T, 0, capacity),
		capacity: capacity,
	}
}

// Push appends item and returns the full batch when the append reached
// capacity, nil otherwise. Exactly one caller receives a given batch.
func (b *Buffer[T]) Push(item T) []T {
	b.mu.Lock()
	defer b.mu.Unlock()

	b.items = append(b.items, item)
	if len(b.items) < b.capacity {
		return nil
	}
	return b.swap()
}

// Drain swaps the current batch for an empty one.
func (b *Buffer[T]) Drain() []T {
	b.mu.Lock()
	defer b.mu.Unlock()

	if len(b.items) == 0 {
		return nil
	}
	return b.swap()
}

func (b *Buffer[T]) Snapshot() []T {
	b.mu.Lock()
	defer b.mu.Unlock()

	out := make([]T, len(b.items))
	copy(out, b.items)
	return out
}

func (b *Buffer[T]) Len() int {
	b.mu.Lock()
	defer b.mu.Unlock()
	return len(b.items)
}

func (b *Buffer[T]) Cap() int {
	return b.capacity
}

func (b *Buffer[T]) swap() []T {
	batch := b.items
	b.items = make([]T, 0, b.capacity)
	return batch
}
