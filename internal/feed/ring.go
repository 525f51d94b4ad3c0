package feed

import "sync"

// Ring keeps the newest items first and discards the oldest beyond its size
type Ring[T any] struct {
	mu    sync.RWMutex
	items []T
	size  int
}

func NewRing[T any](size int) *Ring[T] {
	return &Ring[T]{items: make([]T, 0, size), size: size}
}

func (r *Ring[T]) Push(item T) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if len(r.items) < r.size {
		r.items = append(r.items, item)
	}
	copy(r.items[1:], r.items[:len(r.items)-1])
	r.items[0] = item
}

// Fill seeds an empty ring with items in display order and reports whether
// it did anything
func (r *Ring[T]) Fill(items []T) bool {
	r.mu.Lock()
	defer r.mu.Unlock()

	if len(r.items) > 0 || len(items) == 0 {
		return false
	}
	if len(items) > r.size {
		items = items[:r.size]
	}
	r.items = append(r.items, items...)
	return true
}

// Items returns a copy, newest first
func (r *Ring[T]) Items() []T {
	r.mu.RLock()
	defer r.mu.RUnlock()

	out := make([]T, len(r.items))
	copy(out, r.items)
	return out
}

func (r *Ring[T]) Len() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.items)
}
