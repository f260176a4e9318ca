// Package ring provides a fixed-capacity FIFO buffer. When full, pushing a new
// value evicts the oldest one.
package ring

// Buffer is a fixed-capacity ring buffer. The zero value is not usable; use New.
// A Buffer is not safe for concurrent use.
type Buffer[T any] struct {
	data []T
	pos  int
	full bool
}

// New creates a Buffer holding at most capacity values. Capacities below 1 are raised to 1.
func New[T any](capacity int) *Buffer[T] {
	if capacity < 1 {
		capacity = 1
	}
	return &Buffer[T]{data: make([]T, capacity)}
}

// Push appends v, evicting the oldest value when the buffer is full.
func (b *Buffer[T]) Push(v T) {
	b.data[b.pos] = v
	b.pos++
	if b.pos >= len(b.data) {
		b.pos = 0
		b.full = true
	}
}

// Len returns the number of retained values.
func (b *Buffer[T]) Len() int {
	if b.full {
		return len(b.data)
	}
	return b.pos
}

// Cap returns the buffer capacity.
func (b *Buffer[T]) Cap() int {
	return len(b.data)
}

// Slice returns the retained values, oldest first.
func (b *Buffer[T]) Slice() []T {
	out := make([]T, b.Len())
	if b.full {
		n := copy(out, b.data[b.pos:])
		copy(out[n:], b.data[:b.pos])
	} else {
		copy(out, b.data[:b.pos])
	}
	return out
}

// Count returns how many retained values satisfy match.
func (b *Buffer[T]) Count(match func(T) bool) int {
	n := 0
	for i := 0; i < b.Len(); i++ {
		if match(b.data[i]) {
			n++
		}
	}
	return n
}

// Clear drops all values.
func (b *Buffer[T]) Clear() {
	var zero T
	for i := range b.data {
		b.data[i] = zero
	}
	b.pos = 0
	b.full = false
}
