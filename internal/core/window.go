package core

// Window is a fixed-capacity buffer holding the last N values of a series.
// It is always full: construction pre-fills every slot with a seed value and
// each Push evicts exactly one element, so Len never changes.
//
// The backing store is a preallocated circular slice; Push is O(1) and
// allocation-free.
type Window[T any] struct {
	buf   []T
	index int // slot holding the oldest element, next to be overwritten
}

// NewWindow creates a window of the given capacity with every slot set to seed.
// A non-positive capacity returns ErrInvalidLength.
func NewWindow[T any](capacity int, seed T) (*Window[T], error) {
	if capacity <= 0 {
		return nil, invalidLength("window", capacity)
	}
	buf := make([]T, capacity)
	for i := range buf {
		buf[i] = seed
	}
	return &Window[T]{buf: buf}, nil
}

// Push inserts v as the newest element and returns the evicted oldest one.
func (w *Window[T]) Push(v T) T {
	old := w.buf[w.index]
	w.buf[w.index] = v
	w.index++
	if w.index == len(w.buf) {
		w.index = 0
	}
	return old
}

// Len returns the window capacity, which is also its length.
func (w *Window[T]) Len() int { return len(w.buf) }

// At returns the i-th element counting from the oldest (0) to the newest (Len-1).
func (w *Window[T]) At(i int) T {
	j := w.index + i
	if j >= len(w.buf) {
		j -= len(w.buf)
	}
	return w.buf[j]
}

// Oldest returns the element the next Push will evict.
func (w *Window[T]) Oldest() T { return w.buf[w.index] }

// Newest returns the most recently pushed element.
func (w *Window[T]) Newest() T {
	if w.index == 0 {
		return w.buf[len(w.buf)-1]
	}
	return w.buf[w.index-1]
}

// Each calls fn for every element from oldest to newest.
func (w *Window[T]) Each(fn func(T)) {
	for _, v := range w.buf[w.index:] {
		fn(v)
	}
	for _, v := range w.buf[:w.index] {
		fn(v)
	}
}

// EachReverse calls fn for every element from newest to oldest.
func (w *Window[T]) EachReverse(fn func(T)) {
	for i := w.index - 1; i >= 0; i-- {
		fn(w.buf[i])
	}
	for i := len(w.buf) - 1; i >= w.index; i-- {
		fn(w.buf[i])
	}
}

// Slice returns a copy of the window contents ordered oldest to newest.
func (w *Window[T]) Slice() []T {
	out := make([]T, 0, len(w.buf))
	out = append(out, w.buf[w.index:]...)
	return append(out, w.buf[:w.index]...)
}
