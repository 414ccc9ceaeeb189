// Package methods implements single-pass streaming transforms over numeric
// series. Every type here satisfies core.Method and is seeded at construction.
package methods

import (
	"golang.org/x/exp/constraints"

	"signal-enginev1/internal/core"
)

// Number is the set of element types the windowed extremum transforms accept.
type Number interface {
	constraints.Integer | constraints.Float
}

// Highest returns the highest value over the last length inputs.
//
// Next is O(1) while the series keeps making new highs and O(length) when the
// extremum has to be recomputed after the window moves, so a non-monotonic
// series costs O(length) per step.
type Highest[T Number] struct {
	value  T
	window *core.Window[T]
}

// NewHighest creates a Highest over length values, seeded with seed.
func NewHighest[T Number](length int, seed T) (*Highest[T], error) {
	w, err := core.NewWindow(length, seed)
	if err != nil {
		return nil, err
	}
	return &Highest[T]{value: seed, window: w}, nil
}

// Next pushes v and returns the current highest value.
func (h *Highest[T]) Next(v T) T {
	h.window.Push(v)
	if v >= h.value {
		h.value = v
		return v
	}
	// the evicted element may have been the maximum
	m := v
	h.window.Each(func(x T) {
		if x > m {
			m = x
		}
	})
	h.value = m
	return m
}

// Lowest returns the lowest value over the last length inputs.
// Performance matches Highest.
type Lowest[T Number] struct {
	value  T
	window *core.Window[T]
}

// NewLowest creates a Lowest over length values, seeded with seed.
func NewLowest[T Number](length int, seed T) (*Lowest[T], error) {
	w, err := core.NewWindow(length, seed)
	if err != nil {
		return nil, err
	}
	return &Lowest[T]{value: seed, window: w}, nil
}

// Next pushes v and returns the current lowest value.
func (l *Lowest[T]) Next(v T) T {
	l.window.Push(v)
	if v <= l.value {
		l.value = v
		return v
	}
	m := v
	l.window.Each(func(x T) {
		if x < m {
			m = x
		}
	})
	l.value = m
	return m
}

// HighestLowestDelta returns Highest - Lowest over the last length inputs.
// The output is never negative and is always 0 for length 1.
type HighestLowestDelta[T Number] struct {
	highest *Highest[T]
	lowest  *Lowest[T]
}

// NewHighestLowestDelta creates a HighestLowestDelta over length values.
func NewHighestLowestDelta[T Number](length int, seed T) (*HighestLowestDelta[T], error) {
	h, err := NewHighest(length, seed)
	if err != nil {
		return nil, err
	}
	l, err := NewLowest(length, seed)
	if err != nil {
		return nil, err
	}
	return &HighestLowestDelta[T]{highest: h, lowest: l}, nil
}

// Next pushes v and returns the spread between the window's extremes.
func (d *HighestLowestDelta[T]) Next(v T) T {
	return d.highest.Next(v) - d.lowest.Next(v)
}

// HighestFactory adapts NewHighest to core.Factory.
func HighestFactory[T Number]() core.Factory[int, T, T] {
	return func(length int, seed T) (core.Method[T, T], error) {
		m, err := NewHighest(length, seed)
		if err != nil {
			return nil, err
		}
		return m, nil
	}
}

// LowestFactory adapts NewLowest to core.Factory.
func LowestFactory[T Number]() core.Factory[int, T, T] {
	return func(length int, seed T) (core.Method[T, T], error) {
		m, err := NewLowest(length, seed)
		if err != nil {
			return nil, err
		}
		return m, nil
	}
}

// HighestLowestDeltaFactory adapts NewHighestLowestDelta to core.Factory.
func HighestLowestDeltaFactory[T Number]() core.Factory[int, T, T] {
	return func(length int, seed T) (core.Method[T, T], error) {
		m, err := NewHighestLowestDelta(length, seed)
		if err != nil {
			return nil, err
		}
		return m, nil
	}
}
