package methods

import (
	"fmt"

	"signal-enginev1/internal/core"
)

// pivot confirms the value right steps back as a strict local extremum over
// the left values before it and the right values after it.
type pivot struct {
	left   int
	window *core.Window[float64]
	beats  func(candidate, other float64) bool
}

func newPivot(name string, left, right int, seed float64, beats func(a, b float64) bool) (pivot, error) {
	if left <= 0 || right <= 0 {
		return pivot{}, fmt.Errorf("%s: left=%d right=%d: %w", name, left, right, core.ErrInvalidLength)
	}
	w, err := core.NewWindow(left+right+1, seed)
	if err != nil {
		return pivot{}, err
	}
	return pivot{left: left, window: w, beats: beats}, nil
}

func (p *pivot) next(v float64) core.Action {
	p.window.Push(v)
	candidate := p.window.At(p.left)
	for i := 0; i < p.window.Len(); i++ {
		if i != p.left && !p.beats(candidate, p.window.At(i)) {
			return core.None
		}
	}
	return core.BuyAll
}

// PivotHigh signals a confirmed local maximum.
//
// The output at step i refers to the value at step i-right: a pivot is only
// known once right further values have arrived, so it is never reported at
// its own position. A positive Analog means confirmed, None otherwise.
type PivotHigh struct {
	pivot
}

// NewPivotHigh creates a PivotHigh with the given look-back and look-ahead sizes.
func NewPivotHigh(left, right int, seed float64) (*PivotHigh, error) {
	p, err := newPivot("PivotHigh", left, right, seed, func(a, b float64) bool { return a > b })
	if err != nil {
		return nil, err
	}
	return &PivotHigh{p}, nil
}

// Next pushes a high value and reports whether the delayed candidate is a pivot high.
func (p *PivotHigh) Next(v float64) core.Action { return p.next(v) }

// PivotLow signals a confirmed local minimum with the same delay as PivotHigh.
type PivotLow struct {
	pivot
}

// NewPivotLow creates a PivotLow with the given look-back and look-ahead sizes.
func NewPivotLow(left, right int, seed float64) (*PivotLow, error) {
	p, err := newPivot("PivotLow", left, right, seed, func(a, b float64) bool { return a < b })
	if err != nil {
		return nil, err
	}
	return &PivotLow{p}, nil
}

// Next pushes a low value and reports whether the delayed candidate is a pivot low.
func (p *PivotLow) Next(v float64) core.Action { return p.next(v) }

var (
	_ core.Method[float64, core.Action] = (*PivotHigh)(nil)
	_ core.Method[float64, core.Action] = (*PivotLow)(nil)
	_ core.Method[Pair, core.Action]    = (*Cross)(nil)
	_ core.Method[float64, float64]     = (*Highest[float64])(nil)
)
