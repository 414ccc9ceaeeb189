package methods

import "signal-enginev1/internal/core"

// Pair is one synchronized step of two series.
type Pair struct {
	A, B float64
}

// crossState tracks the sign of A-B between steps.
type crossState struct {
	prev   int
	primed bool
}

func (s *crossState) seed(p Pair) {
	s.prev = sign(p.A - p.B)
	s.primed = true
}

// step returns the previous and current sign and whether a previous sign existed.
func (s *crossState) step(p Pair) (prev, cur int, ok bool) {
	prev, ok = s.prev, s.primed
	cur = sign(p.A - p.B)
	s.prev, s.primed = cur, true
	return prev, cur, ok
}

// Cross detects A crossing B in either direction.
//
// It reports BuyAll when A-B flips from non-positive to strictly positive and
// SellAll when it flips from non-negative to strictly negative. A tie alone is
// never a cross. The zero value reports None on its first Next because there
// is no previous sign to compare against.
type Cross struct {
	state crossState
}

// NewCross creates a Cross whose previous sign is taken from seed.
func NewCross(seed Pair) *Cross {
	c := &Cross{}
	c.state.seed(seed)
	return c
}

// Next consumes one pair and returns the crossover signal.
func (c *Cross) Next(p Pair) core.Action {
	prev, cur, ok := c.state.step(p)
	if !ok {
		return core.None
	}
	switch {
	case prev <= 0 && cur > 0:
		return core.BuyAll
	case prev >= 0 && cur < 0:
		return core.SellAll
	}
	return core.None
}

// CrossAbove reports BuyAll only when A crosses B upward.
type CrossAbove struct {
	state crossState
}

// NewCrossAbove creates a CrossAbove seeded with seed.
func NewCrossAbove(seed Pair) *CrossAbove {
	c := &CrossAbove{}
	c.state.seed(seed)
	return c
}

func (c *CrossAbove) Next(p Pair) core.Action {
	prev, cur, ok := c.state.step(p)
	if ok && prev <= 0 && cur > 0 {
		return core.BuyAll
	}
	return core.None
}

// CrossUnder reports SellAll only when A crosses B downward.
type CrossUnder struct {
	state crossState
}

// NewCrossUnder creates a CrossUnder seeded with seed.
func NewCrossUnder(seed Pair) *CrossUnder {
	c := &CrossUnder{}
	c.state.seed(seed)
	return c
}

func (c *CrossUnder) Next(p Pair) core.Action {
	prev, cur, ok := c.state.step(p)
	if ok && prev >= 0 && cur < 0 {
		return core.SellAll
	}
	return core.None
}

func sign(v float64) int {
	switch {
	case v > 0:
		return 1
	case v < 0:
		return -1
	}
	return 0
}
