package indicator

import (
	"signal-enginev1/internal/core"
	"signal-enginev1/internal/methods"
)

// PivotReversalStrategy emits exit signals around confirmed pivots.
//
// The last confirmed pivot high and pivot low are kept as thresholds. A long
// exit fires on a new pivot high or while the high stays at or below the pivot
// high price; a short exit mirrors it on the low side. The output is
// short-exit minus long-exit: -1, 0 or 1.
type PivotReversalStrategy struct {
	Left  int `yaml:"left" json:"left"`
	Right int `yaml:"right" json:"right"`
}

// NewPivotReversalStrategy returns the default config.
func NewPivotReversalStrategy() *PivotReversalStrategy {
	return &PivotReversalStrategy{Left: 4, Right: 2}
}

func (c *PivotReversalStrategy) Name() string { return "PivotReversalStrategy" }

func (c *PivotReversalStrategy) Validate() error {
	if c.Left <= 0 || c.Right <= 0 {
		return core.InvalidConfig(c.Name(), "left=%d right=%d must both be > 0", c.Left, c.Right)
	}
	return nil
}

func (c *PivotReversalStrategy) Set(name, value string) error {
	return core.Fields{
		"left": func(v string) error {
			n, err := core.ParsePeriod(v)
			if err == nil {
				c.Left = n
			}
			return err
		},
		"right": func(v string) error {
			n, err := core.ParsePeriod(v)
			if err == nil {
				c.Right = n
			}
			return err
		},
	}.Set(c.Name(), name, value)
}

func (c *PivotReversalStrategy) Size() (raw, signals uint8) { return 1, 1 }

func (c *PivotReversalStrategy) Init(seed core.OHLC) (core.IndicatorInstance, error) {
	if err := c.Validate(); err != nil {
		return nil, err
	}
	s := core.CandleOf(seed)

	ph, err := methods.NewPivotHigh(c.Left, c.Right, s.High)
	if err != nil {
		return nil, err
	}
	pl, err := methods.NewPivotLow(c.Left, c.Right, s.Low)
	if err != nil {
		return nil, err
	}
	w, err := core.NewWindow(c.Right, s)
	if err != nil {
		return nil, err
	}
	return &PivotReversalInstance{
		cfg:    *c,
		ph:     ph,
		pl:     pl,
		window: w,
	}, nil
}

// PivotReversalInstance is the running state of a PivotReversalStrategy.
type PivotReversalInstance struct {
	cfg PivotReversalStrategy

	ph     *methods.PivotHigh
	pl     *methods.PivotLow
	window *core.Window[core.Candle] // last Right candles, to recover the pivot bar
	// last confirmed pivot prices, zero until the first confirmation
	hprice float64
	lprice float64
}

func (i *PivotReversalInstance) Name() string { return i.cfg.Name() }

func (i *PivotReversalInstance) Config() core.IndicatorConfig {
	cfg := i.cfg
	return &cfg
}

func (i *PivotReversalInstance) Step(candle core.OHLC) core.IndicatorResult {
	c := core.CandleOf(candle)
	// the evicted candle is Right steps old: the bar a pivot confirmed now refers to
	past := i.window.Push(c)

	swh := i.ph.Next(c.High)
	swl := i.pl.Next(c.Low)

	var le, se int
	if swh.Analog() > 0 {
		i.hprice = past.High
	}
	if swh.Analog() > 0 || c.High <= i.hprice {
		le = 1
	}
	if swl.Analog() > 0 {
		i.lprice = past.Low
	}
	if swl.Analog() > 0 || c.Low >= i.lprice {
		se = 1
	}

	r := se - le
	return core.NewIndicatorResult([]float64{float64(r)}, []core.Action{core.ActionFromSign(r)})
}
