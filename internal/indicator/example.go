package indicator

import (
	"signal-enginev1/internal/core"
	"signal-enginev1/internal/methods"
)

// Example watches a candle source cross a fixed price level.
//
// Signal 0 is the latest crossover held for Period further steps; signal 1
// is the raw crossover on the current step. The raw value is the source value.
type Example struct {
	Price  float64     `yaml:"price" json:"price"`
	Period int         `yaml:"period" json:"period"`
	Source core.Source `yaml:"source" json:"source"`
}

// NewExample returns the default Example config.
func NewExample() *Example {
	return &Example{Price: 2.0, Period: 3, Source: core.SourceClose}
}

func (c *Example) Name() string { return "Example" }

func (c *Example) Validate() error {
	if !(c.Price > 0) {
		return core.InvalidConfig(c.Name(), "price=%v must be > 0", c.Price)
	}
	if c.Period <= 0 {
		return core.InvalidConfig(c.Name(), "period=%d must be > 0", c.Period)
	}
	return nil
}

func (c *Example) Set(name, value string) error {
	return core.Fields{
		"price": func(v string) error {
			p, err := core.ParsePrice(v)
			if err == nil {
				c.Price = p
			}
			return err
		},
		"period": func(v string) error {
			n, err := core.ParsePeriod(v)
			if err == nil {
				c.Period = n
			}
			return err
		},
		"source": func(v string) error {
			s, err := core.ParseSource(v)
			if err == nil {
				c.Source = s
			}
			return err
		},
	}.Set(c.Name(), name, value)
}

func (c *Example) Size() (raw, signals uint8) { return 1, 2 }

func (c *Example) Init(seed core.OHLC) (core.IndicatorInstance, error) {
	if err := c.Validate(); err != nil {
		return nil, err
	}
	cfg := *c
	return &ExampleInstance{
		cfg:   cfg,
		cross: methods.NewCross(methods.Pair{A: cfg.Source.Value(seed), B: cfg.Price}),
	}, nil
}

// ExampleInstance is the running state of an Example.
type ExampleInstance struct {
	cfg Example

	cross      *methods.Cross
	lastSignal core.Action
	elapsed    int // steps since lastSignal was raised
}

func (i *ExampleInstance) Name() string { return i.cfg.Name() }

func (i *ExampleInstance) Config() core.IndicatorConfig {
	cfg := i.cfg
	return &cfg
}

func (i *ExampleInstance) Step(candle core.OHLC) core.IndicatorResult {
	value := i.cfg.Source.Value(candle)
	crossed := i.cross.Next(methods.Pair{A: value, B: i.cfg.Price})

	switch {
	case !crossed.IsNone():
		i.lastSignal = crossed
		i.elapsed = 0
	case !i.lastSignal.IsNone():
		i.elapsed++
		if i.elapsed > i.cfg.Period {
			i.lastSignal = core.None
		}
	}

	return core.NewIndicatorResult(
		[]float64{value},
		[]core.Action{i.lastSignal, crossed},
	)
}
