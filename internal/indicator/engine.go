package indicator

import (
	"context"
	"errors"
	"fmt"
	"log"
	"time"

	"signal-enginev1/internal/core"
	"signal-enginev1/internal/model"
)

// Observer receives per-step engine measurements. internal/metrics implements it.
type Observer interface {
	ObserveStep(label string, d time.Duration, signals []core.Action)
	ObserveShapeError(label string)
}

// tokenIndicators holds live indicator instances for one token within a TF.
type tokenIndicators struct {
	instances []core.IndicatorInstance
	configs   []Configured
	last      core.Candle // most recent candle, seeds indicators added by a reload
}

// Engine runs the configured indicators across multiple TFs for multiple tokens.
// Designed for single-goroutine usage: no locks.
type Engine struct {
	configs []TFIndicatorConfig
	tfIndex map[int]int

	// state[tfIdx][tokenKey] → *tokenIndicators
	state []map[string]*tokenIndicators

	observer Observer
}

// NewEngine creates an engine for the given per-TF indicator configs.
func NewEngine(configs []TFIndicatorConfig) (*Engine, error) {
	if err := ValidateConfigs(configs); err != nil {
		return nil, err
	}
	e := &Engine{}
	e.setConfigs(configs, make([]map[string]*tokenIndicators, len(configs)))
	for i := range e.state {
		e.state[i] = make(map[string]*tokenIndicators, 64)
	}
	return e, nil
}

func (e *Engine) setConfigs(configs []TFIndicatorConfig, state []map[string]*tokenIndicators) {
	e.configs = configs
	e.state = state
	e.tfIndex = make(map[int]int, len(configs))
	for i, cfg := range configs {
		e.tfIndex[cfg.TF] = i
	}
}

// SetObserver installs o to receive step timings, signals and shape errors.
func (e *Engine) SetObserver(o Observer) { e.observer = o }

// Configs returns the per-TF configs the engine currently runs.
func (e *Engine) Configs() []TFIndicatorConfig { return e.configs }

// Tokens returns the number of instruments with live state on tf.
func (e *Engine) Tokens(tf int) int {
	idx, ok := e.tfIndex[tf]
	if !ok {
		return 0
	}
	return len(e.state[idx])
}

// Process steps every indicator configured for the candle's TF with the candle.
//
// The first candle seen for an instrument seeds fresh instances and is then
// stepped through them like any other. Candles for unconfigured TFs return
// nil. A result whose shape does not match its declared Size is dropped and
// reported in the returned error; the remaining results are still returned.
func (e *Engine) Process(c model.Candle) ([]model.SignalResult, error) {
	tfIdx, ok := e.tfIndex[c.TF]
	if !ok {
		return nil, nil
	}

	// paise to float once per candle; every instance reads the same prices
	bar := core.CandleOf(c)
	key := c.Key()
	ti, exists := e.state[tfIdx][key]
	if !exists {
		var err error
		ti, err = createTokenIndicators(e.configs[tfIdx].Indicators, bar)
		if err != nil {
			return nil, fmt.Errorf("init %s tf=%d: %w", key, c.TF, err)
		}
		e.state[tfIdx][key] = ti
	}
	ti.last = bar

	var errs []error
	results := make([]model.SignalResult, 0, len(ti.instances))
	for i, inst := range ti.instances {
		label := ti.configs[i].Label

		start := time.Now()
		res := inst.Step(bar)
		elapsed := time.Since(start)

		if err := core.CheckShape(inst.Config(), res); err != nil {
			if e.observer != nil {
				e.observer.ObserveShapeError(label)
			}
			errs = append(errs, fmt.Errorf("%s %s: %w", label, key, err))
			continue
		}
		if e.observer != nil {
			e.observer.ObserveStep(label, elapsed, res.Signals())
		}

		results = append(results, model.SignalResult{
			Indicator: label,
			Token:     c.Token,
			Exchange:  c.Exchange,
			TF:        c.TF,
			TS:        c.TS,
			Values:    res.Values(),
			Signals:   res.Signals(),
		})
	}

	return results, errors.Join(errs...)
}

// Run consumes candles and emits signal results until ctx is done or in is closed.
func (e *Engine) Run(ctx context.Context, in <-chan model.Candle, out chan<- model.SignalResult) {
	for {
		select {
		case <-ctx.Done():
			return
		case c, ok := <-in:
			if !ok {
				return
			}
			results, err := e.Process(c)
			if err != nil {
				log.Printf("[engine] %s tf=%d: %v", c.Key(), c.TF, err)
			}
			for _, r := range results {
				select {
				case out <- r:
				case <-ctx.Done():
					return
				}
			}
		}
	}
}

// createTokenIndicators initializes one instance per config, seeded with seed.
func createTokenIndicators(configs []Configured, seed core.OHLC) (*tokenIndicators, error) {
	insts := make([]core.IndicatorInstance, len(configs))
	for i, c := range configs {
		inst, err := c.Config.Init(seed)
		if err != nil {
			return nil, fmt.Errorf("%s: %w", c.Label, err)
		}
		insts[i] = inst
	}
	return &tokenIndicators{
		instances: insts,
		configs:   configs,
		last:      core.CandleOf(seed),
	}, nil
}
