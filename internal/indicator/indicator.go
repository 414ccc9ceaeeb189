// Package indicator builds, runs and reconfigures streaming indicators over
// candle streams.
//
// Indicator configs come from a Registry, are grouped per timeframe in a
// TFIndicatorConfig and are driven by an Engine, which keeps one set of
// running instances per instrument.
package indicator

import (
	"encoding/json"
	"errors"

	"signal-enginev1/internal/core"
)

// ErrUnknownIndicator is returned when a spec names an indicator the registry does not know.
var ErrUnknownIndicator = errors.New("unknown indicator")

// Configured is an indicator config with the label its results are published under.
type Configured struct {
	Label  string
	Config core.IndicatorConfig
}

// key identifies a configured indicator by label and parameters. Two entries
// with equal keys produce identical outputs for the same candles.
func (c Configured) key() string {
	b, err := json.Marshal(c.Config)
	if err != nil {
		return c.Label + "|" + c.Config.Name()
	}
	return c.Label + "|" + c.Config.Name() + string(b)
}

// TFIndicatorConfig groups the indicators computed for a specific timeframe.
type TFIndicatorConfig struct {
	TF         int // timeframe in seconds
	Indicators []Configured
}
