package indicator

import (
	"log"

	"signal-enginev1/internal/model"
)

// HistoryReader is the read side of the candle store needed for backfill.
type HistoryReader interface {
	ReadAllTFCandles(tf int, afterTS int64) ([]model.Candle, error)
}

// Restorer warms an engine from stored history before it goes live.
// Indicator state is a pure function of the candles seen, so replaying the
// tail of each instrument's history rebuilds it.
type Restorer struct {
	configs []TFIndicatorConfig
	warmup  int // candles per instrument; 0 replays everything
}

// NewRestorer creates a Restorer that replays the last warmup candles per instrument.
func NewRestorer(configs []TFIndicatorConfig, warmup int) *Restorer {
	return &Restorer{configs: configs, warmup: warmup}
}

// Backfill reads each configured TF from reader and feeds it into engine.
// If onResults is non-nil, it is called with the results of every candle,
// so the caller can populate history downstream. Returns the number of
// candles replayed.
func (r *Restorer) Backfill(engine *Engine, reader HistoryReader, onResults func([]model.SignalResult)) int {
	if reader == nil {
		return 0
	}

	total := 0
	for _, cfg := range r.configs {
		candles, err := reader.ReadAllTFCandles(cfg.TF, 0)
		if err != nil {
			log.Printf("[restorer] WARNING: failed to read TF=%d candles: %v", cfg.TF, err)
			continue
		}

		fed := 0
		for _, c := range TailPerInstrument(candles, r.warmup) {
			results, err := engine.Process(c)
			if err != nil {
				log.Printf("[restorer] %s tf=%d: %v", c.Key(), c.TF, err)
			}
			if onResults != nil && len(results) > 0 {
				onResults(results)
			}
			fed++
		}
		total += fed
		if fed > 0 {
			log.Printf("[restorer] backfilled %d candles for TF=%d", fed, cfg.TF)
		}
	}
	return total
}

// TailPerInstrument keeps the last n candles of every instrument, preserving
// the input order. n <= 0 keeps everything.
func TailPerInstrument(candles []model.Candle, n int) []model.Candle {
	if n <= 0 {
		return candles
	}
	counts := make(map[string]int)
	for _, c := range candles {
		counts[c.Key()]++
	}
	out := make([]model.Candle, 0, len(candles))
	seen := make(map[string]int)
	for _, c := range candles {
		k := c.Key()
		seen[k]++
		if counts[k]-seen[k] < n {
			out = append(out, c)
		}
	}
	return out
}
