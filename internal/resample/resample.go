// Package resample aggregates closed candles of a base timeframe into
// higher timeframes. Each input candle is merged in O(1) per target TF;
// a target candle is emitted once a candle for a later bucket arrives.
package resample

import (
	"fmt"
	"sort"
	"time"

	"signal-enginev1/internal/model"
)

// bucketState holds the forming candle for one (instrument, TF) pair.
type bucketState struct {
	bucket int64 // bucket start = ts - ts%tf (Unix seconds)
	candle model.Candle
}

// Builder resamples candles into multiple timeframes.
// Not goroutine-safe: designed for a single consumer.
type Builder struct {
	tfs []int

	// states[tfIdx][instrumentKey]
	states []map[string]*bucketState

	OnStale func(c model.Candle, tf int) // called when a candle older than the forming bucket is skipped
}

// New creates a Builder for the given target timeframes (in seconds).
func New(tfs []int) (*Builder, error) {
	states := make([]map[string]*bucketState, len(tfs))
	for i, tf := range tfs {
		if tf <= 0 {
			return nil, fmt.Errorf("resample: invalid TF=%d", tf)
		}
		states[i] = make(map[string]*bucketState, 64)
	}
	return &Builder{tfs: tfs, states: states}, nil
}

// TFs returns the target timeframes.
func (b *Builder) TFs() []int { return b.tfs }

// Add merges c into every target TF that is a larger multiple of c.TF and
// returns the candles whose bucket c closed. Candles must arrive in time
// order per instrument; an older candle is skipped for that TF.
func (b *Builder) Add(c model.Candle) []model.Candle {
	var closed []model.Candle
	ts := c.TS.Unix()
	key := c.Key()

	for i, tf := range b.tfs {
		if c.TF <= 0 || tf <= c.TF || tf%c.TF != 0 {
			continue
		}
		tf64 := int64(tf)
		bucket := ts - (ts % tf64)

		st, exists := b.states[i][key]
		if exists && bucket < st.bucket {
			if b.OnStale != nil {
				b.OnStale(c, tf)
			}
			continue
		}

		if exists && bucket > st.bucket {
			closed = append(closed, st.candle)
			exists = false
		}

		if !exists {
			b.states[i][key] = &bucketState{
				bucket: bucket,
				candle: model.Candle{
					Token:    c.Token,
					Exchange: c.Exchange,
					TF:       tf,
					TS:       time.Unix(bucket, 0).UTC(),
					Open:     c.Open,
					High:     c.High,
					Low:      c.Low,
					Close:    c.Close,
					Volume:   c.Volume,
				},
			}
			continue
		}

		// Same bucket: merge OHLCV
		fc := &st.candle
		if c.High > fc.High {
			fc.High = c.High
		}
		if c.Low < fc.Low {
			fc.Low = c.Low
		}
		fc.Close = c.Close
		fc.Volume += c.Volume
	}
	return closed
}

// Flush returns every forming candle, ordered by TF then instrument, and
// resets the builder. The last bucket may be incomplete.
func (b *Builder) Flush() []model.Candle {
	var out []model.Candle
	for i := range b.tfs {
		keys := make([]string, 0, len(b.states[i]))
		for k := range b.states[i] {
			keys = append(keys, k)
		}
		sort.Strings(keys)
		for _, k := range keys {
			out = append(out, b.states[i][k].candle)
		}
		b.states[i] = make(map[string]*bucketState, 64)
	}
	return out
}
