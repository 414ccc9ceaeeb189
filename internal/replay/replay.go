// Package replay reads historical candles and emits them in time order at a
// configurable speed, feeding the engine the same way a live source would.
package replay

import (
	"context"
	"log"
	"sort"
	"time"

	"signal-enginev1/internal/model"
)

// maxGap caps the simulated wait between two candles.
const maxGap = 5 * time.Second

// Replayer reads historical TF candles and replays them at a speed multiplier.
type Replayer struct {
	reader model.CandleReader
	after  func(time.Duration) <-chan time.Time
}

// New creates a Replayer backed by any candle reader.
func New(reader model.CandleReader) *Replayer {
	return &Replayer{reader: reader, after: time.After}
}

// Load reads every candle of the given TFs after fromTS (Unix seconds, 0 = all)
// and returns them sorted by timestamp. Candles sharing a timestamp keep the
// reader's order, lower TFs first.
func (r *Replayer) Load(tfs []int, fromTS int64) ([]model.Candle, error) {
	var all []model.Candle
	for _, tf := range tfs {
		candles, err := r.reader.ReadAllTFCandles(tf, fromTS)
		if err != nil {
			return nil, err
		}
		all = append(all, candles...)
	}
	sort.SliceStable(all, func(i, j int) bool {
		if !all[i].TS.Equal(all[j].TS) {
			return all[i].TS.Before(all[j].TS)
		}
		return all[i].TF < all[j].TF
	})
	return all, nil
}

// Run replays all candles for the given TFs into outCh.
// speed controls the playback rate: 1.0 = real-time, 10.0 = 10x, 0 = as fast as possible.
// fromTS filters candles to those after this Unix timestamp (0 = all).
// Run does not close outCh.
func (r *Replayer) Run(ctx context.Context, tfs []int, fromTS int64, speed float64, outCh chan<- model.Candle) error {
	candles, err := r.Load(tfs, fromTS)
	if err != nil {
		return err
	}
	if len(candles) == 0 {
		log.Println("[replay] no candles found")
		return nil
	}

	log.Printf("[replay] loaded %d candles across %d TFs, speed=%.1fx", len(candles), len(tfs), speed)

	var prevTS time.Time
	emitted := 0
	for _, c := range candles {
		if speed > 0 && !prevTS.IsZero() {
			if gap := c.TS.Sub(prevTS); gap > 0 {
				scaled := time.Duration(float64(gap) / speed)
				if scaled > maxGap {
					scaled = maxGap
				}
				select {
				case <-ctx.Done():
					return ctx.Err()
				case <-r.after(scaled):
				}
			}
		}
		prevTS = c.TS

		select {
		case <-ctx.Done():
			log.Printf("[replay] cancelled after %d candles", emitted)
			return ctx.Err()
		case outCh <- c:
			emitted++
		}
	}

	log.Printf("[replay] completed: %d candles replayed", emitted)
	return nil
}
