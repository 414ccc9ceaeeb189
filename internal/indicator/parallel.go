package indicator

import (
	"context"
	"fmt"

	"golang.org/x/sync/errgroup"

	"signal-enginev1/internal/model"
)

// GroupByInstrument splits candles into per-instrument streams keyed by
// "exchange:token", keeping each stream in input order.
func GroupByInstrument(candles []model.Candle) map[string][]model.Candle {
	streams := make(map[string][]model.Candle)
	for _, c := range candles {
		k := c.Key()
		streams[k] = append(streams[k], c)
	}
	return streams
}

// ReplayParallel replays independent instrument streams concurrently, one
// Engine per stream, with at most workers streams in flight (workers <= 0
// means no limit). The first error cancels the rest.
//
// onResults is called from multiple goroutines and must be safe for concurrent use.
func ReplayParallel(
	ctx context.Context,
	configs []TFIndicatorConfig,
	streams map[string][]model.Candle,
	workers int,
	onResults func(key string, results []model.SignalResult) error,
) error {
	if err := ValidateConfigs(configs); err != nil {
		return err
	}

	g, ctx := errgroup.WithContext(ctx)
	if workers > 0 {
		g.SetLimit(workers)
	}

	for key, candles := range streams {
		key, candles := key, candles
		g.Go(func() error {
			engine, err := NewEngine(configs)
			if err != nil {
				return err
			}
			for _, c := range candles {
				if err := ctx.Err(); err != nil {
					return err
				}
				results, err := engine.Process(c)
				if err != nil {
					return fmt.Errorf("replay %s: %w", key, err)
				}
				if onResults != nil && len(results) > 0 {
					if err := onResults(key, results); err != nil {
						return err
					}
				}
			}
			return nil
		})
	}
	return g.Wait()
}
