package sigengine

import (
	"context"
	"fmt"
	"log"
	"log/slog"

	"signal-enginev1/internal/logger"
	"signal-enginev1/internal/model"
)

// startConsumer discovers the candle streams of the configured TFs and
// starts the XREADGROUP consumer in a goroutine.
func (svc *Service) startConsumer(ctx context.Context) error {
	streams, err := svc.redisReader.DiscoverCandleStreams(ctx, tfsOf(svc.currentConfigs()))
	if err != nil {
		return fmt.Errorf("discover candle streams: %w", err)
	}
	svc.streams = streams
	if len(streams) == 0 {
		log.Println("[sigengine] WARNING: no candle streams found for the configured TFs")
		return nil
	}
	if err := svc.redisReader.EnsureConsumerGroup(ctx, streams); err != nil {
		return fmt.Errorf("consumer group setup: %w", err)
	}
	log.Printf("[sigengine] consuming from %d streams", len(streams))

	go func() {
		if err := svc.redisReader.ConsumeCandles(ctx, streams, svc.candleCh); err != nil && ctx.Err() == nil {
			log.Printf("[sigengine] consumer error: %v", err)
			svc.health.SetEngineOK(false)
		}
	}()
	return nil
}

// processLoop feeds candles from the consumer into the engine.
func (svc *Service) processLoop(ctx context.Context) {
	for {
		select {
		case <-ctx.Done():
			return
		case c, ok := <-svc.candleCh:
			if !ok {
				return
			}
			svc.handle(ctx, c)
		}
	}
}

// handle steps every indicator configured for c's TF and publishes the results.
func (svc *Service) handle(ctx context.Context, c model.Candle) {
	svc.prom.ObserveCandle(c.TF)
	svc.health.SetLastCandleTime(c.TS)

	ctx = logger.WithTraceID(ctx, logger.GenerateTraceID(c.Key(), c.TS))

	svc.mu.Lock()
	results, err := svc.engine.Process(c)
	svc.mu.Unlock()
	if err != nil {
		slog.Error("engine step failed",
			append(logger.LogWithTrace(ctx), "component", "sigengine", "tf", c.TF, "err", err)...)
	}
	svc.publish(ctx, results)
}

// publish writes results to every sink and queues them for the SQLite journal.
func (svc *Service) publish(ctx context.Context, results []model.SignalResult) {
	if len(results) == 0 {
		return
	}
	for _, s := range svc.sinks {
		if err := s.w.WriteSignalBatch(ctx, results); err != nil {
			svc.prom.SinkErrors.WithLabelValues(s.name).Inc()
			slog.Warn("sink write failed",
				append(logger.LogWithTrace(ctx), "component", "sigengine", "sink", s.name, "err", err)...)
		}
	}
	for _, r := range results {
		select {
		case svc.journalCh <- r:
		case <-ctx.Done():
			return
		}
	}
}
