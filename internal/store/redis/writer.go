// Package redis publishes signal results to Redis and consumes live candles
// from Redis Streams.
package redis

import (
	"context"
	"fmt"
	"log"
	"time"

	"signal-enginev1/internal/model"

	goredis "github.com/go-redis/redis/v8"
)

const defaultLatestTTL = 30 * time.Minute

// WriterConfig configures the Redis writer.
type WriterConfig struct {
	Addr      string // Redis address, e.g. "localhost:6379"
	Password  string
	DB        int
	LatestTTL time.Duration // expiry of the latest-result keys; 0 means 30m
}

// Writer writes signal results and candles to Redis.
type Writer struct {
	client    *goredis.Client
	latestTTL time.Duration
	onWrite   func(time.Duration)
}

// Client returns the underlying Redis client for health checks.
func (w *Writer) Client() *goredis.Client { return w.client }

// OnWrite installs fn to receive the duration of every signal pipeline.
func (w *Writer) OnWrite(fn func(time.Duration)) { w.onWrite = fn }

// New creates a new Redis Writer and pings the server.
func New(cfg WriterConfig) (*Writer, error) {
	client := goredis.NewClient(&goredis.Options{
		Addr:     cfg.Addr,
		Password: cfg.Password,
		DB:       cfg.DB,
	})

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := client.Ping(ctx).Err(); err != nil {
		client.Close()
		return nil, fmt.Errorf("redis ping: %w", err)
	}

	ttl := cfg.LatestTTL
	if ttl <= 0 {
		ttl = defaultLatestTTL
	}

	log.Printf("[redis] connected to %s", cfg.Addr)
	return &Writer{client: client, latestTTL: ttl}, nil
}

// streamMaxLen keeps roughly three hours of entries for a timeframe.
func streamMaxLen(tf int) int64 {
	if tf <= 0 {
		return 200
	}
	maxLen := int64(10800/tf) + 100
	if maxLen < 200 {
		maxLen = 200
	}
	return maxLen
}

// WriteSignalBatch writes results in a single Redis pipeline:
// XADD to the indicator stream, SET the latest value, PUBLISH to live subscribers.
func (w *Writer) WriteSignalBatch(ctx context.Context, results []model.SignalResult) error {
	if len(results) == 0 {
		return nil
	}
	start := time.Now()

	pipe := w.client.Pipeline()
	for i := range results {
		r := &results[i]
		jsonData := string(r.JSON())

		pipe.XAdd(ctx, &goredis.XAddArgs{
			Stream: r.StreamKey(),
			MaxLen: streamMaxLen(r.TF),
			Approx: true,
			Values: map[string]interface{}{"data": jsonData},
		})
		pipe.Set(ctx, r.LatestKey(), jsonData, w.latestTTL)
		pipe.Publish(ctx, r.PubSubChannel(), jsonData)
	}

	if _, err := pipe.Exec(ctx); err != nil {
		return fmt.Errorf("redis signal pipeline (%d results): %w", len(results), err)
	}
	if w.onWrite != nil {
		w.onWrite(time.Since(start))
	}
	return nil
}

// PublishCandles appends candles to their live candle streams.
// Used to feed stored history into a running engine.
func (w *Writer) PublishCandles(ctx context.Context, candles []model.Candle) error {
	if len(candles) == 0 {
		return nil
	}
	pipe := w.client.Pipeline()
	for _, c := range candles {
		pipe.XAdd(ctx, &goredis.XAddArgs{
			Stream: c.StreamKey(),
			MaxLen: streamMaxLen(c.TF),
			Approx: true,
			Values: map[string]interface{}{"data": string(c.JSON())},
		})
	}
	if _, err := pipe.Exec(ctx); err != nil {
		return fmt.Errorf("redis candle pipeline (%d candles): %w", len(candles), err)
	}
	return nil
}

// Run reads signal results and writes each candle's batch to Redis.
// Blocks until ctx is cancelled or resultCh is closed.
func (w *Writer) Run(ctx context.Context, resultCh <-chan []model.SignalResult) {
	for {
		select {
		case <-ctx.Done():
			return
		case batch, ok := <-resultCh:
			if !ok {
				return
			}
			if err := w.WriteSignalBatch(ctx, batch); err != nil {
				log.Printf("[redis] %v", err)
			}
		}
	}
}

// Close closes the Redis client.
func (w *Writer) Close() error {
	return w.client.Close()
}
