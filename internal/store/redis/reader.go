package redis

import (
	"context"
	"encoding/json"
	"fmt"
	"log"
	"strconv"
	"strings"
	"time"

	"signal-enginev1/internal/model"

	goredis "github.com/go-redis/redis/v8"
)

// ReaderConfig configures the Redis reader.
type ReaderConfig struct {
	Addr          string
	Password      string
	DB            int
	ConsumerGroup string // consumer group name, e.g. "sigengine"
	ConsumerName  string // unique consumer name, e.g. hostname
}

// Reader consumes live candles from Redis Streams via consumer groups.
type Reader struct {
	client        *goredis.Client
	consumerGroup string
	consumerName  string
}

// NewReader creates a new Redis Reader and pings the server.
func NewReader(cfg ReaderConfig) (*Reader, error) {
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

	group := cfg.ConsumerGroup
	if group == "" {
		group = "sigengine"
	}
	consumer := cfg.ConsumerName
	if consumer == "" {
		consumer = "worker-1"
	}

	log.Printf("[redis-reader] connected to %s (group=%s, consumer=%s)", cfg.Addr, group, consumer)
	return &Reader{
		client:        client,
		consumerGroup: group,
		consumerName:  consumer,
	}, nil
}

// Client returns the underlying Redis client.
func (r *Reader) Client() *goredis.Client { return r.client }

// EnsureConsumerGroup creates the consumer group on the given streams if it doesn't exist.
// Uses "$" as start ID (only new messages) for fresh groups.
func (r *Reader) EnsureConsumerGroup(ctx context.Context, streams []string) error {
	for _, stream := range streams {
		err := r.client.XGroupCreateMkStream(ctx, stream, r.consumerGroup, "$").Err()
		if err != nil && !strings.HasPrefix(err.Error(), "BUSYGROUP") {
			return fmt.Errorf("xgroup create %s: %w", stream, err)
		}
	}
	return nil
}

// DiscoverCandleStreams returns the existing candle streams of the given TFs.
func (r *Reader) DiscoverCandleStreams(ctx context.Context, tfs []int) ([]string, error) {
	var streams []string
	for _, tf := range tfs {
		iter := r.client.Scan(ctx, 0, "candle:"+strconv.Itoa(tf)+"s:*", 100).Iterator()
		for iter.Next(ctx) {
			streams = append(streams, iter.Val())
		}
		if err := iter.Err(); err != nil {
			return nil, fmt.Errorf("scan candle streams tf=%d: %w", tf, err)
		}
	}
	return streams, nil
}

// ConsumeCandles reads candles from Redis Streams using the consumer group.
// Blocks on XREADGROUP and sends parsed candles to out, acknowledging each
// once it is handed over. Returns when ctx is cancelled.
func (r *Reader) ConsumeCandles(ctx context.Context, streams []string, out chan<- model.Candle) error {
	if len(streams) == 0 {
		return fmt.Errorf("no candle streams to consume")
	}
	// [stream1, stream2, ..., ">", ">", ...]
	args := make([]string, len(streams)*2)
	for i, s := range streams {
		args[i] = s
		args[len(streams)+i] = ">"
	}

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		default:
		}

		results, err := r.client.XReadGroup(ctx, &goredis.XReadGroupArgs{
			Group:    r.consumerGroup,
			Consumer: r.consumerName,
			Streams:  args,
			Count:    100,
			Block:    2 * time.Second,
		}).Result()
		if err != nil {
			if err == goredis.Nil || ctx.Err() != nil {
				continue
			}
			log.Printf("[redis-reader] xreadgroup error: %v", err)
			time.Sleep(500 * time.Millisecond)
			continue
		}

		for _, stream := range results {
			for _, msg := range stream.Messages {
				c, err := decodeCandle(msg)
				if err != nil {
					log.Printf("[redis-reader] %s %s: %v", stream.Stream, msg.ID, err)
					// ACK even on bad message to avoid poison pill
					r.client.XAck(ctx, stream.Stream, r.consumerGroup, msg.ID)
					continue
				}

				select {
				case out <- c:
				case <-ctx.Done():
					return ctx.Err()
				}

				r.client.XAck(ctx, stream.Stream, r.consumerGroup, msg.ID)
			}
		}
	}
}

func decodeCandle(msg goredis.XMessage) (model.Candle, error) {
	var c model.Candle
	data, ok := msg.Values["data"].(string)
	if !ok {
		return c, fmt.Errorf("message has no data field")
	}
	if err := json.Unmarshal([]byte(data), &c); err != nil {
		return c, fmt.Errorf("unmarshal candle: %w", err)
	}
	return c, nil
}

// SubscribeSignals pattern-subscribes to every live signal channel.
// The caller reads from the returned PubSub's Channel() and closes it.
func (r *Reader) SubscribeSignals(ctx context.Context) (*goredis.PubSub, error) {
	pubsub := r.client.PSubscribe(ctx, "pub:sig:*")
	if _, err := pubsub.Receive(ctx); err != nil {
		pubsub.Close()
		return nil, fmt.Errorf("psubscribe pub:sig:*: %w", err)
	}
	return pubsub, nil
}

// Close closes the Redis client.
func (r *Reader) Close() error {
	return r.client.Close()
}
