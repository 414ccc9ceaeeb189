package model

import "context"

// These interfaces decouple the engine from concrete storage (Redis, SQLite).

// CandleReader reads historical candles for replay.
type CandleReader interface {
	// ReadTFCandles reads candles for one instrument and TF, ordered by time.
	ReadTFCandles(exchange, token string, tf int, afterTS int64) ([]Candle, error)

	// ReadAllTFCandles reads all candles for a TF, ordered by time.
	ReadAllTFCandles(tf int, afterTS int64) ([]Candle, error)

	Close() error
}

// SignalWriter persists or publishes a batch of signal results.
type SignalWriter interface {
	WriteSignalBatch(ctx context.Context, results []SignalResult) error
	Close() error
}

// PresetStore saves and loads named indicator parameter sets.
type PresetStore interface {
	SavePreset(preset string, indicator string, params map[string]string) error
	LoadPreset(preset string) (indicator string, params map[string]string, err error)
}
