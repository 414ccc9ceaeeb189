package sqlite

import (
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"log"
	"time"

	"signal-enginev1/internal/model"
)

// ErrPresetNotFound is returned by LoadPreset for an unknown preset name.
var ErrPresetNotFound = errors.New("preset not found")

// Reader provides read-only access to SQLite for replay, backfill and presets.
type Reader struct {
	db *sql.DB
}

// NewReader opens a SQLite connection for reading.
func NewReader(dbPath string) (*Reader, error) {
	db, err := open(dbPath)
	if err != nil {
		return nil, fmt.Errorf("sqlite open reader: %w", err)
	}
	db.SetMaxOpenConns(2)
	db.SetMaxIdleConns(2)

	log.Printf("[sqlite-reader] opened %s", dbPath)
	return &Reader{db: db}, nil
}

// DB returns the underlying sql.DB for health checks.
func (r *Reader) DB() *sql.DB { return r.db }

// ReadTFCandles reads candles from candles_tf for a given exchange:token and TF.
// Results are ordered by timestamp ascending for correct replay order.
func (r *Reader) ReadTFCandles(exchange, token string, tf int, afterTS int64) ([]model.Candle, error) {
	rows, err := r.db.Query(`
		SELECT token, exchange, tf, ts, open, high, low, close, volume
		FROM candles_tf
		WHERE exchange = ? AND token = ? AND tf = ? AND ts > ?
		ORDER BY ts ASC
	`, exchange, token, tf, afterTS)
	if err != nil {
		return nil, fmt.Errorf("sqlite query candles_tf: %w", err)
	}
	return scanCandles(rows)
}

// ReadAllTFCandles reads all candles of a TF, ordered by timestamp.
func (r *Reader) ReadAllTFCandles(tf int, afterTS int64) ([]model.Candle, error) {
	rows, err := r.db.Query(`
		SELECT token, exchange, tf, ts, open, high, low, close, volume
		FROM candles_tf
		WHERE tf = ? AND ts > ?
		ORDER BY ts ASC, exchange ASC, token ASC
	`, tf, afterTS)
	if err != nil {
		return nil, fmt.Errorf("sqlite query all candles_tf: %w", err)
	}
	return scanCandles(rows)
}

func scanCandles(rows *sql.Rows) ([]model.Candle, error) {
	defer rows.Close()

	var candles []model.Candle
	for rows.Next() {
		var c model.Candle
		var tsUnix int64
		var volume sql.NullInt64
		if err := rows.Scan(&c.Token, &c.Exchange, &c.TF, &tsUnix, &c.Open, &c.High, &c.Low, &c.Close, &volume); err != nil {
			return nil, fmt.Errorf("sqlite scan candles_tf: %w", err)
		}
		c.TS = time.Unix(tsUnix, 0).UTC()
		c.Volume = volume.Int64
		candles = append(candles, c)
	}
	return candles, rows.Err()
}

// ReadSignals reads the journaled results of one indicator for an instrument and TF.
func (r *Reader) ReadSignals(indicator, exchange, token string, tf int, afterTS int64) ([]model.SignalResult, error) {
	rows, err := r.db.Query(`
		SELECT indicator, token, exchange, tf, ts, vals, signals
		FROM signals
		WHERE indicator = ? AND exchange = ? AND token = ? AND tf = ? AND ts > ?
		ORDER BY ts ASC
	`, indicator, exchange, token, tf, afterTS)
	if err != nil {
		return nil, fmt.Errorf("sqlite query signals: %w", err)
	}
	defer rows.Close()

	var out []model.SignalResult
	for rows.Next() {
		var s model.SignalResult
		var tsUnix int64
		var vals, sigs string
		if err := rows.Scan(&s.Indicator, &s.Token, &s.Exchange, &s.TF, &tsUnix, &vals, &sigs); err != nil {
			return nil, fmt.Errorf("sqlite scan signals: %w", err)
		}
		if err := json.Unmarshal([]byte(vals), &s.Values); err != nil {
			return nil, fmt.Errorf("unmarshal values: %w", err)
		}
		if err := json.Unmarshal([]byte(sigs), &s.Signals); err != nil {
			return nil, fmt.Errorf("unmarshal signals: %w", err)
		}
		s.TS = time.Unix(tsUnix, 0).UTC()
		out = append(out, s)
	}
	return out, rows.Err()
}

// LoadPreset reads a preset saved with Writer.SavePreset.
func (r *Reader) LoadPreset(preset string) (string, map[string]string, error) {
	return loadPreset(r.db, preset)
}

func loadPreset(db *sql.DB, preset string) (string, map[string]string, error) {
	rows, err := db.Query(`
		SELECT indicator, field, value FROM indicator_presets
		WHERE preset = ?
		ORDER BY field ASC
	`, preset)
	if err != nil {
		return "", nil, fmt.Errorf("sqlite read preset %s: %w", preset, err)
	}
	defer rows.Close()

	var indicator string
	params := make(map[string]string)
	found := false
	for rows.Next() {
		var field, value string
		if err := rows.Scan(&indicator, &field, &value); err != nil {
			return "", nil, fmt.Errorf("sqlite scan preset: %w", err)
		}
		found = true
		if field != "" {
			params[field] = value
		}
	}
	if err := rows.Err(); err != nil {
		return "", nil, err
	}
	if !found {
		return "", nil, fmt.Errorf("%s: %w", preset, ErrPresetNotFound)
	}
	return indicator, params, nil
}

// Close closes the reader.
func (r *Reader) Close() error {
	return r.db.Close()
}
