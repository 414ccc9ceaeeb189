// Package sqlite stores candle history, the signal journal and indicator
// presets in a single SQLite database.
package sqlite

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"log"
	"sort"
	"time"

	"signal-enginev1/internal/model"

	_ "github.com/mattn/go-sqlite3"
)

const (
	defaultBatchSize  = 100
	defaultFlushDelay = 200 * time.Millisecond
)

// WriterConfig configures the SQLite writer.
type WriterConfig struct {
	DBPath string // path to SQLite database file, e.g. "data/signals.db"
}

// Writer is a single-goroutine SQLite writer with transaction batching.
type Writer struct {
	db       *sql.DB
	onCommit func(time.Duration)
}

// DB returns the underlying sql.DB for health checks.
func (w *Writer) DB() *sql.DB { return w.db }

// OnCommit installs fn to receive the duration of every committed signal batch.
func (w *Writer) OnCommit(fn func(time.Duration)) { w.onCommit = fn }

// New creates a new SQLite Writer, initializes the database with WAL mode and schema.
func New(cfg WriterConfig) (*Writer, error) {
	db, err := open(cfg.DBPath)
	if err != nil {
		return nil, fmt.Errorf("sqlite open: %w", err)
	}

	// Set connection pool for single-writer
	db.SetMaxOpenConns(1)
	db.SetMaxIdleConns(1)

	if err := createSchema(db); err != nil {
		db.Close()
		return nil, fmt.Errorf("sqlite schema: %w", err)
	}

	log.Printf("[sqlite] opened database at %s", cfg.DBPath)
	return &Writer{db: db}, nil
}

func open(path string) (*sql.DB, error) {
	return sql.Open("sqlite3", path+"?_journal_mode=WAL&_synchronous=NORMAL&_busy_timeout=5000")
}

func createSchema(db *sql.DB) error {
	_, err := db.Exec(`
		CREATE TABLE IF NOT EXISTS candles_tf (
			token      TEXT    NOT NULL,
			exchange   TEXT    NOT NULL,
			tf         INTEGER NOT NULL,
			ts         INTEGER NOT NULL,
			open       INTEGER NOT NULL,
			high       INTEGER NOT NULL,
			low        INTEGER NOT NULL,
			close      INTEGER NOT NULL,
			volume     INTEGER,
			PRIMARY KEY (exchange, token, tf, ts)
		);

		CREATE TABLE IF NOT EXISTS signals (
			indicator  TEXT    NOT NULL,
			token      TEXT    NOT NULL,
			exchange   TEXT    NOT NULL,
			tf         INTEGER NOT NULL,
			ts         INTEGER NOT NULL,
			vals       TEXT    NOT NULL,
			signals    TEXT    NOT NULL,
			PRIMARY KEY (indicator, exchange, token, tf, ts)
		);

		CREATE TABLE IF NOT EXISTS indicator_presets (
			preset     TEXT    NOT NULL,
			indicator  TEXT    NOT NULL,
			field      TEXT    NOT NULL,
			value      TEXT    NOT NULL,
			updated_at INTEGER NOT NULL DEFAULT (strftime('%s', 'now')),
			PRIMARY KEY (preset, field)
		);
	`)
	return err
}

// Run reads signal results from resultCh and inserts them in batched transactions.
// Flushes every batchSize results OR every flushDelay, whichever first.
// Blocks until ctx is cancelled or resultCh is closed.
func (w *Writer) Run(ctx context.Context, resultCh <-chan model.SignalResult) {
	batch := make([]model.SignalResult, 0, defaultBatchSize)
	timer := time.NewTimer(defaultFlushDelay)
	defer timer.Stop()

	flush := func() {
		if len(batch) == 0 {
			return
		}
		// ctx may already be cancelled on the final flush
		if err := w.WriteSignalBatch(context.Background(), batch); err != nil {
			log.Printf("[sqlite] signal batch insert error: %v", err)
		}
		batch = batch[:0]
	}

	for {
		select {
		case <-ctx.Done():
			flush()
			return

		case r, ok := <-resultCh:
			if !ok {
				flush()
				return
			}
			batch = append(batch, r)
			if len(batch) >= defaultBatchSize {
				flush()
				timer.Reset(defaultFlushDelay)
			}

		case <-timer.C:
			flush()
			timer.Reset(defaultFlushDelay)
		}
	}
}

// WriteSignalBatch journals a batch of results in a single transaction.
// A result for an already journaled (indicator, instrument, tf, ts) replaces it.
func (w *Writer) WriteSignalBatch(ctx context.Context, results []model.SignalResult) error {
	if len(results) == 0 {
		return nil
	}
	start := time.Now()

	tx, err := w.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}

	stmt, err := tx.PrepareContext(ctx, `
		INSERT OR REPLACE INTO signals (indicator, token, exchange, tf, ts, vals, signals)
		VALUES (?, ?, ?, ?, ?, ?, ?)
	`)
	if err != nil {
		tx.Rollback()
		return err
	}
	defer stmt.Close()

	for _, r := range results {
		vals, err := json.Marshal(r.Values)
		if err != nil {
			tx.Rollback()
			return fmt.Errorf("marshal values for %s %s: %w", r.Indicator, r.Key(), err)
		}
		sigs, err := json.Marshal(r.Signals)
		if err != nil {
			tx.Rollback()
			return fmt.Errorf("marshal signals for %s %s: %w", r.Indicator, r.Key(), err)
		}
		if _, err := stmt.ExecContext(ctx, r.Indicator, r.Token, r.Exchange, r.TF, r.TS.Unix(), string(vals), string(sigs)); err != nil {
			tx.Rollback()
			return err
		}
	}

	if err := tx.Commit(); err != nil {
		return err
	}
	if w.onCommit != nil {
		w.onCommit(time.Since(start))
	}
	return nil
}

// WriteCandles inserts a batch of TF candles in a single transaction.
func (w *Writer) WriteCandles(candles []model.Candle) error {
	tx, err := w.db.Begin()
	if err != nil {
		return err
	}

	stmt, err := tx.Prepare(`
		INSERT OR REPLACE INTO candles_tf (token, exchange, tf, ts, open, high, low, close, volume)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)
	`)
	if err != nil {
		tx.Rollback()
		return err
	}
	defer stmt.Close()

	for _, c := range candles {
		_, err := stmt.Exec(c.Token, c.Exchange, c.TF, c.TS.Unix(), c.Open, c.High, c.Low, c.Close, c.Volume)
		if err != nil {
			tx.Rollback()
			return err
		}
	}

	return tx.Commit()
}

// GetLastTimestamp returns the last stored candle timestamp for an instrument and TF.
// Returns 0 if no candles exist.
func (w *Writer) GetLastTimestamp(exchange, token string, tf int) (int64, error) {
	var ts sql.NullInt64
	err := w.db.QueryRow(
		`SELECT MAX(ts) FROM candles_tf WHERE exchange = ? AND token = ? AND tf = ?`,
		exchange, token, tf,
	).Scan(&ts)
	if err != nil {
		return 0, err
	}
	if !ts.Valid {
		return 0, nil
	}
	return ts.Int64, nil
}

// SavePreset replaces the named preset with indicator and its field values.
func (w *Writer) SavePreset(preset, indicator string, params map[string]string) error {
	tx, err := w.db.Begin()
	if err != nil {
		return err
	}
	if _, err := tx.Exec(`DELETE FROM indicator_presets WHERE preset = ?`, preset); err != nil {
		tx.Rollback()
		return fmt.Errorf("sqlite clear preset %s: %w", preset, err)
	}

	fields := make([]string, 0, len(params))
	for f := range params {
		fields = append(fields, f)
	}
	sort.Strings(fields)

	// a preset with no params still records its indicator
	if len(fields) == 0 {
		fields = append(fields, "")
	}
	for _, f := range fields {
		if _, err := tx.Exec(
			`INSERT INTO indicator_presets (preset, indicator, field, value) VALUES (?, ?, ?, ?)`,
			preset, indicator, f, params[f],
		); err != nil {
			tx.Rollback()
			return fmt.Errorf("sqlite save preset %s: %w", preset, err)
		}
	}
	return tx.Commit()
}

// LoadPreset reads a preset saved with SavePreset.
func (w *Writer) LoadPreset(preset string) (string, map[string]string, error) {
	return loadPreset(w.db, preset)
}

// Close closes the database.
func (w *Writer) Close() error {
	return w.db.Close()
}
