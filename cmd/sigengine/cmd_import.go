package main

import (
	"bufio"
	"encoding/json"
	"fmt"
	"io"
	"log"
	"os"

	"github.com/spf13/cobra"

	"signal-enginev1/internal/model"
	"signal-enginev1/internal/resample"
	sqlitestore "signal-enginev1/internal/store/sqlite"
)

const importBatch = 1000

var impResample []int

var importCmd = &cobra.Command{
	Use:   "import <file.jsonl|->",
	Short: "Import JSON-lines candles into the SQLite history",
	Long: `Each line is one candle:
  {"exchange":"NSE","token":"1","tf":60,"ts":"2026-02-25T09:15:00Z","open":10050,"high":10100,"low":10000,"close":10075,"volume":1200}
Prices are in paise. Existing candles with the same key are replaced.
With --resample, higher timeframes are derived from the imported candles,
which must then be in time order per instrument.`,
	Args: cobra.ExactArgs(1),
	RunE: runImport,
}

func init() {
	importCmd.Flags().IntSliceVar(&impResample, "resample", nil, "also derive these TFs, e.g. --resample=300,900")
}

func runImport(cmd *cobra.Command, args []string) error {
	var in io.Reader = os.Stdin
	if args[0] != "-" {
		f, err := os.Open(args[0])
		if err != nil {
			return err
		}
		defer f.Close()
		in = f
	}

	w, err := sqlitestore.New(sqlitestore.WriterConfig{DBPath: cfg.SQLitePath})
	if err != nil {
		return err
	}
	defer w.Close()

	write := w.WriteCandles
	var rs *resample.Builder
	derived := 0
	if len(impResample) > 0 {
		if rs, err = resample.New(impResample); err != nil {
			return err
		}
		rs.OnStale = func(c model.Candle, tf int) {
			log.Printf("[import] %s ts=%s out of order for TF=%d, skipped", c.Key(), c.TS, tf)
		}
		write = func(batch []model.Candle) error {
			if err := w.WriteCandles(batch); err != nil {
				return err
			}
			var closed []model.Candle
			for _, c := range batch {
				closed = append(closed, rs.Add(c)...)
			}
			derived += len(closed)
			if len(closed) == 0 {
				return nil
			}
			return w.WriteCandles(closed)
		}
	}

	n, err := importCandles(in, write)
	if err != nil {
		return err
	}
	if rs != nil {
		rest := rs.Flush()
		if len(rest) > 0 {
			if err := w.WriteCandles(rest); err != nil {
				return err
			}
		}
		derived += len(rest)
	}
	log.Printf("[import] imported %d candles (+%d resampled) into %s", n, derived, cfg.SQLitePath)
	return nil
}

// importCandles decodes JSON-lines candles and hands them to write in batches.
func importCandles(in io.Reader, write func([]model.Candle) error) (int, error) {
	sc := bufio.NewScanner(in)
	sc.Buffer(make([]byte, 64*1024), 1024*1024)

	batch := make([]model.Candle, 0, importBatch)
	total, line := 0, 0
	flush := func() error {
		if len(batch) == 0 {
			return nil
		}
		if err := write(batch); err != nil {
			return err
		}
		total += len(batch)
		batch = batch[:0]
		return nil
	}

	for sc.Scan() {
		line++
		if len(sc.Bytes()) == 0 {
			continue
		}
		var c model.Candle
		if err := json.Unmarshal(sc.Bytes(), &c); err != nil {
			return total, fmt.Errorf("line %d: %w", line, err)
		}
		if c.Exchange == "" || c.Token == "" || c.TF <= 0 || c.TS.IsZero() {
			return total, fmt.Errorf("line %d: exchange, token, tf and ts are required", line)
		}
		if c.Low > c.High {
			return total, fmt.Errorf("line %d: low %d above high %d", line, c.Low, c.High)
		}
		batch = append(batch, c)
		if len(batch) == importBatch {
			if err := flush(); err != nil {
				return total, err
			}
		}
	}
	if err := sc.Err(); err != nil {
		return total, err
	}
	return total, flush()
}
