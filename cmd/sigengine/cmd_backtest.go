package main

import (
	"context"
	"fmt"
	"log"
	"strings"
	"sync"
	"time"

	"github.com/spf13/cobra"

	"signal-enginev1/internal/indicator"
	"signal-enginev1/internal/model"
	"signal-enginev1/internal/replay"
	sqlitestore "signal-enginev1/internal/store/sqlite"
)

var (
	btTFs        string
	btFrom       int64
	btSpeed      float64
	btWorkers    int
	btIndicators string
	btPresets    []string
	btJournal    bool
	btPrint      int

	backtestCmd = &cobra.Command{
		Use:   "backtest",
		Short: "Replay historical candles from SQLite through the engine",
		Long: `Replays stored candles through the configured indicators. With --speed=0
instruments are replayed in parallel; any other speed replays all instruments
in time order, sleeping between candles.`,
		Args: cobra.NoArgs,
		RunE: runBacktest,
	}
)

func init() {
	f := backtestCmd.Flags()
	f.StringVar(&btTFs, "tf", "", "comma-separated TFs to replay (default ENABLED_TFS)")
	f.Int64Var(&btFrom, "from", 0, "Unix timestamp to start replay from (0=all)")
	f.Float64Var(&btSpeed, "speed", 0, "playback speed multiplier (0=max, 1=realtime, 100=100x)")
	f.IntVar(&btWorkers, "workers", 0, "parallel instruments when --speed=0 (default WORKERS)")
	f.StringVar(&btIndicators, "indicators", "", "indicator specs (default INDICATORS)")
	f.StringSliceVar(&btPresets, "preset", nil, "saved preset to add (repeatable)")
	f.BoolVar(&btJournal, "journal", false, "write results to the SQLite signals journal")
	f.IntVar(&btPrint, "print", 20, "print at most this many non-empty signals")
}

// tally counts results and prints the first few signals.
type tally struct {
	mu      sync.Mutex
	candles map[string]int
	results int
	buys    map[string]int
	sells   map[string]int
	printed int
}

func newTally() *tally {
	return &tally{candles: map[string]int{}, buys: map[string]int{}, sells: map[string]int{}}
}

func (t *tally) add(results []model.SignalResult) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.results += len(results)
	for i := range results {
		r := &results[i]
		if len(r.Signals) > 0 {
			switch s := r.Signals[0]; {
			case s.IsBuy():
				t.buys[r.Indicator]++
			case s.IsSell():
				t.sells[r.Indicator]++
			}
		}
		if r.HasSignal() && t.printed < btPrint {
			t.printed++
			fmt.Printf("  [%s] %-16s TF=%ds %s values=%v signals=%v\n",
				r.TS.Format(time.DateTime), r.Indicator, r.TF, r.Key(), r.Values, r.Signals)
		}
	}
}

func runBacktest(cmd *cobra.Command, args []string) error {
	specs, err := withPresets(btIndicators, btPresets)
	if err != nil {
		return err
	}
	configs, err := engineConfigs(specs, btTFs)
	if err != nil {
		return err
	}
	tfs := make([]int, len(configs))
	for i, c := range configs {
		tfs[i] = c.TF
	}

	reader, err := sqlitestore.NewReader(cfg.SQLitePath)
	if err != nil {
		return fmt.Errorf("sqlite open: %w", err)
	}
	defer reader.Close()

	var journal *sqlitestore.Writer
	if btJournal {
		journal, err = sqlitestore.New(sqlitestore.WriterConfig{DBPath: cfg.SQLitePath})
		if err != nil {
			return err
		}
		defer journal.Close()
	}

	ctx, cancel := signalContext()
	defer cancel()

	t := newTally()
	var journalMu sync.Mutex
	onResults := func(results []model.SignalResult) error {
		t.add(results)
		if journal == nil {
			return nil
		}
		journalMu.Lock()
		defer journalMu.Unlock()
		return journal.WriteSignalBatch(ctx, results)
	}

	start := time.Now()
	replayer := replay.New(reader)
	if btSpeed > 0 {
		err = backtestTimed(ctx, replayer, configs, tfs, onResults, t)
	} else {
		err = backtestParallel(ctx, replayer, configs, tfs, onResults, t)
	}
	if err != nil {
		return err
	}

	total := 0
	for _, n := range t.candles {
		total += n
	}
	fmt.Println()
	fmt.Println("╔══════════════════════════════════════╗")
	fmt.Println("║        BACKTEST COMPLETE             ║")
	fmt.Println("╠══════════════════════════════════════╣")
	fmt.Printf("║  Candles processed: %-16d ║\n", total)
	fmt.Printf("║  Instruments:       %-16d ║\n", len(t.candles))
	fmt.Printf("║  Signal results:    %-16d ║\n", t.results)
	fmt.Printf("║  TFs:               %-16v ║\n", tfs)
	fmt.Printf("║  Elapsed:           %-16s ║\n", time.Since(start).Round(time.Millisecond))
	fmt.Println("╚══════════════════════════════════════╝")
	for _, label := range indicatorLabels(configs) {
		fmt.Printf("  %-20s buy=%d sell=%d\n", label, t.buys[label], t.sells[label])
	}
	return nil
}

// backtestParallel runs one engine per instrument, up to --workers at a time.
func backtestParallel(ctx context.Context, r *replay.Replayer, configs []indicator.TFIndicatorConfig, tfs []int, onResults func([]model.SignalResult) error, t *tally) error {
	candles, err := r.Load(tfs, btFrom)
	if err != nil {
		return err
	}
	streams := indicator.GroupByInstrument(candles)
	for key, cs := range streams {
		t.candles[key] = len(cs)
	}
	workers := btWorkers
	if workers <= 0 {
		workers = cfg.Workers
	}
	log.Printf("[backtest] %d candles, %d instruments, %d workers", len(candles), len(streams), workers)

	return indicator.ReplayParallel(ctx, configs, streams, workers, func(_ string, results []model.SignalResult) error {
		return onResults(results)
	})
}

// backtestTimed replays every instrument through a single engine in time order.
func backtestTimed(ctx context.Context, r *replay.Replayer, configs []indicator.TFIndicatorConfig, tfs []int, onResults func([]model.SignalResult) error, t *tally) error {
	engine, err := indicator.NewEngine(configs)
	if err != nil {
		return err
	}

	candleCh := make(chan model.Candle, 1000)
	replayErr := make(chan error, 1)
	go func() {
		replayErr <- r.Run(ctx, tfs, btFrom, btSpeed, candleCh)
		close(candleCh)
	}()

	for c := range candleCh {
		t.candles[c.Key()]++
		results, err := engine.Process(c)
		if err != nil {
			log.Printf("[backtest] %s TF=%d: %v", c.Key(), c.TF, err)
		}
		if len(results) > 0 {
			if err := onResults(results); err != nil {
				return err
			}
		}
	}
	return <-replayErr
}

// withPresets appends saved presets to a spec list, labelled by preset name.
func withPresets(specs string, presets []string) (string, error) {
	if len(presets) == 0 {
		return specs, nil
	}
	reader, err := sqlitestore.NewReader(cfg.SQLitePath)
	if err != nil {
		return "", err
	}
	defer reader.Close()

	parts := []string{}
	if specs == "" {
		specs = cfg.Indicators
	}
	if specs != "" {
		parts = append(parts, specs)
	}
	for _, name := range presets {
		spec, err := loadPresetSpec(reader, name)
		if err != nil {
			return "", err
		}
		parts = append(parts, spec.String())
	}
	return strings.Join(parts, ","), nil
}

func indicatorLabels(configs []indicator.TFIndicatorConfig) []string {
	seen := map[string]bool{}
	var out []string
	for _, c := range configs {
		for _, ind := range c.Indicators {
			if !seen[ind.Label] {
				seen[ind.Label] = true
				out = append(out, ind.Label)
			}
		}
	}
	return out
}
