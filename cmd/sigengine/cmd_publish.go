package main

import (
	"log"

	"github.com/spf13/cobra"

	"signal-enginev1/internal/model"
	"signal-enginev1/internal/replay"
	redisstore "signal-enginev1/internal/store/redis"
	sqlitestore "signal-enginev1/internal/store/sqlite"
)

var (
	pubTFs   string
	pubFrom  int64
	pubSpeed float64

	publishCmd = &cobra.Command{
		Use:   "publish",
		Short: "Publish stored candles onto the Redis candle streams",
		Long: `Replays SQLite candles in time order onto candle:{tf}s:{exchange}:{token}
streams, which is what serve consumes. Useful for demos and soak tests.`,
		Args: cobra.NoArgs,
		RunE: runPublish,
	}
)

func init() {
	f := publishCmd.Flags()
	f.StringVar(&pubTFs, "tf", "", "comma-separated TFs (default ENABLED_TFS)")
	f.Int64Var(&pubFrom, "from", 0, "Unix timestamp to start from (0=all)")
	f.Float64Var(&pubSpeed, "speed", 1, "playback speed multiplier (0=max)")
}

func runPublish(cmd *cobra.Command, args []string) error {
	c := *cfg
	if pubTFs != "" {
		c.EnabledTFs = pubTFs
	}
	tfs := c.ParseTFs()

	reader, err := sqlitestore.NewReader(cfg.SQLitePath)
	if err != nil {
		return err
	}
	defer reader.Close()

	w, err := redisstore.New(redisstore.WriterConfig{
		Addr:     cfg.RedisAddr,
		Password: cfg.RedisPassword,
		DB:       cfg.RedisDB,
	})
	if err != nil {
		return err
	}
	defer w.Close()

	ctx, cancel := signalContext()
	defer cancel()

	candleCh := make(chan model.Candle, 1000)
	replayErr := make(chan error, 1)
	go func() {
		replayErr <- replay.New(reader).Run(ctx, tfs, pubFrom, pubSpeed, candleCh)
		close(candleCh)
	}()

	n := 0
	for candle := range candleCh {
		if err := w.PublishCandles(ctx, []model.Candle{candle}); err != nil {
			cancel()
			for range candleCh {
			}
			return err
		}
		n++
	}
	log.Printf("[publish] published %d candles", n)
	return <-replayErr
}
