package main

import (
	"log"

	"github.com/spf13/cobra"

	"signal-enginev1/internal/sigengine"
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Consume live candles from Redis and publish signals",
	Long: `Warms the engine up from SQLite history, then consumes the candle streams
of every enabled TF. Signals go to Redis (stream, latest key and PubSub),
the WebSocket gateway on GATEWAY_ADDR and the SQLite journal. Metrics,
/healthz and POST /reload are served on METRICS_ADDR.`,
	Args: cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		configs, err := engineConfigs("", "")
		if err != nil {
			return err
		}
		svc, err := sigengine.New(cfg, registry, configs)
		if err != nil {
			return err
		}

		ctx, cancel := signalContext()
		defer cancel()
		log.Printf("[sigengine] metrics on %s, gateway on %s", cfg.MetricsAddr, cfg.GatewayAddr)
		return svc.Run(ctx)
	},
}
