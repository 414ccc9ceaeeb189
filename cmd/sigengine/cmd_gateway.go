package main

import (
	"context"
	"errors"
	"log"
	"net/http"
	"time"

	"github.com/spf13/cobra"

	"signal-enginev1/internal/gateway"
	redisstore "signal-enginev1/internal/store/redis"
)

var gatewayCmd = &cobra.Command{
	Use:   "gateway",
	Short: "Relay signals published to Redis PubSub to WebSocket clients",
	Long: `Runs the WebSocket gateway without an engine. Every message on the
pub:sig:* channels is forwarded to clients whose filters match.`,
	Args: cobra.NoArgs,
	RunE: runGateway,
}

func runGateway(cmd *cobra.Command, args []string) error {
	reader, err := redisstore.NewReader(redisstore.ReaderConfig{
		Addr:     cfg.RedisAddr,
		Password: cfg.RedisPassword,
		DB:       cfg.RedisDB,
	})
	if err != nil {
		return err
	}
	defer reader.Close()

	ctx, cancel := signalContext()
	defer cancel()

	pubsub, err := reader.SubscribeSignals(ctx)
	if err != nil {
		return err
	}
	defer pubsub.Close()

	hub := gateway.NewHub(cfg.ReplayBuffer)
	mux := http.NewServeMux()
	gateway.RegisterRoutes(mux, hub, gateway.RouteConfig{
		Rdb:       reader.Client(),
		TFs:       cfg.ParseTFs(),
		StartTime: time.Now(),
	})
	srv := &http.Server{Addr: cfg.GatewayAddr, Handler: mux, ReadHeaderTimeout: 5 * time.Second}
	go func() {
		log.Printf("[gateway] listening on %s", cfg.GatewayAddr)
		if err := srv.ListenAndServe(); !errors.Is(err, http.ErrServerClosed) {
			log.Printf("[gateway] server error: %v", err)
			cancel()
		}
	}()

	hub.Relay(ctx, pubsub.Channel())

	shutCtx, shutCancel := context.WithTimeout(context.Background(), 3*time.Second)
	defer shutCancel()
	hub.Close()
	return srv.Shutdown(shutCtx)
}
