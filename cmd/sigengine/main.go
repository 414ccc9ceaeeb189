// cmd/sigengine runs the streaming signal engine: live serving from Redis
// candle streams, historical backtests from SQLite, and the supporting
// import/publish/preset tooling.
//
// Usage:
//
//	sigengine validate "example:price=2.5,pivot_reversal"
//	sigengine backtest --tf=60,300 --journal
//	sigengine serve
package main

import (
	"context"
	"fmt"
	"io"
	"log"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"signal-enginev1/config"
	"signal-enginev1/internal/indicator"
	"signal-enginev1/internal/logger"
)

var (
	envFile  string
	logLevel string

	cfg       *config.Config
	registry  = indicator.NewRegistry()
	logCloser io.Closer

	rootCmd = &cobra.Command{
		Use:           "sigengine",
		Short:         "Streaming technical-analysis signal engine",
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			var err error
			if envFile != "" {
				cfg, err = config.LoadFile(envFile)
				if err != nil {
					return err
				}
			} else {
				cfg = config.Load()
			}
			if logLevel != "" {
				cfg.LogLevel = logLevel
			}
			_, logCloser, err = logger.InitWithFile("sigengine", logger.ParseLevel(cfg.LogLevel), logger.FileOptions{
				Path:       cfg.LogFile,
				MaxSizeMB:  100,
				MaxBackups: 5,
				MaxAgeDays: 14,
				Compress:   true,
			})
			return err
		},
		PersistentPostRun: func(cmd *cobra.Command, args []string) {
			if logCloser != nil {
				logCloser.Close()
			}
		},
	}
)

func init() {
	rootCmd.PersistentFlags().StringVar(&envFile, "env", "", "env file to load instead of ./.env")
	rootCmd.PersistentFlags().StringVar(&logLevel, "log-level", "", "debug|info|warn|error (overrides LOG_LEVEL)")

	rootCmd.AddCommand(validateCmd, backtestCmd, serveCmd, gatewayCmd, importCmd, publishCmd, presetCmd)
}

// signalContext is cancelled on SIGINT or SIGTERM.
func signalContext() (context.Context, context.CancelFunc) {
	return signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
}

// engineConfigs builds the per-TF indicator configs from cfg. Non-empty
// specs override the configured indicator list and non-empty tfs the
// enabled timeframes.
func engineConfigs(specs, tfs string) ([]indicator.TFIndicatorConfig, error) {
	c := *cfg
	if specs != "" {
		c.Indicators = specs
		c.IndicatorFile = ""
	}
	if tfs != "" {
		c.EnabledTFs = tfs
	}
	tfSpecs, err := c.IndicatorSpecs()
	if err != nil {
		return nil, err
	}
	return config.BuildConfigs(registry, tfSpecs)
}

func main() {
	log.SetFlags(log.LstdFlags | log.Lmicroseconds | log.Lshortfile)
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, "error:", err)
		os.Exit(1)
	}
}
