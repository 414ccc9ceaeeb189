// Package sigengine wires the indicator engine to its live candle source and
// its signal sinks, and manages their lifecycle.
package sigengine

import (
	"context"
	"errors"
	"log"
	"net/http"
	"os"
	"path/filepath"
	"sync"
	"time"

	goredis "github.com/go-redis/redis/v8"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"

	"signal-enginev1/config"
	"signal-enginev1/internal/gateway"
	"signal-enginev1/internal/indicator"
	"signal-enginev1/internal/metrics"
	"signal-enginev1/internal/model"
	redisstore "signal-enginev1/internal/store/redis"
	sqlitestore "signal-enginev1/internal/store/sqlite"
)

// sink is a named signal writer fed after every processed candle.
type sink struct {
	name string
	w    model.SignalWriter
}

// Service is the top-level orchestrator for the signal engine.
type Service struct {
	cfg *config.Config
	reg *indicator.Registry

	mu     sync.Mutex // guards engine; it is stepped by the process loop and swapped by reloads
	engine *indicator.Engine

	redisReader *redisstore.Reader
	redisWriter *redisstore.Writer
	sqlReader   *sqlitestore.Reader
	sqlWriter   *sqlitestore.Writer
	hub         *gateway.Hub

	promReg *prometheus.Registry
	prom    *metrics.Metrics
	health  *metrics.HealthStatus
	server  *metrics.Server
	gwSrv   *http.Server

	sinks     []sink
	journalCh chan model.SignalResult
	candleCh  chan model.Candle
	streams   []string
}

// New creates a Service. SQLite is required; Redis is connected when
// cfg.RedisEnabled and its failure is fatal.
func New(cfg *config.Config, reg *indicator.Registry, configs []indicator.TFIndicatorConfig) (*Service, error) {
	engine, err := indicator.NewEngine(configs)
	if err != nil {
		return nil, err
	}

	svc := &Service{
		cfg:       cfg,
		reg:       reg,
		engine:    engine,
		promReg:   prometheus.NewRegistry(),
		health:    metrics.NewHealthStatus(),
		hub:       gateway.NewHub(cfg.ReplayBuffer),
		journalCh: make(chan model.SignalResult, 5000),
		candleCh:  make(chan model.Candle, 5000),
	}
	svc.promReg.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))
	svc.prom = metrics.NewMetrics(svc.promReg)
	engine.SetObserver(svc.prom)
	svc.hub.OnClientCount = func(n int) { svc.prom.WSClients.Set(float64(n)) }
	svc.hub.OnDrop = svc.prom.BroadcastDrops.Inc

	// ---- Open SQLite ----
	if dir := filepath.Dir(cfg.SQLitePath); dir != "" {
		os.MkdirAll(dir, 0o755)
	}
	svc.sqlWriter, err = sqlitestore.New(sqlitestore.WriterConfig{DBPath: cfg.SQLitePath})
	if err != nil {
		return nil, err
	}
	svc.sqlWriter.OnCommit(func(d time.Duration) { svc.prom.SQLiteCommitDur.Observe(d.Seconds()) })
	svc.sqlReader, err = sqlitestore.NewReader(cfg.SQLitePath)
	if err != nil {
		svc.sqlWriter.Close()
		return nil, err
	}
	svc.health.SetSQLiteOK(true)

	// ---- Connect to Redis ----
	svc.health.SetRedisEnabled(cfg.RedisEnabled)
	if cfg.RedisEnabled {
		svc.redisReader, err = redisstore.NewReader(redisstore.ReaderConfig{
			Addr:          cfg.RedisAddr,
			Password:      cfg.RedisPassword,
			DB:            cfg.RedisDB,
			ConsumerGroup: cfg.ConsumerGroup,
			ConsumerName:  cfg.ConsumerName,
		})
		if err != nil {
			svc.closeStores()
			return nil, err
		}
		svc.redisWriter, err = redisstore.New(redisstore.WriterConfig{
			Addr:      cfg.RedisAddr,
			Password:  cfg.RedisPassword,
			DB:        cfg.RedisDB,
			LatestTTL: cfg.SignalTTL,
		})
		if err != nil {
			svc.closeStores()
			return nil, err
		}
		svc.redisWriter.OnWrite(func(d time.Duration) { svc.prom.RedisWriteDur.Observe(d.Seconds()) })

		guarded := redisstore.NewGuardedWriter(svc.redisWriter, redisstore.NewCircuitBreaker(5, 10*time.Second), 1000)
		guarded.OnDrop = func() { svc.prom.SinkErrors.WithLabelValues("redis_dropped").Inc() }
		svc.sinks = append(svc.sinks, sink{name: "redis", w: guarded})
	}
	svc.sinks = append(svc.sinks, sink{name: "gateway", w: svc.hub})

	svc.health.SetIndicators(labels(configs))
	return svc, nil
}

// Hub returns the WebSocket hub the service publishes to.
func (svc *Service) Hub() *gateway.Hub { return svc.hub }

// Handler returns the metrics/health/reload mux.
func (svc *Service) Handler() http.Handler {
	if svc.server == nil {
		svc.server = metrics.NewServer(svc.cfg.MetricsAddr, svc.health, svc.promReg)
		svc.server.Handle("/reload", http.HandlerFunc(svc.handleReload))
	}
	return svc.server.Handler()
}

// Run starts all subsystems and blocks until ctx is cancelled.
func (svc *Service) Run(ctx context.Context) error {
	log.Println("[sigengine] starting signal engine...")

	// ---- Discover streams and start consuming ----
	if svc.redisReader != nil {
		if err := svc.startConsumer(ctx); err != nil {
			return err
		}
	}

	var wg sync.WaitGroup
	wg.Add(1)
	go func() { defer wg.Done(); svc.sqlWriter.Run(ctx, svc.journalCh) }()

	// ---- Warm up from SQLite history ----
	svc.warmup(ctx)

	wg.Add(1)
	go func() { defer wg.Done(); svc.processLoop(ctx) }()

	rdb := svc.redisClient()
	if rdb != nil {
		svc.health.CheckRedis(ctx, rdb)
		svc.startConfigSubscriber(ctx)
	}
	svc.health.StartLivenessChecker(ctx, rdb, svc.sqlWriter.DB(), 10*time.Second)

	svc.Handler()
	svc.server.Start()
	svc.startGateway()
	svc.health.SetEngineOK(true)

	log.Printf("[sigengine] all systems running: TFs=%v streams=%d redis=%v",
		tfsOf(svc.currentConfigs()), len(svc.streams), svc.redisReader != nil)

	<-ctx.Done()
	wg.Wait()

	svc.shutdown()
	return nil
}

// warmup replays the last WarmupCandles candles of every instrument.
func (svc *Service) warmup(ctx context.Context) {
	svc.mu.Lock()
	defer svc.mu.Unlock()

	restorer := indicator.NewRestorer(svc.engine.Configs(), svc.cfg.WarmupCandles)
	n := restorer.Backfill(svc.engine, svc.sqlReader, func(results []model.SignalResult) {
		svc.publish(ctx, results)
	})
	if n > 0 {
		log.Printf("[sigengine] warmed up indicators with %d historical candles", n)
	} else {
		log.Println("[sigengine] no history to warm up from")
	}
}

func (svc *Service) startGateway() {
	mux := http.NewServeMux()
	gateway.RegisterRoutes(mux, svc.hub, gateway.RouteConfig{
		Rdb:        svc.redisClient(),
		TFs:        tfsOf(svc.currentConfigs()),
		Indicators: labels(svc.currentConfigs()),
		StartTime:  time.Now(),
	})
	svc.gwSrv = &http.Server{Addr: svc.cfg.GatewayAddr, Handler: mux, ReadHeaderTimeout: 5 * time.Second}
	go func() {
		log.Printf("[sigengine] gateway listening on %s", svc.cfg.GatewayAddr)
		if err := svc.gwSrv.ListenAndServe(); !errors.Is(err, http.ErrServerClosed) {
			log.Printf("[sigengine] gateway server error: %v", err)
		}
	}()
}

func (svc *Service) redisClient() *goredis.Client {
	if svc.redisWriter == nil {
		return nil
	}
	return svc.redisWriter.Client()
}

func (svc *Service) currentConfigs() []indicator.TFIndicatorConfig {
	svc.mu.Lock()
	defer svc.mu.Unlock()
	return svc.engine.Configs()
}

// shutdown stops servers and closes connections.
func (svc *Service) shutdown() {
	log.Println("[sigengine] shutdown signal received")
	shutCtx, cancel := context.WithTimeout(context.Background(), 3*time.Second)
	defer cancel()

	if svc.server != nil {
		svc.server.Stop(shutCtx)
	}
	if svc.gwSrv != nil {
		svc.gwSrv.Shutdown(shutCtx)
	}
	svc.hub.Close()
	svc.closeStores()
	log.Println("[sigengine] shutdown complete.")
}

func (svc *Service) closeStores() {
	for _, s := range svc.sinks {
		if s.name != "gateway" {
			s.w.Close()
		}
	}
	if svc.redisReader != nil {
		svc.redisReader.Close()
	}
	if svc.sqlReader != nil {
		svc.sqlReader.Close()
	}
	if svc.sqlWriter != nil {
		svc.sqlWriter.Close()
	}
}

func labels(configs []indicator.TFIndicatorConfig) []string {
	seen := make(map[string]bool)
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

func tfsOf(configs []indicator.TFIndicatorConfig) []int {
	tfs := make([]int, len(configs))
	for i, c := range configs {
		tfs[i] = c.TF
	}
	return tfs
}
