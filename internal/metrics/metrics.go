// Package metrics exposes Prometheus metrics and a health endpoint for the signal engine.
package metrics

import (
	"context"
	"database/sql"
	"encoding/json"
	"log"
	"net/http"
	"strconv"
	"sync"
	"time"

	goredis "github.com/go-redis/redis/v8"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"signal-enginev1/internal/core"
)

// Metrics holds all Prometheus metrics for the signal engine.
type Metrics struct {
	CandlesTotal *prometheus.CounterVec // labels: tf

	// Indicator steps
	StepsTotal   *prometheus.CounterVec   // labels: indicator
	StepDur      *prometheus.HistogramVec // labels: indicator
	SignalsTotal *prometheus.CounterVec   // labels: indicator, polarity=buy|sell
	ShapeErrors  *prometheus.CounterVec   // labels: indicator
	ConfigErrors prometheus.Counter

	// Sinks
	RedisWriteDur   prometheus.Histogram
	SQLiteCommitDur prometheus.Histogram
	SinkErrors      *prometheus.CounterVec // labels: sink

	// WebSocket fan-out
	WSClients      prometheus.Gauge
	BroadcastDrops prometheus.Counter
}

// NewMetrics creates all metrics and registers them with reg.
// Pass prometheus.DefaultRegisterer to expose them on the default /metrics handler.
func NewMetrics(reg prometheus.Registerer) *Metrics {
	m := &Metrics{
		CandlesTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "sigengine_candles_total",
			Help: "Candles fed into the indicator engine (by timeframe)",
		}, []string{"tf"}),

		StepsTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "sigengine_indicator_steps_total",
			Help: "Indicator steps computed",
		}, []string{"indicator"}),
		StepDur: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "sigengine_indicator_step_duration_seconds",
			Help:    "Indicator step latency",
			Buckets: []float64{0.000001, 0.000005, 0.00001, 0.00005, 0.0001, 0.0005, 0.001},
		}, []string{"indicator"}),
		SignalsTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "sigengine_signals_total",
			Help: "Non-none signals emitted (by indicator and polarity)",
		}, []string{"indicator", "polarity"}),
		ShapeErrors: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "sigengine_shape_errors_total",
			Help: "Step results that did not match the indicator's declared size",
		}, []string{"indicator"}),
		ConfigErrors: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "sigengine_config_errors_total",
			Help: "Rejected indicator specs or field updates",
		}),

		RedisWriteDur: prometheus.NewHistogram(prometheus.HistogramOpts{
			Name:    "sigengine_redis_write_duration_seconds",
			Help:    "Redis signal batch write latency",
			Buckets: prometheus.DefBuckets,
		}),
		SQLiteCommitDur: prometheus.NewHistogram(prometheus.HistogramOpts{
			Name:    "sigengine_sqlite_commit_duration_seconds",
			Help:    "SQLite signal journal commit latency",
			Buckets: prometheus.DefBuckets,
		}),
		SinkErrors: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "sigengine_sink_errors_total",
			Help: "Failed signal batch writes (by sink)",
		}, []string{"sink"}),

		WSClients: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "sigengine_ws_clients",
			Help: "Connected WebSocket clients",
		}),
		BroadcastDrops: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "sigengine_broadcast_drops_total",
			Help: "Messages dropped for slow WebSocket clients",
		}),
	}

	reg.MustRegister(
		m.CandlesTotal,
		m.StepsTotal,
		m.StepDur,
		m.SignalsTotal,
		m.ShapeErrors,
		m.ConfigErrors,
		m.RedisWriteDur,
		m.SQLiteCommitDur,
		m.SinkErrors,
		m.WSClients,
		m.BroadcastDrops,
	)

	return m
}

// ObserveCandle counts one candle entering the engine.
func (m *Metrics) ObserveCandle(tf int) {
	m.CandlesTotal.WithLabelValues(strconv.Itoa(tf)).Inc()
}

// ObserveStep records one indicator step and the signals it raised.
func (m *Metrics) ObserveStep(label string, d time.Duration, signals []core.Action) {
	m.StepsTotal.WithLabelValues(label).Inc()
	m.StepDur.WithLabelValues(label).Observe(d.Seconds())
	for _, s := range signals {
		switch {
		case s.IsBuy():
			m.SignalsTotal.WithLabelValues(label, "buy").Inc()
		case s.IsSell():
			m.SignalsTotal.WithLabelValues(label, "sell").Inc()
		}
	}
}

// ObserveShapeError counts a result that broke its declared shape.
func (m *Metrics) ObserveShapeError(label string) {
	m.ShapeErrors.WithLabelValues(label).Inc()
}

// HealthStatus represents the system health.
type HealthStatus struct {
	mu sync.RWMutex

	EngineOK       bool      `json:"engine_ok"`
	LastCandleTime time.Time `json:"last_candle_time"`
	RedisEnabled   bool      `json:"redis_enabled"`
	RedisConnected bool      `json:"redis_connected"`
	SQLiteOK       bool      `json:"sqlite_ok"`
	Indicators     []string  `json:"indicators"`

	// Liveness probe results
	RedisLatencyMs  float64   `json:"redis_latency_ms"`
	SQLiteLatencyMs float64   `json:"sqlite_latency_ms"`
	LastCheckAt     time.Time `json:"last_check_at"`
	StartedAt       time.Time `json:"started_at"`
}

// NewHealthStatus returns a default health status.
func NewHealthStatus() *HealthStatus {
	return &HealthStatus{
		StartedAt: time.Now(),
	}
}

func (h *HealthStatus) SetEngineOK(v bool) {
	h.mu.Lock()
	h.EngineOK = v
	h.mu.Unlock()
}

func (h *HealthStatus) SetLastCandleTime(t time.Time) {
	h.mu.Lock()
	h.LastCandleTime = t
	h.mu.Unlock()
}

func (h *HealthStatus) SetRedisEnabled(v bool) {
	h.mu.Lock()
	h.RedisEnabled = v
	h.mu.Unlock()
}

func (h *HealthStatus) SetSQLiteOK(v bool) {
	h.mu.Lock()
	h.SQLiteOK = v
	h.mu.Unlock()
}

func (h *HealthStatus) SetIndicators(labels []string) {
	h.mu.Lock()
	h.Indicators = labels
	h.mu.Unlock()
}

// CheckRedis pings Redis and records latency + connectivity.
func (h *HealthStatus) CheckRedis(ctx context.Context, rdb *goredis.Client) {
	start := time.Now()
	err := rdb.Ping(ctx).Err()
	latency := time.Since(start)

	h.mu.Lock()
	h.RedisConnected = err == nil
	h.RedisLatencyMs = float64(latency.Microseconds()) / 1000.0
	h.LastCheckAt = time.Now()
	h.mu.Unlock()
}

// CheckSQLite pings the database and records latency + health.
func (h *HealthStatus) CheckSQLite(ctx context.Context, db *sql.DB) {
	start := time.Now()
	err := db.PingContext(ctx)
	latency := time.Since(start)

	h.mu.Lock()
	h.SQLiteOK = err == nil
	h.SQLiteLatencyMs = float64(latency.Microseconds()) / 1000.0
	h.LastCheckAt = time.Now()
	h.mu.Unlock()
}

// StartLivenessChecker runs periodic dependency checks. Nil clients are skipped.
func (h *HealthStatus) StartLivenessChecker(ctx context.Context, rdb *goredis.Client, sqlDB *sql.DB, interval time.Duration) {
	go func() {
		ticker := time.NewTicker(interval)
		defer ticker.Stop()
		for {
			select {
			case <-ctx.Done():
				return
			case <-ticker.C:
				probeCtx, cancel := context.WithTimeout(ctx, 3*time.Second)
				if rdb != nil {
					h.CheckRedis(probeCtx, rdb)
				}
				if sqlDB != nil {
					h.CheckSQLite(probeCtx, sqlDB)
				}
				cancel()
			}
		}
	}()
}

// ServeHTTP handles the /healthz endpoint.
func (h *HealthStatus) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	h.mu.RLock()
	defer h.mu.RUnlock()

	overallStatus := "healthy"
	httpCode := http.StatusOK

	redisDown := h.RedisEnabled && !h.RedisConnected
	if !h.EngineOK || !h.SQLiteOK || redisDown {
		overallStatus = "degraded"
		httpCode = http.StatusServiceUnavailable
	}
	if !h.EngineOK {
		overallStatus = "unhealthy"
	}

	candleAge := ""
	if !h.LastCandleTime.IsZero() {
		candleAge = time.Since(h.LastCandleTime).Round(time.Millisecond).String()
	}

	status := struct {
		Status          string   `json:"status"`
		Uptime          string   `json:"uptime"`
		EngineOK        bool     `json:"engine_ok"`
		LastCandleTime  string   `json:"last_candle_time"`
		CandleAge       string   `json:"candle_age"`
		RedisEnabled    bool     `json:"redis_enabled"`
		RedisConnected  bool     `json:"redis_connected"`
		RedisLatencyMs  float64  `json:"redis_latency_ms"`
		SQLiteOK        bool     `json:"sqlite_ok"`
		SQLiteLatencyMs float64  `json:"sqlite_latency_ms"`
		Indicators      []string `json:"indicators"`
		LastCheckAt     string   `json:"last_check_at"`
	}{
		Status:          overallStatus,
		Uptime:          time.Since(h.StartedAt).Round(time.Second).String(),
		EngineOK:        h.EngineOK,
		LastCandleTime:  h.LastCandleTime.Format(time.RFC3339),
		CandleAge:       candleAge,
		RedisEnabled:    h.RedisEnabled,
		RedisConnected:  h.RedisConnected,
		RedisLatencyMs:  h.RedisLatencyMs,
		SQLiteOK:        h.SQLiteOK,
		SQLiteLatencyMs: h.SQLiteLatencyMs,
		Indicators:      h.Indicators,
		LastCheckAt:     h.LastCheckAt.Format(time.RFC3339),
	}

	w.Header().Set("Content-Type", "application/json")
	if httpCode != http.StatusOK {
		w.WriteHeader(httpCode)
	}
	json.NewEncoder(w).Encode(status)
}

// Server runs an HTTP server exposing /metrics and /healthz.
// Extra handlers (e.g. the WebSocket endpoint) can be mounted with Handle.
type Server struct {
	health *HealthStatus
	addr   string
	mux    *http.ServeMux
	srv    *http.Server
}

// NewServer creates a metrics and health server serving metrics from g.
func NewServer(addr string, health *HealthStatus, g prometheus.Gatherer) *Server {
	mux := http.NewServeMux()
	mux.Handle("/metrics", promhttp.HandlerFor(g, promhttp.HandlerOpts{}))
	mux.HandleFunc("/healthz", health.ServeHTTP)

	return &Server{
		health: health,
		addr:   addr,
		mux:    mux,
		srv: &http.Server{
			Addr:              addr,
			Handler:           mux,
			ReadHeaderTimeout: 5 * time.Second,
		},
	}
}

// Handle mounts h on pattern. Call before Start.
func (s *Server) Handle(pattern string, h http.Handler) {
	s.mux.Handle(pattern, h)
}

// Handler returns the server's mux.
func (s *Server) Handler() http.Handler { return s.mux }

// Start launches the HTTP server in a goroutine.
func (s *Server) Start() {
	go func() {
		log.Printf("[metrics] server listening on %s", s.addr)
		if err := s.srv.ListenAndServe(); err != http.ErrServerClosed {
			log.Printf("[metrics] server error: %v", err)
		}
	}()
}

// Stop gracefully shuts down the metrics server.
func (s *Server) Stop(ctx context.Context) {
	s.srv.Shutdown(ctx)
}
