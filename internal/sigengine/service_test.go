package sigengine

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"signal-enginev1/config"
	"signal-enginev1/internal/indicator"
	"signal-enginev1/internal/model"
	sqlitestore "signal-enginev1/internal/store/sqlite"
)

var t0 = time.Date(2026, 2, 25, 9, 15, 0, 0, time.UTC)

func testConfig(t *testing.T) *config.Config {
	t.Helper()
	return &config.Config{
		SQLitePath:    filepath.Join(t.TempDir(), "sig.db"),
		MetricsAddr:   "127.0.0.1:0",
		GatewayAddr:   "127.0.0.1:0",
		EnabledTFs:    "60",
		Indicators:    "example,pivot_reversal",
		WarmupCandles: 10,
		ReplayBuffer:  50,
	}
}

func newService(t *testing.T, cfg *config.Config) *Service {
	t.Helper()
	reg := indicator.NewRegistry()
	specs, err := cfg.IndicatorSpecs()
	require.NoError(t, err)
	configs, err := config.BuildConfigs(reg, specs)
	require.NoError(t, err)
	svc, err := New(cfg, reg, configs)
	require.NoError(t, err)
	return svc
}

// closes in paise; the example indicator crosses its default 2.00 threshold.
func candles(token string, closes ...int64) []model.Candle {
	out := make([]model.Candle, len(closes))
	for i, c := range closes {
		out[i] = model.Candle{
			Exchange: "NSE", Token: token, TF: 60,
			TS:   t0.Add(time.Duration(i) * time.Minute),
			Open: c, High: c + 10, Low: c - 10, Close: c, Volume: 100,
		}
	}
	return out
}

func TestHandle_PublishesToHubAndJournal(t *testing.T) {
	svc := newService(t, testConfig(t))
	defer svc.closeStores()

	ctx := context.Background()
	for _, c := range candles("1", 150, 250, 260) {
		svc.handle(ctx, c)
	}

	latest := svc.Hub().GetLatestAll()
	require.Contains(t, latest, "pub:sig:example:60s:NSE:1")
	require.Contains(t, latest, "pub:sig:pivot_reversal:60s:NSE:1")

	var r model.SignalResult
	require.NoError(t, json.Unmarshal(latest["pub:sig:example:60s:NSE:1"], &r))
	assert.True(t, r.Signals[0].IsBuy(), "crossover held by the persisted signal")
	assert.Equal(t, 2.6, r.Values[0])

	// 3 candles x 2 indicators queued for the journal
	assert.Len(t, svc.journalCh, 6)
}

func TestReload(t *testing.T) {
	svc := newService(t, testConfig(t))
	defer svc.closeStores()
	for _, c := range candles("1", 150, 250) {
		svc.handle(context.Background(), c)
	}
	h := svc.Handler()

	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodPost, "/reload", strings.NewReader("example,example@ex3:price=3")))
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	var body struct {
		Preserved int `json:"preserved"`
		Created   int `json:"created"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	assert.Equal(t, 1, body.Preserved)
	assert.Equal(t, 1, body.Created)
	assert.Equal(t, []string{"example", "ex3"}, labels(svc.currentConfigs()))

	rec = httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodPost, "/reload", strings.NewReader("example:price=-1")))
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Len(t, svc.currentConfigs()[0].Indicators, 2, "invalid reload leaves the engine untouched")

	rec = httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/reload", nil))
	assert.Equal(t, http.StatusMethodNotAllowed, rec.Code)
}

func TestRun_WarmupAndJournal(t *testing.T) {
	cfg := testConfig(t)

	// Seed history before the service opens the database.
	w, err := sqlitestore.New(sqlitestore.WriterConfig{DBPath: cfg.SQLitePath})
	require.NoError(t, err)
	require.NoError(t, w.WriteCandles(candles("7", 150, 250, 260, 270)))
	require.NoError(t, w.Close())

	svc := newService(t, cfg)
	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- svc.Run(ctx) }()

	require.Eventually(t, func() bool {
		_, ok := svc.Hub().GetLatestAll()["pub:sig:example:60s:NSE:7"]
		return ok
	}, 3*time.Second, 10*time.Millisecond, "warmup should publish to the hub")

	svc.candleCh <- candles("8", 150)[0]
	require.Eventually(t, func() bool {
		_, ok := svc.Hub().GetLatestAll()["pub:sig:example:60s:NSE:8"]
		return ok
	}, 3*time.Second, 10*time.Millisecond, "live candle should be processed")

	require.Eventually(t, func() bool {
		res, err := svc.sqlReader.ReadSignals("example", "NSE", "7", 60, 0)
		return err == nil && len(res) == 4
	}, 3*time.Second, 20*time.Millisecond, "warmup results should be journaled")

	cancel()
	select {
	case err := <-done:
		require.NoError(t, err)
	case <-time.After(5 * time.Second):
		t.Fatal("Run did not return after cancel")
	}
}
