package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"signal-enginev1/internal/indicator"
)

func TestFromEnv_Defaults(t *testing.T) {
	t.Setenv("REDIS_ADDR", "")
	t.Setenv("WARMUP_CANDLES", "")
	t.Setenv("SIGNAL_TTL", "")

	c := fromEnv()
	assert.Equal(t, "localhost:6379", c.RedisAddr)
	assert.Equal(t, 200, c.WarmupCandles)
	assert.Equal(t, 24*time.Hour, c.SignalTTL)
}

func TestFromEnv_Overrides(t *testing.T) {
	t.Setenv("REDIS_DB", "3")
	t.Setenv("SIGNAL_TTL", "90m")
	t.Setenv("WORKERS", "not-a-number")

	c := fromEnv()
	assert.Equal(t, 3, c.RedisDB)
	assert.Equal(t, 90*time.Minute, c.SignalTTL)
	assert.Equal(t, 4, c.Workers, "invalid int falls back")
}

func TestLoadFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "test.env")
	require.NoError(t, os.WriteFile(path, []byte("SQLITE_PATH=/tmp/x.db\nENABLED_TFS=60,900\n"), 0o644))
	t.Setenv("SQLITE_PATH", "")
	t.Setenv("ENABLED_TFS", "")
	os.Unsetenv("SQLITE_PATH")
	os.Unsetenv("ENABLED_TFS")

	c, err := LoadFile(path)
	require.NoError(t, err)
	assert.Equal(t, "/tmp/x.db", c.SQLitePath)
	assert.Equal(t, []int{60, 900}, c.ParseTFs())

	_, err = LoadFile(filepath.Join(t.TempDir(), "missing.env"))
	assert.Error(t, err)
}

func TestParseTFs_SkipsInvalid(t *testing.T) {
	c := &Config{EnabledTFs: "60, abc,-5,,300"}
	assert.Equal(t, []int{60, 300}, c.ParseTFs())
}

func TestIndicatorSpecs_Inline(t *testing.T) {
	c := &Config{EnabledTFs: "60,300", Indicators: "example:price=2.5,pivot_reversal@pr"}
	specs, err := c.IndicatorSpecs()
	require.NoError(t, err)
	require.Len(t, specs, 2)
	assert.Equal(t, 300, specs[1].TF)
	require.Len(t, specs[0].Indicators, 2)
	assert.Equal(t, "2.5", specs[0].Indicators[0].Params["price"])
	assert.Equal(t, "pr", specs[0].Indicators[1].Label)

	_, err = (&Config{EnabledTFs: "x", Indicators: "example"}).IndicatorSpecs()
	assert.Error(t, err)
}

const sampleYAML = `
timeframes:
  - tf: 60
    indicators:
      - name: example
        label: ex_fast
        params:
          price: "2.5"
          period: "3"
      - name: pivot_reversal
  - tf: 300
    indicators:
      - name: pivot_reversal
        params: {left: "2", right: "1"}
`

func TestIndicatorFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "indicators.yaml")
	require.NoError(t, os.WriteFile(path, []byte(sampleYAML), 0o644))

	c := &Config{IndicatorFile: path, Indicators: "ignored"}
	specs, err := c.IndicatorSpecs()
	require.NoError(t, err)
	require.Len(t, specs, 2)
	assert.Equal(t, "ex_fast", specs[0].Indicators[0].Label)

	configs, err := BuildConfigs(indicator.NewRegistry(), specs)
	require.NoError(t, err)
	require.Len(t, configs, 2)
	assert.Equal(t, "ex_fast", configs[0].Indicators[0].Label)
	assert.Equal(t, "pivot_reversal", configs[0].Indicators[1].Label)

	pr, ok := configs[1].Indicators[0].Config.(*indicator.PivotReversalStrategy)
	require.True(t, ok)
	assert.Equal(t, 2, pr.Left)
	assert.Equal(t, 1, pr.Right)
}

func TestIndicatorFile_Errors(t *testing.T) {
	dir := t.TempDir()

	_, err := LoadIndicatorFile(filepath.Join(dir, "missing.yaml"))
	assert.Error(t, err)

	empty := filepath.Join(dir, "empty.yaml")
	require.NoError(t, os.WriteFile(empty, []byte("timeframes: []\n"), 0o644))
	_, err = LoadIndicatorFile(empty)
	assert.Error(t, err)

	bad := filepath.Join(dir, "bad.yaml")
	require.NoError(t, os.WriteFile(bad, []byte("timeframes: [\n"), 0o644))
	_, err = LoadIndicatorFile(bad)
	assert.Error(t, err)

	_, err = BuildConfigs(indicator.NewRegistry(), []TFSpecs{{TF: 60, Indicators: []indicator.Spec{{Name: "nope"}}}})
	assert.Error(t, err)
}
