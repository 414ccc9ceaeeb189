package config

import (
	"fmt"
	"log"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"

	"signal-enginev1/internal/indicator"
)

// Config holds all application configuration loaded from environment variables.
type Config struct {
	// Infrastructure
	RedisEnabled  bool
	RedisAddr     string
	RedisPassword string
	RedisDB       int
	ConsumerGroup string
	ConsumerName  string
	SQLitePath    string
	MetricsAddr   string
	GatewayAddr   string

	// Logging
	LogLevel string
	LogFile  string // empty = stdout only

	// Dynamic Timeframes (comma-separated seconds, e.g. "60,300,900")
	EnabledTFs string

	// Indicators applied to every enabled TF, e.g. "example:price=2;period=3,pivot_reversal".
	// Ignored when IndicatorFile is set.
	Indicators    string
	IndicatorFile string

	WarmupCandles int           // candles per instrument replayed on startup
	SignalTTL     time.Duration // TTL of the redis "latest" keys
	Workers       int           // parallel instruments in backtest mode
	ReplayBuffer  int           // envelopes kept per gateway channel
}

// Load reads configuration from environment variables with sensible defaults.
// A .env file in the working directory is loaded first when present;
// variables already set in the environment win.
func Load() *Config {
	if err := godotenv.Load(); err != nil && !os.IsNotExist(err) {
		log.Printf("[config] WARNING: .env not loaded: %v", err)
	}
	return fromEnv()
}

// LoadFile is Load with an explicit env file, which must exist.
func LoadFile(path string) (*Config, error) {
	if err := godotenv.Load(path); err != nil {
		return nil, fmt.Errorf("load env file %s: %w", path, err)
	}
	return fromEnv(), nil
}

func fromEnv() *Config {
	return &Config{
		RedisEnabled:  getEnv("REDIS_ENABLED", "true") != "false",
		RedisAddr:     getEnv("REDIS_ADDR", "localhost:6379"),
		RedisPassword: getEnv("REDIS_PASSWORD", ""),
		RedisDB:       getEnvInt("REDIS_DB", 0),
		ConsumerGroup: getEnv("CONSUMER_GROUP", "sigengine"),
		ConsumerName:  getEnv("CONSUMER_NAME", "worker-1"),
		SQLitePath:    getEnv("SQLITE_PATH", "data/candles.db"),
		MetricsAddr:   getEnv("METRICS_ADDR", ":9090"),
		GatewayAddr:   getEnv("GATEWAY_ADDR", ":9091"),

		LogLevel: getEnv("LOG_LEVEL", "info"),
		LogFile:  getEnv("LOG_FILE", ""),

		EnabledTFs: getEnv("ENABLED_TFS", "60,300"),

		Indicators:    getEnv("INDICATORS", "example,pivot_reversal"),
		IndicatorFile: getEnv("INDICATOR_FILE", ""),

		WarmupCandles: getEnvInt("WARMUP_CANDLES", 200),
		SignalTTL:     getEnvDuration("SIGNAL_TTL", 24*time.Hour),
		Workers:       getEnvInt("WORKERS", 4),
		ReplayBuffer:  getEnvInt("REPLAY_BUFFER", 500),
	}
}

// ParseTFs parses the EnabledTFs string into a slice of timeframe durations in seconds.
func (c *Config) ParseTFs() []int {
	parts := strings.Split(c.EnabledTFs, ",")
	tfs := make([]int, 0, len(parts))
	for _, p := range parts {
		p = strings.TrimSpace(p)
		if p == "" {
			continue
		}
		n, err := strconv.Atoi(p)
		if err != nil || n <= 0 {
			log.Printf("[config] skipping invalid TF value: %q", p)
			continue
		}
		tfs = append(tfs, n)
	}
	return tfs
}

// TFSpecs is the indicator list of one timeframe.
type TFSpecs struct {
	TF         int              `yaml:"tf"`
	Indicators []indicator.Spec `yaml:"indicators"`
}

// indicatorFile is the YAML layout of INDICATOR_FILE:
//
//	timeframes:
//	  - tf: 60
//	    indicators:
//	      - name: example
//	        label: ex_fast
//	        params: {price: "2.5", period: "3"}
type indicatorFile struct {
	Timeframes []TFSpecs `yaml:"timeframes"`
}

// IndicatorSpecs returns the indicator specs per TF, from IndicatorFile when
// set and otherwise from Indicators applied to every enabled TF.
func (c *Config) IndicatorSpecs() ([]TFSpecs, error) {
	if c.IndicatorFile != "" {
		return LoadIndicatorFile(c.IndicatorFile)
	}
	specs, err := indicator.ParseSpecs(c.Indicators)
	if err != nil {
		return nil, fmt.Errorf("INDICATORS: %w", err)
	}
	tfs := c.ParseTFs()
	if len(tfs) == 0 {
		return nil, fmt.Errorf("ENABLED_TFS %q: no valid timeframes", c.EnabledTFs)
	}
	out := make([]TFSpecs, len(tfs))
	for i, tf := range tfs {
		out[i] = TFSpecs{TF: tf, Indicators: specs}
	}
	return out, nil
}

// LoadIndicatorFile reads a YAML indicator file.
func LoadIndicatorFile(path string) ([]TFSpecs, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read indicator file: %w", err)
	}
	var f indicatorFile
	if err := yaml.Unmarshal(data, &f); err != nil {
		return nil, fmt.Errorf("parse indicator file %s: %w", path, err)
	}
	if len(f.Timeframes) == 0 {
		return nil, fmt.Errorf("indicator file %s: no timeframes", path)
	}
	return f.Timeframes, nil
}

// BuildConfigs turns per-TF specs into engine configs using reg.
func BuildConfigs(reg *indicator.Registry, specs []TFSpecs) ([]indicator.TFIndicatorConfig, error) {
	configs := make([]indicator.TFIndicatorConfig, 0, len(specs))
	for _, s := range specs {
		inds, err := reg.BuildAll(s.Indicators)
		if err != nil {
			return nil, fmt.Errorf("TF=%d: %w", s.TF, err)
		}
		configs = append(configs, indicator.TFIndicatorConfig{TF: s.TF, Indicators: inds})
	}
	if err := indicator.ValidateConfigs(configs); err != nil {
		return nil, err
	}
	return configs, nil
}

func getEnv(key, fallback string) string {
	v := os.Getenv(key)
	if v == "" {
		return fallback
	}
	return v
}

func getEnvInt(key string, fallback int) int {
	v := os.Getenv(key)
	if v == "" {
		return fallback
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		log.Printf("[config] invalid %s=%q, using %d", key, v, fallback)
		return fallback
	}
	return n
}

func getEnvDuration(key string, fallback time.Duration) time.Duration {
	v := os.Getenv(key)
	if v == "" {
		return fallback
	}
	d, err := time.ParseDuration(v)
	if err != nil {
		log.Printf("[config] invalid %s=%q, using %s", key, v, fallback)
		return fallback
	}
	return d
}
