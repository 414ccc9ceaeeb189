package model

import (
	"encoding/json"
	"testing"
	"time"

	"signal-enginev1/internal/core"
)

var _ core.OHLC = Candle{}

func TestCandle_Prices(t *testing.T) {
	c := Candle{Open: 10050, High: 10199, Low: 9901, Close: 10000}
	tests := []struct {
		name string
		got  float64
		want float64
	}{
		{"open", c.GetOpen(), 100.50},
		{"high", c.GetHigh(), 101.99},
		{"low", c.GetLow(), 99.01},
		{"close", c.GetClose(), 100},
	}
	for _, tt := range tests {
		if tt.got != tt.want {
			t.Errorf("%s = %v, want %v", tt.name, tt.got, tt.want)
		}
	}
}

func TestPaise(t *testing.T) {
	tests := []struct {
		rupees float64
		want   int64
	}{
		{100.5, 10050},
		{0.1 + 0.2, 30},
		{99.995, 10000},
		{-1.25, -125},
		{0, 0},
	}
	for _, tt := range tests {
		if got := Paise(tt.rupees); got != tt.want {
			t.Errorf("Paise(%v) = %d, want %d", tt.rupees, got, tt.want)
		}
	}
}

func TestCandle_Keys(t *testing.T) {
	c := Candle{Exchange: "NSE", Token: "99926000", TF: 300}
	if got := c.Key(); got != "NSE:99926000" {
		t.Errorf("Key = %q", got)
	}
	if got := c.StreamKey(); got != "candle:300s:NSE:99926000" {
		t.Errorf("StreamKey = %q", got)
	}
}

func TestSignalResult_Keys(t *testing.T) {
	r := SignalResult{Indicator: "example", Exchange: "NSE", Token: "1", TF: 60}
	if got := r.StreamKey(); got != "sig:example:60s:NSE:1" {
		t.Errorf("StreamKey = %q", got)
	}
	if got := r.LatestKey(); got != "sig:example:60s:latest:NSE:1" {
		t.Errorf("LatestKey = %q", got)
	}
	if got := r.PubSubChannel(); got != "pub:sig:example:60s:NSE:1" {
		t.Errorf("PubSubChannel = %q", got)
	}
}

func TestSignalResult_HasSignal(t *testing.T) {
	r := SignalResult{Signals: []core.Action{core.None, core.None}}
	if r.HasSignal() {
		t.Error("all-none result reports a signal")
	}
	r.Signals[1] = core.Sell(10)
	if !r.HasSignal() {
		t.Error("sell not reported")
	}
}

func TestSignalResult_JSON(t *testing.T) {
	r := SignalResult{
		Indicator: "pivot_reversal",
		Exchange:  "NSE",
		Token:     "1",
		TF:        60,
		TS:        time.Date(2026, 2, 25, 9, 16, 0, 0, time.UTC),
		Values:    []float64{-1},
		Signals:   []core.Action{core.SellAll},
	}
	var raw map[string]interface{}
	if err := json.Unmarshal(r.JSON(), &raw); err != nil {
		t.Fatal(err)
	}
	sigs, ok := raw["signals"].([]interface{})
	if !ok || len(sigs) != 1 || sigs[0].(float64) != -255 {
		t.Errorf("signals = %v, want [-255]", raw["signals"])
	}
	if raw["ts"] != "2026-02-25T09:16:00Z" {
		t.Errorf("ts = %v", raw["ts"])
	}
}
