package model

import (
	"encoding/json"
	"strconv"
	"time"

	"signal-enginev1/internal/core"
)

// SignalResult is one indicator step for one instrument, ready for publishing.
type SignalResult struct {
	Indicator string        `json:"indicator"` // instance label, e.g. "Example" or "PivotReversalStrategy"
	Token     string        `json:"token"`
	Exchange  string        `json:"exchange"`
	TF        int           `json:"tf"`
	TS        time.Time     `json:"ts"` // candle timestamp that produced this result
	Values    []float64     `json:"values"`
	Signals   []core.Action `json:"signals"`
}

// Key returns "exchange:token".
func (r *SignalResult) Key() string {
	return r.Exchange + ":" + r.Token
}

// StreamKey returns the Redis stream key: "sig:{indicator}:{TF}s:{exchange}:{token}".
func (r *SignalResult) StreamKey() string {
	return "sig:" + r.Indicator + ":" + strconv.Itoa(r.TF) + "s:" + r.Exchange + ":" + r.Token
}

// LatestKey returns the Redis key holding the most recent result.
func (r *SignalResult) LatestKey() string {
	return "sig:" + r.Indicator + ":" + strconv.Itoa(r.TF) + "s:latest:" + r.Exchange + ":" + r.Token
}

// PubSubChannel returns the channel live subscribers listen on.
func (r *SignalResult) PubSubChannel() string {
	return "pub:" + r.StreamKey()
}

// HasSignal reports whether any signal in the result is not None.
func (r *SignalResult) HasSignal() bool {
	for _, s := range r.Signals {
		if !s.IsNone() {
			return true
		}
	}
	return false
}

// JSON returns the JSON-encoded result.
func (r *SignalResult) JSON() []byte {
	b, _ := json.Marshal(r)
	return b
}
