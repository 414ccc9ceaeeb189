package resample

import (
	"testing"
	"time"

	"signal-enginev1/internal/model"
)

// baseTS is aligned to a 15-minute boundary.
var baseTS = time.Date(2026, 2, 25, 9, 15, 0, 0, time.UTC).Unix()

func makeCandle(token string, unixSec int64, open, high, low, close_, vol int64) model.Candle {
	return model.Candle{
		Token:    token,
		Exchange: "NSE",
		TF:       60,
		TS:       time.Unix(unixSec, 0).UTC(),
		Open:     open,
		High:     high,
		Low:      low,
		Close:    close_,
		Volume:   vol,
	}
}

func TestBuilder_300s_Resampling(t *testing.T) {
	b, err := New([]int{300})
	if err != nil {
		t.Fatal(err)
	}

	// Five 1m candles fill bucket 0; none is emitted yet.
	for i := int64(0); i < 5; i++ {
		if out := b.Add(makeCandle("SBIN", baseTS+i*60, 500+i, 510+i, 490-i, 505+i, 100)); len(out) != 0 {
			t.Fatalf("minute %d: unexpected close %+v", i, out)
		}
	}

	out := b.Add(makeCandle("SBIN", baseTS+300, 600, 610, 590, 605, 100))
	if len(out) != 1 {
		t.Fatalf("expected 1 closed candle, got %d", len(out))
	}
	c := out[0]
	if c.TF != 300 || c.TS.Unix() != baseTS {
		t.Errorf("TF=%d TS=%d, want 300/%d", c.TF, c.TS.Unix(), baseTS)
	}
	if c.Open != 500 || c.High != 514 || c.Low != 486 || c.Close != 509 || c.Volume != 500 {
		t.Errorf("OHLCV = %d/%d/%d/%d/%d, want 500/514/486/509/500", c.Open, c.High, c.Low, c.Close, c.Volume)
	}
}

func TestBuilder_MultipleTFs(t *testing.T) {
	b, _ := New([]int{300, 900})
	closed := map[int]int{}
	for i := int64(0); i < 31; i++ {
		for _, c := range b.Add(makeCandle("SBIN", baseTS+i*60, 1, 1, 1, 1, 1)) {
			closed[c.TF]++
		}
	}
	if closed[300] != 6 || closed[900] != 2 {
		t.Errorf("closed = %v, want 300:6 900:2", closed)
	}

	rest := b.Flush()
	if len(rest) != 2 || rest[0].TF != 300 || rest[1].TF != 900 {
		t.Fatalf("flush = %+v", rest)
	}
	if rest[0].Volume != 1 {
		t.Errorf("forming 300s volume = %d, want 1", rest[0].Volume)
	}
	if len(b.Flush()) != 0 {
		t.Error("second flush should be empty")
	}
}

func TestBuilder_TokenIsolation(t *testing.T) {
	b, _ := New([]int{300})
	b.Add(makeCandle("A", baseTS, 100, 100, 100, 100, 1))
	b.Add(makeCandle("B", baseTS, 200, 200, 200, 200, 1))
	out := b.Add(makeCandle("A", baseTS+300, 101, 101, 101, 101, 1))
	if len(out) != 1 || out[0].Token != "A" || out[0].Close != 100 {
		t.Fatalf("out = %+v", out)
	}
	rest := b.Flush()
	if len(rest) != 2 || rest[0].Token != "A" || rest[1].Token != "B" {
		t.Fatalf("flush = %+v", rest)
	}
}

func TestBuilder_StaleCandleSkipped(t *testing.T) {
	b, _ := New([]int{300})
	stale := 0
	b.OnStale = func(model.Candle, int) { stale++ }

	b.Add(makeCandle("SBIN", baseTS+300, 500, 500, 500, 500, 1))
	if out := b.Add(makeCandle("SBIN", baseTS, 900, 900, 100, 900, 1)); len(out) != 0 {
		t.Fatalf("stale candle closed a bucket: %+v", out)
	}
	if stale != 1 {
		t.Errorf("stale = %d, want 1", stale)
	}
	rest := b.Flush()
	if rest[0].High != 500 {
		t.Errorf("stale candle merged: high=%d", rest[0].High)
	}
}

func TestBuilder_IgnoresIncompatibleTF(t *testing.T) {
	b, _ := New([]int{60, 90, 240, 300})
	c := makeCandle("SBIN", baseTS, 1, 1, 1, 1, 1)
	c.TF = 120
	b.Add(c)
	rest := b.Flush()
	if len(rest) != 1 || rest[0].TF != 240 {
		t.Fatalf("flush = %+v, want only the 240s candle", rest)
	}
}

func TestNew_InvalidTF(t *testing.T) {
	if _, err := New([]int{60, 0}); err == nil {
		t.Fatal("expected error for TF=0")
	}
}
