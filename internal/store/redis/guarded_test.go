package redis

import (
	"context"
	"errors"
	"testing"
	"time"

	"signal-enginev1/internal/model"
)

type flakySink struct {
	fail    bool
	batches [][]model.SignalResult
	closed  bool
}

func (s *flakySink) WriteSignalBatch(_ context.Context, r []model.SignalResult) error {
	if s.fail {
		return errors.New("connection refused")
	}
	s.batches = append(s.batches, r)
	return nil
}

func (s *flakySink) Close() error { s.closed = true; return nil }

func batch(indicator string) []model.SignalResult {
	return []model.SignalResult{{Indicator: indicator, Token: "A", Exchange: "NSE", TF: 60}}
}

func TestGuardedWriter_BuffersWhileDown(t *testing.T) {
	sink := &flakySink{fail: true}
	cb, clock := newTestBreaker(2, time.Second)
	g := NewGuardedWriter(sink, cb, 10)
	ctx := context.Background()

	for _, name := range []string{"a", "b", "c"} {
		if err := g.WriteSignalBatch(ctx, batch(name)); err != nil {
			t.Fatalf("write %s: %v", name, err)
		}
	}
	if g.PendingCount() != 3 {
		t.Fatalf("pending=%d, want 3", g.PendingCount())
	}
	if cb.CurrentState() != StateOpen {
		t.Fatalf("breaker=%v, want open", cb.CurrentState())
	}

	sink.fail = false
	clock.advance(time.Second)
	if err := g.WriteSignalBatch(ctx, batch("d")); err != nil {
		t.Fatal(err)
	}
	if g.PendingCount() != 0 {
		t.Fatalf("pending=%d after recovery", g.PendingCount())
	}

	var order []string
	for _, b := range sink.batches {
		order = append(order, b[0].Indicator)
	}
	if len(order) != 4 || order[0] != "a" || order[3] != "d" {
		t.Fatalf("flushed order=%v, want [a b c d]", order)
	}
}

func TestGuardedWriter_DropsOldest(t *testing.T) {
	sink := &flakySink{fail: true}
	cb, _ := newTestBreaker(1, time.Hour)
	g := NewGuardedWriter(sink, cb, 2)
	drops := 0
	g.OnDrop = func() { drops++ }

	for _, name := range []string{"a", "b", "c", "d"} {
		g.WriteSignalBatch(context.Background(), batch(name))
	}
	if g.PendingCount() != 2 || drops != 2 {
		t.Fatalf("pending=%d drops=%d, want 2/2", g.PendingCount(), drops)
	}

	g.Close()
	if !sink.closed || g.PendingCount() != 0 {
		t.Fatal("Close must close the sink and clear the buffer")
	}
}

func TestStreamMaxLen(t *testing.T) {
	tests := map[int]int64{1: 10900, 60: 280, 300: 200, 3600: 200, 0: 200}
	for tf, want := range tests {
		if got := streamMaxLen(tf); got != want {
			t.Errorf("streamMaxLen(%d)=%d, want %d", tf, got, want)
		}
	}
}
