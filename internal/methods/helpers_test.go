package methods

import (
	"math/rand"
	"testing"

	"signal-enginev1/internal/core"
)

// testConst checks that a transform fed a constant keeps returning the same output.
func testConst[I, O comparable](t *testing.T, m core.Method[I, O], input I, output O) {
	t.Helper()
	for i := 0; i < 100; i++ {
		if got := m.Next(input); got != output {
			t.Fatalf("step %d: got %v, want %v", i, got, output)
		}
	}
}

// randomWalk produces a deterministic price-like series.
func randomWalk(n int, seed int64) []float64 {
	r := rand.New(rand.NewSource(seed))
	out := make([]float64, n)
	price := 100.0
	for i := range out {
		price += r.NormFloat64()
		out[i] = price
	}
	return out
}
