package methods

import (
	"errors"
	"testing"

	"gonum.org/v1/gonum/floats"

	"signal-enginev1/internal/core"
)

var (
	scenarioIn      = []float64{1.0, 2.0, 3.0, 2.0, 1.0, 0.5, 2.0, 3.0}
	scenarioHighest = []float64{1.0, 2.0, 3.0, 3.0, 3.0, 2.0, 2.0, 3.0}
	scenarioLowest  = []float64{1.0, 1.0, 1.0, 2.0, 1.0, 0.5, 0.5, 0.5}
	scenarioDelta   = []float64{0.0, 1.0, 2.0, 1.0, 2.0, 1.5, 1.5, 2.5}
)

func TestExtremum_Scenario(t *testing.T) {
	tests := []struct {
		name    string
		factory core.Factory[int, float64, float64]
		want    []float64
	}{
		{"Highest", HighestFactory[float64](), scenarioHighest},
		{"Lowest", LowestFactory[float64](), scenarioLowest},
		{"HighestLowestDelta", HighestLowestDeltaFactory[float64](), scenarioDelta},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			m, err := tt.factory(3, scenarioIn[0])
			if err != nil {
				t.Fatalf("construct: %v", err)
			}
			for i, v := range scenarioIn {
				if got := m.Next(v); got != tt.want[i] {
					t.Errorf("step %d: got %v, want %v", i, got, tt.want[i])
				}
			}
		})
	}
}

func TestExtremum_MatchesBruteForce(t *testing.T) {
	src := randomWalk(300, 42)

	for length := 1; length < 25; length++ {
		h, _ := NewHighest(length, src[0])
		l, _ := NewLowest(length, src[0])
		d, _ := NewHighestLowestDelta(length, src[0])

		for i, x := range src {
			lo := i - length + 1
			if lo < 0 {
				lo = 0
			}
			wantMax := floats.Max(src[lo : i+1])
			wantMin := floats.Min(src[lo : i+1])

			if got := h.Next(x); got != wantMax {
				t.Fatalf("length=%d step=%d: Highest=%v, want %v", length, i, got, wantMax)
			}
			if got := l.Next(x); got != wantMin {
				t.Fatalf("length=%d step=%d: Lowest=%v, want %v", length, i, got, wantMin)
			}
			got := d.Next(x)
			if got != wantMax-wantMin {
				t.Fatalf("length=%d step=%d: Delta=%v, want %v", length, i, got, wantMax-wantMin)
			}
			if got < 0 {
				t.Fatalf("length=%d step=%d: negative delta %v", length, i, got)
			}
		}
	}
}

func TestExtremum_Length1(t *testing.T) {
	src := randomWalk(100, 7)
	h, _ := NewHighest(1, src[0])
	l, _ := NewLowest(1, src[0])
	d, _ := NewHighestLowestDelta(1, src[0])
	for i, x := range src {
		if got := h.Next(x); got != x {
			t.Fatalf("step %d: Highest(1)=%v, want %v", i, got, x)
		}
		if got := l.Next(x); got != x {
			t.Fatalf("step %d: Lowest(1)=%v, want %v", i, got, x)
		}
		if got := d.Next(x); got != 0 {
			t.Fatalf("step %d: HighestLowestDelta(1)=%v, want 0", i, got)
		}
	}
}

func TestExtremum_Const(t *testing.T) {
	for length := 1; length < 30; length++ {
		input := (float64(length) + 56.0) / 16.3251
		h, _ := NewHighest(length, input)
		testConst[float64, float64](t, h, input, input)
		l, _ := NewLowest(length, input)
		testConst[float64, float64](t, l, input, input)
		d, _ := NewHighestLowestDelta(length, input)
		testConst[float64, float64](t, d, input, 0)
	}
}

func TestExtremum_Integer(t *testing.T) {
	paise := []int64{10000, 10200, 10400, 10300, 10100, 9900, 10500}
	want := []int64{10000, 10200, 10400, 10400, 10400, 10300, 10500}
	h, err := NewHighest(3, paise[0])
	if err != nil {
		t.Fatal(err)
	}
	for i, p := range paise {
		if got := h.Next(p); got != want[i] {
			t.Errorf("step %d: got %d, want %d", i, got, want[i])
		}
	}
}

func TestExtremum_InvalidLength(t *testing.T) {
	for _, length := range []int{0, -3} {
		if _, err := NewHighest(length, 1.0); !errors.Is(err, core.ErrInvalidLength) {
			t.Errorf("Highest(%d): expected ErrInvalidLength, got %v", length, err)
		}
		if _, err := NewLowest(length, 1.0); !errors.Is(err, core.ErrInvalidLength) {
			t.Errorf("Lowest(%d): expected ErrInvalidLength, got %v", length, err)
		}
		if _, err := HighestLowestDeltaFactory[float64]()(length, 1.0); !errors.Is(err, core.ErrInvalidLength) {
			t.Errorf("HighestLowestDelta(%d): expected ErrInvalidLength, got %v", length, err)
		}
	}
}
