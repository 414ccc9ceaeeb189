package indicator

import (
	"context"
	"errors"
	"math/rand"
	"reflect"
	"testing"
	"time"

	"signal-enginev1/internal/core"
	"signal-enginev1/internal/model"
)

var t0 = time.Date(2026, 1, 5, 9, 15, 0, 0, time.UTC)

func makeCandle(token string, tf int, i int, closePaise int64) model.Candle {
	return model.Candle{
		Token:    token,
		Exchange: "NSE",
		TF:       tf,
		TS:       t0.Add(time.Duration(i*tf) * time.Second),
		Open:     closePaise,
		High:     closePaise + 100,
		Low:      closePaise - 100,
		Close:    closePaise,
		Volume:   100,
	}
}

func walkCandles(token string, tf, n int, seed int64) []model.Candle {
	r := rand.New(rand.NewSource(seed))
	out := make([]model.Candle, n)
	price := int64(20000)
	for i := range out {
		price += int64(r.Intn(201) - 100)
		out[i] = makeCandle(token, tf, i, price)
	}
	return out
}

func mustBuild(t *testing.T, specs string) []Configured {
	t.Helper()
	parsed, err := ParseSpecs(specs)
	if err != nil {
		t.Fatalf("ParseSpecs(%q): %v", specs, err)
	}
	cfgs, err := NewRegistry().BuildAll(parsed)
	if err != nil {
		t.Fatalf("BuildAll(%q): %v", specs, err)
	}
	return cfgs
}

func mustEngine(t *testing.T, configs []TFIndicatorConfig) *Engine {
	t.Helper()
	e, err := NewEngine(configs)
	if err != nil {
		t.Fatalf("NewEngine: %v", err)
	}
	return e
}

func TestEngine_ExampleCrossover(t *testing.T) {
	engine := mustEngine(t, []TFIndicatorConfig{
		{TF: 60, Indicators: mustBuild(t, "example")},
	})

	// close in paise: 1.00 rupee seeds below the 2.00 threshold
	closes := []int64{100, 300, 300, 300, 300, 300, 100}
	want := []core.Action{core.None, core.BuyAll, core.BuyAll, core.BuyAll, core.BuyAll, core.None, core.SellAll}

	for i, cl := range closes {
		results, err := engine.Process(makeCandle("SBIN", 60, i, cl))
		if err != nil {
			t.Fatalf("candle %d: %v", i, err)
		}
		if len(results) != 1 {
			t.Fatalf("candle %d: expected 1 result, got %d", i, len(results))
		}
		r := results[0]
		if r.Indicator != "example" {
			t.Errorf("candle %d: indicator=%s", i, r.Indicator)
		}
		if r.Values[0] != float64(cl)/100 {
			t.Errorf("candle %d: value=%v", i, r.Values[0])
		}
		if r.Signals[0] != want[i] {
			t.Errorf("candle %d: held=%v, want %v", i, r.Signals[0], want[i])
		}
	}
}

func TestEngine_MultiIndicator(t *testing.T) {
	engine := mustEngine(t, []TFIndicatorConfig{
		{TF: 60, Indicators: mustBuild(t, "example,pivot_reversal,example@fast:period=1")},
	})

	for i, c := range walkCandles("A", 60, 20, 1) {
		results, err := engine.Process(c)
		if err != nil {
			t.Fatalf("candle %d: %v", i, err)
		}
		if len(results) != 3 {
			t.Fatalf("candle %d: expected 3 results, got %d", i, len(results))
		}
		if len(results[1].Values) != 1 || len(results[1].Signals) != 1 {
			t.Fatalf("candle %d: pivot_reversal shape %d/%d", i, len(results[1].Values), len(results[1].Signals))
		}
	}
}

func TestEngine_MultiTF(t *testing.T) {
	engine := mustEngine(t, []TFIndicatorConfig{
		{TF: 60, Indicators: mustBuild(t, "example")},
		{TF: 300, Indicators: mustBuild(t, "pivot_reversal")},
	})

	results60, _ := engine.Process(makeCandle("X", 60, 0, 5000))
	if len(results60) != 1 || results60[0].TF != 60 || results60[0].Indicator != "example" {
		t.Fatalf("TF=60 results: %+v", results60)
	}

	results300, _ := engine.Process(makeCandle("X", 300, 0, 5000))
	if len(results300) != 1 || results300[0].TF != 300 || results300[0].Indicator != "pivot_reversal" {
		t.Fatalf("TF=300 results: %+v", results300)
	}

	resultsNone, err := engine.Process(makeCandle("X", 900, 0, 5000))
	if err != nil || len(resultsNone) != 0 {
		t.Errorf("expected no results for unconfigured TF=900, got %d (err=%v)", len(resultsNone), err)
	}
}

func TestEngine_TokensAreIndependent(t *testing.T) {
	configs := []TFIndicatorConfig{{TF: 60, Indicators: mustBuild(t, "example,pivot_reversal")}}
	a := walkCandles("A", 60, 200, 7)
	b := walkCandles("B", 60, 200, 8)

	solo := mustEngine(t, configs)
	var want [][]model.SignalResult
	for _, c := range a {
		r, _ := solo.Process(c)
		want = append(want, r)
	}

	mixed := mustEngine(t, configs)
	for i := range a {
		got, _ := mixed.Process(a[i])
		if _, err := mixed.Process(b[i]); err != nil {
			t.Fatal(err)
		}
		if !reflect.DeepEqual(got, want[i]) {
			t.Fatalf("candle %d: interleaving changed results:\n got %+v\nwant %+v", i, got, want[i])
		}
	}
	if mixed.Tokens(60) != 2 {
		t.Errorf("Tokens(60)=%d, want 2", mixed.Tokens(60))
	}
}

func TestEngine_ReplayIsDeterministic(t *testing.T) {
	configs := []TFIndicatorConfig{{TF: 60, Indicators: mustBuild(t, "example:price=200,pivot_reversal:left=2;right=2")}}
	candles := walkCandles("D", 60, 1000, 42)

	run := func() []model.SignalResult {
		e := mustEngine(t, configs)
		var out []model.SignalResult
		for _, c := range candles {
			r, err := e.Process(c)
			if err != nil {
				t.Fatal(err)
			}
			out = append(out, r...)
		}
		return out
	}

	first, second := run(), run()
	if !reflect.DeepEqual(first, second) {
		t.Fatal("two replays of the same candles diverged")
	}
}

type badShape struct{ Example }

func (b *badShape) Init(seed core.OHLC) (core.IndicatorInstance, error) {
	inst, err := b.Example.Init(seed)
	if err != nil {
		return nil, err
	}
	return &badShapeInstance{inst}, nil
}

type badShapeInstance struct{ core.IndicatorInstance }

func (b *badShapeInstance) Step(c core.OHLC) core.IndicatorResult {
	r := b.IndicatorInstance.Step(c)
	return core.NewIndicatorResult(r.Values(), r.Signals()[:1])
}

type countingObserver struct {
	steps, shapeErrors int
}

func (o *countingObserver) ObserveStep(string, time.Duration, []core.Action) { o.steps++ }
func (o *countingObserver) ObserveShapeError(string)                         { o.shapeErrors++ }

type recordingConfig struct {
	Example
	bars *[]core.OHLC
}

func (r *recordingConfig) Init(seed core.OHLC) (core.IndicatorInstance, error) {
	*r.bars = append(*r.bars, seed)
	inst, err := r.Example.Init(seed)
	if err != nil {
		return nil, err
	}
	return &recordingInstance{inst, r.bars}, nil
}

type recordingInstance struct {
	core.IndicatorInstance
	bars *[]core.OHLC
}

func (r *recordingInstance) Step(c core.OHLC) core.IndicatorResult {
	*r.bars = append(*r.bars, c)
	return r.IndicatorInstance.Step(c)
}

func TestEngine_InstancesSeeConvertedBars(t *testing.T) {
	var bars []core.OHLC
	engine := mustEngine(t, []TFIndicatorConfig{{TF: 60, Indicators: []Configured{
		{Label: "rec", Config: &recordingConfig{Example: *NewExample(), bars: &bars}},
	}}})

	c := model.Candle{Token: "S", Exchange: "NSE", TF: 60, TS: t0, Open: 10050, High: 10199, Low: 9901, Close: 10000}
	if _, err := engine.Process(c); err != nil {
		t.Fatalf("Process: %v", err)
	}
	c.TS = c.TS.Add(time.Minute)
	c.Close = 10125
	if _, err := engine.Process(c); err != nil {
		t.Fatalf("Process: %v", err)
	}

	want := []core.OHLC{
		core.Candle{Open: 100.5, High: 101.99, Low: 99.01, Close: 100},    // seed
		core.Candle{Open: 100.5, High: 101.99, Low: 99.01, Close: 100},    // first step
		core.Candle{Open: 100.5, High: 101.99, Low: 99.01, Close: 101.25}, // second step
	}
	if !reflect.DeepEqual(bars, want) {
		t.Fatalf("bars=%+v, want %+v", bars, want)
	}
}

func TestEngine_ShapeMismatch(t *testing.T) {
	engine := mustEngine(t, []TFIndicatorConfig{{TF: 60, Indicators: []Configured{
		{Label: "bad", Config: &badShape{*NewExample()}},
		{Label: "good", Config: NewExample()},
	}}})
	obs := &countingObserver{}
	engine.SetObserver(obs)

	results, err := engine.Process(makeCandle("S", 60, 0, 100))
	if !errors.Is(err, core.ErrShapeMismatch) {
		t.Fatalf("err=%v, want ErrShapeMismatch", err)
	}
	if len(results) != 1 || results[0].Indicator != "good" {
		t.Fatalf("results=%+v, want only the good indicator", results)
	}
	if obs.steps != 1 || obs.shapeErrors != 1 {
		t.Fatalf("observer steps=%d shapeErrors=%d", obs.steps, obs.shapeErrors)
	}
}

func TestNewEngine_RejectsBadConfigs(t *testing.T) {
	tests := []struct {
		name    string
		configs []TFIndicatorConfig
	}{
		{"zero TF", []TFIndicatorConfig{{TF: 0}}},
		{"duplicate TF", []TFIndicatorConfig{{TF: 60}, {TF: 60}}},
		{"duplicate label", []TFIndicatorConfig{{TF: 60, Indicators: mustBuild(t, "example,example")}}},
		{"invalid params", []TFIndicatorConfig{{TF: 60, Indicators: []Configured{{Label: "x", Config: &Example{Price: -1, Period: 3}}}}}},
		{"nil config", []TFIndicatorConfig{{TF: 60, Indicators: []Configured{{Label: "x"}}}}},
		{"colon in label", []TFIndicatorConfig{{TF: 60, Indicators: []Configured{{Label: "a:b", Config: NewExample()}}}}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if _, err := NewEngine(tt.configs); err == nil {
				t.Fatal("expected error")
			}
		})
	}
}

func TestEngine_Run(t *testing.T) {
	engine := mustEngine(t, []TFIndicatorConfig{{TF: 60, Indicators: mustBuild(t, "example,pivot_reversal")}})

	in := make(chan model.Candle, 10)
	out := make(chan model.SignalResult, 100)
	for _, c := range walkCandles("R", 60, 10, 3) {
		in <- c
	}
	close(in)

	engine.Run(context.Background(), in, out)
	close(out)

	n := 0
	for range out {
		n++
	}
	if n != 20 {
		t.Fatalf("expected 20 results, got %d", n)
	}
}

func TestEngine_RunStopsOnCancel(t *testing.T) {
	engine := mustEngine(t, []TFIndicatorConfig{{TF: 60, Indicators: mustBuild(t, "example")}})
	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	go func() {
		engine.Run(ctx, make(chan model.Candle), make(chan model.SignalResult))
		close(done)
	}()
	cancel()
	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Fatal("Run did not return after cancel")
	}
}
