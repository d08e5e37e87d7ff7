package analyzer

import (
	"math"
	"testing"
)

func sine(freq, amp, sampleRate float64, n int) []float32 {
	out := make([]float32, n)
	for i := range out {
		out[i] = float32(amp * math.Sin(2*math.Pi*freq*float64(i)/sampleRate))
	}
	return out
}

func TestNextPow2(t *testing.T) {
	cases := map[int]int{
		0:   1,
		1:   1,
		2:   2,
		3:   4,
		5:   8,
		16:  16,
		31:  32,
		257: 512,
	}
	for input, want := range cases {
		if got := nextPow2(input); got != want {
			t.Fatalf("nextPow2(%d)=%d want=%d", input, got, want)
		}
	}
}

func TestAnalyzeSilence(t *testing.T) {
	a := New(Config{SampleRate: 44_100, Bins: 32})
	res := a.Analyze(make([]float32, 2048))
	if len(res.Bins) != 32 {
		t.Fatalf("bins=%d want=32", len(res.Bins))
	}
	for i, v := range res.Bins {
		if v != 0 {
			t.Fatalf("bin %d=%f want 0", i, v)
		}
	}
	if !res.Features.Silent() {
		t.Fatalf("expected silent features, got %+v", res.Features)
	}
}

func TestAnalyzeEmptyInput(t *testing.T) {
	a := New(Config{})
	res := a.Analyze(nil)
	if len(res.Bins) != 64 {
		t.Fatalf("bins=%d want=64", len(res.Bins))
	}
}

func TestAnalyzeSinePeaksInItsBin(t *testing.T) {
	a := New(Config{SampleRate: 44_100, Bins: 64, MaxHz: 5_000})
	res := a.Analyze(sine(440, 0.8, 44_100, 4096))

	binHz := 5_000.0 / 64
	want := int(440 / binHz)
	peak := 0
	for i, v := range res.Bins {
		if v > res.Bins[peak] {
			peak = i
		}
	}
	if peak != want {
		t.Fatalf("peak bin=%d want=%d (bins=%v)", peak, want, res.Bins)
	}
	if res.Bins[peak] <= 0.05 || res.Bins[peak] > 1 {
		t.Fatalf("unexpected peak magnitude %f", res.Bins[peak])
	}
	if res.Bins[60] > res.Bins[peak]/100 {
		t.Fatalf("far bin leaks: %f", res.Bins[60])
	}
}

func TestAnalyzeBassFeature(t *testing.T) {
	a := New(Config{SampleRate: 44_100})
	res := a.Analyze(sine(80, 0.9, 44_100, 2048))
	if res.Features.Bass <= res.Features.Treble {
		t.Fatalf("expected bass > treble, got %+v", res.Features)
	}
}

func TestGateFeatures(t *testing.T) {
	f := Features{Bass: 0.6, Mid: 0.1, Treble: 0.3}
	got := GateFeatures(f, 0.2)
	if got.Mid != 0 {
		t.Fatalf("mid should be gated, got %f", got.Mid)
	}
	if math.Abs(got.Bass-0.5) > 1e-9 {
		t.Fatalf("bass=%f want=0.5", got.Bass)
	}
	if GateFeatures(f, 0) != f {
		t.Fatalf("zero floor must be a no-op")
	}
	if !GateFeatures(f, 1).Silent() {
		t.Fatalf("floor of 1 must silence everything")
	}
}
