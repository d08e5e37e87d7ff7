package analyzer

import (
	"math"

	"github.com/mjibson/go-dsp/fft"
	"github.com/mjibson/go-dsp/window"
)

// Analyzer turns a window of mono PCM into a fixed number of linear
// magnitude bins plus coarse band features for display.
type Analyzer struct {
	sampleRate float64
	bins       int
	maxHz      float64

	bassPeak   float64
	midPeak    float64
	treblePeak float64

	size   int
	buffer []float64
	window []float64
	mags   []float64
}

// Config controls Analyzer behavior.
type Config struct {
	SampleRate float64
	// Bins is the number of output magnitude bins.
	Bins int
	// MaxHz is the upper edge of the last bin.
	MaxHz float64
}

// Result is the outcome of one Analyze call. Bins is reused by the next call.
type Result struct {
	Bins     []float64
	Features Features
}

// New creates an Analyzer, filling zero fields with defaults.
func New(cfg Config) *Analyzer {
	if cfg.SampleRate <= 0 {
		cfg.SampleRate = 44_100
	}
	if cfg.Bins <= 0 {
		cfg.Bins = 64
	}
	if cfg.MaxHz <= 0 || cfg.MaxHz > cfg.SampleRate/2 {
		cfg.MaxHz = math.Min(5_000, cfg.SampleRate/2)
	}
	return &Analyzer{
		sampleRate: cfg.SampleRate,
		bins:       cfg.Bins,
		maxHz:      cfg.MaxHz,
		mags:       make([]float64, cfg.Bins),
	}
}

// SampleRate returns the sample rate the analyzer was built for.
func (a *Analyzer) SampleRate() float64 { return a.sampleRate }

// Bins returns the number of output bins.
func (a *Analyzer) Bins() int { return a.bins }

// Analyze windows the most recent samples, runs an FFT and groups the
// magnitudes into equal-width bins from 0 to MaxHz. Magnitudes are scaled so
// a full-scale sine reads close to 1.
func (a *Analyzer) Analyze(samples []float32) Result {
	for i := range a.mags {
		a.mags[i] = 0
	}
	if len(samples) == 0 {
		return Result{Bins: a.mags}
	}

	size := nextPow2(min(len(samples), 4096))
	if size < 256 {
		size = 256
	}
	a.ensureWorkspace(size)

	offset := len(samples) - min(len(samples), size)
	tail := samples[offset:]
	for i := range a.buffer {
		if i < len(tail) {
			a.buffer[i] = float64(tail[i]) * a.window[i]
			continue
		}
		a.buffer[i] = 0
	}

	spectrum := fft.FFTReal(a.buffer)
	scale := 4.0 / float64(size)
	resolution := a.sampleRate / float64(size)

	half := size / 2
	last := min(int(math.Ceil(a.maxHz/resolution)), half)
	binHz := a.maxHz / float64(a.bins)
	counts := make([]int, a.bins)
	for k := 1; k < last; k++ {
		idx := int(float64(k) * resolution / binHz)
		if idx >= a.bins {
			break
		}
		a.mags[idx] += cmag(spectrum[k]) * scale
		counts[idx]++
	}
	for i, n := range counts {
		if n > 0 {
			a.mags[i] /= float64(n)
			continue
		}
		// narrower than one FFT bin: take the nearest one
		k := int(math.Round((float64(i) + 0.5) * binHz / resolution))
		if k >= 1 && k < half {
			a.mags[i] = cmag(spectrum[k]) * scale
		}
	}

	bass := bandEnergy(spectrum, resolution, scale, 20, 250)
	mid := bandEnergy(spectrum, resolution, scale, 250, 2000)
	treble := bandEnergy(spectrum, resolution, scale, 2000, 8000)

	a.bassPeak = envelope(a.bassPeak, bass, 0.9, 0.97)
	a.midPeak = envelope(a.midPeak, mid, 0.9, 0.97)
	a.treblePeak = envelope(a.treblePeak, treble, 0.9, 0.97)

	feat := Features{
		Bass:   relative(bass, a.bassPeak),
		Mid:    relative(mid, a.midPeak),
		Treble: relative(treble, a.treblePeak),
	}
	feat.Overall = (feat.Bass + feat.Mid + feat.Treble) / 3
	return Result{Bins: a.mags, Features: feat}
}

func (a *Analyzer) ensureWorkspace(size int) {
	if a.size == size {
		return
	}
	a.size = size
	a.buffer = make([]float64, size)
	a.window = window.Hann(size)
}

func bandEnergy(spectrum []complex128, resolution, scale, minHz, maxHz float64) float64 {
	lo := int(math.Floor(minHz / resolution))
	hi := int(math.Ceil(maxHz/resolution)) + 1
	if hi > len(spectrum)/2 {
		hi = len(spectrum) / 2
	}
	if lo >= hi {
		return 0
	}
	sum := 0.0
	for _, val := range spectrum[lo:hi] {
		sum += cmag(val) * scale
	}
	return math.Min(1, sum/float64(hi-lo))
}

func cmag(c complex128) float64 {
	return math.Hypot(real(c), imag(c))
}

// envelope follows input up with attack and lets it fall with release.
func envelope(current, input, attack, release float64) float64 {
	if input > current {
		return current*(1-attack) + input*attack
	}
	return current * release
}

// relative expresses value against its running peak.
func relative(value, peak float64) float64 {
	if peak < 1e-4 {
		return 0
	}
	return clampFloat(value/peak, 0, 1)
}

func nextPow2(n int) int {
	if n <= 0 {
		return 1
	}
	n--
	n |= n >> 1
	n |= n >> 2
	n |= n >> 4
	n |= n >> 8
	n |= n >> 16
	return n + 1
}
