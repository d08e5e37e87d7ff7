package audio

import (
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/go-audio/wav"
	"github.com/goccmack/godsp"
)

// ErrUnsupportedWav is returned for files go-audio/wav cannot decode to PCM.
var ErrUnsupportedWav = errors.New("audio: unsupported wav file")

const defaultWindow = 4096

// WavConfig controls how a WAV file is played back.
type WavConfig struct {
	Path   string
	Window int
	NoLoop bool
	// Now replaces time.Now; tests drive playback with it.
	Now func() time.Time
}

// WavSource plays a decoded WAV file against the wall clock. Samples returns
// the window that ends at the current playback position.
type WavSource struct {
	name       string
	sampleRate float64
	window     int
	loop       bool
	now        func() time.Time

	mu      sync.Mutex
	pcm     []float32
	running bool
	closed  bool
	offset  time.Duration
	started time.Time
}

// OpenWav decodes the whole file into memory. Playback does not begin until
// Start is called.
func OpenWav(cfg WavConfig) (*WavSource, error) {
	f, err := os.Open(cfg.Path)
	if err != nil {
		return nil, fmt.Errorf("open wav: %w", err)
	}
	defer f.Close()

	pcm, sampleRate, err := decodeWav(f)
	if err != nil {
		return nil, fmt.Errorf("decode %s: %w", cfg.Path, err)
	}

	if cfg.Window <= 0 {
		cfg.Window = defaultWindow
	}
	if cfg.Now == nil {
		cfg.Now = time.Now
	}

	return &WavSource{
		name:       "wav:" + filepath.Base(cfg.Path),
		sampleRate: float64(sampleRate),
		window:     cfg.Window,
		loop:       !cfg.NoLoop,
		now:        cfg.Now,
		pcm:        pcm,
	}, nil
}

// decodeWav mixes every channel down to mono and scales the result so the
// loudest sample sits at full scale.
func decodeWav(r io.ReadSeeker) ([]float32, int, error) {
	d := wav.NewDecoder(r)
	if !d.IsValidFile() {
		return nil, 0, ErrUnsupportedWav
	}
	buf, err := d.FullPCMBuffer()
	if err != nil {
		return nil, 0, fmt.Errorf("%w: %v", ErrUnsupportedWav, err)
	}

	channels := int(d.NumChans)
	bitDepth := int(d.BitDepth)
	if channels <= 0 || bitDepth <= 0 || d.SampleRate == 0 {
		return nil, 0, ErrUnsupportedWav
	}
	if len(buf.Data) < channels {
		return nil, 0, fmt.Errorf("%w: no samples", ErrUnsupportedWav)
	}

	fullScale := float64(int64(1) << (bitDepth - 1))
	mono := make([]float64, len(buf.Data)/channels)
	for i := range mono {
		sum := 0.0
		for ch := 0; ch < channels; ch++ {
			v := float64(buf.Data[i*channels+ch])
			if bitDepth == 8 {
				// 8-bit PCM is unsigned
				v -= 128
			}
			sum += v / fullScale
		}
		mono[i] = sum / float64(channels)
	}

	if peak := godsp.Max(godsp.AbsAll([][]float64{mono})[0]); peak > 0 {
		mono = godsp.DivS(mono, peak)
	}

	pcm := make([]float32, len(mono))
	for i, v := range mono {
		pcm[i] = float32(v)
	}
	return pcm, int(d.SampleRate), nil
}

// Name returns "wav:" plus the file name.
func (w *WavSource) Name() string {
	return w.name
}

// SampleRate returns the file's sample rate.
func (w *WavSource) SampleRate() float64 {
	return w.sampleRate
}

// Duration is the length of one pass through the file.
func (w *WavSource) Duration() time.Duration {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.samplesToDuration(len(w.pcm))
}

// Start begins or resumes playback.
func (w *WavSource) Start() error {
	w.mu.Lock()
	defer w.mu.Unlock()
	if w.closed {
		return ErrDisconnected
	}
	if w.running {
		return nil
	}
	w.running = true
	w.started = w.now()
	return nil
}

// Stop pauses playback at the current position.
func (w *WavSource) Stop() error {
	w.mu.Lock()
	defer w.mu.Unlock()
	if !w.running {
		return nil
	}
	w.offset += w.now().Sub(w.started)
	w.running = false
	return nil
}

// Disconnect drops the decoded samples.
func (w *WavSource) Disconnect() error {
	w.mu.Lock()
	defer w.mu.Unlock()
	w.running = false
	w.closed = true
	w.pcm = nil
	return nil
}

// Position reports how far playback has advanced, ignoring loops.
func (w *WavSource) Position() time.Duration {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.position()
}

// Done reports whether a non-looping source has played to the end.
func (w *WavSource) Done() bool {
	w.mu.Lock()
	defer w.mu.Unlock()
	if w.loop || w.closed {
		return w.closed
	}
	return w.durationToSamples(w.position()) >= len(w.pcm)
}

// Samples returns the window ending at the playback position. A paused or
// finished source returns silence.
func (w *WavSource) Samples() []float32 {
	w.mu.Lock()
	defer w.mu.Unlock()

	out := make([]float32, w.window)
	if !w.running || len(w.pcm) == 0 {
		return out
	}

	n := len(w.pcm)
	end := w.durationToSamples(w.position())
	if !w.loop && end >= n {
		return out
	}
	for i := range out {
		idx := end - w.window + i
		if idx < 0 {
			continue
		}
		if w.loop {
			idx %= n
		}
		out[i] = w.pcm[idx]
	}
	return out
}

func (w *WavSource) position() time.Duration {
	if !w.running {
		return w.offset
	}
	return w.offset + w.now().Sub(w.started)
}

func (w *WavSource) durationToSamples(d time.Duration) int {
	return int(d.Seconds() * w.sampleRate)
}

func (w *WavSource) samplesToDuration(n int) time.Duration {
	if w.sampleRate <= 0 {
		return 0
	}
	return time.Duration(float64(n) / w.sampleRate * float64(time.Second))
}
