package audio

import (
	"fmt"
	"math"
	"math/rand"
	"sync"
	"time"
)

// SyntheticConfig describes a generated kick pattern.
type SyntheticConfig struct {
	BPM        float64
	SampleRate float64
	Window     int
	Noise      float64
	Seed       int64
	Now        func() time.Time
}

// Synthetic is a Source that renders a decaying low sine on every beat at a
// fixed tempo, with white noise underneath. It stands in for a microphone
// when -no-audio is set.
type Synthetic struct {
	cfg SyntheticConfig

	mu      sync.Mutex
	rng     *rand.Rand
	running bool
	closed  bool
	offset  time.Duration
	started time.Time
}

const (
	kickHz    = 55.0
	kickDecay = 30.0
	hatDecay  = 180.0
)

// NewSynthetic fills in defaults: 120 BPM, 44.1kHz, 4096-sample window and a
// 0.02 noise floor. A negative Noise turns the noise off.
func NewSynthetic(cfg SyntheticConfig) *Synthetic {
	if cfg.BPM <= 0 {
		cfg.BPM = 120
	}
	if cfg.SampleRate <= 0 {
		cfg.SampleRate = 44100
	}
	if cfg.Window <= 0 {
		cfg.Window = defaultWindow
	}
	if cfg.Noise < 0 {
		cfg.Noise = 0
	} else if cfg.Noise == 0 {
		cfg.Noise = 0.02
	}
	if cfg.Seed == 0 {
		cfg.Seed = time.Now().UnixNano()
	}
	if cfg.Now == nil {
		cfg.Now = time.Now
	}
	return &Synthetic{
		cfg: cfg,
		rng: rand.New(rand.NewSource(cfg.Seed)),
	}
}

// Name includes the generated tempo.
func (s *Synthetic) Name() string {
	return fmt.Sprintf("synthetic:%gbpm", s.cfg.BPM)
}

// SampleRate returns the configured rate.
func (s *Synthetic) SampleRate() float64 {
	return s.cfg.SampleRate
}

// BPM returns the generated tempo.
func (s *Synthetic) BPM() float64 {
	return s.cfg.BPM
}

// Start begins or resumes generation.
func (s *Synthetic) Start() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return ErrDisconnected
	}
	if !s.running {
		s.running = true
		s.started = s.cfg.Now()
	}
	return nil
}

// Stop freezes the pattern position.
func (s *Synthetic) Stop() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.running {
		s.offset += s.cfg.Now().Sub(s.started)
		s.running = false
	}
	return nil
}

// Disconnect makes the generator permanently silent.
func (s *Synthetic) Disconnect() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.running = false
	s.closed = true
	return nil
}

// Samples renders the window ending at the current position.
func (s *Synthetic) Samples() []float32 {
	s.mu.Lock()
	defer s.mu.Unlock()

	out := make([]float32, s.cfg.Window)
	if !s.running {
		return out
	}

	pos := s.offset + s.cfg.Now().Sub(s.started)
	end := int(pos.Seconds() * s.cfg.SampleRate)
	beat := s.cfg.SampleRate * 60 / s.cfg.BPM
	for i := range out {
		idx := end - len(out) + i
		if idx < 0 {
			continue
		}
		out[i] = float32(s.sample(idx, beat))
	}
	return out
}

func (s *Synthetic) sample(idx int, beat float64) float64 {
	phase := math.Mod(float64(idx), beat)
	t := phase / s.cfg.SampleRate
	v := 0.9 * math.Sin(2*math.Pi*kickHz*t) * math.Exp(-t*kickDecay)

	half := math.Mod(float64(idx)+beat/2, beat) / s.cfg.SampleRate
	v += 0.15 * (s.rng.Float64()*2 - 1) * math.Exp(-half*hatDecay)

	v += s.cfg.Noise * (s.rng.Float64()*2 - 1)
	if v > 1 {
		return 1
	}
	if v < -1 {
		return -1
	}
	return v
}
