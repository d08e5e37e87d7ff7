// Package tempo estimates tempo and beat intensity from a stream of
// normalized spectrum frames, one frame per display tick.
package tempo

import "time"

// Estimate is the per-tick output of the estimator.
type Estimate struct {
	BPM           float64 `json:"bpm"`
	BeatIntensity float64 `json:"beatIntensity"`
	// Overridden is set when BPM came from the caller-supplied tempo.
	Overridden bool `json:"overridden"`
	// Onset is set when this tick produced an onset event.
	Onset bool `json:"onset"`
}

// Onset is a detected abrupt increase of spectral energy.
type Onset struct {
	At       time.Time
	Strength float64
}

// state is everything Reset clears.
type state struct {
	bins int

	prev    []float64
	scratch []float64
	flux    []float64
	sorted  []float64

	onsets    []time.Time
	lastOnset time.Time
	lastBeat  time.Time

	hist histogram
	bpms []float64
}

func newState() *state {
	return &state{
		flux:   make([]float64, 0, fluxHistorySize),
		sorted: make([]float64, 0, fluxHistorySize),
		bpms:   make([]float64, 0, bpmHistorySize),
	}
}

// Estimator is a single audio session's tempo tracker. It is not safe for
// concurrent use; the caller drives it from one tick loop.
type Estimator struct {
	cfg Config
	st  *state
}

// New creates an Estimator using cfg (zero fields take defaults).
func New(cfg Config) *Estimator {
	return &Estimator{
		cfg: cfg.withDefaults(),
		st:  newState(),
	}
}

// Config returns the effective configuration.
func (e *Estimator) Config() Config {
	return e.cfg
}

// Reset clears all detection state. The next Process call behaves like the
// first call on a fresh Estimator.
func (e *Estimator) Reset() {
	e.st = newState()
}

// Process consumes one normalized frame captured at now. A positive override
// bypasses detection for this tick and is reported verbatim as the BPM.
// The only error is ErrInvalidFrame, in which case no state changes.
func (e *Estimator) Process(frame []float64, now time.Time, override float64) (Estimate, error) {
	st := e.st
	spectrum, err := checkFrame(st.scratch, frame, st.bins)
	if err != nil {
		return Estimate{}, err
	}
	st.scratch = spectrum

	if override > 0 {
		return Estimate{
			BPM:           override,
			BeatIntensity: e.cfg.overrideIntensity(spectrum),
			Overridden:    true,
		}, nil
	}

	st.bins = len(spectrum)
	onset, ok := st.detectOnset(spectrum, now)
	if ok {
		prior := st.onsets[:len(st.onsets)-1]
		st.hist.observe(onset.At, prior)
		// no tempo is recorded until some interval repeats
		if candidates, votes := st.hist.candidates(); len(votes) > 0 {
			st.pushBPM(float64(selectTempo(candidates, votes, st.onsets)))
		}
	}

	bpm := st.smoothedBPM()
	return Estimate{
		BPM:           bpm,
		BeatIntensity: e.cfg.beatIntensity(st, onset, ok, now, bpm),
		Onset:         ok,
	}, nil
}

// BPM returns the current smoothed tempo without processing a frame.
func (e *Estimator) BPM() float64 {
	return e.st.smoothedBPM()
}

// OnsetCount returns the number of onsets inside the trailing window.
func (e *Estimator) OnsetCount() int {
	return len(e.st.onsets)
}
