package params

import (
	"math"

	"github.com/guidoenr/beatmeter/internal/analyzer"
	"github.com/guidoenr/beatmeter/internal/tempo"
)

// Parameters is the display state derived from estimates. The renderer reads
// it; only the tick loop writes it.
type Parameters struct {
	Time       float64 `json:"time"`
	Speed      float64 `json:"speed"`
	BPM        float64 `json:"bpm"`
	Pulse      float64 `json:"pulse"`
	Flash      float64 `json:"flash"`
	Level      float64 `json:"level"`
	Hue        float64 `json:"hue"`
	Brightness float64 `json:"brightness"`
	Saturation float64 `json:"saturation"`
	// Beat counts onsets since the last reset; the meter cycles its beat
	// markers with it.
	Beat       int     `json:"beat"`
	Attack     float64 `json:"attack"`
	Release    float64 `json:"release"`
	Palette    string  `json:"palette"`
	Style      string  `json:"style"`
	ColorMode  string  `json:"colorMode"`
	Overridden bool    `json:"overridden"`
}

// Defaults returns calm defaults for an idle meter.
func Defaults() Parameters {
	return Parameters{
		Speed:      1.0,
		BPM:        tempo.DefaultBPM,
		Brightness: 0.6,
		Saturation: 0.8,
		Attack:     0.7,
		Release:    0.25,
		Palette:    "default",
		Style:      "bars",
		ColorMode:  "chromatic",
	}
}

// UpdateTime advances the internal timer based on frame delta.
func (p *Parameters) UpdateTime(delta float64) {
	p.Time += delta * p.Speed
}

// ApplyEstimate folds one tick's estimate and band features into the display
// state. Silence with no beat activity decays toward Defaults.
func (p *Parameters) ApplyEstimate(est tempo.Estimate, feat analyzer.Features, delta float64) {
	p.Overridden = est.Overridden
	if feat.Silent() && est.BeatIntensity == 0 && !est.Overridden {
		p.applySilenceDecay(delta)
		return
	}

	if est.BPM > 0 {
		if p.BPM <= 0 || est.Overridden {
			p.BPM = est.BPM
		} else {
			p.BPM = lerp(p.BPM, est.BPM, 0.2)
		}
	}
	p.Speed = clamp(p.BPM/tempo.DefaultBPM, 0.25, 4)

	if est.BeatIntensity > p.Pulse {
		p.Pulse = lerp(p.Pulse, est.BeatIntensity, p.Attack)
	} else {
		p.Pulse = lerp(p.Pulse, est.BeatIntensity, p.Release)
	}

	if est.Onset {
		p.Beat++
		p.Flash = 1
	} else {
		p.Flash *= math.Pow(0.85, delta*60)
	}

	p.Level = lerp(p.Level, feat.Overall, 0.4)

	// one full hue turn every 16 beats
	p.Hue = math.Mod(p.Hue+delta*p.BPM/60/16+feat.Treble*0.002, 1)

	p.Brightness = clamp(0.45+p.Pulse*0.4+feat.Bass*0.25, 0, 1)
	targetSat := clamp(0.6+p.Pulse*0.3+feat.Mid*0.2, 0, 1)
	if targetSat > p.Saturation {
		p.Saturation = lerp(p.Saturation, targetSat, 0.7)
	} else {
		p.Saturation = lerp(p.Saturation, targetSat, 0.3)
	}
}

// ResetBeat clears the counters tied to estimator state.
func (p *Parameters) ResetBeat() {
	p.Beat = 0
	p.Flash = 0
	p.Pulse = 0
	p.BPM = tempo.DefaultBPM
}

func (p *Parameters) applySilenceDecay(delta float64) {
	decay := math.Pow(0.92, delta*60)

	p.Pulse *= decay
	p.Flash *= decay
	p.Level *= decay
	p.Speed = p.Speed*decay + 1.0*(1-decay)
	p.Brightness = p.Brightness*decay + 0.6*(1-decay)
	p.Saturation = lerp(p.Saturation, 0.8, 0.1)
}

func lerp(current, target, factor float64) float64 {
	return current*(1-factor) + target*factor
}

func clamp(v, minVal, maxVal float64) float64 {
	if v < minVal {
		return minVal
	}
	if v > maxVal {
		return maxVal
	}
	return v
}
