package analyzer

// Features describes the coarse spectral energy distribution of a window,
// each band relative to its own recent peak.
type Features struct {
	Bass    float64 `json:"bass"`
	Mid     float64 `json:"mid"`
	Treble  float64 `json:"treble"`
	Overall float64 `json:"overall"`
}

// GateFeatures applies a simple noise floor so weak signals are ignored.
func GateFeatures(f Features, floor float64) Features {
	if floor <= 0 {
		return f
	}
	if floor >= 1 {
		return Features{}
	}
	gate := func(v float64) float64 {
		if v <= floor {
			return 0
		}
		return clampFloat((v-floor)/(1.0-floor), 0, 1)
	}

	f.Bass = gate(f.Bass)
	f.Mid = gate(f.Mid)
	f.Treble = gate(f.Treble)
	f.Overall = (f.Bass + f.Mid + f.Treble) / 3
	return f
}

// Silent reports whether every band is zero.
func (f Features) Silent() bool {
	return f.Bass == 0 && f.Mid == 0 && f.Treble == 0
}

func clampFloat(v, minVal, maxVal float64) float64 {
	if v < minVal {
		return minVal
	}
	if v > maxVal {
		return maxVal
	}
	return v
}
