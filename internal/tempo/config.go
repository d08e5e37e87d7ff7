package tempo

import "time"

const (
	// DefaultBPM is reported whenever there is not enough rhythm to estimate one.
	DefaultBPM = 120

	// MinBPM and MaxBPM bound every detected tempo.
	MinBPM = 60
	MaxBPM = 200

	fluxHistorySize = 100
	bpmHistorySize  = 20
	onsetWindow     = 15 * time.Second

	minIntervalMs    = 300
	maxIntervalMs    = 2000
	bucketWidthMs    = 10
	histogramBuckets = (maxIntervalMs-minIntervalMs)/bucketWidthMs + 1
	histogramDecay   = 0.95
	pruneWeight      = 0.1
	topBuckets       = 5

	minScoredOnsets = 8
	minPairOnsets   = 4
	beatTolerance   = 0.1
)

// Config holds the tunable constants of the estimator. Zero fields take the
// values from DefaultConfig.
type Config struct {
	// OnsetGain scales onset strength into beat intensity.
	OnsetGain float64 `json:"onsetGain"`
	// MinStrength is the onset strength that restarts the intensity envelope.
	MinStrength float64 `json:"minStrength"`
	// FadeFraction of the beat interval over which intensity falls to zero.
	FadeFraction float64 `json:"fadeFraction"`
	// MaxFade caps the fade window.
	MaxFade time.Duration `json:"maxFade"`

	// LowBandFraction is the share of bins averaged on the override path.
	LowBandFraction float64 `json:"lowBandFraction"`
	// LowBandGain scales the low band average into intensity.
	LowBandGain float64 `json:"lowBandGain"`
	// KickBandStart and KickBandEnd delimit the kick drum band as bin fractions.
	KickBandStart float64 `json:"kickBandStart"`
	KickBandEnd   float64 `json:"kickBandEnd"`
	// KickThreshold is the kick band average above which KickBoost applies.
	KickThreshold float64 `json:"kickThreshold"`
	KickBoost     float64 `json:"kickBoost"`
}

// DefaultConfig returns the stock tuning.
func DefaultConfig() Config {
	return Config{
		OnsetGain:       2.0,
		MinStrength:     0.1,
		FadeFraction:    0.3,
		MaxFade:         300 * time.Millisecond,
		LowBandFraction: 0.1,
		LowBandGain:     2.5,
		KickBandStart:   0.02,
		KickBandEnd:     0.05,
		KickThreshold:   0.6,
		KickBoost:       1.5,
	}
}

func (c Config) withDefaults() Config {
	def := DefaultConfig()
	if c.OnsetGain <= 0 {
		c.OnsetGain = def.OnsetGain
	}
	if c.MinStrength <= 0 {
		c.MinStrength = def.MinStrength
	}
	if c.FadeFraction <= 0 {
		c.FadeFraction = def.FadeFraction
	}
	if c.MaxFade <= 0 {
		c.MaxFade = def.MaxFade
	}
	if c.LowBandFraction <= 0 || c.LowBandFraction > 1 {
		c.LowBandFraction = def.LowBandFraction
	}
	if c.LowBandGain <= 0 {
		c.LowBandGain = def.LowBandGain
	}
	if c.KickBandStart < 0 || c.KickBandEnd <= c.KickBandStart || c.KickBandEnd > 1 {
		c.KickBandStart = def.KickBandStart
		c.KickBandEnd = def.KickBandEnd
	}
	if c.KickThreshold <= 0 {
		c.KickThreshold = def.KickThreshold
	}
	if c.KickBoost <= 0 {
		c.KickBoost = def.KickBoost
	}
	return c
}
