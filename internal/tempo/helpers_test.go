package tempo

import (
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

const (
	testBins = 64
	testTick = 10 * time.Millisecond
)

var epoch = time.Date(2024, time.March, 1, 12, 0, 0, 0, time.UTC)

func flatFrame(level float64) []float64 {
	frame := make([]float64, testBins)
	for i := range frame {
		frame[i] = level
	}
	return frame
}

func mustProcess(t *testing.T, est *Estimator, frame []float64, at time.Time, override float64) Estimate {
	t.Helper()
	out, err := est.Process(frame, at, override)
	require.NoError(t, err)
	return out
}

// drivePulses feeds a quiet frame every testTick and a loud frame at every
// multiple of period, for total after start. It returns the final estimate
// and the number of onsets reported.
func drivePulses(t *testing.T, est *Estimator, start time.Time, period, total time.Duration) (Estimate, int) {
	t.Helper()
	var last Estimate
	onsets := 0
	pulseTrain(t, est, start, period, total, func(e Estimate) {
		last = e
		if e.Onset {
			onsets++
		}
	})
	return last, onsets
}

// pulseTrain is drivePulses with every estimate passed to observe.
func pulseTrain(t *testing.T, est *Estimator, start time.Time, period, total time.Duration, observe func(Estimate)) {
	t.Helper()
	quiet, loud := flatFrame(0.1), flatFrame(0.9)
	next := period
	for el := time.Duration(0); el <= total; el += testTick {
		frame := quiet
		for next <= el {
			if next == el {
				frame = loud
			} else {
				observe(mustProcess(t, est, loud, start.Add(next), 0))
			}
			next += period
		}
		observe(mustProcess(t, est, frame, start.Add(el), 0))
	}
}

// prime feeds n quiet frames from start and returns the time of the next tick.
func prime(t *testing.T, est *Estimator, start time.Time, n int) time.Time {
	t.Helper()
	for i := 0; i < n; i++ {
		mustProcess(t, est, flatFrame(0.1), start.Add(time.Duration(i)*testTick), 0)
	}
	return start.Add(time.Duration(n) * testTick)
}
