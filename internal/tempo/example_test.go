package tempo_test

import (
	"fmt"
	"time"

	"github.com/guidoenr/beatmeter/internal/tempo"
)

func Example() {
	est := tempo.New(tempo.DefaultConfig())
	quiet := make([]float64, 32)
	loud := make([]float64, 32)
	for i := range loud {
		loud[i] = 0.8
	}

	start := time.Unix(0, 0)
	var out tempo.Estimate
	for ms := 0; ms <= 10000; ms += 10 {
		frame := quiet
		if ms > 0 && ms%500 == 0 {
			frame = loud
		}
		out, _ = est.Process(frame, start.Add(time.Duration(ms)*time.Millisecond), 0)
	}
	fmt.Printf("%.0f BPM\n", out.BPM)

	out, _ = est.Process(quiet, start.Add(10010*time.Millisecond), 128)
	fmt.Printf("%.0f BPM overridden=%v\n", out.BPM, out.Overridden)
	// Output:
	// 120 BPM
	// 128 BPM overridden=true
}
