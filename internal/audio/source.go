package audio

import "errors"

// ErrNoDevice is returned when no usable input device exists.
var ErrNoDevice = errors.New("audio: no suitable input device")

// ErrDisconnected is returned when a disconnected source is started again.
var ErrDisconnected = errors.New("audio: source disconnected")

// Source is anything that can feed mono PCM to the analysis loop.
//
// Start begins (or resumes) delivery, Stop pauses it while keeping the
// underlying resource, Disconnect releases the resource for good. Samples
// returns the most recent window in chronological order; a stopped source
// returns silence.
type Source interface {
	Name() string
	SampleRate() float64
	Start() error
	Stop() error
	Disconnect() error
	Samples() []float32
}
