package audio

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestCaptureMixesStereoIntoRing(t *testing.T) {
	c := &Capture{buffer: make([]float32, 8), channels: 2, running: true}

	c.process([]float32{1, 3, 5, 7})
	assert.Equal(t, []float32{0, 0, 0, 0, 0, 0, 2, 6}, c.Samples())

	c.process([]float32{1, 1, 2, 2, 3, 3, 4, 4, 5, 5, 6, 6, 7, 7})
	assert.Equal(t, []float32{6, 1, 2, 3, 4, 5, 6, 7}, c.Samples())
	assert.Equal(t, 1, c.index)
}

func TestCaptureRingKeepsNewestWhenOverfilled(t *testing.T) {
	c := &Capture{buffer: make([]float32, 4), channels: 1, running: true}
	c.process([]float32{1, 2, 3, 4, 5, 6})
	assert.Equal(t, []float32{3, 4, 5, 6}, c.Samples())
	assert.Zero(t, c.index)
}

func TestCaptureIgnoresInputWhenStopped(t *testing.T) {
	c := &Capture{buffer: make([]float32, 4), channels: 1}
	c.process([]float32{1, 2})
	assert.Equal(t, []float32{0, 0, 0, 0}, c.Samples())
}

func TestInvalidStreamStateDetection(t *testing.T) {
	assert.False(t, errorsIsInvalidStreamState(nil))
	assert.False(t, errorsIsInvalidStreamState(errors.New("boom")))
	assert.True(t, errorsIsInvalidStreamState(errors.New("PaErrorCode -9986: Stream is stopped")))
}

func TestDeviceString(t *testing.T) {
	d := Device{Name: "Built-in Mic", MaxInput: 2, HostAPI: "Core Audio", DefaultSampleHz: 48000, IsDefaultInput: true}
	assert.Equal(t, "* [Core Audio] Built-in Mic (in:2 out:0 48000Hz)", d.String())
	assert.True(t, d.CanCapture())
	assert.False(t, Device{}.CanCapture())
}
