package audio

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	goaudio "github.com/go-audio/audio"
	"github.com/go-audio/wav"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const testRate = 8000

func writeWav(t *testing.T, channels int, data []int) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "fixture.wav")
	f, err := os.Create(path)
	require.NoError(t, err)
	defer f.Close()

	enc := wav.NewEncoder(f, testRate, 16, channels, 1)
	require.NoError(t, enc.Write(&goaudio.IntBuffer{
		Format:         &goaudio.Format{NumChannels: channels, SampleRate: testRate},
		Data:           data,
		SourceBitDepth: 16,
	}))
	require.NoError(t, enc.Close())
	return path
}

// oneSecond is 0.5s at 1000 followed by 0.5s at -2000.
func oneSecond() []int {
	data := make([]int, testRate)
	for i := range data {
		if i < testRate/2 {
			data[i] = 1000
		} else {
			data[i] = -2000
		}
	}
	return data
}

func openFixture(t *testing.T, cfg WavConfig) (*WavSource, *fakeClock) {
	t.Helper()
	clock := newFakeClock()
	cfg.Path = writeWav(t, 1, oneSecond())
	cfg.Window = 100
	cfg.Now = clock.Now
	src, err := OpenWav(cfg)
	require.NoError(t, err)
	return src, clock
}

func TestOpenWavNormalizesPeak(t *testing.T) {
	src, _ := openFixture(t, WavConfig{})

	assert.Equal(t, "wav:fixture.wav", src.Name())
	assert.Equal(t, float64(testRate), src.SampleRate())
	assert.Equal(t, time.Second, src.Duration())
	require.Len(t, src.pcm, testRate)
	assert.InDelta(t, 0.5, src.pcm[0], 1e-6)
	assert.InDelta(t, -1.0, src.pcm[testRate-1], 1e-6)
}

func TestOpenWavMixesStereo(t *testing.T) {
	data := make([]int, 2*400)
	for i := 0; i < len(data); i += 2 {
		data[i] = 1000
		data[i+1] = 3000
	}
	src, err := OpenWav(WavConfig{Path: writeWav(t, 2, data)})
	require.NoError(t, err)
	require.Len(t, src.pcm, 400)
	assert.InDelta(t, 1.0, src.pcm[10], 1e-6)
}

func TestOpenWavRejectsGarbage(t *testing.T) {
	path := filepath.Join(t.TempDir(), "junk.wav")
	require.NoError(t, os.WriteFile(path, []byte("definitely not a riff file"), 0o644))

	_, err := OpenWav(WavConfig{Path: path})
	require.ErrorIs(t, err, ErrUnsupportedWav)

	_, err = OpenWav(WavConfig{Path: filepath.Join(t.TempDir(), "missing.wav")})
	require.Error(t, err)
}

func TestWavSourceFollowsClock(t *testing.T) {
	src, clock := openFixture(t, WavConfig{})

	assert.Equal(t, make([]float32, 100), src.Samples(), "silent before Start")

	require.NoError(t, src.Start())
	clock.Advance(500 * time.Millisecond)
	window := src.Samples()
	require.Len(t, window, 100)
	assert.InDelta(t, 0.5, window[99], 1e-6)

	clock.Advance(250 * time.Millisecond)
	assert.InDelta(t, -1.0, src.Samples()[0], 1e-6)
}

func TestWavSourceStartsWithLeadingSilence(t *testing.T) {
	src, clock := openFixture(t, WavConfig{})
	require.NoError(t, src.Start())
	clock.Advance(5 * time.Millisecond)

	window := src.Samples()
	assert.Zero(t, window[0])
	assert.InDelta(t, 0.5, window[99], 1e-6)
}

func TestWavSourceLoops(t *testing.T) {
	src, clock := openFixture(t, WavConfig{})
	require.NoError(t, src.Start())
	clock.Advance(1200 * time.Millisecond)

	assert.InDelta(t, 0.5, src.Samples()[50], 1e-6)
	assert.False(t, src.Done())
}

func TestWavSourceNoLoopEnds(t *testing.T) {
	src, clock := openFixture(t, WavConfig{NoLoop: true})
	require.NoError(t, src.Start())
	clock.Advance(1200 * time.Millisecond)

	assert.True(t, src.Done())
	assert.Equal(t, make([]float32, 100), src.Samples())
}

func TestWavSourcePauseKeepsPosition(t *testing.T) {
	src, clock := openFixture(t, WavConfig{})
	require.NoError(t, src.Start())
	clock.Advance(300 * time.Millisecond)
	require.NoError(t, src.Stop())
	require.NoError(t, src.Stop())

	clock.Advance(10 * time.Second)
	assert.Equal(t, 300*time.Millisecond, src.Position())
	assert.Equal(t, make([]float32, 100), src.Samples())

	require.NoError(t, src.Start())
	clock.Advance(300 * time.Millisecond)
	assert.Equal(t, 600*time.Millisecond, src.Position())
	assert.InDelta(t, -1.0, src.Samples()[99], 1e-6)
}

func TestWavSourceDisconnect(t *testing.T) {
	src, _ := openFixture(t, WavConfig{})
	require.NoError(t, src.Start())
	require.NoError(t, src.Disconnect())

	assert.ErrorIs(t, src.Start(), ErrDisconnected)
	assert.True(t, src.Done())
	assert.Equal(t, make([]float32, 100), src.Samples())
}
