package ecgsim

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestBeatPositions(t *testing.T) {
	g, err := New(DefaultConfig())
	require.NoError(t, err)

	// 75 уд/мин при 360 Гц - период 288 отсчетов, первый пик в середине периода
	assert.Equal(t, []int{144, 432, 720}, g.BeatPositions(0, 1000))
	assert.Equal(t, []int{432}, g.BeatPositions(145, 433))
	assert.Empty(t, g.BeatPositions(150, 400))
}

func TestSpikeShape(t *testing.T) {
	cfg := DefaultConfig()
	cfg.Wander = 0
	g, err := New(cfg)
	require.NoError(t, err)

	assert.InDelta(t, 3048, g.At(144), 1e-9)
	assert.InDelta(t, 2798, g.At(143), 1e-9)
	assert.InDelta(t, 2298, g.At(147), 1e-9)
	assert.InDelta(t, 2048, g.At(148), 1e-9)
	assert.InDelta(t, 2048, g.At(300), 1e-9)
}

func TestNextIsDeterministic(t *testing.T) {
	cfg := DefaultConfig()
	cfg.Noise = 5
	cfg.Seed = 7

	a, err := New(cfg)
	require.NoError(t, err)
	b, err := New(cfg)
	require.NoError(t, err)

	assert.Equal(t, a.Samples(500), b.Samples(500))
	assert.Equal(t, 500, a.Position())

	a.Reset()
	assert.Equal(t, 0, a.Position())
	b.Reset()
	assert.Equal(t, a.Samples(10), b.Samples(10))
}

func TestNextWithoutNoiseMatchesAt(t *testing.T) {
	g, err := New(DefaultConfig())
	require.NoError(t, err)

	for n := 0; n < 400; n++ {
		assert.Equal(t, g.At(n), g.Next())
	}
}

func TestSetBPM(t *testing.T) {
	g, err := New(DefaultConfig())
	require.NoError(t, err)

	require.NoError(t, g.SetBPM(60))
	assert.Equal(t, []int{180, 540}, g.BeatPositions(0, 720))

	err = g.SetBPM(0)
	assert.True(t, errors.Is(err, ErrInvalidBPM))
}

func TestValidate(t *testing.T) {
	cfg := DefaultConfig()
	cfg.SampleRate = 0
	_, err := New(cfg)
	assert.True(t, errors.Is(err, ErrInvalidSampleRate))

	cfg = DefaultConfig()
	cfg.HalfWidth = -1
	_, err = New(cfg)
	assert.True(t, errors.Is(err, ErrInvalidHalfWidth))
}

func TestQuantize(t *testing.T) {
	assert.Equal(t, 0, Quantize(-3, 2047))
	assert.Equal(t, 2047, Quantize(5000, 2047))
	assert.Equal(t, 1024, Quantize(1023.6, 2047))
}
