package source

import (
	"testing"

	"github.com/Krimson/ecg-monitory/pkg/ecgsim"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSynthetic_MatchesGenerator(t *testing.T) {
	cfg := ecgsim.DefaultConfig()
	src, err := NewSynthetic(cfg)
	require.NoError(t, err)

	gen, err := ecgsim.New(cfg)
	require.NoError(t, err)

	buf := make([]float64, 100)
	assert.Equal(t, 100, src.Read(buf))
	assert.Equal(t, gen.Samples(100), buf)
}

func TestSynthetic_InvalidConfig(t *testing.T) {
	cfg := ecgsim.DefaultConfig()
	cfg.BPM = 0
	_, err := NewSynthetic(cfg)
	assert.ErrorIs(t, err, ecgsim.ErrInvalidBPM)
}

func TestReplay_StopsAtEnd(t *testing.T) {
	src, err := NewReplay([]float64{1, 2, 3, 4, 5}, false)
	require.NoError(t, err)

	buf := make([]float64, 2)
	assert.Equal(t, 2, src.Read(buf))
	assert.Equal(t, 2, src.Read(buf))
	assert.Equal(t, 1, src.Read(buf))
	assert.Equal(t, 5.0, buf[0])
	assert.Equal(t, 0, src.Read(buf))
}

func TestReplay_Loop(t *testing.T) {
	src, err := NewReplay([]float64{1, 2, 3}, true)
	require.NoError(t, err)

	buf := make([]float64, 7)
	assert.Equal(t, 7, src.Read(buf))
	assert.Equal(t, []float64{1, 2, 3, 1, 2, 3, 1}, buf)
}

func TestReplay_Empty(t *testing.T) {
	_, err := NewReplay(nil, false)
	assert.ErrorIs(t, err, ErrEmptyRecording)
}
