// Package source выдает отсчеты сигнала для эмулятора: синтетическую ЭКГ или запись CSV.
package source

import (
	"errors"

	"github.com/Krimson/ecg-monitory/pkg/ecgsim"
)

var ErrEmptyRecording = errors.New("recording has no samples")

// Source заполняет буфер следующими отсчетами и возвращает их число; 0 - сигнал закончился
type Source interface {
	Read(buf []float64) int
}

// Synthetic - бесконечный синтетический сигнал
type Synthetic struct {
	gen *ecgsim.Generator
}

// NewSynthetic создает синтетический источник
func NewSynthetic(cfg ecgsim.Config) (*Synthetic, error) {
	gen, err := ecgsim.New(cfg)
	if err != nil {
		return nil, err
	}
	return &Synthetic{gen: gen}, nil
}

func (s *Synthetic) Read(buf []float64) int {
	s.gen.Fill(buf)
	return len(buf)
}

// Replay проигрывает запись, при loop - по кругу
type Replay struct {
	values []float64
	pos    int
	loop   bool
}

// NewReplay создает источник из записанных значений
func NewReplay(values []float64, loop bool) (*Replay, error) {
	if len(values) == 0 {
		return nil, ErrEmptyRecording
	}
	return &Replay{values: values, loop: loop}, nil
}

func (r *Replay) Read(buf []float64) int {
	n := 0
	for n < len(buf) {
		if r.pos == len(r.values) {
			if !r.loop {
				break
			}
			r.pos = 0
		}
		copied := copy(buf[n:], r.values[r.pos:])
		r.pos += copied
		n += copied
	}
	return n
}
