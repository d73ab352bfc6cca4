// Package ecgsim генерирует синтетический сигнал ЭКГ для эмулятора и тестов:
// изолиния с дрейфом и треугольные QRS-подобные пики с заданной ЧСС.
package ecgsim

import (
	"errors"
	"fmt"
	"math"
	"math/rand"
	"sync"
)

// Ошибки генератора
var (
	ErrInvalidSampleRate = errors.New("sample rate must be positive")
	ErrInvalidBPM        = errors.New("heart rate must be positive")
	ErrInvalidHalfWidth  = errors.New("spike half width must not be negative")
)

// Config - параметры синтетического сигнала в единицах АЦП
type Config struct {
	SampleRate float64 // Частота дискретизации, Гц
	BPM        float64 // Частота сердечных сокращений, уд/мин
	Baseline   float64 // Уровень изолинии
	Amplitude  float64 // Амплитуда R-зубца над изолинией
	HalfWidth  int     // Полуширина пика в отсчетах
	Wander     float64 // Амплитуда дрейфа изолинии
	WanderHz   float64 // Частота дрейфа изолинии
	Noise      float64 // СКО гауссова шума, 0 - без шума
	Seed       int64
}

// DefaultConfig возвращает сигнал 75 уд/мин для датчика 360 Гц с 12-битным АЦП
func DefaultConfig() Config {
	return Config{
		SampleRate: 360,
		BPM:        75,
		Baseline:   2048,
		Amplitude:  1000,
		HalfWidth:  3,
		Wander:     20,
		WanderHz:   0.25,
	}
}

// Validate проверяет параметры генератора
func (c Config) Validate() error {
	if !(c.SampleRate > 0) {
		return fmt.Errorf("%w: %v", ErrInvalidSampleRate, c.SampleRate)
	}
	if !(c.BPM > 0) {
		return fmt.Errorf("%w: %v", ErrInvalidBPM, c.BPM)
	}
	if c.HalfWidth < 0 {
		return fmt.Errorf("%w: %d", ErrInvalidHalfWidth, c.HalfWidth)
	}
	return nil
}

// Generator выдает отсчеты последовательно. Безопасен для использования из нескольких горутин.
type Generator struct {
	mu     sync.Mutex
	cfg    Config
	period float64
	offset float64
	n      int
	rand   *rand.Rand
}

// New создает генератор
func New(cfg Config) (*Generator, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	g := &Generator{cfg: cfg}
	g.setBPM(cfg.BPM)
	g.rand = rand.New(rand.NewSource(cfg.Seed))
	return g, nil
}

func (g *Generator) setBPM(bpm float64) {
	g.cfg.BPM = bpm
	g.period = g.cfg.SampleRate * 60 / bpm
	g.offset = g.period / 2
}

// At возвращает значение отсчета n без шума. Не меняет состояние генератора.
func (g *Generator) At(n int) float64 {
	g.mu.Lock()
	defer g.mu.Unlock()
	return g.at(n)
}

func (g *Generator) at(n int) float64 {
	t := float64(n) / g.cfg.SampleRate
	v := g.cfg.Baseline + g.cfg.Wander*math.Sin(2*math.Pi*g.cfg.WanderHz*t)

	// Ближайший к n пик
	k := math.Floor((float64(n)-g.offset)/g.period + 0.5)
	pos := math.Floor(g.offset + k*g.period + 0.5)
	d := math.Abs(float64(n) - pos)
	if d <= float64(g.cfg.HalfWidth) {
		v += g.cfg.Amplitude * (1 - d/float64(g.cfg.HalfWidth+1))
	}
	return v
}

// Next возвращает следующий отсчет
func (g *Generator) Next() float64 {
	g.mu.Lock()
	defer g.mu.Unlock()

	v := g.at(g.n)
	g.n++
	if g.cfg.Noise > 0 {
		v += g.rand.NormFloat64() * g.cfg.Noise
	}
	return v
}

// Fill заполняет buf следующими отсчетами
func (g *Generator) Fill(buf []float64) {
	for i := range buf {
		buf[i] = g.Next()
	}
}

// Samples возвращает count следующих отсчетов
func (g *Generator) Samples(count int) []float64 {
	buf := make([]float64, count)
	g.Fill(buf)
	return buf
}

// SetBPM меняет ЧСС. Положение следующих пиков пересчитывается от начала сигнала.
func (g *Generator) SetBPM(bpm float64) error {
	if !(bpm > 0) {
		return fmt.Errorf("%w: %v", ErrInvalidBPM, bpm)
	}
	g.mu.Lock()
	defer g.mu.Unlock()
	g.setBPM(bpm)
	return nil
}

// BeatPositions возвращает индексы вершин пиков в диапазоне [from, to)
func (g *Generator) BeatPositions(from, to int) []int {
	g.mu.Lock()
	defer g.mu.Unlock()

	var out []int
	k := math.Ceil((float64(from) - g.offset - 0.5) / g.period)
	for ; ; k++ {
		pos := int(math.Floor(g.offset + k*g.period + 0.5))
		if pos >= to {
			break
		}
		if pos >= from {
			out = append(out, pos)
		}
	}
	return out
}

// Position возвращает номер следующего отсчета
func (g *Generator) Position() int {
	g.mu.Lock()
	defer g.mu.Unlock()
	return g.n
}

// Reset возвращает генератор к началу сигнала
func (g *Generator) Reset() {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.n = 0
	g.rand = rand.New(rand.NewSource(g.cfg.Seed))
}

// Quantize округляет значение до целого отсчета АЦП в диапазоне [0, max]
func Quantize(v float64, max int) int {
	q := int(math.Round(v))
	if q < 0 {
		return 0
	}
	if q > max {
		return max
	}
	return q
}
