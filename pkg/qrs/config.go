package qrs

import (
	"errors"
	"fmt"
	"math"
)

// Коэффициенты НЧ-фильтра 4-го порядка, пересчитанные для частоты 360 Гц
var (
	A360 = []float64{1.0, -3.27139334, 4.06804375, -2.27301796, 0.48069533}
	B360 = []float64{0.00027049, 0.00108194, 0.00162292, 0.00108194, 0.00027049}
)

const (
	DefaultSampleRate = 360.0
	DefaultGain       = 1.0
	DefaultOrder      = 4

	// Порог = среднее значение length transform за период обучения * thresholdMargin
	thresholdMargin = 1.5
	// Количество значений ЧСС в истории (~1 минута при окне, сдвигаемом на 1 сек.)
	RateHistoryLength = 12
)

// Ошибки конфигурации детектора
var (
	ErrInvalidSampleRate       = errors.New("sampling frequency must be positive")
	ErrInvalidOrder            = errors.New("filter order must be positive")
	ErrCoefficientMismatch     = errors.New("filter coefficients do not match filter order")
	ErrInvalidLeadingCoeff     = errors.New("leading denominator coefficient must be non-zero")
	ErrInvalidCoefficientValue = errors.New("filter coefficients must be finite")
)

// SlotUnit определяет, чем индексируется окно R-R интервалов
type SlotUnit int

const (
	// SlotPerCall - одна ячейка окна на каждый вызов FeedSamples
	SlotPerCall SlotUnit = iota
	// SlotPerSample - одна ячейка окна на каждый отсчет
	SlotPerSample
)

func (u SlotUnit) String() string {
	switch u {
	case SlotPerCall:
		return "call"
	case SlotPerSample:
		return "sample"
	default:
		return fmt.Sprintf("SlotUnit(%d)", int(u))
	}
}

// ParseSlotUnit разбирает значение из конфигурации ("call" или "sample")
func ParseSlotUnit(s string) (SlotUnit, error) {
	switch s {
	case "", "call":
		return SlotPerCall, nil
	case "sample":
		return SlotPerSample, nil
	default:
		return SlotPerCall, fmt.Errorf("unknown slot unit %q: expected call or sample", s)
	}
}

// Config содержит неизменяемые параметры детектора на всю сессию
type Config struct {
	SampleRate float64   // Частота дискретизации, Гц
	Gain       float64   // Коэффициент усиления АЦП
	Order      int       // Порядок фильтра N
	A          []float64 // Знаменатель, len = N+1, A[0] нормирован к 1
	B          []float64 // Числитель, len = N+1
	SlotUnit   SlotUnit
}

// DefaultConfig возвращает конфигурацию для эталонного датчика (360 Гц)
func DefaultConfig() Config {
	return Config{
		SampleRate: DefaultSampleRate,
		Gain:       DefaultGain,
		Order:      DefaultOrder,
		A:          append([]float64(nil), A360...),
		B:          append([]float64(nil), B360...),
		SlotUnit:   SlotPerCall,
	}
}

// Validate проверяет конфигурацию. Любая ошибка здесь фатальна для создания детектора.
func (c Config) Validate() error {
	if !(c.SampleRate > 0) || math.IsInf(c.SampleRate, 0) {
		return fmt.Errorf("%w: %v", ErrInvalidSampleRate, c.SampleRate)
	}
	if c.Order <= 0 {
		return fmt.Errorf("%w: %d", ErrInvalidOrder, c.Order)
	}
	if len(c.A) != c.Order+1 || len(c.B) != c.Order+1 {
		return fmt.Errorf("%w: order=%d len(a)=%d len(b)=%d",
			ErrCoefficientMismatch, c.Order, len(c.A), len(c.B))
	}
	for _, v := range append(append([]float64(nil), c.A...), c.B...) {
		if math.IsNaN(v) || math.IsInf(v, 0) {
			return ErrInvalidCoefficientValue
		}
	}
	if c.A[0] == 0 {
		return ErrInvalidLeadingCoeff
	}
	return nil
}

// WindowSize - ширина окна length transform (130 мс)
func WindowSize(fs float64) int {
	return int(math.Floor(fs*0.130)) + 1
}

// TrainingLength - количество отсчетов периода обучения (10 сек.)
func TrainingLength(fs float64) int {
	return int(math.Floor(fs*10)) + 1
}

// RefractoryLength - длительность рефрактерного периода в отсчетах (150 мс)
func RefractoryLength(fs float64) int {
	return int(math.Floor(fs*0.150)) + 1
}

// LengthScale - константа масштаба length transform, зависящая от усиления АЦП
func LengthScale(gain, fs float64) float64 {
	return 1.25 * gain * gain / fs
}

// params - производные величины, вычисляемые один раз при создании детектора
type params struct {
	fs         float64
	lfsc       float64
	order      int
	a, b       []float64
	w          int
	training   int
	refractory int
	rrSlots    int
	slide      int
	slotUnit   SlotUnit
}

func (c Config) derive() (params, error) {
	if err := c.Validate(); err != nil {
		return params{}, err
	}

	// Нормируем коэффициенты так, чтобы a[0] = 1
	a := make([]float64, len(c.A))
	b := make([]float64, len(c.B))
	for i := range c.A {
		a[i] = c.A[i] / c.A[0]
		b[i] = c.B[i] / c.A[0]
	}

	training := TrainingLength(c.SampleRate)
	rrSlots := training / 2
	if rrSlots < 1 {
		rrSlots = 1
	}
	slide := int(math.Round(c.SampleRate))
	if slide < 1 {
		slide = 1
	}
	if slide > rrSlots {
		slide = rrSlots
	}

	return params{
		fs:         c.SampleRate,
		lfsc:       LengthScale(c.Gain, c.SampleRate),
		order:      c.Order,
		a:          a,
		b:          b,
		w:          WindowSize(c.SampleRate),
		training:   training,
		refractory: RefractoryLength(c.SampleRate),
		rrSlots:    rrSlots,
		slide:      slide,
		slotUnit:   c.SlotUnit,
	}, nil
}
