package analysis

import (
	"math"
	"math/cmplx"

	"github.com/mjibson/go-dsp/fft"
	"github.com/mjibson/go-dsp/window"
	"gonum.org/v1/gonum/stat"

	"github.com/Krimson/ecg-monitory/offline-service/pkg/models"
)

// SpectralOptions - диапазон поиска и число гармоник для спектральной оценки ЧСС
type SpectralOptions struct {
	MinBPM    float64
	MaxBPM    float64
	Harmonics int
	PadFactor int // Дополнение нулями для мелкого шага по частоте
}

func DefaultSpectralOptions() SpectralOptions {
	return SpectralOptions{
		MinBPM:    40,
		MaxBPM:    200,
		Harmonics: 5,
		PadFactor: 4,
	}
}

// SpectralRate оценивает основную частоту ритма по сумме гармоник спектра.
// Узкие QRS-пики дают ряд гармоник почти равной амплитуды, поэтому
// выбирается частота f с наибольшей суммой |X(k*f)|, k = 1..Harmonics.
// Запись короче двух периодов MinBPM дает Valid = false.
func SpectralRate(values []float64, fs float64, opts SpectralOptions) models.SpectralEstimate {
	if opts.Harmonics <= 0 {
		opts.Harmonics = 1
	}
	if opts.PadFactor <= 0 {
		opts.PadFactor = 1
	}
	if !(fs > 0) || !(opts.MinBPM > 0) || opts.MaxBPM <= opts.MinBPM {
		return models.SpectralEstimate{}
	}

	n := len(values)
	if n < 2 || float64(n) < 2*fs*60/opts.MinBPM {
		return models.SpectralEstimate{}
	}

	size := 1
	for size < n {
		size <<= 1
	}
	size *= opts.PadFactor

	mean := stat.Mean(values, nil)
	hann := window.Hann(n)
	buf := make([]float64, size)
	for i, v := range values {
		buf[i] = (v - mean) * hann[i]
	}
	spectrum := fft.FFTReal(buf)

	res := fs / float64(size)
	half := size / 2
	magnitude := func(k int) float64 {
		if k >= half {
			return 0
		}
		return cmplx.Abs(spectrum[k])
	}

	lo := int(math.Ceil(opts.MinBPM / 60 / res))
	hi := int(opts.MaxBPM / 60 / res)

	best, bestScore, total, count := -1, 0.0, 0.0, 0
	for k := lo; k <= hi && k < half; k++ {
		score := 0.0
		for h := 1; h <= opts.Harmonics; h++ {
			score += magnitude(h * k)
		}
		total += score
		count++
		if score > bestScore {
			best, bestScore = k, score
		}
	}
	if best < 0 || total == 0 {
		return models.SpectralEstimate{}
	}

	freq := float64(best) * res
	return models.SpectralEstimate{
		Valid:       true,
		HeartRate:   freq * 60,
		FrequencyHz: freq,
		PeakRatio:   bestScore / (total / float64(count)),
	}
}
