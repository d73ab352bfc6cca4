package qrs

import "fmt"

// State - состояние детектора
type State int

const (
	StateTraining   State = iota // накопление порога, удары не ищутся
	StateArmed                   // ожидание пересечения порога
	StateRefractory              // удар найден, повторный поиск запрещен
)

func (s State) String() string {
	switch s {
	case StateTraining:
		return "training"
	case StateArmed:
		return "armed"
	case StateRefractory:
		return "refractory"
	default:
		return fmt.Sprintf("State(%d)", int(s))
	}
}

// Beat - обнаруженный QRS комплекс
type Beat struct {
	Index int     // Номер отсчета с начала сессии
	RR    float64 // Интервал от предыдущего удара, сек. Для первого удара - от начала сессии
}

// Update - результат обработки одного пакета отсчетов
type Update struct {
	Filtered    []float64 // Отфильтрованные значения, по одному на входной отсчет
	Beat        *Beat     // Обнаруженный удар, не более одного на пакет
	Trained     bool      // Обучение завершилось на этом пакете
	RateUpdated bool      // Окно R-R было пересчитано хотя бы раз
}

// Detector - потоковый детектор QRS комплексов для одного источника сигнала.
// Не потокобезопасен: вызывающая сторона сериализует обращения.
type Detector struct {
	p params

	filter    *lowPass
	transform *lengthTransform
	trainer   *trainer
	rate      *rateAggregator
	filtered  *ring

	count     int
	state     State
	threshold float64

	t0, t1          int
	refractoryStart int
	beats           int
}

// New создает детектор с указанной конфигурацией
func New(cfg Config) (*Detector, error) {
	p, err := cfg.derive()
	if err != nil {
		return nil, fmt.Errorf("invalid detector config: %w", err)
	}

	return &Detector{
		p:         p,
		filter:    newLowPass(p),
		transform: newLengthTransform(p),
		trainer:   newTrainer(p),
		rate:      newRateAggregator(p),
		filtered:  newRing(p.w),
		state:     StateTraining,
	}, nil
}

// FeedSamples обрабатывает пакет сырых отсчетов АЦП. Пустой пакет не меняет состояние.
func (d *Detector) FeedSamples(values []float64) Update {
	if len(values) == 0 {
		return Update{}
	}

	filtered := make([]float64, len(values))
	lengths := make([]float64, len(values))
	for i, x := range values {
		y, dy := d.filter.step(x)
		d.filtered.push(y)
		filtered[i] = y
		lengths[i] = d.transform.push(dy)
	}

	before := d.count
	d.count += len(values)
	upd := Update{Filtered: filtered}

	if d.state == StateTraining {
		threshold, done := d.trainer.absorb(lengths)
		if done {
			d.threshold = threshold
			d.state = StateArmed
			d.rate.start(d.count)
			upd.Trained = true
		}
		return upd
	}

	crossing := -1
	var rr float64
	switch d.state {
	case StateArmed:
		for i, v := range lengths {
			if v >= d.threshold {
				crossing = i
				break
			}
		}
		if crossing >= 0 {
			d.t0 = d.t1
			d.t1 = before + crossing
			rr = float64(d.t1-d.t0) / d.p.fs
			d.beats++
			d.state = StateRefractory
			d.refractoryStart = d.count
			upd.Beat = &Beat{Index: d.t1, RR: rr}
		}
	case StateRefractory:
		if d.count-d.refractoryStart >= d.p.refractory {
			d.state = StateArmed
		}
	}

	if d.p.slotUnit == SlotPerSample {
		for i := range lengths {
			v := 0.0
			if i == crossing {
				v = rr
			}
			if d.rate.step(v, 1) {
				upd.RateUpdated = true
			}
		}
	} else {
		upd.RateUpdated = d.rate.step(rr, len(values))
	}

	return upd
}

// State возвращает текущее состояние детектора
func (d *Detector) State() State { return d.state }

// IsTraining - true, пока не накоплено TrainingLength отсчетов
func (d *Detector) IsTraining() bool { return d.state == StateTraining }

// Threshold возвращает порог обнаружения, 0 во время обучения
func (d *Detector) Threshold() float64 { return d.threshold }

// SampleCount - количество обработанных отсчетов с начала сессии
func (d *Detector) SampleCount() int { return d.count }

// BeatCount - количество обнаруженных ударов
func (d *Detector) BeatCount() int { return d.beats }

// LastBeat возвращает индекс последнего удара, false если ударов не было
func (d *Detector) LastBeat() (int, bool) {
	return d.t1, d.beats > 0
}

// Stats возвращает текущие показатели ритма
func (d *Detector) Stats() Stats { return d.rate.stats() }

// MinHR возвращает минимальную ЧСС, false пока значение не определено
func (d *Detector) MinHR() (float64, bool) {
	return d.rate.minHR, d.rate.hasExtrema
}

// MaxHR возвращает максимальную ЧСС, false пока значение не определено
func (d *Detector) MaxHR() (float64, bool) {
	return d.rate.maxHR, d.rate.hasExtrema
}

// RecentFiltered - до w последних отфильтрованных значений для отображения
func (d *Detector) RecentFiltered() []float64 { return d.filtered.values() }

// RecentTransform - до 2w последних значений length transform
func (d *Detector) RecentTransform() []float64 { return d.transform.out.values() }

// Windows возвращает производные размеры окон: w, T10 и Trefr в отсчетах
func (d *Detector) Windows() (w, training, refractory int) {
	return d.p.w, d.p.training, d.p.refractory
}

// SampleRate возвращает частоту дискретизации детектора
func (d *Detector) SampleRate() float64 { return d.p.fs }
