package qrs

import (
	"math"

	"gonum.org/v1/gonum/floats"
)

// rrWindow - окно R-R интервалов фиксированной емкости с указателем записи.
// Пустые ячейки равны нулю. При переполнении указателя окно сдвигается на
// slide ячеек: старые отбрасываются, в конец добавляются нули.
// spans хранит число отсчетов сигнала, пришедшихся на каждую ячейку.
type rrWindow struct {
	slots []float64
	spans []int
	head  int // физический индекс логической ячейки 0
	ptr   int // логический индекс следующей записи, может быть >= len(slots)
	slide int
}

func newRRWindow(p params) *rrWindow {
	return &rrWindow{
		slots: make([]float64, p.rrSlots),
		spans: make([]int, p.rrSlots),
		slide: p.slide,
	}
}

func (w *rrWindow) set(i int, v float64) {
	w.slots[(w.head+i)%len(w.slots)] = v
}

func (w *rrWindow) setSpan(i, n int) {
	if w.spans != nil {
		w.spans[(w.head+i)%len(w.spans)] = n
	}
}

// coveredSamples - сколько отсчетов сигнала покрывают записанные ячейки
func (w *rrWindow) coveredSamples() int {
	total := 0
	for _, n := range w.spans {
		total += n
	}
	return total
}

func (w *rrWindow) values() []float64 {
	out := make([]float64, len(w.slots))
	for i := range out {
		out[i] = w.slots[(w.head+i)%len(w.slots)]
	}
	return out
}

// shift отбрасывает slide самых старых ячеек и добавляет столько же пустых
func (w *rrWindow) shift() {
	for i := 0; i < w.slide; i++ {
		w.set(i, 0)
		w.setSpan(i, 0)
	}
	w.head = (w.head + w.slide) % len(w.slots)
	w.ptr -= w.slide
}

// Stats - агрегированные показатели ритма
type Stats struct {
	AvgRR        float64   // Средний R-R интервал по окну, сек.
	AvgHR        float64   // ЧСС по среднему R-R, уд/мин
	CountHR      float64   // ЧСС по количеству заполненных ячеек и длительности окна
	WindowHR     float64   // 12 × число заполненных ячеек / 5, без учета длительности окна
	MinHR        float64   // Минимальная ЧСС, действительна при HasExtrema
	MaxHR        float64   // Максимальная ЧСС, действительна при HasExtrema
	HasExtrema   bool      // min/max уже вычислены
	Computations int       // Количество пересчетов окна
	History      []float64 // Последние RateHistoryLength значений AvgHR
}

// rateAggregator ведет окно R-R интервалов и пересчитывает ЧСС
// каждый раз, когда окно сдвигается.
type rateAggregator struct {
	fs      float64
	window  *rrWindow
	history *ring

	avgRR        float64
	avgHR        float64
	countHR      float64
	windowHR     float64
	minHR        float64
	maxHR        float64
	hasExtrema   bool
	computations int
}

func newRateAggregator(p params) *rateAggregator {
	return &rateAggregator{
		fs:      p.fs,
		window:  newRRWindow(p),
		history: newZeroRing(RateHistoryLength),
	}
}

// start устанавливает указатель окна после окончания обучения
func (r *rateAggregator) start(ptr int) {
	r.window.ptr = ptr
}

// step записывает значение в текущую ячейку и продвигает указатель.
// samples - сколько отсчетов сигнала пришлось на ячейку.
// Возвращает true, если окно было пересчитано.
func (r *rateAggregator) step(rr float64, samples int) bool {
	w := r.window
	if w.ptr >= 0 && w.ptr < len(w.slots) {
		w.set(w.ptr, rr)
		w.setSpan(w.ptr, samples)
	}
	w.ptr++
	if w.ptr < len(w.slots) {
		return false
	}
	r.aggregate()
	w.shift()
	return true
}

func (r *rateAggregator) aggregate() {
	values := r.window.values()
	filled := floats.Count(func(v float64) bool { return v > 0 }, values)

	r.windowHR = float64(filled) * 12 / 5

	// Длительность окна считается по фактически покрытым отсчетам:
	// при одной ячейке на вызов ячейка вмещает весь пакет.
	covered := r.window.coveredSamples()
	if covered == 0 {
		covered = len(values)
	}
	windowSeconds := float64(covered) / r.fs
	r.countHR = float64(filled) * 60 / windowSeconds

	divisor := filled
	if divisor < 1 {
		divisor = 1
	}
	r.avgRR = floats.Sum(values) / float64(divisor)
	if filled > 0 && r.avgRR > 0 {
		r.avgHR = 60 / r.avgRR
	} else {
		r.avgHR = 0
	}

	r.computations++
	if r.computations < RateHistoryLength {
		return
	}

	// Первые пересчеты после обучения приходятся на неполное окно,
	// поэтому история и экстремумы ведутся только с 12-го пересчета.
	r.history.push(r.avgHR)
	if !r.hasExtrema {
		r.minHR, r.maxHR = r.avgHR, r.avgHR
		r.hasExtrema = true
		return
	}
	r.minHR = math.Min(r.minHR, r.avgHR)
	r.maxHR = math.Max(r.maxHR, r.avgHR)
}

func (r *rateAggregator) stats() Stats {
	return Stats{
		AvgRR:        r.avgRR,
		AvgHR:        r.avgHR,
		CountHR:      r.countHR,
		WindowHR:     r.windowHR,
		MinHR:        r.minHR,
		MaxHR:        r.maxHR,
		HasExtrema:   r.hasExtrema,
		Computations: r.computations,
		History:      r.history.values(),
	}
}
