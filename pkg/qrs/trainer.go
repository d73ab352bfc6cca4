package qrs

import "gonum.org/v1/gonum/floats"

// trainer накапливает значения length transform за первые 10 секунд записи
// и один раз вычисляет фиксированный порог.
type trainer struct {
	length int
	seen   int
	sum    float64
}

func newTrainer(p params) *trainer {
	return &trainer{length: p.training}
}

// absorb добавляет значения пакета к сумме. Учитываются только первые
// length отсчетов сессии. Возвращает порог и true, когда обучение завершено.
func (t *trainer) absorb(values []float64) (float64, bool) {
	need := t.length - t.seen
	if need > len(values) {
		need = len(values)
	}
	if need > 0 {
		t.sum += floats.Sum(values[:need])
		t.seen += need
	}

	if t.seen < t.length {
		return 0, false
	}
	return t.sum / float64(t.length) * thresholdMargin, true
}
