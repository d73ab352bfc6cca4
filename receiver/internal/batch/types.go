package batch

import (
	"context"
	"sort"
)

// Sample - один отсчет АЦП, привязанный к сессии
type Sample struct {
	SessionID string  // Идентификатор сессии
	TsMS      int64   // Временная метка отсчета в миллисекундах
	Value     float64 // Значение АЦП
}

// Point представляет одну точку данных внутри батча
type Point struct {
	TsMS  int64   // Временная метка в миллисекундах
	Value float64 // Значение отсчета
}

// Batch представляет собранный батч точек одной сессии
type Batch struct {
	SessionID string  // Идентификатор сессии
	T0MS      int64   // Время первой точки в батче
	T1MS      int64   // Время последней точки в батче
	Points    []Point // Точки данных в порядке времени
}

// Values возвращает значения точек в порядке времени
func (b Batch) Values() []float64 {
	values := make([]float64, len(b.Points))
	for i, p := range b.Points {
		values[i] = p.Value
	}
	return values
}

// Sink интерфейс для обработки готовых батчей
type Sink interface {
	Consume(ctx context.Context, b Batch) error
}

// currentBatch - внутренняя структура для отслеживания текущего состояния батча
type currentBatch struct {
	Batch
	lastAddedMS int64 // Время последнего добавления точки
}

// newCurrentBatch создает новый текущий батч
func newCurrentBatch(sessionID string, capacity int) *currentBatch {
	return &currentBatch{
		Batch: Batch{
			SessionID: sessionID,
			Points:    make([]Point, 0, capacity),
		},
	}
}

// addPoint добавляет точку в текущий батч и обновляет временные границы
func (cb *currentBatch) addPoint(point Point, nowMS int64) {
	if len(cb.Points) == 0 {
		cb.T0MS = point.TsMS
		cb.T1MS = point.TsMS
	} else {
		if point.TsMS < cb.T0MS {
			cb.T0MS = point.TsMS
		}
		if point.TsMS > cb.T1MS {
			cb.T1MS = point.TsMS
		}
	}

	cb.Points = append(cb.Points, point)
	cb.lastAddedMS = nowMS
}

// shouldFlushBySize проверяет, нужно ли сбросить батч по размеру
func (cb *currentBatch) shouldFlushBySize(maxSamples int) bool {
	return len(cb.Points) >= maxSamples
}

// clone создает копию батча для отправки в sink.
// Точки упорядочиваются по времени: детектор принимает отсчеты только по порядку.
func (cb *currentBatch) clone() Batch {
	pointsCopy := make([]Point, len(cb.Points))
	copy(pointsCopy, cb.Points)
	sort.SliceStable(pointsCopy, func(i, j int) bool {
		return pointsCopy[i].TsMS < pointsCopy[j].TsMS
	})

	return Batch{
		SessionID: cb.SessionID,
		T0MS:      cb.T0MS,
		T1MS:      cb.T1MS,
		Points:    pointsCopy,
	}
}

// reset очищает батч для переиспользования
func (cb *currentBatch) reset() {
	cb.T0MS = 0
	cb.T1MS = 0
	cb.Points = cb.Points[:0] // Сохраняем capacity
	cb.lastAddedMS = 0
}
