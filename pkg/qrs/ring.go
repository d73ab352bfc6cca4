package qrs

// ring - буфер фиксированной емкости. Вставка нового значения при заполненном
// буфере вытесняет самое старое.
type ring struct {
	data []float64
	head int // следующая позиция записи
	size int
}

func newRing(capacity int) *ring {
	if capacity < 1 {
		capacity = 1
	}
	return &ring{data: make([]float64, capacity)}
}

// newZeroRing создает заполненный нулями буфер (история фильтра, история ЧСС)
func newZeroRing(capacity int) *ring {
	r := newRing(capacity)
	r.size = len(r.data)
	return r
}

func (r *ring) push(v float64) {
	r.data[r.head] = v
	r.head = (r.head + 1) % len(r.data)
	if r.size < len(r.data) {
		r.size++
	}
}

func (r *ring) len() int { return r.size }

func (r *ring) capacity() int { return len(r.data) }

// newest возвращает k-е значение с конца (k = 0 - последнее записанное)
func (r *ring) newest(k int) float64 {
	idx := (r.head - 1 - k) % len(r.data)
	if idx < 0 {
		idx += len(r.data)
	}
	return r.data[idx]
}

// values возвращает содержимое в хронологическом порядке (старые первыми)
func (r *ring) values() []float64 {
	out := make([]float64, r.size)
	start := (r.head - r.size + len(r.data)) % len(r.data)
	for i := 0; i < r.size; i++ {
		out[i] = r.data[(start+i)%len(r.data)]
	}
	return out
}
