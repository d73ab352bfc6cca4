package qrs

import "math"

// lengthTransform считает curve length transform по скользящему окну
// первых разностей (Zong et al., "A Robust Open-source Algorithm to Detect
// Onset and Duration of QRS Complexes").
type lengthTransform struct {
	w    int
	lfsc float64
	diff *ring // до 2w последних разностей
	out  *ring // до 2w последних значений преобразования
}

func newLengthTransform(p params) *lengthTransform {
	return &lengthTransform{
		w:    p.w,
		lfsc: p.lfsc,
		diff: newRing(2 * p.w),
		out:  newRing(2 * p.w),
	}
}

// push добавляет новую разность и возвращает значение преобразования для нее.
// Пока накоплено меньше w разностей, окно обрезается, а не дополняется нулями.
func (lt *lengthTransform) push(dy float64) float64 {
	lt.diff.push(dy)

	n := lt.w
	if lt.diff.len() < n {
		n = lt.diff.len()
	}

	var sum float64
	for k := n - 1; k >= 0; k-- {
		d := lt.diff.newest(k)
		sum += math.Sqrt(d*d + lt.lfsc)
	}

	lt.out.push(sum)
	return sum
}
