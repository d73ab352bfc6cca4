package qrs

// lowPass - каузальный IIR фильтр в прямой форме с дифференцирующим каскадом.
// Выход зависит только от последних N+1 входных и N выходных отсчетов.
type lowPass struct {
	a, b []float64
	x    *ring // последние N+1 входных отсчетов, включая текущий
	y    *ring // последние N отфильтрованных отсчетов
	last float64
}

func newLowPass(p params) *lowPass {
	return &lowPass{
		a: p.a,
		b: p.b,
		x: newZeroRing(p.order + 1),
		y: newZeroRing(p.order),
	}
}

// step фильтрует один отсчет и возвращает отфильтрованное значение и первую разность
func (f *lowPass) step(xn float64) (yn, dy float64) {
	f.x.push(xn)

	var ff float64
	for k := range f.b {
		ff += f.b[k] * f.x.newest(k)
	}

	var fb float64
	for k := 1; k < len(f.a); k++ {
		fb += f.a[k] * f.y.newest(k-1)
	}

	yn = ff - fb
	f.y.push(yn)

	dy = yn - f.last
	f.last = yn
	return yn, dy
}
