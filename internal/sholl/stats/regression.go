package stats

import "math"

// Regression is an incremental ordinary-least-squares accumulator for
// y = Intercept + Slope*x. Points can be removed by subtraction, which is
// what lets a fit be narrowed to a range without a rebuild.
//
// The accumulator keeps centred sums updated one observation at a time,
// so it stays accurate when x or y carry a large offset.
type Regression struct {
	n     int
	sumX  float64
	sumY  float64
	sumXX float64 // centred
	sumYY float64 // centred
	sumXY float64 // centred
	xbar  float64
	ybar  float64
}

// Add includes the observation (x, y).
func (r *Regression) Add(x, y float64) {
	if r.n == 0 {
		r.xbar, r.ybar = x, y
	} else {
		n := float64(r.n)
		fact1 := 1 + n
		fact2 := n / (1 + n)
		dx, dy := x-r.xbar, y-r.ybar
		r.sumXX += dx * dx * fact2
		r.sumYY += dy * dy * fact2
		r.sumXY += dx * dy * fact2
		r.xbar += dx / fact1
		r.ybar += dy / fact1
	}
	r.sumX += x
	r.sumY += y
	r.n++
}

// Remove takes a previously added observation back out. Removing from an
// empty accumulator is a no-op; removing the last observation clears it.
func (r *Regression) Remove(x, y float64) {
	switch r.n {
	case 0:
		return
	case 1:
		r.Clear()
		return
	}
	n := float64(r.n)
	fact1 := n - 1
	fact2 := n / (n - 1)
	dx, dy := x-r.xbar, y-r.ybar
	r.sumXX -= dx * dx * fact2
	r.sumYY -= dy * dy * fact2
	r.sumXY -= dx * dy * fact2
	r.xbar -= dx / fact1
	r.ybar -= dy / fact1
	r.sumX -= x
	r.sumY -= y
	r.n--
}

// Clear drops every observation.
func (r *Regression) Clear() { *r = Regression{} }

// N returns the number of observations.
func (r Regression) N() int { return r.n }

// Slope returns the fitted slope. It is NaN with fewer than two observations
// or when every x is the same.
func (r Regression) Slope() float64 {
	if r.n < 2 || math.Abs(r.sumXX) < 10*math.SmallestNonzeroFloat64 {
		return math.NaN()
	}
	return r.sumXY / r.sumXX
}

// Intercept returns the fitted intercept.
func (r Regression) Intercept() float64 {
	if r.n == 0 {
		return math.NaN()
	}
	return (r.sumY - r.Slope()*r.sumX) / float64(r.n)
}

// SumSquaredErrors returns the residual sum of squares.
func (r Regression) SumSquaredErrors() float64 {
	return math.Max(0, r.sumYY-r.sumXY*r.sumXY/r.sumXX)
}

// TotalSumSquares returns the centred sum of squares of y.
func (r Regression) TotalSumSquares() float64 {
	if r.n < 2 {
		return math.NaN()
	}
	return r.sumYY
}

// RSquared returns the coefficient of determination.
func (r Regression) RSquared() float64 {
	ssto := r.TotalSumSquares()
	return (ssto - r.SumSquaredErrors()) / ssto
}

// R returns Pearson's r, carrying the sign of the slope.
func (r Regression) R() float64 {
	v := math.Sqrt(r.RSquared())
	if r.Slope() < 0 {
		v = -v
	}
	return v
}

// Predict returns the fitted y at x.
func (r Regression) Predict(x float64) float64 {
	return r.Intercept() + r.Slope()*x
}
