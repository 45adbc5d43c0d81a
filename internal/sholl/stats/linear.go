package stats

import (
	"errors"
	"fmt"
	"math"
	"sort"
	"strconv"

	"gonum.org/v1/gonum/floats"
	"gonum.org/v1/gonum/mat"
	"gonum.org/v1/gonum/stat"

	"github.com/banshee-data/sholl/internal/monitoring"
	"github.com/banshee-data/sholl/internal/sholl"
)

// XY is a point on a profile plot: radius against count or length.
type XY struct {
	X, Y float64
}

// LinearStats describes a profile on its linear scale and can fit it with a
// polynomial. Metrics of the sampled data are read through Sampled, metrics
// of the fitted curve through Fitted.
type LinearStats struct {
	profile  *sholl.Profile
	mode     DataMode
	radii    []float64
	values   []float64
	primary  int // <1: inferred from the first value
	coeffs   []float64
	fitted   []float64
	stepSize float64
}

// NewLinearStats reads the radii and the mode-selected values of p.
func NewLinearStats(p *sholl.Profile, mode DataMode) (*LinearStats, error) {
	radii, values, err := sampledData(p, mode)
	if err != nil {
		return nil, err
	}
	return &LinearStats{
		profile:  p,
		mode:     mode,
		radii:    radii,
		values:   values,
		stepSize: p.StepSize(),
	}, nil
}

// DataMode returns the analysed entry field.
func (s *LinearStats) DataMode() DataMode { return s.mode }

// Profile returns the source profile. Callers must not mutate it.
func (s *LinearStats) Profile() *sholl.Profile { return s.profile }

// N returns the number of sampled points.
func (s *LinearStats) N() int { return len(s.radii) }

// XValues returns the sampled radii.
func (s *LinearStats) XValues() []float64 { return append([]float64(nil), s.radii...) }

// YValues returns the sampled counts or lengths.
func (s *LinearStats) YValues() []float64 { return append([]float64(nil), s.values...) }

// SetPrimaryBranches fixes the number of primary branches. Values below 1
// restore inference from the first sampled value.
func (s *LinearStats) SetPrimaryBranches(n int) {
	if n < 1 {
		n = 0
	}
	s.primary = n
}

// PrimaryBranchesInferred reports whether primary branches come from the data.
func (s *LinearStats) PrimaryBranchesInferred() bool { return s.primary < 1 }

// Sampled returns metrics over the sampled data.
func (s *LinearStats) Sampled() Metrics {
	return Metrics{radii: s.radii, values: s.values, primary: s.primary}
}

// Fitted returns metrics over the polynomial fit evaluated at each radius.
func (s *LinearStats) Fitted() (Metrics, error) {
	if !s.ValidFit() {
		return Metrics{}, ErrNoFit
	}
	return Metrics{radii: s.radii, values: s.fitted, primary: s.primary}, nil
}

// ValidFit reports whether a polynomial fit is available.
func (s *LinearStats) ValidFit() bool { return s.coeffs != nil && len(s.fitted) > 0 }

// FitYValues returns the fitted values at every radius.
func (s *LinearStats) FitYValues() ([]float64, error) {
	if !s.ValidFit() {
		return nil, ErrNoFit
	}
	return append([]float64(nil), s.fitted...), nil
}

// FitPolynomial fits the finite samples with a least-squares polynomial of
// the given degree. Degree 0 is the constant mean.
func (s *LinearStats) FitPolynomial(degree int) error {
	xs, ys := finitePairs(s.radii, s.values)
	if degree < 0 || (degree > 0 && degree >= len(xs)) {
		s.invalidateFit()
		return fmt.Errorf("%w: degree %d with %d finite points", ErrInvalidRange, degree, len(xs))
	}
	if len(xs) == 0 {
		s.invalidateFit()
		return fmt.Errorf("%w: no finite points", ErrInvalidRange)
	}

	var coeffs []float64
	if degree == 0 {
		coeffs = []float64{stat.Mean(ys, nil)}
	} else {
		var err error
		if coeffs, err = solveScaled(xs, ys, degree); err != nil {
			s.invalidateFit()
			return fmt.Errorf("polynomial fit of degree %d: %w", degree, err)
		}
	}

	s.coeffs = coeffs
	s.fitted = make([]float64, len(s.radii))
	for i, r := range s.radii {
		s.fitted[i] = polyValue(coeffs, r)
	}
	return nil
}

// FindBestFit fits every degree in [from, to] and keeps the one with the
// highest R² above minRSquared. It returns -1, with no fit kept, when no
// degree qualifies. Constant data fits degree 0 and two points fit degree 1.
func (s *LinearStats) FindBestFit(from, to int, minRSquared float64) int {
	xs, ys := finitePairs(s.radii, s.values)
	if len(ys) > 0 && floats.Min(ys) == floats.Max(ys) {
		monitoring.Logf("[stats] constant distribution: falling back to constant function")
		if s.FitPolynomial(0) != nil {
			return -1
		}
		return 0
	}
	if len(xs) == 2 {
		if s.FitPolynomial(1) != nil {
			return -1
		}
		return 1
	}

	first := min(from, len(xs)-1)
	last := min(to, len(xs)-1)
	best, bestR2 := -1, 0.0
	var bestCoeffs, bestFitted []float64
	for deg := first; deg <= last; deg++ {
		if err := s.FitPolynomial(deg); err != nil {
			monitoring.Logf("[stats] degree %d fit failed: %v", deg, err)
			continue
		}
		r2, _ := s.RSquaredOfFit(false)
		if !(r2 > minRSquared && r2 > bestR2) {
			continue
		}
		best, bestR2 = deg, r2
		bestCoeffs, bestFitted = s.coeffs, s.fitted
	}
	s.coeffs, s.fitted = bestCoeffs, bestFitted
	return best
}

// solveScaled fits ys against xs mapped onto [-1, 1], which keeps the
// Vandermonde matrix well conditioned for large radii, and returns the
// coefficients in the original variable.
func solveScaled(xs, ys []float64, degree int) ([]float64, error) {
	lo, hi := floats.Min(xs), floats.Max(xs)
	center, half := (lo+hi)/2, (hi-lo)/2
	if !(half > 0) {
		return nil, fmt.Errorf("%w: all abscissae equal", ErrInvalidRange)
	}

	a := mat.NewDense(len(xs), degree+1, nil)
	for i, x := range xs {
		u := (x - center) / half
		v := 1.0
		for j := 0; j <= degree; j++ {
			a.Set(i, j, v)
			v *= u
		}
	}
	var c mat.VecDense
	if err := c.SolveVec(a, mat.NewVecDense(len(ys), ys)); err != nil {
		var cond mat.Condition
		if !errors.As(err, &cond) || math.IsInf(float64(cond), 1) {
			return nil, err
		}
		monitoring.Logf("[stats] degree %d fit is ill-conditioned: %v", degree, err)
	}

	// Horner expansion of sum b_j ((x-center)/half)^j.
	coeffs := make([]float64, degree+1)
	for j := degree; j >= 0; j-- {
		next := make([]float64, degree+1)
		for k := degree; k >= 1; k-- {
			next[k] = coeffs[k-1]/half - coeffs[k]*center/half
		}
		next[0] = -coeffs[0]*center/half + c.AtVec(j)
		coeffs = next
	}
	return coeffs, nil
}

func (s *LinearStats) invalidateFit() {
	s.coeffs = nil
	s.fitted = nil
}

// Polynomial returns the fitted coefficients, constant term first.
func (s *LinearStats) Polynomial() ([]float64, error) {
	if !s.ValidFit() {
		return nil, ErrNoFit
	}
	return append([]float64(nil), s.coeffs...), nil
}

// PolynomialDegree returns the degree of the fitted polynomial.
func (s *LinearStats) PolynomialDegree() (int, error) {
	if !s.ValidFit() {
		return 0, ErrNoFit
	}
	return len(s.coeffs) - 1, nil
}

// PolynomialLabel returns an ordinal label such as "2nd deg.".
func (s *LinearStats) PolynomialLabel() (string, error) {
	deg, err := s.PolynomialDegree()
	if err != nil {
		return "", err
	}
	suffix := "th"
	if deg%100 < 11 || deg%100 > 13 {
		switch deg % 10 {
		case 1:
			suffix = "st"
		case 2:
			suffix = "nd"
		case 3:
			suffix = "rd"
		}
	}
	return strconv.Itoa(deg) + suffix + " deg.", nil
}

// RSquaredOfFit returns the coefficient of determination of the polynomial
// against the sampled data. The adjusted form penalizes degree-1 predictors.
func (s *LinearStats) RSquaredOfFit(adjusted bool) (float64, error) {
	if !s.ValidFit() {
		return math.NaN(), ErrNoFit
	}
	ys, fs := finitePairs(s.values, s.fitted)
	mean := stat.Mean(ys, nil)
	var ssRes, ssTot float64
	for i, y := range ys {
		ssRes += (y - fs[i]) * (y - fs[i])
		ssTot += (y - mean) * (y - mean)
	}
	r2 := 1 - ssRes/ssTot
	if adjusted {
		n := float64(len(ys))
		p := float64(len(s.coeffs) - 2)
		r2 -= (1 - r2) * (p / (n - p - 1))
	}
	return r2, nil
}

// MeanValueOfPolynomialFit returns the mean of the fitted polynomial over
// [lo, hi], integrating it exactly.
func (s *LinearStats) MeanValueOfPolynomialFit(lo, hi float64) (float64, error) {
	if !s.ValidFit() {
		return math.NaN(), ErrNoFit
	}
	if !(hi > lo) {
		return math.NaN(), fmt.Errorf("%w: [%g, %g]", ErrInvalidRange, lo, hi)
	}
	anti := make([]float64, len(s.coeffs)+1)
	for j, c := range s.coeffs {
		anti[j+1] = c / float64(j+1)
	}
	return (polyValue(anti, hi) - polyValue(anti, lo)) / (hi - lo), nil
}

// PolynomialMaxima returns the local maxima of the fitted polynomial inside
// [lo, hi], highest first. Critical points are the real eigenvalues of the
// derivative's companion matrix; a point counts as a maximum when it beats
// its neighbours one step size away.
func (s *LinearStats) PolynomialMaxima(lo, hi float64) ([]XY, error) {
	if !s.ValidFit() {
		return nil, ErrNoFit
	}
	deriv := make([]float64, 0, len(s.coeffs))
	for j := 1; j < len(s.coeffs); j++ {
		deriv = append(deriv, float64(j)*s.coeffs[j])
	}
	for len(deriv) > 0 && deriv[len(deriv)-1] == 0 {
		deriv = deriv[:len(deriv)-1]
	}
	m := len(deriv) - 1
	if m < 1 {
		return nil, nil
	}

	companion := mat.NewDense(m, m, nil)
	lead := deriv[m]
	for i := 0; i < m; i++ {
		if i > 0 {
			companion.Set(i, i-1, 1)
		}
		companion.Set(i, m-1, -deriv[i]/lead)
	}
	var eig mat.Eigen
	if !eig.Factorize(companion, mat.EigenNone) {
		return nil, fmt.Errorf("polynomial maxima: eigen decomposition failed")
	}

	tol := s.stepSize
	if !(tol > 0) {
		tol = 1e-6 * math.Max(1, math.Abs(hi-lo))
	}
	var out []XY
	for _, root := range eig.Values(nil) {
		if math.Abs(imag(root)) > 1e-9*math.Max(1, math.Abs(real(root))) {
			continue
		}
		x := real(root)
		if x < lo || x > hi {
			continue
		}
		y := polyValue(s.coeffs, x)
		if y > polyValue(s.coeffs, x-tol) && y > polyValue(s.coeffs, x+tol) {
			out = append(out, XY{X: x, Y: y})
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Y > out[j].Y })
	return out, nil
}

// Metrics computes descriptive statistics over one series of a LinearStats.
type Metrics struct {
	radii   []float64
	values  []float64
	primary int
}

// Values returns the analysed series.
func (m Metrics) Values() []float64 { return append([]float64(nil), m.values...) }

// Max returns the largest value.
func (m Metrics) Max() float64 { return floats.Max(m.values) }

// Min returns the smallest value.
func (m Metrics) Min() float64 { return floats.Min(m.values) }

// Mean returns the arithmetic mean.
func (m Metrics) Mean() float64 { return stat.Mean(m.values, nil) }

// Median returns the median, averaging the middle pair for even counts.
func (m Metrics) Median() float64 { return sholl.Median(m.values) }

// Sum returns the sum of the values.
func (m Metrics) Sum() float64 { return floats.Sum(m.values) }

// SumSq returns the sum of the squared values.
func (m Metrics) SumSq() float64 { return floats.Dot(m.values, m.values) }

// Variance returns the unbiased sample variance.
func (m Metrics) Variance() float64 { return stat.Variance(m.values, nil) }

// Skewness returns the bias-corrected sample skewness.
func (m Metrics) Skewness() float64 { return stat.Skew(m.values, nil) }

// Kurtosis returns the bias-corrected sample excess kurtosis.
func (m Metrics) Kurtosis() float64 { return stat.ExKurtosis(m.values, nil) }

// Centroid returns the mean radius and mean value.
func (m Metrics) Centroid() XY {
	n := float64(len(m.radii))
	return XY{X: floats.Sum(m.radii) / n, Y: floats.Sum(m.values) / n}
}

// PolygonCentroid returns the centroid of the polygon traced by the profile.
func (m Metrics) PolygonCentroid() XY {
	var area, sumX, sumY float64
	for i := 1; i < len(m.radii); i++ {
		c := m.radii[i-1]*m.values[i] - m.radii[i]*m.values[i-1]
		sumX += (m.radii[i-1] + m.radii[i]) * c
		sumY += (m.values[i-1] + m.values[i]) * c
		area += c / 2
	}
	return XY{X: sumX / (6 * area), Y: sumY / (6 * area)}
}

// EnclosingRadius returns the largest radius whose value is at least cutoff,
// or NaN when no value reaches it.
func (m Metrics) EnclosingRadius(cutoff float64) float64 {
	for i := len(m.values) - 1; i >= 0; i-- {
		if m.values[i] >= cutoff {
			return m.radii[i]
		}
	}
	return math.NaN()
}

// IntersectingRadii returns the number of radii with a positive value.
func (m Metrics) IntersectingRadii() int {
	n := 0
	for _, v := range m.values {
		if v > 0 {
			n++
		}
	}
	return n
}

// Maxima returns every point that attains the maximum value.
func (m Metrics) Maxima() []XY {
	top := m.Max()
	var out []XY
	for i, v := range m.values {
		if v == top {
			out = append(out, XY{X: m.radii[i], Y: v})
		}
	}
	return out
}

// CenteredMaximum averages the positions of all maxima.
func (m Metrics) CenteredMaximum() XY {
	var c XY
	maxima := m.Maxima()
	for _, p := range maxima {
		c.X += p.X
		c.Y += p.Y
	}
	n := float64(len(maxima))
	return XY{X: c.X / n, Y: c.Y / n}
}

// PrimaryBranches returns the explicit primary branch count, or the first
// value of the series when none was set.
func (m Metrics) PrimaryBranches() float64 {
	if m.primary >= 1 {
		return float64(m.primary)
	}
	if len(m.values) == 0 {
		return math.NaN()
	}
	return m.values[0]
}

// RamificationIndex returns Max / PrimaryBranches.
func (m Metrics) RamificationIndex() float64 { return m.Max() / m.PrimaryBranches() }

// BranchingIndex sums the positive increments between consecutive values,
// each weighted by its index.
func (m Metrics) BranchingIndex() float64 {
	var bi float64
	for i := 1; i < len(m.values); i++ {
		if v := (m.values[i] - m.values[i-1]) * float64(i); v > 0 {
			bi += v
		}
	}
	return bi
}

// IndexOfRadius returns the first index of the largest radius <= r, or -1.
func (m Metrics) IndexOfRadius(r float64) int { return floorIndex(m.radii, r) }

func polyValue(coeffs []float64, x float64) float64 {
	var y float64
	for j := len(coeffs) - 1; j >= 0; j-- {
		y = y*x + coeffs[j]
	}
	return y
}

func finitePairs(xs, ys []float64) ([]float64, []float64) {
	outX := make([]float64, 0, len(xs))
	outY := make([]float64, 0, len(ys))
	for i := range xs {
		if finite(xs[i]) && finite(ys[i]) {
			outX = append(outX, xs[i])
			outY = append(outY, ys[i])
		}
	}
	return outX, outY
}
