package stats

import (
	"errors"
	"fmt"
	"math"
	"sort"
	"strconv"

	"gonum.org/v1/gonum/stat"

	"github.com/banshee-data/sholl/internal/monitoring"
	"github.com/banshee-data/sholl/internal/sholl"
)

// ErrInvalidRange is returned when a restriction range or percentile pair is
// NaN, inverted or out of bounds.
var ErrInvalidRange = errors.New("invalid fit range")

// FitState tells whether the chosen regression covers every finite point or
// a restricted abscissa range.
type FitState int

const (
	FitFull FitState = iota
	FitRestricted
)

func (s FitState) String() string {
	if s == FitRestricted {
		return "Restricted"
	}
	return "Full"
}

// Range is an inclusive abscissa interval.
type Range struct {
	X1, X2 float64
}

// Fit is a snapshot of the chosen regression together with the state it was
// read in.
type Fit struct {
	State     FitState
	Range     Range // zero unless State is FitRestricted
	N         int
	Slope     float64
	Intercept float64
	R         float64
	RSquared  float64
}

// Decay returns the Sholl decay, the negated slope.
func (f Fit) Decay() float64 { return -f.Slope }

// Predict returns the fitted ordinate at x.
func (f Fit) Predict(x float64) float64 { return f.Intercept + f.Slope*x }

// NormalizedStats fits log-normalized profile counts with semi-log and
// log-log regressions and exposes the better one, or the one requested.
//
// Restrictions mutate the chosen regression; Reset rebuilds it. A
// NormalizedStats is not safe for concurrent use.
type NormalizedStats struct {
	profile   *sholl.Profile
	mode      DataMode
	norm      Normalizer
	requested Method
	method    Method

	radii     []float64
	values    []float64
	radiiLog  []float64
	ordinates []float64
	fallback  bool

	semiLog Regression
	logLog  Regression
	ratio   float64

	// chosen points at semiLog or logLog; xdata is the matching abscissa.
	chosen *Regression
	xdata  []float64
	active []bool
	state  FitState
	rng    Range
}

// NewNormalizedStats normalizes p by norm and selects the fit for method.
//
// A profile whose ordinates are all NaN is accepted; its fit is degenerate
// with NaN slope and R².
func NewNormalizedStats(p *sholl.Profile, mode DataMode, norm Normalizer, method Method) (*NormalizedStats, error) {
	if _, ok := normalizers[norm]; !ok {
		return nil, fmt.Errorf("%w: normalizer %d", ErrUnrecognizedFlag, int(norm))
	}
	if method != SemiLog && method != LogLog && method != Auto {
		return nil, fmt.Errorf("%w: method %d", ErrUnrecognizedFlag, int(method))
	}
	radii, values, err := sampledData(p, mode)
	if err != nil {
		return nil, err
	}
	if p.Is2D() && norm.Is3D() {
		return nil, fmt.Errorf("%w: %s normalization on a 2-D profile", ErrDimensionMismatch, norm)
	}

	s := &NormalizedStats{
		profile:   p,
		mode:      mode,
		norm:      norm,
		requested: method,
		radii:     radii,
		values:    values,
	}
	s.normalize()

	s.radiiLog = make([]float64, len(radii))
	for i, r := range radii {
		s.radiiLog[i] = math.NaN()
		if r > 0 {
			s.radiiLog[i] = math.Log(r)
		}
	}

	for i, y := range s.ordinates {
		if !finite(y) {
			continue
		}
		s.semiLog.Add(radii[i], y)
		if finite(s.radiiLog[i]) {
			s.logLog.Add(s.radiiLog[i], y)
		}
	}

	num := s.semiLog.RSquared()
	if !finite(num) {
		num = 0
	}
	den := s.logLog.RSquared()
	if !finite(den) || den <= 0 {
		den = math.SmallestNonzeroFloat64
	}
	s.ratio = num / den

	s.method = method
	if method == Auto {
		s.method = LogLog
		if s.ratio >= 1 {
			s.method = SemiLog
		}
	}
	s.assignChosen()
	s.Reset()

	if s.chosen.N() < 2 {
		monitoring.Logf("[stats] %s fit of profile %s is degenerate: %d finite point(s)", s.method, p.ID(), s.chosen.N())
	}
	return s, nil
}

func (s *NormalizedStats) assignChosen() {
	if s.method == SemiLog {
		s.chosen, s.xdata = &s.semiLog, s.radii
		return
	}
	s.chosen, s.xdata = &s.logLog, s.radiiLog
}

// normalize fills the ordinates log(value/divisor), NaN where undefined.
func (s *NormalizedStats) normalize() {
	var divisor func(r float64) float64
	switch s.norm {
	case Area:
		divisor = func(r float64) float64 { return math.Pi * r * r }
	case Perimeter:
		divisor = perimeter
	case Volume:
		divisor = func(r float64) float64 { return 4.0 / 3.0 * math.Pi * r * r * r }
	case Surface:
		divisor = surface
	case Annulus:
		if dr := s.effectiveStep(); dr > 0 {
			divisor = func(r float64) float64 {
				r1, r2 := r-dr/2, r+dr/2
				return math.Pi * (r2*r2 - r1*r1)
			}
		} else {
			s.fallback = true
			divisor = perimeter
		}
	case SphericalShell:
		if dr := s.effectiveStep(); dr > 0 {
			divisor = func(r float64) float64 {
				r1, r2 := r-dr/2, r+dr/2
				return 4.0 / 3.0 * math.Pi * (r2*r2*r2 - r1*r1*r1)
			}
		} else {
			s.fallback = true
			divisor = surface
		}
	}
	if s.fallback {
		monitoring.Logf("[stats] no radial step resolvable for profile %s: %s normalized by the Δr→0 limit", s.profile.ID(), s.norm)
	}

	s.ordinates = make([]float64, len(s.radii))
	for i, r := range s.radii {
		d, c := divisor(r), s.values[i]
		s.ordinates[i] = math.NaN()
		if d > 0 && c > 0 {
			s.ordinates[i] = math.Log(c / d)
		}
	}
}

func perimeter(r float64) float64 { return 2 * math.Pi * r }

func surface(r float64) float64 { return 4 * math.Pi * r * r }

// effectiveStep resolves the shell thickness Δr: the nominal step, then the
// stored effective step, then the median positive spacing of the radii.
// It returns 0 when none is available.
func (s *NormalizedStats) effectiveStep() float64 {
	if dr := s.profile.StepSize(); dr > 0 {
		return dr
	}
	if prop := s.profile.Property(sholl.KeyEffectiveStepSize, ""); prop != "" {
		if dr, err := strconv.ParseFloat(prop, 64); err == nil && dr > 0 {
			return dr
		}
	}
	var deltas []float64
	for i := 1; i < len(s.radii); i++ {
		if d := math.Abs(s.radii[i] - s.radii[i-1]); d > 0 && finite(d) {
			deltas = append(deltas, d)
		}
	}
	if dr := sholl.Median(deltas); dr > 0 && finite(dr) {
		return dr
	}
	return 0
}

// RestrictToRange drops the points of the chosen regression whose abscissa
// lies outside [x1, x2]. Each bound is snapped down to the nearest sampled
// abscissa. Restricting an already restricted fit narrows it further.
func (s *NormalizedStats) RestrictToRange(x1, x2 float64) error {
	if math.IsNaN(x1) || math.IsNaN(x2) || x1 > x2 {
		return fmt.Errorf("%w: [%g, %g]", ErrInvalidRange, x1, x2)
	}
	i1 := floorIndex(s.xdata, x1)
	i2 := floorIndex(s.xdata, x2)
	for i := range s.xdata {
		if (i < i1 || i > i2) && s.active[i] {
			s.chosen.Remove(s.xdata[i], s.ordinates[i])
			s.active[i] = false
		}
	}

	if s.state == FitRestricted {
		x1 = math.Max(x1, s.rng.X1)
		x2 = math.Min(x2, s.rng.X2)
	}
	s.state = FitRestricted
	s.rng = Range{X1: x1, X2: x2}
	return nil
}

// RestrictToPercentile restricts the fit to the abscissae between the p1-th
// and p2-th percentiles (0-100) of the finite x data. Percentiles fall
// between sample values by linear interpolation.
func (s *NormalizedStats) RestrictToPercentile(p1, p2 float64) error {
	if math.IsNaN(p1) || math.IsNaN(p2) || p1 < 0 || p2 > 100 || p1 > p2 {
		return fmt.Errorf("%w: percentiles %g, %g", ErrInvalidRange, p1, p2)
	}
	var xs []float64
	for _, x := range s.xdata {
		if finite(x) {
			xs = append(xs, x)
		}
	}
	if len(xs) == 0 {
		return fmt.Errorf("%w: no finite abscissae", ErrInvalidRange)
	}
	sort.Float64s(xs)
	x1 := stat.Quantile(p1/100, stat.LinInterp, xs, nil)
	x2 := stat.Quantile(p2/100, stat.LinInterp, xs, nil)
	return s.RestrictToRange(x1, x2)
}

// Reset rebuilds the chosen regression from every finite point.
func (s *NormalizedStats) Reset() {
	s.chosen.Clear()
	s.active = make([]bool, len(s.xdata))
	for i, x := range s.xdata {
		if y := s.ordinates[i]; finite(x) && finite(y) {
			s.chosen.Add(x, y)
			s.active[i] = true
		}
	}
	s.state = FitFull
	s.rng = Range{}
}

// Fit returns a snapshot of the chosen regression.
func (s *NormalizedStats) Fit() Fit {
	r := s.chosen
	return Fit{
		State:     s.state,
		Range:     s.rng,
		N:         r.N(),
		Slope:     r.Slope(),
		Intercept: r.Intercept(),
		R:         r.R(),
		RSquared:  r.RSquared(),
	}
}

// State returns the current fit state.
func (s *NormalizedStats) State() FitState { return s.state }

// ValidFit reports whether a regression has been chosen. It does not imply
// that the fit is statistically meaningful.
func (s *NormalizedStats) ValidFit() bool { return s.chosen != nil }

// DivisorFallback reports whether Annulus or SphericalShell had no resolvable
// Δr and fell back to the Perimeter or Surface divisor.
func (s *NormalizedStats) DivisorFallback() bool { return s.fallback }

// DeterminationRatio returns R²(semi-log) / R²(log-log).
func (s *NormalizedStats) DeterminationRatio() float64 { return s.ratio }

// Normalizer returns the normalizer.
func (s *NormalizedStats) Normalizer() Normalizer { return s.norm }

// Method returns the chosen method, never Auto.
func (s *NormalizedStats) Method() Method { return s.method }

// RequestedMethod returns the method passed to NewNormalizedStats.
func (s *NormalizedStats) RequestedMethod() Method { return s.requested }

// DataMode returns the analysed entry field.
func (s *NormalizedStats) DataMode() DataMode { return s.mode }

// Profile returns the source profile. Callers must not mutate it.
func (s *NormalizedStats) Profile() *sholl.Profile { return s.profile }

// SemiLog returns a snapshot of the semi-log accumulator. When semi-log is
// the chosen method the snapshot reflects any active restriction.
func (s *NormalizedStats) SemiLog() Regression { return s.semiLog }

// LogLog returns a snapshot of the log-log accumulator.
func (s *NormalizedStats) LogLog() Regression { return s.logLog }

// XValues returns the abscissae of the chosen method: radii for semi-log,
// their natural log for log-log.
func (s *NormalizedStats) XValues() []float64 { return append([]float64(nil), s.xdata...) }

// YValues returns the normalized log ordinates.
func (s *NormalizedStats) YValues() []float64 { return append([]float64(nil), s.ordinates...) }

// Radii returns the sampled radii.
func (s *NormalizedStats) Radii() []float64 { return append([]float64(nil), s.radii...) }

// FitYValues returns the chosen regression evaluated at every abscissa.
func (s *NormalizedStats) FitYValues() []float64 {
	out := make([]float64, len(s.xdata))
	for i, x := range s.xdata {
		out[i] = s.chosen.Predict(x)
	}
	return out
}

// floorIndex returns the first index holding the largest finite value that
// is <= v, or -1 when there is none.
func floorIndex(xs []float64, v float64) int {
	best := math.Inf(-1)
	found := false
	for _, x := range xs {
		if finite(x) && x <= v && (!found || x > best) {
			best, found = x, true
		}
	}
	if !found {
		return -1
	}
	for i, x := range xs {
		if x == best {
			return i
		}
	}
	return -1
}

func finite(v float64) bool { return !math.IsNaN(v) && !math.IsInf(v, 0) }
