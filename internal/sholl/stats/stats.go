package stats

import (
	"errors"
	"fmt"
)

// ErrUnknownKind is returned by Summarize for a Stats with an unknown Kind.
var ErrUnknownKind = errors.New("unknown stats kind")

// Kind discriminates the Stats variants.
type Kind int

const (
	KindLinear Kind = iota + 1
	KindNormalized
)

func (k Kind) String() string {
	switch k {
	case KindLinear:
		return "Linear"
	case KindNormalized:
		return "Normalized"
	}
	return fmt.Sprintf("Kind(%d)", int(k))
}

// Stats is a closed union over the statistics variants. Exactly the field
// named by Kind is set.
type Stats struct {
	Kind       Kind
	Linear     *LinearStats
	Normalized *NormalizedStats
}

// NewLinear wraps s as a Stats value.
func NewLinear(s *LinearStats) Stats { return Stats{Kind: KindLinear, Linear: s} }

// NewNormalized wraps s as a Stats value.
func NewNormalized(s *NormalizedStats) Stats { return Stats{Kind: KindNormalized, Normalized: s} }

// Metric is one labelled value of a Summary.
type Metric struct {
	Label string
	Value float64
}

// Summary is a flat list of labelled metrics for tables and plot legends.
type Summary struct {
	Kind    Kind
	Title   string
	Metrics []Metric
}

// Get returns the value stored under label.
func (s Summary) Get(label string) (float64, bool) {
	for _, m := range s.Metrics {
		if m.Label == label {
			return m.Value, true
		}
	}
	return 0, false
}

func (s *Summary) add(label string, v float64) {
	s.Metrics = append(s.Metrics, Metric{Label: label, Value: v})
}

// Summarize flattens the variant held by s.
func Summarize(s Stats) (Summary, error) {
	switch s.Kind {
	case KindLinear:
		if s.Linear == nil {
			return Summary{}, fmt.Errorf("%w: %s without data", ErrUnknownKind, s.Kind)
		}
		return summarizeLinear(s.Linear), nil
	case KindNormalized:
		if s.Normalized == nil {
			return Summary{}, fmt.Errorf("%w: %s without data", ErrUnknownKind, s.Kind)
		}
		return summarizeNormalized(s.Normalized), nil
	default:
		return Summary{}, fmt.Errorf("%w: %v", ErrUnknownKind, s.Kind)
	}
}

func summarizeLinear(ls *LinearStats) Summary {
	m := ls.Sampled()
	sum := Summary{Kind: KindLinear, Title: fmt.Sprintf("Linear profile (%s)", ls.DataMode())}
	centroid := m.Centroid()
	centered := m.CenteredMaximum()

	sum.add("Max", m.Max())
	sum.add("Max radius", centered.X)
	sum.add("Min", m.Min())
	sum.add("Mean", m.Mean())
	sum.add("Median", m.Median())
	sum.add("Sum", m.Sum())
	sum.add("Variance", m.Variance())
	sum.add("Skewness", m.Skewness())
	sum.add("Kurtosis", m.Kurtosis())
	sum.add("Centroid radius", centroid.X)
	sum.add("Centroid value", centroid.Y)
	sum.add("Enclosing radius", m.EnclosingRadius(1))
	sum.add("Intersecting radii", float64(m.IntersectingRadii()))
	sum.add("Primary branches", m.PrimaryBranches())
	sum.add("Ramification index", m.RamificationIndex())
	sum.add("Branching index", m.BranchingIndex())

	if deg, err := ls.PolynomialDegree(); err == nil {
		sum.add("Polynomial degree", float64(deg))
		r2, _ := ls.RSquaredOfFit(false)
		sum.add("Polynomial R²", r2)
		r2adj, _ := ls.RSquaredOfFit(true)
		sum.add("Polynomial R² (adj)", r2adj)
	}
	return sum
}

func summarizeNormalized(ns *NormalizedStats) Summary {
	fit := ns.Fit()
	sum := Summary{
		Kind:  KindNormalized,
		Title: fmt.Sprintf("%s normalized by %s (%s)", ns.Method(), ns.Normalizer(), fit.State),
	}
	sum.add("Sholl decay", fit.Decay())
	sum.add("Intercept", fit.Intercept)
	sum.add("R", fit.R)
	sum.add("R²", fit.RSquared)
	sum.add("N", float64(fit.N))
	sum.add("Determination ratio", ns.DeterminationRatio())
	if fit.State == FitRestricted {
		sum.add("Range start", fit.Range.X1)
		sum.add("Range end", fit.Range.X2)
	}
	return sum
}
