// Package stats derives descriptive and fitted statistics from a Sholl profile.
//
// Responsibilities:
//   - LinearStats: descriptive metrics of the raw profile (mean, centroid,
//     enclosing radius, ramification index) and an optional polynomial fit.
//   - NormalizedStats: counts divided by a geometric normalizer, log
//     transformed, and fitted with competing semi-log and log-log regressions.
//   - Stats / Summarize: a closed union over both variants for tables and plots.
//
// Key types: Regression, Normalizer, Method, Fit, FitState, LinearStats,
// NormalizedStats, Stats, Summary.
//
// Dependency rule: stats reads sholl.Profile values and never mutates them.
// It must not import the sampler or any rendering package.
package stats
