package sholl

import (
	"fmt"
	"math"
	"sort"
)

// Radii returns the schedule start, start+step, ... up to end inclusive.
func Radii(start, step, end float64) ([]float64, error) {
	if math.IsNaN(start) || math.IsNaN(step) || math.IsNaN(end) || step <= 0 || end < start {
		return nil, fmt.Errorf("invalid radii parameters: start=%g step=%g end=%g", start, step, end)
	}
	size := int((end-start)/step) + 1
	out := make([]float64, size)
	for i := range out {
		out[i] = start + float64(i)*step
	}
	return out, nil
}

// ClampedRadii builds a schedule with NaN fields replaced by defaults: start
// and step are at least voxelSize and end is capped at maxRadius.
func ClampedRadii(start, step, end, voxelSize, maxRadius float64) ([]float64, error) {
	fStart := voxelSize
	if !math.IsNaN(start) {
		fStart = math.Max(voxelSize, start)
	}
	fEnd := maxRadius
	if !math.IsNaN(end) {
		fEnd = math.Min(end, maxRadius)
	}
	fStep := voxelSize
	if !math.IsNaN(step) {
		fStep = math.Max(step, voxelSize)
	}
	return Radii(fStart, fStep, fEnd)
}

// MaxPossibleRadius returns the largest distance from center to any corner of
// a width x height image in calibrated units.
func MaxPossibleRadius(center Point, width, height int, cal Calibration) float64 {
	pw, ph := cal.PixelSizes()
	maxX := float64(width-1) * pw
	maxY := float64(height-1) * ph
	corners := []Point{{}, {X: maxX}, {Y: maxY}, {X: maxX, Y: maxY}}
	var best float64
	for _, c := range corners {
		c.Z = center.Z
		best = math.Max(best, center.DistanceSquaredTo(c))
	}
	return math.Sqrt(best)
}

// Median returns the median of values, averaging the two middle values for
// even lengths. NaN values are ignored; an empty input returns NaN.
func Median(values []float64) float64 {
	sorted := make([]float64, 0, len(values))
	for _, v := range values {
		if !math.IsNaN(v) {
			sorted = append(sorted, v)
		}
	}
	if len(sorted) == 0 {
		return math.NaN()
	}
	sort.Float64s(sorted)

	mid := len(sorted) / 2
	if len(sorted)%2 == 0 {
		return (sorted[mid-1] + sorted[mid]) / 2
	}
	return sorted[mid]
}
