// Package sampler measures how a thresholded 2-D structure crosses a series
// of concentric rings and records the result as a sholl.Profile.
//
// For every radius the sampler rasterizes one or more neighbouring rings
// (spans), builds a foreground mask along each, optionally suppresses
// single-pixel spikes, and counts the connected runs. Span results are
// combined with the configured Integration.
package sampler

import (
	"context"
	"image"
	"math"
	"sort"
	"strconv"

	"gonum.org/v1/gonum/stat"

	"github.com/banshee-data/sholl/internal/monitoring"
	"github.com/banshee-data/sholl/internal/sholl"
	"github.com/banshee-data/sholl/internal/sholl/ring"
	"github.com/banshee-data/sholl/internal/timeutil"
)

// Sampler turns an image into an intersection profile.
type Sampler struct {
	img    Image
	opts   Options
	bounds image.Rectangle
	voxel  float64
}

// NewSampler validates opts against img.
func NewSampler(img Image, opts Options) (*Sampler, error) {
	if err := opts.validate(img); err != nil {
		return nil, err
	}
	radii := append([]float64(nil), opts.Radii...)
	sort.Float64s(radii)
	opts.Radii = radii

	return &Sampler{
		img:    img,
		opts:   opts,
		bounds: opts.Hemi.bounds(img.Bounds(), opts.Center),
		voxel:  opts.Calibration.VoxelSize2D(),
	}, nil
}

// Options returns the validated options, with radii in ascending order.
func (s *Sampler) Options() Options { return s.opts }

// Sample measures every radius and returns the frozen profile.
//
// The context is checked once per radius. On cancellation the profile holds
// the radii measured so far and is returned together with the context error.
func (s *Sampler) Sample(ctx context.Context) (*sholl.Profile, error) {
	clock := timeutil.OrReal(s.opts.Clock)
	start := clock.Now()

	p := s.newProfile()
	radii := s.opts.Radii
	spans := s.opts.Spans
	total := len(radii) * spans

	monitoring.Logf("[sampler] sampling %d radii, %d span(s) per radius", len(radii), spans)

	counts := make([]float64, 0, spans)
	lengths := make([]float64, 0, spans)
	for i, radius := range radii {
		if err := ctx.Err(); err != nil {
			p.Freeze()
			monitoring.Logf("[sampler] cancelled after %d/%d radii: %v", i, len(radii), err)
			return p, err
		}

		counts, lengths = counts[:0], lengths[:0]
		var points []sholl.Point
		seen := make(map[sholl.Point]struct{})

		intRadius := int(math.Round(radius/s.voxel + float64(spans)/2))
		for span := 0; span < spans; span++ {
			if intRadius < 1 {
				break
			}
			count, length, reps := s.measure(intRadius)
			intRadius--

			counts = append(counts, count)
			lengths = append(lengths, length)
			for _, pt := range reps {
				if _, ok := seen[pt]; !ok {
					seen[pt] = struct{}{}
					points = append(points, pt)
				}
			}
		}

		if len(counts) > 0 {
			entry := sholl.Entry{
				Radius: radius,
				Count:  integrate(s.opts.Integration, counts),
				Length: integrate(s.opts.Integration, lengths),
				Points: points,
			}
			// Radii were validated and sorted, so only duplicates can fail here.
			if err := p.Add(entry); err != nil {
				monitoring.Logf("[sampler] skipping radius %g: %v", radius, err)
			}
		}

		if s.opts.Progress != nil {
			s.opts.Progress((i+1)*spans, total)
		}
	}

	p.Freeze()
	monitoring.Logf("[sampler] sampled %d radii in %v", p.Len(), clock.Since(start))
	return p, nil
}

// measure samples one ring and returns its count, length and the calibrated
// representative points of each run.
func (s *Sampler) measure(intRadius int) (float64, float64, []sholl.Point) {
	c := s.opts.Center
	r := ring.Circle(c.X, c.Y, intRadius)
	m := s.mask(r)
	if s.opts.SpikeSuppression {
		ring.SuppressSpikes(r, m)
	}

	pw, ph := s.opts.Calibration.PixelSizes()
	length := ring.Length(r, m, pw, ph)

	if s.opts.IntensityMode {
		return s.meanIntensity(r), length, nil
	}

	runs := ring.Runs(r, m)
	reps := ring.Representatives(r, runs)
	points := make([]sholl.Point, len(reps))
	for i, px := range reps {
		points[i] = sholl.PixelPoint(px.X, px.Y, s.opts.Calibration)
	}
	return float64(len(runs)), length, points
}

// mask flags ring slots that are inside the sampled bounds and threshold.
func (s *Sampler) mask(r ring.Ring) ring.Mask {
	m := make(ring.Mask, r.Len())
	for i := range m {
		pt := r.At(i)
		if pt.In(s.bounds) && s.opts.Threshold.Contains(s.img.Value(pt.X, pt.Y)) {
			m[i] = 1
		}
	}
	return m
}

// meanIntensity averages the in-threshold intensities over every ring slot.
// Slots outside the bounds or threshold contribute zero.
func (s *Sampler) meanIntensity(r ring.Ring) float64 {
	read := s.img.Value
	if ii, ok := s.img.(IntensityImage); ok {
		read = ii.Intensity
	}
	var sum float64
	for i := 0; i < r.Len(); i++ {
		pt := r.At(i)
		if !pt.In(s.bounds) {
			continue
		}
		if v := read(pt.X, pt.Y); s.opts.Threshold.Contains(v) {
			sum += v
		}
	}
	return sum / float64(r.Len())
}

func (s *Sampler) newProfile() *sholl.Profile {
	o := s.opts
	p := sholl.NewProfile()
	p.SetCalibration(o.Calibration)
	p.SetCenter(sholl.PixelPoint(o.Center.X, o.Center.Y, o.Calibration))
	p.SetNDimensions(2)
	p.SetIntensityProfile(o.IntensityMode)
	p.SetProperty(sholl.KeySource, sholl.SourceImage)
	p.SetProperty(sholl.KeyThresholdRange, o.Threshold.String())
	p.SetProperty(sholl.KeyNSamples, strconv.Itoa(o.Spans))
	p.SetProperty(sholl.KeyNSamplesIntegration, o.Integration.String())
	p.SetProperty(sholl.KeyHemiShells, o.Hemi.String())
	if o.Position.Channel > 0 {
		p.SetProperty(sholl.KeyChannelPos, strconv.Itoa(o.Position.Channel))
	}
	if o.Position.Slice > 0 {
		p.SetProperty(sholl.KeySlicePos, strconv.Itoa(o.Position.Slice))
	}
	if o.Position.Frame > 0 {
		p.SetProperty(sholl.KeyFramePos, strconv.Itoa(o.Position.Frame))
	}
	if len(o.Radii) > 1 {
		p.SetStepSize(o.Radii[1] - o.Radii[0])
	}
	return p
}

// integrate combines span samples. A single sample is used as-is.
func integrate(method Integration, samples []float64) float64 {
	if len(samples) == 1 {
		return samples[0]
	}
	switch method {
	case IntegrationMean:
		return stat.Mean(samples, nil)
	case IntegrationMedian:
		return sholl.Median(samples)
	case IntegrationMode:
		return mode(samples)
	default:
		return samples[0]
	}
}

// mode returns the most frequent sample, preferring the smallest on ties.
func mode(samples []float64) float64 {
	_, maxCount := stat.Mode(samples, nil)
	sorted := append([]float64(nil), samples...)
	sort.Float64s(sorted)
	for i := 0; i < len(sorted); {
		j := i
		for j < len(sorted) && sorted[j] == sorted[i] {
			j++
		}
		if float64(j-i) == maxCount {
			return sorted[i]
		}
		i = j
	}
	return sorted[0]
}
