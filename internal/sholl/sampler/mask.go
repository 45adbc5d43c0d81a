package sampler

import (
	"fmt"
	"image"
	"math"

	"github.com/banshee-data/sholl/internal/sholl"
	"github.com/banshee-data/sholl/internal/sholl/ring"
)

// Heatmap is a float raster of per-pixel profile values. Pixels that were
// not painted hold NaN.
type Heatmap struct {
	Rect image.Rectangle
	Pix  []float64
}

// NewHeatmap returns a heatmap covering r with every pixel unset.
func NewHeatmap(r image.Rectangle) *Heatmap {
	pix := make([]float64, r.Dx()*r.Dy())
	for i := range pix {
		pix[i] = math.NaN()
	}
	return &Heatmap{Rect: r, Pix: pix}
}

// At returns the value at (x, y), or NaN outside Rect.
func (h *Heatmap) At(x, y int) float64 {
	if !(image.Point{X: x, Y: y}).In(h.Rect) {
		return math.NaN()
	}
	return h.Pix[(y-h.Rect.Min.Y)*h.Rect.Dx()+(x-h.Rect.Min.X)]
}

// Set stores v at (x, y). Points outside Rect are ignored.
func (h *Heatmap) Set(x, y int, v float64) {
	if !(image.Point{X: x, Y: y}).In(h.Rect) {
		return
	}
	h.Pix[(y-h.Rect.Min.Y)*h.Rect.Dx()+(x-h.Rect.Min.X)] = v
}

// Range returns the smallest and largest painted values. Both are NaN when
// nothing was painted.
func (h *Heatmap) Range() (lo, hi float64) {
	lo, hi = math.Inf(1), math.Inf(-1)
	for _, v := range h.Pix {
		if math.IsNaN(v) {
			continue
		}
		lo = math.Min(lo, v)
		hi = math.Max(hi, v)
	}
	if math.IsInf(lo, 1) {
		return math.NaN(), math.NaN()
	}
	return lo, hi
}

// Mask paints the foreground pixels of every sampled ring band with the
// matching value. Band i covers the pixel radii from entry i up to, but not
// including, entry i+1; the last band is as wide as the one before it.
// A nil values slice paints the profile counts.
func (s *Sampler) Mask(p *sholl.Profile, values []float64) (*Heatmap, error) {
	if p == nil || p.Len() == 0 {
		return nil, sholl.ErrEmptyProfile
	}
	if values == nil {
		values = p.Counts()
	}
	radii := p.Radii()
	if len(values) != len(radii) {
		return nil, fmt.Errorf("mask values: got %d, want %d", len(values), len(radii))
	}

	pixRadii := make([]int, len(radii))
	for i, r := range radii {
		pixRadii[i] = int(math.Round(r / s.voxel))
	}

	h := NewHeatmap(s.img.Bounds())
	c := s.opts.Center
	for i, from := range pixRadii {
		to := from + 1
		switch {
		case i+1 < len(pixRadii):
			to = pixRadii[i+1]
		case i > 0:
			to = from + (from - pixRadii[i-1])
		}
		for r := max(from, 1); r < max(to, from+1); r++ {
			circle := ring.Circle(c.X, c.Y, r)
			for j := 0; j < circle.Len(); j++ {
				pt := circle.At(j)
				if pt.In(s.bounds) && s.opts.Threshold.Contains(s.img.Value(pt.X, pt.Y)) {
					h.Set(pt.X, pt.Y, values[i])
				}
			}
		}
	}
	return h, nil
}
