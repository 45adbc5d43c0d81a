// Package shollplot renders profiles, normalized fits and Sholl masks.
//
// Static figures are built with gonum/plot and saved through fsutil in any
// format gonum/plot supports (png, svg, pdf, ...). WriteHTML produces an
// interactive go-echarts page.
package shollplot

import (
	"errors"
	"fmt"
	"image/color"
	"math"
	"path/filepath"
	"strings"

	"gonum.org/v1/plot"
	"gonum.org/v1/plot/palette"
	"gonum.org/v1/plot/plotter"
	"gonum.org/v1/plot/vg"
	"gonum.org/v1/plot/vg/draw"

	"github.com/banshee-data/sholl/internal/fsutil"
	"github.com/banshee-data/sholl/internal/sholl"
	"github.com/banshee-data/sholl/internal/sholl/sampler"
	"github.com/banshee-data/sholl/internal/sholl/stats"
)

// ErrNothingToPlot is returned when a series has no finite points.
var ErrNothingToPlot = errors.New("nothing to plot")

var (
	dataColor = color.RGBA{R: 0x1f, G: 0x77, B: 0xb4, A: 255}
	fitColor  = color.RGBA{R: 0xd6, G: 0x27, B: 0x28, A: 255}
)

// Default figure size.
const (
	Width  = 8 * vg.Inch
	Height = 5 * vg.Inch
)

// ProfilePlot plots the sampled profile of ls and, when present, its
// polynomial fit.
func ProfilePlot(ls *stats.LinearStats) (*plot.Plot, error) {
	pts := finiteXYs(ls.XValues(), ls.YValues())
	if len(pts) == 0 {
		return nil, ErrNothingToPlot
	}

	p := plot.New()
	p.Title.Text = "Sholl profile " + ls.Profile().ID()
	p.X.Label.Text = distanceLabel(ls.Profile())
	p.Y.Label.Text = valueLabel(ls.Profile(), ls.DataMode())

	scatter, err := plotter.NewScatter(pts)
	if err != nil {
		return nil, err
	}
	scatter.GlyphStyle.Color = dataColor
	scatter.GlyphStyle.Shape = draw.CircleGlyph{}
	scatter.GlyphStyle.Radius = vg.Points(2.5)
	p.Add(scatter)
	p.Legend.Add("sampled", scatter)

	if fitted, err := ls.FitYValues(); err == nil {
		line, err := plotter.NewLine(finiteXYs(ls.XValues(), fitted))
		if err != nil {
			return nil, err
		}
		line.Color = fitColor
		line.Width = vg.Points(1.5)
		p.Add(line)
		label, _ := ls.PolynomialLabel()
		r2, _ := ls.RSquaredOfFit(false)
		p.Legend.Add(fmt.Sprintf("%s fit (R²=%.3f)", label, r2), line)
	}

	p.Add(plotter.NewGrid())
	p.Legend.Top = true
	p.Legend.XOffs = -10
	p.Legend.YOffs = -10
	return p, nil
}

// NormalizedPlot plots the log-normalized ordinates of ns against its
// abscissae and overlays the chosen regression line.
func NormalizedPlot(ns *stats.NormalizedStats) (*plot.Plot, error) {
	xs := ns.XValues()
	pts := finiteXYs(xs, ns.YValues())
	if len(pts) == 0 {
		return nil, ErrNothingToPlot
	}

	fit := ns.Fit()
	p := plot.New()
	p.Title.Text = fmt.Sprintf("%s method, normalized by %s (%s)", ns.Method(), ns.Normalizer(), fit.State)
	x := distanceLabel(ns.Profile())
	if ns.Method() == stats.LogLog {
		x = "log(" + x + ")"
	}
	p.X.Label.Text = x
	p.Y.Label.Text = fmt.Sprintf("log(%s / %s)", strings.ToLower(ns.DataMode().String()), strings.ToLower(ns.Normalizer().String()))

	scatter, err := plotter.NewScatter(pts)
	if err != nil {
		return nil, err
	}
	scatter.GlyphStyle.Color = dataColor
	scatter.GlyphStyle.Shape = draw.CircleGlyph{}
	scatter.GlyphStyle.Radius = vg.Points(2.5)
	p.Add(scatter)
	p.Legend.Add("normalized", scatter)

	if fit.N >= 2 && !math.IsNaN(fit.Slope) {
		lo, hi := pts[0].X, pts[len(pts)-1].X
		if fit.State == stats.FitRestricted {
			lo, hi = math.Max(lo, fit.Range.X1), math.Min(hi, fit.Range.X2)
		}
		f := plotter.NewFunction(fit.Predict)
		f.XMin, f.XMax = lo, hi
		f.Samples = 2
		f.Color = fitColor
		f.Width = vg.Points(1.5)
		p.Add(f)
		p.Legend.Add(fmt.Sprintf("k=%.4g R²=%.3f", fit.Decay(), fit.RSquared), f)
	}

	p.Add(plotter.NewGrid())
	p.Legend.Top = true
	p.Legend.XOffs = -10
	p.Legend.YOffs = -10
	return p, nil
}

// MaskPlot renders a Sholl mask as a heat map. Unpainted pixels are left
// transparent.
func MaskPlot(h *sampler.Heatmap, title string) (*plot.Plot, error) {
	lo, hi := h.Range()
	if math.IsNaN(lo) {
		return nil, ErrNothingToPlot
	}
	if hi == lo {
		hi = lo + 1
	}

	hm := plotter.NewHeatMap(maskGrid{h: h, lo: lo, hi: hi}, palette.Heat(12, 1))
	hm.Min, hm.Max = lo, hi
	hm.NaN = color.Transparent

	p := plot.New()
	p.Title.Text = title
	p.X.Label.Text = "x (px)"
	p.Y.Label.Text = "y (px)"
	p.Add(hm)
	return p, nil
}

// maskGrid adapts a Heatmap to plotter.GridXYZ, flipping rows so image y
// grows downwards in the figure.
type maskGrid struct {
	h      *sampler.Heatmap
	lo, hi float64
}

func (g maskGrid) Dims() (c, r int) { return g.h.Rect.Dx(), g.h.Rect.Dy() }

func (g maskGrid) Z(c, r int) float64 {
	return g.h.At(g.h.Rect.Min.X+c, g.h.Rect.Max.Y-1-r)
}

func (g maskGrid) X(c int) float64 { return float64(g.h.Rect.Min.X + c) }

func (g maskGrid) Y(r int) float64 { return float64(g.h.Rect.Max.Y - 1 - r) }

func (g maskGrid) Min() float64 { return g.lo }

func (g maskGrid) Max() float64 { return g.hi }

// Save writes p to path on fsys. The extension selects the format.
func Save(fsys fsutil.FileSystem, p *plot.Plot, path string, w, h vg.Length) error {
	format := strings.TrimPrefix(strings.ToLower(filepath.Ext(path)), ".")
	if format == "" {
		return fmt.Errorf("plot path %q has no extension", path)
	}
	wt, err := p.WriterTo(w, h, format)
	if err != nil {
		return fmt.Errorf("render %s: %w", format, err)
	}

	f, err := fsutil.CreateAll(fsys, path)
	if err != nil {
		return fmt.Errorf("create %s: %w", path, err)
	}
	if _, err := wt.WriteTo(f); err != nil {
		f.Close()
		return fmt.Errorf("write %s: %w", path, err)
	}
	return f.Close()
}

func finiteXYs(xs, ys []float64) plotter.XYs {
	pts := make(plotter.XYs, 0, len(xs))
	for i := range xs {
		if isFinite(xs[i]) && isFinite(ys[i]) {
			pts = append(pts, plotter.XY{X: xs[i], Y: ys[i]})
		}
	}
	return pts
}

func isFinite(v float64) bool { return !math.IsNaN(v) && !math.IsInf(v, 0) }

func distanceLabel(p *sholl.Profile) string {
	unit := p.Calibration().Unit
	if unit == "" {
		unit = "px"
	}
	return fmt.Sprintf("Distance (%s)", unit)
}

func valueLabel(p *sholl.Profile, mode stats.DataMode) string {
	switch {
	case mode == stats.DataLength:
		return "Length"
	case p.IntensityProfile():
		return "Mean intensity"
	}
	return "No. intersections"
}
