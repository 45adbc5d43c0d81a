package shollplot

import (
	"fmt"
	"io"
	"strconv"

	"github.com/go-echarts/go-echarts/v2/charts"
	"github.com/go-echarts/go-echarts/v2/components"
	"github.com/go-echarts/go-echarts/v2/opts"

	"github.com/banshee-data/sholl/internal/sholl/stats"
)

// AssetsHost overrides where the echarts script is loaded from; empty uses
// the go-echarts default CDN.
var AssetsHost = ""

// WriteHTML renders an interactive page with the linear profile and, when
// ns is non-nil, the normalized fit.
func WriteHTML(w io.Writer, ls *stats.LinearStats, ns *stats.NormalizedStats) error {
	if ls == nil {
		return ErrNothingToPlot
	}
	page := components.NewPage()
	page.PageTitle = "Sholl analysis " + ls.Profile().ID()
	if AssetsHost != "" {
		page.AssetsHost = AssetsHost
	}
	page.AddCharts(profileChart(ls))
	if ns != nil {
		page.AddCharts(normalizedChart(ns))
	}
	if err := page.Render(w); err != nil {
		return fmt.Errorf("render html: %w", err)
	}
	return nil
}

func initOpts(title string) opts.Initialization {
	o := opts.Initialization{PageTitle: title, Width: "900px", Height: "540px"}
	if AssetsHost != "" {
		o.AssetsHost = AssetsHost
	}
	return o
}

func profileChart(ls *stats.LinearStats) *charts.Line {
	radii := ls.XValues()
	labels := make([]string, len(radii))
	for i, r := range radii {
		labels[i] = strconv.FormatFloat(r, 'g', 6, 64)
	}

	line := charts.NewLine()
	line.SetGlobalOptions(
		charts.WithInitializationOpts(initOpts("Sholl profile")),
		charts.WithTitleOpts(opts.Title{Title: "Sholl profile", Subtitle: ls.Profile().ID()}),
		charts.WithTooltipOpts(opts.Tooltip{Show: opts.Bool(true), Trigger: "axis"}),
		charts.WithLegendOpts(opts.Legend{Show: opts.Bool(true)}),
		charts.WithXAxisOpts(opts.XAxis{Name: distanceLabel(ls.Profile()), NameLocation: "middle", NameGap: 25}),
		charts.WithYAxisOpts(opts.YAxis{Name: valueLabel(ls.Profile(), ls.DataMode())}),
	)
	line.SetXAxis(labels).AddSeries("sampled", lineData(ls.YValues()))
	if fitted, err := ls.FitYValues(); err == nil {
		label, _ := ls.PolynomialLabel()
		line.AddSeries(label+" fit", lineData(fitted), charts.WithLineChartOpts(opts.LineChart{Smooth: opts.Bool(true)}))
	}
	return line
}

func normalizedChart(ns *stats.NormalizedStats) *charts.Scatter {
	fit := ns.Fit()
	scatter := charts.NewScatter()
	scatter.SetGlobalOptions(
		charts.WithInitializationOpts(initOpts("Normalized profile")),
		charts.WithTitleOpts(opts.Title{
			Title:    fmt.Sprintf("%s, normalized by %s", ns.Method(), ns.Normalizer()),
			Subtitle: fmt.Sprintf("k=%.4g R²=%.3f N=%d (%s)", fit.Decay(), fit.RSquared, fit.N, fit.State),
		}),
		charts.WithTooltipOpts(opts.Tooltip{Show: opts.Bool(true)}),
		charts.WithLegendOpts(opts.Legend{Show: opts.Bool(true)}),
		charts.WithXAxisOpts(opts.XAxis{Type: "value", Name: "x", NameLocation: "middle", NameGap: 25}),
		charts.WithYAxisOpts(opts.YAxis{Type: "value", Name: "log(normalized)"}),
	)
	xs := ns.XValues()
	scatter.AddSeries("normalized", scatterData(xs, ns.YValues()), charts.WithScatterChartOpts(opts.ScatterChart{SymbolSize: 8}))
	scatter.AddSeries("fit", scatterData(xs, ns.FitYValues()), charts.WithScatterChartOpts(opts.ScatterChart{SymbolSize: 3}))
	return scatter
}

// lineData maps NaN and infinities to echarts' "-" gap marker; JSON cannot
// carry them.
func lineData(ys []float64) []opts.LineData {
	out := make([]opts.LineData, len(ys))
	for i, y := range ys {
		if isFinite(y) {
			out[i] = opts.LineData{Value: y}
		} else {
			out[i] = opts.LineData{Value: "-"}
		}
	}
	return out
}

func scatterData(xs, ys []float64) []opts.ScatterData {
	out := make([]opts.ScatterData, 0, len(xs))
	for i := range xs {
		if isFinite(xs[i]) && isFinite(ys[i]) {
			out = append(out, opts.ScatterData{Value: []interface{}{xs[i], ys[i]}})
		}
	}
	return out
}
