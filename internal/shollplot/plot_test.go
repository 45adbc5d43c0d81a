package shollplot

import (
	"bytes"
	"image"
	"math"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/banshee-data/sholl/internal/fsutil"
	"github.com/banshee-data/sholl/internal/monitoring"
	"github.com/banshee-data/sholl/internal/sholl"
	"github.com/banshee-data/sholl/internal/sholl/sampler"
	"github.com/banshee-data/sholl/internal/sholl/stats"
)

func init() {
	monitoring.SetLogger(nil)
}

func fixtureStats(t *testing.T) (*stats.LinearStats, *stats.NormalizedStats) {
	t.Helper()
	radii, err := sholl.Radii(1, 1, 10)
	require.NoError(t, err)
	counts := []float64{3, 5, 8, 9, 8, 6, 4, 3, 1, 0}
	p, err := sholl.NewProfileFromData(radii, counts)
	require.NoError(t, err)
	p.SetID("fixture")
	p.Freeze()

	ls, err := stats.NewLinearStats(p, stats.DataIntersections)
	require.NoError(t, err)
	require.NoError(t, ls.FitPolynomial(3))

	ns, err := stats.NewNormalizedStats(p, stats.DataIntersections, stats.Area, stats.Auto)
	require.NoError(t, err)
	return ls, ns
}

func TestSave_Formats(t *testing.T) {
	ls, ns := fixtureStats(t)
	fsys := fsutil.NewMemoryFileSystem()

	profile, err := ProfilePlot(ls)
	require.NoError(t, err)
	require.NoError(t, Save(fsys, profile, "/out/fixture/profile.png", Width, Height))

	normalized, err := NormalizedPlot(ns)
	require.NoError(t, err)
	require.NoError(t, Save(fsys, normalized, "/out/fixture/normalized.svg", Width, Height))

	png, err := fsys.ReadFile("/out/fixture/profile.png")
	require.NoError(t, err)
	assert.True(t, bytes.HasPrefix(png, []byte("\x89PNG")), "PNG signature")

	svg, err := fsys.ReadFile("/out/fixture/normalized.svg")
	require.NoError(t, err)
	assert.Contains(t, string(svg), "<svg")
	assert.True(t, fsys.Exists("/out/fixture"))

	assert.Error(t, Save(fsys, profile, "/out/noext", Width, Height))
	assert.Error(t, Save(fsys, profile, "/out/profile.bogus", Width, Height))
}

func TestNormalizedPlot_Restricted(t *testing.T) {
	_, ns := fixtureStats(t)
	require.NoError(t, ns.RestrictToPercentile(10, 90))

	p, err := NormalizedPlot(ns)
	require.NoError(t, err)
	assert.Contains(t, p.Title.Text, "Restricted")
}

func TestPlots_NothingToPlot(t *testing.T) {
	p, err := sholl.NewProfileFromData([]float64{1, 2}, []float64{0, 0})
	require.NoError(t, err)
	ns, err := stats.NewNormalizedStats(p, stats.DataIntersections, stats.Perimeter, stats.Auto)
	require.NoError(t, err)

	_, err = NormalizedPlot(ns)
	assert.ErrorIs(t, err, ErrNothingToPlot)

	_, err = MaskPlot(sampler.NewHeatmap(image.Rect(0, 0, 4, 4)), "empty")
	assert.ErrorIs(t, err, ErrNothingToPlot)

	assert.ErrorIs(t, WriteHTML(&bytes.Buffer{}, nil, nil), ErrNothingToPlot)
}

func TestMaskPlot(t *testing.T) {
	h := sampler.NewHeatmap(image.Rect(0, 0, 8, 6))
	h.Set(1, 1, 2)
	h.Set(6, 4, 5)

	p, err := MaskPlot(h, "mask")
	require.NoError(t, err)
	assert.Equal(t, "mask", p.Title.Text)

	g := maskGrid{h: h, lo: 2, hi: 5}
	c, r := g.Dims()
	assert.Equal(t, 8, c)
	assert.Equal(t, 6, r)
	// row 0 of the grid is the bottom image row
	assert.Equal(t, 5.0, g.Y(0))
	assert.Equal(t, 5.0, g.Z(6, 1))
	assert.Equal(t, 2.0, g.Z(1, 4))
	assert.True(t, math.IsNaN(g.Z(0, 0)))

	fsys := fsutil.NewMemoryFileSystem()
	require.NoError(t, Save(fsys, p, "/mask.png", 4*72, 3*72))
	assert.True(t, fsys.Exists("/mask.png"))

	// a single painted value still renders
	flat := sampler.NewHeatmap(image.Rect(0, 0, 2, 2))
	flat.Set(0, 0, 3)
	_, err = MaskPlot(flat, "flat")
	assert.NoError(t, err)
}

func TestWriteHTML(t *testing.T) {
	ls, ns := fixtureStats(t)

	var buf bytes.Buffer
	require.NoError(t, WriteHTML(&buf, ls, ns))
	html := buf.String()

	assert.Contains(t, html, "echarts")
	assert.Contains(t, html, "Sholl analysis fixture")
	assert.Contains(t, html, "sampled")
	assert.Contains(t, html, "3rd deg. fit")
	assert.Contains(t, html, "normalized")
	assert.Equal(t, 1, strings.Count(html, "<html"))
}

func TestLineData_GapsForNonFinite(t *testing.T) {
	data := lineData([]float64{1, math.NaN(), math.Inf(1)})
	assert.Equal(t, 1.0, data[0].Value)
	assert.Equal(t, "-", data[1].Value)
	assert.Equal(t, "-", data[2].Value)

	pts := scatterData([]float64{1, 2, math.NaN()}, []float64{math.NaN(), 4, 5})
	require.Len(t, pts, 1)
	assert.Equal(t, []interface{}{2.0, 4.0}, pts[0].Value)
}
