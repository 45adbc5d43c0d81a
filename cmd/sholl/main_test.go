package main

import (
	"bytes"
	"image"
	"image/color"
	"image/png"
	"os"
	"path/filepath"
	"strings"
	"testing"

	fcolor "github.com/fatih/color"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/banshee-data/sholl/internal/fsutil"
	"github.com/banshee-data/sholl/internal/monitoring"
	"github.com/banshee-data/sholl/internal/sholl/stats"
)

func init() {
	fcolor.NoColor = true
	monitoring.SetLogger(nil)
}

// crossPNG encodes a 41x41 image with two 3px wide arms crossing at (20,20).
func crossPNG(t *testing.T) []byte {
	t.Helper()
	img := image.NewGray(image.Rect(0, 0, 41, 41))
	for i := 0; i < 41; i++ {
		for d := -1; d <= 1; d++ {
			img.SetGray(20+d, i, color.Gray{Y: 255})
			img.SetGray(i, 20+d, color.Gray{Y: 255})
		}
	}
	var buf bytes.Buffer
	require.NoError(t, png.Encode(&buf, img))
	return buf.Bytes()
}

// run executes the CLI against fsys and returns stdout.
func run(t *testing.T, fsys fsutil.FileSystem, args ...string) (string, error) {
	t.Helper()
	a := &app{fsys: fsys}
	cmd := newRootCmd(a)
	var out, errOut bytes.Buffer
	cmd.SetOut(&out)
	cmd.SetErr(&errOut)
	cmd.SetArgs(append([]string{"--quiet"}, args...))
	err := cmd.Execute()
	return out.String(), err
}

func TestSample(t *testing.T) {
	fsys := fsutil.NewMemoryFileSystem()
	require.NoError(t, fsys.WriteFile("/img/cross.png", crossPNG(t), 0o644))

	out, err := run(t, fsys, "sample", "/img/cross.png", "--center", "20,20", "--out", "/out", "--mask", "--html")
	require.NoError(t, err)

	assert.Contains(t, out, "== cross ==")
	assert.Contains(t, out, "Linear profile")
	assert.Contains(t, out, "Sholl decay")

	profile, err := fsys.ReadFile("/out/cross_profile.csv")
	require.NoError(t, err)
	lines := strings.Split(strings.TrimSpace(string(profile)), "\n")
	assert.Equal(t, "radius,count,length", lines[0])
	assert.Greater(t, len(lines), 10)
	// a ring well inside the image crosses all four arms
	assert.True(t, strings.HasPrefix(lines[10], "10,4,"), "got %q", lines[10])

	assert.Equal(t, []string{
		"/out/cross_fit.csv",
		"/out/cross_mask.png",
		"/out/cross_normalized.png",
		"/out/cross_profile.csv",
		"/out/cross_profile.png",
		"/out/cross_report.html",
		"/out/cross_stats.csv",
	}, fsys.Files("/out/"))
}

func TestSample_NoStats(t *testing.T) {
	fsys := fsutil.NewMemoryFileSystem()
	require.NoError(t, fsys.WriteFile("/cross.png", crossPNG(t), 0o644))

	out, err := run(t, fsys, "sample", "/cross.png", "--center", "20,20", "--out", "/out", "--no-stats")
	require.NoError(t, err)
	assert.Empty(t, out)
	assert.Equal(t, []string{"/out/cross_profile.csv"}, fsys.Files("/out/"))
}

func TestSample_Errors(t *testing.T) {
	fsys := fsutil.NewMemoryFileSystem()
	require.NoError(t, fsys.WriteFile("/cross.png", crossPNG(t), 0o644))

	testCases := []struct {
		name string
		args []string
	}{
		{"missing center", []string{"sample", "/cross.png"}},
		{"malformed center", []string{"sample", "/cross.png", "--center", "20"}},
		{"center outside image", []string{"sample", "/cross.png", "--center", "90,90"}},
		{"unknown channel", []string{"sample", "/cross.png", "--center", "20,20", "--channel", "alpha"}},
		{"missing image", []string{"sample", "/none.png", "--center", "1,1"}},
		{"no image argument", []string{"sample", "--center", "1,1"}},
	}
	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			_, err := run(t, fsys, tc.args...)
			assert.Error(t, err)
		})
	}
}

func TestAnalyze(t *testing.T) {
	fsys := fsutil.NewMemoryFileSystem()
	table := "radius,count\n1,3\n2,5\n3,8\n4,9\n5,8\n6,6\n7,4\n8,3\n9,2\n10,1\n"
	require.NoError(t, fsys.WriteFile("/data/cell.csv", []byte(table), 0o644))

	out, err := run(t, fsys, "analyze", "/data/cell.csv", "--out", "/res", "--plot", "svg")
	require.NoError(t, err)
	assert.Contains(t, out, "== cell ==")
	assert.Contains(t, out, "Polynomial degree")

	assert.Equal(t, []string{
		"/res/cell_fit.csv",
		"/res/cell_normalized.svg",
		"/res/cell_profile.svg",
		"/res/cell_stats.csv",
	}, fsys.Files("/res/"))

	summary, err := fsys.ReadFile("/res/cell_stats.csv")
	require.NoError(t, err)
	assert.Contains(t, string(summary), "cell,Linear,Max,9\n")
}

func TestAnalyze_WithConfig(t *testing.T) {
	dir := t.TempDir()
	cfgPath := filepath.Join(dir, "sholl.json")
	cfg := `{"normalizer": "perimeter", "method": "semi-log", "enclosing_cutoff": 2, "fit_range_start": 2, "fit_range_end": 8}`
	require.NoError(t, os.WriteFile(cfgPath, []byte(cfg), 0o644))

	fsys := fsutil.NewMemoryFileSystem()
	table := "radius\tcount\n1\t3\n2\t5\n3\t8\n4\t9\n5\t8\n6\t6\n7\t4\n8\t3\n9\t2\n10\t1\n"
	require.NoError(t, fsys.WriteFile("/cell.tsv", []byte(table), 0o644))

	out, err := run(t, fsys, "analyze", "/cell.tsv", "--config", cfgPath, "--out", "/res", "--plot", "")
	require.NoError(t, err)
	assert.Contains(t, out, "Semi-log normalized by Perimeter (Restricted)")
	assert.Contains(t, out, "Enclosing radius (cutoff 2)")
	assert.Contains(t, out, "Range start")
	assert.Equal(t, []string{"/res/cell_fit.csv", "/res/cell_stats.csv"}, fsys.Files("/res/"))
}

func TestAnalyze_Errors(t *testing.T) {
	dir := t.TempDir()
	badCfg := filepath.Join(dir, "sholl.toml")
	require.NoError(t, os.WriteFile(badCfg, []byte("x = 1"), 0o644))

	fsys := fsutil.NewMemoryFileSystem()
	require.NoError(t, fsys.WriteFile("/empty.csv", []byte("radius,count\n"), 0o644))
	require.NoError(t, fsys.WriteFile("/ok.csv", []byte("1,2\n2,1\n"), 0o644))

	_, err := run(t, fsys, "analyze")
	assert.Error(t, err, "at least one table is required")

	_, err = run(t, fsys, "analyze", "/empty.csv")
	assert.Error(t, err)

	_, err = run(t, fsys, "analyze", "/ok.csv", "--config", badCfg)
	assert.ErrorContains(t, err, "extension")
}

func TestFallbackWarning(t *testing.T) {
	testCases := []struct {
		norm    stats.Normalizer
		want    string
		divisor string
	}{
		{stats.Annulus, "Annulus ordinates", "Perimeter divisor"},
		{stats.SphericalShell, "Spherical shell ordinates", "Surface divisor"},
	}
	for _, tc := range testCases {
		t.Run(tc.norm.String(), func(t *testing.T) {
			msg := fallbackWarning(tc.norm)
			assert.Contains(t, msg, "no radial step could be resolved")
			assert.Contains(t, msg, tc.want)
			assert.Contains(t, msg, tc.divisor)
			assert.NotContains(t, msg, "Area")
		})
	}
}

func TestVersion(t *testing.T) {
	out, err := run(t, fsutil.NewMemoryFileSystem(), "version")
	require.NoError(t, err)
	assert.True(t, strings.HasPrefix(out, "sholl dev"), out)
}

func TestParseCenter(t *testing.T) {
	testCases := []struct {
		in      string
		want    image.Point
		wantErr bool
	}{
		{"20,20", image.Pt(20, 20), false},
		{" 3 , 7 ", image.Pt(3, 7), false},
		{"-1,0", image.Pt(-1, 0), false},
		{"1", image.Point{}, true},
		{"1,2,3", image.Point{}, true},
		{"a,b", image.Point{}, true},
		{"1.5,2", image.Point{}, true},
	}
	for _, tc := range testCases {
		t.Run(tc.in, func(t *testing.T) {
			got, err := parseCenter(tc.in)
			if tc.wantErr {
				assert.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tc.want, got)
		})
	}
}

func TestAspect(t *testing.T) {
	assert.Equal(t, 1.0, aspect(image.Rect(0, 0, 10, 10)))
	assert.Equal(t, 0.5, aspect(image.Rect(0, 0, 10, 5)))
	assert.Equal(t, 4.0, aspect(image.Rect(0, 0, 1, 100)))
	assert.Equal(t, 0.25, aspect(image.Rect(0, 0, 100, 1)))
	assert.Equal(t, 1.0, aspect(image.Rectangle{}))
}

func TestBaseID(t *testing.T) {
	assert.Equal(t, "neuron", baseID("/data/neuron.tif"))
	assert.Equal(t, "cell.v2", baseID("cell.v2.csv"))
}

func TestOutPath(t *testing.T) {
	a := &app{outDir: "/res"}
	assert.Equal(t, "/res/cell_7_stats.csv", a.outPath("cell 7", "stats.csv"))
	assert.Equal(t, "/res/etc_fit.csv", a.outPath("../etc", "fit.csv"))
}
