package config

import (
	"image"
	"math"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/banshee-data/sholl/internal/sholl/sampler"
	"github.com/banshee-data/sholl/internal/sholl/stats"
)

func writeConfig(t *testing.T, name, body string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), name)
	require.NoError(t, os.WriteFile(path, []byte(body), 0644))
	return path
}

func TestDefaultsFileMatchesDefaultAnalysisConfig(t *testing.T) {
	cfg := MustLoadDefaultConfig()
	if diff := cmp.Diff(DefaultAnalysisConfig(), cfg); diff != "" {
		t.Errorf("%s out of sync with DefaultAnalysisConfig (-code +file):\n%s", DefaultConfigPath, diff)
	}
}

func TestDefaultAnalysisConfig(t *testing.T) {
	cfg := DefaultAnalysisConfig()
	require.NoError(t, cfg.Validate())

	empty := EmptyAnalysisConfig()
	assert.Equal(t, empty.GetSpans(), cfg.GetSpans())
	assert.Equal(t, empty.GetIntegration(), cfg.GetIntegration())
	assert.Equal(t, empty.GetSpikeSuppression(), cfg.GetSpikeSuppression())
	assert.Equal(t, empty.GetHemi(), cfg.GetHemi())
	assert.Equal(t, empty.GetNormalizer(), cfg.GetNormalizer())
	assert.Equal(t, empty.GetMethod(), cfg.GetMethod())
	assert.Equal(t, empty.GetDataMode(), cfg.GetDataMode())
	assert.Equal(t, empty.GetMinRSquared(), cfg.GetMinRSquared())
	assert.Equal(t, empty.GetPolyDegreeMax(), cfg.GetPolyDegreeMax())
	assert.Equal(t, empty.GetProgressInterval(), cfg.GetProgressInterval())
	assert.Equal(t, empty.GetCalibration(), cfg.GetCalibration())
	assert.True(t, math.IsInf(cfg.GetThresholdUpper(), 1))
}

func TestLoadAnalysisConfig_JSON(t *testing.T) {
	path := writeConfig(t, "analysis.json", `{
  "step_size": 2.5,
  "spans": 3,
  "integration": "median",
  "hemi": "north",
  "normalizer": "annulus",
  "method": "log-log",
  "threshold_lower": 100,
  "threshold_upper": 200,
  "progress_interval": "250ms"
}`)

	cfg, err := LoadAnalysisConfig(path)
	require.NoError(t, err)

	assert.Equal(t, 3, cfg.GetSpans())
	assert.Equal(t, sampler.IntegrationMedian, cfg.GetIntegration())
	assert.Equal(t, sampler.HemiNorth, cfg.GetHemi())
	assert.Equal(t, stats.Annulus, cfg.GetNormalizer())
	assert.Equal(t, stats.LogLog, cfg.GetMethod())
	assert.Equal(t, 100.0, cfg.GetThresholdLower())
	assert.Equal(t, 200.0, cfg.GetThresholdUpper())
	assert.Equal(t, 250*time.Millisecond, cfg.GetProgressInterval())
	// untouched fields keep defaults
	assert.True(t, cfg.GetSpikeSuppression())
	assert.Equal(t, stats.DataIntersections, cfg.GetDataMode())
}

func TestLoadAnalysisConfig_YAML(t *testing.T) {
	path := writeConfig(t, "analysis.yml", `
start_radius: 10
end_radius: 50
pixel_width: 0.5
pixel_height: 0.5
unit: µm
data_mode: length
fit_range_start: 12
fit_range_end: 40
primary_branches: 4
`)

	cfg, err := LoadAnalysisConfig(path)
	require.NoError(t, err)

	cal := cfg.GetCalibration()
	assert.Equal(t, 0.5, cal.PixelWidth)
	assert.Equal(t, "um", cal.Unit)
	assert.Equal(t, stats.DataLength, cfg.GetDataMode())
	assert.Equal(t, 4, cfg.GetPrimaryBranches())

	rng, ok := cfg.GetFitRange()
	require.True(t, ok)
	assert.Equal(t, stats.Range{X1: 12, X2: 40}, rng)
}

func TestLoadAnalysisConfig_EmptyYAML(t *testing.T) {
	cfg, err := LoadAnalysisConfig(writeConfig(t, "empty.yaml", ""))
	require.NoError(t, err)
	assert.Equal(t, EmptyAnalysisConfig(), cfg)
}

func TestLoadAnalysisConfig_Errors(t *testing.T) {
	testCases := []struct {
		name    string
		file    string
		body    string
		wantMsg string
	}{
		{"wrong extension", "analysis.toml", "spans = 2", "extension"},
		{"invalid json", "bad.json", `{"spans": "two"`, "parse config json"},
		{"unknown yaml field", "bad.yaml", "spanz: 2\n", "parse config yaml"},
		{"validation failure", "bad.json", `{"spans": 11}`, "invalid configuration"},
	}
	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			_, err := LoadAnalysisConfig(writeConfig(t, tc.file, tc.body))
			require.Error(t, err)
			assert.Contains(t, err.Error(), tc.wantMsg)
		})
	}

	_, err := LoadAnalysisConfig("/nonexistent/path/to/config.json")
	assert.Error(t, err)

	big := writeConfig(t, "big.json", `{"spans": 1}`+strings.Repeat(" ", maxFileSize))
	_, err = LoadAnalysisConfig(big)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "too large")
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name    string
		cfg     *AnalysisConfig
		wantErr error
	}{
		{name: "valid config", cfg: DefaultAnalysisConfig()},
		{name: "empty config is valid", cfg: &AnalysisConfig{}},
		{name: "negative start", cfg: &AnalysisConfig{StartRadius: ptrFloat64(-1)}},
		{name: "zero step", cfg: &AnalysisConfig{StepSize: ptrFloat64(0)}},
		{name: "NaN pixel width", cfg: &AnalysisConfig{PixelWidth: ptrFloat64(math.NaN())}},
		{name: "end below start", cfg: &AnalysisConfig{StartRadius: ptrFloat64(5), EndRadius: ptrFloat64(2)}},
		{name: "unknown unit", cfg: &AnalysisConfig{Unit: ptrString("furlong")}},
		{
			name:    "inverted threshold",
			cfg:     &AnalysisConfig{ThresholdLower: ptrFloat64(10), ThresholdUpper: ptrFloat64(5)},
			wantErr: sampler.ErrThreshold,
		},
		{name: "too many spans", cfg: &AnalysisConfig{Spans: ptrInt(11)}, wantErr: sampler.ErrSpanCount},
		{name: "zero spans", cfg: &AnalysisConfig{Spans: ptrInt(0)}, wantErr: sampler.ErrSpanCount},
		{name: "bad integration", cfg: &AnalysisConfig{Integration: ptrString("max")}, wantErr: sampler.ErrUnrecognizedOption},
		{name: "bad hemi", cfg: &AnalysisConfig{Hemi: ptrString("up")}, wantErr: sampler.ErrUnrecognizedOption},
		{name: "bad normalizer", cfg: &AnalysisConfig{Normalizer: ptrString("disk")}, wantErr: stats.ErrUnrecognizedFlag},
		{name: "bad method", cfg: &AnalysisConfig{Method: ptrString("linear")}, wantErr: stats.ErrUnrecognizedFlag},
		{name: "bad data mode", cfg: &AnalysisConfig{DataMode: ptrString("area")}, wantErr: stats.ErrUnrecognizedFlag},
		{name: "inverted degrees", cfg: &AnalysisConfig{PolyDegreeMin: ptrInt(5), PolyDegreeMax: ptrInt(2)}},
		{name: "r squared above one", cfg: &AnalysisConfig{MinRSquared: ptrFloat64(1.5)}},
		{name: "negative branches", cfg: &AnalysisConfig{PrimaryBranches: ptrInt(-2)}},
		{name: "half a fit range", cfg: &AnalysisConfig{FitRangeStart: ptrFloat64(1)}},
		{name: "inverted fit range", cfg: &AnalysisConfig{FitRangeStart: ptrFloat64(9), FitRangeEnd: ptrFloat64(3)}},
		{name: "bad progress interval", cfg: &AnalysisConfig{ProgressInterval: ptrString("soon")}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.cfg.Validate()
			switch {
			case strings.HasPrefix(tt.name, "valid") || strings.HasPrefix(tt.name, "empty"):
				assert.NoError(t, err)
			case tt.wantErr != nil:
				assert.ErrorIs(t, err, tt.wantErr)
			default:
				assert.Error(t, err)
			}
		})
	}
}

func TestGetters_FallBackOnInvalidValues(t *testing.T) {
	cfg := &AnalysisConfig{
		Integration:      ptrString("bogus"),
		Hemi:             ptrString("bogus"),
		Normalizer:       ptrString("bogus"),
		Method:           ptrString("bogus"),
		DataMode:         ptrString("bogus"),
		ProgressInterval: ptrString("bogus"),
	}
	assert.Equal(t, sampler.IntegrationNone, cfg.GetIntegration())
	assert.Equal(t, sampler.HemiNone, cfg.GetHemi())
	assert.Equal(t, stats.Area, cfg.GetNormalizer())
	assert.Equal(t, stats.Auto, cfg.GetMethod())
	assert.Equal(t, stats.DataIntersections, cfg.GetDataMode())
	assert.Equal(t, time.Second, cfg.GetProgressInterval())

	_, ok := cfg.GetFitRange()
	assert.False(t, ok)
}

func TestGetRadii(t *testing.T) {
	bounds := image.Rect(0, 0, 21, 21)

	t.Run("defaults clamp to the voxel size and farthest corner", func(t *testing.T) {
		radii, err := EmptyAnalysisConfig().GetRadii(image.Pt(0, 0), bounds)
		require.NoError(t, err)
		assert.Equal(t, 1.0, radii[0])
		assert.Equal(t, 1.0, radii[1]-radii[0])
		assert.LessOrEqual(t, radii[len(radii)-1], math.Hypot(20, 20))
		assert.Len(t, radii, 28)
	})

	t.Run("explicit schedule", func(t *testing.T) {
		cfg := &AnalysisConfig{StartRadius: ptrFloat64(2), StepSize: ptrFloat64(2), EndRadius: ptrFloat64(8)}
		radii, err := cfg.GetRadii(image.Pt(10, 10), bounds)
		require.NoError(t, err)
		assert.Equal(t, []float64{2, 4, 6, 8}, radii)
	})

	t.Run("end capped by image", func(t *testing.T) {
		cfg := &AnalysisConfig{StartRadius: ptrFloat64(5), StepSize: ptrFloat64(5), EndRadius: ptrFloat64(500)}
		radii, err := cfg.GetRadii(image.Pt(10, 10), bounds)
		require.NoError(t, err)
		assert.Equal(t, []float64{5, 10}, radii)
	})

	t.Run("calibrated step is at least one voxel", func(t *testing.T) {
		cfg := &AnalysisConfig{PixelWidth: ptrFloat64(2), PixelHeight: ptrFloat64(2), StepSize: ptrFloat64(0.5), EndRadius: ptrFloat64(8)}
		radii, err := cfg.GetRadii(image.Pt(10, 10), bounds)
		require.NoError(t, err)
		assert.Equal(t, []float64{2, 4, 6, 8}, radii)
	})
}

func TestSamplerOptions(t *testing.T) {
	cfg := &AnalysisConfig{
		StartRadius:      ptrFloat64(1),
		StepSize:         ptrFloat64(1),
		EndRadius:        ptrFloat64(3),
		Spans:            ptrInt(2),
		Integration:      ptrString("mean"),
		SpikeSuppression: ptrBool(false),
		IntensityMode:    ptrBool(true),
		Hemi:             ptrString("w"),
		ThresholdLower:   ptrFloat64(50),
	}
	opts, err := cfg.SamplerOptions(image.Pt(4, 5), image.Rect(0, 0, 10, 10))
	require.NoError(t, err)

	assert.Equal(t, image.Pt(4, 5), opts.Center)
	assert.Equal(t, []float64{1, 2, 3}, opts.Radii)
	assert.Equal(t, 2, opts.Spans)
	assert.Equal(t, sampler.IntegrationMean, opts.Integration)
	assert.False(t, opts.SpikeSuppression)
	assert.True(t, opts.IntensityMode)
	assert.Equal(t, sampler.HemiWest, opts.Hemi)
	assert.Equal(t, 50.0, opts.Threshold.Lower)
	assert.True(t, math.IsInf(opts.Threshold.Upper, 1))

	bad := &AnalysisConfig{StartRadius: ptrFloat64(5), EndRadius: ptrFloat64(1)}
	_, err = bad.SamplerOptions(image.Pt(4, 5), image.Rect(0, 0, 10, 10))
	assert.Error(t, err)
}
