package config

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"image"
	"io"
	"math"
	"os"
	"path/filepath"
	"strings"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/banshee-data/sholl/internal/sholl"
	"github.com/banshee-data/sholl/internal/sholl/sampler"
	"github.com/banshee-data/sholl/internal/sholl/stats"
	"github.com/banshee-data/sholl/internal/units"
)

// DefaultConfigPath is the path to the canonical analysis defaults file.
const DefaultConfigPath = "config/sholl.defaults.yaml"

const maxFileSize = 1 * 1024 * 1024 // 1MB

// AnalysisConfig holds the sampling and fitting parameters of one analysis.
// Every field is optional; the Get* methods supply defaults, so partial
// files are safe.
type AnalysisConfig struct {
	// Radius schedule, in calibrated units. Unset bounds are clamped to the
	// voxel size and the largest radius that fits the image.
	StartRadius *float64 `json:"start_radius,omitempty" yaml:"start_radius,omitempty"`
	StepSize    *float64 `json:"step_size,omitempty" yaml:"step_size,omitempty"`
	EndRadius   *float64 `json:"end_radius,omitempty" yaml:"end_radius,omitempty"`

	// Calibration
	PixelWidth  *float64 `json:"pixel_width,omitempty" yaml:"pixel_width,omitempty"`
	PixelHeight *float64 `json:"pixel_height,omitempty" yaml:"pixel_height,omitempty"`
	Unit        *string  `json:"unit,omitempty" yaml:"unit,omitempty"`

	// Sampler params
	ThresholdLower   *float64 `json:"threshold_lower,omitempty" yaml:"threshold_lower,omitempty"`
	ThresholdUpper   *float64 `json:"threshold_upper,omitempty" yaml:"threshold_upper,omitempty"`
	Spans            *int     `json:"spans,omitempty" yaml:"spans,omitempty"`
	Integration      *string  `json:"integration,omitempty" yaml:"integration,omitempty"`
	SpikeSuppression *bool    `json:"spike_suppression,omitempty" yaml:"spike_suppression,omitempty"`
	IntensityMode    *bool    `json:"intensity_mode,omitempty" yaml:"intensity_mode,omitempty"`
	Hemi             *string  `json:"hemi,omitempty" yaml:"hemi,omitempty"`

	// Fitting params
	DataMode        *string  `json:"data_mode,omitempty" yaml:"data_mode,omitempty"`
	Normalizer      *string  `json:"normalizer,omitempty" yaml:"normalizer,omitempty"`
	Method          *string  `json:"method,omitempty" yaml:"method,omitempty"`
	PolyDegreeMin   *int     `json:"poly_degree_min,omitempty" yaml:"poly_degree_min,omitempty"`
	PolyDegreeMax   *int     `json:"poly_degree_max,omitempty" yaml:"poly_degree_max,omitempty"`
	MinRSquared     *float64 `json:"min_r_squared,omitempty" yaml:"min_r_squared,omitempty"`
	PrimaryBranches *int     `json:"primary_branches,omitempty" yaml:"primary_branches,omitempty"`
	EnclosingCutoff *float64 `json:"enclosing_cutoff,omitempty" yaml:"enclosing_cutoff,omitempty"`
	FitRangeStart   *float64 `json:"fit_range_start,omitempty" yaml:"fit_range_start,omitempty"`
	FitRangeEnd     *float64 `json:"fit_range_end,omitempty" yaml:"fit_range_end,omitempty"`

	// Progress logging interval, a duration string like "2s".
	ProgressInterval *string `json:"progress_interval,omitempty" yaml:"progress_interval,omitempty"`
}

func ptrFloat64(v float64) *float64 { return &v }
func ptrBool(v bool) *bool          { return &v }
func ptrString(v string) *string    { return &v }
func ptrInt(v int) *int             { return &v }

// EmptyAnalysisConfig returns an AnalysisConfig with all fields set to nil.
func EmptyAnalysisConfig() *AnalysisConfig {
	return &AnalysisConfig{}
}

// DefaultAnalysisConfig returns a config with every defaulted field set.
// The radius bounds stay nil because they depend on the image.
func DefaultAnalysisConfig() *AnalysisConfig {
	return &AnalysisConfig{
		PixelWidth:       ptrFloat64(1),
		PixelHeight:      ptrFloat64(1),
		Unit:             ptrString(units.Pixel),
		ThresholdLower:   ptrFloat64(1),
		Spans:            ptrInt(1),
		Integration:      ptrString("none"),
		SpikeSuppression: ptrBool(true),
		IntensityMode:    ptrBool(false),
		Hemi:             ptrString("none"),
		DataMode:         ptrString("intersections"),
		Normalizer:       ptrString("area"),
		Method:           ptrString("auto"),
		PolyDegreeMin:    ptrInt(1),
		PolyDegreeMax:    ptrInt(8),
		MinRSquared:      ptrFloat64(0.7),
		EnclosingCutoff:  ptrFloat64(1),
		ProgressInterval: ptrString("1s"),
	}
}

// LoadAnalysisConfig loads an AnalysisConfig from a JSON or YAML file.
// The extension selects the decoder and the file must be under 1MB.
// Fields omitted from the file keep their defaults.
func LoadAnalysisConfig(path string) (*AnalysisConfig, error) {
	cleanPath := filepath.Clean(path)
	ext := strings.ToLower(filepath.Ext(cleanPath))
	switch ext {
	case ".json", ".yaml", ".yml":
	default:
		return nil, fmt.Errorf("config file must have .json, .yaml or .yml extension, got %q", ext)
	}

	fileInfo, err := os.Stat(cleanPath)
	if err != nil {
		return nil, fmt.Errorf("failed to stat config file: %w", err)
	}
	if fileInfo.Size() > maxFileSize {
		return nil, fmt.Errorf("config file too large: %d bytes (max %d)", fileInfo.Size(), maxFileSize)
	}

	data, err := os.ReadFile(cleanPath)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}

	cfg := EmptyAnalysisConfig()
	if ext == ".json" {
		err = json.Unmarshal(data, cfg)
	} else {
		dec := yaml.NewDecoder(bytes.NewReader(data))
		dec.KnownFields(true)
		if err = dec.Decode(cfg); errors.Is(err, io.EOF) {
			err = nil // empty document
		}
	}
	if err != nil {
		return nil, fmt.Errorf("failed to parse config %s: %w", strings.TrimPrefix(ext, "."), err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}
	return cfg, nil
}

// MustLoadDefaultConfig loads the canonical defaults from DefaultConfigPath,
// searching the current directory and its parents. Panics if the file cannot
// be loaded, intended for test setup.
func MustLoadDefaultConfig() *AnalysisConfig {
	candidates := []string{
		DefaultConfigPath,
		"../" + DefaultConfigPath,
		"../../" + DefaultConfigPath,
		"../../../" + DefaultConfigPath,
	}
	for _, path := range candidates {
		if cfg, err := LoadAnalysisConfig(path); err == nil {
			return cfg
		}
	}
	panic("cannot find " + DefaultConfigPath + " - run tests from repository root")
}

// Validate checks that the configuration values are valid.
func (c *AnalysisConfig) Validate() error {
	for name, v := range map[string]*float64{
		"start_radius": c.StartRadius,
		"step_size":    c.StepSize,
		"end_radius":   c.EndRadius,
		"pixel_width":  c.PixelWidth,
		"pixel_height": c.PixelHeight,
	} {
		if v != nil && (math.IsNaN(*v) || math.IsInf(*v, 0) || *v < 0) {
			return fmt.Errorf("%s must be a non-negative number, got %v", name, *v)
		}
	}
	if c.StepSize != nil && *c.StepSize == 0 {
		return fmt.Errorf("step_size must be positive")
	}
	if c.StartRadius != nil && c.EndRadius != nil && *c.EndRadius < *c.StartRadius {
		return fmt.Errorf("end_radius %g is below start_radius %g", *c.EndRadius, *c.StartRadius)
	}

	if c.Unit != nil && !units.IsValid(*c.Unit) {
		return fmt.Errorf("invalid unit %q (valid units: %s)", *c.Unit, units.GetValidUnitsString())
	}

	if lo, hi := c.GetThresholdLower(), c.GetThresholdUpper(); math.IsNaN(lo) || math.IsNaN(hi) || lo > hi {
		return fmt.Errorf("%w: %g:%g", sampler.ErrThreshold, lo, hi)
	}
	if c.Spans != nil && (*c.Spans < 1 || *c.Spans > sampler.MaxSpans) {
		return fmt.Errorf("%w: spans %d not in [1, %d]", sampler.ErrSpanCount, *c.Spans, sampler.MaxSpans)
	}
	if c.Integration != nil {
		if _, err := sampler.ParseIntegration(*c.Integration); err != nil {
			return err
		}
	}
	if c.Hemi != nil {
		if _, err := sampler.ParseHemi(*c.Hemi); err != nil {
			return err
		}
	}

	if c.DataMode != nil {
		if _, err := stats.ParseDataMode(*c.DataMode); err != nil {
			return err
		}
	}
	if c.Normalizer != nil {
		if _, err := stats.ParseNormalizer(*c.Normalizer); err != nil {
			return err
		}
	}
	if c.Method != nil {
		if _, err := stats.ParseMethod(*c.Method); err != nil {
			return err
		}
	}

	if lo, hi := c.GetPolyDegreeMin(), c.GetPolyDegreeMax(); lo < 0 || hi < lo {
		return fmt.Errorf("polynomial degree range [%d, %d] is invalid", lo, hi)
	}
	if c.MinRSquared != nil && (*c.MinRSquared < 0 || *c.MinRSquared > 1) {
		return fmt.Errorf("min_r_squared must be between 0 and 1, got %f", *c.MinRSquared)
	}
	if c.PrimaryBranches != nil && *c.PrimaryBranches < 0 {
		return fmt.Errorf("primary_branches must be non-negative, got %d", *c.PrimaryBranches)
	}
	if (c.FitRangeStart == nil) != (c.FitRangeEnd == nil) {
		return fmt.Errorf("fit_range_start and fit_range_end must be set together")
	}
	if c.FitRangeStart != nil && !(*c.FitRangeStart <= *c.FitRangeEnd) {
		return fmt.Errorf("fit range [%g, %g] is invalid", *c.FitRangeStart, *c.FitRangeEnd)
	}

	if c.ProgressInterval != nil && *c.ProgressInterval != "" {
		if _, err := time.ParseDuration(*c.ProgressInterval); err != nil {
			return fmt.Errorf("invalid progress_interval '%s': %w", *c.ProgressInterval, err)
		}
	}
	return nil
}

// GetCalibration returns the configured calibration.
func (c *AnalysisConfig) GetCalibration() sholl.Calibration {
	cal := sholl.DefaultCalibration()
	if c.PixelWidth != nil && *c.PixelWidth > 0 {
		cal.PixelWidth = *c.PixelWidth
	}
	if c.PixelHeight != nil && *c.PixelHeight > 0 {
		cal.PixelHeight = *c.PixelHeight
	}
	if c.Unit != nil {
		cal.Unit = units.Normalize(*c.Unit)
	}
	return cal
}

// GetThresholdLower returns the threshold_lower value or the default.
func (c *AnalysisConfig) GetThresholdLower() float64 {
	if c.ThresholdLower == nil {
		return 1
	}
	return *c.ThresholdLower
}

// GetThresholdUpper returns the threshold_upper value or +Inf.
func (c *AnalysisConfig) GetThresholdUpper() float64 {
	if c.ThresholdUpper == nil {
		return math.Inf(1)
	}
	return *c.ThresholdUpper
}

// GetSpans returns the spans value or the default.
func (c *AnalysisConfig) GetSpans() int {
	if c.Spans == nil {
		return 1
	}
	return *c.Spans
}

// GetIntegration returns the parsed integration, IntegrationNone when unset
// or invalid.
func (c *AnalysisConfig) GetIntegration() sampler.Integration {
	if c.Integration == nil {
		return sampler.IntegrationNone
	}
	i, err := sampler.ParseIntegration(*c.Integration)
	if err != nil {
		return sampler.IntegrationNone
	}
	return i
}

// GetSpikeSuppression returns the spike_suppression value or the default.
func (c *AnalysisConfig) GetSpikeSuppression() bool {
	if c.SpikeSuppression == nil {
		return true
	}
	return *c.SpikeSuppression
}

// GetIntensityMode returns the intensity_mode value or the default.
func (c *AnalysisConfig) GetIntensityMode() bool {
	if c.IntensityMode == nil {
		return false
	}
	return *c.IntensityMode
}

// GetHemi returns the parsed hemi-shell, HemiNone when unset or invalid.
func (c *AnalysisConfig) GetHemi() sampler.Hemi {
	if c.Hemi == nil {
		return sampler.HemiNone
	}
	h, err := sampler.ParseHemi(*c.Hemi)
	if err != nil {
		return sampler.HemiNone
	}
	return h
}

// GetDataMode returns the parsed data mode or DataIntersections.
func (c *AnalysisConfig) GetDataMode() stats.DataMode {
	if c.DataMode == nil {
		return stats.DataIntersections
	}
	m, err := stats.ParseDataMode(*c.DataMode)
	if err != nil {
		return stats.DataIntersections
	}
	return m
}

// GetNormalizer returns the parsed normalizer or Area.
func (c *AnalysisConfig) GetNormalizer() stats.Normalizer {
	if c.Normalizer == nil {
		return stats.Area
	}
	n, err := stats.ParseNormalizer(*c.Normalizer)
	if err != nil {
		return stats.Area
	}
	return n
}

// GetMethod returns the parsed method or Auto.
func (c *AnalysisConfig) GetMethod() stats.Method {
	if c.Method == nil {
		return stats.Auto
	}
	m, err := stats.ParseMethod(*c.Method)
	if err != nil {
		return stats.Auto
	}
	return m
}

// GetPolyDegreeMin returns the poly_degree_min value or the default.
func (c *AnalysisConfig) GetPolyDegreeMin() int {
	if c.PolyDegreeMin == nil {
		return 1
	}
	return *c.PolyDegreeMin
}

// GetPolyDegreeMax returns the poly_degree_max value or the default.
func (c *AnalysisConfig) GetPolyDegreeMax() int {
	if c.PolyDegreeMax == nil {
		return 8
	}
	return *c.PolyDegreeMax
}

// GetMinRSquared returns the min_r_squared value or the default.
func (c *AnalysisConfig) GetMinRSquared() float64 {
	if c.MinRSquared == nil {
		return 0.7
	}
	return *c.MinRSquared
}

// GetPrimaryBranches returns the primary_branches value, 0 meaning inferred.
func (c *AnalysisConfig) GetPrimaryBranches() int {
	if c.PrimaryBranches == nil {
		return 0
	}
	return *c.PrimaryBranches
}

// GetEnclosingCutoff returns the enclosing_cutoff value or the default.
func (c *AnalysisConfig) GetEnclosingCutoff() float64 {
	if c.EnclosingCutoff == nil {
		return 1
	}
	return *c.EnclosingCutoff
}

// GetFitRange returns the restriction range and whether one is configured.
func (c *AnalysisConfig) GetFitRange() (stats.Range, bool) {
	if c.FitRangeStart == nil || c.FitRangeEnd == nil {
		return stats.Range{}, false
	}
	return stats.Range{X1: *c.FitRangeStart, X2: *c.FitRangeEnd}, true
}

// GetProgressInterval parses and returns the ProgressInterval as a time.Duration.
func (c *AnalysisConfig) GetProgressInterval() time.Duration {
	if c.ProgressInterval == nil || *c.ProgressInterval == "" {
		return time.Second
	}
	d, err := time.ParseDuration(*c.ProgressInterval)
	if err != nil {
		return time.Second
	}
	return d
}

// GetRadii builds the radius schedule for an image of bounds b sampled at
// center. NaN bounds fall back to the voxel size and the farthest corner.
func (c *AnalysisConfig) GetRadii(center image.Point, b image.Rectangle) ([]float64, error) {
	cal := c.GetCalibration()
	nan := math.NaN()
	start, step, end := nan, nan, nan
	if c.StartRadius != nil {
		start = *c.StartRadius
	}
	if c.StepSize != nil {
		step = *c.StepSize
	}
	if c.EndRadius != nil {
		end = *c.EndRadius
	}
	origin := center.Sub(b.Min)
	maxRadius := sholl.MaxPossibleRadius(sholl.PixelPoint(origin.X, origin.Y, cal), b.Dx(), b.Dy(), cal)
	return sholl.ClampedRadii(start, step, end, cal.VoxelSize2D(), maxRadius)
}

// SamplerOptions assembles sampler options for an image of bounds b sampled
// at center.
func (c *AnalysisConfig) SamplerOptions(center image.Point, b image.Rectangle) (sampler.Options, error) {
	radii, err := c.GetRadii(center, b)
	if err != nil {
		return sampler.Options{}, err
	}
	opts := sampler.DefaultOptions()
	opts.Center = center
	opts.Radii = radii
	opts.Calibration = c.GetCalibration()
	opts.Threshold = sampler.Threshold{Lower: c.GetThresholdLower(), Upper: c.GetThresholdUpper()}
	opts.Spans = c.GetSpans()
	opts.Integration = c.GetIntegration()
	opts.SpikeSuppression = c.GetSpikeSuppression()
	opts.IntensityMode = c.GetIntensityMode()
	opts.Hemi = c.GetHemi()
	return opts, nil
}
