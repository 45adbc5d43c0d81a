package sampler

import (
	"errors"
	"fmt"
	"image"
	"math"
	"strings"

	"github.com/banshee-data/sholl/internal/sholl"
	"github.com/banshee-data/sholl/internal/timeutil"
)

// MaxSpans is the largest number of concentric samples taken per radius.
const MaxSpans = 10

var (
	// ErrSpanCount is returned when Options.Spans is outside [1, MaxSpans].
	ErrSpanCount = errors.New("span count out of range")
	// ErrUnsetParameters is returned when the image, center or radii are missing.
	ErrUnsetParameters = errors.New("sampling parameters not set")
	// ErrThreshold is returned for an empty or NaN threshold range.
	ErrThreshold = errors.New("invalid threshold range")
	// ErrUnrecognizedOption is returned when parsing an unknown integration or hemi-shell name.
	ErrUnrecognizedOption = errors.New("unrecognized option")
)

// Image is the 2-D raster being sampled. Value is only called for
// coordinates inside Bounds.
type Image interface {
	Bounds() image.Rectangle
	Value(x, y int) float64
}

// IntensityImage is an Image that can also report float intensities.
// Intensity mode prefers it over Value when available.
type IntensityImage interface {
	Image
	Intensity(x, y int) float64
}

// Threshold is the inclusive [Lower, Upper] range of foreground values.
type Threshold struct {
	Lower float64
	Upper float64
}

// Contains reports whether v lies inside the threshold range.
func (t Threshold) Contains(v float64) bool {
	return v >= t.Lower && v <= t.Upper
}

// String formats the range as "lower:upper".
func (t Threshold) String() string {
	return fmt.Sprintf("%g:%g", t.Lower, t.Upper)
}

func (t Threshold) validate() error {
	if math.IsNaN(t.Lower) || math.IsNaN(t.Upper) || t.Lower > t.Upper {
		return fmt.Errorf("%w: %s", ErrThreshold, t)
	}
	return nil
}

// Integration combines the per-span samples of one radius.
type Integration int

const (
	IntegrationNone Integration = iota
	IntegrationMean
	IntegrationMedian
	IntegrationMode
)

var integrationNames = map[Integration]string{
	IntegrationNone:   "none",
	IntegrationMean:   "mean",
	IntegrationMedian: "median",
	IntegrationMode:   "mode",
}

func (i Integration) String() string {
	if s, ok := integrationNames[i]; ok {
		return s
	}
	return fmt.Sprintf("Integration(%d)", int(i))
}

// ParseIntegration maps a case-insensitive name to an Integration.
func ParseIntegration(s string) (Integration, error) {
	key := strings.ToLower(strings.TrimSpace(s))
	if key == "" {
		return IntegrationNone, nil
	}
	for i, name := range integrationNames {
		if name == key {
			return i, nil
		}
	}
	return IntegrationNone, fmt.Errorf("%w: integration %q", ErrUnrecognizedOption, s)
}

// Hemi restricts sampling to one half of the image around the center.
// North is the half with y <= center.Y in image coordinates.
type Hemi int

const (
	HemiNone Hemi = iota
	HemiNorth
	HemiSouth
	HemiEast
	HemiWest
)

var hemiNames = map[Hemi]string{
	HemiNone:  "none",
	HemiNorth: "north",
	HemiSouth: "south",
	HemiEast:  "east",
	HemiWest:  "west",
}

func (h Hemi) String() string {
	if s, ok := hemiNames[h]; ok {
		return s
	}
	return fmt.Sprintf("Hemi(%d)", int(h))
}

// ParseHemi maps a case-insensitive name to a Hemi. Single-letter
// abbreviations (n, s, e, w) and "above"/"below"/"left"/"right" are accepted.
func ParseHemi(s string) (Hemi, error) {
	key := strings.ToLower(strings.TrimSpace(s))
	switch key {
	case "", "none", "0":
		return HemiNone, nil
	case "north", "n", "above":
		return HemiNorth, nil
	case "south", "s", "below":
		return HemiSouth, nil
	case "east", "e", "right":
		return HemiEast, nil
	case "west", "w", "left":
		return HemiWest, nil
	}
	return HemiNone, fmt.Errorf("%w: hemi-shell %q", ErrUnrecognizedOption, s)
}

// bounds returns the sampled rectangle for this hemi-shell around center.
func (h Hemi) bounds(r image.Rectangle, center image.Point) image.Rectangle {
	switch h {
	case HemiNorth:
		r.Max.Y = min(r.Max.Y, center.Y+1)
	case HemiSouth:
		r.Min.Y = max(r.Min.Y, center.Y)
	case HemiEast:
		r.Min.X = max(r.Min.X, center.X)
	case HemiWest:
		r.Max.X = min(r.Max.X, center.X+1)
	}
	return r
}

// Position records which plane of a multi-dimensional source was sampled.
// Zero values are left unrecorded.
type Position struct {
	Channel int
	Slice   int
	Frame   int
}

// ProgressFunc receives the number of completed and total span samples.
type ProgressFunc func(done, total int)

// Options configures a Sampler.
type Options struct {
	// Center is the sampling center in pixel coordinates.
	Center image.Point
	// Radii are the sampling radii in calibrated units.
	Radii []float64
	// Calibration converts between pixels and physical units.
	Calibration sholl.Calibration
	// Threshold selects foreground pixel values.
	Threshold Threshold
	// Spans is the number of concentric samples per radius, in [1, MaxSpans].
	Spans int
	// Integration combines the per-span samples when Spans > 1.
	Integration Integration
	// SpikeSuppression clears isolated single pixels before measuring.
	SpikeSuppression bool
	// IntensityMode records mean ring intensity instead of intersections.
	IntensityMode bool
	// Hemi restricts sampling to half the image.
	Hemi Hemi
	// Position is copied into the profile properties.
	Position Position
	// Progress, when set, is called after every radius.
	Progress ProgressFunc
	// Clock times the run for logging. Nil uses wall time.
	Clock timeutil.Clock
}

// DefaultOptions returns single-span sampling of any positive pixel value,
// with spike suppression enabled and the default calibration.
func DefaultOptions() Options {
	return Options{
		Calibration:      sholl.DefaultCalibration(),
		Threshold:        Threshold{Lower: 1, Upper: math.Inf(1)},
		Spans:            1,
		Integration:      IntegrationNone,
		SpikeSuppression: true,
	}
}

func (o Options) validate(img Image) error {
	if img == nil {
		return fmt.Errorf("%w: no image", ErrUnsetParameters)
	}
	if len(o.Radii) == 0 {
		return fmt.Errorf("%w: no radii", ErrUnsetParameters)
	}
	if !o.Center.In(img.Bounds()) {
		return fmt.Errorf("%w: center %v outside image %v", ErrUnsetParameters, o.Center, img.Bounds())
	}
	for _, r := range o.Radii {
		if math.IsNaN(r) || math.IsInf(r, 0) || r < 0 {
			return fmt.Errorf("%w: %g", sholl.ErrInvalidRadius, r)
		}
	}
	if o.Spans < 1 || o.Spans > MaxSpans {
		return fmt.Errorf("%w: %d not in [1, %d]", ErrSpanCount, o.Spans, MaxSpans)
	}
	if _, ok := integrationNames[o.Integration]; !ok {
		return fmt.Errorf("%w: %v", ErrUnrecognizedOption, o.Integration)
	}
	if _, ok := hemiNames[o.Hemi]; !ok {
		return fmt.Errorf("%w: %v", ErrUnrecognizedOption, o.Hemi)
	}
	return o.Threshold.validate()
}
