package sholl

import (
	"errors"
	"fmt"
	"math"
	"sort"
	"strconv"

	"github.com/google/uuid"
)

// Property keys understood by samplers, stats and renderers.
const (
	KeyID                  = "id"
	KeySource              = "source"
	KeyCenter              = "center"
	KeyCalibration         = "calibration"
	KeyDimensions          = "nDimensions"
	KeyChannelPos          = "channel"
	KeySlicePos            = "slice"
	KeyFramePos            = "frame"
	KeyThresholdRange      = "threshold"
	KeyNSamples            = "nSamples"
	KeyNSamplesIntegration = "nSamplesIntegration"
	KeyHemiShells          = "hemishells"
	KeyStepSize            = "stepSize"
	KeyEffectiveStepSize   = "effectiveStepSize"
)

// Property values.
const (
	Unset       = "?"
	SourceImage = "image"
	SourceTable = "table"
)

var (
	// ErrDuplicateRadius is returned when an entry's radius is already sampled.
	ErrDuplicateRadius = errors.New("duplicate profile radius")
	// ErrFrozen is returned when mutating a profile that has been frozen.
	ErrFrozen = errors.New("profile is frozen")
	// ErrInvalidRadius is returned for NaN or infinite radii.
	ErrInvalidRadius = errors.New("invalid profile radius")
	// ErrEmptyProfile is returned by consumers that need at least one entry.
	ErrEmptyProfile = errors.New("empty profile")
)

// Properties is the string-keyed metadata attached to a profile.
type Properties map[string]string

// Profile is an ordered radius -> count/length dataset.
//
// Entries are kept sorted by strictly increasing radius. A profile is built
// append-only and then frozen; stats consumers never mutate it.
type Profile struct {
	entries   []Entry
	center    *Point
	cal       Calibration
	props     Properties
	stepSize  float64 // <0: derive from entries
	intensity bool
	frozen    bool
}

// NewProfile returns an empty profile with a fresh identifier.
func NewProfile() *Profile {
	p := &Profile{
		cal:      DefaultCalibration(),
		props:    Properties{},
		stepSize: -1,
	}
	p.props[KeyID] = uuid.NewString()
	return p
}

// NewProfileFromData builds an unfrozen profile from parallel radius and count slices.
func NewProfileFromData(radii, counts []float64) (*Profile, error) {
	if len(radii) == 0 || len(radii) != len(counts) {
		return nil, fmt.Errorf("radii and counts must be non-empty and equal length (got %d and %d)", len(radii), len(counts))
	}
	p := NewProfile()
	for i := range radii {
		if err := p.Add(Entry{Radius: radii[i], Count: counts[i]}); err != nil {
			return nil, fmt.Errorf("entry %d: %w", i, err)
		}
	}
	return p, nil
}

// Add inserts an entry keeping radii sorted.
func (p *Profile) Add(e Entry) error {
	if p.frozen {
		return ErrFrozen
	}
	if math.IsNaN(e.Radius) || math.IsInf(e.Radius, 0) {
		return fmt.Errorf("%w: %v", ErrInvalidRadius, e.Radius)
	}
	i := sort.Search(len(p.entries), func(i int) bool { return p.entries[i].Radius >= e.Radius })
	if i < len(p.entries) && p.entries[i].Radius == e.Radius {
		return fmt.Errorf("%w: %g", ErrDuplicateRadius, e.Radius)
	}
	p.entries = append(p.entries, Entry{})
	copy(p.entries[i+1:], p.entries[i:])
	p.entries[i] = e.clone()
	return nil
}

// Freeze makes the profile read-only.
func (p *Profile) Freeze() { p.frozen = true }

// Frozen reports whether the profile is read-only.
func (p *Profile) Frozen() bool { return p.frozen }

// Len returns the number of entries.
func (p *Profile) Len() int { return len(p.entries) }

// Entries returns a copy of the entries in radius order.
func (p *Profile) Entries() []Entry {
	out := make([]Entry, len(p.entries))
	for i, e := range p.entries {
		out[i] = e.clone()
	}
	return out
}

// Radii returns the sampled radii in order.
func (p *Profile) Radii() []float64 {
	out := make([]float64, len(p.entries))
	for i, e := range p.entries {
		out[i] = e.Radius
	}
	return out
}

// Counts returns the sampled counts in radius order.
func (p *Profile) Counts() []float64 {
	out := make([]float64, len(p.entries))
	for i, e := range p.entries {
		out[i] = e.Count
	}
	return out
}

// Lengths returns the sampled arc lengths in radius order.
func (p *Profile) Lengths() []float64 {
	out := make([]float64, len(p.entries))
	for i, e := range p.entries {
		out[i] = e.Length
	}
	return out
}

// Points returns the representative points of each entry.
func (p *Profile) Points() [][]Point {
	out := make([][]Point, len(p.entries))
	for i, e := range p.entries {
		out[i] = e.clone().Points
	}
	return out
}

// HasPoints reports whether any entry carries representative points.
func (p *Profile) HasPoints() bool {
	for _, e := range p.entries {
		if len(e.Points) > 0 {
			return true
		}
	}
	return false
}

// StartRadius returns the first sampled radius, or NaN when empty.
func (p *Profile) StartRadius() float64 {
	if len(p.entries) == 0 {
		return math.NaN()
	}
	return p.entries[0].Radius
}

// EndRadius returns the last sampled radius, or NaN when empty.
func (p *Profile) EndRadius() float64 {
	if len(p.entries) == 0 {
		return math.NaN()
	}
	return p.entries[len(p.entries)-1].Radius
}

// SetStepSize sets the nominal radial step. Zero marks the step as unknown.
func (p *Profile) SetStepSize(step float64) {
	if step < 0 || math.IsNaN(step) {
		step = 0
	}
	p.stepSize = step
	p.props[KeyStepSize] = strconv.FormatFloat(step, 'g', -1, 64)
}

// StepSize returns the nominal radial step. Unless set explicitly it is the
// sum of consecutive radius differences divided by the number of entries.
func (p *Profile) StepSize() float64 {
	if p.stepSize >= 0 {
		return p.stepSize
	}
	if len(p.entries) == 0 {
		return 0
	}
	var sum float64
	for i := 1; i < len(p.entries); i++ {
		sum += p.entries[i].Radius - p.entries[i-1].Radius
	}
	return sum / float64(len(p.entries))
}

// CountAtRadius returns the count of the first entry within one step of radius.
func (p *Profile) CountAtRadius(radius float64) float64 {
	step := p.StepSize()
	for _, e := range p.entries {
		if e.Radius < radius+step && e.Radius >= radius-step {
			return e.Count
		}
	}
	return math.NaN()
}

// ZeroCounts returns the number of entries with a zero count.
func (p *Profile) ZeroCounts() int {
	n := 0
	for _, e := range p.entries {
		if e.Count == 0 {
			n++
		}
	}
	return n
}

// IsEmpty reports whether the profile has no entries or only zero counts.
func (p *Profile) IsEmpty() bool {
	return len(p.entries) == p.ZeroCounts()
}

// TrimZeroCounts removes entries with a zero radius or a zero count.
func (p *Profile) TrimZeroCounts() error {
	return p.removeIf(func(e Entry) bool { return e.Radius == 0 || e.Count == 0 })
}

// TrimNaNCounts removes entries whose count is NaN.
func (p *Profile) TrimNaNCounts() error {
	return p.removeIf(func(e Entry) bool { return math.IsNaN(e.Count) })
}

func (p *Profile) removeIf(drop func(Entry) bool) error {
	if p.frozen {
		return ErrFrozen
	}
	kept := p.entries[:0]
	for _, e := range p.entries {
		if !drop(e) {
			kept = append(kept, e)
		}
	}
	p.entries = kept
	return nil
}

// Scale rescales radii by the isotropic factor cbrt(x*y*z) and points per axis.
func (p *Profile) Scale(xScale, yScale, zScale float64) error {
	if p.frozen {
		return ErrFrozen
	}
	iso := math.Cbrt(xScale * yScale * zScale)
	if math.IsNaN(iso) || iso <= 0 {
		return fmt.Errorf("invalid scaling factors %g, %g, %g", xScale, yScale, zScale)
	}
	if p.center != nil {
		p.SetCenter(Point{X: p.center.X * xScale, Y: p.center.Y * yScale, Z: p.center.Z * zScale})
	}
	for i := range p.entries {
		e := &p.entries[i]
		e.Radius *= iso
		for j := range e.Points {
			e.Points[j].X *= xScale
			e.Points[j].Y *= yScale
			e.Points[j].Z *= zScale
		}
	}
	return nil
}

// Duplicate returns an unfrozen deep copy.
func (p *Profile) Duplicate() *Profile {
	dup := &Profile{
		entries:   p.Entries(),
		cal:       p.cal,
		props:     make(Properties, len(p.props)),
		stepSize:  p.stepSize,
		intensity: p.intensity,
	}
	if p.center != nil {
		c := *p.center
		dup.center = &c
	}
	for k, v := range p.props {
		dup.props[k] = v
	}
	return dup
}

// Center returns the analysis center and whether it has been set.
func (p *Profile) Center() (Point, bool) {
	if p.center == nil {
		return Point{}, false
	}
	return *p.center, true
}

// SetCenter sets the analysis center in calibrated units.
func (p *Profile) SetCenter(c Point) {
	p.center = &c
	p.props[KeyCenter] = c.String()
}

// Calibration returns the spatial calibration.
func (p *Profile) Calibration() Calibration { return p.cal }

// SetCalibration sets the spatial calibration.
func (p *Profile) SetCalibration(cal Calibration) {
	p.cal = cal
	p.props[KeyCalibration] = cal.String()
}

// ID returns the profile identifier.
func (p *Profile) ID() string { return p.props[KeyID] }

// SetID sets the profile identifier.
func (p *Profile) SetID(id string) { p.props[KeyID] = id }

// Source returns the profile source, or Unset.
func (p *Profile) Source() string { return p.Property(KeySource, Unset) }

// Property returns a property value or def when missing.
func (p *Profile) Property(key, def string) string {
	if v, ok := p.props[key]; ok {
		return v
	}
	return def
}

// SetProperty sets a property value.
func (p *Profile) SetProperty(key, value string) { p.props[key] = value }

// Properties returns a copy of the properties map.
func (p *Profile) Properties() Properties {
	out := make(Properties, len(p.props))
	for k, v := range p.props {
		out[k] = v
	}
	return out
}

// NDimensions returns 1, 2 or 3, or -1 when unknown.
func (p *Profile) NDimensions() int {
	n, err := strconv.Atoi(p.props[KeyDimensions])
	if err != nil {
		return -1
	}
	return n
}

// SetNDimensions records the dimensionality. Values outside 1-3 mark it unknown.
func (p *Profile) SetNDimensions(n int) {
	if n < 1 || n > 3 {
		p.props[KeyDimensions] = Unset
		return
	}
	p.props[KeyDimensions] = strconv.Itoa(n)
}

// Is2D reports whether the profile was sampled in two dimensions.
func (p *Profile) Is2D() bool { return p.NDimensions() == 2 }

// IntensityProfile reports whether counts hold mean intensities.
func (p *Profile) IntensityProfile() bool { return p.intensity }

// SetIntensityProfile flags counts as mean intensities.
func (p *Profile) SetIntensityProfile(v bool) { p.intensity = v }
