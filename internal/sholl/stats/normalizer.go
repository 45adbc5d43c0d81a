package stats

import (
	"errors"
	"fmt"
	"strings"

	"github.com/banshee-data/sholl/internal/sholl"
)

var (
	// ErrUnrecognizedFlag is returned for an unknown normalizer, method or data mode.
	ErrUnrecognizedFlag = errors.New("unrecognized flag")
	// ErrDimensionMismatch is returned when a 3-D normalizer is applied to a 2-D profile.
	ErrDimensionMismatch = errors.New("normalizer dimensionality does not match profile")
	// ErrEmptyProfile is returned for a nil profile or one without entries.
	ErrEmptyProfile = sholl.ErrEmptyProfile
	// ErrNoFit is returned by metrics that need a polynomial fit before one exists.
	ErrNoFit = errors.New("fitted data required but fit not yet performed")
)

// Normalizer selects the geometric quantity counts are divided by. Each
// value is a distinct power of two.
type Normalizer int

const (
	Area           Normalizer = 2
	Perimeter      Normalizer = 4
	Annulus        Normalizer = 8
	Volume         Normalizer = 16
	Surface        Normalizer = 32
	SphericalShell Normalizer = 64
)

type normalizerInfo struct {
	label string
	dims  int
}

var normalizers = map[Normalizer]normalizerInfo{
	Area:           {"Area", 2},
	Perimeter:      {"Perimeter", 2},
	Annulus:        {"Annulus", 2},
	Volume:         {"Volume", 3},
	Surface:        {"Surface", 3},
	SphericalShell: {"Spherical shell", 3},
}

// Normalizers returns every normalizer in ascending flag order.
func Normalizers() []Normalizer {
	return []Normalizer{Area, Perimeter, Annulus, Volume, Surface, SphericalShell}
}

// Dimensions returns 2 or 3 for a known normalizer and 0 otherwise.
func (n Normalizer) Dimensions() int { return normalizers[n].dims }

// Is2D reports whether n normalizes by a planar quantity.
func (n Normalizer) Is2D() bool { return n.Dimensions() == 2 }

// Is3D reports whether n normalizes by a volumetric quantity.
func (n Normalizer) Is3D() bool { return n.Dimensions() == 3 }

func (n Normalizer) String() string {
	if info, ok := normalizers[n]; ok {
		return info.label
	}
	return fmt.Sprintf("Normalizer(%d)", int(n))
}

// ParseNormalizer maps a case-insensitive name to a Normalizer.
func ParseNormalizer(s string) (Normalizer, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "area":
		return Area, nil
	case "perimeter":
		return Perimeter, nil
	case "annulus":
		return Annulus, nil
	case "volume":
		return Volume, nil
	case "surface", "surface area":
		return Surface, nil
	case "spheric shell", "spherical shell", "spherical_shell", "shell":
		return SphericalShell, nil
	}
	return 0, fmt.Errorf("%w: normalizer %q", ErrUnrecognizedFlag, s)
}

// Method selects the regression used as the fit surface.
type Method int

const (
	SemiLog Method = 128
	LogLog  Method = 256
	Auto    Method = 512
)

func (m Method) String() string {
	switch m {
	case SemiLog:
		return "Semi-log"
	case LogLog:
		return "Log-log"
	case Auto:
		return "Automatically choose"
	}
	return fmt.Sprintf("Method(%d)", int(m))
}

// ParseMethod maps a name to a Method. Case and spaces are ignored.
func ParseMethod(s string) (Method, error) {
	key := strings.ReplaceAll(strings.ToLower(strings.TrimSpace(s)), " ", "")
	switch key {
	case "automaticallychoose", "default", "guess", "determine", "calculate", "auto":
		return Auto, nil
	case "semi-log", "semi_log", "semilog":
		return SemiLog, nil
	case "log-log", "log_log", "loglog":
		return LogLog, nil
	}
	return 0, fmt.Errorf("%w: method %q", ErrUnrecognizedFlag, s)
}

// DataMode selects which entry field is analysed.
type DataMode int

const (
	// DataIntersections analyses entry counts.
	DataIntersections DataMode = iota
	// DataLength analyses entry arc lengths.
	DataLength
)

func (d DataMode) String() string {
	switch d {
	case DataIntersections:
		return "Intersections"
	case DataLength:
		return "Length"
	}
	return fmt.Sprintf("DataMode(%d)", int(d))
}

// ParseDataMode maps a case-insensitive name to a DataMode.
func ParseDataMode(s string) (DataMode, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "", "intersections", "counts", "count":
		return DataIntersections, nil
	case "length", "lengths":
		return DataLength, nil
	}
	return 0, fmt.Errorf("%w: data mode %q", ErrUnrecognizedFlag, s)
}

// sampledData returns parallel radius and value arrays for mode.
func sampledData(p *sholl.Profile, mode DataMode) (radii, values []float64, err error) {
	if p == nil || p.Len() == 0 {
		return nil, nil, ErrEmptyProfile
	}
	switch mode {
	case DataIntersections:
		return p.Radii(), p.Counts(), nil
	case DataLength:
		return p.Radii(), p.Lengths(), nil
	}
	return nil, nil, fmt.Errorf("%w: %v", ErrUnrecognizedFlag, mode)
}
