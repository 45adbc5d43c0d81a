// Package units provides shared constants and validation for spatial calibration units
package units

import (
	"fmt"
	"strings"
)

// Unit constants
const (
	Pixel      = "px"
	Nanometer  = "nm"
	Micrometer = "um"
	Millimeter = "mm"
	Centimeter = "cm"
	Meter      = "m"
)

// ValidUnits contains all valid unit values
var ValidUnits = []string{Pixel, Nanometer, Micrometer, Millimeter, Centimeter, Meter}

// metres per unit; pixels have no physical size
var perMetre = map[string]float64{
	Nanometer:  1e-9,
	Micrometer: 1e-6,
	Millimeter: 1e-3,
	Centimeter: 1e-2,
	Meter:      1,
}

// Normalize maps common spellings (µm, micron, pixels) onto the unit constants.
// Unknown units are returned unchanged.
func Normalize(unit string) string {
	switch u := strings.TrimSpace(unit); u {
	case "µm", "μm", "micron", "microns":
		return Micrometer
	case "pixel", "pixels":
		return Pixel
	default:
		return u
	}
}

// IsValid checks if the given unit is in the list of valid units
func IsValid(unit string) bool {
	unit = Normalize(unit)
	for _, validUnit := range ValidUnits {
		if unit == validUnit {
			return true
		}
	}
	return false
}

// GetValidUnitsString returns a comma-separated string of valid units for error messages
func GetValidUnitsString() string {
	return strings.Join(ValidUnits, ", ")
}

// ConvertLength converts a length between two physical units.
// Pixels only convert to pixels.
func ConvertLength(value float64, from, to string) (float64, error) {
	from, to = Normalize(from), Normalize(to)
	if from == to {
		return value, nil
	}
	fromScale, okFrom := perMetre[from]
	toScale, okTo := perMetre[to]
	if !okFrom || !okTo {
		return 0, fmt.Errorf("cannot convert %q to %q (valid units: %s)", from, to, GetValidUnitsString())
	}
	return value * fromScale / toScale, nil
}
