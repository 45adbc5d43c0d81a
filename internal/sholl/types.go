package sholl

import (
	"fmt"
	"math"
	"strconv"
	"strings"

	"github.com/banshee-data/sholl/internal/units"
)

// Point is a location in calibrated (physical) units.
type Point struct {
	X, Y, Z float64
}

// PixelPoint converts integer pixel coordinates to a calibrated Point.
func PixelPoint(x, y int, cal Calibration) Point {
	return Point{
		X: float64(x) * cal.pixelWidth(),
		Y: float64(y) * cal.pixelHeight(),
	}
}

// RawX returns the x coordinate in pixels.
func (p Point) RawX(cal Calibration) float64 { return p.X / cal.pixelWidth() }

// RawY returns the y coordinate in pixels.
func (p Point) RawY(cal Calibration) float64 { return p.Y / cal.pixelHeight() }

// DistanceTo returns the Euclidean distance between two points.
func (p Point) DistanceTo(o Point) float64 {
	return math.Sqrt(p.DistanceSquaredTo(o))
}

// DistanceSquaredTo returns the squared Euclidean distance between two points.
func (p Point) DistanceSquaredTo(o Point) float64 {
	dx, dy, dz := p.X-o.X, p.Y-o.Y, p.Z-o.Z
	return dx*dx + dy*dy + dz*dz
}

func (p Point) String() string {
	return fmt.Sprintf("%g,%g,%g", p.X, p.Y, p.Z)
}

// ParsePoint parses the "x,y,z" form produced by Point.String.
func ParsePoint(s string) (Point, error) {
	parts := strings.Split(s, ",")
	if len(parts) != 3 {
		return Point{}, fmt.Errorf("invalid point %q: expected x,y,z", s)
	}
	var v [3]float64
	for i, part := range parts {
		f, err := strconv.ParseFloat(strings.TrimSpace(part), 64)
		if err != nil {
			return Point{}, fmt.Errorf("invalid point coordinate %q: %w", part, err)
		}
		v[i] = f
	}
	return Point{X: v[0], Y: v[1], Z: v[2]}, nil
}

// Calibration maps pixel indices to physical units.
// Non-positive sizes are treated as 1 so uncalibrated images measure in pixels.
type Calibration struct {
	PixelWidth  float64
	PixelHeight float64
	PixelDepth  float64
	Unit        string
}

// DefaultCalibration is the identity calibration in pixels.
func DefaultCalibration() Calibration {
	return Calibration{PixelWidth: 1, PixelHeight: 1, PixelDepth: 1, Unit: units.Pixel}
}

func (c Calibration) pixelWidth() float64 {
	if c.PixelWidth > 0 {
		return c.PixelWidth
	}
	return 1
}

func (c Calibration) pixelHeight() float64 {
	if c.PixelHeight > 0 {
		return c.PixelHeight
	}
	return 1
}

// PixelSizes returns the effective pixel width and height.
func (c Calibration) PixelSizes() (pw, ph float64) {
	return c.pixelWidth(), c.pixelHeight()
}

// VoxelSize2D is the isotropic pixel size used to convert radii to pixels.
func (c Calibration) VoxelSize2D() float64 {
	return (c.pixelWidth() + c.pixelHeight()) / 2
}

// Scaled reports whether the calibration differs from raw pixels.
func (c Calibration) Scaled() bool {
	if !units.IsValid(c.Unit) || units.Normalize(c.Unit) == units.Pixel {
		return false
	}
	return c.pixelWidth() != 1 || c.pixelHeight() != 1
}

func (c Calibration) String() string {
	unit := c.Unit
	if unit == "" {
		unit = units.Pixel
	}
	return fmt.Sprintf("w=%g, h=%g, d=%g, unit=%s", c.PixelWidth, c.PixelHeight, c.PixelDepth, unit)
}

// ParseCalibration parses the form produced by Calibration.String.
// Missing fields default to 1 (sizes) and pixels (unit).
func ParseCalibration(s string) (Calibration, error) {
	cal := DefaultCalibration()
	for _, field := range strings.Split(s, ",") {
		field = strings.TrimSpace(field)
		key, value, ok := strings.Cut(field, "=")
		if !ok {
			continue
		}
		if key == "unit" {
			cal.Unit = value
			continue
		}
		v, err := strconv.ParseFloat(value, 64)
		if err != nil {
			return Calibration{}, fmt.Errorf("invalid calibration field %q: %w", field, err)
		}
		switch key {
		case "w":
			cal.PixelWidth = v
		case "h":
			cal.PixelHeight = v
		case "d":
			cal.PixelDepth = v
		}
	}
	return cal, nil
}

// Entry is one sampled radius of a profile.
type Entry struct {
	// Radius in physical units.
	Radius float64
	// Count is an intersection count, or a mean intensity for intensity profiles.
	Count float64
	// Length is the calibrated arc length covered by foreground at Radius.
	Length float64
	// Points holds one calibrated representative location per detected run.
	Points []Point
}

func (e Entry) clone() Entry {
	if e.Points != nil {
		pts := make([]Point, len(e.Points))
		copy(pts, e.Points)
		e.Points = pts
	}
	return e
}
