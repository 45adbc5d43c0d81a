// Package testutil provides shared test utilities and fixtures.
//
// The raster fixtures satisfy the sampler's image interfaces, so tests across
// packages can build synthetic neurons without decoding files.
package testutil

import (
	"image"
	"math"
	"testing"
)

// AssertNoError fails the test if err is not nil.
func AssertNoError(t testing.TB, err error) {
	t.Helper()
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
}

// AssertError fails the test if err is nil.
func AssertError(t testing.TB, err error) {
	t.Helper()
	if err == nil {
		t.Fatal("expected error, got nil")
	}
}

// AssertFloatsNear fails the test when the slices differ in length or any
// pair differs by more than tol. NaN matches NaN.
func AssertFloatsNear(t testing.TB, got, want []float64, tol float64) {
	t.Helper()
	if len(got) != len(want) {
		t.Fatalf("length = %d, want %d (got %v)", len(got), len(want), got)
		return
	}
	for i := range want {
		if math.IsNaN(want[i]) && math.IsNaN(got[i]) {
			continue
		}
		if math.IsNaN(got[i]) || math.Abs(got[i]-want[i]) > tol {
			t.Errorf("index %d: got %v, want %v (tol %g)", i, got[i], want[i], tol)
		}
	}
}

// Raster is an in-memory float image anchored at the origin.
type Raster struct {
	W, H int
	Pix  []float64
}

// NewRaster returns a zero-filled w x h raster.
func NewRaster(w, h int) *Raster {
	return &Raster{W: w, H: h, Pix: make([]float64, w*h)}
}

// Bounds returns the raster rectangle.
func (r *Raster) Bounds() image.Rectangle { return image.Rect(0, 0, r.W, r.H) }

// Value returns the pixel value at (x, y), or 0 outside the raster.
func (r *Raster) Value(x, y int) float64 {
	if x < 0 || y < 0 || x >= r.W || y >= r.H {
		return 0
	}
	return r.Pix[y*r.W+x]
}

// Intensity is Value; it lets the raster drive intensity sampling.
func (r *Raster) Intensity(x, y int) float64 { return r.Value(x, y) }

// Set stores v at (x, y). Points outside the raster are ignored.
func (r *Raster) Set(x, y int, v float64) {
	if x < 0 || y < 0 || x >= r.W || y >= r.H {
		return
	}
	r.Pix[y*r.W+x] = v
}

// FillDisk sets every pixel within radius of (cx, cy).
func (r *Raster) FillDisk(cx, cy int, radius, v float64) *Raster {
	for y := 0; y < r.H; y++ {
		for x := 0; x < r.W; x++ {
			if math.Hypot(float64(x-cx), float64(y-cy)) <= radius {
				r.Set(x, y, v)
			}
		}
	}
	return r
}

// FillRect sets every pixel in the half-open rectangle [x0,x1) x [y0,y1).
func (r *Raster) FillRect(x0, y0, x1, y1 int, v float64) *Raster {
	for y := y0; y < y1; y++ {
		for x := x0; x < x1; x++ {
			r.Set(x, y, v)
		}
	}
	return r
}

// Disk returns a w x h raster holding a single filled disk of value v.
func Disk(w, h, cx, cy int, radius, v float64) *Raster {
	return NewRaster(w, h).FillDisk(cx, cy, radius, v)
}

// Star returns a w x h raster with four axis-aligned arms of the given
// length and width 2*halfWidth+1 radiating from (cx, cy).
func Star(w, h, cx, cy, length, halfWidth int, v float64) *Raster {
	r := NewRaster(w, h)
	r.FillRect(cx-halfWidth, cy-length, cx+halfWidth+1, cy+length+1, v)
	r.FillRect(cx-length, cy-halfWidth, cx+length+1, cy+halfWidth+1, v)
	return r
}

// Arbor returns a synthetic dendritic arbor centred at (cx, cy): arms
// radiating at evenly spaced angles, each forking once at half its length.
// The number of branches crossing a ring therefore doubles past the fork.
func Arbor(w, h, cx, cy, arms, length int, v float64) *Raster {
	r := NewRaster(w, h)
	r.FillDisk(cx, cy, 3, v)
	fork := float64(length) / 2
	for a := 0; a < arms; a++ {
		theta := 2 * math.Pi * float64(a) / float64(arms)
		fx := float64(cx) + fork*math.Cos(theta)
		fy := float64(cy) + fork*math.Sin(theta)
		r.thickLine(float64(cx), float64(cy), fx, fy, v)
		spread := math.Pi / float64(2*arms)
		for _, d := range []float64{-spread, spread} {
			ex := fx + fork*math.Cos(theta+d)
			ey := fy + fork*math.Sin(theta+d)
			r.thickLine(fx, fy, ex, ey, v)
		}
	}
	return r
}

// thickLine stamps a 3x3 brush along the segment so rings cross it with
// runs of more than one pixel.
func (r *Raster) thickLine(x0, y0, x1, y1, v float64) {
	steps := int(math.Ceil(math.Hypot(x1-x0, y1-y0)*2)) + 1
	for i := 0; i <= steps; i++ {
		f := float64(i) / float64(steps)
		x := int(math.Round(x0 + f*(x1-x0)))
		y := int(math.Round(y0 + f*(y1-y0)))
		r.FillRect(x-1, y-1, x+2, y+2, v)
	}
}
