// Package ring rasterizes circles into ordered, closed pixel sequences and
// analyses 0/1 foreground masks laid along them.
//
// A Ring is a circular buffer: index n-1 is adjacent to index 0. Spike
// suppression, arc length and run detection all walk it through Next and
// Prev, so the wrap-around seam needs no special case.
package ring

import (
	"image"
	"math"
)

// Ring is the ordered sequence of pixels traversed around a circle.
type Ring struct {
	pts []image.Point
}

// New wraps an ordered pixel sequence. The slice is used as-is.
func New(pts []image.Point) Ring {
	return Ring{pts: pts}
}

// Circle rasterizes the circle of the given integer radius around (cx, cy).
//
// The first octant is walked from (0, r) towards the diagonal taking unit
// right or down steps, then reflected into the other seven octants in
// traversal order. The reflected seams are dropped so each pixel appears once,
// giving 8*radius 4-connected pixels. Pixels outside any image are kept; the
// caller decides what they read as.
func Circle(cx, cy, radius int) Ring {
	if radius < 1 {
		return Ring{}
	}

	// The walk ends on the diagonal after exactly radius+1 points.
	r := radius + 1
	octant := make([]image.Point, r)
	x, y, e := 0, radius, 0
	for i := 0; i < r; i++ {
		octant[i] = image.Point{X: x, Y: y}
		errR := e + 2*x + 1
		errD := e - 2*y + 1
		if abs(errD) < abs(errR) {
			y--
			e = errD
		} else {
			x++
			e = errR
		}
	}

	full := make([]image.Point, 8*r)
	for i, p := range octant {
		x, y := p.X, p.Y
		full[i] = image.Point{X: cx + x, Y: cy + y}
		full[2*r-i-1] = image.Point{X: cx + y, Y: cy + x}
		full[2*r+i] = image.Point{X: cx + y, Y: cy - x}
		full[4*r-i-1] = image.Point{X: cx + x, Y: cy - y}
		full[4*r+i] = image.Point{X: cx - x, Y: cy - y}
		full[6*r-i-1] = image.Point{X: cx - y, Y: cy - x}
		full[6*r+i] = image.Point{X: cx - y, Y: cy + x}
		full[8*r-i-1] = image.Point{X: cx - x, Y: cy + y}
	}

	// Every r-th slot duplicates its successor's first pixel.
	pts := make([]image.Point, 0, 8*radius)
	for i, p := range full {
		if (i+1)%r != 0 {
			pts = append(pts, p)
		}
	}
	return Ring{pts: pts}
}

// Len returns the number of pixels on the ring.
func (r Ring) Len() int { return len(r.pts) }

// At returns the i-th pixel.
func (r Ring) At(i int) image.Point { return r.pts[i] }

// Next returns the index following i, wrapping to 0.
func (r Ring) Next(i int) int { return (i + 1) % len(r.pts) }

// Prev returns the index preceding i, wrapping to n-1.
func (r Ring) Prev(i int) int { return (i - 1 + len(r.pts)) % len(r.pts) }

// Wrap maps any index onto the ring.
func (r Ring) Wrap(i int) int {
	n := len(r.pts)
	return ((i % n) + n) % n
}

// Points returns a copy of the pixel sequence.
func (r Ring) Points() []image.Point {
	out := make([]image.Point, len(r.pts))
	copy(out, r.pts)
	return out
}

// Mask is a 0/1 foreground flag per ring slot.
type Mask []uint8

// SuppressSpikes clears foreground pixels whose two circular neighbours are
// both background. Neighbour tests read a snapshot, so clearing one pixel
// never affects the test for another in the same pass. Runs of two or more
// pixels are untouched.
func SuppressSpikes(r Ring, m Mask) {
	n := len(m)
	if n == 0 || n != r.Len() {
		return
	}
	drop := make([]bool, n)
	for i := 0; i < n; i++ {
		if m[i] != 0 && m[r.Prev(i)] == 0 && m[r.Next(i)] == 0 {
			drop[i] = true
		}
	}
	for i, d := range drop {
		if d {
			m[i] = 0
		}
	}
}

// Length sums the calibrated distance between each pair of adjacent ring
// pixels that are both foreground.
func Length(r Ring, m Mask, pixelWidth, pixelHeight float64) float64 {
	n := r.Len()
	if n == 0 || len(m) != n {
		return 0
	}
	if pixelWidth <= 0 {
		pixelWidth = 1
	}
	if pixelHeight <= 0 {
		pixelHeight = 1
	}
	var length float64
	for i := 0; i < n; i++ {
		j := r.Next(i)
		if m[i] != 0 && m[j] != 0 {
			a, b := r.pts[i], r.pts[j]
			length += math.Hypot(float64(b.X-a.X)*pixelWidth, float64(b.Y-a.Y)*pixelHeight)
		}
	}
	return length
}

func abs(v int) int {
	if v < 0 {
		return -v
	}
	return v
}
