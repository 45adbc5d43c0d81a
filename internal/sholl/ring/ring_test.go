package ring

import (
	"image"
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCircle_PixelCount(t *testing.T) {
	t.Parallel()

	for _, radius := range []int{1, 2, 5, 17, 60} {
		r := Circle(10, 10, radius)
		assert.Equal(t, 8*radius, r.Len(), "radius %d", radius)
	}
	assert.Equal(t, 0, Circle(0, 0, 0).Len())
}

func TestCircle_UniqueAndConnected(t *testing.T) {
	t.Parallel()

	r := Circle(0, 0, 23)
	seen := make(map[image.Point]bool, r.Len())
	for i := 0; i < r.Len(); i++ {
		p := r.At(i)
		require.False(t, seen[p], "pixel %v repeated at %d", p, i)
		seen[p] = true

		q := r.At(r.Next(i))
		step := abs(q.X-p.X) + abs(q.Y-p.Y)
		assert.Equal(t, 1, step, "pixels %d and %d are not 4-connected: %v %v", i, r.Next(i), p, q)
	}
}

func TestCircle_StaysNearRadius(t *testing.T) {
	t.Parallel()

	const radius = 40
	r := Circle(100, 50, radius)
	for _, p := range r.Points() {
		d := math.Hypot(float64(p.X-100), float64(p.Y-50))
		assert.InDelta(t, radius, d, 1.0, "pixel %v", p)
	}
}

func TestCircle_KeepsOutOfBoundsPixels(t *testing.T) {
	t.Parallel()

	r := Circle(0, 0, 4)
	require.Equal(t, 32, r.Len())

	var negative int
	for _, p := range r.Points() {
		if p.X < 0 || p.Y < 0 {
			negative++
		}
	}
	assert.Greater(t, negative, 0)
}

func TestWrap(t *testing.T) {
	t.Parallel()

	r := Circle(0, 0, 1)
	require.Equal(t, 8, r.Len())
	assert.Equal(t, 0, r.Next(7))
	assert.Equal(t, 7, r.Prev(0))
	assert.Equal(t, 3, r.Wrap(11))
	assert.Equal(t, 6, r.Wrap(-2))
}

func TestSuppressSpikes(t *testing.T) {
	t.Parallel()

	r := Circle(0, 0, 1)
	testCases := []struct {
		name string
		in   Mask
		want Mask
	}{
		{"isolated_pixel", Mask{0, 0, 1, 0, 0, 0, 0, 0}, Mask{0, 0, 0, 0, 0, 0, 0, 0}},
		{"pair_kept", Mask{0, 0, 1, 1, 0, 0, 0, 0}, Mask{0, 0, 1, 1, 0, 0, 0, 0}},
		{"alternating", Mask{1, 0, 1, 0, 1, 0, 1, 0}, Mask{0, 0, 0, 0, 0, 0, 0, 0}},
		{"spike_at_seam", Mask{1, 0, 0, 1, 1, 1, 0, 0}, Mask{0, 0, 0, 1, 1, 1, 0, 0}},
		{"pair_across_seam", Mask{1, 0, 0, 0, 0, 0, 0, 1}, Mask{1, 0, 0, 0, 0, 0, 0, 1}},
		{"full", Mask{1, 1, 1, 1, 1, 1, 1, 1}, Mask{1, 1, 1, 1, 1, 1, 1, 1}},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			m := append(Mask(nil), tc.in...)
			SuppressSpikes(r, m)
			assert.Equal(t, tc.want, m)
		})
	}
}

func TestRuns_WrapMerge(t *testing.T) {
	t.Parallel()

	r := Circle(0, 0, 2)
	require.Equal(t, 16, r.Len())

	m := make(Mask, 16)
	// one structure across the seam and one in the middle
	for _, i := range []int{14, 15, 0, 1, 7, 8} {
		m[i] = 1
	}

	linear := LinearRuns(m)
	assert.Len(t, linear, 3, "a seam-blind scan counts the crossing structure twice")

	runs := Runs(r, m)
	require.Len(t, runs, 2)
	assert.Equal(t, Run{Start: 14, Count: 4}, runs[0])
	assert.Equal(t, Run{Start: 7, Count: 2}, runs[1])
	assert.Equal(t, 1, runs[0].End(r))
	assert.Equal(t, 0, runs[0].Mid(r))
	assert.Equal(t, 8, runs[1].Mid(r))

	reps := Representatives(r, runs)
	assert.Equal(t, []image.Point{r.At(0), r.At(8)}, reps)
}

func TestRuns_FullRingIsOneRun(t *testing.T) {
	t.Parallel()

	r := Circle(5, 5, 3)
	m := make(Mask, r.Len())
	for i := range m {
		m[i] = 1
	}
	runs := Runs(r, m)
	require.Len(t, runs, 1)
	assert.Equal(t, r.Len(), runs[0].Count)
}

func TestRuns_Empty(t *testing.T) {
	t.Parallel()

	r := Circle(0, 0, 2)
	assert.Empty(t, Runs(r, make(Mask, r.Len())))
	assert.Nil(t, Runs(r, make(Mask, 3)), "mask length must match the ring")
}

func TestLength(t *testing.T) {
	t.Parallel()

	r := Circle(0, 0, 10)
	full := make(Mask, r.Len())
	for i := range full {
		full[i] = 1
	}
	// every adjacent pair is a unit step
	assert.InDelta(t, float64(r.Len()), Length(r, full, 1, 1), 1e-9)
	assert.InDelta(t, 2*float64(r.Len()), Length(r, full, 2, 2), 1e-9)

	partial := make(Mask, r.Len())
	partial[3], partial[4], partial[5] = 1, 1, 1
	assert.InDelta(t, 2.0, Length(r, partial, 1, 1), 1e-9)

	assert.Zero(t, Length(r, make(Mask, r.Len()), 1, 1))
}
