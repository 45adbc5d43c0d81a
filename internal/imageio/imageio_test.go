package imageio

import (
	"bytes"
	"image"
	"image/color"
	"image/png"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/image/bmp"
	"golang.org/x/image/tiff"

	"github.com/banshee-data/sholl/internal/fsutil"
)

func grayFixture() *image.Gray {
	img := image.NewGray(image.Rect(0, 0, 4, 3))
	img.SetGray(1, 1, color.Gray{Y: 200})
	img.SetGray(3, 2, color.Gray{Y: 17})
	return img
}

func TestLoad_Formats(t *testing.T) {
	testCases := []struct {
		format string
		encode func(*bytes.Buffer, image.Image) error
	}{
		{"png", func(b *bytes.Buffer, img image.Image) error { return png.Encode(b, img) }},
		{"tiff", func(b *bytes.Buffer, img image.Image) error { return tiff.Encode(b, img, nil) }},
		{"bmp", func(b *bytes.Buffer, img image.Image) error { return bmp.Encode(b, img) }},
	}

	for _, tc := range testCases {
		t.Run(tc.format, func(t *testing.T) {
			var buf bytes.Buffer
			require.NoError(t, tc.encode(&buf, grayFixture()))

			fsys := fsutil.NewMemoryFileSystem()
			path := "/images/cell." + tc.format
			require.NoError(t, fsys.WriteFile(path, buf.Bytes(), 0o644))

			img, format, err := Load(fsys, path)
			require.NoError(t, err)
			assert.Equal(t, tc.format, format)
			assert.Equal(t, image.Rect(0, 0, 4, 3), img.Bounds())

			g, err := NewGray(img, Luminance)
			require.NoError(t, err)
			assert.Equal(t, 200.0, g.Value(1, 1))
			assert.Equal(t, 17.0, g.Value(3, 2))
			assert.Equal(t, 0.0, g.Value(0, 0))
		})
	}
}

func TestLoad_Errors(t *testing.T) {
	fsys := fsutil.NewMemoryFileSystem()
	_, _, err := Load(fsys, "/missing.png")
	assert.Error(t, err)

	require.NoError(t, fsys.WriteFile("/junk.png", []byte("not an image"), 0o644))
	_, err = LoadGray(fsys, "/junk.png", Luminance)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "decode")
}

func TestGray_Channels(t *testing.T) {
	img := image.NewRGBA(image.Rect(0, 0, 2, 2))
	img.Set(0, 0, color.RGBA{R: 10, G: 20, B: 30, A: 255})
	img.Set(1, 1, color.RGBA{R: 255, G: 255, B: 255, A: 255})

	testCases := []struct {
		channel Channel
		want    float64
	}{
		{Red, 10},
		{Green, 20},
		{Blue, 30},
	}
	for _, tc := range testCases {
		t.Run(tc.channel.String(), func(t *testing.T) {
			g, err := NewGray(img, tc.channel)
			require.NoError(t, err)
			assert.Equal(t, tc.want, g.Value(0, 0))
			assert.Equal(t, 255.0, g.Value(1, 1))
			assert.Equal(t, 8, g.BitDepth())
		})
	}

	lum, err := NewGray(img, Luminance)
	require.NoError(t, err)
	assert.Equal(t, 255.0, lum.Intensity(1, 1))
	assert.Equal(t, 0.0, lum.Value(5, 5), "outside bounds")

	_, err = NewGray(img, Channel(9))
	assert.ErrorIs(t, err, ErrChannel)
}

func TestGray_SixteenBit(t *testing.T) {
	img := image.NewGray16(image.Rect(0, 0, 2, 1))
	img.SetGray16(1, 0, color.Gray16{Y: 4095})

	g, err := NewGray(img, Luminance)
	require.NoError(t, err)
	assert.Equal(t, 16, g.BitDepth())
	assert.Equal(t, 4095.0, g.Value(1, 0))

	rgba64 := image.NewRGBA64(image.Rect(0, 0, 1, 1))
	rgba64.SetRGBA64(0, 0, color.RGBA64{R: 1000, G: 2000, B: 3000, A: 0xffff})
	g, err = NewGray(rgba64, Green)
	require.NoError(t, err)
	assert.Equal(t, 2000.0, g.Value(0, 0))
}

func TestParseChannel(t *testing.T) {
	testCases := map[string]Channel{
		"":      Luminance,
		"gray":  Luminance,
		"1":     Red,
		"G":     Green,
		" blue": Blue,
	}
	for in, want := range testCases {
		got, err := ParseChannel(in)
		require.NoError(t, err, in)
		assert.Equal(t, want, got, in)
	}
	_, err := ParseChannel("alpha")
	assert.ErrorIs(t, err, ErrChannel)
}
