// Package imageio loads raster images and adapts them to the sampler's
// Image interface.
//
// PNG, JPEG and GIF come from the standard library; TIFF, BMP and WebP are
// registered from golang.org/x/image so microscopy exports open directly.
package imageio

import (
	"errors"
	"fmt"
	"image"
	"image/color"
	_ "image/gif"  // register GIF
	_ "image/jpeg" // register JPEG
	_ "image/png"  // register PNG
	"io"
	"strings"

	_ "golang.org/x/image/bmp"  // register BMP
	_ "golang.org/x/image/tiff" // register TIFF
	_ "golang.org/x/image/webp" // register WebP

	"github.com/banshee-data/sholl/internal/fsutil"
)

// ErrChannel is returned for a channel outside the image's channels.
var ErrChannel = errors.New("invalid image channel")

// Channel selects which component of a color image is sampled.
type Channel int

const (
	// Luminance samples the gray value of the pixel.
	Luminance Channel = iota
	Red
	Green
	Blue
)

var channelNames = map[Channel]string{
	Luminance: "luminance",
	Red:       "red",
	Green:     "green",
	Blue:      "blue",
}

func (c Channel) String() string {
	if s, ok := channelNames[c]; ok {
		return s
	}
	return fmt.Sprintf("Channel(%d)", int(c))
}

// ParseChannel maps a name or 0-3 index to a Channel.
func ParseChannel(s string) (Channel, error) {
	key := strings.ToLower(strings.TrimSpace(s))
	switch key {
	case "", "0", "gray", "grey", "luminance", "l":
		return Luminance, nil
	case "1", "red", "r":
		return Red, nil
	case "2", "green", "g":
		return Green, nil
	case "3", "blue", "b":
		return Blue, nil
	}
	return Luminance, fmt.Errorf("%w: %q", ErrChannel, s)
}

// Gray exposes one channel of an image.Image as float pixel values. 8-bit
// sources report values in [0, 255] and 16-bit sources in [0, 65535].
type Gray struct {
	img     image.Image
	channel Channel
	deep    bool
}

// NewGray wraps img, sampling channel c.
func NewGray(img image.Image, c Channel) (*Gray, error) {
	if _, ok := channelNames[c]; !ok {
		return nil, fmt.Errorf("%w: %v", ErrChannel, c)
	}
	return &Gray{img: img, channel: c, deep: sixteenBit(img)}, nil
}

// Bounds returns the image bounds.
func (g *Gray) Bounds() image.Rectangle { return g.img.Bounds() }

// Value returns the selected channel at (x, y), or 0 outside the bounds.
func (g *Gray) Value(x, y int) float64 {
	if !image.Pt(x, y).In(g.img.Bounds()) {
		return 0
	}
	switch src := g.img.(type) {
	case *image.Gray:
		return float64(src.GrayAt(x, y).Y)
	case *image.Gray16:
		return float64(src.Gray16At(x, y).Y)
	}

	c := g.img.At(x, y)
	var v uint32
	if g.channel == Luminance {
		v = uint32(color.Gray16Model.Convert(c).(color.Gray16).Y)
	} else {
		r, gr, b, _ := c.RGBA()
		v = [...]uint32{0, r, gr, b}[g.channel]
	}
	if g.deep {
		return float64(v)
	}
	return float64(v >> 8)
}

// Intensity returns the same value as Value; thresholds do not apply to it.
func (g *Gray) Intensity(x, y int) float64 { return g.Value(x, y) }

// BitDepth returns 16 for 16-bit sources and 8 otherwise.
func (g *Gray) BitDepth() int {
	if g.deep {
		return 16
	}
	return 8
}

func sixteenBit(img image.Image) bool {
	switch img.ColorModel() {
	case color.Gray16Model, color.RGBA64Model, color.NRGBA64Model:
		return true
	}
	return false
}

// Decode reads an image and returns it with its format name.
func Decode(r io.Reader) (image.Image, string, error) {
	img, format, err := image.Decode(r)
	if err != nil {
		return nil, "", fmt.Errorf("failed to decode image: %w", err)
	}
	return img, format, nil
}

// Load opens path on fsys and decodes it.
func Load(fsys fsutil.FileSystem, path string) (image.Image, string, error) {
	f, err := fsys.Open(path)
	if err != nil {
		return nil, "", fmt.Errorf("failed to open image: %w", err)
	}
	defer f.Close()

	img, format, err := Decode(f)
	if err != nil {
		return nil, "", fmt.Errorf("%s: %w", path, err)
	}
	return img, format, nil
}

// LoadGray loads path and wraps channel c of it.
func LoadGray(fsys fsutil.FileSystem, path string, c Channel) (*Gray, error) {
	img, _, err := Load(fsys, path)
	if err != nil {
		return nil, err
	}
	return NewGray(img, c)
}
