// Package pgm reads and writes grayscale images in the Netpbm PGM container.
package pgm

import (
	"errors"
	"fmt"
	"image"
)

// Error kinds returned by the codec. Callers compare with errors.Is.
var (
	// ErrFormat reports a malformed header: unknown magic, bad dimensions or max value.
	ErrFormat = errors.New("pgm: invalid format")

	// ErrIO reports an open/read/write failure or a truncated raster.
	ErrIO = errors.New("pgm: i/o error")
)

// MaxPixels bounds width*height so a hostile header cannot force a huge allocation.
const MaxPixels = 1 << 28

// MaxSampleValue is the largest max value a PGM header may declare.
const MaxSampleValue = 65535

// Variant selects the raster encoding of a PGM file.
type Variant int

// Supported variants
const (
	Binary Variant = iota // P5, raw bytes
	ASCII                 // P2, whitespace-separated decimals
)

// Magic returns the header token of the variant.
func (v Variant) Magic() string {
	switch v {
	case Binary:
		return "P5"
	case ASCII:
		return "P2"
	default:
		return ""
	}
}

func (v Variant) String() string {
	switch v {
	case Binary:
		return "binary (P5)"
	case ASCII:
		return "ascii (P2)"
	default:
		return fmt.Sprintf("Variant(%d)", int(v))
	}
}

// ParseVariant maps a magic token onto its variant
func ParseVariant(magic string) (Variant, error) {
	switch magic {
	case "P5":
		return Binary, nil
	case "P2":
		return ASCII, nil
	default:
		return 0, fmt.Errorf("%w: unrecognized magic %q", ErrFormat, magic)
	}
}

// Image is a decoded grayscale raster with one 8-bit sample per pixel, row-major.
type Image struct {
	Width    int
	Height   int
	MaxValue int
	Variant  Variant // variant the image was decoded from
	Pix      []byte
}

// New allocates a zeroed image.
func New(width, height, maxValue int, variant Variant) (*Image, error) {
	if err := checkDimensions(width, height); err != nil {
		return nil, err
	}
	img := &Image{
		Width:    width,
		Height:   height,
		MaxValue: maxValue,
		Variant:  variant,
		Pix:      make([]byte, width*height),
	}
	if err := img.Validate(); err != nil {
		return nil, err
	}
	return img, nil
}

// At returns the sample at (x, y). The coordinates must be in bounds.
func (img *Image) At(x, y int) byte {
	return img.Pix[y*img.Width+x]
}

// Set stores a sample at (x, y).
func (img *Image) Set(x, y int, v byte) {
	img.Pix[y*img.Width+x] = v
}

// InBounds reports whether (x, y) lies inside the raster.
func (img *Image) InBounds(x, y int) bool {
	return x >= 0 && x < img.Width && y >= 0 && y < img.Height
}

// Validate checks the invariants every encoder relies on.
func (img *Image) Validate() error {
	if img == nil {
		return fmt.Errorf("%w: nil image", ErrFormat)
	}
	if err := checkDimensions(img.Width, img.Height); err != nil {
		return err
	}
	if img.MaxValue < 1 || img.MaxValue > MaxSampleValue {
		return fmt.Errorf("%w: max value %d out of range", ErrFormat, img.MaxValue)
	}
	if len(img.Pix) != img.Width*img.Height {
		return fmt.Errorf("%w: buffer holds %d samples, want %d", ErrFormat, len(img.Pix), img.Width*img.Height)
	}
	if img.Variant.Magic() == "" {
		return fmt.Errorf("%w: unknown variant %d", ErrFormat, int(img.Variant))
	}
	return nil
}

// FromGray copies a standard library gray image into a PGM image with max value 255.
func FromGray(g *image.Gray, variant Variant) (*Image, error) {
	b := g.Bounds()
	img, err := New(b.Dx(), b.Dy(), 255, variant)
	if err != nil {
		return nil, err
	}
	for y := 0; y < img.Height; y++ {
		row := g.Pix[g.PixOffset(b.Min.X, b.Min.Y+y):]
		copy(img.Pix[y*img.Width:(y+1)*img.Width], row[:img.Width])
	}
	return img, nil
}

func checkDimensions(width, height int) error {
	if width <= 0 || height <= 0 {
		return fmt.Errorf("%w: dimensions %dx%d must be positive", ErrFormat, width, height)
	}
	if width > MaxPixels/height {
		return fmt.Errorf("%w: dimensions %dx%d exceed %d pixels", ErrFormat, width, height, MaxPixels)
	}
	return nil
}
