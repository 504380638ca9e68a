// Package lbp computes Local Binary Pattern codes and histograms over PGM images.
package lbp

import "lbpfinder/pgm"

const (
	// Neighbors is the number of samples compared against the centre pixel.
	Neighbors = 8

	// Bins is the number of distinct codes, one histogram bin per code.
	Bins = 1 << Neighbors
)

// offsets lists the neighbours in bit order: NW, N, NE, E, SE, S, SW, W.
var offsets = [Neighbors]struct{ dx, dy int }{
	{-1, -1}, {0, -1}, {1, -1}, {1, 0}, {1, 1}, {0, 1}, {-1, 1}, {-1, 0},
}

// Code returns the LBP code of pixel (x, y). Bit i is set when neighbour i lies
// inside the image and its sample is >= the centre sample; neighbours outside
// the image never set their bit.
func Code(img *pgm.Image, x, y int) byte {
	center := img.At(x, y)
	var code byte
	for i, o := range offsets {
		nx, ny := x+o.dx, y+o.dy
		if !img.InBounds(nx, ny) {
			continue
		}
		if img.At(nx, ny) >= center {
			code |= 1 << i
		}
	}
	return code
}

// Map returns an image holding the LBP code of every pixel. Dimensions, max
// value and variant are copied from the source.
func Map(img *pgm.Image) *pgm.Image {
	out := &pgm.Image{
		Width:    img.Width,
		Height:   img.Height,
		MaxValue: img.MaxValue,
		Variant:  img.Variant,
		Pix:      make([]byte, len(img.Pix)),
	}
	for y := 0; y < img.Height; y++ {
		for x := 0; x < img.Width; x++ {
			out.Pix[y*img.Width+x] = Code(img, x, y)
		}
	}
	return out
}
