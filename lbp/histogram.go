package lbp

import (
	"encoding/binary"
	"fmt"
	"math"

	"lbpfinder/pgm"

	"gonum.org/v1/gonum/floats"
)

// EncodedSize is the length of a marshaled histogram: Bins IEEE-754 doubles.
const EncodedSize = Bins * 8

// Histogram holds the normalized frequency of every LBP code.
type Histogram [Bins]float64

// Compute builds the normalized LBP histogram of img. An image without pixels
// yields the all-zero histogram.
func Compute(img *pgm.Image) Histogram {
	var h Histogram
	if img == nil {
		return h
	}
	total := img.Width * img.Height
	if total <= 0 || len(img.Pix) < total {
		return h
	}

	var counts [Bins]int
	for y := 0; y < img.Height; y++ {
		for x := 0; x < img.Width; x++ {
			counts[Code(img, x, y)]++
		}
	}
	for i, c := range counts {
		h[i] = float64(c) / float64(total)
	}
	return h
}

// Sum returns the total mass of the histogram, 1 for any computed histogram.
func (h *Histogram) Sum() float64 {
	return floats.Sum(h[:])
}

// Distance returns the Euclidean distance between two histograms.
func Distance(a, b Histogram) float64 {
	return floats.Distance(a[:], b[:], 2)
}

// MarshalBinary encodes the histogram as Bins doubles in native byte order,
// without any header.
func (h Histogram) MarshalBinary() ([]byte, error) {
	buf := make([]byte, EncodedSize)
	for i, v := range h {
		binary.NativeEndian.PutUint64(buf[i*8:], math.Float64bits(v))
	}
	return buf, nil
}

// UnmarshalBinary decodes exactly EncodedSize bytes written by MarshalBinary.
func (h *Histogram) UnmarshalBinary(data []byte) error {
	if len(data) != EncodedSize {
		return fmt.Errorf("histogram holds %d bytes, want %d", len(data), EncodedSize)
	}
	for i := range h {
		h[i] = math.Float64frombits(binary.NativeEndian.Uint64(data[i*8:]))
	}
	return nil
}
