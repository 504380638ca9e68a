package pgm

import (
	"bufio"
	"fmt"
	"io"
	"strconv"

	"lbpfinder/utils"
)

// Encode writes img to path using the given variant. The file is replaced
// atomically, so a failed encode leaves no partial output behind.
func Encode(path string, img *Image, variant Variant) error {
	if err := img.Validate(); err != nil {
		return err
	}
	err := utils.WriteFileAtomic(path, func(w io.Writer) error {
		return EncodeWriter(w, img, variant)
	})
	if err != nil {
		return fmt.Errorf("%w: encode %s: %w", ErrIO, path, err)
	}
	return nil
}

// EncodeWriter writes the three-line header followed by the raster.
func EncodeWriter(w io.Writer, img *Image, variant Variant) error {
	if err := img.Validate(); err != nil {
		return err
	}
	magic := variant.Magic()
	if magic == "" {
		return fmt.Errorf("%w: unknown variant %d", ErrFormat, int(variant))
	}

	bw := bufio.NewWriter(w)
	fmt.Fprintf(bw, "%s\n%d %d\n%d\n", magic, img.Width, img.Height, img.MaxValue)

	switch variant {
	case Binary:
		bw.Write(img.Pix)
	case ASCII:
		// One raster row per line, samples separated by single spaces.
		var num []byte
		for y := 0; y < img.Height; y++ {
			row := img.Pix[y*img.Width : (y+1)*img.Width]
			for x, v := range row {
				if x > 0 {
					bw.WriteByte(' ')
				}
				num = strconv.AppendUint(num[:0], uint64(v), 10)
				bw.Write(num)
			}
			bw.WriteByte('\n')
		}
	}
	// bufio.Writer keeps the first write error and reports it here.
	return bw.Flush()
}
