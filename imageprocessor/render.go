package imageprocessor

import (
	"errors"
	"fmt"
	"strings"

	"lbpfinder/lbp"
	"lbpfinder/pgm"
)

// ErrNotPGM is returned when a render input does not carry the .pgm suffix.
var ErrNotPGM = errors.New("input is not a .pgm image")

// RenderLBP writes the LBP code map of inputPath to outputPath, in the variant
// of the input and with its dimensions and max value.
func RenderLBP(inputPath, outputPath string) error {
	if !strings.HasSuffix(inputPath, PGMExtension) {
		return fmt.Errorf("%w: %s", ErrNotPGM, inputPath)
	}

	img, err := pgm.Decode(inputPath)
	if err != nil {
		return err
	}

	codes := lbp.Map(img)
	if err := pgm.Encode(outputPath, codes, img.Variant); err != nil {
		return err
	}
	return nil
}
