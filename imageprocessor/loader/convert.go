package loader

import (
	"fmt"

	"lbpfinder/logging"
	"lbpfinder/pgm"
)

// ConvertToPGM loads src with the registry and writes it to dst as a PGM of
// the given variant. dst is not created when loading or encoding fails.
func (r *Registry) ConvertToPGM(src, dst string, variant pgm.Variant) error {
	loader := r.GetLoader(src)
	if loader == nil {
		return fmt.Errorf("%w: %s", ErrUnsupported, src)
	}
	if !r.CanLoadFile(src) {
		return newImageLoadError("cannot read", src)
	}

	img, err := loader.Load(src)
	if err != nil {
		return err
	}
	if err := pgm.Encode(dst, img, variant); err != nil {
		return err
	}
	logging.LogInfo("Converted %s to %s (%dx%d, %s)", src, dst, img.Width, img.Height, variant)
	return nil
}
