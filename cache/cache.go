// Package cache memoizes LBP histograms in sidecar files next to their images.
//
// A sidecar is named after the image plus Suffix and holds the raw histogram
// (lbp.EncodedSize bytes, no header). Sidecars are never invalidated: a source
// image modified after its sidecar was written keeps the stale histogram until
// the sidecar is removed.
package cache

import (
	"fmt"
	"io"
	"os"

	"lbpfinder/lbp"
	"lbpfinder/logging"
	"lbpfinder/pgm"
	"lbpfinder/utils"
)

// Suffix is appended to an image path to form its sidecar path.
const Suffix = ".lbp"

// HistogramStore resolves the LBP histogram of an image file.
type HistogramStore interface {
	LoadOrCompute(imagePath string) (lbp.Histogram, error)

	// Forget drops whatever is stored for imagePath so the next
	// LoadOrCompute recomputes it. Forgetting an unknown path is not an error.
	Forget(imagePath string) error
}

// Sidecar is the file-backed HistogramStore.
type Sidecar struct {
	DebugMode bool
}

// LoadOrCompute implements HistogramStore.
func (s Sidecar) LoadOrCompute(imagePath string) (lbp.Histogram, error) {
	cachePath := Path(imagePath)

	h, err := Load(cachePath)
	if err == nil {
		if s.DebugMode {
			logging.DebugLog("Cache hit: %s", cachePath)
		}
		return h, nil
	}
	if s.DebugMode && !os.IsNotExist(err) {
		logging.DebugLog("Ignoring unusable cache %s: %v", cachePath, err)
	}

	h, err = ComputeFile(imagePath)
	if err != nil {
		return h, err
	}

	if err := Save(cachePath, h); err != nil {
		logging.LogWarning("Could not persist histogram for %s: %v", imagePath, err)
	} else if s.DebugMode {
		logging.DebugLog("Cached histogram: %s", cachePath)
	}
	return h, nil
}

// Forget implements HistogramStore by removing the sidecar file.
func (s Sidecar) Forget(imagePath string) error {
	err := os.Remove(Path(imagePath))
	if err != nil && !os.IsNotExist(err) {
		return fmt.Errorf("cannot remove sidecar of %s: %w", imagePath, err)
	}
	if err == nil && s.DebugMode {
		logging.DebugLog("Removed sidecar: %s", Path(imagePath))
	}
	return nil
}

// LoadOrCompute resolves a histogram through the sidecar store.
func LoadOrCompute(imagePath string) (lbp.Histogram, error) {
	return Sidecar{}.LoadOrCompute(imagePath)
}

// Path returns the sidecar path of an image.
func Path(imagePath string) string {
	return imagePath + Suffix
}

// ComputeFile decodes an image and computes its histogram without touching any cache.
func ComputeFile(imagePath string) (lbp.Histogram, error) {
	img, err := pgm.Decode(imagePath)
	if err != nil {
		return lbp.Histogram{}, err
	}
	return lbp.Compute(img), nil
}

// Load reads a sidecar file. The file must hold exactly lbp.EncodedSize bytes.
func Load(cachePath string) (lbp.Histogram, error) {
	var h lbp.Histogram

	f, err := os.Open(cachePath)
	if err != nil {
		return h, err
	}
	defer f.Close()

	data, err := io.ReadAll(io.LimitReader(f, lbp.EncodedSize+1))
	if err != nil {
		return h, err
	}
	if err := h.UnmarshalBinary(data); err != nil {
		return h, fmt.Errorf("%s: %w", cachePath, err)
	}
	return h, nil
}

// Save writes a sidecar file atomically.
func Save(cachePath string, h lbp.Histogram) error {
	data, err := h.MarshalBinary()
	if err != nil {
		return err
	}
	return utils.WriteFileAtomic(cachePath, func(w io.Writer) error {
		_, err := w.Write(data)
		return err
	})
}
