package loader

import (
	"errors"
	"fmt"
	"image"

	"lbpfinder/pgm"
	"lbpfinder/utils"

	"gocv.io/x/gocv"
)

// ErrUnsupported is returned for files no registered loader handles.
var ErrUnsupported = errors.New("unsupported image format")

// ImageLoader decodes one family of formats into a grayscale PGM raster
type ImageLoader interface {
	// CanLoad determines if this loader can handle the given file
	CanLoad(path string) bool

	// Load reads the file as 8-bit grayscale
	Load(path string) (*pgm.Image, error)
}

// BaseImageLoader provides the extension check shared by all loaders
type BaseImageLoader struct {
	SupportedFormats []FormatType
}

// CanLoad checks if this loader supports the file's format
func (l *BaseImageLoader) CanLoad(path string) bool {
	format := GetFileFormat(path)
	for _, supported := range l.SupportedFormats {
		if format == supported {
			return utils.FileExists(path)
		}
	}
	return false
}

// OpenCVLoader reads JPEG, PNG, TIFF, BMP and WebP through OpenCV
type OpenCVLoader struct {
	BaseImageLoader
}

// NewOpenCVLoader creates a loader for the formats OpenCV decodes
func NewOpenCVLoader() *OpenCVLoader {
	return &OpenCVLoader{
		BaseImageLoader: BaseImageLoader{
			SupportedFormats: []FormatType{FormatJPEG, FormatPNG, FormatTIFF, FormatBMP, FormatWEBP},
		},
	}
}

// Load reads path with IMReadGrayScale, which also folds 16-bit sources to 8 bits
func (l *OpenCVLoader) Load(path string) (*pgm.Image, error) {
	mat := gocv.IMRead(path, gocv.IMReadGrayScale)
	defer mat.Close()
	if mat.Empty() {
		return nil, newImageLoadError("failed to load image", path)
	}
	return MatToImage(mat)
}

// PGMLoader reads PGM files with the native codec
type PGMLoader struct {
	BaseImageLoader
}

// NewPGMLoader creates a loader for P5 and P2 files
func NewPGMLoader() *PGMLoader {
	return &PGMLoader{BaseImageLoader: BaseImageLoader{SupportedFormats: []FormatType{FormatPGM}}}
}

// Load decodes path with the PGM codec
func (l *PGMLoader) Load(path string) (*pgm.Image, error) {
	return pgm.Decode(path)
}

// MatToImage copies a single-channel 8-bit Mat into a PGM raster
func MatToImage(mat gocv.Mat) (*pgm.Image, error) {
	if mat.Type() != gocv.MatTypeCV8U {
		return nil, fmt.Errorf("%w: expected 8-bit single channel matrix, got type %v", ErrUnsupported, mat.Type())
	}
	img, err := mat.ToImage()
	if err != nil {
		return nil, err
	}
	gray, ok := img.(*image.Gray)
	if !ok {
		return nil, fmt.Errorf("%w: OpenCV returned %T", ErrUnsupported, img)
	}
	return pgm.FromGray(gray, pgm.Binary)
}

func newImageLoadError(message, path string) error {
	return fmt.Errorf("%w: %s: %s", pgm.ErrIO, message, path)
}
