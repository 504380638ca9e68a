package loader

import (
	"path/filepath"
	"strings"
)

// FormatType names a raster format accepted by --convert
type FormatType string

// Known import formats
const (
	FormatUnknown FormatType = "unknown"
	FormatJPEG    FormatType = "jpeg"
	FormatPNG     FormatType = "png"
	FormatTIFF    FormatType = "tiff"
	FormatBMP     FormatType = "bmp"
	FormatWEBP    FormatType = "webp"
	FormatPGM     FormatType = "pgm"
)

var formatExtensions = map[string]FormatType{
	".jpg":  FormatJPEG,
	".jpeg": FormatJPEG,
	".png":  FormatPNG,
	".tif":  FormatTIFF,
	".tiff": FormatTIFF,
	".bmp":  FormatBMP,
	".webp": FormatWEBP,
	".pgm":  FormatPGM,
}

// GetFileFormat returns the format type based on file extension
func GetFileFormat(path string) FormatType {
	format, ok := formatExtensions[strings.ToLower(filepath.Ext(path))]
	if !ok {
		return FormatUnknown
	}
	return format
}
