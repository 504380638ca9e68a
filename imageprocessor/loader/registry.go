package loader

import (
	"path/filepath"
	"sort"
	"strings"
	"sync"
)

// Registry maps file extensions to loaders
type Registry struct {
	loaders map[string]ImageLoader
	mutex   sync.RWMutex
}

// NewRegistry creates a registry with the OpenCV and PGM loaders registered
func NewRegistry() *Registry {
	r := &Registry{loaders: make(map[string]ImageLoader)}

	opencv := NewOpenCVLoader()
	for _, ext := range []string{".jpg", ".jpeg", ".png", ".tif", ".tiff", ".bmp", ".webp"} {
		r.RegisterLoader(ext, opencv)
	}
	r.RegisterLoader(".pgm", NewPGMLoader())
	return r
}

// RegisterLoader registers a loader for a file extension
func (r *Registry) RegisterLoader(ext string, loader ImageLoader) {
	r.mutex.Lock()
	defer r.mutex.Unlock()
	r.loaders[strings.ToLower(ext)] = loader
}

// GetLoader returns the loader registered for the extension of path, or nil
func (r *Registry) GetLoader(path string) ImageLoader {
	r.mutex.RLock()
	defer r.mutex.RUnlock()
	return r.loaders[strings.ToLower(filepath.Ext(path))]
}

// CanLoadFile checks if a registered loader handles the given file
func (r *Registry) CanLoadFile(path string) bool {
	loader := r.GetLoader(path)
	return loader != nil && loader.CanLoad(path)
}

// Extensions lists the registered extensions in sorted order
func (r *Registry) Extensions() []string {
	r.mutex.RLock()
	defer r.mutex.RUnlock()
	exts := make([]string, 0, len(r.loaders))
	for ext := range r.loaders {
		exts = append(exts, ext)
	}
	sort.Strings(exts)
	return exts
}
