// Package imageprocessor ranks reference images by LBP similarity and renders
// LBP code maps.
package imageprocessor
