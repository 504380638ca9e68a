package scanner

import (
	"sync"

	"github.com/schollz/progressbar/v3"
)

// ScanOptions defines the options for warming a folder's histogram cache
type ScanOptions struct {
	FolderPath   string
	ForceRewrite bool // forget stored histograms before computing
	DebugMode    bool
	ShowProgress bool
	MaxWorkers   int // 0 selects signalhandler.GetOptimalProcs()
}

// ScanStats summarizes one warm-up run
type ScanStats struct {
	TotalImages int
	Processed   int
	Errors      int
	Failed      []string
}

// ProgressTracker counts finished images and drives the optional progress bar
type ProgressTracker struct {
	mu        sync.Mutex
	bar       *progressbar.ProgressBar
	total     int
	processed int
	errors    int
	failed    []string
}
