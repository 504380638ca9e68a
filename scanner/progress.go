package scanner

import (
	"fmt"
	"sort"
	"time"

	"lbpfinder/logging"

	"github.com/schollz/progressbar/v3"
)

// NewProgressTracker creates a tracker for total images, with a terminal
// progress bar when show is set.
func NewProgressTracker(total int, show bool) *ProgressTracker {
	tracker := &ProgressTracker{total: total}
	if show {
		tracker.bar = progressbar.Default(int64(total), "Computing LBP histograms")
	}
	return tracker
}

// Record registers the outcome of one image
func (p *ProgressTracker) Record(path string, err error) {
	p.mu.Lock()
	defer p.mu.Unlock()

	p.processed++
	if err != nil {
		p.errors++
		p.failed = append(p.failed, path)
	}
	logging.LogImageProcessed(path, err)

	if p.bar != nil {
		p.bar.Add(1)
	}
}

// Finish completes the progress bar
func (p *ProgressTracker) Finish() {
	p.mu.Lock()
	defer p.mu.Unlock()

	if p.bar != nil {
		p.bar.Finish()
	}
}

// Stats returns a snapshot of the counters. Failed paths are sorted.
func (p *ProgressTracker) Stats() *ScanStats {
	p.mu.Lock()
	defer p.mu.Unlock()

	failed := append([]string(nil), p.failed...)
	sort.Strings(failed)
	return &ScanStats{
		TotalImages: p.total,
		Processed:   p.processed,
		Errors:      p.errors,
		Failed:      failed,
	}
}

// PrintCompletionStats displays statistics after a warm-up run
func PrintCompletionStats(stats *ScanStats, elapsed time.Duration, options ScanOptions) {
	if options.DebugMode {
		logging.DebugLog("Indexing completed in %v. Processed: %d, Errors: %d", elapsed, stats.Processed, stats.Errors)
	}

	fmt.Println("\nIndexing complete.")
	fmt.Printf("Processed %d/%d images in %v.\n", stats.Processed, stats.TotalImages, elapsed.Round(time.Millisecond))

	if stats.Errors > 0 {
		fmt.Printf("Encountered %d errors during indexing:\n", stats.Errors)
		for _, path := range stats.Failed {
			fmt.Printf("  %s\n", path)
		}
	}
}
