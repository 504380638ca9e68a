// Package scanner precomputes the LBP histograms of a reference folder.
package scanner

import (
	"path/filepath"

	"lbpfinder/cache"
	"lbpfinder/imageprocessor"
	"lbpfinder/logging"
	"lbpfinder/signalhandler"

	"golang.org/x/sync/errgroup"
)

// IndexFolder resolves the histogram of every candidate image in the folder
// through store, using up to options.MaxWorkers goroutines. Images that fail are
// counted in the returned stats; only an unreadable folder is an error.
func IndexFolder(store cache.HistogramStore, options ScanOptions) (*ScanStats, error) {
	names, err := imageprocessor.ListCandidates(options.FolderPath, "")
	if err != nil {
		return nil, err
	}

	workers := options.MaxWorkers
	if workers <= 0 {
		workers = signalhandler.GetOptimalProcs()
	}

	if options.DebugMode {
		logging.DebugLog("Indexing %d images in %s with %d workers (force: %v)",
			len(names), options.FolderPath, workers, options.ForceRewrite)
	}

	tracker := NewProgressTracker(len(names), options.ShowProgress)
	defer tracker.Finish()

	var g errgroup.Group
	g.SetLimit(workers)
	for _, name := range names {
		path := filepath.Join(options.FolderPath, name)
		g.Go(func() error {
			if options.ForceRewrite {
				if err := store.Forget(path); err != nil {
					logging.LogWarning("%v", err)
				}
			}
			_, err := store.LoadOrCompute(path)
			tracker.Record(path, err)
			return nil
		})
	}
	g.Wait()

	return tracker.Stats(), nil
}
