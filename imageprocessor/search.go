package imageprocessor

import (
	"errors"
	"fmt"
	"io/fs"
	"math"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"lbpfinder/cache"
	"lbpfinder/lbp"
	"lbpfinder/logging"
	"lbpfinder/types"
)

// PGMExtension is the case-sensitive suffix of searchable images.
const PGMExtension = ".pgm"

// DefaultMaxPathLen is the longest candidate path a search will open.
const DefaultMaxPathLen = 511

var (
	// ErrNotFound is returned when no candidate could be compared with the query.
	ErrNotFound = errors.New("no similar image found")

	// ErrPathTooLong marks a candidate whose joined path exceeds the limit.
	ErrPathTooLong = errors.New("path too long")
)

// SearchOptions defines the options for a similarity search
type SearchOptions struct {
	Directory  string
	QueryPath  string
	MaxPathLen int // 0 selects DefaultMaxPathLen
	DebugMode  bool
}

// FindMostSimilar returns the candidate in options.Directory whose histogram is
// closest to the query's. Candidates are visited in name order and ties keep
// the first one visited.
func FindMostSimilar(store cache.HistogramStore, options SearchOptions) (*types.ImageMatch, error) {
	var best *types.ImageMatch
	bestDistance := math.Inf(1)

	err := scoreCandidates(store, options, func(match types.ImageMatch) {
		if match.Distance < bestDistance {
			bestDistance = match.Distance
			m := match
			best = &m
		}
	})
	if err != nil {
		return nil, err
	}
	if best == nil {
		return nil, ErrNotFound
	}
	return best, nil
}

// RankImages scores every candidate and returns them sorted by ascending
// distance, ties in name order.
func RankImages(store cache.HistogramStore, options SearchOptions) ([]types.ImageMatch, error) {
	var matches []types.ImageMatch
	err := scoreCandidates(store, options, func(match types.ImageMatch) {
		if !math.IsNaN(match.Distance) {
			matches = append(matches, match)
		}
	})
	if err != nil {
		return nil, err
	}
	if len(matches) == 0 {
		return nil, ErrNotFound
	}

	sort.SliceStable(matches, func(i, j int) bool {
		return matches[i].Distance < matches[j].Distance
	})
	return matches, nil
}

// scoreCandidates resolves the query histogram and calls visit for every
// candidate that could be scored. Candidates that fail are logged and skipped.
func scoreCandidates(store cache.HistogramStore, options SearchOptions, visit func(types.ImageMatch)) error {
	maxPathLen := options.MaxPathLen
	if maxPathLen <= 0 {
		maxPathLen = DefaultMaxPathLen
	}

	if options.DebugMode {
		logging.DebugLog("Starting LBP search for %s in %s", options.QueryPath, options.Directory)
	}

	query, err := store.LoadOrCompute(options.QueryPath)
	if err != nil {
		return fmt.Errorf("query image %s: %w", options.QueryPath, err)
	}

	// An unreadable directory is an empty candidate set.
	names, err := ListCandidates(options.Directory, filepath.Base(options.QueryPath))
	if err != nil {
		logging.LogWarning("%v", err)
	}

	var scored, skipped int
	for _, name := range names {
		path, err := candidatePath(options.Directory, name, maxPathLen)
		if err != nil {
			logging.LogWarning("Skipping candidate %s: %v", name, err)
			skipped++
			continue
		}

		h, err := store.LoadOrCompute(path)
		if err != nil {
			logging.LogWarning("Skipping candidate %s: %v", path, err)
			skipped++
			continue
		}

		match := types.ImageMatch{Name: name, Path: path, Distance: lbp.Distance(query, h)}
		if options.DebugMode {
			logging.DebugLog("Candidate %s: distance %f", name, match.Distance)
		}
		visit(match)
		scored++
	}

	if options.DebugMode {
		logging.DebugLog("Search completed. Candidates: %d, scored: %d, skipped: %d", len(names), scored, skipped)
	}
	return nil
}

// ListCandidates returns the names of the regular *.pgm files in directory,
// sorted by name, leaving out exclude.
func ListCandidates(directory, exclude string) ([]string, error) {
	entries, err := os.ReadDir(directory)
	if err != nil {
		return nil, fmt.Errorf("cannot list %s: %w", directory, err)
	}

	var names []string
	for _, entry := range entries {
		name := entry.Name()
		if !strings.HasSuffix(name, PGMExtension) || name == exclude {
			continue
		}
		if !isRegular(directory, entry) {
			continue
		}
		names = append(names, name)
	}
	return names, nil
}

// isRegular follows symlinks so a linked reference image still counts.
func isRegular(directory string, entry fs.DirEntry) bool {
	mode := entry.Type()
	if mode.IsRegular() {
		return true
	}
	if mode&fs.ModeSymlink == 0 {
		return false
	}
	info, err := os.Stat(filepath.Join(directory, entry.Name()))
	return err == nil && info.Mode().IsRegular()
}

func candidatePath(directory, name string, maxLen int) (string, error) {
	path := filepath.Join(directory, name)
	if len(path) > maxLen {
		return "", fmt.Errorf("%w: %d bytes exceeds %d", ErrPathTooLong, len(path), maxLen)
	}
	return path, nil
}
