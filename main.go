package main

import (
	"errors"
	"fmt"
	"log"
	"os"
	"path/filepath"
	"runtime"
	"time"

	"lbpfinder/cache"
	"lbpfinder/database"
	"lbpfinder/imageprocessor"
	"lbpfinder/imageprocessor/loader"
	"lbpfinder/logging"
	"lbpfinder/pgm"
	"lbpfinder/scanner"
	"lbpfinder/signalhandler"
	"lbpfinder/utils"
)

func main() {
	signalhandler.SetupHandler(logging.CloseLogger)
	runtime.GOMAXPROCS(signalhandler.GetOptimalProcs())

	program := filepath.Base(os.Args[0])
	cfg, err := utils.ParseFlags(program, os.Args[1:])
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n\n", err)
		utils.PrintUsage(os.Stderr, program, loader.NewRegistry().Extensions())
		os.Exit(1)
	}
	if err := cfg.Validate(); err != nil {
		if !errors.Is(err, utils.ErrUsage) || cfg.Mode() != utils.ModeNone {
			fmt.Fprintf(os.Stderr, "Error: %v\n\n", err)
		}
		utils.PrintUsage(os.Stderr, program, loader.NewRegistry().Extensions())
		os.Exit(1)
	}

	if cfg.Debug {
		if err := logging.SetupLogger(cfg.LogFile); err != nil {
			fmt.Printf("Warning: Failed to setup logging: %v\n", err)
		} else {
			fmt.Printf("Debug mode enabled. Logging to: %s\n", cfg.LogFile)
		}
		defer logging.CloseLogger()
	}

	var runErr error
	switch cfg.Mode() {
	case utils.ModeSearch:
		runErr = handleSearch(cfg)
	case utils.ModeRender:
		runErr = handleRender(cfg)
	case utils.ModeIndex:
		runErr = handleIndex(cfg)
	case utils.ModeConvert:
		runErr = handleConvert(cfg)
	}
	if runErr != nil {
		logging.LogError("%v", runErr)
		logging.CloseLogger()
		log.Fatalf("Error: %v", runErr)
	}
}

// openStore returns the sidecar cache, or the sqlite index when --db is set.
// The returned close function is never nil.
func openStore(cfg *utils.Config) (cache.HistogramStore, func(), error) {
	if cfg.Database == "" {
		return cache.Sidecar{DebugMode: cfg.Debug}, func() {}, nil
	}
	db, err := database.InitDatabase(cfg.Database)
	if err != nil {
		return nil, nil, fmt.Errorf("error initializing database %s: %w", cfg.Database, err)
	}
	return &database.Index{DB: db, DebugMode: cfg.Debug}, func() { db.Close() }, nil
}

func handleSearch(cfg *utils.Config) error {
	store, closeStore, err := openStore(cfg)
	if err != nil {
		return err
	}
	defer closeStore()

	options := imageprocessor.SearchOptions{
		Directory: cfg.Directory,
		QueryPath: cfg.Image,
		DebugMode: cfg.Debug,
	}

	startTime := time.Now()
	match, err := imageprocessor.FindMostSimilar(store, options)
	if errors.Is(err, imageprocessor.ErrNotFound) {
		fmt.Println("No similar image found.")
		return nil
	}
	if err != nil {
		return err
	}
	fmt.Printf("Most similar image: %s %f\n", match.Name, match.Distance)

	if cfg.Top > 0 {
		// Histograms are cached by now, so the second pass only reads them back.
		matches, err := imageprocessor.RankImages(store, options)
		if err != nil {
			return err
		}
		fmt.Println("\nTop Matches:")
		for i := 0; i < cfg.Top && i < len(matches); i++ {
			fmt.Printf("%d. %s %f\n", i+1, matches[i].Name, matches[i].Distance)
		}
	}

	if logging.Enabled() {
		logging.DebugLog("Search in %s took %v", cfg.Directory, time.Since(startTime))
	}
	return nil
}

func handleRender(cfg *utils.Config) error {
	if err := imageprocessor.RenderLBP(cfg.Image, cfg.Output); err != nil {
		return err
	}
	logging.LogInfo("LBP image written to %s", cfg.Output)
	return nil
}

func handleIndex(cfg *utils.Config) error {
	info, err := os.Stat(cfg.Directory)
	if err != nil {
		return fmt.Errorf("cannot access folder %s: %w", cfg.Directory, err)
	}
	if !info.IsDir() {
		return fmt.Errorf("path is not a directory: %s", cfg.Directory)
	}

	store, closeStore, err := openStore(cfg)
	if err != nil {
		return err
	}
	defer closeStore()

	options := scanner.ScanOptions{
		FolderPath:   cfg.Directory,
		ForceRewrite: cfg.Force,
		DebugMode:    cfg.Debug,
		ShowProgress: cfg.Progress,
		MaxWorkers:   cfg.Workers,
	}

	fmt.Printf("Indexing %s...\n", cfg.Directory)
	startTime := time.Now()
	stats, err := scanner.IndexFolder(store, options)
	if err != nil {
		return err
	}
	scanner.PrintCompletionStats(stats, time.Since(startTime), options)

	if idx, ok := store.(*database.Index); ok {
		dbStats, err := database.GetIndexStats(idx.DB)
		if err == nil {
			fmt.Printf("\nDatabase: %s\n", cfg.Database)
			fmt.Printf("- Total indexed images: %d\n", dbStats.TotalImages)
			for format, count := range dbStats.Formats {
				fmt.Printf("- %s: %d\n", format, count)
			}
		}
	}
	return nil
}

func handleConvert(cfg *utils.Config) error {
	variant := pgm.Binary
	if cfg.ASCII {
		variant = pgm.ASCII
	}
	registry := loader.NewRegistry()
	if err := registry.ConvertToPGM(cfg.Image, cfg.Output, variant); err != nil {
		return err
	}
	fmt.Printf("Converted %s to %s\n", cfg.Image, cfg.Output)
	return nil
}
