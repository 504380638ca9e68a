package scanner

import (
	"os"
	"path/filepath"
	"reflect"
	"testing"
	"time"

	"lbpfinder/cache"
	"lbpfinder/database"
	"lbpfinder/lbp"
	"lbpfinder/pgm"

	"github.com/kr/pretty"
)

func writeImage(t *testing.T, dir, name string, seed byte) string {
	t.Helper()
	img, err := pgm.New(5, 5, 255, pgm.Binary)
	if err != nil {
		t.Fatal(err)
	}
	for i := range img.Pix {
		img.Pix[i] = byte(i) * seed
	}
	path := filepath.Join(dir, name)
	if err := pgm.Encode(path, img, pgm.Binary); err != nil {
		t.Fatal(err)
	}
	return path
}

func TestIndexFolderWritesSidecars(t *testing.T) {
	dir := t.TempDir()
	var paths []string
	for i, name := range []string{"a.pgm", "b.pgm", "c.pgm", "d.pgm"} {
		paths = append(paths, writeImage(t, dir, name, byte(i+2)))
	}
	broken := filepath.Join(dir, "e.pgm")
	os.WriteFile(broken, []byte("P5\n9 9\n255\n"), 0644)
	os.WriteFile(filepath.Join(dir, "readme.txt"), []byte("skip"), 0644)

	stats, err := IndexFolder(cache.Sidecar{}, ScanOptions{FolderPath: dir, MaxWorkers: 3})
	if err != nil {
		t.Fatalf("IndexFolder: %v", err)
	}
	want := &ScanStats{TotalImages: 5, Processed: 5, Errors: 1, Failed: []string{broken}}
	if !reflect.DeepEqual(stats, want) {
		t.Errorf("Expected %s, got %s", pretty.Sprint(want), pretty.Sprint(stats))
	}

	for _, path := range paths {
		got, err := cache.Load(cache.Path(path))
		if err != nil {
			t.Errorf("Expected sidecar for %s: %v", path, err)
			continue
		}
		direct, _ := cache.ComputeFile(path)
		if got != direct {
			t.Errorf("Sidecar of %s does not match a direct computation", path)
		}
	}
	if _, err := os.Stat(cache.Path(broken)); !os.IsNotExist(err) {
		t.Errorf("Expected no sidecar for the broken image")
	}
}

func TestIndexFolderForceRewrite(t *testing.T) {
	dir := t.TempDir()
	path := writeImage(t, dir, "a.pgm", 3)

	// A well-formed but wrong sidecar is trusted until forced out.
	var stale lbp.Histogram
	stale[0] = 1
	if err := cache.Save(cache.Path(path), stale); err != nil {
		t.Fatal(err)
	}

	if _, err := IndexFolder(cache.Sidecar{}, ScanOptions{FolderPath: dir, MaxWorkers: 1}); err != nil {
		t.Fatal(err)
	}
	if got, _ := cache.Load(cache.Path(path)); got != stale {
		t.Errorf("Expected the existing sidecar to be kept without force")
	}

	if _, err := IndexFolder(cache.Sidecar{}, ScanOptions{FolderPath: dir, ForceRewrite: true}); err != nil {
		t.Fatal(err)
	}
	got, _ := cache.Load(cache.Path(path))
	direct, _ := cache.ComputeFile(path)
	if got != direct {
		t.Errorf("Expected the sidecar to be recomputed with force")
	}
}

func TestIndexFolderForceRewriteIndex(t *testing.T) {
	dir := t.TempDir()
	path := writeImage(t, dir, "a.pgm", 3)

	db, err := database.InitDatabase(filepath.Join(t.TempDir(), "index.db"))
	if err != nil {
		t.Fatalf("InitDatabase: %v", err)
	}
	defer db.Close()
	idx := &database.Index{DB: db}

	if _, err := IndexFolder(idx, ScanOptions{FolderPath: dir, MaxWorkers: 1}); err != nil {
		t.Fatal(err)
	}

	// Keep the recorded size and mtime so only --force can evict the row.
	rec, err := database.LoadHistogram(db, path)
	if err != nil {
		t.Fatalf("LoadHistogram: %v", err)
	}
	var stale lbp.Histogram
	stale[0] = 1
	rec.Histogram = stale
	if err := database.StoreHistogram(db, *rec); err != nil {
		t.Fatal(err)
	}

	if _, err := IndexFolder(idx, ScanOptions{FolderPath: dir, MaxWorkers: 1}); err != nil {
		t.Fatal(err)
	}
	if got, _ := database.LoadHistogram(db, path); got.Histogram != stale {
		t.Errorf("Expected the stored row to be kept without force")
	}

	if _, err := IndexFolder(idx, ScanOptions{FolderPath: dir, ForceRewrite: true}); err != nil {
		t.Fatal(err)
	}
	got, err := database.LoadHistogram(db, path)
	if err != nil {
		t.Fatalf("LoadHistogram: %v", err)
	}
	direct, _ := cache.ComputeFile(path)
	if got.Histogram != direct {
		t.Errorf("Expected the row to be recomputed with force, got %s", pretty.Sprint(got))
	}
}

func TestIndexFolderMissingFolder(t *testing.T) {
	if _, err := IndexFolder(cache.Sidecar{}, ScanOptions{FolderPath: filepath.Join(t.TempDir(), "none")}); err == nil {
		t.Errorf("Expected error for a missing folder")
	}
}

func TestProgressTracker(t *testing.T) {
	tracker := NewProgressTracker(3, false)
	tracker.Record("b", nil)
	tracker.Record("z", os.ErrNotExist)
	tracker.Record("a", os.ErrPermission)
	tracker.Finish()

	stats := tracker.Stats()
	if stats.Processed != 3 || stats.Errors != 2 || !reflect.DeepEqual(stats.Failed, []string{"a", "z"}) {
		t.Errorf("Unexpected stats: %s", pretty.Sprint(stats))
	}

	// Printing must cope with failures listed.
	PrintCompletionStats(stats, 1500*time.Millisecond, ScanOptions{})
}
