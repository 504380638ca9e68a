package database

import (
	"database/sql"
	"os"
	"path/filepath"
	"testing"
	"time"

	"lbpfinder/cache"
	"lbpfinder/imageprocessor"
	"lbpfinder/lbp"
	"lbpfinder/pgm"
	"lbpfinder/types"

	"github.com/kr/pretty"
)

var _ cache.HistogramStore = (*Index)(nil)

func openTestDB(t *testing.T) *sql.DB {
	t.Helper()
	db, err := InitDatabase(filepath.Join(t.TempDir(), "index.db"))
	if err != nil {
		t.Fatalf("InitDatabase: %v", err)
	}
	t.Cleanup(func() { db.Close() })
	return db
}

func writeImage(t *testing.T, path string, seed byte, variant pgm.Variant) {
	t.Helper()
	img, err := pgm.New(8, 6, 255, variant)
	if err != nil {
		t.Fatal(err)
	}
	for i := range img.Pix {
		img.Pix[i] = byte(i)*seed ^ byte(i>>2)
	}
	if err := pgm.Encode(path, img, variant); err != nil {
		t.Fatal(err)
	}
}

func TestIndexStoresAndReusesHistogram(t *testing.T) {
	db := openTestDB(t)
	path := filepath.Join(t.TempDir(), "a.pgm")
	writeImage(t, path, 3, pgm.Binary)
	idx := &Index{DB: db, DebugMode: true}

	first, err := idx.LoadOrCompute(path)
	if err != nil {
		t.Fatalf("LoadOrCompute: %v", err)
	}
	direct, _ := cache.ComputeFile(path)
	if first != direct {
		t.Errorf("Expected indexed histogram to match a direct computation")
	}

	rec, err := LoadHistogram(db, path)
	if err != nil {
		t.Fatalf("LoadHistogram: %v", err)
	}
	if rec.Format != "P5" || rec.Width != 8 || rec.Height != 6 || rec.Histogram != first {
		t.Errorf("Unexpected record: %s", pretty.Sprint(rec))
	}

	// Same size and modification time: the index must not look at the pixels.
	info, _ := os.Stat(path)
	writeImage(t, path, 5, pgm.Binary)
	if err := os.Chtimes(path, info.ModTime(), info.ModTime()); err != nil {
		t.Fatal(err)
	}
	second, err := idx.LoadOrCompute(path)
	if err != nil {
		t.Fatalf("LoadOrCompute: %v", err)
	}
	if second != first {
		t.Errorf("Expected cached histogram while size and mtime are unchanged")
	}
}

func TestIndexRecomputesStaleEntry(t *testing.T) {
	db := openTestDB(t)
	path := filepath.Join(t.TempDir(), "b.pgm")
	writeImage(t, path, 3, pgm.Binary)
	idx := &Index{DB: db}

	first, err := idx.LoadOrCompute(path)
	if err != nil {
		t.Fatalf("LoadOrCompute: %v", err)
	}

	writeImage(t, path, 7, pgm.Binary)
	later := time.Now().Add(time.Hour)
	if err := os.Chtimes(path, later, later); err != nil {
		t.Fatal(err)
	}

	second, err := idx.LoadOrCompute(path)
	if err != nil {
		t.Fatalf("LoadOrCompute: %v", err)
	}
	direct, _ := cache.ComputeFile(path)
	if second != direct {
		t.Errorf("Expected recomputed histogram for a modified image")
	}
	if second == first {
		t.Errorf("Expected the histogram to change with the image")
	}
}

func TestIndexMissingImage(t *testing.T) {
	idx := &Index{DB: openTestDB(t)}
	if _, err := idx.LoadOrCompute(filepath.Join(t.TempDir(), "none.pgm")); err == nil {
		t.Errorf("Expected error for a missing image")
	}
}

func TestCheckHistogram(t *testing.T) {
	db := openTestDB(t)
	exists, _, _, err := CheckHistogram(db, "/nowhere.pgm")
	if err != nil || exists {
		t.Fatalf("Expected no entry, got exists=%v err=%v", exists, err)
	}

	rec := sampleRecord("/refs/x.pgm")
	if err := StoreHistogram(db, rec); err != nil {
		t.Fatalf("StoreHistogram: %v", err)
	}
	exists, modifiedAt, size, err := CheckHistogram(db, rec.Path)
	if err != nil || !exists || modifiedAt != rec.ModifiedAt || size != rec.Size {
		t.Errorf("Expected stored entry, got exists=%v modifiedAt=%q size=%d err=%v", exists, modifiedAt, size, err)
	}
}

func TestGetIndexStats(t *testing.T) {
	db := openTestDB(t)
	dir := t.TempDir()
	idx := &Index{DB: db}
	for name, variant := range map[string]pgm.Variant{"a.pgm": pgm.Binary, "b.pgm": pgm.Binary, "c.pgm": pgm.ASCII} {
		path := filepath.Join(dir, name)
		writeImage(t, path, 3, variant)
		if _, err := idx.LoadOrCompute(path); err != nil {
			t.Fatal(err)
		}
	}

	stats, err := GetIndexStats(db)
	if err != nil {
		t.Fatalf("GetIndexStats: %v", err)
	}
	if stats.TotalImages != 3 || stats.Formats["P5"] != 2 || stats.Formats["P2"] != 1 {
		t.Errorf("Unexpected stats: %s", pretty.Sprint(stats))
	}
}

func TestSearchThroughIndex(t *testing.T) {
	dir := t.TempDir()
	query := filepath.Join(dir, "query.pgm")
	writeImage(t, query, 3, pgm.Binary)
	writeImage(t, filepath.Join(dir, "twin.pgm"), 3, pgm.ASCII)
	writeImage(t, filepath.Join(dir, "other.pgm"), 9, pgm.Binary)

	idx := &Index{DB: openTestDB(t)}
	match, err := imageprocessor.FindMostSimilar(idx, imageprocessor.SearchOptions{Directory: dir, QueryPath: query})
	if err != nil {
		t.Fatalf("FindMostSimilar: %v", err)
	}
	if match.Name != "twin.pgm" || match.Distance != 0 {
		t.Errorf("Expected twin.pgm at distance 0, got %s", pretty.Sprint(match))
	}
	if _, err := os.Stat(cache.Path(query)); !os.IsNotExist(err) {
		t.Errorf("Expected no sidecar files when searching through the index")
	}
}

func sampleRecord(path string) types.HistogramRecord {
	var h lbp.Histogram
	h[255] = 1
	return types.HistogramRecord{Path: path, Format: "P5", Width: 1, Height: 1, Size: 12, ModifiedAt: "2024-01-02T03:04:05Z", Histogram: h}
}

func TestIndexForget(t *testing.T) {
	db := openTestDB(t)
	rec := sampleRecord("/refs/y.pgm")
	if err := StoreHistogram(db, rec); err != nil {
		t.Fatalf("StoreHistogram: %v", err)
	}

	idx := &Index{DB: db}
	if err := idx.Forget(rec.Path); err != nil {
		t.Fatalf("Forget: %v", err)
	}
	if exists, _, _, err := CheckHistogram(db, rec.Path); err != nil || exists {
		t.Errorf("Expected the entry to be gone, got exists=%v err=%v", exists, err)
	}
	if err := idx.Forget(rec.Path); err != nil {
		t.Errorf("Expected forgetting an unknown path to succeed, got %v", err)
	}
}
