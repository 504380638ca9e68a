package database

import (
	"database/sql"
	"fmt"
	"os"
	"time"

	"lbpfinder/lbp"
	"lbpfinder/logging"
	"lbpfinder/pgm"
	"lbpfinder/types"

	_ "github.com/mattn/go-sqlite3"
)

// InitDatabase opens the histogram index and creates its schema if needed
func InitDatabase(dbPath string) (*sql.DB, error) {
	db, err := sql.Open("sqlite3", dbPath)
	if err != nil {
		return nil, err
	}
	// sqlite serializes writers; a single connection avoids "database is locked".
	db.SetMaxOpenConns(1)

	createTableSQL := `
	CREATE TABLE IF NOT EXISTS histograms (
		path TEXT PRIMARY KEY,
		format TEXT,
		width INTEGER,
		height INTEGER,
		size INTEGER,
		modified_at TEXT,
		created_at TEXT,
		histogram BLOB NOT NULL
	);
	CREATE INDEX IF NOT EXISTS idx_modified_at ON histograms(modified_at);`

	if _, err = db.Exec(createTableSQL); err != nil {
		db.Close()
		return nil, fmt.Errorf("error creating schema: %w", err)
	}

	return db, nil
}

// CheckHistogram reports whether path is indexed and, if so, the stored
// modification time and size of the source file.
func CheckHistogram(db *sql.DB, path string) (bool, string, int64, error) {
	var modifiedAt string
	var size int64
	err := db.QueryRow("SELECT modified_at, size FROM histograms WHERE path = ?", path).Scan(&modifiedAt, &size)
	if err == sql.ErrNoRows {
		return false, "", 0, nil
	}
	if err != nil {
		return false, "", 0, fmt.Errorf("database error for %s: %w", path, err)
	}
	return true, modifiedAt, size, nil
}

// LoadHistogram reads the full record stored for path.
func LoadHistogram(db *sql.DB, path string) (*types.HistogramRecord, error) {
	var rec types.HistogramRecord
	var blob []byte
	err := db.QueryRow(`SELECT path, format, width, height, size, modified_at, created_at, histogram
		FROM histograms WHERE path = ?`, path).Scan(
		&rec.Path, &rec.Format, &rec.Width, &rec.Height, &rec.Size, &rec.ModifiedAt, &rec.CreatedAt, &blob)
	if err != nil {
		return nil, fmt.Errorf("cannot load histogram for %s: %w", path, err)
	}
	if err := rec.Histogram.UnmarshalBinary(blob); err != nil {
		return nil, fmt.Errorf("corrupt histogram for %s: %w", path, err)
	}
	return &rec, nil
}

// StoreHistogram inserts or replaces the record of an image
func StoreHistogram(db *sql.DB, rec types.HistogramRecord) error {
	blob, err := rec.Histogram.MarshalBinary()
	if err != nil {
		return err
	}

	stmt, err := db.Prepare(`
		INSERT OR REPLACE INTO histograms (
			path, format, width, height, size, modified_at, created_at, histogram
		) VALUES (?, ?, ?, ?, ?, ?, ?, ?)
	`)
	if err != nil {
		return fmt.Errorf("cannot prepare statement for %s: %w", rec.Path, err)
	}
	defer stmt.Close()

	_, err = stmt.Exec(
		rec.Path,
		rec.Format,
		rec.Width,
		rec.Height,
		rec.Size,
		rec.ModifiedAt,
		time.Now().Format(time.RFC3339),
		blob,
	)
	if err != nil {
		return fmt.Errorf("cannot insert data for %s: %w", rec.Path, err)
	}
	return nil
}

// DeleteHistogram removes the record of path, if any
func DeleteHistogram(db *sql.DB, path string) error {
	if _, err := db.Exec("DELETE FROM histograms WHERE path = ?", path); err != nil {
		return fmt.Errorf("cannot delete histogram for %s: %w", path, err)
	}
	return nil
}

// IndexStats contains statistics about the histogram index
type IndexStats struct {
	TotalImages int
	Formats     map[string]int
}

// GetIndexStats counts indexed images, overall and per PGM variant
func GetIndexStats(db *sql.DB) (*IndexStats, error) {
	stats := &IndexStats{Formats: make(map[string]int)}

	if err := db.QueryRow("SELECT COUNT(*) FROM histograms").Scan(&stats.TotalImages); err != nil {
		return nil, fmt.Errorf("failed to get total images: %w", err)
	}

	rows, err := db.Query("SELECT format, COUNT(*) FROM histograms GROUP BY format")
	if err != nil {
		return nil, fmt.Errorf("failed to get formats: %w", err)
	}
	defer rows.Close()

	for rows.Next() {
		var format string
		var count int
		if err := rows.Scan(&format, &count); err != nil {
			return nil, err
		}
		stats.Formats[format] = count
	}
	return stats, rows.Err()
}

// Index is a cache.HistogramStore backed by sqlite. Unlike sidecar files, a
// stored histogram is reused only while the source file keeps the size and
// modification time recorded with it.
type Index struct {
	DB        *sql.DB
	DebugMode bool
}

// LoadOrCompute returns the indexed histogram of imagePath, recomputing and
// storing it when the source changed since it was indexed.
func (idx *Index) LoadOrCompute(imagePath string) (lbp.Histogram, error) {
	info, err := os.Stat(imagePath)
	if err != nil {
		return lbp.Histogram{}, fmt.Errorf("%w: %w", pgm.ErrIO, err)
	}
	modifiedAt := info.ModTime().UTC().Format(time.RFC3339Nano)

	exists, storedModTime, storedSize, err := CheckHistogram(idx.DB, imagePath)
	if err != nil {
		logging.LogError("%v", err)
	} else if exists && storedModTime == modifiedAt && storedSize == info.Size() {
		rec, err := LoadHistogram(idx.DB, imagePath)
		if err == nil {
			if idx.DebugMode {
				logging.DebugLog("Index hit: %s", imagePath)
			}
			return rec.Histogram, nil
		}
		logging.LogWarning("%v", err)
	} else if exists && idx.DebugMode {
		logging.DebugLog("Index entry for %s is stale, recomputing", imagePath)
	}

	img, err := pgm.Decode(imagePath)
	if err != nil {
		return lbp.Histogram{}, err
	}
	rec := types.HistogramRecord{
		Path:       imagePath,
		Format:     img.Variant.Magic(),
		Width:      img.Width,
		Height:     img.Height,
		Size:       info.Size(),
		ModifiedAt: modifiedAt,
		Histogram:  lbp.Compute(img),
	}
	if err := StoreHistogram(idx.DB, rec); err != nil {
		logging.LogWarning("Could not index histogram for %s: %v", imagePath, err)
	}
	return rec.Histogram, nil
}

// Forget implements cache.HistogramStore by deleting the row of imagePath.
func (idx *Index) Forget(imagePath string) error {
	if err := DeleteHistogram(idx.DB, imagePath); err != nil {
		return err
	}
	if idx.DebugMode {
		logging.DebugLog("Dropped index entry: %s", imagePath)
	}
	return nil
}
