package types

import "lbpfinder/lbp"

// ImageMatch is one candidate and its LBP distance to the query
type ImageMatch struct {
	Name     string  `json:"name"`
	Path     string  `json:"path"`
	Distance float64 `json:"distance"`
}

// HistogramRecord is a histogram row of the sqlite index
type HistogramRecord struct {
	Path       string        `json:"path"`
	Format     string        `json:"format"`
	Width      int           `json:"width"`
	Height     int           `json:"height"`
	Size       int64         `json:"size"`
	ModifiedAt string        `json:"modified_at"`
	CreatedAt  string        `json:"created_at"`
	Histogram  lbp.Histogram `json:"-"`
}
