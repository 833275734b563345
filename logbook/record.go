// Package logbook owns the persistence side of the monitor: the
// Google Sheets append, a local SQLite mirror, the saved image
// artifact, and the serialized log action that composes them with
// best-of-window sampling.
package logbook

import (
	"fmt"
	"time"

	"github.com/verdantlab/plantmon/measure"
)

// Record is one committed data point. Millimeter values are persisted
// with two decimals and leaf count as an integer.
type Record struct {
	Timestamp time.Time
	HeightMM  float64
	LeafCount int
	AreaMM2   float64
	ImageRef  string
	Notes     string
}

// NewRecord builds a record from a chosen measurement and its saved
// image reference.
func NewRecord(m measure.Measurement, imageRef, notes string) Record {
	return Record{
		Timestamp: time.Now(),
		HeightMM:  m.HeightMM,
		LeafCount: m.LeafCount,
		AreaMM2:   m.AreaMM2,
		ImageRef:  imageRef,
		Notes:     notes,
	}
}

// Row renders the record as a spreadsheet row.
func (r Record) Row() []interface{} {
	return []interface{}{
		r.Timestamp.Format(time.RFC3339),
		fmt.Sprintf("%.2f", r.HeightMM),
		r.LeafCount,
		fmt.Sprintf("%.2f", r.AreaMM2),
		r.ImageRef,
		r.Notes,
	}
}

// Header is the sheet header row, written once when the sheet is new.
var Header = []interface{}{
	"Timestamp",
	"Stem Height (mm)",
	"Leaf Count",
	"Total Leaf Area (mm^2)",
	"Image Filename",
	"Notes",
}
